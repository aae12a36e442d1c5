// Package bootstrap gates the gateway's readiness on mock backend activation.
package bootstrap

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ActivateFunc brings the mock backend up. It runs at most once.
type ActivateFunc func(ctx context.Context) error

// Switch is a one-shot readiness latch. Once Ready reports true it never reverts.
type Switch struct {
	enabled  bool
	activate ActivateFunc
	logger   *slog.Logger

	ready atomic.Bool
	done  chan struct{}
	once  sync.Once
}

// New creates a Switch. When enabled is false the switch is ready immediately and
// activate is never called.
func New(enabled bool, activate ActivateFunc, logger *slog.Logger) *Switch {
	s := &Switch{
		enabled:  enabled,
		activate: activate,
		logger:   logger.With("component", "bootstrap"),
		done:     make(chan struct{}),
	}
	if !enabled {
		s.markReady()
	}
	return s
}

// Enabled reports whether the switch waits for mock activation.
func (s *Switch) Enabled() bool {
	return s.enabled
}

// Ready reports whether the application may serve pages.
func (s *Switch) Ready() bool {
	return s.ready.Load()
}

// Done is closed when the switch becomes ready.
func (s *Switch) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the switch is ready or ctx is done.
func (s *Switch) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start launches activation in the background. Only the first call has any effect,
// and it has none when mocking is disabled. ctx bounds the activation itself.
func (s *Switch) Start(ctx context.Context) {
	if !s.enabled {
		return
	}
	s.once.Do(func() {
		go func() {
			if err := s.activate(ctx); err != nil {
				s.logger.Error("mock api activation failed; gateway stays unready", "err", err)
				return
			}
			s.markReady()
			s.logger.Info("gateway ready")
		}()
	})
}

func (s *Switch) markReady() {
	if s.ready.CompareAndSwap(false, true) {
		close(s.done)
	}
}
