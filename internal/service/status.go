package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"shallwe-gate/internal/config"
	"shallwe-gate/internal/mockapi"
	"shallwe-gate/internal/model"
)

// StatusChecker reports the profile status of the session behind a Cookie header.
type StatusChecker interface {
	ProfileStatus(ctx context.Context, cookie string) (int, error)
}

// BackendStatus asks the real backend over HTTP.
type BackendStatus struct {
	backend *BackendService
}

// ProfileStatus implements StatusChecker.
func (b *BackendStatus) ProfileStatus(ctx context.Context, cookie string) (int, error) {
	return b.backend.ProfileStatus(ctx, cookie)
}

// MockStatus answers from the mock backend rule set without any network I/O.
type MockStatus struct {
	responder *mockapi.Responder
}

// ProfileStatus implements StatusChecker.
func (m *MockStatus) ProfileStatus(ctx context.Context, cookie string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, model.ProfileStatusPath, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("mock profile status: %w", err)
	}
	req.Header.Set("Cookie", cookie)

	resp, err := m.responder.Respond(req)
	if err != nil {
		return 0, fmt.Errorf("mock profile status: %w", err)
	}
	drain(resp.Body)
	return resp.StatusCode, nil
}

// NewStatusChecker picks the checker for this process: the mock backend when
// mock.api is "true", the real backend otherwise.
func NewStatusChecker(cfg *config.Config, backend *BackendService, responder *mockapi.Responder, logger *slog.Logger) StatusChecker {
	if cfg.Mock.API.Bool() {
		logger.Info("profile status served by mock backend")
		return &MockStatus{responder: responder}
	}
	return &BackendStatus{backend: backend}
}
