// Package mockapi answers Shallwe backend calls in-process with canned responses.
package mockapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/labstack/echo/v4"

	"shallwe-gate/internal/metrics"
	"shallwe-gate/internal/model"
)

// ErrNoRule is returned when no mock rule matches a request.
var ErrNoRule = errors.New("no mock rule matches request")

// Responder holds an immutable rule set and, once started, serves it.
type Responder struct {
	rules   []model.MockRule
	logger  *slog.Logger
	metrics *metrics.Metrics

	once    sync.Once
	started atomic.Bool
}

// New creates a Responder with DefaultRules.
// The metrics parameter is optional; pass nil to disable hit counting.
func New(logger *slog.Logger, m *metrics.Metrics) *Responder {
	return NewWithRules(DefaultRules(), logger, m)
}

// NewWithRules creates a Responder serving the given rules in order.
func NewWithRules(rules []model.MockRule, logger *slog.Logger, m *metrics.Metrics) *Responder {
	return &Responder{
		rules:   append([]model.MockRule(nil), rules...),
		logger:  logger.With("component", "mock_api"),
		metrics: m,
	}
}

// Start activates interception. Calling it again is a no-op.
func (r *Responder) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("start mock api: %w", err)
	}
	r.once.Do(func() {
		r.started.Store(true)
		r.logger.Info("mock api active", "rules", len(r.rules))
	})
	return nil
}

// Started reports whether Start has completed.
func (r *Responder) Started() bool {
	return r.started.Load()
}

// Rules returns a copy of the rule set.
func (r *Responder) Rules() []model.MockRule {
	return append([]model.MockRule(nil), r.rules...)
}

// Match returns the first rule matching method and path.
func (r *Responder) Match(method, path string) (model.MockRule, bool) {
	for _, rule := range r.rules {
		if ruleMatches(rule, method, path) {
			return rule, true
		}
	}
	return model.MockRule{}, false
}

// Respond answers req from the rule set without touching the network.
// It works whether or not the responder has been started.
func (r *Responder) Respond(req *http.Request) (*http.Response, error) {
	rule, ok := r.Match(req.Method, req.URL.Path)
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, ErrNoRule)
	}
	r.hit(rule)
	return newResponse(req, rule), nil
}

// Transport wraps base so that, once started, matching requests are answered locally.
// Requests that match no rule, or arrive before Start, go to base unchanged.
func (r *Responder) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &transport{responder: r, base: base}
}

// Handle serves the rule set to inbound requests, for browsers that use this
// gateway as their API base URL.
func (r *Responder) Handle(c echo.Context) error {
	req := c.Request()
	rule, ok := r.Match(req.Method, req.URL.Path)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "no mock rule for " + req.Method + " " + req.URL.Path,
		})
	}
	r.hit(rule)
	if rule.Body == nil {
		return c.NoContent(rule.Status)
	}
	return c.Blob(rule.Status, echo.MIMEApplicationJSON, rule.Body)
}

func (r *Responder) hit(rule model.MockRule) {
	r.logger.Debug("mock hit", "rule", rule.Name)
	if r.metrics != nil {
		r.metrics.MockHits.WithLabelValues(rule.Name).Inc()
	}
}

func newResponse(req *http.Request, rule model.MockRule) *http.Response {
	header := make(http.Header)
	if rule.Body != nil {
		header.Set("Content-Type", echo.MIMEApplicationJSON)
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", rule.Status, http.StatusText(rule.Status)),
		StatusCode:    rule.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(rule.Body)),
		ContentLength: int64(len(rule.Body)),
		Request:       req,
	}
}

type transport struct {
	responder *Responder
	base      http.RoundTripper
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.responder.Started() {
		if rule, ok := t.responder.Match(req.Method, req.URL.Path); ok {
			if req.Body != nil {
				_ = req.Body.Close()
			}
			t.responder.hit(rule)
			return newResponse(req, rule), nil
		}
	}
	return t.base.RoundTrip(req)
}
