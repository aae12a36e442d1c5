// Package service implements the calls this gateway makes to the Shallwe backend.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"shallwe-gate/internal/client"
	"shallwe-gate/internal/config"
	"shallwe-gate/internal/model"
)

// ErrMissingCode is returned when a Google login is attempted without an authorization code.
var ErrMissingCode = errors.New("google authorization code is required")

// forwardableRequestHeaders are the only request headers forwarded to the backend.
var forwardableRequestHeaders = []string{
	"Accept",
	"Accept-Language",
	"Content-Type",
	"Cookie",
	"X-CSRFToken",
}

// forwardableResponseHeaders are the only response headers passed back to the browser.
var forwardableResponseHeaders = map[string]bool{
	"Content-Type":   true,
	"Content-Length": true,
	"Cache-Control":  true,
	"Date":           true,
	"Set-Cookie":     true,
	"X-Request-Id":   true,
}

const userAgent = "shallwe-gate/1.0"

// BackendService performs the Shallwe auth API calls.
type BackendService struct {
	client  *client.BackendClient
	logger  *slog.Logger
	baseURL *url.URL
}

// NewBackendService creates a BackendService targeting backend.server_base_url.
func NewBackendService(c *client.BackendClient, cfg *config.Config, logger *slog.Logger) (*BackendService, error) {
	u, err := url.Parse(cfg.Backend.ServerBaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend server_base_url: %w", err)
	}

	return &BackendService{
		client:  c,
		logger:  logger.With("component", "backend_service"),
		baseURL: u,
	}, nil
}

// Call sends a BackendRequest and returns the filtered response.
// The caller is responsible for closing the response body.
func (s *BackendService) Call(br *model.BackendRequest) (*model.BackendResponse, error) {
	target := s.buildURL(br.Path)
	header := s.filterRequestHeaders(br.Header)

	s.logger.Debug("calling backend",
		"method", br.Method,
		"path", br.Path,
	)

	resp, err := s.client.DoStream(br.Ctx, br.Method, target, header, br.Body)
	if err != nil {
		return nil, fmt.Errorf("call backend: %w", err)
	}

	resp.Header = s.filterResponseHeaders(resp.Header)
	return resp, nil
}

// ProfileStatus asks the backend for the session's profile status and returns the
// bare HTTP status code: 200 complete, 403 anonymous, 404 setup pending.
// cookie is forwarded verbatim, even when empty.
func (s *BackendService) ProfileStatus(ctx context.Context, cookie string) (int, error) {
	resp, err := s.Call(&model.BackendRequest{
		Ctx:    ctx,
		Method: http.MethodGet,
		Path:   model.ProfileStatusPath,
		Header: http.Header{"Cookie": {cookie}},
	})
	if err != nil {
		return 0, fmt.Errorf("profile status: %w", err)
	}
	drain(resp.Body)
	return resp.StatusCode, nil
}

// LoginGoogle exchanges a Google authorization code for a backend session.
func (s *BackendService) LoginGoogle(ctx context.Context, code string) (*model.BackendResponse, error) {
	if code == "" {
		return nil, ErrMissingCode
	}
	body, err := json.Marshal(map[string]string{"code": code})
	if err != nil {
		return nil, fmt.Errorf("login google: encode body: %w", err)
	}

	resp, err := s.Call(&model.BackendRequest{
		Ctx:    ctx,
		Method: http.MethodPost,
		Path:   model.LoginGooglePath,
		Header: http.Header{"Content-Type": {"application/json"}},
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return nil, fmt.Errorf("login google: %w", err)
	}
	return resp, nil
}

// Logout ends the backend session identified by cookie.
func (s *BackendService) Logout(ctx context.Context, cookie, csrfToken string) (*model.BackendResponse, error) {
	resp, err := s.Call(&model.BackendRequest{
		Ctx:    ctx,
		Method: http.MethodPost,
		Path:   model.LogoutPath,
		Header: sessionHeader(cookie, csrfToken),
	})
	if err != nil {
		return nil, fmt.Errorf("logout: %w", err)
	}
	return resp, nil
}

// DeleteAccount removes the user behind cookie.
func (s *BackendService) DeleteAccount(ctx context.Context, cookie, csrfToken string) (*model.BackendResponse, error) {
	resp, err := s.Call(&model.BackendRequest{
		Ctx:    ctx,
		Method: http.MethodDelete,
		Path:   model.UserPath,
		Header: sessionHeader(cookie, csrfToken),
	})
	if err != nil {
		return nil, fmt.Errorf("delete account: %w", err)
	}
	return resp, nil
}

// TestUnprotected calls the backend's anonymous test endpoint.
func (s *BackendService) TestUnprotected(ctx context.Context, cookie string) (*model.BackendResponse, error) {
	return s.testCall(ctx, model.TestUnprotectedPath, cookie)
}

// TestProtected calls the backend's session-only test endpoint.
func (s *BackendService) TestProtected(ctx context.Context, cookie string) (*model.BackendResponse, error) {
	return s.testCall(ctx, model.TestProtectedPath, cookie)
}

func (s *BackendService) testCall(ctx context.Context, path, cookie string) (*model.BackendResponse, error) {
	resp, err := s.Call(&model.BackendRequest{
		Ctx:    ctx,
		Method: http.MethodGet,
		Path:   path,
		Header: http.Header{"Cookie": {cookie}, "Accept": {"application/json"}},
	})
	if err != nil {
		return nil, fmt.Errorf("test call %s: %w", path, err)
	}
	return resp, nil
}

func (s *BackendService) buildURL(path string) string {
	u := *s.baseURL
	u.Path = strings.TrimSuffix(s.baseURL.Path, "/") + path
	u.RawPath = ""
	u.RawQuery = ""
	return u.String()
}

func (s *BackendService) filterRequestHeaders(src http.Header) http.Header {
	dst := make(http.Header)
	for _, key := range forwardableRequestHeaders {
		if vals, ok := src[http.CanonicalHeaderKey(key)]; ok {
			dst[http.CanonicalHeaderKey(key)] = vals
		}
	}
	dst.Set("User-Agent", userAgent)
	return dst
}

func (s *BackendService) filterResponseHeaders(src http.Header) http.Header {
	dst := make(http.Header)
	for key, vals := range src {
		if forwardableResponseHeaders[http.CanonicalHeaderKey(key)] {
			dst[key] = vals
		}
	}
	return dst
}

func sessionHeader(cookie, csrfToken string) http.Header {
	return http.Header{
		"Cookie":       {cookie},
		"X-Csrftoken":  {csrfToken},
		"Content-Type": {"application/json"},
	}
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
