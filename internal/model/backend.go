// Package model defines shared types for the gateway.
package model

import (
	"context"
	"io"
	"net/http"
)

// BackendRequest represents one call to the Shallwe backend API.
type BackendRequest struct {
	Ctx    context.Context
	Method string
	Path   string
	Header http.Header
	Body   io.Reader
}

// BackendResponse represents the backend reply.
// The caller is responsible for closing Body.
type BackendResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}
