// Package auth provides API key verification and the request auth context.
// All functions are pure; the HTTP middleware in shell/api wires them in.
package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

// =============================================================================
// Header Constants
// =============================================================================

const (
	// HeaderAPIKey carries the caller's service API key.
	HeaderAPIKey = "X-API-KEY"

	// HeaderCorrelationID carries the request correlation ID, propagated to
	// downstream services.
	HeaderCorrelationID = "X-Correlation-ID"
)

// =============================================================================
// Context
// =============================================================================

type contextKey string

const (
	authContextKey        contextKey = "auth"
	correlationContextKey contextKey = "correlation"
)

// Context represents the authentication state of a request.
type Context struct {
	// Authenticated indicates whether a valid API key was presented.
	Authenticated bool
}

// WithContext stores the auth context in the request context.
func WithContext(ctx context.Context, authCtx Context) context.Context {
	return context.WithValue(ctx, authContextKey, authCtx)
}

// FromContext retrieves the auth context from the request context.
// If no auth context is found, returns an unauthenticated context.
func FromContext(ctx context.Context) Context {
	if authCtx, ok := ctx.Value(authContextKey).(Context); ok {
		return authCtx
	}
	return Context{Authenticated: false}
}

// WithCorrelationID stores the request correlation ID in the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationContextKey, id)
}

// CorrelationID retrieves the correlation ID from the context, or "" if none.
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationContextKey).(string); ok {
		return id
	}
	return ""
}

// =============================================================================
// Key Verification
// =============================================================================

// HeaderGetter is an interface for getting header values.
// This allows testing without requiring an http.Request.
type HeaderGetter interface {
	Get(key string) string
}

// ExtractFromRequest checks the request's API key against the expected key.
func ExtractFromRequest(r *http.Request, expectedKey string) Context {
	return ExtractFromHeaders(headerGetter{r: r}, expectedKey)
}

type headerGetter struct {
	r *http.Request
}

func (h headerGetter) Get(key string) string {
	return h.r.Header.Get(key)
}

// ExtractFromHeaders verifies the X-API-KEY header against the expected key
// using a constant-time comparison. An empty presented key never authenticates.
func ExtractFromHeaders(headers HeaderGetter, expectedKey string) Context {
	presented := headers.Get(HeaderAPIKey)
	if presented == "" || expectedKey == "" {
		return Context{Authenticated: false}
	}
	if subtle.ConstantTimeCompare([]byte(presented), []byte(expectedKey)) != 1 {
		return Context{Authenticated: false}
	}
	return Context{Authenticated: true}
}

// =============================================================================
// Exempt Paths
// =============================================================================

// exemptPrefixes lists path prefixes that bypass API key checks.
// Docs and health endpoints must be reachable without credentials.
var exemptPrefixes = []string{
	"/docs",
	"/swagger",
	"/openapi.json",
	"/health",
	"/ready",
}

// IsExemptPath reports whether a request path bypasses API key checks.
func IsExemptPath(path string) bool {
	for _, prefix := range exemptPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// =============================================================================
// Helper Types for Testing
// =============================================================================

// MapHeaderGetter wraps a map to implement HeaderGetter interface.
// This is useful for testing without creating http.Request objects.
type MapHeaderGetter map[string]string

func (m MapHeaderGetter) Get(key string) string {
	return m[key]
}
