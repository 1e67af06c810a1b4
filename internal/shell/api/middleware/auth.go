// Package middleware provides HTTP middleware for the profiles API.
package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gnosis/profiles/internal/core/auth"
)

// =============================================================================
// Auth Configuration
// =============================================================================

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	// APIKey is the service API key callers must present in X-API-KEY.
	APIKey string

	// Logger for auth middleware logging.
	Logger *slog.Logger
}

// =============================================================================
// Auth Middleware
// =============================================================================

// AuthMiddleware verifies the X-API-KEY header on every request except the
// docs and health endpoints, and stores the auth context in the request.
type AuthMiddleware struct {
	config AuthConfig
}

// NewAuthMiddleware creates a new auth middleware with the given config.
func NewAuthMiddleware(cfg AuthConfig) *AuthMiddleware {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &AuthMiddleware{config: cfg}
}

// Handler returns the middleware handler function.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Docs and health endpoints stay reachable without credentials.
		if auth.IsExemptPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if r.Header.Get(auth.HeaderAPIKey) == "" {
			m.config.Logger.Warn("missing API key",
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
			)
			writeJSONError(w, http.StatusUnauthorized, "No X-API-KEY")
			return
		}

		authCtx := auth.ExtractFromRequest(r, m.config.APIKey)
		if !authCtx.Authenticated {
			m.config.Logger.Warn("invalid API key",
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
			)
			writeJSONError(w, http.StatusUnauthorized, "Invalid X-API-KEY")
			return
		}

		r = r.WithContext(auth.WithContext(r.Context(), authCtx))
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// JSON Error Response
// =============================================================================

// errorResponse is the wire format for middleware-level errors.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSONError writes a JSON formatted error response.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: message})
}
