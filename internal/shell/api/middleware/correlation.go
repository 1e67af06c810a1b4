package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gnosis/profiles/internal/core/auth"
	"github.com/google/uuid"
)

// =============================================================================
// Correlation ID Middleware
// =============================================================================

// CorrelationID accepts an incoming X-Correlation-ID header or mints a new
// one, stores it in the request context for downstream service calls, and
// echoes it in the response.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get(auth.HeaderCorrelationID)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		w.Header().Set(auth.HeaderCorrelationID, correlationID)
		r = r.WithContext(auth.WithCorrelationID(r.Context(), correlationID))
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Request Logging Middleware
// =============================================================================

// RequestLogger logs each request with its method, path, status and duration.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLogger returns a middleware that logs completed requests.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"correlation_id", auth.CorrelationID(r.Context()),
			)
		})
	}
}
