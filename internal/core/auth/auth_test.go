package auth

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// Key Verification Tests
// =============================================================================

func TestExtractFromHeaders_ValidKey(t *testing.T) {
	headers := MapHeaderGetter{HeaderAPIKey: "secret-key"}

	ctx := ExtractFromHeaders(headers, "secret-key")
	assert.True(t, ctx.Authenticated)
}

func TestExtractFromHeaders_WrongKey(t *testing.T) {
	headers := MapHeaderGetter{HeaderAPIKey: "wrong-key"}

	ctx := ExtractFromHeaders(headers, "secret-key")
	assert.False(t, ctx.Authenticated)
}

func TestExtractFromHeaders_MissingKey(t *testing.T) {
	ctx := ExtractFromHeaders(MapHeaderGetter{}, "secret-key")
	assert.False(t, ctx.Authenticated)
}

func TestExtractFromHeaders_NoConfiguredKey(t *testing.T) {
	// An unconfigured server key must never authenticate anyone.
	headers := MapHeaderGetter{HeaderAPIKey: ""}
	ctx := ExtractFromHeaders(headers, "")
	assert.False(t, ctx.Authenticated)
}

func TestExtractFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/users/1", nil)
	r.Header.Set(HeaderAPIKey, "secret-key")

	ctx := ExtractFromRequest(r, "secret-key")
	assert.True(t, ctx.Authenticated)
}

// =============================================================================
// Context Storage Tests
// =============================================================================

func TestWithContext_RoundTrip(t *testing.T) {
	ctx := WithContext(context.Background(), Context{Authenticated: true})
	assert.True(t, FromContext(ctx).Authenticated)
}

func TestFromContext_Empty(t *testing.T) {
	assert.False(t, FromContext(context.Background()).Authenticated)
}

func TestCorrelationID_RoundTrip(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "corr-123")
	assert.Equal(t, "corr-123", CorrelationID(ctx))
}

func TestCorrelationID_Empty(t *testing.T) {
	assert.Equal(t, "", CorrelationID(context.Background()))
}

// =============================================================================
// Exempt Path Tests
// =============================================================================

func TestIsExemptPath(t *testing.T) {
	tests := []struct {
		path   string
		exempt bool
	}{
		{"/docs", true},
		{"/docs/", true},
		{"/swagger.json", true},
		{"/openapi.json", true},
		{"/health", true},
		{"/ready", true},
		{"/api/users", false},
		{"/api/ais/content/12", false},
		{"/", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.exempt, IsExemptPath(tt.path), "path %q", tt.path)
	}
}
