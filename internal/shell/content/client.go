// Package content provides a client for the content query API.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gnosis/profiles/internal/core/auth"
	"github.com/gnosis/profiles/internal/core/persona"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrContentNotFound is returned when the content item does not exist upstream.
	ErrContentNotFound = errors.New("content not found")
)

// =============================================================================
// Client Interface
// =============================================================================

// Client defines the interface for fetching content metadata.
type Client interface {
	// GetContent fetches a content item's metadata by ID.
	GetContent(ctx context.Context, contentID int) (*persona.Content, error)
}

// =============================================================================
// HTTP Client Implementation
// =============================================================================

// HTTPClient implements Client against the content query API.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Config holds configuration for the content client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewHTTPClient creates a new content query API client.
func NewHTTPClient(cfg Config) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &HTTPClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// GetContent fetches a content item's metadata by ID. The correlation ID from
// the request context, if any, is forwarded upstream.
func (c *HTTPClient) GetContent(ctx context.Context, contentID int) (*persona.Content, error) {
	url := fmt.Sprintf("%s/api/content/%d", c.baseURL, contentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create content request: %w", err)
	}

	req.Header.Set(auth.HeaderAPIKey, c.apiKey)
	if correlationID := auth.CorrelationID(ctx); correlationID != "" {
		req.Header.Set(auth.HeaderCorrelationID, correlationID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content %d: %w", contentID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrContentNotFound
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("content API returned error %d: %s", resp.StatusCode, string(respBody))
	}

	var content persona.Content
	if err := json.NewDecoder(resp.Body).Decode(&content); err != nil {
		return nil, fmt.Errorf("failed to decode content %d: %w", contentID, err)
	}

	return &content, nil
}
