// Package llm provides persona generation backed by a chat-completions API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gnosis/profiles/internal/core/auth"
	"github.com/gnosis/profiles/internal/core/persona"
)

// =============================================================================
// Generator Interface
// =============================================================================

// Generator defines the interface for producing persona drafts from content.
type Generator interface {
	// GenerateProfile produces a persona draft for the given content item.
	GenerateProfile(ctx context.Context, content persona.Content) (persona.Draft, error)
}

// =============================================================================
// OpenAI Client Implementation
// =============================================================================

// OpenAIClient implements Generator against an OpenAI-compatible
// chat-completions endpoint.
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	model      string
	template   persona.Template
	httpClient *http.Client
}

// Config holds configuration for the OpenAI client.
type Config struct {
	BaseURL  string
	APIKey   string
	Model    string
	Template persona.Template
	Timeout  time.Duration
}

// DefaultConfig returns default OpenAI client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:  "https://api.openai.com",
		Model:    "gpt-4o",
		Template: persona.DefaultTemplate(),
		Timeout:  60 * time.Second,
	}
}

// NewOpenAIClient creates a new chat-completions client.
func NewOpenAIClient(cfg Config) *OpenAIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Template.User == "" {
		cfg.Template = persona.DefaultTemplate()
	}

	return &OpenAIClient{
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		template: cfg.Template,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// chatMessage is a single message in a chat-completions request.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the chat-completions request body.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

// chatResponse is the subset of the chat-completions response we read.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateProfile renders the persona prompt, calls the completions endpoint
// and parses the reply into a draft.
func (c *OpenAIClient) GenerateProfile(ctx context.Context, content persona.Content) (persona.Draft, error) {
	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: c.template.System},
			{Role: "user", Content: c.template.BuildPrompt(content)},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return persona.Draft{}, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	url := c.baseURL + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return persona.Draft{}, fmt.Errorf("failed to create chat request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if correlationID := auth.CorrelationID(ctx); correlationID != "" {
		req.Header.Set(auth.HeaderCorrelationID, correlationID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return persona.Draft{}, fmt.Errorf("failed to send chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return persona.Draft{}, fmt.Errorf("completions API returned error %d: %s", resp.StatusCode, string(respBody))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return persona.Draft{}, fmt.Errorf("failed to decode chat response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return persona.Draft{}, persona.ErrEmptyReply
	}

	return persona.ParseDraft(chat.Choices[0].Message.Content)
}

// =============================================================================
// Static Generator (for development/testing)
// =============================================================================

// StaticGenerator produces deterministic drafts without calling a model.
// Used in development mode when no completions API key is configured.
type StaticGenerator struct{}

// NewStaticGenerator creates a static persona generator.
func NewStaticGenerator() *StaticGenerator {
	return &StaticGenerator{}
}

// GenerateProfile returns a draft derived from the content fields.
func (g *StaticGenerator) GenerateProfile(ctx context.Context, content persona.Content) (persona.Draft, error) {
	title := content.Title
	if title == "" {
		title = "Untitled"
	}
	author := content.Author
	if author == "" {
		author = "Anonymous"
	}

	return persona.Draft{
		DisplayName:         author + " (AI)",
		Name:                author,
		Bio:                 fmt.Sprintf("Author of %s, writing about %s.", title, orTopic(content.Topic)),
		Location:            "Somewhere between the lines",
		SystemsInstructions: fmt.Sprintf("You are %s, author of %s. Answer in their voice and style.", author, title),
	}, nil
}

func orTopic(topic string) string {
	if topic == "" {
		return "many things"
	}
	return topic
}
