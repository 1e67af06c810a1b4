// Package persona builds chat prompts for persona generation and parses the
// model's replies. This is part of the Functional Core - no I/O happens here;
// the llm package owns the transport.
package persona

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrEmptyReply is returned when the model produced no content.
	ErrEmptyReply = errors.New("empty model reply")

	// ErrInvalidReply is returned when the model reply is not the expected JSON.
	ErrInvalidReply = errors.New("model reply is not valid profile JSON")

	// ErrIncompleteDraft is returned when the parsed draft lacks a display name.
	ErrIncompleteDraft = errors.New("draft is missing display_name")
)

// =============================================================================
// Content
// =============================================================================

// Content holds the metadata of a content item, as served by the content
// query API. Unknown fields default to the string "Unknown" in prompts.
type Content struct {
	Title        string `json:"title"`
	Author       string `json:"author"`
	Topic        string `json:"topic"`
	Genre        string `json:"genre"`
	CustomPrompt string `json:"custom_prompt"`
}

// =============================================================================
// Draft
// =============================================================================

// Draft is the persona profile produced by the model.
type Draft struct {
	DisplayName         string `json:"display_name"`
	Name                string `json:"name"`
	Bio                 string `json:"bio"`
	Location            string `json:"location"`
	SystemsInstructions string `json:"systems_instructions"`
}

// =============================================================================
// Prompt Construction
// =============================================================================

// SystemMessage is the default system role content for persona generation.
const SystemMessage = "You are a profile creation specialist."

// BuildPrompt renders the persona generation prompt for a content item
// using the given template.
func (t Template) BuildPrompt(c Content) string {
	r := strings.NewReplacer(
		"{title}", orUnknown(c.Title),
		"{author}", orUnknown(c.Author),
		"{topic}", orUnknown(c.Topic),
		"{genre}", orUnknown(c.Genre),
		"{custom_prompt}", orNone(c.CustomPrompt),
	)
	return r.Replace(t.User)
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}

// =============================================================================
// Reply Parsing
// =============================================================================

// ParseDraft decodes a model reply into a Draft. Models frequently wrap JSON
// in markdown code fences, so fences are stripped before decoding.
func ParseDraft(reply string) (Draft, error) {
	reply = stripFences(reply)
	if reply == "" {
		return Draft{}, ErrEmptyReply
	}

	var draft Draft
	if err := json.Unmarshal([]byte(reply), &draft); err != nil {
		return Draft{}, fmt.Errorf("%w: %v", ErrInvalidReply, err)
	}

	if draft.DisplayName == "" {
		return Draft{}, ErrIncompleteDraft
	}

	return draft, nil
}

// stripFences removes ```json / ``` markers and surrounding whitespace.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
