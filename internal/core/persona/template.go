package persona

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Template
// =============================================================================

// Template holds the system message and user prompt template used for
// persona generation. The user template supports {title}, {author}, {topic},
// {genre} and {custom_prompt} placeholders.
type Template struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// defaultUserTemplate mirrors the prompt the service has always shipped.
const defaultUserTemplate = `
Based on the following content information, create a detailed social media profile for an AI agent that embodies the author's persona in the context of their work.

Content Details:
Title: {title}
Author: {author}
Topic: {topic}
Genre: {genre}

Take into account the following custom prompt:
Custom Prompt: {custom_prompt}

Make all of the below clever, witty, and engaging.

First think about the following:
Who is the author?
What are they writing about?
Describe their tone and writing style.
What is their persona? their character? their values? their worldview?

Then create a profile that includes:
1. A witty display name that reflects the author's persona
2. A full name (if known)
3. A a social media bio written in the style of the author (be witty and original)
4. A location related to the author or their work (make it something unique/funny)
5. Detailed system instructions for how this AI should communicate. Describe the tone, style, and personality of the author. Take on the persona of the author and describe to the AI how it should act. E.g. "You are Julius Caesar in his writing of De Bello Gallico, your verbiage is precise and to the point, and you are detailed in your descriptions of military strategy. etc etc"

Please respond in JSON format with the following structure:
{
    "display_name": "Creative display name",
    "name": "Full name",
    "bio": "Detailed biography",
    "location": "Relevant location",
    "systems_instructions": "Detailed instructions for AI communication style"
}
`

// DefaultTemplate returns the built-in prompt template.
func DefaultTemplate() Template {
	return Template{
		System: SystemMessage,
		User:   defaultUserTemplate,
	}
}

// LoadTemplate reads a YAML prompt template from path. Missing fields fall
// back to the defaults, so an override file may set only the system message.
func LoadTemplate(path string) (Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Template{}, fmt.Errorf("failed to read prompt template: %w", err)
	}
	return parseTemplate(data)
}

func parseTemplate(data []byte) (Template, error) {
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Template{}, fmt.Errorf("failed to parse prompt template: %w", err)
	}

	def := DefaultTemplate()
	if strings.TrimSpace(t.System) == "" {
		t.System = def.System
	}
	if strings.TrimSpace(t.User) == "" {
		t.User = def.User
	}
	return t, nil
}
