// Package coach runs the Lean AI coach conversation about an A3 document.
package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Turn roles
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Turn is one message of the conversation sent to the model
type Turn struct {
	Role string
	Text string
}

// Model generates the coach's reply to a conversation
type Model interface {
	Generate(ctx context.Context, system string, turns []Turn) (string, error)
}

// ErrEmptyReply is returned when the model answers with no text
var ErrEmptyReply = errors.New("model returned an empty reply")

// GeminiModel implements Model with Google's Gemini API.
type GeminiModel struct {
	client *genai.Client
	model  string
}

// NewGeminiModel creates a Gemini-backed coach model.
func NewGeminiModel(ctx context.Context, apiKey, model string) (*GeminiModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiModel{client: client, model: model}, nil
}

// Generate sends the conversation and returns the reply text.
func (m *GeminiModel) Generate(ctx context.Context, system string, turns []Turn) (string, error) {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := genai.RoleUser
		if t.Role == RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, genai.Role(role)))
	}

	result, err := m.client.Models.GenerateContent(ctx, m.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.4),
	})
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

// Name returns the model name.
func (m *GeminiModel) Name() string {
	return fmt.Sprintf("genai:%s", m.model)
}
