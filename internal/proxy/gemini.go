package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"coffebuck/internal/config"

	"google.golang.org/genai"
)

// contentGenerator is the slice of genai.Models the upstream uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiUpstream answers chat requests with Google's Gemini API and wraps the
// reply in an OpenAI-style envelope.
type GeminiUpstream struct {
	models contentGenerator
	model  string
}

// NewGeminiUpstream creates a Gemini upstream. An empty apiKey yields an
// unconfigured upstream rather than an error so the server can still start.
func NewGeminiUpstream(ctx context.Context, apiKey, model string) (*GeminiUpstream, error) {
	if model == "" {
		model = config.DefaultGeminiModel
	}
	u := &GeminiUpstream{model: model}
	if apiKey == "" {
		return u, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	u.models = client.Models
	return u, nil
}

func (u *GeminiUpstream) Name() string         { return config.ProviderGemini }
func (u *GeminiUpstream) Configured() bool     { return u.models != nil }
func (u *GeminiUpstream) DefaultModel() string { return u.model }

func (u *GeminiUpstream) MissingKeyMessage() string {
	return "Server missing Gemini API key (GEMINI_API_KEY)."
}

// Complete converts the conversation to Gemini contents. System messages
// become the system instruction; assistant turns become model turns.
func (u *GeminiUpstream) Complete(ctx context.Context, req ChatRequest) (*Response, error) {
	model := req.Model
	if model == "" || strings.Contains(model, "/") {
		// OpenRouter-style names mean the client did not pick a Gemini model.
		model = u.model
	}

	var system []string
	var contents []*genai.Content
	for _, m := range req.Messages {
		text := m.Text()
		if text == "" {
			continue
		}
		switch m.Role {
		case "system":
			system = append(system, text)
		case "assistant":
			contents = append(contents, genai.NewContentFromText(text, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return errorResponse(http.StatusBadRequest, MsgMessagesMissing), nil
	}

	var cfg *genai.GenerateContentConfig
	if len(system) > 0 {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser),
		}
	}

	result, err := u.models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("GenAI generate failed: %w", err)
	}

	body, err := json.Marshal(completionEnvelope{
		Model: model,
		Choices: []completionChoice{{
			Index:   0,
			Message: completionMessage{Role: "assistant", Content: responseText(result)},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return relay(http.StatusOK, body), nil
}

func responseText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

// completionEnvelope is the OpenAI chat completion shape.
type completionEnvelope struct {
	Model   string             `json:"model,omitempty"`
	Choices []completionChoice `json:"choices"`
}

type completionChoice struct {
	Index   int               `json:"index"`
	Message completionMessage `json:"message"`
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
