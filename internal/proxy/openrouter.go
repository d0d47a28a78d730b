package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"coffebuck/internal/config"
)

// maxUpstreamBody caps how much of an upstream answer is read.
const maxUpstreamBody = 10 * 1024 * 1024

// OpenRouterConfig holds configuration for the OpenRouter upstream.
type OpenRouterConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
	SiteURL  string // Sent as HTTP-Referer
	SiteName string // Sent as X-Title
}

// DefaultOpenRouterConfig returns sensible defaults.
func DefaultOpenRouterConfig(apiKey string) OpenRouterConfig {
	return OpenRouterConfig{
		APIKey:   apiKey,
		BaseURL:  config.DefaultOpenRouterBaseURL,
		Model:    config.DefaultOpenRouterModel,
		Timeout:  60 * time.Second,
		SiteName: "CoffeBuck",
	}
}

// OpenRouterUpstream relays chat completions to OpenRouter's
// OpenAI-compatible API.
type OpenRouterUpstream struct {
	apiKey     string
	baseURL    string
	model      string
	siteURL    string
	siteName   string
	httpClient *http.Client
}

// NewOpenRouterUpstream creates an OpenRouter upstream.
func NewOpenRouterUpstream(cfg OpenRouterConfig) *OpenRouterUpstream {
	if cfg.BaseURL == "" {
		cfg.BaseURL = config.DefaultOpenRouterBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = config.DefaultOpenRouterModel
	}
	return &OpenRouterUpstream{
		apiKey:   cfg.APIKey,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		model:    cfg.Model,
		siteURL:  cfg.SiteURL,
		siteName: cfg.SiteName,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (u *OpenRouterUpstream) Name() string         { return config.ProviderOpenRouter }
func (u *OpenRouterUpstream) Configured() bool     { return u.apiKey != "" }
func (u *OpenRouterUpstream) DefaultModel() string { return u.model }

func (u *OpenRouterUpstream) MissingKeyMessage() string {
	return "Server missing OpenRouter API key (OPENROUTER_API_KEY)."
}

// Complete posts req to /chat/completions and relays whatever comes back.
func (u *OpenRouterUpstream) Complete(ctx context.Context, req ChatRequest) (*Response, error) {
	if req.Model == "" {
		req.Model = u.model
	}
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+u.apiKey)
	// OpenRouter-specific headers
	if u.siteURL != "" {
		httpReq.Header.Set("HTTP-Referer", u.siteURL)
	}
	if u.siteName != "" {
		httpReq.Header.Set("X-Title", u.siteName)
	}

	resp, err := u.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return relay(resp.StatusCode, body), nil
}
