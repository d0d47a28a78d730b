// Package proxy relays storefront chat conversations to a hosted LLM while
// keeping the API key on the server. Requests are rate limited per client
// and bounded in size before anything is sent upstream.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
	"unicode/utf8"

	"coffebuck/internal/config"
	"coffebuck/internal/logging"
)

// Client-facing error messages.
const (
	MsgRateLimited     = "Too many requests — please slow down."
	MsgPayloadTooLarge = "Payload too large"
	MsgInvalidJSON     = "Invalid JSON body"
	MsgMessagesMissing = "messages (array) required"
	MsgTooManyMessages = "Too many messages in request"
	MsgMessageTooLong  = "Message too long"
)

// Message is one chat turn. Content is kept raw so non-string content
// (multi-part messages) is relayed unchanged.
type Message struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content,omitempty"`
}

// Text returns the content when it is a plain string.
func (m Message) Text() string {
	var s string
	if err := json.Unmarshal(m.Content, &s); err != nil {
		return ""
	}
	return s
}

// contentLen is the length checked against the per-message limit: runes for
// string content, encoded bytes otherwise.
func (m Message) contentLen() int {
	if len(m.Content) == 0 || string(m.Content) == "null" {
		return 0
	}
	var s string
	if err := json.Unmarshal(m.Content, &s); err == nil {
		return utf8.RuneCountInString(s)
	}
	return len(m.Content)
}

// NewMessage builds a message with string content.
func NewMessage(role, content string) Message {
	raw, _ := json.Marshal(content)
	return Message{Role: role, Content: raw}
}

// ChatRequest is what an Upstream is asked to complete.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

// Response is a relayed HTTP answer.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// Upstream completes chat requests.
type Upstream interface {
	// Name identifies the provider in logs.
	Name() string
	// Configured reports whether the upstream has credentials.
	Configured() bool
	// MissingKeyMessage is the error shown when Configured is false.
	MissingKeyMessage() string
	// DefaultModel is used when the request names none.
	DefaultModel() string
	// Complete sends req. Upstream HTTP errors come back as a Response; only
	// transport failures are errors.
	Complete(ctx context.Context, req ChatRequest) (*Response, error)
}

// Service validates and relays chat requests.
type Service struct {
	upstream Upstream
	limiter  *RateLimiter
	limits   config.LimitsConfig
}

// NewService builds a proxy over upstream with the given limits.
func NewService(upstream Upstream, limits config.LimitsConfig) *Service {
	return &Service{
		upstream: upstream,
		limiter:  NewRateLimiter(limits.RateLimit, limits.GetRateWindow()),
		limits:   limits,
	}
}

// Limiter exposes the rate limiter so the caller can run its pruning loop.
func (s *Service) Limiter() *RateLimiter { return s.limiter }

// Upstream returns the configured upstream.
func (s *Service) Upstream() Upstream { return s.upstream }

// MaxReadBytes bounds how much of a request body the caller should read;
// anything longer is rejected as too large without being parsed.
func (s *Service) MaxReadBytes() int64 { return int64(s.limits.MaxBodyBytes) + 1 }

// Chat checks one request from clientIP and relays it. The checks run in a
// fixed order: rate limit, body size, messages present, message count,
// message length, upstream key.
func (s *Service) Chat(ctx context.Context, clientIP string, body []byte) *Response {
	audit := logging.AuditWithContext(clientIP, logging.CategoryProxy)
	if !s.limiter.Allow(clientIP) {
		logging.Proxy("rate limited %s", clientIP)
		audit.RateLimited(clientIP)
		return errorResponse(http.StatusTooManyRequests, MsgRateLimited)
	}

	if len(body) > s.limits.MaxBodyBytes {
		return errorResponse(http.StatusRequestEntityTooLarge, MsgPayloadTooLarge)
	}

	var envelope struct {
		Messages json.RawMessage `json:"messages"`
		Model    string          `json:"model"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &envelope); err != nil {
			return errorResponse(http.StatusBadRequest, MsgInvalidJSON)
		}
	}

	var messages []Message
	if len(envelope.Messages) == 0 || json.Unmarshal(envelope.Messages, &messages) != nil || len(messages) == 0 {
		return errorResponse(http.StatusBadRequest, MsgMessagesMissing)
	}
	if len(messages) > s.limits.MaxMessages {
		return errorResponse(http.StatusRequestEntityTooLarge, MsgTooManyMessages)
	}
	for _, m := range messages {
		if m.contentLen() > s.limits.MaxMessageChars {
			return errorResponse(http.StatusRequestEntityTooLarge, MsgMessageTooLong)
		}
	}

	if !s.upstream.Configured() {
		logging.ProxyError("%s upstream has no API key", s.upstream.Name())
		return errorResponse(http.StatusInternalServerError, s.upstream.MissingKeyMessage())
	}

	req := ChatRequest{Model: envelope.Model, Messages: messages}
	if req.Model == "" {
		req.Model = s.upstream.DefaultModel()
	}

	start := time.Now()
	logging.ProxyDebug("relaying %d messages to %s model=%s", len(messages), s.upstream.Name(), req.Model)
	audit.LLMRequest(s.upstream.Name(), req.Model, len(messages))
	resp, err := s.upstream.Complete(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		logging.ProxyError("%s request failed after %v: %v", s.upstream.Name(), elapsed, err)
		audit.LLMCall(s.upstream.Name(), req.Model, 0, elapsed.Milliseconds(), err.Error())
		return errorResponse(http.StatusInternalServerError, err.Error())
	}
	logging.Proxy("%s answered %d in %v", s.upstream.Name(), resp.Status, elapsed)
	audit.LLMCall(s.upstream.Name(), req.Model, resp.Status, elapsed.Milliseconds(), "")
	return resp
}

// relay wraps an upstream body: JSON stays JSON, anything else is text.
func relay(status int, body []byte) *Response {
	ct := "text/plain; charset=utf-8"
	if json.Valid(body) {
		ct = "application/json; charset=utf-8"
	}
	return &Response{Status: status, ContentType: ct, Body: body}
}

func errorResponse(status int, msg string) *Response {
	body, _ := json.Marshal(map[string]string{"error": msg})
	return &Response{Status: status, ContentType: "application/json; charset=utf-8", Body: body}
}

// ErrNotConfigured is returned by Ask when the upstream has no key.
var ErrNotConfigured = errors.New("upstream not configured")

// Ask sends a single question, prefixed with SystemPrompt, and returns the
// assistant's text. It is the non-HTTP path used by the CLI.
func Ask(ctx context.Context, upstream Upstream, question string) (string, error) {
	if !upstream.Configured() {
		return "", ErrNotConfigured
	}
	resp, err := upstream.Complete(ctx, ChatRequest{
		Model: upstream.DefaultModel(),
		Messages: []Message{
			NewMessage("system", SystemPrompt),
			NewMessage("user", question),
		},
	})
	if err != nil {
		return "", err
	}
	if resp.Status >= 400 {
		return "", &StatusError{Status: resp.Status, Body: string(resp.Body)}
	}
	return ExtractContent(resp.Body), nil
}

// StatusError is an upstream HTTP failure seen by Ask.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return http.StatusText(e.Status) + ": " + e.Body
}
