package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"coffebuck/internal/config"
	"coffebuck/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUpstream struct {
	configured bool
	resp       *Response
	err        error
	got        []ChatRequest
}

func (f *fakeUpstream) Name() string              { return "fake" }
func (f *fakeUpstream) Configured() bool          { return f.configured }
func (f *fakeUpstream) MissingKeyMessage() string { return "no key" }
func (f *fakeUpstream) DefaultModel() string      { return "default-model" }

func (f *fakeUpstream) Complete(_ context.Context, req ChatRequest) (*Response, error) {
	f.got = append(f.got, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func okUpstream() *fakeUpstream {
	return &fakeUpstream{configured: true, resp: relay(http.StatusOK, []byte(`{"choices":[{"message":{"content":"hi"}}]}`))}
}

func chatBody(t *testing.T, messages ...Message) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{"messages": messages})
	require.NoError(t, err)
	return body
}

func errorOf(t *testing.T, resp *Response) string {
	t.Helper()
	var e struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body, &e), string(resp.Body))
	return e.Error
}

func TestChatRelaysUpstreamAnswer(t *testing.T) {
	up := okUpstream()
	s := NewService(up, config.DefaultLimits())

	resp := s.Chat(context.Background(), "1.1.1.1", chatBody(t, NewMessage("user", "menu?")))
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "hi", ExtractContent(resp.Body))

	require.Len(t, up.got, 1)
	assert.Equal(t, "default-model", up.got[0].Model)
	assert.Equal(t, "menu?", up.got[0].Messages[0].Text())
}

func TestChatKeepsRequestedModel(t *testing.T) {
	up := okUpstream()
	s := NewService(up, config.DefaultLimits())

	body := []byte(`{"model":"meta/llama","messages":[{"role":"user","content":"x"}]}`)
	s.Chat(context.Background(), "ip", body)
	require.Len(t, up.got, 1)
	assert.Equal(t, "meta/llama", up.got[0].Model)
}

func TestChatValidation(t *testing.T) {
	long := strings.Repeat("é", 2001)
	tooMany := make([]Message, 26)
	for i := range tooMany {
		tooMany[i] = NewMessage("user", "x")
	}

	tests := []struct {
		name       string
		body       []byte
		wantStatus int
		wantError  string
	}{
		{"empty body", nil, 400, MsgMessagesMissing},
		{"no messages", []byte(`{}`), 400, MsgMessagesMissing},
		{"messages not array", []byte(`{"messages":"hi"}`), 400, MsgMessagesMissing},
		{"empty messages", []byte(`{"messages":[]}`), 400, MsgMessagesMissing},
		{"malformed", []byte(`{"messages":`), 400, MsgInvalidJSON},
		{"payload too large", []byte(`{"messages":[{"role":"user","content":"` + strings.Repeat("a", 10000) + `"}]}`), 413, MsgPayloadTooLarge},
		{"too many messages", chatBody(t, tooMany...), 413, MsgTooManyMessages},
		{"message too long", chatBody(t, NewMessage("user", long)), 413, MsgMessageTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := okUpstream()
			s := NewService(up, config.DefaultLimits())
			resp := s.Chat(context.Background(), "ip", tt.body)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, tt.wantError, errorOf(t, resp))
			assert.Empty(t, up.got)
		})
	}
}

func TestChatAcceptsMessageAtLimit(t *testing.T) {
	s := NewService(okUpstream(), config.DefaultLimits())
	resp := s.Chat(context.Background(), "ip", chatBody(t, NewMessage("user", strings.Repeat("a", 2000))))
	assert.Equal(t, http.StatusOK, resp.Status)
}

func TestChatMissingKey(t *testing.T) {
	up := &fakeUpstream{}
	s := NewService(up, config.DefaultLimits())

	resp := s.Chat(context.Background(), "ip", chatBody(t, NewMessage("user", "x")))
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, "no key", errorOf(t, resp))
}

func TestChatTransportFailure(t *testing.T) {
	up := &fakeUpstream{configured: true, err: errors.New("connection refused")}
	s := NewService(up, config.DefaultLimits())

	resp := s.Chat(context.Background(), "ip", chatBody(t, NewMessage("user", "x")))
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, "connection refused", errorOf(t, resp))
}

func TestChatAuditsRequestAndResponse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	require.NoError(t, logging.InitAudit(path))
	t.Cleanup(logging.CloseAudit)

	s := NewService(okUpstream(), config.DefaultLimits())
	resp := s.Chat(context.Background(), "7.7.7.7", chatBody(t, NewMessage("user", "x"), NewMessage("user", "y")))
	require.Equal(t, http.StatusOK, resp.Status)
	logging.CloseAudit()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var events []logging.AuditEvent
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var e logging.AuditEvent
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		events = append(events, e)
	}
	require.Len(t, events, 2)
	assert.Equal(t, logging.AuditLLMRequest, events[0].EventType)
	assert.Equal(t, "7.7.7.7", events[0].SessionID)
	assert.EqualValues(t, 2, events[0].Fields["messages"])
	assert.Equal(t, logging.AuditLLMResponse, events[1].EventType)
	assert.Equal(t, "default-model", events[1].Target)
}

func TestChatRateLimitComesFirst(t *testing.T) {
	limits := config.DefaultLimits()
	limits.RateLimit = 2
	s := NewService(okUpstream(), limits)

	// Invalid requests still count against the window.
	for i := 0; i < 2; i++ {
		resp := s.Chat(context.Background(), "9.9.9.9", []byte(`{}`))
		assert.Equal(t, http.StatusBadRequest, resp.Status)
	}
	resp := s.Chat(context.Background(), "9.9.9.9", chatBody(t, NewMessage("user", "x")))
	assert.Equal(t, http.StatusTooManyRequests, resp.Status)
	assert.Equal(t, MsgRateLimited, errorOf(t, resp))

	resp = s.Chat(context.Background(), "8.8.8.8", chatBody(t, NewMessage("user", "x")))
	assert.Equal(t, http.StatusOK, resp.Status)
}

func TestOpenRouterUpstream(t *testing.T) {
	var gotAuth, gotReferer, gotTitle, gotPath string
	var gotBody ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReferer = r.Header.Get("HTTP-Referer")
		gotTitle = r.Header.Get("X-Title")
		gotPath = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTeapot)
		fmt.Fprint(w, `{"error":{"message":"short and stout"}}`)
	}))
	defer srv.Close()

	up := NewOpenRouterUpstream(OpenRouterConfig{
		APIKey:   "sk-or",
		BaseURL:  srv.URL + "/",
		Timeout:  5 * time.Second,
		SiteURL:  "http://localhost:3000",
		SiteName: "CoffeBuck",
	})
	assert.True(t, up.Configured())
	assert.Equal(t, config.DefaultOpenRouterModel, up.DefaultModel())

	resp, err := up.Complete(context.Background(), ChatRequest{Messages: []Message{NewMessage("user", "hello")}})
	require.NoError(t, err)

	assert.Equal(t, http.StatusTeapot, resp.Status)
	assert.Contains(t, resp.ContentType, "application/json")
	assert.JSONEq(t, `{"error":{"message":"short and stout"}}`, string(resp.Body))
	assert.Equal(t, "Bearer sk-or", gotAuth)
	assert.Equal(t, "http://localhost:3000", gotReferer)
	assert.Equal(t, "CoffeBuck", gotTitle)
	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, config.DefaultOpenRouterModel, gotBody.Model)
	assert.Equal(t, "hello", gotBody.Messages[0].Text())
}

func TestOpenRouterUpstreamRelaysText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream exploded")
	}))
	defer srv.Close()

	up := NewOpenRouterUpstream(OpenRouterConfig{APIKey: "k", BaseURL: srv.URL})
	resp, err := up.Complete(context.Background(), ChatRequest{Messages: []Message{NewMessage("user", "x")}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.Status)
	assert.Equal(t, "text/plain; charset=utf-8", resp.ContentType)
	assert.Equal(t, "upstream exploded", string(resp.Body))
}

func TestOpenRouterUnconfigured(t *testing.T) {
	up := NewOpenRouterUpstream(DefaultOpenRouterConfig(""))
	assert.False(t, up.Configured())
	assert.Equal(t, "Server missing OpenRouter API key (OPENROUTER_API_KEY).", up.MissingKeyMessage())
}

func TestAsk(t *testing.T) {
	up := okUpstream()
	got, err := Ask(context.Background(), up, "where are you?")
	require.NoError(t, err)
	assert.Equal(t, "hi", got)

	require.Len(t, up.got, 1)
	msgs := up.got[0].Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, SystemPrompt, msgs[0].Text())

	_, err = Ask(context.Background(), &fakeUpstream{}, "x")
	assert.ErrorIs(t, err, ErrNotConfigured)

	failing := &fakeUpstream{configured: true, resp: relay(http.StatusUnauthorized, []byte("nope"))}
	_, err = Ask(context.Background(), failing, "x")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Status)
}
