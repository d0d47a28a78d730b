package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEventType names a business event worth keeping after the fact.
type AuditEventType string

const (
	AuditDispatch AuditEventType = "dispatch"

	AuditCartAdd    AuditEventType = "cart_add"
	AuditCartUpdate AuditEventType = "cart_update"
	AuditCartRemove AuditEventType = "cart_remove"
	AuditCartClear  AuditEventType = "cart_clear"

	AuditLLMRequest  AuditEventType = "llm_request"
	AuditLLMResponse AuditEventType = "llm_response"
	AuditLLMError    AuditEventType = "llm_error"
	AuditRateLimited AuditEventType = "rate_limited"

	AuditSignup      AuditEventType = "signup"
	AuditLogin       AuditEventType = "login"
	AuditLoginFailed AuditEventType = "login_failed"

	AuditCatalogReload AuditEventType = "catalog_reload"
)

// AuditEvent is one JSON line in the audit trail.
type AuditEvent struct {
	Timestamp  int64                  `json:"ts"` // Unix milliseconds
	EventType  AuditEventType         `json:"event"`
	Category   string                 `json:"cat,omitempty"`
	SessionID  string                 `json:"session,omitempty"`
	Target     string                 `json:"target,omitempty"`
	Action     string                 `json:"action,omitempty"`
	Success    bool                   `json:"success"`
	DurationMs int64                  `json:"dur_ms,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

var (
	auditOut    io.WriteCloser
	auditMu     sync.Mutex
	auditLogger = &AuditLogger{}
)

// AuditLogger writes audit events, optionally scoped to a session.
type AuditLogger struct {
	sessionID string
	category  Category
}

// InitAudit opens (appending) the audit trail at path. An empty path leaves
// auditing disabled.
func InitAudit(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	SetAuditOutput(file)
	return nil
}

// SetAuditOutput replaces the audit destination; nil disables auditing.
func SetAuditOutput(w io.WriteCloser) {
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditOut != nil {
		auditOut.Close()
	}
	auditOut = w
}

// CloseAudit closes the audit log.
func CloseAudit() {
	SetAuditOutput(nil)
}

// Audit returns the global audit logger.
func Audit() *AuditLogger {
	return auditLogger
}

// AuditWithSession creates an audit logger scoped to a session.
func AuditWithSession(sessionID string) *AuditLogger {
	return &AuditLogger{sessionID: sessionID}
}

// AuditWithContext creates an audit logger scoped to a session and category.
func AuditWithContext(sessionID string, category Category) *AuditLogger {
	return &AuditLogger{sessionID: sessionID, category: category}
}

// Log writes an audit event.
func (a *AuditLogger) Log(event AuditEvent) {
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditOut == nil {
		return
	}

	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.SessionID == "" {
		event.SessionID = a.sessionID
	}
	if event.Category == "" && a.category != "" {
		event.Category = string(a.category)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	auditOut.Write(append(data, '\n'))
}

// Dispatch records which rule answered a message.
func (a *AuditLogger) Dispatch(intent, action string) {
	a.Log(AuditEvent{
		EventType: AuditDispatch,
		Category:  string(CategoryDispatch),
		Target:    intent,
		Action:    action,
		Success:   true,
	})
}

// CartOp records a cart mutation.
func (a *AuditLogger) CartOp(op AuditEventType, itemID string, qty int, err error) {
	e := AuditEvent{
		EventType: op,
		Category:  string(CategoryCart),
		Target:    itemID,
		Success:   err == nil,
		Fields:    map[string]interface{}{"qty": qty},
	}
	if err != nil {
		e.Error = err.Error()
	}
	a.Log(e)
}

// LLMRequest records a request about to be relayed upstream.
func (a *AuditLogger) LLMRequest(provider, model string, messages int) {
	a.Log(AuditEvent{
		EventType: AuditLLMRequest,
		Category:  string(CategoryProxy),
		Target:    model,
		Action:    provider,
		Success:   true,
		Fields:    map[string]interface{}{"messages": messages},
	})
}

// LLMCall records one upstream completion.
func (a *AuditLogger) LLMCall(provider, model string, status int, durationMs int64, errMsg string) {
	eventType := AuditLLMResponse
	if errMsg != "" {
		eventType = AuditLLMError
	}
	a.Log(AuditEvent{
		EventType:  eventType,
		Category:   string(CategoryProxy),
		Target:     model,
		Action:     provider,
		Success:    errMsg == "" && status < 400,
		DurationMs: durationMs,
		Error:      errMsg,
		Fields:     map[string]interface{}{"status": status},
	})
}

// RateLimited records a rejected request.
func (a *AuditLogger) RateLimited(key string) {
	a.Log(AuditEvent{EventType: AuditRateLimited, Category: string(CategoryProxy), Target: key})
}

// AuthEvent records a signup or login attempt.
func (a *AuditLogger) AuthEvent(eventType AuditEventType, email string, success bool, errMsg string) {
	a.Log(AuditEvent{
		EventType: eventType,
		Category:  string(CategoryAuth),
		Target:    email,
		Success:   success,
		Error:     errMsg,
	})
}

// CatalogReload records a catalog swap.
func (a *AuditLogger) CatalogReload(version string, items int, errMsg string) {
	a.Log(AuditEvent{
		EventType: AuditCatalogReload,
		Category:  string(CategoryCatalog),
		Target:    version,
		Success:   errMsg == "",
		Error:     errMsg,
		Fields:    map[string]interface{}{"items": items},
	})
}
