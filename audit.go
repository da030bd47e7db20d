package authcore

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	auditEventPasswordLogin  = "password_login"
	auditEventCodeLogin      = "code_login"
	auditEventSSOLogin       = "sso_login"
	auditEventCodeIssued     = "code_issued"
	auditEventCodeRedeemed   = "code_redeemed"
	auditEventRefresh        = "refresh"
	auditEventLogout         = "logout"
	auditEventTokenRejected  = "token_rejected"
	auditEventThrottleTrip   = "login_throttled"
	auditEventDeliveryFailed = "delivery_failed"
)

// AuditEvent is one auth-relevant occurrence handed to the configured sink.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	SubjectID int64             `json:"subject_id,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives events from the dispatcher goroutine. Implementations
// must be safe for concurrent use and must not block indefinitely.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink discards all events.
type NoOpSink struct{}

// Emit discards the event.
func (NoOpSink) Emit(context.Context, AuditEvent) {}

// JSONWriterSink writes one JSON object per line to w.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterSink wraps w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

// Emit serializes and writes the event. Serialization and write failures are
// dropped; audit is bookkeeping, not a security check.
func (s *JSONWriterSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

// ZerologSink emits events as structured log records.
type ZerologSink struct {
	logger zerolog.Logger
}

// NewZerologSink wraps logger.
func NewZerologSink(logger zerolog.Logger) *ZerologSink {
	return &ZerologSink{logger: logger}
}

// Emit logs the event at info level on success and warn level on failure.
func (s *ZerologSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil {
		return
	}

	evt := s.logger.Info()
	if !event.Success {
		evt = s.logger.Warn()
	}
	evt = evt.
		Str("event_type", event.EventType).
		Bool("success", event.Success).
		Time("at", event.Timestamp)
	if event.SubjectID != 0 {
		evt = evt.Int64("subject_id", event.SubjectID)
	}
	if event.IP != "" {
		evt = evt.Str("ip", event.IP)
	}
	if event.Error != "" {
		evt = evt.Str("error", event.Error)
	}
	for k, v := range event.Metadata {
		evt = evt.Str(k, v)
	}
	evt.Msg("auth audit")
}
