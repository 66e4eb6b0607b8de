// Package audit records a structured, queryable log of archive, extract,
// and cull operations, grounded on the teacher's internal/audit package
// (same Logger/EventWriter/Sink shape, batched and retried the same way)
// generalized from S3 object encrypt/decrypt events to cyphertite's
// archive/extract/cull/secrets-unlock events.
package audit

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/kenneth/cyphertite-go/internal/config"
)

// EventType represents the type of audit event.
type EventType string

const (
	// EventTypeArchive represents a local file being uploaded as a ctfile.
	EventTypeArchive EventType = "archive"
	// EventTypeExtract represents a ctfile being downloaded and decrypted.
	EventTypeExtract EventType = "extract"
	// EventTypeCull represents a completed cull cycle.
	EventTypeCull EventType = "cull"
	// EventTypeSecretsUnlock represents a secrets envelope unlock attempt.
	EventTypeSecretsUnlock EventType = "secrets_unlock"
	// EventTypeAccess represents a general catalog operation (list, delete).
	EventTypeAccess EventType = "access"
)

// AuditEvent represents a single audit log event.
type AuditEvent struct {
	Timestamp  time.Time              `json:"timestamp"`
	EventType  EventType              `json:"event_type"`
	Operation  string                 `json:"operation"`
	RemoteName string                 `json:"remote_name,omitempty"`
	LocalPath  string                 `json:"local_path,omitempty"`
	ChunkCount int                    `json:"chunk_count,omitempty"`
	RequestID  string                 `json:"request_id,omitempty"`
	Success    bool                   `json:"success"`
	Error      string                 `json:"error,omitempty"`
	Duration   time.Duration          `json:"duration_ms"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Logger is the interface for audit logging.
type Logger interface {
	// Log logs a raw audit event.
	Log(event *AuditEvent) error

	// LogArchive logs a completed (or failed) archive operation.
	LogArchive(remoteName, localPath string, chunkCount int, success bool, err error, duration time.Duration, metadata map[string]interface{})

	// LogExtract logs a completed (or failed) extract operation.
	LogExtract(remoteName, localPath string, chunkCount int, success bool, err error, duration time.Duration, metadata map[string]interface{})

	// LogCull logs a completed (or failed) cull cycle.
	LogCull(cullUUID string, liveChunks int, success bool, err error, duration time.Duration)

	// LogAccess logs a general catalog operation (list, delete, open).
	LogAccess(eventType, remoteName, requestID string, success bool, err error, duration time.Duration)

	// GetEvents returns all audit events (for testing/querying).
	GetEvents() []*AuditEvent

	// Close closes the logger and its underlying writer.
	Close() error
}

// auditLogger implements the Logger interface.
type auditLogger struct {
	mu         sync.Mutex
	events     []*AuditEvent
	maxEvents  int
	writer     EventWriter
	redactKeys []string
}

// EventWriter is an interface for writing audit events.
type EventWriter interface {
	WriteEvent(event *AuditEvent) error
}

// NewLogger creates a new audit logger.
func NewLogger(maxEvents int, writer EventWriter) Logger {
	return NewLoggerWithRedaction(maxEvents, writer, nil)
}

// NewLoggerWithRedaction creates a new audit logger with redaction keys.
func NewLoggerWithRedaction(maxEvents int, writer EventWriter, redactKeys []string) Logger {
	if writer == nil {
		writer = &defaultWriter{}
	}

	return &auditLogger{
		events:     make([]*AuditEvent, 0, maxEvents),
		maxEvents:  maxEvents,
		writer:     writer,
		redactKeys: redactKeys,
	}
}

// NewLoggerFromConfig creates a new audit logger from configuration.
func NewLoggerFromConfig(cfg config.AuditConfig) (Logger, error) {
	var writer EventWriter

	switch cfg.Sink.Type {
	case "http":
		writer = NewHTTPSink(cfg.Sink.Endpoint, cfg.Sink.Headers)
	case "file":
		writer = NewFileSink(cfg.Sink.FilePath)
	case "stdout", "":
		writer = &defaultWriter{}
	default:
		return nil, fmt.Errorf("unknown sink type: %s", cfg.Sink.Type)
	}

	if cfg.Sink.BatchSize > 0 || cfg.Sink.FlushInterval > 0 {
		writer = NewBatchSink(writer, cfg.Sink.BatchSize, cfg.Sink.FlushInterval, cfg.Sink.RetryCount, cfg.Sink.RetryBackoff)
	}

	return NewLoggerWithRedaction(cfg.MaxEvents, writer, cfg.RedactMetadataKeys), nil
}

// Log logs an audit event.
func (l *auditLogger) Log(event *AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.writer != nil {
		l.writer.WriteEvent(event)
	}

	l.events = append(l.events, event)
	if len(l.events) > l.maxEvents {
		l.events = l.events[len(l.events)-l.maxEvents:]
	}

	return nil
}

// Close closes the logger and its underlying writer.
func (l *auditLogger) Close() error {
	if closer, ok := l.writer.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// redactMetadata removes sensitive keys from metadata.
func (l *auditLogger) redactMetadata(metadata map[string]interface{}) map[string]interface{} {
	if len(l.redactKeys) == 0 || len(metadata) == 0 {
		return metadata
	}

	needsRedaction := false
	for _, k := range l.redactKeys {
		if _, ok := metadata[k]; ok {
			needsRedaction = true
			break
		}
	}
	if !needsRedaction {
		return metadata
	}

	clone := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		clone[k] = v
	}
	for _, key := range l.redactKeys {
		if _, ok := clone[key]; ok {
			clone[key] = "[REDACTED]"
		}
	}
	return clone
}

// LogArchive logs a completed (or failed) archive operation.
func (l *auditLogger) LogArchive(remoteName, localPath string, chunkCount int, success bool, err error, duration time.Duration, metadata map[string]interface{}) {
	event := &AuditEvent{
		Timestamp:  time.Now(),
		EventType:  EventTypeArchive,
		Operation:  "archive",
		RemoteName: remoteName,
		LocalPath:  localPath,
		ChunkCount: chunkCount,
		Success:    success,
		Duration:   duration,
		Metadata:   l.redactMetadata(metadata),
	}
	if err != nil {
		event.Error = err.Error()
	}
	l.Log(event)
}

// LogExtract logs a completed (or failed) extract operation.
func (l *auditLogger) LogExtract(remoteName, localPath string, chunkCount int, success bool, err error, duration time.Duration, metadata map[string]interface{}) {
	event := &AuditEvent{
		Timestamp:  time.Now(),
		EventType:  EventTypeExtract,
		Operation:  "extract",
		RemoteName: remoteName,
		LocalPath:  localPath,
		ChunkCount: chunkCount,
		Success:    success,
		Duration:   duration,
		Metadata:   l.redactMetadata(metadata),
	}
	if err != nil {
		event.Error = err.Error()
	}
	l.Log(event)
}

// LogCull logs a completed (or failed) cull cycle.
func (l *auditLogger) LogCull(cullUUID string, liveChunks int, success bool, err error, duration time.Duration) {
	event := &AuditEvent{
		Timestamp:  time.Now(),
		EventType:  EventTypeCull,
		Operation:  "cull",
		RequestID:  cullUUID,
		ChunkCount: liveChunks,
		Success:    success,
		Duration:   duration,
	}
	if err != nil {
		event.Error = err.Error()
	}
	l.Log(event)
}

// LogAccess logs a general catalog operation.
func (l *auditLogger) LogAccess(eventType, remoteName, requestID string, success bool, err error, duration time.Duration) {
	event := &AuditEvent{
		Timestamp:  time.Now(),
		EventType:  EventType(eventType),
		Operation:  eventType,
		RemoteName: remoteName,
		RequestID:  requestID,
		Success:    success,
		Duration:   duration,
	}
	if err != nil {
		event.Error = err.Error()
	}
	l.Log(event)
}

// GetEvents returns all audit events (for testing/querying).
func (l *auditLogger) GetEvents() []*AuditEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	events := make([]*AuditEvent, len(l.events))
	copy(events, l.events)
	return events
}

// defaultWriter is a default implementation that writes to stdout as JSON.
type defaultWriter struct{}

func (w *defaultWriter) WriteEvent(event *AuditEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	fmt.Printf("%s\n", string(data))
	return nil
}
