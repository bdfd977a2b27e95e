// Package audit implements the compliance audit trail: a separate,
// slog-backed log stream for events a reviewer cares about (PII
// detected, mappings created/expired, placeholders restored, secret
// scan blocks) as distinct from the operational zerolog stream the
// rest of the pipeline writes to.
package audit

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// EventType represents the type of audit event
type EventType string

const (
	EventPIIDetected         EventType = "pii_detected"
	EventPlaceholderAssigned EventType = "placeholder_assigned"
	EventPlaceholderRestored EventType = "placeholder_restored"
	EventRequestProcessed    EventType = "request_processed"
	EventResponseProcessed   EventType = "response_processed"
	EventMappingCreated      EventType = "mapping_created"
	EventMappingExpired      EventType = "mapping_expired"
	EventSecretScanBlocked   EventType = "secret_scan_blocked"
	EventQuotaExceeded       EventType = "quota_exceeded"
	EventUpstreamError       EventType = "upstream_error"
)

// Event represents an audit log event
type Event struct {
	Timestamp  time.Time         `json:"timestamp"`
	Type       EventType         `json:"type"`
	RequestID  string            `json:"request_id,omitempty"`
	TenantID   string            `json:"tenant_id,omitempty"`
	Detector   string            `json:"detector,omitempty"`
	EntityType string            `json:"entity_type,omitempty"`
	Host       string            `json:"host,omitempty"`
	Method     string            `json:"method,omitempty"`
	Path       string            `json:"path,omitempty"`
	Count      int               `json:"count,omitempty"`
	Duration   float64           `json:"duration_ms,omitempty"`
	Error      string            `json:"error,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Config holds audit logger configuration
type Config struct {
	// Enabled enables/disables audit logging
	Enabled bool `yaml:"enabled"`

	// Level controls what events are logged
	// "minimal" - PII detections, placeholder assignment/restoration and secret-scan blocks
	// "standard" - all events except mapping lifecycle (created/expired)
	// "verbose" - all events including mapping lifecycle
	Level string `yaml:"level"`

	// Output specifies where to write logs
	// "stdout", "stderr", or a file path
	Output string `yaml:"output"`

	// Format specifies log format: "json" or "text"
	Format string `yaml:"format"`

	// IncludeRequestDetails includes host/path in logs
	IncludeRequestDetails bool `yaml:"include_request_details"`
}

// DefaultConfig returns the default audit configuration
func DefaultConfig() *Config {
	return &Config{
		Enabled:               true,
		Level:                 "standard",
		Output:                "stdout",
		Format:                "json",
		IncludeRequestDetails: false,
	}
}

// Logger handles audit logging
type Logger struct {
	mu      sync.RWMutex
	config  *Config
	logger  *slog.Logger
	output  io.Writer
	enabled bool
}

// NewLogger creates a new audit logger
func NewLogger(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	l := &Logger{
		config:  cfg,
		enabled: cfg.Enabled,
	}

	if err := l.setupOutput(); err != nil {
		return nil, err
	}

	return l, nil
}

func (l *Logger) setupOutput() error {
	var output io.Writer

	switch l.config.Output {
	case "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		f, err := os.OpenFile(l.config.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		output = f
	}

	l.output = output

	var handler slog.Handler
	if l.config.Format == "json" {
		handler = slog.NewJSONHandler(output, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(output, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}

	l.logger = slog.New(handler)
	return nil
}

// Log logs an audit event
func (l *Logger) Log(event *Event) {
	l.mu.RLock()
	enabled := l.enabled
	config := l.config
	logger := l.logger
	l.mu.RUnlock()

	if !enabled || logger == nil {
		return
	}

	if !l.shouldLog(event.Type) {
		return
	}

	event.Timestamp = time.Now()

	if !config.IncludeRequestDetails {
		event.Path = ""
	}

	attrs := []any{
		slog.String("type", string(event.Type)),
	}

	if event.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", event.RequestID))
	}
	if event.TenantID != "" {
		attrs = append(attrs, slog.String("tenant_id", event.TenantID))
	}
	if event.Detector != "" {
		attrs = append(attrs, slog.String("detector", event.Detector))
	}
	if event.EntityType != "" {
		attrs = append(attrs, slog.String("entity_type", event.EntityType))
	}
	if event.Host != "" {
		attrs = append(attrs, slog.String("host", event.Host))
	}
	if event.Method != "" {
		attrs = append(attrs, slog.String("method", event.Method))
	}
	if event.Path != "" {
		attrs = append(attrs, slog.String("path", event.Path))
	}
	if event.Count > 0 {
		attrs = append(attrs, slog.Int("count", event.Count))
	}
	if event.Duration > 0 {
		attrs = append(attrs, slog.Float64("duration_ms", event.Duration))
	}
	if event.Error != "" {
		attrs = append(attrs, slog.String("error", event.Error))
	}
	for k, v := range event.Metadata {
		attrs = append(attrs, slog.String(k, v))
	}

	logger.Info("audit", attrs...)
}

func (l *Logger) shouldLog(eventType EventType) bool {
	switch l.config.Level {
	case "minimal":
		return eventType == EventPIIDetected ||
			eventType == EventPlaceholderAssigned ||
			eventType == EventPlaceholderRestored ||
			eventType == EventSecretScanBlocked
	case "standard":
		return eventType != EventMappingCreated &&
			eventType != EventMappingExpired
	case "verbose":
		return true
	default:
		return true
	}
}

// LogPIIDetected logs a PII detection event
func (l *Logger) LogPIIDetected(requestID, detector, entityType string) {
	l.Log(&Event{
		Type:       EventPIIDetected,
		RequestID:  requestID,
		Detector:   detector,
		EntityType: entityType,
	})
}

// LogPlaceholderAssigned logs a placeholder assignment event
func (l *Logger) LogPlaceholderAssigned(requestID string, count int) {
	l.Log(&Event{
		Type:      EventPlaceholderAssigned,
		RequestID: requestID,
		Count:     count,
	})
}

// LogPlaceholderRestored logs a placeholder restoration event
func (l *Logger) LogPlaceholderRestored(requestID string, count int) {
	l.Log(&Event{
		Type:      EventPlaceholderRestored,
		RequestID: requestID,
		Count:     count,
	})
}

// LogRequestProcessed logs request processing
func (l *Logger) LogRequestProcessed(requestID, method, host, path string, durationMs float64) {
	l.Log(&Event{
		Type:      EventRequestProcessed,
		RequestID: requestID,
		Method:    method,
		Host:      host,
		Path:      path,
		Duration:  durationMs,
	})
}

// LogResponseProcessed logs response processing
func (l *Logger) LogResponseProcessed(requestID, host string, durationMs float64) {
	l.Log(&Event{
		Type:     EventResponseProcessed,
		RequestID: requestID,
		Host:     host,
		Duration: durationMs,
	})
}

// LogMappingCreated logs creation of a request-scoped mapping
func (l *Logger) LogMappingCreated(requestID, tenantID string) {
	l.Log(&Event{
		Type:      EventMappingCreated,
		RequestID: requestID,
		TenantID:  tenantID,
	})
}

// LogMappingExpired logs a mapping that was absent at restore time
func (l *Logger) LogMappingExpired(requestID, tenantID string) {
	l.Log(&Event{
		Type:      EventMappingExpired,
		RequestID: requestID,
		TenantID:  tenantID,
	})
}

// LogSecretScanBlocked logs a secret-scanner critical-risk refusal
func (l *Logger) LogSecretScanBlocked(requestID, tenantID string, count int) {
	l.Log(&Event{
		Type:      EventSecretScanBlocked,
		RequestID: requestID,
		TenantID:  tenantID,
		Count:     count,
	})
}

// LogError logs an error event
func (l *Logger) LogError(eventType EventType, requestID, host, errorMsg string) {
	l.Log(&Event{
		Type:      eventType,
		RequestID: requestID,
		Host:      host,
		Error:     errorMsg,
	})
}

// Enable enables audit logging
func (l *Logger) Enable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = true
}

// Disable disables audit logging
func (l *Logger) Disable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = false
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config.Level = level
}

// Close closes the logger
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if closer, ok := l.output.(io.Closer); ok {
		if l.output != os.Stdout && l.output != os.Stderr {
			return closer.Close()
		}
	}
	return nil
}

// ToJSON converts an event to JSON
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// NopLogger is a logger that does nothing, used when audit logging is
// disabled entirely so call sites need no nil checks.
type NopLogger struct{}

// NewNopLogger creates a no-op logger
func NewNopLogger() *NopLogger {
	return &NopLogger{}
}

func (l *NopLogger) Log(_ *Event)                                        {}
func (l *NopLogger) LogPIIDetected(_, _, _ string)                       {}
func (l *NopLogger) LogPlaceholderAssigned(_ string, _ int)              {}
func (l *NopLogger) LogPlaceholderRestored(_ string, _ int)              {}
func (l *NopLogger) LogRequestProcessed(_, _, _, _ string, _ float64)    {}
func (l *NopLogger) LogResponseProcessed(_, _ string, _ float64)         {}
func (l *NopLogger) LogMappingCreated(_, _ string)                       {}
func (l *NopLogger) LogMappingExpired(_, _ string)                       {}
func (l *NopLogger) LogSecretScanBlocked(_, _ string, _ int)             {}
func (l *NopLogger) LogError(_ EventType, _, _, _ string)                {}
func (l *NopLogger) Enable()                                             {}
func (l *NopLogger) Disable()                                            {}
func (l *NopLogger) SetLevel(_ string)                                   {}
func (l *NopLogger) Close() error                                        { return nil }
