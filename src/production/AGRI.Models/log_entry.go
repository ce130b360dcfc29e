package agrimodels

import "time"

// Log levels for the diagnostic ring buffer.
const (
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// LogEntry is a diagnostic line kept in the coordinator's bounded ring
// buffer. Not safety-critical.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}
