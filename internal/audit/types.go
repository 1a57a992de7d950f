// Package audit records an append-only JSON Lines trail of header rewrites,
// so every output file can be traced back to its input and run.
package audit

import "time"

// LogFileName is the name of the audit log inside the log directory.
const LogFileName = "surveyclean-audit.jsonl"

// RunID identifies one program execution (UUID v4).
type RunID string

// EventType represents the type of audit event.
type EventType string

const (
	// Run lifecycle events
	EventRunStart EventType = "RUN_START"
	EventRunEnd   EventType = "RUN_END"

	// File events
	EventHeaderRewritten EventType = "HEADER_REWRITTEN"
	EventMalformedColumn EventType = "MALFORMED_COLUMN"
	EventError           EventType = "ERROR"

	// Revert events
	EventOutputRemoved EventType = "OUTPUT_REMOVED"
	EventRevertSkip    EventType = "REVERT_SKIP"

	// System events
	EventLogInitialized EventType = "LOG_INITIALIZED"
	EventRotation       EventType = "ROTATION"
	EventRetentionPrune EventType = "RETENTION_PRUNE"
)

// OperationStatus represents the outcome of an operation.
type OperationStatus string

const (
	StatusSuccess OperationStatus = "SUCCESS"
	StatusFailure OperationStatus = "FAILURE"
	StatusWarning OperationStatus = "WARNING"
)

// RunStatus represents the status of a run.
type RunStatus string

const (
	RunStatusInProgress  RunStatus = "IN_PROGRESS"
	RunStatusCompleted   RunStatus = "COMPLETED"
	RunStatusFailed      RunStatus = "FAILED"
	RunStatusInterrupted RunStatus = "INTERRUPTED"
)

// FileIdentity captures the content of a file at the time it was processed.
type FileIdentity struct {
	ContentHash string    `json:"contentHash"` // SHA-256 hex string
	Size        int64     `json:"size"`
	ModTime     time.Time `json:"modTime"`
}

// ErrorDetails contains detailed information about an error.
type ErrorDetails struct {
	ErrorType    string `json:"errorType"`
	ErrorMessage string `json:"errorMessage"`
	Operation    string `json:"operation"`
}

// ColumnDetails describes a malformed header column.
type ColumnDetails struct {
	Position int    `json:"position"`
	Raw      string `json:"raw"`
	Output   string `json:"output,omitempty"`
	Reason   string `json:"reason"`
}

// Event is a single audit record.
type Event struct {
	Timestamp       time.Time
	RunID           RunID
	EventType       EventType
	Status          OperationStatus
	SourcePath      string
	DestinationPath string
	SourceIdentity  *FileIdentity
	OutputIdentity  *FileIdentity
	Column          *ColumnDetails
	ErrorDetails    *ErrorDetails
	Metadata        map[string]string
}

// RunSummary contains statistics for a completed run.
type RunSummary struct {
	TotalFiles int `json:"totalFiles"`
	Rewritten  int `json:"rewritten"`
	Failed     int `json:"failed"`
	Warnings   int `json:"warnings"`
}

// RunInfo contains metadata and summary for a run.
type RunInfo struct {
	RunID      RunID      `json:"runId"`
	StartTime  time.Time  `json:"startTime"`
	EndTime    *time.Time `json:"endTime,omitempty"`
	Status     RunStatus  `json:"status"`
	Command    string     `json:"command"`
	AppVersion string     `json:"appVersion"`
	Summary    RunSummary `json:"summary"`
}

// Config holds configuration for the audit log.
type Config struct {
	Enabled           bool   `json:"enabled"`
	LogDirectory      string `json:"logDirectory"`
	RotationSize      int64  `json:"rotationSizeBytes"` // Rotate before a run once the log reaches this size; 0 = never
	RetentionSegments int    `json:"retentionSegments"` // Rotated segments to keep; 0 = unlimited
}

// DefaultConfig returns the audit defaults: disabled, logging under
// .surveyclean/audit when turned on.
func DefaultConfig() Config {
	return Config{
		Enabled:           false,
		LogDirectory:      ".surveyclean/audit",
		RotationSize:      10 * 1024 * 1024, // 10MB
		RetentionSegments: 0,
	}
}
