package audit

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNoActiveRun is returned when a file event is recorded outside a run.
var ErrNoActiveRun = errors.New("no active run: call StartRun first")

// Writer appends events to the audit log. Every event is flushed and synced
// before the call returns. A Writer is safe for concurrent use.
type Writer struct {
	mu         sync.Mutex
	config     Config
	file       *os.File
	writer     *bufio.Writer
	logPath    string
	currentRun *RunID
}

// NewWriter opens (or creates) the audit log in config.LogDirectory. A newly
// created log starts with a LOG_INITIALIZED event.
func NewWriter(config Config) (*Writer, error) {
	if err := os.MkdirAll(config.LogDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	w := &Writer{
		config:  config,
		logPath: filepath.Join(config.LogDirectory, LogFileName),
	}
	if err := w.openLocked(); err != nil {
		return nil, err
	}
	return w, nil
}

// openLocked opens the active log for appending.
func (w *Writer) openLocked() error {
	isNewLog := false
	if _, err := os.Stat(w.logPath); os.IsNotExist(err) {
		isNewLog = true
	}

	file, err := os.OpenFile(w.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	w.file = file
	w.writer = bufio.NewWriter(file)

	if isNewLog {
		event := Event{
			Timestamp: time.Now().UTC(),
			EventType: EventLogInitialized,
			Status:    StatusSuccess,
			Metadata:  map[string]string{"logPath": w.logPath},
		}
		if err := w.writeEventLocked(event); err != nil {
			file.Close()
			return fmt.Errorf("failed to write LOG_INITIALIZED event: %w", err)
		}
	}
	return nil
}

// GenerateRunID returns a new UUID v4 run identifier.
func GenerateRunID() RunID {
	return RunID(uuid.NewString())
}

// StartRun begins a run and writes its RUN_START event. The log is rotated
// first if it has grown past the configured size, so a run never spans two
// segments unless it outgrows one on its own.
func (w *Writer) StartRun(appVersion, command string) (RunID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	rotate, err := NeedsRotation(w.logPath, w.config.RotationSize)
	if err != nil {
		return "", err
	}
	if rotate {
		if err := w.rotateLocked(); err != nil {
			return "", err
		}
		if _, err := w.pruneLocked(); err != nil {
			return "", err
		}
	}

	runID := GenerateRunID()
	event := Event{
		Timestamp: time.Now().UTC(),
		RunID:     runID,
		EventType: EventRunStart,
		Status:    StatusSuccess,
		Metadata: map[string]string{
			"appVersion": appVersion,
			"command":    command,
		},
	}
	if err := w.writeEventLocked(event); err != nil {
		return "", fmt.Errorf("failed to write RUN_START event: %w", err)
	}

	w.currentRun = &runID
	return runID, nil
}

// EndRun records the run completion status and summary.
func (w *Writer) EndRun(runID RunID, status RunStatus, summary RunSummary) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	opStatus := StatusSuccess
	if status != RunStatusCompleted {
		opStatus = StatusFailure
	}

	event := Event{
		Timestamp: time.Now().UTC(),
		RunID:     runID,
		EventType: EventRunEnd,
		Status:    opStatus,
		Metadata: map[string]string{
			"status":     string(status),
			"totalFiles": strconv.Itoa(summary.TotalFiles),
			"rewritten":  strconv.Itoa(summary.Rewritten),
			"failed":     strconv.Itoa(summary.Failed),
			"warnings":   strconv.Itoa(summary.Warnings),
		},
	}
	if err := w.writeEventLocked(event); err != nil {
		return fmt.Errorf("failed to write RUN_END event: %w", err)
	}

	w.currentRun = nil
	return nil
}

// WriteEvent writes a single event to the log.
func (w *Writer) WriteEvent(event Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeEventLocked(event)
}

// RecordRewrite records a HEADER_REWRITTEN event for a completed output file.
func (w *Writer) RecordRewrite(source, dest string, columns int, sourceID, outputID *FileIdentity) error {
	return w.record(Event{
		EventType:       EventHeaderRewritten,
		Status:          StatusSuccess,
		SourcePath:      source,
		DestinationPath: dest,
		SourceIdentity:  sourceID,
		OutputIdentity:  outputID,
		Metadata:        map[string]string{"columns": strconv.Itoa(columns)},
	})
}

// RecordMalformedColumn records a MALFORMED_COLUMN warning for source.
func (w *Writer) RecordMalformedColumn(source string, column ColumnDetails) error {
	return w.record(Event{
		EventType:  EventMalformedColumn,
		Status:     StatusWarning,
		SourcePath: source,
		Column:     &column,
	})
}

// RecordError records an ERROR event for a file that could not be rewritten.
func (w *Writer) RecordError(source, errType, errMsg, operation string) error {
	return w.record(Event{
		EventType:  EventError,
		Status:     StatusFailure,
		SourcePath: source,
		ErrorDetails: &ErrorDetails{
			ErrorType:    errType,
			ErrorMessage: errMsg,
			Operation:    operation,
		},
	})
}

// record stamps event with the time and current run and writes it.
func (w *Writer) record(event Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currentRun == nil {
		return ErrNoActiveRun
	}
	event.Timestamp = time.Now().UTC()
	event.RunID = *w.currentRun
	return w.writeEventLocked(event)
}

// writeEventLocked marshals event as one JSON line, flushes and syncs it.
func (w *Writer) writeEventLocked(event Event) error {
	data, err := event.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := w.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush event: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync event to disk: %w", err)
	}
	return nil
}

// Close flushes any buffered data and closes the audit log file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close audit log: %w", err)
	}
	return nil
}

// CurrentRunID returns the current run ID, or nil if no run is active.
func (w *Writer) CurrentRunID() *RunID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentRun
}

// LogPath returns the path to the audit log file.
func (w *Writer) LogPath() string {
	return w.logPath
}
