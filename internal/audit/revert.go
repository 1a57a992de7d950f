package audit

import (
	"errors"
	"fmt"
	"os"
)

// RevertCommand is the command name recorded for revert runs.
const RevertCommand = "revert"

// ErrNothingToRevert is returned when the log holds no revertible run.
var ErrNothingToRevert = errors.New("no run to revert")

// RevertSkipReason explains why an output was left in place.
type RevertSkipReason string

const (
	SkipOutputMissing  RevertSkipReason = "OUTPUT_MISSING"
	SkipContentChanged RevertSkipReason = "CONTENT_CHANGED"
	SkipNoIdentity     RevertSkipReason = "NO_IDENTITY"
	SkipRemoveFailed   RevertSkipReason = "REMOVE_FAILED"
)

// RevertSkip is an output that Revert did not remove.
type RevertSkip struct {
	Path   string
	Reason RevertSkipReason
}

// RevertResult contains the result of reverting one run.
type RevertResult struct {
	RevertRunID RunID // Empty when no writer was given
	TargetRunID RunID
	Removed     []string
	Skipped     []RevertSkip
	AuditErrors []error // Events that could not be written; the files were still handled
}

// Reverter removes the outputs a run wrote. An output is only removed while
// its content still matches the identity captured when it was written.
// Inputs are never touched.
type Reverter struct {
	reader     *Reader
	writer     *Writer
	appVersion string
}

// NewReverter creates a Reverter. writer may be nil, in which case the
// revert itself is not audited.
func NewReverter(reader *Reader, writer *Writer, appVersion string) *Reverter {
	return &Reverter{reader: reader, writer: writer, appVersion: appVersion}
}

// RevertLatest reverts the most recent run that is not itself a revert.
func (r *Reverter) RevertLatest() (*RevertResult, error) {
	runs, err := r.reader.ListRuns()
	if err != nil {
		return nil, err
	}
	for _, run := range runs {
		if run.Command != RevertCommand {
			return r.RevertRun(run.RunID)
		}
	}
	return nil, ErrNothingToRevert
}

// RevertRun removes every output recorded by runID, newest first.
func (r *Reverter) RevertRun(runID RunID) (*RevertResult, error) {
	events, err := r.reader.GetRun(runID)
	if err != nil {
		return nil, err
	}
	if events[0].EventType == EventRunStart && events[0].Metadata["command"] == RevertCommand {
		return nil, fmt.Errorf("cannot revert a revert run: %s", runID)
	}

	result := &RevertResult{TargetRunID: runID}

	if r.writer != nil {
		result.RevertRunID, err = r.writer.StartRun(r.appVersion, RevertCommand)
		if err != nil {
			return nil, err
		}
	}

	// Watch runs may rewrite the same output more than once; only the last
	// write describes what is on disk.
	seen := make(map[string]bool)
	for i := len(events) - 1; i >= 0; i-- {
		event := events[i]
		if event.EventType != EventHeaderRewritten || seen[event.DestinationPath] {
			continue
		}
		seen[event.DestinationPath] = true

		if reason, ok := r.revertOutput(result, event); ok {
			result.Removed = append(result.Removed, event.DestinationPath)
		} else {
			result.Skipped = append(result.Skipped, RevertSkip{Path: event.DestinationPath, Reason: reason})
		}
	}

	if r.writer != nil {
		status := RunStatusCompleted
		if len(result.Skipped) > 0 {
			status = RunStatusFailed
		}
		summary := RunSummary{
			TotalFiles: len(result.Removed) + len(result.Skipped),
			Rewritten:  len(result.Removed),
			Failed:     len(result.Skipped),
		}
		if err := r.writer.EndRun(result.RevertRunID, status, summary); err != nil {
			return result, err
		}
	}
	return result, nil
}

// revertOutput removes the output of one HEADER_REWRITTEN event.
func (r *Reverter) revertOutput(result *RevertResult, event Event) (RevertSkipReason, bool) {
	path := event.DestinationPath
	if event.OutputIdentity == nil {
		r.recordSkip(result, path, SkipNoIdentity)
		return SkipNoIdentity, false
	}

	current, err := CaptureIdentity(path)
	if err != nil {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			r.recordSkip(result, path, SkipOutputMissing)
			return SkipOutputMissing, false
		}
		r.recordSkip(result, path, SkipRemoveFailed)
		return SkipRemoveFailed, false
	}
	if current.ContentHash != event.OutputIdentity.ContentHash {
		r.recordSkip(result, path, SkipContentChanged)
		return SkipContentChanged, false
	}

	if err := os.Remove(path); err != nil {
		r.recordSkip(result, path, SkipRemoveFailed)
		return SkipRemoveFailed, false
	}
	r.record(result, Event{
		EventType:       EventOutputRemoved,
		Status:          StatusSuccess,
		SourcePath:      event.SourcePath,
		DestinationPath: path,
		OutputIdentity:  current,
	})
	return "", true
}

func (r *Reverter) recordSkip(result *RevertResult, path string, reason RevertSkipReason) {
	r.record(result, Event{
		EventType:       EventRevertSkip,
		Status:          StatusWarning,
		DestinationPath: path,
		Metadata:        map[string]string{"reason": string(reason)},
	})
}

// record writes event to the revert run. Failures are kept on result.
func (r *Reverter) record(result *RevertResult, event Event) {
	if r.writer == nil {
		return
	}
	if err := r.writer.record(event); err != nil {
		result.AuditErrors = append(result.AuditErrors, fmt.Errorf("%s %s: %w", event.EventType, event.DestinationPath, err))
	}
}
