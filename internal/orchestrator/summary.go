package orchestrator

import (
	"fmt"
	"time"

	"surveyclean/internal/audit"
	"surveyclean/internal/header"
)

// FileResult is the outcome of rewriting one export.
type FileResult struct {
	SourcePath      string
	DestinationPath string
	Columns         int
	Warnings        []*header.MalformedColumnError
	IsDuplicate     bool  // Output name was changed to avoid an existing file
	Err             error // Non-nil when no output was written
}

// RunSummary contains statistics from a run.
type RunSummary struct {
	Rewritten int
	Failed    int
	Warnings  int
	Duration  time.Duration
	Results   []FileResult
}

// Add records one file outcome.
func (s *RunSummary) Add(r FileResult) {
	s.Results = append(s.Results, r)
	if r.Err != nil {
		s.Failed++
		return
	}
	s.Rewritten++
	s.Warnings += len(r.Warnings)
}

// TotalFiles returns the number of files attempted.
func (s *RunSummary) TotalFiles() int {
	return len(s.Results)
}

// HasErrors returns true if any file failed.
func (s *RunSummary) HasErrors() bool {
	return s.Failed > 0
}

// RunStatus maps the outcome to the audit run status.
func (s *RunSummary) RunStatus() audit.RunStatus {
	if s.HasErrors() {
		return audit.RunStatusFailed
	}
	return audit.RunStatusCompleted
}

// AuditSummary converts the counts for the RUN_END event.
func (s *RunSummary) AuditSummary() audit.RunSummary {
	return audit.RunSummary{
		TotalFiles: s.TotalFiles(),
		Rewritten:  s.Rewritten,
		Failed:     s.Failed,
		Warnings:   s.Warnings,
	}
}

// String returns a one-line summary.
func (s *RunSummary) String() string {
	return fmt.Sprintf("Rewrote %d of %d files: %d failed, %d warnings (%s)",
		s.Rewritten, s.TotalFiles(), s.Failed, s.Warnings, s.Duration.Round(time.Millisecond))
}
