// Package orchestrator coordinates header rewrites for surveyclean.
package orchestrator

import (
	"errors"
	"fmt"
	"time"

	"surveyclean/internal/audit"
	"surveyclean/internal/config"
	"surveyclean/internal/csvfile"
	"surveyclean/internal/header"
	"surveyclean/internal/organizer"
	"surveyclean/internal/output"
	"surveyclean/internal/scanner"
)

// AppVersion is recorded with every audited run.
const AppVersion = "1.0.0"

// Orchestrator runs rewrites with one configuration. Its methods are safe
// for concurrent use as long as the audit writer is.
type Orchestrator struct {
	config     *config.Configuration
	out        *output.Output
	audit      *audit.Writer
	normalizer *header.Normalizer
}

// New creates an Orchestrator. out may be nil to discard messages and
// auditWriter may be nil to disable the audit log.
func New(cfg *config.Configuration, out *output.Output, auditWriter *audit.Writer) (*Orchestrator, error) {
	mode, err := cfg.HeaderMode()
	if err != nil {
		return nil, &config.ConfigError{Type: config.ValidationError, Message: err.Error()}
	}
	if out == nil {
		out = output.Discard()
	}
	return &Orchestrator{
		config:     cfg,
		out:        out,
		audit:      auditWriter,
		normalizer: header.New(mode),
	}, nil
}

// RewriteFile rewrites the header of src into dst. Nothing is written to dst
// unless the whole header was accepted, and dst may never be src itself.
func (o *Orchestrator) RewriteFile(src, dst string) FileResult {
	result := FileResult{SourcePath: src, DestinationPath: dst}

	if err := organizer.CheckDistinct(src, dst); err != nil {
		return o.fail(result, "place", err)
	}

	doc, err := csvfile.Read(src, csvfile.Options{Encoding: o.config.Encoding})
	if err != nil {
		return o.fail(result, "read", err)
	}

	var sourceID *audit.FileIdentity
	if o.audit != nil {
		if sourceID, err = audit.CaptureIdentity(src); err != nil {
			o.out.Warn("audit: %v", err)
		}
	}

	normalized, err := o.normalizer.Normalize(doc.Header)
	if err != nil {
		return o.fail(result, "normalize", err)
	}
	result.Columns = len(normalized.Columns)
	result.Warnings = normalized.Warnings

	if err := csvfile.Write(dst, normalized.Header, doc); err != nil {
		return o.fail(result, "write", err)
	}

	for _, w := range normalized.Warnings {
		o.out.Warn("%s: %v (wrote %q)", src, w, w.Output)
		o.auditRecord(func(a *audit.Writer) error {
			return a.RecordMalformedColumn(src, audit.ColumnDetails{
				Position: w.Position,
				Raw:      w.Raw,
				Output:   w.Output,
				Reason:   string(w.Reason),
			})
		})
	}

	o.auditRecord(func(a *audit.Writer) error {
		outputID, err := audit.CaptureIdentity(dst)
		if err != nil {
			return err
		}
		return a.RecordRewrite(src, dst, result.Columns, sourceID, outputID)
	})

	o.out.Verbose("Rewrote %s -> %s (%d columns, %d warnings)", src, dst, result.Columns, len(result.Warnings))
	return result
}

func (o *Orchestrator) fail(result FileResult, operation string, err error) FileResult {
	result.Err = err
	o.auditRecord(func(a *audit.Writer) error {
		return a.RecordError(result.SourcePath, errorType(err), err.Error(), operation)
	})
	return result
}

// auditRecord writes an audit event if auditing is on. Audit failures are
// reported but never fail the rewrite.
func (o *Orchestrator) auditRecord(record func(*audit.Writer) error) {
	if o.audit == nil {
		return
	}
	if err := record(o.audit); err != nil {
		o.out.Warn("audit: %v", err)
	}
}

// errorType maps an error to the type string stored in ERROR events.
func errorType(err error) string {
	var fileErr *csvfile.FileError
	var columnErr *header.MalformedColumnError
	var placementErr *organizer.PlacementError
	var scanErr *scanner.ScanError
	switch {
	case errors.As(err, &fileErr):
		return string(fileErr.Type)
	case errors.As(err, &columnErr):
		return "MALFORMED_HEADER"
	case errors.As(err, &placementErr):
		return string(placementErr.Type)
	case errors.As(err, &scanErr):
		return string(scanErr.Type)
	default:
		return "UNKNOWN"
	}
}

// Rewrite runs the single-file workflow from input to output.
func (o *Orchestrator) Rewrite(input, outputPath string) (*RunSummary, error) {
	start := time.Now()
	runID := o.startRun("rewrite")

	summary := &RunSummary{}
	summary.Add(o.RewriteFile(input, outputPath))
	summary.Duration = time.Since(start)

	o.endRun(runID, summary)

	if err := summary.Results[0].Err; err != nil {
		return summary, fmt.Errorf("failed to rewrite %s: %w", input, err)
	}
	return summary, nil
}

// Batch rewrites every export in dir. Previously written outputs are left
// out of the scan. Individual failures are collected in the summary; only a
// failed scan is returned as an error.
func (o *Orchestrator) Batch(dir string) (*RunSummary, error) {
	start := time.Now()
	runID := o.startRun("batch")
	summary := &RunSummary{}

	files, err := scanner.ScanWithOptions(dir, o.scanOptions())
	if err != nil {
		o.auditRecord(func(a *audit.Writer) error {
			return a.RecordError(dir, errorType(err), err.Error(), "scan")
		})
		summary.Duration = time.Since(start)
		o.endRun(runID, summary)
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	planner := o.newPlanner()
	o.out.StartProgress(len(files))
	for i, file := range files {
		o.out.UpdateProgress(i+1, "")
		summary.Add(o.rewriteInPlace(planner, file.FullPath))
	}
	o.out.EndProgress()

	for _, r := range summary.Results {
		if r.Err != nil {
			o.out.Error("Error processing %s: %v", r.SourcePath, r.Err)
		}
	}

	summary.Duration = time.Since(start)
	o.endRun(runID, summary)
	return summary, nil
}

// rewriteInPlace places the output for src with the run's planner and
// rewrites it.
func (o *Orchestrator) rewriteInPlace(planner *organizer.Planner, src string) FileResult {
	placement, err := planner.Place(src)
	if err != nil {
		return o.fail(FileResult{SourcePath: src}, "place", err)
	}
	result := o.RewriteFile(src, placement.DestinationPath)
	result.IsDuplicate = placement.IsDuplicate
	return result
}

// newPlanner returns the output placement for one run.
func (o *Orchestrator) newPlanner() *organizer.Planner {
	return organizer.NewPlanner(o.config.OutputDirectory, o.config.OutputSuffix, o.config.Overwrite)
}

func (o *Orchestrator) scanOptions() scanner.ScanOptions {
	opts := o.config.ScanOptions()
	opts.Exclude = o.isOutput
	return opts
}

func (o *Orchestrator) isOutput(name string) bool {
	return organizer.IsOutputName(name, o.config.OutputSuffix)
}

func (o *Orchestrator) startRun(command string) audit.RunID {
	if o.audit == nil {
		return ""
	}
	runID, err := o.audit.StartRun(AppVersion, command)
	if err != nil {
		o.out.Warn("audit: %v", err)
		return ""
	}
	return runID
}

func (o *Orchestrator) endRun(runID audit.RunID, summary *RunSummary) {
	o.endRunWithStatus(runID, summary.RunStatus(), summary.AuditSummary())
}

func (o *Orchestrator) endRunWithStatus(runID audit.RunID, status audit.RunStatus, summary audit.RunSummary) {
	if o.audit == nil || runID == "" {
		return
	}
	if err := o.audit.EndRun(runID, status, summary); err != nil {
		o.out.Warn("audit: %v", err)
	}
}
