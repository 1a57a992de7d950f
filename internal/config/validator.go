package config

import (
	"os"
	"strconv"
	"strings"

	"surveyclean/internal/csvfile"
	"surveyclean/internal/header"
	"surveyclean/internal/organizer"
	"surveyclean/internal/scanner"
	"surveyclean/internal/watcher"
)

// ValidationSeverity represents the severity of a validation issue.
type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "error"
	SeverityWarning ValidationSeverity = "warning"
)

// ConfigValidationError represents a single validation issue.
type ConfigValidationError struct {
	Field    string             // Config field with issue (e.g., "watch.ignorePatterns[1]")
	Message  string             // Human-readable description
	Severity ValidationSeverity // "error" or "warning"
}

// ValidationResult contains all validation findings.
type ValidationResult struct {
	Errors   []ConfigValidationError
	Warnings []ConfigValidationError
	Valid    bool // True if no errors (warnings OK)
}

func (r *ValidationResult) add(issues []ConfigValidationError) {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			r.Errors = append(r.Errors, issue)
		} else {
			r.Warnings = append(r.Warnings, issue)
		}
	}
}

// ValidateConfig checks the configuration for errors and returns all findings.
func ValidateConfig(cfg *Configuration) *ValidationResult {
	result := &ValidationResult{
		Errors:   []ConfigValidationError{},
		Warnings: []ConfigValidationError{},
	}

	result.add(ValidateOptions(cfg))
	result.add(ValidatePaths(cfg))
	result.add(ValidateWatch(cfg))
	result.add(ValidateAudit(cfg))

	result.Valid = len(result.Errors) == 0
	return result
}

// ValidateOptions checks mode, encoding, suffix and batch policy values.
func ValidateOptions(cfg *Configuration) []ConfigValidationError {
	var issues []ConfigValidationError

	if _, err := header.ParseMode(cfg.Mode); err != nil {
		issues = append(issues, issue("mode", err.Error(), SeverityError))
	}

	if !csvfile.SupportedEncoding(cfg.Encoding) {
		issues = append(issues, issue("encoding",
			"unsupported encoding: \""+cfg.Encoding+"\"", SeverityError))
	}

	if strings.ContainsAny(cfg.OutputSuffix, `/\`) {
		issues = append(issues, issue("outputSuffix",
			"suffix must not contain a path separator", SeverityError))
	}

	if cfg.Batch != nil && cfg.Batch.SymlinkPolicy != "" {
		switch cfg.Batch.SymlinkPolicy {
		case scanner.SymlinkPolicyFollow, scanner.SymlinkPolicySkip, scanner.SymlinkPolicyError:
		default:
			issues = append(issues, issue("batch.symlinkPolicy",
				"invalid symlink policy: \""+cfg.Batch.SymlinkPolicy+"\". Must be \"follow\", \"skip\", or \"error\"",
				SeverityError))
		}
	}

	return issues
}

// ValidatePaths checks the single-file paths and the output directory.
// A missing input is only a warning since batch and watch never read it.
func ValidatePaths(cfg *Configuration) []ConfigValidationError {
	var issues []ConfigValidationError

	if cfg.Input != "" && cfg.Output != "" && organizer.SameFile(cfg.Input, cfg.Output) {
		issues = append(issues, issue("output", "output must differ from input: "+cfg.Output, SeverityError))
	}

	if cfg.Input != "" {
		info, err := os.Stat(cfg.Input)
		switch {
		case os.IsNotExist(err):
			issues = append(issues, issue("input", "file does not exist: "+cfg.Input, SeverityWarning))
		case err != nil:
			issues = append(issues, issue("input", "error accessing file: "+err.Error(), SeverityWarning))
		case info.IsDir():
			issues = append(issues, issue("input", "path is a directory: "+cfg.Input, SeverityError))
		}
	}

	if cfg.Output != "" {
		if info, err := os.Stat(cfg.Output); err == nil && info.IsDir() {
			issues = append(issues, issue("output", "path is a directory: "+cfg.Output, SeverityError))
		}
	}

	if cfg.OutputDirectory != "" {
		info, err := os.Stat(cfg.OutputDirectory)
		switch {
		case err == nil && !info.IsDir():
			issues = append(issues, issue("outputDirectory",
				"path exists but is not a directory: "+cfg.OutputDirectory, SeverityError))
		case os.IsNotExist(err):
			issues = append(issues, issue("outputDirectory",
				"directory will be created: "+cfg.OutputDirectory, SeverityWarning))
		case err != nil:
			issues = append(issues, issue("outputDirectory",
				"error accessing directory: "+err.Error(), SeverityError))
		}
	}

	return issues
}

// ValidateWatch checks the watch settings.
func ValidateWatch(cfg *Configuration) []ConfigValidationError {
	var issues []ConfigValidationError
	if cfg.Watch == nil {
		return issues
	}

	if cfg.Watch.DebounceSeconds < 0 {
		issues = append(issues, issue("watch.debounceSeconds",
			"debounceSeconds must be a non-negative integer", SeverityError))
	}
	if cfg.Watch.StableThresholdMs < 0 {
		issues = append(issues, issue("watch.stableThresholdMs",
			"stableThresholdMs must be a non-negative integer", SeverityError))
	}
	for i, pattern := range cfg.Watch.IgnorePatterns {
		if err := watcher.ValidatePattern(pattern); err != nil {
			issues = append(issues, issue(formatField("watch.ignorePatterns", i),
				"invalid glob pattern: \""+pattern+"\"", SeverityError))
		}
	}

	return issues
}

// ValidateAudit checks the audit log rotation and retention limits.
func ValidateAudit(cfg *Configuration) []ConfigValidationError {
	var issues []ConfigValidationError
	if cfg.Audit == nil {
		return issues
	}

	if cfg.Audit.RotationSize < 0 {
		issues = append(issues, issue("audit.rotationSizeBytes",
			"rotationSizeBytes must be a non-negative integer", SeverityError))
	}
	if cfg.Audit.RetentionSegments < 0 {
		issues = append(issues, issue("audit.retentionSegments",
			"retentionSegments must be a non-negative integer", SeverityError))
	}
	if cfg.Audit.Enabled && cfg.Audit.LogDirectory == "" {
		issues = append(issues, issue("audit.logDirectory",
			"logDirectory is required when audit is enabled", SeverityError))
	}

	return issues
}

func issue(field, message string, severity ValidationSeverity) ConfigValidationError {
	return ConfigValidationError{Field: field, Message: message, Severity: severity}
}

// formatField creates a field reference string for validation errors.
func formatField(name string, index int) string {
	return name + "[" + strconv.Itoa(index) + "]"
}
