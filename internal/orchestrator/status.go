package orchestrator

import (
	"fmt"

	"surveyclean/internal/csvfile"
	"surveyclean/internal/organizer"
	"surveyclean/internal/scanner"
)

// PendingFile describes what Batch would do with one export.
type PendingFile struct {
	SourcePath      string
	DestinationPath string
	Columns         int
	Malformed       int   // Columns that would get a best-effort name
	Err             error // Set when the file could not be read or would be rejected
}

// StatusResult lists the exports Batch would rewrite.
type StatusResult struct {
	Directory string
	Files     []PendingFile
}

// Total returns the number of exports found.
func (r *StatusResult) Total() int {
	return len(r.Files)
}

// Status previews a batch run over dir without writing anything.
func (o *Orchestrator) Status(dir string) (*StatusResult, error) {
	files, err := scanner.ScanWithOptions(dir, o.scanOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	planner := o.newPlanner()
	result := &StatusResult{Directory: dir}
	for _, file := range files {
		result.Files = append(result.Files, o.preview(planner, file.FullPath))
	}
	return result, nil
}

func (o *Orchestrator) preview(planner *organizer.Planner, src string) PendingFile {
	pending := PendingFile{
		SourcePath:      src,
		DestinationPath: planner.Plan(src).DestinationPath,
	}

	doc, err := csvfile.Read(src, csvfile.Options{Encoding: o.config.Encoding})
	if err != nil {
		pending.Err = err
		return pending
	}

	normalized, err := o.normalizer.Normalize(doc.Header)
	if err != nil {
		pending.Err = err
		return pending
	}
	pending.Columns = len(normalized.Columns)
	pending.Malformed = len(normalized.Warnings)
	return pending
}
