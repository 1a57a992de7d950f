package audit

import (
	"fmt"
	"sort"
	"time"
)

// Stats contains aggregate metrics across audited runs.
type Stats struct {
	TotalRuns      int
	FailedRuns     int
	FilesRewritten int
	FilesFailed    int
	Warnings       int
	ByReason       map[string]int // Malformed columns per reason
	ByErrorType    map[string]int // Failed files per error type
	FirstRun       time.Time
	LastRun        time.Time
}

// StatsOptions configures stats aggregation.
type StatsOptions struct {
	Since *time.Time // Only runs started at or after this time
}

// AggregateStats computes metrics across every log segment in logDir.
func AggregateStats(logDir string, opts StatsOptions) (*Stats, error) {
	events, err := NewReader(logDir).ReadEvents()
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	stats := &Stats{
		ByReason:    make(map[string]int),
		ByErrorType: make(map[string]int),
	}

	// RUN_START comes first in every run, so inclusion is decided there.
	included := make(map[RunID]bool)
	for _, event := range events {
		if event.RunID == "" {
			continue
		}
		if event.EventType == EventRunStart {
			if opts.Since != nil && event.Timestamp.Before(*opts.Since) {
				continue
			}
			included[event.RunID] = true
			stats.TotalRuns++
			if stats.FirstRun.IsZero() || event.Timestamp.Before(stats.FirstRun) {
				stats.FirstRun = event.Timestamp
			}
			if event.Timestamp.After(stats.LastRun) {
				stats.LastRun = event.Timestamp
			}
			continue
		}
		if !included[event.RunID] {
			continue
		}

		switch event.EventType {
		case EventHeaderRewritten:
			stats.FilesRewritten++
		case EventMalformedColumn:
			stats.Warnings++
			if event.Column != nil {
				stats.ByReason[event.Column.Reason]++
			}
		case EventError:
			stats.FilesFailed++
			if event.ErrorDetails != nil {
				stats.ByErrorType[event.ErrorDetails.ErrorType]++
			}
		case EventRunEnd:
			if RunStatus(event.Metadata["status"]) == RunStatusFailed {
				stats.FailedRuns++
			}
		}
	}
	return stats, nil
}

// SortedCounts returns the keys of counts ordered by descending count, ties
// broken alphabetically.
func SortedCounts(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}
