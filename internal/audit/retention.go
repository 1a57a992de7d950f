package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// PruneResult lists the segments removed by Prune.
type PruneResult struct {
	PrunedSegments  []string
	TotalBytesFreed int64
}

// SegmentsToPrune returns the oldest segments beyond the newest keep ones.
// A keep of zero retains everything.
func SegmentsToPrune(logDir string, keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	segments, err := DiscoverSegments(logDir)
	if err != nil {
		return nil, err
	}
	if len(segments) <= keep {
		return nil, nil
	}
	return segments[:len(segments)-keep], nil
}

// pruneLocked removes segments beyond the retention limit and records a
// RETENTION_PRUNE event for each one in the active log.
func (w *Writer) pruneLocked() (*PruneResult, error) {
	logDir := filepath.Dir(w.logPath)
	toPrune, err := SegmentsToPrune(logDir, w.config.RetentionSegments)
	if err != nil {
		return nil, err
	}

	result := &PruneResult{}
	for _, name := range toPrune {
		path := filepath.Join(logDir, name)
		info, err := os.Stat(path)
		if err != nil {
			return result, fmt.Errorf("failed to stat segment %s: %w", name, err)
		}
		if err := os.Remove(path); err != nil {
			return result, fmt.Errorf("failed to remove segment %s: %w", name, err)
		}

		event := Event{
			Timestamp: time.Now().UTC(),
			EventType: EventRetentionPrune,
			Status:    StatusSuccess,
			Metadata: map[string]string{
				"prunedSegment": name,
				"bytes":         strconv.FormatInt(info.Size(), 10),
			},
		}
		if err := w.writeEventLocked(event); err != nil {
			return result, fmt.Errorf("failed to write RETENTION_PRUNE event: %w", err)
		}

		result.PrunedSegments = append(result.PrunedSegments, name)
		result.TotalBytesFreed += info.Size()
	}
	return result, nil
}
