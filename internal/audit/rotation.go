package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const segmentPrefix = "surveyclean-audit-"

// NeedsRotation reports whether the log at logPath has reached maxSize bytes.
// A maxSize of zero disables rotation.
func NeedsRotation(logPath string, maxSize int64) (bool, error) {
	if maxSize <= 0 {
		return false, nil
	}
	info, err := os.Stat(logPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat log file: %w", err)
	}
	return info.Size() >= maxSize, nil
}

// RotatedFilename returns the segment name for a log rotated at t.
// Format: surveyclean-audit-YYYYMMDD-HHMMSS-NNN.jsonl
func RotatedFilename(t time.Time) string {
	return fmt.Sprintf("%s%s-%03d.jsonl", segmentPrefix, t.Format("20060102-150405"), t.Nanosecond()/int(time.Millisecond))
}

// DiscoverSegments returns the rotated segment names in logDir, oldest first.
func DiscoverSegments(logDir string) ([]string, error) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read log directory: %w", err)
	}

	var segments []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == LogFileName {
			continue
		}
		if strings.HasPrefix(name, segmentPrefix) && strings.HasSuffix(name, ".jsonl") {
			segments = append(segments, name)
		}
	}
	// Timestamps in the name sort chronologically.
	sort.Strings(segments)
	return segments, nil
}

// LogFiles returns every log file in logDir in chronological order: the
// rotated segments followed by the active log.
func LogFiles(logDir string) ([]string, error) {
	segments, err := DiscoverSegments(logDir)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(segments)+1)
	for _, seg := range segments {
		files = append(files, filepath.Join(logDir, seg))
	}
	active := filepath.Join(logDir, LogFileName)
	if _, err := os.Stat(active); err == nil {
		files = append(files, active)
	}
	return files, nil
}

// rotateLocked closes the active log, renames it to a segment and opens a
// fresh log. A ROTATION event is the last line of the old segment.
func (w *Writer) rotateLocked() error {
	logDir := filepath.Dir(w.logPath)
	at := time.Now()
	segment := RotatedFilename(at)
	for {
		if _, err := os.Stat(filepath.Join(logDir, segment)); os.IsNotExist(err) {
			break
		}
		at = at.Add(time.Millisecond)
		segment = RotatedFilename(at)
	}

	event := Event{
		Timestamp: time.Now().UTC(),
		EventType: EventRotation,
		Status:    StatusSuccess,
		Metadata: map[string]string{
			"previousFile": LogFileName,
			"newFile":      segment,
		},
	}
	if err := w.writeEventLocked(event); err != nil {
		return fmt.Errorf("failed to write ROTATION event: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close log for rotation: %w", err)
	}

	rotatedPath := filepath.Join(logDir, segment)
	if err := os.Rename(w.logPath, rotatedPath); err != nil {
		return fmt.Errorf("failed to rename log during rotation: %w", err)
	}
	return w.openLocked()
}
