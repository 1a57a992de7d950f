package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Reader reads events back from the audit log.
type Reader struct {
	logDir string
}

// NewReader creates a Reader for the given log directory.
func NewReader(logDir string) *Reader {
	return &Reader{logDir: logDir}
}

// ReadEvents returns every event in the log, rotated segments first, in
// file order. A missing log yields no events and no error.
func (r *Reader) ReadEvents() ([]Event, error) {
	files, err := LogFiles(r.logDir)
	if err != nil {
		return nil, err
	}

	var events []Event
	for _, path := range files {
		fileEvents, err := readEventsFromFile(path)
		if err != nil {
			return nil, err
		}
		events = append(events, fileEvents...)
	}
	return events, nil
}

func readEventsFromFile(path string) ([]Event, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer file.Close()

	var events []Event
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("corrupt audit log %s line %d: %w", filepath.Base(path), lineNum, err)
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	return events, nil
}

// ListRuns returns all runs, most recent first.
func (r *Reader) ListRuns() ([]RunInfo, error) {
	events, err := r.ReadEvents()
	if err != nil {
		return nil, err
	}

	byID := make(map[RunID]*RunInfo)
	var order []RunID
	for _, event := range events {
		if event.RunID == "" {
			continue
		}
		info, ok := byID[event.RunID]
		if !ok {
			info = &RunInfo{RunID: event.RunID, Status: RunStatusInProgress, StartTime: event.Timestamp}
			byID[event.RunID] = info
			order = append(order, event.RunID)
		}

		switch event.EventType {
		case EventRunStart:
			info.StartTime = event.Timestamp
			info.AppVersion = event.Metadata["appVersion"]
			info.Command = event.Metadata["command"]
		case EventRunEnd:
			end := event.Timestamp
			info.EndTime = &end
			info.Status = RunStatus(event.Metadata["status"])
			info.Summary = parseSummary(event.Metadata)
		}
	}

	// The log is append-only, so reverse file order is newest first.
	runs := make([]RunInfo, 0, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		runs = append(runs, *byID[order[i]])
	}
	return runs, nil
}

// GetRun returns all events for one run.
func (r *Reader) GetRun(runID RunID) ([]Event, error) {
	events, err := r.ReadEvents()
	if err != nil {
		return nil, err
	}

	var runEvents []Event
	for _, event := range events {
		if event.RunID == runID {
			runEvents = append(runEvents, event)
		}
	}
	if len(runEvents) == 0 {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	return runEvents, nil
}

func parseSummary(metadata map[string]string) RunSummary {
	atoi := func(key string) int {
		n, _ := strconv.Atoi(metadata[key])
		return n
	}
	return RunSummary{
		TotalFiles: atoi("totalFiles"),
		Rewritten:  atoi("rewritten"),
		Failed:     atoi("failed"),
		Warnings:   atoi("warnings"),
	}
}
