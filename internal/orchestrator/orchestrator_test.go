package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveyclean/internal/audit"
	"surveyclean/internal/config"
	"surveyclean/internal/csvfile"
	"surveyclean/internal/header"
	"surveyclean/internal/organizer"
	"surveyclean/internal/output"
	"surveyclean/internal/watcher"
)

const (
	rawHeader   = "Respondent ID,Q1 What is your age?,Q12 [01] Which item do you prefer?,Quarter"
	cleanHeader = "respondent.id,what.is.your.age.1,which.item.do.you.prefer.12,.uarter"
	body        = "1,34,A,x\n2,51,B,y\n3,29,\"C, D\",z\n"
)

func newTestOrchestrator(t *testing.T, mutate func(*config.Configuration), auditWriter *audit.Writer) (*Orchestrator, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	var buf bytes.Buffer
	out := output.New(output.Config{Writer: &buf, ErrWriter: &buf, Verbose: true})
	o, err := New(cfg, out, auditWriter)
	require.NoError(t, err)
	return o, &buf
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestRewriteReplacesOnlyHeader(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "durham_2020_raw.csv")
	dst := filepath.Join(dir, "durham_2020_cleaner_headers.csv")
	writeFile(t, src, rawHeader+"\n"+body)

	o, buf := newTestOrchestrator(t, nil, nil)
	summary, err := o.Rewrite(src, dst)
	require.NoError(t, err)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, cleanHeader+"\n"+body, string(got))

	assert.Equal(t, 1, summary.Rewritten)
	assert.Equal(t, 1, summary.Warnings)
	assert.Equal(t, 4, summary.Results[0].Columns)
	assert.Contains(t, buf.String(), `warning: `+src+`: malformed column 3 "Quarter"`)
	assert.Contains(t, buf.String(), "Rewrote "+src)
}

func TestRewriteStrictFailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "export.csv")
	dst := filepath.Join(dir, "export_clean.csv")
	writeFile(t, src, rawHeader+"\n"+body)

	o, _ := newTestOrchestrator(t, func(c *config.Configuration) { c.Mode = "strict" }, nil)
	summary, err := o.Rewrite(src, dst)
	require.Error(t, err)

	var columnErr *header.MalformedColumnError
	require.True(t, errors.As(err, &columnErr))
	assert.Equal(t, 3, columnErr.Position)
	assert.Equal(t, 1, summary.Failed)
	assert.NoFileExists(t, dst)
}

func TestRewriteMissingAndEmptyInputs(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.csv")
	writeFile(t, empty, "")

	tests := []struct {
		name     string
		src      string
		wantType csvfile.FileErrorType
	}{
		{"missing", filepath.Join(dir, "missing.csv"), csvfile.FileNotFound},
		{"empty", empty, csvfile.EmptyFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := filepath.Join(dir, tt.name+"_out.csv")
			o, _ := newTestOrchestrator(t, nil, nil)

			_, err := o.Rewrite(tt.src, dst)
			var fileErr *csvfile.FileError
			require.True(t, errors.As(err, &fileErr), "got %v", err)
			assert.Equal(t, tt.wantType, fileErr.Type)
			assert.NoFileExists(t, dst)
		})
	}
}

func TestBatchRewritesEveryExport(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.csv"), rawHeader+"\n"+body)
	writeFile(t, filepath.Join(dir, "b.CSV"), "Q2 Sex\r\nF\r\n")
	writeFile(t, filepath.Join(dir, "c.csv"), "")
	writeFile(t, filepath.Join(dir, "notes.txt"), "Q1 ignored\n")
	writeFile(t, filepath.Join(dir, "old_clean.csv"), "already,clean\n")
	writeFile(t, filepath.Join(dir, "nested", "d.csv"), "Q3 Zip\n")

	o, buf := newTestOrchestrator(t, nil, nil)
	summary, err := o.Batch(dir)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalFiles())
	assert.Equal(t, 2, summary.Rewritten)
	assert.Equal(t, 1, summary.Failed)
	assert.True(t, summary.HasErrors())

	got, err := os.ReadFile(filepath.Join(dir, "b_clean.CSV"))
	require.NoError(t, err)
	assert.Equal(t, "sex.2\r\nF\r\n", string(got))

	assert.FileExists(t, filepath.Join(dir, "a_clean.csv"))
	assert.NoFileExists(t, filepath.Join(dir, "c_clean.csv"))
	assert.NoFileExists(t, filepath.Join(dir, "old_clean_clean.csv"))
	assert.NoFileExists(t, filepath.Join(dir, "nested", "d_clean.csv"))
	assert.Contains(t, buf.String(), "Error processing "+filepath.Join(dir, "c.csv"))
}

func TestBatchDuplicateNamesWithoutOverwrite(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	writeFile(t, filepath.Join(dir, "a.csv"), "Q1 Age\n30\n")
	writeFile(t, filepath.Join(outDir, "a_clean.csv"), "keep me\n")

	o, _ := newTestOrchestrator(t, func(c *config.Configuration) {
		c.Overwrite = false
		c.OutputDirectory = outDir
	}, nil)
	summary, err := o.Batch(dir)
	require.NoError(t, err)

	require.Len(t, summary.Results, 1)
	assert.True(t, summary.Results[0].IsDuplicate)
	assert.Equal(t, filepath.Join(outDir, "a_clean_duplicate.csv"), summary.Results[0].DestinationPath)

	kept, err := os.ReadFile(filepath.Join(outDir, "a_clean.csv"))
	require.NoError(t, err)
	assert.Equal(t, "keep me\n", string(kept))
}

func TestBatchRecursive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "2020", "q1", "d.csv"), "Q3 Zip\n")

	o, _ := newTestOrchestrator(t, func(c *config.Configuration) { c.Batch.Recursive = true }, nil)
	summary, err := o.Batch(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Rewritten)
	assert.FileExists(t, filepath.Join(dir, "2020", "q1", "d_clean.csv"))

	t.Run("same name into one output directory", func(t *testing.T) {
		in := filepath.Join(t.TempDir(), "in")
		outDir := filepath.Join(t.TempDir(), "out")
		writeFile(t, filepath.Join(in, "a", "x.csv"), "Start Date\nA-ROW\n")
		writeFile(t, filepath.Join(in, "b", "x.csv"), "Start Date\nB-ROW\n")

		mutate := func(c *config.Configuration) {
			c.Batch.Recursive = true
			c.OutputDirectory = outDir
		}
		o, _ := newTestOrchestrator(t, mutate, nil)

		status, err := o.Status(in)
		require.NoError(t, err)
		require.Equal(t, 2, status.Total())
		planned := []string{status.Files[0].DestinationPath, status.Files[1].DestinationPath}

		summary, err := o.Batch(in)
		require.NoError(t, err)
		require.Equal(t, 2, summary.Rewritten)

		first, second := summary.Results[0], summary.Results[1]
		assert.Equal(t, filepath.Join(outDir, "x_clean.csv"), first.DestinationPath)
		assert.Equal(t, filepath.Join(outDir, "x_clean_duplicate.csv"), second.DestinationPath)
		assert.True(t, second.IsDuplicate)
		assert.Equal(t, planned, []string{first.DestinationPath, second.DestinationPath})

		got, err := os.ReadFile(first.DestinationPath)
		require.NoError(t, err)
		assert.Equal(t, "start.date\nA-ROW\n", string(got))
		got, err = os.ReadFile(second.DestinationPath)
		require.NoError(t, err)
		assert.Equal(t, "start.date\nB-ROW\n", string(got))

		// A second run overwrites its own earlier outputs rather than piling up duplicates.
		o, _ = newTestOrchestrator(t, mutate, nil)
		summary, err = o.Batch(in)
		require.NoError(t, err)
		assert.Equal(t, first.DestinationPath, summary.Results[0].DestinationPath)
		assert.Equal(t, second.DestinationPath, summary.Results[1].DestinationPath)
	})
}

func TestRewriteRefusesToReplaceInput(t *testing.T) {
	dir := t.TempDir()
	auditDir := filepath.Join(dir, "audit")
	src := filepath.Join(dir, "data.csv")
	original := rawHeader + "\n" + body
	writeFile(t, src, original)

	link := filepath.Join(dir, "linked.csv")
	require.NoError(t, os.Link(src, link))

	w, err := audit.NewWriter(audit.Config{Enabled: true, LogDirectory: auditDir})
	require.NoError(t, err)
	defer w.Close()
	o, _ := newTestOrchestrator(t, nil, w)

	for _, dst := range []string{src, filepath.Join(dir, "sub", "..", "data.csv"), link} {
		_, err := o.Rewrite(src, dst)
		var placementErr *organizer.PlacementError
		require.ErrorAs(t, err, &placementErr, dst)
		assert.Equal(t, organizer.DestinationIsSource, placementErr.Type)
	}

	got, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, original, string(got))

	events := readEvents(t, auditDir)
	for _, e := range events {
		assert.NotEqual(t, audit.EventHeaderRewritten, e.EventType)
		if e.EventType == audit.EventError {
			assert.Equal(t, "DESTINATION_IS_SOURCE", e.ErrorDetails.ErrorType)
		}
	}

	result, err := audit.NewReverter(audit.NewReader(auditDir), nil, AppVersion).RevertLatest()
	require.NoError(t, err)
	assert.Empty(t, result.Removed)
	assert.FileExists(t, src)
}

func TestBatchMissingDirectory(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil, nil)
	_, err := o.Batch(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestStatusWritesNothing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.csv"), rawHeader+"\n"+body)
	writeFile(t, filepath.Join(dir, "b.csv"), "")

	o, _ := newTestOrchestrator(t, nil, nil)
	result, err := o.Status(dir)
	require.NoError(t, err)
	require.Equal(t, 2, result.Total())

	a := result.Files[0]
	assert.Equal(t, filepath.Join(dir, "a_clean.csv"), a.DestinationPath)
	assert.Equal(t, 4, a.Columns)
	assert.Equal(t, 1, a.Malformed)
	assert.NoError(t, a.Err)
	assert.Error(t, result.Files[1].Err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestNewRejectsUnknownMode(t *testing.T) {
	cfg := config.Default()
	cfg.Mode = "lenient"
	_, err := New(cfg, nil, nil)

	var cfgErr *config.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, config.ValidationError, cfgErr.Type)
}

func TestWatchRewritesNewExports(t *testing.T) {
	dir := t.TempDir()
	o, _ := newTestOrchestrator(t, func(c *config.Configuration) {
		c.Watch = &watcher.WatchConfig{DebounceSeconds: 1, StableThresholdMs: 0}
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan *watcher.WatchSummary, 1)
	go func() {
		summary, err := o.Watch(ctx, dir)
		assert.NoError(t, err)
		done <- summary
	}()

	// Give the watcher time to register the directory.
	time.Sleep(200 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "incoming.csv"), "Q1 Age\n30\n")

	dst := filepath.Join(dir, "incoming_clean.csv")
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(dst)
		return err == nil && string(data) == "age.1\n30\n"
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	summary := <-done
	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.FilesRewritten)
	assert.Equal(t, 0, summary.FilesFailed)
}

func readEvents(t *testing.T, dir string) []audit.Event {
	t.Helper()
	events, err := audit.NewReader(dir).ReadEvents()
	require.NoError(t, err)
	return events
}

func eventTypes(events []audit.Event) []audit.EventType {
	out := make([]audit.EventType, len(events))
	for i, e := range events {
		out[i] = e.EventType
	}
	return out
}

func TestRewriteAuditTrail(t *testing.T) {
	dir := t.TempDir()
	auditDir := filepath.Join(dir, "audit")
	src := filepath.Join(dir, "export.csv")
	dst := filepath.Join(dir, "export_clean.csv")
	writeFile(t, src, rawHeader+"\n"+body)

	w, err := audit.NewWriter(audit.Config{Enabled: true, LogDirectory: auditDir})
	require.NoError(t, err)
	o, _ := newTestOrchestrator(t, nil, w)

	_, err = o.Rewrite(src, dst)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	events := readEvents(t, auditDir)
	assert.Equal(t, []audit.EventType{
		audit.EventLogInitialized,
		audit.EventRunStart,
		audit.EventMalformedColumn,
		audit.EventHeaderRewritten,
		audit.EventRunEnd,
	}, eventTypes(events))

	malformed := events[2]
	require.NotNil(t, malformed.Column)
	assert.Equal(t, audit.ColumnDetails{Position: 3, Raw: "Quarter", Output: ".uarter", Reason: "INVALID_QUESTION_NUMBER"}, *malformed.Column)

	rewritten := events[3]
	assert.Equal(t, dst, rewritten.DestinationPath)
	require.NotNil(t, rewritten.SourceIdentity)
	require.NotNil(t, rewritten.OutputIdentity)
	assert.NotEqual(t, rewritten.SourceIdentity.ContentHash, rewritten.OutputIdentity.ContentHash)
	assert.Equal(t, "4", rewritten.Metadata["columns"])

	runs, err := audit.NewReader(auditDir).ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, audit.RunStatusCompleted, runs[0].Status)
	assert.Equal(t, audit.RunSummary{TotalFiles: 1, Rewritten: 1, Warnings: 1}, runs[0].Summary)
}

func TestFailedRewriteAuditTrail(t *testing.T) {
	dir := t.TempDir()
	auditDir := filepath.Join(dir, "audit")

	w, err := audit.NewWriter(audit.Config{Enabled: true, LogDirectory: auditDir})
	require.NoError(t, err)
	o, _ := newTestOrchestrator(t, nil, w)

	_, err = o.Rewrite(filepath.Join(dir, "missing.csv"), filepath.Join(dir, "out.csv"))
	require.Error(t, err)
	require.NoError(t, w.Close())

	events := readEvents(t, auditDir)
	require.Equal(t, []audit.EventType{
		audit.EventLogInitialized,
		audit.EventRunStart,
		audit.EventError,
		audit.EventRunEnd,
	}, eventTypes(events))
	require.NotNil(t, events[2].ErrorDetails)
	assert.Equal(t, "FILE_NOT_FOUND", events[2].ErrorDetails.ErrorType)
	assert.Equal(t, "read", events[2].ErrorDetails.Operation)
}

// Property: every batch run logs RUN_START, one HEADER_REWRITTEN per file,
// one MALFORMED_COLUMN per warning, and RUN_END.
func TestBatchAuditEventCounts(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20

	properties := gopter.NewProperties(parameters)

	properties.Property("audit events match the batch outcome", prop.ForAll(
		func(fileCount, badColumns int) bool {
			dir, err := os.MkdirTemp("", "surveyclean-audit-*")
			if err != nil {
				t.Logf("failed to create temp dir: %v", err)
				return false
			}
			defer os.RemoveAll(dir)

			exports := filepath.Join(dir, "exports")
			line := "Q1 Age"
			for i := 0; i < badColumns; i++ {
				line += ",Quarter"
			}
			if err := os.MkdirAll(exports, 0755); err != nil {
				return false
			}
			for i := 0; i < fileCount; i++ {
				path := filepath.Join(exports, string(rune('a'+i))+".csv")
				if err := os.WriteFile(path, []byte(line+"\n1\n"), 0644); err != nil {
					return false
				}
			}

			w, err := audit.NewWriter(audit.Config{Enabled: true, LogDirectory: filepath.Join(dir, "audit")})
			if err != nil {
				t.Logf("failed to open audit log: %v", err)
				return false
			}
			o, err := New(config.Default(), nil, w)
			if err != nil {
				return false
			}
			summary, err := o.Batch(exports)
			w.Close()
			if err != nil || summary.Rewritten != fileCount {
				t.Logf("batch failed: %v", err)
				return false
			}

			events, err := audit.NewReader(filepath.Join(dir, "audit")).ReadEvents()
			if err != nil {
				return false
			}
			counts := map[audit.EventType]int{}
			for _, e := range events {
				counts[e.EventType]++
			}
			return counts[audit.EventRunStart] == 1 &&
				counts[audit.EventRunEnd] == 1 &&
				counts[audit.EventHeaderRewritten] == fileCount &&
				counts[audit.EventMalformedColumn] == fileCount*badColumns &&
				counts[audit.EventError] == 0
		},
		gen.IntRange(0, 5),
		gen.IntRange(0, 3),
	))

	properties.TestingRun(t)
}
