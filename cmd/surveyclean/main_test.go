package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveyclean/internal/config"
	"surveyclean/internal/header"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRewriteCommand(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "raw.csv")
	dst := filepath.Join(dir, "clean.csv")
	require.NoError(t, os.WriteFile(src, []byte("Start Date,Q1 What is your age?\n2020-01-01,34\n"), 0644))

	out, err := execute(t, "rewrite", src, dst)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+dst+" (2 columns, 0 warnings)")

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "start.date,what.is.your.age.1\n2020-01-01,34\n", string(got))
}

func TestRewriteCommandStrict(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "raw.csv")
	dst := filepath.Join(dir, "clean.csv")
	require.NoError(t, os.WriteFile(src, []byte("Quarter,Q7\n1,2\n"), 0644))

	_, err := execute(t, "--strict", "rewrite", src, dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed column 0")
	assert.NoFileExists(t, dst)
}

func TestBatchCommandWithConfigAndAudit(t *testing.T) {
	dir := t.TempDir()
	exports := filepath.Join(dir, "exports")
	require.NoError(t, os.MkdirAll(exports, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(exports, "a.csv"), []byte("Q1 Age\n30\n"), 0644))

	cfg := config.Default()
	cfg.Input = ""
	cfg.OutputSuffix = "_norm"
	cfg.Audit.Enabled = true
	cfg.Audit.LogDirectory = filepath.Join(dir, "audit")
	cfgPath := filepath.Join(dir, "surveyclean.json")
	require.NoError(t, config.Save(cfg, cfgPath))

	out, err := execute(t, "--config", cfgPath, "batch", exports)
	require.NoError(t, err)
	assert.Contains(t, out, "Rewrote 1 of 1 files")
	assert.FileExists(t, filepath.Join(exports, "a_norm.csv"))

	out, err = execute(t, "--config", cfgPath, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "batch")
	assert.Contains(t, out, "COMPLETED")
	assert.Contains(t, out, "rewritten=1")
}

func TestBatchCommandReportsFailures(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.csv"), nil, 0644))

	_, err := execute(t, "batch", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 files failed")
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")

	_, err := execute(t, "--config", path, "init")
	require.NoError(t, err)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	_, err = execute(t, "--config", path, "init")
	assert.Error(t, err)
}

func TestUnknownEncodingFlag(t *testing.T) {
	_, err := execute(t, "--encoding", "ebcdic", "status", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encoding")
}

func TestRevertCommandRemovesOutputs(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "raw.csv")
	dst := filepath.Join(dir, "clean.csv")
	require.NoError(t, os.WriteFile(src, []byte("Q1 Age,Q2 Town\n30,Leeds\n"), 0644))

	cfg := config.Default()
	cfg.Audit.Enabled = true
	cfg.Audit.LogDirectory = filepath.Join(dir, "audit")
	cfgPath := filepath.Join(dir, "surveyclean.json")
	require.NoError(t, config.Save(cfg, cfgPath))

	_, err := execute(t, "--config", cfgPath, "rewrite", src, dst)
	require.NoError(t, err)
	require.FileExists(t, dst)

	out, err := execute(t, "--config", cfgPath, "revert")
	require.NoError(t, err)
	assert.Contains(t, out, "1 removed, 0 kept")
	assert.NoFileExists(t, dst)
	assert.FileExists(t, src)

	out, err = execute(t, "--config", cfgPath, "history", "--stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Runs:      2 (0 failed)")
	assert.Contains(t, out, "Rewritten: 1")
}

func TestHistoryStatsRejectsBadDate(t *testing.T) {
	_, err := execute(t, "history", "--stats", "--since", "last week")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YYYY-MM-DD")
}

func TestRewriteCommandRefusesSamePath(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "data.csv")
	original := "Q1 Age\n30\n"
	require.NoError(t, os.WriteFile(src, []byte(original), 0644))

	_, err := execute(t, "rewrite", src, filepath.Join(dir, ".", "data.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DESTINATION_IS_SOURCE")

	got, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, original, string(got))
}

func TestRewriteCommandLatin1Header(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "raw.csv")
	dst := filepath.Join(dir, "clean.csv")
	require.NoError(t, os.WriteFile(src, []byte("R\xe9gion,Start Date\nNord,2020\n"), 0644))

	_, err := execute(t, "rewrite", src, dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_ENCODING")
	assert.NoFileExists(t, dst)

	_, err = execute(t, "--encoding", "latin1", "rewrite", src, dst)
	require.NoError(t, err)
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "r\xe9gion,start.date\nNord,2020\n", string(got))
}

func TestRootHelpShowsCompactBracketExample(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, `"Q12[01] Which item do you prefer?" -> "which.item.do.you.prefer.12.01"`)
	assert.Equal(t, "which.item.do.you.prefer.12.01", header.Normalize("Q12[01] Which item do you prefer?"))
}
