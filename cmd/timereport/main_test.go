package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	"example.com/timereport/internal/config"
	"example.com/timereport/internal/logging"
)

const expectedCSV = "id,display_name,placeholder,on_campus,off_campus,social_practice,total\n" +
	"65a1f0c2e4b0a1b2c3d4e5f6,张三,,2.0,1.5,0.0,3.5\n" +
	"65a1f0c2e4b0a1b2c3d4e5f8,Carol,,0.0,0.0,4.0,4.0\n"

func fixtureConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		FixturePath:       filepath.Join("testdata", "fixture.json"),
		Workers:           1,
		FailurePolicy:     config.FailurePolicyAbort,
		OutputCSV:         filepath.Join(dir, "output.csv"),
		OutputEncodedCSV:  filepath.Join(dir, "gbk.csv"),
		OutputSpreadsheet: filepath.Join(dir, "output.xlsx"),
		TargetEncoding:    "gbk",
		SheetName:         "Sheet1",
	}
}

func TestRunExportWritesAllArtifacts(t *testing.T) {
	cfg := fixtureConfig(t)
	require.NoError(t, runExport(context.Background(), cfg, exportOptions{encode: true, spreadsheet: true}, logging.Nop()))

	data, err := os.ReadFile(cfg.OutputCSV)
	require.NoError(t, err)
	require.Equal(t, expectedCSV, string(data))

	encoded, err := os.ReadFile(cfg.OutputEncodedCSV)
	require.NoError(t, err)
	decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(encoded)
	require.NoError(t, err)
	require.Equal(t, expectedCSV, string(decoded))

	info, err := os.Stat(cfg.OutputSpreadsheet)
	require.NoError(t, err)
	require.NotZero(t, info.Size())
}

func TestRunExportConcurrentMatchesSequential(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.Workers = 4
	require.NoError(t, runExport(context.Background(), cfg, exportOptions{}, logging.Nop()))

	data, err := os.ReadFile(cfg.OutputCSV)
	require.NoError(t, err)
	require.Equal(t, expectedCSV, string(data))

	_, err = os.Stat(cfg.OutputEncodedCSV)
	require.True(t, os.IsNotExist(err))
}

func TestRunExportIncludeAbsent(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.IncludeAbsent = true
	require.NoError(t, runExport(context.Background(), cfg, exportOptions{}, logging.Nop()))

	data, err := os.ReadFile(cfg.OutputCSV)
	require.NoError(t, err)
	require.Contains(t, string(data), "65a1f0c2e4b0a1b2c3d4e5f7,Bob,,0.0,0.0,0.0,0.0\n")
}

func TestRunExportLeavesNoOutputOnFailure(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.FixturePath = filepath.Join(t.TempDir(), "missing.json")
	require.Error(t, runExport(context.Background(), cfg, exportOptions{encode: true, spreadsheet: true}, logging.Nop()))

	_, err := os.Stat(cfg.OutputCSV)
	require.True(t, os.IsNotExist(err))
}

func TestEncodeAndSpreadsheetCommands(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "output.csv")
	require.NoError(t, os.WriteFile(in, []byte(expectedCSV), 0o644))
	gbk := filepath.Join(dir, "gbk.csv")
	xlsx := filepath.Join(dir, "output.xlsx")

	for _, args := range [][]string{
		{"encode", in, gbk, "--log-mode", "prod"},
		{"spreadsheet", in, xlsx, "--sheet", "report", "--log-mode", "prod"},
	} {
		cmd := newRootCmd()
		cmd.SetArgs(args)
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		require.NoError(t, cmd.Execute(), args)
	}

	for _, p := range []string{gbk, xlsx} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		require.NotZero(t, info.Size())
	}
}

func TestEncodeCommandRejectsUnknownEncoding(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"encode", "in.csv", "out.csv", "--encoding", "klingon"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	require.Error(t, cmd.Execute())
}

func TestArgOr(t *testing.T) {
	require.Equal(t, "a", argOr([]string{"a"}, 0, "x"))
	require.Equal(t, "x", argOr([]string{"a"}, 1, "x"))
	require.Equal(t, "x", argOr([]string{""}, 0, "x"))
}
