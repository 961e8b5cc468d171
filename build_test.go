// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package wwm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	c := newTestCodec(t)
	dir := t.TempDir()

	good := filepath.Join(dir, "lang.bin")
	require.NoError(t, os.WriteFile(good, langArchive(t, c), 0644))
	broken := filepath.Join(dir, "broken.bin")
	require.NoError(t, os.WriteFile(broken, []byte("garbage that is long enough"), 0644))

	outDir := filepath.Join(dir, "release")
	workDir := filepath.Join(dir, "work")

	results, err := Build(context.Background(), c, BuildOptions{
		Inputs:    []string{good, broken},
		Overlay:   Overlay{FormatID(testID(0x10)): "Bonjour"},
		OutputDir: outDir,
		WorkDir:   workDir,
	}, WithJobs(2))
	require.NoError(t, err)
	require.Len(t, results, 2)

	ok := results[0]
	require.NoError(t, ok.Err)
	require.Equal(t, good, ok.Input)
	require.Equal(t, filepath.Join(outDir, "lang.bin"), ok.Output)
	require.Equal(t, 5, ok.Records)
	require.Equal(t, 1, ok.Replaced)
	require.Empty(t, ok.Warnings)

	var fe *FormatError
	require.True(t, errors.As(results[1].Err, &fe))
	require.Empty(t, results[1].Output)
	require.NoFileExists(t, filepath.Join(outDir, "broken.bin"))

	// Intermediate tables before and after the overlay
	before, err := ReadRecordsFile(filepath.Join(workDir, "TextExtractor_lang.csv"), DefaultDelimiter)
	require.NoError(t, err)
	require.Equal(t, "Hello", before[0].Text)
	after, err := ReadRecordsFile(filepath.Join(workDir, "TextExtractor_lang_translated.csv"), DefaultDelimiter)
	require.NoError(t, err)
	require.Equal(t, "Bonjour", after[0].Text)
	require.Equal(t, before[1:], after[1:])

	a, err := OpenArchive(ok.Output, c)
	require.NoError(t, err)
	table, err := DecodeTable(a.Blocks[1].Data)
	require.NoError(t, err)
	require.Equal(t, "Bonjour", table.Entries[0].Text)
	require.Equal(t, "World", table.Entries[1].Text)
}

func TestBuildWithoutOverlay(t *testing.T) {
	c := newTestCodec(t)
	dir := t.TempDir()

	input := filepath.Join(dir, "lang.bin")
	original := langArchive(t, c)
	require.NoError(t, os.WriteFile(input, original, 0644))

	outDir := filepath.Join(dir, "out")
	results, err := Build(context.Background(), c, BuildOptions{
		Inputs:    []string{input},
		OutputDir: outDir,
		Delimiter: '\t',
	})
	require.NoError(t, err)
	require.NoError(t, results[0].Err)
	require.Zero(t, results[0].Replaced)

	rebuilt, err := os.ReadFile(filepath.Join(outDir, "lang.bin"))
	require.NoError(t, err)
	require.Equal(t, original, rebuilt)
}

func TestRecordsFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "records.csv")
	records := sampleRecords()

	require.NoError(t, WriteRecordsFile(path, records, DefaultDelimiter))
	got, err := ReadRecordsFile(path, DefaultDelimiter)
	require.NoError(t, err)
	require.Equal(t, records, got)

	_, err = ReadRecordsFile(filepath.Join(t.TempDir(), "missing.csv"), DefaultDelimiter)
	require.Error(t, err)
}

func TestLoadOverlayFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "translation.tsv")
	require.NoError(t, os.WriteFile(path, []byte("ID\tText\n1020304050607000\tSalut\n"), 0644))

	overlay, err := LoadOverlayFile(path)
	require.NoError(t, err)
	require.Equal(t, Overlay{"1020304050607000": "Salut"}, overlay)
}
