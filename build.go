// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package wwm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// BuildOptions describes a translation build over several archives.
type BuildOptions struct {
	Inputs    []string // Archive paths
	Overlay   Overlay  // Replacement text by ID
	OutputDir string   // Rebuilt archives are written here under their own names

	// WorkDir, when set, receives TextExtractor_<base>.csv and
	// TextExtractor_<base>_translated.csv for every input.
	WorkDir   string
	Delimiter rune // Record table delimiter, DefaultDelimiter if zero
}

// BuildResult reports the outcome for one input archive.
type BuildResult struct {
	Input    string
	Output   string
	Records  int
	Replaced int
	Warnings []*BlockError
	Err      error
}

// Build runs split, extract, overlay and pack for every input. Archives are
// processed concurrently; a failing archive is reported in its result and
// does not stop the others. The returned error is only set when ctx ends.
func Build(ctx context.Context, c Codec, bo BuildOptions, opts ...Option) ([]BuildResult, error) {
	o := newOptions(opts)
	if bo.Delimiter == 0 {
		bo.Delimiter = DefaultDelimiter
	}

	results := make([]BuildResult, len(bo.Inputs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.jobs)

	for i, input := range bo.Inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			res := buildOne(ctx, c, input, bo, opts)
			if res.Err != nil {
				o.logger.Error().Str("archive", input).Err(res.Err).Msg("build failed")
			} else {
				o.logger.Info().
					Str("archive", input).
					Str("output", res.Output).
					Int("records", res.Records).
					Int("replaced", res.Replaced).
					Msg("build complete")
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func buildOne(ctx context.Context, c Codec, input string, bo BuildOptions, opts []Option) BuildResult {
	res := BuildResult{Input: input}

	a, err := OpenArchive(input, c, opts...)
	if err != nil {
		res.Err = err
		return res
	}
	res.Warnings = a.Warnings()

	ext, err := ExtractText(ctx, a, opts...)
	if err != nil {
		res.Err = fmt.Errorf("extract text: %w", err)
		return res
	}
	res.Warnings = append(res.Warnings, ext.Warnings...)
	res.Records = len(ext.Records)

	base := ArchiveBase(input)
	if bo.WorkDir != "" {
		path := filepath.Join(bo.WorkDir, "TextExtractor_"+base+".csv")
		if err := WriteRecordsFile(path, ext.Records, bo.Delimiter); err != nil {
			res.Err = err
			return res
		}
	}

	res.Replaced = bo.Overlay.Apply(ext.Records)

	if bo.WorkDir != "" {
		path := filepath.Join(bo.WorkDir, "TextExtractor_"+base+"_translated.csv")
		if err := WriteRecordsFile(path, ext.Records, bo.Delimiter); err != nil {
			res.Err = err
			return res
		}
	}

	data, err := PackText(ctx, a, ext.Records, c, opts...)
	if err != nil {
		res.Err = fmt.Errorf("pack text: %w", err)
		return res
	}

	res.Output = filepath.Join(bo.OutputDir, filepath.Base(input))
	if err := WriteFileAtomic(res.Output, data); err != nil {
		res.Err = err
	}
	return res
}

// WriteRecordsFile writes records with a header row to path.
func WriteRecordsFile(path string, records []Record, delim rune) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	rw := NewRecordWriter(f, delim)
	if err := rw.Write(records); err != nil {
		return err
	}
	if err := rw.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// ReadRecordsFile reads a record table from path.
func ReadRecordsFile(path string, delim rune) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	records, err := ReadRecords(f, delim)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return records, nil
}

// LoadOverlayFile reads a tab-separated overlay from path.
func LoadOverlayFile(path string) (Overlay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return LoadOverlay(f)
}
