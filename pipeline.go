// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package wwm

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// pristineIndex is the block holding original data in multi-block archives;
// it is never extracted or re-encoded.
const pristineIndex = 0

// isPristine reports whether block index is the pristine block. A
// single-block archive has none.
func (a *Archive) isPristine(index int) bool {
	return index == pristineIndex && a.Count > 0
}

var blockNumber = regexp.MustCompile(`(\d+)\.dat$`)

// BlockName returns the file name used for block index of archive base.
func BlockName(base string, index int) string {
	return fmt.Sprintf("%s_%d.dat", base, index)
}

// ParseBlockName splits a block file name into archive base and index.
func ParseBlockName(name string) (base string, index int, ok bool) {
	name = filepath.Base(name)
	m := blockNumber.FindStringSubmatchIndex(name)
	if m == nil {
		return "", 0, false
	}
	index, err := strconv.Atoi(name[m[2]:m[3]])
	if err != nil {
		return "", 0, false
	}
	return strings.TrimSuffix(name[:m[2]], "_"), index, true
}

// ArchiveBase returns the name used for an archive's blocks: its file name
// without extension.
func ArchiveBase(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Extraction is the text content of one archive.
type Extraction struct {
	Archive *Archive
	Base    string

	// Tables holds every decoded resource table by block index.
	Tables map[int]*Table

	// Records are the tables' entries in block order, numbered from 1.
	Records []Record

	// Warnings holds table-level failures; their blocks are skipped.
	Warnings []*BlockError
}

// Headers returns the captured table headers keyed by block file name.
func (e *Extraction) Headers() map[string]TableHeader {
	headers := make(map[string]TableHeader, len(e.Tables))
	for index, t := range e.Tables {
		headers[BlockName(e.Base, index)] = t.Header
	}
	return headers
}

// ExtractText decodes every resource table in a split archive. Blocks are
// decoded concurrently; records keep block order. The pristine block 0 of a
// multi-block archive and blocks that are not resource tables are skipped.
func ExtractText(ctx context.Context, a *Archive, opts ...Option) (*Extraction, error) {
	o := newOptions(opts)
	base := ArchiveBase(a.Name)

	tables := make([]*Table, len(a.Blocks))
	failures := make([]*BlockError, len(a.Blocks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.jobs)

	for i := range a.Blocks {
		b := &a.Blocks[i]
		if a.isPristine(b.Index) || b.Err != nil || !IsTable(b.Data) {
			continue
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			t, err := DecodeTable(b.Data)
			if err != nil {
				failures[i] = &BlockError{Archive: a.Name, Index: b.Index, Offset: b.Offset, Err: err}
				return nil
			}
			tables[i] = t
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	ext := &Extraction{
		Archive: a,
		Base:    base,
		Tables:  make(map[int]*Table),
	}

	number := 1
	for i, t := range tables {
		if be := failures[i]; be != nil {
			o.logger.Warn().
				Str("archive", a.Name).
				Int("block", be.Index).
				Int64("offset", be.Offset).
				Err(be.Err).
				Msg("skip table")
			ext.Warnings = append(ext.Warnings, be)
			continue
		}
		if t == nil {
			continue
		}

		index := a.Blocks[i].Index
		for _, w := range t.Warnings {
			o.logger.Warn().
				Str("archive", a.Name).
				Int("block", index).
				Int("entry", w.Entry).
				Int64("offset", w.Offset).
				Msg("invalid UTF-8 replaced")
		}

		ext.Tables[index] = t
		records := TableRecords(BlockName(base, index), number, t)
		ext.Records = append(ext.Records, records...)
		number += len(records)

		o.logger.Debug().
			Str("archive", a.Name).
			Int("block", index).
			Uint32("entries", t.Header.TotalCount).
			Uint32("active", t.Header.ActiveCount).
			Msg("extracted table")
	}

	return ext, nil
}

// PackText re-encodes the tables named by records into the split archive
// and returns the rebuilt archive bytes. The archive's blocks are updated in
// place. Each record's File must name a block of this archive; headers
// captured from the archive's own tables are replayed. Records for the
// pristine block are ignored.
func PackText(ctx context.Context, a *Archive, records []Record, c Codec, opts ...Option) ([]byte, error) {
	o := newOptions(opts)
	base := ArchiveBase(a.Name)

	var kept []Record
	for _, r := range records {
		fileBase, index, ok := ParseBlockName(r.File)
		if !ok || fileBase != base {
			return nil, fmt.Errorf("record %d: %q is not a block of %s", r.Number, r.File, a.Name)
		}
		if a.isPristine(index) {
			continue
		}
		if index >= len(a.Blocks) {
			return nil, fmt.Errorf("record %d: %w", r.Number,
				consistencyErrorf("%s has no block %d (%d blocks)", a.Name, index, len(a.Blocks)))
		}
		kept = append(kept, r)
	}

	headers := make(map[string]TableHeader)
	for i := range a.Blocks {
		b := &a.Blocks[i]
		if b.Err != nil || len(b.Data) < tableHeaderSize || !IsTable(b.Data) {
			continue
		}
		h, err := readTableHeader(bytes.NewReader(b.Data))
		if err != nil {
			return nil, fmt.Errorf("block %d header: %w", b.Index, err)
		}
		headers[BlockName(base, b.Index)] = *h
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	blocks, err := EncodeRecords(kept, headers)
	if err != nil {
		return nil, err
	}

	for _, nb := range blocks {
		_, index, _ := ParseBlockName(nb.Name)
		b := &a.Blocks[index]
		if b.Err != nil {
			return nil, fmt.Errorf("replace %s: %w", nb.Name, b.Err)
		}
		b.Data = nb.Data
		o.logger.Debug().Str("archive", a.Name).Int("block", index).Int("bytes", len(nb.Data)).Msg("packed table")
	}

	return a.Encode(c)
}
