// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package wwm

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Interchange column names, in output order
const (
	ColumnNumber     = "Number"
	ColumnFile       = "File"
	ColumnAllBlocks  = "All Blocks"
	ColumnWorkBlocks = "Work Blocks"
	ColumnCurrent    = "Current Block"
	ColumnUnknown    = "Unknown"
	ColumnID         = "ID"
	ColumnText       = "OriginalText"
)

// Field delimiters
const (
	DefaultDelimiter = ';'
	OverlayDelimiter = '\t'
)

var interchangeColumns = []string{
	ColumnNumber, ColumnFile, ColumnAllBlocks, ColumnWorkBlocks,
	ColumnCurrent, ColumnUnknown, ColumnID, ColumnText,
}

// RecordWriter writes records as a delimited table with a header row.
type RecordWriter struct {
	w           *csv.Writer
	wroteHeader bool
}

// NewRecordWriter creates a writer using delim as the field separator.
func NewRecordWriter(w io.Writer, delim rune) *RecordWriter {
	cw := csv.NewWriter(w)
	cw.Comma = delim
	return &RecordWriter{w: cw}
}

// Write writes records, preceded by the header row on the first call.
func (rw *RecordWriter) Write(records []Record) error {
	if !rw.wroteHeader {
		if err := rw.w.Write(interchangeColumns); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		rw.wroteHeader = true
	}

	for _, r := range records {
		row := []string{
			strconv.Itoa(r.Number),
			r.File,
			strconv.FormatUint(uint64(r.TotalCount), 10),
			strconv.FormatUint(uint64(r.ActiveCount), 10),
			strconv.Itoa(r.Index),
			FormatFlag(r.Flag),
			FormatID(r.ID),
			r.Text,
		}
		if err := rw.w.Write(row); err != nil {
			return fmt.Errorf("write record %d: %w", r.Number, err)
		}
	}
	return nil
}

// Flush flushes buffered rows and reports any write error.
func (rw *RecordWriter) Flush() error {
	rw.w.Flush()
	return rw.w.Error()
}

// ReadRecords reads a delimited record table. Columns are located by their
// header names, so extra or reordered columns are tolerated.
func ReadRecords(r io.Reader, delim rune) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimPrefix(strings.TrimSpace(name), "\ufeff")] = i
	}
	cols := make([]int, len(interchangeColumns))
	for i, name := range interchangeColumns {
		c, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
		cols[i] = c
	}

	var records []Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// *csv.ParseError carries its own line number
			return nil, fmt.Errorf("read records: %w", err)
		}
		if len(row) == 0 || (len(row) == 1 && row[0] == "") {
			continue
		}

		rec, err := parseRecordRow(row, cols)
		if err != nil {
			// Quoted fields may span lines, so ask the reader
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}

	return records, nil
}

// parseRecordRow converts one row using column positions in
// interchangeColumns order
func parseRecordRow(row []string, cols []int) (Record, error) {
	field := func(i int) string {
		if cols[i] >= len(row) {
			return ""
		}
		return row[cols[i]]
	}

	var rec Record
	var err error

	if rec.Number, err = strconv.Atoi(strings.TrimSpace(field(0))); err != nil {
		return rec, fmt.Errorf("parse %s: %w", ColumnNumber, err)
	}
	rec.File = field(1)

	total, err := strconv.ParseUint(strings.TrimSpace(field(2)), 10, 32)
	if err != nil {
		return rec, fmt.Errorf("parse %s: %w", ColumnAllBlocks, err)
	}
	rec.TotalCount = uint32(total)

	active, err := strconv.ParseUint(strings.TrimSpace(field(3)), 10, 32)
	if err != nil {
		return rec, fmt.Errorf("parse %s: %w", ColumnWorkBlocks, err)
	}
	rec.ActiveCount = uint32(active)

	if rec.Index, err = strconv.Atoi(strings.TrimSpace(field(4))); err != nil {
		return rec, fmt.Errorf("parse %s: %w", ColumnCurrent, err)
	}
	if rec.Flag, err = ParseFlag(field(5)); err != nil {
		return rec, err
	}
	if rec.ID, err = ParseID(field(6)); err != nil {
		return rec, err
	}
	rec.Text = field(7)

	return rec, nil
}

// Overlay maps entry IDs (lowercase hex) to replacement text.
type Overlay map[string]string

// LoadOverlay reads a tab-separated ID/text table. The first row is a
// header and is skipped; rows with fewer than two fields are ignored.
func LoadOverlay(r io.Reader) (Overlay, error) {
	cr := csv.NewReader(r)
	cr.Comma = OverlayDelimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return Overlay{}, nil
		}
		return nil, fmt.Errorf("read overlay header: %w", err)
	}

	overlay := make(Overlay)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read overlay: %w", err)
		}
		if len(row) < 2 {
			continue
		}
		overlay[strings.ToLower(strings.TrimSpace(row[0]))] = strings.TrimSpace(row[1])
	}

	return overlay, nil
}

// Apply replaces the text of every record whose ID has an overlay entry
// and returns how many were replaced.
func (o Overlay) Apply(records []Record) int {
	replaced := 0
	for i := range records {
		if text, ok := o[FormatID(records[i].ID)]; ok {
			records[i].Text = text
			replaced++
		}
	}
	return replaced
}
