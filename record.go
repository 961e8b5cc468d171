// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package wwm

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Record is one table entry in the form exchanged with translation tooling.
type Record struct {
	Number      int     // Running number across an extraction, from 1
	File        string  // Source block name, e.g. "lang_3.dat"
	TotalCount  uint32  // Entries in the source table
	ActiveCount uint32  // Active entries in the source table
	Index       int     // Entry index within the table
	Flag        byte    // Opaque per-entry code
	ID          [8]byte // Entry ID
	Text        string  // Text with \n and \r escaped
}

// NamedBlock is encoded table data for one source block.
type NamedBlock struct {
	Name string
	Data []byte
}

var (
	escaper   = strings.NewReplacer("\n", `\n`, "\r", `\r`)
	unescaper = strings.NewReplacer(`\n`, "\n", `\r`, "\r")
)

// Escape replaces line feeds and carriage returns with the two-character
// sequences \n and \r.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Unescape reverses Escape.
func Unescape(s string) string {
	return unescaper.Replace(s)
}

// FormatID renders an entry ID as lowercase hex.
func FormatID(id [8]byte) string {
	return hex.EncodeToString(id[:])
}

// ParseID parses a 16-digit hex entry ID.
func ParseID(s string) ([8]byte, error) {
	var id [8]byte
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return id, fmt.Errorf("parse id %q: %w", s, err)
	}
	if len(b) != len(id) {
		return id, fmt.Errorf("parse id %q: want %d bytes, got %d", s, len(id), len(b))
	}
	copy(id[:], b)
	return id, nil
}

// FormatFlag renders a flag byte as two hex digits.
func FormatFlag(f byte) string {
	return hex.EncodeToString([]byte{f})
}

// ParseFlag parses a two-digit hex flag byte.
func ParseFlag(s string) (byte, error) {
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse flag %q: %w", s, err)
	}
	if len(b) != 1 {
		return 0, fmt.Errorf("parse flag %q: want 1 byte, got %d", s, len(b))
	}
	return b[0], nil
}

// TableRecords converts a decoded table into records numbered from first.
func TableRecords(file string, first int, t *Table) []Record {
	records := make([]Record, len(t.Entries))
	for i, e := range t.Entries {
		records[i] = Record{
			Number:      first + i,
			File:        file,
			TotalCount:  t.Header.TotalCount,
			ActiveCount: t.Header.ActiveCount,
			Index:       i,
			Flag:        e.Flag,
			ID:          e.ID,
			Text:        Escape(e.Text),
		}
	}
	return records
}

// RecordsTable rebuilds one table from the records of a single block. The
// reserved header fields come from header; the counts come from the records.
func RecordsTable(records []Record, header TableHeader) (*Table, error) {
	if len(records) == 0 {
		return nil, consistencyErrorf("no records")
	}

	first := records[0]
	header.TotalCount = first.TotalCount
	header.ActiveCount = first.ActiveCount

	if int(first.TotalCount) != len(records) {
		return nil, consistencyErrorf("%s: total count %d, %d records", first.File, first.TotalCount, len(records))
	}

	t := &Table{
		Header:  header,
		Entries: make([]Entry, len(records)),
	}
	for i, r := range records {
		if r.File != first.File {
			return nil, consistencyErrorf("record %d belongs to %s, not %s", r.Number, r.File, first.File)
		}
		if r.TotalCount != first.TotalCount || r.ActiveCount != first.ActiveCount {
			return nil, consistencyErrorf("%s: record %d counts %d/%d disagree with %d/%d",
				r.File, r.Number, r.TotalCount, r.ActiveCount, first.TotalCount, first.ActiveCount)
		}
		if r.Index != i {
			return nil, consistencyErrorf("%s: record %d has entry index %d, expected %d", r.File, r.Number, r.Index, i)
		}
		t.Entries[i] = Entry{
			ID:   r.ID,
			Flag: r.Flag,
			Text: Unescape(r.Text),
		}
	}

	return t, nil
}

// DefaultTableHeader returns the reserved header values used when a block's
// original header is not available.
func DefaultTableHeader() TableHeader {
	return TableHeader{Reserved2: DefaultReserved2}
}

// EncodeRecords encodes records into one table per distinct File, in the
// order each File first appears. headers supplies the reserved header bytes
// captured at decode time; blocks without one get DefaultTableHeader.
func EncodeRecords(records []Record, headers map[string]TableHeader) ([]NamedBlock, error) {
	var order []string
	groups := make(map[string][]Record)
	for _, r := range records {
		if _, ok := groups[r.File]; !ok {
			order = append(order, r.File)
		}
		groups[r.File] = append(groups[r.File], r)
	}

	blocks := make([]NamedBlock, 0, len(order))
	for _, name := range order {
		header, ok := headers[name]
		if !ok {
			header = DefaultTableHeader()
		}

		t, err := RecordsTable(groups[name], header)
		if err != nil {
			return nil, err
		}

		data, err := t.Encode()
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		blocks = append(blocks, NamedBlock{Name: name, Data: data})
	}

	return blocks, nil
}
