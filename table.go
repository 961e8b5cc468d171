// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package wwm

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// Entry is one row of a resource table.
type Entry struct {
	ID   [8]byte // Opaque entry ID
	Flag byte    // Opaque per-entry code
	Text string  // Raw text, control characters unescaped
}

// Table is a decoded resource table.
type Table struct {
	Header  TableHeader
	Entries []Entry

	// Warnings lists entries whose text was not valid UTF-8 and was decoded
	// with replacement characters.
	Warnings []*EncodingError
}

// entryRef is the location of one entry's text as stored in the table
type entryRef struct {
	id     [8]byte
	anchor int64 // Position just after the ID, where the offset field starts
	offset uint32
	length uint32
}

// textPos is where the entry's text starts
func (r entryRef) textPos() int64 {
	return r.anchor + int64(r.offset)
}

// IsTable reports whether decompressed block data carries the resource
// table signature.
func IsTable(data []byte) bool {
	if len(data) < tableSignatureOffset+len(tableSignature) {
		return false
	}
	return bytes.Equal(data[tableSignatureOffset:tableSignatureOffset+len(tableSignature)], tableSignature[:])
}

// tableLayout returns where the entry array and text blob start for a
// table of total entries
func tableLayout(total uint32) (entriesStart, textStart int64) {
	entriesStart = tableHeaderSize + int64(total) + terminatorSize
	textStart = entriesStart + tableEntrySize*int64(total)
	return entriesStart, textStart
}

// DecodeTable decodes a decompressed block into a resource table. Entry
// order is preserved.
func DecodeTable(data []byte) (*Table, error) {
	if len(data) < tableHeaderSize {
		return nil, formatErrorf(0, "table header truncated: %d of %d bytes", len(data), tableHeaderSize)
	}

	header, err := readTableHeader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read table header: %w", err)
	}

	entriesStart, textStart := tableLayout(header.TotalCount)
	if textStart > int64(len(data)) {
		return nil, consistencyErrorf("table declares %d entries, needs at least %d bytes, have %d",
			header.TotalCount, textStart, len(data))
	}

	cur := newCursor(data)
	if err := cur.seek(tableHeaderSize); err != nil {
		return nil, err
	}

	flags, err := cur.read(int64(header.TotalCount))
	if err != nil {
		return nil, fmt.Errorf("read flags: %w", err)
	}

	refs, err := readEntryRefs(cur, header.TotalCount, entriesStart)
	if err != nil {
		return nil, err
	}

	t := &Table{
		Header:  *header,
		Entries: make([]Entry, len(refs)),
	}

	decoder := unicode.UTF8.NewDecoder()
	for i, ref := range refs {
		raw, err := cur.sliceAt(ref.textPos(), int64(ref.length))
		if err != nil {
			return nil, fmt.Errorf("entry %d text: %w", i, err)
		}

		text := string(raw)
		if !utf8.Valid(raw) {
			fixed, err := decoder.Bytes(raw)
			if err != nil {
				return nil, fmt.Errorf("entry %d text: %w", i, err)
			}
			text = string(fixed)
			t.Warnings = append(t.Warnings, &EncodingError{Entry: i, Offset: ref.textPos()})
		}

		t.Entries[i] = Entry{
			ID:   ref.id,
			Flag: flags[i],
			Text: text,
		}
	}

	return t, nil
}

// readEntryRefs reads the fixed-width entry array
func readEntryRefs(cur *cursor, total uint32, entriesStart int64) ([]entryRef, error) {
	refs := make([]entryRef, total)
	for i := range refs {
		if err := cur.seek(entriesStart + int64(i)*tableEntrySize); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}

		id, err := cur.read(tableIDSize)
		if err != nil {
			return nil, fmt.Errorf("entry %d id: %w", i, err)
		}
		copy(refs[i].id[:], id)
		refs[i].anchor = cur.pos

		if refs[i].offset, err = cur.uint32(); err != nil {
			return nil, fmt.Errorf("entry %d offset: %w", i, err)
		}
		if refs[i].length, err = cur.uint32(); err != nil {
			return nil, fmt.Errorf("entry %d length: %w", i, err)
		}
	}
	return refs, nil
}
