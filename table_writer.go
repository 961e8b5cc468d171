// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package wwm

import (
	"bytes"
	"fmt"
)

// Terminator returns the 17-byte sequence that follows the flag array:
// 0xFF and the first 16 flag bytes, or 0xFF, all flag bytes and 0x80
// padding when there are fewer than 16.
func Terminator(flags []byte) []byte {
	t := make([]byte, 0, terminatorSize)
	t = append(t, terminatorMark)
	if len(flags) >= terminatorSpan {
		return append(t, flags[:terminatorSpan]...)
	}
	t = append(t, flags...)
	for len(t) < terminatorSize {
		t = append(t, terminatorPad)
	}
	return t
}

// terminatorDue reports whether the terminator follows once written flag
// bytes have been emitted for a table of total entries: the flag position,
// counted from the start of the table, has reached total+24.
func terminatorDue(total, written int) bool {
	return tableHeaderSize+written >= total+tableHeaderSize
}

// Encode lays the table out as the engine stores it. TotalCount must equal
// the number of entries.
func (t *Table) Encode() ([]byte, error) {
	total := len(t.Entries)
	if t.Header.TotalCount != uint32(total) {
		return nil, consistencyErrorf("header declares %d entries, table holds %d", t.Header.TotalCount, total)
	}

	entriesStart, textStart := tableLayout(uint32(total))

	// Three running cursors: flags, entry array, text blob
	flags := make([]byte, 0, total+terminatorSize)
	entries := make([]byte, 0, total*tableEntrySize)
	var text []byte
	idPos := entriesStart
	textPos := textStart

	if total == 0 {
		flags = append(flags, Terminator(nil)...)
	}

	for i, e := range t.Entries {
		flags = append(flags, e.Flag)
		if terminatorDue(total, i+1) {
			flags = append(flags, Terminator(flags)...)
		}

		raw := []byte(e.Text)

		entries = append(entries, e.ID[:]...)
		idPos += tableIDSize

		offset := textPos - idPos
		if offset < 0 || offset > 0xFFFFFFFF {
			return nil, consistencyErrorf("entry %d text offset %d out of range", i, offset)
		}
		entries = appendUint32(entries, uint32(offset))
		entries = appendUint32(entries, uint32(len(raw)))
		idPos += 8

		text = append(text, raw...)
		textPos += int64(len(raw))
	}

	var buf bytes.Buffer
	buf.Grow(int(textPos))

	if err := writeTableHeader(&buf, &t.Header); err != nil {
		return nil, fmt.Errorf("write table header: %w", err)
	}
	buf.Write(flags)
	buf.Write(entries)
	buf.Write(text)

	return buf.Bytes(), nil
}
