// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package wwm

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestCodec(t testing.TB) *ZstdCodec {
	t.Helper()
	c, err := NewZstdCodec(0)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func testID(n byte) [8]byte {
	return [8]byte{0x10, 0x20, 0x30, 0x40, 0x50, 0x60, 0x70, n}
}

// newTestTable builds a table with one entry per text, IDs testID(i) and
// flags i+1
func newTestTable(texts ...string) *Table {
	t := &Table{
		Header: TableHeader{
			TotalCount:  uint32(len(texts)),
			Reserved1:   [4]byte{0xAA, 0xBB, 0xCC, 0xDD},
			ActiveCount: uint32(len(texts)),
			Reserved2:   DefaultReserved2,
		},
	}
	for i, text := range texts {
		t.Entries = append(t.Entries, Entry{
			ID:   testID(byte(i)),
			Flag: byte(i + 1),
			Text: text,
		})
	}
	return t
}

func encodeTestTable(t testing.TB, texts ...string) []byte {
	t.Helper()
	data, err := newTestTable(texts...).Encode()
	require.NoError(t, err)
	return data
}

func putUint32(b []byte, v uint32) {
	binary.LittleEndian.PutUint32(b, v)
}
