// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package wwm

import "encoding/binary"

// cursor reads little-endian fields from a byte slice and tracks the
// absolute position of the next read.
type cursor struct {
	data []byte
	pos  int64
}

func newCursor(data []byte) *cursor {
	return &cursor{data: data}
}

func (c *cursor) remaining() int64 {
	return int64(len(c.data)) - c.pos
}

// seek moves to an absolute position
func (c *cursor) seek(pos int64) error {
	if pos < 0 || pos > int64(len(c.data)) {
		return formatErrorf(pos, "seek beyond buffer (%d bytes)", len(c.data))
	}
	c.pos = pos
	return nil
}

// read returns the next n bytes without copying
func (c *cursor) read(n int64) ([]byte, error) {
	if n < 0 || n > c.remaining() {
		return nil, formatErrorf(c.pos, "read of %d bytes exceeds buffer (%d remaining)", n, c.remaining())
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *cursor) uint32() (uint32, error) {
	b, err := c.read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// sliceAt returns n bytes at an absolute position without moving the cursor
func (c *cursor) sliceAt(pos, n int64) ([]byte, error) {
	if pos < 0 || n < 0 || pos+n > int64(len(c.data)) {
		return nil, formatErrorf(pos, "slice of %d bytes exceeds buffer (%d bytes)", n, len(c.data))
	}
	return c.data[pos : pos+n], nil
}

// appendUint32 appends v in little-endian order
func appendUint32(b []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(b, v)
}
