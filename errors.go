// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package wwm

import "fmt"

// FormatError reports bytes that do not match the archive or table layout:
// bad magic, a truncated header, or a declared length that runs past the
// available data.
type FormatError struct {
	Offset int64 // Byte offset where the problem was found
	Msg    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format error at offset %d: %s", e.Offset, e.Msg)
}

// UnsupportedMethodError reports a block envelope whose compression tag is
// not the zstd tag.
type UnsupportedMethodError struct {
	Method uint8
}

func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("unsupported compression method: 0x%02X", e.Method)
}

// EncodingError records a text payload that was not valid UTF-8. It is never
// fatal: the text is decoded with replacement characters instead.
type EncodingError struct {
	Entry  int   // Entry index in the table
	Offset int64 // Byte offset of the text payload
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("invalid UTF-8 in entry %d at offset %d", e.Entry, e.Offset)
}

// ConsistencyError reports counts that disagree with each other: a table
// whose entry count does not fit its buffer, or records that cannot form a
// single table.
type ConsistencyError struct {
	Msg string
}

func (e *ConsistencyError) Error() string {
	return "consistency error: " + e.Msg
}

// BlockError locates a failure to one block of one archive. Block errors are
// isolated: siblings in the same archive are still processed.
type BlockError struct {
	Archive string // Archive name
	Index   int    // Block index
	Offset  int64  // Absolute offset of the block envelope
	Err     error
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("%s block %d (offset %d): %v", e.Archive, e.Index, e.Offset, e.Err)
}

func (e *BlockError) Unwrap() error {
	return e.Err
}

func formatErrorf(offset int64, format string, args ...any) *FormatError {
	return &FormatError{Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

func consistencyErrorf(format string, args ...any) *ConsistencyError {
	return &ConsistencyError{Msg: fmt.Sprintf(format, args...)}
}
