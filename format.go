// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package wwm

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Archive format constants
const (
	// Magic signature, stored as EF BE AD DE
	archiveMagic = 0xDEADBEEF

	// magic + version + count field
	archiveHeaderSize = 12

	// Envelope header: method tag, compressed size, decompressed size
	envelopeHeaderSize = 9

	// Compression method tags
	methodZstd = 0x04
)

// Resource table constants
const (
	tableHeaderSize = 24

	// 0xFF followed by 16 bytes
	terminatorSize = 17

	// ID + offset + length
	tableEntrySize = 16
	tableIDSize    = 8

	terminatorMark = 0xFF
	terminatorPad  = 0x80
	terminatorSpan = 16

	// Position of the table signature inside the header
	tableSignatureOffset = 16
)

// tableSignature marks a decompressed block as a resource table.
var tableSignature = [4]byte{0xDC, 0x96, 0x58, 0x59}

// Version is the opaque 4-byte field that follows the archive magic.
// It is replayed verbatim when an archive is rebuilt.
type Version [4]byte

// DefaultVersion is the version written by the game's own tooling.
var DefaultVersion = Version{0x01, 0x00, 0x00, 0x00}

// archiveHeader is the fixed 12-byte archive prefix
type archiveHeader struct {
	Magic   uint32  // EF BE AD DE
	Version Version // Opaque
	Count   uint32  // Stored block count (offset table holds Count+1 entries)
}

// envelopeHeader prefixes every compressed block
type envelopeHeader struct {
	Method           uint8  // Compression method tag
	CompressedSize   uint32 // Payload bytes following the header
	DecompressedSize uint32 // Size after decompression
}

// TableHeader is the 24-byte header of a resource table. Reserved fields are
// opaque and are written back exactly as they were read.
type TableHeader struct {
	TotalCount  uint32   // Entries in the table
	Reserved1   [4]byte  // Opaque
	ActiveCount uint32   // Entries the engine treats as live
	Reserved2   [12]byte // Opaque, carries the table signature at byte 4
}

// DefaultReserved2 is the trailing header value every observed table carries.
var DefaultReserved2 = [12]byte{0x00, 0x00, 0x00, 0x00, 0xDC, 0x96, 0x58, 0x59, 0x00, 0x00, 0x00, 0x00}

// readArchiveHeader reads the archive prefix from a reader
func readArchiveHeader(r io.Reader) (*archiveHeader, error) {
	h := &archiveHeader{}
	if err := binary.Read(r, binary.LittleEndian, h); err != nil {
		return nil, err
	}
	return h, nil
}

// writeArchiveHeader writes the archive prefix to a writer
func writeArchiveHeader(w io.Writer, h *archiveHeader) error {
	return binary.Write(w, binary.LittleEndian, h)
}

// readEnvelopeHeader parses the 9-byte envelope header at the start of data
func readEnvelopeHeader(data []byte) (*envelopeHeader, error) {
	h := &envelopeHeader{}
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, h); err != nil {
		return nil, err
	}
	return h, nil
}

// writeEnvelopeHeader appends the envelope header to buf
func writeEnvelopeHeader(buf *bytes.Buffer, h *envelopeHeader) error {
	return binary.Write(buf, binary.LittleEndian, h)
}

// readTableHeader reads the resource table header
func readTableHeader(r io.Reader) (*TableHeader, error) {
	h := &TableHeader{}
	if err := binary.Read(r, binary.LittleEndian, h); err != nil {
		return nil, err
	}
	return h, nil
}

// writeTableHeader writes the resource table header
func writeTableHeader(w io.Writer, h *TableHeader) error {
	return binary.Write(w, binary.LittleEndian, h)
}

// readUint32Array reads an array of uint32 values
func readUint32Array(r io.Reader, data []uint32) error {
	return binary.Read(r, binary.LittleEndian, data)
}

// writeUint32Array writes an array of uint32 values
func writeUint32Array(w io.Writer, data []uint32) error {
	return binary.Write(w, binary.LittleEndian, data)
}
