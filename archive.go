// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package wwm

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
)

// Archive is a split archive: the opaque version field plus its blocks in
// index order.
type Archive struct {
	Name    string
	Version Version
	Count   uint32  // Stored count field; 0 means single inline block
	Blocks  []Block // Indexed blocks, Blocks[i].Index == i

	// Unindexed holds the bytes that follow the last indexed envelope inside
	// the final data slice. Archives written by the game's tooling keep one
	// more block here than the offset table indexes; it is carried verbatim
	// and never decoded.
	Unindexed []byte

	// Trailer holds any bytes past the sentinel offset.
	Trailer []byte
}

// Block is one compressed unit of an archive.
type Block struct {
	Index    int
	Offset   int64  // Absolute offset of the envelope in the archive
	Envelope []byte // Raw envelope bytes as stored
	Data     []byte // Decompressed payload, nil if Err is set
	Err      error  // Non-fatal decode failure, a *BlockError

	loaded []byte // Data as decoded, used to detect edits
}

// Split parses an archive into its blocks. Archive-level corruption returns
// an error; a block that cannot be decoded keeps its raw envelope, records a
// *BlockError in Block.Err and does not stop the remaining blocks.
func Split(name string, data []byte, c Codec, opts ...Option) (*Archive, error) {
	o := newOptions(opts)

	if len(data) < archiveHeaderSize {
		return nil, fmt.Errorf("read header: %w", formatErrorf(0, "archive header truncated: %d bytes", len(data)))
	}

	header, err := readArchiveHeader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read header: %w", formatErrorf(0, "%v", err))
	}

	if header.Magic != archiveMagic {
		return nil, formatErrorf(0, "invalid archive magic: 0x%08X", header.Magic)
	}

	// Offset table: Count block starts followed by the sentinel
	tableSize := 4 * (int64(header.Count) + 1)
	dataStart := int64(archiveHeaderSize) + tableSize
	if dataStart > int64(len(data)) {
		return nil, formatErrorf(archiveHeaderSize, "offset table of %d entries exceeds archive (%d bytes)",
			header.Count+1, len(data))
	}

	offsets := make([]uint32, header.Count+1)
	if err := readUint32Array(bytes.NewReader(data[archiveHeaderSize:dataStart]), offsets); err != nil {
		return nil, fmt.Errorf("read offset table: %w", err)
	}

	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return nil, formatErrorf(archiveHeaderSize+4*int64(i), "corrupt offset table: offset %d (%d) precedes offset %d (%d)",
				i, offsets[i], i-1, offsets[i-1])
		}
	}

	section := data[dataStart:]
	sentinel := int64(offsets[len(offsets)-1])

	a := &Archive{
		Name:    name,
		Version: header.Version,
		Count:   header.Count,
	}

	if sentinel < int64(len(section)) {
		a.Trailer = section[sentinel:]
	}

	if header.Count == 0 {
		// Single-block mode: the sentinel is the inline envelope length
		if sentinel > int64(len(section)) {
			return nil, formatErrorf(archiveHeaderSize, "inline block length %d exceeds archive (%d bytes available)",
				sentinel, len(section))
		}
		b, surplus := a.decodeBlock(c, 0, dataStart, section[:sentinel], o)
		b.Envelope = b.Envelope[:len(b.Envelope)-len(surplus)]
		a.Blocks = []Block{b}
		a.Unindexed = surplus
		return a, nil
	}

	a.Blocks = make([]Block, header.Count)
	for i := 0; i < int(header.Count); i++ {
		start := int64(offsets[i])
		end := int64(offsets[i+1])
		abs := dataStart + start

		if end > int64(len(section)) {
			var raw []byte
			if start < int64(len(section)) {
				raw = section[start:]
			}
			a.Blocks[i] = Block{Index: i, Offset: abs, Envelope: raw}
			a.Blocks[i].Err = a.blockError(i, abs, formatErrorf(abs, "block slice [%d:%d) exceeds data section (%d bytes)",
				start, end, len(section)), o)
			continue
		}

		b, surplus := a.decodeBlock(c, i, abs, section[start:end], o)
		if i == int(header.Count)-1 && len(surplus) > 0 {
			b.Envelope = b.Envelope[:len(b.Envelope)-len(surplus)]
			a.Unindexed = surplus
			o.logger.Debug().
				Str("archive", name).
				Int("bytes", len(surplus)).
				Msg("unindexed data after last block")
		}
		a.Blocks[i] = b
	}

	return a, nil
}

// decodeBlock decompresses one data slice into a Block
func (a *Archive) decodeBlock(c Codec, index int, abs int64, slice []byte, o *options) (Block, []byte) {
	b := Block{Index: index, Offset: abs, Envelope: slice}

	data, surplus, err := decompressEnvelope(c, slice)
	if err != nil {
		var fe *FormatError
		if errors.As(err, &fe) {
			fe.Offset += abs
		}
		b.Err = a.blockError(index, abs, err, o)
		return b, surplus
	}

	b.Data = data
	b.loaded = data
	return b, surplus
}

func (a *Archive) blockError(index int, abs int64, err error, o *options) *BlockError {
	be := &BlockError{Archive: a.Name, Index: index, Offset: abs, Err: err}
	o.logger.Warn().
		Str("archive", a.Name).
		Int("block", index).
		Int64("offset", abs).
		Err(err).
		Msg("skip block")
	return be
}

// Warnings returns the per-block errors recorded by Split.
func (a *Archive) Warnings() []*BlockError {
	var warnings []*BlockError
	for i := range a.Blocks {
		var be *BlockError
		if errors.As(a.Blocks[i].Err, &be) {
			warnings = append(warnings, be)
		}
	}
	return warnings
}

// Block returns the block at index i, or nil.
func (a *Archive) Block(i int) *Block {
	if i < 0 || i >= len(a.Blocks) {
		return nil
	}
	return &a.Blocks[i]
}

// Encode rebuilds the archive. Blocks whose Data is unchanged since Split
// keep their original envelope bytes; edited blocks are recompressed.
func (a *Archive) Encode(c Codec) ([]byte, error) {
	if a.Count == 0 && len(a.Blocks) != 1 {
		return nil, consistencyErrorf("single-block archive holds %d blocks", len(a.Blocks))
	}
	if a.Count != 0 && len(a.Blocks) != int(a.Count) {
		return nil, consistencyErrorf("archive count field %d, %d blocks", a.Count, len(a.Blocks))
	}

	envelopes := make([][]byte, len(a.Blocks))
	for i := range a.Blocks {
		b := &a.Blocks[i]
		if b.Index != i {
			return nil, consistencyErrorf("block at position %d has index %d", i, b.Index)
		}

		if b.Data == nil || (b.Envelope != nil && bytes.Equal(b.Data, b.loaded)) {
			envelopes[i] = b.Envelope
			continue
		}

		env, err := compressEnvelope(c, b.Data)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		envelopes[i] = env
	}

	if a.Count == 0 {
		inline := append(append([]byte{}, envelopes[0]...), a.Unindexed...)
		return writeArchive(a.Version, nil, inline, a.Trailer)
	}
	return writeArchive(a.Version, envelopes, a.Unindexed, a.Trailer)
}

// Join compresses blocks into a new archive. Blocks are ordered by Index,
// which must run 0..N-1. The stored count is N-1 and the offset table
// indexes blocks 0..N-2; block N-1 follows them in the data section, which
// is how the game's own packer lays archives out. With a single block this
// is the inline single-block form.
func Join(version Version, blocks []Block, c Codec) ([]byte, error) {
	if len(blocks) == 0 {
		return nil, consistencyErrorf("no blocks to join")
	}

	sorted := make([]Block, len(blocks))
	copy(sorted, blocks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Index < sorted[j].Index
	})

	envelopes := make([][]byte, len(sorted))
	for i, b := range sorted {
		if b.Index != i {
			return nil, consistencyErrorf("block indices must run 0..%d, found %d at position %d",
				len(sorted)-1, b.Index, i)
		}

		env, err := compressEnvelope(c, b.Data)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", b.Index, err)
		}
		envelopes[i] = env
	}

	last := len(envelopes) - 1
	return writeArchive(version, envelopes[:last], envelopes[last], nil)
}

// writeArchive lays out header, offset table and data section. The offset
// table indexes each of the indexed envelopes; tail is appended after them
// without an entry, and the sentinel covers it.
func writeArchive(version Version, indexed [][]byte, tail, trailer []byte) ([]byte, error) {
	offsets := make([]uint32, 0, len(indexed)+1)

	var section bytes.Buffer
	for _, env := range indexed {
		offsets = append(offsets, uint32(section.Len()))
		section.Write(env)
	}
	section.Write(tail)
	offsets = append(offsets, uint32(section.Len()))

	var buf bytes.Buffer
	buf.Grow(archiveHeaderSize + 4*len(offsets) + section.Len() + len(trailer))

	header := &archiveHeader{
		Magic:   archiveMagic,
		Version: version,
		Count:   uint32(len(indexed)),
	}
	if err := writeArchiveHeader(&buf, header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	if err := writeUint32Array(&buf, offsets); err != nil {
		return nil, fmt.Errorf("write offset table: %w", err)
	}

	buf.Write(section.Bytes())
	buf.Write(trailer)

	return buf.Bytes(), nil
}
