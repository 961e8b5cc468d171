// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

/*
Package wwm reads and writes the asset archives of Where Winds Meet and the
text resource tables stored inside them.

An archive is a container of zstd-compressed blocks. Some blocks decompress
to a resource table: a list of (ID, flag, text) entries whose text offsets
are relative to each entry's own position. This package splits and joins
archives, decodes and re-encodes tables, and converts tables to and from
the delimited record format used by translation tooling.

# Features

  - Split archives into blocks and join blocks into archives
  - Byte-identical rebuild of untouched archives
  - Decode and encode resource tables, keeping opaque header bytes
  - Record table (CSV/TSV) reading and writing, translation overlays
  - Concurrent extraction and multi-archive builds

# Basic Usage

Extracting text:

	codec, err := wwm.NewZstdCodec(0)
	if err != nil {
		log.Fatal(err)
	}
	defer codec.Close()

	archive, err := wwm.OpenArchive("words_map", codec)
	if err != nil {
		log.Fatal(err)
	}

	ext, err := wwm.ExtractText(ctx, archive)
	if err != nil {
		log.Fatal(err)
	}

	err = wwm.WriteRecordsFile("words_map.csv", ext.Records, wwm.DefaultDelimiter)

Packing edited text back:

	records, err := wwm.ReadRecordsFile("words_map.csv", wwm.DefaultDelimiter)
	if err != nil {
		log.Fatal(err)
	}

	data, err := wwm.PackText(ctx, archive, records, codec)
	if err != nil {
		log.Fatal(err)
	}

	err = wwm.WriteFileAtomic("release/words_map", data)

# Archive Layout

All integers are little-endian.

	magic    EF BE AD DE
	version  4 opaque bytes
	count    uint32
	offsets  (count+1) x uint32, last one is the data section length
	data     concatenated block envelopes

A block envelope is a method tag (4 = zstd), the compressed size and the
decompressed size, followed by the compressed payload. With count 0 the
single offset is the length of one inline envelope.

The game's packer indexes every block but the last: the final block sits
after the last indexed one, inside its slice, and is covered only by the
sentinel. [Split] never decodes it; it is kept in [Archive.Unindexed] and
written back by [Archive.Encode].

# Resource Tables

	header      total uint32, 4 opaque, active uint32, 12 opaque
	flags       total bytes
	terminator  0xFF + 16 bytes (see [Terminator])
	entries     total x (8-byte ID, uint32 offset, uint32 length)
	text        concatenated UTF-8 payloads

An entry's offset is counted from the byte after its ID.

# Limitations

  - Only compression method 4 (zstd) is supported
  - Text is treated as opaque; translations are not validated
*/
package wwm
