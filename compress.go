// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package wwm

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Codec is the compression primitive used for block payloads. Any
// implementation producing standard zstd frames is accepted by the game.
type Codec interface {
	Compress(src []byte) ([]byte, error)
	Decompress(src []byte) ([]byte, error)
}

// ZstdCodec implements Codec with klauspost/compress. It is safe for
// concurrent use.
type ZstdCodec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewZstdCodec creates a codec compressing at the given zstd level (1-22).
// A level of 0 selects the library default.
func NewZstdCodec(level int) (*ZstdCodec, error) {
	encLevel := zstd.SpeedDefault
	if level > 0 {
		encLevel = zstd.EncoderLevelFromZstd(level)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encLevel), zstd.WithZeroFrames(true))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &ZstdCodec{enc: enc, dec: dec}, nil
}

// Compress returns a single zstd frame holding src.
func (c *ZstdCodec) Compress(src []byte) ([]byte, error) {
	return c.enc.EncodeAll(src, nil), nil
}

// Decompress decodes all zstd frames in src.
func (c *ZstdCodec) Decompress(src []byte) ([]byte, error) {
	out, err := c.dec.DecodeAll(src, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return out, nil
}

// Close releases the encoder and decoder.
func (c *ZstdCodec) Close() error {
	c.dec.Close()
	return c.enc.Close()
}

// compressEnvelope compresses data and wraps it in a block envelope
func compressEnvelope(c Codec, data []byte) ([]byte, error) {
	payload, err := c.Compress(data)
	if err != nil {
		return nil, fmt.Errorf("compress block: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(envelopeHeaderSize + len(payload))

	h := &envelopeHeader{
		Method:           methodZstd,
		CompressedSize:   uint32(len(payload)),
		DecompressedSize: uint32(len(data)),
	}
	if err := writeEnvelopeHeader(&buf, h); err != nil {
		return nil, fmt.Errorf("write envelope header: %w", err)
	}
	buf.Write(payload)

	return buf.Bytes(), nil
}

// decompressEnvelope validates a block envelope and returns the decompressed
// payload. The slice may be longer than the envelope it starts with; the
// surplus is returned untouched.
func decompressEnvelope(c Codec, slice []byte) (data, surplus []byte, err error) {
	if len(slice) < envelopeHeaderSize {
		return nil, nil, formatErrorf(0, "envelope header truncated: %d of %d bytes", len(slice), envelopeHeaderSize)
	}

	h, err := readEnvelopeHeader(slice)
	if err != nil {
		return nil, nil, formatErrorf(0, "read envelope header: %v", err)
	}

	end := envelopeHeaderSize + int64(h.CompressedSize)
	if end > int64(len(slice)) {
		return nil, nil, formatErrorf(envelopeHeaderSize, "declared compressed size %d exceeds block (%d bytes available)",
			h.CompressedSize, len(slice)-envelopeHeaderSize)
	}
	surplus = slice[end:]

	if h.Method != methodZstd {
		return nil, surplus, &UnsupportedMethodError{Method: h.Method}
	}

	data, err = c.Decompress(slice[envelopeHeaderSize:end])
	if err != nil {
		return nil, surplus, formatErrorf(envelopeHeaderSize, "%v", err)
	}

	if uint32(len(data)) != h.DecompressedSize {
		return nil, surplus, formatErrorf(envelopeHeaderSize, "decompressed size %d, header declares %d",
			len(data), h.DecompressedSize)
	}

	return data, surplus, nil
}
