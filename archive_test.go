// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package wwm

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func testBlocks(n int) []Block {
	blocks := make([]Block, n)
	for i := range blocks {
		blocks[i] = Block{
			Index: i,
			Data:  []byte(fmt.Sprintf("block %d payload %s", i, bytes.Repeat([]byte{'x'}, i*10))),
		}
	}
	return blocks
}

func TestJoinSplitRoundTrip(t *testing.T) {
	c := newTestCodec(t)

	for _, n := range []int{1, 2, 3, 8} {
		t.Run(fmt.Sprintf("%d blocks", n), func(t *testing.T) {
			blocks := testBlocks(n)
			data, err := Join(DefaultVersion, blocks, c)
			require.NoError(t, err)

			a, err := Split("test.bin", data, c)
			require.NoError(t, err)
			require.Equal(t, DefaultVersion, a.Version)
			require.Empty(t, a.Warnings())

			if n == 1 {
				require.Equal(t, uint32(0), a.Count)
				require.Len(t, a.Blocks, 1)
				require.Equal(t, blocks[0].Data, a.Blocks[0].Data)
				require.Empty(t, a.Unindexed)
				return
			}

			// Blocks 0..N-2 are indexed; block N-1 is carried unindexed
			require.Equal(t, uint32(n-1), a.Count)
			require.Len(t, a.Blocks, n-1)
			for i := 0; i < n-1; i++ {
				require.Equal(t, i, a.Blocks[i].Index)
				require.Equal(t, blocks[i].Data, a.Blocks[i].Data, "block %d", i)
			}

			lastEnv, err := compressEnvelope(c, blocks[n-1].Data)
			require.NoError(t, err)
			require.Equal(t, lastEnv, a.Unindexed)
		})
	}
}

func TestJoinSortsByIndex(t *testing.T) {
	c := newTestCodec(t)
	blocks := testBlocks(3)
	shuffled := []Block{blocks[2], blocks[0], blocks[1]}

	want, err := Join(DefaultVersion, blocks, c)
	require.NoError(t, err)
	got, err := Join(DefaultVersion, shuffled, c)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestJoinErrors(t *testing.T) {
	c := newTestCodec(t)

	_, err := Join(DefaultVersion, nil, c)
	var ce *ConsistencyError
	require.True(t, errors.As(err, &ce))

	blocks := testBlocks(3)
	blocks[2].Index = 5
	_, err = Join(DefaultVersion, blocks, c)
	require.True(t, errors.As(err, &ce))
}

func TestJoinLayout(t *testing.T) {
	c := newTestCodec(t)
	blocks := testBlocks(3)
	data, err := Join(Version{9, 8, 7, 6}, blocks, c)
	require.NoError(t, err)

	require.Equal(t, []byte{0xEF, 0xBE, 0xAD, 0xDE}, data[0:4])
	require.Equal(t, []byte{9, 8, 7, 6}, data[4:8])
	require.Equal(t, []byte{2, 0, 0, 0}, data[8:12])

	var envs [][]byte
	for _, b := range blocks {
		env, err := compressEnvelope(c, b.Data)
		require.NoError(t, err)
		envs = append(envs, env)
	}

	var want []byte
	want = appendUint32(want, 0)
	want = appendUint32(want, uint32(len(envs[0])))
	want = appendUint32(want, uint32(len(envs[0])+len(envs[1])+len(envs[2])))
	require.Equal(t, want, data[12:24])
	require.Equal(t, bytes.Join(envs, nil), data[24:])
}

func TestSplitSingleBlockScenario(t *testing.T) {
	c := newTestCodec(t)

	table := encodeTestTable(t, "Hello")
	payload, err := c.Compress(table)
	require.NoError(t, err)

	var env []byte
	env = append(env, methodZstd)
	env = appendUint32(env, uint32(len(payload)))
	env = appendUint32(env, uint32(len(table)))
	env = append(env, payload...)

	var data []byte
	data = append(data, 0xEF, 0xBE, 0xAD, 0xDE)
	data = append(data, 0x01, 0x00, 0x00, 0x00)
	data = appendUint32(data, 0)
	data = appendUint32(data, uint32(len(env)))
	data = append(data, env...)

	a, err := Split("single.bin", data, c)
	require.NoError(t, err)
	require.Len(t, a.Blocks, 1)
	require.NoError(t, a.Blocks[0].Err)

	decoded, err := DecodeTable(a.Blocks[0].Data)
	require.NoError(t, err)
	records := TableRecords("single_0.dat", 1, decoded)
	require.Len(t, records, 1)
	require.Equal(t, testID(0), records[0].ID)
	require.Equal(t, "Hello", records[0].Text)

	rebuilt, err := a.Encode(c)
	require.NoError(t, err)
	require.Equal(t, data, rebuilt)
}

func TestSplitArchiveErrors(t *testing.T) {
	c := newTestCodec(t)
	good, err := Join(DefaultVersion, testBlocks(3), c)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"truncated header", func(b []byte) []byte { return b[:6] }},
		{"bad magic", func(b []byte) []byte { b[0] = 0x00; return b }},
		{"offset table beyond archive", func(b []byte) []byte {
			putUint32(b[8:12], 1<<20)
			return b
		}},
		{"decreasing offsets", func(b []byte) []byte {
			putUint32(b[20:24], 0)
			putUint32(b[16:20], 50)
			return b
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.mutate(append([]byte{}, good...))
			_, err := Split("bad.bin", data, c)
			require.Error(t, err)
			var fe *FormatError
			require.True(t, errors.As(err, &fe), "got %T: %v", err, err)
		})
	}
}

func TestSplitBlockErrorsAreIsolated(t *testing.T) {
	c := newTestCodec(t)
	blocks := testBlocks(4)
	good, err := Join(DefaultVersion, blocks, c)
	require.NoError(t, err)

	// Data section starts after 12-byte header and 4 offsets
	const dataStart = 12 + 4*4

	t.Run("unsupported method", func(t *testing.T) {
		data := append([]byte{}, good...)
		data[dataStart] = 0x02

		a, err := Split("bad.bin", data, c)
		require.NoError(t, err)

		var ume *UnsupportedMethodError
		require.True(t, errors.As(a.Blocks[0].Err, &ume))
		require.Equal(t, uint8(0x02), ume.Method)

		var be *BlockError
		require.True(t, errors.As(a.Blocks[0].Err, &be))
		require.Equal(t, 0, be.Index)
		require.Equal(t, int64(dataStart), be.Offset)

		require.NoError(t, a.Blocks[1].Err)
		require.Equal(t, blocks[1].Data, a.Blocks[1].Data)
		require.Equal(t, blocks[2].Data, a.Blocks[2].Data)
		require.Len(t, a.Warnings(), 1)

		// The broken block survives a rebuild untouched
		rebuilt, err := a.Encode(c)
		require.NoError(t, err)
		require.Equal(t, data, rebuilt)
	})

	t.Run("declared length exceeds slice", func(t *testing.T) {
		data := append([]byte{}, good...)
		putUint32(data[dataStart+1:dataStart+5], 0xFFFFFF)

		a, err := Split("bad.bin", data, c)
		require.NoError(t, err)

		var fe *FormatError
		require.True(t, errors.As(a.Blocks[0].Err, &fe))
		require.Equal(t, blocks[1].Data, a.Blocks[1].Data)
	})

	t.Run("truncated archive", func(t *testing.T) {
		data := append([]byte{}, good...)
		off1 := int(data[16]) | int(data[17])<<8 | int(data[18])<<16 | int(data[19])<<24
		data = data[:dataStart+off1+4]

		a, err := Split("bad.bin", data, c)
		require.NoError(t, err)
		require.NoError(t, a.Blocks[0].Err)
		require.Error(t, a.Blocks[1].Err)
		require.Error(t, a.Blocks[2].Err)
		require.Len(t, a.Warnings(), 2)
	})
}

func TestArchiveEncode(t *testing.T) {
	c := newTestCodec(t)
	blocks := testBlocks(4)
	original, err := Join(DefaultVersion, blocks, c)
	require.NoError(t, err)

	a, err := Split("test.bin", original, c)
	require.NoError(t, err)

	unchanged, err := a.Encode(c)
	require.NoError(t, err)
	require.Equal(t, original, unchanged)

	a.Blocks[1].Data = []byte("replacement data for block one")
	edited, err := a.Encode(c)
	require.NoError(t, err)

	b, err := Split("test.bin", edited, c)
	require.NoError(t, err)
	require.Equal(t, a.Count, b.Count)
	require.Equal(t, blocks[0].Data, b.Blocks[0].Data)
	require.Equal(t, []byte("replacement data for block one"), b.Blocks[1].Data)
	require.Equal(t, blocks[2].Data, b.Blocks[2].Data)
	require.Equal(t, a.Unindexed, b.Unindexed)
}

func TestArchiveEncodeInlineSurplus(t *testing.T) {
	c := newTestCodec(t)
	env, err := compressEnvelope(c, []byte("inline block payload"))
	require.NoError(t, err)
	extra := []byte{0x01, 0x02, 0x03, 0x04, 0x05}

	// Count 0 with a sentinel covering the envelope and 5 more bytes
	var data []byte
	data = append(data, 0xEF, 0xBE, 0xAD, 0xDE)
	data = append(data, DefaultVersion[:]...)
	data = appendUint32(data, 0)
	data = appendUint32(data, uint32(len(env)+len(extra)))
	data = append(data, env...)
	data = append(data, extra...)

	a, err := Split("inline.bin", data, c)
	require.NoError(t, err)
	require.Len(t, a.Blocks, 1)
	require.NoError(t, a.Blocks[0].Err)
	require.Equal(t, env, a.Blocks[0].Envelope)
	require.Equal(t, extra, a.Unindexed)

	rebuilt, err := a.Encode(c)
	require.NoError(t, err)
	require.Equal(t, data, rebuilt)

	// Same for a block that fails to decode
	broken := append([]byte{}, data...)
	broken[archiveHeaderSize+4] = 0x02

	b, err := Split("inline.bin", broken, c)
	require.NoError(t, err)
	require.Error(t, b.Blocks[0].Err)

	rebuilt, err = b.Encode(c)
	require.NoError(t, err)
	require.Equal(t, broken, rebuilt)
}

func TestArchiveTrailer(t *testing.T) {
	c := newTestCodec(t)
	data, err := Join(DefaultVersion, testBlocks(3), c)
	require.NoError(t, err)
	data = append(data, 0xDE, 0xAD)

	a, err := Split("test.bin", data, c)
	require.NoError(t, err)
	require.Equal(t, []byte{0xDE, 0xAD}, a.Trailer)

	rebuilt, err := a.Encode(c)
	require.NoError(t, err)
	require.Equal(t, data, rebuilt)
}

func TestArchiveEncodeCountMismatch(t *testing.T) {
	c := newTestCodec(t)
	a := &Archive{Count: 3, Blocks: testBlocks(2)}
	_, err := a.Encode(c)
	var ce *ConsistencyError
	require.True(t, errors.As(err, &ce))
}
