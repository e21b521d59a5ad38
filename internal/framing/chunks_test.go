// Copyright (C) 2020 The boone Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package framing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codeactual/scrapeagent/internal/framing"
)

func sequentialBytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 256)
	}
	return b
}

// TestSplitAndContiguousHaveSameId mirrors original_source's split_and_contiguous_has_same_id.
func TestSplitAndContiguousHaveSameId(t *testing.T) {
	data := sequentialBytes(7654)

	contiguous := framing.FromBytes(data, framing.DefaultChunkSize)
	id0 := contiguous.Id()
	require.NotEqual(t, framing.Id{}, id0)

	split := framing.FromChunks(contiguous.ChunkList())
	require.Equal(t, id0, split.Id())
}

// TestSplitAndContiguousHaveSameContent mirrors original_source's
// split_and_contiguous_have_same_content — S4 in SPEC_FULL.md §8.
func TestSplitAndContiguousHaveSameContent(t *testing.T) {
	data := sequentialBytes(7654)

	contiguous := framing.FromBytes(data, framing.DefaultChunkSize)
	split := framing.FromChunks(contiguous.ChunkList())

	require.NotEmpty(t, split.Bytes())
	require.Equal(t, contiguous.Bytes(), split.Bytes())
}

// TestChunkRemainingInvariant covers §8 invariants 3 and 4.
func TestChunkRemainingInvariant(t *testing.T) {
	data := sequentialBytes(7654)
	chunks := framing.FromBytes(data, 2922).ChunkList()
	require.Greater(t, len(chunks), 1)

	for i := 0; i < len(chunks)-1; i++ {
		require.Equal(t, chunks[i+1].Remaining, chunks[i].Remaining-len(chunks[i].Data))
		require.Equal(t, len(chunks[0].Data), len(chunks[i].Data), "all but last chunk equal length")
	}
	last := chunks[len(chunks)-1]
	require.Equal(t, len(last.Data), last.Remaining)
	require.LessOrEqual(t, len(last.Data), len(chunks[0].Data))
}

// TestConcatenatedChunksHashToCommonId covers §8 invariant 5.
func TestConcatenatedChunksHashToCommonId(t *testing.T) {
	data := sequentialBytes(7654)
	contiguous := framing.FromBytes(data, 2922)
	chunks := contiguous.ChunkList()

	var buf []byte
	for _, c := range chunks {
		buf = append(buf, c.Data...)
	}

	recomputed := framing.FromBytes(buf, 2922)
	require.Equal(t, contiguous.Id(), recomputed.Id())
}

func TestEmptyBodyProducesZeroChunks(t *testing.T) {
	chunks := framing.FromBytes(nil, framing.DefaultChunkSize)
	require.Empty(t, chunks.ChunkList())
}

func TestBodyShorterThanOneChunk(t *testing.T) {
	data := sequentialBytes(100)
	chunks := framing.FromBytes(data, framing.DefaultChunkSize).ChunkList()
	require.Len(t, chunks, 1)
	require.Equal(t, 100, chunks[0].Remaining)
	require.Equal(t, 100, len(chunks[0].Data))
}

func TestIdHexIsLowercase32Bytes(t *testing.T) {
	chunks := framing.FromBytes([]byte("hello"), framing.DefaultChunkSize)
	hex := chunks.Id().Hex()
	require.Len(t, hex, 64)
	require.Regexp(t, "^[0-9a-f]{64}$", hex)
}
