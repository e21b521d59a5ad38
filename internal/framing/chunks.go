// Copyright (C) 2020 The boone Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package framing implements the chunked, content-addressed log framing pipeline:
// content ids, the Chunks contiguous/split equivalence, zstd compression and the
// newline-delimited JSON record emission.
//
// Chunks/Id and their round-trip invariants are grounded precisely on
// original_source/src/chunkify.rs (Chunks::from, Chunks::from_split, ChunksRead).
package framing

import (
	"crypto/sha256"
)

// DefaultChunkSize is chosen so a base64-encoded chunk plus its JSON envelope fits under a
// 4096-byte journald record limit: ceil(2922/3)*4 = 3896 bytes of base64, leaving ~200
// bytes for envelope keys.
const DefaultChunkSize = 2922

// Id is a content hash: the SHA-256 digest of a Chunks' logical byte string.
type Id [sha256.Size]byte

// Hex renders the id as lowercase hex, the wire representation used in log records.
func (id Id) Hex() string {
	const hextable = "0123456789abcdef"
	buf := make([]byte, len(id)*2)
	for i, b := range id {
		buf[i*2] = hextable[b>>4]
		buf[i*2+1] = hextable[b&0x0f]
	}
	return string(buf)
}

// Chunk is one piece of a Chunks sequence. Remaining is the number of bytes from the start
// of this chunk to the end of the logical buffer, so the first chunk's Remaining equals the
// total length and the last chunk's Remaining equals its own length.
type Chunk struct {
	Remaining int
	Data      []byte
}

// Chunks is a logical byte string exposed in two equivalent physical shapes: one owned
// contiguous buffer (chunkSize remembered only to drive chunking), or an ordered list of
// chunks built independently (e.g. decoded off the wire). Both shapes report the same Id
// and the same logical bytes via Bytes/ChunkList. Chunks is immutable after construction.
type Chunks struct {
	id        Id
	owned     []byte
	chunkSize int
	split     []Chunk
}

// FromBytes builds a Chunks from one contiguous buffer, chunked into pieces of size (or
// DefaultChunkSize if size <= 0).
func FromBytes(data []byte, size int) Chunks {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return Chunks{
		id:        Id(sha256.Sum256(data)),
		owned:     data,
		chunkSize: size,
	}
}

// FromChunks builds a Chunks from an already-split chunk list (e.g. reassembled from log
// records), computing the id as the SHA-256 of the concatenation of all chunk bytes in
// order — which the invariant in §8.5 requires to equal the id of the equivalent
// contiguous buffer.
func FromChunks(chunks []Chunk) Chunks {
	h := sha256.New()
	for _, c := range chunks {
		h.Write(c.Data)
	}
	var id Id
	copy(id[:], h.Sum(nil))
	return Chunks{
		id:    id,
		split: append([]Chunk{}, chunks...),
	}
}

// Id returns the content id shared by every chunk in this sequence.
func (c Chunks) Id() Id {
	return c.id
}

// ChunkList returns the sequence as an ordered list of chunks, computing them lazily from
// the contiguous buffer if Chunks was built via FromBytes.
func (c Chunks) ChunkList() []Chunk {
	if c.split != nil {
		return c.split
	}

	total := len(c.owned)
	var out []Chunk
	for offset := 0; offset < total; offset += c.chunkSize {
		end := offset + c.chunkSize
		if end > total {
			end = total
		}
		out = append(out, Chunk{
			Remaining: total - offset,
			Data:      c.owned[offset:end],
		})
	}
	return out
}

// Bytes returns the full logical byte string, concatenating the chunk list if Chunks was
// built via FromChunks.
func (c Chunks) Bytes() []byte {
	if c.owned != nil {
		return c.owned
	}

	var total int
	for _, ch := range c.split {
		total += len(ch.Data)
	}
	out := make([]byte, 0, total)
	for _, ch := range c.split {
		out = append(out, ch.Data...)
	}
	return out
}
