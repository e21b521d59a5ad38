// Copyright (C) 2020 The boone Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package framing

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	cage_zap "github.com/codeactual/scrapeagent/internal/cage/log/zap"
	"github.com/codeactual/scrapeagent/internal/scrape"
)

// zstdLevel matches §4.E's "zstd level 10" — klauspost/compress exposes levels as named
// encoder options rather than raw integers; SpeedBetterCompression is its closest named
// level to "10" on the conventional 1-22 zstd scale (it targets the same compression-vs-
// speed tradeoff point as zstd's reference CLI level ~9-12).
const zstdLevel = zstd.SpeedBetterCompression

// Pipeline compresses, chunks and emits one call's outcome as newline-delimited JSON
// records to a Sink. Compression/chunking run on the calling goroutine (a per-target
// driver goroutine), with a semaphore bounding how many emissions do that work at once;
// only the final byte writes to the sink happen under the sink's own lock.
type Pipeline struct {
	sink      Sink
	chunkSize int
	sem       *semaphore.Weighted
	log       *zap.Logger
}

// Sink is an append-only byte destination. *os.File and os.Stdout both satisfy it.
type Sink interface {
	Write(p []byte) (int, error)
}

// NewPipeline returns a Pipeline writing to sink, allowing at most maxWorkers emissions
// to run their compression/chunking work concurrently.
func NewPipeline(sink Sink, maxWorkers int64, log *zap.Logger) *Pipeline {
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		sink:      &syncSink{w: sink},
		chunkSize: DefaultChunkSize,
		sem:       semaphore.NewWeighted(maxWorkers),
		log:       log,
	}
}

// syncSink serializes writes to the underlying Sink under its own lock, per §5's "the
// sink — exclusive-mutation under its own lock."
type syncSink struct {
	mu sync.Mutex
	w  Sink
}

func (s *syncSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// Emit waits for a worker slot, runs the (possibly expensive) compression/chunking/JSON-
// encoding work for one call outcome on the caller's goroutine, then writes the resulting
// records to the sink
// contiguously — the metadata record followed immediately by all of its chunk records,
// with no other emitter interleaved in between.
func (p *Pipeline) Emit(ctx context.Context, cfg scrape.TargetConfig, ok scrape.Ok, scrapeErr *scrape.Err) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return errors.Wrap(err, "failed to acquire framing worker slot")
	}
	defer p.sem.Release(1)

	lines, err := p.buildLines(cfg, ok, scrapeErr)
	if err != nil {
		// JSON encoding of fully-controlled inputs is treated as infallible; a failure
		// here is a programming error. Abort only this emission, not the process, so one
		// malformed payload never takes unrelated targets down with it.
		p.log.DPanic("failed to build framing records",
			cage_zap.Tag("pipeline"),
			zap.String("target", cfg.Label),
			zap.Error(err),
		)
		return errors.Wrap(err, "failed to build framing records")
	}

	if _, err := p.sink.Write(lines); err != nil {
		p.log.Error("failed to write framing records to sink",
			cage_zap.Tag("pipeline"),
			zap.String("target", cfg.Label),
			zap.Error(err),
		)
		return errors.Wrap(err, "failed to write framing records to sink")
	}

	return nil
}

// buildLines performs every step that does not require the sink lock: body shaping,
// compression, chunking and JSON encoding of all records for one call.
func (p *Pipeline) buildLines(cfg scrape.TargetConfig, ok scrape.Ok, scrapeErr *scrape.Err) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	if scrapeErr != nil {
		return encodeErrorRecord(enc, &buf, cfg, scrapeErr)
	}

	body := shapeBody(ok)
	compressed, err := compress(body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compress body")
	}

	chunks := FromBytes(compressed, p.chunkSize)

	if err := enc.Encode(buildMetadataRecord(cfg, ok, nil, chunks.Id())); err != nil {
		return nil, errors.WithStack(err)
	}
	for _, c := range chunks.ChunkList() {
		if err := enc.Encode(chunkToRecord(chunks.Id(), c)); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	return buf.Bytes(), nil
}

func encodeErrorRecord(enc *json.Encoder, buf *bytes.Buffer, cfg scrape.TargetConfig, scrapeErr *scrape.Err) ([]byte, error) {
	if err := enc.Encode(buildMetadataRecord(cfg, scrape.Ok{}, scrapeErr, Id{})); err != nil {
		return nil, errors.WithStack(err)
	}
	return buf.Bytes(), nil
}

// compress returns body compressed at zstdLevel. The returned stream's SHA-256 is the
// content id shared by the metadata record's body_sha256 and every chunk's id.
func compress(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstdLevel))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		return nil, errors.WithStack(err)
	}
	if err := w.Close(); err != nil {
		return nil, errors.WithStack(err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses compress, used by consumers reassembling a body from its chunks.
func Decompress(compressed []byte) ([]byte, error) {
	r, err := zstd.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return out, nil
}
