// Copyright (C) 2020 The boone Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package framing_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codeactual/scrapeagent/internal/framing"
	"github.com/codeactual/scrapeagent/internal/scrape"
)

type line struct {
	TargetConfig json.RawMessage `json:"target_config"`
	Result       *struct {
		Outcome    string `json:"outcome"`
		Type       string `json:"type"`
		Status     string `json:"status"`
		ExitCode   *int   `json:"exit_code"`
		BodySHA256 string `json:"body_sha256"`
		Message    string `json:"message"`
	} `json:"result"`
	Id        string `json:"id"`
	Remaining int    `json:"remaining"`
	Data      string `json:"data"`
}

func parseLines(t *testing.T, raw []byte) []line {
	t.Helper()
	var out []line
	dec := json.NewDecoder(bytes.NewReader(raw))
	for dec.More() {
		var l map[string]json.RawMessage
		require.NoError(t, dec.Decode(&l))

		var parsed line
		b, _ := json.Marshal(l)
		require.NoError(t, json.Unmarshal(b, &parsed))
		out = append(out, parsed)
	}
	return out
}

func cfg() scrape.TargetConfig {
	return scrape.TargetConfig{
		Label:    "t1",
		Interval: 1,
		Action:   scrape.ActionConfig{Type: scrape.ActionHTTP, URL: "http://example.invalid"},
	}
}

func TestPipelineSuccessRecordShapeAndIdConsistency(t *testing.T) {
	var sink bytes.Buffer
	p := framing.NewPipeline(&sink, 2, nil)

	body := strings.Repeat("x", 10000)
	ok := scrape.Ok{Http: &scrape.HTTPResponse{Status: 200, Body: []byte(body)}}

	require.NoError(t, p.Emit(context.Background(), cfg(), ok, nil))

	lines := parseLines(t, sink.Bytes())
	require.Greater(t, len(lines), 1, "expect metadata + at least one chunk")

	meta := lines[0]
	require.NotNil(t, meta.Result)
	require.Equal(t, "Success", meta.Result.Outcome)
	require.Equal(t, "Http", meta.Result.Type)
	require.Equal(t, "200", meta.Result.Status)
	require.NotEmpty(t, meta.Result.BodySHA256)

	for _, c := range lines[1:] {
		require.Equal(t, meta.Result.BodySHA256, c.Id, "invariant 2: chunk id matches metadata body_sha256")
	}
}

func TestPipelineErrorRecordHasNoChunks(t *testing.T) {
	var sink bytes.Buffer
	p := framing.NewPipeline(&sink, 2, nil)

	scrapeErr := scrape.NewErr(scrape.ErrHTTP, "connection refused", nil)
	require.NoError(t, p.Emit(context.Background(), cfg(), scrape.Ok{}, scrapeErr))

	lines := parseLines(t, sink.Bytes())
	require.Len(t, lines, 1, "S6: exactly one metadata record, no chunk records")
	require.Equal(t, "Error", lines[0].Result.Outcome)
	require.Equal(t, "connection refused", lines[0].Result.Message)
}

func TestPipelineEmitsContiguously(t *testing.T) {
	var sink bytes.Buffer
	p := framing.NewPipeline(&sink, 4, nil)

	ok1 := scrape.Ok{Http: &scrape.HTTPResponse{Status: 200, Body: bytes.Repeat([]byte("a"), 6000)}}
	ok2 := scrape.Ok{Http: &scrape.HTTPResponse{Status: 200, Body: bytes.Repeat([]byte("b"), 6000)}}

	require.NoError(t, p.Emit(context.Background(), cfg(), ok1, nil))
	require.NoError(t, p.Emit(context.Background(), cfg(), ok2, nil))

	lines := parseLines(t, sink.Bytes())

	// find the two metadata records (those with a non-empty Result) and verify every
	// chunk between one metadata record and the next shares that metadata's id.
	var currentID string
	seenMeta := 0
	for _, l := range lines {
		if l.Result != nil {
			seenMeta++
			currentID = l.Result.BodySHA256
			continue
		}
		require.Equal(t, currentID, l.Id)
	}
	require.Equal(t, 2, seenMeta)
}

func TestPipelineCommandBodyShaping(t *testing.T) {
	var sink bytes.Buffer
	p := framing.NewPipeline(&sink, 2, nil)

	ok := scrape.Ok{Command: &scrape.CommandResponse{ExitCode: 0, Stdout: []byte("out"), Stderr: []byte("err")}}
	ccfg := cfg()
	ccfg.Action = scrape.ActionConfig{Type: scrape.ActionCommand, Command: "echo"}

	require.NoError(t, p.Emit(context.Background(), ccfg, ok, nil))

	lines := parseLines(t, sink.Bytes())
	require.Equal(t, "Command", lines[0].Result.Type)
	require.NotNil(t, lines[0].Result.ExitCode)
	require.Equal(t, 0, *lines[0].Result.ExitCode)

	// reassemble and decompress to confirm round trip B.
	var compressed []byte
	for _, c := range lines[1:] {
		d, err := base64.StdEncoding.DecodeString(c.Data)
		require.NoError(t, err)
		compressed = append(compressed, d...)
	}
	decompressed, err := framing.Decompress(compressed)
	require.NoError(t, err)
	require.JSONEq(t, `{"stdout":"out","stderr":"err"}`, string(decompressed))
}
