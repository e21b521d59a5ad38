// Copyright (C) 2020 The boone Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package supervisor_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codeactual/scrapeagent/internal/framing"
	"github.com/codeactual/scrapeagent/internal/scrape"
	"github.com/codeactual/scrapeagent/internal/supervisor"
)

// syncBuffer is a goroutine-safe io.Writer, standing in for the framing.Pipeline's sink in
// tests that drive multiple concurrent target goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte{}, s.buf.Bytes()...)
}

func countMetadataRecords(t *testing.T, raw []byte) int {
	t.Helper()
	count := 0
	dec := json.NewDecoder(bytes.NewReader(raw))
	for dec.More() {
		var rec struct {
			Result json.RawMessage `json:"result"`
		}
		require.NoError(t, dec.Decode(&rec))
		if rec.Result != nil {
			count++
		}
	}
	return count
}

// TestStartDrivesTargetsUntilStopped mirrors S1/S5: multiple targets scrape concurrently
// on their own schedule, and Stop/Wait ends every driver promptly.
func TestStartDrivesTargetsUntilStopped(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	targets := []scrape.TargetConfig{
		{Label: "a", Interval: 15 * time.Millisecond, Action: scrape.ActionConfig{Type: scrape.ActionHTTP, URL: srv.URL}},
		{Label: "b", Interval: 15 * time.Millisecond, Action: scrape.ActionConfig{Type: scrape.ActionHTTP, URL: srv.URL}},
	}

	var sink syncBuffer
	pipeline := framing.NewPipeline(&sink, 4, nil)
	sup := supervisor.New(targets, pipeline, nil, nil)

	sup.Start(context.Background())
	time.Sleep(120 * time.Millisecond)
	sup.Stop()

	done := make(chan error, 1)
	go func() { done <- sup.Wait() }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return promptly after Stop")
	}

	require.GreaterOrEqual(t, int(atomic.LoadInt32(&hits)), 2, "expected multiple scheduled calls across both targets")
	require.GreaterOrEqual(t, countMetadataRecords(t, sink.Bytes()), 2)
}

// TestTriggerAllEmitsOneRecordPerTarget covers the unscheduled sweep: every target is
// called exactly once, regardless of its own schedule.
func TestTriggerAllEmitsOneRecordPerTarget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	targets := []scrape.TargetConfig{
		{Label: "a", Interval: time.Hour, Action: scrape.ActionConfig{Type: scrape.ActionHTTP, URL: srv.URL}},
		{Label: "b", Interval: time.Hour, Action: scrape.ActionConfig{Type: scrape.ActionCommand, Command: "true"}},
	}

	var sink syncBuffer
	pipeline := framing.NewPipeline(&sink, 4, nil)
	sup := supervisor.New(targets, pipeline, nil, nil)

	require.NoError(t, sup.TriggerAll(context.Background()))
	require.Equal(t, 2, countMetadataRecords(t, sink.Bytes()))
}

func TestTriggerOneUnknownLabelErrors(t *testing.T) {
	targets := []scrape.TargetConfig{
		{Label: "a", Interval: time.Hour, Action: scrape.ActionConfig{Type: scrape.ActionCommand, Command: "true"}},
	}

	var sink syncBuffer
	pipeline := framing.NewPipeline(&sink, 1, nil)
	sup := supervisor.New(targets, pipeline, nil, nil)

	err := sup.TriggerOne(context.Background(), "nope")
	require.Error(t, err)
	require.Contains(t, err.Error(), "nope")
}

func TestTriggerOneEmitsExactlyOneRecord(t *testing.T) {
	targets := []scrape.TargetConfig{
		{Label: "disk", Interval: time.Hour, Action: scrape.ActionConfig{Type: scrape.ActionCommand, Command: "true"}},
	}

	var sink syncBuffer
	pipeline := framing.NewPipeline(&sink, 1, nil)
	sup := supervisor.New(targets, pipeline, nil, nil)

	require.NoError(t, sup.TriggerOne(context.Background(), "disk"))
	require.Equal(t, 1, countMetadataRecords(t, sink.Bytes()))
}
