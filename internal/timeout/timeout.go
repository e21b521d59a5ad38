// Copyright (C) 2020 The boone Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package timeout wraps a scrape.Action so one call is bounded by a deadline and by an
// externally supplied cancellation context, racing the two against the action itself.
//
// The composition style — a function wrapping one interface value, returning another of
// the same shape — follows bassosimone-nop's Compose/Func convention, adapted here from a
// stateless request/response wrapper into one that must also classify *which* of three
// racing sources resolved first.
package timeout

import (
	"context"
	"time"

	"github.com/codeactual/scrapeagent/internal/scrape"
)

// Action wraps an inner scrape.Action with a per-call deadline. Cancellation of the ctx
// passed to Call always wins over the deadline, even if both become ready simultaneously.
type Action struct {
	inner    scrape.Action
	deadline time.Duration
}

// Wrap returns a scrape.Action that bounds inner by deadline.
func Wrap(inner scrape.Action, deadline time.Duration) *Action {
	return &Action{inner: inner, deadline: deadline}
}

type callResult struct {
	ok  scrape.Ok
	err *scrape.Err
}

// Call races three sources: the inner action, a deadline timer, and ctx cancellation. The
// inner action's own context (derived from ctx) is cancelled as soon as either the deadline
// or ctx itself fires, cascading kill-on-cancel to a child subprocess when applicable.
func (a *Action) Call(ctx context.Context) (scrape.Ok, *scrape.Err) {
	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan callResult, 1)
	go func() {
		ok, err := a.inner.Call(callCtx)
		done <- callResult{ok, err}
	}()

	timer := time.NewTimer(a.deadline)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return scrape.Ok{}, scrape.NewErr(scrape.ErrCancelled, "call cancelled", ctx.Err())
	case r := <-done:
		return r.ok, r.err
	case <-timer.C:
		// Cancel always wins: re-check in case ctx fired in the same instant the timer
		// did, rather than trust select's pseudo-random tie-break between ready cases.
		select {
		case <-ctx.Done():
			return scrape.Ok{}, scrape.NewErr(scrape.ErrCancelled, "call cancelled", ctx.Err())
		default:
		}
		return scrape.Ok{}, scrape.NewErr(scrape.ErrTimeout, "call deadline exceeded", nil)
	}
}

var _ scrape.Action = (*Action)(nil)
