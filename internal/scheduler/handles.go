// Copyright (C) 2020 The boone Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package scheduler

import (
	"context"
	"time"

	cage_time "github.com/codeactual/scrapeagent/internal/cage/time"
	"github.com/codeactual/scrapeagent/internal/scrape"
)

// ScheduledHandle calls the underlying action only once it is due, sleeping until then
// otherwise. It implements scrape.Action so it composes transparently with the rest of
// the pipeline (timeout wrapper, framing pipeline).
type ScheduledHandle struct {
	cell *cell
}

// UnscheduledHandle calls the underlying action unconditionally, serialised against any
// concurrent scheduled call via the shared cell lock, and resets the schedule afterward.
type UnscheduledHandle struct {
	cell *cell
}

// NewHandles builds a scheduler cell for action/interval and returns the scheduled and
// unscheduled handles sharing it. Both handles observe the same nextWakeup state.
func NewHandles(action scrape.Action, interval time.Duration, clock cage_time.Clock) (*ScheduledHandle, *UnscheduledHandle) {
	c := newCell(action, interval, clock)
	return &ScheduledHandle{cell: c}, &UnscheduledHandle{cell: c}
}

// Call blocks until the target is due, then invokes the action under the cell lock and
// advances the schedule. It loops: a caller may need to sleep, wake to find another
// handle already consumed the due window, and sleep again.
func (h *ScheduledHandle) Call(ctx context.Context) (scrape.Ok, *scrape.Err) {
	c := h.cell
	for {
		if ctx.Err() != nil {
			return scrape.Ok{}, scrape.NewErr(scrape.ErrCancelled, "call cancelled", ctx.Err())
		}

		c.mu.Lock()
		now := c.clock.Now()
		if c.isDue(now) {
			ok, err := c.action.Call(ctx)
			c.advance(c.clock.Now())
			c.mu.Unlock()
			return ok, err
		}
		wakeup := c.nextWakeup
		c.mu.Unlock()

		if cancelled := sleepUntil(ctx, c.clock, wakeup); cancelled {
			return scrape.Ok{}, scrape.NewErr(scrape.ErrCancelled, "call cancelled", ctx.Err())
		}
	}
}

// Call invokes the action unconditionally, serialised against scheduled calls by the
// shared cell lock, and resets the schedule so the next scheduled call is a full interval
// away. If ctx is already cancelled, the action is never invoked.
func (h *UnscheduledHandle) Call(ctx context.Context) (scrape.Ok, *scrape.Err) {
	if ctx.Err() != nil {
		return scrape.Ok{}, scrape.NewErr(scrape.ErrCancelled, "call cancelled", ctx.Err())
	}

	c := h.cell
	c.mu.Lock()
	defer c.mu.Unlock()

	ok, err := c.action.Call(ctx)
	c.reset(c.clock.Now())
	return ok, err
}

// sleepUntil blocks the calling goroutine until wakeup or until ctx is cancelled,
// whichever is first, reporting whether cancellation won the race.
func sleepUntil(ctx context.Context, clock cage_time.Clock, wakeup time.Time) (cancelled bool) {
	d := wakeup.Sub(clock.Now())
	if d <= 0 {
		return false
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return true
	case <-timer.C():
		return false
	}
}

var (
	_ scrape.Action = (*ScheduledHandle)(nil)
	_ scrape.Action = (*UnscheduledHandle)(nil)
)
