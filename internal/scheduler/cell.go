// Copyright (C) 2020 The boone Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package scheduler implements the per-target synchronised scheduler cell and the dual
// scheduled/unscheduled handle facade built on top of it.
//
// The catch-up math in advance/reset is grounded precisely on
// original_source/src/scrape_target.rs's SyncedService::set_next_wake_up_time. The cell/handle
// split mirrors that file's Arc<Mutex<...>> shared between ScheduledScrapeTarget and
// UnscheduledScrapeTarget. The mockable Clock/Timer abstraction is carried over from
// internal/cage/time, which codeactual-boone already used for the same purpose.
package scheduler

import (
	"sync"
	"time"

	cage_time "github.com/codeactual/scrapeagent/internal/cage/time"
	"github.com/codeactual/scrapeagent/internal/scrape"
)

// cell holds one target's mutable schedule state, guarded by its own lock. It is shared by
// reference between the scheduled and unscheduled handles built from it (see handles.go).
type cell struct {
	mu sync.Mutex

	action     scrape.Action
	interval   time.Duration
	nextWakeup time.Time

	clock cage_time.Clock
}

// newCell constructs a cell whose nextWakeup starts at "now".
func newCell(action scrape.Action, interval time.Duration, clock cage_time.Clock) *cell {
	return &cell{
		action:     action,
		interval:   interval,
		nextWakeup: clock.Now(),
		clock:      clock,
	}
}

// isDue reports whether now has reached or passed nextWakeup. Caller must hold mu.
func (c *cell) isDue(now time.Time) bool {
	return !now.Before(c.nextWakeup)
}

// advance applies the catch-up policy after a scheduled call completes at now. If the call
// finished before nextWakeup was due, nextWakeup is untouched. Otherwise it advances by
// exactly enough whole intervals to pass now — an overrun of k intervals advances the
// schedule by k+1 intervals (never runaway, never a burst of missed ticks). Caller must
// hold mu.
func (c *cell) advance(now time.Time) {
	if now.Before(c.nextWakeup) {
		return
	}
	delta := now.Sub(c.nextWakeup)
	k := int64(delta/c.interval) + 1
	c.nextWakeup = c.nextWakeup.Add(time.Duration(k) * c.interval)
}

// reset applies after an unscheduled call completes at now: nextWakeup jumps to now, then
// advance(now) is applied on top (with now == nextWakeup it adds exactly one interval), so
// the next scheduled call is exactly one interval away. Caller must hold mu.
func (c *cell) reset(now time.Time) {
	c.nextWakeup = now
	c.advance(now)
}
