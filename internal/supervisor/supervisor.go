// Copyright (C) 2020 The boone Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package supervisor owns the set of configured targets: it wires each one's action (A) →
// timeout (B) → scheduler cell (C) → handles (D), drives the scheduled handle in its own
// goroutine, fans out unscheduled sweeps, and feeds every outcome to the framing pipeline
// (E). Its goroutine-lifecycle shape (one cancellable context shared by every driver, panic
// recovery per driver) is
// grounded on internal/boone/dispatch.go's Dispatcher/runTarget; its start/stop/sweep API
// shape is grounded on original_source/src/debugbunny.rs's DebugBunny.
package supervisor

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/codeactual/scrapeagent/internal/action"
	cage_zap "github.com/codeactual/scrapeagent/internal/cage/log/zap"
	cage_time "github.com/codeactual/scrapeagent/internal/cage/time"
	"github.com/codeactual/scrapeagent/internal/framing"
	"github.com/codeactual/scrapeagent/internal/scheduler"
	"github.com/codeactual/scrapeagent/internal/scrape"
	"github.com/codeactual/scrapeagent/internal/timeout"
)

// Supervisor owns one scheduler cell (via its two handles) per configured target and the
// pipeline every outcome is emitted through.
type Supervisor struct {
	targets     []scrape.TargetConfig
	scheduled   []*scheduler.ScheduledHandle
	unscheduled []*scheduler.UnscheduledHandle
	pipeline    *framing.Pipeline
	log         *zap.Logger

	cancel context.CancelFunc
	group  *errgroup.Group
}

// New builds the action/timeout/scheduler chain for every target and returns a Supervisor
// ready to Start.
func New(targets []scrape.TargetConfig, pipeline *framing.Pipeline, clock cage_time.Clock, log *zap.Logger) *Supervisor {
	if log == nil {
		log = zap.NewNop()
	}
	if clock == nil {
		clock = cage_time.RealClock{}
	}

	s := &Supervisor{targets: targets, pipeline: pipeline, log: log}

	for _, t := range targets {
		wrapped := timeout.Wrap(buildAction(t), t.GetTimeout())
		sched, unsched := scheduler.NewHandles(wrapped, t.Interval, clock)
		s.scheduled = append(s.scheduled, sched)
		s.unscheduled = append(s.unscheduled, unsched)
	}

	return s
}

func buildAction(cfg scrape.TargetConfig) scrape.Action {
	if cfg.Action.Type == scrape.ActionCommand {
		return action.NewCommandAction(cfg.Action.Command, cfg.Action.Args)
	}
	return action.NewHTTPAction(cfg.Action.Method, cfg.Action.URL)
}

// Start launches one driver goroutine per target, each repeatedly calling its scheduled
// handle and emitting every outcome to the pipeline, until ctx is cancelled or Stop is
// called. Start returns immediately; call Wait to block for shutdown.
//
// The goroutines are joined with a plain errgroup.Group, not errgroup.WithContext: one
// target's panic/error must never cancel the others, so no derived context is shared back
// into the group.
func (s *Supervisor) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	var group errgroup.Group
	s.group = &group

	for idx := range s.targets {
		idx := idx
		group.Go(func() error {
			return s.driveTarget(runCtx, idx)
		})
	}
}

// Stop requests every driver goroutine to end at its next opportunity. It does not block;
// call Wait to block for their actual exit.
func (s *Supervisor) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Wait blocks until every driver goroutine launched by Start has returned.
func (s *Supervisor) Wait() error {
	if s.group == nil {
		return nil
	}
	return s.group.Wait()
}

// driveTarget repeatedly calls the scheduled handle for targets[idx] and emits each
// outcome, until ctx ends the loop. A panic inside one target's driver is recovered and
// reported as this goroutine's error without affecting any other target.
func (s *Supervisor) driveTarget(ctx context.Context, idx int) (err error) {
	cfg := s.targets[idx]

	defer func() {
		if r := recover(); r != nil {
			s.log.Error(
				"target driver panicked",
				cage_zap.Tag("supervisor"),
				zap.String("target", cfg.Label),
				zap.Any("panic", r),
			)
			err = errors.Errorf("target [%s] driver panicked: %v", cfg.Label, r)
		}
	}()

	handle := s.scheduled[idx]

	for {
		ok, scrapeErr := handle.Call(ctx)

		// Every outcome is surfaced, including Cancelled, matching the unscheduled path
		// and original_source/src/debugbunny.rs's launch_scheduled_task, which always
		// calls p.process(&c, s.call().await) regardless of the result. The emission uses a
		// context detached from ctx's cancellation so a Cancelled outcome is still written.
		if emitErr := s.pipeline.Emit(context.WithoutCancel(ctx), cfg, ok, scrapeErr); emitErr != nil {
			s.log.Error(
				"failed to emit scrape outcome",
				cage_zap.Tag("supervisor"),
				zap.String("target", cfg.Label),
				zap.Error(emitErr),
			)
		}

		if scrapeErr != nil && scrapeErr.Kind == scrape.ErrCancelled {
			return nil
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

// TriggerAll fans out one unscheduled call per target and emits every outcome, joining on
// all of them before returning. It reports the first target error encountered, if any,
// but every target's call is still attempted.
func (s *Supervisor) TriggerAll(ctx context.Context) error {
	var group errgroup.Group
	for idx := range s.targets {
		idx := idx
		group.Go(func() error {
			return s.triggerOne(ctx, idx)
		})
	}
	return group.Wait()
}

// TriggerOne invokes the unscheduled handle of the target labelled by label and emits its
// outcome. It is the wiring behind `scrapeagent trigger --target <label>`.
func (s *Supervisor) TriggerOne(ctx context.Context, label string) error {
	idx, found := s.indexOf(label)
	if !found {
		return errors.Errorf("no configured target with label [%s]", label)
	}
	return s.triggerOne(ctx, idx)
}

func (s *Supervisor) triggerOne(ctx context.Context, idx int) error {
	cfg := s.targets[idx]
	ok, scrapeErr := s.unscheduled[idx].Call(ctx)
	if err := s.pipeline.Emit(ctx, cfg, ok, scrapeErr); err != nil {
		return errors.Wrapf(err, "target [%s]", cfg.Label)
	}
	return nil
}

func (s *Supervisor) indexOf(label string) (int, bool) {
	for idx, t := range s.targets {
		if t.Label == label {
			return idx, true
		}
	}
	return 0, false
}
