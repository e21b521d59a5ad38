// Copyright (C) 2020 The boone Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package action

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/codeactual/scrapeagent/internal/scrape"
)

// CommandAction spawns one subprocess per Call, capturing stdout/stderr. The child is
// killed when ctx is cancelled before it exits — the Go analogue of the original source's
// kill_on_drop(true) subprocess contract.
type CommandAction struct {
	Program string
	Args    []string
}

// NewCommandAction returns a CommandAction for program with the given argv.
func NewCommandAction(program string, args []string) *CommandAction {
	return &CommandAction{Program: program, Args: args}
}

// Call runs the subprocess to completion (or until ctx ends it).
func (a *CommandAction) Call(ctx context.Context) (scrape.Ok, *scrape.Err) {
	cmd := exec.CommandContext(ctx, a.Program, a.Args...)
	cmd.WaitDelay = 0 // kill immediately on ctx cancel rather than waiting out a grace period

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() == context.Canceled {
			return scrape.Ok{}, scrape.NewErr(scrape.ErrCancelled, "call cancelled", ctx.Err())
		}
		if ctx.Err() == context.DeadlineExceeded {
			return scrape.Ok{}, scrape.NewErr(scrape.ErrTimeout, "call deadline exceeded", ctx.Err())
		}

		var exitErr *exec.ExitError
		if ok := asExitError(err, &exitErr); ok {
			return scrape.Ok{
				Command: &scrape.CommandResponse{
					ExitCode: exitErr.ExitCode(),
					Stdout:   stdout.Bytes(),
					Stderr:   stderr.Bytes(),
				},
			}, nil
		}

		return scrape.Ok{}, scrape.NewErr(scrape.ErrIO, "failed to run command", err)
	}

	return scrape.Ok{
		Command: &scrape.CommandResponse{
			ExitCode: 0,
			Stdout:   stdout.Bytes(),
			Stderr:   stderr.Bytes(),
		},
	}, nil
}

// asExitError reports whether err is an *exec.ExitError, i.e. the process ran and exited
// non-zero rather than failing to spawn. A non-zero exit is a successful ScrapeOk per §4.A
// ("produce the Output") — only spawn/IO failures map to ErrIO.
func asExitError(err error, target **exec.ExitError) bool {
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return false
	}
	*target = exitErr
	return true
}

var _ scrape.Action = (*CommandAction)(nil)
