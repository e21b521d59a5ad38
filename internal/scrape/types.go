// Copyright (C) 2020 The boone Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package scrape holds the data model shared by the action executor, timeout wrapper,
// scheduler and framing pipeline: target configuration, call outcomes and the Action
// contract every executable target implements.
package scrape

import (
	"context"
	"time"
)

// DefaultTimeout is applied to a TargetConfig whose Timeout is unset.
const DefaultTimeout = 2 * time.Second

// ActionType names the two supported scrape target variants.
type ActionType string

const (
	ActionHTTP    ActionType = "Http"
	ActionCommand ActionType = "Command"
)

// ActionConfig is the tagged-variant description of what a target calls. Exactly one
// of the Http-prefixed or Command-prefixed fields is meaningful, selected by Type.
type ActionConfig struct {
	Type ActionType

	// Http fields.
	Method string // defaults to "GET"
	URL    string

	// Command fields.
	Command string
	Args    []string
}

// TargetConfig is the immutable description of one scrape target.
type TargetConfig struct {
	Label    string
	Interval time.Duration
	Timeout  time.Duration
	Action   ActionConfig
}

// GetTimeout returns Timeout, or DefaultTimeout if unset.
func (c TargetConfig) GetTimeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// HTTPResponse is the successful outcome of an Http action.
type HTTPResponse struct {
	Status int
	Body   []byte
}

// CommandResponse is the successful outcome of a Command action.
type CommandResponse struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Ok is the tagged-variant successful outcome of one call. Exactly one of Http/Command
// is non-nil, matching the Action that produced it.
type Ok struct {
	Http    *HTTPResponse
	Command *CommandResponse
}

// ErrKind enumerates the closed taxonomy of scrape failures.
type ErrKind string

const (
	ErrHTTP      ErrKind = "Http"
	ErrIO        ErrKind = "Io"
	ErrTimeout   ErrKind = "Timeout"
	ErrCancelled ErrKind = "Cancelled"
)

// Err is the tagged-variant failure of one call. Cause may be nil (the timeout wrapper's
// Timeout carries only a diagnostic Message); Cancelled errors carry ctx.Err().
type Err struct {
	Kind    ErrKind
	Message string
	Cause   error
}

func (e *Err) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// Unwrap exposes Cause to errors.Is/errors.As and github.com/pkg/errors.Cause/errors.Wrap.
func (e *Err) Unwrap() error {
	return e.Cause
}

// NewErr builds an Err, wrapping cause (which may be nil) with a Message derived from it
// when msg is empty.
func NewErr(kind ErrKind, msg string, cause error) *Err {
	if msg == "" && cause != nil {
		msg = cause.Error()
	}
	return &Err{Kind: kind, Message: msg, Cause: cause}
}

// Action is implemented by every executable scrape target variant (Http, Command).
// Call is single-shot: a fresh call is made per invocation, with no retained state
// between calls.
type Action interface {
	Call(ctx context.Context) (Ok, *Err)
}
