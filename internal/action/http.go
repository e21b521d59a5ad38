// Copyright (C) 2020 The boone Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package action implements the two scrape.Action variants: an HTTP GET and a subprocess
// invocation. Both fully materialize their output before Call returns, so no I/O survives
// the caller's timeout window.
package action

import (
	"context"
	"io"
	"net/http"

	"github.com/codeactual/scrapeagent/internal/scrape"
)

// HTTPAction issues one request per Call. It implements scrape.Action.
type HTTPAction struct {
	Client *http.Client
	Method string
	URL    string
}

// NewHTTPAction returns an HTTPAction using http.DefaultClient's transport settings but
// its own *http.Client instance so per-target tuning never leaks across targets.
func NewHTTPAction(method, url string) *HTTPAction {
	if method == "" {
		method = http.MethodGet
	}
	return &HTTPAction{
		Client: &http.Client{},
		Method: method,
		URL:    url,
	}
}

// Call performs one request. The response body is fully drained before returning, so the
// timeout wrapper's deadline always bounds the complete transfer, never a lazily-read body.
func (a *HTTPAction) Call(ctx context.Context) (scrape.Ok, *scrape.Err) {
	req, err := http.NewRequestWithContext(ctx, a.Method, a.URL, nil)
	if err != nil {
		return scrape.Ok{}, scrape.NewErr(scrape.ErrHTTP, "", err)
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return scrape.Ok{}, classifyContextErr(ctx)
		}
		return scrape.Ok{}, scrape.NewErr(scrape.ErrHTTP, "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return scrape.Ok{}, classifyContextErr(ctx)
		}
		return scrape.Ok{}, scrape.NewErr(scrape.ErrHTTP, "failed to read response body", err)
	}

	return scrape.Ok{
		Http: &scrape.HTTPResponse{
			Status: resp.StatusCode,
			Body:   body,
		},
	}, nil
}

// classifyContextErr is used by HTTPAction to tell a context cancellation apart from a
// context deadline exceeded once the inner call has already observed ctx.Err() != nil
// (CommandAction makes the same distinction inline). The timeout wrapper (internal/timeout) races these explicitly
// too, but an action can also observe them indirectly via a transport failure.
func classifyContextErr(ctx context.Context) *scrape.Err {
	if ctx.Err() == context.Canceled {
		return scrape.NewErr(scrape.ErrCancelled, "call cancelled", ctx.Err())
	}
	return scrape.NewErr(scrape.ErrTimeout, "call deadline exceeded", ctx.Err())
}

var _ scrape.Action = (*HTTPAction)(nil)
