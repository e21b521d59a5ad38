// Copyright (C) 2020 The boone Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package scrape_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codeactual/scrapeagent/internal/scrape"
)

func TestTargetConfigGetTimeout(t *testing.T) {
	require.Equal(t, scrape.DefaultTimeout, scrape.TargetConfig{}.GetTimeout())

	cfg := scrape.TargetConfig{Timeout: 5 * time.Second}
	require.Equal(t, 5*time.Second, cfg.GetTimeout())
}

func TestErrUnwrap(t *testing.T) {
	r := require.New(t)
	underlying := scrape.NewErr(scrape.ErrIO, "", nil)

	wrapped := scrape.NewErr(scrape.ErrHTTP, "request failed", underlying)
	r.Equal("Http: request failed", wrapped.Error())
	r.Equal(underlying, wrapped.Unwrap())
}
