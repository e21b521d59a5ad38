// Copyright (C) 2020 The boone Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package scrapeagent contains the CLI commands (cmd/scrapeagent), the internal API
// (internal/scheduler, internal/action, internal/timeout, internal/framing, internal/supervisor,
// internal/config) which implement the scraping agent, and the internal "standard library"
// (internal/cage/*) carried over from the environment this project was extracted from.
package scrapeagent

// expand godoc content for the base import path
import (
	_ "github.com/codeactual/scrapeagent/cmd/scrapeagent/run"
	_ "github.com/codeactual/scrapeagent/cmd/scrapeagent/trigger"
	_ "github.com/codeactual/scrapeagent/cmd/scrapeagent/validate"
	_ "github.com/codeactual/scrapeagent/internal/supervisor"
)
