// Copyright (C) 2020 The boone Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codeactual/scrapeagent/cmd/scrapeagent/run"
	"github.com/codeactual/scrapeagent/cmd/scrapeagent/trigger"
	"github.com/codeactual/scrapeagent/cmd/scrapeagent/validate"
)

func main() {
	root := &cobra.Command{
		Use:   "scrapeagent",
		Short: "Scrape configured HTTP/command targets on a schedule and emit structured log records",
	}
	root.AddCommand(run.NewCommand())
	root.AddCommand(trigger.NewCommand())
	root.AddCommand(validate.NewCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
