// Copyright (C) 2020 The boone Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Sub-command validate loads and validates a config file and exits 0/non-zero, analogous
// to cmd/boone/eval/eval.go's dry-run style sub-command. It supplements the distilled
// spec's "unrecoverable startup failure" exit-code requirement with an explicit pre-flight
// check operators can run in CI before `run`.
//
// Usage:
//
//	scrapeagent validate --config /path/to/config
package validate

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/codeactual/scrapeagent/internal/config"
)

// NewCommand returns the `validate` sub-command.
func NewCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate a config file without starting the agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validate(configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a viper-readable config file")
	if err := cmd.MarkFlagRequired("config"); err != nil {
		panic(err)
	}

	return cmd
}

func validate(configPath string) error {
	cfg, err := config.ReadConfigFile(configPath)
	if err != nil {
		return errors.Wrapf(err, "config [%s] is invalid", configPath)
	}

	fmt.Printf("config [%s] is valid: %d target(s)\n", configPath, len(cfg.Targets))
	for _, t := range cfg.Targets {
		fmt.Printf("  - %s (%s, interval %s)\n", t.Label, t.Action.Type, t.Interval)
	}
	return nil
}
