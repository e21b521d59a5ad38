// Copyright (C) 2020 The boone Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Sub-command trigger invokes a single target's unscheduled handle without starting the
// scheduled driver loop, analogous to cmd/boone/run/run.go's on-demand execution
// sub-command. It prints the resulting metadata/chunk records to stdout and exits.
//
// With --command instead of --target, it runs an ad hoc shell command line that need not
// appear in the config file at all, splitting it into argv with cage/shell's
// mattn/go-shellwords wrapper. This is for testing a Command action's output shape before
// committing it to a config file.
//
// Usage:
//
//	scrapeagent trigger --config /path/to/config --target target_label
//	scrapeagent trigger --config /path/to/config --command 'curl -sf https://example.com'
package trigger

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/codeactual/scrapeagent/internal/agentio"
	cage_shell "github.com/codeactual/scrapeagent/internal/cage/shell"
	"github.com/codeactual/scrapeagent/internal/config"
	"github.com/codeactual/scrapeagent/internal/framing"
	"github.com/codeactual/scrapeagent/internal/scrape"
	"github.com/codeactual/scrapeagent/internal/supervisor"
)

// adHocLabel identifies the synthetic, not-in-config target built from --command.
const adHocLabel = "adhoc"

// NewCommand returns the `trigger` sub-command.
func NewCommand() *cobra.Command {
	var configPath string
	var target string
	var command string

	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Call a single configured target once, outside of its schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return trigger(configPath, target, command)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a viper-readable config file")
	cmd.Flags().StringVarP(&target, "target", "t", "", "label of the configured target to call")
	cmd.Flags().StringVar(&command, "command", "", "an ad hoc shell command line to run instead of a configured target")
	cmd.MarkFlagsMutuallyExclusive("target", "command")
	cmd.MarkFlagsOneRequired("target", "command")
	if err := cmd.MarkFlagRequired("config"); err != nil {
		panic(err)
	}

	return cmd
}

func trigger(configPath, target, command string) error {
	cfg, err := config.ReadConfigFile(configPath)
	if err != nil {
		return errors.Wrapf(err, "failed to read config file [%s]", configPath)
	}

	log, err := agentio.NewLogger(cfg.LogLevel, false)
	if err != nil {
		return errors.Wrap(err, "failed to init logger")
	}
	defer log.Sync() //nolint:errcheck

	// Always print to stdout regardless of any configured sink.path: trigger is an
	// interactive, one-shot diagnostic, not a long-running emission.
	pipeline := framing.NewPipeline(os.Stdout, 1, log)

	if command != "" {
		return triggerAdHocCommand(command, pipeline, log)
	}

	sup := supervisor.New(cfg.Targets, pipeline, nil, log)
	return sup.TriggerOne(context.Background(), target)
}

// triggerAdHocCommand splits command into one or more pipeline stages with cage/shell and
// runs the first stage's argv as a one-off Command target. Multi-stage pipelines ("a | b")
// are rejected: CommandAction has no concept of piping stdout between stages.
func triggerAdHocCommand(command string, pipeline *framing.Pipeline, log *zap.Logger) error {
	stages, err := cage_shell.Parse(command)
	if err != nil {
		return errors.Wrapf(err, "failed to parse command [%s]", command)
	}
	if len(stages) != 1 {
		return errors.Errorf("command [%s] must be a single pipeline stage, found %d", command, len(stages))
	}
	argv := stages[0]
	if len(argv) == 0 {
		return errors.Errorf("command [%s] parsed to an empty argument list", command)
	}

	cfg := []scrape.TargetConfig{{
		Label:    adHocLabel,
		Interval: time.Minute, // unused: only TriggerOne, never the scheduled driver, runs this target
		Timeout:  scrape.DefaultTimeout,
		Action: scrape.ActionConfig{
			Type:    scrape.ActionCommand,
			Command: argv[0],
			Args:    argv[1:],
		},
	}}

	sup := supervisor.New(cfg, pipeline, nil, log)
	return sup.TriggerOne(context.Background(), adHocLabel)
}
