// Copyright (C) 2020 The boone Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Sub-command run starts the supervisor and blocks until a terminating signal, analogous
// to cmd/boone/root.go's main loop. The cage/cli/handler framework that root.go built its
// Handler/Init/BindFlags/Run shape on was not retrieved alongside the teacher repo, so
// flags and signal handling are wired directly here with cobra and signal.NotifyContext.
//
// Usage:
//
//	scrapeagent run --config /path/to/config
package run

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/codeactual/scrapeagent/internal/agentio"
	"github.com/codeactual/scrapeagent/internal/config"
	"github.com/codeactual/scrapeagent/internal/framing"
	"github.com/codeactual/scrapeagent/internal/supervisor"
)

// NewCommand returns the `run` sub-command.
func NewCommand() *cobra.Command {
	var configPath string
	var dev bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the agent: scrape every configured target on its schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, dev)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a viper-readable config file")
	cmd.Flags().BoolVar(&dev, "dev", false, "use zap's development logger instead of production")
	if err := cmd.MarkFlagRequired("config"); err != nil {
		panic(err)
	}

	return cmd
}

func run(configPath string, dev bool) error {
	cfg, err := config.ReadConfigFile(configPath)
	if err != nil {
		return errors.Wrapf(err, "failed to read config file [%s]", configPath)
	}

	log, err := agentio.NewLogger(cfg.LogLevel, dev)
	if err != nil {
		return errors.Wrap(err, "failed to init logger")
	}
	defer log.Sync() //nolint:errcheck

	sink, closeSink, err := agentio.OpenSink(cfg.SinkPath)
	if err != nil {
		return errors.Wrap(err, "failed to open sink")
	}
	defer closeSink() //nolint:errcheck

	pipeline := framing.NewPipeline(sink, int64(len(cfg.Targets)), log)
	sup := supervisor.New(cfg.Targets, pipeline, nil, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup.Start(ctx)
	<-ctx.Done()

	log.Info("shutdown signal received, stopping targets")
	sup.Stop()
	return sup.Wait()
}
