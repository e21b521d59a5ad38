// Copyright (C) 2020 The boone Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package config reads and validates the agent's YAML/JSON config file into a list of
// scrape.TargetConfig values, plus the sink/log settings needed to start the agent. The
// load→decode→validate/default pattern is grounded on internal/boone/config.go's
// ReadConfigFile/FinalizeConfig.
package config

import (
	"time"

	"github.com/pkg/errors"
	std_viper "github.com/spf13/viper"

	"github.com/codeactual/scrapeagent/internal/scrape"
)

// DefaultLogLevel is applied when Log.Level is unset.
const DefaultLogLevel = "info"

// fileConfig is the raw decoded shape of a config file, before defaulting/validation.
type fileConfig struct {
	Sink   sinkFileConfig
	Log    logFileConfig
	Target []targetFileConfig
}

type sinkFileConfig struct {
	// Path is the append-only sink destination. Empty or "-" selects stdout.
	Path string
}

type logFileConfig struct {
	Level string
}

type targetFileConfig struct {
	Label    string
	Interval string
	Timeout  string
	Action   actionFileConfig
}

type actionFileConfig struct {
	Type    string
	Method  string
	URL     string
	Command string
	Args    []string
}

// Config is the finalized, validated result of reading a config file.
type Config struct {
	// SinkPath is the append-only sink destination; empty means stdout.
	SinkPath string

	// LogLevel is a zap level name ("debug", "info", "warn", "error").
	LogLevel string

	// Targets are the finalized target definitions, ready to drive action/timeout/scheduler
	// construction.
	Targets []scrape.TargetConfig
}

// ReadConfigFile loads name (YAML or JSON, per viper's format sniffing) and returns a
// validated Config.
func ReadConfigFile(name string) (Config, error) {
	file := std_viper.New()
	file.SetConfigFile(name)
	if err := file.ReadInConfig(); err != nil {
		return Config{}, errors.Wrapf(err, "failed to read config file [%s]", name)
	}

	var raw fileConfig
	if err := file.Unmarshal(&raw); err != nil {
		return Config{}, errors.Wrapf(err, "failed to unmarshal config from file [%s]", name)
	}

	return FinalizeConfig(raw)
}

// FinalizeConfig validates and defaults a raw decoded config, producing the Config the rest
// of the agent consumes.
func FinalizeConfig(raw fileConfig) (Config, error) {
	cfg := Config{
		SinkPath: raw.Sink.Path,
		LogLevel: raw.Log.Level,
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.SinkPath == "-" {
		cfg.SinkPath = ""
	}

	if len(raw.Target) == 0 {
		return Config{}, errors.New("config must define at least one target")
	}

	uniqueLabel := map[string]bool{}

	for n := range raw.Target {
		t := raw.Target[n]

		if t.Label == "" {
			return Config{}, errors.Errorf("target at index [%d] is missing a [label] field", n)
		}
		if uniqueLabel[t.Label] {
			return Config{}, errors.Errorf("target label [%s] was used more than once", t.Label)
		}
		uniqueLabel[t.Label] = true

		target, err := finalizeTarget(t)
		if err != nil {
			return Config{}, errors.Wrapf(err, "target [%s]", t.Label)
		}
		cfg.Targets = append(cfg.Targets, target)
	}

	return cfg, nil
}

func finalizeTarget(t targetFileConfig) (scrape.TargetConfig, error) {
	if t.Interval == "" {
		return scrape.TargetConfig{}, errors.New("missing required [interval] field")
	}
	interval, err := time.ParseDuration(t.Interval)
	if err != nil {
		return scrape.TargetConfig{}, errors.Wrapf(err, "failed to parse [interval] field [%s]", t.Interval)
	}
	// S7: a zero interval would make the scheduler cell's advance() divide by zero, and a
	// negative one would move nextWakeup backwards so the target is always due; reject
	// both at load time instead.
	if interval <= 0 {
		return scrape.TargetConfig{}, errors.Errorf("[interval] field [%s] must be positive", t.Interval)
	}

	var timeout time.Duration
	if t.Timeout != "" {
		timeout, err = time.ParseDuration(t.Timeout)
		if err != nil {
			return scrape.TargetConfig{}, errors.Wrapf(err, "failed to parse [timeout] field [%s]", t.Timeout)
		}
		if timeout <= 0 {
			return scrape.TargetConfig{}, errors.Errorf("[timeout] field [%s] must be positive", t.Timeout)
		}
	}

	action, err := finalizeAction(t.Action)
	if err != nil {
		return scrape.TargetConfig{}, errors.WithStack(err)
	}

	return scrape.TargetConfig{
		Label:    t.Label,
		Interval: interval,
		Timeout:  timeout,
		Action:   action,
	}, nil
}

func finalizeAction(a actionFileConfig) (scrape.ActionConfig, error) {
	switch scrape.ActionType(a.Type) {
	case scrape.ActionHTTP:
		if a.URL == "" {
			return scrape.ActionConfig{}, errors.New("action type [Http] requires an [action.url] field")
		}
		method := a.Method
		if method == "" {
			method = "GET"
		}
		return scrape.ActionConfig{Type: scrape.ActionHTTP, Method: method, URL: a.URL}, nil
	case scrape.ActionCommand:
		if a.Command == "" {
			return scrape.ActionConfig{}, errors.New("action type [Command] requires an [action.command] field")
		}
		return scrape.ActionConfig{Type: scrape.ActionCommand, Command: a.Command, Args: a.Args}, nil
	case "":
		return scrape.ActionConfig{}, errors.New("action is missing a required [action.type] field")
	default:
		return scrape.ActionConfig{}, errors.Errorf("action has an unrecognized [action.type] value [%s]", a.Type)
	}
}
