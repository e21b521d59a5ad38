// Copyright (C) 2020 The boone Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package agentio holds the two pieces of process bootstrap shared by every scrapeagent
// CLI sub-command: opening the append-only sink named in config, and constructing the
// zap.Logger at the configured level.
package agentio

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	cage_file "github.com/codeactual/scrapeagent/internal/cage/os/file"
)

const (
	sinkFilePerm = 0600
	sinkDirPerm  = 0700
)

// OpenSink returns the append-only byte destination named by path, or os.Stdout if path is
// empty. The returned closer is a no-op for stdout. Grounded on
// internal/cage/os/file.CreateFileAll, adapted here to a long-lived O_APPEND handle rather
// than the teacher's single-shot AppendString calls.
func OpenSink(path string) (io.Writer, func() error, error) {
	if path == "" {
		return os.Stdout, func() error { return nil }, nil
	}

	f, err := cage_file.CreateFileAll(path, os.O_APPEND|os.O_WRONLY, sinkFilePerm, sinkDirPerm)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to open sink file [%s]", path)
	}
	return f, f.Close, nil
}

// NewLogger builds a zap.Logger at level, using the production encoder unless dev is true.
func NewLogger(level string, dev bool) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.Wrapf(err, "failed to parse log level [%s]", level)
	}

	var cfg zap.Config
	if dev {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	log, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build logger")
	}
	return log, nil
}
