// Copyright (C) 2019 The CodeActual Go Environment Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Exists checks if a file/directory exists.
func Exists(name string) (bool, os.FileInfo, error) {
	fi, err := os.Stat(name)
	if err == nil {
		return true, fi, nil
	}
	if os.IsNotExist(err) {
		return false, nil, nil
	}
	return false, nil, errors.Wrapf(err, "failed to stat [%s]", name)
}

// AppendString adds the string to the end of the file. If the file does not exist, it will be created.
func AppendString(name string, s string) error {
	f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return errors.Wrapf(err, "failed to open [%s]", name)
	}
	defer closeOrStderr(f, name)

	if _, err = f.WriteString(s); err != nil {
		return errors.Wrapf(err, "failed to write to [%s]", name)
	}

	return nil
}

// CreateFileAll calls MkdirAll to ensure all intermediate directories exist prior to creation.
func CreateFileAll(name string, fileFlag int, filePerm, dirPerm os.FileMode) (*os.File, error) {
	dirPath := filepath.Dir(name)
	if err := os.MkdirAll(dirPath, dirPerm); err != nil {
		return nil, errors.Wrapf(err, "failed to make dir [%s] for new file [%s]", dirPath, name)
	}

	f, err := os.OpenFile(name, os.O_CREATE|fileFlag, filePerm)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create file [%s]", name)
	}

	return f, nil
}

// closeOrStderr closes f and, on failure, reports it to stderr since the call sites are
// typically deferred and cannot themselves return the close error.
func closeOrStderr(f *os.File, name string) {
	if err := f.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close [%s]: %+v\n", name, err)
	}
}
