// Copyright (C) 2019 The CodeActual Go Environment Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package strings

// SliceOfSlice is a readability helper for constructing [][]string literals in tests,
// e.g. expected pipeline argument lists from shell.Parse.
func SliceOfSlice(s ...[]string) [][]string {
	return s
}
