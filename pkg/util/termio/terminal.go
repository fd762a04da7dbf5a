// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package termio

import (
	"os"

	"golang.org/x/term"
)

// DEFAULT_WIDTH is the width assumed for output which is not a terminal.
const DEFAULT_WIDTH = uint(120)

// Terminal describes the file to which command output is written.
type Terminal struct {
	// file descriptor for output.
	fd int
}

// NewTerminal constructs a terminal for a given output file.
func NewTerminal(f *os.File) Terminal {
	return Terminal{int(f.Fd())}
}

// IsInteractive determines whether output goes to a terminal, rather than
// (say) a pipe or a file.  ANSI escapes should only be used when it does.
func (t Terminal) IsInteractive() bool {
	return term.IsTerminal(t.fd)
}

// Width returns the number of columns available for output.
func (t Terminal) Width() uint {
	if !t.IsInteractive() {
		return DEFAULT_WIDTH
	}
	//
	width, _, err := term.GetSize(t.fd)
	if err != nil || width <= 0 {
		return DEFAULT_WIDTH
	}
	//
	return uint(width)
}
