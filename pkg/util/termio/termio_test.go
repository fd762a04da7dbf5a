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
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Termio_Table(t *testing.T) {
	table := NewTablePrinter(2, 2)
	table.SetRow(0, "rule", "priority")
	table.SetRow(1, "iadd-zero", "0")
	table.SetEscape(1, 1, NewAnsiEscape().FgColour(TERM_GREEN).Build())
	table.AnsiEscapes(false)
	//
	var out strings.Builder
	//
	table.Print(&out)
	require.Equal(t, " rule      | priority |\n-----------+----------+\n iadd-zero | 0        |\n", out.String())
}

func Test_Termio_Truncate(t *testing.T) {
	table := NewTablePrinter(1, 1)
	table.Set(0, 0, "abcdefghij")
	table.SetMaxWidths(6)
	//
	var out strings.Builder
	//
	table.Print(&out)
	require.Equal(t, " abcd.. |\n", out.String())
}

func Test_Termio_Colour(t *testing.T) {
	require.Equal(t, "PASS", Colour("PASS", TERM_GREEN, false))
	require.Equal(t, "\033[32mPASS\033[0m", Colour("PASS", TERM_GREEN, true))
}
