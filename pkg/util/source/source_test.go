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
package source

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Source_Lines(t *testing.T) {
	f := NewSourceFile("f", []byte("ab\n\ncde\n"))
	lines := f.Lines()
	//
	require.Len(t, lines, 3)
	require.Equal(t, "ab", lines[0].String())
	require.Equal(t, "", lines[1].String())
	require.Equal(t, "cde", lines[2].String())
	require.Equal(t, 4, lines[2].Start())
	require.Equal(t, 3, lines[2].Number())
	// Unterminated final line
	require.Len(t, NewSourceFile("g", []byte("ab\ncd")).Lines(), 2)
	require.Empty(t, NewSourceFile("h", nil).Lines())
}

func Test_Source_Position(t *testing.T) {
	f := NewSourceFile("f", []byte("(rule x\n  (iadd a b)\n  a)\n"))
	//
	line, col := f.Position(10)
	require.Equal(t, 2, line)
	require.Equal(t, 3, col)
	//
	line, col = f.Position(0)
	require.Equal(t, 1, line)
	require.Equal(t, 1, col)
	//
	err := f.SyntaxError(NewSpan(10, 14), "bad")
	require.Equal(t, "f:2:3: bad", err.Error())
	enclosing := err.FirstEnclosingLine()
	require.Equal(t, "  (iadd a b)", enclosing.String())
}

func Test_Source_SortErrors(t *testing.T) {
	var (
		f    = NewSourceFile("b", []byte("0123456789"))
		g    = NewSourceFile("a", []byte("0123456789"))
		errs = []SyntaxError{*f.SyntaxError(NewSpan(5, 6), "x"), *f.SyntaxError(NewSpan(1, 2), "y"),
			*g.SyntaxError(NewSpan(3, 4), "z"), *f.SyntaxError(NewSpan(1, 3), "w")}
	)
	//
	SortErrors(errs)
	//
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, e.Message())
	}
	//
	require.Equal(t, []string{"z", "y", "w", "x"}, msgs)
}
