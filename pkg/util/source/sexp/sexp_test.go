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
package sexp

import (
	"testing"

	"github.com/consensys/go-saturn/pkg/util/source"
	"github.com/stretchr/testify/require"
)

func parseAll(t *testing.T, text string) ([]SExp, *source.Map[SExp]) {
	terms, srcmap, err := ParseAll(source.NewSourceFile("test", []byte(text)))
	require.Nil(t, err)
	//
	return terms, srcmap
}

func Test_Sexp_List(t *testing.T) {
	terms, srcmap := parseAll(t, "(rule iadd-zero ; comment\n  (iadd.@t x 0) x)")
	require.Len(t, terms, 1)
	//
	list := terms[0].AsList()
	require.NotNil(t, list)
	require.Equal(t, 4, list.Len())
	require.Equal(t, "rule", list.Head())
	require.Equal(t, "(iadd.@t x 0)", list.Get(2).String(false))
	// Spans are exclusive
	span := srcmap.Get(list.Get(2))
	require.Equal(t, 28, span.Start())
	require.Equal(t, 41, span.End())
}

func Test_Sexp_Many(t *testing.T) {
	terms, _ := parseAll(t, "a (b c)\n; trailing\n\"d e\"")
	require.Len(t, terms, 3)
	require.Equal(t, "a", terms[0].AsSymbol().Value)
	require.Equal(t, "\"d e\"", terms[2].AsSymbol().Value)
	require.Equal(t, "d e", terms[2].AsSymbol().Unquote())
}

func Test_Sexp_Empty(t *testing.T) {
	terms, _ := parseAll(t, "  ; nothing here\n")
	require.Empty(t, terms)
}

func checkError(t *testing.T, text string, msg string, start int) {
	_, _, err := ParseAll(source.NewSourceFile("test", []byte(text)))
	require.NotNil(t, err)
	require.Equal(t, msg, err.Message())
	span := err.Span()
	require.Equal(t, start, span.Start())
}

func Test_Sexp_Unclosed(t *testing.T) {
	checkError(t, "(a (b c)", "unclosed list", 0)
	checkError(t, "(a)\n  (b (c d)", "unclosed list", 6)
}

func Test_Sexp_Unopened(t *testing.T) {
	checkError(t, "(a))", "unexpected end-of-list", 3)
}

func Test_Sexp_UnterminatedString(t *testing.T) {
	checkError(t, "(a \"bc)", "unterminated string", 3)
}
