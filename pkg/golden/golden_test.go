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
package golden

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/consensys/go-saturn/pkg/ir"
	_ "github.com/consensys/go-saturn/pkg/target/x64"
	"github.com/stretchr/testify/require"
)

func Test_Golden_Diff(t *testing.T) {
	line, ok := Diff("a\nb\nc\n", "a\nb\nc\n")
	require.True(t, ok)
	require.Equal(t, 0, line)
	//
	line, ok = Diff("a\nb\nc\n", "a\nx\nc\n")
	require.False(t, ok)
	require.Equal(t, 2, line)
	//
	line, ok = Diff("a\n", "a\nb\n")
	require.False(t, ok)
	require.Equal(t, 2, line)
}

func Test_Golden_Settings(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "f.ir")
	text := `;;test opt
;;target x64 popcnt
;;set nodes=100
;;set optimize=false
(function f (params i32) (results i32)
  (block0 ((v0 i32))
    (return v0)))
`
	require.NoError(t, os.WriteFile(filename, []byte(text), 0o644))
	//
	g, err := ReadGolden(filename)
	require.NoError(t, err)
	require.Equal(t, Opt, g.Mode)
	require.Len(t, g.Targets, 1)
	require.Equal(t, "x64 popcnt", g.Targets[0].String())
	require.Equal(t, uint(100), g.Config.Egraph.MaxNodes)
	require.False(t, g.Config.Optimize)
	require.Equal(t, filepath.Join(filepath.Dir(filename), "f.expected"), g.ExpectedFile())
}

func Test_Golden_BadSetting(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "f.ir")
	require.NoError(t, os.WriteFile(filename, []byte(";;set colour=blue\n"), 0o644))
	//
	_, err := ReadGolden(filename)
	require.ErrorContains(t, err, "unknown setting \"colour\"")
}

func Test_Golden_NotEquivalent(t *testing.T) {
	before, err := ir.ParseFunction(`(function f (params i32) (results i32)
  (block0 ((v0 i32))
    (v1 (iconst.i32 1))
    (v2 (iadd.i32 v0 v1))
    (return v2)))
`)
	require.NoError(t, err)
	//
	after, err := ir.ParseFunction(`(function f (params i32) (results i32)
  (block0 ((v0 i32))
    (return v0)))
`)
	require.NoError(t, err)
	//
	require.NoError(t, CheckEquivalent(before, before))
	require.Error(t, CheckEquivalent(before, after))
}
