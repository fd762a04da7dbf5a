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
package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/consensys/go-saturn/pkg/compile"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const testDir = "../../testdata"

func Test_Cmd_FindTests(t *testing.T) {
	tests, err := findTests([]string{testDir, filepath.Join(testDir, "opt")})
	require.NoError(t, err)
	require.Contains(t, tests, filepath.Join(testDir, "opt", "identities.ir"))
	require.Contains(t, tests, filepath.Join(testDir, "lower", "chomp.ir"))
	// Function files without expected output are not tests
	require.NotContains(t, tests, filepath.Join(testDir, "invalid", "functions.ir"))
	// Duplicates are removed
	require.Len(t, tests, len(compact(tests)))
}

func compact(tests []string) map[string]bool {
	set := make(map[string]bool)
	//
	for _, t := range tests {
		set[t] = true
	}
	//
	return set
}

func Test_Cmd_NotATest(t *testing.T) {
	_, err := findTests([]string{filepath.Join(testDir, "invalid", "functions.ir")})
	require.ErrorContains(t, err, "has no expected output")
}

func Test_Cmd_RunTests(t *testing.T) {
	tests, err := findTests([]string{filepath.Join(testDir, "lower")})
	require.NoError(t, err)
	require.NotEmpty(t, tests)
	require.True(t, runTests(context.Background(), tests, false, false))
}

func Test_Cmd_Config(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	addSessionFlags(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"-O1", "--nodes", "99", "--strict"}))
	//
	cfg := getConfig(cmd)
	require.True(t, cfg.Optimize)
	require.True(t, cfg.StrictRules)
	require.Equal(t, uint(99), cfg.Egraph.MaxNodes)
	require.Equal(t, compile.OPTIMISATION_LEVELS[1].Egraph.MaxIterations, cfg.Egraph.MaxIterations)
}

func Test_Cmd_Relevant(t *testing.T) {
	require.True(t, relevant(fsnotify.Event{Name: "a/b.ir", Op: fsnotify.Write}))
	require.True(t, relevant(fsnotify.Event{Name: "a/b.expected", Op: fsnotify.Create}))
	require.False(t, relevant(fsnotify.Event{Name: "a/b.ir", Op: fsnotify.Chmod}))
	require.False(t, relevant(fsnotify.Event{Name: "a/b.go", Op: fsnotify.Write}))
}
