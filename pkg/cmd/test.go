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
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/consensys/go-saturn/pkg/golden"
	"github.com/consensys/go-saturn/pkg/util"
	"github.com/consensys/go-saturn/pkg/util/termio"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var testCmd = &cobra.Command{
	Use:   "test [flags] dir|file.ir ...",
	Short: "Run golden tests, comparing their output against expected output.",
	Long: `Run golden tests found in the given files or directories.  A golden test is a
function file (e.g. "foo.ir") accompanied by a file of expected output
(e.g. "foo.expected").  Attributes at the top of a function file determine
what is tested, such as ";;test opt" or ";;target x64 popcnt".  Use --update
to overwrite expected output with actual output (an empty expected file can
be used to create a new test).`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		//
		tests, err := findTests(args)
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
		//
		if !runTests(cmd.Context(), tests, GetFlag(cmd, "update"), ansiEscapes()) {
			os.Exit(1)
		}
	},
}

// Outcome of running a single golden test.
type testOutcome struct {
	file string
	// Line at which output first differed (if it did)
	line int
	err  error
}

// Find all golden tests in a given set of files or directories.  Tests are
// returned in lexicographic order.
func findTests(paths []string) ([]string, error) {
	var tests []string
	//
	for _, path := range paths {
		err := filepath.WalkDir(path, func(file string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			} else if d.IsDir() || filepath.Ext(file) != "."+golden.SRC_EXTENSION {
				return nil
			}
			// Only files with expected output are tests
			if _, err := os.Stat(expectedFile(file)); err == nil {
				tests = append(tests, file)
			} else if path == file {
				return fmt.Errorf("%s has no expected output", file)
			}
			//
			return nil
		})
		//
		if err != nil {
			return nil, err
		}
	}
	//
	slices.Sort(tests)
	//
	return slices.Compact(tests), nil
}

func expectedFile(file string) string {
	return strings.TrimSuffix(file, "."+golden.SRC_EXTENSION) + "." + golden.EXPECTED_EXTENSION
}

// Run a given set of golden tests concurrently, reporting their outcomes in
// order.  This returns true if all tests passed.
func runTests(ctx context.Context, tests []string, update bool, escapes bool) bool {
	var (
		outcomes = make([]testOutcome, len(tests))
		stats    = util.NewPerfStats()
		passed   = 0
	)
	//
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	//
	for i, test := range tests {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			//
			outcomes[i] = runTest(test, update)
			//
			return nil
		})
	}
	// Tests only fail by cancellation
	if err := g.Wait(); err != nil {
		log.Error(err)
		return false
	}
	//
	for _, o := range outcomes {
		switch {
		case o.err != nil:
			fmt.Printf("%s %s: %s\n", termio.Colour("FAIL", termio.TERM_RED, escapes), o.file, o.err)
		case o.line != 0:
			fmt.Printf("%s %s (output differs at line %d)\n", termio.Colour("FAIL", termio.TERM_RED, escapes),
				o.file, o.line)
		case update:
			fmt.Printf("%s %s\n", termio.Colour("UPDATED", termio.TERM_YELLOW, escapes), o.file)
			passed++
		default:
			fmt.Printf("%s %s\n", termio.Colour("PASS", termio.TERM_GREEN, escapes), o.file)
			passed++
		}
	}
	//
	fmt.Printf("%d passed, %d failed\n", passed, len(tests)-passed)
	stats.Log(fmt.Sprintf("Running %d test(s)", len(tests)))
	//
	return passed == len(tests)
}

func runTest(file string, update bool) testOutcome {
	g, err := golden.ReadGolden(file)
	if err != nil {
		return testOutcome{file, 0, err}
	}
	//
	actual, err := g.Run()
	if err != nil {
		return testOutcome{file, 0, fmt.Errorf("%s", golden.Describe(err))}
	} else if update {
		return testOutcome{file, 0, os.WriteFile(g.ExpectedFile(), []byte(actual), 0o644)}
	}
	//
	expected, err := os.ReadFile(g.ExpectedFile())
	if err != nil {
		return testOutcome{file, 0, err}
	}
	//
	line, _ := golden.Diff(string(expected), actual)
	//
	return testOutcome{file, line, nil}
}

func init() {
	rootCmd.AddCommand(testCmd)
	testCmd.Flags().Bool("update", false, "overwrite expected output with actual output")
}
