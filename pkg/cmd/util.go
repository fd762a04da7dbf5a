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
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/consensys/go-saturn/pkg/compile"
	"github.com/consensys/go-saturn/pkg/ir"
	"github.com/consensys/go-saturn/pkg/target"
	_ "github.com/consensys/go-saturn/pkg/target/aarch64"
	_ "github.com/consensys/go-saturn/pkg/target/pulley"
	_ "github.com/consensys/go-saturn/pkg/target/riscv64"
	_ "github.com/consensys/go-saturn/pkg/target/x64"
	"github.com/consensys/go-saturn/pkg/util/source"
	"github.com/consensys/go-saturn/pkg/util/termio"
	"github.com/spf13/cobra"
)

// GetFlag gets an expected flag, or exits if an error arises.
func GetFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetUint gets an expected unsigned integer, or exits if an error arises.
func GetUint(cmd *cobra.Command, flag string) uint {
	r, err := cmd.Flags().GetUint(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetString gets an expected string, or exits if an error arises.
func GetString(cmd *cobra.Command, flag string) string {
	r, err := cmd.Flags().GetString(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetStringArray gets an expected string array, or exits if an error arises.
func GetStringArray(cmd *cobra.Command, flag string) []string {
	r, err := cmd.Flags().GetStringArray(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// Determine the session configuration from the command-line flags.
func getConfig(cmd *cobra.Command) compile.Config {
	level := GetUint(cmd, "opt")
	//
	if level >= uint(len(compile.OPTIMISATION_LEVELS)) {
		fmt.Printf("invalid optimisation level %d\n", level)
		os.Exit(2)
	}
	//
	cfg := compile.OPTIMISATION_LEVELS[level]
	cfg.StrictRules = GetFlag(cmd, "strict")
	// Explicit limits override those of the level
	if n := GetUint(cmd, "iterations"); n != 0 {
		cfg.Egraph.MaxIterations = n
	}
	//
	if n := GetUint(cmd, "nodes"); n != 0 {
		cfg.Egraph.MaxNodes = n
	}
	//
	if n := GetUint(cmd, "matches"); n != 0 {
		cfg.Egraph.MaxMatchesPerRule = n
	}
	//
	return cfg
}

// Construct a compilation session from the command-line flags, or exit.
func getSession(cmd *cobra.Command) *compile.Session {
	desc, err := target.Parse(GetString(cmd, "target"))
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	files, err := source.ReadFiles(GetStringArray(cmd, "rules")...)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	extra := make([]*source.File, len(files))
	for i := range files {
		extra[i] = &files[i]
	}
	//
	session, err := compile.NewSession(desc, getConfig(cmd), extra...)
	//
	var errs compile.SyntaxErrors
	//
	if errors.As(err, &errs) {
		printSyntaxErrors(errs)
		os.Exit(1)
	} else if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	//
	return session
}

// Read and parse the functions in a given set of files, or exit.
func readFunctions(filenames []string) []*ir.Function {
	var (
		fns  []*ir.Function
		errs []source.SyntaxError
	)
	//
	files, err := source.ReadFiles(filenames...)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	for i := range files {
		ffns, ferrs := ir.ParseFunctions(&files[i])
		fns = append(fns, ffns...)
		errs = append(errs, ferrs...)
	}
	//
	if len(errs) > 0 {
		printSyntaxErrors(errs)
		os.Exit(1)
	}
	//
	return fns
}

func printSyntaxErrors(errs []source.SyntaxError) {
	for i := range errs {
		printSyntaxError(&errs[i])
	}
}

// Print a syntax error with appropriate highlighting.
func printSyntaxError(err *source.SyntaxError) {
	span := err.Span()
	line := err.FirstEnclosingLine()
	// Calculate length (ensures don't overflow line)
	length := max(1, min(line.Length()-(span.Start()-line.Start()), span.Length()))
	// Print error + line number
	fmt.Printf("%s:%d: %s\n", err.SourceFile().Filename(), line.Number(), err.Message())
	// Print line
	fmt.Println(line.String())
	// Print indent (todo: account for tabs)
	fmt.Print(strings.Repeat(" ", span.Start()-line.Start()))
	// Print highlight
	fmt.Println(strings.Repeat("^", length))
}

// Determine whether ANSI escapes can be used on standard output.
func ansiEscapes() bool {
	return termio.NewTerminal(os.Stdout).IsInteractive()
}
