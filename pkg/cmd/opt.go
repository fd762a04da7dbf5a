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
	"fmt"
	"os"

	"github.com/consensys/go-saturn/pkg/egraph"
	"github.com/consensys/go-saturn/pkg/golden"
	"github.com/consensys/go-saturn/pkg/ir"
	"github.com/consensys/go-saturn/pkg/util/termio"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var optCmd = &cobra.Command{
	Use:   "opt [flags] file1.ir file2.ir ...",
	Short: "Simplify functions by equality saturation.",
	Long: `Simplify the functions in one or more files using the simplification rules,
and print the resulting functions.  Extraction uses the cost model of the
given target.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		//
		var (
			session = getSession(cmd)
			fns     = readFunctions(args)
			stats   = make([]egraph.Stats, len(fns))
			failed  = false
		)
		//
		for i, fn := range fns {
			nf, st, err := session.Optimize(fn)
			if err != nil {
				log.Errorf("%s: %s", fn.Name, err)
				os.Exit(1)
			}
			//
			stats[i] = st
			// Check against the reference interpreter
			if GetFlag(cmd, "check") {
				if err := golden.CheckEquivalent(fn, nf); err != nil {
					log.Errorf("%s: %s", fn.Name, err)
					failed = true
				}
			}
			//
			fmt.Print(nf.String())
		}
		//
		if GetFlag(cmd, "stats") {
			printStats(fns, stats)
		}
		//
		if failed {
			os.Exit(1)
		}
	},
}

// Print a table summarising the saturation of each function.
func printStats(fns []*ir.Function, stats []egraph.Stats) {
	var (
		tbl      = termio.NewTablePrinter(6, uint(len(fns)+1))
		escapes  = ansiEscapes()
		terminal = termio.NewTerminal(os.Stdout)
	)
	//
	tbl.SetRow(0, "function", "iterations", "rewrites", "nodes", "classes", "saturated")
	//
	for i, fn := range fns {
		st := stats[i]
		row := uint(i + 1)
		tbl.SetRow(row, fn.Name, fmt.Sprint(st.Iterations), fmt.Sprint(st.Rewrites), fmt.Sprint(st.Nodes),
			fmt.Sprint(st.Classes), fmt.Sprint(st.Saturated))
		// Highlight functions whose budget was exhausted
		if !st.Saturated {
			tbl.SetEscape(5, row, termio.NewAnsiEscape().FgColour(termio.TERM_YELLOW).Build())
		}
	}
	//
	tbl.SetMaxWidth(0, max(16, terminal.Width()/2))
	tbl.AnsiEscapes(escapes)
	tbl.Print(os.Stdout)
}

func init() {
	rootCmd.AddCommand(optCmd)
	addSessionFlags(optCmd)
	optCmd.Flags().Bool("stats", false, "report saturation statistics for each function")
	optCmd.Flags().Bool("check", false, "check simplified functions against originals using the interpreter")
}
