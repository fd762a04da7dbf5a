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
	"slices"
	"strings"

	"github.com/consensys/go-saturn/pkg/rule"
	"github.com/consensys/go-saturn/pkg/util/termio"
	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules [flags]",
	Short: "Check and list the rules for a given target.",
	Long: `Compile the simplification rules, the lowering rules of the given target and
any additional rule files, reporting any errors.  Rules are then listed,
indicating which are enabled by the target's features.`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			session = getSession(cmd)
			db      = session.Database()
			phase   = GetString(cmd, "phase")
		)
		//
		if GetFlag(cmd, "insts") {
			printInsts(db.Insts())
			return
		}
		//
		var rules []*rule.Rule
		//
		for _, r := range db.Rules {
			if phase == "" || r.Phase.String() == phase {
				rules = append(rules, r)
			}
		}
		//
		tables := map[rule.Phase]*rule.Table{
			rule.Simplify: db.Table(rule.Simplify, session.Target()),
			rule.Lower:    db.Table(rule.Lower, session.Target()),
		}
		//
		printRules(rules, func(r *rule.Rule) bool {
			return slices.Contains(tables[r.Phase].Rules(r.Pattern.Op), r)
		})
	},
}

func printRules(rules []*rule.Rule, enabled func(*rule.Rule) bool) {
	var (
		tbl     = termio.NewTablePrinter(5, uint(len(rules)+1))
		escapes = ansiEscapes()
		width   = termio.NewTerminal(os.Stdout).Width()
	)
	//
	tbl.SetRow(0, "phase", "rule", "priority", "requires", "pattern")
	//
	for i, r := range rules {
		row := uint(i + 1)
		tbl.SetRow(row, r.Phase.String(), r.Name, fmt.Sprint(r.Priority), strings.Join(r.Requires, " "),
			r.Pattern.String())
		//
		if !enabled(r) {
			tbl.SetEscape(1, row, termio.NewAnsiEscape().FgColour(termio.TERM_RED).Build())
		}
	}
	//
	tbl.SetMaxWidth(4, max(16, width/2))
	tbl.AnsiEscapes(escapes)
	tbl.Print(os.Stdout)
}

func printInsts(insts []*rule.InstDecl) {
	tbl := termio.NewTablePrinter(3, uint(len(insts)+1))
	tbl.SetRow(0, "instruction", "operands", "trap")
	//
	for i, inst := range insts {
		var (
			operands = make([]string, len(inst.Operands))
			trap     string
		)
		//
		for j, o := range inst.Operands {
			operands[j] = o.String()
		}
		//
		if inst.Trap != nil {
			trap = inst.Trap.String()
		}
		//
		tbl.SetRow(uint(i+1), inst.Name, strings.Join(operands, " "), trap)
	}
	//
	tbl.AnsiEscapes(false)
	tbl.Print(os.Stdout)
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	addSessionFlags(rulesCmd)
	rulesCmd.Flags().String("phase", "", "only list rules for a given phase (\"simplify\" or \"lower\")")
	rulesCmd.Flags().Bool("insts", false, "list machine instructions instead of rules")
}
