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

	"github.com/consensys/go-saturn/pkg/lower"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var lowerCmd = &cobra.Command{
	Use:   "lower [flags] file1.ir file2.ir ...",
	Short: "Compile functions into machine instructions for a given target.",
	Long: `Simplify the functions in one or more files (unless disabled with -O0), then
lower them into machine instructions for the given target and print the
result in that target's assembly syntax.  Functions are compiled
concurrently.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		//
		var (
			session = getSession(cmd)
			fns     = readFunctions(args)
		)
		//
		results, err := session.CompileAll(cmd.Context(), fns)
		//
		var unsupported *lower.UnsupportedError
		//
		if errors.As(err, &unsupported) {
			log.Errorf("%s (try adding target features, e.g. --target \"%s ...\")", err, session.Target().Arch())
			os.Exit(1)
		} else if err != nil {
			log.Error(err)
			os.Exit(1)
		}
		//
		for i, res := range results {
			if i > 0 {
				fmt.Println()
			}
			//
			fmt.Print(session.Emit(res.Code))
			//
			if GetFlag(cmd, "stats") {
				fmt.Printf(";; %d instruction(s), %s\n", res.Code.NumInsts(), res.Stats)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(lowerCmd)
	addSessionFlags(lowerCmd)
	lowerCmd.Flags().Bool("stats", false, "report instruction counts and saturation statistics")
}
