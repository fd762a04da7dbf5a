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
	"os"
	"os/signal"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version is filled when building with make, but *not* when installing via "go
// install".
var Version string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "saturn",
	Short: "An equality saturation optimiser and instruction selector.",
	Long: `An optimiser which simplifies functions by equality saturation, and an
instruction selector which lowers them for x64, aarch64, riscv64 and pulley
targets using rules written in a small s-expression language.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Configure log level
		if GetFlag(cmd, "verbose") {
			log.SetLevel(log.DebugLevel)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		if !GetFlag(cmd, "version") {
			fmt.Println(cmd.UsageString())
			return
		}
		//
		fmt.Print("saturn ")
		if Version != "" {
			// Built via "make"
			fmt.Printf("%s", Version)
		} else if info, ok := debug.ReadBuildInfo(); ok {
			// Built via "go install"
			fmt.Printf("%s", info.Main.Version)
		} else {
			// Unknown, perhaps "go run"
			fmt.Printf("(unknown version)")
		}
		fmt.Println()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	//
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().Bool("version", false, "Report version of this executable")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "increase logging verbosity")
}

// Register the flags which configure a compilation session.
func addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("target", "t", "host", "target (e.g. \"x64 bmi2 popcnt\" or \"pulley32\")")
	cmd.Flags().UintP("opt", "O", 2, "set optimisation level (0 disables simplification)")
	cmd.Flags().Uint("iterations", 0, "maximum number of saturation iterations (0 for the level default)")
	cmd.Flags().Uint("nodes", 0, "maximum number of e-graph nodes (0 for the level default)")
	cmd.Flags().Uint("matches", 0, "maximum number of matches per rule per iteration (0 for the level default)")
	cmd.Flags().StringArray("rules", nil, "additional rule file(s)")
	cmd.Flags().Bool("strict", false, "reject rules whose behaviour depends on declaration order")
}
