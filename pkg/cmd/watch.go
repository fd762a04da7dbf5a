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
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// DEBOUNCE_DELAY is how long to wait after a change before rerunning tests, so
// that an editor saving several files triggers a single run.
const DEBOUNCE_DELAY = 200 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch [flags] dir|file.ir ...",
	Short: "Rerun golden tests whenever test files change.",
	Long: `Run the golden tests found in the given files or directories, then watch
their directories and rerun the tests whenever a function file or expected
output changes.  Stop with Ctrl-C.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		//
		if err := watchTests(cmd.Context(), args, ansiEscapes()); err != nil {
			log.Error(err)
			os.Exit(1)
		}
	},
}

func watchTests(ctx context.Context, paths []string, escapes bool) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	//
	defer watcher.Close()
	//
	for _, dir := range watchedDirs(paths) {
		if err := watcher.Add(dir); err != nil {
			return err
		}
		//
		log.Debugf("watching %s", dir)
	}
	//
	var (
		timer = time.NewTimer(0)
		rerun = func() {
			if tests, err := findTests(paths); err != nil {
				log.Error(err)
			} else {
				runTests(ctx, tests, false, escapes)
			}
		}
	)
	//
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			} else if relevant(ev) {
				timer.Reset(DEBOUNCE_DELAY)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			//
			log.Warn(err)
		case <-timer.C:
			rerun()
		}
	}
}

// Determine the directories to watch for a given set of paths.  Directories
// are watched along with their subdirectories, whilst files are watched via
// their enclosing directory.
func watchedDirs(paths []string) []string {
	var dirs []string
	//
	for _, path := range paths {
		info, err := os.Stat(path)
		//
		switch {
		case err != nil:
			log.Warn(err)
		case !info.IsDir():
			dirs = append(dirs, filepath.Dir(path))
		default:
			_ = filepath.WalkDir(path, func(file string, d os.DirEntry, err error) error {
				if err == nil && d.IsDir() {
					dirs = append(dirs, file)
				}
				//
				return nil
			})
		}
	}
	//
	return dirs
}

// Determine whether a file change should trigger a rerun.
func relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return false
	}
	//
	switch filepath.Ext(ev.Name) {
	case ".ir", ".expected":
		return true
	default:
		return false
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
