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
package util

import (
	"fmt"
	"os"
	"testing"

	"github.com/consensys/go-saturn/pkg/golden"
)

// TestDir determines the (relative) location of the test directory.  That is
// where the golden test files (and their expected outputs) are found.
const TestDir = "../../testdata"

// Check runs a golden test (e.g. "opt/shift_zero") and compares its output
// against the expected output.
func Check(t *testing.T, test string) {
	// Enable running tests in parallel
	t.Parallel()
	//
	g, err := golden.ReadGolden(fmt.Sprintf("%s/%s.%s", TestDir, test, golden.SRC_EXTENSION))
	if err != nil {
		t.Fatal(err)
	}
	//
	actual, err := g.Run()
	if err != nil {
		t.Fatal(golden.Describe(err))
	}
	//
	expected, err := os.ReadFile(g.ExpectedFile())
	if err != nil {
		t.Fatal(err)
	}
	//
	if line, ok := golden.Diff(string(expected), actual); !ok {
		t.Fatalf("%s: output differs at line %d\n%s", g.File.Filename(), line, actual)
	}
}
