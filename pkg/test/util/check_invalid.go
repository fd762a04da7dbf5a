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
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/consensys/go-saturn/pkg/golden"
	"github.com/consensys/go-saturn/pkg/ir"
	"github.com/consensys/go-saturn/pkg/rule"
	"github.com/consensys/go-saturn/pkg/util/source"
)

// ErrorCompiler compiles a source file and produces zero or more errors.
type ErrorCompiler func(*source.File) []source.SyntaxError

// RuleCompiler checks a rule file on its own.
func RuleCompiler(strict bool) ErrorCompiler {
	return func(srcfile *source.File) []source.SyntaxError {
		_, errs := rule.Compile(rule.CompileConfig{Strict: strict}, srcfile)
		return errs
	}
}

// FunctionCompiler parses (and verifies) the functions of a source file.
func FunctionCompiler(srcfile *source.File) []source.SyntaxError {
	_, errs := ir.ParseFunctions(srcfile)
	return errs
}

// CheckInvalid checks that a given source file fails to compile, producing
// exactly the errors it declares.
func CheckInvalid(t *testing.T, test, ext string, compiler ErrorCompiler) {
	var filename = fmt.Sprintf("%s/%s.%s", TestDir, test, ext)
	// Enable testing each file in parallel
	t.Parallel()
	//
	srcfile := readSourceFile(t, filename)
	// Compile source file to produce errors
	actual := compiler(srcfile)
	// Extract expected errors for comparison
	expected, errs := golden.ExtractAttributes[source.SyntaxError](srcfile, extractSyntaxError)
	//
	if len(errs) > 0 {
		// Report any errors encountered parsing the attributes themselves.
		t.Fatal(errors.Join(errs...))
	}
	//
	checkExpectedErrors(t, srcfile, actual, expected)
}

func checkExpectedErrors(t *testing.T, srcfile *source.File, actual, expected []source.SyntaxError) {
	if len(actual) == 0 {
		t.Fatalf("Error %s should not have compiled\n", srcfile.Filename())
	}
	//
	failed := false
	msg := fmt.Sprintf("Error %s\n", srcfile.Filename())
	//
	for i := 0; i < max(len(actual), len(expected)); i++ {
		if i < len(actual) && i < len(expected) &&
			expected[i].Message() == actual[i].Message() && expected[i].Span() == actual[i].Span() {
			continue
		}
		//
		failed = true
		//
		if i < len(actual) {
			msg = fmt.Sprintf("%s unexpected error %s\n", msg, golden.ErrorToString(&actual[i]))
		}
		//
		if i < len(expected) {
			msg = fmt.Sprintf("%s   expected error %s\n", msg, golden.ErrorToString(&expected[i]))
		}
	}
	//
	if failed {
		t.Fatal(msg)
	}
}

func readSourceFile(t *testing.T, filename string) *source.File {
	bytes, err := os.ReadFile(filename)
	//
	if err != nil {
		t.Fatal(err)
	}
	//
	return source.NewSourceFile(filename, bytes)
}
