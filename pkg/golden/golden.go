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
// Package golden runs regression tests whose output is compared against a file
// of expected output.
package golden

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/consensys/go-saturn/pkg/compile"
	"github.com/consensys/go-saturn/pkg/ir"
	"github.com/consensys/go-saturn/pkg/lower"
	"github.com/consensys/go-saturn/pkg/target"
	"github.com/consensys/go-saturn/pkg/util/source"
	"github.com/holiman/uint256"
)

// SRC_EXTENSION identifies the extension of golden test inputs.
const SRC_EXTENSION = "ir"

// EXPECTED_EXTENSION identifies the extension of golden test outputs.
const EXPECTED_EXTENSION = "expected"

// Mode determines which stages of the pipeline a golden test exercises.
type Mode uint8

const (
	// Opt tests check the simplified functions.
	Opt Mode = iota
	// Lower tests check the machine code of every target.
	Lower
)

// Golden is a regression test read from a source file, whose output is
// compared against a file of expected output.  Attributes at the top of the
// file configure the test:
//
//	;;test opt            check simplified functions (default is "lower")
//	;;target x64 bmi2     add a target (repeatable, default is x64)
//	;;set nodes=100       adjust the saturation budget (also iterations and matches)
//	;;set optimize=false  lower without simplifying first
//	;;set strict=true     check rules in strict mode
type Golden struct {
	File    *source.File
	Mode    Mode
	Targets []target.Descriptor
	Config  compile.Config
}

// ReadGolden reads a golden test, parsing its attributes.
func ReadGolden(filename string) (*Golden, error) {
	bytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	//
	var (
		srcfile = source.NewSourceFile(filename, bytes)
		g       = &Golden{File: srcfile, Mode: Lower, Config: compile.OPTIMISATION_LEVELS[compile.DEFAULT_OPTIMISATION_INDEX]}
	)
	//
	settings, errs := ExtractAttributes(srcfile, SettingAttribute("test"), SettingAttribute("target"), SettingAttribute("set"))
	//
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	//
	for _, s := range settings {
		if err := g.apply(s); err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
	}
	//
	if len(g.Targets) == 0 {
		desc, _ := target.New(target.X64)
		g.Targets = append(g.Targets, desc)
	}
	//
	return g, nil
}

func (g *Golden) apply(s Setting) error {
	switch s.Kind {
	case "test":
		switch s.Value {
		case "opt":
			g.Mode = Opt
		case "lower":
			g.Mode = Lower
		default:
			return fmt.Errorf("unknown test mode \"%s\"", s.Value)
		}
	case "target":
		desc, err := target.Parse(s.Value)
		if err != nil {
			return err
		}
		//
		g.Targets = append(g.Targets, desc)
	case "set":
		return g.set(s.Value)
	}
	//
	return nil
}

func (g *Golden) set(assignment string) error {
	key, value, ok := strings.Cut(assignment, "=")
	//
	if !ok {
		return fmt.Errorf("malformed setting \"%s\", should be e.g. \"nodes=100\"", assignment)
	}
	//
	switch key {
	case "optimize", "strict":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s (%s)", key, err.Error())
		} else if key == "optimize" {
			g.Config.Optimize = b
		} else {
			g.Config.StrictRules = b
		}
	case "iterations", "nodes", "matches":
		n, err := strconv.ParseUint(value, 10, 32)
		//
		switch {
		case err != nil:
			return fmt.Errorf("invalid value for %s (%s)", key, err.Error())
		case key == "iterations":
			g.Config.Egraph.MaxIterations = uint(n)
		case key == "nodes":
			g.Config.Egraph.MaxNodes = uint(n)
		default:
			g.Config.Egraph.MaxMatchesPerRule = uint(n)
		}
	default:
		return fmt.Errorf("unknown setting \"%s\"", key)
	}
	//
	return nil
}

// ExpectedFile returns the name of the file holding the expected output of
// this test.
func (g *Golden) ExpectedFile() string {
	name := strings.TrimSuffix(g.File.Filename(), "."+SRC_EXTENSION)
	return name + "." + EXPECTED_EXTENSION
}

// Run a golden test, producing its output.  In opt mode, each simplified
// function is also checked against the original using the reference
// interpreter.  In lower mode, functions which cannot be lowered for some
// target produce an error line in place of their machine code.
func (g *Golden) Run() (string, error) {
	fns, errs := ir.ParseFunctions(g.File)
	//
	if len(errs) > 0 {
		return "", compile.SyntaxErrors(errs)
	}
	//
	var out strings.Builder
	// Only costs depend on the target when simplifying
	if g.Mode == Opt {
		session, err := compile.NewSession(g.Targets[0], g.Config)
		if err != nil {
			return "", err
		}
		//
		return g.runOpt(session, fns)
	}
	//
	for i, desc := range g.Targets {
		session, err := compile.NewSession(desc, g.Config)
		if err != nil {
			return "", err
		} else if i > 0 {
			out.WriteString("\n")
		}
		//
		fmt.Fprintf(&out, ";; %s\n", desc)
		//
		for _, fn := range fns {
			res, err := session.Compile(fn)
			//
			var unsupported *lower.UnsupportedError
			//
			switch {
			case errors.As(err, &unsupported):
				fmt.Fprintf(&out, ";; error: %s\n", err)
			case err != nil:
				return "", fmt.Errorf("%s: %w", fn.Name, err)
			default:
				out.WriteString(session.Emit(res.Code))
			}
		}
	}
	//
	return out.String(), nil
}

func (g *Golden) runOpt(session *compile.Session, fns []*ir.Function) (string, error) {
	var out strings.Builder
	//
	for _, fn := range fns {
		nf, _, err := session.Optimize(fn)
		if err != nil {
			return "", fmt.Errorf("%s: %w", fn.Name, err)
		} else if err := CheckEquivalent(fn, nf); err != nil {
			return "", fmt.Errorf("%s: %w", fn.Name, err)
		}
		//
		out.WriteString(nf.String())
	}
	//
	return out.String(), nil
}

// INPUTS identifies the argument values used when checking two functions are
// equivalent.  Values are truncated to the width of each parameter.
var INPUTS = []uint64{0, 1, 2, 7, 8, 0x7f, 0x80, 0xff, 0x7fffffff, 0x80000000, 0xfffffff1, 0x12345678,
	0x7fffffffffffffff, 0x8000000000000000, 0xffffffffffffffff}

// MEMORY_SIZE determines the number of bytes of memory available when
// checking two functions are equivalent.
const MEMORY_SIZE = 64

// CheckEquivalent checks that two functions have the same observable
// behaviour on a fixed set of inputs, including the traps they raise.  Inputs
// for which the original function runs out of fuel are ignored.
func CheckEquivalent(before, after *ir.Function) error {
	var (
		n      = len(before.Params)
		rounds = len(INPUTS)
	)
	//
	switch {
	case n == 0:
		rounds = 1
	case n > 1:
		rounds *= len(INPUTS)
	}
	//
	for r := 0; r < rounds; r++ {
		args := make([]uint256.Int, n)
		//
		for j := range args {
			k := r
			if j%2 == 1 {
				k = r / len(INPUTS)
			}
			//
			args[j].SetUint64(INPUTS[(k+j)%len(INPUTS)])
		}
		//
		expected, err := ir.Interpret(before, memory(), ir.DefaultFuel, args...)
		if errors.Is(err, ir.ErrOutOfFuel) {
			continue
		} else if err != nil {
			return err
		}
		//
		actual, err := ir.Interpret(after, memory(), ir.DefaultFuel, args...)
		if err != nil {
			return err
		} else if !expected.Equals(&actual) {
			return fmt.Errorf("not equivalent on %v: expected %s, got %s", args, expected.String(), actual.String())
		}
	}
	//
	return nil
}

func memory() []byte {
	bytes := make([]byte, MEMORY_SIZE)
	//
	for i := range bytes {
		bytes[i] = byte(i*37 + 11)
	}
	//
	return bytes
}

// Diff compares expected and actual output line by line, returning the
// (1-indexed) number of the first line which differs (if any).
func Diff(expected, actual string) (int, bool) {
	var (
		xs = strings.Split(expected, "\n")
		ys = strings.Split(actual, "\n")
	)
	//
	for i := 0; i < max(len(xs), len(ys)); i++ {
		if i >= len(xs) || i >= len(ys) || xs[i] != ys[i] {
			return i + 1, false
		}
	}
	//
	return 0, true
}

// Describe an error, listing each syntax error in full.
func Describe(err error) string {
	var errs compile.SyntaxErrors
	//
	if !errors.As(err, &errs) {
		return err.Error()
	}
	//
	lines := make([]string, len(errs))
	//
	for i := range errs {
		lines[i] = ErrorToString(&errs[i])
	}
	//
	return strings.Join(lines, "\n")
}

// ErrorToString formats a syntax error as "file:line:start-end message", where
// columns are numbered from 1.
func ErrorToString(err *source.SyntaxError) string {
	span := err.Span()
	line := err.FirstEnclosingLine()
	lineOffset := span.Start() - line.Start()
	// Calculate length (ensures don't overflow line)
	length := min(line.Length()-lineOffset, span.Length())
	//
	return fmt.Sprintf("%s:%d:%d-%d %s", err.SourceFile().Filename(),
		line.Number(), 1+lineOffset, 1+lineOffset+length, err.Message())
}
