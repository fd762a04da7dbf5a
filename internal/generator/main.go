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
package main

import (
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"
	"text/template"

	"github.com/consensys/bavard"
)

const copyrightHolder = "Consensys Software Inc."

// opcodeSpec describes a single opcode of the term model.  The generated table
// is the single source of truth for operand layouts, result typing and
// purity.
type opcodeSpec struct {
	// Textual name (as used in function text and rule files)
	Name string
	// Go identifier suffix (e.g. "Iadd" for OpIadd)
	Const string
	// Operand layout in textual order
	Layout []string
	// Result typing rule
	Result string
	// Opcode flags
	Flags []string
}

func op(name string, layout string, result string, flags ...string) opcodeSpec {
	var operands []string
	//
	for _, o := range strings.Fields(layout) {
		operands = append(operands, "Operand"+o)
	}
	//
	return opcodeSpec{name, constName(name), operands, "Result" + result, flags}
}

func constName(name string) string {
	var b strings.Builder
	//
	for _, part := range strings.Split(name, "_") {
		b.WriteString(strings.ToUpper(part[:1]) + part[1:])
	}
	//
	return b.String()
}

var opcodes = []opcodeSpec{
	// Constants
	op("iconst", "Int", "Controlling", "Pure"),
	op("f32const", "Ieee32", "F32", "Pure"),
	op("f64const", "Ieee64", "F64", "Pure"),
	// Integer arithmetic
	op("iadd", "Value Value", "Arg0", "Pure", "Commutative"),
	op("isub", "Value Value", "Arg0", "Pure"),
	op("imul", "Value Value", "Arg0", "Pure", "Commutative"),
	op("ineg", "Value", "Arg0", "Pure"),
	op("iabs", "Value", "Arg0", "Pure"),
	op("umulhi", "Value Value", "Arg0", "Pure", "Commutative"),
	op("smulhi", "Value Value", "Arg0", "Pure", "Commutative"),
	op("sdiv", "Value Value", "Arg0", "CanTrap"),
	op("udiv", "Value Value", "Arg0", "CanTrap"),
	op("srem", "Value Value", "Arg0", "CanTrap"),
	op("urem", "Value Value", "Arg0", "CanTrap"),
	op("smin", "Value Value", "Arg0", "Pure", "Commutative"),
	op("smax", "Value Value", "Arg0", "Pure", "Commutative"),
	op("umin", "Value Value", "Arg0", "Pure", "Commutative"),
	op("umax", "Value Value", "Arg0", "Pure", "Commutative"),
	// Bitwise
	op("band", "Value Value", "Arg0", "Pure", "Commutative"),
	op("bor", "Value Value", "Arg0", "Pure", "Commutative"),
	op("bxor", "Value Value", "Arg0", "Pure", "Commutative"),
	op("bnot", "Value", "Arg0", "Pure"),
	op("band_not", "Value Value", "Arg0", "Pure"),
	op("ishl", "Value Value", "Arg0", "Pure"),
	op("ushr", "Value Value", "Arg0", "Pure"),
	op("sshr", "Value Value", "Arg0", "Pure"),
	op("rotl", "Value Value", "Arg0", "Pure"),
	op("rotr", "Value Value", "Arg0", "Pure"),
	op("clz", "Value", "Arg0", "Pure"),
	op("ctz", "Value", "Arg0", "Pure"),
	op("popcnt", "Value", "Arg0", "Pure"),
	op("bswap", "Value", "Arg0", "Pure"),
	// Comparisons and selection
	op("icmp", "IntCC Value Value", "Bool", "Pure"),
	op("fcmp", "FloatCC Value Value", "Bool", "Pure"),
	op("select", "Value Value Value", "Arg1", "Pure"),
	// Conversions
	op("uextend", "Value", "Controlling", "Pure"),
	op("sextend", "Value", "Controlling", "Pure"),
	op("ireduce", "Value", "Controlling", "Pure"),
	// Floating point
	op("fadd", "Value Value", "Arg0", "Pure"),
	op("fsub", "Value Value", "Arg0", "Pure"),
	op("fmul", "Value Value", "Arg0", "Pure"),
	op("fdiv", "Value Value", "Arg0", "Pure"),
	op("fneg", "Value", "Arg0", "Pure"),
	op("fabs", "Value", "Arg0", "Pure"),
	op("sqrt", "Value", "Arg0", "Pure"),
	// Vectors
	op("splat", "Value", "Controlling", "Pure"),
	op("extractlane", "Value Lane", "Lane", "Pure"),
	// Wide integers
	op("iconcat", "Value Value", "Double", "Pure"),
	op("isplit", "Value", "Half", "Pure"),
	// Memory
	op("load", "Value Offset", "Controlling", "CanTrap", "Memory"),
	op("uload8", "Value Offset", "Controlling", "CanTrap", "Memory"),
	op("sload8", "Value Offset", "Controlling", "CanTrap", "Memory"),
	op("uload16", "Value Offset", "Controlling", "CanTrap", "Memory"),
	op("sload16", "Value Offset", "Controlling", "CanTrap", "Memory"),
	op("uload32", "Value Offset", "Controlling", "CanTrap", "Memory"),
	op("sload32", "Value Offset", "Controlling", "CanTrap", "Memory"),
	op("store", "Value Value Offset", "None", "CanTrap", "Memory", "Effect"),
	op("istore8", "Value Value Offset", "None", "CanTrap", "Memory", "Effect"),
	op("istore16", "Value Value Offset", "None", "CanTrap", "Memory", "Effect"),
	op("istore32", "Value Value Offset", "None", "CanTrap", "Memory", "Effect"),
	op("atomic_rmw", "AtomicOp Value Value", "Controlling", "CanTrap", "Memory", "Effect"),
	// Calls and traps
	op("call", "Func Values", "Controlling", "Effect"),
	op("trap", "TrapCode", "None", "Effect", "Terminator"),
	op("trapz", "Value TrapCode", "None", "CanTrap", "Effect"),
	op("trapnz", "Value TrapCode", "None", "CanTrap", "Effect"),
	// Control flow
	op("jump", "Block", "None", "Terminator"),
	op("brif", "Value Block Block", "None", "Terminator"),
	op("br_table", "Value Block Blocks", "None", "Terminator"),
	op("return", "Values", "None", "Terminator"),
	// Internal (e-graph only)
	op("opaque", "Int", "Controlling", "Internal"),
	op("proj", "Value Lane", "Controlling", "Pure", "Internal"),
}

//go:generate go run main.go
func main() {
	bgen := bavard.NewBatchGenerator(copyrightHolder, 2025, "go-saturn")
	funcs := template.FuncMap{
		"layout": func(ops []string) string { return strings.Join(ops, ", ") },
		"flags":  flagsOf,
	}
	//
	assertNoError(bgen.GenerateWithOptions(struct{ Opcodes []opcodeSpec }{opcodes}, "ir", "templates",
		[]func(*bavard.Bavard) error{bavard.Funcs(funcs)},
		bavard.Entry{
			File:      "../../pkg/ir/opcode_table.go",
			Templates: []string{"opcode_table.go.tmpl"},
		},
	), "for opcode table")
	// run gofmt on generated file
	runCmd("gofmt", "-w", "../../pkg/ir/opcode_table.go")
}

func flagsOf(flags []string) string {
	if len(flags) == 0 {
		return "0"
	}
	//
	names := slices.Clone(flags)
	for i, f := range names {
		names[i] = "Flag" + f
	}
	//
	return strings.Join(names, " | ")
}

func runCmd(name string, arg ...string) {
	fmt.Println(name, strings.Join(arg, " "))
	cmd := exec.Command(name, arg...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	assertNoError(cmd.Run(), "")
}

func assertNoError(err error, contextAndArgs ...any) {
	if err != nil {
		msg := err.Error()

		if len(contextAndArgs) > 0 {
			allArgs := append(slices.Clone(contextAndArgs[1:]), err)
			msg = fmt.Sprintf(contextAndArgs[0].(string)+": %v", allArgs...)
		}

		fmt.Println(msg)
		os.Exit(1)
	}
}
