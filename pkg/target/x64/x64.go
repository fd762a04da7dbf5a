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
package x64

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/consensys/go-saturn/pkg/egraph"
	"github.com/consensys/go-saturn/pkg/ir"
	"github.com/consensys/go-saturn/pkg/target"
	"github.com/consensys/go-saturn/pkg/util/source"
	"github.com/consensys/go-saturn/pkg/vcode"
)

//go:embed lower.rules
var rules []byte

func init() {
	target.Register(Backend{}, target.X64)
}

// Backend for x86-64.
type Backend struct{}

// Name implementation for target.Backend interface.
func (Backend) Name() string { return "x64" }

// Rules implementation for target.Backend interface.
func (Backend) Rules() *source.File {
	return source.NewSourceFile("x64/lower.rules", rules)
}

// Cost implementation for target.Backend interface.  Division is
// considerably slower than on other targets, whilst shifts by a register are
// comparatively expensive without BMI2 and so weighted slightly.
func (Backend) Cost(op ir.Opcode, ty ir.Type) uint64 {
	switch op {
	case ir.OpSdiv, ir.OpUdiv, ir.OpSrem, ir.OpUrem:
		return 20
	case ir.OpIshl, ir.OpUshr, ir.OpSshr:
		if ty == ir.I128 {
			return 6
		}
		//
		return 1
	}
	//
	if ty == ir.I64X2 && op == ir.OpImul {
		return 6
	}
	//
	return egraph.DefaultCost(op, ty)
}

// Condition code suffixes, which differ for integer and floating point
// comparisons (the latter set the flags as an unsigned comparison would).
var conditions = map[string]string{
	"eq": "e", "ne": "ne",
	"slt": "l", "sle": "le", "sgt": "g", "sge": "ge",
	"ult": "b", "ule": "be", "ugt": "a", "uge": "ae",
	"lt": "b", "le": "be", "gt": "a", "ge": "ae",
	"uno": "p", "ord": "np",
}

// Emit implementation for target.Backend interface.
func (Backend) Emit(inst *vcode.Inst, ops []string) string {
	name := inst.Name()
	//
	switch name {
	case "jcc":
		// jcc cc, taken, not taken
		return fmt.Sprintf("j%s %s; jmp %s", conditions[ops[0]], ops[1], ops[2])
	case "setcc":
		return fmt.Sprintf("set%s %s", conditions[ops[1]], ops[0])
	case "cmov_rr":
		return fmt.Sprintf("cmov%s%s %s, %s, %s", conditions[ops[1]], suffix(inst.Type), ops[0], ops[2], ops[3])
	case "trapif":
		return fmt.Sprintf("j%s .Ltrap_%s", conditions[ops[0]], ops[1])
	case "ud2":
		return "ud2"
	case "lea_rr":
		return fmt.Sprintf("lea %s, [%s+%s*%s+%s]", ops[0], ops[1], ops[2], ops[3], ops[4])
	case "call_r":
		return fmt.Sprintf("call %s(%s) -> %s", ops[1], strings.Join(ops[2:], ", "), ops[0])
	case "call_void":
		return fmt.Sprintf("call %s(%s)", ops[0], strings.Join(ops[1:], ", "))
	case "jmp_table":
		return fmt.Sprintf("jmp [table %s] %s", ops[0], strings.Join(ops[1:], ", "))
	}
	//
	mnemonic := strings.Replace(target.Mnemonic(name), "lock_", "lock ", 1)
	//
	if inst.Decl.Sized {
		mnemonic += suffix(inst.Type)
	}
	// Stores are written destination first
	if strings.HasSuffix(name, "_mr") {
		ops = []string{ops[1], ops[0]}
	}
	//
	if len(ops) == 0 {
		return mnemonic
	}
	//
	return mnemonic + " " + strings.Join(ops, ", ")
}

func suffix(ty ir.Type) string {
	switch ty.Bits() {
	case 8:
		return "b"
	case 16:
		return "w"
	case 32:
		return "l"
	default:
		return "q"
	}
}
