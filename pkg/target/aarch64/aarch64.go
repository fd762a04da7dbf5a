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
package aarch64

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
	target.Register(Backend{}, target.Aarch64)
}

// Backend for AArch64.
type Backend struct{}

// Name implementation for target.Backend interface.
func (Backend) Name() string { return "aarch64" }

// Rules implementation for target.Backend interface.
func (Backend) Rules() *source.File {
	return source.NewSourceFile("aarch64/lower.rules", rules)
}

// Cost implementation for target.Backend interface.  Multiplication fuses
// with addition, hence is only marginally more expensive.
func (Backend) Cost(op ir.Opcode, ty ir.Type) uint64 {
	if op == ir.OpImul && ty != ir.I128 {
		return 2
	}
	//
	return egraph.DefaultCost(op, ty)
}

var conditions = map[string]string{
	"eq": "eq", "ne": "ne",
	"slt": "lt", "sle": "le", "sgt": "gt", "sge": "ge",
	"ult": "lo", "ule": "ls", "ugt": "hi", "uge": "hs",
	"lt": "mi", "le": "ls", "gt": "gt", "ge": "ge",
	"uno": "vs", "ord": "vc",
}

// Mnemonics which differ from the name of their instruction.
var renamed = map[string]string{
	"ldrw":      "ldr",
	"strw":      "str",
	"ldxr_loop": "ldaxr/stlxr",
	"bl_void":   "bl",
}

// Emit implementation for target.Backend interface.
func (Backend) Emit(inst *vcode.Inst, ops []string) string {
	switch inst.Name() {
	case "b_cond":
		return fmt.Sprintf("b.%s %s; b %s", conditions[ops[0]], ops[1], ops[2])
	case "cbnz_r":
		return fmt.Sprintf("cbnz %s, %s; b %s", ops[0], ops[1], ops[2])
	case "cset":
		return fmt.Sprintf("cset %s, %s", ops[0], conditions[ops[1]])
	case "csel_rrr":
		return fmt.Sprintf("csel %s, %s, %s, %s", ops[0], ops[2], ops[3], conditions[ops[1]])
	case "cneg_rr":
		return fmt.Sprintf("cneg %s, %s, %s", ops[0], ops[2], conditions[ops[1]])
	case "cbz_trap", "cbnz_trap":
		return fmt.Sprintf("%s %s, .Ltrap_%s", strings.TrimSuffix(inst.Name(), "_trap"), ops[0], ops[1])
	case "b_trap":
		return fmt.Sprintf("b.%s .Ltrap_%s", conditions[ops[0]], ops[1])
	case "udf":
		return fmt.Sprintf("udf #%s", ops[0])
	case "ldr_idx":
		return fmt.Sprintf("ldr %s, [%s, %s, lsl #%s]", ops[0], ops[1], ops[2], ops[3])
	case "add_lsl_rrr":
		return fmt.Sprintf("add %s, %s, %s, lsl #%s", ops[0], ops[1], ops[2], ops[3])
	case "bl_r":
		return fmt.Sprintf("bl %s(%s) -> %s", ops[1], strings.Join(ops[2:], ", "), ops[0])
	}
	//
	mnemonic := target.Mnemonic(inst.Name())
	//
	if m, ok := renamed[mnemonic]; ok {
		mnemonic = m
	} else if inst.Type.IsVector() && strings.HasPrefix(mnemonic, "v") {
		mnemonic = fmt.Sprintf("%s.%s", mnemonic[1:], arrangement(inst.Type))
	}
	//
	if len(ops) == 0 {
		return mnemonic
	}
	//
	return mnemonic + " " + strings.Join(ops, ", ")
}

// Arrangement specifier of a 128-bit vector type (e.g. "4s").
func arrangement(ty ir.Type) string {
	var size string
	//
	switch ty.Lane().Bits() {
	case 8:
		size = "b"
	case 16:
		size = "h"
	case 32:
		size = "s"
	default:
		size = "d"
	}
	//
	return fmt.Sprintf("%d%s", ty.Lanes(), size)
}
