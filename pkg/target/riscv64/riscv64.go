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
package riscv64

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
	target.Register(Backend{}, target.Riscv64)
}

// Backend for 64-bit RISC-V.
type Backend struct{}

// Name implementation for target.Backend interface.
func (Backend) Name() string { return "riscv64" }

// Rules implementation for target.Backend interface.
func (Backend) Rules() *source.File {
	return source.NewSourceFile("riscv64/lower.rules", rules)
}

// Cost implementation for target.Backend interface.  Selection has no single
// instruction form.
func (Backend) Cost(op ir.Opcode, ty ir.Type) uint64 {
	switch op {
	case ir.OpSelect, ir.OpSmin, ir.OpSmax, ir.OpUmin, ir.OpUmax:
		return 4
	}
	//
	return egraph.DefaultCost(op, ty)
}

var branches = map[string]string{
	"eq": "beq", "ne": "bne",
	"slt": "blt", "sle": "ble", "sgt": "bgt", "sge": "bge",
	"ult": "bltu", "ule": "bleu", "ugt": "bgtu", "uge": "bgeu",
}

// Emit implementation for target.Backend interface.
func (Backend) Emit(inst *vcode.Inst, ops []string) string {
	switch inst.Name() {
	case "bcc":
		return fmt.Sprintf("%s %s, %s, %s; j %s", branches[ops[0]], ops[1], ops[2], ops[3], ops[4])
	case "bnez_r":
		return fmt.Sprintf("bnez %s, %s; j %s", ops[0], ops[1], ops[2])
	case "beqz_trap", "bnez_trap":
		return fmt.Sprintf("%s %s, .Ltrap_%s", strings.TrimSuffix(inst.Name(), "_trap"), ops[0], ops[1])
	case "unimp":
		return "unimp"
	case "fmv_x_r":
		if inst.Type == ir.F32 {
			return fmt.Sprintf("fmv.w.x %s, %s", ops[0], ops[1])
		}
		//
		return fmt.Sprintf("fmv.d.x %s, %s", ops[0], ops[1])
	case "call_r":
		return fmt.Sprintf("call %s(%s) -> %s", ops[1], strings.Join(ops[2:], ", "), ops[0])
	case "call_void":
		return fmt.Sprintf("call %s(%s)", ops[0], strings.Join(ops[1:], ", "))
	}
	//
	mnemonic := target.Mnemonic(inst.Name())
	//
	switch {
	case strings.HasPrefix(mnemonic, "v"), mnemonic == "sext_w", mnemonic == "zext_w":
		mnemonic = strings.ReplaceAll(mnemonic, "_", ".")
	case inst.Decl.Sized:
		mnemonic += suffix(mnemonic, inst.Type)
	}
	//
	if len(ops) == 0 {
		return mnemonic
	}
	//
	return mnemonic + " " + strings.Join(ops, ", ")
}

// Floating point instructions are suffixed by their precision, and atomic
// memory operations by their width.  Otherwise, 32-bit operations carry a "w"
// suffix.
func suffix(mnemonic string, ty ir.Type) string {
	switch {
	case ty == ir.F32:
		return ".s"
	case ty == ir.F64:
		return ".d"
	case strings.HasPrefix(mnemonic, "amo") && ty.Bits() == 32:
		return ".w"
	case strings.HasPrefix(mnemonic, "amo"):
		return ".d"
	case ty == ir.I32:
		return "w"
	}
	//
	return ""
}
