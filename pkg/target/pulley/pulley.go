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
package pulley

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/consensys/go-saturn/pkg/ir"
	"github.com/consensys/go-saturn/pkg/target"
	"github.com/consensys/go-saturn/pkg/util/source"
	"github.com/consensys/go-saturn/pkg/vcode"
)

//go:embed lower.rules
var rules []byte

func init() {
	target.Register(Backend{}, target.Pulley32, target.Pulley64)
}

// Backend for the Pulley interpreter.  The same rules serve both pointer
// widths, with rules specific to one selected by the ptr32 or ptr64 feature.
type Backend struct{}

// Name implementation for target.Backend interface.
func (Backend) Name() string { return "pulley" }

// Rules implementation for target.Backend interface.
func (Backend) Rules() *source.File {
	return source.NewSourceFile("pulley/lower.rules", rules)
}

// Cost implementation for target.Backend interface.  Every operation is
// dispatched by the interpreter, so instruction count dominates.
func (Backend) Cost(op ir.Opcode, ty ir.Type) uint64 {
	switch op {
	case ir.OpOpaque, ir.OpProj:
		return 0
	case ir.OpSdiv, ir.OpUdiv, ir.OpSrem, ir.OpUrem:
		return 2
	}
	//
	if ty == ir.I128 {
		return 3
	}
	//
	return 1
}

// Emit implementation for target.Backend interface.
func (Backend) Emit(inst *vcode.Inst, ops []string) string {
	name := target.Mnemonic(inst.Name())
	//
	switch {
	case inst.IsBranch():
		// Conditional branches fall through to a jump for the false edge
		n := len(ops)
		return fmt.Sprintf("%s %s; jump %s", name, strings.Join(ops[:n-1], ", "), ops[n-1])
	case inst.Name() == "call_r":
		return fmt.Sprintf("call %s(%s) -> %s", ops[1], strings.Join(ops[2:], ", "), ops[0])
	case name == "call_void":
		return fmt.Sprintf("call %s(%s)", ops[0], strings.Join(ops[1:], ", "))
	case len(ops) == 0:
		return name
	}
	//
	return name + " " + strings.Join(ops, ", ")
}
