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
package target

import (
	"fmt"
	"strings"

	"github.com/consensys/go-saturn/pkg/ir"
	"github.com/consensys/go-saturn/pkg/util/source"
	"github.com/consensys/go-saturn/pkg/vcode"
)

// Backend provides everything needed to compile for one architecture: its
// lowering rules, an estimate of the cost of each operation (which guides
// extraction) and the textual form of its instructions.
type Backend interface {
	// Name of this backend.
	Name() string
	// Rules returns the lowering rules for this backend.
	Rules() *source.File
	// Cost estimates the cost of a given operation on this architecture.
	Cost(op ir.Opcode, ty ir.Type) uint64
	// Emit produces the textual form of a machine instruction, given that of
	// its operands.
	Emit(inst *vcode.Inst, operands []string) string
}

var backends = make(map[Arch]Backend)

// Register a backend for one or more architectures.  This is intended to be
// called from the init function of the package implementing the backend.
func Register(b Backend, arches ...Arch) {
	for _, arch := range arches {
		if _, ok := backends[arch]; ok {
			panic(fmt.Sprintf("duplicate backend for %s", arch))
		}
		//
		backends[arch] = b
	}
}

// Lookup the backend registered for a given architecture.
func Lookup(arch Arch) (Backend, error) {
	if b, ok := backends[arch]; ok {
		return b, nil
	}
	//
	return nil, fmt.Errorf("no backend registered for %s", arch)
}

// Instruction names in rule files carry a suffix identifying the form of their
// operands (e.g. "add_ri" for register and immediate), which is not part of
// the assembly mnemonic.
var formSuffixes = []string{"_rrrr", "_rrr", "_rri", "_rr", "_ri", "_rm", "_mr", "_r", "_m", "_i"}

// Mnemonic strips the operand form suffix (if any) from an instruction name.
func Mnemonic(name string) string {
	for _, s := range formSuffixes {
		if base, ok := strings.CutSuffix(name, s); ok && base != "" {
			return base
		}
	}
	//
	return name
}
