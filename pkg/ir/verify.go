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
package ir

import (
	"fmt"
)

// Verify checks that a function is well-formed.  Specifically, every block
// ends in exactly one terminator, operands agree with the layout of their
// opcode, operand types are consistent, block calls agree with the parameters
// of their targets, and every use of a value is dominated by its definition.
func Verify(f *Function) error {
	if len(f.Blocks) == 0 {
		return fmt.Errorf("function %s has no blocks", f.Name)
	}
	// Check signature against entry
	entry := f.Entry()
	if len(entry.Params) != len(f.Params) {
		return fmt.Errorf("entry block has %d parameters, expected %d", len(entry.Params), len(f.Params))
	}
	//
	for i, p := range entry.Params {
		if f.ValueType(p) != f.Params[i] {
			return fmt.Errorf("entry parameter %s has type %s, expected %s", p, f.ValueType(p), f.Params[i])
		}
	}
	//
	dom := ComputeDominators(f)
	//
	for _, b := range f.Blocks {
		if len(b.Insts) == 0 {
			return fmt.Errorf("%s is empty", b.ID)
		}
		//
		for k, i := range b.Insts {
			inst := &f.Insts[i]
			last := k == len(b.Insts)-1
			//
			if inst.Op.IsTerminator() != last {
				if last {
					return fmt.Errorf("%s does not end with a terminator", b.ID)
				}
				//
				return fmt.Errorf("%s has terminator %s before its end", b.ID, inst.Op)
			} else if err := f.verifyInstruction(inst); err != nil {
				return fmt.Errorf("%s: %s: %w", b.ID, inst.Op, err)
			} else if err := f.verifyDominance(dom, b, k, inst); err != nil {
				return fmt.Errorf("%s: %s: %w", b.ID, inst.Op, err)
			}
		}
	}
	//
	return nil
}

func (f *Function) verifyDominance(dom *DomTree, b *Block, pos int, inst *Instruction) error {
	if !dom.IsReachable(b.ID) {
		return nil
	}
	//
	for _, v := range inst.Uses() {
		def := f.Value(v)
		//
		switch {
		case def.Type == InvalidType:
			return fmt.Errorf("use of undefined value %s", v)
		case def.Block == b.ID:
			if !def.IsParam() && f.positionOf(b, def.Inst) >= pos {
				return fmt.Errorf("use of %s before its definition", v)
			}
		case !dom.Dominates(def.Block, b.ID):
			return fmt.Errorf("use of %s not dominated by its definition", v)
		}
	}
	//
	return nil
}

func (f *Function) positionOf(b *Block, inst int) int {
	for k, i := range b.Insts {
		if i == inst {
			return k
		}
	}
	//
	return len(b.Insts)
}

func (f *Function) verifyInstruction(inst *Instruction) error {
	var (
		op       = inst.Op
		nargs    = op.NumValueArgs()
		variadic = false
		targets  = 0
		multi    = false
	)
	//
	for _, o := range op.Layout() {
		switch o {
		case OperandValues:
			variadic = true
		case OperandBlock:
			targets++
		case OperandBlocks:
			multi = true
		}
	}
	//
	switch {
	case op.Is(FlagInternal):
		return fmt.Errorf("internal operation")
	case len(inst.Args) < nargs || (!variadic && len(inst.Args) != nargs):
		return fmt.Errorf("incorrect number of arguments (%d)", len(inst.Args))
	case len(inst.Imms) != op.NumImmediates():
		return fmt.Errorf("incorrect number of immediates (%d)", len(inst.Imms))
	case len(inst.Targets) < targets || (!multi && len(inst.Targets) != targets):
		return fmt.Errorf("incorrect number of targets (%d)", len(inst.Targets))
	}
	//
	for _, t := range inst.Targets {
		if err := f.verifyBlockCall(t); err != nil {
			return err
		}
	}
	//
	args := make([]Type, len(inst.Args))
	for i, a := range inst.Args {
		if args[i] = f.ValueType(a); args[i] == InvalidType {
			return fmt.Errorf("use of undefined value %s", a)
		}
	}
	//
	if inst.Op == OpReturn {
		return f.verifyReturn(args)
	}
	//
	return CheckTypes(inst.Op, inst.Type, args, inst.Imms)
}

func (f *Function) verifyReturn(args []Type) error {
	if len(args) != len(f.Returns) {
		return fmt.Errorf("expected %d return value(s)", len(f.Returns))
	}
	//
	for i, t := range args {
		if t != f.Returns[i] {
			return fmt.Errorf("return value %d has type %s, expected %s", i, t, f.Returns[i])
		}
	}
	//
	return nil
}

func (f *Function) verifyBlockCall(call BlockCall) error {
	target := f.Block(call.Block)
	//
	if target == nil {
		return fmt.Errorf("unknown block %s", call.Block)
	} else if target == f.Entry() {
		return fmt.Errorf("branch to entry block")
	} else if len(call.Args) != len(target.Params) {
		return fmt.Errorf("%s expects %d argument(s)", call.Block, len(target.Params))
	}
	//
	for i, a := range call.Args {
		if f.ValueType(a) != f.ValueType(target.Params[i]) {
			return fmt.Errorf("argument %s to %s has type %s, expected %s", a, call.Block, f.ValueType(a),
				f.ValueType(target.Params[i]))
		}
	}
	//
	return nil
}

func isIntLike(t Type) bool {
	return t.IsInt() || (t.IsVector() && t.Lane().IsInt())
}

func isFloatLike(t Type) bool {
	return t.IsFloat() || (t.IsVector() && t.Lane().IsFloat())
}

func isAddress(t Type) bool {
	return t == I32 || t == I64
}

// CheckTypes checks the operand types of an operation against its controlling
// type.
//
//nolint:gocyclo
func CheckTypes(op Opcode, ty Type, args []Type, imms []uint64) error {
	if expected, ok := op.InferType(args); ok && expected != ty {
		return &TypeError{op, expected, ty, "result type mismatch"}
	}
	//
	switch op {
	case OpIconst:
		if !ty.IsInt() {
			return fmt.Errorf("integer constant of type %s", ty)
		}
	case OpIadd, OpIsub, OpImul, OpUmulhi, OpSmulhi, OpSdiv, OpUdiv, OpSrem, OpUrem, OpSmin, OpSmax, OpUmin,
		OpUmax, OpBand, OpBor, OpBxor, OpBandNot:
		return sameTypes(ty, isIntLike, args...)
	case OpIneg, OpIabs, OpBnot, OpClz, OpCtz, OpPopcnt, OpBswap:
		return sameTypes(ty, isIntLike, args...)
	case OpIshl, OpUshr, OpSshr, OpRotl, OpRotr:
		if !args[1].IsInt() {
			return fmt.Errorf("shift amount of type %s", args[1])
		}
		//
		return sameTypes(ty, isIntLike, args[0])
	case OpIcmp:
		return sameTypes(args[0], isIntLike, args[1])
	case OpFcmp:
		return sameTypes(args[0], isFloatLike, args[1])
	case OpSelect:
		if !isIntLike(args[0]) {
			return fmt.Errorf("select condition of type %s", args[0])
		}
		//
		return sameTypes(ty, func(Type) bool { return true }, args[1:]...)
	case OpUextend, OpSextend:
		if !ty.IsInt() || !args[0].IsInt() || args[0].Bits() >= ty.Bits() {
			return fmt.Errorf("cannot extend %s to %s", args[0], ty)
		}
	case OpIreduce:
		if !ty.IsInt() || !args[0].IsInt() || args[0].Bits() <= ty.Bits() {
			return fmt.Errorf("cannot reduce %s to %s", args[0], ty)
		}
	case OpFadd, OpFsub, OpFmul, OpFdiv, OpFneg, OpFabs, OpSqrt:
		return sameTypes(ty, isFloatLike, args...)
	case OpSplat:
		if !ty.IsVector() || ty.Lane() != args[0] {
			return fmt.Errorf("cannot splat %s to %s", args[0], ty)
		}
	case OpExtractlane:
		if !args[0].IsVector() || imms[0] >= uint64(args[0].Lanes()) {
			return fmt.Errorf("invalid lane %d of %s", imms[0], args[0])
		}
	case OpIconcat:
		if !args[0].IsInt() || args[0] == I128 {
			return fmt.Errorf("cannot concatenate %s", args[0])
		}
		//
		return sameTypes(args[0], Type.IsInt, args[1])
	case OpIsplit:
		if !args[0].IsInt() || args[0] == I8 {
			return fmt.Errorf("cannot split %s", args[0])
		}
	case OpLoad:
		return checkAddress(args[0])
	case OpUload8, OpSload8, OpUload16, OpSload16, OpUload32, OpSload32:
		if !ty.IsInt() || ty.Bits() <= memoryWidth(op) {
			return fmt.Errorf("cannot extend %d bits to %s", memoryWidth(op), ty)
		}
		//
		return checkAddress(args[0])
	case OpStore:
		return checkAddress(args[1])
	case OpIstore8, OpIstore16, OpIstore32:
		if !args[0].IsInt() || args[0].Bits() <= memoryWidth(op) {
			return fmt.Errorf("cannot truncate %s to %d bits", args[0], memoryWidth(op))
		}
		//
		return checkAddress(args[1])
	case OpAtomicRmw:
		if !ty.IsInt() || ty == I128 {
			return fmt.Errorf("atomic operation on %s", ty)
		}
		//
		return sameTypes(ty, Type.IsInt, args[1])
	case OpTrapz, OpTrapnz, OpBrif, OpBrTable:
		if !args[0].IsInt() {
			return fmt.Errorf("condition of type %s", args[0])
		}
	}
	//
	return nil
}

// memoryWidth returns the number of bits accessed in memory by a narrow load
// or store, or zero for other operations.
func memoryWidth(op Opcode) uint {
	switch op {
	case OpUload8, OpSload8, OpIstore8:
		return 8
	case OpUload16, OpSload16, OpIstore16:
		return 16
	case OpUload32, OpSload32, OpIstore32:
		return 32
	}
	//
	return 0
}

func sameTypes(ty Type, family func(Type) bool, args ...Type) error {
	if !family(ty) {
		return fmt.Errorf("unsupported type %s", ty)
	}
	//
	for _, a := range args {
		if a != ty {
			return &TypeError{OpInvalid, ty, a, "operand type mismatch"}
		}
	}
	//
	return nil
}

func checkAddress(t Type) error {
	if !isAddress(t) {
		return fmt.Errorf("address of type %s", t)
	}
	//
	return nil
}
