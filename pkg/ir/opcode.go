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

//go:generate go run ../../internal/generator

// Opcode identifies an operation in the term model.  The set of opcodes, along
// with their operand layouts and result typing, is given by opcodeTable.
type Opcode uint8

// ResultKind determines how the result type of an instruction is related to
// the types of its operands.
type ResultKind uint8

const (
	// ResultNone indicates an instruction without results.
	ResultNone ResultKind = iota
	// ResultControlling indicates the result type is given explicitly.
	ResultControlling
	// ResultArg0 indicates the result has the type of the first argument.
	ResultArg0
	// ResultArg1 indicates the result has the type of the second argument.
	ResultArg1
	// ResultBool indicates a comparison result.  This is i8 for scalar
	// operands, and an integer vector of matching shape for vectors.
	ResultBool
	// ResultLane indicates the result is the lane type of the first argument.
	ResultLane
	// ResultHalf indicates two results of half the width of the argument.
	ResultHalf
	// ResultDouble indicates one result of twice the width of the arguments.
	ResultDouble
	// ResultF32 indicates an f32 result.
	ResultF32
	// ResultF64 indicates an f64 result.
	ResultF64
)

// Flags captures static properties of an opcode.
type Flags uint8

const (
	// FlagPure indicates an operation with no effect beyond its result.
	FlagPure Flags = 1 << iota
	// FlagCanTrap indicates an operation which can trap.
	FlagCanTrap
	// FlagMemory indicates an operation which accesses memory.
	FlagMemory
	// FlagEffect indicates an operation with an observable side effect.
	FlagEffect
	// FlagTerminator indicates an operation which ends a block.
	FlagTerminator
	// FlagCommutative indicates a binary operation whose arguments commute.
	FlagCommutative
	// FlagInternal indicates an operation used only within the e-graph.
	FlagInternal
)

type opcodeInfo struct {
	name   string
	layout []Operand
	result ResultKind
	flags  Flags
}

// ParseOpcode looks up an opcode by its textual name.  Internal opcodes are
// only returned when explicitly requested.
func ParseOpcode(name string, internal bool) (Opcode, bool) {
	for i := range opcodeTable {
		op := Opcode(i)
		if op != OpInvalid && opcodeTable[i].name == name && (internal || !op.Is(FlagInternal)) {
			return op, true
		}
	}
	//
	return OpInvalid, false
}

// NumOpcodes returns the number of opcodes (including the invalid opcode).
func NumOpcodes() int {
	return int(opcodeCount)
}

func (op Opcode) String() string {
	return opcodeTable[op].name
}

// Layout returns the textual operand layout of this opcode.
func (op Opcode) Layout() []Operand {
	return opcodeTable[op].layout
}

// Result returns the result kind of this opcode.
func (op Opcode) Result() ResultKind {
	return opcodeTable[op].result
}

// Is checks whether this opcode has all of the given flags.
func (op Opcode) Is(flags Flags) bool {
	return opcodeTable[op].flags&flags == flags
}

// IsPure checks whether this opcode is pure irrespective of its operands.
func (op Opcode) IsPure() bool {
	return op.Is(FlagPure)
}

// IsTerminator checks whether this opcode ends a block.
func (op Opcode) IsTerminator() bool {
	return op.Is(FlagTerminator)
}

// IsDivision checks whether this is one of the (trapping) integer divisions.
func (op Opcode) IsDivision() bool {
	return op == OpSdiv || op == OpUdiv || op == OpSrem || op == OpUrem
}

// NumValueArgs returns the number of fixed value arguments in the layout of
// this opcode (i.e. excluding variadic values and block calls).
func (op Opcode) NumValueArgs() int {
	n := 0
	//
	for _, o := range op.Layout() {
		if o == OperandValue {
			n++
		}
	}
	//
	return n
}

// NumImmediates returns the number of immediates in the layout of this opcode.
func (op Opcode) NumImmediates() int {
	n := 0
	//
	for _, o := range op.Layout() {
		if o.IsImmediate() {
			n++
		}
	}
	//
	return n
}

// NumResults returns the number of results produced by an instruction with
// this opcode and a given controlling type.
func (op Opcode) NumResults(ctrl Type) int {
	switch op.Result() {
	case ResultNone:
		return 0
	case ResultHalf:
		return 2
	default:
		if ctrl == InvalidType {
			return 0
		}
		//
		return 1
	}
}

// InferType determines the type of the (first) result of this opcode from its
// value argument types.  This fails for opcodes whose result type is
// controlling, or where the argument types are insufficient.
func (op Opcode) InferType(args []Type) (Type, bool) {
	arg := func(i int) Type {
		if i < len(args) {
			return args[i]
		}
		//
		return InvalidType
	}
	//
	var t Type
	//
	switch op.Result() {
	case ResultArg0:
		t = arg(0)
	case ResultArg1:
		t = arg(1)
	case ResultBool:
		if a := arg(0); a.IsVector() {
			t = a.AsInt()
		} else if a != InvalidType {
			t = I8
		}
	case ResultLane:
		t = arg(0).Lane()
	case ResultHalf:
		t = IntOfWidth(arg(0).Bits() / 2)
	case ResultDouble:
		t = IntOfWidth(arg(0).Bits() * 2)
	case ResultF32:
		t = F32
	case ResultF64:
		t = F64
	}
	//
	return t, t != InvalidType
}

// SafeDivisor determines whether a division by a given constant divisor can
// never trap.  Observe that signed division by -1 can overflow.
func SafeDivisor(op Opcode, ty Type, divisor uint64) bool {
	bits := Mask(divisor, ty.Bits())
	//
	if bits == 0 {
		return false
	} else if op == OpSdiv && bits == Mask(^uint64(0), ty.Bits()) {
		return false
	}
	//
	return true
}
