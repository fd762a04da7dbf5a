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
	"math"
	"strconv"
	"strings"
)

// IntCC is an integer comparison condition code.
type IntCC uint8

const (
	// IntEq is equality.
	IntEq IntCC = iota
	// IntNe is inequality.
	IntNe
	// IntSlt is signed less-than.
	IntSlt
	// IntSle is signed less-than-or-equal.
	IntSle
	// IntSgt is signed greater-than.
	IntSgt
	// IntSge is signed greater-than-or-equal.
	IntSge
	// IntUlt is unsigned less-than.
	IntUlt
	// IntUle is unsigned less-than-or-equal.
	IntUle
	// IntUgt is unsigned greater-than.
	IntUgt
	// IntUge is unsigned greater-than-or-equal.
	IntUge
)

var intCCNames = []string{"eq", "ne", "slt", "sle", "sgt", "sge", "ult", "ule", "ugt", "uge"}

func (c IntCC) String() string { return intCCNames[c] }

// Inverse returns the condition code which holds exactly when this one does
// not.
func (c IntCC) Inverse() IntCC {
	switch c {
	case IntEq:
		return IntNe
	case IntNe:
		return IntEq
	case IntSlt:
		return IntSge
	case IntSge:
		return IntSlt
	case IntSgt:
		return IntSle
	case IntSle:
		return IntSgt
	case IntUlt:
		return IntUge
	case IntUge:
		return IntUlt
	case IntUgt:
		return IntUle
	default:
		return IntUgt
	}
}

// Swap returns the condition code obtained by swapping the operands.
func (c IntCC) Swap() IntCC {
	switch c {
	case IntSlt:
		return IntSgt
	case IntSgt:
		return IntSlt
	case IntSle:
		return IntSge
	case IntSge:
		return IntSle
	case IntUlt:
		return IntUgt
	case IntUgt:
		return IntUlt
	case IntUle:
		return IntUge
	case IntUge:
		return IntUle
	default:
		return c
	}
}

// FloatCC is a floating point comparison condition code.
type FloatCC uint8

const (
	// FloatEq is ordered equality.
	FloatEq FloatCC = iota
	// FloatNe is unordered-or-not-equal.
	FloatNe
	// FloatLt is ordered less-than.
	FloatLt
	// FloatLe is ordered less-than-or-equal.
	FloatLe
	// FloatGt is ordered greater-than.
	FloatGt
	// FloatGe is ordered greater-than-or-equal.
	FloatGe
	// FloatUno holds if either operand is NaN.
	FloatUno
	// FloatOrd holds if neither operand is NaN.
	FloatOrd
)

var floatCCNames = []string{"eq", "ne", "lt", "le", "gt", "ge", "uno", "ord"}

func (c FloatCC) String() string { return floatCCNames[c] }

// TrapCode identifies the reason for a trap.
type TrapCode uint8

const (
	// TrapHeapOutOfBounds is raised by out-of-bounds memory accesses.
	TrapHeapOutOfBounds TrapCode = iota
	// TrapIntDivideByZero is raised by integer division by zero.
	TrapIntDivideByZero
	// TrapIntOverflow is raised by signed division overflow.
	TrapIntOverflow
	// TrapBadConversion is raised by invalid float to int conversions.
	TrapBadConversion
	// TrapUnreachable is raised by unreachable code.
	TrapUnreachable
	// TrapUser is a user-defined trap.
	TrapUser
)

var trapCodeNames = []string{"heap_oob", "int_divz", "int_ovf", "bad_conv", "unreachable", "user"}

func (c TrapCode) String() string { return trapCodeNames[c] }

// AtomicOp identifies the operation of an atomic read-modify-write.
type AtomicOp uint8

const (
	// AtomicAdd is atomic addition.
	AtomicAdd AtomicOp = iota
	// AtomicSub is atomic subtraction.
	AtomicSub
	// AtomicAnd is atomic bitwise and.
	AtomicAnd
	// AtomicOr is atomic bitwise or.
	AtomicOr
	// AtomicXor is atomic bitwise xor.
	AtomicXor
	// AtomicXchg is atomic exchange.
	AtomicXchg
)

var atomicOpNames = []string{"add", "sub", "and", "or", "xor", "xchg"}

func (c AtomicOp) String() string { return atomicOpNames[c] }

// Operand identifies the kind of an operand in the textual layout of an
// instruction.
type Operand uint8

const (
	// OperandValue is a single value argument.
	OperandValue Operand = iota
	// OperandValues is a variadic list of value arguments.
	OperandValues
	// OperandInt is an integer immediate (e.g. for iconst).
	OperandInt
	// OperandIeee32 is a single precision float immediate, held as its bits.
	OperandIeee32
	// OperandIeee64 is a double precision float immediate, held as its bits.
	OperandIeee64
	// OperandIntCC is an integer condition code.
	OperandIntCC
	// OperandFloatCC is a float condition code.
	OperandFloatCC
	// OperandLane is a vector lane index.
	OperandLane
	// OperandOffset is a signed memory offset.
	OperandOffset
	// OperandTrapCode is a trap code.
	OperandTrapCode
	// OperandAtomicOp is an atomic operation.
	OperandAtomicOp
	// OperandFunc is the name of a called function.
	OperandFunc
	// OperandBlock is a block call (target plus arguments).
	OperandBlock
	// OperandBlocks is a variadic list of block calls.
	OperandBlocks
)

// IsImmediate checks whether this operand is held in the immediates of an
// instruction.
func (o Operand) IsImmediate() bool {
	return o >= OperandInt && o <= OperandAtomicOp
}

// ParseImmediate parses the textual form of an immediate of the given kind.
func ParseImmediate(kind Operand, text string) (uint64, error) {
	switch kind {
	case OperandInt, OperandOffset, OperandLane:
		return ParseInt(text)
	case OperandIeee32:
		f, err := strconv.ParseFloat(text, 32)
		return uint64(math.Float32bits(float32(f))), err
	case OperandIeee64:
		f, err := strconv.ParseFloat(text, 64)
		return math.Float64bits(f), err
	case OperandIntCC:
		return lookupName(intCCNames, text, "condition code")
	case OperandFloatCC:
		return lookupName(floatCCNames, text, "condition code")
	case OperandTrapCode:
		return lookupName(trapCodeNames, text, "trap code")
	case OperandAtomicOp:
		return lookupName(atomicOpNames, text, "atomic operation")
	}
	//
	return 0, fmt.Errorf("operand is not an immediate")
}

// FormatImmediate produces the textual form of an immediate of the given kind.
func FormatImmediate(kind Operand, imm uint64) string {
	switch kind {
	case OperandOffset:
		return strconv.FormatInt(int64(imm), 10)
	case OperandIeee32:
		return strconv.FormatFloat(float64(math.Float32frombits(uint32(imm))), 'g', -1, 32)
	case OperandIeee64:
		return strconv.FormatFloat(math.Float64frombits(imm), 'g', -1, 64)
	case OperandIntCC:
		return IntCC(imm).String()
	case OperandFloatCC:
		return FloatCC(imm).String()
	case OperandTrapCode:
		return TrapCode(imm).String()
	case OperandAtomicOp:
		return AtomicOp(imm).String()
	default:
		return strconv.FormatUint(imm, 10)
	}
}

// ParseInt parses an integer literal which may be negative, or hexadecimal.
// Negative values are returned in two's complement form.
func ParseInt(text string) (uint64, error) {
	neg := strings.HasPrefix(text, "-")
	body := strings.TrimPrefix(text, "-")
	//
	v, err := strconv.ParseUint(body, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer \"%s\"", text)
	} else if neg {
		return -v, nil
	}
	//
	return v, nil
}

// ParseIntCC parses an integer condition code.
func ParseIntCC(text string) (IntCC, bool) {
	v, err := lookupName(intCCNames, text, "")
	return IntCC(v), err == nil
}

// ParseFloatCC parses a float condition code.
func ParseFloatCC(text string) (FloatCC, bool) {
	v, err := lookupName(floatCCNames, text, "")
	return FloatCC(v), err == nil
}

// ParseTrapCode parses a trap code.
func ParseTrapCode(text string) (TrapCode, bool) {
	v, err := lookupName(trapCodeNames, text, "")
	return TrapCode(v), err == nil
}

func lookupName(names []string, text string, what string) (uint64, error) {
	for i, n := range names {
		if n == text {
			return uint64(i), nil
		}
	}
	//
	return 0, fmt.Errorf("unknown %s \"%s\"", what, text)
}

// Mask returns the given bits truncated to a given bitwidth (at most 64).
func Mask(bits uint64, width uint) uint64 {
	if width >= 64 {
		return bits
	}
	//
	return bits & ((uint64(1) << width) - 1)
}

// SignExtend sign extends the given bits from a given bitwidth (at most 64).
func SignExtend(bits uint64, width uint) int64 {
	if width >= 64 {
		return int64(bits)
	}
	//
	shift := 64 - width
	//
	return int64(bits<<shift) >> shift
}
