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
	"errors"
	"fmt"
	"math"
	"math/bits"

	"github.com/holiman/uint256"
)

// DefaultFuel is the default number of instructions the interpreter will
// execute before giving up.
const DefaultFuel = 1_000_000

// ErrOutOfFuel is returned when interpretation exceeds its instruction limit.
var ErrOutOfFuel = errors.New("interpreter ran out of fuel")

// Trap signals that execution trapped with a given code.
type Trap struct {
	Code TrapCode
}

func (t *Trap) Error() string {
	return fmt.Sprintf("trap: %s", t.Code)
}

// Effect records an observable side effect performed during interpretation.
type Effect struct {
	// Kind of effect ("store", "atomic" or "call")
	Kind string
	// Address (for memory effects)
	Address uint64
	// Function name (for calls)
	Callee string
	// Data written to memory (for memory effects), or arguments (for calls)
	Data []uint256.Int
}

// Outcome captures the observable behaviour of a function execution.  Two
// executions are considered equivalent if their outcomes are equal.
type Outcome struct {
	// Returned values (if no trap occurred)
	Results []uint256.Int
	// Trap which occurred (if any)
	Trap *TrapCode
	// Effects performed, in order.
	Effects []Effect
}

// Equals checks whether two outcomes are identical.
func (o *Outcome) Equals(other *Outcome) bool {
	if (o.Trap == nil) != (other.Trap == nil) || (o.Trap != nil && *o.Trap != *other.Trap) {
		return false
	} else if !equalValues(o.Results, other.Results) || len(o.Effects) != len(other.Effects) {
		return false
	}
	//
	for i, e := range o.Effects {
		f := other.Effects[i]
		if e.Kind != f.Kind || e.Address != f.Address || e.Callee != f.Callee || !equalValues(e.Data, f.Data) {
			return false
		}
	}
	//
	return true
}

func (o *Outcome) String() string {
	if o.Trap != nil {
		return fmt.Sprintf("trap(%s) after %d effect(s)", o.Trap, len(o.Effects))
	}
	//
	return fmt.Sprintf("%v after %d effect(s)", o.Results, len(o.Effects))
}

func equalValues(xs []uint256.Int, ys []uint256.Int) bool {
	if len(xs) != len(ys) {
		return false
	}
	//
	for i := range xs {
		if !xs[i].Eq(&ys[i]) {
			return false
		}
	}
	//
	return true
}

// Interpret executes a function over a given (bounded) memory and argument
// values, returning its observable outcome.  Arguments are truncated to the
// width of their parameter types.  Calls to other functions are recorded as
// effects and return zero.
func Interpret(f *Function, memory []byte, fuel uint, args ...uint256.Int) (Outcome, error) {
	var (
		it  = interpreter{fn: f, env: make([]uint256.Int, f.NumValues()), memory: memory}
		out Outcome
	)
	//
	if len(args) != len(f.Params) {
		return out, fmt.Errorf("expected %d argument(s), found %d", len(f.Params), len(args))
	}
	//
	for i, p := range f.Entry().Params {
		it.env[p] = truncate(args[i], f.Params[i].Bits())
	}
	//
	results, err := it.run(fuel)
	out.Effects = it.effects
	//
	var trap *Trap
	if errors.As(err, &trap) {
		out.Trap = &trap.Code
		return out, nil
	} else if err != nil {
		return out, err
	}
	//
	out.Results = results
	//
	return out, nil
}

type interpreter struct {
	fn      *Function
	env     []uint256.Int
	memory  []byte
	effects []Effect
}

func (it *interpreter) run(fuel uint) ([]uint256.Int, error) {
	block := it.fn.Entry()
	//
	for block != nil {
		var next *Block
		//
		for _, i := range block.Insts {
			if fuel == 0 {
				return nil, ErrOutOfFuel
			}
			//
			fuel--
			inst := &it.fn.Insts[i]
			//
			switch inst.Op {
			case OpJump:
				next = it.branch(inst.Targets[0])
			case OpBrif:
				if !it.env[inst.Args[0]].IsZero() {
					next = it.branch(inst.Targets[0])
				} else {
					next = it.branch(inst.Targets[1])
				}
			case OpBrTable:
				index := it.env[inst.Args[0]]
				if index.LtUint64(uint64(len(inst.Targets) - 1)) {
					next = it.branch(inst.Targets[index.Uint64()+1])
				} else {
					next = it.branch(inst.Targets[0])
				}
			case OpReturn:
				return it.values(inst.Args), nil
			default:
				if err := it.execute(inst); err != nil {
					return nil, err
				}
			}
			//
			if next != nil {
				break
			}
		}
		//
		block = next
	}
	//
	return nil, fmt.Errorf("block without terminator")
}

func (it *interpreter) values(vs []ValueID) []uint256.Int {
	vals := make([]uint256.Int, len(vs))
	//
	for i, v := range vs {
		vals[i] = it.env[v]
	}
	//
	return vals
}

func (it *interpreter) branch(call BlockCall) *Block {
	target := it.fn.Block(call.Block)
	args := it.values(call.Args)
	//
	for i, p := range target.Params {
		it.env[p] = args[i]
	}
	//
	return target
}

func (it *interpreter) execute(inst *Instruction) error {
	args := it.values(inst.Args)
	//
	switch inst.Op {
	case OpTrap:
		return &Trap{TrapCode(inst.Imms[0])}
	case OpTrapz, OpTrapnz:
		if args[0].IsZero() == (inst.Op == OpTrapz) {
			return &Trap{TrapCode(inst.Imms[0])}
		}
		//
		return nil
	case OpCall:
		it.effects = append(it.effects, Effect{Kind: "call", Callee: inst.Callee, Data: args})
		//
		if len(inst.Results) > 0 {
			it.env[inst.Results[0]] = uint256.Int{}
		}
		//
		return nil
	case OpStore, OpIstore8, OpIstore16, OpIstore32:
		width := it.fn.ValueType(inst.Args[0]).Bits()
		if w := memoryWidth(inst.Op); w != 0 {
			width = w
		}
		//
		addr, err := it.address(args[1], inst.Imms[0], width/8)
		if err != nil {
			return err
		}
		//
		it.write(addr, args[0], width/8)
		it.effects = append(it.effects, Effect{Kind: "store", Address: addr,
			Data: []uint256.Int{truncate(args[0], width)}})
		//
		return nil
	case OpLoad, OpUload8, OpSload8, OpUload16, OpSload16, OpUload32, OpSload32:
		width := inst.Type.Bits()
		if w := memoryWidth(inst.Op); w != 0 {
			width = w
		}
		//
		addr, err := it.address(args[0], inst.Imms[0], width/8)
		if err != nil {
			return err
		}
		//
		val := it.read(addr, width/8)
		if inst.Op == OpSload8 || inst.Op == OpSload16 || inst.Op == OpSload32 {
			val = truncate(signExtend(val, width), inst.Type.Bits())
		}
		//
		it.env[inst.Results[0]] = val
		//
		return nil
	case OpAtomicRmw:
		return it.atomic(inst, args)
	case OpIsplit:
		half := inst.Type.Bits()
		lo := truncate(args[0], half)
		//
		var hi uint256.Int
		hi.Rsh(&args[0], half)
		it.env[inst.Results[0]] = lo
		it.env[inst.Results[1]] = hi
		//
		return nil
	}
	//
	types := make([]Type, len(inst.Args))
	for i, a := range inst.Args {
		types[i] = it.fn.ValueType(a)
	}
	//
	val, err := EvalPure(inst.Op, inst.Type, types, inst.Imms, args)
	if err != nil {
		return err
	}
	//
	it.env[inst.Results[0]] = val
	//
	return nil
}

func (it *interpreter) atomic(inst *Instruction, args []uint256.Int) error {
	width := inst.Type.Bits()
	//
	addr, err := it.address(args[0], 0, width/8)
	if err != nil {
		return err
	}
	//
	var (
		old = it.read(addr, width/8)
		arg = args[1]
		val uint256.Int
	)
	//
	switch AtomicOp(inst.Imms[0]) {
	case AtomicAdd:
		val.Add(&old, &arg)
	case AtomicSub:
		val.Sub(&old, &arg)
	case AtomicAnd:
		val.And(&old, &arg)
	case AtomicOr:
		val.Or(&old, &arg)
	case AtomicXor:
		val.Xor(&old, &arg)
	case AtomicXchg:
		val = arg
	}
	//
	val = truncate(val, width)
	it.write(addr, val, width/8)
	it.effects = append(it.effects, Effect{Kind: "atomic", Address: addr, Data: []uint256.Int{val}})
	it.env[inst.Results[0]] = old
	//
	return nil
}

func (it *interpreter) address(base uint256.Int, offset uint64, size uint) (uint64, error) {
	var (
		addr  uint64
		off   = int64(offset)
		limit = uint64(len(it.memory))
	)
	//
	if !base.IsUint64() {
		return 0, &Trap{TrapHeapOutOfBounds}
	} else if off < 0 {
		if uint64(-off) > base.Uint64() {
			return 0, &Trap{TrapHeapOutOfBounds}
		}
		//
		addr = base.Uint64() - uint64(-off)
	} else if addr = base.Uint64() + uint64(off); addr < base.Uint64() {
		return 0, &Trap{TrapHeapOutOfBounds}
	}
	//
	if addr > limit || uint64(size) > limit-addr {
		return 0, &Trap{TrapHeapOutOfBounds}
	}
	//
	return addr, nil
}

func (it *interpreter) read(addr uint64, size uint) uint256.Int {
	var val uint256.Int
	//
	for i := int(size) - 1; i >= 0; i-- {
		val.Lsh(&val, 8)
		val.Or(&val, uint256.NewInt(uint64(it.memory[addr+uint64(i)])))
	}
	//
	return val
}

func (it *interpreter) write(addr uint64, val uint256.Int, size uint) {
	for i := range uint64(size) {
		var b uint256.Int
		//
		b.Rsh(&val, uint(8*i))
		it.memory[addr+i] = byte(b.Uint64())
	}
}

// ============================================================================
// Pure evaluation
// ============================================================================

// EvalPure evaluates a pure operation (or a division) over values held as
// their bit patterns.  Vector operations are applied lane by lane.  Division
// by zero, and signed division overflow, produce a trap.
//
//nolint:gocyclo
func EvalPure(op Opcode, ty Type, types []Type, imms []uint64, args []uint256.Int) (uint256.Int, error) {
	switch op {
	case OpIconst:
		// Wide constants are sign-extended from 64 bits
		return truncate(signExtend(*uint256.NewInt(imms[0]), 64), ty.Bits()), nil
	case OpF32const, OpF64const:
		return *uint256.NewInt(imms[0]), nil
	case OpIcmp:
		return compare(types[0], args[0], args[1], func(w uint, x, y uint256.Int) bool {
			return intCompare(IntCC(imms[0]), w, x, y)
		}), nil
	case OpFcmp:
		return compare(types[0], args[0], args[1], func(w uint, x, y uint256.Int) bool {
			return floatCompare(FloatCC(imms[0]), toFloat(w, x), toFloat(w, y))
		}), nil
	case OpSelect:
		if !args[0].IsZero() {
			return args[1], nil
		}
		//
		return args[2], nil
	case OpUextend:
		return args[0], nil
	case OpSextend:
		return truncate(signExtend(args[0], types[0].Bits()), ty.Bits()), nil
	case OpIreduce:
		return truncate(args[0], ty.Bits()), nil
	case OpSplat:
		var r uint256.Int
		for i := range ty.Lanes() {
			r = insertLane(r, i, ty.Lane().Bits(), args[0])
		}
		//
		return r, nil
	case OpExtractlane:
		return extractLane(args[0], uint(imms[0]), ty.Bits()), nil
	case OpIconcat:
		var r uint256.Int
		r.Lsh(&args[1], types[0].Bits())
		r.Or(&r, &args[0])
		//
		return r, nil
	}
	// Lane-wise operations
	var (
		lane   = ty.Lane()
		width  = lane.Bits()
		result uint256.Int
	)
	//
	for i := range ty.Lanes() {
		xs := make([]uint256.Int, len(args))
		//
		for j := range args {
			if types[j].IsVector() {
				xs[j] = extractLane(args[j], i, width)
			} else {
				xs[j] = args[j]
			}
		}
		//
		r, err := evalLane(op, lane, xs)
		if err != nil {
			return result, err
		}
		//
		result = insertLane(result, i, width, r)
	}
	//
	return result, nil
}

//nolint:gocyclo
func evalLane(op Opcode, ty Type, xs []uint256.Int) (uint256.Int, error) {
	var (
		w = ty.Bits()
		r uint256.Int
	)
	//
	if ty.IsFloat() {
		return evalFloat(op, w, xs), nil
	}
	//
	switch op {
	case OpIadd:
		r.Add(&xs[0], &xs[1])
	case OpIsub:
		r.Sub(&xs[0], &xs[1])
	case OpImul:
		r.Mul(&xs[0], &xs[1])
	case OpIneg:
		r.Neg(&xs[0])
	case OpIabs:
		r = signExtend(xs[0], w)
		r.Abs(&r)
	case OpUmulhi:
		r.Mul(&xs[0], &xs[1])
		r.Rsh(&r, w)
	case OpSmulhi:
		x, y := signExtend(xs[0], w), signExtend(xs[1], w)
		r.Mul(&x, &y)
		r.SRsh(&r, w)
	case OpSdiv, OpSrem:
		if xs[1].IsZero() {
			return r, &Trap{TrapIntDivideByZero}
		}
		//
		x, y := signExtend(xs[0], w), signExtend(xs[1], w)
		//
		if op == OpSrem {
			r.SMod(&x, &y)
		} else if isMinSigned(xs[0], w) && isAllOnes(xs[1], w) {
			return r, &Trap{TrapIntOverflow}
		} else {
			r.SDiv(&x, &y)
		}
	case OpUdiv, OpUrem:
		if xs[1].IsZero() {
			return r, &Trap{TrapIntDivideByZero}
		} else if op == OpUdiv {
			r.Div(&xs[0], &xs[1])
		} else {
			r.Mod(&xs[0], &xs[1])
		}
	case OpSmin, OpSmax:
		x, y := signExtend(xs[0], w), signExtend(xs[1], w)
		if x.Slt(&y) == (op == OpSmin) {
			r = xs[0]
		} else {
			r = xs[1]
		}
	case OpUmin, OpUmax:
		if xs[0].Lt(&xs[1]) == (op == OpUmin) {
			r = xs[0]
		} else {
			r = xs[1]
		}
	case OpBand:
		r.And(&xs[0], &xs[1])
	case OpBor:
		r.Or(&xs[0], &xs[1])
	case OpBxor:
		r.Xor(&xs[0], &xs[1])
	case OpBnot:
		r.Not(&xs[0])
	case OpBandNot:
		r.Not(&xs[1])
		r.And(&r, &xs[0])
	case OpIshl, OpUshr, OpSshr, OpRotl, OpRotr:
		r = shift(op, w, xs[0], uint(xs[1].Uint64()%uint64(w)))
	case OpClz:
		r.SetUint64(uint64(w) - uint64(xs[0].BitLen()))
	case OpCtz:
		r.SetUint64(uint64(countTrailingZeros(xs[0], w)))
	case OpPopcnt:
		r.SetUint64(uint64(bits.OnesCount64(xs[0][0]) + bits.OnesCount64(xs[0][1])))
	case OpBswap:
		for i := uint(0); i < w; i += 8 {
			b := extractLane(xs[0], i/8, 8)
			r = insertLane(r, w/8-1-i/8, 8, b)
		}
	default:
		panic(fmt.Sprintf("cannot evaluate %s", op))
	}
	//
	return truncate(r, w), nil
}

func shift(op Opcode, w uint, x uint256.Int, n uint) uint256.Int {
	var r, s uint256.Int
	//
	switch op {
	case OpIshl:
		r.Lsh(&x, n)
	case OpUshr:
		r.Rsh(&x, n)
	case OpSshr:
		r = signExtend(x, w)
		r.SRsh(&r, n)
	case OpRotl:
		r.Lsh(&x, n)
		s.Rsh(&x, (w-n)%w)
		if n != 0 {
			r.Or(&r, &s)
		}
	case OpRotr:
		r.Rsh(&x, n)
		s.Lsh(&x, (w-n)%w)
		if n != 0 {
			r.Or(&r, &s)
		}
	}
	//
	return truncate(r, w)
}

func evalFloat(op Opcode, w uint, xs []uint256.Int) uint256.Int {
	var (
		sign = uint64(1) << (w - 1)
		x    = toFloat(w, xs[0])
		r    float64
	)
	//
	switch op {
	case OpFneg:
		return *uint256.NewInt(xs[0].Uint64() ^ sign)
	case OpFabs:
		return *uint256.NewInt(xs[0].Uint64() &^ sign)
	case OpSqrt:
		r = math.Sqrt(x)
	case OpFadd:
		r = x + toFloat(w, xs[1])
	case OpFsub:
		r = x - toFloat(w, xs[1])
	case OpFmul:
		r = x * toFloat(w, xs[1])
	case OpFdiv:
		r = x / toFloat(w, xs[1])
	default:
		panic(fmt.Sprintf("cannot evaluate %s", op))
	}
	//
	if w == 32 {
		return *uint256.NewInt(uint64(math.Float32bits(float32(r))))
	}
	//
	return *uint256.NewInt(math.Float64bits(r))
}

func toFloat(w uint, x uint256.Int) float64 {
	if w == 32 {
		return float64(math.Float32frombits(uint32(x.Uint64())))
	}
	//
	return math.Float64frombits(x.Uint64())
}

func compare(ty Type, x, y uint256.Int, cmp func(uint, uint256.Int, uint256.Int) bool) uint256.Int {
	if !ty.IsVector() {
		if cmp(ty.Bits(), x, y) {
			return *uint256.NewInt(1)
		}
		//
		return uint256.Int{}
	}
	//
	var (
		r     uint256.Int
		width = ty.Lane().Bits()
		ones  = truncate(*new(uint256.Int).SetAllOne(), width)
	)
	//
	for i := range ty.Lanes() {
		if cmp(width, extractLane(x, i, width), extractLane(y, i, width)) {
			r = insertLane(r, i, width, ones)
		}
	}
	//
	return r
}

func intCompare(cc IntCC, w uint, x, y uint256.Int) bool {
	sx, sy := signExtend(x, w), signExtend(y, w)
	//
	switch cc {
	case IntEq:
		return x.Eq(&y)
	case IntNe:
		return !x.Eq(&y)
	case IntSlt:
		return sx.Slt(&sy)
	case IntSle:
		return !sx.Sgt(&sy)
	case IntSgt:
		return sx.Sgt(&sy)
	case IntSge:
		return !sx.Slt(&sy)
	case IntUlt:
		return x.Lt(&y)
	case IntUle:
		return !x.Gt(&y)
	case IntUgt:
		return x.Gt(&y)
	case IntUge:
		return !x.Lt(&y)
	}
	//
	panic("unreachable")
}

func floatCompare(cc FloatCC, x, y float64) bool {
	unordered := math.IsNaN(x) || math.IsNaN(y)
	//
	switch cc {
	case FloatEq:
		return x == y
	case FloatNe:
		return x != y
	case FloatLt:
		return x < y
	case FloatLe:
		return x <= y
	case FloatGt:
		return x > y
	case FloatGe:
		return x >= y
	case FloatUno:
		return unordered
	case FloatOrd:
		return !unordered
	}
	//
	panic("unreachable")
}

// ============================================================================
// Bit helpers
// ============================================================================

func mask(w uint) uint256.Int {
	var m uint256.Int
	//
	m.Lsh(uint256.NewInt(1), w)
	m.SubUint64(&m, 1)
	//
	return m
}

func truncate(x uint256.Int, w uint) uint256.Int {
	if w >= 256 {
		return x
	}
	//
	m := mask(w)
	x.And(&x, &m)
	//
	return x
}

func signExtend(x uint256.Int, w uint) uint256.Int {
	var bit uint256.Int
	//
	if w == 0 || w >= 256 {
		return x
	} else if bit.Rsh(&x, w-1); bit.Uint64()&1 == 0 {
		return truncate(x, w)
	}
	//
	m := mask(w)
	m.Not(&m)
	x.Or(&x, &m)
	//
	return x
}

func isMinSigned(x uint256.Int, w uint) bool {
	var smallest uint256.Int
	//
	smallest.Lsh(uint256.NewInt(1), w-1)
	//
	return x.Eq(&smallest)
}

func isAllOnes(x uint256.Int, w uint) bool {
	m := mask(w)
	return x.Eq(&m)
}

func countTrailingZeros(x uint256.Int, w uint) uint {
	if x.IsZero() {
		return w
	} else if x[0] != 0 {
		return uint(bits.TrailingZeros64(x[0]))
	}
	//
	return 64 + uint(bits.TrailingZeros64(x[1]))
}

func extractLane(x uint256.Int, i uint, w uint) uint256.Int {
	var r uint256.Int
	//
	r.Rsh(&x, i*w)
	//
	return truncate(r, w)
}

func insertLane(x uint256.Int, i uint, w uint, v uint256.Int) uint256.Int {
	v = truncate(v, w)
	v.Lsh(&v, i*w)
	x.Or(&x, &v)
	//
	return x
}
