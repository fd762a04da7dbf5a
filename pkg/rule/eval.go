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
package rule

import (
	"errors"
	"fmt"

	"github.com/consensys/go-saturn/pkg/ir"
	"github.com/holiman/uint256"
)

// Kind identifies the kind of a value held in a binding slot.
type Kind uint8

const (
	// KindNone indicates an unbound slot.
	KindNone Kind = iota
	// KindInt is an integer (int256 semantics).
	KindInt
	// KindClass is an equivalence class (or IR value).
	KindClass
	// KindType is a type.
	KindType
	// KindSym is a symbol (e.g. a function name, or feature).
	KindSym
	// KindList is a variadic list of classes.
	KindList
	// KindBlock identifies the nth block operand of the matched root.
	KindBlock
	// KindBlocks identifies all block operands of the matched root, starting
	// from the nth.
	KindBlocks
	// KindOther holds a value specific to the consumer of a rule (e.g. a
	// register).
	KindOther
)

// Value is the contents of a binding slot.
type Value struct {
	Kind  Kind
	Int   uint256.Int
	Class uint32
	Type  ir.Type
	Sym   string
	List  []uint32
	// Operand kind of an immediate binding, or index of a block binding
	Operand ir.Operand
	Index   int
	Other   any
}

// IntValue constructs an integer value.
func IntValue(v uint256.Int) Value {
	return Value{Kind: KindInt, Int: v}
}

// Uint64Value constructs an integer value from a uint64.
func Uint64Value(v uint64) Value {
	return Value{Kind: KindInt, Int: *uint256.NewInt(v)}
}

// ClassValue constructs a class value.
func ClassValue(c uint32) Value {
	return Value{Kind: KindClass, Class: c}
}

// TypeValue constructs a type value.
func TypeValue(t ir.Type) Value {
	return Value{Kind: KindType, Type: t}
}

// Env provides the context in which expressions are evaluated.
type Env interface {
	// Lookup the value of a given slot.
	Lookup(slot int) Value
	// TypeOf returns the type of a given class.
	TypeOf(class uint32) ir.Type
	// HasFeature checks whether the active target has a given feature.
	HasFeature(name string) bool
}

// ErrGuard indicates a guard expression could not be evaluated (for example,
// division by zero).  A guard which fails to evaluate does not hold.
var ErrGuard = errors.New("guard evaluation failed")

var (
	zero = *uint256.NewInt(0)
	one  = *uint256.NewInt(1)
)

func boolValue(b bool) Value {
	if b {
		return IntValue(one)
	}
	//
	return IntValue(zero)
}

// Holds evaluates a guard, returning true when it evaluates to a non-zero
// integer.  Evaluation failures mean the guard does not hold.
func Holds(guard Expr, env Env, frame []Value) bool {
	if guard == nil {
		return true
	}
	//
	v, err := Eval(guard, env, frame)
	//
	return err == nil && v.Kind == KindInt && !v.Int.IsZero()
}

// Eval evaluates a numeric expression within a given environment.  Local
// (let) bindings are held in the given frame, which shadows the environment.
func Eval(e Expr, env Env, frame []Value) (Value, error) {
	switch e := e.(type) {
	case *IntLit:
		return IntValue(e.Value), nil
	case *SymLit:
		return Value{Kind: KindSym, Sym: e.Name}, nil
	case *VarRef:
		if e.Slot < len(frame) && frame[e.Slot].Kind != KindNone {
			return frame[e.Slot], nil
		}
		//
		return env.Lookup(e.Slot), nil
	case *Let:
		for i, v := range e.Values {
			val, err := Eval(v, env, frame)
			if err != nil {
				return val, err
			}
			//
			frame[e.Slots[i]] = val
		}
		//
		return Eval(e.Body, env, frame)
	case *Call:
		if e.Kind == CallDecl {
			return evalDecl(e, env, frame)
		} else if e.Kind != CallBuiltin {
			return Value{}, fmt.Errorf("%s cannot be evaluated", e.Head)
		}
		//
		args := make([]Value, len(e.Args))
		//
		for i, a := range e.Args {
			v, err := Eval(a, env, frame)
			if err != nil {
				return v, err
			}
			//
			args[i] = v
		}
		//
		return builtins[e.Head].fn(env, args)
	}
	//
	panic("unreachable")
}

// Declarations are evaluated in a fresh frame holding their parameters.
func evalDecl(e *Call, env Env, frame []Value) (Value, error) {
	inner := make([]Value, e.Decl.NumSlots)
	//
	for i, a := range e.Args {
		v, err := Eval(a, env, frame)
		if err != nil {
			return v, err
		}
		//
		inner[i] = v
	}
	//
	return Eval(e.Decl.Body, env, inner)
}

// ============================================================================
// Builtins
// ============================================================================

type builtin struct {
	arity int
	fn    func(Env, []Value) (Value, error)
}

var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		"+":  binary(func(z, x, y *uint256.Int) { z.Add(x, y) }),
		"-":  binary(func(z, x, y *uint256.Int) { z.Sub(x, y) }),
		"*":  binary(func(z, x, y *uint256.Int) { z.Mul(x, y) }),
		"&":  binary(func(z, x, y *uint256.Int) { z.And(x, y) }),
		"|":  binary(func(z, x, y *uint256.Int) { z.Or(x, y) }),
		"^":  binary(func(z, x, y *uint256.Int) { z.Xor(x, y) }),
		"/":  {2, divide(func(z, x, y *uint256.Int) { z.SDiv(x, y) })},
		"%":  {2, divide(func(z, x, y *uint256.Int) { z.SMod(x, y) })},
		"<<": {2, shift(func(z, x *uint256.Int, n uint) { z.Lsh(x, n) })},
		">>": {2, shift(func(z, x *uint256.Int, n uint) { z.SRsh(x, n) })},
		"=":  compare(func(x, y *uint256.Int) bool { return x.Eq(y) }),
		"!=": compare(func(x, y *uint256.Int) bool { return !x.Eq(y) }),
		"<":  compare(func(x, y *uint256.Int) bool { return x.Slt(y) }),
		"<=": compare(func(x, y *uint256.Int) bool { return !x.Sgt(y) }),
		">":  compare(func(x, y *uint256.Int) bool { return x.Sgt(y) }),
		">=": compare(func(x, y *uint256.Int) bool { return !x.Slt(y) }),
		"and": compare(func(x, y *uint256.Int) bool { return !x.IsZero() && !y.IsZero() }),
		"or":  compare(func(x, y *uint256.Int) bool { return !x.IsZero() || !y.IsZero() }),
		"not": unary(func(x *uint256.Int) Value { return boolValue(x.IsZero()) }),
		"neg": unary(func(x *uint256.Int) Value { return IntValue(*new(uint256.Int).Neg(x)) }),
		"min": binary(func(z, x, y *uint256.Int) {
			if x.Slt(y) {
				z.Set(x)
			} else {
				z.Set(y)
			}
		}),
		"max": binary(func(z, x, y *uint256.Int) {
			if x.Sgt(y) {
				z.Set(x)
			} else {
				z.Set(y)
			}
		}),
		"is_pow2": unary(func(x *uint256.Int) Value {
			var y uint256.Int
			y.SubUint64(x, 1)
			y.And(&y, x)
			//
			return boolValue(x.Sign() > 0 && y.IsZero())
		}),
		"log2": {1, func(_ Env, args []Value) (Value, error) {
			if args[0].Kind != KindInt || args[0].Int.Sign() <= 0 {
				return Value{}, ErrGuard
			}
			//
			return Uint64Value(uint64(args[0].Int.BitLen() - 1)), nil
		}},
		"mask": {1, func(_ Env, args []Value) (Value, error) {
			w, err := smallInt(args[0])
			if err != nil {
				return Value{}, err
			}
			//
			return IntValue(bitmask(w)), nil
		}},
		"sext":      {2, extend(true)},
		"zext":      {2, extend(false)},
		"fits_simm": {2, fits(true)},
		"fits_uimm": {2, fits(false)},
		"width":     {1, typeQuery(func(t ir.Type) Value { return Uint64Value(uint64(t.Bits())) })},
		"width_of":  {1, typeQuery(func(t ir.Type) Value { return Uint64Value(uint64(t.Lane().Bits())) })},
		"lanes":     {1, typeQuery(func(t ir.Type) Value { return Uint64Value(uint64(t.Lanes())) })},
		"is_int":    {1, typeQuery(func(t ir.Type) Value { return boolValue(t.IsInt()) })},
		"is_float":  {1, typeQuery(func(t ir.Type) Value { return boolValue(t.IsFloat()) })},
		"is_vector": {1, typeQuery(func(t ir.Type) Value { return boolValue(t.IsVector()) })},
		"same_type": {2, func(env Env, args []Value) (Value, error) {
			s, err := typeOf(env, args[0])
			if err != nil {
				return Value{}, err
			}
			//
			t, err := typeOf(env, args[1])
			//
			return boolValue(s == t), err
		}},
		"has_feature": {1, func(env Env, args []Value) (Value, error) {
			if args[0].Kind != KindSym {
				return Value{}, ErrGuard
			}
			//
			return boolValue(env.HasFeature(args[0].Sym)), nil
		}},
	}
}

// IsBuiltin checks whether a given name is a builtin, returning its arity.
func IsBuiltin(name string) (int, bool) {
	b, ok := builtins[name]
	return b.arity, ok
}

func unary(fn func(x *uint256.Int) Value) builtin {
	return builtin{1, func(_ Env, args []Value) (Value, error) {
		if args[0].Kind != KindInt {
			return Value{}, ErrGuard
		}
		//
		return fn(&args[0].Int), nil
	}}
}

func binary(fn func(z, x, y *uint256.Int)) builtin {
	return builtin{2, func(_ Env, args []Value) (Value, error) {
		var z uint256.Int
		//
		if args[0].Kind != KindInt || args[1].Kind != KindInt {
			return Value{}, ErrGuard
		}
		//
		fn(&z, &args[0].Int, &args[1].Int)
		//
		return IntValue(z), nil
	}}
}

func compare(fn func(x, y *uint256.Int) bool) builtin {
	return builtin{2, func(_ Env, args []Value) (Value, error) {
		if args[0].Kind != KindInt || args[1].Kind != KindInt {
			return Value{}, ErrGuard
		}
		//
		return boolValue(fn(&args[0].Int, &args[1].Int)), nil
	}}
}

func divide(fn func(z, x, y *uint256.Int)) func(Env, []Value) (Value, error) {
	return func(_ Env, args []Value) (Value, error) {
		var z uint256.Int
		//
		if args[0].Kind != KindInt || args[1].Kind != KindInt || args[1].Int.IsZero() {
			return Value{}, ErrGuard
		}
		//
		fn(&z, &args[0].Int, &args[1].Int)
		//
		return IntValue(z), nil
	}
}

func shift(fn func(z, x *uint256.Int, n uint)) func(Env, []Value) (Value, error) {
	return func(_ Env, args []Value) (Value, error) {
		var z uint256.Int
		//
		n, err := smallInt(args[1])
		if err != nil || args[0].Kind != KindInt {
			return Value{}, ErrGuard
		}
		//
		fn(&z, &args[0].Int, n)
		//
		return IntValue(z), nil
	}
}

// Extend (or truncate) the low w bits of a value.
func extend(signed bool) func(Env, []Value) (Value, error) {
	return func(env Env, args []Value) (Value, error) {
		w, err := widthOf(env, args[1])
		if err != nil || args[0].Kind != KindInt {
			return Value{}, ErrGuard
		}
		//
		return IntValue(Truncate(args[0].Int, w, signed)), nil
	}
}

// Check whether a value fits within a signed (or unsigned) immediate of w bits.
func fits(signed bool) func(Env, []Value) (Value, error) {
	return func(env Env, args []Value) (Value, error) {
		w, err := smallInt(args[1])
		if err != nil || args[0].Kind != KindInt {
			return Value{}, ErrGuard
		}
		//
		x := args[0].Int
		y := Truncate(x, w, signed)
		//
		return boolValue(y.Eq(&x)), nil
	}
}

func typeQuery(fn func(ir.Type) Value) func(Env, []Value) (Value, error) {
	return func(env Env, args []Value) (Value, error) {
		t, err := typeOf(env, args[0])
		if err != nil {
			return Value{}, err
		}
		//
		return fn(t), nil
	}
}

func typeOf(env Env, v Value) (ir.Type, error) {
	switch v.Kind {
	case KindType:
		return v.Type, nil
	case KindClass:
		return env.TypeOf(v.Class), nil
	}
	//
	return ir.InvalidType, ErrGuard
}

// A width is either an integer, or the width of a type (or class).
func widthOf(env Env, v Value) (uint, error) {
	if v.Kind == KindInt {
		return smallInt(v)
	}
	//
	t, err := typeOf(env, v)
	//
	return t.Bits(), err
}

func smallInt(v Value) (uint, error) {
	if v.Kind != KindInt || !v.Int.IsUint64() || v.Int.Uint64() > 256 {
		return 0, ErrGuard
	}
	//
	return uint(v.Int.Uint64()), nil
}

func bitmask(w uint) uint256.Int {
	var m uint256.Int
	//
	if w >= 256 {
		return *m.SetAllOne()
	}
	//
	m.Lsh(&one, w)
	m.Sub(&m, &one)
	//
	return m
}

// Truncate a value to its low w bits, then either sign or zero extend it back
// to the full width.
func Truncate(x uint256.Int, w uint, signed bool) uint256.Int {
	if w >= 256 {
		return x
	} else if w == 0 {
		return zero
	}
	//
	var (
		m   = bitmask(w)
		bit uint256.Int
	)
	//
	x.And(&x, &m)
	//
	if bit.Rsh(&x, w-1); signed && bit.Uint64()&1 == 1 {
		m.Not(&m)
		x.Or(&x, &m)
	}
	//
	return x
}
