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
package lower

import (
	"errors"
	"fmt"

	"github.com/consensys/go-saturn/pkg/ir"
	"github.com/consensys/go-saturn/pkg/rule"
	"github.com/consensys/go-saturn/pkg/vcode"
)

var errWide = errors.New("128-bit value used as a single register")

// action evaluates the action of a lowering rule, accumulating the machine
// instructions it constructs.
type action struct {
	l    *lowerer
	root *ir.Instruction
	// Machine blocks targeted by each block operand of the root
	labels []int
	frame  []rule.Value
	seq    []vcode.Inst
	// Temporaries defined by instructions in the sequence
	defined map[uint32]bool
	renamed map[uint32]bool
}

// Lookup implementation for rule.Env interface.
func (a *action) Lookup(slot int) rule.Value { return a.frame[slot] }

// TypeOf implementation for rule.Env interface.
func (a *action) TypeOf(class uint32) ir.Type { return a.l.fn.ValueType(ir.ValueID(class)) }

// HasFeature implementation for rule.Env interface.
func (a *action) HasFeature(name string) bool { return a.l.table.Has(name) }

func (a *action) run(r *rule.Rule) error {
	v, err := a.eval(r.Action, a.frame)
	if err != nil {
		return err
	}
	//
	a.renamed = make(map[uint32]bool)
	results := a.root.Results
	//
	switch len(results) {
	case 0:
		return nil
	case 1:
		return a.bind(results[0], v)
	}
	//
	vals, ok := v.Other.([]rule.Value)
	if v.Kind != rule.KindOther || !ok || len(vals) != len(results) {
		return fmt.Errorf("expected %d results", len(results))
	}
	//
	for i, r := range results {
		if err := a.bind(r, vals[i]); err != nil {
			return err
		}
	}
	//
	return nil
}

func (a *action) eval(e rule.Expr, frame []rule.Value) (rule.Value, error) {
	switch e := e.(type) {
	case *rule.Let:
		for i, v := range e.Values {
			val, err := a.eval(v, frame)
			if err != nil {
				return val, err
			}
			//
			frame[e.Slots[i]] = val
		}
		//
		return a.eval(e.Body, frame)
	case *rule.Call:
		switch e.Kind {
		case rule.CallInst:
			return a.inst(e, frame)
		case rule.CallForm:
			return a.form(e, frame)
		case rule.CallDecl:
			inner := make([]rule.Value, e.Decl.NumSlots)
			//
			for i, arg := range e.Args {
				v, err := a.eval(arg, frame)
				if err != nil {
					return v, err
				}
				//
				inner[i] = v
			}
			//
			return a.eval(e.Decl.Body, inner)
		}
	}
	//
	return rule.Eval(e, a, frame)
}

func (a *action) form(e *rule.Call, frame []rule.Value) (rule.Value, error) {
	vals := make([]rule.Value, len(e.Args))
	//
	for i, arg := range e.Args {
		v, err := a.eval(arg, frame)
		if err != nil {
			return v, err
		}
		//
		vals[i] = v
	}
	//
	switch e.Head {
	case "seq":
		return vals[len(vals)-1], nil
	case "results":
		return rule.Value{Kind: rule.KindOther, Other: vals}, nil
	case "pair":
		lo, err := a.reg(vals[0])
		if err != nil {
			return rule.Value{}, err
		}
		//
		hi, err := a.reg(vals[1])
		//
		return rule.Value{Kind: rule.KindOther, Other: [2]vcode.Reg{lo, hi}}, err
	}
	// lo or hi
	pair, err := a.pair(vals[0])
	if err != nil {
		return rule.Value{}, err
	} else if e.Head == "lo" {
		return rule.Value{Kind: rule.KindOther, Other: pair[0]}, nil
	}
	//
	return rule.Value{Kind: rule.KindOther, Other: pair[1]}, nil
}

// Construct a machine instruction, appending it to the sequence.  The result
// is the register it defines (if any).
func (a *action) inst(e *rule.Call, frame []rule.Value) (rule.Value, error) {
	var (
		decl   = e.Inst
		inst   = vcode.Inst{Decl: decl}
		args   = e.Args
		def    vcode.Reg
		hasDef bool
	)
	//
	next := func() (rule.Value, error) {
		v, err := a.eval(args[0], frame)
		args = args[1:]
		//
		return v, err
	}
	//
	for _, kind := range decl.Operands {
		var (
			o   = vcode.Operand{Kind: kind}
			v   rule.Value
			err error
		)
		//
		if kind == rule.Def {
			def, hasDef = a.l.newTemp(ir.InvalidType), true
			o.Reg = def
			inst.Operands = append(inst.Operands, o)
			a.defined[def.Num] = true
			//
			continue
		} else if v, err = next(); err != nil {
			return v, err
		}
		//
		switch kind {
		case rule.Use:
			o.Reg, err = a.reg(v)
		case rule.Uses:
			o.Regs, err = a.regs(v)
		case rule.Mem:
			if o.Reg, err = a.reg(v); err == nil {
				if v, err = next(); err == nil {
					o.Imm, err = immediate(v)
				}
			}
		case rule.Imm:
			o.Imm, err = immediate(v)
		case rule.Label:
			o.Labels, err = a.targets(v)
		default:
			o.Sym, err = symbol(v)
		}
		//
		if err != nil {
			return rule.Value{}, fmt.Errorf("%s: %w", decl.Name, err)
		}
		//
		inst.Operands = append(inst.Operands, o)
	}
	//
	inst.Type = a.typeOf(&inst)
	a.seq = append(a.seq, inst)
	//
	if !hasDef {
		return rule.Value{}, nil
	}
	//
	a.l.types[def.Num] = inst.Type
	//
	return rule.Value{Kind: rule.KindOther, Other: def}, nil
}

// The type of an instruction is that of the first register it reads, or
// otherwise that of the root being lowered.
func (a *action) typeOf(inst *vcode.Inst) ir.Type {
	for _, o := range inst.Operands {
		switch {
		case o.Kind == rule.Use:
			return a.l.regType(o.Reg)
		case o.Kind == rule.Uses && len(o.Regs) > 0:
			return a.l.regType(o.Regs[0])
		}
	}
	//
	return wordType(a.root.Type)
}

func (a *action) reg(v rule.Value) (vcode.Reg, error) {
	switch v.Kind {
	case rule.KindClass:
		if a.TypeOf(v.Class) == ir.I128 {
			return vcode.Reg{}, errWide
		}
		//
		return vcode.ValueReg(ir.ValueID(v.Class)), nil
	case rule.KindOther:
		if r, ok := v.Other.(vcode.Reg); ok {
			return r, nil
		}
	}
	//
	return vcode.Reg{}, fmt.Errorf("expected register")
}

func (a *action) pair(v rule.Value) ([2]vcode.Reg, error) {
	switch v.Kind {
	case rule.KindClass:
		if a.TypeOf(v.Class) == ir.I128 {
			r := vcode.ValueReg(ir.ValueID(v.Class))
			return [2]vcode.Reg{r.WithPart(vcode.Lo), r.WithPart(vcode.Hi)}, nil
		}
	case rule.KindOther:
		if p, ok := v.Other.([2]vcode.Reg); ok {
			return p, nil
		}
	}
	//
	return [2]vcode.Reg{}, fmt.Errorf("expected register pair")
}

// A list of registers, where 128-bit values contribute both halves.
func (a *action) regs(v rule.Value) ([]vcode.Reg, error) {
	var regs []vcode.Reg
	//
	switch v.Kind {
	case rule.KindList:
		for _, c := range v.List {
			r := vcode.ValueReg(ir.ValueID(c))
			//
			for _, part := range parts(a.TypeOf(c)) {
				regs = append(regs, r.WithPart(part))
			}
		}
	case rule.KindClass:
		return a.regs(rule.Value{Kind: rule.KindList, List: []uint32{v.Class}})
	case rule.KindOther:
		if p, ok := v.Other.([2]vcode.Reg); ok {
			return p[:], nil
		}
		//
		fallthrough
	default:
		r, err := a.reg(v)
		if err != nil {
			return nil, err
		}
		//
		regs = append(regs, r)
	}
	//
	return regs, nil
}

func (a *action) targets(v rule.Value) ([]int, error) {
	switch {
	case v.Kind == rule.KindBlock && v.Index < len(a.labels):
		return []int{a.labels[v.Index]}, nil
	case v.Kind == rule.KindBlocks && v.Index <= len(a.labels):
		return append([]int(nil), a.labels[v.Index:]...), nil
	}
	//
	return nil, fmt.Errorf("expected block")
}

func immediate(v rule.Value) (int64, error) {
	if v.Kind != rule.KindInt {
		return 0, fmt.Errorf("expected integer")
	}
	// Low 64 bits in two's complement
	return int64(v.Int.Uint64()), nil
}

// Symbols, condition codes and trap codes are written by name.
func symbol(v rule.Value) (string, error) {
	switch v.Kind {
	case rule.KindSym:
		return v.Sym, nil
	case rule.KindInt:
		switch v.Operand {
		case ir.OperandIntCC, ir.OperandFloatCC, ir.OperandTrapCode, ir.OperandAtomicOp:
			return ir.FormatImmediate(v.Operand, v.Int.Uint64()), nil
		}
	}
	//
	return "", fmt.Errorf("expected symbol")
}

// Bind a value produced by an action to a result of the root.  A temporary
// defined by the sequence is renamed to the result register, otherwise the
// value is moved into it.
func (a *action) bind(result ir.ValueID, v rule.Value) error {
	var (
		ty  = a.TypeOf(uint32(result))
		dst = vcode.ValueReg(result)
	)
	//
	if ty == ir.I128 {
		pair, err := a.pair(v)
		if err != nil {
			return err
		}
		//
		a.bindReg(dst.WithPart(vcode.Lo), pair[0], ir.I64)
		a.bindReg(dst.WithPart(vcode.Hi), pair[1], ir.I64)
		//
		return nil
	}
	//
	src, err := a.reg(v)
	if err != nil {
		return err
	}
	//
	a.bindReg(dst, src, ty)
	//
	return nil
}

func (a *action) bindReg(dst, src vcode.Reg, ty ir.Type) {
	if src.Temp && a.defined[src.Num] && !a.renamed[src.Num] {
		a.renamed[src.Num] = true
		//
		for i := range a.seq {
			a.seq[i].MapRegs(func(r vcode.Reg) vcode.Reg {
				if r.Temp && r.Num == src.Num {
					return dst
				}
				//
				return r
			})
		}
		//
		return
	}
	//
	a.seq = append(a.seq, a.l.moveInst(dst, src, ty))
}
