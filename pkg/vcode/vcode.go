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
package vcode

import (
	"fmt"
	"strings"

	"github.com/consensys/go-saturn/pkg/ir"
	"github.com/consensys/go-saturn/pkg/rule"
)

// Part identifies which part of a (possibly wide) value a register holds.
type Part uint8

const (
	// Whole indicates a register holding an entire value.
	Whole Part = iota
	// Lo indicates a register holding the low half of a 128-bit value.
	Lo
	// Hi indicates a register holding the high half of a 128-bit value.
	Hi
)

// Reg is a virtual register.  Registers either hold (part of) an IR value, or
// are temporaries introduced during lowering.
type Reg struct {
	Num  uint32
	Temp bool
	Part Part
}

// ValueReg returns the register holding a given IR value.
func ValueReg(v ir.ValueID) Reg {
	return Reg{Num: uint32(v)}
}

// TempReg returns the nth temporary register.
func TempReg(n uint32) Reg {
	return Reg{Num: n, Temp: true}
}

// WithPart returns the register holding a given part of this register's value.
func (r Reg) WithPart(p Part) Reg {
	return Reg{r.Num, r.Temp, p}
}

func (r Reg) String() string {
	var name string
	//
	if r.Temp {
		name = fmt.Sprintf("%%t%d", r.Num)
	} else {
		name = fmt.Sprintf("%%v%d", r.Num)
	}
	//
	switch r.Part {
	case Lo:
		return name + ".lo"
	case Hi:
		return name + ".hi"
	default:
		return name
	}
}

// Operand is a single operand of a machine instruction.  Which fields are
// meaningful is determined by its kind.
type Operand struct {
	Kind rule.OperandKind
	// Register (def, use or memory base)
	Reg Reg
	// Registers (uses)
	Regs []Reg
	// Immediate (or memory offset)
	Imm int64
	// Target blocks (labels)
	Labels []int
	// Symbol, condition code or trap code
	Sym string
}

// Inst is a machine instruction whose operands are virtual registers.
type Inst struct {
	Decl     *rule.InstDecl
	Type     ir.Type
	Operands []Operand
}

// Name returns the (unsized) mnemonic of this instruction.
func (p *Inst) Name() string {
	return p.Decl.Name
}

// Def returns the register defined by this instruction, if any.
func (p *Inst) Def() (Reg, bool) {
	for _, o := range p.Operands {
		if o.Kind == rule.Def {
			return o.Reg, true
		}
	}
	//
	return Reg{}, false
}

// Trap returns the trap this instruction may raise, if any.
func (p *Inst) Trap() (ir.TrapCode, bool) {
	if p.Decl.Trap != nil {
		return *p.Decl.Trap, true
	}
	//
	for _, o := range p.Operands {
		if o.Kind == rule.TrapKind {
			if code, ok := ir.ParseTrapCode(o.Sym); ok {
				return code, true
			}
		}
	}
	//
	return 0, false
}

// Targets returns all blocks targeted by this instruction.
func (p *Inst) Targets() []int {
	var targets []int
	//
	for _, o := range p.Operands {
		if o.Kind == rule.Label {
			targets = append(targets, o.Labels...)
		}
	}
	//
	return targets
}

// IsBranch checks whether this is a conditional branch.
func (p *Inst) IsBranch() bool {
	return p.Decl.Branch
}

// IsJump checks whether this is an unconditional jump.
func (p *Inst) IsJump() bool {
	return p.Decl.Jump
}

// IsTerminator checks whether this instruction ends a block.
func (p *Inst) IsTerminator() bool {
	return p.Decl.Term
}

// MapRegs applies a function to every register in this instruction.
func (p *Inst) MapRegs(fn func(Reg) Reg) {
	for i := range p.Operands {
		o := &p.Operands[i]
		//
		switch o.Kind {
		case rule.Def, rule.Use, rule.Mem:
			o.Reg = fn(o.Reg)
		case rule.Uses:
			for j := range o.Regs {
				o.Regs[j] = fn(o.Regs[j])
			}
		}
	}
}

// mapLabels applies a function to every target of this instruction.
func (p *Inst) mapLabels(fn func(int) int) {
	for i := range p.Operands {
		if o := &p.Operands[i]; o.Kind == rule.Label {
			for j := range o.Labels {
				o.Labels[j] = fn(o.Labels[j])
			}
		}
	}
}

// Block is a labelled sequence of machine instructions.
type Block struct {
	Name  string
	Insts []Inst
}

// Function is the result of lowering a single IR function.  The first block
// is the entry block.
type Function struct {
	Name   string
	Blocks []*Block
}

// NumInsts returns the total number of instructions in this function.
func (f *Function) NumInsts() int {
	n := 0
	//
	for _, b := range f.Blocks {
		n += len(b.Insts)
	}
	//
	return n
}

// Count returns the number of instructions satisfying a given predicate.
func (f *Function) Count(pred func(*Inst) bool) int {
	n := 0
	//
	for _, b := range f.Blocks {
		for i := range b.Insts {
			if pred(&b.Insts[i]) {
				n++
			}
		}
	}
	//
	return n
}

// RenumberTemps renumbers temporary registers in order of their first
// appearance.
func (f *Function) RenumberTemps() {
	mapping := make(map[uint32]uint32)
	//
	rename := func(r Reg) Reg {
		if !r.Temp {
			return r
		}
		//
		n, ok := mapping[r.Num]
		if !ok {
			n = uint32(len(mapping))
			mapping[r.Num] = n
		}
		//
		return Reg{n, true, r.Part}
	}
	//
	for _, b := range f.Blocks {
		for i := range b.Insts {
			b.Insts[i].MapRegs(rename)
		}
	}
}

// Emitter produces the textual form of an instruction, given the textual form
// of its operands.
type Emitter func(inst *Inst, operands []string) string

// DefaultEmit writes the mnemonic followed by the operands in order.
func DefaultEmit(inst *Inst, operands []string) string {
	if len(operands) == 0 {
		return inst.Name()
	}
	//
	return inst.Name() + " " + strings.Join(operands, ", ")
}

// Format produces the textual form of this function, using a given emitter
// for each instruction.  Instructions which may trap are annotated with their
// trap code.
func (f *Function) Format(emit Emitter) string {
	var b strings.Builder
	//
	fmt.Fprintf(&b, "function %s\n", f.Name)
	//
	for _, block := range f.Blocks {
		fmt.Fprintf(&b, "%s:\n", block.Name)
		//
		for i := range block.Insts {
			inst := &block.Insts[i]
			line := emit(inst, f.operands(inst))
			//
			if code, ok := inst.Trap(); ok {
				line = fmt.Sprintf("%s ; trap=%s", line, code)
			}
			//
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}
	//
	return b.String()
}

func (f *Function) String() string {
	return f.Format(DefaultEmit)
}

func (f *Function) operands(inst *Inst) []string {
	var ops []string
	//
	for _, o := range inst.Operands {
		switch o.Kind {
		case rule.Def, rule.Use:
			ops = append(ops, o.Reg.String())
		case rule.Uses:
			for _, r := range o.Regs {
				ops = append(ops, r.String())
			}
		case rule.Imm:
			ops = append(ops, fmt.Sprintf("%d", o.Imm))
		case rule.Mem:
			switch {
			case o.Imm == 0:
				ops = append(ops, fmt.Sprintf("[%s]", o.Reg))
			case o.Imm < 0:
				ops = append(ops, fmt.Sprintf("[%s%d]", o.Reg, o.Imm))
			default:
				ops = append(ops, fmt.Sprintf("[%s+%d]", o.Reg, o.Imm))
			}
		case rule.Label:
			for _, l := range o.Labels {
				ops = append(ops, f.Blocks[l].Name)
			}
		default:
			ops = append(ops, o.Sym)
		}
	}
	//
	return ops
}
