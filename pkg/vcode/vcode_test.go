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
	"testing"

	"github.com/consensys/go-saturn/pkg/ir"
	"github.com/consensys/go-saturn/pkg/rule"
	"github.com/stretchr/testify/require"
)

var (
	heapOOB = ir.TrapHeapOutOfBounds
	jmp     = &rule.InstDecl{Name: "jmp", Operands: []rule.OperandKind{rule.Label}, Jump: true, Term: true}
	brnz    = &rule.InstDecl{Name: "brnz", Operands: []rule.OperandKind{rule.Use, rule.Label, rule.Label},
		Branch: true, Term: true}
	ret  = &rule.InstDecl{Name: "ret", Operands: []rule.OperandKind{rule.Uses}, Term: true}
	add  = &rule.InstDecl{Name: "add", Operands: []rule.OperandKind{rule.Def, rule.Use, rule.Imm}}
	load = &rule.InstDecl{Name: "ld", Operands: []rule.OperandKind{rule.Def, rule.Mem}, Trap: &heapOOB}
	cmp  = &rule.InstDecl{Name: "cmp", Operands: []rule.OperandKind{rule.Use, rule.Use}}
	jeq  = &rule.InstDecl{Name: "jeq", Operands: []rule.OperandKind{rule.Label, rule.Label}, Branch: true, Term: true}
	st   = &rule.InstDecl{Name: "st", Operands: []rule.OperandKind{rule.Use, rule.Mem}, Effect: true, Trap: &heapOOB}
)

func jump(target int) Inst {
	return Inst{Decl: jmp, Operands: []Operand{{Kind: rule.Label, Labels: []int{target}}}}
}

func branch(r Reg, a, b int) Inst {
	return Inst{Decl: brnz, Operands: []Operand{{Kind: rule.Use, Reg: r}, {Kind: rule.Label, Labels: []int{a}},
		{Kind: rule.Label, Labels: []int{b}}}}
}

func ret1(r Reg) Inst {
	return Inst{Decl: ret, Operands: []Operand{{Kind: rule.Uses, Regs: []Reg{r}}}}
}

func Test_VCode_Format(t *testing.T) {
	f := &Function{Name: "f", Blocks: []*Block{{Name: "block0", Insts: []Inst{
		{Decl: load, Type: ir.I32, Operands: []Operand{{Kind: rule.Def, Reg: TempReg(7)},
			{Kind: rule.Mem, Reg: ValueReg(0), Imm: 8}}},
		{Decl: add, Type: ir.I32, Operands: []Operand{{Kind: rule.Def, Reg: ValueReg(1).WithPart(Lo)},
			{Kind: rule.Use, Reg: TempReg(7)}, {Kind: rule.Imm, Imm: -1}}},
		ret1(ValueReg(1)),
	}}}}
	//
	f.RenumberTemps()
	//
	require.Equal(t, `function f
block0:
  ld %t0, [%v0+8] ; trap=heap_oob
  add %v1.lo, %t0, -1
  ret %v1
`, f.String())
}

// A branch whose successors both lead (via trivial blocks) to the same block
// collapses into a single jump.
func Test_VCode_Chomp(t *testing.T) {
	f := &Function{Name: "f", Blocks: []*Block{
		{Name: "block0", Insts: []Inst{branch(ValueReg(0), 1, 2)}},
		{Name: "block1", Insts: []Inst{jump(3)}},
		{Name: "block2", Insts: []Inst{jump(3)}},
		{Name: "block3", Insts: []Inst{ret1(ValueReg(0))}},
	}}
	//
	f.Chomp(jmp)
	//
	require.Equal(t, `function f
block0:
  jmp block3
block3:
  ret %v0
`, f.String())
	require.Equal(t, 0, f.Count((*Inst).IsBranch))
	require.Equal(t, 1, f.Count((*Inst).IsJump))
}

func Test_VCode_ChompDistinct(t *testing.T) {
	f := &Function{Name: "f", Blocks: []*Block{
		{Name: "block0", Insts: []Inst{branch(ValueReg(0), 1, 2)}},
		{Name: "block1", Insts: []Inst{jump(3)}},
		{Name: "block2", Insts: []Inst{ret1(ValueReg(1))}},
		{Name: "block3", Insts: []Inst{ret1(ValueReg(0))}},
	}}
	//
	f.Chomp(jmp)
	// The branch survives, but no longer goes through block1
	require.Len(t, f.Blocks, 3)
	require.Equal(t, 1, f.Count((*Inst).IsBranch))
	require.Equal(t, []int{2, 1}, f.Successors(0))
}

func Test_VCode_ChompCycle(t *testing.T) {
	f := &Function{Name: "f", Blocks: []*Block{
		{Name: "block0", Insts: []Inst{jump(1)}},
		{Name: "block1", Insts: []Inst{jump(2)}},
		{Name: "block2", Insts: []Inst{jump(1)}},
	}}
	// Must terminate
	f.Chomp(jmp)
	//
	require.NotEmpty(t, f.Blocks)
	require.Equal(t, "block0", f.Blocks[0].Name)
}

// Comparisons feeding only a chomped branch are removed with it, whilst
// anything with an effect is kept.
func Test_VCode_ChompFlags(t *testing.T) {
	var (
		compare = Inst{Decl: cmp, Operands: []Operand{{Kind: rule.Use, Reg: ValueReg(0)}, {Kind: rule.Use, Reg: ValueReg(1)}}}
		store   = Inst{Decl: st, Operands: []Operand{{Kind: rule.Use, Reg: ValueReg(0)}, {Kind: rule.Mem, Reg: ValueReg(1)}}}
		flagged = Inst{Decl: jeq, Operands: []Operand{{Kind: rule.Label, Labels: []int{1}}, {Kind: rule.Label, Labels: []int{2}}}}
	)
	//
	f := &Function{Name: "f", Blocks: []*Block{
		{Name: "block0", Insts: []Inst{store, compare, flagged}},
		{Name: "block1", Insts: []Inst{jump(3)}},
		{Name: "block2", Insts: []Inst{jump(3)}},
		{Name: "block3", Insts: []Inst{ret1(ValueReg(0))}},
	}}
	//
	f.Chomp(jmp)
	//
	require.Equal(t, `function f
block0:
  st %v0, [%v1] ; trap=heap_oob
  jmp block3
block3:
  ret %v0
`, f.String())
	require.Equal(t, 0, f.Count(func(inst *Inst) bool { return inst.Name() == "cmp" }))
}
