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
	"fmt"
	"slices"

	"github.com/bits-and-blooms/bitset"
	"github.com/consensys/go-saturn/pkg/ir"
	"github.com/consensys/go-saturn/pkg/rule"
	"github.com/consensys/go-saturn/pkg/vcode"
	log "github.com/sirupsen/logrus"
)

// UnsupportedError indicates an instruction for which no lowering rule
// matched under the active target.
type UnsupportedError struct {
	Op     ir.Opcode
	Type   ir.Type
	Target string
}

func (e *UnsupportedError) Error() string {
	if e.Type == ir.InvalidType {
		return fmt.Sprintf("unsupported operation %s for target %s", e.Op, e.Target)
	}
	//
	return fmt.Sprintf("unsupported operation %s.%s for target %s", e.Op, e.Type, e.Target)
}

// Selector lowers functions using the lowering rules of one target.  A
// selector holds no per-function state, and can be shared between concurrent
// compilations.
type Selector struct {
	table  *rule.Table
	target string
	// Instruction used for register moves
	move *rule.InstDecl
	// Instruction used for unconditional jumps
	jump *rule.InstDecl
}

// NewSelector constructs a selector from a lowering table.  The database must
// declare a move instruction (of the form "def use") and a jump instruction
// (of the form "label").
func NewSelector(db *rule.Database, table *rule.Table, target string) (*Selector, error) {
	s := &Selector{table: table, target: target}
	//
	for _, d := range db.Insts() {
		switch {
		case s.move == nil && d.Move && slices.Equal(d.Operands, []rule.OperandKind{rule.Def, rule.Use}):
			s.move = d
		case s.jump == nil && d.Jump && slices.Equal(d.Operands, []rule.OperandKind{rule.Label}):
			s.jump = d
		}
	}
	//
	if s.move == nil {
		return nil, fmt.Errorf("no move instruction declared for %s", target)
	} else if s.jump == nil {
		return nil, fmt.Errorf("no jump instruction declared for %s", target)
	}
	//
	return s, nil
}

// Jump returns the instruction used for unconditional jumps.
func (s *Selector) Jump() *rule.InstDecl {
	return s.jump
}

// Lower a function into machine instructions.  Blocks are visited in
// postorder, and instructions within a block from last to first, such that
// every use of a value is seen before its definition.  Pure instructions are
// only lowered when their result is needed, and effectful instructions are
// always lowered (unless sunk into the instruction using them).
func (s *Selector) Lower(fn *ir.Function) (*vcode.Function, error) {
	l := &lowerer{
		Selector: s,
		fn:       fn,
		graph:    newFuncGraph(fn),
		out:      &vcode.Function{Name: fn.Name},
		index:    make(map[ir.BlockID]int),
		edges:    make(map[edge]int),
		types:    make(map[uint32]ir.Type),
	}
	//
	l.layout()
	//
	for _, b := range ir.Postorder(fn) {
		var seqs [][]vcode.Inst
		//
		for i := len(b.Insts) - 1; i >= 0; i-- {
			index := b.Insts[i]
			//
			if l.skip(index) {
				continue
			}
			//
			seq, err := l.lowerInst(b, index)
			if err != nil {
				return nil, err
			}
			//
			seqs = append(seqs, seq)
		}
		//
		vb := l.out.Blocks[l.index[b.ID]]
		//
		for i := len(seqs) - 1; i >= 0; i-- {
			vb.Insts = append(vb.Insts, seqs[i]...)
		}
	}
	//
	l.out.Chomp(s.jump)
	l.out.RenumberTemps()
	//
	log.Debugf("lowered %s to %d instruction(s) for %s (%d load(s) sunk)", fn.Name, l.out.NumInsts(), s.target,
		l.sunk.Count())
	//
	return l.out, nil
}

// An edge from the terminator of a block to its nth target.
type edge struct {
	block  ir.BlockID
	target int
}

type lowerer struct {
	*Selector
	fn    *ir.Function
	graph *funcGraph
	out   *vcode.Function
	// Machine block of each reachable block
	index map[ir.BlockID]int
	// Machine blocks inserted on edges carrying arguments
	edges map[edge]int
	// Values which must be computed into registers
	needed bitset.BitSet
	// Loads folded into the instruction using them
	sunk bitset.BitSet
	// Temporaries allocated so far, and their types
	temps uint32
	types map[uint32]ir.Type
}

// Lay out machine blocks in the order of their reachable IR blocks.  Edges
// which pass arguments from a terminator with more than one target are split,
// with the new block placed after its source.
func (l *lowerer) layout() {
	dom := ir.ComputeDominators(l.fn)
	//
	for _, b := range l.fn.Blocks {
		if !dom.IsReachable(b.ID) {
			continue
		}
		//
		l.index[b.ID] = len(l.out.Blocks)
		l.out.Blocks = append(l.out.Blocks, &vcode.Block{Name: b.ID.String()})
		//
		if term := l.fn.Terminator(b); term != nil && len(term.Targets) > 1 {
			for i, t := range term.Targets {
				if len(t.Args) > 0 {
					l.edges[edge{b.ID, i}] = len(l.out.Blocks)
					l.out.Blocks = append(l.out.Blocks, &vcode.Block{Name: fmt.Sprintf("%s_%d", b.ID, i)})
				}
			}
		}
	}
}

func (l *lowerer) skip(index int) bool {
	if l.sunk.Test(uint(index)) {
		return true
	} else if !l.fn.IsPure(index) {
		return false
	}
	//
	for _, r := range l.fn.Insts[index].Results {
		if l.needed.Test(uint(r)) {
			return false
		}
	}
	//
	return true
}

func (l *lowerer) lowerInst(b *ir.Block, index int) ([]vcode.Inst, error) {
	var (
		inst   = &l.fn.Insts[index]
		prefix []vcode.Inst
		labels []int
	)
	//
	l.graph.root = index
	//
	if inst.Op.IsTerminator() {
		prefix, labels = l.lowerEdges(b, inst)
	}
	//
	for _, r := range l.table.Rules(inst.Op) {
		var (
			seq  []vcode.Inst
			done bool
		)
		//
		rule.Match(r, l.graph, l.table, uint32(index), func(frame []rule.Value) bool {
			a := &action{l: l, root: inst, labels: labels, seq: slices.Clone(prefix),
				frame: slices.Clone(frame), defined: make(map[uint32]bool)}
			//
			if err := a.run(r); err != nil {
				log.Debugf("lowering rule %s failed on %s: %s", r.Name, inst, err)
				return true
			}
			//
			seq, done = a.seq, true
			//
			return false
		})
		//
		if done {
			l.sinkLoads(r, index, seq)
			l.markNeeded(seq)
			//
			return seq, nil
		}
	}
	//
	return nil, &UnsupportedError{inst.Op, l.operationType(inst), l.target}
}

// The type reported for an unsupported operation is its controlling type,
// except where that does not determine the operation (e.g. comparisons).
func (l *lowerer) operationType(inst *ir.Instruction) ir.Type {
	switch {
	case inst.Type != ir.InvalidType && inst.Op != ir.OpIcmp && inst.Op != ir.OpFcmp:
		return inst.Type
	case len(inst.Args) > 0:
		return l.fn.ValueType(inst.Args[0])
	}
	//
	return ir.InvalidType
}

// Loads covered by the winning pattern, and whose results the emitted code
// does not refer to, have been folded into it.
func (l *lowerer) sinkLoads(r *rule.Rule, index int, seq []vcode.Inst) {
	l.graph.covered(r.Pattern, index, func(load int) {
		result := vcode.ValueReg(l.fn.Insts[load].Results[0])
		//
		if !references(seq, result.Num) {
			l.sunk.Set(uint(load))
		}
	})
}

func references(seq []vcode.Inst, value uint32) bool {
	found := false
	//
	for i := range seq {
		seq[i].MapRegs(func(r vcode.Reg) vcode.Reg {
			found = found || (!r.Temp && r.Num == value)
			return r
		})
	}
	//
	return found
}

// Mark every value read by a sequence of instructions as needed.
func (l *lowerer) markNeeded(seq []vcode.Inst) {
	for _, inst := range seq {
		for _, o := range inst.Operands {
			switch o.Kind {
			case rule.Use, rule.Mem:
				l.need(o.Reg)
			case rule.Uses:
				for _, r := range o.Regs {
					l.need(r)
				}
			}
		}
	}
}

func (l *lowerer) need(r vcode.Reg) {
	if !r.Temp {
		l.needed.Set(uint(r.Num))
	}
}

func (l *lowerer) newTemp(ty ir.Type) vcode.Reg {
	r := vcode.TempReg(l.temps)
	l.types[r.Num] = ty
	l.temps++
	//
	return r
}

// Type of the value held in a register.
func (l *lowerer) regType(r vcode.Reg) ir.Type {
	switch {
	case r.Part != vcode.Whole:
		return ir.I64
	case r.Temp:
		return l.types[r.Num]
	}
	//
	return l.fn.ValueType(ir.ValueID(r.Num))
}

func (l *lowerer) moveInst(dst, src vcode.Reg, ty ir.Type) vcode.Inst {
	return vcode.Inst{Decl: l.move, Type: ty, Operands: []vcode.Operand{
		{Kind: rule.Def, Reg: dst}, {Kind: rule.Use, Reg: src}}}
}

func (l *lowerer) jumpInst(target int) vcode.Inst {
	return vcode.Inst{Decl: l.jump, Operands: []vcode.Operand{{Kind: rule.Label, Labels: []int{target}}}}
}
