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
	"iter"

	"github.com/consensys/go-saturn/pkg/ir"
	"github.com/consensys/go-saturn/pkg/rule"
)

// funcGraph presents a function to the matcher.  Each value is its own class,
// whose only node is the instruction defining it.  Only instructions which can
// be fused into the root being lowered are visible as interior nodes: pure
// single-result instructions, and loads which can be sunk into the root.
type funcGraph struct {
	fn   *ir.Function
	uses []uint
	// Colour of each instruction.  The colour increases after every
	// effectful instruction, such that two instructions of the same colour
	// are separated by no effects.
	colours []uint32
	// Block of each instruction
	blocks []ir.BlockID
	// Root instruction currently being lowered
	root int
}

func newFuncGraph(fn *ir.Function) *funcGraph {
	g := &funcGraph{
		fn:      fn,
		uses:    fn.UseCounts(),
		colours: make([]uint32, len(fn.Insts)),
		blocks:  make([]ir.BlockID, len(fn.Insts)),
	}
	//
	var colour uint32
	//
	for _, b := range fn.Blocks {
		for _, i := range b.Insts {
			g.colours[i] = colour
			g.blocks[i] = b.ID
			//
			if !fn.IsPure(i) {
				colour++
			}
		}
	}
	//
	return g
}

// Nodes implementation for rule.Graph interface.
func (g *funcGraph) Nodes(class uint32, op ir.Opcode) iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		def := g.fn.Value(ir.ValueID(class))
		//
		if !def.IsParam() && g.fn.Insts[def.Inst].Op == op && g.fusable(def.Inst) {
			yield(uint32(def.Inst))
		}
	}
}

// View implementation for rule.Graph interface.
func (g *funcGraph) View(node uint32) rule.NodeView {
	inst := &g.fn.Insts[node]
	args := make([]uint32, len(inst.Args))
	//
	for i, a := range inst.Args {
		args[i] = uint32(a)
	}
	//
	return rule.NodeView{Op: inst.Op, Type: inst.Type, Args: args, Imms: inst.Imms, Callee: inst.Callee}
}

// Same implementation for rule.Graph interface.
func (g *funcGraph) Same(a, b uint32) bool { return a == b }

// TypeOf implementation for rule.Graph interface.
func (g *funcGraph) TypeOf(class uint32) ir.Type { return g.fn.ValueType(ir.ValueID(class)) }

func (g *funcGraph) fusable(inst int) bool {
	if len(g.fn.Insts[inst].Results) != 1 {
		return false
	} else if g.fn.IsPure(inst) {
		return true
	}
	//
	return g.sinkable(inst)
}

// A load can be sunk into the root when it is used exactly once, is in the
// same block as the root, and the only effect separating them is the load
// itself.
func (g *funcGraph) sinkable(inst int) bool {
	op := g.fn.Insts[inst].Op
	//
	if !op.Is(ir.FlagMemory) || op.Is(ir.FlagEffect) {
		return false
	}
	//
	result := g.fn.Insts[inst].Results[0]
	//
	return g.uses[result] == 1 && g.blocks[inst] == g.blocks[g.root] &&
		g.colours[g.root] == g.colours[inst]+1
}

// covered visits the sinkable loads matched by a pattern rooted at a given
// instruction, which are reachable only through instructions used once.
// Operands of commutative instructions may have been matched either way
// around.
func (g *funcGraph) covered(p *rule.Node, inst int, visit func(int)) {
	var (
		args     = g.fn.Insts[inst].Args
		patterns []rule.Pattern
	)
	//
	for i, kind := range p.Op.Layout() {
		if kind == ir.OperandValue {
			patterns = append(patterns, p.Args[i])
		}
	}
	//
	if p.Op.Is(ir.FlagCommutative) && len(args) == 2 && !g.fits(patterns[0], args[0]) {
		args = []ir.ValueID{args[1], args[0]}
	}
	//
	for i, sub := range patterns {
		node, ok := sub.(*rule.Node)
		if !ok || i >= len(args) {
			continue
		}
		//
		def := g.fn.Value(args[i])
		//
		switch {
		case def.IsParam() || g.uses[args[i]] != 1 || g.fn.Insts[def.Inst].Op != node.Op:
			continue
		case g.sinkable(def.Inst):
			visit(def.Inst)
		default:
			g.covered(node, def.Inst, visit)
		}
	}
}

func (g *funcGraph) fits(p rule.Pattern, v ir.ValueID) bool {
	node, ok := p.(*rule.Node)
	if !ok {
		return true
	}
	//
	def := g.fn.Value(v)
	//
	return !def.IsParam() && g.fn.Insts[def.Inst].Op == node.Op
}
