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
	"iter"

	"github.com/consensys/go-saturn/pkg/ir"
	"github.com/holiman/uint256"
)

// Graph abstracts the structure over which patterns are matched.  For the
// e-graph, classes are equivalence classes and nodes are e-nodes.  When
// lowering, a class is simply an IR value, and its only node is the
// instruction defining it (if that can be fused).
type Graph interface {
	// Nodes returns the nodes in a given class with a given opcode.
	Nodes(class uint32, op ir.Opcode) iter.Seq[uint32]
	// View returns the contents of a given node.
	View(node uint32) NodeView
	// Same determines whether two classes are equivalent.
	Same(a, b uint32) bool
	// TypeOf returns the type of a given class.
	TypeOf(class uint32) ir.Type
}

// NodeView exposes the operands of a node, separated by kind.
type NodeView struct {
	Op   ir.Opcode
	Type ir.Type
	// Value operands (classes), including any variadic list
	Args []uint32
	Imms []uint64
	// Name of called function (if applicable)
	Callee string
}

// operand is a single operand of a node in layout order.
type operand struct {
	kind  ir.Operand
	class uint32
	list  []uint32
	imm   uint64
	index int
	sym   string
}

func operands(v *NodeView) []operand {
	var (
		ops        []operand
		ai, ii, bi int
	)
	//
	for _, kind := range v.Op.Layout() {
		o := operand{kind: kind}
		//
		switch {
		case kind == ir.OperandValue:
			o.class = v.Args[ai]
			ai++
		case kind == ir.OperandValues:
			o.list = v.Args[ai:]
			ai = len(v.Args)
		case kind == ir.OperandBlock:
			o.index = bi
			bi++
		case kind == ir.OperandBlocks:
			o.index = bi
		case kind == ir.OperandFunc:
			o.sym = v.Callee
		default:
			o.imm = v.Imms[ii]
			ii++
		}
		//
		ops = append(ops, o)
	}
	//
	return ops
}

// ImmValue converts an immediate into its value in the rule language.  Integer
// immediates are interpreted as signed values of the given type.
func ImmValue(kind ir.Operand, imm uint64, ty ir.Type) Value {
	var v uint256.Int
	//
	switch kind {
	case ir.OperandInt, ir.OperandOffset:
		width := uint(64)
		//
		if kind == ir.OperandInt && ty.Bits() < 64 {
			width = ty.Bits()
		}
		//
		v = Truncate(*uint256.NewInt(imm), width, true)
	default:
		v.SetUint64(imm)
	}
	//
	return Value{Kind: KindInt, Int: v, Operand: kind}
}

// Match enumerates all the ways a rule matches at a given root node, calling
// yield for each one whose guard holds.  The frame passed to yield is reused,
// and must be copied if retained.  Enumeration stops early when yield returns
// false, in which case Match also returns false.
func Match(r *Rule, g Graph, features Features, root uint32, yield func(frame []Value) bool) bool {
	m := &matcher{g: g, features: features, frame: make([]Value, r.NumSlots)}
	//
	return m.matchNode(r.Pattern, root, func() bool {
		if Holds(r.Guard, m, m.frame) {
			return yield(m.frame)
		}
		//
		return true
	})
}

type matcher struct {
	g        Graph
	features Features
	frame    []Value
}

// Lookup implementation for Env interface.
func (m *matcher) Lookup(slot int) Value { return m.frame[slot] }

// TypeOf implementation for Env interface.
func (m *matcher) TypeOf(class uint32) ir.Type { return m.g.TypeOf(class) }

// HasFeature implementation for Env interface.
func (m *matcher) HasFeature(name string) bool {
	return m.features != nil && m.features.Has(name)
}

// bind a slot to a given value (or check it agrees with an existing binding),
// and then continue.
func (m *matcher) bind(slot int, v Value, k func() bool) bool {
	if m.frame[slot].Kind != KindNone {
		if m.equal(m.frame[slot], v) {
			return k()
		}
		//
		return true
	}
	//
	m.frame[slot] = v
	cont := k()
	m.frame[slot] = Value{}
	//
	return cont
}

func (m *matcher) equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	//
	switch a.Kind {
	case KindClass:
		return m.g.Same(a.Class, b.Class)
	case KindInt:
		return a.Int.Eq(&b.Int)
	case KindType:
		return a.Type == b.Type
	case KindSym:
		return a.Sym == b.Sym
	case KindBlock, KindBlocks:
		return a.Index == b.Index
	case KindList:
		if len(a.List) != len(b.List) {
			return false
		}
		//
		for i := range a.List {
			if !m.g.Same(a.List[i], b.List[i]) {
				return false
			}
		}
		//
		return true
	}
	//
	return false
}

func (m *matcher) matchClass(p Pattern, class uint32, k func() bool) bool {
	switch p := p.(type) {
	case *Wildcard:
		return k()
	case *Var:
		return m.bind(p.Slot, ClassValue(class), k)
	case *Literal:
		for n := range m.g.Nodes(class, ir.OpIconst) {
			v := m.g.View(n)
			//
			if ir.Mask(v.Imms[0], v.Type.Bits()) == ir.Mask(p.Value, v.Type.Bits()) {
				return k()
			}
		}
		//
		return true
	case *Node:
		for n := range m.g.Nodes(class, p.Op) {
			if !m.matchNode(p, n, k) {
				return false
			}
		}
	}
	//
	return true
}

func (m *matcher) matchNode(p *Node, node uint32, k func() bool) bool {
	view := m.g.View(node)
	//
	if view.Op != p.Op || !p.Class.Contains(view.Type) {
		return true
	}
	//
	ops := operands(&view)
	//
	match := func() bool {
		return m.matchOperands(p.Args, ops, view.Type, k)
	}
	//
	if p.TypeSlot >= 0 {
		if !m.bind(p.TypeSlot, TypeValue(view.Type), match) {
			return false
		}
	} else if !match() {
		return false
	}
	// Try the other way around for commutative operations
	if p.Op.Is(ir.FlagCommutative) && len(ops) == 2 && !m.g.Same(ops[0].class, ops[1].class) {
		ops[0], ops[1] = ops[1], ops[0]
		//
		if p.TypeSlot >= 0 {
			return m.bind(p.TypeSlot, TypeValue(view.Type), match)
		}
		//
		return match()
	}
	//
	return true
}

func (m *matcher) matchOperands(ps []Pattern, ops []operand, ty ir.Type, k func() bool) bool {
	if len(ps) == 0 {
		return k()
	}
	//
	next := func() bool {
		return m.matchOperands(ps[1:], ops[1:], ty, k)
	}
	//
	return m.matchOperand(ps[0], ops[0], ty, next)
}

func (m *matcher) matchOperand(p Pattern, o operand, ty ir.Type, k func() bool) bool {
	if o.kind == ir.OperandValue {
		return m.matchClass(p, o.class, k)
	}
	//
	switch p := p.(type) {
	case *Wildcard:
		return k()
	case *Literal:
		width := uint(64)
		if o.kind == ir.OperandInt {
			width = ty.Bits()
		}
		//
		if ir.Mask(o.imm, width) == ir.Mask(p.Value, width) {
			return k()
		}
		//
		return true
	case *Var:
		var v Value
		//
		switch o.kind {
		case ir.OperandValues:
			v = Value{Kind: KindList, List: o.list}
		case ir.OperandBlock:
			v = Value{Kind: KindBlock, Index: o.index}
		case ir.OperandBlocks:
			v = Value{Kind: KindBlocks, Index: o.index}
		case ir.OperandFunc:
			v = Value{Kind: KindSym, Sym: o.sym}
		default:
			v = ImmValue(o.kind, o.imm, ty)
		}
		//
		return m.bind(p.Slot, v, k)
	}
	//
	return true
}
