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
package egraph

import (
	"errors"
	"fmt"
	"slices"

	"github.com/consensys/go-saturn/pkg/ir"
	"github.com/consensys/go-saturn/pkg/rule"
	"github.com/holiman/uint256"
	log "github.com/sirupsen/logrus"
)

// ErrBudget indicates saturation stopped because the node budget was
// exhausted.  The e-graph remains sound, but may be only partially saturated.
var ErrBudget = errors.New("saturation budget exhausted")

// Config bounds the work performed during saturation.
type Config struct {
	// Maximum number of match/apply/rebuild iterations.
	MaxIterations uint
	// Maximum number of nodes in the e-graph.
	MaxNodes uint
	// Maximum number of matches applied for any one rule in one iteration.
	MaxMatchesPerRule uint
}

// DefaultConfig returns the default saturation budget.
func DefaultConfig() Config {
	return Config{MaxIterations: 16, MaxNodes: 20000, MaxMatchesPerRule: 1000}
}

// Stats summarises a saturation run.
type Stats struct {
	Iterations uint
	// Number of rule applications which changed the e-graph
	Rewrites uint
	Nodes    uint
	Classes  uint
	// Indicates a fixed point was reached.
	Saturated bool
}

func (s Stats) String() string {
	return fmt.Sprintf("%d iteration(s), %d rewrite(s), %d node(s), %d class(es), saturated=%t", s.Iterations,
		s.Rewrites, s.Nodes, s.Classes, s.Saturated)
}

// A match found during the read phase of an iteration.
type match struct {
	rule  *rule.Rule
	root  NodeID
	frame []rule.Value
}

// Saturate repeatedly applies the simplification rules of a given table until
// no rule changes the e-graph, or the budget is exhausted.  Each iteration
// first collects all matches against the current e-graph, then applies them in
// order, and finally restores congruence.  Nodes and rules are visited in a
// fixed order, hence saturation is deterministic.
func (g *EGraph) Saturate(table *rule.Table, cfg Config) (Stats, error) {
	var stats Stats
	//
	for stats.Iterations < cfg.MaxIterations {
		stats.Iterations++
		//
		matches := g.collect(table, cfg)
		changed, err := g.applyAll(table, matches, cfg, &stats)
		//
		g.Rebuild()
		//
		log.Debugf("iteration %d: %d match(es), %d node(s)", stats.Iterations, len(matches), len(g.nodes))
		//
		if err != nil {
			g.summarise(&stats)
			return stats, err
		} else if !changed {
			stats.Saturated = true
			break
		}
	}
	//
	g.summarise(&stats)
	//
	return stats, nil
}

func (g *EGraph) summarise(stats *Stats) {
	stats.Nodes = uint(len(g.nodes))
	stats.Classes = uint(g.NumClasses())
}

func (g *EGraph) collect(table *rule.Table, cfg Config) []match {
	var (
		matches []match
		counts  = make(map[*rule.Rule]uint)
		n       = NodeID(len(g.nodes))
	)
	//
	for id := range n {
		if !g.IsLive(id) {
			continue
		}
		//
		for _, r := range table.Rules(g.nodes[id].Op) {
			rule.Match(r, g, table, uint32(id), func(frame []rule.Value) bool {
				if counts[r] >= cfg.MaxMatchesPerRule {
					return false
				}
				//
				counts[r]++
				matches = append(matches, match{r, id, slices.Clone(frame)})
				//
				return true
			})
		}
	}
	//
	return matches
}

func (g *EGraph) applyAll(table *rule.Table, matches []match, cfg Config, stats *Stats) (bool, error) {
	var (
		changed = false
		before  = len(g.nodes)
		unions  = g.unions
	)
	//
	for _, m := range matches {
		if uint(len(g.nodes)) >= cfg.MaxNodes {
			log.Warnf("node budget (%d) exhausted after %d iteration(s)", cfg.MaxNodes, stats.Iterations)
			return true, ErrBudget
		} else if !g.IsLive(m.root) {
			// Subsumed by an earlier match
			continue
		}
		//
		n, u := len(g.nodes), g.unions
		//
		if err := g.apply(table, m); err != nil {
			return changed, err
		}
		//
		if len(g.nodes) != n || g.unions != u {
			stats.Rewrites++
		}
	}
	//
	changed = len(g.nodes) != before || g.unions != unions
	//
	return changed, nil
}

// apply the action of a given match.  An action which cannot be evaluated
// (e.g. a constant out of range) is simply not applied, whilst an action
// producing a result of the wrong type is an error in the rule itself.
func (g *EGraph) apply(table *rule.Table, m match) error {
	var (
		root  = g.ClassOf(m.root)
		node  = &g.nodes[m.root]
		frame = make([]rule.Value, m.rule.NumSlots)
		b     = &builder{g, table, frame}
	)
	//
	copy(frame, m.frame)
	//
	v, err := b.build(m.rule.Action, node.Type)
	//
	var typeErr *ir.TypeError
	//
	if errors.As(err, &typeErr) {
		return fmt.Errorf("rule %s: %w", m.rule.Name, err)
	} else if err != nil {
		log.Debugf("rule %s not applied: %s", m.rule.Name, err)
		return nil
	}
	// Determine result classes
	var results []ClassID
	//
	if v.Kind == rule.KindList {
		for _, c := range v.List {
			results = append(results, ClassID(c))
		}
	} else if c, err := b.asClass(v, node.Type); err != nil {
		return nil
	} else {
		results = []ClassID{c}
	}
	// Tuples are merged through their projections
	if g.IsTuple(root) {
		if len(results) != node.Op.NumResults(node.Type) {
			return fmt.Errorf("rule %s: expected %d results", m.rule.Name, node.Op.NumResults(node.Type))
		}
		//
		for i, r := range results {
			proj := g.Add(Node{Op: ir.OpProj, Type: node.Type, Args: []ClassID{root}, Imms: []uint64{uint64(i)}})
			//
			if err := g.merge(m.rule, proj, r); err != nil {
				return err
			}
		}
		//
		return nil
	}
	//
	return g.merge(m.rule, root, results[0])
}

func (g *EGraph) merge(r *rule.Rule, matched, result ClassID) error {
	if g.Type(matched) != g.Type(result) || g.IsTuple(result) {
		err := &ir.TypeError{Op: r.Pattern.Op, Expected: g.Type(matched), Actual: g.Type(result),
			Msg: "rule produces result of wrong type"}
		//
		return fmt.Errorf("rule %s: %w", r.Name, err)
	} else if r.Subsume {
		g.Subsume(matched, result)
	} else {
		g.Union(matched, result)
	}
	//
	return nil
}

// ============================================================================
// Actions
// ============================================================================

// builder evaluates the action of a simplification rule, adding the terms it
// constructs to the e-graph.
type builder struct {
	g     *EGraph
	table *rule.Table
	frame []rule.Value
}

// Lookup implementation for rule.Env interface.
func (b *builder) Lookup(slot int) rule.Value { return b.frame[slot] }

// TypeOf implementation for rule.Env interface.
func (b *builder) TypeOf(c uint32) ir.Type { return b.g.Type(ClassID(c)) }

// HasFeature implementation for rule.Env interface.
func (b *builder) HasFeature(name string) bool { return b.table.HasFeature(name) }

// build evaluates an expression, where the expected type is used for integer
// literals in value position.
func (b *builder) build(e rule.Expr, expected ir.Type) (rule.Value, error) {
	switch e := e.(type) {
	case *rule.VarRef:
		return b.frame[e.Slot], nil
	case *rule.Let:
		for i, v := range e.Values {
			val, err := b.build(v, expected)
			if err != nil {
				return val, err
			}
			//
			b.frame[e.Slots[i]] = val
		}
		//
		return b.build(e.Body, expected)
	case *rule.Call:
		switch e.Kind {
		case rule.CallOp:
			return b.buildOp(e, expected)
		case rule.CallDecl:
			return b.buildDecl(e, expected)
		case rule.CallForm:
			return b.buildResults(e, expected)
		}
	}
	//
	return rule.Eval(e, b, b.frame)
}

func (b *builder) buildDecl(e *rule.Call, expected ir.Type) (rule.Value, error) {
	var (
		frame = make([]rule.Value, e.Decl.NumSlots)
		inner = &builder{b.g, b.table, frame}
	)
	//
	for i, a := range e.Args {
		v, err := b.build(a, expected)
		if err != nil {
			return v, err
		}
		//
		frame[i] = v
	}
	//
	return inner.build(e.Decl.Body, expected)
}

func (b *builder) buildResults(e *rule.Call, expected ir.Type) (rule.Value, error) {
	if e.Head != "results" {
		return rule.Value{}, fmt.Errorf("%s cannot be used in simplification", e.Head)
	}
	//
	list := make([]uint32, len(e.Args))
	//
	for i, a := range e.Args {
		v, err := b.build(a, expected)
		if err != nil {
			return v, err
		}
		//
		c, err := b.asClass(v, expected)
		if err != nil {
			return v, err
		}
		//
		list[i] = uint32(c)
	}
	//
	return rule.Value{Kind: rule.KindList, List: list}, nil
}

//nolint:gocyclo
func (b *builder) buildOp(e *rule.Call, expected ir.Type) (rule.Value, error) {
	var (
		ty      = b.typeOf(e, expected)
		layout  = e.Op.Layout()
		values  = make([]rule.Value, len(layout))
		sibling = ir.InvalidType
		node    = Node{Op: e.Op, Type: ty}
		err     error
	)
	// Evaluate operands
	for i, kind := range layout {
		if values[i], err = b.build(e.Args[i], ty); err != nil {
			return values[i], err
		} else if kind == ir.OperandValue && values[i].Kind == rule.KindClass && sibling == ir.InvalidType {
			sibling = b.g.Type(ClassID(values[i].Class))
		}
	}
	// Constants in value position take the type of their siblings (or of
	// the result, where appropriate).
	argType := func(i int) ir.Type {
		switch {
		case e.Op == ir.OpSelect && i == 0:
			return ir.I8
		case e.Op.Result() == ir.ResultArg0 || e.Op.Result() == ir.ResultArg1:
			return ty
		default:
			return sibling
		}
	}
	//
	var types []ir.Type
	//
	for i, kind := range layout {
		if kind != ir.OperandValue {
			imm, err := immediate(values[i], kind, ty)
			if err != nil {
				return rule.Value{}, err
			}
			//
			node.Imms = append(node.Imms, imm)
			//
			continue
		}
		//
		c, err := b.asClass(values[i], argType(i))
		if err != nil {
			return rule.Value{}, err
		}
		//
		node.Args = append(node.Args, c)
		types = append(types, b.g.Type(c))
	}
	// Infer type where not explicit
	if node.Type == ir.InvalidType {
		if t, ok := e.Op.InferType(types); ok {
			node.Type = t
		} else {
			node.Type = expected
		}
	}
	//
	if err := ir.CheckTypes(node.Op, node.Type, types, node.Imms); err != nil {
		return rule.Value{}, err
	}
	//
	if node.Op == ir.OpIconst {
		node.Imms[0] = ir.Mask(node.Imms[0], node.Type.Bits())
	}
	//
	return rule.ClassValue(uint32(b.g.Add(node))), nil
}

// Determine the explicit type of an operation, if it has one.
func (b *builder) typeOf(e *rule.Call, expected ir.Type) ir.Type {
	if e.TypeSlot >= 0 {
		return b.frame[e.TypeSlot].Type
	} else if t, ok := e.Class.Exact(); ok {
		return t
	} else if e.Op.Result() == ir.ResultControlling {
		return expected
	}
	//
	return ir.InvalidType
}

// Convert a value into a class, materialising integers as constants of a given
// type.
func (b *builder) asClass(v rule.Value, ty ir.Type) (ClassID, error) {
	switch v.Kind {
	case rule.KindClass:
		return b.g.Find(ClassID(v.Class)), nil
	case rule.KindInt:
		if !ty.IsInt() {
			return 0, fmt.Errorf("cannot materialise constant of type %s", ty)
		}
		//
		imm, err := immediate(v, ir.OperandInt, ty)
		if err != nil {
			return 0, err
		}
		//
		return b.g.Add(Node{Op: ir.OpIconst, Type: ty, Imms: []uint64{ir.Mask(imm, ty.Bits())}}), nil
	}
	//
	return 0, fmt.Errorf("expected value, found %v", v.Kind)
}

// Convert an integer into an immediate of a given kind.  Integer constants of
// 128 bits must be representable as sign-extended 64-bit values.
func immediate(v rule.Value, kind ir.Operand, ty ir.Type) (uint64, error) {
	if v.Kind != rule.KindInt {
		return 0, fmt.Errorf("expected integer immediate")
	}
	//
	if kind == ir.OperandInt && ty.Bits() > 64 {
		x := rule.Truncate(v.Int, ty.Bits(), true)
		//
		if y := rule.Truncate(x, 64, true); !x.Eq(&y) {
			return 0, fmt.Errorf("constant out of range")
		}
	}
	//
	return truncate64(v.Int), nil
}

func truncate64(x uint256.Int) uint64 {
	return x[0]
}
