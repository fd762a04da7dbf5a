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
	"iter"
	"slices"

	"github.com/bits-and-blooms/bitset"
	"github.com/consensys/go-saturn/pkg/ir"
	"github.com/consensys/go-saturn/pkg/rule"
	"github.com/consensys/go-saturn/pkg/util/collection/hash"
)

// ClassID identifies an equivalence class.  Classes are merged by union-find,
// hence a given identifier may not be canonical.
type ClassID uint32

// NodeID identifies an e-node.
type NodeID uint32

// Node is a pure operation whose operands are equivalence classes.  A node's
// type is the type of every result, hence a node with multiple results (e.g.
// isplit) belongs to a tuple class whose members are projected using proj.
type Node struct {
	Op   ir.Opcode
	Type ir.Type
	Args []ClassID
	Imms []uint64
}

// Equals implementation for hash.Hasher interface.
func (n Node) Equals(o Node) bool {
	return n.Op == o.Op && n.Type == o.Type && slices.Equal(n.Args, o.Args) && slices.Equal(n.Imms, o.Imms)
}

// Hash implementation for hash.Hasher interface.
func (n Node) Hash() uint64 {
	h := hash.NewBuilder()
	h.Write(uint64(n.Op)<<8 | uint64(n.Type))
	//
	for _, a := range n.Args {
		h.Write(uint64(a))
	}
	//
	for _, i := range n.Imms {
		h.Write(i)
	}
	//
	return h.Sum()
}

type class struct {
	typ ir.Type
	// Indicates a class of multi-result nodes
	tuple bool
	// Members of this class
	nodes []NodeID
	// Nodes which use this class as an operand
	parents []NodeID
}

// EGraph is an arena of e-nodes grouped into equivalence classes.  All
// references between nodes and classes are indices, allowing cycles.
type EGraph struct {
	nodes []Node
	// Class to which each node was added
	owner []ClassID
	// Union-find parent of each class
	parent  []ClassID
	classes []class
	// Hash-consing of canonical nodes
	memo *hash.Map[Node, NodeID]
	// Nodes removed from consideration by subsumption (or as congruent
	// duplicates)
	killed bitset.BitSet
	// Nodes whose operands may no longer be canonical
	pending []NodeID
	// Number of merges performed
	unions uint
}

// New constructs an empty e-graph.
func New() *EGraph {
	return &EGraph{memo: hash.NewMap[Node, NodeID](1024)}
}

// NumNodes returns the number of nodes ever added.
func (g *EGraph) NumNodes() int {
	return len(g.nodes)
}

// NumClasses returns the number of canonical classes.
func (g *EGraph) NumClasses() int {
	count := 0
	//
	for i := range g.parent {
		if g.parent[i] == ClassID(i) {
			count++
		}
	}
	//
	return count
}

// Node returns the node with a given identifier.
func (g *EGraph) Node(id NodeID) *Node {
	return &g.nodes[id]
}

// Find returns the canonical identifier for a given class.
func (g *EGraph) Find(c ClassID) ClassID {
	root := c
	//
	for g.parent[root] != root {
		root = g.parent[root]
	}
	// Path compression
	for g.parent[c] != root {
		c, g.parent[c] = g.parent[c], root
	}
	//
	return root
}

// ClassOf returns the (canonical) class of a given node.
func (g *EGraph) ClassOf(n NodeID) ClassID {
	return g.Find(g.owner[n])
}

// Type returns the type of a given class.
func (g *EGraph) Type(c ClassID) ir.Type {
	return g.classes[g.Find(c)].typ
}

// IsTuple checks whether a given class holds multi-result nodes.
func (g *EGraph) IsTuple(c ClassID) bool {
	return g.classes[g.Find(c)].tuple
}

// IsLive checks whether a given node is still under consideration.
func (g *EGraph) IsLive(n NodeID) bool {
	return !g.killed.Test(uint(n))
}

// Members returns the live nodes of a given class, in the order they were
// added.
func (g *EGraph) Members(c ClassID) iter.Seq[NodeID] {
	return func(yield func(NodeID) bool) {
		for _, n := range g.classes[g.Find(c)].nodes {
			if g.IsLive(n) && !yield(n) {
				return
			}
		}
	}
}

// Add a node to the e-graph, returning its class.  If an equivalent node
// already exists, its class is returned instead.
func (g *EGraph) Add(n Node) ClassID {
	n = g.canonicalise(n)
	//
	if id, ok := g.memo.Get(n); ok {
		return g.ClassOf(id)
	}
	//
	var (
		id = NodeID(len(g.nodes))
		c  = ClassID(len(g.classes))
	)
	//
	g.nodes = append(g.nodes, n)
	g.owner = append(g.owner, c)
	g.parent = append(g.parent, c)
	g.classes = append(g.classes, class{
		typ:   n.Type,
		tuple: n.Op.NumResults(n.Type) > 1,
		nodes: []NodeID{id},
	})
	//
	for _, a := range n.Args {
		g.classes[a].parents = append(g.classes[a].parents, id)
	}
	//
	g.memo.Insert(n, id)
	//
	return c
}

func (g *EGraph) canonicalise(n Node) Node {
	args := make([]ClassID, len(n.Args))
	//
	for i, a := range n.Args {
		args[i] = g.Find(a)
	}
	//
	return Node{n.Op, n.Type, args, n.Imms}
}

// Union merges two classes, returning the canonical identifier of the merged
// class.  The smaller identifier always survives, which keeps the outcome
// independent of the order in which congruences are discovered.
func (g *EGraph) Union(a, b ClassID) ClassID {
	a, b = g.Find(a), g.Find(b)
	//
	if a == b {
		return a
	} else if b < a {
		a, b = b, a
	}
	//
	if g.classes[a].typ != g.classes[b].typ || g.classes[a].tuple != g.classes[b].tuple {
		panic("merging classes of different types")
	}
	//
	g.parent[b] = a
	g.classes[a].nodes = append(g.classes[a].nodes, g.classes[b].nodes...)
	g.classes[a].parents = append(g.classes[a].parents, g.classes[b].parents...)
	g.pending = append(g.pending, g.classes[b].parents...)
	g.classes[b] = class{}
	g.unions++
	//
	return a
}

// Subsume replaces a class outright by another: the live members of the
// replaced class are removed from consideration, and the classes merged.
// Opaque leaves are never removed.
func (g *EGraph) Subsume(replaced, by ClassID) ClassID {
	replaced, by = g.Find(replaced), g.Find(by)
	//
	if replaced == by {
		return by
	}
	//
	for _, n := range g.classes[replaced].nodes {
		if g.nodes[n].Op != ir.OpOpaque {
			g.killed.Set(uint(n))
		}
	}
	//
	return g.Union(replaced, by)
}

// Rebuild restores the congruence invariant following one or more merges.
// Nodes whose operands were merged are re-canonicalised, and any which thereby
// become identical to another node cause their classes to be merged.
func (g *EGraph) Rebuild() {
	for len(g.pending) > 0 {
		var (
			todo = g.pending
			seen bitset.BitSet
		)
		//
		g.pending = nil
		//
		for _, id := range todo {
			if seen.Test(uint(id)) {
				continue
			}
			//
			seen.Set(uint(id))
			g.repair(id)
		}
	}
}

func (g *EGraph) repair(id NodeID) {
	old := g.nodes[id]
	//
	if existing, ok := g.memo.Get(old); ok && existing == id {
		g.memo.Remove(old)
	}
	//
	n := g.canonicalise(old)
	g.nodes[id] = n
	//
	if existing, ok := g.memo.Get(n); ok && existing != id {
		// Congruent with an existing node.  A subsumed term stays subsumed
		// regardless of which copy was subsumed.
		if !g.IsLive(id) || !g.IsLive(existing) {
			g.killed.Set(uint(id))
			g.killed.Set(uint(existing))
		} else {
			g.killed.Set(uint(max(id, existing)))
		}
		//
		g.Union(g.ClassOf(id), g.ClassOf(existing))
		//
		if existing > id {
			g.memo.Insert(n, id)
		}
	} else {
		g.memo.Insert(n, id)
	}
}

// ============================================================================
// Matching
// ============================================================================

// Nodes implementation for rule.Graph interface.
func (g *EGraph) Nodes(c uint32, op ir.Opcode) iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		for n := range g.Members(ClassID(c)) {
			if g.nodes[n].Op == op && !yield(uint32(n)) {
				return
			}
		}
	}
}

// View implementation for rule.Graph interface.
func (g *EGraph) View(id uint32) rule.NodeView {
	n := &g.nodes[id]
	args := make([]uint32, len(n.Args))
	//
	for i, a := range n.Args {
		args[i] = uint32(g.Find(a))
	}
	//
	return rule.NodeView{Op: n.Op, Type: n.Type, Args: args, Imms: n.Imms}
}

// Same implementation for rule.Graph interface.
func (g *EGraph) Same(a, b uint32) bool {
	return g.Find(ClassID(a)) == g.Find(ClassID(b))
}

// TypeOf implementation for rule.Graph interface.
func (g *EGraph) TypeOf(c uint32) ir.Type {
	return g.Type(ClassID(c))
}
