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
	"math"

	"github.com/consensys/go-saturn/pkg/ir"
)

// CostFunc estimates the cost of a single operation, excluding its operands.
type CostFunc func(op ir.Opcode, ty ir.Type) uint64

// DefaultCost estimates the number of machine instructions needed for a given
// operation, weighting those which are typically slow.
func DefaultCost(op ir.Opcode, ty ir.Type) uint64 {
	switch op {
	case ir.OpOpaque, ir.OpProj:
		return 0
	case ir.OpSdiv, ir.OpUdiv, ir.OpSrem, ir.OpUrem, ir.OpFdiv, ir.OpSqrt:
		return 10
	case ir.OpUmulhi, ir.OpSmulhi:
		return 4
	case ir.OpImul:
		return 3
	default:
		if ty == ir.I128 {
			return 2
		}
		//
		return 1
	}
}

// Extraction records the cheapest member of every class.
type Extraction struct {
	g    *EGraph
	best []NodeID
	cost []uint64
}

const infinite = math.MaxUint64

// Extract determines the cheapest member of every class, where the cost of a
// node is its own cost plus that of the cheapest member of each operand class.
// Costs are computed bottom-up by iterating to a fixed point, hence classes
// which refer (transitively) to themselves are resolved from whichever member
// does not depend on the cycle.  A class whose members all depend upon it has
// no representative.  Ties are broken in favour of the earliest node, which
// makes the result independent of the order in which nodes are visited.
func (g *EGraph) Extract(costOf CostFunc) *Extraction {
	var (
		n       = len(g.classes)
		best    = make([]NodeID, n)
		cost    = make([]uint64, n)
		changed = true
	)
	//
	for i := range cost {
		cost[i] = infinite
	}
	//
	for changed {
		changed = false
		//
		for id := range NodeID(len(g.nodes)) {
			if !g.IsLive(id) {
				continue
			}
			//
			var (
				node = &g.nodes[id]
				c    = g.ClassOf(id)
				sum  = opCost(costOf, node)
			)
			//
			for _, a := range node.Args {
				sum = add(sum, cost[g.Find(a)])
			}
			//
			if sum < cost[c] || (sum == cost[c] && sum != infinite && id < best[c]) {
				best[c], cost[c] = id, sum
				changed = true
			}
		}
	}
	//
	return &Extraction{g, best, cost}
}

// Best returns the cheapest member of a given class, or false if the class has
// no representative.
func (e *Extraction) Best(c ClassID) (NodeID, bool) {
	c = e.g.Find(c)
	//
	if e.cost[c] == infinite {
		return 0, false
	}
	//
	return e.best[c], true
}

// Cost returns the cost of the cheapest member of a given class.
func (e *Extraction) Cost(c ClassID) uint64 {
	return e.cost[e.g.Find(c)]
}

// Every operation other than a leaf or projection costs something, otherwise
// equivalent terms of different sizes could not be distinguished.
func opCost(costOf CostFunc, n *Node) uint64 {
	if n.Op == ir.OpOpaque || n.Op == ir.OpProj {
		return 0
	}
	//
	return max(costOf(n.Op, n.Type), 1)
}

// saturating addition
func add(x, y uint64) uint64 {
	if x > infinite-y {
		return infinite
	}
	//
	return x + y
}
