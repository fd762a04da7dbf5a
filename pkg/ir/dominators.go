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
package ir

import (
	"github.com/bits-and-blooms/bitset"
)

// Postorder returns the blocks reachable from the entry in postorder of a
// depth-first traversal, where successors are visited in terminator order.
func Postorder(f *Function) []*Block {
	type frame struct {
		block *Block
		succs []BlockID
	}
	//
	var (
		order   []*Block
		visited = bitset.New(uint(len(f.Blocks)))
		stack   []frame
	)
	//
	if len(f.Blocks) == 0 {
		return nil
	}
	//
	visited.Set(0)
	stack = append(stack, frame{f.Entry(), f.Successors(f.Entry())})
	//
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		//
		if len(top.succs) == 0 {
			order = append(order, top.block)
			stack = stack[:len(stack)-1]
			//
			continue
		}
		//
		next := top.succs[0]
		top.succs = top.succs[1:]
		//
		if i := f.BlockIndex(next); i >= 0 && !visited.Test(uint(i)) {
			visited.Set(uint(i))
			stack = append(stack, frame{f.Blocks[i], f.Successors(f.Blocks[i])})
		}
	}
	//
	return order
}

// DomTree is the dominator tree of a function, computed using the algorithm
// of Cooper, Harvey and Kennedy over the reverse postorder.
type DomTree struct {
	fn *Function
	// Reverse postorder of reachable blocks
	rpo []*Block
	// Position of each block (by layout index) in rpo, or -1 if unreachable
	order []int
	// Immediate dominator of each block (by rpo position)
	idom []int
	// Children of each block (by rpo position), in rpo order
	children [][]int
}

// ComputeDominators computes the dominator tree of a given function.
func ComputeDominators(f *Function) *DomTree {
	post := Postorder(f)
	n := len(post)
	rpo := make([]*Block, n)
	order := make([]int, len(f.Blocks))
	//
	for i := range order {
		order[i] = -1
	}
	//
	for i, b := range post {
		rpo[n-1-i] = b
		order[f.BlockIndex(b.ID)] = n - 1 - i
	}
	// Determine predecessors (by rpo position)
	preds := make([][]int, n)
	//
	for i, b := range rpo {
		for _, s := range f.Successors(b) {
			if j := order[f.BlockIndex(s)]; j >= 0 {
				preds[j] = append(preds[j], i)
			}
		}
	}
	//
	idom := make([]int, n)
	for i := range idom {
		idom[i] = -1
	}
	//
	if n > 0 {
		idom[0] = 0
	}
	// Iterate to a fixed point
	for changed := true; changed; {
		changed = false
		//
		for i := 1; i < n; i++ {
			next := -1
			//
			for _, p := range preds[i] {
				if idom[p] < 0 {
					continue
				} else if next < 0 {
					next = p
				} else {
					next = intersect(idom, p, next)
				}
			}
			//
			if next != idom[i] {
				idom[i] = next
				changed = true
			}
		}
	}
	//
	children := make([][]int, n)
	for i := 1; i < n; i++ {
		children[idom[i]] = append(children[idom[i]], i)
	}
	//
	return &DomTree{f, rpo, order, idom, children}
}

func intersect(idom []int, a int, b int) int {
	for a != b {
		for a > b {
			a = idom[a]
		}
		//
		for b > a {
			b = idom[b]
		}
	}
	//
	return a
}

// ReversePostorder returns the reachable blocks in reverse postorder.
func (t *DomTree) ReversePostorder() []*Block {
	return t.rpo
}

// IsReachable checks whether a given block is reachable from the entry.
func (t *DomTree) IsReachable(b BlockID) bool {
	i := t.fn.BlockIndex(b)
	return i >= 0 && t.order[i] >= 0
}

// Idom returns the immediate dominator of a given block.  The entry block (and
// any unreachable block) has no immediate dominator.
func (t *DomTree) Idom(b BlockID) (BlockID, bool) {
	i := t.position(b)
	//
	if i <= 0 {
		return 0, false
	}
	//
	return t.rpo[t.idom[i]].ID, true
}

// Children returns the blocks immediately dominated by a given block, in
// reverse postorder.
func (t *DomTree) Children(b BlockID) []*Block {
	var blocks []*Block
	//
	if i := t.position(b); i >= 0 {
		for _, c := range t.children[i] {
			blocks = append(blocks, t.rpo[c])
		}
	}
	//
	return blocks
}

// Dominates checks whether block a dominates block b.  Every block dominates
// itself, and unreachable blocks are dominated by nothing.
func (t *DomTree) Dominates(a BlockID, b BlockID) bool {
	i, j := t.position(a), t.position(b)
	//
	if i < 0 || j < 0 {
		return false
	}
	//
	for j > i {
		j = t.idom[j]
	}
	//
	return i == j
}

func (t *DomTree) position(b BlockID) int {
	if i := t.fn.BlockIndex(b); i >= 0 {
		return t.order[i]
	}
	//
	return -1
}
