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
	"slices"

	"github.com/bits-and-blooms/bitset"
	"github.com/consensys/go-saturn/pkg/rule"
	log "github.com/sirupsen/logrus"
)

// Chomp collapses branch chains.  Targets which are blocks consisting only of
// an unconditional jump are redirected to the final destination of that jump.
// A conditional branch whose targets then all coincide is replaced by an
// unconditional jump (constructed with the given instruction), and any
// instructions computing only its condition flags are dropped.  Finally, any
// blocks no longer reachable from the entry are removed.  Observe that jumps
// to the following block are retained.
func (f *Function) Chomp(jump *rule.InstDecl) {
	var chomped int
	//
	for changed := true; changed; {
		changed = false
		forward := f.forwarding()
		//
		for _, b := range f.Blocks {
			for i := range b.Insts {
				inst := &b.Insts[i]
				//
				inst.mapLabels(func(l int) int {
					if t := forward(l); t != l {
						changed = true
						return t
					}
					//
					return l
				})
				//
				if targets := inst.Targets(); inst.IsBranch() && len(targets) > 0 && allEqual(targets) {
					b.Insts[i] = Inst{Decl: jump, Operands: []Operand{{Kind: rule.Label, Labels: targets[:1]}}}
					b.Insts = dropFlagSetters(b.Insts, i)
					changed = true
					chomped++
					// Branches end their block
					break
				}
			}
		}
	}
	//
	before := len(f.Blocks)
	f.pruneUnreachableBlocks()
	//
	log.Debugf("chomped %d branch(es) and removed %d block(s) in %s", chomped, before-len(f.Blocks), f.Name)
}

// Determine the block which each block forwards to.  Forwarding chains are
// followed, stopping at any cycle.
func (f *Function) forwarding() func(int) int {
	direct := make([]int, len(f.Blocks))
	//
	for i, b := range f.Blocks {
		direct[i] = i
		//
		if len(b.Insts) == 1 && b.Insts[0].IsJump() {
			if targets := b.Insts[0].Targets(); len(targets) == 1 {
				direct[i] = targets[0]
			}
		}
	}
	//
	return func(l int) int {
		var seen bitset.BitSet
		//
		for direct[l] != l && !seen.Test(uint(l)) {
			seen.Set(uint(l))
			l = direct[l]
		}
		//
		return l
	}
}

// Remove the instructions immediately preceding index i which have no
// observable effect other than setting condition flags.  Such instructions
// only fed the branch which was at index i.
func dropFlagSetters(insts []Inst, i int) []Inst {
	j := i
	//
	for j > 0 && setsFlagsOnly(&insts[j-1]) {
		j--
	}
	//
	return append(insts[:j], insts[i:]...)
}

func setsFlagsOnly(inst *Inst) bool {
	if _, traps := inst.Trap(); traps {
		return false
	}
	//
	d := inst.Decl
	//
	return !d.HasDef() && !d.Effect && !d.Term && !d.Branch && !d.Jump
}

func allEqual(xs []int) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	//
	return true
}

func (f *Function) pruneUnreachableBlocks() {
	var (
		reachable = f.reachableBlocks()
		nblocks   []*Block
		mapping   = make([]int, len(f.Blocks))
	)
	// Remove all unreachable
	for i, b := range f.Blocks {
		if reachable.Test(uint(i)) {
			mapping[i] = len(nblocks)
			nblocks = append(nblocks, b)
		}
	}
	// Rebind all existing targets
	for _, b := range nblocks {
		for i := range b.Insts {
			b.Insts[i].mapLabels(func(l int) int { return mapping[l] })
		}
	}
	//
	f.Blocks = nblocks
}

func (f *Function) reachableBlocks() *bitset.BitSet {
	var (
		visited  = bitset.New(uint(len(f.Blocks)))
		worklist []int
	)
	//
	if len(f.Blocks) > 0 {
		// Start with entry block
		worklist = append(worklist, 0)
		visited.Set(0)
		//
		for len(worklist) > 0 {
			n := len(worklist) - 1
			b := f.Blocks[worklist[n]]
			worklist = worklist[:n]
			//
			for i := range b.Insts {
				for _, t := range b.Insts[i].Targets() {
					if !visited.Test(uint(t)) {
						visited.Set(uint(t))
						worklist = append(worklist, t)
					}
				}
			}
		}
	}
	//
	return visited
}

// Successors returns the indices of the blocks targeted from a given block, in
// order and without duplicates.
func (f *Function) Successors(block int) []int {
	var succs []int
	//
	for i := range f.Blocks[block].Insts {
		for _, t := range f.Blocks[block].Insts[i].Targets() {
			if !slices.Contains(succs, t) {
				succs = append(succs, t)
			}
		}
	}
	//
	return succs
}
