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

	"github.com/bits-and-blooms/bitset"
	"github.com/consensys/go-saturn/pkg/ir"
)

// ErrElaboration indicates the extracted terms could not be placed back into
// the function skeleton, for example because a class was extracted as a value
// which is not available where it is needed.
var ErrElaboration = errors.New("elaboration failed")

// Elaborate reconstructs a function from the skeleton of the original and the
// extracted representatives of each class.  Blocks are visited in dominator
// tree order and pure values are materialised at their first use, such that
// a value materialised in one block is reused in all blocks it dominates.
// Unreachable blocks are dropped, as are pure values which are never used.
func (p *Program) Elaborate(ext *Extraction) (*ir.Function, error) {
	var (
		fn = p.fn
		nf = ir.NewFunction(fn.Name, fn.Params, fn.Returns)
	)
	// Create blocks up front, so branch targets are defined
	for _, b := range fn.Blocks {
		if !p.dom.IsReachable(b.ID) {
			continue
		}
		//
		nb, err := nf.AddBlock(b.ID)
		if err != nil {
			return nil, err
		}
		//
		for _, v := range b.Params {
			if err := nf.AddParam(nb, v, fn.ValueType(v)); err != nil {
				return nil, err
			}
		}
	}
	//
	e := &elaborator{
		p:     p,
		ext:   ext,
		fn:    nf,
		cache: make(map[ClassID][]ir.ValueID),
		next:  ir.ValueID(fn.NumValues()),
	}
	//
	if err := e.block(fn.Entry()); err != nil {
		return nil, err
	}
	//
	renumbered, err := ir.Renumber(nf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrElaboration, err)
	}
	//
	return renumbered, nil
}

type elaborator struct {
	p   *Program
	ext *Extraction
	// Function being constructed
	fn *ir.Function
	// Block currently being elaborated
	current *ir.Block
	// Values materialised for each class, which are available in the current
	// block.
	cache map[ClassID][]ir.ValueID
	// Classes added to the cache, in order, which permits scoping.
	log []ClassID
	// Original values which have been placed.
	placed bitset.BitSet
	// Next fresh value
	next ir.ValueID
}

// Elaborate a block and, subsequently, all blocks it immediately dominates.
func (e *elaborator) block(b *ir.Block) error {
	var (
		fn    = e.p.fn
		scope = len(e.log)
	)
	//
	e.current = e.fn.Block(b.ID)
	//
	for _, v := range b.Params {
		e.placed.Set(uint(v))
	}
	//
	for _, index := range b.Insts {
		if fn.IsPure(index) {
			continue
		}
		//
		inst := fn.Insts[index].Clone()
		//
		if err := e.remap(inst.Args); err != nil {
			return err
		}
		//
		for i := range inst.Targets {
			if err := e.remap(inst.Targets[i].Args); err != nil {
				return err
			}
		}
		//
		if _, err := e.fn.Append(e.current, inst); err != nil {
			return err
		}
		//
		for _, r := range inst.Results {
			e.placed.Set(uint(r))
		}
	}
	//
	for _, child := range e.p.dom.Children(b.ID) {
		if err := e.block(child); err != nil {
			return err
		}
	}
	// Leave scope
	for _, c := range e.log[scope:] {
		delete(e.cache, c)
	}
	//
	e.log = e.log[:scope]
	//
	return nil
}

// Replace original values with their elaborated counterparts
func (e *elaborator) remap(vs []ir.ValueID) error {
	for i, v := range vs {
		c := e.p.ClassOf(v)
		//
		results, err := e.class(c)
		if err != nil {
			return err
		}
		//
		vs[i] = results[0]
	}
	//
	return nil
}

// Elaborate a given class, returning the values holding its result(s).
func (e *elaborator) class(c ClassID) ([]ir.ValueID, error) {
	c = e.p.Graph.Find(c)
	//
	if vs, ok := e.cache[c]; ok {
		return vs, nil
	}
	//
	id, ok := e.ext.Best(c)
	if !ok {
		return nil, fmt.Errorf("%w: class %d has no representative", ErrElaboration, c)
	}
	//
	var (
		node = e.p.Graph.Node(id)
		vs   []ir.ValueID
	)
	//
	switch node.Op {
	case ir.OpOpaque:
		v := ir.ValueID(node.Imms[0])
		def := e.p.fn.Value(v)
		//
		if !e.placed.Test(uint(v)) || !e.p.dom.Dominates(def.Block, e.current.ID) {
			return nil, fmt.Errorf("%w: %s is not available in %s", ErrElaboration, v, e.current.ID)
		}
		//
		vs = []ir.ValueID{v}
	case ir.OpProj:
		tuple, err := e.class(node.Args[0])
		if err != nil {
			return nil, err
		}
		//
		vs = []ir.ValueID{tuple[node.Imms[0]]}
	default:
		args := make([]ir.ValueID, len(node.Args))
		//
		for i, a := range node.Args {
			as, err := e.class(a)
			if err != nil {
				return nil, err
			}
			//
			args[i] = as[0]
		}
		//
		inst := ir.Instruction{Op: node.Op, Type: node.Type, Args: args, Imms: slices.Clone(node.Imms)}
		//
		for range node.Op.NumResults(node.Type) {
			inst.Results = append(inst.Results, e.next)
			e.next++
		}
		//
		if _, err := e.fn.Append(e.current, inst); err != nil {
			return nil, err
		}
		//
		vs = inst.Results
	}
	//
	e.cache[c] = vs
	e.log = append(e.log, c)
	//
	return vs, nil
}
