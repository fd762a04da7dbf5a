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
	"github.com/consensys/go-saturn/pkg/ir"
)

// Program is the e-graph of a function's pure computation, alongside the
// skeleton of that function (blocks, effectful instructions and terminators)
// which remains fixed.
type Program struct {
	Graph *EGraph
	fn    *ir.Function
	dom   *ir.DomTree
	// Class of each value in the function
	values []ClassID
}

// Build constructs the e-graph for a given function.  Pure instructions become
// nodes, whilst block parameters and the results of effectful instructions
// become opaque leaves.  Unreachable blocks are ignored.
func Build(fn *ir.Function) *Program {
	var (
		g      = New()
		dom    = ir.ComputeDominators(fn)
		values = make([]ClassID, fn.NumValues())
	)
	//
	opaque := func(v ir.ValueID) {
		values[v] = g.Add(Node{Op: ir.OpOpaque, Type: fn.ValueType(v), Imms: []uint64{uint64(v)}})
	}
	//
	for _, b := range dom.ReversePostorder() {
		for _, v := range b.Params {
			opaque(v)
		}
		//
		for _, index := range b.Insts {
			inst := &fn.Insts[index]
			//
			if !fn.IsPure(index) {
				for _, r := range inst.Results {
					opaque(r)
				}
				//
				continue
			}
			//
			args := make([]ClassID, len(inst.Args))
			for i, a := range inst.Args {
				args[i] = values[a]
			}
			//
			c := g.Add(Node{Op: inst.Op, Type: inst.Type, Args: args, Imms: inst.Imms})
			//
			if len(inst.Results) == 1 {
				values[inst.Results[0]] = c
			} else {
				for i, r := range inst.Results {
					values[r] = g.Add(Node{Op: ir.OpProj, Type: inst.Type, Args: []ClassID{c}, Imms: []uint64{uint64(i)}})
				}
			}
		}
	}
	//
	return &Program{g, fn, dom, values}
}

// ClassOf returns the class of a given value of the original function.
func (p *Program) ClassOf(v ir.ValueID) ClassID {
	return p.Graph.Find(p.values[v])
}
