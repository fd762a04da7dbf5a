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

// Renumber returns a copy of a given function whose values are numbered
// consecutively in layout order, starting with the parameters of the entry
// block.  Instructions are likewise held in layout order.  An error arises
// only when the given function is itself malformed (e.g. a block parameter is
// declared twice).
func Renumber(f *Function) (*Function, error) {
	var (
		g       = NewFunction(f.Name, f.Params, f.Returns)
		mapping = make([]ValueID, f.NumValues())
		next    ValueID
	)
	// Assign new identifiers first, since uses need not follow definitions in
	// layout order.
	for _, b := range f.Blocks {
		for _, v := range b.Params {
			mapping[v], next = next, next+1
		}
		//
		for _, i := range b.Insts {
			for _, r := range f.Insts[i].Results {
				mapping[r], next = next, next+1
			}
		}
	}
	//
	remap := func(vs []ValueID) []ValueID {
		nvs := make([]ValueID, len(vs))
		for i, v := range vs {
			nvs[i] = mapping[v]
		}
		//
		return nvs
	}
	//
	for _, b := range f.Blocks {
		nb, err := g.AddBlock(b.ID)
		if err != nil {
			return nil, err
		}
		//
		for _, v := range b.Params {
			if err := g.AddParam(nb, mapping[v], f.ValueType(v)); err != nil {
				return nil, err
			}
		}
	}
	//
	for _, b := range f.Blocks {
		nb := g.Block(b.ID)
		//
		for _, i := range b.Insts {
			inst := f.Insts[i].Clone()
			inst.Args = remap(inst.Args)
			inst.Results = remap(inst.Results)
			//
			for j := range inst.Targets {
				inst.Targets[j].Args = remap(inst.Targets[j].Args)
			}
			//
			if _, err := g.Append(nb, inst); err != nil {
				return nil, err
			}
		}
	}
	//
	return g, nil
}
