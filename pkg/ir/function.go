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
	"fmt"
	"slices"
)

// ValueID uniquely identifies a value within a function.
type ValueID uint32

// BlockID uniquely identifies a block within a function.
type BlockID uint32

func (v ValueID) String() string {
	return fmt.Sprintf("v%d", uint32(v))
}

func (b BlockID) String() string {
	return fmt.Sprintf("block%d", uint32(b))
}

// ValueDef describes where a value is defined.  Every value is either the
// parameter of a block, or a result of exactly one instruction.
type ValueDef struct {
	// Type of this value (InvalidType when the value is not defined)
	Type Type
	// Defining instruction, or -1 for a block parameter.
	Inst int
	// Enclosing block
	Block BlockID
	// Result (or parameter) index
	Index int
}

// IsParam checks whether this value is a block parameter.
func (d ValueDef) IsParam() bool {
	return d.Inst < 0
}

// BlockCall is a control-flow edge to a given block, passing arguments for
// the parameters of that block.
type BlockCall struct {
	Block BlockID
	Args  []ValueID
}

// Instruction is a single operation in a function body.  Value arguments
// (including variadic values) are held in Args, immediates are held in Imms,
// both in layout order.  The controlling type gives the type of every result.
type Instruction struct {
	Op      Opcode
	Type    Type
	Args    []ValueID
	Imms    []uint64
	Targets []BlockCall
	Callee  string
	Results []ValueID
}

// Clone returns a deep copy of this instruction.
func (p *Instruction) Clone() Instruction {
	targets := make([]BlockCall, len(p.Targets))
	//
	for i, t := range p.Targets {
		targets[i] = BlockCall{t.Block, slices.Clone(t.Args)}
	}
	//
	return Instruction{p.Op, p.Type, slices.Clone(p.Args), slices.Clone(p.Imms), targets, p.Callee,
		slices.Clone(p.Results)}
}

// Uses returns all values used by this instruction, including those passed to
// successor blocks.
func (p *Instruction) Uses() []ValueID {
	uses := slices.Clone(p.Args)
	//
	for _, t := range p.Targets {
		uses = append(uses, t.Args...)
	}
	//
	return uses
}

// Block is a basic block, consisting of zero or more parameters and a
// sequence of instructions ending with a terminator.
type Block struct {
	ID     BlockID
	Params []ValueID
	// Indices of instructions (into the enclosing function) in program order.
	Insts []int
}

// Function represents a function body in SSA form.  Blocks are held in layout
// order, where the first block is the entry block.
type Function struct {
	Name    string
	Params  []Type
	Returns []Type
	Blocks  []*Block
	Insts   []Instruction
	// Value definitions, indexed by value identifier.
	values []ValueDef
	// Maps block identifiers to their layout position.
	index map[BlockID]int
}

// NewFunction constructs an empty function with a given signature.
func NewFunction(name string, params []Type, returns []Type) *Function {
	return &Function{Name: name, Params: params, Returns: returns, index: make(map[BlockID]int)}
}

// Clone returns a deep copy of this function.
func (f *Function) Clone() *Function {
	g := NewFunction(f.Name, slices.Clone(f.Params), slices.Clone(f.Returns))
	//
	for _, b := range f.Blocks {
		g.index[b.ID] = len(g.Blocks)
		g.Blocks = append(g.Blocks, &Block{b.ID, slices.Clone(b.Params), slices.Clone(b.Insts)})
	}
	//
	g.Insts = make([]Instruction, len(f.Insts))
	for i := range f.Insts {
		g.Insts[i] = f.Insts[i].Clone()
	}
	//
	g.values = slices.Clone(f.values)
	//
	return g
}

// Entry returns the entry block of this function.
func (f *Function) Entry() *Block {
	return f.Blocks[0]
}

// Block returns the block with a given identifier, or nil if none exists.
func (f *Function) Block(id BlockID) *Block {
	if i, ok := f.index[id]; ok {
		return f.Blocks[i]
	}
	//
	return nil
}

// BlockIndex returns the layout position of a given block.
func (f *Function) BlockIndex(id BlockID) int {
	if i, ok := f.index[id]; ok {
		return i
	}
	//
	return -1
}

// AddBlock appends a new (empty) block onto this function.
func (f *Function) AddBlock(id BlockID) (*Block, error) {
	if _, ok := f.index[id]; ok {
		return nil, fmt.Errorf("duplicate block %s", id)
	}
	//
	b := &Block{ID: id}
	f.index[id] = len(f.Blocks)
	f.Blocks = append(f.Blocks, b)
	//
	return b, nil
}

// NextBlockID returns a block identifier not used in this function.
func (f *Function) NextBlockID() BlockID {
	var next BlockID
	//
	for _, b := range f.Blocks {
		next = max(next, b.ID+1)
	}
	//
	return next
}

// NumValues returns one more than the largest value identifier defined.
func (f *Function) NumValues() int {
	return len(f.values)
}

// NextValue returns a fresh value identifier.
func (f *Function) NextValue() ValueID {
	return ValueID(len(f.values))
}

// Value returns the definition of a given value.  Undefined values have an
// invalid type.
func (f *Function) Value(v ValueID) ValueDef {
	if int(v) < len(f.values) {
		return f.values[v]
	}
	//
	return ValueDef{Type: InvalidType, Inst: -1}
}

// ValueType returns the type of a given value.
func (f *Function) ValueType(v ValueID) Type {
	return f.Value(v).Type
}

// IsDefined checks whether a given value is defined in this function.
func (f *Function) IsDefined(v ValueID) bool {
	return f.Value(v).Type != InvalidType
}

// AddParam appends a parameter onto a given block.
func (f *Function) AddParam(b *Block, v ValueID, t Type) error {
	if err := f.define(v, ValueDef{t, -1, b.ID, len(b.Params)}); err != nil {
		return err
	}
	//
	b.Params = append(b.Params, v)
	//
	return nil
}

// Append an instruction onto the end of a given block, returning its index.
// The instruction's results must be fresh values.  An error is returned if
// the number of results does not match the opcode, or if the controlling type
// contradicts the operand types.
func (f *Function) Append(b *Block, inst Instruction) (int, error) {
	if err := f.checkResults(&inst); err != nil {
		return 0, err
	}
	//
	index := len(f.Insts)
	//
	for i, r := range inst.Results {
		if err := f.define(r, ValueDef{inst.Type, index, b.ID, i}); err != nil {
			return 0, err
		}
	}
	//
	f.Insts = append(f.Insts, inst)
	b.Insts = append(b.Insts, index)
	//
	return index, nil
}

// Build appends a new instruction onto a given block, allocating fresh values
// for its results.  The first result (if any) is returned.
func (f *Function) Build(b *Block, op Opcode, ty Type, args []ValueID, imms ...uint64) (ValueID, error) {
	inst := Instruction{Op: op, Type: ty, Args: args, Imms: imms}
	//
	for range op.NumResults(ty) {
		inst.Results = append(inst.Results, ValueID(len(f.values)+len(inst.Results)))
	}
	//
	if _, err := f.Append(b, inst); err != nil {
		return 0, err
	} else if len(inst.Results) == 0 {
		return 0, nil
	}
	//
	return inst.Results[0], nil
}

// Replace an existing instruction with another which produces the same
// results, and whose results have the same type.
func (f *Function) Replace(index int, inst Instruction) error {
	old := &f.Insts[index]
	//
	if inst.Type != old.Type {
		return &TypeError{inst.Op, old.Type, inst.Type, "replacement changes result type"}
	} else if !slices.Equal(inst.Results, old.Results) {
		return fmt.Errorf("replacement must define %v", old.Results)
	} else if err := f.checkResults(&inst); err != nil {
		return err
	}
	//
	f.Insts[index] = inst
	//
	return nil
}

// Terminator returns the final instruction of a given block, or nil if the
// block has no instructions.
func (f *Function) Terminator(b *Block) *Instruction {
	if len(b.Insts) == 0 {
		return nil
	}
	//
	return &f.Insts[b.Insts[len(b.Insts)-1]]
}

// Successors returns the successors of a given block, in terminator order and
// without duplicates.
func (f *Function) Successors(b *Block) []BlockID {
	var succs []BlockID
	//
	if term := f.Terminator(b); term != nil {
		for _, t := range term.Targets {
			if !slices.Contains(succs, t.Block) {
				succs = append(succs, t.Block)
			}
		}
	}
	//
	return succs
}

// IsPure determines whether a given instruction is pure.  Beyond those
// opcodes which are always pure, an integer division whose divisor is a
// constant which cannot cause a trap is also considered pure.
func (f *Function) IsPure(index int) bool {
	inst := &f.Insts[index]
	//
	if inst.Op.IsPure() {
		return true
	} else if inst.Op.IsDivision() {
		d := f.Value(inst.Args[1])
		//
		if !d.IsParam() && f.Insts[d.Inst].Op == OpIconst {
			return SafeDivisor(inst.Op, inst.Type, f.Insts[d.Inst].Imms[0])
		}
	}
	//
	return false
}

// UseCounts returns the number of uses of each value in this function.
func (f *Function) UseCounts() []uint {
	counts := make([]uint, len(f.values))
	//
	for _, b := range f.Blocks {
		for _, i := range b.Insts {
			for _, v := range f.Insts[i].Uses() {
				counts[v]++
			}
		}
	}
	//
	return counts
}

func (f *Function) define(v ValueID, def ValueDef) error {
	if def.Type == InvalidType {
		return fmt.Errorf("value %s has no type", v)
	}
	//
	for int(v) >= len(f.values) {
		f.values = append(f.values, ValueDef{Type: InvalidType, Inst: -1})
	}
	//
	if f.values[v].Type != InvalidType {
		return fmt.Errorf("value %s defined more than once", v)
	}
	//
	f.values[v] = def
	//
	return nil
}

// Check that an instruction's results agree with its opcode and, where the
// operand types are known, that the controlling type is consistent with them.
func (f *Function) checkResults(inst *Instruction) error {
	n := inst.Op.NumResults(inst.Type)
	//
	if len(inst.Results) != n {
		return fmt.Errorf("%s expects %d result(s), found %d", inst.Op, n, len(inst.Results))
	}
	//
	args := make([]Type, len(inst.Args))
	known := true
	//
	for i, a := range inst.Args {
		args[i] = f.ValueType(a)
		known = known && args[i] != InvalidType
	}
	//
	if expected, ok := inst.Op.InferType(args); ok && known && expected != inst.Type {
		return &TypeError{inst.Op, expected, inst.Type, "result type mismatch"}
	}
	//
	return nil
}

// TypeError indicates an attempt to attach a result of the wrong type.
type TypeError struct {
	Op       Opcode
	Expected Type
	Actual   Type
	Msg      string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s: %s (expected %s, found %s)", e.Op, e.Msg, e.Expected, e.Actual)
}
