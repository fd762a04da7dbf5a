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
	"slices"
	"testing"

	"github.com/consensys/go-saturn/pkg/ir"
	"github.com/stretchr/testify/require"
)

// Treats each value of a function as its own class, whose only node is its
// defining instruction.
type funcGraph struct {
	fn *ir.Function
}

func (g funcGraph) Nodes(class uint32, op ir.Opcode) iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		def := g.fn.Value(ir.ValueID(class))
		//
		if !def.IsParam() && g.fn.Insts[def.Inst].Op == op {
			yield(uint32(def.Inst))
		}
	}
}

func (g funcGraph) View(node uint32) NodeView {
	inst := &g.fn.Insts[node]
	args := make([]uint32, len(inst.Args))
	//
	for i, a := range inst.Args {
		args[i] = uint32(a)
	}
	//
	return NodeView{inst.Op, inst.Type, args, inst.Imms, inst.Callee}
}

func (g funcGraph) Same(a, b uint32) bool { return a == b }

func (g funcGraph) TypeOf(class uint32) ir.Type { return g.fn.ValueType(ir.ValueID(class)) }

const matchFunction = `(function f (params i64) (results i64)
  (block0 ((v0 i64))
    (v1 (iconst.i64 8))
    (v2 (imul.i64 v1 v0))
    (v3 (iadd.i64 v2 v2))
    (v4 (iconst.i64 0))
    (v5 (iadd.i64 v3 v4))
    (v6 (icmp.i8 ult v5 v0))
    (v7 (call.i32 foo v0 v5))
    (return v5)))
`

const matchRules = `
(rule imul-pow2 (when (is_pow2 k)) (imul.@t x (iconst.@t k)) x)
(rule imul-three (when (= k 3)) (imul.@t x (iconst.@t k)) x)
(rule iadd-zero (iadd.@t x 0) x)
(rule iadd-self (iadd.@t x x) x)
(rule iadd-any (iadd.i64 x y) x)
(rule iadd-i32 (iadd.i32 x y) x)
(rule icmp-ult (icmp.@t ult x y) x)
(rule icmp-slt (icmp.@t slt x y) x)
(inst callq def sym uses)
(lower call (call.@t f args) (callq f args))
`

func slotOf(r *Rule, name string) int {
	return slices.Index(r.Vars, name)
}

func matchAll(t *testing.T, db *Database, name string, root uint32) [][]Value {
	var (
		fn, err = ir.ParseFunction(matchFunction)
		matches [][]Value
	)
	//
	require.NoError(t, err)
	//
	for _, r := range db.Rules {
		if r.Name == name {
			Match(r, funcGraph{fn}, featureSet{}, root, func(frame []Value) bool {
				matches = append(matches, slices.Clone(frame))
				return true
			})
		}
	}
	//
	return matches
}

func Test_Match_Commutative(t *testing.T) {
	db := compileText(t, false, matchRules)
	r := db.Rules[0]
	//
	matches := matchAll(t, db, "imul-pow2", 1)
	require.Len(t, matches, 1)
	require.Equal(t, ClassValue(0), matches[0][slotOf(r, "x")])
	require.Equal(t, uint64(8), matches[0][slotOf(r, "k")].Int.Uint64())
	require.Equal(t, TypeValue(ir.I64), matches[0][slotOf(r, "t")])
}

func Test_Match_GuardFails(t *testing.T) {
	db := compileText(t, false, matchRules)
	require.Empty(t, matchAll(t, db, "imul-three", 1))
}

func Test_Match_Literal(t *testing.T) {
	db := compileText(t, false, matchRules)
	//
	r := db.Rules[2]
	//
	matches := matchAll(t, db, "iadd-zero", 4)
	require.Len(t, matches, 1)
	require.Equal(t, uint32(3), matches[0][slotOf(r, "x")].Class)
	// No constant operand
	require.Empty(t, matchAll(t, db, "iadd-zero", 2))
}

func Test_Match_RepeatedVariable(t *testing.T) {
	db := compileText(t, false, matchRules)
	//
	require.Len(t, matchAll(t, db, "iadd-self", 2), 1)
	require.Empty(t, matchAll(t, db, "iadd-self", 4))
}

func Test_Match_BothOrders(t *testing.T) {
	db := compileText(t, false, matchRules)
	// Unconstrained operands match both ways around
	require.Len(t, matchAll(t, db, "iadd-any", 4), 2)
	require.Empty(t, matchAll(t, db, "iadd-i32", 4))
}

func Test_Match_ConditionCode(t *testing.T) {
	db := compileText(t, false, matchRules)
	//
	require.Len(t, matchAll(t, db, "icmp-ult", 5), 1)
	require.Empty(t, matchAll(t, db, "icmp-slt", 5))
}

func Test_Match_Call(t *testing.T) {
	db := compileText(t, false, matchRules)
	r := db.Rules[8]
	//
	matches := matchAll(t, db, "call", 6)
	require.Len(t, matches, 1)
	require.Equal(t, "foo", matches[0][slotOf(r, "f")].Sym)
	require.Equal(t, []uint32{0, 5}, matches[0][slotOf(r, "args")].List)
}

func Test_Match_EarlyExit(t *testing.T) {
	db := compileText(t, false, matchRules)
	fn, err := ir.ParseFunction(matchFunction)
	require.NoError(t, err)
	//
	count := 0
	done := Match(db.Rules[4], funcGraph{fn}, featureSet{}, 4, func([]Value) bool {
		count++
		return false
	})
	//
	require.False(t, done)
	require.Equal(t, 1, count)
}

func Test_ImmValue(t *testing.T) {
	v := ImmValue(ir.OperandInt, 0xffffffff, ir.I32)
	require.Equal(t, -1, v.Int.Sign())
	//
	v = ImmValue(ir.OperandInt, 0xffffffff, ir.I64)
	require.Equal(t, uint64(0xffffffff), v.Int.Uint64())
	//
	v = ImmValue(ir.OperandIntCC, uint64(ir.IntUlt), ir.I8)
	require.Equal(t, ir.OperandIntCC, v.Operand)
}
