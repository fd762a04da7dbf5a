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
	"testing"

	"github.com/consensys/go-saturn/pkg/ir"
	"github.com/consensys/go-saturn/pkg/util/source"
	"github.com/stretchr/testify/require"
)

const sampleRules = `(version "1.0")

(decl shift-of (t k) (iconst.@t (log2 k)))

(rule iadd-zero (iadd.@t x 0) (subsume x))
(rule bxor-self (bxor.@t x x) 0)
(rule imul-pow2 (priority 2) (when (is_pow2 k))
  (imul.@t x (iconst.@t k))
  (ishl.@t x (shift-of t k)))
(rule split-concat (isplit.@t (iconcat.@u a b)) (results a b))
(rule icmp-self (icmp.@t eq x x) (iconst.i8 1))

(inst add def use use)
(inst add_imm def use imm)
(inst ld def mem (trap heap_oob))
(inst jmp label (jump))
(inst mov def use (move))

(lower add-imm (priority 1) (when (fits_simm k 12)) (iadd.i64 x (iconst.i64 k)) (add_imm x k))
(lower add (iadd.i64 x y) (add x y))
(lower load-add (iadd.i64 x (load.i64 p off)) (add x (ld p off)))
(lower lse-only (requires lse) (iadd.i32 x y) (add x y))
(lower jump (jump b) (jmp b))
`

type featureSet map[string]bool

func (f featureSet) Has(name string) bool { return f[name] }

func compileText(t *testing.T, strict bool, text string) *Database {
	db, errs := Compile(CompileConfig{Strict: strict}, source.NewSourceFile("test.rules", []byte(text)))
	//
	for _, err := range errs {
		t.Log(err.Message())
	}
	//
	require.Empty(t, errs)
	//
	return db
}

func compileErrors(text string, strict bool) []string {
	var msgs []string
	//
	_, errs := Compile(CompileConfig{Strict: strict}, source.NewSourceFile("test.rules", []byte(text)))
	//
	for _, err := range errs {
		msgs = append(msgs, err.Message())
	}
	//
	return msgs
}

func Test_Compile_Sample(t *testing.T) {
	db := compileText(t, true, sampleRules)
	//
	require.Len(t, db.Rules, 10)
	require.Equal(t, "1.0.0", db.Version.String())
	// Simplify rules
	require.Equal(t, Simplify, db.Rules[0].Phase)
	require.True(t, db.Rules[0].Subsume)
	require.Equal(t, 2, db.Rules[2].Priority)
	require.NotNil(t, db.Rules[2].Guard)
	require.Equal(t, 2, db.Rules[2].Specificity())
	// Lowering rules
	require.Equal(t, Lower, db.Rules[5].Phase)
	require.Equal(t, []string{"lse"}, db.Rules[8].Requires)
	// Instructions
	ld, ok := db.Inst("ld")
	require.True(t, ok)
	require.Equal(t, 2, ld.NumArgs())
	require.True(t, ld.MayTrap())
	require.True(t, ld.HasDef())
	//
	jmp, _ := db.Inst("jmp")
	require.True(t, jmp.Jump)
	require.True(t, jmp.Term)
	require.Len(t, db.Insts(), 5)
	//
	_, ok = db.Decl("shift-of")
	require.True(t, ok)
}

func Test_Compile_Printing(t *testing.T) {
	db := compileText(t, false, sampleRules)
	//
	require.Equal(t, "simplify imul-pow2: (imul.@t x (iconst.@t k)) => (ishl.@t x (shift-of t k))",
		db.Rules[2].String())
	require.Equal(t, "(icmp.@t eq x x)", db.Rules[4].Pattern.String())
}

func Test_Table_Order(t *testing.T) {
	db := compileText(t, false, sampleRules)
	table := db.Table(Lower, featureSet{})
	// Priority first, then specificity, then declaration order
	var names []string
	for _, r := range table.Rules(ir.OpIadd) {
		names = append(names, r.Name)
	}
	//
	require.Equal(t, []string{"add-imm", "load-add", "add"}, names)
	require.Equal(t, 4, table.Size())
	// Features enable rules
	table = db.Table(Lower, featureSet{"lse": true})
	require.Equal(t, 5, table.Size())
	// Simplify table
	table = db.Table(Simplify, featureSet{})
	require.Equal(t, 5, table.Size())
	require.Len(t, table.Rules(ir.OpImul), 1)
}

func Test_Table_NegatedFeature(t *testing.T) {
	db := compileText(t, false, `(inst add def use use)
(inst cas def use use)
(lower plain (requires !lse) (iadd.i32 x y) (add x y))
(lower atomic (requires lse) (iadd.i32 x y) (cas x y))
`)
	//
	require.Equal(t, "plain", db.Table(Lower, featureSet{}).Rules(ir.OpIadd)[0].Name)
	require.Equal(t, "atomic", db.Table(Lower, featureSet{"lse": true}).Rules(ir.OpIadd)[0].Name)
}

func Test_Compile_Invalid(t *testing.T) {
	cases := []struct {
		text string
		msg  string
	}{
		{`(rule r (iadd x 0) y)`, "unbound variable \"y\""},
		{`(rule r (frob x) x)`, "unknown operation \"frob\""},
		{`(rule r (iadd x) x)`, "operation \"iadd\" expects 2 operand(s)"},
		{`(rule r (store x y 0) x)`, "operation \"store\" cannot be matched by simplify rules"},
		{`(rule r (iadd x 0) x) (rule r (isub x 0) x)`, "duplicate rule \"r\""},
		{`(rule r (iadd.@t x y) (iadd.@u x y))`, "unbound type variable \"u\""},
		{`(rule r (iadd.@x x y) x)`, "variable \"x\" used inconsistently"},
		{`(rule r (isplit x) x)`, "expected (results ...) for 2 results"},
		{`(rule r (isplit x) (results x))`, "expected 2 result(s), found 1"},
		{`(rule r (iadd.i32 x y) (iconst.i64 0))`, "action produces i64 but pattern matches i32"},
		{`(rule r (iadd x y) (store x y 0))`, "operation \"store\" cannot be constructed"},
		{`(rule r (iadd x y) (iadd x (subsume y)))`, "subsume must enclose an entire action"},
		{`(decl f (x) (g x)) (decl g (x) (f x))`, "declaration f is recursive"},
		{`(version "2.0")`, "unsupported rule language version 2.0.0 (expected ^1.0)"},
		{`(inst add def use) (lower r (iadd x y) (add x y))`, "add expects 1 argument(s)"},
		{`(inst add def use use) (rule r (iadd x y) (add x y))`,
			"instruction \"add\" can only be used when lowering"},
		{`(lower r (iadd x y) (iadd x y))`, "operation \"iadd\" cannot be constructed when lowering"},
		{`(rule r (iadd x y) (iconst.i32 frob))`, "unbound variable \"frob\""},
		{`(rule r (when (undefined x)) (iadd x y) x)`, "\"undefined\" cannot be used in a guard"},
		{`(widget)`, "unknown declaration"},
		{`(inst b label (jump)) (decl b (x) x)`, "duplicate or reserved name \"b\""},
		{`(rule r (iadd x iadd) x)`, "reserved name \"iadd\""},
	}
	//
	for _, c := range cases {
		msgs := compileErrors(c.text, false)
		require.NotEmpty(t, msgs, c.text)
		require.Equal(t, c.msg, msgs[0], c.text)
	}
}

// Instruction names are only resolved at the head of an action, hence rules
// (in any file) may bind variables sharing their names.
func Test_Compile_InstructionNamedVariable(t *testing.T) {
	simplify := source.NewSourceFile("simplify.rules",
		[]byte(`(rule iadd-fold (iadd.@t (iconst.@t a) (iconst.@t b)) (subsume (iconst.@t (+ a b))))`))
	lower := source.NewSourceFile("lower.rules", []byte(`(inst b label (jump))
(inst add def use use)
(lower jump (jump b) (b b))
(lower add (iadd.i64 a b) (add a b))
`))
	//
	db, errs := Compile(CompileConfig{Strict: true}, simplify, lower)
	require.Empty(t, errs)
	//
	jump := db.Table(Lower, featureSet{}).Rules(ir.OpJump)
	require.Len(t, jump, 1)
	require.Equal(t, "(b b)", jump[0].Action.String())
	require.Len(t, db.Table(Simplify, featureSet{}).Rules(ir.OpIadd), 1)
}

func Test_Compile_Ambiguous(t *testing.T) {
	text := `(rule a (iadd x 0) x)
(rule b (iadd y 0) y)
(rule c (priority 1) (iadd y 0) y)
`
	// Permitted (resolved by declaration order) unless strict
	compileText(t, false, text)
	//
	msgs := compileErrors(text, true)
	require.Equal(t, []string{"rule b is ambiguous with a (same pattern and priority)"}, msgs)
}
