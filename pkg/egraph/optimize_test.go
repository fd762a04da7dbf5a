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
	"testing"

	"github.com/consensys/go-saturn/pkg/ir"
	"github.com/consensys/go-saturn/pkg/rule"
	"github.com/consensys/go-saturn/pkg/util/source"
	"github.com/consensys/go-saturn/rules"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

type noFeatures struct{}

func (noFeatures) Has(string) bool { return false }

func simplifyTable(t *testing.T, files ...*source.File) *rule.Table {
	db, errs := rule.Compile(rule.CompileConfig{}, files...)
	//
	for _, err := range errs {
		t.Log(err.Error())
	}
	//
	require.Empty(t, errs)
	//
	return db.Table(rule.Simplify, noFeatures{})
}

func optimize(t *testing.T, text string) *ir.Function {
	fn, err := ir.ParseFunction(text)
	require.NoError(t, err)
	//
	table := simplifyTable(t, rules.Simplify())
	//
	nf, _, err := Optimize(fn, table, DefaultConfig(), DefaultCost)
	require.NoError(t, err)
	require.NoError(t, ir.Verify(nf))
	//
	return nf
}

func checkOptimize(t *testing.T, input, expected string) {
	require.Equal(t, expected, optimize(t, input).String())
}

func Test_Optimize_ShiftByZero(t *testing.T) {
	checkOptimize(t, `(function f (params i32) (results i32)
  (block0 ((v0 i32))
    (v1 (iconst.i32 0))
    (v2 (ushr.i32 v0 v1))
    (return v2)))`, `(function f (params i32) (results i32)
  (block0 ((v0 i32))
    (return v0)))
`)
}

func Test_Optimize_XorSelf(t *testing.T) {
	checkOptimize(t, `(function f (params i32) (results i32)
  (block0 ((v0 i32))
    (v1 (bxor.i32 v0 v0))
    (return v1)))`, `(function f (params i32) (results i32)
  (block0 ((v0 i32))
    (v1 (iconst.i32 0))
    (return v1)))
`)
}

const sdivBy8 = `(function sdiv8 (params i32) (results i32)
  (block0 ((v0 i32))
    (v1 (iconst.i32 8))
    (v2 (sdiv.i32 v0 v1))
    (return v2)))`

func Test_Optimize_SignedDivision(t *testing.T) {
	checkOptimize(t, sdivBy8, `(function sdiv8 (params i32) (results i32)
  (block0 ((v0 i32))
    (v1 (iconst.i32 2))
    (v2 (sshr.i32 v0 v1))
    (v3 (iconst.i32 29))
    (v4 (ushr.i32 v2 v3))
    (v5 (iadd.i32 v4 v0))
    (v6 (iconst.i32 3))
    (v7 (sshr.i32 v5 v6))
    (return v7)))
`)
}

const byteSwap = `(function bswap (params i32) (results i32)
  (block0 ((v0 i32))
    (v1 (iconst.i32 24))
    (v2 (ishl.i32 v0 v1))
    (v3 (iconst.i32 8))
    (v4 (ishl.i32 v0 v3))
    (v5 (iconst.i32 16711680))
    (v6 (band.i32 v4 v5))
    (v7 (bor.i32 v2 v6))
    (v8 (ushr.i32 v0 v3))
    (v9 (iconst.i32 65280))
    (v10 (band.i32 v8 v9))
    (v11 (ushr.i32 v0 v1))
    (v12 (bor.i32 v10 v11))
    (v13 (bor.i32 v7 v12))
    (return v13)))`

func Test_Optimize_ByteSwap(t *testing.T) {
	checkOptimize(t, byteSwap, `(function bswap (params i32) (results i32)
  (block0 ((v0 i32))
    (v1 (bswap.i32 v0))
    (return v1)))
`)
}

func Test_Optimize_RotateCycle(t *testing.T) {
	checkOptimize(t, `(function rot (params i32 i32) (results i32)
  (block0 ((v0 i32) (v1 i32))
    (v2 (rotr.i32 v0 v1))
    (v3 (rotl.i32 v2 v1))
    (return v3)))`, `(function rot (params i32 i32) (results i32)
  (block0 ((v0 i32) (v1 i32))
    (return v0)))
`)
}

func Test_Optimize_SplitConcat(t *testing.T) {
	checkOptimize(t, `(function wide (params i128) (results i128)
  (block0 ((v0 i128))
    ((v1 v2) (isplit.i64 v0))
    (v3 (iconcat.i128 v1 v2))
    (return v3)))`, `(function wide (params i128) (results i128)
  (block0 ((v0 i128))
    (return v0)))
`)
}

const diamondLoad = `(function d (params i64 i32) (results i32)
  (block0 ((v0 i64) (v1 i32))
    (v2 (iconst.i32 4))
    (v3 (imul.i32 v1 v2))
    (v4 (load.i32 v0 0))
    (brif v1 (block1) (block2 v4)))
  (block1 ()
    (v5 (iadd.i32 v3 v4))
    (jump (block2 v5)))
  (block2 ((v6 i32))
    (v7 (iconst.i32 0))
    (v8 (iadd.i32 v6 v7))
    (v9 (bxor.i32 v8 v3))
    (return v9)))`

func Test_Optimize_Diamond(t *testing.T) {
	fn := optimize(t, diamondLoad)
	// Multiplication by four is strength reduced, and materialised in both
	// blocks using it.
	require.Equal(t, `(function d (params i64 i32) (results i32)
  (block0 ((v0 i64) (v1 i32))
    (v2 (load.i32 v0 0))
    (brif v1 (block1) (block2 v2)))
  (block1 ()
    (v3 (iconst.i32 2))
    (v4 (ishl.i32 v1 v3))
    (v5 (iadd.i32 v4 v2))
    (jump (block2 v5)))
  (block2 ((v6 i32))
    (v7 (iconst.i32 2))
    (v8 (ishl.i32 v1 v7))
    (v9 (bxor.i32 v6 v8))
    (return v9)))
`, fn.String())
}

func Test_Optimize_Idempotent(t *testing.T) {
	for _, text := range []string{sdivBy8, byteSwap, diamondLoad} {
		once := optimize(t, text)
		twice := optimize(t, once.String())
		//
		require.Equal(t, once.String(), twice.String())
	}
}

func Test_Optimize_Deterministic(t *testing.T) {
	for _, text := range []string{sdivBy8, byteSwap, diamondLoad} {
		require.Equal(t, optimize(t, text).String(), optimize(t, text).String())
	}
}

func Test_Optimize_Sound(t *testing.T) {
	inputs := []uint64{0, 1, 7, 8, 15, 0x7FFFFFFF, 0x80000000, 0xFFFFFFF1, 0xFFFFFFFF, 0x12345678}
	//
	for _, text := range []string{sdivBy8, byteSwap} {
		before, err := ir.ParseFunction(text)
		require.NoError(t, err)
		//
		after := optimize(t, text)
		//
		for _, x := range inputs {
			checkEquivalent(t, before, after, nil, x)
		}
	}
	//
	before, err := ir.ParseFunction(diamondLoad)
	require.NoError(t, err)
	//
	after := optimize(t, diamondLoad)
	//
	for _, x := range inputs {
		memory := []byte{1, 2, 3, 4, 5, 6, 7, 8}
		checkEquivalent(t, before, after, memory, 0, x)
		checkEquivalent(t, before, after, memory, 6, x)
	}
}

func checkEquivalent(t *testing.T, before, after *ir.Function, memory []byte, args ...uint64) {
	vals := make([]uint256.Int, len(args))
	for i, a := range args {
		vals[i] = *uint256.NewInt(a)
	}
	//
	expected, err := ir.Interpret(before, append([]byte(nil), memory...), ir.DefaultFuel, vals...)
	require.NoError(t, err)
	actual, err := ir.Interpret(after, append([]byte(nil), memory...), ir.DefaultFuel, vals...)
	require.NoError(t, err)
	//
	require.True(t, expected.Equals(&actual), "%v: expected %s, got %s", args, expected.String(), actual.String())
}

const growth = `(version "1.0")
(rule grow (iadd.@t x y) (iadd.@t y (bnot.@t (bnot.@t x))))
`

func Test_Saturate_Budget(t *testing.T) {
	fn, err := ir.ParseFunction(`(function f (params i32 i32) (results i32)
  (block0 ((v0 i32) (v1 i32))
    (v2 (iadd.i32 v0 v1))
    (return v2)))`)
	require.NoError(t, err)
	//
	table := simplifyTable(t, source.NewSourceFile("growth.rules", []byte(growth)))
	cfg := Config{MaxIterations: 100, MaxNodes: 50, MaxMatchesPerRule: 1000}
	//
	p := Build(fn)
	stats, err := p.Graph.Saturate(table, cfg)
	require.ErrorIs(t, err, ErrBudget)
	require.False(t, stats.Saturated)
	// The budget is checked before each firing
	require.LessOrEqual(t, p.Graph.NumNodes(), 50+4)
	// Optimisation still succeeds, yielding an equivalent function
	nf, _, err := Optimize(fn, table, cfg, DefaultCost)
	require.NoError(t, err)
	require.NoError(t, ir.Verify(nf))
	checkEquivalent(t, fn, nf, nil, 3, 4)
}

func Test_Saturate_Iterations(t *testing.T) {
	fn, err := ir.ParseFunction(sdivBy8)
	require.NoError(t, err)
	//
	p := Build(fn)
	stats, err := p.Graph.Saturate(simplifyTable(t, rules.Simplify()), DefaultConfig())
	require.NoError(t, err)
	require.True(t, stats.Saturated)
	require.Greater(t, stats.Rewrites, uint(0))
	// Re-saturating changes nothing
	again, err := p.Graph.Saturate(simplifyTable(t, rules.Simplify()), DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, uint(1), again.Iterations)
	require.Equal(t, uint(0), again.Rewrites)
}

const illTyped = `(version "1.0")
(rule widen (iadd.@t x y) (uextend.i64 x))
`

func Test_Saturate_TypeError(t *testing.T) {
	fn, err := ir.ParseFunction(`(function f (params i32 i32) (results i32)
  (block0 ((v0 i32) (v1 i32))
    (v2 (iadd.i32 v0 v1))
    (return v2)))`)
	require.NoError(t, err)
	//
	table := simplifyTable(t, source.NewSourceFile("bad.rules", []byte(illTyped)))
	_, _, err = Optimize(fn, table, DefaultConfig(), DefaultCost)
	//
	var typeErr *ir.TypeError
	//
	require.ErrorAs(t, err, &typeErr)
	require.Equal(t, ir.I32, typeErr.Expected)
	require.Equal(t, ir.I64, typeErr.Actual)
}
