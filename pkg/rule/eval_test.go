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
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	frame []Value
}

func (e testEnv) Lookup(slot int) Value        { return e.frame[slot] }
func (e testEnv) TypeOf(class uint32) ir.Type  { return ir.I32 }
func (e testEnv) HasFeature(name string) bool { return name == "lse" }

// Evaluate a guard over the variables x (i32 class), k (int) and t (type).
func evalGuard(t *testing.T, text string, k int64) bool {
	db := compileText(t, false, "(rule r (when "+text+") (iadd.@t x (iconst.@t k)) x)")
	r := db.Rules[0]
	frame := make([]Value, r.NumSlots)
	frame[slotOf(r, "t")] = TypeValue(ir.I32)
	frame[slotOf(r, "x")] = ClassValue(7)
	frame[slotOf(r, "k")] = ImmValue(ir.OperandInt, uint64(k), ir.I64)
	//
	return Holds(r.Guard, testEnv{frame}, frame)
}

func Test_Eval_Arithmetic(t *testing.T) {
	require.True(t, evalGuard(t, "(= (+ k 1) 9)", 8))
	require.True(t, evalGuard(t, "(= (* k -2) -16)", 8))
	require.True(t, evalGuard(t, "(= (/ k -2) -4)", 8))
	require.True(t, evalGuard(t, "(= (>> k 1) -4)", -8))
	require.True(t, evalGuard(t, "(< k 0)", -1))
	require.False(t, evalGuard(t, "(< k 0)", 1))
}

func Test_Eval_Bits(t *testing.T) {
	require.True(t, evalGuard(t, "(is_pow2 k)", 64))
	require.False(t, evalGuard(t, "(is_pow2 k)", 0))
	require.False(t, evalGuard(t, "(is_pow2 k)", -4))
	require.True(t, evalGuard(t, "(= (log2 k) 6)", 64))
	require.True(t, evalGuard(t, "(= (mask 8) 255)", 0))
	require.True(t, evalGuard(t, "(= (sext 255 8) -1)", 0))
	require.True(t, evalGuard(t, "(= (zext -1 t) 4294967295)", 0))
}

func Test_Eval_Immediates(t *testing.T) {
	require.True(t, evalGuard(t, "(fits_simm k 12)", -2048))
	require.False(t, evalGuard(t, "(fits_simm k 12)", 2048))
	require.True(t, evalGuard(t, "(fits_uimm k 12)", 4095))
	require.False(t, evalGuard(t, "(fits_uimm k 12)", -1))
}

func Test_Eval_Types(t *testing.T) {
	require.True(t, evalGuard(t, "(= (width t) 32)", 0))
	require.True(t, evalGuard(t, "(= (width x) 32)", 0))
	require.True(t, evalGuard(t, "(is_int t)", 0))
	require.False(t, evalGuard(t, "(is_vector x)", 0))
	require.True(t, evalGuard(t, "(same_type t x)", 0))
	require.True(t, evalGuard(t, "(has_feature lse)", 0))
	require.False(t, evalGuard(t, "(has_feature avx)", 0))
}

func Test_Eval_Failures(t *testing.T) {
	// Division by zero means the guard does not hold
	require.False(t, evalGuard(t, "(= (/ 1 k) 0)", 0))
	require.False(t, evalGuard(t, "(not (= (/ 1 k) 0))", 0))
	// Log of non-positive values is undefined
	require.False(t, evalGuard(t, "(>= (log2 k) 0)", 0))
	// Integer operations on types are undefined
	require.False(t, evalGuard(t, "(= (+ t 1) 0)", 0))
}

func Test_Eval_Let(t *testing.T) {
	require.True(t, evalGuard(t, "(let ((a (+ k 1)) (b (* a 2))) (= b 18))", 8))
}
