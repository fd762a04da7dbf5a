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
	"testing"

	"github.com/stretchr/testify/require"
)

const sdivBy8 = `(function sdiv8 (params i32) (results i32)
  (block0 ((v0 i32))
    (v1 (iconst.i32 8))
    (v2 (sdiv.i32 v0 v1))
    (return v2)))
`

const diamond = `(function diamond (params i32 i64) (results i64)
  (block0 ((v0 i32) (v1 i64))
    (brif v0 (block1) (block2 v1)))
  (block1 ()
    (v2 (iconst.i64 -1))
    (jump (block3 v2)))
  (block2 ((v3 i64))
    (v4 (load.i64 v0 8))
    (v5 (iadd.i64 v3 v4))
    (store v5 v0 4)
    (jump (block3 v5)))
  (block3 ((v6 i64))
    (return v6)))
`

func Test_Parse_RoundTrip(t *testing.T) {
	for _, text := range []string{sdivBy8, diamond} {
		fn, err := ParseFunction(text)
		require.NoError(t, err)
		require.Equal(t, text, fn.String())
	}
}

func Test_Parse_MultipleResults(t *testing.T) {
	text := `(function split (params i128) (results i64 i64)
  (block0 ((v0 i128))
    ((v1 v2) (isplit.i64 v0))
    (return v1 v2)))
`
	fn, err := ParseFunction(text)
	require.NoError(t, err)
	require.Equal(t, text, fn.String())
	require.Equal(t, I64, fn.ValueType(2))
	require.Equal(t, 1, fn.Value(2).Index)
}

func Test_Parse_Invalid(t *testing.T) {
	cases := []string{
		// unknown operation
		`(function f (params) (results) (block0 () (v0 (frob.i32)) (return)))`,
		// result type mismatch
		`(function f (params i32) (results i32) (block0 ((v0 i32)) (v1 (iadd.i64 v0 v0)) (return v1)))`,
		// missing terminator
		`(function f (params i32) (results i32) (block0 ((v0 i32)) (v1 (iadd.i32 v0 v0))))`,
		// use before definition
		`(function f (params i32) (results i32) (block0 ((v0 i32)) (v1 (iadd.i32 v0 v2)) (v2 (iconst.i32 1)) (return v1)))`,
		// wrong number of block arguments
		`(function f (params i32) (results) (block0 ((v0 i32)) (jump (block1))) (block1 ((v1 i32)) (return)))`,
		// duplicate definition
		`(function f (params i32) (results) (block0 ((v0 i32)) (v0 (iconst.i32 1)) (return)))`,
	}
	//
	for _, c := range cases {
		_, err := ParseFunction(c)
		require.Error(t, err, c)
	}
}

func Test_Parse_ConstantsAreCanonical(t *testing.T) {
	fn, err := ParseFunction(`(function f (params) (results i8)
  (block0 ()
    (v0 (iconst.i8 255))
    (return v0)))`)
	require.NoError(t, err)
	require.Equal(t, uint64(0xff), fn.Insts[0].Imms[0])
	require.Contains(t, fn.String(), "(iconst.i8 -1)")
}

func Test_Dominators(t *testing.T) {
	fn, err := ParseFunction(diamond)
	require.NoError(t, err)
	//
	dom := ComputeDominators(fn)
	require.True(t, dom.Dominates(0, 3))
	require.False(t, dom.Dominates(1, 3))
	require.False(t, dom.Dominates(2, 3))
	//
	idom, ok := dom.Idom(3)
	require.True(t, ok)
	require.Equal(t, BlockID(0), idom)
	//
	post := Postorder(fn)
	require.Len(t, post, 4)
	require.Equal(t, BlockID(0), post[3].ID)
}

func Test_Purity(t *testing.T) {
	fn, err := ParseFunction(`(function f (params i32) (results i32)
  (block0 ((v0 i32))
    (v1 (iconst.i32 8))
    (v2 (iconst.i32 -1))
    (v3 (sdiv.i32 v0 v1))
    (v4 (sdiv.i32 v0 v2))
    (v5 (udiv.i32 v0 v2))
    (v6 (udiv.i32 v0 v0))
    (return v3)))`)
	require.NoError(t, err)
	require.True(t, fn.IsPure(2))
	require.False(t, fn.IsPure(3))
	require.True(t, fn.IsPure(4))
	require.False(t, fn.IsPure(5))
}

func Test_Build_TypeMismatch(t *testing.T) {
	fn := NewFunction("f", []Type{I32}, []Type{I32})
	b, err := fn.AddBlock(0)
	require.NoError(t, err)
	require.NoError(t, fn.AddParam(b, 0, I32))
	//
	_, err = fn.Build(b, OpIadd, I64, []ValueID{0, 0})
	require.ErrorAs(t, err, new(*TypeError))
	//
	v, err := fn.Build(b, OpIadd, I32, []ValueID{0, 0})
	require.NoError(t, err)
	require.Equal(t, ValueID(1), v)
	// Replacement must preserve the result type
	err = fn.Replace(0, Instruction{Op: OpIconst, Type: I64, Imms: []uint64{1}, Results: []ValueID{1}})
	require.ErrorAs(t, err, new(*TypeError))
	require.NoError(t, fn.Replace(0, Instruction{Op: OpIsub, Type: I32, Args: []ValueID{0, 0}, Results: []ValueID{1}}))
}
