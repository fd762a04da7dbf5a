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

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, text string, memory []byte, args ...uint64) Outcome {
	fn, err := ParseFunction(text)
	require.NoError(t, err)
	//
	vals := make([]uint256.Int, len(args))
	for i, a := range args {
		vals[i] = *uint256.NewInt(a)
	}
	//
	out, err := Interpret(fn, memory, DefaultFuel, vals...)
	require.NoError(t, err)
	//
	return out
}

func Test_Interpret_SignedDivision(t *testing.T) {
	out := run(t, sdivBy8, nil, uint64(uint32(0xFFFFFFF1))) // -15
	require.Nil(t, out.Trap)
	require.Equal(t, uint64(0xFFFFFFFF), out.Results[0].Uint64()) // -1
}

func Test_Interpret_DivisionTraps(t *testing.T) {
	text := `(function f (params i32 i32) (results i32)
  (block0 ((v0 i32) (v1 i32))
    (v2 (sdiv.i32 v0 v1))
    (return v2)))`
	//
	out := run(t, text, nil, 1, 0)
	require.Equal(t, TrapIntDivideByZero, *out.Trap)
	//
	out = run(t, text, nil, 0x80000000, 0xFFFFFFFF)
	require.Equal(t, TrapIntOverflow, *out.Trap)
}

func Test_Interpret_Memory(t *testing.T) {
	memory := make([]byte, 16)
	memory[8] = 5
	//
	out := run(t, diamond, memory, 0, 7)
	require.Nil(t, out.Trap)
	require.Equal(t, uint64(12), out.Results[0].Uint64())
	require.Len(t, out.Effects, 1)
	require.Equal(t, "store", out.Effects[0].Kind)
	require.Equal(t, uint64(4), out.Effects[0].Address)
	// Out of bounds
	out = run(t, diamond, make([]byte, 8), 0, 7)
	require.Equal(t, TrapHeapOutOfBounds, *out.Trap)
	// Taken branch
	out = run(t, diamond, memory, 1, 7)
	require.Equal(t, uint64(0xFFFFFFFFFFFFFFFF), out.Results[0].Uint64())
}

func Test_Interpret_Bits(t *testing.T) {
	text := `(function f (params i32) (results i32 i32 i32 i32)
  (block0 ((v0 i32))
    (v1 (bswap.i32 v0))
    (v2 (iconst.i32 8))
    (v3 (rotl.i32 v0 v2))
    (v4 (clz.i32 v0))
    (v5 (popcnt.i32 v0))
    (return v1 v3 v4 v5)))`
	out := run(t, text, nil, 0x00112233)
	require.Equal(t, uint64(0x33221100), out.Results[0].Uint64())
	require.Equal(t, uint64(0x11223300), out.Results[1].Uint64())
	require.Equal(t, uint64(11), out.Results[2].Uint64())
	require.Equal(t, uint64(8), out.Results[3].Uint64())
}

func Test_Interpret_Wide(t *testing.T) {
	text := `(function f (params i64 i64) (results i64 i64)
  (block0 ((v0 i64) (v1 i64))
    (v2 (iconcat.i128 v0 v1))
    (v3 (iconst.i128 1))
    (v4 (iadd.i128 v2 v3))
    ((v5 v6) (isplit.i64 v4))
    (return v5 v6)))`
	out := run(t, text, nil, 0xFFFFFFFFFFFFFFFF, 1)
	require.Equal(t, uint64(0), out.Results[0].Uint64())
	require.Equal(t, uint64(2), out.Results[1].Uint64())
}

func Test_Interpret_Vector(t *testing.T) {
	text := `(function f (params i32) (results i32)
  (block0 ((v0 i32))
    (v1 (splat.i32x4 v0))
    (v2 (iadd.i32x4 v1 v1))
    (v3 (extractlane.i32 v2 3))
    (return v3)))`
	out := run(t, text, nil, 21)
	require.Equal(t, uint64(42), out.Results[0].Uint64())
}

func Test_Interpret_NegativeOffset(t *testing.T) {
	text := `(function f (params i64) (results i32)
  (block0 ((v0 i64))
    (v1 (uload8.i32 v0 -1))
    (return v1)))`
	out := run(t, text, []byte{0, 0x9c}, 2)
	require.Nil(t, out.Trap)
	require.Equal(t, uint64(0x9c), out.Results[0].Uint64())
	//
	out = run(t, text, []byte{0, 0x9c}, 0)
	require.Equal(t, TrapHeapOutOfBounds, *out.Trap)
}

func Test_Interpret_OutOfFuel(t *testing.T) {
	fn, err := ParseFunction(`(function f (params) (results)
  (block0 ()
    (jump (block1)))
  (block1 ()
    (jump (block1))))`)
	require.NoError(t, err)
	//
	_, err = Interpret(fn, nil, 100)
	require.ErrorIs(t, err, ErrOutOfFuel)
}
