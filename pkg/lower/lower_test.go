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
package lower

import (
	"errors"
	"testing"

	"github.com/consensys/go-saturn/pkg/ir"
	"github.com/consensys/go-saturn/pkg/rule"
	"github.com/consensys/go-saturn/pkg/target"
	_ "github.com/consensys/go-saturn/pkg/target/aarch64"
	_ "github.com/consensys/go-saturn/pkg/target/pulley"
	_ "github.com/consensys/go-saturn/pkg/target/x64"
	"github.com/consensys/go-saturn/pkg/vcode"
	"github.com/stretchr/testify/require"
)

func lowerText(t *testing.T, text string, arch target.Arch, features ...string) (*vcode.Function, target.Backend, error) {
	desc, err := target.New(arch, features...)
	require.NoError(t, err)
	//
	backend, err := target.Lookup(arch)
	require.NoError(t, err)
	//
	db, errs := rule.Compile(rule.CompileConfig{}, backend.Rules())
	require.Empty(t, errs)
	//
	sel, err := NewSelector(db, db.Table(rule.Lower, desc), desc.String())
	require.NoError(t, err)
	//
	fn, err := ir.ParseFunction(text)
	require.NoError(t, err)
	//
	out, err := sel.Lower(fn)
	//
	return out, backend, err
}

func checkLowering(t *testing.T, text string, expected string, arch target.Arch, features ...string) *vcode.Function {
	out, backend, err := lowerText(t, text, arch, features...)
	require.NoError(t, err)
	require.Equal(t, expected, out.Format(backend.Emit))
	//
	return out
}

func countOf(fn *vcode.Function, name string) int {
	return fn.Count(func(inst *vcode.Inst) bool { return inst.Name() == name })
}

func Test_Lower_ChompedBranch(t *testing.T) {
	text := `(function chomp (params i32) (results i32)
  (block0 ((v0 i32))
    (brif v0 (block1) (block2)))
  (block1 ()
    (jump (block3)))
  (block2 ()
    (jump (block3)))
  (block3 ()
    (return v0)))
`
	out := checkLowering(t, text, `function chomp
block0:
  jmp block3
block3:
  ret %v0
`, target.X64)
	//
	require.Equal(t, 0, out.Count((*vcode.Inst).IsBranch))
	require.Equal(t, 1, out.Count((*vcode.Inst).IsJump))
}

func Test_Lower_SinkLoad(t *testing.T) {
	text := `(function addload (params i64 i64) (results i64)
  (block0 ((v0 i64) (v1 i64))
    (v2 (load.i64 v1 8))
    (v3 (iadd.i64 v0 v2))
    (return v3)))
`
	checkLowering(t, text, `function addload
block0:
  addq %v3, %v0, [%v1+8] ; trap=heap_oob
  ret %v3
`, target.X64)
}

func Test_Lower_NoSinkAcrossStore(t *testing.T) {
	text := `(function addload (params i64 i64) (results i64)
  (block0 ((v0 i64) (v1 i64))
    (v2 (load.i64 v1 0))
    (store v0 v1 16)
    (v3 (iadd.i64 v0 v2))
    (return v3)))
`
	checkLowering(t, text, `function addload
block0:
  movq %v2, [%v1] ; trap=heap_oob
  movq [%v1+16], %v0 ; trap=heap_oob
  addq %v3, %v0, %v2
  ret %v3
`, target.X64)
}

func Test_Lower_NoSinkMultipleUses(t *testing.T) {
	text := `(function twice (params i64 i64) (results i64)
  (block0 ((v0 i64) (v1 i64))
    (v2 (load.i64 v1 0))
    (v3 (iadd.i64 v0 v2))
    (v4 (iadd.i64 v3 v2))
    (return v4)))
`
	out, _, err := lowerText(t, text, target.X64)
	require.NoError(t, err)
	require.Equal(t, 1, countOf(out, "mov_rm"))
	require.Equal(t, 0, countOf(out, "add_rm"))
	require.Equal(t, 2, countOf(out, "add_rr"))
}

func Test_Lower_EdgeSplitting(t *testing.T) {
	text := `(function diamond (params i32 i64) (results i64)
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
	checkLowering(t, text, `function diamond
block0:
  testl %v0, %v0
  jne block1; jmp block0_1
block0_1:
  movq %v3, %v1
  jmp block2
block1:
  movq %v2, -1
  movq %v6, %v2
  jmp block3
block2:
  addq %v5, %v3, [%v0+8] ; trap=heap_oob
  movq [%v0+4], %v5 ; trap=heap_oob
  movq %v6, %v5
  jmp block3
block3:
  ret %v6
`, target.X64)
}

func Test_Lower_SwappedBlockArguments(t *testing.T) {
	text := `(function swap (params i64 i64 i32) (results i64)
  (block0 ((v0 i64) (v1 i64) (v2 i32))
    (jump (block1 v0 v1)))
  (block1 ((v3 i64) (v4 i64))
    (brif v2 (block1 v4 v3) (block2)))
  (block2 ()
    (return v3)))
`
	out, _, err := lowerText(t, text, target.X64)
	require.NoError(t, err)
	// The swap goes through temporaries
	require.Equal(t, 6, countOf(out, "mov_rr"))
}

func Test_Lower_Wide(t *testing.T) {
	text := `(function add128 (params i128 i128) (results i128)
  (block0 ((v0 i128) (v1 i128))
    (v2 (iadd.i128 v0 v1))
    (return v2)))
`
	checkLowering(t, text, `function add128
block0:
  addq %v2.lo, %v0.lo, %v1.lo
  adcq %v2.hi, %v0.hi, %v1.hi
  ret %v2.lo, %v2.hi
`, target.X64)
}

func Test_Lower_Unsupported(t *testing.T) {
	text := `(function pc (params i64) (results i64)
  (block0 ((v0 i64))
    (v1 (popcnt.i64 v0))
    (return v1)))
`
	_, _, err := lowerText(t, text, target.X64)
	//
	var unsupported *UnsupportedError
	//
	require.True(t, errors.As(err, &unsupported))
	require.Equal(t, ir.OpPopcnt, unsupported.Op)
	require.Equal(t, ir.I64, unsupported.Type)
	require.Equal(t, "unsupported operation popcnt.i64 for target x64", err.Error())
	// Available with the feature
	checkLowering(t, text, `function pc
block0:
  popcntq %v1, %v0
  ret %v1
`, target.X64, "popcnt")
}

func Test_Lower_UnsupportedComparison(t *testing.T) {
	text := `(function cmp (params i128 i128) (results i8)
  (block0 ((v0 i128) (v1 i128))
    (v2 (icmp.i8 slt v0 v1))
    (return v2)))
`
	_, _, err := lowerText(t, text, target.X64)
	require.EqualError(t, err, "unsupported operation icmp.i128 for target x64")
}

func Test_Lower_TrapMetadata(t *testing.T) {
	text := `(function div (params i32 i32) (results i32)
  (block0 ((v0 i32) (v1 i32))
    (v2 (sdiv.i32 v0 v1))
    (return v2)))
`
	out, _, err := lowerText(t, text, target.X64)
	require.NoError(t, err)
	//
	var traps []ir.TrapCode
	//
	for _, inst := range out.Blocks[0].Insts {
		if code, ok := inst.Trap(); ok {
			traps = append(traps, code)
		}
	}
	//
	require.Equal(t, []ir.TrapCode{ir.TrapIntOverflow, ir.TrapIntDivideByZero}, traps)
}

func Test_Lower_VectorLegalization(t *testing.T) {
	text := `(function mul (params i64x2 i64x2) (results i64x2)
  (block0 ((v0 i64x2) (v1 i64x2))
    (v2 (imul.i64x2 v0 v1))
    (return v2)))
`
	out, _, err := lowerText(t, text, target.X64)
	require.NoError(t, err)
	require.Equal(t, 3, countOf(out, "pmuludq_rr"))
	require.Equal(t, 0, countOf(out, "vpmullq_rr"))
	// Native with AVX-512
	out, _, err = lowerText(t, text, target.X64, "avx512dq", "avx512vl")
	require.NoError(t, err)
	require.Equal(t, 0, countOf(out, "pmuludq_rr"))
	require.Equal(t, 1, countOf(out, "vpmullq_rr"))
}

func Test_Lower_FusedCompareBranch(t *testing.T) {
	text := `(function lt (params i32 i32) (results i32)
  (block0 ((v0 i32) (v1 i32))
    (v2 (icmp.i8 slt v0 v1))
    (brif v2 (block1) (block2)))
  (block1 ()
    (return v0))
  (block2 ()
    (return v1)))
`
	expected := `function lt
block0:
  br_if_xslt32 %v0, %v1, block1; jump block2
block1:
  ret %v0
block2:
  ret %v1
`
	checkLowering(t, text, expected, target.Pulley32)
	checkLowering(t, text, expected, target.Pulley64)
}

func Test_Lower_PointerWidth(t *testing.T) {
	text := `(function ld (params i64) (results i64)
  (block0 ((v0 i64))
    (v1 (iconst.i64 16))
    (v2 (iadd.i64 v0 v1))
    (v3 (load.i64 v2 8))
    (return v3)))
`
	checkLowering(t, text, `function ld
block0:
  xload64le_o32 %v3, [%v0+24] ; trap=heap_oob
  ret %v3
`, target.Pulley64)
	// The address computation is not pointer sized
	out, _, err := lowerText(t, text, target.Pulley32)
	require.NoError(t, err)
	require.Equal(t, 1, countOf(out, "xadd64_u8"))
}

func Test_Lower_AtomicFeatures(t *testing.T) {
	text := `(function rmw (params i64 i64) (results i64)
  (block0 ((v0 i64) (v1 i64))
    (v2 (atomic_rmw.i64 or v0 v1))
    (return v2)))
`
	out, _, err := lowerText(t, text, target.Aarch64, "lse")
	require.NoError(t, err)
	require.Equal(t, 1, countOf(out, "ldset_rm"))
	//
	out, _, err = lowerText(t, text, target.Aarch64)
	require.NoError(t, err)
	require.Equal(t, 0, countOf(out, "ldset_rm"))
	require.Equal(t, 1, countOf(out, "ldxr_loop_rm"))
}

func Test_Lower_UnreachableBlocks(t *testing.T) {
	text := `(function dead (params i32) (results i32)
  (block0 ((v0 i32))
    (return v0))
  (block1 ()
    (v1 (popcnt.i32 v0))
    (return v1)))
`
	// Unreachable blocks are never lowered
	out, _, err := lowerText(t, text, target.X64)
	require.NoError(t, err)
	require.Len(t, out.Blocks, 1)
}

// Shift counts wrap at the width of the shifted value, whereas the hardware
// masks them to at least 5 bits.
func Test_Lower_NarrowShift(t *testing.T) {
	text := `(function shl8 (params i8 i8) (results i8)
  (block0 ((v0 i8) (v1 i8))
    (v2 (ishl.i8 v0 v1))
    (return v2)))
`
	checkLowering(t, text, `function shl8
block0:
  andb %t0, %v1, 7
  shlb %v2, %v0, %t0
  ret %v2
`, target.X64)
	//
	out, _, err := lowerText(t, text, target.Pulley64)
	require.NoError(t, err)
	require.Equal(t, 1, countOf(out, "xband32"))
	require.Equal(t, 1, countOf(out, "xshl32"))
}
