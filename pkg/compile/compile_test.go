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
package compile

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/consensys/go-saturn/pkg/ir"
	"github.com/consensys/go-saturn/pkg/lower"
	"github.com/consensys/go-saturn/pkg/target"
	_ "github.com/consensys/go-saturn/pkg/target/aarch64"
	_ "github.com/consensys/go-saturn/pkg/target/pulley"
	_ "github.com/consensys/go-saturn/pkg/target/riscv64"
	_ "github.com/consensys/go-saturn/pkg/target/x64"
	"github.com/consensys/go-saturn/pkg/util/source"
	"github.com/consensys/go-saturn/pkg/vcode"
	"github.com/stretchr/testify/require"
)

const mul8 = `(function mul8 (params i32) (results i32)
  (block0 ((v0 i32))
    (v1 (iconst.i32 8))
    (v2 (imul.i32 v0 v1))
    (return v2)))
`

const popcnt = `(function pc (params i64) (results i64)
  (block0 ((v0 i64))
    (v1 (popcnt.i64 v0))
    (return v1)))
`

func newSession(t *testing.T, text string, level uint, extra ...*source.File) *Session {
	desc, err := target.Parse(text)
	require.NoError(t, err)
	//
	s, err := NewSession(desc, OPTIMISATION_LEVELS[level], extra...)
	require.NoError(t, err)
	//
	return s
}

func parse(t *testing.T, texts ...string) []*ir.Function {
	var fns []*ir.Function
	//
	for _, text := range texts {
		fn, err := ir.ParseFunction(text)
		require.NoError(t, err)
		//
		fns = append(fns, fn)
	}
	//
	return fns
}

func countOf(fn *vcode.Function, name string) int {
	return fn.Count(func(inst *vcode.Inst) bool { return inst.Name() == name })
}

func Test_Compile_StrengthReduction(t *testing.T) {
	for _, arch := range []string{"x64", "aarch64", "riscv64"} {
		s := newSession(t, arch, DEFAULT_OPTIMISATION_INDEX)
		res, err := s.Compile(parse(t, mul8)[0])
		require.NoError(t, err, arch)
		//
		muls := res.Code.Count(func(inst *vcode.Inst) bool { return strings.Contains(inst.Name(), "mul") })
		require.Equal(t, 0, muls, s.Emit(res.Code))
		require.True(t, res.Stats.Rewrites > 0, arch)
	}
}

func Test_Compile_NoOptimisation(t *testing.T) {
	s := newSession(t, "x64", 0)
	fn := parse(t, mul8)[0]
	res, err := s.Compile(fn)
	require.NoError(t, err)
	require.Same(t, fn, res.Optimized)
	require.Equal(t, 1, countOf(res.Code, "imul_rr")+countOf(res.Code, "imul_ri"))
}

func Test_Compile_TargetFeatures(t *testing.T) {
	fn := parse(t, popcnt)[0]
	//
	_, err := newSession(t, "x64", 0).Compile(fn)
	//
	var unsupported *lower.UnsupportedError
	//
	require.True(t, errors.As(err, &unsupported))
	require.Equal(t, "x64", unsupported.Target)
	//
	res, err := newSession(t, "x64 popcnt", 0).Compile(fn)
	require.NoError(t, err)
	require.Equal(t, 1, countOf(res.Code, "popcnt_r"))
}

func Test_Compile_All(t *testing.T) {
	s := newSession(t, "pulley64", DEFAULT_OPTIMISATION_INDEX)
	fns := parse(t, mul8, popcnt, mul8)
	//
	results, err := s.CompileAll(context.Background(), fns)
	require.NoError(t, err)
	require.Len(t, results, 3)
	//
	for i, res := range results {
		require.Equal(t, fns[i].Name, res.Code.Name)
	}
}

func Test_Compile_AllFailure(t *testing.T) {
	s := newSession(t, "x64", DEFAULT_OPTIMISATION_INDEX)
	//
	_, err := s.CompileAll(context.Background(), parse(t, mul8, popcnt))
	require.EqualError(t, err, "pc: unsupported operation popcnt.i64 for target x64")
}

func Test_Compile_ExtraRules(t *testing.T) {
	extra := source.NewSourceFile("extra.rules", []byte(`(rule popcnt-bit (popcnt.@t (band.@t x 1)) (band.@t x 1))`))
	s := newSession(t, "x64", DEFAULT_OPTIMISATION_INDEX, extra)
	//
	fn := parse(t, `(function f (params i64) (results i64)
  (block0 ((v0 i64))
    (v1 (iconst.i64 1))
    (v2 (band.i64 v0 v1))
    (v3 (popcnt.i64 v2))
    (return v3)))
`)[0]
	// Without the extra rule, popcnt is not available on this target
	_, err := newSession(t, "x64", DEFAULT_OPTIMISATION_INDEX).Compile(fn)
	require.Error(t, err)
	//
	res, err := s.Compile(fn)
	require.NoError(t, err)
	require.Equal(t, 0, countOf(res.Code, "popcnt_r"))
}

// The embedded rules of every backend compile against the simplification
// rules, and each backend can then lower a simple function.
func Test_Compile_AllTargets(t *testing.T) {
	for _, arch := range []target.Arch{target.X64, target.Aarch64, target.Riscv64, target.Pulley32, target.Pulley64} {
		_, err := target.Lookup(arch)
		require.NoError(t, err, arch.String())
		//
		desc, err := target.New(arch)
		require.NoError(t, err, arch.String())
		//
		for level := range OPTIMISATION_LEVELS {
			s, err := NewSession(desc, OPTIMISATION_LEVELS[level])
			require.NoError(t, err, "%s -O%d", arch, level)
			//
			res, err := s.Compile(parse(t, mul8)[0])
			require.NoError(t, err, "%s -O%d", arch, level)
			require.Equal(t, 1, res.Code.Count((*vcode.Inst).IsTerminator), "%s -O%d", arch, level)
		}
	}
}

func Test_Compile_SyntaxErrors(t *testing.T) {
	desc, err := target.New(target.X64)
	require.NoError(t, err)
	//
	extra := source.NewSourceFile("bad.rules", []byte(`(rule broken (iadd.@t x) x)`))
	_, err = NewSession(desc, Config{}, extra)
	//
	var errs SyntaxErrors
	//
	require.True(t, errors.As(err, &errs))
	require.NotEmpty(t, errs)
	require.Equal(t, "bad.rules", errs[0].SourceFile().Filename())
}
