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
package test

import (
	"testing"

	_ "github.com/consensys/go-saturn/pkg/target/aarch64"
	_ "github.com/consensys/go-saturn/pkg/target/pulley"
	_ "github.com/consensys/go-saturn/pkg/target/riscv64"
	_ "github.com/consensys/go-saturn/pkg/target/x64"
	"github.com/consensys/go-saturn/pkg/test/util"
)

// ===================================================================
// Lowering
// ===================================================================

func Test_Lower_Chomp(t *testing.T) {
	util.Check(t, "lower/chomp")
}

func Test_Lower_Sink(t *testing.T) {
	util.Check(t, "lower/sink")
}

func Test_Lower_Features(t *testing.T) {
	util.Check(t, "lower/features")
}

func Test_Lower_FusedBranch(t *testing.T) {
	util.Check(t, "lower/fused_branch")
}

func Test_Lower_Wide(t *testing.T) {
	util.Check(t, "lower/wide")
}

func Test_Lower_Edges(t *testing.T) {
	util.Check(t, "lower/edges")
}

func Test_Lower_NarrowShift(t *testing.T) {
	util.Check(t, "lower/narrow_shift")
}
