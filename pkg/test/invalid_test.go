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

	"github.com/consensys/go-saturn/pkg/test/util"
)

// ===================================================================
// Malformed rules
// ===================================================================

func Test_Invalid_UnboundVariable(t *testing.T) {
	util.CheckInvalid(t, "invalid/unbound_var", "rules", util.RuleCompiler(false))
}

func Test_Invalid_UnknownOperation(t *testing.T) {
	util.CheckInvalid(t, "invalid/unknown_op", "rules", util.RuleCompiler(false))
}

func Test_Invalid_Arity(t *testing.T) {
	util.CheckInvalid(t, "invalid/arity", "rules", util.RuleCompiler(false))
}

func Test_Invalid_DuplicateRule(t *testing.T) {
	util.CheckInvalid(t, "invalid/duplicate", "rules", util.RuleCompiler(false))
}

func Test_Invalid_InstPhase(t *testing.T) {
	util.CheckInvalid(t, "invalid/inst_phase", "rules", util.RuleCompiler(false))
}

func Test_Invalid_Ambiguous(t *testing.T) {
	util.CheckInvalid(t, "invalid/ambiguous", "rules", util.RuleCompiler(true))
}

// ===================================================================
// Malformed functions
// ===================================================================

func Test_Invalid_Functions(t *testing.T) {
	util.CheckInvalid(t, "invalid/functions", "ir", util.FunctionCompiler)
}
