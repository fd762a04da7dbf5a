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
// Simplification
// ===================================================================

func Test_Opt_Identities(t *testing.T) {
	util.Check(t, "opt/identities")
}

func Test_Opt_SignedDivision(t *testing.T) {
	util.Check(t, "opt/sdiv_pow2")
}

func Test_Opt_ByteSwap(t *testing.T) {
	util.Check(t, "opt/bswap")
}
