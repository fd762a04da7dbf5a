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

func Test_Renumber(t *testing.T) {
	fn, err := ParseFunction(`(function f (params i32) (results i32)
  (block0 ((v7 i32))
    (v3 (iconst.i32 1))
    (v9 (iadd.i32 v7 v3))
    (return v9)))
`)
	require.NoError(t, err)
	//
	g, err := Renumber(fn)
	require.NoError(t, err)
	require.Equal(t, `(function f (params i32) (results i32)
  (block0 ((v0 i32))
    (v1 (iconst.i32 1))
    (v2 (iadd.i32 v0 v1))
    (return v2)))
`, g.String())
}

func Test_Renumber_DuplicateParam(t *testing.T) {
	fn, err := ParseFunction(sdivBy8)
	require.NoError(t, err)
	// Corrupt the entry block by listing its parameter twice
	entry := fn.Entry()
	entry.Params = append(entry.Params, entry.Params[0])
	//
	_, err = Renumber(fn)
	require.Error(t, err)
}
