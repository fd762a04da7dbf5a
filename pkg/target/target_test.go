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
package target

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Target_Parse(t *testing.T) {
	d, err := Parse("x64 avx2 sse41")
	require.NoError(t, err)
	// Features are printed in canonical order
	require.Equal(t, "x64 sse41 avx2", d.String())
	require.True(t, d.Has("avx2"))
	require.True(t, d.Has("sse41"))
	require.False(t, d.Has("avx512dq"))
	require.True(t, d.Has("x64"))
	require.True(t, d.Has("ptr64"))
	require.False(t, d.Has("aarch64"))
}

func Test_Target_Pulley(t *testing.T) {
	d32, err := Parse("pulley32")
	require.NoError(t, err)
	require.True(t, d32.Has("ptr32"))
	require.False(t, d32.Has("ptr64"))
	//
	d64, err := Parse("pulley64")
	require.NoError(t, err)
	require.True(t, d64.Has("ptr64"))
	require.Equal(t, Pulley64, d64.Arch())
}

func Test_Target_Invalid(t *testing.T) {
	_, err := Parse("")
	require.Error(t, err)
	//
	_, err = Parse("mips")
	require.EqualError(t, err, "unknown architecture \"mips\"")
	//
	_, err = Parse("aarch64 avx2")
	require.EqualError(t, err, "unknown feature \"avx2\" for aarch64")
}

func Test_Target_Host(t *testing.T) {
	d, err := Host()
	require.NoError(t, err)
	// Whatever the host is, its descriptor must round trip.
	e, err := Parse(d.String())
	require.NoError(t, err)
	require.Equal(t, d.String(), e.String())
}
