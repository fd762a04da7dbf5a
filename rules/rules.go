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
// Package rules holds the target independent simplification rules.
package rules

import (
	_ "embed"

	"github.com/consensys/go-saturn/pkg/util/source"
)

//go:embed simplify.rules
var simplify []byte

// Simplify returns the simplification rules as a source file.
func Simplify() *source.File {
	return source.NewSourceFile("simplify.rules", simplify)
}
