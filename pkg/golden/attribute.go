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
package golden

import (
	"strings"

	"github.com/consensys/go-saturn/pkg/util/source"
)

// Attribute provides a generic mechanism for extracting attributes from the
// beginning of a file.  An attribute parses a given line (assuming it has
// matched) producing an item or, potentially, an error.
type Attribute[T any] func(int, []source.Line, *source.File) (bool, T, error)

// ExtractAttributes extracts any matching attributes at the beginning of a
// source file.  Extraction stops at the first line matched by no attribute.
func ExtractAttributes[T any](srcfile *source.File, attributes ...Attribute[T]) ([]T, []error) {
	var (
		// Calculate the character offset of each line
		lines = srcfile.Lines()
		// Now construct items
		items []T
		//
		errors []error
		//
		matched = true
	)
	// scan file line-by-line until no more attributes found
	for i := 0; i < len(lines) && matched; i++ {
		matched = false

		for _, attribute := range attributes {
			m, item, err := attribute(i, lines, srcfile)
			//
			if err != nil {
				errors = append(errors, err)
			} else if m {
				items = append(items, item)
			}
			//
			matched = matched || m
		}
	}
	//
	return items, errors
}

// Setting is a named attribute of a golden test, such as ";;target x64 bmi2"
// or ";;set nodes=100".
type Setting struct {
	// Kind of setting (e.g. "target")
	Kind string
	// Remainder of the line following the kind
	Value string
}

// SettingAttribute matches lines of the form ";;kind value".
func SettingAttribute(kind string) Attribute[Setting] {
	var prefix = ";;" + kind + " "
	//
	return func(lineno int, lines []source.Line, _ *source.File) (bool, Setting, error) {
		contents := lines[lineno].String()
		//
		if !strings.HasPrefix(contents, prefix) {
			return false, Setting{}, nil
		}
		//
		return true, Setting{kind, strings.TrimSpace(contents[len(prefix):])}, nil
	}
}
