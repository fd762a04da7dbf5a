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
package util

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/consensys/go-saturn/pkg/util/source"
)

// Extract an expected syntax error from a given line in the source file.
// Expected errors have the form ";;error:L:S-E:msg", where L is a line number
// and S-E a (1-indexed) column range on that line.
func extractSyntaxError(lineno int, lines []source.Line, srcfile *source.File) (bool, source.SyntaxError, error) {
	contents := lines[lineno].String()
	//
	if !strings.HasPrefix(contents, ";;error") {
		return false, source.SyntaxError{}, nil
	}
	//
	line, start, end, msg, err := parseExpectedError(contents)
	if err != nil {
		return true, source.SyntaxError{}, err
	}
	//
	span, err := fileSpan(line, start, end, lines)
	//
	return true, *srcfile.SyntaxError(span, msg), err
}

func parseExpectedError(contents string) (line, start, end int, msg string, err error) {
	splits := strings.SplitN(contents, ":", 4)
	//
	if len(splits) < 4 {
		return 0, 0, 0, "", fmt.Errorf("malformed expected error \"%s\", should be e.g. \";;error:X:Y-Z:msg\"", contents)
	} else if line, err = strconv.Atoi(splits[1]); err != nil || line == 0 {
		return 0, 0, 0, "", fmt.Errorf("invalid line \"%s\" (lines numbered from 1)", splits[1])
	}
	//
	columns := strings.Split(splits[2], "-")
	//
	if len(columns) != 2 {
		return 0, 0, 0, "", fmt.Errorf("invalid span \"%s\" (malformed, should be X-Y)", splits[2])
	} else if start, err = strconv.Atoi(columns[0]); err != nil || start == 0 {
		return 0, 0, 0, "", fmt.Errorf("invalid span \"%s\" (columns numbered from 1)", splits[2])
	} else if end, err = strconv.Atoi(columns[1]); err != nil {
		return 0, 0, 0, "", fmt.Errorf("invalid span \"%s\" (%s)", splits[2], err.Error())
	}
	//
	return line, start, end, splits[3], nil
}

// Determine the file span corresponding to a column range on a given line.
func fileSpan(lineno, start, end int, lines []source.Line) (source.Span, error) {
	if lineno > len(lines) {
		return source.Span{}, fmt.Errorf("invalid span \"%d:%d-%d\" (non-existent line)", lineno, start, end)
	}
	//
	line := lines[lineno-1]
	// Columns are numbered from 1
	start, end = start-1, end-1
	//
	if start >= line.Length() || end > line.Length() {
		return source.Span{}, fmt.Errorf("invalid span \"%d:%d-%d\" (overflows to following line)", lineno, start, end)
	}
	//
	return source.NewSpan(line.Start()+start, line.Start()+end), nil
}
