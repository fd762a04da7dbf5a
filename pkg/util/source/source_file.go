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
package source

import (
	"cmp"
	"fmt"
	"os"
	"slices"
	"sort"
)

// ReadFiles reads a given set of source files, or produces an error.
func ReadFiles(filenames ...string) ([]File, error) {
	files := make([]File, len(filenames))
	//
	for i, n := range filenames {
		bytes, err := os.ReadFile(n)
		if err != nil {
			return nil, err
		}
		//
		files[i] = *NewSourceFile(n, bytes)
	}
	//
	return files, nil
}

// Line provides information about a given line within the original string.
// This includes the line number (counting from 1), and the span of the line
// within the original string.
type Line struct {
	// Original text
	text []rune
	// Span within original text of this line.
	span Span
	// Line number of this line (counting from 1).
	number int
}

// Get the string representing this line.
func (p *Line) String() string {
	return string(p.text[p.span.start:p.span.end])
}

// Number gets the line number of this line, where the first line in a string
// has line number 1.
func (p *Line) Number() int {
	return p.number
}

// Start returns the starting index of this line in the original string.
func (p *Line) Start() int {
	return p.span.start
}

// Length returns the number of characters in this line.
func (p *Line) Length() int {
	return p.span.Length()
}

// File represents a given source file, such as a rule file or a file of
// functions.  Rule files are often embedded rather than read from disk.
type File struct {
	// File name for this source file.
	filename string
	// Contents of this file.
	contents []rune
	// Offset of the first character of each line.
	starts []int
}

// NewSourceFile constructs a new source file from a given byte array.
func NewSourceFile(filename string, bytes []byte) *File {
	// Convert bytes into runes for easier parsing
	contents := []rune(string(bytes))
	starts := []int{0}
	//
	for i, c := range contents {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	//
	return &File{filename, contents, starts}
}

// Filename returns the filename associated with this source file.
func (s *File) Filename() string {
	return s.filename
}

// Contents returns the contents of this source file.
func (s *File) Contents() []rune {
	return s.contents
}

// Lines splits this source file into its physical lines.  A trailing newline
// does not start a further line.
func (s *File) Lines() []Line {
	lines := make([]Line, 0, len(s.starts))
	//
	for i := range s.starts {
		if line := s.line(i); i+1 < len(s.starts) || line.span.start < len(s.contents) {
			lines = append(lines, line)
		}
	}
	//
	return lines
}

// Construct the ith line (counting from 0), excluding its newline.
func (s *File) line(i int) Line {
	end := len(s.contents)
	//
	if i+1 < len(s.starts) {
		end = s.starts[i+1] - 1
	}
	//
	return Line{s.contents, Span{s.starts[i], end}, i + 1}
}

// SyntaxError constructs a syntax error over a given span of this file with a
// given message.
func (s *File) SyntaxError(span Span, msg string) *SyntaxError {
	return &SyntaxError{s, span, msg}
}

// FindFirstEnclosingLine determines the first line  in this source file which
// encloses the start of a span.  Observe that, if the position is beyond the
// bounds of the source file then the last physical line is returned.  Also,
// the returned line is not guaranteed to enclose the entire span, as these can
// cross multiple lines.
func (s *File) FindFirstEnclosingLine(span Span) Line {
	// Index of the last line starting at or before the span
	i := sort.SearchInts(s.starts, span.start+1) - 1
	//
	return s.line(max(0, i))
}

// Position returns the line and column (both counting from 1) of a given
// offset in this file.
func (s *File) Position(offset int) (int, int) {
	line := s.FindFirstEnclosingLine(Span{offset, offset})
	//
	return line.Number(), 1 + offset - line.Start()
}

// SyntaxError is a structured error which retains the index into the original
// string where an error occurred, along with an error message.
type SyntaxError struct {
	srcfile *File
	// Byte index into string being parsed where error arose.
	span Span
	// Error message being reported
	msg string
}

// SourceFile returns the underlying source file that this syntax error covers.
func (p *SyntaxError) SourceFile() *File {
	return p.srcfile
}

// Span returns the span of the original text on which this error is reported.
func (p *SyntaxError) Span() Span {
	return p.span
}

// Message returns the message to be reported.
func (p *SyntaxError) Message() string {
	return p.msg
}

// Error implements the error interface.
func (p *SyntaxError) Error() string {
	if p.srcfile == nil {
		return p.msg
	}
	//
	line, col := p.srcfile.Position(p.span.start)
	//
	return fmt.Sprintf("%s:%d:%d: %s", p.srcfile.Filename(), line, col, p.msg)
}

// FirstEnclosingLine determines the first line in this source file to which
// this error is associated. Observe that, if the position is beyond the bounds
// of the source file then the last physical line is returned.  Also, the
// returned line is not guaranteed to enclose the entire span, as these can
// cross multiple lines.
func (p *SyntaxError) FirstEnclosingLine() Line {
	return p.srcfile.FindFirstEnclosingLine(p.span)
}

// SortErrors orders syntax errors by file name and then by position, so they
// are reported in the order they appear.  Errors at the same position retain
// their relative order.
func SortErrors(errs []SyntaxError) []SyntaxError {
	slices.SortStableFunc(errs, func(a, b SyntaxError) int {
		if c := cmp.Compare(filenameOf(a), filenameOf(b)); c != 0 {
			return c
		}
		//
		return cmp.Compare(a.span.start, b.span.start)
	})
	//
	return errs
}

func filenameOf(err SyntaxError) string {
	if err.srcfile == nil {
		return ""
	}
	//
	return err.srcfile.filename
}
