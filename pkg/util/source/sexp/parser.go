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
package sexp

import (
	"unicode"

	"github.com/consensys/go-saturn/pkg/util/source"
)

// Parse a given string into an S-expression, or return an error if the string
// is malformed.  A source map is also returned for debugging purposes.
func Parse(s *source.File) (SExp, *source.Map[SExp], *source.SyntaxError) {
	p := NewParser(s)
	// Parse the input
	sExp, err := p.Parse()
	// Sanity check everything was parsed
	if err == nil {
		p.SkipWhiteSpace()
		//
		if p.index != len(p.text) {
			return nil, nil, p.error("unexpected remainder")
		}
	}
	// Done
	return sExp, p.SourceMap(), err
}

// ParseAll converts a given string into zero or more S-expressions, or returns
// an error if the string is malformed.  A source map is also returned for
// debugging purposes.  The key distinction from Parse is that this function
// continues parsing after the first S-expression is encountered.
func ParseAll(s *source.File) ([]SExp, *source.Map[SExp], *source.SyntaxError) {
	p := NewParser(s)
	//
	terms := make([]SExp, 0)
	// Parse the input
	for {
		term, err := p.Parse()
		// Sanity check everything was parsed
		if err != nil {
			return terms, p.srcmap, err
		} else if term == nil {
			// EOF reached
			return terms, p.srcmap, nil
		}

		terms = append(terms, term)
	}
}

// Parser represents a parser in the process of parsing a given string into one
// or more S-expressions.
type Parser struct {
	// Source file being parsed
	srcfile *source.File
	// Cache (for simplicity)
	text []rune
	// Determine current position within text
	index int
	// Mapping from constructed S-Expressions to their spans in the original text.
	srcmap *source.Map[SExp]
}

// NewParser constructs a new instance of Parser
func NewParser(srcfile *source.File) *Parser {
	// Construct initial parser.
	return &Parser{
		srcfile: srcfile,
		text:    srcfile.Contents(),
		index:   0,
		srcmap:  source.NewSourceMap[SExp](srcfile),
	}
}

// SourceMap returns the internal source map constructing during parsing.  Using
// this one can determine, for each SExp, where in the original text it
// originated.  This is helpful, for example, when reporting syntax errors.
func (p *Parser) SourceMap() *source.Map[SExp] {
	return p.srcmap
}

// Parse a given string into an S-Expression, or produce an error.
func (p *Parser) Parse() (SExp, *source.SyntaxError) {
	var term SExp
	// Skip over any whitespace.  This is important to get the correct starting
	// point for this term.
	p.SkipWhiteSpace()
	// Record start of this term
	start := p.index
	// Extract next token from the stream
	token, err := p.Next()
	//
	switch {
	case err != nil:
		return nil, err
	case token == nil:
		return nil, nil
	case len(token) == 1 && token[0] == ')':
		return nil, p.errorAt(start, "unexpected end-of-list")
	case len(token) == 1 && token[0] == '(':
		elements, err := p.parseSequence(start)
		// Check for error
		if err != nil {
			return nil, err
		}
		//
		term = &List{elements}
	default:
		// Must be a symbol
		term = &Symbol{string(token)}
	}
	// Register item in source map
	p.srcmap.Put(term, source.NewSpan(start, p.index))
	// Done
	return term, nil
}

// Next extracts the next token from a given string, returning nil at the end
// of the input.
func (p *Parser) Next() ([]rune, *source.SyntaxError) {
	// Skip any whitespace and/or comments.
	p.SkipWhiteSpace()
	// Catch end-of-file
	if p.index == len(p.text) {
		return nil, nil
	}
	// Check what we have
	switch p.text[p.index] {
	case '(', ')':
		// List begin / end
		p.index = p.index + 1
		return p.text[p.index-1 : p.index], nil
	case '"':
		return p.parseString()
	}
	// Symbol
	return p.parseSymbol(), nil
}

// SkipWhiteSpace skips over any whitespace, including comments.  Comments run
// from a semicolon to the end of the line.
func (p *Parser) SkipWhiteSpace() {
	for p.index < len(p.text) {
		switch c := p.text[p.index]; {
		case c == ';':
			for p.index < len(p.text) && p.text[p.index] != '\n' {
				p.index++
			}
		case unicode.IsSpace(c):
			p.index++
		default:
			return
		}
	}
}

// Lookahead returns the next character which is not whitespace (or part of a
// comment), without consuming anything.
func (p *Parser) Lookahead() (rune, bool) {
	var (
		index = p.index
		c     rune
		ok    bool
	)
	//
	p.SkipWhiteSpace()
	//
	if p.index < len(p.text) {
		c, ok = p.text[p.index], true
	}
	//
	p.index = index
	//
	return c, ok
}

func (p *Parser) parseSymbol() []rune {
	start := p.index
	//
	for p.index < len(p.text) {
		if c := p.text[p.index]; c == '(' || c == ')' || c == ';' || c == '"' || unicode.IsSpace(c) {
			break
		}
		//
		p.index++
	}
	//
	return p.text[start:p.index]
}

// Parse a double-quoted string, retaining the quotes.
func (p *Parser) parseString() ([]rune, *source.SyntaxError) {
	start := p.index
	//
	for j := p.index + 1; j < len(p.text) && p.text[j] != '\n'; j++ {
		if p.text[j] == '"' {
			p.index = j + 1
			return p.text[start:p.index], nil
		}
	}
	//
	return nil, p.errorAt(start, "unterminated string")
}

// Parse the elements of a list, whose opening bracket is at a given position.
func (p *Parser) parseSequence(open int) ([]SExp, *source.SyntaxError) {
	var elements []SExp
	//
	for {
		c, ok := p.Lookahead()
		//
		switch {
		case !ok:
			return nil, p.errorAt(open, "unclosed list")
		case c == ')':
			// Consume terminator
			p.SkipWhiteSpace()
			p.index++
			//
			return elements, nil
		}
		// Parse next element
		element, err := p.Parse()
		if err != nil {
			return nil, err
		}
		//
		elements = append(elements, element)
	}
}

// Construct a parser error at the current position in the input stream.
func (p *Parser) error(msg string) *source.SyntaxError {
	return p.errorAt(p.index, msg)
}

// Construct a parser error covering the character at a given position.
func (p *Parser) errorAt(index int, msg string) *source.SyntaxError {
	end := min(index+1, len(p.text))
	//
	return p.srcfile.SyntaxError(source.NewSpan(min(index, end), end), msg)
}
