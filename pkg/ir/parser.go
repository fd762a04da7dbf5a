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
	"fmt"
	"strconv"
	"strings"

	"github.com/consensys/go-saturn/pkg/util/source"
	"github.com/consensys/go-saturn/pkg/util/source/sexp"
)

// ParseFunctions parses zero or more functions from a given source file.  Any
// syntax errors encountered are returned, along with those functions which
// were successfully parsed.
func ParseFunctions(srcfile *source.File) ([]*Function, []source.SyntaxError) {
	terms, srcmap, err := sexp.ParseAll(srcfile)
	//
	if err != nil {
		return nil, []source.SyntaxError{*err}
	}
	//
	var (
		fns    []*Function
		errors []source.SyntaxError
	)
	//
	for _, term := range terms {
		p := functionParser{srcmap: srcmap}
		//
		if fn, err := p.parseFunction(term); err != nil {
			errors = append(errors, *err)
		} else {
			fns = append(fns, fn)
		}
	}
	//
	return fns, source.SortErrors(errors)
}

// ParseFunction parses exactly one function from a given string.
func ParseFunction(text string) (*Function, error) {
	fns, errs := ParseFunctions(source.NewSourceFile("<input>", []byte(text)))
	//
	if len(errs) > 0 {
		return nil, &errs[0]
	} else if len(fns) != 1 {
		return nil, fmt.Errorf("expected one function, found %d", len(fns))
	}
	//
	return fns[0], nil
}

type functionParser struct {
	srcmap *source.Map[sexp.SExp]
	fn     *Function
}

func (p *functionParser) error(node sexp.SExp, msg string, args ...any) *source.SyntaxError {
	return p.srcmap.SyntaxError(node, fmt.Sprintf(msg, args...))
}

func (p *functionParser) parseFunction(term sexp.SExp) (*Function, *source.SyntaxError) {
	list := term.AsList()
	//
	if list == nil || list.Len() < 4 || !list.MatchSymbols(2, "function") || list.Get(1).AsSymbol() == nil {
		return nil, p.error(term, "expected (function name (params ...) (results ...) blocks...)")
	}
	//
	params, err := p.parseTypes(list.Get(2), "params")
	if err != nil {
		return nil, err
	}
	//
	returns, err := p.parseTypes(list.Get(3), "results")
	if err != nil {
		return nil, err
	}
	//
	p.fn = NewFunction(list.Get(1).AsSymbol().Value, params, returns)
	//
	for _, b := range list.Elements[4:] {
		if err := p.parseBlock(b); err != nil {
			return nil, err
		}
	}
	//
	if err := Verify(p.fn); err != nil {
		return nil, p.error(term, "%s", err.Error())
	}
	//
	return p.fn, nil
}

func (p *functionParser) parseTypes(term sexp.SExp, head string) ([]Type, *source.SyntaxError) {
	list := term.AsList()
	//
	if list == nil || list.Head() != head {
		return nil, p.error(term, "expected (%s ...)", head)
	}
	//
	types := make([]Type, list.Len()-1)
	//
	for i, e := range list.Elements[1:] {
		t, err := p.parseType(e)
		if err != nil {
			return nil, err
		}
		//
		types[i] = t
	}
	//
	return types, nil
}

func (p *functionParser) parseType(term sexp.SExp) (Type, *source.SyntaxError) {
	if s := term.AsSymbol(); s != nil {
		if t, ok := ParseType(s.Value); ok {
			return t, nil
		}
	}
	//
	return InvalidType, p.error(term, "unknown type")
}

func (p *functionParser) parseBlock(term sexp.SExp) *source.SyntaxError {
	list := term.AsList()
	//
	if list == nil || list.Len() < 2 || list.Get(0).AsSymbol() == nil || list.Get(1).AsList() == nil {
		return p.error(term, "expected (blockN (params...) instructions...)")
	}
	//
	id, ok := parseBlockID(list.Head())
	if !ok {
		return p.error(list.Get(0), "invalid block name")
	}
	//
	block, err := p.fn.AddBlock(id)
	if err != nil {
		return p.error(list.Get(0), "%s", err.Error())
	}
	// Parameters
	for _, param := range list.Get(1).AsList().Elements {
		pl := param.AsList()
		//
		if pl == nil || pl.Len() != 2 || pl.Get(0).AsSymbol() == nil {
			return p.error(param, "expected (vN type)")
		}
		//
		v, err := p.parseValue(pl.Get(0))
		if err != nil {
			return err
		}
		//
		t, err := p.parseType(pl.Get(1))
		if err != nil {
			return err
		}
		//
		if err := p.fn.AddParam(block, v, t); err != nil {
			return p.error(param, "%s", err.Error())
		}
	}
	// Instructions
	for _, e := range list.Elements[2:] {
		if err := p.parseInstruction(block, e); err != nil {
			return err
		}
	}
	//
	return nil
}

func (p *functionParser) parseInstruction(block *Block, term sexp.SExp) *source.SyntaxError {
	var (
		list    = term.AsList()
		results []ValueID
		body    *sexp.List
	)
	//
	switch {
	case list == nil || list.Len() == 0:
		return p.error(term, "expected instruction")
	case list.Len() == 2 && list.Get(0).AsList() != nil:
		// Multiple results
		for _, r := range list.Get(0).AsList().Elements {
			v, err := p.parseValue(r)
			if err != nil {
				return err
			}
			//
			results = append(results, v)
		}
		//
		body = list.Get(1).AsList()
	case list.Len() == 2 && isValueName(list.Head()) && list.Get(1).AsList() != nil:
		v, err := p.parseValue(list.Get(0))
		if err != nil {
			return err
		}
		//
		results = []ValueID{v}
		body = list.Get(1).AsList()
	default:
		body = list
	}
	//
	if body == nil || body.Len() == 0 || body.Get(0).AsSymbol() == nil {
		return p.error(term, "expected (op args...)")
	}
	//
	inst, err := p.parseOperation(body)
	if err != nil {
		return err
	}
	//
	inst.Results = results
	// Canonicalise integer constants
	if inst.Op == OpIconst && inst.Type.Bits() < 64 {
		inst.Imms[0] = Mask(inst.Imms[0], inst.Type.Bits())
	}
	//
	if _, err := p.fn.Append(block, inst); err != nil {
		return p.error(term, "%s", err.Error())
	}
	//
	return nil
}

func (p *functionParser) parseOperation(list *sexp.List) (Instruction, *source.SyntaxError) {
	var (
		inst     Instruction
		name, ty = SplitTypedName(list.Head())
		operands = list.Elements[1:]
		ok       bool
	)
	//
	if inst.Op, ok = ParseOpcode(name, false); !ok {
		return inst, p.error(list.Get(0), "unknown operation \"%s\"", name)
	} else if ty != "" {
		if inst.Type, ok = ParseType(ty); !ok {
			return inst, p.error(list.Get(0), "unknown type \"%s\"", ty)
		}
	}
	//
	for _, kind := range inst.Op.Layout() {
		switch {
		case kind == OperandValues:
			for len(operands) > 0 && operands[0].AsSymbol() != nil {
				v, err := p.parseValue(operands[0])
				if err != nil {
					return inst, err
				}
				//
				inst.Args = append(inst.Args, v)
				operands = operands[1:]
			}
		case kind == OperandBlocks:
			for len(operands) > 0 {
				call, err := p.parseBlockCall(operands[0])
				if err != nil {
					return inst, err
				}
				//
				inst.Targets = append(inst.Targets, call)
				operands = operands[1:]
			}
		case len(operands) == 0:
			return inst, p.error(list, "missing operand(s)")
		case kind == OperandValue:
			v, err := p.parseValue(operands[0])
			if err != nil {
				return inst, err
			}
			//
			inst.Args = append(inst.Args, v)
			operands = operands[1:]
		case kind == OperandBlock:
			call, err := p.parseBlockCall(operands[0])
			if err != nil {
				return inst, err
			}
			//
			inst.Targets = append(inst.Targets, call)
			operands = operands[1:]
		case kind == OperandFunc:
			if operands[0].AsSymbol() == nil {
				return inst, p.error(operands[0], "expected function name")
			}
			//
			inst.Callee = operands[0].AsSymbol().Value
			operands = operands[1:]
		default:
			s := operands[0].AsSymbol()
			if s == nil {
				return inst, p.error(operands[0], "expected immediate")
			}
			//
			imm, err := ParseImmediate(kind, s.Value)
			if err != nil {
				return inst, p.error(operands[0], "%s", err.Error())
			}
			//
			inst.Imms = append(inst.Imms, imm)
			operands = operands[1:]
		}
	}
	//
	if len(operands) > 0 {
		return inst, p.error(operands[0], "unexpected operand")
	}
	//
	return inst, nil
}

func (p *functionParser) parseBlockCall(term sexp.SExp) (BlockCall, *source.SyntaxError) {
	var call BlockCall
	//
	list := term.AsList()
	if list == nil || list.Len() == 0 {
		return call, p.error(term, "expected (blockN args...)")
	}
	//
	id, ok := parseBlockID(list.Head())
	if !ok {
		return call, p.error(term, "invalid block name")
	}
	//
	call.Block = id
	//
	for _, a := range list.Elements[1:] {
		v, err := p.parseValue(a)
		if err != nil {
			return call, err
		}
		//
		call.Args = append(call.Args, v)
	}
	//
	return call, nil
}

func (p *functionParser) parseValue(term sexp.SExp) (ValueID, *source.SyntaxError) {
	if s := term.AsSymbol(); s != nil && isValueName(s.Value) {
		n, err := strconv.ParseUint(s.Value[1:], 10, 32)
		if err == nil {
			return ValueID(n), nil
		}
	}
	//
	return 0, p.error(term, "expected value")
}

func isValueName(name string) bool {
	if len(name) < 2 || name[0] != 'v' {
		return false
	}
	//
	_, err := strconv.ParseUint(name[1:], 10, 32)
	//
	return err == nil
}

func parseBlockID(name string) (BlockID, bool) {
	if !strings.HasPrefix(name, "block") {
		return 0, false
	}
	//
	n, err := strconv.ParseUint(name[5:], 10, 32)
	//
	return BlockID(n), err == nil
}
