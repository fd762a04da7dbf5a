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
	"strings"
)

func (f *Function) String() string {
	var (
		b     strings.Builder
		lines []string
	)
	//
	lines = append(lines, fmt.Sprintf("(function %s (params%s) (results%s)", f.Name, typeList(f.Params),
		typeList(f.Returns)))
	//
	for _, block := range f.Blocks {
		var params []string
		//
		for _, v := range block.Params {
			params = append(params, fmt.Sprintf("(%s %s)", v, f.ValueType(v)))
		}
		//
		lines = append(lines, fmt.Sprintf("  (%s (%s)", block.ID, strings.Join(params, " ")))
		//
		for _, i := range block.Insts {
			lines = append(lines, "    "+f.Insts[i].String())
		}
		//
		lines[len(lines)-1] += ")"
	}
	//
	lines[len(lines)-1] += ")"
	//
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\n")
	}
	//
	return b.String()
}

func typeList(types []Type) string {
	var b strings.Builder
	//
	for _, t := range types {
		b.WriteString(" ")
		b.WriteString(t.String())
	}
	//
	return b.String()
}

// String returns the textual form of this instruction, including its results.
func (p *Instruction) String() string {
	body := p.Operation()
	//
	switch len(p.Results) {
	case 0:
		return body
	case 1:
		return fmt.Sprintf("(%s %s)", p.Results[0], body)
	default:
		names := make([]string, len(p.Results))
		for i, r := range p.Results {
			names[i] = r.String()
		}
		//
		return fmt.Sprintf("((%s) %s)", strings.Join(names, " "), body)
	}
}

// Operation returns the textual form of this instruction, excluding its
// results.
func (p *Instruction) Operation() string {
	var (
		parts   []string
		args    = p.Args
		imms    = p.Imms
		targets = p.Targets
	)
	//
	if len(p.Results) > 0 {
		parts = append(parts, fmt.Sprintf("%s.%s", p.Op, p.Type))
	} else {
		parts = append(parts, p.Op.String())
	}
	//
	for _, kind := range p.Op.Layout() {
		switch kind {
		case OperandValue:
			parts = append(parts, args[0].String())
			args = args[1:]
		case OperandValues:
			for _, a := range args {
				parts = append(parts, a.String())
			}
			//
			args = nil
		case OperandBlock:
			parts = append(parts, targets[0].String())
			targets = targets[1:]
		case OperandBlocks:
			for _, t := range targets {
				parts = append(parts, t.String())
			}
			//
			targets = nil
		case OperandFunc:
			parts = append(parts, p.Callee)
		case OperandInt:
			parts = append(parts, p.formatInt(imms[0]))
			imms = imms[1:]
		default:
			parts = append(parts, FormatImmediate(kind, imms[0]))
			imms = imms[1:]
		}
	}
	//
	return fmt.Sprintf("(%s)", strings.Join(parts, " "))
}

// Integer constants are printed as signed values of their type.
func (p *Instruction) formatInt(imm uint64) string {
	width := p.Type.Bits()
	//
	if width == 0 || width > 64 {
		width = 64
	}
	//
	return fmt.Sprintf("%d", SignExtend(imm, width))
}

func (c BlockCall) String() string {
	var b strings.Builder
	//
	b.WriteString("(")
	b.WriteString(c.Block.String())
	//
	for _, a := range c.Args {
		b.WriteString(" ")
		b.WriteString(a.String())
	}
	//
	b.WriteString(")")
	//
	return b.String()
}
