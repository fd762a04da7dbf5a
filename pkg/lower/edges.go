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
package lower

import (
	"github.com/consensys/go-saturn/pkg/ir"
	"github.com/consensys/go-saturn/pkg/vcode"
)

// Determine the machine block targeted by each edge of a terminator, passing
// block arguments along the way.  A jump moves its arguments into place
// directly before itself, returning those moves.  Edges of terminators with
// several targets instead go through their own block, which holds the moves
// followed by a jump to the real target.
func (l *lowerer) lowerEdges(b *ir.Block, term *ir.Instruction) ([]vcode.Inst, []int) {
	var (
		prefix []vcode.Inst
		labels []int
	)
	//
	for i, t := range term.Targets {
		target := l.index[t.Block]
		//
		if len(t.Args) == 0 {
			labels = append(labels, target)
			continue
		}
		//
		moves := l.parallelMoves(l.fn.Block(t.Block).Params, t.Args)
		//
		if len(term.Targets) == 1 {
			prefix = append(prefix, moves...)
			labels = append(labels, target)
			//
			continue
		}
		//
		index := l.edges[edge{b.ID, i}]
		split := l.out.Blocks[index]
		split.Insts = append(moves, l.jumpInst(target))
		l.markNeeded(split.Insts)
		labels = append(labels, index)
	}
	//
	return prefix, labels
}

// Assign arguments to block parameters simultaneously.  When some argument is
// itself one of the parameters being assigned, all arguments are first copied
// into temporaries.
func (l *lowerer) parallelMoves(params []ir.ValueID, args []ir.ValueID) []vcode.Inst {
	var (
		dsts, srcs []vcode.Reg
		types      []ir.Type
		moves      []vcode.Inst
		targets    = make(map[uint32]bool)
		clash      bool
	)
	//
	for i, p := range params {
		if p == args[i] {
			continue
		}
		//
		ty := l.fn.ValueType(p)
		//
		for _, part := range parts(ty) {
			dsts = append(dsts, vcode.ValueReg(p).WithPart(part))
			srcs = append(srcs, vcode.ValueReg(args[i]).WithPart(part))
			types = append(types, wordType(ty))
		}
		//
		targets[uint32(p)] = true
	}
	//
	for _, s := range srcs {
		clash = clash || targets[s.Num]
	}
	//
	if !clash {
		for i := range dsts {
			moves = append(moves, l.moveInst(dsts[i], srcs[i], types[i]))
		}
		//
		return moves
	}
	//
	temps := make([]vcode.Reg, len(srcs))
	//
	for i := range srcs {
		temps[i] = l.newTemp(types[i])
		moves = append(moves, l.moveInst(temps[i], srcs[i], types[i]))
	}
	//
	for i := range dsts {
		moves = append(moves, l.moveInst(dsts[i], temps[i], types[i]))
	}
	//
	return moves
}

// 128-bit integers are held in a pair of registers.
func parts(ty ir.Type) []vcode.Part {
	if ty == ir.I128 {
		return []vcode.Part{vcode.Lo, vcode.Hi}
	}
	//
	return []vcode.Part{vcode.Whole}
}

func wordType(ty ir.Type) ir.Type {
	if ty == ir.I128 {
		return ir.I64
	}
	//
	return ty
}
