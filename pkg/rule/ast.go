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
package rule

import (
	"fmt"
	"strings"

	"github.com/consensys/go-saturn/pkg/ir"
	"github.com/holiman/uint256"
)

// Phase determines which pass a rule belongs to.
type Phase uint8

const (
	// Simplify rules rewrite pure terms within the e-graph.
	Simplify Phase = iota
	// Lower rules translate terms into machine instructions.
	Lower
)

func (p Phase) String() string {
	if p == Simplify {
		return "simplify"
	}
	//
	return "lower"
}

// ============================================================================
// Patterns
// ============================================================================

// Pattern is a tree of matchers over the operands of a term.
type Pattern interface {
	fmt.Stringer
	// Size returns the number of operation matchers in this pattern.
	Size() int
}

// Var binds whatever it matches to a given slot.  Repeated occurrences of the
// same variable must match the same thing.
type Var struct {
	Name string
	Slot int
}

// Wildcard matches anything, binding nothing.
type Wildcard struct{}

// Literal matches an immediate with a given value.  In value position, this
// matches any integer constant of that value.
type Literal struct {
	Value uint64
	// Symbolic form (e.g. a condition code), if any.
	Symbol string
}

// Node matches an operation with a given opcode, whose type belongs to a given
// class, and whose operands (in layout order) match a given set of patterns.
type Node struct {
	Op    ir.Opcode
	Class ir.TypeClass
	// Type variable (or -1 if none)
	TypeSlot int
	TypeVar  string
	Args     []Pattern
}

// Size implementation for Pattern interface.
func (p *Var) Size() int { return 0 }

// Size implementation for Pattern interface.
func (p *Wildcard) Size() int { return 0 }

// Size implementation for Pattern interface.
func (p *Literal) Size() int { return 0 }

// Size implementation for Pattern interface.
func (p *Node) Size() int {
	n := 1
	//
	for _, a := range p.Args {
		n += a.Size()
	}
	//
	return n
}

func (p *Var) String() string { return p.Name }

func (p *Wildcard) String() string { return "_" }

func (p *Literal) String() string {
	if p.Symbol != "" {
		return p.Symbol
	}
	//
	return fmt.Sprintf("%d", int64(p.Value))
}

func (p *Node) String() string {
	var b strings.Builder
	//
	b.WriteString("(")
	b.WriteString(p.Op.String())
	//
	if p.TypeVar != "" {
		b.WriteString(".@" + p.TypeVar)
	} else if !p.Class.IsAny() {
		b.WriteString("." + p.Class.String())
	}
	//
	for _, a := range p.Args {
		b.WriteString(" ")
		b.WriteString(a.String())
	}
	//
	b.WriteString(")")
	//
	return b.String()
}

// ============================================================================
// Expressions
// ============================================================================

// Expr is an expression within a guard or an action.
type Expr interface {
	fmt.Stringer
}

// VarRef refers to a pattern variable, let binding or decl parameter.
type VarRef struct {
	Name string
	Slot int
}

// IntLit is an integer literal.
type IntLit struct {
	Value uint256.Int
}

// SymLit is a symbolic literal, such as a condition code or a feature name.
type SymLit struct {
	Name string
}

// CallKind identifies what a call expression invokes.
type CallKind uint8

const (
	// CallOp constructs a term (simplify actions only).
	CallOp CallKind = iota
	// CallDecl invokes a helper declaration.
	CallDecl
	// CallInst constructs a machine instruction (lower actions only).
	CallInst
	// CallBuiltin evaluates a builtin function.
	CallBuiltin
	// CallForm is one of the structural action forms (results, seq, pair, lo,
	// hi).
	CallForm
)

// Call is the application of an operation, declaration, instruction, builtin
// or action form to zero or more arguments.
type Call struct {
	Head string
	Kind CallKind
	// Type constraint (for operations)
	Class ir.TypeClass
	// Type variable (or -1 if none)
	TypeSlot int
	TypeVar  string
	// Resolved target
	Op   ir.Opcode
	Decl *Decl
	Inst *InstDecl
	Args []Expr
}

// Let introduces local bindings within its body.
type Let struct {
	Names  []string
	Slots  []int
	Values []Expr
	Body   Expr
}

func (e *VarRef) String() string { return e.Name }

func (e *IntLit) String() string {
	if e.Value.Sign() < 0 {
		var v uint256.Int
		return "-" + v.Neg(&e.Value).Dec()
	}
	//
	return e.Value.Dec()
}

func (e *SymLit) String() string { return e.Name }

func (e *Call) String() string {
	var b strings.Builder
	//
	b.WriteString("(")
	b.WriteString(e.Head)
	//
	if e.TypeVar != "" {
		b.WriteString(".@" + e.TypeVar)
	} else if !e.Class.IsAny() {
		b.WriteString("." + e.Class.String())
	}
	//
	for _, a := range e.Args {
		b.WriteString(" ")
		b.WriteString(a.String())
	}
	//
	b.WriteString(")")
	//
	return b.String()
}

func (e *Let) String() string {
	var b strings.Builder
	//
	b.WriteString("(let (")
	//
	for i, n := range e.Names {
		if i != 0 {
			b.WriteString(" ")
		}
		//
		fmt.Fprintf(&b, "(%s %s)", n, e.Values[i])
	}
	//
	fmt.Fprintf(&b, ") %s)", e.Body)
	//
	return b.String()
}

// ============================================================================
// Declarations
// ============================================================================

// Rule is a rewrite (or lowering) rule.
type Rule struct {
	Name  string
	Phase Phase
	// Higher priorities are tried first
	Priority int
	// Features which must be (or, when prefixed with "!", must not be)
	// available for this rule to be eligible.
	Requires []string
	// Optional guard (nil if none)
	Guard Expr
	// Pattern to match, rooted at an operation
	Pattern *Node
	// Action producing the replacement
	Action Expr
	// Indicates the replacement subsumes the matched term
	Subsume bool
	// Names of pattern variables, indexed by slot
	Vars []string
	// Total number of slots (pattern variables plus let bindings)
	NumSlots int
	// Position in declaration order
	Index int
}

// Specificity returns the number of operations matched by this rule's
// pattern.  Larger patterns fuse more operations.
func (r *Rule) Specificity() int {
	return r.Pattern.Size()
}

func (r *Rule) String() string {
	return fmt.Sprintf("%s %s: %s => %s", r.Phase, r.Name, r.Pattern, r.Action)
}

// Decl is a helper constructor, which may be called from actions (or other
// declarations).
type Decl struct {
	Name     string
	Params   []string
	Body     Expr
	NumSlots int
	// Whether the body (transitively) constructs terms or machine instructions
	usesOps, usesInsts bool
}

// OperandKind identifies the kind of a machine instruction operand.
type OperandKind uint8

const (
	// Def is a register defined by the instruction.
	Def OperandKind = iota
	// Use is a register used by the instruction.
	Use
	// Uses is a variadic list of registers used by the instruction.
	Uses
	// Imm is an integer immediate.
	Imm
	// Mem is a memory operand (base register plus offset).
	Mem
	// CondCode is a condition code.
	CondCode
	// Label is a branch target.
	Label
	// Sym is a symbol (e.g. a function name).
	Sym
	// TrapKind is a trap code.
	TrapKind
)

var operandKindNames = []string{"def", "use", "uses", "imm", "mem", "cc", "label", "sym", "trapcode"}

func (k OperandKind) String() string { return operandKindNames[k] }

// Arity returns the number of action arguments consumed by an operand of this
// kind.
func (k OperandKind) Arity() int {
	switch k {
	case Def:
		return 0
	case Mem:
		return 2
	default:
		return 1
	}
}

// InstDecl declares a machine instruction for use in lowering actions.
type InstDecl struct {
	Name     string
	Operands []OperandKind
	// Trap which may be raised (if any)
	Trap     *ir.TrapCode
	Effect   bool
	Term     bool
	Branch   bool
	Jump     bool
	Move     bool
	Sized    bool
}

// NumArgs returns the number of action arguments this instruction expects.
func (d *InstDecl) NumArgs() int {
	n := 0
	//
	for _, o := range d.Operands {
		n += o.Arity()
	}
	//
	return n
}

// HasDef checks whether this instruction defines a register.
func (d *InstDecl) HasDef() bool {
	for _, o := range d.Operands {
		if o == Def {
			return true
		}
	}
	//
	return false
}

// MayTrap checks whether this instruction may trap, either statically or via a
// trap code operand.
func (d *InstDecl) MayTrap() bool {
	if d.Trap != nil {
		return true
	}
	//
	for _, o := range d.Operands {
		if o == TrapKind {
			return true
		}
	}
	//
	return false
}
