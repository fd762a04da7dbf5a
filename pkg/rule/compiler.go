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
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/consensys/go-saturn/pkg/ir"
	"github.com/consensys/go-saturn/pkg/util/source"
	"github.com/consensys/go-saturn/pkg/util/source/sexp"
	"github.com/holiman/uint256"
)

// Identifies where (in which source file) a given node originated.
type site struct {
	srcmap *source.Map[sexp.SExp]
	node   sexp.SExp
}

type parsedFile struct {
	terms  []sexp.SExp
	srcmap *source.Map[sexp.SExp]
}

type pendingDecl struct {
	decl *Decl
	body sexp.SExp
	site site
}

// The context in which an expression is resolved.
type mode uint8

const (
	modeGuard mode = iota
	modeSimplify
	modeLower
	modeDecl
)

type compiler struct {
	db      *Database
	errors  []source.SyntaxError
	sites   map[*Rule]site
	files   map[*source.File]parsedFile
	pending []pendingDecl
	// Source map of the file currently being processed
	srcmap *source.Map[sexp.SExp]
}

func newCompiler() *compiler {
	db := &Database{decls: make(map[string]*Decl), insts: make(map[string]*InstDecl)}
	//
	return &compiler{db: db, sites: make(map[*Rule]site), files: make(map[*source.File]parsedFile)}
}

func (c *compiler) errorAt(s site, msg string) {
	c.errors = append(c.errors, *s.srcmap.SyntaxError(s.node, msg))
}

func (c *compiler) error(node sexp.SExp, msg string, args ...any) {
	c.errorAt(site{c.srcmap, node}, fmt.Sprintf(msg, args...))
}

// ============================================================================
// Declarations (first pass)
// ============================================================================

func (c *compiler) declare(f *source.File) {
	terms, srcmap, err := sexp.ParseAll(f)
	//
	if err != nil {
		c.errors = append(c.errors, *err)
		return
	}
	//
	c.files[f] = parsedFile{terms, srcmap}
	c.srcmap = srcmap
	//
	for _, term := range terms {
		list := term.AsList()
		//
		switch {
		case list == nil || list.Len() == 0:
			c.error(term, "expected declaration")
		case list.Head() == "version":
			c.declareVersion(list)
		case list.Head() == "decl":
			c.declareDecl(list)
		case list.Head() == "inst":
			c.declareInst(list)
		case list.Head() == "rule", list.Head() == "lower":
			// second pass
		default:
			c.error(term, "unknown declaration")
		}
	}
}

func (c *compiler) declareVersion(list *sexp.List) {
	if list.Len() != 2 || list.Get(1).AsSymbol() == nil {
		c.error(list, "expected (version \"x.y\")")
		return
	}
	//
	version, err := semver.NewVersion(list.Get(1).AsSymbol().Unquote())
	if err != nil {
		c.error(list.Get(1), "invalid version: %s", err.Error())
		return
	}
	//
	constraint, err := semver.NewConstraint(LanguageVersion)
	if err != nil {
		panic(err)
	} else if !constraint.Check(version) {
		c.error(list.Get(1), "unsupported rule language version %s (expected %s)", version, LanguageVersion)
		return
	} else if c.db.Version != nil && !c.db.Version.Equal(version) {
		c.error(list.Get(1), "conflicting rule language version %s (already %s)", version, c.db.Version)
		return
	}
	//
	c.db.Version = version
}

// Check whether a name cannot be bound as a variable.  Declarations and
// instructions are only ever resolved in head position, so variables may share
// their names.
func (c *compiler) isReserved(name string) bool {
	op, _ := ir.SplitTypedName(name)
	_, isOp := ir.ParseOpcode(op, true)
	_, isBuiltin := IsBuiltin(name)
	//
	switch name {
	case "let", "subsume", "results", "seq", "pair", "lo", "hi", "_":
		return true
	}
	//
	return isOp || isBuiltin
}

// Check whether a name is already taken by a declaration or instruction.
func (c *compiler) isDeclared(name string) bool {
	_, isDecl := c.db.decls[name]
	_, isInst := c.db.insts[name]
	//
	return isDecl || isInst || c.isReserved(name)
}

func (c *compiler) declareDecl(list *sexp.List) {
	if list.Len() != 4 || list.Get(1).AsSymbol() == nil || list.Get(2).AsList() == nil {
		c.error(list, "expected (decl name (params...) body)")
		return
	}
	//
	name := list.Get(1).AsSymbol().Value
	if c.isDeclared(name) {
		c.error(list.Get(1), "duplicate or reserved name \"%s\"", name)
		return
	}
	//
	decl := &Decl{Name: name}
	//
	for _, p := range list.Get(2).AsList().Elements {
		if p.AsSymbol() == nil || c.isReserved(p.AsSymbol().Value) {
			c.error(p, "invalid parameter")
			return
		}
		//
		decl.Params = append(decl.Params, p.AsSymbol().Value)
	}
	//
	c.db.decls[name] = decl
	c.pending = append(c.pending, pendingDecl{decl, list.Get(3), site{c.srcmap, list}})
}

func (c *compiler) declareInst(list *sexp.List) {
	if list.Len() < 2 || list.Get(1).AsSymbol() == nil {
		c.error(list, "expected (inst name operands... options...)")
		return
	}
	//
	name := list.Get(1).AsSymbol().Value
	if c.isDeclared(name) {
		c.error(list.Get(1), "duplicate or reserved name \"%s\"", name)
		return
	}
	//
	inst := &InstDecl{Name: name}
	defs := 0
	//
	for _, e := range list.Elements[2:] {
		if s := e.AsSymbol(); s != nil {
			kind, ok := parseOperandKind(s.Value)
			if !ok {
				c.error(e, "unknown operand kind")
				return
			} else if kind == Def {
				defs++
			}
			//
			inst.Operands = append(inst.Operands, kind)
		} else if !c.parseInstOption(inst, e.AsList()) {
			return
		}
	}
	//
	if defs > 1 {
		c.error(list, "instruction defines more than one register")
		return
	}
	//
	c.db.insts[name] = inst
}

func (c *compiler) parseInstOption(inst *InstDecl, option *sexp.List) bool {
	switch {
	case option.Len() == 2 && option.Head() == "trap" && option.Get(1).AsSymbol() != nil:
		code, ok := ir.ParseTrapCode(option.Get(1).AsSymbol().Value)
		if !ok {
			c.error(option.Get(1), "unknown trap code")
			return false
		}
		//
		inst.Trap = &code
	case option.Len() == 1 && option.Head() == "effect":
		inst.Effect = true
	case option.Len() == 1 && option.Head() == "term":
		inst.Term = true
	case option.Len() == 1 && option.Head() == "branch":
		inst.Branch, inst.Term = true, true
	case option.Len() == 1 && option.Head() == "jump":
		inst.Jump, inst.Term = true, true
	case option.Len() == 1 && option.Head() == "move":
		inst.Move = true
	case option.Len() == 1 && option.Head() == "sized":
		inst.Sized = true
	default:
		c.error(option, "unknown instruction option")
		return false
	}
	//
	return true
}

func parseOperandKind(name string) (OperandKind, bool) {
	for i, n := range operandKindNames {
		if n == name {
			return OperandKind(i), true
		}
	}
	//
	return 0, false
}

// Resolve the bodies of all declarations, and then check they are not
// recursive.
func (c *compiler) resolveDecls() {
	for _, p := range c.pending {
		var (
			next  = len(p.decl.Params)
			scope = newScope(&next)
		)
		//
		for i, n := range p.decl.Params {
			scope.vars[n] = i
		}
		//
		c.srcmap = p.site.srcmap
		p.decl.Body = c.resolveVar(p.body, scope, modeDecl, true)
		p.decl.NumSlots = next
	}
	// Check for recursion, and determine what each declaration constructs
	state := make(map[*Decl]int)
	//
	for _, p := range c.pending {
		if c.visitDecl(p.decl, state) {
			c.errorAt(p.site, fmt.Sprintf("declaration %s is recursive", p.decl.Name))
		}
	}
}

// Visit a declaration, returning true if a cycle is detected.
func (c *compiler) visitDecl(d *Decl, state map[*Decl]int) bool {
	switch state[d] {
	case 1:
		return true
	case 2:
		return false
	}
	//
	state[d] = 1
	cyclic := false
	//
	walkExpr(d.Body, func(e Expr) {
		if call, ok := e.(*Call); ok {
			switch call.Kind {
			case CallOp:
				d.usesOps = true
			case CallInst, CallForm:
				d.usesInsts = d.usesInsts || call.Kind == CallInst || call.Head != "results"
			case CallDecl:
				if call.Decl.Body != nil {
					cyclic = c.visitDecl(call.Decl, state) || cyclic
				}
				//
				d.usesOps = d.usesOps || call.Decl.usesOps
				d.usesInsts = d.usesInsts || call.Decl.usesInsts
			}
		}
	})
	//
	state[d] = 2
	//
	return cyclic
}

func walkExpr(e Expr, fn func(Expr)) {
	fn(e)
	//
	switch e := e.(type) {
	case *Call:
		for _, a := range e.Args {
			walkExpr(a, fn)
		}
	case *Let:
		for _, v := range e.Values {
			walkExpr(v, fn)
		}
		//
		walkExpr(e.Body, fn)
	}
}

// ============================================================================
// Rules (second pass)
// ============================================================================

func (c *compiler) define(f *source.File) {
	parsed, ok := c.files[f]
	if !ok {
		return
	}
	//
	c.srcmap = parsed.srcmap
	//
	for _, term := range parsed.terms {
		if list := term.AsList(); list != nil && (list.Head() == "rule" || list.Head() == "lower") {
			c.defineRule(list)
		}
	}
}

//nolint:gocyclo
func (c *compiler) defineRule(list *sexp.List) {
	var (
		rule  = &Rule{Phase: Simplify, Index: len(c.db.Rules)}
		next  = 0
		scope = newScope(&next)
		guard sexp.SExp
		n     = list.Len()
	)
	//
	if list.Head() == "lower" {
		rule.Phase = Lower
	}
	//
	if n < 4 || list.Get(1).AsSymbol() == nil {
		c.error(list, "expected (%s name options... pattern action)", rule.Phase)
		return
	}
	//
	rule.Name = list.Get(1).AsSymbol().Value
	for _, r := range c.db.Rules {
		if r.Name == rule.Name {
			c.error(list.Get(1), "duplicate rule \"%s\"", rule.Name)
			return
		}
	}
	// Options
	for _, o := range list.Elements[2 : n-2] {
		option := o.AsList()
		//
		switch {
		case option == nil:
			c.error(o, "expected rule option")
			return
		case option.Head() == "priority" && option.Len() == 2 && option.Get(1).AsSymbol() != nil:
			p, err := strconv.Atoi(option.Get(1).AsSymbol().Value)
			if err != nil {
				c.error(option.Get(1), "invalid priority")
				return
			}
			//
			rule.Priority = p
		case option.Head() == "requires":
			for _, f := range option.Elements[1:] {
				if f.AsSymbol() == nil {
					c.error(f, "expected feature")
					return
				}
				//
				rule.Requires = append(rule.Requires, f.AsSymbol().Value)
			}
		case option.Head() == "when" && option.Len() == 2:
			guard = option.Get(1)
		default:
			c.error(o, "unknown rule option")
			return
		}
	}
	// Pattern
	pattern, ok := c.parsePattern(list.Get(n-2), scope, rule.Phase, true).(*Node)
	if !ok {
		if len(c.errors) == 0 {
			c.error(list.Get(n-2), "pattern must be rooted at an operation")
		}
		//
		return
	}
	//
	rule.Pattern = pattern
	rule.Vars = make([]string, next)
	//
	for name, slot := range scope.vars {
		rule.Vars[slot] = name
	}
	// Guard
	if guard != nil {
		rule.Guard = c.resolveExpr(guard, scope.child(), modeGuard, false)
	}
	// Action
	action := list.Get(n - 1)
	actionMode := modeSimplify
	//
	if rule.Phase == Lower {
		actionMode = modeLower
	}
	//
	if l := action.AsList(); l != nil && l.Head() == "subsume" {
		if rule.Phase != Simplify || l.Len() != 2 {
			c.error(action, "invalid subsume")
			return
		}
		//
		rule.Subsume = true
		action = l.Get(1)
	}
	//
	rule.Action = c.resolveVar(action, scope.child(), actionMode, true)
	rule.NumSlots = next
	//
	if rule.Action != nil {
		c.checkResults(rule, action)
	}
	//
	c.sites[rule] = site{c.srcmap, list}
	c.db.Rules = append(c.db.Rules, rule)
}

// Check the number and (where statically known) the type of the results
// produced by a rule's action agree with its pattern.
func (c *compiler) checkResults(rule *Rule, node sexp.SExp) {
	var (
		tail     = rule.Action
		expected = rule.Pattern.Op.NumResults(ir.I64)
	)
	//
	for {
		if let, ok := tail.(*Let); ok {
			tail = let.Body
		} else {
			break
		}
	}
	//
	call, isCall := tail.(*Call)
	//
	if isCall && call.Kind == CallForm && call.Head == "results" {
		if len(call.Args) != expected {
			c.error(node, "expected %d result(s), found %d", expected, len(call.Args))
		}
		//
		return
	} else if expected > 1 {
		c.error(node, "expected (results ...) for %d results", expected)
		return
	}
	// Type preservation
	if isCall && call.Kind == CallOp && call.TypeSlot < 0 {
		want, ok1 := rule.Pattern.Class.Exact()
		got, ok2 := call.Class.Exact()
		//
		if ok1 && ok2 && want != got {
			c.error(node, "action produces %s but pattern matches %s", got, want)
		}
	}
}

// ============================================================================
// Patterns
// ============================================================================

type scope struct {
	vars   map[string]int
	kinds  map[int]Kind
	next   *int
	parent *scope
}

func newScope(next *int) *scope {
	return &scope{make(map[string]int), make(map[int]Kind), next, nil}
}

func (s *scope) child() *scope {
	return &scope{make(map[string]int), s.kinds, s.next, s}
}

func (s *scope) lookup(name string) (int, bool) {
	for p := s; p != nil; p = p.parent {
		if slot, ok := p.vars[name]; ok {
			return slot, true
		}
	}
	//
	return 0, false
}

func (s *scope) allocate(name string) int {
	slot := *s.next
	*s.next = slot + 1
	s.vars[name] = slot
	//
	return slot
}

func isNumeric(name string) bool {
	body := strings.TrimPrefix(name, "-")
	return len(body) > 0 && body[0] >= '0' && body[0] <= '9'
}

func (c *compiler) bindVar(node sexp.SExp, name string, kind Kind, sc *scope) Pattern {
	if c.isReserved(name) {
		c.error(node, "reserved name \"%s\"", name)
		return &Wildcard{}
	} else if slot, ok := sc.lookup(name); ok {
		if sc.kinds[slot] != kind {
			c.error(node, "variable \"%s\" used inconsistently", name)
		}
		//
		return &Var{name, slot}
	}
	//
	slot := sc.allocate(name)
	sc.kinds[slot] = kind
	//
	return &Var{name, slot}
}

// Check whether an operation may appear within a pattern of a given phase.
func matchable(op ir.Opcode, phase Phase, root bool) bool {
	switch {
	case op == ir.OpOpaque || (op == ir.OpProj && (root || phase == Lower)):
		return false
	case op.IsPure() || op.IsDivision():
		return true
	case phase == Lower && root:
		return true
	case phase == Lower:
		return op.Is(ir.FlagMemory) && !op.Is(ir.FlagEffect)
	}
	//
	return false
}

func (c *compiler) parsePattern(term sexp.SExp, sc *scope, phase Phase, root bool) Pattern {
	if s := term.AsSymbol(); s != nil {
		switch {
		case s.Value == "_":
			return &Wildcard{}
		case isNumeric(s.Value):
			v, err := ir.ParseInt(s.Value)
			if err != nil {
				c.error(term, "%s", err.Error())
			}
			//
			return &Literal{Value: v}
		default:
			return c.bindVar(term, s.Value, KindClass, sc)
		}
	}
	//
	list := term.AsList()
	if list.Len() == 0 || list.Get(0).AsSymbol() == nil {
		c.error(term, "expected (op operands...)")
		return &Wildcard{}
	}
	//
	name, suffix := ir.SplitTypedName(list.Head())
	op, ok := ir.ParseOpcode(name, true)
	//
	if !ok {
		c.error(list.Get(0), "unknown operation \"%s\"", name)
		return &Wildcard{}
	} else if !matchable(op, phase, root) {
		c.error(list.Get(0), "operation \"%s\" cannot be matched by %s rules", name, phase)
		return &Wildcard{}
	} else if len(op.Layout()) != list.Len()-1 {
		c.error(list, "operation \"%s\" expects %d operand(s)", name, len(op.Layout()))
		return &Wildcard{}
	}
	//
	node := &Node{Op: op, Class: ir.AnyType, TypeSlot: -1}
	//
	if strings.HasPrefix(suffix, "@") {
		node.TypeVar = suffix[1:]
		node.TypeSlot = c.bindVar(list.Get(0), node.TypeVar, KindType, sc).(*Var).Slot
	} else if suffix != "" {
		if node.Class, ok = ir.ParseTypeClass(suffix); !ok {
			c.error(list.Get(0), "unknown type \"%s\"", suffix)
		}
	}
	//
	for i, kind := range op.Layout() {
		node.Args = append(node.Args, c.parseOperandPattern(list.Get(i+1), kind, sc, phase))
	}
	//
	return node
}

func (c *compiler) parseOperandPattern(term sexp.SExp, kind ir.Operand, sc *scope, phase Phase) Pattern {
	if kind == ir.OperandValue {
		return c.parsePattern(term, sc, phase, false)
	}
	//
	s := term.AsSymbol()
	//
	switch {
	case s == nil:
		c.error(term, "expected variable or literal")
		return &Wildcard{}
	case s.Value == "_":
		return &Wildcard{}
	case kind == ir.OperandValues:
		return c.bindVar(term, s.Value, KindList, sc)
	case kind == ir.OperandBlock:
		return c.bindVar(term, s.Value, KindBlock, sc)
	case kind == ir.OperandBlocks:
		return c.bindVar(term, s.Value, KindBlocks, sc)
	case kind == ir.OperandFunc:
		return c.bindVar(term, s.Value, KindSym, sc)
	case isNumeric(s.Value):
		v, err := ir.ParseInt(s.Value)
		if err != nil {
			c.error(term, "%s", err.Error())
		}
		//
		return &Literal{Value: v}
	}
	// Symbolic immediate?
	if kind == ir.OperandIntCC || kind == ir.OperandFloatCC || kind == ir.OperandTrapCode || kind == ir.OperandAtomicOp {
		if v, err := ir.ParseImmediate(kind, s.Value); err == nil {
			return &Literal{Value: v, Symbol: s.Value}
		}
	}
	//
	return c.bindVar(term, s.Value, KindInt, sc)
}

// ============================================================================
// Expressions
// ============================================================================

//nolint:gocyclo
func (c *compiler) resolveExpr(term sexp.SExp, sc *scope, m mode, tail bool) Expr {
	if s := term.AsSymbol(); s != nil {
		return c.resolveSymbol(s, sc)
	}
	//
	list := term.AsList()
	if list.Len() == 0 || list.Get(0).AsSymbol() == nil {
		c.error(term, "expected expression")
		return &IntLit{}
	}
	//
	head := list.Head()
	args := list.Elements[1:]
	//
	switch head {
	case "let":
		return c.resolveLet(list, sc, m, tail)
	case "subsume":
		c.error(term, "subsume must enclose an entire action")
		return &IntLit{}
	case "results":
		if !tail || m == modeGuard {
			c.error(term, "results must be the final result of an action")
			return &IntLit{}
		}
		//
		return c.resolveForm(list, sc, m, len(args))
	case "seq":
		if len(args) == 0 {
			c.error(term, "empty seq")
		}
		//
		return c.resolveForm(list, sc, m, len(args))
	case "pair":
		return c.resolveForm(list, sc, m, 2)
	case "lo", "hi":
		return c.resolveForm(list, sc, m, 1)
	}
	//
	if arity, ok := IsBuiltin(head); ok {
		if len(args) != arity {
			c.error(term, "%s expects %d argument(s)", head, arity)
		}
		//
		call := &Call{Head: head, Kind: CallBuiltin, Class: ir.AnyType, TypeSlot: -1}
		for _, a := range args {
			if head == "has_feature" {
				call.Args = append(call.Args, c.resolveExpr(a, sc.child(), m, false))
			} else {
				call.Args = append(call.Args, c.resolveVar(a, sc.child(), m, false))
			}
		}
		//
		return call
	} else if m == modeGuard {
		c.error(list.Get(0), "\"%s\" cannot be used in a guard", head)
		return &IntLit{}
	} else if decl, ok := c.db.decls[head]; ok {
		return c.resolveDeclCall(list, decl, sc, m)
	} else if inst, ok := c.db.insts[head]; ok {
		return c.resolveInstCall(list, inst, sc, m)
	}
	//
	return c.resolveOpCall(list, sc, m)
}

// Symbols which are not bound variables resolve to symbolic literals, since
// (in immediate positions) they may denote condition codes and similar.
func (c *compiler) resolveSymbol(s *sexp.Symbol, sc *scope) Expr {
	switch {
	case isNumeric(s.Value):
		return c.resolveInt(s)
	case strings.HasPrefix(s.Value, "\""):
		return &SymLit{s.Unquote()}
	}
	//
	if slot, ok := sc.lookup(s.Value); ok {
		return &VarRef{s.Value, slot}
	}
	//
	return &SymLit{s.Value}
}

func (c *compiler) resolveInt(s *sexp.Symbol) Expr {
	var (
		v    uint256.Int
		body = strings.TrimPrefix(s.Value, "-")
	)
	//
	if err := v.SetFromDecimal(body); err != nil {
		if err = v.SetFromHex(body); err != nil {
			c.error(s, "invalid integer")
		}
	}
	//
	if body != s.Value {
		v.Neg(&v)
	}
	//
	return &IntLit{v}
}

// Resolve a symbol in a position where a variable is required.
func (c *compiler) resolveVar(term sexp.SExp, sc *scope, m mode, tail bool) Expr {
	e := c.resolveExpr(term, sc, m, tail)
	//
	if sym, ok := e.(*SymLit); ok {
		c.error(term, "unbound variable \"%s\"", sym.Name)
	}
	//
	return e
}

func (c *compiler) resolveLet(list *sexp.List, sc *scope, m mode, tail bool) Expr {
	if list.Len() != 3 || list.Get(1).AsList() == nil {
		c.error(list, "expected (let ((name expr)...) body)")
		return &IntLit{}
	}
	//
	var (
		let   = &Let{}
		inner = sc.child()
	)
	//
	for _, b := range list.Get(1).AsList().Elements {
		binding := b.AsList()
		//
		if binding == nil || binding.Len() != 2 || binding.Get(0).AsSymbol() == nil ||
			c.isReserved(binding.Get(0).AsSymbol().Value) {
			c.error(b, "expected (name expr)")
			return &IntLit{}
		}
		//
		name := binding.Get(0).AsSymbol().Value
		value := c.resolveVar(binding.Get(1), inner, m, false)
		// Bindings are sequential
		inner = inner.child()
		let.Names = append(let.Names, name)
		let.Slots = append(let.Slots, inner.allocate(name))
		let.Values = append(let.Values, value)
	}
	//
	let.Body = c.resolveVar(list.Get(2), inner, m, tail)
	//
	return let
}

func (c *compiler) resolveForm(list *sexp.List, sc *scope, m mode, arity int) Expr {
	head := list.Head()
	//
	if head != "results" && m != modeLower && m != modeDecl {
		c.error(list.Get(0), "\"%s\" can only be used when lowering", head)
	} else if list.Len()-1 != arity {
		c.error(list, "%s expects %d argument(s)", head, arity)
	}
	//
	call := &Call{Head: head, Kind: CallForm, Class: ir.AnyType, TypeSlot: -1}
	//
	for i, a := range list.Elements[1:] {
		// The final element of a sequence is in tail position
		tail := head == "seq" && i == list.Len()-2
		call.Args = append(call.Args, c.resolveVar(a, sc.child(), m, tail))
	}
	//
	return call
}

func (c *compiler) resolveDeclCall(list *sexp.List, decl *Decl, sc *scope, m mode) Expr {
	if list.Len()-1 != len(decl.Params) {
		c.error(list, "%s expects %d argument(s)", decl.Name, len(decl.Params))
	}
	//
	call := &Call{Head: decl.Name, Kind: CallDecl, Decl: decl, Class: ir.AnyType, TypeSlot: -1}
	//
	for _, a := range list.Elements[1:] {
		call.Args = append(call.Args, c.resolveVar(a, sc.child(), m, false))
	}
	// Check declaration is compatible with its use (where already resolved)
	if decl.Body != nil && m != modeDecl {
		state := make(map[*Decl]int)
		if !c.visitDecl(decl, state) && ((m == modeLower && decl.usesOps) || (m == modeSimplify && decl.usesInsts)) {
			c.error(list.Get(0), "declaration %s cannot be used in %s rules", decl.Name, phaseOf(m))
		}
	}
	//
	return call
}

func phaseOf(m mode) Phase {
	if m == modeLower {
		return Lower
	}
	//
	return Simplify
}

func (c *compiler) resolveInstCall(list *sexp.List, inst *InstDecl, sc *scope, m mode) Expr {
	if m != modeLower && m != modeDecl {
		c.error(list.Get(0), "instruction \"%s\" can only be used when lowering", inst.Name)
		return &IntLit{}
	} else if list.Len()-1 != inst.NumArgs() {
		c.error(list, "%s expects %d argument(s)", inst.Name, inst.NumArgs())
		return &IntLit{}
	}
	//
	call := &Call{Head: inst.Name, Kind: CallInst, Inst: inst, Class: ir.AnyType, TypeSlot: -1}
	args := list.Elements[1:]
	//
	for _, kind := range inst.Operands {
		switch kind {
		case Def:
			continue
		case CondCode, TrapKind, Sym, Imm:
			call.Args = append(call.Args, c.resolveImmArg(args[0], kind, sc, m))
		case Mem:
			call.Args = append(call.Args, c.resolveVar(args[0], sc.child(), m, false))
			args = args[1:]
			call.Args = append(call.Args, c.resolveImmArg(args[0], Imm, sc, m))
		default:
			call.Args = append(call.Args, c.resolveVar(args[0], sc.child(), m, false))
		}
		//
		args = args[1:]
	}
	//
	return call
}

func (c *compiler) resolveImmArg(term sexp.SExp, kind OperandKind, sc *scope, m mode) Expr {
	e := c.resolveExpr(term, sc.child(), m, false)
	//
	if sym, ok := e.(*SymLit); ok {
		var valid bool
		//
		switch kind {
		case CondCode:
			_, ok1 := ir.ParseIntCC(sym.Name)
			_, ok2 := ir.ParseFloatCC(sym.Name)
			valid = ok1 || ok2
		case TrapKind:
			_, valid = ir.ParseTrapCode(sym.Name)
		case Sym:
			valid = true
		}
		//
		if !valid {
			c.error(term, "unbound variable \"%s\"", sym.Name)
		}
	}
	//
	return e
}

func (c *compiler) resolveOpCall(list *sexp.List, sc *scope, m mode) Expr {
	name, suffix := ir.SplitTypedName(list.Head())
	op, ok := ir.ParseOpcode(name, false)
	//
	if !ok {
		c.error(list.Get(0), "unknown operation \"%s\"", list.Head())
		return &IntLit{}
	} else if m != modeSimplify && m != modeDecl {
		c.error(list.Get(0), "operation \"%s\" cannot be constructed when lowering", name)
		return &IntLit{}
	} else if !op.IsPure() {
		c.error(list.Get(0), "operation \"%s\" cannot be constructed", name)
		return &IntLit{}
	} else if len(op.Layout()) != list.Len()-1 {
		c.error(list, "operation \"%s\" expects %d operand(s)", name, len(op.Layout()))
		return &IntLit{}
	}
	//
	call := &Call{Head: name, Kind: CallOp, Op: op, Class: ir.AnyType, TypeSlot: -1}
	//
	if strings.HasPrefix(suffix, "@") {
		call.TypeVar = suffix[1:]
		//
		if call.TypeSlot, ok = sc.lookup(call.TypeVar); !ok {
			c.error(list.Get(0), "unbound type variable \"%s\"", call.TypeVar)
		} else if kind, known := sc.kinds[call.TypeSlot]; known && kind != KindType {
			c.error(list.Get(0), "variable \"%s\" is not a type", call.TypeVar)
		}
	} else if suffix != "" {
		if call.Class, ok = ir.ParseTypeClass(suffix); !ok {
			c.error(list.Get(0), "unknown type \"%s\"", suffix)
		} else if _, exact := call.Class.Exact(); !exact {
			c.error(list.Get(0), "constructed operations require an exact type")
		}
	}
	//
	for i, kind := range op.Layout() {
		arg := list.Get(i + 1)
		//
		if kind == ir.OperandValue {
			call.Args = append(call.Args, c.resolveVar(arg, sc.child(), m, false))
			continue
		}
		//
		e := c.resolveExpr(arg, sc.child(), m, false)
		//
		if sym, ok := e.(*SymLit); ok {
			if v, err := ir.ParseImmediate(kind, sym.Name); err == nil {
				e = &IntLit{*uint256.NewInt(v)}
			} else {
				c.error(arg, "unbound variable \"%s\"", sym.Name)
			}
		}
		//
		call.Args = append(call.Args, e)
	}
	//
	return call
}
