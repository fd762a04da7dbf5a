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
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/consensys/go-saturn/pkg/ir"
	"github.com/consensys/go-saturn/pkg/util/source"
	log "github.com/sirupsen/logrus"
)

// LanguageVersion is the range of rule language versions supported.
const LanguageVersion = "^1.0"

// CompileConfig controls how strictly a rule database is checked.
type CompileConfig struct {
	// Strict rejects structurally identical, unguarded rules of equal priority
	// in the same phase, since their relative order is then only determined
	// by their declaration order.
	Strict bool
}

// Database is a compiled set of rules, declarations and machine instructions.
// A database is immutable once compiled, and can be shared between concurrent
// compilations.
type Database struct {
	// Declared rule language version (if any)
	Version *semver.Version
	// Rules in declaration order
	Rules []*Rule
	decls map[string]*Decl
	insts map[string]*InstDecl
}

// Compile parses and checks a given set of rule files.  Malformed rules are
// reported as syntax errors, in which case no database is returned.
func Compile(cfg CompileConfig, files ...*source.File) (*Database, []source.SyntaxError) {
	c := newCompiler()
	//
	for _, f := range files {
		c.declare(f)
	}
	//
	c.resolveDecls()
	//
	for _, f := range files {
		c.define(f)
	}
	//
	if cfg.Strict {
		c.checkAmbiguity()
	}
	//
	if len(c.errors) > 0 {
		return nil, source.SortErrors(c.errors)
	}
	//
	log.Debugf("compiled %d rule(s), %d decl(s) and %d instruction(s)", len(c.db.Rules), len(c.db.decls),
		len(c.db.insts))
	//
	return c.db, nil
}

// Inst looks up a machine instruction by name.
func (db *Database) Inst(name string) (*InstDecl, bool) {
	d, ok := db.insts[name]
	return d, ok
}

// Insts returns all machine instructions declared in this database, sorted by
// name.
func (db *Database) Insts() []*InstDecl {
	var insts []*InstDecl
	//
	for _, d := range db.insts {
		insts = append(insts, d)
	}
	//
	slices.SortFunc(insts, func(a, b *InstDecl) int { return strings.Compare(a.Name, b.Name) })
	//
	return insts
}

// Decl looks up a helper declaration by name.
func (db *Database) Decl(name string) (*Decl, bool) {
	d, ok := db.decls[name]
	return d, ok
}

// Features determines which target features are available.
type Features interface {
	Has(name string) bool
}

// Table is a dispatch table for one phase under one set of target features.
// Rules are indexed by the opcode at the root of their pattern, and ordered
// by descending priority, then (for lowering) by descending specificity, and
// finally by declaration order.
type Table struct {
	phase    Phase
	features Features
	byOp     [][]*Rule
	size     int
}

// Table compiles a dispatch table for a given phase and set of features.
// Rules whose requirements are not met are excluded.
func (db *Database) Table(phase Phase, features Features) *Table {
	t := &Table{phase, features, make([][]*Rule, ir.NumOpcodes()), 0}
	//
	for _, r := range db.Rules {
		if r.Phase == phase && satisfies(r.Requires, features) {
			t.byOp[r.Pattern.Op] = append(t.byOp[r.Pattern.Op], r)
			t.size++
		}
	}
	//
	for _, rules := range t.byOp {
		slices.SortStableFunc(rules, func(a, b *Rule) int {
			switch {
			case a.Priority != b.Priority:
				return b.Priority - a.Priority
			case phase == Lower && a.Specificity() != b.Specificity():
				return b.Specificity() - a.Specificity()
			default:
				return a.Index - b.Index
			}
		})
	}
	//
	return t
}

func satisfies(requires []string, features Features) bool {
	for _, f := range requires {
		if name, neg := strings.CutPrefix(f, "!"); neg == features.Has(name) {
			return false
		}
	}
	//
	return true
}

// Phase returns the phase of this table.
func (t *Table) Phase() Phase {
	return t.phase
}

// Size returns the number of rules in this table.
func (t *Table) Size() int {
	return t.size
}

// HasFeature checks whether a given target feature is available.
func (t *Table) HasFeature(name string) bool {
	return t.features.Has(name)
}

// Rules returns the rules whose pattern is rooted at a given opcode, in the
// order in which they should be tried.
func (t *Table) Rules(op ir.Opcode) []*Rule {
	return t.byOp[op]
}

// ============================================================================
// Ambiguity
// ============================================================================

func (c *compiler) checkAmbiguity() {
	seen := make(map[string]*Rule)
	//
	for _, r := range c.db.Rules {
		if r.Guard != nil {
			continue
		}
		//
		reqs := slices.Clone(r.Requires)
		slices.Sort(reqs)
		key := fmt.Sprintf("%s/%d/%v/%s", r.Phase, r.Priority, reqs, patternKey(r.Pattern))
		//
		if prev, ok := seen[key]; ok {
			c.errorAt(c.sites[r], fmt.Sprintf("rule %s is ambiguous with %s (same pattern and priority)",
				r.Name, prev.Name))
		} else {
			seen[key] = r
		}
	}
}

// Produce a key for a pattern which is independent of variable names.
func patternKey(p Pattern) string {
	switch p := p.(type) {
	case *Var:
		return fmt.Sprintf("$%d", p.Slot)
	case *Node:
		var b strings.Builder
		//
		fmt.Fprintf(&b, "(%s.%s", p.Op, p.Class)
		//
		if p.TypeSlot >= 0 {
			fmt.Fprintf(&b, "@%d", p.TypeSlot)
		}
		//
		for _, a := range p.Args {
			b.WriteString(" ")
			b.WriteString(patternKey(a))
		}
		//
		b.WriteString(")")
		//
		return b.String()
	default:
		return p.String()
	}
}

// Has implementation for the Features interface.
func (t *Table) Has(name string) bool {
	return t.features.Has(name)
}
