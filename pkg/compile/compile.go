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
// Package compile ties together the simplification and lowering stages for a
// given target.
package compile

import (
	"context"
	"fmt"
	"runtime"

	"github.com/consensys/go-saturn/pkg/egraph"
	"github.com/consensys/go-saturn/pkg/ir"
	"github.com/consensys/go-saturn/pkg/lower"
	"github.com/consensys/go-saturn/pkg/rule"
	"github.com/consensys/go-saturn/pkg/target"
	"github.com/consensys/go-saturn/pkg/util"
	"github.com/consensys/go-saturn/pkg/util/source"
	"github.com/consensys/go-saturn/pkg/vcode"
	"github.com/consensys/go-saturn/rules"
	"golang.org/x/sync/errgroup"
)

// Config provides configuration options for a compilation session.
type Config struct {
	// Optimize determines whether or not functions are simplified by equality
	// saturation prior to lowering.
	Optimize bool
	// Egraph bounds the work performed during equality saturation.
	Egraph egraph.Config
	// StrictRules rejects rule sets whose behaviour depends upon declaration
	// order.
	StrictRules bool
}

// OPTIMISATION_LEVELS provides a set of precanned configurations.  Here 0
// implies no optimisation and, otherwise, increasing levels permit
// increasingly large e-graphs.
var OPTIMISATION_LEVELS = []Config{
	// Level 0 == lowering only
	{false, egraph.Config{}, false},
	// Level 1 == small budget
	{true, egraph.Config{MaxIterations: 4, MaxNodes: 5000, MaxMatchesPerRule: 250}, false},
	// Level 2 == default budget
	{true, egraph.DefaultConfig(), false},
}

// DEFAULT_OPTIMISATION_INDEX gives the index of the default optimisation level
// in OPTIMISATION_LEVELS.
var DEFAULT_OPTIMISATION_INDEX = uint(2)

// Session compiles functions for a single target.  The rule database is
// compiled once when the session is created, after which a session can be
// used from multiple goroutines.
type Session struct {
	config   Config
	target   target.Descriptor
	backend  target.Backend
	db       *rule.Database
	simplify *rule.Table
	selector *lower.Selector
}

// Result of compiling a single function.
type Result struct {
	// Function after simplification (or the input function when optimisation
	// is disabled).
	Optimized *ir.Function
	// Machine code for the function
	Code *vcode.Function
	// Saturation statistics (if optimised)
	Stats egraph.Stats
}

// SyntaxErrors reports the syntax errors found in rules or functions.
type SyntaxErrors []source.SyntaxError

func (e SyntaxErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	//
	return fmt.Sprintf("%d syntax errors", len(e))
}

// NewSession creates a session for a given target.  The simplification rules
// and the rules of the target's backend are always included, whilst extra
// rule files can be given to extend either phase.
func NewSession(desc target.Descriptor, cfg Config, extra ...*source.File) (*Session, error) {
	backend, err := target.Lookup(desc.Arch())
	if err != nil {
		return nil, err
	}
	//
	files := append([]*source.File{rules.Simplify(), backend.Rules()}, extra...)
	stats := util.NewPerfStats()
	db, errs := rule.Compile(rule.CompileConfig{Strict: cfg.StrictRules}, files...)
	//
	if len(errs) > 0 {
		return nil, SyntaxErrors(errs)
	}
	//
	stats.Log("Compiling rules")
	//
	selector, err := lower.NewSelector(db, db.Table(rule.Lower, desc), desc.String())
	if err != nil {
		return nil, err
	}
	//
	return &Session{cfg, desc, backend, db, db.Table(rule.Simplify, desc), selector}, nil
}

// Target returns the target of this session.
func (s *Session) Target() target.Descriptor {
	return s.target
}

// Backend returns the backend of this session's target.
func (s *Session) Backend() target.Backend {
	return s.backend
}

// Database returns the compiled rule database of this session.
func (s *Session) Database() *rule.Database {
	return s.db
}

// Optimize simplifies a function by equality saturation, using the cost model
// of the session's backend for extraction.
func (s *Session) Optimize(fn *ir.Function) (*ir.Function, egraph.Stats, error) {
	nf, st, err := egraph.Optimize(fn, s.simplify, s.config.Egraph, s.backend.Cost)
	if err != nil {
		return nil, st, err
	}
	// Sanity check
	if err := ir.Verify(nf); err != nil {
		return nil, st, fmt.Errorf("optimising %s produced malformed function: %w", fn.Name, err)
	}
	//
	return nf, st, nil
}

// Lower a function into machine instructions for the session's target.
func (s *Session) Lower(fn *ir.Function) (*vcode.Function, error) {
	return s.selector.Lower(fn)
}

// Emit formats machine code in the assembly syntax of the session's target.
func (s *Session) Emit(code *vcode.Function) string {
	return code.Format(s.backend.Emit)
}

// Compile a single function, optimising it first when enabled.
func (s *Session) Compile(fn *ir.Function) (Result, error) {
	var (
		res = Result{Optimized: fn}
		err error
	)
	//
	if s.config.Optimize {
		if res.Optimized, res.Stats, err = s.Optimize(fn); err != nil {
			return res, err
		}
	}
	//
	res.Code, err = s.Lower(res.Optimized)
	//
	return res, err
}

// CompileAll compiles a set of functions concurrently, returning their results
// in the same order.  The first failure cancels any compilations not yet
// started.
func (s *Session) CompileAll(ctx context.Context, fns []*ir.Function) ([]Result, error) {
	results := make([]Result, len(fns))
	stats := util.NewPerfStats()
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	//
	for i, fn := range fns {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			//
			res, err := s.Compile(fn)
			if err != nil {
				return fmt.Errorf("%s: %w", fn.Name, err)
			}
			//
			results[i] = res
			//
			return nil
		})
	}
	//
	if err := g.Wait(); err != nil {
		return nil, err
	}
	//
	stats.Log(fmt.Sprintf("Compiling %d function(s) for %s", len(fns), s.target))
	//
	return results, nil
}
