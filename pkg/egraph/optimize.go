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
package egraph

import (
	"errors"

	"github.com/consensys/go-saturn/pkg/ir"
	"github.com/consensys/go-saturn/pkg/rule"
	log "github.com/sirupsen/logrus"
)

// Optimize simplifies a function using the rules of a given (simplification)
// table.  Exhausting the budget is not an error: the partially saturated
// e-graph is extracted instead.  Likewise, should the extracted terms not be
// placeable, the original function is returned unchanged.  An error is only
// returned when a rule is itself malformed (e.g. produces a result of the
// wrong type).
func Optimize(fn *ir.Function, table *rule.Table, cfg Config, cost CostFunc) (*ir.Function, Stats, error) {
	p := Build(fn)
	//
	st, err := p.Graph.Saturate(table, cfg)
	//
	if errors.Is(err, ErrBudget) {
		log.Debugf("%s: extracting partially saturated e-graph (%s)", fn.Name, st)
	} else if err != nil {
		return nil, st, err
	}
	//
	nf, err := p.Elaborate(p.Graph.Extract(cost))
	//
	if err != nil {
		log.Debugf("%s: %s, falling back to original", fn.Name, err)
		return fn, st, nil
	}
	//
	log.Debugf("%s: %s", fn.Name, st)
	//
	return nf, st, nil
}
