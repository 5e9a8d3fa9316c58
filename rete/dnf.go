// Copyright 2026 The Rule Engine Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rete

import "github.com/KSD-CO/rule-engine-postgres-sub001/grl"

// flattenDNF distributes AND over OR, turning a `when` clause's arbitrary
// nesting of Logical(And)/Logical(Or) nodes — the GRL grammar folds mixed
// `and`/`or` chains left-associatively with no precedence distinction
// (§4.1 grammar) — into disjunctive normal form: a list of conjunctions,
// each a flat list of atomic expressions (comparisons, negations, bare
// paths, function calls). Every non-Logical expression is its own single-
// atom conjunction.
func flattenDNF(e grl.Expr) [][]grl.Expr {
	logical, ok := e.(*grl.Logical)
	if !ok {
		return [][]grl.Expr{{e}}
	}
	if logical.Op == grl.OpOr {
		var out [][]grl.Expr
		for _, operand := range logical.Operands {
			out = append(out, flattenDNF(operand)...)
		}
		return out
	}

	// OpAnd: cartesian product of each operand's disjuncts.
	perOperand := make([][][]grl.Expr, len(logical.Operands))
	for i, operand := range logical.Operands {
		perOperand[i] = flattenDNF(operand)
	}
	return cartesianConcat(perOperand)
}

func cartesianConcat(lists [][][]grl.Expr) [][]grl.Expr {
	result := [][]grl.Expr{{}}
	for _, choices := range lists {
		var next [][]grl.Expr
		for _, prefix := range result {
			for _, choice := range choices {
				combined := make([]grl.Expr, 0, len(prefix)+len(choice))
				combined = append(combined, prefix...)
				combined = append(combined, choice...)
				next = append(next, combined)
			}
		}
		result = next
	}
	return result
}
