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

package eval

import (
	"github.com/KSD-CO/rule-engine-postgres-sub001/fact"
	"github.com/KSD-CO/rule-engine-postgres-sub001/grl"
)

// ReferencedPaths walks e and returns every fact path it reads, in
// first-seen order with duplicates removed. Both the forward engine's
// rule-freshness gate and the RETE alpha network use this to know which
// fact-tree mutations can possibly re-satisfy a condition (§4.4 "re-
// evaluated on any referenced-path change").
func ReferencedPaths(e grl.Expr) []fact.Path {
	var out []fact.Path
	seen := map[string]bool{}
	var walk func(grl.Expr)
	walk = func(n grl.Expr) {
		switch t := n.(type) {
		case *grl.PathRef:
			key := t.Path.String()
			if !seen[key] {
				seen[key] = true
				out = append(out, t.Path)
			}
		case *grl.FnCall:
			for _, a := range t.Args {
				walk(a)
			}
		case *grl.Binary:
			walk(t.Left)
			walk(t.Right)
		case *grl.Unary:
			walk(t.Operand)
		case *grl.Logical:
			for _, o := range t.Operands {
				walk(o)
			}
		}
	}
	walk(e)
	return out
}
