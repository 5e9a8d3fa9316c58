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

package grl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KSD-CO/rule-engine-postgres-sub001/value"
)

// Print renders a Ruleset back to canonical GRL text. It is the
// counterpart to Parse in the §8 round-trip property:
// Parse(Print(ast)) == ast (up to Span, which source position does not
// survive round-tripping by design).
func Print(rs *Ruleset) string {
	var b strings.Builder
	for i, rule := range rs.Rules {
		if i > 0 {
			b.WriteString("\n")
		}
		printRule(&b, rule)
	}
	return b.String()
}

func printRule(b *strings.Builder, r *Rule) {
	fmt.Fprintf(b, "rule %s", strconv.Quote(r.Name))
	if r.Salience != 0 {
		fmt.Fprintf(b, " salience %d", r.Salience)
	}
	b.WriteString(" {\n    when ")
	printExpr(b, r.When)
	b.WriteString("\n    then")
	for _, a := range r.Then {
		b.WriteString(" ")
		b.WriteString(a.Path.String())
		b.WriteString(" = ")
		printExpr(b, a.Value)
		b.WriteString(";")
	}
	b.WriteString("\n}\n")
}

// DescribeExpr renders a single expression back to GRL text, reusing the
// canonical printer. The RETE network uses it to dedupe alpha nodes across
// rules that share an identical atomic condition; the backward chaining
// solver uses it to label unresolved goals in a proof trace.
func DescribeExpr(e Expr) string {
	var b strings.Builder
	printExpr(&b, e)
	return b.String()
}

func printExpr(b *strings.Builder, e Expr) {
	switch n := e.(type) {
	case *Literal:
		printValueLiteral(b, n.Value)
	case *PathRef:
		b.WriteString(n.Path.String())
	case *FnCall:
		b.WriteString(n.Name)
		b.WriteString("(")
		for i, a := range n.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			printExpr(b, a)
		}
		b.WriteString(")")
	case *Binary:
		b.WriteString("(")
		printExpr(b, n.Left)
		fmt.Fprintf(b, " %s ", n.Op.String())
		printExpr(b, n.Right)
		b.WriteString(")")
	case *Unary:
		b.WriteString("not ")
		printExpr(b, n.Operand)
	case *Logical:
		b.WriteString("(")
		for i, op := range n.Operands {
			if i > 0 {
				fmt.Fprintf(b, " %s ", n.Op.String())
			}
			printExpr(b, op)
		}
		b.WriteString(")")
	}
}

func printValueLiteral(b *strings.Builder, v value.Value) {
	switch v.Kind() {
	case value.Null:
		b.WriteString("null")
	case value.Bool:
		b.WriteString(strconv.FormatBool(v.Bool()))
	case value.Int:
		b.WriteString(strconv.FormatInt(v.Int(), 10))
	case value.Float:
		s := strconv.FormatFloat(v.Float(), 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		b.WriteString(s)
	case value.String:
		b.WriteString(strconv.Quote(v.String()))
	default:
		b.WriteString("null")
	}
}
