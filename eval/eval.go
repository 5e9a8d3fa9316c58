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

// Package eval implements §4.2 expression evaluation: walking a grl.Expr
// against a fact.Store to produce a value.Value, possibly Undefined.
package eval

import (
	"math"

	"github.com/KSD-CO/rule-engine-postgres-sub001/fact"
	"github.com/KSD-CO/rule-engine-postgres-sub001/grl"
	"github.com/KSD-CO/rule-engine-postgres-sub001/registry"
	"github.com/KSD-CO/rule-engine-postgres-sub001/value"
)

// Eval evaluates e against store, resolving FnCall arguments through reg
// (which may be nil if the expression contains no function calls; a
// FnCall with a nil registry always evaluates to Undefined).
func Eval(e grl.Expr, store *fact.Store, reg registry.Registry) value.Value {
	switch n := e.(type) {
	case *grl.Literal:
		return n.Value
	case *grl.PathRef:
		return store.Get(n.Path)
	case *grl.FnCall:
		return evalFnCall(n, store, reg)
	case *grl.Unary:
		return evalUnary(n, store, reg)
	case *grl.Binary:
		return evalBinary(n, store, reg)
	case *grl.Logical:
		return evalLogical(n, store, reg)
	default:
		return value.UndefinedValue()
	}
}

// Bool evaluates e and coerces the result to a plain bool for use as a
// `when` clause or goal condition. Any non-bool result (including
// Undefined, and any value an evaluation error produced) is false: §7
// requires evaluation errors to "silently coerce the containing condition
// to false" rather than abort the session.
func Bool(e grl.Expr, store *fact.Store, reg registry.Registry) bool {
	v := Eval(e, store, reg)
	return v.Kind() == value.Bool && v.Bool()
}

func evalFnCall(n *grl.FnCall, store *fact.Store, reg registry.Registry) value.Value {
	if reg == nil {
		return value.UndefinedValue()
	}
	spec, ok := reg.Lookup(n.Name)
	if !ok {
		return value.UndefinedValue()
	}
	args := make([]value.Value, len(n.Args))
	for i, a := range n.Args {
		args[i] = Eval(a, store, reg)
	}
	result, err := spec.Invoke(args)
	if err != nil {
		return value.UndefinedValue()
	}
	return result
}

func evalUnary(n *grl.Unary, store *fact.Store, reg registry.Registry) value.Value {
	operand := Eval(n.Operand, store, reg)
	switch operand.Kind() {
	case value.Undefined:
		// "not Undefined = false" (§4.2).
		return value.NewBool(false)
	case value.Bool:
		return value.NewBool(!operand.Bool())
	default:
		return value.UndefinedValue()
	}
}

func isNumeric(v value.Value) bool {
	return v.Kind() == value.Int || v.Kind() == value.Float
}

func evalBinary(n *grl.Binary, store *fact.Store, reg registry.Registry) value.Value {
	left := Eval(n.Left, store, reg)
	right := Eval(n.Right, store, reg)
	if n.Op.IsComparison() {
		return evalComparison(n.Op, left, right)
	}
	return evalArithmetic(n.Op, left, right)
}

func evalComparison(op grl.BinaryOp, left, right value.Value) value.Value {
	switch op {
	case grl.OpEq:
		return value.NewBool(equalForCompare(left, right))
	case grl.OpNe:
		return value.NewBool(!equalForCompare(left, right))
	}

	// Ordering operators: only defined for two numbers or two strings
	// (§4.2 "Comparisons on compatible kinds return bool. On incompatible
	// kinds they return false (never Undefined)").
	if left.Kind() == value.Undefined || right.Kind() == value.Undefined {
		return value.NewBool(false)
	}
	if isNumeric(left) && isNumeric(right) {
		lf, _ := left.AsFloat()
		rf, _ := right.AsFloat()
		return value.NewBool(orderingResult(op, compareFloat(lf, rf)))
	}
	if left.Kind() == value.String && right.Kind() == value.String {
		return value.NewBool(orderingResult(op, compareString(left.String(), right.String())))
	}
	return value.NewBool(false)
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func orderingResult(op grl.BinaryOp, cmp int) bool {
	switch op {
	case grl.OpLt:
		return cmp < 0
	case grl.OpLe:
		return cmp <= 0
	case grl.OpGt:
		return cmp > 0
	case grl.OpGe:
		return cmp >= 0
	default:
		return false
	}
}

// equalForCompare implements `==`/`!=` equality, including the I3-style
// int/float cross-kind equality arithmetic uses elsewhere, and the "== null
// / != null always resolve" rule — which holds automatically here since a
// missing path already evaluates to a Null value (I2), not Undefined.
func equalForCompare(left, right value.Value) bool {
	if left.Kind() == value.Undefined || right.Kind() == value.Undefined {
		return false
	}
	if isNumeric(left) && isNumeric(right) {
		lf, _ := left.AsFloat()
		rf, _ := right.AsFloat()
		return lf == rf
	}
	if left.Kind() != right.Kind() {
		return false
	}
	return value.Equal(left, right)
}

func evalArithmetic(op grl.BinaryOp, left, right value.Value) value.Value {
	if left.Kind() == value.Undefined || right.Kind() == value.Undefined {
		return value.UndefinedValue()
	}

	if op == grl.OpAdd && left.Kind() == value.String && right.Kind() == value.String {
		return value.NewString(left.String() + right.String())
	}

	if !isNumeric(left) || !isNumeric(right) {
		// String `+` is concatenation only when both operands are
		// strings; everything else non-numeric is Undefined (§4.2).
		return value.UndefinedValue()
	}

	bothInt := left.Kind() == value.Int && right.Kind() == value.Int
	if bothInt {
		li, ri := left.Int(), right.Int()
		switch op {
		case grl.OpAdd:
			return value.NewInt(li + ri)
		case grl.OpSub:
			return value.NewInt(li - ri)
		case grl.OpMul:
			return value.NewInt(li * ri)
		case grl.OpDiv:
			if ri == 0 {
				// Integer division by zero yields Undefined (§4.2).
				return value.UndefinedValue()
			}
			return value.NewInt(li / ri)
		}
	}

	lf, _ := left.AsFloat()
	rf, _ := right.AsFloat()
	var result float64
	switch op {
	case grl.OpAdd:
		result = lf + rf
	case grl.OpSub:
		result = lf - rf
	case grl.OpMul:
		result = lf * rf
	case grl.OpDiv:
		result = lf / rf
	}
	if math.IsInf(result, 0) || math.IsNaN(result) {
		// "floats yield IEEE ±∞/NaN — treated as Undefined in subsequent
		// comparisons" (§4.2): collapse at the source rather than
		// threading ±Inf/NaN through later arithmetic.
		return value.UndefinedValue()
	}
	return value.NewFloat(result)
}

func evalLogical(n *grl.Logical, store *fact.Store, reg registry.Registry) value.Value {
	truthy := func(e grl.Expr) bool {
		return Bool(e, store, reg)
	}
	if n.Op == grl.OpAnd {
		for _, operand := range n.Operands {
			if !truthy(operand) {
				return value.NewBool(false)
			}
		}
		return value.NewBool(true)
	}
	for _, operand := range n.Operands {
		if truthy(operand) {
			return value.NewBool(true)
		}
	}
	return value.NewBool(false)
}
