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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KSD-CO/rule-engine-postgres-sub001/fact"
	"github.com/KSD-CO/rule-engine-postgres-sub001/grl"
)

func mustExpr(t *testing.T, grlSrc string) grl.Expr {
	t.Helper()
	rs, err := grl.Parse(`rule "R" { when `+grlSrc+` then A.v = 1; }`, nil)
	require.NoError(t, err)
	return rs.Rules[0].When
}

func TestEvalMissingPathIsNullNotUndefined(t *testing.T) {
	s := fact.NewEmpty()
	e := mustExpr(t, "X.y.z == null")
	require.True(t, Bool(e, s, nil))
}

func TestEvalIntegerDivisionByZeroIsUndefinedAndFalse(t *testing.T) {
	s, err := fact.FromJSON([]byte(`{"A":{"v":0}}`))
	require.NoError(t, err)
	e := mustExpr(t, "(10 / A.v) == 10")
	require.False(t, Bool(e, s, nil))
}

func TestEvalFloatDivisionByZeroIsUndefined(t *testing.T) {
	s, err := fact.FromJSON([]byte(`{"A":{"v":0.0}}`))
	require.NoError(t, err)
	e := mustExpr(t, "(10.0 / A.v) == 10.0")
	require.False(t, Bool(e, s, nil))
}

func TestEvalStringConcatenation(t *testing.T) {
	s, err := fact.FromJSON([]byte(`{"User":{"first":"A","last":"B"}}`))
	require.NoError(t, err)
	e := mustExpr(t, `(User.first + User.last) == "AB"`)
	require.True(t, Bool(e, s, nil))
}

func TestEvalIncompatibleKindComparisonIsFalseNotUndefined(t *testing.T) {
	s, err := fact.FromJSON([]byte(`{"A":{"v":"x"}}`))
	require.NoError(t, err)
	e := mustExpr(t, `A.v > 1`)
	require.False(t, Bool(e, s, nil))
}

func TestEvalAndShortCircuits(t *testing.T) {
	s := fact.NewEmpty()
	e := mustExpr(t, "1 == 2 and (1 / 0) == 0")
	require.False(t, Bool(e, s, nil))
}

func TestEvalOrShortCircuits(t *testing.T) {
	s := fact.NewEmpty()
	e := mustExpr(t, "1 == 1 or (1 / 0) == 0")
	require.True(t, Bool(e, s, nil))
}

func TestEvalIntFloatPromotion(t *testing.T) {
	s, err := fact.FromJSON([]byte(`{"A":{"v":2}}`))
	require.NoError(t, err)
	e := mustExpr(t, "(A.v + 0.5) == 2.5")
	require.True(t, Bool(e, s, nil))
}
