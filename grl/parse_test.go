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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KSD-CO/rule-engine-postgres-sub001/rerr"
)

func TestParseAgeGateRule(t *testing.T) {
	src := `rule "Adult" { when User.age > 18 then User.status = "adult"; }`
	rs, err := Parse(src, nil)
	require.NoError(t, err)
	require.Len(t, rs.Rules, 1)

	rule := rs.Rules[0]
	require.Equal(t, "Adult", rule.Name)
	require.Equal(t, 0, rule.Salience)
	require.Len(t, rule.Then, 1)

	bin, ok := rule.When.(*Binary)
	require.True(t, ok)
	require.Equal(t, OpGt, bin.Op)
}

func TestParseSalienceDefaultsToZero(t *testing.T) {
	rs, err := Parse(`rule "R" { when A.v == 1 then A.v = 2; }`, nil)
	require.NoError(t, err)
	require.Equal(t, 0, rs.Rules[0].Salience)
}

func TestParseExplicitSalience(t *testing.T) {
	rs, err := Parse(`rule "Gold" salience 200 { when Order.amount > 0 then Order.tier = "gold"; }`, nil)
	require.NoError(t, err)
	require.Equal(t, 200, rs.Rules[0].Salience)
}

func TestParseDuplicateRuleNameIsError(t *testing.T) {
	src := `
rule "R" { when A.v == 1 then A.v = 2; }
rule "R" { when A.v == 2 then A.v = 1; }
`
	_, err := Parse(src, nil)
	require.Error(t, err)
	rerrVal, ok := err.(*rerr.Error)
	require.True(t, ok)
	require.Equal(t, rerr.ParseKindDuplicateRule, rerrVal.ParseKind)
}

func TestParseUnknownFunctionIsError(t *testing.T) {
	reg := emptyTestRegistry()
	_, err := Parse(`rule "R" { when contains(User.name, "a") == true then A.v = 1; }`, reg)
	require.Error(t, err)
	rerrVal, ok := err.(*rerr.Error)
	require.True(t, ok)
	require.Equal(t, rerr.ParseKindUnknownFunction, rerrVal.ParseKind)
}

func TestParseNeverPanicsOnMalformedInput(t *testing.T) {
	bad := []string{
		"rule",
		`rule "R" {`,
		`rule "R" { when then A.v = 1; }`,
		`rule "R" { when A.v == then A.v = 1; }`,
		`rule "R" { when A.v == 1 then }`,
		`rule "R" salience { when A.v == 1 then A.v = 2; }`,
		"",
		"///just a comment",
	}
	for _, src := range bad {
		_, err := Parse(src, nil)
		require.Error(t, err, "expected a structured error for %q", src)
	}
}

func TestParseLogicalLeftAssociative(t *testing.T) {
	rs, err := Parse(`rule "R" { when A.v == 1 and B.v == 2 or C.v == 3 then A.v = 9; }`, nil)
	require.NoError(t, err)

	outer, ok := rs.Rules[0].When.(*Logical)
	require.True(t, ok)
	require.Equal(t, OpOr, outer.Op)

	inner, ok := outer.Operands[0].(*Logical)
	require.True(t, ok)
	require.Equal(t, OpAnd, inner.Op)
}

func TestPrintParseRoundTrip(t *testing.T) {
	src := `rule "Adult" salience 50 {
    when (User.age > 18)
    then User.status = "adult";
}
`
	rs, err := Parse(src, nil)
	require.NoError(t, err)

	printed := Print(rs)
	rs2, err := Parse(printed, nil)
	require.NoError(t, err)

	require.Equal(t, len(rs.Rules), len(rs2.Rules))
	require.Equal(t, rs.Rules[0].Name, rs2.Rules[0].Name)
	require.Equal(t, rs.Rules[0].Salience, rs2.Rules[0].Salience)
}

func TestParseExprCompilesStandaloneGoal(t *testing.T) {
	expr, err := ParseExpr(`User.CanVote == true`, nil)
	require.NoError(t, err)
	bin, ok := expr.(*Binary)
	require.True(t, ok)
	require.Equal(t, OpEq, bin.Op)
	ref, ok := bin.Left.(*PathRef)
	require.True(t, ok)
	require.Equal(t, "User.CanVote", ref.Raw)
}

func TestParseExprRejectsTrailingInput(t *testing.T) {
	_, err := ParseExpr(`User.age > 18 and`, nil)
	require.Error(t, err)
	rerrVal, ok := err.(*rerr.Error)
	require.True(t, ok)
	require.Equal(t, rerr.CodeParseError, rerrVal.Code)
}

func TestParseExprRejectsRuleStructure(t *testing.T) {
	_, err := ParseExpr(`rule "R" { when A.v == 1 then A.v = 2; }`, nil)
	require.Error(t, err)
}

func TestParsePathBracketForm(t *testing.T) {
	rs, err := Parse(`rule "R" { when Customer.orders[0].total > 0 then Customer.orders[0].flagged = true; }`, nil)
	require.NoError(t, err)
	bin := rs.Rules[0].When.(*Binary)
	ref := bin.Left.(*PathRef)
	require.Equal(t, "Customer.orders[0].total", ref.Raw)
}
