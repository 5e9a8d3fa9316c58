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

package solver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KSD-CO/rule-engine-postgres-sub001/fact"
	"github.com/KSD-CO/rule-engine-postgres-sub001/grl"
)

const loanRules = `
rule "CreditCheck" salience 300 { when Applicant.data.creditScore > 650 then Applicant.checks.hasGoodCredit = true; }
rule "Eligibility" salience 200 { when Applicant.checks.hasGoodCredit == true and Applicant.data.income > 50000 then Applicant.eligibility.qualifiesForLoan = true; }
rule "Decision" salience 100 { when Applicant.eligibility.qualifiesForLoan == true then Applicant.decision = "approved"; }
`

func TestQueryProvesThreeStepChain(t *testing.T) {
	rs, err := grl.Parse(loanRules, nil)
	require.NoError(t, err)
	store, err := fact.FromJSON([]byte(`{"Applicant":{"data":{"creditScore":720,"income":80000},"checks":{},"eligibility":{},"decision":"pending"}}`))
	require.NoError(t, err)
	goal, err := grl.ParseExpr(`Applicant.decision == "approved"`, nil)
	require.NoError(t, err)

	result, err := Query(rs, store, goal, nil)
	require.NoError(t, err)
	require.True(t, result.Provable)
	require.Len(t, result.Flatten(), 3)
	require.Equal(t, "Decision", result.Proof[0].Rule)
	require.Equal(t, "Eligibility", result.Proof[0].Children[0].Rule)
	require.Equal(t, "CreditCheck", result.Proof[0].Children[0].Children[0].Rule)
}

func TestCanProveFalseWhenFactsDontQualify(t *testing.T) {
	rs, err := grl.Parse(loanRules, nil)
	require.NoError(t, err)
	store, err := fact.FromJSON([]byte(`{"Applicant":{"data":{"creditScore":500,"income":10000},"checks":{},"eligibility":{},"decision":"pending"}}`))
	require.NoError(t, err)
	goal, err := grl.ParseExpr(`Applicant.decision == "approved"`, nil)
	require.NoError(t, err)

	ok, err := CanProve(rs, store, goal, nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestQueryAlreadyTrueNeedsNoProduction(t *testing.T) {
	rs, err := grl.Parse(`rule "Noop" { when false then X.never = true; }`, nil)
	require.NoError(t, err)
	store, err := fact.FromJSON([]byte(`{"User":{"age":25}}`))
	require.NoError(t, err)
	goal, err := grl.ParseExpr(`User.age == 25`, nil)
	require.NoError(t, err)

	result, err := Query(rs, store, goal, nil)
	require.NoError(t, err)
	require.True(t, result.Provable)
	require.Empty(t, result.Proof)
}

func TestQueryCutsCyclesAsUnresolvedNotFailure(t *testing.T) {
	// A depends on B, B depends on A: neither side of the cycle can be
	// proven outright, but it must not hang.
	rs, err := grl.Parse(`
rule "AFromB" { when B.v == 1 then A.v = 1; }
rule "BFromA" { when A.v == 1 then B.v = 1; }
`, nil)
	require.NoError(t, err)
	store, err := fact.FromJSON([]byte(`{"A":{"v":0},"B":{"v":0}}`))
	require.NoError(t, err)
	goal, err := grl.ParseExpr(`A.v == 1`, nil)
	require.NoError(t, err)

	result, err := Query(rs, store, goal, nil)
	require.NoError(t, err)
	require.False(t, result.Provable)
	require.NotEmpty(t, result.Unresolved)
}
