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

package ruleengine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KSD-CO/rule-engine-postgres-sub001/rerr"
)

const loanRules = `
rule "CreditCheck" salience 300 { when Applicant.data.creditScore > 650 then Applicant.checks.hasGoodCredit = true; }
rule "Eligibility" salience 200 { when Applicant.checks.hasGoodCredit == true and Applicant.data.income > 50000 then Applicant.eligibility.qualifiesForLoan = true; }
rule "Decision" salience 100 { when Applicant.eligibility.qualifiesForLoan == true then Applicant.decision = "approved"; }
`

const loanFacts = `{"Applicant":{"data":{"creditScore":720,"income":80000},"checks":{},"eligibility":{},"decision":"pending"}}`

func TestEngineEquivalenceFCAndRete(t *testing.T) {
	e := NewDefault()
	fc, err := e.RunFC(loanFacts, loanRules)
	require.NoError(t, err)
	reteResult, err := e.RunRete(loanFacts, loanRules)
	require.NoError(t, err)

	var fcFacts, reteFacts interface{}
	require.NoError(t, json.Unmarshal([]byte(fc.FactsJSON), &fcFacts))
	require.NoError(t, json.Unmarshal([]byte(reteResult.FactsJSON), &reteFacts))
	require.Equal(t, fcFacts, reteFacts)
	require.Equal(t, fc.Firings, reteResult.Firings)
}

func TestEngineIdempotence(t *testing.T) {
	e := NewDefault()
	first, err := e.Run(loanFacts, loanRules)
	require.NoError(t, err)
	second, err := e.Run(first.FactsJSON, loanRules)
	require.NoError(t, err)

	var f1, f2 interface{}
	require.NoError(t, json.Unmarshal([]byte(first.FactsJSON), &f1))
	require.NoError(t, json.Unmarshal([]byte(second.FactsJSON), &f2))
	require.Equal(t, f1, f2)
	require.Equal(t, 0, second.Firings)
}

func TestRunDebugEventDensity(t *testing.T) {
	e := NewDefault()
	result, err := e.RunDebug(loanFacts, loanRules)
	require.NoError(t, err)
	require.Equal(t, result.Steps, len(result.Events))

	var ruleFired int
	for i, ev := range result.Events {
		require.Equal(t, i+1, ev.Step)
		if ev.Type == "rule_fired" {
			ruleFired++
		}
	}
	require.Equal(t, 3, ruleFired)
	require.Equal(t, "session_start", string(result.Events[0].Type))
	require.Equal(t, "session_end", string(result.Events[len(result.Events)-1].Type))
}

func TestQueryAndCanProve(t *testing.T) {
	e := NewDefault()
	res, err := e.Query(loanFacts, loanRules, `Applicant.decision == "approved"`)
	require.NoError(t, err)
	require.True(t, res.Provable)
	require.Len(t, res.Proof, 1)

	ok, err := e.CanProve(loanFacts, loanRules, `Applicant.decision == "approved"`)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestBackwardForwardConsistency(t *testing.T) {
	e := NewDefault()
	ok, err := e.CanProve(loanFacts, loanRules, `Applicant.decision == "approved"`)
	require.NoError(t, err)
	require.True(t, ok)

	ran, err := e.Run(loanFacts, loanRules)
	require.NoError(t, err)
	require.JSONEq(t, `"approved"`, mustField(t, ran.FactsJSON, "Applicant", "decision"))
}

func mustField(t *testing.T, factsJSON string, path ...string) string {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(factsJSON), &m))
	var cur interface{} = m
	for _, p := range path {
		cur = cur.(map[string]interface{})[p]
	}
	b, err := json.Marshal(cur)
	require.NoError(t, err)
	return string(b)
}

func TestFixpointExceededReturnsStructuredError(t *testing.T) {
	e := New(&Config{MaxIterations: 10})
	_, err := e.Run(`{"A":{"v":1}}`, `
rule "Oscillate" { when A.v == 1 then A.v = 2; }
rule "Back" { when A.v == 2 then A.v = 1; }
`)
	require.Error(t, err)
	rerrVal, ok := err.(*rerr.Error)
	require.True(t, ok)
	require.Equal(t, rerr.CodeFixpointExceeded, rerrVal.Code)
}

func TestParseErrorHasLocation(t *testing.T) {
	e := NewDefault()
	_, err := e.Run(`{}`, `rule "Bad" { when X > then Y = 1; }`)
	require.Error(t, err)
	rerrVal, ok := err.(*rerr.Error)
	require.True(t, ok)
	require.Equal(t, rerr.CodeParseError, rerrVal.Code)
	require.NotNil(t, rerrVal.Location)
}

func TestHealthAndVersion(t *testing.T) {
	require.Equal(t, "ok", Health()["status"])
	require.Equal(t, Version, VersionInfo()["version"])
}
