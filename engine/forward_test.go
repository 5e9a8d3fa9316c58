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

package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KSD-CO/rule-engine-postgres-sub001/fact"
	"github.com/KSD-CO/rule-engine-postgres-sub001/grl"
	"github.com/KSD-CO/rule-engine-postgres-sub001/recorder"
	"github.com/KSD-CO/rule-engine-postgres-sub001/rerr"
)

func TestRunFCAgeGate(t *testing.T) {
	rs, err := grl.Parse(`rule "Adult" { when User.age > 18 then User.status = "adult"; }`, nil)
	require.NoError(t, err)
	store, err := fact.FromJSON([]byte(`{"User":{"age":25}}`))
	require.NoError(t, err)

	result, err := RunFC(rs, store, nil, Options{}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, result.Firings)
	require.Equal(t, "adult", store.GetRaw("User.status").String())
}

func TestRunFCSalienceOrderSuppressesLowerTierAfterFirstFire(t *testing.T) {
	src := `
rule "Gold" salience 200 { when Order.amount > 0 then Order.tier = "gold"; }
rule "Silver" salience 100 { when Order.amount > 0 then Order.tier = "silver"; }
`
	rs, err := grl.Parse(src, nil)
	require.NoError(t, err)
	store, err := fact.FromJSON([]byte(`{"Order":{"amount":999}}`))
	require.NoError(t, err)

	result, err := RunFC(rs, store, nil, Options{}, nil)
	require.NoError(t, err)
	require.Equal(t, "gold", store.GetRaw("Order.tier").String())
	require.Equal(t, 1, result.Firings)
}

func TestRunFCLoanApprovalChain(t *testing.T) {
	src := `
rule "CreditCheck" salience 300 { when Applicant.data.creditScore > 650 then Applicant.checks.hasGoodCredit = true; }
rule "Eligibility" salience 200 { when Applicant.checks.hasGoodCredit == true and Applicant.data.income > 50000 then Applicant.eligibility.qualifiesForLoan = true; }
rule "Decision" salience 100 { when Applicant.eligibility.qualifiesForLoan == true then Applicant.decision = "approved"; }
`
	rs, err := grl.Parse(src, nil)
	require.NoError(t, err)
	store, err := fact.FromJSON([]byte(`{"Applicant":{"data":{"creditScore":720,"income":80000},"checks":{},"eligibility":{},"decision":"pending"}}`))
	require.NoError(t, err)

	result, err := RunFC(rs, store, nil, Options{}, nil)
	require.NoError(t, err)
	require.Equal(t, 3, result.Firings)
	require.Equal(t, "approved", store.GetRaw("Applicant.decision").String())
	require.True(t, store.GetRaw("Applicant.checks.hasGoodCredit").Bool())
	require.True(t, store.GetRaw("Applicant.eligibility.qualifiesForLoan").Bool())
}

func TestRunFCMissingPathNoFiringNoError(t *testing.T) {
	rs, err := grl.Parse(`rule "R" { when X.y.z > 0 then X.flag = true; }`, nil)
	require.NoError(t, err)
	store, err := fact.FromJSON([]byte(`{"X":{}}`))
	require.NoError(t, err)

	result, err := RunFC(rs, store, nil, Options{}, nil)
	require.NoError(t, err)
	require.Equal(t, 0, result.Firings)
}

func TestRunFCFixpointExceeded(t *testing.T) {
	src := `
rule "Oscillate" { when A.v == 1 then A.v = 2; }
rule "Back" { when A.v == 2 then A.v = 1; }
`
	rs, err := grl.Parse(src, nil)
	require.NoError(t, err)
	store, err := fact.FromJSON([]byte(`{"A":{"v":1}}`))
	require.NoError(t, err)

	_, err = RunFC(rs, store, nil, Options{MaxIterations: 50}, nil)
	require.Error(t, err)
	rerrVal, ok := err.(*rerr.Error)
	require.True(t, ok)
	require.Equal(t, rerr.CodeFixpointExceeded, rerrVal.Code)
}

func TestRunFCIdempotent(t *testing.T) {
	rs, err := grl.Parse(`rule "Adult" { when User.age > 18 then User.status = "adult"; }`, nil)
	require.NoError(t, err)
	store, err := fact.FromJSON([]byte(`{"User":{"age":25}}`))
	require.NoError(t, err)

	_, err = RunFC(rs, store, nil, Options{}, nil)
	require.NoError(t, err)
	firstJSON, err := store.ToJSON()
	require.NoError(t, err)

	result2, err := RunFC(rs, store, nil, Options{}, nil)
	require.NoError(t, err)
	require.Equal(t, 0, result2.Firings)
	secondJSON, err := store.ToJSON()
	require.NoError(t, err)
	require.JSONEq(t, string(firstJSON), string(secondJSON))
}

func TestRunFCFreshnessCoversActionReadPaths(t *testing.T) {
	// CopyToZ's `when` clause never changes truth value across the run, but
	// its action reads Y, which SetY mutates on pass 1. CopyToZ must still
	// re-fire once Y changes, even though nothing it tests in `when` did.
	src := `
rule "SetY" salience 100 { when Y.v == 0 then Y.v = 5; }
rule "CopyToZ" { when X.v == 1 then Z.v = Y.v; }
`
	rs, err := grl.Parse(src, nil)
	require.NoError(t, err)
	store, err := fact.FromJSON([]byte(`{"X":{"v":1},"Y":{"v":0},"Z":{"v":null}}`))
	require.NoError(t, err)

	result, err := RunFC(rs, store, nil, Options{}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, result.Firings)
	require.Equal(t, int64(5), store.GetRaw("Z.v").Int())
}

func TestRunFCRecordsEventsWhenSessionAttached(t *testing.T) {
	rs, err := grl.Parse(`rule "Adult" { when User.age > 18 then User.status = "adult"; }`, nil)
	require.NoError(t, err)
	store, err := fact.FromJSON([]byte(`{"User":{"age":25}}`))
	require.NoError(t, err)

	sink := recorder.NewBufferedSink()
	sess := recorder.NewSession(sink, store, "", 0)
	result, err := RunFC(rs, store, nil, Options{}, sess)
	require.NoError(t, err)
	sess.End(1, recorder.StatusCompleted, store)

	events := sink.Events(sess.ID)
	ruleFired := 0
	for _, e := range events {
		if e.Type == recorder.EventRuleFired {
			ruleFired++
		}
	}
	require.Equal(t, result.Firings, ruleFired)
	require.Equal(t, recorder.EventSessionEnd, events[len(events)-1].Type)
}
