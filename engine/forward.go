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
	"sort"

	"github.com/KSD-CO/rule-engine-postgres-sub001/eval"
	"github.com/KSD-CO/rule-engine-postgres-sub001/fact"
	"github.com/KSD-CO/rule-engine-postgres-sub001/grl"
	"github.com/KSD-CO/rule-engine-postgres-sub001/recorder"
	"github.com/KSD-CO/rule-engine-postgres-sub001/registry"
	"github.com/KSD-CO/rule-engine-postgres-sub001/rerr"
	"github.com/KSD-CO/rule-engine-postgres-sub001/value"
)

// SortedRules returns rs.Rules ordered by salience descending, parse order
// ascending as tiebreaker (§4.3 step 1). Both RunFC and the RETE network
// builder use this so activation ordering stays identical across engines
// (§4.4 "Equivalence requirement").
func SortedRules(rs *grl.Ruleset) []*grl.Rule {
	rules := make([]*grl.Rule, len(rs.Rules))
	copy(rules, rs.Rules)
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Salience != rules[j].Salience {
			return rules[i].Salience > rules[j].Salience
		}
		return rules[i].Order < rules[j].Order
	})
	return rules
}

// dependencyPaths returns every fact path rule's outcome can depend on: the
// paths its `when` clause reads, plus, for each action, the paths its RHS
// reads. The RHS paths matter because a rule whose `when` is constant but
// whose action reads a path that changed (e.g. `then Z = Y` gated on
// `when X == 1`) must still be considered fresh when Y changes, or RunFC
// would settle on it forever after the first pass and never re-copy Y into
// Z. The paths an action writes are not dependencies: another rule
// overwriting a target does not make this rule fresh again, so a lower-
// salience rule that lost the contest for a path stays settled (§8
// scenario 2).
func dependencyPaths(rule *grl.Rule) []fact.Path {
	paths := eval.ReferencedPaths(rule.When)
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		seen[p.String()] = true
	}
	add := func(p fact.Path) {
		if key := p.String(); !seen[key] {
			seen[key] = true
			paths = append(paths, p)
		}
	}
	for _, action := range rule.Then {
		for _, p := range eval.ReferencedPaths(action.Value) {
			add(p)
		}
	}
	return paths
}

// factVersions tracks, per normalized fact path, the global mutation
// counter value at which it was last changed. A rule's "freshness" for a
// given pass is the max version among its dependencyPaths; a rule that has
// already been examined at that same version (whether it fired or lost the
// priority contest to a higher-salience sibling) is settled and must not be
// re-examined until something it depends on changes again (§4.3's per-rule
// re-firing gate, extended to cover rules that never got a turn at all).
type factVersions struct {
	version int64
	atPath  map[string]int64
}

func newFactVersions() *factVersions {
	return &factVersions{atPath: make(map[string]int64)}
}

func (fv *factVersions) bump(path string) {
	fv.version++
	fv.atPath[path] = fv.version
}

func (fv *factVersions) maxOf(paths []fact.Path) int64 {
	var max int64
	for _, p := range paths {
		if v := fv.atPath[p.String()]; v > max {
			max = v
		}
	}
	return max
}

// RunFC implements §4.3's naïve fixpoint forward-chaining algorithm: each
// pass considers every rule whose `when` currently holds, in salience-
// desc/parse-order-asc order; the first one that is both "fresh" (depends
// on a fact that changed since it was last examined) and "productive"
// (its actions would actually change the store, I3) fires, and the pass
// restarts. A pass with no fresh-and-productive rule terminates the loop.
func RunFC(rs *grl.Ruleset, store *fact.Store, reg registry.Registry, opts Options, sess *recorder.Session) (*Result, error) {
	rules := SortedRules(rs)

	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterationsPerRule * int64(len(rules))
	}

	referenced := make(map[string][]fact.Path, len(rules))
	for _, rule := range rules {
		referenced[rule.Name] = dependencyPaths(rule)
	}

	versions := newFactVersions()
	lastSeen := make(map[string]int64)
	seen := make(map[string]bool)

	var firingsCount int
	var iterations int64

	for {
		if opts.cancelled() {
			return &Result{Store: store, Firings: firingsCount, Status: recorder.StatusCancelled},
				rerr.New(rerr.CodeCancelled, "session cancelled")
		}

		var chosen *grl.Rule
		for _, rule := range rules {
			if !eval.Bool(rule.When, store, reg) {
				continue
			}

			freshVersion := versions.maxOf(referenced[rule.Name])
			if last, ok := lastSeen[rule.Name]; ok && freshVersion <= last {
				continue // settled: nothing this rule depends on has changed
			}
			lastSeen[rule.Name] = freshVersion
			seen[rule.Name] = true

			if chosen != nil {
				continue // a higher-salience rule already won this pass
			}
			if ruleWouldChange(rule, store, reg) {
				chosen = rule
			}
		}
		if chosen == nil {
			break
		}

		changedAny := false
		for _, action := range chosen.Then {
			newVal := eval.Eval(action.Value, store, reg)
			oldVal := store.Get(action.Path)
			changed, err := store.Set(action.Path, newVal)
			if err != nil {
				return &Result{Store: store, Firings: firingsCount, Status: recorder.StatusFailed},
					rerr.Wrap(err, "fact mutation failed")
			}
			if changed {
				changedAny = true
				versions.bump(action.Path.String())
				if sess != nil {
					sess.FactMutated(opts.now(), action.Path.String(), oldVal, newVal)
				}
			}
		}
		if !changedAny {
			// Should not happen given ruleWouldChange's pre-check, but
			// stay safe rather than loop forever on a logic mismatch.
			break
		}
		lastSeen[chosen.Name] = versions.maxOf(referenced[chosen.Name])

		firingsCount++
		iterations++
		if sess != nil {
			sess.RuleFired(opts.now(), chosen.Name, chosen.Salience, nil)
		}
		if err := checkBounds(store, opts); err != nil {
			return &Result{Store: store, Firings: firingsCount, Status: recorder.StatusFailed}, err
		}
		if iterations > maxIter {
			return &Result{Store: store, Firings: firingsCount, Status: recorder.StatusFailed},
				rerr.Newf(rerr.CodeFixpointExceeded, "fixpoint exceeded after %d iterations", iterations)
		}
	}

	return &Result{Store: store, Firings: firingsCount, Status: recorder.StatusCompleted}, nil
}

// ruleWouldChange reports whether firing rule right now would change at
// least one leaf under deep equality (I3), without mutating the store.
func ruleWouldChange(rule *grl.Rule, store *fact.Store, reg registry.Registry) bool {
	for _, action := range rule.Then {
		newVal := eval.Eval(action.Value, store, reg)
		oldVal := store.Get(action.Path)
		if !value.Equal(oldVal, newVal) {
			return true
		}
	}
	return false
}

func checkBounds(store *fact.Store, opts Options) error {
	if opts.MaxFactsBytes > 0 {
		n, err := store.SizeBytes()
		if err != nil {
			return rerr.Wrap(err, "failed to measure fact store size")
		}
		if n > opts.MaxFactsBytes {
			return rerr.Newf(rerr.CodeResourceLimit, "fact store exceeds max_facts_bytes (%d > %d)", n, opts.MaxFactsBytes)
		}
	}
	if opts.MaxDepth > 0 && store.Depth() > opts.MaxDepth {
		return rerr.Newf(rerr.CodeResourceLimit, "fact tree exceeds max_depth (%d > %d)", store.Depth(), opts.MaxDepth)
	}
	return nil
}
