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

import (
	"github.com/KSD-CO/rule-engine-postgres-sub001/engine"
	"github.com/KSD-CO/rule-engine-postgres-sub001/eval"
	"github.com/KSD-CO/rule-engine-postgres-sub001/fact"
	"github.com/KSD-CO/rule-engine-postgres-sub001/grl"
	"github.com/KSD-CO/rule-engine-postgres-sub001/recorder"
	"github.com/KSD-CO/rule-engine-postgres-sub001/registry"
	"github.com/KSD-CO/rule-engine-postgres-sub001/rerr"
)

// Run compiles rs into a Network and drives it to a fixpoint (§4.4
// "Execution loop"), returning the same *engine.Result shape RunFC does so
// the root façade can pick either implementation interchangeably and so
// the engine-equivalence property (§4.4, §8) is phrased over one result
// type.
func Run(rs *grl.Ruleset, store *fact.Store, reg registry.Registry, opts engine.Options, sess *recorder.Session) (*engine.Result, error) {
	rules := engine.SortedRules(rs)
	net := Build(rules, reg)
	net.EvaluateAll(store)

	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = engine.DefaultMaxIterationsPerRule * int64(len(rules))
	}

	cs := &conflictSet{}
	seq := 0
	fired := map[int]uint64{} // terminal index -> fingerprint of its last fire

	enqueueSatisfied := func() {
		for idx, t := range net.terminals {
			wantActive := t.satisfied
			alreadyQueued := cs.hasTerminal(idx)
			if !wantActive {
				if alreadyQueued {
					a := cs.removeForTerminal(idx)
					if sess != nil && a != nil {
						sess.ActivationRemoved(opts.Clock(), t.rule.Name, a.Binding)
					}
				}
				continue
			}
			if alreadyQueued {
				continue
			}
			binding := bindingFor(t, store)
			fp := fingerprint(t.rule.Name, binding)
			if lastFP, ok := fired[idx]; ok && lastFP == fp {
				// Same rule, same supporting facts as its last fire: §4.4
				// step 4 discards the re-arrival until something it
				// depends on changes.
				continue
			}
			a := &Activation{Rule: t.rule, Binding: binding, Sequence: seq, termIdx: idx, fp: fp}
			seq++
			cs.insert(a)
			if sess != nil {
				sess.ActivationAdded(opts.Clock(), t.rule.Name, binding)
			}
		}
	}

	enqueueSatisfied()

	var firingsCount int
	var iterations int64

	for {
		if opts.IsCancelled() {
			return &engine.Result{Store: store, Firings: firingsCount, Status: recorder.StatusCancelled},
				rerr.New(rerr.CodeCancelled, "session cancelled")
		}

		act := cs.popHighest()
		if act == nil {
			break
		}

		changedPaths := make([]fact.Path, 0, len(act.Rule.Then))
		for _, action := range act.Rule.Then {
			newVal := eval.Eval(action.Value, store, reg)
			oldVal := store.Get(action.Path)
			changed, err := store.Set(action.Path, newVal)
			if err != nil {
				return &engine.Result{Store: store, Firings: firingsCount, Status: recorder.StatusFailed},
					rerr.Wrap(err, "fact mutation failed")
			}
			if changed {
				changedPaths = append(changedPaths, action.Path)
				if sess != nil {
					sess.FactMutated(opts.Clock(), action.Path.String(), oldVal, newVal)
				}
			}
		}

		fired[act.termIdx] = act.fp
		if len(changedPaths) == 0 {
			// Every action was a no-op under I3: the activation is consumed
			// without counting as a firing, and the `fired` fingerprint
			// above keeps it from re-enqueueing with the same binding.
			continue
		}
		firingsCount++
		iterations++
		if sess != nil {
			sess.RuleFired(opts.Clock(), act.Rule.Name, act.Rule.Salience, act.Binding)
		}

		// A modification of any supporting fact lifts the re-fire
		// suppression (§4.4 step 4), even when a later write restores the
		// value the last fire's fingerprint captured.
		changed := make(map[string]bool, len(changedPaths))
		for _, p := range changedPaths {
			changed[p.String()] = true
		}
		for idx, t := range net.terminals {
			for _, p := range t.paths {
				if changed[p.String()] {
					delete(fired, idx)
					break
				}
			}
		}
		net.Touch(store, changedPaths)
		enqueueSatisfied()

		if err := checkBounds(store, opts); err != nil {
			return &engine.Result{Store: store, Firings: firingsCount, Status: recorder.StatusFailed}, err
		}
		if iterations > maxIter {
			return &engine.Result{Store: store, Firings: firingsCount, Status: recorder.StatusFailed},
				rerr.Newf(rerr.CodeFixpointExceeded, "fixpoint exceeded after %d iterations", iterations)
		}
	}

	return &engine.Result{Store: store, Firings: firingsCount, Status: recorder.StatusCompleted}, nil
}

func checkBounds(store *fact.Store, opts engine.Options) error {
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
