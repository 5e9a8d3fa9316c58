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
	"sort"

	"github.com/mitchellh/hashstructure"

	"github.com/KSD-CO/rule-engine-postgres-sub001/fact"
	"github.com/KSD-CO/rule-engine-postgres-sub001/grl"
)

// Activation is a rule together with the binding that satisfies it (§3
// "Activation"): a snapshot of the values at every path the rule's `when`
// reads, at the moment the terminal became satisfied. Since the fact base
// is a single tree rather than a set of independently-matched objects,
// GRL rules bind no pattern variables of their own — the binding here
// instead records *which facts* justified the match, which doubles as
// both the recorder's activation payload and the fingerprint fed to
// hashstructure for re-fire suppression (§4.4 step 4).
type Activation struct {
	Rule     *grl.Rule
	Binding  map[string]interface{}
	Sequence int
	termIdx  int
	fp       uint64
}

// conflictSet holds pending activations ordered by (salience desc,
// sequence asc) — lower sequence is earlier network insertion, giving a
// stable FIFO tiebreak among activations of equal salience (§3
// "Activation").
type conflictSet struct {
	items []*Activation
}

func (c *conflictSet) insert(a *Activation) {
	c.items = append(c.items, a)
	sort.SliceStable(c.items, func(i, j int) bool {
		if c.items[i].Rule.Salience != c.items[j].Rule.Salience {
			return c.items[i].Rule.Salience > c.items[j].Rule.Salience
		}
		return c.items[i].Sequence < c.items[j].Sequence
	})
}

func (c *conflictSet) popHighest() *Activation {
	if len(c.items) == 0 {
		return nil
	}
	a := c.items[0]
	c.items = c.items[1:]
	return a
}

func (c *conflictSet) removeForTerminal(termIdx int) *Activation {
	for i, a := range c.items {
		if a.termIdx == termIdx {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return a
		}
	}
	return nil
}

func (c *conflictSet) hasTerminal(termIdx int) bool {
	for _, a := range c.items {
		if a.termIdx == termIdx {
			return true
		}
	}
	return false
}

func bindingFor(term *terminalNode, store *fact.Store) map[string]interface{} {
	binding := make(map[string]interface{}, len(term.paths))
	for _, p := range term.paths {
		binding[p.String()] = store.Get(p).Raw()
	}
	return binding
}

func fingerprint(ruleName string, binding map[string]interface{}) uint64 {
	h, err := hashstructure.Hash(struct {
		Rule    string
		Binding map[string]interface{}
	}{Rule: ruleName, Binding: binding}, nil)
	if err != nil {
		// A binding made only of JSON-shaped values (bool/int64/float64/
		// string/[]interface{}/map[string]interface{}) always hashes; this
		// path exists only so a future binding shape can't panic the
		// engine (§7 "never panic across the host boundary").
		return 0
	}
	return h
}
