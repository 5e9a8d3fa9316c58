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

// Package ruleengine is the embedding façade over the rule engine core
// (§1 "PURPOSE & SCOPE"): a pure `(facts, rules) → facts'` function with no
// ambient I/O of its own. This package is the one place that is allowed to
// touch a wall clock or a logger — the core packages (fact, grl, eval,
// engine, rete, solver, recorder) never do — because it is the seam where
// the embedded core meets a concrete host process, matching the way
// engine.go's sqle.Engine sits in front of the teacher's otherwise pure
// analyzer/executor packages.
package ruleengine

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/KSD-CO/rule-engine-postgres-sub001/builtin"
	"github.com/KSD-CO/rule-engine-postgres-sub001/engine"
	"github.com/KSD-CO/rule-engine-postgres-sub001/fact"
	"github.com/KSD-CO/rule-engine-postgres-sub001/grl"
	"github.com/KSD-CO/rule-engine-postgres-sub001/recorder"
	"github.com/KSD-CO/rule-engine-postgres-sub001/registry"
	"github.com/KSD-CO/rule-engine-postgres-sub001/rerr"
	"github.com/KSD-CO/rule-engine-postgres-sub001/rete"
	"github.com/KSD-CO/rule-engine-postgres-sub001/solver"
)

// Version is the core's build version, returned by the `version` function
// surface (§6).
const Version = "0.1.0"

// Config configures an Engine, in the same documented-struct-plus-nil-
// means-defaults shape as the teacher's sqle.Config/sqle.New (engine.go).
type Config struct {
	// Registry resolves built-in function names at parse time (§6 "Built-
	// in function registry (consumed)"). A nil Registry falls back to the
	// reference implementation in package builtin, which is not part of
	// the core's contract but makes the engine exercisable standalone.
	Registry registry.Registry
	// MaxIterations, MaxFactsBytes, MaxRulesBytes, MaxDepth are the §5
	// "Resource bounds". Zero means the package-level defaults.
	MaxIterations int64
	MaxFactsBytes int64
	MaxRulesBytes int64
	MaxDepth      int
	// Cancel is polled at each firing boundary (§5 "Cancellation").
	Cancel func() bool
	// Logger receives session lifecycle messages (start/end/cancel/budget-
	// exceeded) at Debug/Warn level. A nil Logger uses logrus's standard
	// logger. Fact values are never logged at Info or above — the same
	// posture the teacher takes with credentials in package auth.
	Logger *logrus.Logger
}

func (c *Config) orDefaults() *Config {
	if c == nil {
		c = &Config{}
	}
	cp := *c
	if cp.Registry == nil {
		cp.Registry = builtin.Default()
	}
	if cp.Logger == nil {
		cp.Logger = logrus.StandardLogger()
	}
	return &cp
}

// Engine is a configured entry point into the core (§6 "Function surface
// exposed to the host"). It holds no per-invocation state; each Run*/Query
// call builds a fresh fact.Store and, for RETE, a fresh rete.Network (§5
// "Ownership").
type Engine struct {
	cfg *Config
}

// New builds an Engine from cfg. A nil cfg uses every default (§6 "host
// surrounds it with ... a built-in function library", here defaulted to
// package builtin).
func New(cfg *Config) *Engine {
	return &Engine{cfg: cfg.orDefaults()}
}

// NewDefault is equivalent to New(nil), mirroring the teacher's
// sqle.NewDefault convenience constructor.
func NewDefault() *Engine {
	return New(nil)
}

// Mode selects which engine implementation executes a ruleset.
type Mode int

const (
	// ModeAuto lets the Engine pick; it currently always selects RETE,
	// which is equivalent to forward chaining by §4.4's contract but
	// avoids rescanning every rule on every pass.
	ModeAuto Mode = iota
	ModeForwardChaining
	ModeRete
)

// RunResult is what Run/RunFC/RunRete return: the mutated facts as JSON
// and how many rules fired.
type RunResult struct {
	FactsJSON string
	Firings   int
}

// Run executes rulesText against factsJSON using the default mode (§6
// "run(facts, rules): Default forward-or-RETE execution"). See ModeAuto.
func (e *Engine) Run(factsJSON, rulesText string) (*RunResult, error) {
	return e.run(factsJSON, rulesText, ModeAuto)
}

// RunFC forces forward chaining (§6 "run_fc").
func (e *Engine) RunFC(factsJSON, rulesText string) (*RunResult, error) {
	return e.run(factsJSON, rulesText, ModeForwardChaining)
}

// RunRete forces the RETE engine (§6 "run_rete").
func (e *Engine) RunRete(factsJSON, rulesText string) (*RunResult, error) {
	return e.run(factsJSON, rulesText, ModeRete)
}

func (e *Engine) run(factsJSON, rulesText string, mode Mode) (*RunResult, error) {
	store, rs, opts, err := e.prepare(factsJSON, rulesText)
	if err != nil {
		return nil, err
	}

	log := e.cfg.Logger.WithField("component", "ruleengine")
	log.Debug("session start")

	var result *engine.Result
	switch mode {
	case ModeForwardChaining:
		result, err = engine.RunFC(rs, store, e.cfg.Registry, opts, nil)
	default:
		result, err = rete.Run(rs, store, e.cfg.Registry, opts, nil)
	}
	if err != nil {
		logSessionEnd(log, err)
		return nil, err
	}
	log.WithField("firings", result.Firings).Debug("session end")

	out, jsonErr := result.Store.ToJSON()
	if jsonErr != nil {
		return nil, rerr.Wrap(jsonErr, "failed to serialize result facts")
	}
	return &RunResult{FactsJSON: string(out), Firings: result.Firings}, nil
}

// DebugResult is what RunDebug returns (§6 "run_debug": "returns
// (session_id, steps, events, facts')").
type DebugResult struct {
	SessionID string
	Steps     int
	Events    []recorder.Event
	FactsJSON string
}

// RunDebug executes with the event recorder attached (§6 "run_debug"),
// buffering events in memory rather than forwarding them to a host sink —
// a host that wants persistence supplies its own recorder.HostSink and
// drives the lower-level engine/rete packages directly instead.
func (e *Engine) RunDebug(factsJSON, rulesText string) (*DebugResult, error) {
	store, rs, opts, err := e.prepare(factsJSON, rulesText)
	if err != nil {
		return nil, err
	}

	sink := recorder.NewBufferedSink()
	now := time.Now().UnixNano()
	sess := recorder.NewSession(sink, store, rulesText, now)

	log := e.cfg.Logger.WithFields(logrus.Fields{"component": "ruleengine", "session": sess.ID})
	log.Debug("debug session start")

	result, runErr := rete.Run(rs, store, e.cfg.Registry, opts, sess)
	status := recorder.StatusCompleted
	if runErr != nil {
		if rerrVal, ok := runErr.(*rerr.Error); ok && rerrVal.Code == rerr.CodeCancelled {
			status = recorder.StatusCancelled
		} else {
			status = recorder.StatusFailed
		}
	}
	sess.End(time.Now().UnixNano(), status, store)

	if runErr != nil {
		logSessionEnd(log, runErr)
		return nil, runErr
	}
	log.WithField("firings", result.Firings).Debug("debug session end")

	out, jsonErr := store.ToJSON()
	if jsonErr != nil {
		return nil, rerr.Wrap(jsonErr, "failed to serialize result facts")
	}
	return &DebugResult{
		SessionID: sess.ID,
		Steps:     sess.Steps(),
		Events:    sink.Events(sess.ID),
		FactsJSON: string(out),
	}, nil
}

// QueryResult mirrors solver.Result for the external function surface.
type QueryResult struct {
	Provable   bool
	Proof      []*solver.Step
	Unresolved []string
}

// Query backward-chains goalText against rulesText/factsJSON (§6 "query").
func (e *Engine) Query(factsJSON, rulesText, goalText string) (*QueryResult, error) {
	store, rs, goal, err := e.prepareGoal(factsJSON, rulesText, goalText)
	if err != nil {
		return nil, err
	}
	res, err := solver.Query(rs, store, goal, e.cfg.Registry)
	if err != nil {
		return nil, rerr.Wrap(err, "backward chaining failed")
	}
	return &QueryResult{Provable: res.Provable, Proof: res.Proof, Unresolved: res.Unresolved}, nil
}

// CanProve is the boolean projection of Query (§6 "can_prove").
func (e *Engine) CanProve(factsJSON, rulesText, goalText string) (bool, error) {
	res, err := e.Query(factsJSON, rulesText, goalText)
	if err != nil {
		return false, err
	}
	return res.Provable, nil
}

func (e *Engine) prepare(factsJSON, rulesText string) (*fact.Store, *grl.Ruleset, engine.Options, error) {
	var zero engine.Options
	if e.cfg.MaxRulesBytes > 0 && int64(len(rulesText)) > e.cfg.MaxRulesBytes {
		return nil, nil, zero, rerr.Newf(rerr.CodeResourceLimit, "rules text exceeds max_rules_bytes (%d > %d)", len(rulesText), e.cfg.MaxRulesBytes)
	}
	rs, err := grl.Parse(rulesText, e.cfg.Registry)
	if err != nil {
		return nil, nil, zero, err
	}
	store, err := fact.FromJSON([]byte(factsJSON))
	if err != nil {
		return nil, nil, zero, rerr.Wrap(err, "invalid facts JSON")
	}
	if e.cfg.MaxFactsBytes > 0 && int64(len(factsJSON)) > e.cfg.MaxFactsBytes {
		return nil, nil, zero, rerr.Newf(rerr.CodeResourceLimit, "facts JSON exceeds max_facts_bytes (%d > %d)", len(factsJSON), e.cfg.MaxFactsBytes)
	}
	opts := engine.Options{
		MaxIterations: e.cfg.MaxIterations,
		MaxFactsBytes: e.cfg.MaxFactsBytes,
		MaxDepth:      e.cfg.MaxDepth,
		Cancel:        e.cfg.Cancel,
		Now:           func() int64 { return time.Now().UnixNano() },
	}
	return store, rs, opts, nil
}

func (e *Engine) prepareGoal(factsJSON, rulesText, goalText string) (*fact.Store, *grl.Ruleset, grl.Expr, error) {
	store, rs, _, err := e.prepare(factsJSON, rulesText)
	if err != nil {
		return nil, nil, nil, err
	}
	goal, err := grl.ParseExpr(goalText, e.cfg.Registry)
	if err != nil {
		if rerrVal, ok := err.(*rerr.Error); ok {
			rerrVal.Code = rerr.CodeInvalidGoal
			return nil, nil, nil, rerrVal
		}
		return nil, nil, nil, rerr.Wrap(err, "invalid goal")
	}
	return store, rs, goal, nil
}

func logSessionEnd(log *logrus.Entry, err error) {
	if rerrVal, ok := err.(*rerr.Error); ok {
		switch rerrVal.Code {
		case rerr.CodeCancelled:
			log.Warn("session cancelled")
		case rerr.CodeFixpointExceeded, rerr.CodeResourceLimit:
			log.WithError(err).Warn("session aborted on budget error")
		default:
			log.WithError(err).Warn("session failed")
		}
		return
	}
	log.WithError(err).Warn("session failed")
}

// Health reports constant liveness metadata (§6 "health").
func Health() map[string]string {
	return map[string]string{"status": "ok"}
}

// VersionInfo reports the core's version metadata (§6 "version").
func VersionInfo() map[string]string {
	return map[string]string{"version": Version}
}
