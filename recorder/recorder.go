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

// Package recorder implements the event-sourcing observer attached to an
// engine invocation (§2 component 6, §4.6). It emits an append-only,
// dense-step-numbered log of structured events and exposes a Session type
// that can be forked into a what-if timeline off a past step.
package recorder

import (
	"encoding/json"

	uuid "github.com/satori/go.uuid"

	"github.com/KSD-CO/rule-engine-postgres-sub001/fact"
	"github.com/KSD-CO/rule-engine-postgres-sub001/value"
)

func jsonMarshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

// EventType enumerates the event kinds §4.6's table names.
type EventType string

const (
	EventSessionStart      EventType = "session_start"
	EventRuleFired         EventType = "rule_fired"
	EventFactMutated       EventType = "fact_mutated"
	EventActivationAdded   EventType = "activation_added"
	EventActivationRemoved EventType = "activation_removed"
	EventSessionEnd        EventType = "session_end"
)

// Status is a Session's terminal state (§3 "Session").
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Event is one immutable, step-numbered observation (§3 "Event"). Step
// numbers are dense and strictly increasing within a session (I4).
type Event struct {
	Step      int
	Type      EventType
	Timestamp int64 // unix nanos, supplied by the caller (§ "no ambient I/O")
	Data      map[string]interface{}
}

// Sink is the abstract engine-recorder coupling §9 "Recorder coupling"
// calls for: the engine holds a handle satisfying {emit(event),
// finalize(status)} and never knows whether it is buffering in memory or
// forwarding to a host-supplied persistence hook (§6 "Persistence hook").
type Sink interface {
	Emit(sessionID string, e Event)
	Finalize(sessionID string, status Status, finalFacts value.Value, durationNanos int64)
}

// NoopSink discards every event. Attaching it to an engine invocation makes
// recording's cost in the disabled state a single interface-method call per
// emission site (§4.6 "runtime-cheap toggle").
type NoopSink struct{}

func (NoopSink) Emit(string, Event)                               {}
func (NoopSink) Finalize(string, Status, value.Value, int64)       {}

// BufferedSink accumulates events in memory, the "buffer in memory (query
// functions then read the buffer)" mode §4.6 describes. It is the sink
// ruleengine's RunDebug always uses.
type BufferedSink struct {
	events map[string][]Event
}

// NewBufferedSink returns an empty in-memory sink.
func NewBufferedSink() *BufferedSink {
	return &BufferedSink{events: make(map[string][]Event)}
}

func (b *BufferedSink) Emit(sessionID string, e Event) {
	b.events[sessionID] = append(b.events[sessionID], e)
}

func (b *BufferedSink) Finalize(string, Status, value.Value, int64) {}

// Events returns the recorded events for sessionID in step order.
func (b *BufferedSink) Events(sessionID string) []Event {
	return append([]Event(nil), b.events[sessionID]...)
}

// HostSink adapts the host-supplied persistence hook (§6 "Persistence hook
// (consumed)") to the Sink interface: append_event(session_id, step,
// event_type, event_data_json) and finalize_session(session_id,
// final_facts, status, duration). Durability of AppendEvent/FinalizeSession
// is outside the core's guarantees.
type HostSink struct {
	AppendEvent      func(sessionID string, step int, eventType string, eventDataJSON []byte)
	FinalizeSession  func(sessionID string, finalFactsJSON []byte, status string, durationNanos int64)
}

func (h *HostSink) Emit(sessionID string, e Event) {
	if h.AppendEvent == nil {
		return
	}
	data, err := jsonMarshal(e.Data)
	if err != nil {
		data = []byte("{}")
	}
	h.AppendEvent(sessionID, e.Step, string(e.Type), data)
}

func (h *HostSink) Finalize(sessionID string, status Status, finalFacts value.Value, durationNanos int64) {
	if h.FinalizeSession == nil {
		return
	}
	data, err := value.ToJSON(finalFacts)
	if err != nil {
		data = []byte("null")
	}
	h.FinalizeSession(sessionID, data, string(status), durationNanos)
}

// Session is one engine invocation observed by a recorder (§3 "Session").
// It owns the dense step counter (I4). It holds no fact.Store; Fork takes
// the store to branch from as an argument.
type Session struct {
	ID        string
	Sink      Sink
	Status    Status
	step      int
	startedAt int64
}

// NewSession starts a session: assigns an opaque id, emits session_start,
// and returns the handle engines append to. nowNanos is supplied by the
// caller since the core has no ambient clock access (§1 "no ambient I/O").
func NewSession(sink Sink, store *fact.Store, rulesText string, nowNanos int64) *Session {
	if sink == nil {
		sink = NoopSink{}
	}
	id := uuid.NewV4().String()
	s := &Session{ID: id, Sink: sink, Status: StatusRunning, startedAt: nowNanos}
	s.emit(EventSessionStart, nowNanos, map[string]interface{}{
		"initial_facts": store.Root().Raw(),
		"rules_text":    rulesText,
	})
	return s
}

func (s *Session) emit(t EventType, nowNanos int64, data map[string]interface{}) {
	s.step++
	s.Sink.Emit(s.ID, Event{Step: s.step, Type: t, Timestamp: nowNanos, Data: data})
}

// RuleFired records a rule_fired event (§4.6). binding is the rule's
// activation binding, opaque to the recorder.
func (s *Session) RuleFired(nowNanos int64, ruleName string, salience int, binding map[string]interface{}) {
	s.emit(EventRuleFired, nowNanos, map[string]interface{}{
		"rule":     ruleName,
		"salience": salience,
		"binding":  binding,
	})
}

// FactMutated records a fact_mutated event (§4.6).
func (s *Session) FactMutated(nowNanos int64, path string, oldVal, newVal value.Value) {
	s.emit(EventFactMutated, nowNanos, map[string]interface{}{
		"path": path,
		"old":  oldVal.Raw(),
		"new":  newVal.Raw(),
	})
}

// ActivationAdded records an activation_added event (RETE only, §4.6).
func (s *Session) ActivationAdded(nowNanos int64, ruleName string, binding map[string]interface{}) {
	s.emit(EventActivationAdded, nowNanos, map[string]interface{}{
		"rule":    ruleName,
		"binding": binding,
	})
}

// ActivationRemoved records an activation_removed event (RETE only, §4.6).
func (s *Session) ActivationRemoved(nowNanos int64, ruleName string, binding map[string]interface{}) {
	s.emit(EventActivationRemoved, nowNanos, map[string]interface{}{
		"rule":    ruleName,
		"binding": binding,
	})
}

// End finalizes the session with status, recording session_end (§4.6) for
// every terminal outcome including errors (§7). It is safe to call at most
// once.
func (s *Session) End(nowNanos int64, status Status, finalFacts *fact.Store) {
	s.Status = status
	duration := nowNanos - s.startedAt
	s.emit(EventSessionEnd, nowNanos, map[string]interface{}{
		"status":   string(status),
		"duration": duration,
	})
	s.Sink.Finalize(s.ID, status, finalFacts.Root(), duration)
}

// Steps returns the number of events emitted so far, i.e. the dense step
// counter's current value.
func (s *Session) Steps() int { return s.step }

// Fork branches a what-if timeline off store: it deep-copies the fact tree
// (fact.Store.Clone) so mutations on the fork never affect the original
// session's facts, and starts a fresh child session against the same sink
// (SPEC_FULL "What-if branching"). The child's session_start payload
// records which parent session and step it was forked from; the recorder
// does not replay parent events into the child.
func Fork(parent *Session, atStep int, store *fact.Store, rulesText string, nowNanos int64) (*fact.Store, *Session) {
	forked := store.Clone()
	id := uuid.NewV4().String()
	child := &Session{ID: id, Sink: parent.Sink, Status: StatusRunning, startedAt: nowNanos}
	child.emit(EventSessionStart, nowNanos, map[string]interface{}{
		"initial_facts": forked.Root().Raw(),
		"rules_text":    rulesText,
		"forked_from":   parent.ID,
		"forked_at":     atStep,
	})
	return forked, child
}
