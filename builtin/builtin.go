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

// Package builtin is a reference implementation of the host-supplied
// function registry (§6). It is not part of the core's contract — §6 is
// explicit that built-in implementations are an external collaborator —
// but the core ships one small registry covering the four families named
// in §4.2 (date/time, string, math, JSON) so it is exercisable standalone.
// A host is free to ignore this package entirely and supply its own
// registry.Registry.
package builtin

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/KSD-CO/rule-engine-postgres-sub001/registry"
	"github.com/KSD-CO/rule-engine-postgres-sub001/value"
)

// Default returns a registry.Registry covering a minimal set of date/time,
// string, math, and JSON functions, enough to exercise the engines and
// backward chaining solver end to end without a host-supplied library.
func Default() registry.Registry {
	return registry.Map{
		// date/time: operate on ISO-8601 strings (§4.2).
		"dateBefore": spec2("dateBefore", dateCompare(func(a, b time.Time) bool { return a.Before(b) })),
		"dateAfter":  spec2("dateAfter", dateCompare(func(a, b time.Time) bool { return a.After(b) })),
		"daysBetween": spec2("daysBetween", func(args []value.Value) (value.Value, error) {
			a, err := parseISO(args[0])
			if err != nil {
				return value.Value{}, err
			}
			b, err := parseISO(args[1])
			if err != nil {
				return value.Value{}, err
			}
			days := int64(b.Sub(a).Hours() / 24)
			return value.NewInt(days), nil
		}),

		// string
		"upper": spec1("upper", func(args []value.Value) (value.Value, error) {
			return value.NewString(strings.ToUpper(args[0].String())), nil
		}),
		"lower": spec1("lower", func(args []value.Value) (value.Value, error) {
			return value.NewString(strings.ToLower(args[0].String())), nil
		}),
		"contains": spec2("contains", func(args []value.Value) (value.Value, error) {
			return value.NewBool(strings.Contains(args[0].String(), args[1].String())), nil
		}),
		"concat": {
			Name:  "concat",
			Arity: -1,
			Invoke: func(args []value.Value) (value.Value, error) {
				var b strings.Builder
				for _, a := range args {
					b.WriteString(a.String())
				}
				return value.NewString(b.String()), nil
			},
		},

		// math: IEEE floats (§4.2).
		"abs": spec1("abs", func(args []value.Value) (value.Value, error) {
			f, ok := args[0].AsFloat()
			if !ok {
				return value.Value{}, errInvalidArg("abs")
			}
			return value.NewFloat(math.Abs(f)), nil
		}),
		"min": spec2("min", func(args []value.Value) (value.Value, error) {
			a, aok := args[0].AsFloat()
			b, bok := args[1].AsFloat()
			if !aok || !bok {
				return value.Value{}, errInvalidArg("min")
			}
			return value.NewFloat(math.Min(a, b)), nil
		}),
		"max": spec2("max", func(args []value.Value) (value.Value, error) {
			a, aok := args[0].AsFloat()
			b, bok := args[1].AsFloat()
			if !aok || !bok {
				return value.Value{}, errInvalidArg("max")
			}
			return value.NewFloat(math.Max(a, b)), nil
		}),
		"round": spec1("round", func(args []value.Value) (value.Value, error) {
			f, ok := args[0].AsFloat()
			if !ok {
				return value.Value{}, errInvalidArg("round")
			}
			return value.NewInt(int64(math.Round(f))), nil
		}),

		// JSON: operate on opaque subtree handles (§4.2).
		"jsonHas": spec2("jsonHas", func(args []value.Value) (value.Value, error) {
			if args[0].Kind() != value.Object {
				return value.NewBool(false), nil
			}
			_, ok := args[0].Object()[args[1].String()]
			return value.NewBool(ok), nil
		}),
		"jsonLen": spec1("jsonLen", func(args []value.Value) (value.Value, error) {
			switch args[0].Kind() {
			case value.Array:
				return value.NewInt(int64(len(args[0].Array()))), nil
			case value.Object:
				return value.NewInt(int64(len(args[0].Object()))), nil
			case value.String:
				return value.NewInt(int64(len(args[0].String()))), nil
			default:
				return value.Value{}, errInvalidArg("jsonLen")
			}
		}),
		"jsonEncode": spec1("jsonEncode", func(args []value.Value) (value.Value, error) {
			b, err := json.Marshal(args[0].Raw())
			if err != nil {
				return value.Value{}, err
			}
			return value.NewString(string(b)), nil
		}),
	}
}

type argError struct{ fn string }

func (e *argError) Error() string { return "invalid argument to " + e.fn }

func errInvalidArg(fn string) error { return &argError{fn: fn} }

func spec1(name string, invoke func([]value.Value) (value.Value, error)) registry.FuncSpec {
	return registry.FuncSpec{Name: name, Arity: 1, Kinds: []registry.ArgKind{registry.ArgScalar}, Invoke: invoke}
}

func spec2(name string, invoke func([]value.Value) (value.Value, error)) registry.FuncSpec {
	return registry.FuncSpec{
		Name:   name,
		Arity:  2,
		Kinds:  []registry.ArgKind{registry.ArgScalar, registry.ArgScalar},
		Invoke: invoke,
	}
}

func parseISO(v value.Value) (time.Time, error) {
	return time.Parse(time.RFC3339, v.String())
}

func dateCompare(cmp func(a, b time.Time) bool) func([]value.Value) (value.Value, error) {
	return func(args []value.Value) (value.Value, error) {
		a, err := parseISO(args[0])
		if err != nil {
			return value.Value{}, err
		}
		b, err := parseISO(args[1])
		if err != nil {
			return value.Value{}, err
		}
		return value.NewBool(cmp(a, b)), nil
	}
}
