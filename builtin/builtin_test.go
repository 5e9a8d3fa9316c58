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

package builtin

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KSD-CO/rule-engine-postgres-sub001/value"
)

func TestDefaultStringFamily(t *testing.T) {
	reg := Default()

	upper, ok := reg.Lookup("upper")
	require.True(t, ok)
	out, err := upper.Invoke([]value.Value{value.NewString("abc")})
	require.NoError(t, err)
	require.Equal(t, "ABC", out.String())

	contains, ok := reg.Lookup("contains")
	require.True(t, ok)
	out, err = contains.Invoke([]value.Value{value.NewString("hello world"), value.NewString("world")})
	require.NoError(t, err)
	require.True(t, out.Bool())

	concat, ok := reg.Lookup("concat")
	require.True(t, ok)
	out, err = concat.Invoke([]value.Value{value.NewString("a"), value.NewString("b"), value.NewString("c")})
	require.NoError(t, err)
	require.Equal(t, "abc", out.String())
}

func TestDefaultMathFamily(t *testing.T) {
	reg := Default()

	abs, ok := reg.Lookup("abs")
	require.True(t, ok)
	out, err := abs.Invoke([]value.Value{value.NewFloat(-4.5)})
	require.NoError(t, err)
	f, _ := out.AsFloat()
	require.Equal(t, 4.5, f)

	max, ok := reg.Lookup("max")
	require.True(t, ok)
	out, err = max.Invoke([]value.Value{value.NewInt(3), value.NewInt(7)})
	require.NoError(t, err)
	f, _ = out.AsFloat()
	require.Equal(t, 7.0, f)

	round, ok := reg.Lookup("round")
	require.True(t, ok)
	out, err = round.Invoke([]value.Value{value.NewFloat(2.6)})
	require.NoError(t, err)
	require.Equal(t, int64(3), out.Int())
}

func TestDefaultDateFamily(t *testing.T) {
	reg := Default()

	before, ok := reg.Lookup("dateBefore")
	require.True(t, ok)
	out, err := before.Invoke([]value.Value{
		value.NewString("2020-01-01T00:00:00Z"),
		value.NewString("2021-01-01T00:00:00Z"),
	})
	require.NoError(t, err)
	require.True(t, out.Bool())

	days, ok := reg.Lookup("daysBetween")
	require.True(t, ok)
	out, err = days.Invoke([]value.Value{
		value.NewString("2020-01-01T00:00:00Z"),
		value.NewString("2020-01-11T00:00:00Z"),
	})
	require.NoError(t, err)
	require.Equal(t, int64(10), out.Int())
}

func TestDefaultJSONFamily(t *testing.T) {
	reg := Default()

	obj := value.NewObject(map[string]value.Value{"a": value.NewInt(1)})

	has, ok := reg.Lookup("jsonHas")
	require.True(t, ok)
	out, err := has.Invoke([]value.Value{obj, value.NewString("a")})
	require.NoError(t, err)
	require.True(t, out.Bool())

	length, ok := reg.Lookup("jsonLen")
	require.True(t, ok)
	out, err = length.Invoke([]value.Value{obj})
	require.NoError(t, err)
	require.Equal(t, int64(1), out.Int())

	encode, ok := reg.Lookup("jsonEncode")
	require.True(t, ok)
	out, err = encode.Invoke([]value.Value{value.NewInt(42)})
	require.NoError(t, err)
	require.Equal(t, "42", out.String())
}

func TestDefaultMathFamilyRejectsNonNumeric(t *testing.T) {
	reg := Default()
	abs, ok := reg.Lookup("abs")
	require.True(t, ok)
	_, err := abs.Invoke([]value.Value{value.NewString("x")})
	require.Error(t, err)
}
