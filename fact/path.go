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

package fact

import (
	"strconv"
	"strings"
)

// Segment is one step of a dotted fact path: either an object field name or
// an array index (`Customer.orders.0.total`, §3 "Fact").
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// Path is a parsed dotted/bracketed fact-tree path.
type Path []Segment

// String renders the path back to its canonical dotted form, used by the
// canonical printer (§8 "Round-trip").
func (p Path) String() string {
	var b strings.Builder
	for i, seg := range p {
		if seg.IsIndex {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(seg.Index))
			b.WriteByte(']')
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg.Key)
	}
	return b.String()
}

// ParsePath splits a raw path string such as "Customer.orders.0.total" or
// "Customer.orders[0].total" into Segments. Bare numeric components between
// dots are treated as array indices, matching §4.1's PATH grammar
// ("identifier followed by dotted identifiers or bracketed integers").
func ParsePath(raw string) (Path, error) {
	var out Path
	i := 0
	n := len(raw)
	expectKey := true
	for i < n {
		switch {
		case raw[i] == '.':
			i++
			expectKey = true
		case raw[i] == '[':
			j := strings.IndexByte(raw[i:], ']')
			if j < 0 {
				return nil, &PathError{Raw: raw, Message: "unterminated '[' in path"}
			}
			numStr := raw[i+1 : i+j]
			idx, err := strconv.Atoi(numStr)
			if err != nil {
				return nil, &PathError{Raw: raw, Message: "non-integer array index: " + numStr}
			}
			out = append(out, Segment{Index: idx, IsIndex: true})
			i += j + 1
			expectKey = false
		default:
			start := i
			for i < n && raw[i] != '.' && raw[i] != '[' {
				i++
			}
			tok := raw[start:i]
			if tok == "" {
				return nil, &PathError{Raw: raw, Message: "empty path segment"}
			}
			if idx, err := strconv.Atoi(tok); err == nil {
				out = append(out, Segment{Index: idx, IsIndex: true})
			} else {
				out = append(out, Segment{Key: tok})
			}
			expectKey = false
		}
	}
	if expectKey && len(out) > 0 {
		return nil, &PathError{Raw: raw, Message: "trailing '.' in path"}
	}
	if len(out) == 0 {
		return nil, &PathError{Raw: raw, Message: "empty path"}
	}
	return out, nil
}

// PathError reports a malformed fact path.
type PathError struct {
	Raw     string
	Message string
}

func (e *PathError) Error() string {
	return "invalid path " + strconv.Quote(e.Raw) + ": " + e.Message
}
