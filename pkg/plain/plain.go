/*
 * Copyright 2026 The Yorkie Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package plain defines the plain data graphs that shareobj replicates and
// the structural helpers both sides of the protocol agree on.
//
// A graph is built from three kinds of nodes:
//
//   - records: map[string]any
//   - sequences: *[]any in live graphs. A bare []any is accepted wherever a
//     graph is read, but it cannot change its length in place, so live
//     graphs box it.
//   - scalars: strings, booleans, every integer and float kind, *big.Int,
//     []byte and nil.
package plain

import (
	gojson "encoding/json"
	"fmt"
	"strconv"

	"github.com/yorkie-team/shareobj/pkg/errors"
)

// LengthKey is the property name of a sequence's length.
const LengthKey = "length"

var (
	// ErrInvalidPath is returned when a change is applied with an empty path.
	ErrInvalidPath = errors.InvalidArgument("path is empty").WithCode("ErrInvalidPath")

	// ErrPathNotFound is returned when a path does not resolve inside the
	// target graph.
	ErrPathNotFound = errors.NotFound("path does not resolve").WithCode("ErrPathNotFound")

	// ErrInvalidLength is returned when a sequence length is not a
	// non-negative integer.
	ErrInvalidLength = errors.InvalidArgument("invalid sequence length").WithCode("ErrInvalidLength")

	// ErrCyclicValue is returned when a graph containing a cycle is
	// snapshotted.
	ErrCyclicValue = errors.InvalidArgument("value contains a cycle").WithCode("ErrCyclicValue")
)

// Unwrapper is implemented by values that stand in for a plain node, such as
// the wrappers of the tracking engine.
type Unwrapper interface {
	Raw() any
}

// Unwrap returns the plain node behind v, or v itself.
func Unwrap(v any) any {
	if u, ok := v.(Unwrapper); ok {
		return u.Raw()
	}
	return v
}

// IsContainer returns whether v is a record or a sequence.
func IsContainer(v any) bool {
	switch v.(type) {
	case map[string]any, *[]any, []any:
		return true
	default:
		return false
	}
}

// Sequence returns the elements of v if v is a sequence.
func Sequence(v any) ([]any, bool) {
	switch s := v.(type) {
	case *[]any:
		if s == nil {
			return nil, false
		}
		return *s, true
	case []any:
		return s, true
	default:
		return nil, false
	}
}

// Normalize converts a decoded wire value into a live graph in place: every
// []any becomes a *[]any. v must be acyclic.
func Normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, elem := range val {
			val[k] = Normalize(elem)
		}
		return val
	case []any:
		for i, elem := range val {
			val[i] = Normalize(elem)
		}
		return &val
	case *[]any:
		if val == nil {
			return val
		}
		for i, elem := range *val {
			(*val)[i] = Normalize(elem)
		}
		return val
	default:
		return v
	}
}

// CleanPath converts a path of property names into its wire form by walking
// root: a segment that steps into a sequence becomes an int index, except
// LengthKey. Segments that step through records stay strings.
func CleanPath(path []string, root any) []any {
	cleaned := make([]any, 0, len(path))
	current := Unwrap(root)

	for _, segment := range path {
		if seq, ok := Sequence(current); ok && segment != LengthKey {
			if idx, ok := IndexOf(segment); ok {
				cleaned = append(cleaned, idx)
				current = nil
				if idx < len(seq) {
					current = Unwrap(seq[idx])
				}
				continue
			}
		}

		cleaned = append(cleaned, segment)
		current, _ = childAt(current, segment)
		current = Unwrap(current)
	}

	return cleaned
}

// ApplyPath assigns value to the property named by the last segment of path
// inside target. Intermediate nodes must exist, none are created. Sequences
// grow when an index past their end is written and are truncated or padded
// when LengthKey is written.
func ApplyPath(target any, path []any, value any) error {
	if len(path) == 0 {
		return ErrInvalidPath
	}

	parent := target
	for i, segment := range path[:len(path)-1] {
		child, ok := childAt(parent, segment)
		if !ok {
			return fmt.Errorf("apply %v at %d: %w", path, i, ErrPathNotFound)
		}
		parent = child
	}

	if err := assign(parent, path[len(path)-1], Normalize(value)); err != nil {
		return fmt.Errorf("apply %v: %w", path, err)
	}
	return nil
}

// Marshal returns the JSON text of a graph.
func Marshal(v any) (string, error) {
	bytes, err := gojson.Marshal(Unwrap(v))
	if err != nil {
		return "", fmt.Errorf("marshal graph: %w", err)
	}
	return string(bytes), nil
}

func childAt(container any, segment any) (any, bool) {
	switch c := container.(type) {
	case map[string]any:
		key, ok := keyOf(segment)
		if !ok {
			return nil, false
		}
		child, ok := c[key]
		return child, ok
	case *[]any, []any:
		seq, _ := Sequence(c)
		idx, ok := IndexOf(segment)
		if !ok || idx >= len(seq) {
			return nil, false
		}
		return seq[idx], true
	default:
		return nil, false
	}
}

func assign(container any, segment any, value any) error {
	switch c := container.(type) {
	case map[string]any:
		key, ok := keyOf(segment)
		if !ok {
			return ErrPathNotFound
		}
		c[key] = value
		return nil
	case *[]any:
		if c == nil {
			return ErrPathNotFound
		}
		if segment == LengthKey {
			n, ok := IndexOf(value)
			if !ok {
				return ErrInvalidLength
			}
			*c = Resize(*c, n)
			return nil
		}
		idx, ok := IndexOf(segment)
		if !ok {
			return ErrPathNotFound
		}
		if idx >= len(*c) {
			*c = Resize(*c, idx+1)
		}
		(*c)[idx] = value
		return nil
	case []any:
		idx, ok := IndexOf(segment)
		if !ok || idx >= len(c) {
			return ErrPathNotFound
		}
		c[idx] = value
		return nil
	default:
		return ErrPathNotFound
	}
}

// Resize returns s truncated or padded with nil to n elements. Truncated
// slots are cleared so that dropped nodes can be collected.
func Resize(s []any, n int) []any {
	if n <= len(s) {
		for i := n; i < len(s); i++ {
			s[i] = nil
		}
		return s[:n]
	}
	for len(s) < n {
		s = append(s, nil)
	}
	return s
}

// IndexOf converts a path segment or a length value into a non-negative int.
func IndexOf(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, n >= 0
	case int64:
		return int(n), n >= 0
	case uint64:
		return int(n), n <= uint64(maxInt)
	case int32:
		return int(n), n >= 0
	case uint32:
		return int(n), true
	case float64:
		if n < 0 || n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case string:
		idx, err := strconv.Atoi(n)
		if err != nil || idx < 0 || strconv.Itoa(idx) != n {
			return 0, false
		}
		return idx, true
	default:
		return 0, false
	}
}

const maxInt = int(^uint(0) >> 1)

func keyOf(segment any) (string, bool) {
	switch s := segment.(type) {
	case string:
		return s, true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	default:
		return "", false
	}
}
