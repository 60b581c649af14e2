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

package server

import (
	"bytes"
	gojson "encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/yorkie-team/shareobj/pkg/errors"
	"github.com/yorkie-team/shareobj/pkg/plain"
	"github.com/yorkie-team/shareobj/pkg/tracker"
)

var (
	// ErrUnknownCommand is returned by Exec for a command it does not know.
	ErrUnknownCommand = errors.InvalidArgument("unknown command").WithCode("ErrUnknownCommand")

	// ErrInvalidCommand is returned by Exec for malformed arguments.
	ErrInvalidCommand = errors.InvalidArgument("invalid command").WithCode("ErrInvalidCommand")
)

// Exec runs one textual command against the document and returns its
// output. Paths are dotted property names from the root, "." being the root
// itself. Values are JSON.
//
//	get [path]
//	set <path> <json>
//	push <path> <json>
//	pop <path>
func (s *Server) Exec(line string) (string, error) {
	cmd, rest := cutWord(line)
	path, raw := cutWord(rest)

	switch cmd {
	case "":
		return "", nil
	case "get":
		if raw != "" {
			return "", fmt.Errorf("get takes at most a path: %w", ErrInvalidCommand)
		}
		var out string
		err := s.Update(func(doc tracker.Node) error {
			value, err := tracker.Lookup(doc, splitPath(path))
			if err != nil {
				return err
			}
			out, err = plain.Marshal(value)
			return err
		})
		return out, err
	case "set", "push":
		if path == "" || raw == "" {
			return "", fmt.Errorf("%s takes a path and a value: %w", cmd, ErrInvalidCommand)
		}
		value, err := parseJSON([]byte(raw))
		if err != nil {
			return "", fmt.Errorf("%s %s: %v: %w", cmd, path, err, ErrInvalidCommand)
		}
		if cmd == "set" {
			return "", s.Update(func(doc tracker.Node) error {
				return set(doc, splitPath(path), value)
			})
		}
		return "", s.Update(func(doc tracker.Node) error {
			arr, err := lookupArray(doc, path)
			if err != nil {
				return err
			}
			arr.Push(value)
			return nil
		})
	case "pop":
		if path == "" || raw != "" {
			return "", fmt.Errorf("pop takes a path: %w", ErrInvalidCommand)
		}
		var out string
		err := s.Update(func(doc tracker.Node) error {
			arr, err := lookupArray(doc, path)
			if err != nil {
				return err
			}
			out, err = plain.Marshal(arr.Pop())
			return err
		})
		return out, err
	default:
		return "", fmt.Errorf("%q: %w", cmd, ErrUnknownCommand)
	}
}

// cutWord splits the first whitespace separated word off s.
func cutWord(s string) (string, string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexFunc(s, unicode.IsSpace); i >= 0 {
		return s[:i], strings.TrimSpace(s[i:])
	}
	return s, ""
}

func set(doc tracker.Node, path []string, value any) error {
	if len(path) == 0 {
		return fmt.Errorf("set the root: %w", ErrInvalidCommand)
	}

	parent, err := tracker.Lookup(doc, path[:len(path)-1])
	if err != nil {
		return err
	}

	key := path[len(path)-1]
	switch p := parent.(type) {
	case *tracker.Object:
		p.Set(key, value)
	case *tracker.Array:
		if key == plain.LengthKey {
			n, ok := plain.IndexOf(value)
			if !ok {
				return fmt.Errorf("set %v: %w", path, plain.ErrInvalidLength)
			}
			p.SetLength(n)
			return nil
		}
		idx, ok := plain.IndexOf(key)
		if !ok {
			return fmt.Errorf("set %v: index %q: %w", path, key, ErrInvalidCommand)
		}
		p.Set(idx, value)
	default:
		return fmt.Errorf("set %v: %w", path, tracker.ErrPathNotFound)
	}
	return nil
}

func lookupArray(doc tracker.Node, path string) (*tracker.Array, error) {
	value, err := tracker.Lookup(doc, splitPath(path))
	if err != nil {
		return nil, err
	}
	arr, ok := value.(*tracker.Array)
	if !ok {
		return nil, fmt.Errorf("%s is not a sequence: %w", path, ErrInvalidCommand)
	}
	return arr, nil
}

func splitPath(path string) []string {
	path = strings.Trim(path, ".")
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// parseJSON decodes JSON text into a live graph. Integral numbers become
// int64, other numbers float64.
func parseJSON(data []byte) (any, error) {
	decoder := gojson.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if decoder.More() {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return plain.Normalize(numbers(value)), nil
}

func numbers(v any) any {
	switch val := v.(type) {
	case gojson.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	case map[string]any:
		for k, elem := range val {
			val[k] = numbers(elem)
		}
		return val
	case []any:
		for i, elem := range val {
			val[i] = numbers(elem)
		}
		return val
	default:
		return v
	}
}
