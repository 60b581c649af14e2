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

package plain

import (
	"math/big"
	"reflect"
	"unsafe"
)

// Clean returns a deep, tracking-free snapshot of v that is safe to put on
// the wire. Records become fresh map[string]any, sequences of any element
// type become fresh []any, wrappers are unwrapped and non-data members
// (functions, channels, structs, complex numbers, maps with non-string keys)
// are dropped. A dropped sequence element becomes nil so that indexes stay
// aligned with the source.
func Clean(v any) (any, error) {
	c := &cleaner{visiting: make(map[unsafe.Pointer]bool)}
	cleaned, _, err := c.clean(v)
	return cleaned, err
}

type cleaner struct {
	visiting map[unsafe.Pointer]bool
}

// clean returns the snapshot of v and whether v is data at all.
func (c *cleaner) clean(v any) (any, bool, error) {
	switch val := v.(type) {
	case nil:
		return nil, true, nil
	case Unwrapper:
		return c.clean(val.Raw())
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return val, true, nil
	case *big.Int:
		if val == nil {
			return nil, true, nil
		}
		return new(big.Int).Set(val), true, nil
	case big.Int:
		return new(big.Int).Set(&val), true, nil
	case []byte:
		if val == nil {
			return nil, true, nil
		}
		return append([]byte{}, val...), true, nil
	case map[string]any:
		if val == nil {
			return nil, true, nil
		}
		return c.cleanRecord(reflect.ValueOf(val))
	case *[]any:
		if val == nil {
			return nil, true, nil
		}
		return c.cleanSequence(unsafe.Pointer(val), reflect.ValueOf(*val))
	}

	return c.cleanReflect(reflect.ValueOf(v))
}

func (c *cleaner) cleanReflect(rv reflect.Value) (any, bool, error) {
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), true, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint(), true, nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true, nil
	case reflect.String:
		return rv.String(), true, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false, nil
		}
		if rv.IsNil() {
			return nil, true, nil
		}
		return c.cleanRecord(rv)
	case reflect.Slice:
		if rv.IsNil() {
			return nil, true, nil
		}
		var id unsafe.Pointer
		if rv.Len() > 0 {
			id = rv.UnsafePointer()
		}
		return c.cleanSequence(id, rv)
	case reflect.Array:
		return c.cleanSequence(nil, rv)
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, true, nil
		}
		if rv.Kind() == reflect.Pointer {
			id := rv.UnsafePointer()
			if c.visiting[id] {
				return nil, false, ErrCyclicValue
			}
			c.visiting[id] = true
			defer delete(c.visiting, id)
		}
		return c.clean(rv.Elem().Interface())
	default:
		return nil, false, nil
	}
}

func (c *cleaner) cleanRecord(rv reflect.Value) (any, bool, error) {
	id := rv.UnsafePointer()
	if c.visiting[id] {
		return nil, false, ErrCyclicValue
	}
	c.visiting[id] = true
	defer delete(c.visiting, id)

	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		elem, ok, err := c.clean(iter.Value().Interface())
		if err != nil {
			return nil, false, err
		}
		if ok {
			out[iter.Key().String()] = elem
		}
	}
	return out, true, nil
}

func (c *cleaner) cleanSequence(id unsafe.Pointer, rv reflect.Value) (any, bool, error) {
	if id != nil {
		if c.visiting[id] {
			return nil, false, ErrCyclicValue
		}
		c.visiting[id] = true
		defer delete(c.visiting, id)
	}

	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elem, _, err := c.clean(rv.Index(i).Interface())
		if err != nil {
			return nil, false, err
		}
		out[i] = elem
	}
	return out, true, nil
}
