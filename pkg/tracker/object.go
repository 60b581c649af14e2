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

package tracker

import (
	"sort"

	"github.com/yorkie-team/shareobj/pkg/plain"
)

// Object is a tracked record.
type Object struct {
	node
	raw map[string]any
}

// Raw returns the plain record behind this wrapper.
func (o *Object) Raw() any {
	return o.raw
}

// Get returns the value of key. Records and sequences are returned as
// wrappers, everything else as is. A missing key yields nil.
func (o *Object) Get(key string) any {
	v, ok := o.raw[key]
	if !ok {
		return nil
	}
	return o.child(key, v, func(boxed any) { o.raw[key] = boxed })
}

// GetObject returns the record under key, or nil if key does not hold one.
func (o *Object) GetObject(key string) *Object {
	obj, _ := o.Get(key).(*Object)
	return obj
}

// GetArray returns the sequence under key, or nil if key does not hold one.
func (o *Object) GetArray(key string) *Array {
	arr, _ := o.Get(key).(*Array)
	return arr
}

// Has returns whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.raw[key]
	return ok
}

// Keys returns the keys of the record in sorted order.
func (o *Object) Keys() []string {
	keys := make([]string, 0, len(o.raw))
	for k := range o.raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of keys.
func (o *Object) Len() int {
	return len(o.raw)
}

// Set assigns value to key and reports the write. A wrapper is stored as its
// plain node.
func (o *Object) Set(key string, value any) {
	value = plain.Unwrap(value)
	old, had := o.raw[key]
	o.raw[key] = value

	if had {
		o.replaced(key, old, value)
	}
	o.emit(key, value)
}
