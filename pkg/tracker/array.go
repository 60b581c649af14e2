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
	"fmt"
	"strconv"
	"unsafe"

	"github.com/yorkie-team/shareobj/pkg/plain"
)

// Array is a tracked sequence. Its methods mirror the writes a sequence can
// go through and report them the way an element-by-element rewrite would:
// one change per written index in ascending order, followed by a change of
// plain.LengthKey when the length is set.
type Array struct {
	node
	raw *[]any
}

// Raw returns the plain sequence behind this wrapper.
func (a *Array) Raw() any {
	return a.raw
}

// Len returns the number of elements.
func (a *Array) Len() int {
	return len(*a.raw)
}

// Get returns the element at i, wrapping records and sequences. An index
// out of range yields nil.
func (a *Array) Get(i int) any {
	if i < 0 || i >= len(*a.raw) {
		return nil
	}
	return a.child(strconv.Itoa(i), (*a.raw)[i], func(boxed any) { (*a.raw)[i] = boxed })
}

// GetObject returns the record at i, or nil if i does not hold one.
func (a *Array) GetObject(i int) *Object {
	obj, _ := a.Get(i).(*Object)
	return obj
}

// GetArray returns the sequence at i, or nil if i does not hold one.
func (a *Array) GetArray(i int) *Array {
	arr, _ := a.Get(i).(*Array)
	return arr
}

// Set assigns value to index i. Writing past the end grows the sequence with
// nil holes and reports the index only.
func (a *Array) Set(i int, value any) {
	checkIndex(i)
	value = plain.Unwrap(value)

	var old any
	if i < len(*a.raw) {
		old = (*a.raw)[i]
	} else {
		*a.raw = plain.Resize(*a.raw, i+1)
	}
	(*a.raw)[i] = value

	key := strconv.Itoa(i)
	a.replaced(key, old, value)
	a.emit(key, value)
}

// SetLength truncates or pads the sequence to n elements.
func (a *Array) SetLength(n int) {
	checkIndex(n)

	olds := append([]any{}, *a.raw...)
	*a.raw = plain.Resize(*a.raw, n)
	a.moved(olds)
	a.emit(plain.LengthKey, n)
}

// Push appends values and returns the new length.
func (a *Array) Push(values ...any) int {
	start := len(*a.raw)
	for _, v := range values {
		*a.raw = append(*a.raw, plain.Unwrap(v))
	}

	a.rewritten(start, len(*a.raw))
	a.emit(plain.LengthKey, len(*a.raw))
	return len(*a.raw)
}

// Pop removes and returns the last element. Popping an empty sequence
// returns nil and still reports its length.
func (a *Array) Pop() any {
	n := len(*a.raw)
	if n == 0 {
		a.emit(plain.LengthKey, 0)
		return nil
	}

	last := (*a.raw)[n-1]
	*a.raw = plain.Resize(*a.raw, n-1)
	a.replaced(strconv.Itoa(n-1), last, nil)
	a.emit(plain.LengthKey, n-1)
	return last
}

// Unshift prepends values and returns the new length. Every index of the
// grown sequence is rewritten.
func (a *Array) Unshift(values ...any) int {
	olds := append([]any{}, *a.raw...)
	if len(values) == 0 {
		a.emit(plain.LengthKey, len(olds))
		return len(olds)
	}

	s := make([]any, 0, len(values)+len(olds))
	for _, v := range values {
		s = append(s, plain.Unwrap(v))
	}
	s = append(s, olds...)
	*a.raw = s

	a.moved(olds)
	a.rewritten(0, len(s))
	a.emit(plain.LengthKey, len(s))
	return len(s)
}

// Shift removes and returns the first element. Every remaining index is
// rewritten.
func (a *Array) Shift() any {
	olds := append([]any{}, *a.raw...)
	if len(olds) == 0 {
		a.emit(plain.LengthKey, 0)
		return nil
	}

	first := olds[0]
	s := *a.raw
	copy(s, s[1:])
	*a.raw = plain.Resize(s, len(olds)-1)

	a.moved(olds)
	a.rewritten(0, len(olds)-1)
	a.emit(plain.LengthKey, len(olds)-1)
	return first
}

// Splice removes deleteCount elements from start, inserts items in their
// place and returns the removed elements. A negative start counts from the
// end. Out of range arguments are clamped.
func (a *Array) Splice(start, deleteCount int, items ...any) []any {
	olds := append([]any{}, *a.raw...)
	n := len(olds)

	if start < 0 {
		start = max(n+start, 0)
	} else if start > n {
		start = n
	}
	deleteCount = min(max(deleteCount, 0), n-start)

	removed := append([]any{}, olds[start:start+deleteCount]...)
	s := make([]any, 0, n-deleteCount+len(items))
	s = append(s, olds[:start]...)
	for _, item := range items {
		s = append(s, plain.Unwrap(item))
	}
	s = append(s, olds[start+deleteCount:]...)
	*a.raw = s

	end := start + len(items)
	if len(items) != deleteCount {
		end = len(s)
	}
	a.moved(olds)
	a.rewritten(start, end)
	a.emit(plain.LengthKey, len(s))
	return removed
}

// rewritten reports the indexes [from, to) of the sequence.
func (a *Array) rewritten(from, to int) {
	s := *a.raw
	for i := from; i < to; i++ {
		a.emit(strconv.Itoa(i), s[i])
	}
}

// moved relinks the containers olds held at indexes whose element changed.
// A container still in this sequence follows its first new index.
func (a *Array) moved(olds []any) {
	if a.detached {
		return
	}

	s := *a.raw
	index := make(map[unsafe.Pointer]int, len(s))
	for j := len(s) - 1; j >= 0; j-- {
		if plain.IsContainer(s[j]) {
			index[identity(s[j])] = j
		}
	}

	var gone []displaced
	for i, old := range olds {
		if !plain.IsContainer(old) {
			continue
		}
		if i < len(s) && plain.IsContainer(s[i]) && identity(s[i]) == identity(old) {
			continue
		}
		gone = append(gone, displaced{key: strconv.Itoa(i), old: old})
	}

	a.relink(gone, func(old any) ([]string, bool) {
		j, ok := index[identity(old)]
		if !ok {
			return nil, false
		}
		return a.childPath(strconv.Itoa(j)), true
	})
}

func checkIndex(i int) {
	if i < 0 {
		panic(fmt.Sprintf("tracker: negative index %d", i))
	}
}
