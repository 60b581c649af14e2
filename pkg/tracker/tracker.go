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

// Package tracker turns a plain data graph into an observable one. Reads
// through a tracked node lazily wrap nested records and sequences, and every
// write anywhere in the graph is reported to the listeners of the Tracker
// as a Change carrying the property path from the tracked root.
//
// A Tracker is not safe for concurrent use. Callers that mutate a tracked
// graph from several goroutines must serialize the mutations themselves.
package tracker

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"unsafe"

	"github.com/yorkie-team/shareobj/pkg/emitter"
	"github.com/yorkie-team/shareobj/pkg/errors"
	"github.com/yorkie-team/shareobj/pkg/plain"
)

var (
	// ErrInvalidValue is returned when a value other than a record or a
	// sequence is tracked.
	ErrInvalidValue = errors.InvalidArgument("value is not a record or a sequence").WithCode("ErrInvalidValue")

	// ErrPathNotFound is returned when Lookup cannot resolve a path.
	ErrPathNotFound = errors.NotFound("path does not resolve").WithCode("ErrPathNotFound")
)

// Change is a single property write inside a tracked graph.
type Change struct {
	// Path is the chain of property names from the tracked root to the
	// written property. Sequence indexes are in their decimal string form
	// and a sequence's length is named plain.LengthKey.
	Path []string

	// Value is the assigned value. It is never a wrapper.
	Value any
}

// Node is a tracked record or sequence.
type Node interface {
	// Raw returns the plain node behind this wrapper.
	Raw() any

	// Tracker returns the tracking context this node belongs to.
	Tracker() *Tracker

	// Path returns the property names leading from the root to this node.
	// It follows the node when a write moves it elsewhere in the graph.
	Path() []string

	// Detached returns whether a write removed this node from the graph.
	// Detached nodes still write through to their plain node but report no
	// changes. They stay detached if the node is stored in the graph again.
	Detached() bool

	base() *node
}

// Tracker is the tracking context of one tracked root. It owns the identity
// cache that maps every plain node reached so far to its wrapper, so that
// the same node always yields the same wrapper.
type Tracker struct {
	changes  emitter.Emitter[Change]
	root     Node
	wrappers map[unsafe.Pointer]Node
}

// Track wraps value, which must be a record (map[string]any) or a sequence
// (*[]any, or []any which is boxed into a *[]any), and returns the tracked
// root. Tracking a Node returns it unchanged.
func Track(value any) (Node, error) {
	if n, ok := value.(Node); ok {
		return n, nil
	}

	var raw any
	switch v := value.(type) {
	case map[string]any:
		if v == nil {
			return nil, fmt.Errorf("track nil record: %w", ErrInvalidValue)
		}
		raw = v
	case *[]any:
		if v == nil {
			return nil, fmt.Errorf("track nil sequence: %w", ErrInvalidValue)
		}
		raw = v
	case []any:
		raw = &v
	default:
		return nil, fmt.Errorf("track %T: %w", value, ErrInvalidValue)
	}

	t := &Tracker{wrappers: make(map[unsafe.Pointer]Node)}
	t.root = t.wrap(raw, nil, false)
	return t.root, nil
}

// Root returns the tracked root.
func (t *Tracker) Root() Node {
	return t.root
}

// OnChange registers fn to be called synchronously after every write.
func (t *Tracker) OnChange(fn func(Change)) emitter.ListenerID {
	return t.changes.On(fn)
}

// RemoveListener removes a listener registered with OnChange.
func (t *Tracker) RemoveListener(id emitter.ListenerID) bool {
	return t.changes.RemoveListener(id)
}

// Listeners returns the number of registered change listeners.
func (t *Tracker) Listeners() int {
	return t.changes.Len()
}

// wrap returns the wrapper of raw, creating and caching it on first access.
// Wrappers created under a detached parent are detached and never cached.
func (t *Tracker) wrap(raw any, path []string, detached bool) Node {
	id := identity(raw)
	if !detached {
		if w, ok := t.wrappers[id]; ok {
			return w
		}
	}

	base := node{tracker: t, path: path, detached: detached}
	var w Node
	switch r := raw.(type) {
	case map[string]any:
		w = &Object{node: base, raw: r}
	case *[]any:
		w = &Array{node: base, raw: r}
	default:
		panic(fmt.Sprintf("tracker: cannot wrap %T", raw))
	}

	if !detached {
		t.wrappers[id] = w
	}
	return w
}

// relocate rewrites the paths of the cached wrappers reached through the
// keys of moves under parent, after the nodes stored under those keys moved
// to the mapped paths. Wrappers under a key mapped to nil are looked up in
// the current graph: those still reachable take the path they are found at,
// the others are detached and evicted.
func (t *Tracker) relocate(parent []string, moves map[string][]string) {
	if len(moves) == 0 {
		return
	}

	depth := len(parent)
	orphans := make(map[unsafe.Pointer]*node)
	for id, w := range t.wrappers {
		if w == t.root {
			continue
		}

		b := w.base()
		if len(b.path) <= depth || !hasPrefix(b.path, parent) {
			continue
		}
		target, ok := moves[b.path[depth]]
		if !ok {
			continue
		}
		if target == nil {
			orphans[id] = b
			continue
		}

		path := make([]string, 0, len(target)+len(b.path)-depth-1)
		path = append(path, target...)
		b.path = append(path, b.path[depth+1:]...)
	}

	if len(orphans) == 0 {
		return
	}
	found := t.locate(orphans)
	for id, b := range orphans {
		if path, ok := found[id]; ok {
			b.path = path
			continue
		}
		b.detached = true
		delete(t.wrappers, id)
	}
}

// locate returns the shortest path from the root to each of the given nodes
// that is reachable in the current graph.
func (t *Tracker) locate(nodes map[unsafe.Pointer]*node) map[unsafe.Pointer][]string {
	type entry struct {
		value any
		path  []string
	}

	found := make(map[unsafe.Pointer][]string)
	visited := make(map[unsafe.Pointer]bool)
	queue := []entry{{value: t.root.Raw(), path: []string{}}}
	for len(queue) > 0 && len(found) < len(nodes) {
		e := queue[0]
		queue = queue[1:]

		id := identity(e.value)
		if id == nil || visited[id] {
			continue
		}
		visited[id] = true
		if _, ok := nodes[id]; ok {
			found[id] = e.path
		}

		step := func(key string, v any) {
			if !plain.IsContainer(v) {
				return
			}
			path := make([]string, len(e.path)+1)
			copy(path, e.path)
			path[len(e.path)] = key
			queue = append(queue, entry{value: v, path: path})
		}
		if rec, ok := e.value.(map[string]any); ok {
			keys := make([]string, 0, len(rec))
			for k := range rec {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				step(k, rec[k])
			}
		} else if elems, ok := plain.Sequence(e.value); ok {
			for i, elem := range elems {
				step(strconv.Itoa(i), elem)
			}
		}
	}
	return found
}

// Lookup resolves path from n through wrappers and returns the value found,
// which is a Node for records and sequences.
func Lookup(n Node, path []string) (any, error) {
	var current any = n
	for i, segment := range path {
		switch c := current.(type) {
		case *Object:
			if !c.Has(segment) {
				return nil, fmt.Errorf("lookup %v at %d: %w", path, i, ErrPathNotFound)
			}
			current = c.Get(segment)
		case *Array:
			idx, ok := plain.IndexOf(segment)
			if !ok || idx >= c.Len() {
				return nil, fmt.Errorf("lookup %v at %d: %w", path, i, ErrPathNotFound)
			}
			current = c.Get(idx)
		default:
			return nil, fmt.Errorf("lookup %v at %d: %w", path, i, ErrPathNotFound)
		}
	}
	return current, nil
}

// node holds what every wrapper shares: its context and the path that led
// to it.
type node struct {
	tracker  *Tracker
	path     []string
	detached bool
}

// Tracker returns the tracking context of this node.
func (n *node) Tracker() *Tracker {
	return n.tracker
}

// Path returns a copy of the path from the root to this node.
func (n *node) Path() []string {
	return append([]string{}, n.path...)
}

// Detached returns whether this node was cut from the graph.
func (n *node) Detached() bool {
	return n.detached
}

func (n *node) base() *node {
	return n
}

func (n *node) childPath(key string) []string {
	path := make([]string, len(n.path)+1)
	copy(path, n.path)
	path[len(n.path)] = key
	return path
}

// child returns the value of the property key, wrapping records and
// sequences. store is called to box a bare []any in place.
func (n *node) child(key string, v any, store func(any)) any {
	switch c := v.(type) {
	case map[string]any:
		if c == nil {
			return v
		}
		return n.tracker.wrap(c, n.childPath(key), n.detached)
	case *[]any:
		if c == nil {
			return v
		}
		return n.tracker.wrap(c, n.childPath(key), n.detached)
	case []any:
		boxed := &c
		store(boxed)
		return n.tracker.wrap(boxed, n.childPath(key), n.detached)
	default:
		return v
	}
}

// displaced is a container that a write removed from the property key.
type displaced struct {
	key string
	old any
}

// relink keeps the cached wrappers of displaced containers in step with the
// graph. where may tell the new path of a container without searching the
// graph. Containers it cannot place are searched for, and detached along
// with what is cached below them if they left the graph.
func (n *node) relink(olds []displaced, where func(old any) ([]string, bool)) {
	if n.detached {
		return
	}

	moves := make(map[string][]string)
	for _, d := range olds {
		w, ok := n.tracker.wrappers[identity(d.old)]
		if !ok || !equalPath(w.base().path, n.childPath(d.key)) {
			continue
		}

		var path []string
		if where != nil {
			if p, found := where(d.old); found {
				path = p
			}
		}
		moves[d.key] = path
	}
	n.tracker.relocate(n.path, moves)
}

// replaced relinks the container a write of value under key replaced.
func (n *node) replaced(key string, old, value any) {
	if !plain.IsContainer(old) {
		return
	}
	if plain.IsContainer(value) && identity(old) == identity(value) {
		return
	}
	n.relink([]displaced{{key: key, old: old}}, nil)
}

func (n *node) emit(key string, value any) {
	if n.detached {
		return
	}
	n.tracker.changes.Emit(Change{Path: n.childPath(key), Value: value})
}

// identity returns the address that identifies a record or a sequence.
func identity(v any) unsafe.Pointer {
	switch c := v.(type) {
	case *[]any:
		return unsafe.Pointer(c)
	case map[string]any, []any:
		return reflect.ValueOf(c).UnsafePointer()
	default:
		return nil
	}
}

func equalPath(a, b []string) bool {
	return len(a) == len(b) && hasPrefix(a, b)
}

func hasPrefix(path, prefix []string) bool {
	if len(path) < len(prefix) {
		return false
	}
	for i := range prefix {
		if path[i] != prefix[i] {
			return false
		}
	}
	return true
}
