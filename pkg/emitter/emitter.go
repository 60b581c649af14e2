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

// Package emitter provides a typed, synchronous fan-out of events to
// registered listeners.
package emitter

import (
	"sync"
)

// ListenerID identifies a listener registered on an Emitter.
type ListenerID uint64

type listener[E any] struct {
	id   ListenerID
	fn   func(E)
	once bool
}

// Emitter delivers events of type E to its listeners in registration order.
// The zero value is ready to use.
type Emitter[E any] struct {
	mu        sync.Mutex
	lastID    ListenerID
	listeners []listener[E]
}

// On registers fn to be called on every event.
func (e *Emitter[E]) On(fn func(E)) ListenerID {
	return e.add(fn, false)
}

// Once registers fn to be called on the next event only.
func (e *Emitter[E]) Once(fn func(E)) ListenerID {
	return e.add(fn, true)
}

// RemoveListener removes the listener of the given id. It returns false if
// no such listener is registered.
func (e *Emitter[E]) RemoveListener(id ListenerID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, l := range e.listeners {
		if l.id == id {
			e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// Emit calls every listener with event. Listeners registered or removed
// while Emit runs take effect from the next event.
func (e *Emitter[E]) Emit(event E) {
	e.mu.Lock()
	snapshot := e.listeners
	var remaining []listener[E]
	for i, l := range e.listeners {
		if l.once {
			if remaining == nil {
				remaining = append(make([]listener[E], 0, len(e.listeners)), e.listeners[:i]...)
			}
			continue
		}
		if remaining != nil {
			remaining = append(remaining, l)
		}
	}
	if remaining != nil {
		e.listeners = remaining
	}
	e.mu.Unlock()

	for _, l := range snapshot {
		l.fn(event)
	}
}

// Len returns the number of registered listeners.
func (e *Emitter[E]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.listeners)
}

func (e *Emitter[E]) add(fn func(E), once bool) ListenerID {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lastID++
	e.listeners = append(e.listeners, listener[E]{id: e.lastID, fn: fn, once: once})
	return e.lastID
}
