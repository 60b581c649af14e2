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

// Package transport defines the bidirectional, named-event channel the
// replication protocol runs over, together with the pieces every channel
// implementation shares.
package transport

import (
	"fmt"
	"sync"

	"github.com/yorkie-team/shareobj/pkg/codec"
	"github.com/yorkie-team/shareobj/pkg/errors"
)

var (
	// ErrClosed is returned when emitting on a closed channel.
	ErrClosed = errors.Unavailable("channel is closed").WithCode("ErrClosed")
)

// ListenerID identifies a handler registered on a Channel.
type ListenerID uint64

// Payload is the encoded form of an emitted value. Handlers decode it into
// their own copy, so no reference held by the emitter survives transmission.
type Payload []byte

// Encode encodes v into a Payload.
func Encode(v any) (Payload, error) {
	data, err := codec.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return data, nil
}

// Decode decodes the payload into v.
func (p Payload) Decode(v any) error {
	if err := codec.Unmarshal(p, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// String returns the diagnostic notation of the payload.
func (p Payload) String() string {
	s, err := codec.Diagnose(p)
	if err != nil {
		return fmt.Sprintf("<invalid payload: %d bytes>", len(p))
	}
	return s
}

// Handler handles the payload of one event.
type Handler func(Payload) error

// Channel is a bidirectional message channel carrying named events.
// Emissions on a channel are delivered in order. Implementations must be
// pointer types: bindings keep per-channel state keyed by the channel.
type Channel interface {
	// On registers handler for event and returns its id.
	On(event string, handler Handler) ListenerID

	// RemoveListener removes the handler of the given id from event.
	RemoveListener(event string, id ListenerID)

	// Emit sends payload, encoded, to the handlers of event on the other
	// end of the channel.
	Emit(event string, payload any) error
}

type entry struct {
	id      ListenerID
	handler Handler
}

// Registry is a table of event handlers. It is safe for concurrent use and
// its zero value is ready to use.
type Registry struct {
	mu       sync.RWMutex
	lastID   ListenerID
	handlers map[string][]entry
}

// Add registers handler for event.
func (r *Registry) Add(event string, handler Handler) ListenerID {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handlers == nil {
		r.handlers = make(map[string][]entry)
	}
	r.lastID++
	r.handlers[event] = append(r.handlers[event], entry{id: r.lastID, handler: handler})
	return r.lastID
}

// Remove removes the handler of the given id from event.
func (r *Registry) Remove(event string, id ListenerID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.handlers[event]
	for i, e := range entries {
		if e.id == id {
			entries = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
	if len(entries) == 0 {
		delete(r.handlers, event)
		return
	}
	r.handlers[event] = entries
}

// Handlers returns the number of handlers registered for event.
func (r *Registry) Handlers(event string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.handlers[event])
}

// Dispatch calls the handlers of event in registration order and returns
// their errors joined. Handlers added or removed during Dispatch take effect
// from the next call.
func (r *Registry) Dispatch(event string, payload Payload) error {
	r.mu.RLock()
	entries := r.handlers[event]
	r.mu.RUnlock()

	var errs []error
	for _, e := range entries {
		if err := e.handler(payload); err != nil {
			errs = append(errs, fmt.Errorf("handle %s: %w", event, err))
		}
	}
	return errors.Join(errs...)
}
