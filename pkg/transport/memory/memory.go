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

// Package memory provides in-process channels that deliver events
// synchronously, for tests and for wiring a publisher and subscribers inside
// one process.
package memory

import (
	"sync/atomic"

	"github.com/yorkie-team/shareobj/pkg/transport"
)

// Channel is one endpoint of an in-process channel.
type Channel struct {
	handlers transport.Registry
	peer     *Channel
	closed   atomic.Bool
}

// NewPipe returns two connected endpoints. Emitting on one delivers to the
// handlers registered on the other.
func NewPipe() (*Channel, *Channel) {
	a, b := &Channel{}, &Channel{}
	a.peer, b.peer = b, a
	return a, b
}

// NewLoopback returns an endpoint that delivers its emissions to its own
// handlers.
func NewLoopback() *Channel {
	ch := &Channel{}
	ch.peer = ch
	return ch
}

// On registers handler for event.
func (c *Channel) On(event string, handler transport.Handler) transport.ListenerID {
	return c.handlers.Add(event, handler)
}

// RemoveListener removes the handler of the given id from event.
func (c *Channel) RemoveListener(event string, id transport.ListenerID) {
	c.handlers.Remove(event, id)
}

// Emit encodes payload and dispatches it to the peer before returning. The
// errors of the peer's handlers are returned.
func (c *Channel) Emit(event string, payload any) error {
	if c.closed.Load() || c.peer.closed.Load() {
		return transport.ErrClosed
	}

	encoded, err := transport.Encode(payload)
	if err != nil {
		return err
	}
	return c.peer.handlers.Dispatch(event, encoded)
}

// Handlers returns the number of handlers registered for event.
func (c *Channel) Handlers(event string) int {
	return c.handlers.Handlers(event)
}

// Close closes the endpoint. Emitting on either end fails afterwards.
func (c *Channel) Close() error {
	c.closed.Store(true)
	return nil
}
