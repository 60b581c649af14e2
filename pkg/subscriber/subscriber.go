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

// Package subscriber keeps local mirrors of the instances a publisher shares
// over a transport channel.
package subscriber

import (
	"fmt"
	"sort"
	"sync"

	"github.com/yorkie-team/shareobj/internal/logging"
	"github.com/yorkie-team/shareobj/pkg/codec"
	"github.com/yorkie-team/shareobj/pkg/emitter"
	"github.com/yorkie-team/shareobj/pkg/errors"
	"github.com/yorkie-team/shareobj/pkg/plain"
	"github.com/yorkie-team/shareobj/pkg/protocol"
	"github.com/yorkie-team/shareobj/pkg/transport"
)

var (
	// ErrDuplicateID is returned when an instance is registered under an id
	// that already has a live mirror.
	ErrDuplicateID = errors.AlreadyExists("duplicate shared instance").WithCode("ErrDuplicateID")
)

// ChangeEvent is a change applied to a mirror.
type ChangeEvent struct {
	Path  []any
	Value any
}

// SharedObject is the local mirror of one shared instance.
type SharedObject struct {
	id   int
	name string

	mu     sync.RWMutex
	object any

	changes  emitter.Emitter[ChangeEvent]
	unshares emitter.Emitter[struct{}]
}

// ID returns the id the publisher assigned to the instance.
func (s *SharedObject) ID() int {
	return s.id
}

// Name returns the name the instance was shared under.
func (s *SharedObject) Name() string {
	return s.name
}

// Object returns the mirrored graph. It is updated in place by the goroutine
// delivering the channel's messages, so reading it elsewhere must be
// synchronized with that goroutine. Snapshot and Decode are safe from any
// goroutine.
func (s *SharedObject) Object() any {
	return s.object
}

// Snapshot returns a deep copy of the mirrored graph.
func (s *SharedObject) Snapshot() (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return plain.Clean(s.object)
}

// OnChange registers fn to be called after every change applied to the
// mirror.
func (s *SharedObject) OnChange(fn func(ChangeEvent)) emitter.ListenerID {
	return s.changes.On(fn)
}

// RemoveChangeListener removes a listener registered with OnChange.
func (s *SharedObject) RemoveChangeListener(id emitter.ListenerID) bool {
	return s.changes.RemoveListener(id)
}

// OnUnshare registers fn to be called when the publisher unshares the
// instance.
func (s *SharedObject) OnUnshare(fn func()) emitter.ListenerID {
	return s.unshares.On(func(struct{}) { fn() })
}

// RemoveUnshareListener removes a listener registered with OnUnshare.
func (s *SharedObject) RemoveUnshareListener(id emitter.ListenerID) bool {
	return s.unshares.RemoveListener(id)
}

func (s *SharedObject) apply(msg protocol.Change) error {
	s.mu.Lock()
	err := plain.ApplyPath(s.object, msg.Path, msg.Value)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("apply change of %d: %w", s.id, err)
	}

	s.changes.Emit(ChangeEvent{Path: msg.Path, Value: msg.Value})
	return nil
}

// Decode returns a copy of the mirrored graph decoded into T. Records map
// onto struct fields by their cbor or json tags, or by name.
func Decode[T any](s *SharedObject) (T, error) {
	var out T

	s.mu.RLock()
	data, err := codec.Marshal(s.object)
	s.mu.RUnlock()
	if err != nil {
		return out, fmt.Errorf("decode %q: %w", s.name, err)
	}

	if err := codec.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode %q: %w", s.name, err)
	}
	return out, nil
}

// Listener mirrors the instances of one name shared on a channel.
type Listener struct {
	ch      transport.Channel
	name    string
	onShare func(*SharedObject)
	logger  logging.Logger

	mu      sync.Mutex
	objects map[int]*SharedObject

	registerID   transport.ListenerID
	unregisterID transport.ListenerID
	changeID     transport.ListenerID
}

// Listen starts mirroring the instances shared on ch under name. onShare is
// called with every new mirror, before any change is applied to it.
func Listen(ch transport.Channel, name string, onShare func(*SharedObject)) *Listener {
	l := &Listener{
		ch:      ch,
		name:    name,
		onShare: onShare,
		logger:  logging.New("sub", logging.NewField("name", name)),
		objects: make(map[int]*SharedObject),
	}

	l.changeID = ch.On(protocol.ChangeEvent, l.handleChange)
	l.registerID = ch.On(protocol.RegisterEvent, l.handleRegister)
	l.unregisterID = ch.On(protocol.UnregisterEvent, l.handleUnregister)
	return l
}

// StopListening removes the handlers of this listener from the channel.
// Mirrors stop receiving changes.
func (l *Listener) StopListening() {
	l.ch.RemoveListener(protocol.ChangeEvent, l.changeID)
	l.ch.RemoveListener(protocol.RegisterEvent, l.registerID)
	l.ch.RemoveListener(protocol.UnregisterEvent, l.unregisterID)
}

// Objects returns the live mirrors, ordered by id.
func (l *Listener) Objects() []*SharedObject {
	l.mu.Lock()
	defer l.mu.Unlock()

	objects := make([]*SharedObject, 0, len(l.objects))
	for _, so := range l.objects {
		objects = append(objects, so)
	}
	sort.Slice(objects, func(i, j int) bool {
		return objects[i].id < objects[j].id
	})
	return objects
}

func (l *Listener) handleRegister(p transport.Payload) error {
	msg, err := protocol.DecodeRegister(p)
	if err != nil {
		return err
	}
	if msg.Name != l.name {
		return nil
	}

	l.mu.Lock()
	if _, ok := l.objects[msg.ID]; ok {
		l.mu.Unlock()
		return fmt.Errorf("register %d: %w", msg.ID, ErrDuplicateID)
	}
	so := &SharedObject{id: msg.ID, name: msg.Name, object: msg.Object}
	l.objects[msg.ID] = so
	l.mu.Unlock()

	l.logger.Debugf("mirror %d registered", msg.ID)
	if l.onShare != nil {
		l.onShare(so)
	}
	return nil
}

func (l *Listener) handleChange(p transport.Payload) error {
	msg, err := protocol.DecodeChange(p)
	if err != nil {
		return err
	}

	so := l.lookup(msg.ID)
	if so == nil {
		l.logger.Debugf("change of unknown mirror %d ignored", msg.ID)
		return nil
	}
	return so.apply(msg)
}

func (l *Listener) handleUnregister(p transport.Payload) error {
	msg, err := protocol.DecodeUnregister(p)
	if err != nil {
		return err
	}

	l.mu.Lock()
	so, ok := l.objects[msg.ID]
	delete(l.objects, msg.ID)
	l.mu.Unlock()
	if !ok {
		l.logger.Debugf("unregister of unknown mirror %d ignored", msg.ID)
		return nil
	}

	l.logger.Debugf("mirror %d unregistered", msg.ID)
	so.unshares.Emit(struct{}{})
	return nil
}

func (l *Listener) lookup(id int) *SharedObject {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.objects[id]
}
