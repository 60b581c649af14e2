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

// Package publisher shares plain data graphs over transport channels. A
// shared instance is announced with a full snapshot, after which every write
// made through the returned wrapper is forwarded as a change message until
// the instance is unshared.
package publisher

import (
	"fmt"
	"sort"
	"sync"

	"github.com/yorkie-team/shareobj/internal/logging"
	"github.com/yorkie-team/shareobj/internal/validation"
	"github.com/yorkie-team/shareobj/pkg/emitter"
	"github.com/yorkie-team/shareobj/pkg/errors"
	"github.com/yorkie-team/shareobj/pkg/plain"
	"github.com/yorkie-team/shareobj/pkg/protocol"
	"github.com/yorkie-team/shareobj/pkg/tracker"
	"github.com/yorkie-team/shareobj/pkg/transport"
)

var (
	// ErrInvalidName is returned when an instance is shared without a name.
	ErrInvalidName = errors.InvalidArgument("invalid share name").WithCode("ErrInvalidName")

	// ErrNotRoot is returned when a nested or detached wrapper is shared.
	ErrNotRoot = errors.InvalidArgument("only a tracked root can be shared").WithCode("ErrNotRoot")

	// ErrAlreadyShared is returned when a wrapper is shared twice on the
	// same channel.
	ErrAlreadyShared = errors.AlreadyExists("instance is already shared on this channel").WithCode("ErrAlreadyShared")

	// ErrNotTracked is returned when a value that is not a wrapper is
	// unshared.
	ErrNotTracked = errors.InvalidArgument("value is not a shared instance").WithCode("ErrNotTracked")

	// ErrNotShared is returned when a wrapper that is not shared on the
	// channel is unshared.
	ErrNotShared = errors.NotFound("instance is not shared on this channel").WithCode("ErrNotShared")
)

var (
	publishersMu sync.Mutex
	publishers   = make(map[transport.Channel]*Publisher)
)

// For returns the publisher of ch, creating it on first use.
func For(ch transport.Channel) *Publisher {
	publishersMu.Lock()
	defer publishersMu.Unlock()

	p, ok := publishers[ch]
	if !ok {
		p = New(ch)
		publishers[ch] = p
	}
	return p
}

// Release drops the publisher of ch and stops forwarding the changes of its
// instances without notifying the peer. It is meant for channels that are
// already gone.
func Release(ch transport.Channel) {
	publishersMu.Lock()
	p, ok := publishers[ch]
	delete(publishers, ch)
	publishersMu.Unlock()

	if ok {
		p.release()
	}
}

// Share shares value on ch under name. See Publisher.Share.
func Share(ch transport.Channel, name string, value any) (tracker.Node, error) {
	return For(ch).Share(name, value)
}

// Unshare withdraws a shared instance from ch. See Publisher.Unshare.
func Unshare(ch transport.Channel, proxy any) error {
	if _, ok := proxy.(tracker.Node); !ok {
		return fmt.Errorf("unshare %T: %w", proxy, ErrNotTracked)
	}

	publishersMu.Lock()
	p, ok := publishers[ch]
	publishersMu.Unlock()
	if !ok {
		return fmt.Errorf("unshare: %w", ErrNotShared)
	}
	return p.Unshare(proxy)
}

// Instance describes a shared instance.
type Instance struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type record struct {
	Instance
	root     tracker.Node
	listener emitter.ListenerID
}

// Publisher shares instances on one channel. Instance ids start at 0 and are
// never reused on the channel.
type Publisher struct {
	ch     transport.Channel
	logger logging.Logger

	mu     sync.Mutex
	nextID int
	shared map[tracker.Node]*record
}

// New creates a publisher for ch that is not registered for For.
func New(ch transport.Channel) *Publisher {
	return &Publisher{
		ch:     ch,
		logger: logging.New("pub"),
		shared: make(map[tracker.Node]*record),
	}
}

// Share announces value under name and returns the wrapper through which it
// must be mutated from now on. value is either a plain record or sequence,
// which gets tracked, or the root of an already tracked graph, which lets
// one graph be shared on several channels.
func (p *Publisher) Share(name string, value any) (tracker.Node, error) {
	if err := validation.ValidateValue(name, "required"); err != nil {
		return nil, fmt.Errorf("share: %v: %w", err, ErrInvalidName)
	}

	var root tracker.Node
	if n, ok := value.(tracker.Node); ok {
		if n.Detached() || n != n.Tracker().Root() {
			return nil, fmt.Errorf("share %q at %v: %w", name, n.Path(), ErrNotRoot)
		}
		root = n
	}

	snapshot, err := plain.Clean(value)
	if err != nil {
		return nil, fmt.Errorf("share %q: %w", name, err)
	}

	if root == nil {
		if root, err = tracker.Track(value); err != nil {
			return nil, fmt.Errorf("share %q: %w", name, err)
		}
	}

	p.mu.Lock()
	if _, ok := p.shared[root]; ok {
		p.mu.Unlock()
		return nil, fmt.Errorf("share %q: %w", name, ErrAlreadyShared)
	}
	rec := &record{Instance: Instance{ID: p.nextID, Name: name}, root: root}
	p.nextID++
	rec.listener = root.Tracker().OnChange(p.sink(rec))
	p.shared[root] = rec
	p.mu.Unlock()

	if err := p.ch.Emit(protocol.RegisterEvent, protocol.Register{
		ID:     rec.ID,
		Name:   name,
		Object: snapshot,
	}); err != nil {
		p.remove(root)
		// Peers whose handlers succeeded already hold a mirror.
		if uerr := p.ch.Emit(protocol.UnregisterEvent, protocol.Unregister{ID: rec.ID}); uerr != nil {
			logging.Log(p.logger, uerr, "unregister after failed share", "id", rec.ID)
		}
		return nil, fmt.Errorf("share %q: %w", name, err)
	}

	p.logger.Debugf("shared %q as %d", name, rec.ID)
	return root, nil
}

// Unshare stops forwarding the changes of proxy and tells the peer to drop
// its mirror.
func (p *Publisher) Unshare(proxy any) error {
	root, ok := proxy.(tracker.Node)
	if !ok {
		return fmt.Errorf("unshare %T: %w", proxy, ErrNotTracked)
	}

	rec := p.remove(root)
	if rec == nil {
		return fmt.Errorf("unshare: %w", ErrNotShared)
	}

	if err := p.ch.Emit(protocol.UnregisterEvent, protocol.Unregister{ID: rec.ID}); err != nil {
		return fmt.Errorf("unshare %q: %w", rec.Name, err)
	}

	p.logger.Debugf("unshared %q as %d", rec.Name, rec.ID)
	return nil
}

// Instances returns the instances currently shared, ordered by id.
func (p *Publisher) Instances() []Instance {
	p.mu.Lock()
	defer p.mu.Unlock()

	instances := make([]Instance, 0, len(p.shared))
	for _, rec := range p.shared {
		instances = append(instances, rec.Instance)
	}
	sort.Slice(instances, func(i, j int) bool {
		return instances[i].ID < instances[j].ID
	})
	return instances
}

// sink returns the change listener that forwards the writes of rec.
func (p *Publisher) sink(rec *record) func(tracker.Change) {
	return func(change tracker.Change) {
		value, err := plain.Clean(change.Value)
		if err != nil {
			logging.Log(p.logger, err, "snapshot change", "id", rec.ID, "path", change.Path)
			return
		}

		if err := p.ch.Emit(protocol.ChangeEvent, protocol.Change{
			ID:    rec.ID,
			Path:  plain.CleanPath(change.Path, rec.root.Raw()),
			Value: value,
		}); err != nil {
			logging.Log(p.logger, err, "emit change", "id", rec.ID, "path", change.Path)
		}
	}
}

// remove forgets the record of root and detaches its listener.
func (p *Publisher) remove(root tracker.Node) *record {
	p.mu.Lock()
	rec, ok := p.shared[root]
	delete(p.shared, root)
	p.mu.Unlock()

	if !ok {
		return nil
	}
	root.Tracker().RemoveListener(rec.listener)
	return rec
}

func (p *Publisher) release() {
	p.mu.Lock()
	shared := p.shared
	p.shared = make(map[tracker.Node]*record)
	p.mu.Unlock()

	for root, rec := range shared {
		root.Tracker().RemoveListener(rec.listener)
	}
}
