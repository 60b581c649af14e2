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

package subscriber_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/shareobj/pkg/plain"
	"github.com/yorkie-team/shareobj/pkg/protocol"
	"github.com/yorkie-team/shareobj/pkg/subscriber"
	"github.com/yorkie-team/shareobj/pkg/transport/memory"
)

type objA struct {
	K1 int    `json:"k1"`
	K2 string `json:"k2"`
}

func register(id int, name string) protocol.Register {
	return protocol.Register{ID: id, Name: name, Object: map[string]any{"k1": 100, "k2": "foobar"}}
}

func marshal(t *testing.T, v any) string {
	s, err := plain.Marshal(v)
	require.NoError(t, err)
	return s
}

func TestListen(t *testing.T) {
	t.Run("calls on share with the snapshot test", func(t *testing.T) {
		server, client := memory.NewPipe()
		var shared []*subscriber.SharedObject
		subscriber.Listen(client, "test", func(so *subscriber.SharedObject) {
			shared = append(shared, so)
		})
		assert.Empty(t, shared)

		require.NoError(t, server.Emit(protocol.RegisterEvent, register(0, "test")))
		require.Len(t, shared, 1)
		assert.Equal(t, 0, shared[0].ID())
		assert.Equal(t, "test", shared[0].Name())
		assert.Equal(t, `{"k1":100,"k2":"foobar"}`, marshal(t, shared[0].Object()))

		obj, err := subscriber.Decode[objA](shared[0])
		require.NoError(t, err)
		assert.Equal(t, objA{K1: 100, K2: "foobar"}, obj)
	})

	t.Run("replicates changes test", func(t *testing.T) {
		server, client := memory.NewPipe()
		var events []subscriber.ChangeEvent
		var mirror *subscriber.SharedObject
		subscriber.Listen(client, "test", func(so *subscriber.SharedObject) {
			mirror = so
			so.OnChange(func(e subscriber.ChangeEvent) {
				obj, err := subscriber.Decode[objA](so)
				require.NoError(t, err)
				assert.Equal(t, objA{K1: 101, K2: "foobar"}, obj)
				events = append(events, e)
			})
		})

		require.NoError(t, server.Emit(protocol.RegisterEvent, register(0, "test")))
		require.NoError(t, server.Emit(protocol.ChangeEvent, protocol.Change{ID: 0, Path: []any{"k1"}, Value: 101}))

		require.Len(t, events, 1)
		assert.Equal(t, []any{"k1"}, events[0].Path)
		assert.EqualValues(t, 101, events[0].Value)

		snapshot, err := mirror.Snapshot()
		require.NoError(t, err)
		assert.Equal(t, `{"k1":101,"k2":"foobar"}`, marshal(t, snapshot))
	})

	t.Run("replicates sequence changes test", func(t *testing.T) {
		server, client := memory.NewPipe()
		var mirror *subscriber.SharedObject
		subscriber.Listen(client, "test", func(so *subscriber.SharedObject) { mirror = so })

		require.NoError(t, server.Emit(protocol.RegisterEvent, protocol.Register{
			ID: 0, Name: "test", Object: map[string]any{"k1": []any{"a", "b"}},
		}))
		require.NoError(t, server.Emit(protocol.ChangeEvent, protocol.Change{ID: 0, Path: []any{"k1", 2}, Value: "c"}))
		require.NoError(t, server.Emit(protocol.ChangeEvent, protocol.Change{ID: 0, Path: []any{"k1", "length"}, Value: 3}))
		require.NoError(t, server.Emit(protocol.ChangeEvent, protocol.Change{ID: 0, Path: []any{"k1", "length"}, Value: 1}))

		assert.Equal(t, `{"k1":["a"]}`, marshal(t, mirror.Object()))
	})

	t.Run("emits unshare test", func(t *testing.T) {
		server, client := memory.NewPipe()
		unshared := 0
		listener := subscriber.Listen(client, "test", func(so *subscriber.SharedObject) {
			so.OnUnshare(func() { unshared++ })
		})

		require.NoError(t, server.Emit(protocol.RegisterEvent, register(0, "test")))
		assert.Len(t, listener.Objects(), 1)

		require.NoError(t, server.Emit(protocol.UnregisterEvent, protocol.Unregister{ID: 0}))
		require.NoError(t, server.Emit(protocol.UnregisterEvent, protocol.Unregister{ID: 0}))
		assert.Equal(t, 1, unshared)
		assert.Empty(t, listener.Objects())

		// changes of a dropped mirror are ignored
		assert.NoError(t, server.Emit(protocol.ChangeEvent, protocol.Change{ID: 0, Path: []any{"k1"}, Value: 1}))
	})

	t.Run("handles differently named instances test", func(t *testing.T) {
		server, client := memory.NewPipe()
		shared, unshared := 0, 0
		var changed []int
		onShare := func(so *subscriber.SharedObject) {
			shared++
			so.OnUnshare(func() { unshared++ })
			so.OnChange(func(subscriber.ChangeEvent) { changed = append(changed, so.ID()) })
		}
		subscriber.Listen(client, "test1", onShare)
		subscriber.Listen(client, "test2", onShare)

		require.NoError(t, server.Emit(protocol.RegisterEvent, register(0, "test1")))
		require.NoError(t, server.Emit(protocol.RegisterEvent, register(1, "test2")))
		require.NoError(t, server.Emit(protocol.RegisterEvent, register(2, "test3")))
		require.NoError(t, server.Emit(protocol.ChangeEvent, protocol.Change{ID: 1, Path: []any{"k1"}, Value: 101}))
		require.NoError(t, server.Emit(protocol.UnregisterEvent, protocol.Unregister{ID: 0}))

		assert.Equal(t, 2, shared)
		assert.Equal(t, 1, unshared)
		assert.Equal(t, []int{1}, changed)
	})

	t.Run("stops listening test", func(t *testing.T) {
		server, client := memory.NewPipe()
		shared := 0
		listener := subscriber.Listen(client, "test1", func(*subscriber.SharedObject) { shared++ })

		require.NoError(t, server.Emit(protocol.RegisterEvent, register(0, "test1")))
		assert.Equal(t, 1, shared)

		listener.StopListening()
		require.NoError(t, server.Emit(protocol.RegisterEvent, register(1, "test1")))
		assert.Equal(t, 1, shared)
		assert.Equal(t, 0, client.Handlers(protocol.RegisterEvent))
	})

	t.Run("duplicate id test", func(t *testing.T) {
		server, client := memory.NewPipe()
		shared := 0
		subscriber.Listen(client, "test", func(*subscriber.SharedObject) { shared++ })

		require.NoError(t, server.Emit(protocol.RegisterEvent, register(0, "test")))
		err := server.Emit(protocol.RegisterEvent, register(0, "test"))
		assert.True(t, errors.Is(err, subscriber.ErrDuplicateID))
		assert.Equal(t, 1, shared)
	})

	t.Run("change on a missing path test", func(t *testing.T) {
		server, client := memory.NewPipe()
		subscriber.Listen(client, "test", nil)

		require.NoError(t, server.Emit(protocol.RegisterEvent, register(0, "test")))
		err := server.Emit(protocol.ChangeEvent, protocol.Change{ID: 0, Path: []any{"missing", "k1"}, Value: 1})
		assert.True(t, errors.Is(err, plain.ErrPathNotFound))
	})

	t.Run("remove listeners test", func(t *testing.T) {
		server, client := memory.NewPipe()
		changes, unshares := 0, 0
		subscriber.Listen(client, "test", func(so *subscriber.SharedObject) {
			changeID := so.OnChange(func(subscriber.ChangeEvent) { changes++ })
			unshareID := so.OnUnshare(func() { unshares++ })
			assert.True(t, so.RemoveChangeListener(changeID))
			assert.True(t, so.RemoveUnshareListener(unshareID))
		})

		require.NoError(t, server.Emit(protocol.RegisterEvent, register(0, "test")))
		require.NoError(t, server.Emit(protocol.ChangeEvent, protocol.Change{ID: 0, Path: []any{"k1"}, Value: 1}))
		require.NoError(t, server.Emit(protocol.UnregisterEvent, protocol.Unregister{ID: 0}))
		assert.Equal(t, 0, changes)
		assert.Equal(t, 0, unshares)
	})
}
