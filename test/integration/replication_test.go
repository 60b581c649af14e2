//go:build integration

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

package integration

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/shareobj/pkg/publisher"
	"github.com/yorkie-team/shareobj/pkg/subscriber"
	"github.com/yorkie-team/shareobj/pkg/tracker"
	"github.com/yorkie-team/shareobj/pkg/transport/memory"
	"github.com/yorkie-team/shareobj/test/helper"
)

func TestMemoryReplication(t *testing.T) {
	t.Run("random writes converge test", func(t *testing.T) {
		server, client := memory.NewPipe()
		defer publisher.Release(server)

		var mirror *subscriber.SharedObject
		subscriber.Listen(client, "doc", func(so *subscriber.SharedObject) {
			mirror = so
		})

		root, err := publisher.Share(server, "doc", map[string]any{"title": "random"})
		require.NoError(t, err)
		require.NotNil(t, mirror)

		doc := root.(*tracker.Object)
		r := rand.New(rand.NewSource(42))
		for round := 0; round < 50; round++ {
			helper.Mutate(doc, r, 20)
			require.Equal(t, helper.Marshal(t, doc), helper.SnapshotOf(t, mirror), "round %d", round)
		}
	})

	t.Run("fan-out to several subscribers test", func(t *testing.T) {
		var mirrors []*subscriber.SharedObject
		var roots []tracker.Node
		var source any = map[string]any{"items": []any{1, 2}}

		for i := 0; i < 3; i++ {
			server, client := memory.NewPipe()
			defer publisher.Release(server)

			subscriber.Listen(client, "doc", func(so *subscriber.SharedObject) {
				mirrors = append(mirrors, so)
			})

			root, err := publisher.Share(server, "doc", source)
			require.NoError(t, err)
			roots = append(roots, root)
			source = root
		}
		require.Len(t, mirrors, 3)

		// every channel shares the same tracked root
		for _, root := range roots[1:] {
			assert.Same(t, roots[0].(*tracker.Object), root.(*tracker.Object))
		}

		items := roots[0].(*tracker.Object).GetArray("items")
		items.Unshift(0)
		items.Splice(1, 1, "x", "y")

		for _, mirror := range mirrors {
			assert.Equal(t, `{"items":[0,"x","y",2]}`, helper.SnapshotOf(t, mirror))
		}
	})

	t.Run("unshare stops replication test", func(t *testing.T) {
		server, client := memory.NewPipe()
		defer publisher.Release(server)

		var mirror *subscriber.SharedObject
		unshared := false
		subscriber.Listen(client, "doc", func(so *subscriber.SharedObject) {
			mirror = so
			so.OnUnshare(func() { unshared = true })
		})

		root, err := publisher.Share(server, "doc", map[string]any{"k1": 1})
		require.NoError(t, err)
		require.NoError(t, publisher.Unshare(server, root))
		assert.True(t, unshared)

		root.(*tracker.Object).Set("k1", 2)
		assert.Equal(t, `{"k1":1}`, helper.SnapshotOf(t, mirror))
	})
}
