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

package memory_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/shareobj/pkg/transport"
	"github.com/yorkie-team/shareobj/pkg/transport/memory"
)

func TestPipe(t *testing.T) {
	t.Run("delivers to the peer test", func(t *testing.T) {
		a, b := memory.NewPipe()

		var received []map[string]any
		b.On("ev", func(p transport.Payload) error {
			var v map[string]any
			if err := p.Decode(&v); err != nil {
				return err
			}
			received = append(received, v)
			return nil
		})
		a.On("ev", func(transport.Payload) error {
			t.Fatal("emitter received its own event")
			return nil
		})

		require.NoError(t, a.Emit("ev", map[string]any{"k": "v"}))
		require.NoError(t, a.Emit("other", 1))
		assert.Equal(t, []map[string]any{{"k": "v"}}, received)
	})

	t.Run("payload is a copy test", func(t *testing.T) {
		a, b := memory.NewPipe()
		sent := map[string]any{"k": []any{1}}

		var got map[string]any
		b.On("ev", func(p transport.Payload) error {
			return p.Decode(&got)
		})
		require.NoError(t, a.Emit("ev", sent))

		sent["k"].([]any)[0] = 2
		assert.EqualValues(t, 1, got["k"].([]any)[0])
	})

	t.Run("handler errors reach the emitter test", func(t *testing.T) {
		a, b := memory.NewPipe()
		errFailed := errors.New("failed")
		b.On("ev", func(transport.Payload) error { return errFailed })

		assert.ErrorIs(t, a.Emit("ev", nil), errFailed)
	})

	t.Run("remove listener test", func(t *testing.T) {
		a, b := memory.NewPipe()
		count := 0
		id := b.On("ev", func(transport.Payload) error {
			count++
			return nil
		})

		require.NoError(t, a.Emit("ev", nil))
		b.RemoveListener("ev", id)
		require.NoError(t, a.Emit("ev", nil))

		assert.Equal(t, 1, count)
		assert.Equal(t, 0, b.Handlers("ev"))
	})

	t.Run("closed test", func(t *testing.T) {
		a, b := memory.NewPipe()
		require.NoError(t, b.Close())

		assert.ErrorIs(t, a.Emit("ev", nil), transport.ErrClosed)
		assert.ErrorIs(t, b.Emit("ev", nil), transport.ErrClosed)
	})
}

func TestLoopback(t *testing.T) {
	ch := memory.NewLoopback()
	var got string
	ch.On("ev", func(p transport.Payload) error {
		return p.Decode(&got)
	})

	require.NoError(t, ch.Emit("ev", "hello"))
	assert.Equal(t, "hello", got)
}
