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

package protocol_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/shareobj/pkg/plain"
	"github.com/yorkie-team/shareobj/pkg/protocol"
	"github.com/yorkie-team/shareobj/pkg/transport"
)

func encode(t *testing.T, v any) transport.Payload {
	p, err := transport.Encode(v)
	require.NoError(t, err)
	return p
}

func TestDecodeRegister(t *testing.T) {
	p := encode(t, protocol.Register{
		ID:     3,
		Name:   "test",
		Object: map[string]any{"k1": []any{1, map[string]any{"k2": "v"}}},
	})

	msg, err := protocol.DecodeRegister(p)
	require.NoError(t, err)
	assert.Equal(t, 3, msg.ID)
	assert.Equal(t, "test", msg.Name)

	obj := msg.Object.(map[string]any)
	_, boxed := obj["k1"].(*[]any)
	assert.True(t, boxed)

	s, err := plain.Marshal(msg.Object)
	require.NoError(t, err)
	assert.Equal(t, `{"k1":[1,{"k2":"v"}]}`, s)
}

func TestDecodeUnregister(t *testing.T) {
	msg, err := protocol.DecodeUnregister(encode(t, protocol.Unregister{ID: 7}))
	require.NoError(t, err)
	assert.Equal(t, 7, msg.ID)
}

func TestDecodeChange(t *testing.T) {
	t.Run("path segments test", func(t *testing.T) {
		p := encode(t, protocol.Change{ID: 1, Path: []any{"k3", 0, "length"}, Value: []any{"a"}})

		msg, err := protocol.DecodeChange(p)
		require.NoError(t, err)
		assert.Equal(t, []any{"k3", 0, "length"}, msg.Path)
		_, boxed := msg.Value.(*[]any)
		assert.True(t, boxed)
	})

	t.Run("wire keys test", func(t *testing.T) {
		p := encode(t, map[string]any{"id": 2, "path": []any{"k1"}, "value": 42})

		msg, err := protocol.DecodeChange(p)
		require.NoError(t, err)
		assert.Equal(t, 2, msg.ID)
		assert.EqualValues(t, 42, msg.Value)
	})

	t.Run("invalid message test", func(t *testing.T) {
		invalid := []any{
			"not a message",
			map[string]any{"id": 1, "path": []any{-1}},
			map[string]any{"id": 1, "path": []any{true}},
			map[string]any{"id": 1, "path": "k1"},
		}
		for _, v := range invalid {
			_, err := protocol.DecodeChange(encode(t, v))
			assert.True(t, errors.Is(err, protocol.ErrInvalidMessage), "%v", v)
		}
	})
}
