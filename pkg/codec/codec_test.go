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

package codec_test

import (
	"math"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/shareobj/pkg/codec"
)

func TestCodec(t *testing.T) {
	t.Run("any target test", func(t *testing.T) {
		data, err := codec.Marshal(map[string]any{
			"k1": 100,
			"k2": -3,
			"k3": []any{"a", true, 1.5},
			"k4": map[string]any{"nested": nil},
		})
		require.NoError(t, err)

		var decoded any
		require.NoError(t, codec.Unmarshal(data, &decoded))

		m, ok := decoded.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, int64(100), m["k1"])
		assert.Equal(t, int64(-3), m["k2"])
		assert.Equal(t, []any{"a", true, 1.5}, m["k3"])
		assert.Equal(t, map[string]any{"nested": nil}, m["k4"])
	})

	t.Run("deterministic test", func(t *testing.T) {
		first, err := codec.Marshal(map[string]any{"b": 1, "a": 2, "c": 3})
		require.NoError(t, err)
		second, err := codec.Marshal(map[string]any{"c": 3, "a": 2, "b": 1})
		require.NoError(t, err)
		assert.Equal(t, first, second)

		diag, err := codec.Diagnose(first)
		require.NoError(t, err)
		assert.Less(t, strings.Index(diag, `"a"`), strings.Index(diag, `"b"`))
	})

	t.Run("raw message test", func(t *testing.T) {
		inner, err := codec.Marshal("payload")
		require.NoError(t, err)

		type envelope struct {
			Event   string           `cbor:"e"`
			Payload codec.RawMessage `cbor:"p"`
		}
		data, err := codec.Marshal(envelope{Event: "ev", Payload: inner})
		require.NoError(t, err)

		var decoded envelope
		require.NoError(t, codec.Unmarshal(data, &decoded))
		assert.Equal(t, "ev", decoded.Event)

		var s string
		require.NoError(t, codec.Unmarshal(decoded.Payload, &s))
		assert.Equal(t, "payload", s)
	})
	t.Run("big integer test", func(t *testing.T) {
		huge, ok := new(big.Int).SetString("123456789012345678901234567890", 10)
		require.True(t, ok)

		data, err := codec.Marshal(map[string]any{
			"huge":     huge,
			"negative": new(big.Int).Neg(huge),
			"unsigned": uint64(math.MaxUint64),
			"small":    big.NewInt(7),
		})
		require.NoError(t, err)

		var decoded any
		require.NoError(t, codec.Unmarshal(data, &decoded))
		m := decoded.(map[string]any)

		assert.Equal(t, huge, m["huge"])
		assert.Equal(t, new(big.Int).Neg(huge), m["negative"])
		assert.Equal(t, new(big.Int).SetUint64(math.MaxUint64), m["unsigned"])
		assert.Equal(t, int64(7), m["small"])
	})
}
