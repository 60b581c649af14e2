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

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlatten(t *testing.T) {
	t.Run("nested snapshot test", func(t *testing.T) {
		snapshot := map[string]any{
			"k2": []any{"a", map[string]any{"x": true}},
			"k1": 1,
			"k3": nil,
		}

		assert.Equal(t, []leaf{
			{path: "k1", value: "1"},
			{path: "k2.0", value: `"a"`},
			{path: "k2.1.x", value: "true"},
			{path: "k3", value: "null"},
		}, flatten("", snapshot))
	})

	t.Run("scalar root test", func(t *testing.T) {
		assert.Equal(t, []leaf{{path: ".", value: `"foo"`}}, flatten("", "foo"))
	})

	t.Run("empty containers test", func(t *testing.T) {
		assert.Empty(t, flatten("", map[string]any{"k1": []any{}, "k2": map[string]any{}}))
	})
}
