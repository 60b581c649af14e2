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

package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidation(t *testing.T) {
	t.Run("ValidateValue test", func(t *testing.T) {
		err := ValidateValue("counter", "required,share_name")
		assert.Nil(t, err, "valid share name")

		err = ValidateValue("", "required,share_name")
		assert.Equal(t, "required", err.(Violation).Tag)

		err = ValidateValue("bad\nname", "required,share_name")
		assert.Equal(t, "share_name", err.(Violation).Tag)
		assert.Contains(t, err.Error(), "control characters")

		err = ValidateValue("/ws", "required,url_path")
		assert.Nil(t, err, "valid url path")

		err = ValidateValue("ws", "required,url_path")
		assert.Equal(t, "url_path", err.(Violation).Tag)

		err = ValidateValue("DEBUG", "log_level")
		assert.Nil(t, err, "valid log level")

		err = ValidateValue("verbose", "log_level")
		assert.Equal(t, "log_level", err.(Violation).Tag)
	})

	t.Run("ValidateStruct test", func(t *testing.T) {
		type Settings struct {
			Addr string `validate:"required,hostname_port"`
			Path string `validate:"required,url_path"`
		}

		err := ValidateStruct(Settings{Addr: "nowhere", Path: "ws"})
		structError := err.(*StructError)
		assert.Len(t, structError.Violations, 2, "settings should be invalid")
		assert.Equal(t, "Addr", structError.Violations[0].Field)

		assert.Nil(t, ValidateStruct(Settings{Addr: "localhost:8080", Path: "/ws"}))
	})

	t.Run("custom rule test", func(t *testing.T) {
		_ = RegisterValidation("custom", func(v FieldLevel) bool {
			return v.Field().String() == "custom"
		})

		myError := errors.New("custom error")
		_ = RegisterTranslation("custom", myError.Error())

		err := ValidateValue("custom-invalid-value", "required,custom")
		assert.NotNil(t, err, "value is must 'custom' string")
		assert.Equal(t, "custom error", err.Error())
	})
}
