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

// Package protocol defines the messages a publisher and its subscribers
// exchange to replicate shared instances.
package protocol

import (
	"fmt"

	"github.com/yorkie-team/shareobj/pkg/errors"
	"github.com/yorkie-team/shareobj/pkg/plain"
	"github.com/yorkie-team/shareobj/pkg/transport"
)

// Event names of the protocol messages.
const (
	RegisterEvent   = "__shareobj_reg"
	UnregisterEvent = "__shareobj_unreg"
	ChangeEvent     = "__shareobj_chg"
)

var (
	// ErrInvalidMessage is returned when a payload does not decode into the
	// message of its event.
	ErrInvalidMessage = errors.InvalidArgument("invalid message").WithCode("ErrInvalidMessage")
)

// Register announces a shared instance and carries its full snapshot.
type Register struct {
	ID     int    `cbor:"id" json:"id"`
	Name   string `cbor:"name" json:"name"`
	Object any    `cbor:"object" json:"object"`
}

// Unregister withdraws a shared instance.
type Unregister struct {
	ID int `cbor:"id" json:"id"`
}

// Change carries one property write of a shared instance. Path segments
// that step into a sequence are integers, all others are strings.
type Change struct {
	ID    int   `cbor:"id" json:"id"`
	Path  []any `cbor:"path" json:"path"`
	Value any   `cbor:"value" json:"value"`
}

// DecodeRegister decodes a Register message. The snapshot is returned as a
// live graph.
func DecodeRegister(p transport.Payload) (Register, error) {
	var msg Register
	if err := p.Decode(&msg); err != nil {
		return Register{}, fmt.Errorf("%s: %v: %w", RegisterEvent, err, ErrInvalidMessage)
	}
	msg.Object = plain.Normalize(msg.Object)
	return msg, nil
}

// DecodeUnregister decodes an Unregister message.
func DecodeUnregister(p transport.Payload) (Unregister, error) {
	var msg Unregister
	if err := p.Decode(&msg); err != nil {
		return Unregister{}, fmt.Errorf("%s: %v: %w", UnregisterEvent, err, ErrInvalidMessage)
	}
	return msg, nil
}

// DecodeChange decodes a Change message. Integer path segments are
// converted to int and the value is returned as a live graph.
func DecodeChange(p transport.Payload) (Change, error) {
	var msg Change
	if err := p.Decode(&msg); err != nil {
		return Change{}, fmt.Errorf("%s: %v: %w", ChangeEvent, err, ErrInvalidMessage)
	}

	for i, segment := range msg.Path {
		switch s := segment.(type) {
		case string:
		case int64, uint64, float64:
			idx, ok := plain.IndexOf(s)
			if !ok {
				return Change{}, fmt.Errorf("%s: path segment %v: %w", ChangeEvent, s, ErrInvalidMessage)
			}
			msg.Path[i] = idx
		default:
			return Change{}, fmt.Errorf("%s: path segment of type %T: %w", ChangeEvent, s, ErrInvalidMessage)
		}
	}
	msg.Value = plain.Normalize(msg.Value)
	return msg, nil
}
