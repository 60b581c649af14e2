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

package websocket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/shareobj/internal/metrics/prometheus"
	"github.com/yorkie-team/shareobj/pkg/transport"
	"github.com/yorkie-team/shareobj/pkg/transport/websocket"
)

// echoServer replies to every "ping" with a "pong" carrying the same
// payload.
func echoServer(t *testing.T, metrics *prometheus.Metrics) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ch, err := websocket.Upgrade(w, r, websocket.WithMetrics(metrics))
		if err != nil {
			return
		}
		ch.On("ping", func(p transport.Payload) error {
			var v any
			if err := p.Decode(&v); err != nil {
				return err
			}
			return ch.Emit("pong", v)
		})
		_ = ch.Run(r.Context())
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestChannel(t *testing.T) {
	t.Run("round trip test", func(t *testing.T) {
		metrics, err := prometheus.NewMetrics()
		require.NoError(t, err)
		srv := echoServer(t, metrics)
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		client, err := websocket.Dial(ctx, wsURL(srv))
		require.NoError(t, err)
		assert.NotEmpty(t, client.ID())

		received := make(chan map[string]any, 2)
		client.On("pong", func(p transport.Payload) error {
			var v map[string]any
			if err := p.Decode(&v); err != nil {
				return err
			}
			received <- v
			return nil
		})

		runErr := make(chan error, 1)
		go func() { runErr <- client.Run(ctx) }()

		require.NoError(t, client.Emit("ping", map[string]any{"n": 1}))
		require.NoError(t, client.Emit("ping", map[string]any{"n": 2}))

		for _, expected := range []int64{1, 2} {
			select {
			case v := <-received:
				assert.Equal(t, expected, v["n"])
			case <-ctx.Done():
				t.Fatal("timed out waiting for pong")
			}
		}

		require.NoError(t, client.Close())
		assert.NoError(t, <-runErr)
		assert.ErrorIs(t, client.Emit("ping", nil), transport.ErrClosed)
	})

	t.Run("run stops with context test", func(t *testing.T) {
		srv := echoServer(t, nil)
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		client, err := websocket.Dial(ctx, wsURL(srv))
		require.NoError(t, err)

		runErr := make(chan error, 1)
		go func() { runErr <- client.Run(ctx) }()
		cancel()

		select {
		case err := <-runErr:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("run did not stop")
		}
		<-client.Done()
	})

	t.Run("dial failure test", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		_, err := websocket.Dial(context.Background(), wsURL(srv))
		assert.Error(t, err)
	})
}
