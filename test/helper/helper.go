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

// Package helper provides helper functions for testing.
package helper

import (
	"context"
	"math/rand"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/shareobj/internal/server"
	"github.com/yorkie-team/shareobj/pkg/plain"
	"github.com/yorkie-team/shareobj/pkg/subscriber"
	"github.com/yorkie-team/shareobj/pkg/tracker"
	"github.com/yorkie-team/shareobj/pkg/transport/websocket"
)

var (
	// WaitTimeout is how long helpers wait for replication to settle.
	WaitTimeout = 5 * time.Second

	// PollInterval is how often helpers poll while waiting.
	PollInterval = 10 * time.Millisecond
)

// TestConfig returns a server config for tests.
func TestConfig() *server.Config {
	conf := server.NewConfig()
	conf.Addr = "localhost:0"
	conf.LogLevel = "error"
	return conf
}

// TestServer is a server listening on an httptest server.
type TestServer struct {
	*server.Server
	HTTP *httptest.Server
}

// NewTestServer starts a server with conf behind an httptest server. Both
// are shut down when the test ends.
func NewTestServer(t testing.TB, conf *server.Config) *TestServer {
	srv, err := server.New(conf)
	require.NoError(t, err)

	httpSrv := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		require.NoError(t, srv.Shutdown(false))
		httpSrv.Close()
	})
	return &TestServer{Server: srv, HTTP: httpSrv}
}

// URL returns the websocket URL of the server's endpoint.
func (s *TestServer) URL(path string) string {
	return "ws" + strings.TrimPrefix(s.HTTP.URL, "http") + path
}

// Subscribe dials url, listens for name and waits for the first mirror. The
// connection is closed when the test ends.
func Subscribe(t testing.TB, url, name string) (*websocket.Channel, *subscriber.SharedObject) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ch, err := websocket.Dial(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })

	mirrors := make(chan *subscriber.SharedObject, 1)
	subscriber.Listen(ch, name, func(so *subscriber.SharedObject) {
		select {
		case mirrors <- so:
		default:
		}
	})
	go func() { _ = ch.Run(ctx) }()

	select {
	case so := <-mirrors:
		return ch, so
	case <-time.After(WaitTimeout):
		t.Fatalf("timed out waiting for %q on %s", name, url)
		return nil, nil
	}
}

// Marshal returns the JSON text of a graph.
func Marshal(t testing.TB, v any) string {
	s, err := plain.Marshal(v)
	require.NoError(t, err)
	return s
}

// SnapshotOf returns the JSON text of a mirror.
func SnapshotOf(t testing.TB, so *subscriber.SharedObject) string {
	v, err := so.Snapshot()
	require.NoError(t, err)
	return Marshal(t, v)
}

// Mutate applies n random writes to the sequence under key "items" and the
// scalar properties of the tracked record doc.
func Mutate(doc *tracker.Object, r *rand.Rand, n int) {
	if doc.GetArray("items") == nil {
		doc.Set("items", []any{})
	}

	for i := 0; i < n; i++ {
		items := doc.GetArray("items")
		value := r.Intn(100)
		switch r.Intn(8) {
		case 0:
			items.Push(value, map[string]any{"v": value})
		case 1:
			items.Pop()
		case 2:
			items.Unshift(value)
		case 3:
			items.Shift()
		case 4:
			items.Splice(r.Intn(items.Len()+1), r.Intn(3), value, []any{value})
		case 5:
			if items.Len() > 0 {
				items.Set(r.Intn(items.Len()), value)
			}
		case 6:
			if obj := firstObject(items); obj != nil {
				obj.Set("v", value)
			}
		default:
			doc.Set("k"+strconv.Itoa(r.Intn(4)), value)
		}
	}
}

func firstObject(items *tracker.Array) *tracker.Object {
	for i := 0; i < items.Len(); i++ {
		if obj := items.GetObject(i); obj != nil {
			return obj
		}
	}
	return nil
}
