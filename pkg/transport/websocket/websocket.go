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

// Package websocket provides a transport.Channel over a gorilla websocket
// connection. Every event travels as one binary frame holding a CBOR
// envelope of the event name and its encoded payload.
package websocket

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	gows "github.com/gorilla/websocket"
	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/yorkie-team/shareobj/internal/logging"
	"github.com/yorkie-team/shareobj/internal/metrics/prometheus"
	"github.com/yorkie-team/shareobj/pkg/codec"
	"github.com/yorkie-team/shareobj/pkg/transport"
)

const (
	// DefaultWriteTimeout is the write deadline of a frame.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultReadLimit is the maximum size of an incoming frame.
	DefaultReadLimit = 16 << 20
)

// envelope is the frame layout.
type envelope struct {
	Event   string           `cbor:"e"`
	Payload codec.RawMessage `cbor:"p"`
}

// Option configures a Channel.
type Option func(*Channel)

// WithWriteTimeout sets the write deadline of a frame.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(c *Channel) {
		c.writeTimeout = timeout
	}
}

// WithMetrics records the traffic of the channel in metrics.
func WithMetrics(metrics *prometheus.Metrics) Option {
	return func(c *Channel) {
		c.metrics = metrics
	}
}

// WithLogger sets the logger of the channel.
func WithLogger(logger logging.Logger) Option {
	return func(c *Channel) {
		c.logger = logger
	}
}

// Channel is a transport.Channel over a websocket connection. Emit may be
// called from any goroutine; handlers run on the goroutine calling Run, in
// frame order.
type Channel struct {
	id           xid.ID
	conn         *gows.Conn
	handlers     transport.Registry
	metrics      *prometheus.Metrics
	logger       logging.Logger
	writeTimeout time.Duration

	writeMu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
}

// New wraps an established connection.
func New(conn *gows.Conn, opts ...Option) *Channel {
	id := xid.New()
	c := &Channel{
		id:           id,
		conn:         conn,
		writeTimeout: DefaultWriteTimeout,
		closed:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.New("ws", logging.NewField("conn", id.String()))
	}

	conn.SetReadLimit(DefaultReadLimit)
	c.metrics.AddConnections()
	return c
}

// Dial connects to the websocket endpoint at url.
func Dial(ctx context.Context, url string, opts ...Option) (*Channel, error) {
	conn, resp, err := gows.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", url, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return New(conn, opts...), nil
}

var upgrader = gows.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Upgrade upgrades an HTTP request to a websocket channel. On failure the
// upgrader has already replied to the client.
func Upgrade(w http.ResponseWriter, r *http.Request, opts ...Option) (*Channel, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("upgrade %s: %w", r.RemoteAddr, err)
	}
	return New(conn, opts...), nil
}

// ID returns the connection id.
func (c *Channel) ID() string {
	return c.id.String()
}

// On registers handler for event.
func (c *Channel) On(event string, handler transport.Handler) transport.ListenerID {
	return c.handlers.Add(event, handler)
}

// RemoveListener removes the handler of the given id from event.
func (c *Channel) RemoveListener(event string, id transport.ListenerID) {
	c.handlers.Remove(event, id)
}

// Emit encodes payload and writes it as one frame.
func (c *Channel) Emit(event string, payload any) error {
	select {
	case <-c.closed:
		return transport.ErrClosed
	default:
	}

	encoded, err := transport.Encode(payload)
	if err != nil {
		return err
	}
	frame, err := codec.Marshal(envelope{Event: event, Payload: codec.RawMessage(encoded)})
	if err != nil {
		return fmt.Errorf("encode frame %s: %w", event, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := c.conn.WriteMessage(gows.BinaryMessage, frame); err != nil {
		return fmt.Errorf("write %s: %w", event, err)
	}

	c.metrics.AddSentMessage(event, len(encoded))
	return nil
}

// Run reads frames and dispatches them to handlers until the connection
// fails, the peer closes it or ctx is done. A handler error is logged and
// does not stop the loop. Run returns nil when the connection was closed
// normally.
func (c *Channel) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		_ = c.Close()
	})
	defer stop()

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			_ = c.Close()
			if ctx.Err() != nil || c.isClosedError(err) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		if messageType != gows.BinaryMessage {
			c.logger.Debugf("ignore frame of type %d", messageType)
			continue
		}

		var env envelope
		if err := codec.Unmarshal(message, &env); err != nil {
			c.logger.Warnf("drop malformed frame: %v", err)
			continue
		}
		c.metrics.AddReceivedMessage(env.Event, len(env.Payload))

		if err := c.handlers.Dispatch(env.Event, transport.Payload(env.Payload)); err != nil {
			logging.Log(c.logger, err, "handle frame", zap.String("event", env.Event))
		}
	}
}

// Close closes the connection. It is safe to call more than once.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)

		c.writeMu.Lock()
		_ = c.conn.WriteControl(
			gows.CloseMessage,
			gows.FormatCloseMessage(gows.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.writeMu.Unlock()

		err = c.conn.Close()
		c.metrics.RemoveConnections()
	})
	return err
}

// Done returns a channel that is closed once the connection is closed.
func (c *Channel) Done() <-chan struct{} {
	return c.closed
}

func (c *Channel) isClosedError(err error) bool {
	select {
	case <-c.closed:
		return true
	default:
	}
	return gows.IsCloseError(err, gows.CloseNormalClosure, gows.CloseGoingAway)
}
