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

// Package server provides a shareobj server: one document, shared with every
// client that connects to its websocket endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yorkie-team/shareobj/internal/logging"
	"github.com/yorkie-team/shareobj/internal/metrics/prometheus"
	shareerrors "github.com/yorkie-team/shareobj/pkg/errors"
	"github.com/yorkie-team/shareobj/pkg/plain"
	"github.com/yorkie-team/shareobj/pkg/publisher"
	"github.com/yorkie-team/shareobj/pkg/tracker"
	"github.com/yorkie-team/shareobj/pkg/transport/websocket"
)

const httpPrefixMetrics = "/metrics"

// ErrShuttingDown is returned for connections arriving after Shutdown.
var ErrShuttingDown = shareerrors.Unavailable("server is shutting down").WithCode("ErrShuttingDown")

// Server shares one tracked document on every websocket connection it
// accepts. All mutations of the document go through Update, which
// serializes them with the sharing of new connections.
type Server struct {
	conf    *Config
	logger  logging.Logger
	metrics *prometheus.Metrics

	mu    sync.Mutex
	doc   tracker.Node
	conns map[*websocket.Channel]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	httpServer    *http.Server
	metricsServer *http.Server
}

// New creates a server from conf, loading the document from the state file
// if one is configured.
func New(conf *Config) (*Server, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	metrics, err := prometheus.NewMetrics()
	if err != nil {
		return nil, err
	}

	var value any = map[string]any{}
	if conf.StateFile != "" {
		if value, err = loadState(conf.StateFile); err != nil {
			return nil, err
		}
	}

	doc, err := tracker.Track(value)
	if err != nil {
		return nil, fmt.Errorf("track state: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		conf:    conf,
		logger:  logging.New("srv"),
		metrics: metrics,
		doc:     doc,
		conns:   make(map[*websocket.Channel]struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Handler returns the HTTP handler serving the websocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.conf.Path, s.serveWS)
	return mux
}

// MetricsHandler returns the HTTP handler serving Prometheus metrics.
func (s *Server) MetricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(httpPrefixMetrics, promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	return mux
}

// Start listens on the configured addresses and serves in the background.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.conf.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.conf.Addr, err)
	}
	s.httpServer = &http.Server{Handler: s.Handler()}
	s.serve(s.httpServer, listener, "websocket")

	if s.conf.MetricsAddr != "" {
		metricsListener, err := net.Listen("tcp", s.conf.MetricsAddr)
		if err != nil {
			_ = s.httpServer.Close()
			return fmt.Errorf("listen %s: %w", s.conf.MetricsAddr, err)
		}
		s.metricsServer = &http.Server{Handler: s.MetricsHandler()}
		s.serve(s.metricsServer, metricsListener, "metrics")
	}

	return nil
}

// Shutdown closes every connection, stops serving and saves the document to
// the state file.
func (s *Server) Shutdown(graceful bool) error {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()

	for _, srv := range []*http.Server{s.httpServer, s.metricsServer} {
		if srv == nil {
			continue
		}
		if graceful {
			if err := srv.Shutdown(context.Background()); err != nil {
				s.logger.Errorf("HTTP server Shutdown: %v", err)
			}
		} else if err := srv.Close(); err != nil {
			s.logger.Errorf("HTTP server close: %v", err)
		}
	}
	s.wg.Wait()

	if s.conf.StateFile == "" {
		return nil
	}
	return s.Update(func(doc tracker.Node) error {
		return saveState(s.conf.StateFile, doc)
	})
}

// Update runs fn with the document. Writes made by fn reach every connected
// client before Update returns.
func (s *Server) Update(fn func(doc tracker.Node) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(s.doc)
}

// Connections returns the number of connected clients.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.conns)
}

func (s *Server) serve(srv *http.Server, listener net.Listener, name string) {
	s.logger.Infof("serving %s on %s", name, listener.Addr())
	go func() {
		if err := srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorf("HTTP server Serve: %v", err)
		}
	}()
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	if s.ctx.Err() != nil {
		http.Error(w, ErrShuttingDown.Error(), http.StatusServiceUnavailable)
		return
	}

	ch, err := websocket.Upgrade(w, r,
		websocket.WithMetrics(s.metrics),
		websocket.WithWriteTimeout(s.conf.WriteTimeout),
	)
	if err != nil {
		logging.Log(s.logger, err, "upgrade")
		return
	}

	if err := s.attach(ch); err != nil {
		logging.Log(s.logger, err, "share document", "conn", ch.ID())
		_ = ch.Close()
		return
	}
	defer s.wg.Done()

	if err := ch.Run(s.ctx); err != nil {
		logging.Log(s.logger, err, "connection closed", "conn", ch.ID())
	}
	s.detach(ch)
}

// attach shares the document on ch and counts the connection in s.wg. Once
// Shutdown has cancelled s.ctx no connection is attached.
func (s *Server) attach(ch *websocket.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		publisher.Release(ch)
		return ErrShuttingDown
	}
	if _, err := publisher.Share(ch, s.conf.Name, s.doc); err != nil {
		publisher.Release(ch)
		return err
	}
	s.wg.Add(1)
	s.conns[ch] = struct{}{}
	s.metrics.SetSharedObjects(len(s.conns))
	s.logger.Infof("connection %s attached", ch.ID())
	return nil
}

func (s *Server) detach(ch *websocket.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()

	publisher.Release(ch)
	delete(s.conns, ch)
	s.metrics.SetSharedObjects(len(s.conns))
	s.logger.Infof("connection %s detached", ch.ID())
}

func loadState(path string) (any, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	value, err := parseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	return value, nil
}

func saveState(path string, doc tracker.Node) error {
	text, err := plain.Marshal(doc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Clean(path), []byte(text), 0o600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}
