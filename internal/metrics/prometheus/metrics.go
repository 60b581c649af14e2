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

// Package prometheus provides the Prometheus metrics of shareobj channels
// and servers.
package prometheus

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/yorkie-team/shareobj/internal/version"
)

const (
	namespace  = "shareobj"
	eventLabel = "event"
)

// Metrics manages the metric information that shareobj measures. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	serverVersion *prometheus.GaugeVec

	messagesSentTotal     *prometheus.CounterVec
	messagesReceivedTotal *prometheus.CounterVec
	sentBytesTotal        *prometheus.CounterVec
	receivedBytesTotal    *prometheus.CounterVec

	connectionsTotal prometheus.Gauge
	sharedObjects    prometheus.Gauge
}

// NewMetrics creates a new instance of Metrics.
func NewMetrics() (*Metrics, error) {
	reg := prometheus.NewRegistry()

	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("register process collector: %w", err)
	}
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("register go collector: %w", err)
	}

	metrics := &Metrics{
		registry: reg,
		serverVersion: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "version",
			Help:      "Which version is running. 1 for 'server_version' label with current version.",
		}, []string{"server_version"}),
		messagesSentTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "channel",
			Name:      "messages_sent_total",
			Help:      "The total count of messages written to channels.",
		}, []string{eventLabel}),
		messagesReceivedTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "channel",
			Name:      "messages_received_total",
			Help:      "The total count of messages read from channels.",
		}, []string{eventLabel}),
		sentBytesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "channel",
			Name:      "sent_bytes_total",
			Help:      "The total bytes of payloads written to channels.",
		}, []string{eventLabel}),
		receivedBytesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "channel",
			Name:      "received_bytes_total",
			Help:      "The total bytes of payloads read from channels.",
		}, []string{eventLabel}),
		connectionsTotal: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "channel",
			Name:      "connections_total",
			Help:      "The number of open channel connections.",
		}),
		sharedObjects: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "publisher",
			Name:      "shared_objects",
			Help:      "The number of shared instances currently registered.",
		}),
	}

	metrics.serverVersion.With(prometheus.Labels{
		"server_version": version.Version,
	}).Set(1)

	return metrics, nil
}

// AddSentMessage records a message of the given event and payload size
// written to a channel.
func (m *Metrics) AddSentMessage(event string, bytes int) {
	if m == nil {
		return
	}
	m.messagesSentTotal.With(prometheus.Labels{eventLabel: event}).Inc()
	m.sentBytesTotal.With(prometheus.Labels{eventLabel: event}).Add(float64(bytes))
}

// AddReceivedMessage records a message of the given event and payload size
// read from a channel.
func (m *Metrics) AddReceivedMessage(event string, bytes int) {
	if m == nil {
		return
	}
	m.messagesReceivedTotal.With(prometheus.Labels{eventLabel: event}).Inc()
	m.receivedBytesTotal.With(prometheus.Labels{eventLabel: event}).Add(float64(bytes))
}

// AddConnections adds the number of open connections.
func (m *Metrics) AddConnections() {
	if m == nil {
		return
	}
	m.connectionsTotal.Inc()
}

// RemoveConnections removes the number of open connections.
func (m *Metrics) RemoveConnections() {
	if m == nil {
		return
	}
	m.connectionsTotal.Dec()
}

// SetSharedObjects sets the number of registered shared instances.
func (m *Metrics) SetSharedObjects(count int) {
	if m == nil {
		return
	}
	m.sharedObjects.Set(float64(count))
}

// Registry returns the registry of this metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
