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

package prometheus_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/shareobj/internal/metrics/prometheus"
)

func TestMetrics(t *testing.T) {
	t.Run("records messages test", func(t *testing.T) {
		m, err := prometheus.NewMetrics()
		require.NoError(t, err)

		m.AddSentMessage("__shareobj_chg", 10)
		m.AddSentMessage("__shareobj_chg", 5)
		m.AddReceivedMessage("__shareobj_reg", 7)
		m.AddConnections()
		m.AddConnections()
		m.RemoveConnections()
		m.SetSharedObjects(3)

		count, err := testutil.GatherAndCount(m.Registry(),
			"shareobj_channel_messages_sent_total",
			"shareobj_channel_messages_received_total",
			"shareobj_channel_connections_total",
			"shareobj_publisher_shared_objects",
		)
		require.NoError(t, err)
		assert.Equal(t, 4, count)
	})

	t.Run("nil metrics test", func(t *testing.T) {
		var m *prometheus.Metrics
		assert.NotPanics(t, func() {
			m.AddSentMessage("ev", 1)
			m.AddReceivedMessage("ev", 1)
			m.AddConnections()
			m.RemoveConnections()
			m.SetSharedObjects(1)
		})
	})
}
