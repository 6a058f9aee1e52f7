// SPDX-License-Identifier: AGPL-3.0-or-later
// DMRHub - Run a DMR network server in a single binary
// Copyright (C) 2023-2024 Jacob McSwain
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// The source code is available at <https://github.com/USA-RedDragon/DMRHub>

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the counters and gauges covering the Frame Decoder,
// Broker, Call Registry, and Media Router.
type Metrics struct {
	FramesDecodedTotal            *prometheus.CounterVec
	ResyncBytesTotal              prometheus.Counter
	BrokerSubscribers             prometheus.Gauge
	BrokerMessagesDropped         prometheus.Counter
	ActiveCalls                   prometheus.Gauge
	CallsStartedTotal             prometheus.Counter
	FeedersFree                   prometheus.Gauge
	FeedersBound                  prometheus.Gauge
	RouterSubscriptionFramesTotal *prometheus.CounterVec
}

// NewMetrics constructs and registers every collector.
func NewMetrics() *Metrics {
	metrics := &Metrics{
		FramesDecodedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tetralog_frames_decoded_total",
			Help: "The total number of signaling and voice frames decoded, by kind",
		}, []string{"kind"}),
		ResyncBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tetralog_resync_bytes_total",
			Help: "The total number of bytes discarded while resyncing on garbage",
		}),
		BrokerSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tetralog_broker_subscribers",
			Help: "The current number of live broker subscriptions",
		}),
		BrokerMessagesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tetralog_broker_messages_dropped_total",
			Help: "The total number of messages dropped because a subscriber fell behind",
		}),
		ActiveCalls: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tetralog_active_calls",
			Help: "The current number of calls tracked by the registry",
		}),
		CallsStartedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tetralog_calls_started_total",
			Help: "The total number of calls observed since startup",
		}),
		FeedersFree: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tetralog_feeders_free",
			Help: "The current number of unallocated media feeders",
		}),
		FeedersBound: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tetralog_feeders_bound",
			Help: "The current number of feeders bound to an active call",
		}),
		RouterSubscriptionFramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tetralog_router_subscription_frames_total",
			Help: "The total number of messages the media router observed on its configured startup broker prefixes, by prefix",
		}, []string{"prefix"}),
	}
	metrics.register()
	return metrics
}

func (m *Metrics) register() {
	prometheus.MustRegister(m.FramesDecodedTotal)
	prometheus.MustRegister(m.ResyncBytesTotal)
	prometheus.MustRegister(m.BrokerSubscribers)
	prometheus.MustRegister(m.BrokerMessagesDropped)
	prometheus.MustRegister(m.ActiveCalls)
	prometheus.MustRegister(m.CallsStartedTotal)
	prometheus.MustRegister(m.FeedersFree)
	prometheus.MustRegister(m.FeedersBound)
	prometheus.MustRegister(m.RouterSubscriptionFramesTotal)
}

// RecordFrameDecoded increments the decoded-frame counter for kind, one of
// "signaling", "voice", or "voice_dropped".
func (m *Metrics) RecordFrameDecoded(kind string) {
	m.FramesDecodedTotal.WithLabelValues(kind).Inc()
}

// RecordResync adds n bytes to the running resync total.
func (m *Metrics) RecordResync(n int) {
	m.ResyncBytesTotal.Add(float64(n))
}

// SetBrokerSubscribers reports the current live subscriber count.
func (m *Metrics) SetBrokerSubscribers(count int) {
	m.BrokerSubscribers.Set(float64(count))
}

// RecordBrokerDrop records one dropped message delivery.
func (m *Metrics) RecordBrokerDrop() {
	m.BrokerMessagesDropped.Inc()
}

// SetActiveCalls reports the registry's current call count.
func (m *Metrics) SetActiveCalls(count int) {
	m.ActiveCalls.Set(float64(count))
}

// RecordCallStarted increments the lifetime call-started counter.
func (m *Metrics) RecordCallStarted() {
	m.CallsStartedTotal.Inc()
}

// SetFeederCounts reports the media router's free/bound feeder counts.
func (m *Metrics) SetFeederCounts(free, bound int) {
	m.FeedersFree.Set(float64(free))
	m.FeedersBound.Set(float64(bound))
}

// RecordRouterSubscriptionFrame increments the per-prefix counter for one of
// the media router's configured startup broker subscriptions.
func (m *Metrics) RecordRouterSubscriptionFrame(prefix string) {
	m.RouterSubscriptionFramesTotal.WithLabelValues(prefix).Inc()
}
