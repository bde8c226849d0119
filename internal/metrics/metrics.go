// Copyright RTPS Go Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics provides Prometheus metrics for the participant process,
// modelled directly on the teacher's internal/metrics/metrics.go: one
// Metrics struct holding every collector, constructed once against a
// prometheus.Registry and threaded down through constructors rather than
// read from a package-level global.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for a participant process: cache
// occupancy, retransmit/nack activity, and discovery match counts, the
// three areas SPEC_FULL.md calls out.
type Metrics struct {
	historyCacheSize   *prometheus.GaugeVec
	historyInstances   *prometheus.GaugeVec
	retransmitTotal    *prometheus.CounterVec
	ackNackTotal       *prometheus.CounterVec
	heartbeatTotal     *prometheus.CounterVec
	discoveryMatches   *prometheus.CounterVec
	incompatibleQos    *prometheus.CounterVec
	sampleLostTotal    *prometheus.CounterVec
	sendPassDuration   prometheus.Summary
	participantsActive prometheus.Gauge
}

const (
	HistoryCacheSizeGauge   = "rtps_history_cache_size"
	HistoryInstancesGauge   = "rtps_history_cache_instances"
	RetransmitTotal         = "rtps_writer_retransmit_total"
	AckNackTotal            = "rtps_reader_acknack_total"
	HeartbeatTotal          = "rtps_writer_heartbeat_total"
	DiscoveryMatchesTotal   = "rtps_discovery_matches_total"
	IncompatibleQosTotal    = "rtps_incompatible_qos_total"
	SampleLostTotal         = "rtps_sample_lost_total"
	sendPassDurationSummary = "rtps_writer_sendpass_duration_seconds"
	participantsActiveGauge = "rtps_participants_active"
)

// NewMetrics creates a new set of metrics and registers them with registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		historyCacheSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: HistoryCacheSizeGauge,
				Help: "Number of cache changes currently held by a HistoryCache, labelled by entity GUID and role.",
			},
			[]string{"guid", "role"},
		),
		historyInstances: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: HistoryInstancesGauge,
				Help: "Number of distinct instances currently tracked by a HistoryCache.",
			},
			[]string{"guid", "role"},
		),
		retransmitTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: RetransmitTotal,
				Help: "Total number of cache changes a StatefulWriter has resent in response to an ACKNACK or NACK_FRAG.",
			},
			[]string{"guid"},
		),
		ackNackTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: AckNackTotal,
				Help: "Total number of ACKNACK submessages a StatefulReader has sent.",
			},
			[]string{"guid"},
		),
		heartbeatTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: HeartbeatTotal,
				Help: "Total number of HEARTBEAT submessages a StatefulWriter has sent.",
			},
			[]string{"guid"},
		),
		discoveryMatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: DiscoveryMatchesTotal,
				Help: "Total number of endpoint matches established by SEDP discovery, labelled by direction.",
			},
			[]string{"direction"},
		),
		incompatibleQos: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: IncompatibleQosTotal,
				Help: "Total number of Offered/RequestedIncompatibleQos incidents raised during SEDP matching.",
			},
			[]string{"side", "policy"},
		),
		sampleLostTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: SampleLostTotal,
				Help: "Total number of samples a StatefulReader reported lost after abandoning a fragment group or reassembly gap.",
			},
			[]string{"guid"},
		),
		sendPassDuration: prometheus.NewSummary(prometheus.SummaryOpts{
			Name:       sendPassDurationSummary,
			Help:       "Duration of a StatefulWriter.SendPass call.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}),
		participantsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: participantsActiveGauge,
			Help: "Number of DomainParticipants currently running in this process.",
		}),
	}
	m.register(registry)
	return m
}

func (m *Metrics) register(registry *prometheus.Registry) {
	registry.MustRegister(
		m.historyCacheSize,
		m.historyInstances,
		m.retransmitTotal,
		m.ackNackTotal,
		m.heartbeatTotal,
		m.discoveryMatches,
		m.incompatibleQos,
		m.sampleLostTotal,
		m.sendPassDuration,
		m.participantsActive,
	)
}

// SetHistoryCacheSize records a HistoryCache's current change/instance
// counts, labelled by the owning entity's GUID string and its role
// ("writer" or "reader").
func (m *Metrics) SetHistoryCacheSize(guid, role string, changes, instances int) {
	m.historyCacheSize.WithLabelValues(guid, role).Set(float64(changes))
	m.historyInstances.WithLabelValues(guid, role).Set(float64(instances))
}

// AddRetransmit records n cache changes resent by the writer identified by
// guid.
func (m *Metrics) AddRetransmit(guid string, n int) {
	m.retransmitTotal.WithLabelValues(guid).Add(float64(n))
}

// IncAckNack records one ACKNACK sent by the reader identified by guid.
func (m *Metrics) IncAckNack(guid string) {
	m.ackNackTotal.WithLabelValues(guid).Inc()
}

// IncHeartbeat records one HEARTBEAT sent by the writer identified by guid.
func (m *Metrics) IncHeartbeat(guid string) {
	m.heartbeatTotal.WithLabelValues(guid).Inc()
}

// IncDiscoveryMatch records one SEDP-driven endpoint match, direction being
// "writer-to-reader" or "reader-to-writer".
func (m *Metrics) IncDiscoveryMatch(direction string) {
	m.discoveryMatches.WithLabelValues(direction).Inc()
}

// IncIncompatibleQos records one Offered/RequestedIncompatibleQos incident,
// side being "offered" or "requested".
func (m *Metrics) IncIncompatibleQos(side, policy string) {
	m.incompatibleQos.WithLabelValues(side, policy).Inc()
}

// IncSampleLost records one SampleLost event reported by the reader
// identified by guid.
func (m *Metrics) IncSampleLost(guid string) {
	m.sampleLostTotal.WithLabelValues(guid).Inc()
}

// ObserveSendPass records the wall-clock duration of one SendPass call.
func (m *Metrics) ObserveSendPass(seconds float64) {
	m.sendPassDuration.Observe(seconds)
}

// SetParticipantsActive records the number of participants currently
// running in this process.
func (m *Metrics) SetParticipantsActive(n int) {
	m.participantsActive.Set(float64(n))
}

// Handler returns an http.Handler serving registry's metrics in the
// Prometheus exposition format.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
