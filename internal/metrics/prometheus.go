// SPDX-License-Identifier: AGPL-3.0-or-later
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the gauges and histograms that describe the daemon's live
// object graph and I/O behavior. A single instance is constructed at
// startup in cmd/root.go and handed to internal/engine.
type Metrics struct {
	Ready prometheus.Gauge

	TransportsTotal   *prometheus.GaugeVec
	PCMsOpenTotal     *prometheus.GaugeVec
	DevicesTotal      prometheus.Gauge
	CodecSelectsTotal *prometheus.CounterVec

	EncoderBusySeconds *prometheus.HistogramVec
	DecoderBusySeconds *prometheus.HistogramVec
	RTPPacketsTotal    *prometheus.CounterVec
	PCMUnderrunsTotal  *prometheus.CounterVec

	KVOperationsTotal   *prometheus.CounterVec
	KVOperationDuration *prometheus.HistogramVec
}

// NewMetrics builds and registers every collector. Call once per process;
// registering twice against the default registry panics, which is why
// cmd/root.go builds the single instance and passes it to internal/engine.
func NewMetrics() *Metrics {
	m := &Metrics{
		Ready: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "btaudiod_ready",
			Help: "1 when the daemon has finished startup and is serving RPC traffic",
		}),
		TransportsTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "btaudiod_transports",
			Help: "Number of live transports by profile",
		}, []string{"profile"}),
		PCMsOpenTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "btaudiod_pcms_open",
			Help: "Number of transports with an open client PCM fifo, by profile",
		}, []string{"profile"}),
		DevicesTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "btaudiod_devices",
			Help: "Number of known Bluetooth devices across all adapters",
		}),
		CodecSelectsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "btaudiod_codec_selects_total",
			Help: "Total number of SelectCodec calls, by codec and outcome",
		}, []string{"codec", "outcome"}),
		EncoderBusySeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "btaudiod_encoder_busy_seconds",
			Help:    "Time spent encoding one audio frame, by codec",
			Buckets: prometheus.DefBuckets,
		}, []string{"codec"}),
		DecoderBusySeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "btaudiod_decoder_busy_seconds",
			Help:    "Time spent decoding one audio frame, by codec",
			Buckets: prometheus.DefBuckets,
		}, []string{"codec"}),
		RTPPacketsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "btaudiod_rtp_packets_total",
			Help: "RTP packets moved over the A2DP transport, by direction",
		}, []string{"direction"}),
		PCMUnderrunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "btaudiod_pcm_underruns_total",
			Help: "PCM fifo underrun/overrun events, by profile",
		}, []string{"profile"}),
		KVOperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "btaudiod_kv_operations_total",
			Help: "The total number of KV operations performed",
		}, []string{"operation", "status"}),
		KVOperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "btaudiod_kv_operation_duration_seconds",
			Help:    "Duration of KV operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	m.register()
	return m
}

func (m *Metrics) register() {
	prometheus.MustRegister(
		m.Ready,
		m.TransportsTotal,
		m.PCMsOpenTotal,
		m.DevicesTotal,
		m.CodecSelectsTotal,
		m.EncoderBusySeconds,
		m.DecoderBusySeconds,
		m.RTPPacketsTotal,
		m.PCMUnderrunsTotal,
		m.KVOperationsTotal,
		m.KVOperationDuration,
	)
}

func (m *Metrics) RecordKVOperation(operation, status string, duration float64) {
	m.KVOperationsTotal.WithLabelValues(operation, status).Inc()
	m.KVOperationDuration.WithLabelValues(operation).Observe(duration)
}
