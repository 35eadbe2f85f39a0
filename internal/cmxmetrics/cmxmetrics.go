// Package cmxmetrics exposes the CMX conferencing engine's operational
// counters as a Prometheus collector: a handful of provider interfaces
// queried at scrape time rather than metrics pushed eagerly from the
// hot path.
package cmxmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineStatsProvider exposes CMX mixer-level counters. *cmx.Context
// implements this interface; it is expressed here as a narrow provider
// interface (rather than importing internal/cmx) so this package has no
// dependency on the mixer's internals.
type EngineStatsProvider interface {
	ActiveConferences() int
	TotalMembers() int
	RxFramesDropped() uint64
	TxBytesDropped() uint64
	HardwareTransitions() uint64
}

// DTMFStatsProvider exposes decoder-level counters aggregated across
// every channel's dtmf.State.
type DTMFStatsProvider interface {
	DigitsEmitted() uint64
	DigitsDroppedFull() uint64
}

// Collector is a prometheus.Collector gathering CMX engine and DTMF
// decoder counters at scrape time.
type Collector struct {
	engine EngineStatsProvider
	dtmf   DTMFStatsProvider

	startTime time.Time

	activeConferencesDesc  *prometheus.Desc
	totalMembersDesc       *prometheus.Desc
	rxFramesDroppedDesc    *prometheus.Desc
	txBytesDroppedDesc     *prometheus.Desc
	hardwareTransitionDesc *prometheus.Desc
	digitsEmittedDesc      *prometheus.Desc
	digitsDroppedDesc      *prometheus.Desc
	uptimeDesc             *prometheus.Desc
}

// NewCollector creates a metrics collector for the CMX engine. Either
// provider may be nil if that subsystem's counters are unavailable.
func NewCollector(engine EngineStatsProvider, dtmf DTMFStatsProvider, startTime time.Time) *Collector {
	return &Collector{
		engine:    engine,
		dtmf:      dtmf,
		startTime: startTime,

		activeConferencesDesc: prometheus.NewDesc(
			"cmx_active_conferences",
			"Number of currently active conferences",
			nil, nil,
		),
		totalMembersDesc: prometheus.NewDesc(
			"cmx_total_members",
			"Total number of channels currently in a conference",
			nil, nil,
		),
		rxFramesDroppedDesc: prometheus.NewDesc(
			"cmx_rx_frames_dropped_total",
			"Total inbound frames dropped as oversized or by the ring-buffer overflow guard",
			nil, nil,
		),
		txBytesDroppedDesc: prometheus.NewDesc(
			"cmx_tx_bytes_dropped_total",
			"Total outbound tx bytes dropped by producer-pacing",
			nil, nil,
		),
		hardwareTransitionDesc: prometheus.NewDesc(
			"cmx_hardware_transitions_total",
			"Total hardware-solution transitions dispatched to the offload stub",
			nil, nil,
		),
		digitsEmittedDesc: prometheus.NewDesc(
			"cmx_dtmf_digits_emitted_total",
			"Total DTMF digits emitted across all channels",
			nil, nil,
		),
		digitsDroppedDesc: prometheus.NewDesc(
			"cmx_dtmf_digits_dropped_total",
			"Total DTMF digits dropped because a channel's digit buffer was full",
			nil, nil,
		),
		uptimeDesc: prometheus.NewDesc(
			"cmx_uptime_seconds",
			"Seconds since the collector was created",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.activeConferencesDesc
	ch <- c.totalMembersDesc
	ch <- c.rxFramesDroppedDesc
	ch <- c.txBytesDroppedDesc
	ch <- c.hardwareTransitionDesc
	ch <- c.digitsEmittedDesc
	ch <- c.digitsDroppedDesc
	ch <- c.uptimeDesc
}

// Collect implements prometheus.Collector. It queries all providers at scrape time.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.engine != nil {
		ch <- prometheus.MustNewConstMetric(
			c.activeConferencesDesc, prometheus.GaugeValue,
			float64(c.engine.ActiveConferences()),
		)
		ch <- prometheus.MustNewConstMetric(
			c.totalMembersDesc, prometheus.GaugeValue,
			float64(c.engine.TotalMembers()),
		)
		ch <- prometheus.MustNewConstMetric(
			c.rxFramesDroppedDesc, prometheus.CounterValue,
			float64(c.engine.RxFramesDropped()),
		)
		ch <- prometheus.MustNewConstMetric(
			c.txBytesDroppedDesc, prometheus.CounterValue,
			float64(c.engine.TxBytesDropped()),
		)
		ch <- prometheus.MustNewConstMetric(
			c.hardwareTransitionDesc, prometheus.CounterValue,
			float64(c.engine.HardwareTransitions()),
		)
	}

	if c.dtmf != nil {
		ch <- prometheus.MustNewConstMetric(
			c.digitsEmittedDesc, prometheus.CounterValue,
			float64(c.dtmf.DigitsEmitted()),
		)
		ch <- prometheus.MustNewConstMetric(
			c.digitsDroppedDesc, prometheus.CounterValue,
			float64(c.dtmf.DigitsDroppedFull()),
		)
	}

	ch <- prometheus.MustNewConstMetric(
		c.uptimeDesc, prometheus.GaugeValue,
		time.Since(c.startTime).Seconds(),
	)
}
