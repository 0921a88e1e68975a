// Package metrics exports stream statistics to Prometheus.
package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lanikai/alohakvs"
)

// StatsSource is satisfied by *alohakvs.Stream.
type StatsSource interface {
	Stats() alohakvs.Stats
}

// Metrics exposes one stream's statistics plus the producer's own counters.
type Metrics struct {
	FramesRead    uint64
	FramesDropped uint64
	BytesWritten  uint64

	source   StatsSource
	registry *prometheus.Registry
}

func New(source StatsSource) *Metrics {
	m := &Metrics{
		source:   source,
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(&streamCollector{source: source})
	m.registerProducerMetrics()
	return m
}

func (m *Metrics) registerProducerMetrics() {
	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "alohakvs_frames_read_total",
			Help: "Frames read from the media sources",
		},
		func() float64 { return float64(atomic.LoadUint64(&m.FramesRead)) },
	))
	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "alohakvs_frames_dropped_total",
			Help: "Frames dropped to stay under the buffer memory limit",
		},
		func() float64 { return float64(atomic.LoadUint64(&m.FramesDropped)) },
	))
	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "alohakvs_bytes_written_total",
			Help: "Bytes written to the output, headers included",
		},
		func() float64 { return float64(atomic.LoadUint64(&m.BytesWritten)) },
	))
}

func (m *Metrics) AddFramesRead(n uint64)    { atomic.AddUint64(&m.FramesRead, n) }
func (m *Metrics) AddFramesDropped(n uint64) { atomic.AddUint64(&m.FramesDropped, n) }
func (m *Metrics) AddBytesWritten(n uint64)  { atomic.AddUint64(&m.BytesWritten, n) }

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

var (
	pendingDesc = prometheus.NewDesc(
		"alohakvs_pending_frames",
		"Frames waiting in the stream queue",
		[]string{"track"}, nil,
	)
	memDesc = prometheus.NewDesc(
		"alohakvs_stream_memory_bytes",
		"Memory held by the stream, headers and payloads included",
		nil, nil,
	)
	enqueuedDesc = prometheus.NewDesc(
		"alohakvs_frames_enqueued_total",
		"Frames added to the stream",
		nil, nil,
	)
	dequeuedDesc = prometheus.NewDesc(
		"alohakvs_frames_dequeued_total",
		"Frames popped from the stream",
		nil, nil,
	)
	correctionsDesc = prometheus.NewDesc(
		"alohakvs_delta_corrections_total",
		"Passes rewriting relative timestamps after an out of order cluster",
		nil, nil,
	)
	tagsDesc = prometheus.NewDesc(
		"alohakvs_tags_injected_total",
		"Tags blocks written into the stream",
		nil, nil,
	)
)

// One snapshot per scrape, so all values are consistent with each other.
type streamCollector struct {
	source StatsSource
}

func (c *streamCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- pendingDesc
	ch <- memDesc
	ch <- enqueuedDesc
	ch <- dequeuedDesc
	ch <- correctionsDesc
	ch <- tagsDesc
}

func (c *streamCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.source.Stats()
	ch <- prometheus.MustNewConstMetric(pendingDesc, prometheus.GaugeValue, float64(st.VideoFrames), "video")
	ch <- prometheus.MustNewConstMetric(pendingDesc, prometheus.GaugeValue, float64(st.AudioFrames), "audio")
	ch <- prometheus.MustNewConstMetric(memDesc, prometheus.GaugeValue, float64(st.MemTotal))
	ch <- prometheus.MustNewConstMetric(enqueuedDesc, prometheus.CounterValue, float64(st.Enqueued))
	ch <- prometheus.MustNewConstMetric(dequeuedDesc, prometheus.CounterValue, float64(st.Dequeued))
	ch <- prometheus.MustNewConstMetric(correctionsDesc, prometheus.CounterValue, float64(st.Corrections))
	ch <- prometheus.MustNewConstMetric(tagsDesc, prometheus.CounterValue, float64(st.TagsInjected))
}
