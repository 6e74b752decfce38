// Package metrics exports the session counters to Prometheus.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "swotrace"

// Source is the set of counters a Collector reports. session.Session
// implements it.
type Source interface {
	PacketErrors(reset bool) uint32
	Overflows(reset bool) uint32
	ProfileOverflows(reset bool) uint32
	QueueLen() int
	LineCount() int
}

// Collector reports the counters of one trace session. Counters are read
// without resetting them.
type Collector struct {
	src Source

	packetErrors     *prometheus.Desc
	queueOverflows   *prometheus.Desc
	profileOverflows *prometheus.Desc
	queuePending     *prometheus.Desc
	traceLines       *prometheus.Desc
}

// NewCollector creates a collector over src. Each metric carries the given
// transport label.
func NewCollector(src Source, transport string) *Collector {
	labels := prometheus.Labels{"transport": transport}
	desc := func(subsystem, name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, nil, labels)
	}
	return &Collector{
		src:              src,
		packetErrors:     desc("itm", "packet_errors", "ITM packets dropped on a protocol error since the last reset."),
		queueOverflows:   desc("queue", "overflows", "Packets dropped because the queue was full since the last reset."),
		profileOverflows: desc("profile", "overflows", "ITM overflow frames seen while profiling since the last reset."),
		queuePending:     desc("queue", "pending_packets", "Packets waiting to be decoded."),
		traceLines:       desc("trace", "lines", "Trace lines held in the store."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.packetErrors
	ch <- c.queueOverflows
	ch <- c.profileOverflows
	ch <- c.queuePending
	ch <- c.traceLines
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.packetErrors, prometheus.GaugeValue, float64(c.src.PacketErrors(false)))
	ch <- prometheus.MustNewConstMetric(c.queueOverflows, prometheus.GaugeValue, float64(c.src.Overflows(false)))
	ch <- prometheus.MustNewConstMetric(c.profileOverflows, prometheus.GaugeValue, float64(c.src.ProfileOverflows(false)))
	ch <- prometheus.MustNewConstMetric(c.queuePending, prometheus.GaugeValue, float64(c.src.QueueLen()))
	ch <- prometheus.MustNewConstMetric(c.traceLines, prometheus.GaugeValue, float64(c.src.LineCount()))
}

// Register adds a collector for src to reg. Registering the same session
// twice is not an error.
func Register(reg prometheus.Registerer, src Source, transport string) error {
	err := reg.Register(NewCollector(src, transport))
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		return nil
	}
	return err
}
