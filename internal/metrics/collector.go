package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/strobesim/strobe/internal/engine"
	"github.com/strobesim/strobe/internal/registry"
)

// Collector gathers gauges from one engine and registry pair on every
// scrape. Values are read live; nothing is cached between collections.
type Collector struct {
	eng *engine.Engine
	reg *registry.Registry

	queueDepth   *prometheus.Desc
	pendingFlush *prometheus.Desc
	plusArgs     *prometheus.Desc
	scopes       *prometheus.Desc
	hierarchy    *prometheus.Desc
	exports      *prometheus.Desc
	userData     *prometheus.Desc
	openFiles    *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector builds a collector over eng and reg. Both must outlive
// the collector.
func NewCollector(eng *engine.Engine, reg *registry.Registry) *Collector {
	return &Collector{
		eng: eng,
		reg: reg,
		queueDepth: prometheus.NewDesc(
			"strobe_queue_depth",
			"Messages waiting in the evaluation pass inbox.",
			nil, nil,
		),
		pendingFlush: prometheus.NewDesc(
			"strobe_pending_flush_messages",
			"Messages buffered in worker outboxes and not yet flushed.",
			nil, nil,
		),
		plusArgs: prometheus.NewDesc(
			"strobe_plusargs",
			"Stored command-line arguments.",
			nil, nil,
		),
		scopes: prometheus.NewDesc(
			"strobe_scopes",
			"Registered scopes.",
			nil, nil,
		),
		hierarchy: prometheus.NewDesc(
			"strobe_hierarchy_edges",
			"Parent-child edges in the scope hierarchy.",
			nil, nil,
		),
		exports: prometheus.NewDesc(
			"strobe_exports",
			"Export ids allocated so far.",
			nil, nil,
		),
		userData: prometheus.NewDesc(
			"strobe_userdata_entries",
			"Entries in the per-scope user data table.",
			nil, nil,
		),
		openFiles: prometheus.NewDesc(
			"strobe_open_files",
			"Open virtual file descriptors by pool, standard streams excluded.",
			[]string{"pool"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.queueDepth
	ch <- c.pendingFlush
	ch <- c.plusArgs
	ch <- c.scopes
	ch <- c.hierarchy
	ch <- c.exports
	ch <- c.userData
	ch <- c.openFiles
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(
		c.queueDepth, prometheus.GaugeValue, float64(c.eng.Queue().Depth()))
	ch <- prometheus.MustNewConstMetric(
		c.pendingFlush, prometheus.GaugeValue, float64(c.eng.PendingFlush()))
	ch <- prometheus.MustNewConstMetric(
		c.plusArgs, prometheus.GaugeValue, float64(len(c.reg.Args.All())))
	ch <- prometheus.MustNewConstMetric(
		c.scopes, prometheus.GaugeValue, float64(c.reg.Scopes.Len()))
	ch <- prometheus.MustNewConstMetric(
		c.hierarchy, prometheus.GaugeValue, float64(c.reg.Hierarchy.Len()))
	ch <- prometheus.MustNewConstMetric(
		c.exports, prometheus.GaugeValue, float64(c.reg.Exports.Len()))
	ch <- prometheus.MustNewConstMetric(
		c.userData, prometheus.GaugeValue, float64(c.reg.User.Len()))

	multi, extended := c.reg.Files.OpenCounts()
	ch <- prometheus.MustNewConstMetric(
		c.openFiles, prometheus.GaugeValue, float64(multi), "multi")
	ch <- prometheus.MustNewConstMetric(
		c.openFiles, prometheus.GaugeValue, float64(extended), "extended")
}

// NewRegistry returns a pedantic prometheus registry with c registered.
// Pedantic checking catches malformed descriptors at registration time
// instead of at the first scrape.
func NewRegistry(c *Collector) *prometheus.Registry {
	r := prometheus.NewPedanticRegistry()
	r.MustRegister(c)
	return r
}

// WriteTextfile gathers g and writes the text exposition format to
// path. The write goes through a temp file and rename, so readers never
// see a partial snapshot.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
