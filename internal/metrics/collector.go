package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RegistryStats provides the collector access to model cache state.
type RegistryStats interface {
	Loaded() []string
}

// Collector implements prometheus.Collector to read live gauges at scrape time.
type Collector struct {
	stats RegistryStats

	modelsLoaded *prometheus.Desc
	modelLoaded  *prometheus.Desc
}

// NewCollector creates a collector that reads live state at scrape time.
// stats may be nil (metrics will report 0).
func NewCollector(stats RegistryStats) *Collector {
	return &Collector{
		stats: stats,
		modelsLoaded: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "models_loaded"),
			"Number of models held in the model cache.",
			nil, nil,
		),
		modelLoaded: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "model_loaded"),
			"1 for each model identifier held in the model cache.",
			[]string{"model"}, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.modelsLoaded
	ch <- c.modelLoaded
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.stats == nil {
		ch <- prometheus.MustNewConstMetric(c.modelsLoaded, prometheus.GaugeValue, 0)
		return
	}
	loaded := c.stats.Loaded()
	ch <- prometheus.MustNewConstMetric(c.modelsLoaded, prometheus.GaugeValue, float64(len(loaded)))
	for _, id := range loaded {
		ch <- prometheus.MustNewConstMetric(c.modelLoaded, prometheus.GaugeValue, 1, id)
	}
}
