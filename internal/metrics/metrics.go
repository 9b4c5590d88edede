// Package metrics counts change request activity and chain analysis
// findings in a Prometheus registry, optionally written to a
// textfile-collector file after each action.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the vchain collectors. A nil *Metrics ignores every call.
type Metrics struct {
	reg  *prometheus.Registry
	file string

	transitions *prometheus.CounterVec
	steps       *prometheus.CounterVec
	orphaned    prometheus.Gauge
	missing     prometheus.Gauge
	links       prometheus.Gauge
}

// New returns metrics on a fresh registry. When file is non-empty, Flush
// writes the registry there in the node_exporter textfile format.
func New(file string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		reg:  reg,
		file: file,
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vchain_cr_transitions_total",
			Help: "Change request status transitions.",
		}, []string{"from", "to"}),
		steps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vchain_propagation_steps_total",
			Help: "Processed propagation steps by direction and outcome.",
		}, []string{"direction", "status"}),
		orphaned: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vchain_chain_orphaned_ids",
			Help: "Orphaned identifiers found by the latest chain analysis.",
		}),
		missing: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vchain_chain_missing_ids",
			Help: "Missing identifiers found by the latest chain analysis.",
		}),
		links: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vchain_chain_links_analyzed",
			Help: "Chain edges analyzed by the latest chain analysis.",
		}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// ObserveTransition counts one status transition.
func (m *Metrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

// ObserveStep counts one processed propagation step.
func (m *Metrics) ObserveStep(direction, status string) {
	if m == nil {
		return
	}
	m.steps.WithLabelValues(direction, status).Inc()
}

// ObserveAnalysis records the size of the latest chain analysis.
func (m *Metrics) ObserveAnalysis(links, orphaned, missing int) {
	if m == nil {
		return
	}
	m.links.Set(float64(links))
	m.orphaned.Set(float64(orphaned))
	m.missing.Set(float64(missing))
}

// Flush writes the registry to the configured textfile. It is a no-op
// when no file is configured.
func (m *Metrics) Flush() error {
	if m == nil || m.file == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(m.file), 0o755); err != nil {
		return fmt.Errorf("metrics: create dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(m.file, m.reg); err != nil {
		return fmt.Errorf("metrics: write %s: %w", m.file, err)
	}
	return nil
}
