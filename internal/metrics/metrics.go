// Package metrics records the outcome of one relay run for the node-exporter
// textfile collector.
package metrics

import (
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const (
	nameReadings       = "pvrelay_readings_submitted"
	nameBatches        = "pvrelay_batches_submitted"
	nameSuccess        = "pvrelay_last_run_success"
	nameDuration       = "pvrelay_last_run_duration_seconds"
	nameLastSuccess    = "pvrelay_last_success_timestamp_seconds"
	nameCheckpointTime = "pvrelay_checkpoint_timestamp_seconds"
	nameCheckpointWh   = "pvrelay_checkpoint_day_energy_wh"
)

// Metrics holds the gauges for one run
type Metrics struct {
	registry *prometheus.Registry

	readings       *prometheus.GaugeVec
	batches        *prometheus.GaugeVec
	success        *prometheus.GaugeVec
	duration       *prometheus.GaugeVec
	lastSuccess    prometheus.Gauge
	checkpointTime prometheus.Gauge
	checkpointWh   prometheus.Gauge
}

// New registers the run gauges on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		readings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: nameReadings,
			Help: "Readings PVOutput accepted in the last run.",
		}, []string{"mode"}),
		batches: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: nameBatches,
			Help: "Batch status calls PVOutput accepted in the last run.",
		}, []string{"mode"}),
		success: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: nameSuccess,
			Help: "1 if the last run completed without error.",
		}, []string{"mode"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: nameDuration,
			Help: "Wall time of the last run.",
		}, []string{"mode"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: nameLastSuccess,
			Help: "Unix time of the last successful run.",
		}),
		checkpointTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: nameCheckpointTime,
			Help: "Timestamp of the stored checkpoint reading.",
		}),
		checkpointWh: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: nameCheckpointWh,
			Help: "Day energy of the stored checkpoint reading.",
		}),
	}

	m.registry.MustRegister(
		m.readings, m.batches, m.success, m.duration,
		m.lastSuccess, m.checkpointTime, m.checkpointWh,
	)
	return m
}

// Run describes a finished run
type Run struct {
	Mode           string
	Readings       int
	Batches        int
	Duration       time.Duration
	Finished       time.Time
	Err            error
	CheckpointTime int64
	CheckpointWh   float64
}

// Observe records run
func (m *Metrics) Observe(run Run) {
	m.readings.WithLabelValues(run.Mode).Set(float64(run.Readings))
	m.batches.WithLabelValues(run.Mode).Set(float64(run.Batches))
	m.duration.WithLabelValues(run.Mode).Set(run.Duration.Seconds())

	// The checkpoint is reported even after a failure, it is what the next run resumes from
	if run.CheckpointTime > 0 {
		m.checkpointTime.Set(float64(run.CheckpointTime))
		m.checkpointWh.Set(run.CheckpointWh)
	}

	if run.Err != nil {
		m.success.WithLabelValues(run.Mode).Set(0)
		return
	}
	m.success.WithLabelValues(run.Mode).Set(1)
	m.lastSuccess.Set(float64(run.Finished.Unix()))
}

// Restore seeds the gauges from a textfile written by an earlier run, so the
// series of the other mode, the last success time and the checkpoint survive
// runs that do not update them. A missing file is not an error.
func (m *Metrics) Restore(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("opening metrics textfile: %w", err)
	}
	defer f.Close()

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(f)
	if err != nil {
		return fmt.Errorf("parsing metrics textfile: %w", err)
	}

	gauges := map[string]prometheus.Gauge{
		nameLastSuccess:    m.lastSuccess,
		nameCheckpointTime: m.checkpointTime,
		nameCheckpointWh:   m.checkpointWh,
	}
	vecs := map[string]*prometheus.GaugeVec{
		nameReadings: m.readings,
		nameBatches:  m.batches,
		nameSuccess:  m.success,
		nameDuration: m.duration,
	}

	for name, family := range families {
		for _, metric := range family.GetMetric() {
			if metric.GetGauge() == nil {
				continue
			}
			value := metric.GetGauge().GetValue()

			if g, ok := gauges[name]; ok {
				g.Set(value)
				continue
			}
			if vec, ok := vecs[name]; ok {
				if mode := labelValue(metric, "mode"); mode != "" {
					vec.WithLabelValues(mode).Set(value)
				}
			}
		}
	}
	return nil
}

func labelValue(metric *dto.Metric, name string) string {
	for _, lp := range metric.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// WriteTextfile writes all gauges to path for the textfile collector
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
