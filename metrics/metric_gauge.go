package metrics

import (
	vm "github.com/VictoriaMetrics/metrics"
)

// Gauge is a gauge metric.
type Gauge struct {
	*metricBase
	*vm.Gauge
}

// NewGauge registers a new gauge metric.
func NewGauge(id string, labels map[string]string, fn func() float64, opts *Options) (*Gauge, error) {
	// Check if a fetch function is provided.
	if fn == nil {
		return nil, errNoFetchFunc
	}

	// Ensure that there are options.
	if opts == nil {
		opts = &Options{}
	}

	// Make base.
	base, err := newMetricBase(id, labels, *opts)
	if err != nil {
		return nil, err
	}

	// Create metric struct.
	m := &Gauge{
		metricBase: base,
	}

	// Create metric in set
	m.Gauge = m.set.NewGauge(m.LabeledID(), fn)

	// Register metric.
	err = register(m)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// MustGauge is like NewGauge, but panics on error.
func MustGauge(id string, labels map[string]string, fn func() float64, opts *Options) *Gauge {
	m, err := NewGauge(id, labels, fn, opts)
	if err != nil {
		panic(err)
	}
	return m
}
