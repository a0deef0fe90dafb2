package metrics

import (
	"io"

	vm "github.com/VictoriaMetrics/metrics"

	"github.com/safing/entropool/config"
)

// writerMetric exposes metrics that are written by an external function,
// such as the process and Go runtime metrics of VictoriaMetrics.
type writerMetric struct {
	*metricBase
	write func(w io.Writer)
}

func (wm *writerMetric) WritePrometheus(w io.Writer) {
	wm.write(w)
}

func registerRuntimeMetric() error {
	base, err := newMetricBase("_runtime", nil, Options{
		Name:           "Go Runtime and Process",
		ExpertiseLevel: config.ExpertiseLevelDeveloper,
	})
	if err != nil {
		return err
	}

	return register(&writerMetric{
		metricBase: base,
		write:      vm.WriteProcessMetrics,
	})
}
