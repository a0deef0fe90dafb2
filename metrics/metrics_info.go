package metrics

import (
	"runtime"
	"strconv"

	"github.com/safing/entropool/info"
)

// registerInfoMetric exposes build and runtime details as labels of a
// constant gauge.
func registerInfoMetric() error {
	meta := info.GetInfo()

	labels := map[string]string{
		"name":        meta.Name,
		"version":     meta.Version,
		"commit":      meta.Commit,
		"dirty":       strconv.FormatBool(meta.Dirty),
		"build_time":  meta.BuildTime,
		"go_os":       runtime.GOOS,
		"go_arch":     runtime.GOARCH,
		"go_version":  runtime.Version(),
		"go_compiler": runtime.Compiler,
	}
	for key, value := range labels {
		if value == "" {
			labels[key] = "unknown"
		}
	}

	_, err := NewGauge("info", labels, func() float64 { return 1 }, nil)
	return err
}
