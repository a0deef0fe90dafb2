package metrics

import (
	"io"
	"net/http"

	"github.com/safing/entropool/api"
	"github.com/safing/entropool/config"
)

var expertiseLevels = map[string]config.ExpertiseLevel{
	"user":      config.ExpertiseLevelUser,
	"expert":    config.ExpertiseLevelExpert,
	"developer": config.ExpertiseLevelDeveloper,
}

func registerAPI() error {
	api.RegisterHandler("/metrics", http.HandlerFunc(serveMetrics)).Methods(http.MethodGet)

	return api.RegisterEndpoint(api.Endpoint{
		Path: "metrics/list",
		StructFunc: func(*api.Request) (interface{}, error) {
			return Export(), nil
		},
		Name:        "Export Registered Metrics",
		Description: "List all registered metrics with their metadata.",
	})
}

// serveMetrics serves all metrics in the prometheus text format. The level
// query parameter limits the output to an expertise level.
func serveMetrics(w http.ResponseWriter, r *http.Request) {
	level, ok := expertiseLevels[r.URL.Query().Get("level")]
	if !ok {
		level = config.ExpertiseLevelDeveloper
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	WriteMetrics(w, level)
}

// WriteMetrics writes all metrics up to the given expertise level to w.
func WriteMetrics(w io.Writer, expertiseLevel config.ExpertiseLevel) {
	registryLock.RLock()
	defer registryLock.RUnlock()

	for _, metric := range registry {
		if metric.Opts().ExpertiseLevel <= expertiseLevel {
			metric.WritePrometheus(w)
		}
	}
}
