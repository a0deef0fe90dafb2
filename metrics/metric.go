package metrics

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"sync"

	vm "github.com/VictoriaMetrics/metrics"

	"github.com/safing/entropool/config"
)

// PrometheusFormatRequirement is required format defined by prometheus for
// metric and label names.
const (
	prometheusBaseFormt         = "[a-zA-Z_][a-zA-Z0-9_]*"
	PrometheusFormatRequirement = "^" + prometheusBaseFormt + "$"

	metricPrefix = "entropool_"
)

var prometheusFormat = regexp.MustCompile(PrometheusFormatRequirement)

// Errors.
var (
	ErrInvalidID         = errors.New("metric ID is invalid")
	ErrInvalidLabel      = errors.New("metric label is invalid")
	ErrAlreadyRegistered = errors.New("metric already registered")
)

var (
	registry     []Metric
	registryLock sync.RWMutex
)

// Metric represents one or more metrics.
type Metric interface {
	ID() string
	LabeledID() string
	Opts() *Options
	WritePrometheus(w io.Writer)
}

// Options can be used to set advanced metric settings.
type Options struct {
	// Name defines an optional human readable name for the metric.
	Name string

	// Help is an optional help text for the metric.
	Help string

	// ExpertiseLevel defines which expertise level the metric is meant for.
	ExpertiseLevel config.ExpertiseLevel
}

type metricBase struct {
	Identifier        string
	Labels            map[string]string
	LabeledIdentifier string
	Options           *Options
	set               *vm.Set
}

func newMetricBase(id string, labels map[string]string, opts Options) (*metricBase, error) {
	// Check formats.
	if !prometheusFormat.MatchString(strings.ReplaceAll(id, "/", "_")) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidID, id)
	}
	for k := range labels {
		if !prometheusFormat.MatchString(k) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidLabel, k)
		}
	}

	// Clamp expertise level.
	if opts.ExpertiseLevel > config.ExpertiseLevelDeveloper {
		opts.ExpertiseLevel = config.ExpertiseLevelDeveloper
	}

	return &metricBase{
		Identifier:        id,
		Labels:            labels,
		LabeledIdentifier: formatLabeledID(id, labels),
		Options:           &opts,
		set:               vm.NewSet(),
	}, nil
}

func formatLabeledID(id string, labels map[string]string) string {
	name := metricPrefix + strings.ReplaceAll(id, "/", "_")
	if len(labels) == 0 {
		return name
	}

	// Sort labels for a stable ID.
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", k, labels[k]))
	}
	return name + "{" + strings.Join(parts, ",") + "}"
}

// ID returns the given ID of the metric.
func (m *metricBase) ID() string {
	return m.Identifier
}

// LabeledID returns the Prometheus-compatible labeled ID of the metric.
func (m *metricBase) LabeledID() string {
	return m.LabeledIdentifier
}

// Opts returns the metric options. They may not be modified.
func (m *metricBase) Opts() *Options {
	return m.Options
}

// WritePrometheus writes the metric in the prometheus format to the given writer.
func (m *metricBase) WritePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
}

func register(m Metric) error {
	registryLock.Lock()
	defer registryLock.Unlock()

	// Check if metric ID is already registered.
	for _, registeredMetric := range registry {
		if m.LabeledID() == registeredMetric.LabeledID() {
			return fmt.Errorf("%w: %s", ErrAlreadyRegistered, m.LabeledID())
		}
	}

	registry = append(registry, m)
	sort.Slice(registry, func(i, j int) bool {
		return registry[i].LabeledID() < registry[j].LabeledID()
	})
	return nil
}

// ExportedMetric describes a registered metric.
type ExportedMetric struct {
	ID        string
	LabeledID string
	Labels    map[string]string `json:",omitempty"`
	Options   *Options
}

// Export returns a description of all registered metrics.
func Export() []*ExportedMetric {
	registryLock.RLock()
	defer registryLock.RUnlock()

	exported := make([]*ExportedMetric, 0, len(registry))
	for _, m := range registry {
		em := &ExportedMetric{
			ID:        m.ID(),
			LabeledID: m.LabeledID(),
			Options:   m.Opts(),
		}
		if base, ok := m.(interface{ labels() map[string]string }); ok {
			em.Labels = base.labels()
		}
		exported = append(exported, em)
	}
	return exported
}

func (m *metricBase) labels() map[string]string {
	return m.Labels
}
