package metrics

import (
	"context"

	"github.com/safing/entropool/config"
	"github.com/safing/entropool/log"
	"github.com/safing/entropool/modules"
)

var (
	moduleErrors       = make(chan *modules.ModuleError, 10)
	modulePanicCounter *Counter
)

func registerLogMetrics() error {
	for _, c := range []struct {
		id   string
		name string
		fn   func() uint64
	}{
		{"logs/warning/total", "Total Warning Log Lines", log.TotalWarningLogLines.Load},
		{"logs/error/total", "Total Error Log Lines", log.TotalErrorLogLines.Load},
		{"logs/critical/total", "Total Critical Log Lines", log.TotalCriticalLogLines.Load},
	} {
		_, err := NewFetchingCounter(c.id, nil, c.fn, &Options{
			Name:           c.name,
			ExpertiseLevel: config.ExpertiseLevelExpert,
		})
		if err != nil {
			return err
		}
	}

	var err error
	modulePanicCounter, err = NewCounter("modules/panics/total", nil, &Options{
		Name:           "Total Recovered Panics",
		ExpertiseLevel: config.ExpertiseLevelExpert,
	})
	if err != nil {
		return err
	}
	modules.SetErrorReportingChannel(moduleErrors)
	return nil
}

// panicReporter counts and logs panics recovered by workers of any module.
func panicReporter(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case me := <-moduleErrors:
			if isPanic, _ := modules.IsPanic(me); isPanic {
				modulePanicCounter.Inc()
			}
			log.Errorf("metrics: reported by %s: %s", me.ModuleName, me.Message)
			log.Tracef("metrics: stack of report:\n%s", me.StackTrace)
		}
	}
}
