package dispatch

import (
	"github.com/safing/entropool/metrics"
)

var (
	jobsSubmitted = metrics.MustCounter("jobs/total", map[string]string{"outcome": "submitted"}, &metrics.Options{
		Name: "Submitted Jobs",
	})
	jobsCompleted = metrics.MustCounter("jobs/total", map[string]string{"outcome": "completed"}, &metrics.Options{
		Name: "Completed Jobs",
	})
	jobsFailed = metrics.MustCounter("jobs/total", map[string]string{"outcome": "failed"}, &metrics.Options{
		Name: "Failed Jobs",
	})
	jobsRejected = metrics.MustCounter("jobs/total", map[string]string{"outcome": "rejected"}, &metrics.Options{
		Name: "Rejected Jobs",
	})
)

func registerMetrics() error {
	_, err := metrics.NewGauge("jobs/active", nil, func() float64 {
		if d := DefaultDispatcher(); d != nil {
			return float64(d.Active())
		}
		return 0
	}, &metrics.Options{
		Name: "Active Jobs",
	})
	if err != nil {
		return err
	}

	_, err = metrics.NewGauge("jobs/queued", nil, func() float64 {
		if d := DefaultDispatcher(); d != nil {
			return float64(d.Queued())
		}
		return 0
	}, &metrics.Options{
		Name: "Queued Jobs",
	})
	return err
}
