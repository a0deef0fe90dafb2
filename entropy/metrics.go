package entropy

import (
	"github.com/safing/entropool/config"
	"github.com/safing/entropool/metrics"
)

var (
	remoteRequests = metrics.MustCounter("remote/requests/total", nil, &metrics.Options{
		Name: "Remote Entropy Requests",
	})
	remoteFailures = metrics.MustCounter("remote/failures/total", nil, &metrics.Options{
		Name: "Failed Remote Entropy Fetches",
	})
	remoteUnits = metrics.MustCounter("remote/units/total", nil, &metrics.Options{
		Name: "Fetched Remote Entropy Units",
	})
	poolDraws = metrics.MustCounter("pool/draws/total", nil, &metrics.Options{
		Name: "Entropy Pool Draws",
	})
	poolFlushes = metrics.MustCounter("pool/flushes/total", nil, &metrics.Options{
		Name:           "Entropy Pool Flushes",
		ExpertiseLevel: config.ExpertiseLevelExpert,
	})
	recordsCommitted = metrics.MustCounter("records/committed/total", nil, &metrics.Options{
		Name: "Committed Entropy Records",
	})
)

func registerPoolMetrics() error {
	_, err := metrics.NewGauge("pool/size", nil, func() float64 {
		if pool := DefaultPool(); pool != nil {
			return float64(pool.Size())
		}
		return 0
	}, &metrics.Options{
		Name: "Entropy Pool Size",
	})
	return err
}
