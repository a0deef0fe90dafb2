package metrics

import (
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/disk"
	"github.com/shirou/gopsutil/load"
	"github.com/shirou/gopsutil/mem"

	"github.com/safing/entropool/config"
	"github.com/safing/entropool/dataroot"
	"github.com/safing/entropool/log"
)

const hostStatTTL = 1 * time.Second

// cachedStat fetches a host statistic at most once per hostStatTTL. A
// failed fetch is cached as nil for the same duration.
type cachedStat[T any] struct {
	lock    sync.Mutex
	fetch   func() (*T, error)
	what    string
	value   *T
	expires time.Time
}

func (c *cachedStat[T]) get() *T {
	c.lock.Lock()
	defer c.lock.Unlock()

	if time.Now().Before(c.expires) {
		return c.value
	}

	value, err := c.fetch()
	if err != nil {
		log.Warningf("metrics: failed to get %s: %s", c.what, err)
		value = nil
	}
	c.value = value
	c.expires = time.Now().Add(hostStatTTL)
	return c.value
}

var (
	loadStat = &cachedStat[load.AvgStat]{what: "load avg", fetch: load.Avg}
	memStat  = &cachedStat[mem.VirtualMemoryStat]{what: "memory stats", fetch: mem.VirtualMemory}
	diskStat = &cachedStat[disk.UsageStat]{what: "disk usage", fetch: func() (*disk.UsageStat, error) {
		// The store lives in the data root, so that is the disk we watch.
		root := dataroot.Root()
		if root == nil {
			return nil, dataroot.ErrNotInitialized
		}
		return disk.Usage(root.Path)
	}}
)

// hostGauge reads a single value out of a cached stat.
func hostGauge[T any](stat *cachedStat[T], read func(*T) float64) func() float64 {
	return func() float64 {
		if v := stat.get(); v != nil {
			return read(v)
		}
		return 0
	}
}

func perCPU(load float64) float64 {
	return load / float64(runtime.NumCPU())
}

func registerHostMetrics() error {
	gauges := []struct {
		id   string
		name string
		fn   func() float64
	}{
		{"host_load_avg_1", "Host Load Avg 1min", hostGauge(loadStat, func(s *load.AvgStat) float64 { return perCPU(s.Load1) })},
		{"host_load_avg_5", "Host Load Avg 5min", hostGauge(loadStat, func(s *load.AvgStat) float64 { return perCPU(s.Load5) })},
		{"host_load_avg_15", "Host Load Avg 15min", hostGauge(loadStat, func(s *load.AvgStat) float64 { return perCPU(s.Load15) })},

		{"host_mem_total", "Host Memory Total", hostGauge(memStat, func(s *mem.VirtualMemoryStat) float64 { return float64(s.Total) })},
		{"host_mem_used", "Host Memory Used", hostGauge(memStat, func(s *mem.VirtualMemoryStat) float64 { return float64(s.Used) })},
		{"host_mem_available", "Host Memory Available", hostGauge(memStat, func(s *mem.VirtualMemoryStat) float64 { return float64(s.Available) })},
		{"host_mem_used_percent", "Host Memory Used in Percent", hostGauge(memStat, func(s *mem.VirtualMemoryStat) float64 { return s.UsedPercent })},

		{"host_disk_total", "Host Disk Total", hostGauge(diskStat, func(s *disk.UsageStat) float64 { return float64(s.Total) })},
		{"host_disk_used", "Host Disk Used", hostGauge(diskStat, func(s *disk.UsageStat) float64 { return float64(s.Used) })},
		{"host_disk_free", "Host Disk Free", hostGauge(diskStat, func(s *disk.UsageStat) float64 { return float64(s.Free) })},
		{"host_disk_used_percent", "Host Disk Used in Percent", hostGauge(diskStat, func(s *disk.UsageStat) float64 { return s.UsedPercent })},
	}

	for _, g := range gauges {
		_, err := NewGauge(g.id, nil, g.fn, &Options{
			Name:           g.name,
			ExpertiseLevel: config.ExpertiseLevelExpert,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
