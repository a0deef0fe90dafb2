package entropy

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/safing/entropool/container"
	"github.com/safing/entropool/crypto/hash"
	"github.com/safing/entropool/log"
	"github.com/safing/entropool/qrng"
	"github.com/safing/entropool/utils"
)

// Pool defaults.
const (
	DefaultFetchAttempts  = 5
	DefaultFlushThreshold = 1000000
)

// Fetcher fetches entropy from a remote source. A call must either return
// exactly the requested amount of units or fail.
type Fetcher interface {
	FetchBytes(ctx context.Context, n int) ([]byte, error)
	FetchHex(ctx context.Context, n int) ([]string, error)
}

// PoolOptions configures a Pool.
type PoolOptions struct {
	MaxUnitsPerRequest  int
	MaxRequestsPerBatch int
	FetchAttempts       int
	FlushThreshold      int
}

// Pool holds leftover entropy that is not yet assigned to a record.
// Bytes drawn from the pool are removed from it and are never handed out twice.
type Pool struct {
	lock   sync.Mutex
	buffer *container.Container
	stats  PoolStats

	fetcher Fetcher
	store   *Store
	opts    PoolOptions

	onFetch      func([]byte)
	flushLimiter *utils.CallLimiter
}

// PoolStats holds pool statistics.
type PoolStats struct {
	Size         int    `json:"size"`
	Draws        uint64 `json:"draws"`
	DrawnUnits   uint64 `json:"drawnUnits"`
	Fetches      uint64 `json:"fetches"`
	FetchedUnits uint64 `json:"fetchedUnits"`
	FetchErrors  uint64 `json:"fetchErrors"`
	Flushes      uint64 `json:"flushes"`
}

// Snapshot is the content of the pool at the time it was taken.
type Snapshot struct {
	Address string `json:"address"`
	Size    int    `json:"size"`
	Content string `json:"content"`
}

// NewPool returns a new, empty pool that fetches from the given fetcher and
// commits to the given store.
func NewPool(fetcher Fetcher, store *Store, opts PoolOptions) *Pool {
	if opts.MaxUnitsPerRequest <= 0 {
		opts.MaxUnitsPerRequest = qrng.DefaultMaxUnitsPerRequest
	}
	if opts.MaxRequestsPerBatch <= 0 {
		opts.MaxRequestsPerBatch = qrng.DefaultMaxRequestsPerBatch
	}
	if opts.FetchAttempts <= 0 {
		opts.FetchAttempts = DefaultFetchAttempts
	}
	if opts.FlushThreshold <= 0 {
		opts.FlushThreshold = DefaultFlushThreshold
	}

	return &Pool{
		buffer:       container.New(),
		fetcher:      fetcher,
		store:        store,
		opts:         opts,
		flushLimiter: utils.NewCallLimiter(0),
	}
}

// SetOnFetch sets a function that is called with every successfully fetched
// batch of entropy. It must not modify the data.
func (p *Pool) SetOnFetch(fn func(data []byte)) {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.onFetch = fn
}

// Store returns the store of the pool.
func (p *Pool) Store() *Store {
	return p.store
}

// Size returns the amount of units in the pool.
func (p *Pool) Size() int {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.buffer.Length()
}

// Draw returns n units of entropy. It serves from the pool first and fetches
// the rest from the remote source. Surplus of the fetch stays in the pool.
func (p *Pool) Draw(ctx context.Context, n int) ([]byte, error) {
	switch {
	case n < 0:
		return nil, fmt.Errorf("invalid unit count %d", n)
	case n == 0:
		return []byte{}, nil
	}

	p.lock.Lock()
	p.stats.Draws++
	if p.buffer.Length() >= n {
		data, err := p.buffer.Get(n)
		p.stats.DrawnUnits += uint64(n)
		p.lock.Unlock()
		poolDraws.Inc()
		return data, err
	}
	shortfall := n - p.buffer.Length()
	p.lock.Unlock()

	for {
		// Network I/O happens without holding the lock.
		fetched, err := p.fetch(ctx, shortfall)
		if err != nil {
			return nil, err
		}

		p.lock.Lock()
		p.buffer.Append(fetched)
		if p.buffer.Length() >= n {
			data, err := p.buffer.Get(n)
			p.stats.DrawnUnits += uint64(n)
			surplus := p.buffer.Length() > 0
			p.lock.Unlock()
			poolDraws.Inc()

			if surplus {
				p.flush(ctx)
			}
			return data, err
		}

		// Concurrent draws consumed the pool in the meantime.
		shortfall = n - p.buffer.Length()
		p.lock.Unlock()
	}
}

// NextBytes returns n units of entropy from the pool.
func (p *Pool) NextBytes(ctx context.Context, n int) ([]byte, error) {
	return p.Draw(ctx, n)
}

// NextHex returns n hex characters directly from the remote source.
func (p *Pool) NextHex(ctx context.Context, n int) (string, error) {
	if n <= 0 {
		return "", nil
	}

	pairs := (n + 1) / 2
	units, err := p.fetchHexOnce(ctx, pairs)
	if err != nil {
		return "", err
	}
	return strings.Join(units, "")[:n], nil
}

// fetch fetches at least n units, rounded up to whole requests.
// Failed attempts are discarded and retried if the error is retryable.
func (p *Pool) fetch(ctx context.Context, n int) ([]byte, error) {
	requests := (n + p.opts.MaxUnitsPerRequest - 1) / p.opts.MaxUnitsPerRequest
	total := requests * p.opts.MaxUnitsPerRequest

	var (
		errs     *multierror.Error
		timeouts int
	)
	for attempt := 1; attempt <= p.opts.FetchAttempts; attempt++ {
		data, err := p.fetchOnce(ctx, total)
		if err == nil {
			p.lock.Lock()
			onFetch := p.onFetch
			p.stats.FetchedUnits += uint64(len(data))
			p.lock.Unlock()

			if onFetch != nil {
				onFetch(data)
			}
			return data, nil
		}

		p.lock.Lock()
		p.stats.FetchErrors++
		p.lock.Unlock()
		remoteFailures.Inc()

		if !qrng.IsRetryable(err) {
			return nil, err
		}
		if errors.Is(err, ErrTimeout) {
			timeouts++
		}
		errs = multierror.Append(errs, fmt.Errorf("attempt %d: %w", attempt, err))

		if ctx.Err() != nil {
			break
		}
		log.Warningf("entropy: failed to fetch %d units (attempt %d/%d): %s", total, attempt, p.opts.FetchAttempts, err)
	}

	kind := ErrSourceUnavailable
	if timeouts == len(errs.Errors) {
		kind = ErrTimeout
	}
	return nil, fmt.Errorf("%w: giving up after %d attempts: %s", kind, len(errs.Errors), errs.Error())
}

// fetchOnce fetches exactly n units with as many requests as needed.
// Partial results are discarded on error.
func (p *Pool) fetchOnce(ctx context.Context, n int) ([]byte, error) {
	data := make([]byte, 0, n)
	for remaining := n; remaining > 0; {
		plan := qrng.Plan(remaining, p.opts.MaxUnitsPerRequest, p.opts.MaxRequestsPerBatch)
		for _, size := range plan {
			units, err := p.fetcher.FetchBytes(ctx, size)
			p.countFetch(err, size)
			if err != nil {
				return nil, err
			}
			data = append(data, units...)
		}
		remaining -= qrng.PlanTotal(plan)
	}
	return data, nil
}

func (p *Pool) fetchHexOnce(ctx context.Context, n int) ([]string, error) {
	units := make([]string, 0, n)
	for remaining := n; remaining > 0; {
		plan := qrng.Plan(remaining, p.opts.MaxUnitsPerRequest, p.opts.MaxRequestsPerBatch)
		for _, size := range plan {
			fetched, err := p.fetcher.FetchHex(ctx, size)
			p.countFetch(err, size)
			if err != nil {
				return nil, err
			}
			units = append(units, fetched...)
		}
		remaining -= qrng.PlanTotal(plan)
	}
	return units, nil
}

func (p *Pool) countFetch(err error, size int) {
	p.lock.Lock()
	p.stats.Fetches++
	p.lock.Unlock()

	remoteRequests.Inc()
	if err == nil {
		remoteUnits.Add(size)
	}
}

// Commit stores the content as a record.
func (p *Pool) Commit(_ context.Context, content []byte) (*Record, error) {
	return p.store.Commit(content)
}

// Request draws size units and commits them as a record.
func (p *Pool) Request(ctx context.Context, size int) (*Record, error) {
	if err := p.store.CheckSize(size); err != nil {
		return nil, err
	}

	data, err := p.Draw(ctx, size)
	if err != nil {
		return nil, err
	}
	return p.store.Commit(data)
}

// FlushIfOverThreshold commits the pool content as a record and clears the
// pool, if it holds more units than the flush threshold. Content exceeding
// the maximum record size is committed as multiple records in one batch.
func (p *Pool) FlushIfOverThreshold(_ context.Context) ([]*Record, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	total := p.buffer.Length()
	if total <= p.opts.FlushThreshold {
		return nil, nil
	}

	_, maxSize := p.store.Bounds()
	var sizes []int
	flushed := 0
	for total-flushed > p.opts.FlushThreshold {
		size := min(total-flushed, maxSize)
		sizes = append(sizes, size)
		flushed += size
	}

	data, err := p.buffer.Peek(flushed)
	if err != nil {
		return nil, err
	}
	chunks := make([][]byte, 0, len(sizes))
	for _, size := range sizes {
		chunks = append(chunks, data[:size])
		data = data[size:]
	}

	records, err := p.store.CommitMany(chunks)
	if err != nil {
		// keep the content in the pool
		return nil, err
	}
	p.buffer.GetMax(flushed)

	p.stats.Flushes++
	poolFlushes.Inc()
	log.Infof("entropy: flushed %d units of the pool into %d record(s)", flushed, len(records))
	return records, nil
}

// flush flushes the pool if it is over the threshold. Concurrent calls are
// bundled into one flush.
func (p *Pool) flush(ctx context.Context) {
	p.flushLimiter.Do(func() {
		if _, err := p.FlushIfOverThreshold(ctx); err != nil {
			log.Warningf("entropy: failed to flush pool: %s", err)
		}
	})
}

// Snapshot returns the current pool content and clears the pool.
func (p *Pool) Snapshot(_ context.Context) (*Snapshot, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.buffer.Length() == 0 {
		return nil, ErrPoolEmpty
	}

	content := p.buffer.CompileData()
	p.buffer.Clear()

	return &Snapshot{
		Address: hash.Address(content),
		Size:    len(content),
		Content: hex.EncodeToString(content),
	}, nil
}

// Seed adds externally supplied entropy to the pool and flushes the pool if
// it is now over the threshold.
func (p *Pool) Seed(data []byte) {
	p.lock.Lock()
	p.buffer.AppendCopy(data)
	over := p.buffer.Length() > p.opts.FlushThreshold
	p.lock.Unlock()

	if over {
		p.flush(context.Background())
	}
}

// Stats returns the current pool statistics.
func (p *Pool) Stats() PoolStats {
	p.lock.Lock()
	defer p.lock.Unlock()

	stats := p.stats
	stats.Size = p.buffer.Length()
	return stats
}
