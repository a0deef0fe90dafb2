package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/safing/entropool/crypto/hash"
	"github.com/safing/entropool/entropy"
	"github.com/safing/entropool/log"
)

// Dispatcher defaults.
const (
	DefaultMaxConcurrent = 4
	DefaultJobTimeout    = 10 * time.Minute
	DefaultRetention     = time.Hour
	DefaultMaxFinished   = 1000

	subscriberBuffer = 100
)

// RecordLookup resolves entropy records by address.
type RecordLookup interface {
	Lookup(address string) (*entropy.Record, error)
}

// Options configures a Dispatcher.
type Options struct {
	MaxConcurrent int
	JobTimeout    time.Duration
	// Retention is how long finished jobs are kept.
	Retention time.Duration
	// MaxFinished is how many finished jobs are kept at most.
	MaxFinished int
}

// Event is sent to subscribers whenever a job changes its state.
type Event struct {
	Job *JobInfo `json:"job"`
}

// Dispatcher runs computation jobs with bounded concurrency. Jobs that
// exceed the limit are queued and started in submission order.
type Dispatcher struct {
	records RecordLookup
	engine  Engine
	opts    Options

	ctx       context.Context
	cancelCtx context.CancelFunc
	slots     *semaphore.Weighted
	wake      chan struct{}
	running   sync.WaitGroup

	lock  sync.Mutex
	jobs  map[uuid.UUID]*Job
	order []*Job
	queue []*Job
	// pending was taken from the queue and waits for a slot.
	pending *Job
	closed  bool

	subsLock  sync.Mutex
	subs      map[int]chan *Event
	nextSubID int

	active      atomic.Int64
	maxObserved atomic.Int64
}

// NewDispatcher returns a new dispatcher and starts its scheduler.
func NewDispatcher(records RecordLookup, engine Engine, opts Options) *Dispatcher {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = DefaultJobTimeout
	}
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if opts.MaxFinished <= 0 {
		opts.MaxFinished = DefaultMaxFinished
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		records:   records,
		engine:    engine,
		opts:      opts,
		ctx:       ctx,
		cancelCtx: cancel,
		slots:     semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		wake:      make(chan struct{}, 1),
		jobs:      make(map[uuid.UUID]*Job),
		subs:      make(map[int]chan *Event),
	}
	go d.schedule()
	return d
}

// Submit validates the request and queues a new job.
func (d *Dispatcher) Submit(_ context.Context, req JobRequest) (*Job, error) {
	_, err := d.records.Lookup(req.Address)
	switch {
	case err == nil:
	case errors.Is(err, entropy.ErrNotFound), errors.Is(err, hash.ErrInvalidAddress):
		return nil, fmt.Errorf("%w: %s", ErrInvalidReference, req.Address)
	default:
		return nil, fmt.Errorf("failed to look up entropy record: %w", err)
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	job, err := newJob(req)
	if err != nil {
		return nil, err
	}

	d.lock.Lock()
	if d.closed {
		d.lock.Unlock()
		return nil, ErrClosed
	}
	d.jobs[job.ID] = job
	d.order = append(d.order, job)
	d.queue = append(d.queue, job)
	d.publish(job)
	d.lock.Unlock()

	jobsSubmitted.Inc()
	log.Debugf("dispatch: queued job %s for %s", job.ID, req.Address)

	select {
	case d.wake <- struct{}{}:
	default:
	}
	return job, nil
}

// Reject fails a job that has not started yet.
func (d *Dispatcher) Reject(id uuid.UUID) error {
	job, ok := d.Get(id)
	if !ok {
		return ErrUnknownJob
	}

	if err := job.reject(); err != nil {
		return err
	}

	jobsRejected.Inc()
	log.Infof("dispatch: rejected job %s", id)
	d.publish(job)
	return nil
}

// Get returns the job with the given ID.
func (d *Dispatcher) Get(id uuid.UUID) (*Job, bool) {
	d.lock.Lock()
	defer d.lock.Unlock()

	job, ok := d.jobs[id]
	return job, ok
}

// Prune removes finished jobs that are older than the retention period and
// the oldest finished jobs beyond the maximum. It returns the amount of
// removed jobs.
func (d *Dispatcher) Prune() int {
	cutoff := time.Now().Add(-d.opts.Retention)

	d.lock.Lock()
	defer d.lock.Unlock()

	var finished int
	for _, job := range d.order {
		if job.State().Done() {
			finished++
		}
	}
	excess := finished - d.opts.MaxFinished

	var removed int
	kept := d.order[:0]
	for _, job := range d.order {
		finishedAt, done := job.finishedAt()
		if done && (excess > 0 || finishedAt.Before(cutoff)) {
			delete(d.jobs, job.ID)
			removed++
			excess--
			continue
		}
		kept = append(kept, job)
	}
	clear(d.order[len(kept):])
	d.order = kept

	if removed > 0 {
		log.Debugf("dispatch: pruned %d finished jobs", removed)
	}
	return removed
}

// List returns all jobs in submission order.
func (d *Dispatcher) List() []*Job {
	d.lock.Lock()
	defer d.lock.Unlock()

	return append([]*Job(nil), d.order...)
}

// Active returns the amount of running jobs.
func (d *Dispatcher) Active() int {
	return int(d.active.Load())
}

// Queued returns the amount of jobs waiting for a slot.
func (d *Dispatcher) Queued() int {
	d.lock.Lock()
	defer d.lock.Unlock()

	var n int
	for _, job := range d.queue {
		if job.State() == StateQueued {
			n++
		}
	}
	if d.pending != nil && d.pending.State() == StateQueued {
		n++
	}
	return n
}

// MaxObserved returns the highest amount of concurrently running jobs seen.
func (d *Dispatcher) MaxObserved() int {
	return int(d.maxObserved.Load())
}

// Limit returns the concurrency limit.
func (d *Dispatcher) Limit() int {
	return d.opts.MaxConcurrent
}

// Subscribe returns a channel that receives job events. Call the returned
// function to unsubscribe. Events are dropped for subscribers that do not
// keep up.
func (d *Dispatcher) Subscribe() (<-chan *Event, func()) {
	d.subsLock.Lock()
	defer d.subsLock.Unlock()

	id := d.nextSubID
	d.nextSubID++
	ch := make(chan *Event, subscriberBuffer)
	d.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			d.subsLock.Lock()
			defer d.subsLock.Unlock()

			delete(d.subs, id)
			close(ch)
		})
	}
}

// Close stops the scheduler, fails all queued jobs and waits for running
// jobs to finish.
func (d *Dispatcher) Close() {
	d.cancelCtx()

	d.lock.Lock()
	d.closed = true
	queued := d.queue
	if d.pending != nil {
		queued = append(queued, d.pending)
	}
	d.queue = nil
	d.lock.Unlock()

	for _, job := range queued {
		if job.State() == StateQueued && job.finish(nil, ErrClosed) {
			d.publish(job)
		}
	}

	d.running.Wait()
}

func (d *Dispatcher) publish(job *Job) {
	ev := &Event{Job: job.Info()}

	d.subsLock.Lock()
	defer d.subsLock.Unlock()

	for _, ch := range d.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// next pops the next queued job.
func (d *Dispatcher) next() *Job {
	d.lock.Lock()
	defer d.lock.Unlock()

	for len(d.queue) > 0 {
		job := d.queue[0]
		d.queue[0] = nil
		d.queue = d.queue[1:]
		if job.State() == StateQueued {
			d.pending = job
			return job
		}
	}
	return nil
}

func (d *Dispatcher) schedule() {
	for {
		job := d.next()
		if job == nil {
			select {
			case <-d.wake:
				continue
			case <-d.ctx.Done():
				return
			}
		}

		if err := d.slots.Acquire(d.ctx, 1); err != nil {
			// Closing. Close fails the jobs left in the queue.
			d.lock.Lock()
			d.pending = nil
			d.lock.Unlock()
			if job.finish(nil, ErrClosed) {
				d.publish(job)
			}
			return
		}

		d.lock.Lock()
		d.pending = nil
		if d.closed {
			d.lock.Unlock()
			d.slots.Release(1)
			if job.finish(nil, ErrClosed) {
				d.publish(job)
			}
			return
		}
		// The job may have been rejected while waiting for a slot.
		if !job.start() {
			d.lock.Unlock()
			d.slots.Release(1)
			continue
		}
		d.running.Add(1)
		d.lock.Unlock()

		go d.run(job)
	}
}

func (d *Dispatcher) run(job *Job) {
	defer d.running.Done()
	defer d.slots.Release(1)

	n := d.active.Add(1)
	defer d.active.Add(-1)
	for {
		observed := d.maxObserved.Load()
		if n <= observed || d.maxObserved.CompareAndSwap(observed, n) {
			break
		}
	}
	d.publish(job)
	log.Debugf("dispatch: started job %s (%d/%d active)", job.ID, n, d.opts.MaxConcurrent)

	result, err := d.execute(job)
	job.finish(result, err)
	if err != nil {
		jobsFailed.Inc()
		log.Warningf("dispatch: job %s failed: %s", job.ID, err)
	} else {
		jobsCompleted.Inc()
		log.Infof("dispatch: job %s completed", job.ID)
	}
	d.publish(job)
}

func (d *Dispatcher) execute(job *Job) (Result, error) {
	ctx, cancel := context.WithTimeout(d.ctx, d.opts.JobTimeout)
	defer cancel()

	// The record was checked on submit, but read it again to hand the engine
	// verified content.
	record, err := d.records.Lookup(job.Request.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrComputationFailed, err)
	}

	return compute(ctx, d.engine, &Input{
		Entropy:   record.Content,
		Address:   record.Address,
		Latitude:  job.Request.Latitude,
		Longitude: job.Request.Longitude,
		Radius:    job.Request.Radius,
		Filter:    job.Request.Filter,
	})
}
