package dispatch

import (
	"context"
	"crypto/rand"
	"errors"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safing/entropool/database/storage/hashmap"
	"github.com/safing/entropool/entropy"
)

func newTestStore(t *testing.T) (*entropy.Store, string) {
	t.Helper()

	db, err := hashmap.NewHashMap("test", "")
	require.NoError(t, err)
	store := entropy.NewStore(db, entropy.StoreOptions{})

	content := make([]byte, 320)
	_, err = rand.Read(content)
	require.NoError(t, err)
	record, err := store.Commit(content)
	require.NoError(t, err)

	return store, record.Address
}

func validRequest(address string) JobRequest {
	return JobRequest{
		Address:   address,
		Latitude:  48.2,
		Longitude: 16.37,
		Radius:    500,
	}
}

// gate is an engine that blocks until it is opened.
type gate struct {
	open    chan struct{}
	running atomic.Int64
	maxSeen atomic.Int64
}

func newGate() *gate {
	return &gate{open: make(chan struct{})}
}

func (g *gate) Compute(ctx context.Context, in *Input) (Result, error) {
	n := g.running.Add(1)
	defer g.running.Add(-1)
	for {
		seen := g.maxSeen.Load()
		if n <= seen || g.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	select {
	case <-g.open:
		return Result{"address": in.Address}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestSubmitInvalidReference(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	d := NewDispatcher(store, newGate(), Options{})
	defer d.Close()

	_, err := d.Submit(context.Background(), validRequest(strings.Repeat("0", 64)))
	require.ErrorIs(t, err, ErrInvalidReference)
	_, err = d.Submit(context.Background(), validRequest("not-an-address"))
	require.ErrorIs(t, err, ErrInvalidReference)

	assert.Equal(t, 0, d.Active())
	assert.Equal(t, 0, d.Queued())
	assert.Empty(t, d.List())
}

func TestSubmitInvalidCoordinates(t *testing.T) {
	t.Parallel()

	store, address := newTestStore(t)
	d := NewDispatcher(store, newGate(), Options{})
	defer d.Close()

	for name, mutate := range map[string]func(*JobRequest){
		"latitude high":  func(r *JobRequest) { r.Latitude = 90.5 },
		"latitude low":   func(r *JobRequest) { r.Latitude = -91 },
		"longitude high": func(r *JobRequest) { r.Longitude = 180.1 },
		"longitude low":  func(r *JobRequest) { r.Longitude = -200 },
		"nan":            func(r *JobRequest) { r.Latitude = math.NaN() },
		"inf":            func(r *JobRequest) { r.Longitude = math.Inf(1) },
		"zero radius":    func(r *JobRequest) { r.Radius = 0 },
		"negative filter": func(r *JobRequest) {
			r.Filter = -1
		},
	} {
		req := validRequest(address)
		mutate(&req)
		_, err := d.Submit(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidCoordinates, name)
	}
	assert.Empty(t, d.List())

	// Bounds are inclusive.
	req := validRequest(address)
	req.Latitude = -90
	req.Longitude = 180
	_, err := d.Submit(context.Background(), req)
	assert.NoError(t, err)
}

func TestConcurrencyCeiling(t *testing.T) {
	t.Parallel()

	const (
		limit = 3
		total = 12
	)

	store, address := newTestStore(t)
	engine := newGate()
	d := NewDispatcher(store, engine, Options{MaxConcurrent: limit})
	defer d.Close()

	jobs := make([]*Job, 0, total)
	for i := 0; i < total; i++ {
		job, err := d.Submit(context.Background(), validRequest(address))
		require.NoError(t, err)
		jobs = append(jobs, job)
	}

	require.Eventually(t, func() bool {
		return d.Active() == limit
	}, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, total-limit, d.Queued())

	// Nothing else gets started while the slots are taken.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, limit, d.Active())

	close(engine.open)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, job := range jobs {
		result, err := job.Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, address, result["address"])
		assert.Equal(t, StateCompleted, job.State())
	}

	assert.Equal(t, limit, d.MaxObserved())
	assert.LessOrEqual(t, engine.maxSeen.Load(), int64(limit))
	assert.Equal(t, 0, d.Active())
	assert.Equal(t, 0, d.Queued())
}

func TestQueuedIncludesWaitingJob(t *testing.T) {
	t.Parallel()

	store, address := newTestStore(t)
	engine := newGate()
	d := NewDispatcher(store, engine, Options{MaxConcurrent: 1})
	defer d.Close()

	jobs := make([]*Job, 0, 3)
	for i := 0; i < 3; i++ {
		job, err := d.Submit(context.Background(), validRequest(address))
		require.NoError(t, err)
		jobs = append(jobs, job)
	}

	// The scheduler takes the next job from the queue and waits for a slot.
	require.Eventually(t, func() bool {
		d.lock.Lock()
		defer d.lock.Unlock()
		return d.Active() == 1 && d.pending != nil
	}, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, d.Queued())

	close(engine.open)
	for _, job := range jobs {
		_, err := job.Wait(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 0, d.Queued())
}

func TestPrune(t *testing.T) {
	t.Parallel()

	store, address := newTestStore(t)
	engine := newGate()
	close(engine.open)
	d := NewDispatcher(store, engine, Options{MaxFinished: 5})
	defer d.Close()

	jobs := make([]*Job, 0, 20)
	for i := 0; i < 20; i++ {
		job, err := d.Submit(context.Background(), validRequest(address))
		require.NoError(t, err)
		jobs = append(jobs, job)
	}
	for _, job := range jobs {
		_, err := job.Wait(context.Background())
		require.NoError(t, err)
	}
	require.Len(t, d.List(), 20)

	// Only the newest finished jobs are kept.
	assert.Equal(t, 15, d.Prune())
	kept := d.List()
	require.Len(t, kept, 5)
	for i, job := range kept {
		assert.Equal(t, jobs[15+i].ID, job.ID)
	}
	_, ok := d.Get(jobs[0].ID)
	assert.False(t, ok)
	assert.Zero(t, d.Prune())
}

func TestPruneRetention(t *testing.T) {
	t.Parallel()

	store, address := newTestStore(t)
	engine := newGate()
	d := NewDispatcher(store, engine, Options{MaxConcurrent: 1, Retention: time.Millisecond})
	defer d.Close()

	running, err := d.Submit(context.Background(), validRequest(address))
	require.NoError(t, err)
	rejected, err := d.Submit(context.Background(), validRequest(address))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return running.State() == StateRunning
	}, 5*time.Second, 5*time.Millisecond)
	require.NoError(t, d.Reject(rejected.ID))

	// Unfinished jobs are never pruned.
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, d.Prune())
	_, ok := d.Get(running.ID)
	assert.True(t, ok)

	close(engine.open)
	_, err = running.Wait(context.Background())
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, d.Prune())
	assert.Empty(t, d.List())
}

func TestReject(t *testing.T) {
	t.Parallel()

	store, address := newTestStore(t)
	engine := newGate()
	d := NewDispatcher(store, engine, Options{MaxConcurrent: 1})
	defer d.Close()

	running, err := d.Submit(context.Background(), validRequest(address))
	require.NoError(t, err)
	queued, err := d.Submit(context.Background(), validRequest(address))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return running.State() == StateRunning
	}, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, d.Reject(queued.ID))
	_, err = queued.Wait(context.Background())
	require.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, StateFailed, queued.State())

	assert.ErrorIs(t, d.Reject(queued.ID), ErrNotQueued)
	assert.ErrorIs(t, d.Reject(running.ID), ErrNotQueued)
	assert.ErrorIs(t, d.Reject(uuid.Must(uuid.NewV4())), ErrUnknownJob)

	close(engine.open)
	_, err = running.Wait(context.Background())
	require.NoError(t, err)

	// The rejected job never ran.
	assert.Equal(t, 1, d.MaxObserved())
	assert.Zero(t, queued.Info().Started)
}

func TestEngineFailures(t *testing.T) {
	t.Parallel()

	store, address := newTestStore(t)
	errBroken := errors.New("broken")

	var calls atomic.Int64
	engine := EngineFunc(func(ctx context.Context, in *Input) (Result, error) {
		switch calls.Add(1) {
		case 1:
			panic("engine exploded")
		case 2:
			return nil, errBroken
		case 3:
			<-ctx.Done()
			return nil, ctx.Err()
		default:
			return Result{"ok": true}, nil
		}
	})
	d := NewDispatcher(store, engine, Options{MaxConcurrent: 1, JobTimeout: 100 * time.Millisecond})
	defer d.Close()

	var jobs []*Job
	for i := 0; i < 4; i++ {
		job, err := d.Submit(context.Background(), validRequest(address))
		require.NoError(t, err)
		jobs = append(jobs, job)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := jobs[0].Wait(ctx)
	require.ErrorIs(t, err, ErrComputationFailed)
	assert.Contains(t, err.Error(), "engine exploded")

	_, err = jobs[1].Wait(ctx)
	require.ErrorIs(t, err, ErrComputationFailed)
	assert.ErrorIs(t, err, errBroken)

	_, err = jobs[2].Wait(ctx)
	require.ErrorIs(t, err, ErrComputationFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// Slots are released after failures.
	result, err := jobs[3].Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, true, result["ok"])

	for _, job := range jobs[:3] {
		info := job.Info()
		assert.Equal(t, StateFailed, info.State)
		assert.NotEmpty(t, info.Error)
	}
}

func TestSubscribe(t *testing.T) {
	t.Parallel()

	store, address := newTestStore(t)
	engine := newGate()
	close(engine.open)
	d := NewDispatcher(store, engine, Options{})
	defer d.Close()

	events, unsubscribe := d.Subscribe()
	defer unsubscribe()

	job, err := d.Submit(context.Background(), validRequest(address))
	require.NoError(t, err)

	var states []State
	timeout := time.After(5 * time.Second)
	for len(states) < 3 {
		select {
		case ev := <-events:
			assert.Equal(t, job.ID.String(), ev.Job.ID)
			states = append(states, ev.Job.State)
		case <-timeout:
			t.Fatalf("timed out waiting for events, got %v", states)
		}
	}
	assert.Equal(t, []State{StateQueued, StateRunning, StateCompleted}, states)

	unsubscribe()
	_, ok := <-events
	assert.False(t, ok)
}

func TestClose(t *testing.T) {
	t.Parallel()

	store, address := newTestStore(t)
	engine := newGate()
	d := NewDispatcher(store, engine, Options{MaxConcurrent: 1})

	running, err := d.Submit(context.Background(), validRequest(address))
	require.NoError(t, err)
	queued, err := d.Submit(context.Background(), validRequest(address))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return running.State() == StateRunning
	}, 5*time.Second, 5*time.Millisecond)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.Close()
	}()

	_, err = queued.Wait(context.Background())
	assert.ErrorIs(t, err, ErrClosed)

	// Running jobs are canceled.
	_, err = running.Wait(context.Background())
	assert.ErrorIs(t, err, ErrComputationFailed)
	wg.Wait()

	_, err = d.Submit(context.Background(), validRequest(address))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestScatterEngine(t *testing.T) {
	t.Parallel()

	store, address := newTestStore(t)
	d := NewDispatcher(store, ScatterEngine, Options{})
	defer d.Close()

	req := validRequest(address)
	job, err := d.Submit(context.Background(), req)
	require.NoError(t, err)
	result, err := job.Wait(context.Background())
	require.NoError(t, err)

	points, ok := result["points"].([]Point)
	require.True(t, ok)
	assert.Len(t, points, 320/bytesPerPoint)
	for _, p := range points {
		assert.LessOrEqual(t, p.Distance, req.Radius)
		assert.InDelta(t, req.Latitude, p.Latitude, 0.01)
		assert.InDelta(t, req.Longitude, p.Longitude, 0.01)
	}

	req.Filter = 5
	job, err = d.Submit(context.Background(), req)
	require.NoError(t, err)
	result, err = job.Wait(context.Background())
	require.NoError(t, err)
	filtered, ok := result["points"].([]Point)
	require.True(t, ok)
	require.Len(t, filtered, 5)
	for i := 1; i < len(filtered); i++ {
		assert.LessOrEqual(t, filtered[i-1].Distance, filtered[i].Distance)
	}
}
