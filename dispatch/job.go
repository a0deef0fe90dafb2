package dispatch

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gofrs/uuid"
)

// State is the state of a job.
type State uint8

// Job States.
const (
	StateQueued State = iota
	StateRunning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Done returns whether the state is final.
func (s State) Done() bool {
	return s == StateCompleted || s == StateFailed
}

// JobRequest describes a computation.
type JobRequest struct {
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Radius    float64 `json:"radius"`
	Filter    int     `json:"filter,omitempty"`
}

// Validate checks the geographic parameters.
func (jr *JobRequest) Validate() error {
	for _, v := range []float64{jr.Latitude, jr.Longitude, jr.Radius} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: not a finite number", ErrInvalidCoordinates)
		}
	}

	switch {
	case jr.Latitude < -90 || jr.Latitude > 90:
		return fmt.Errorf("%w: latitude %f out of range", ErrInvalidCoordinates, jr.Latitude)
	case jr.Longitude < -180 || jr.Longitude > 180:
		return fmt.Errorf("%w: longitude %f out of range", ErrInvalidCoordinates, jr.Longitude)
	case jr.Radius <= 0:
		return fmt.Errorf("%w: radius must be positive", ErrInvalidCoordinates)
	case jr.Filter < 0:
		return fmt.Errorf("%w: filter level must not be negative", ErrInvalidCoordinates)
	}
	return nil
}

// Job is a computation that was accepted by the dispatcher.
type Job struct {
	ID      uuid.UUID
	Request JobRequest

	lock     sync.Mutex
	state    State
	created  time.Time
	started  time.Time
	finished time.Time
	result   Result
	err      error

	done chan struct{}
}

// JobInfo is a snapshot of a job.
type JobInfo struct {
	ID       string     `json:"id"`
	Request  JobRequest `json:"request"`
	State    State      `json:"state"`
	Created  int64      `json:"created"`
	Started  int64      `json:"started,omitempty"`
	Finished int64      `json:"finished,omitempty"`
	Result   Result     `json:"result,omitempty"`
	Error    string     `json:"error,omitempty"`
}

func newJob(req JobRequest) (*Job, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("failed to create job ID: %w", err)
	}

	return &Job{
		ID:      id,
		Request: req,
		state:   StateQueued,
		created: time.Now(),
		done:    make(chan struct{}),
	}, nil
}

// State returns the current state.
func (j *Job) State() State {
	j.lock.Lock()
	defer j.lock.Unlock()

	return j.state
}

// Done returns a channel that is closed when the job is finished.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait waits for the job to finish and returns its result.
func (j *Job) Wait(ctx context.Context) (Result, error) {
	select {
	case <-j.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	j.lock.Lock()
	defer j.lock.Unlock()

	return j.result, j.err
}

// Info returns a snapshot of the job.
func (j *Job) Info() *JobInfo {
	j.lock.Lock()
	defer j.lock.Unlock()

	info := &JobInfo{
		ID:      j.ID.String(),
		Request: j.Request,
		State:   j.state,
		Created: j.created.Unix(),
		Result:  j.result,
	}
	if !j.started.IsZero() {
		info.Started = j.started.Unix()
	}
	if !j.finished.IsZero() {
		info.Finished = j.finished.Unix()
	}
	if j.err != nil {
		info.Error = j.err.Error()
	}
	return info
}

// start moves a queued job to running.
func (j *Job) start() bool {
	j.lock.Lock()
	defer j.lock.Unlock()

	if j.state != StateQueued {
		return false
	}
	j.state = StateRunning
	j.started = time.Now()
	return true
}

// reject fails a queued job.
func (j *Job) reject() error {
	j.lock.Lock()
	defer j.lock.Unlock()

	if j.state != StateQueued {
		return fmt.Errorf("%w: job is %s", ErrNotQueued, j.state)
	}
	j.finishLocked(nil, ErrRejected)
	return nil
}

// finish sets the final state. It returns false if the job was already
// finished.
func (j *Job) finish(result Result, err error) bool {
	j.lock.Lock()
	defer j.lock.Unlock()

	return j.finishLocked(result, err)
}

func (j *Job) finishLocked(result Result, err error) bool {
	if j.state.Done() {
		return false
	}

	if err != nil {
		j.state = StateFailed
		j.err = err
	} else {
		j.state = StateCompleted
		j.result = result
	}
	j.finished = time.Now()
	close(j.done)
	return true
}

// finishedAt returns when the job finished and whether it did.
func (j *Job) finishedAt() (time.Time, bool) {
	j.lock.Lock()
	defer j.lock.Unlock()

	return j.finished, j.state.Done()
}
