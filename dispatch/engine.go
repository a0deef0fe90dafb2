package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
)

// Input is handed to the computation engine.
type Input struct {
	// Entropy is the hex encoded content of the referenced record.
	Entropy   string
	Address   string
	Latitude  float64
	Longitude float64
	Radius    float64
	Filter    int
}

// Result is the decoded output of a computation.
type Result map[string]interface{}

// Engine runs computations.
type Engine interface {
	Compute(ctx context.Context, in *Input) (Result, error)
}

// EngineFunc is an in-process engine.
type EngineFunc func(ctx context.Context, in *Input) (Result, error)

// Compute implements Engine.
func (fn EngineFunc) Compute(ctx context.Context, in *Input) (Result, error) {
	return fn(ctx, in)
}

// compute runs the engine and converts panics and errors to ErrComputationFailed.
func compute(ctx context.Context, engine Engine, in *Input) (result Result, err error) {
	defer func() {
		if x := recover(); x != nil {
			result = nil
			err = fmt.Errorf("%w: engine panic: %v\n%s", ErrComputationFailed, x, debug.Stack())
		}
	}()

	result, err = engine.Compute(ctx, in)
	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, ErrComputationFailed):
		return nil, err
	case ctx.Err() != nil:
		return nil, fmt.Errorf("%w: %w", ErrComputationFailed, ctx.Err())
	default:
		return nil, fmt.Errorf("%w: %w", ErrComputationFailed, err)
	}
}
