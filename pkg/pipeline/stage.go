// Package pipeline provides the frame buffer type and the stage abstraction
// shared by the processing operators and the export engine.
package pipeline

import (
	"context"
)

// Stage represents a processing step.
// Each stage takes an input and produces an output.
type Stage[In, Out any] interface {
	// Execute runs the stage with the given input and returns the output.
	Execute(ctx context.Context, input In) (Out, error)
}

// StageFunc is a function adapter for Stage interface.
type StageFunc[In, Out any] func(ctx context.Context, input In) (Out, error)

// Execute implements Stage interface.
func (f StageFunc[In, Out]) Execute(ctx context.Context, input In) (Out, error) {
	return f(ctx, input)
}

// Chain runs stages of the same type in order, feeding each output into the
// next stage. It stops at the first error.
func Chain[T any](ctx context.Context, input T, stages ...Stage[T, T]) (T, error) {
	out := input
	for _, s := range stages {
		var err error
		out, err = s.Execute(ctx, out)
		if err != nil {
			return out, err
		}
	}
	return out, nil
}
