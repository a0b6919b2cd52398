package resolver

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchResult pairs one input of ResolveAll with its outcome.
type BatchResult struct {
	Input  string
	Result *Result
	Err    error
}

// ResolveAll resolves independent inputs in parallel, at most limit at a
// time (limit <= 0 means unbounded). Results keep the order of inputs; one
// failure does not cancel the others.
func (r *Registry) ResolveAll(ctx context.Context, inputs []string, limit int, opts ...Option) []BatchResult {
	results := make([]BatchResult, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, input := range inputs {
		g.Go(func() error {
			res, err := r.Resolve(gctx, input, opts...)
			results[i] = BatchResult{Input: input, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
