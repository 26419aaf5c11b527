package pipeline

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds how many symbols the alert cycle evaluates at
// once.
const DefaultConcurrency = 8

// FanOut runs fn over items with at most concurrency goroutines in
// flight, replacing the nested nested-loop-per-symbol shape the evaluator
// would otherwise need. A failing item never cancels its siblings - every
// error is collected and returned once the whole batch has run, letting
// the caller decide what's skippable.
func FanOut(ctx context.Context, concurrency int, items []string, fn func(ctx context.Context, item string) error) []error {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	var g errgroup.Group
	g.SetLimit(concurrency)

	var mu sync.Mutex
	var errs []error

	for _, item := range items {
		item := item
		g.Go(func() error {
			if err := fn(ctx, item); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", item, err))
				mu.Unlock()
			}
			return nil
		})
	}

	_ = g.Wait()
	return errs
}
