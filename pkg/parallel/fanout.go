// Package parallel provides the bounded fan-out used for batches of
// independent predictor calls. Each task owns its own slice index, so
// callers collect results without locks; the join reports the first error.
package parallel

import (
	"context"
	"fmt"
	"sync"
)

// ForEach runs fn(ctx, i) for every i in [0, n) with at most workers tasks
// in flight. It blocks until all started tasks finish. The first error stops
// new launches and is returned after the join; a cancelled context does the
// same. Panics inside tasks are recovered and surfaced as errors so one bad
// task cannot take down the batch.
func ForEach(ctx context.Context, n, workers int, fn func(ctx context.Context, i int) error) error {
	if n <= 0 {
		return nil
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	sem := make(chan struct{}, workers)

	record := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}
	failed := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return firstErr != nil
	}

launch:
	for i := 0; i < n; i++ {
		if failed() {
			break
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			record(ctx.Err())
			break launch
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					record(fmt.Errorf("task %d panicked: %v", i, r))
				}
			}()

			if err := fn(ctx, i); err != nil {
				record(err)
			}
		}(i)
	}

	wg.Wait()
	return firstErr
}
