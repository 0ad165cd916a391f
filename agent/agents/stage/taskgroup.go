package stage

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

type branch[T any] struct {
	value T
	err   error
}

// runBounded runs tasks with at most limit in flight and returns one result
// per task, in task order. Each task gets its own deadline. A task that
// ignores its context is abandoned at the deadline: its result is dropped
// and the barrier does not wait for it.
func runBounded[T any](ctx context.Context, limit int, timeout time.Duration, tasks []func(context.Context) (T, error)) []branch[T] {
	results := make([]branch[T], len(tasks))

	eg, egCtx := errgroup.WithContext(ctx)
	if limit > 0 {
		eg.SetLimit(limit)
	}

	for i, task := range tasks {
		eg.Go(func() error {
			taskCtx, cancel := context.WithTimeout(egCtx, timeout)
			defer cancel()

			done := make(chan branch[T], 1)
			go func() {
				v, err := task(taskCtx)
				done <- branch[T]{value: v, err: err}
			}()

			select {
			case r := <-done:
				results[i] = r
			case <-taskCtx.Done():
				results[i] = branch[T]{err: taskCtx.Err()}
			}
			// Branch failures are recorded per task and never cancel siblings.
			return nil
		})
	}

	_ = eg.Wait()
	return results
}
