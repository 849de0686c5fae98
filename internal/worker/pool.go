package worker

import (
	"context"
	"fmt"
	"sync"
)

// Task is one unit of independent work producing a value.
type Task[T any] func(ctx context.Context) (T, error)

// RunAll executes tasks under a bounded pool of workers and returns
// their results in input order. The first failure cancels the
// remaining tasks and surfaces as a hard error; nothing is silently
// dropped. Task results must not depend on execution order.
func RunAll[T any](ctx context.Context, workers int, tasks []Task[T]) ([]T, error) {
	if len(tasks) == 0 {
		return nil, nil
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
		cancel()
	}

	type job struct {
		index int
		task  Task[T]
	}

	jobs := make(chan job)
	results := make([]T, len(tasks))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				value, err := j.task(ctx)
				if err != nil {
					fail(fmt.Errorf("task %d: %w", j.index, err))
					return
				}
				results[j.index] = value
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, t := range tasks {
			select {
			case <-ctx.Done():
				return
			case jobs <- job{index: i, task: t}:
			}
		}
	}()

	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}
