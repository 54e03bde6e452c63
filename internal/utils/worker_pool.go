package utils

import (
	"context"
	"sync"
)

type CompletedTask[T any] struct {
	Result T
	Error  error
}

// RunInPool runs worker over items with up to maxWorkers goroutines and
// returns once all of them finish. Results are in item order. Items not yet
// started when ctx is cancelled complete with ctx.Err().
func RunInPool[In any, Out any](ctx context.Context, items []In, maxWorkers int, worker func(context.Context, In) (Out, error)) []CompletedTask[Out] {
	results := make([]CompletedTask[Out], len(items))
	next := make(chan int)

	wg := sync.WaitGroup{}
	for range min(len(items), max(maxWorkers, 1)) {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for i := range next {
				if err := ctx.Err(); err != nil {
					results[i].Error = err
					continue
				}
				results[i].Result, results[i].Error = worker(ctx, items[i])
			}
		}()
	}

	for i := range items {
		next <- i
	}
	close(next)
	wg.Wait()

	return results
}
