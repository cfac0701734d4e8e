package crawler

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// RunBatches partitions items into consecutive slices of at most size and runs
// worker concurrently over each slice, draining a slice fully before the next
// one starts. Worker failures and panics are handed to onErr and never stop
// sibling or later work. It returns early only when ctx is done between batches.
func RunBatches[T any](
	ctx context.Context,
	items []T,
	size int,
	worker func(ctx context.Context, item T) error,
	onErr func(item T, err error),
) error {
	if size < 1 {
		size = 1
	}
	for start := 0; start < len(items); start += size {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("batch runner stopped: %w", err)
		}
		end := min(start+size, len(items))

		var g errgroup.Group
		for _, item := range items[start:end] {
			g.Go(func() error {
				if err := runGuarded(ctx, item, worker); err != nil && onErr != nil {
					onErr(item, err)
				}
				return nil
			})
		}
		_ = g.Wait()
	}
	return nil
}

func runGuarded[T any](ctx context.Context, item T, worker func(context.Context, T) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker panic: %v", r)
		}
	}()
	return worker(ctx, item)
}

// fairShare divides a configured ceiling by the number of running jobs.
func fairShare(configured, active int) int {
	if active < 1 {
		active = 1
	}
	return max(1, configured/active)
}
