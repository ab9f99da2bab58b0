// Package batch fans a set of independent tasks out across goroutines and
// reports progress as they finish. Rate limiting happens further down, so
// tasks can all start at once and block on their own quotas.
package batch

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Task is one unit of work, named for progress reporting.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Progress is called after each task finishes, successfully or not, with
// the number of finished tasks and the total. Calls arrive from task
// goroutines and may interleave.
type Progress func(done, total int, name string)

// Run executes all tasks concurrently and waits for them. The first error
// cancels the context passed to the remaining tasks and is returned once
// everything has wound down. A nil progress callback is fine.
func Run(ctx context.Context, tasks []Task, progress Progress) error {
	g, ctx := errgroup.WithContext(ctx)

	var done atomic.Int64
	total := len(tasks)

	for _, task := range tasks {
		task := task
		g.Go(func() error {
			err := task.Run(ctx)
			if progress != nil {
				progress(int(done.Add(1)), total, task.Name)
			}
			return err
		})
	}

	return g.Wait()
}
