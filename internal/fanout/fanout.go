// Package fanout runs independent tasks concurrently and waits for all of
// them. A task that panics is reported through its OnPanic hook and never
// takes the other tasks or the caller down with it.
package fanout

import (
	"context"
	"fmt"
	"sync"
)

// Task is one unit of concurrent work. Run must write its output only to
// storage owned by that task.
type Task struct {
	Name    string
	Run     func(ctx context.Context)
	OnPanic func(err error)
}

// PanicError carries the value recovered from a panicking task.
type PanicError struct {
	Task  string
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s panicked: %v", e.Task, e.Value)
}

// Join starts every task in its own goroutine and returns once all of them
// have finished. There is no cross-task cancellation: a slow task delays
// the join but does not stop its siblings.
func Join(ctx context.Context, tasks ...Task) {
	var wg sync.WaitGroup
	for _, task := range tasks {
		if task.Run == nil {
			continue
		}
		wg.Add(1)
		go func(t Task) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil && t.OnPanic != nil {
					t.OnPanic(&PanicError{Task: t.Name, Value: r})
				}
			}()
			t.Run(ctx)
		}(task)
	}
	wg.Wait()
}
