package pool

import (
	"context"
	"fmt"

	"followexport/pkg/errors"
	"followexport/pkg/logger"
)

// Task is one unit of work run by the pool
type Task[T any] func(ctx context.Context) (T, error)

// Result holds a task outcome. OK is false when the task failed, panicked,
// or was never started because the context ended first.
type Result[T any] struct {
	Value T
	OK    bool
}

// Option configures a pool run
type Option func(*settings)

type settings struct {
	logger  logger.Logger
	onAdmit func(index int)
}

// WithLogger sets the logger used to report task failures
func WithLogger(log logger.Logger) Option {
	return func(s *settings) { s.logger = log }
}

// WithOnAdmit registers a hook called, in index order, as each task is admitted
func WithOnAdmit(fn func(index int)) Option {
	return func(s *settings) { s.onAdmit = fn }
}

type completion[T any] struct {
	index  int
	result Result[T]
}

// Run executes tasks with at most limit of them in flight and returns one
// result per task at the task's index. A limit below 1 is treated as 1.
// Run returns once every task has finished.
func Run[T any](ctx context.Context, tasks []Task[T], limit int, opts ...Option) []Result[T] {
	s := settings{}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = logger.GetLogger()
	}
	if limit < 1 {
		limit = 1
	}

	results := make([]Result[T], len(tasks))
	if len(tasks) == 0 {
		return results
	}

	done := make(chan completion[T])
	next, inFlight := 0, 0

	admit := func() {
		for inFlight < limit && next < len(tasks) {
			if ctx.Err() != nil {
				// Pending tasks are left as failures.
				next = len(tasks)
				return
			}
			i := next
			next++
			inFlight++
			if s.onAdmit != nil {
				s.onAdmit(i)
			}
			go execute(ctx, i, tasks[i], done, s.logger)
		}
	}

	admit()
	for inFlight > 0 {
		c := <-done
		results[c.index] = c.result
		inFlight--
		admit()
	}

	return results
}

func execute[T any](ctx context.Context, index int, task Task[T], done chan<- completion[T], log logger.Logger) {
	var res Result[T]
	defer func() {
		if r := recover(); r != nil {
			err := errors.Wrap(errors.ErrorTypeTask, "task panicked", fmt.Errorf("%v", r))
			log.ErrorWithFields("pool task panicked", map[string]interface{}{
				"index": index,
				"error": err.Error(),
			})
			res = Result[T]{}
		}
		done <- completion[T]{index: index, result: res}
	}()

	value, err := task(ctx)
	if err != nil {
		log.DebugWithFields("pool task failed", map[string]interface{}{
			"index": index,
			"error": err.Error(),
		})
		return
	}
	res = Result[T]{Value: value, OK: true}
}

// Tally counts successful and failed results
func Tally[T any](results []Result[T]) (ok, failed int) {
	for _, r := range results {
		if r.OK {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}
