package pipeline

import (
	"context"
	"sync"
)

type task func(ctx context.Context)

// pool runs tasks on a fixed set of workers draining a bounded queue. A full
// queue makes submit block, which backpressures the scheduler instead of
// dropping work.
type pool struct {
	workers int
	tasks   chan task
	wg      sync.WaitGroup
}

func newPool(workers, queueSize int) *pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &pool{workers: workers, tasks: make(chan task, queueSize)}
}

// start launches the workers. They exit when ctx is cancelled.
func (p *pool) start(ctx context.Context) {
	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case t := <-p.tasks:
					t(ctx)
				}
			}
		}()
	}
}

// submit enqueues a task, blocking until there is queue space or ctx ends.
func (p *pool) submit(ctx context.Context, t task) bool {
	select {
	case p.tasks <- t:
		return true
	case <-ctx.Done():
		return false
	}
}

// wait blocks until every worker has exited.
func (p *pool) wait() {
	p.wg.Wait()
}
