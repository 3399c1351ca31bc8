package worker

import (
	"bufio"
	"context"
	"net"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Task is the unit of work the acceptor hands to a worker: a connection
// plus the first line already read off it, per §4.3.
type Task struct {
	Conn      net.Conn
	Reader    *bufio.Reader
	FirstLine string
}

// Handler services one connection for its entire session lifetime,
// reading subsequent commands itself. It must close conn before
// returning.
type Handler func(ctx context.Context, task Task)

// Pool is the fixed-size worker pool of §4.3: workers dequeue tasks from
// a bounded FIFO and each owns its connection until the client disconnects.
type Pool struct {
	tasks   chan Task
	handler Handler
	size    int
}

// NewPool builds a pool with the given number of workers and FIFO depth.
func NewPool(size, queueDepth int, handler Handler) *Pool {
	return &Pool{
		tasks:   make(chan Task, queueDepth),
		handler: handler,
		size:    size,
	}
}

// Submit enqueues a task. It blocks while the FIFO is full; the acceptor
// keeps accepting, and each connection admitted meanwhile waits in its own
// admit goroutine until a slot frees, since the spec gives no overflow
// policy.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts size workers and blocks until ctx is cancelled, then waits for
// in-flight handlers to return before returning itself.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.size; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case task, ok := <-p.tasks:
					if !ok {
						return nil
					}
					p.handler(ctx, task)
				}
			}
		})
	}
	<-ctx.Done()
	log.WithField("op", "worker-pool").Debug("shutting down")
	return g.Wait()
}
