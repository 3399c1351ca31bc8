package nameserver

import (
	"context"
	"net"

	"github.com/nicolagi/dirtydocs/internal/worker"
)

// ServeClients runs the client-facing acceptor and worker pool, per §4.3.
func (s *Server) ServeClients(ctx context.Context, ln net.Listener, poolSize, queueDepth int) error {
	pool := worker.NewPool(poolSize, queueDepth, s.handleClientTask)
	acceptor := worker.NewAcceptor(ln, pool)

	errCh := make(chan error, 1)
	go func() { errCh <- pool.Run(ctx) }()
	go func() { errCh <- acceptor.Run(ctx) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
