package worker

import (
	"bufio"
	"context"
	"errors"
	"net"

	log "github.com/sirupsen/logrus"
)

// Acceptor is the single acceptor of §4.3: it accepts connections, reads
// the first line off each one, and hands a Task to the pool. It does not
// itself multiplex reads across live sessions; once a task is handed off,
// the worker owns that connection.
type Acceptor struct {
	listener net.Listener
	pool     *Pool
}

func NewAcceptor(l net.Listener, pool *Pool) *Acceptor {
	return &Acceptor{listener: l, pool: pool}
}

// Run accepts connections until ctx is cancelled or the listener errors.
func (a *Acceptor) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		a.listener.Close()
	}()
	for {
		conn, err := a.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go a.admit(ctx, conn)
	}
}

// admit reads the first line off a freshly accepted connection and
// enqueues it as a task. It runs in its own goroutine so a slow or
// misbehaving client can't stall acceptance of new connections.
func (a *Acceptor) admit(ctx context.Context, conn net.Conn) {
	r := bufio.NewReader(conn)
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		conn.Close()
		return
	}
	first := trimCRLF(line)
	task := Task{Conn: conn, Reader: r, FirstLine: first}
	if err := a.pool.Submit(ctx, task); err != nil {
		if !errors.Is(err, context.Canceled) {
			log.WithField("op", "acceptor").WithError(err).Warn("could not submit task")
		}
		conn.Close()
	}
}

func trimCRLF(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
