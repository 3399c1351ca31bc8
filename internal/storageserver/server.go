package storageserver

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nicolagi/dirtydocs/internal/checkpoint"
	"github.com/nicolagi/dirtydocs/internal/wire"
	"github.com/nicolagi/dirtydocs/internal/worker"
)

// Server is one storage server: a byte store for file content, a
// checkpoint store, an undo-slot store, and a sentence lock table, fronted
// by a client-facing and an NM-facing listener, per §2/§5.
type Server struct {
	ID     string
	NSAddr string

	content     checkpoint.Store
	checkpoints checkpoint.Enumerable
	undo        checkpoint.Store
	locks       *LockTable

	streamDelay time.Duration
}

// New builds a Server. content, checkpoints and undo are typically built
// from the same Paired/DiskStore family, rooted at different
// subdirectories of the SS's data directory.
func New(id, nsAddr string, content checkpoint.Store, checkpoints checkpoint.Enumerable, undo checkpoint.Store) *Server {
	return &Server{
		ID:          id,
		NSAddr:      nsAddr,
		content:     content,
		checkpoints: checkpoints,
		undo:        undo,
		locks:       NewLockTable(),
		streamDelay: 20 * time.Millisecond,
	}
}

// ServeClients runs the client-facing acceptor/worker pool until ctx is
// cancelled.
func (s *Server) ServeClients(ctx context.Context, ln net.Listener, poolSize, queueDepth int) error {
	pool := worker.NewPool(poolSize, queueDepth, s.handleClientTask)
	acc := worker.NewAcceptor(ln, pool)
	errCh := make(chan error, 1)
	go func() { errCh <- acc.Run(ctx) }()
	if err := pool.Run(ctx); err != nil {
		return err
	}
	return <-errCh
}

// ServeNM runs the NM-facing acceptor/worker pool until ctx is cancelled.
func (s *Server) ServeNM(ctx context.Context, ln net.Listener, poolSize, queueDepth int) error {
	pool := worker.NewPool(poolSize, queueDepth, s.handleNMTask)
	acc := worker.NewAcceptor(ln, pool)
	errCh := make(chan error, 1)
	go func() { errCh <- acc.Run(ctx) }()
	if err := pool.Run(ctx); err != nil {
		return err
	}
	return <-errCh
}

// EmitHeartbeats opens a short-lived connection to the NS every interval
// and sends HEARTBEAT <ss_id>, per §4.5. It runs until ctx is cancelled.
func (s *Server) EmitHeartbeats(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.sendHeartbeat(); err != nil {
				log.WithFields(log.Fields{"op": "heartbeat", "ss_id": s.ID}).WithError(err).Warn("could not reach name server")
			}
		}
	}
}

// Register sends REG_SS to the name server, reporting back whether the NS
// treated it as a fresh registration or a recovery (already-known id), per
// §4.5/§4.6.
func (s *Server) Register(clientAddr, nmAddr string) (recovery bool, err error) {
	conn, err := net.DialTimeout("tcp", s.NSAddr, 2*time.Second)
	if err != nil {
		return false, err
	}
	defer conn.Close()
	if err := wire.WriteLine(conn, wire.VerbRegSS+" "+s.ID+" "+clientAddr+" "+nmAddr); err != nil {
		return false, err
	}
	reply, err := wire.ReadLine(bufio.NewReader(conn))
	if err != nil {
		return false, err
	}
	switch reply {
	case wire.AckReg:
		return false, nil
	case wire.AckRegRecovery:
		return true, nil
	default:
		return false, fmt.Errorf("storageserver: Register: unexpected reply %q", reply)
	}
}

func (s *Server) sendHeartbeat() error {
	conn, err := net.DialTimeout("tcp", s.NSAddr, 2*time.Second)
	if err != nil {
		return err
	}
	defer conn.Close()
	return wire.WriteLine(conn, wire.VerbHeartbeat+" "+s.ID)
}

// notifyModified tells the NS this file changed, so it can fan out
// replication, per §4.8 step 5 and §4.10.
func (s *Server) notifyModified(name string) {
	sentences, err := s.readSentences(name)
	words, chars := 0, 0
	if err == nil {
		words, chars = statsOf(sentences)
	}
	conn, err := net.DialTimeout("tcp", s.NSAddr, 2*time.Second)
	if err != nil {
		log.WithFields(log.Fields{"op": "notify-modified", "name": name}).WithError(err).Warn("could not reach name server")
		return
	}
	defer conn.Close()
	line := wire.NMFileModified + " " + name + " " + s.ID + " " +
		itoa(sizeOf(sentences)) + " " + itoa(words) + " " + itoa(chars) + " " + itoa(int(time.Now().Unix()))
	if err := wire.WriteLine(conn, line); err != nil {
		log.WithFields(log.Fields{"op": "notify-modified", "name": name}).WithError(err).Warn("could not send notification")
	}
}
