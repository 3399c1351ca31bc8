package nameserver

import (
	"bufio"
	"context"
	"net"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/nicolagi/dirtydocs/internal/wire"
)

// ServeSS runs the acceptor for the REG_SS / heartbeat endpoint: a single
// line per connection, no session kept open, per §4.5/§6.1.
func (s *Server) ServeSS(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go s.handleSSConn(ctx, conn)
	}
}

func (s *Server) handleSSConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	line, err := wire.ReadLine(r)
	if err != nil {
		return
	}
	fields := wire.Fields(line)
	if len(fields) == 0 {
		wire.WriteLine(conn, wire.ErrUnknownCmd)
		return
	}
	switch fields[0] {
	case wire.VerbRegSS:
		s.handleRegSS(ctx, conn, fields)
	case wire.VerbHeartbeat:
		s.handleHeartbeat(conn, fields)
	case wire.NMFileModified:
		s.handleFileModified(ctx, fields)
	default:
		wire.WriteLine(conn, wire.ErrUnknownCmd)
	}
}

// handleRegSS implements REG_SS id client_port nm_port, §4.5/§4.6: a new id
// is simply registered; a known id re-registering triggers the replica
// recovery synchronizer of §4.6 in the background.
func (s *Server) handleRegSS(ctx context.Context, conn net.Conn, fields []string) {
	if len(fields) != 4 {
		wire.WriteLine(conn, wire.ErrInvalidArgs)
		return
	}
	id, clientAddr, nmAddr := fields[1], fields[2], fields[3]
	wasKnown, err := s.Registry.Register(id, clientAddr, nmAddr)
	if err != nil {
		wire.WriteLine(conn, wire.ErrMaxSS)
		return
	}
	if wasKnown {
		wire.WriteLine(conn, wire.AckRegRecovery)
		go s.recovery.Recover(ctx, id)
		return
	}
	log.WithField("ss", id).Info("storage server registered")
	wire.WriteLine(conn, wire.AckReg)
}

func (s *Server) handleHeartbeat(conn net.Conn, fields []string) {
	if len(fields) != 2 {
		wire.WriteLine(conn, wire.ErrInvalidArgs)
		return
	}
	reactivated, err := s.Registry.Heartbeat(fields[1])
	if err != nil {
		wire.WriteLine(conn, wire.ErrInvalidID)
		return
	}
	if reactivated {
		log.WithField("ss", fields[1]).Info("storage server online again")
	}
}

// handleFileModified implements the post-WRITE notification of §4.8 step 5:
// it records the reported stats, then kicks off asynchronous replication to
// every other replica, per §4.10.
func (s *Server) handleFileModified(ctx context.Context, fields []string) {
	if len(fields) != 6 {
		return
	}
	name, ssID := fields[1], fields[2]
	size, _ := strconv.ParseInt(fields[3], 10, 64)
	words, _ := strconv.ParseInt(fields[4], 10, 64)
	chars, _ := strconv.ParseInt(fields[5], 10, 64)
	_ = s.Directory.UpdateStats(name, size, words, chars)
	s.saveSnapshot()
	go s.repl.Replicate(ctx, name, ssID)
}
