package nameserver

import (
	log "github.com/sirupsen/logrus"

	"github.com/nicolagi/dirtydocs/internal/wire"
)

// Shutdown implements the SIGINT/SIGTERM sequence of §5: push SHUTDOWN to
// every active SS and every active client session, then persist the
// directory snapshot. It does not close the listeners itself; the caller
// does that once this returns.
func (s *Server) Shutdown() {
	for _, conn := range s.Sessions.ActiveConns() {
		if err := wire.WriteLine(conn, wire.VerbShutdown); err != nil {
			log.WithError(err).Warn("could not notify client of shutdown")
		}
	}
	for _, ss := range s.Registry.All() {
		if !ss.Active {
			continue
		}
		if err := s.nm.Shutdown(ss.NMAddr); err != nil {
			log.WithField("ss", ss.ID).WithError(err).Warn("could not shut down storage server")
		}
	}
	s.saveSnapshot()
}
