package nameserver

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/nicolagi/dirtydocs/internal/wire"
	"github.com/nicolagi/dirtydocs/internal/worker"
)

// handleClientTask owns a client connection for its whole session, per
// §4.3. The first line must be REG_CLIENT; every subsequent line is
// dispatched as a command until EOF, at which point the session is
// deactivated.
func (s *Server) handleClientTask(ctx context.Context, task worker.Task) {
	defer task.Conn.Close()

	fields := wire.Fields(task.FirstLine)
	if len(fields) != 2 || fields[0] != wire.VerbRegClient {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	username := fields[1]
	if err := s.Sessions.Register(username, task.Conn.RemoteAddr().String()); err != nil {
		if strings.Contains(err.Error(), "in use") {
			wire.WriteLine(task.Conn, wire.ErrUsernameInUse)
		} else {
			wire.WriteLine(task.Conn, wire.ErrMaxClients)
		}
		return
	}
	defer s.Sessions.Deactivate(username)
	s.Sessions.SetConn(username, task.Conn)
	wire.WriteLine(task.Conn, wire.AckReg)
	log.WithFields(log.Fields{"user": username, "remote": task.Conn.RemoteAddr()}).Info("client registered")

	for {
		line, err := wire.ReadLine(task.Reader)
		if err != nil {
			return
		}
		fields := wire.Fields(line)
		if len(fields) == 0 {
			wire.WriteLine(task.Conn, wire.ErrUnknownCmd)
			continue
		}
		s.dispatch(task, username, fields)
	}
}

func (s *Server) dispatch(task worker.Task, username string, fields []string) {
	verb := fields[0]
	log.WithFields(log.Fields{"user": username, "verb": verb}).Debug("dispatch")
	switch verb {
	case wire.VerbCreate:
		s.handleCreate(task, username, fields)
	case wire.VerbCreateFolder:
		s.handleCreateFolder(task, username, fields)
	case wire.VerbTrash:
		s.handleTrash(task, username, fields)
	case wire.VerbRestore:
		s.handleRestore(task, username, fields)
	case wire.VerbViewTrash:
		s.handleViewTrash(task, username, fields)
	case wire.VerbEmptyTrash:
		s.handleEmptyTrash(task, username, fields)
	case wire.VerbDelete:
		s.handleDelete(task, username, fields)
	case wire.VerbMove:
		s.handleMove(task, username, fields)
	case wire.VerbRead, wire.VerbStream, wire.VerbWrite, wire.VerbUndo,
		wire.VerbCheckpoint, wire.VerbRevert, wire.VerbViewCheckpoint, wire.VerbListCheckpoints:
		s.handleRedirect(task, username, fields)
	case wire.VerbView:
		s.handleView(task, username, fields)
	case wire.VerbInfo:
		s.handleInfo(task, username, fields)
	case wire.VerbList:
		s.handleList(task, fields)
	case wire.VerbViewFolder:
		s.handleViewFolder(task, username, fields)
	case wire.VerbAddAccess:
		s.handleAddAccess(task, username, fields)
	case wire.VerbRemAccess:
		s.handleRemAccess(task, username, fields)
	case wire.VerbReqAccess:
		s.handleReqAccess(task, username, fields)
	case wire.VerbListReq:
		s.handleListReq(task, username, fields)
	case wire.VerbApprove:
		s.handleApprove(task, username, fields)
	case wire.VerbDeny:
		s.handleDeny(task, username, fields)
	case wire.VerbExec:
		s.handleExec(task, username, fields)
	default:
		wire.WriteLine(task.Conn, wire.ErrUnknownCmd)
	}
}
