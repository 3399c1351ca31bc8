package nameserver

import (
	"sort"
	"strconv"

	"github.com/nicolagi/dirtydocs/internal/request"
	"github.com/nicolagi/dirtydocs/internal/wire"
	"github.com/nicolagi/dirtydocs/internal/worker"
)

func (s *Server) handleAddAccess(task worker.Task, username string, fields []string) {
	if len(fields) != 4 {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	flag, name, user := fields[1], fields[2], fields[3]
	write, ok := parseRWFlag(flag)
	if !ok {
		wire.WriteLine(task.Conn, wire.ErrInvalidFlag)
		return
	}
	n, ok := s.Directory.Find(name, false)
	if !ok {
		wire.WriteLine(task.Conn, wire.ErrFileNotFound)
		return
	}
	if n.Owner != username {
		wire.WriteLine(task.Conn, wire.ErrPermissionDenied)
		return
	}
	if err := s.Directory.AddAccess(name, user, write, s.Limits.MaxUsers); err != nil {
		wire.WriteLine(task.Conn, aclErrorReply(err))
		return
	}
	s.saveSnapshot()
	wire.WriteLine(task.Conn, wire.Ack(wire.VerbAddAccess))
}

func (s *Server) handleRemAccess(task worker.Task, username string, fields []string) {
	if len(fields) != 3 {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	name, user := fields[1], fields[2]
	n, ok := s.Directory.Find(name, false)
	if !ok {
		wire.WriteLine(task.Conn, wire.ErrFileNotFound)
		return
	}
	if n.Owner != username {
		wire.WriteLine(task.Conn, wire.ErrPermissionDenied)
		return
	}
	if err := s.Directory.RemAccess(name, user); err != nil {
		wire.WriteLine(task.Conn, wire.ErrUserNotInACL)
		return
	}
	s.saveSnapshot()
	wire.WriteLine(task.Conn, wire.Ack(wire.VerbRemAccess))
}

func parseRWFlag(flag string) (write bool, ok bool) {
	switch flag {
	case "-R":
		return false, true
	case "-W":
		return true, true
	default:
		return false, false
	}
}

func aclErrorReply(err error) string {
	switch {
	case err == nil:
		return ""
	default:
		msg := err.Error()
		switch {
		case contains(msg, "already owner"):
			return wire.ErrAlreadyOwner
		case contains(msg, "already has access"):
			return wire.ErrAlreadyHasAccess
		default:
			return wire.ErrACLFull
		}
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

// handleReqAccess implements REQACCESS -R/-W name, §4.4: creates a request
// against the file's owner, or returns the existing pending one.
func (s *Server) handleReqAccess(task worker.Task, username string, fields []string) {
	if len(fields) != 3 {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	flag, name := fields[1], fields[2]
	write, ok := parseRWFlag(flag)
	if !ok {
		wire.WriteLine(task.Conn, wire.ErrInvalidFlag)
		return
	}
	n, ok := s.Directory.Find(name, false)
	if !ok {
		wire.WriteLine(task.Conn, wire.ErrFileNotFound)
		return
	}
	if n.Owner == username {
		wire.WriteLine(task.Conn, wire.ErrAlreadyOwner)
		return
	}
	if write && n.PermWrite(username) {
		wire.WriteLine(task.Conn, wire.ErrAlreadyHasAccess)
		return
	}
	if !write && n.PermRead(username) {
		wire.WriteLine(task.Conn, wire.ErrAlreadyHasAccess)
		return
	}
	typ := request.Read
	if write {
		typ = request.Write
	}
	id, _ := s.Requests.Create(name, username, n.Owner, typ)
	wire.WriteLine(task.Conn, wire.Ack(wire.VerbReqAccess, strconv.Itoa(id)))
}

func (s *Server) handleListReq(task worker.Task, username string, fields []string) {
	reqs := s.Requests.For(username)
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].ID < reqs[j].ID })
	for _, r := range reqs {
		wire.WriteLine(task.Conn, strconv.Itoa(r.ID)+" "+r.Filename+" "+r.Requester+" "+string(r.Type)+" "+string(r.Status))
	}
}

func (s *Server) handleApprove(task worker.Task, username string, fields []string) {
	s.transitionRequest(task, username, fields, true)
}

func (s *Server) handleDeny(task worker.Task, username string, fields []string) {
	s.transitionRequest(task, username, fields, false)
}

func (s *Server) transitionRequest(task worker.Task, username string, fields []string, approve bool) {
	if len(fields) != 2 {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	id, err := strconv.Atoi(fields[1])
	if err != nil {
		wire.WriteLine(task.Conn, wire.ErrInvalidID)
		return
	}
	var r *request.Request
	if approve {
		r, err = s.Requests.Approve(id, username)
	} else {
		r, err = s.Requests.Deny(id, username)
	}
	if err != nil {
		wire.WriteLine(task.Conn, requestErrorReply(err))
		return
	}
	if approve {
		write := r.Type == request.Write
		_ = s.Directory.AddAccess(r.Filename, r.Requester, write, s.Limits.MaxUsers)
		s.saveSnapshot()
		wire.WriteLine(task.Conn, wire.AckApproved)
		return
	}
	wire.WriteLine(task.Conn, wire.AckDenied)
}

func requestErrorReply(err error) string {
	switch err {
	case request.ErrNotFound:
		return wire.ErrReqNotFound
	case request.ErrNotOwner:
		return wire.ErrNotRequestOwner
	case request.ErrNotPending:
		return wire.ErrReqNotPending
	default:
		return wire.ErrReqNotFound
	}
}
