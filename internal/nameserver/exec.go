package nameserver

import (
	"os"
	"os/exec"

	log "github.com/sirupsen/logrus"

	"github.com/nicolagi/dirtydocs/internal/wire"
	"github.com/nicolagi/dirtydocs/internal/worker"
)

// handleExec implements EXEC name, §4.4: fetch the file's bytes from its
// primary, spill them to a temporary executable, run it capturing merged
// stdout+stderr, return the output verbatim, then remove the temp file.
func (s *Server) handleExec(task worker.Task, username string, fields []string) {
	if len(fields) != 2 {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	name := fields[1]
	n, ok := s.Directory.Find(name, false)
	if !ok {
		wire.WriteLine(task.Conn, wire.ErrFileNotFound)
		return
	}
	if !n.PermRead(username) {
		wire.WriteLine(task.Conn, wire.ErrReadPermissionDenied)
		return
	}
	ss, ok := s.Registry.Get(n.Primary())
	if !ok || !ss.Active {
		wire.WriteLine(task.Conn, wire.ErrNoSSAvail)
		return
	}
	content, err := s.ssReadContent(ss.ClientAddr, name)
	if err != nil {
		wire.WriteLine(task.Conn, wire.ErrSSUnreachable)
		return
	}

	tmp, err := os.CreateTemp("", "docsh-exec-*")
	if err != nil {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	path := tmp.Name()
	defer os.Remove(path)
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	tmp.Close()
	if err := os.Chmod(path, 0700); err != nil {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}

	out, runErr := exec.Command(path).CombinedOutput()
	if runErr != nil {
		log.WithFields(log.Fields{"name": name, "err": runErr}).Warn("exec exited non-zero")
	}
	task.Conn.Write(out)
}
