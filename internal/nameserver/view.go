package nameserver

import (
	"sort"
	"strconv"
	"strings"

	"github.com/nicolagi/dirtydocs/internal/trie"
	"github.com/nicolagi/dirtydocs/internal/wire"
	"github.com/nicolagi/dirtydocs/internal/worker"
)

// handleView implements VIEW [-a][-l], §4.4: list names visible to the
// caller, optionally unfiltered (-a) and optionally enriched with live
// stats probed from each file's primary SS (-l), probed after releasing
// the directory lock per §9's VIEW -l note.
func (s *Server) handleView(task worker.Task, username string, fields []string) {
	all, long := false, false
	for _, f := range fields[1:] {
		switch f {
		case "-a":
			all = true
		case "-l":
			long = true
		default:
			wire.WriteLine(task.Conn, wire.ErrInvalidFlag)
			return
		}
	}
	nodes := s.Directory.List(username, all)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	for _, n := range nodes {
		if !long {
			wire.WriteLine(task.Conn, n.Name)
			continue
		}
		wire.WriteLine(task.Conn, n.Name+" "+n.Owner+" "+s.liveStatsLine(n))
	}
}

// liveStatsLine probes n's primary SS for current size/words/chars, falling
// back to the trie's last-recorded values on probe failure (stale-or-best-
// effort, per the Open Question resolution in §9).
func (s *Server) liveStatsLine(n *trie.Node) string {
	primary := n.Primary()
	if ss, ok := s.Registry.Get(primary); ok && ss.Active {
		if stats, err := s.ssGetStats(ss.NMAddr, n.Name); err == nil {
			return strconv.FormatInt(stats.Size, 10) + " " + strconv.FormatInt(stats.Words, 10) + " " +
				strconv.FormatInt(stats.Chars, 10) + " " + strconv.FormatInt(stats.LastAccess, 10)
		}
	}
	return strconv.FormatInt(n.Size, 10) + " " + strconv.FormatInt(n.WordCount, 10) + " " +
		strconv.FormatInt(n.CharCount, 10) + " " + strconv.FormatInt(n.LastAccess, 10)
}

func (s *Server) handleInfo(task worker.Task, username string, fields []string) {
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
	size := n.Size
	if ss, ok := s.Registry.Get(n.Primary()); ok && ss.Active {
		if live, err := s.ssGetSize(ss.NMAddr, name); err == nil {
			size = live
		}
	}
	readUsers := sortedKeys(n.ReadUsers)
	writeUsers := sortedKeys(n.WriteUsers)
	wire.WriteLine(task.Conn, strings.Join([]string{
		n.Name, n.Owner, strconv.FormatInt(size, 10), strconv.FormatInt(n.CreationTime, 10),
		strings.Join(readUsers, ","), strings.Join(writeUsers, ","),
	}, " "))
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s *Server) handleList(task worker.Task, fields []string) {
	for _, sess := range s.Sessions.List() {
		status := "inactive"
		if sess.Active {
			status = "active"
		}
		wire.WriteLine(task.Conn, sess.Username+" "+status+" "+sess.RemoteAddr)
	}
}

func (s *Server) handleViewFolder(task worker.Task, username string, fields []string) {
	if len(fields) != 2 {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	folder := fields[1]
	f, ok := s.Directory.Find(folder, false)
	if !ok || !f.IsFolder {
		wire.WriteLine(task.Conn, wire.ErrFileNotFound)
		return
	}
	if !f.PermRead(username) {
		wire.WriteLine(task.Conn, wire.ErrReadPermissionDenied)
		return
	}
	children := s.Directory.ListFolder(folder, username)
	sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })
	for _, n := range children {
		wire.WriteLine(task.Conn, n.Name)
	}
}
