package nameserver

import "strings"

// splitHostPort is a small helper for call sites that build "ip port"
// redirect replies from a single "host:port" address.
func splitHostPort(addr string) (ip, port string) {
	i := strings.LastIndexByte(addr, ':')
	if i < 0 {
		return addr, ""
	}
	return addr[:i], addr[i+1:]
}

func (s *Server) ssCreate(nmAddr, name string) error              { return s.nm.Create(nmAddr, name) }
func (s *Server) ssCreateFolder(nmAddr, name string) error        { return s.nm.CreateFolder(nmAddr, name) }
func (s *Server) ssDelete(nmAddr, name string) error              { return s.nm.Delete(nmAddr, name) }
func (s *Server) ssMove(nmAddr, src, dest string) error           { return s.nm.Move(nmAddr, src, dest) }
func (s *Server) ssCheckLocks(nmAddr, name string) (bool, error)  { return s.nm.CheckLocks(nmAddr, name) }
func (s *Server) ssGetSize(nmAddr, name string) (int64, error)    { return s.nm.GetSize(nmAddr, name) }
func (s *Server) ssReadContent(clientAddr, name string) ([]byte, error) {
	return s.nm.ReadContent(clientAddr, name)
}

func (s *Server) ssGetStats(nmAddr, name string) (ssStats, error) {
	st, err := s.nm.GetStats(nmAddr, name)
	if err != nil {
		return ssStats{}, err
	}
	return ssStats{Size: st.Size, Words: st.Words, Chars: st.Chars, LastAccess: st.LastAccess}, nil
}

type ssStats struct {
	Size, Words, Chars, LastAccess int64
}
