package docshclient

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/nicolagi/dirtydocs/internal/wire"
)

// DialTimeout bounds every connection attempt this package makes, to the NS
// and to any SS a redirect points at.
const DialTimeout = 5 * time.Second

// RedirectedVerbs are the ones whose NS reply is a redirect to a storage
// server rather than a direct answer, per §4.4.
var RedirectedVerbs = map[string]bool{
	wire.VerbRead:            true,
	wire.VerbStream:          true,
	wire.VerbWrite:           true,
	wire.VerbUndo:            true,
	wire.VerbCheckpoint:      true,
	wire.VerbRevert:          true,
	wire.VerbViewCheckpoint:  true,
	wire.VerbListCheckpoints: true,
}

// Session is one REG_CLIENT session with the name server: a single
// persistent connection that every subsequent command line is sent over,
// per §4.3's "worker services the same connection for its entire session".
type Session struct {
	conn net.Conn
	r    *bufio.Reader
}

// Dial opens the NS connection and registers username, per §4.4/§6.3
// registration.
func Dial(nsAddr, username string) (*Session, error) {
	conn, err := net.DialTimeout("tcp", nsAddr, DialTimeout)
	if err != nil {
		return nil, err
	}
	s := &Session{conn: conn, r: bufio.NewReader(conn)}
	reply, err := s.Do("REG_CLIENT " + username)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if reply != wire.AckReg {
		conn.Close()
		return nil, fmt.Errorf("registration failed: %s", reply)
	}
	return s, nil
}

// Do sends line to the NS and returns its single reply line.
func (s *Session) Do(line string) (string, error) {
	if err := wire.WriteLine(s.conn, line); err != nil {
		return "", err
	}
	return wire.ReadLine(s.r)
}

// Close ends the session by dropping the connection; the NS deactivates
// the session on EOF, per §4.3.
func (s *Session) Close() error {
	return s.conn.Close()
}

// drainTimeout bounds how long DoMulti waits for additional lines of a
// multi-line reply once the first has arrived. The wire protocol has no
// explicit terminator or count for VIEW/VIEWTRASH/LISTREQ/LIST/VIEWFOLDER
// (they share the persistent session connection, unlike the SS's one-shot
// redirected connections, so EOF cannot mark the end), so the client
// treats "nothing more arrived within this window" as "reply complete".
const drainTimeout = 150 * time.Millisecond

// DoMulti sends line and collects every reply line the NS sends back
// without an intervening pause, for the handful of verbs that reply with
// zero or more lines rather than one.
func (s *Session) DoMulti(line string) ([]string, error) {
	if err := wire.WriteLine(s.conn, line); err != nil {
		return nil, err
	}
	var lines []string
	s.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	first, err := wire.ReadLine(s.r)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			s.conn.SetReadDeadline(time.Time{})
			return nil, nil // empty reply, e.g. VIEW of an empty directory
		}
		return nil, err
	}
	if first != "" {
		lines = append(lines, first)
	}
	for {
		s.conn.SetReadDeadline(time.Now().Add(drainTimeout))
		l, err := wire.ReadLine(s.r)
		if err != nil {
			break
		}
		lines = append(lines, l)
	}
	s.conn.SetReadDeadline(time.Time{})
	return lines, nil
}

// ParseRedirect recognizes an "ACK_<verb> <ip> <port>" reply for verb.
func ParseRedirect(verb, reply string) (ip, port string, ok bool) {
	prefix := "ACK_" + verb + " "
	if !strings.HasPrefix(reply, prefix) {
		return "", "", false
	}
	fields := wire.Fields(reply)
	if len(fields) != 3 {
		return "", "", false
	}
	return fields[1], fields[2], true
}

// DialSS opens a fresh connection to the storage server at ip:port, the
// second connection of the "client → NS → redirect → client → SS" flow of
// §4.4.
func DialSS(ip, port string) (net.Conn, *bufio.Reader, error) {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(ip, port), DialTimeout)
	if err != nil {
		return nil, nil, err
	}
	return conn, bufio.NewReader(conn), nil
}
