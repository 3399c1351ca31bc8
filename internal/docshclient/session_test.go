package docshclient

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicolagi/dirtydocs/internal/wire"
)

// fakeNS accepts one connection, expects REG_CLIENT, acks, then serves the
// handler given, standing in for the name server side of a Session.
func fakeNS(t *testing.T, handle func(conn net.Conn, r *bufio.Reader)) string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		line, err := wire.ReadLine(r)
		if err != nil || wire.Fields(line)[0] != wire.VerbRegClient {
			return
		}
		wire.WriteLine(conn, wire.AckReg)
		if handle != nil {
			handle(conn, r)
		}
	}()
	t.Cleanup(func() { ln.Close() })
	return ln.Addr().String()
}

func TestDialRegisters(t *testing.T) {
	addr := fakeNS(t, nil)
	sess, err := Dial(addr, "alice")
	require.NoError(t, err)
	defer sess.Close()
}

func TestDialRejectsBadAck(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		bufio.NewReader(conn).ReadString('\n')
		wire.WriteLine(conn, wire.ErrMaxClients)
	}()
	_, err = Dial(ln.Addr().String(), "alice")
	assert.Error(t, err)
}

func TestDoSendsAndReceivesOneLine(t *testing.T) {
	addr := fakeNS(t, func(conn net.Conn, r *bufio.Reader) {
		line, _ := wire.ReadLine(r)
		wire.WriteLine(conn, wire.Ack(wire.Fields(line)[0]))
	})
	sess, err := Dial(addr, "alice")
	require.NoError(t, err)
	defer sess.Close()

	reply, err := sess.Do("CREATE doc1")
	require.NoError(t, err)
	assert.Equal(t, "ACK_CREATE", reply)
}

func TestDoMultiCollectsAllLines(t *testing.T) {
	addr := fakeNS(t, func(conn net.Conn, r *bufio.Reader) {
		wire.ReadLine(r)
		wire.WriteLine(conn, "doc1")
		wire.WriteLine(conn, "doc2")
		wire.WriteLine(conn, "doc3")
	})
	sess, err := Dial(addr, "alice")
	require.NoError(t, err)
	defer sess.Close()

	lines, err := sess.DoMulti("VIEW")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc1", "doc2", "doc3"}, lines)
}

func TestDoMultiHandlesEmptyReply(t *testing.T) {
	addr := fakeNS(t, func(conn net.Conn, r *bufio.Reader) {
		wire.ReadLine(r)
		// Deliberately writes nothing back and keeps the connection open
		// past DoMulti's first-line wait, matching VIEW of an empty
		// directory.
		time.Sleep(3 * time.Second)
	})
	sess, err := Dial(addr, "alice")
	require.NoError(t, err)
	defer sess.Close()

	lines, err := sess.DoMulti("VIEW")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestParseRedirect(t *testing.T) {
	ip, port, ok := ParseRedirect(wire.VerbRead, "ACK_READ 127.0.0.1 9000")
	require.True(t, ok)
	assert.Equal(t, "127.0.0.1", ip)
	assert.Equal(t, "9000", port)

	_, _, ok = ParseRedirect(wire.VerbRead, wire.ErrFileNotFound)
	assert.False(t, ok)
}

func TestDialSS(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		wire.ReadLine(bufio.NewReader(conn))
		wire.WriteLine(conn, "hi")
	}()

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	conn, r, err := DialSS(host, port)
	require.NoError(t, err)
	defer conn.Close()
	wire.WriteLine(conn, "READ doc1")
	line, err := wire.ReadLine(r)
	require.NoError(t, err)
	assert.Equal(t, "hi", line)
}
