package storageserver

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicolagi/dirtydocs/internal/checkpoint"
	"github.com/nicolagi/dirtydocs/internal/wire"
)

// fakeNS accepts connections and discards whatever it reads, standing in
// for the name server's heartbeat/notification listener in tests.
func fakeNS(t *testing.T) string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				bufio.NewReader(conn).ReadString('\n')
			}()
		}
	}()
	t.Cleanup(func() { ln.Close() })
	return ln.Addr().String()
}

func startTestServer(t *testing.T) (addr string, srv *Server) {
	srv = New("ss0", fakeNS(t), &checkpoint.InMemory{}, &checkpoint.InMemory{}, &checkpoint.InMemory{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	done := make(chan struct{})
	go func() {
		srv.ServeClients(ctx, ln, 2, 4)
		close(done)
	}()
	t.Cleanup(func() { <-done })
	return ln.Addr().String(), srv
}

func dial(t *testing.T, addr string) (net.Conn, *bufio.Reader) {
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, bufio.NewReader(conn)
}

func sendLine(t *testing.T, conn net.Conn, line string) {
	require.NoError(t, wire.WriteLine(conn, line))
}

func readLine(t *testing.T, r *bufio.Reader) string {
	line, err := wire.ReadLine(r)
	require.NoError(t, err)
	return line
}

func TestWriteThenReadThenUndo(t *testing.T) {
	addr, srv := startTestServer(t)
	require.NoError(t, srv.content.Put("a.txt", nil))

	conn, r := dial(t, addr)
	sendLine(t, conn, "WRITE a.txt 1")
	assert.Equal(t, wire.AckWriteLocked, readLine(t, r))
	sendLine(t, conn, "1 Hello")
	sendLine(t, conn, "2 world")
	sendLine(t, conn, wire.WriteSentinel)
	assert.Equal(t, wire.AckWriteSuccess, readLine(t, r))
	conn.Close()

	conn2, r2 := dial(t, addr)
	sendLine(t, conn2, "READ a.txt")
	body := make([]byte, len("Hello world."))
	n, _ := r2.Read(body)
	assert.Equal(t, "Hello world.", string(body[:n]))
	conn2.Close()

	conn3, r3 := dial(t, addr)
	sendLine(t, conn3, "UNDO a.txt")
	assert.Equal(t, wire.AckUndoSuccess, readLine(t, r3))
	conn3.Close()

	conn4, _ := dial(t, addr)
	sendLine(t, conn4, "READ a.txt")
	body4 := make([]byte, 1)
	n4, err := conn4.Read(body4)
	assert.True(t, n4 == 0 || err != nil, "content should be empty again after undo")
}

func TestWriteAppendsSentence(t *testing.T) {
	addr, srv := startTestServer(t)
	require.NoError(t, srv.content.Put("a.txt", checkpoint.Value("Hello world.")))

	conn, r := dial(t, addr)
	sendLine(t, conn, "WRITE a.txt 2")
	assert.Equal(t, wire.AckWriteLocked, readLine(t, r))
	sendLine(t, conn, "1 Second")
	sendLine(t, conn, "2 sentence")
	sendLine(t, conn, wire.WriteSentinel)
	assert.Equal(t, wire.AckWriteSuccess, readLine(t, r))
	conn.Close()

	v, err := srv.content.Get("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "Hello world. Second sentence.", string(v))
}

func TestWriteBeyondNPlus1Fails(t *testing.T) {
	addr, srv := startTestServer(t)
	require.NoError(t, srv.content.Put("a.txt", checkpoint.Value("Hello world.")))

	conn, r := dial(t, addr)
	sendLine(t, conn, "WRITE a.txt 3")
	assert.Equal(t, wire.ErrInvalidSentence, readLine(t, r))
}

func TestConcurrentWriteToSameSentenceIsRejected(t *testing.T) {
	addr, srv := startTestServer(t)
	require.NoError(t, srv.content.Put("a.txt", checkpoint.Value("Hello world.")))

	conn1, r1 := dial(t, addr)
	sendLine(t, conn1, "WRITE a.txt 1")
	assert.Equal(t, wire.AckWriteLocked, readLine(t, r1))

	conn2, r2 := dial(t, addr)
	sendLine(t, conn2, "WRITE a.txt 1")
	assert.Equal(t, wire.ErrSentenceLocked, readLine(t, r2))

	sendLine(t, conn1, wire.WriteSentinel)
	assert.Equal(t, wire.AckWriteSuccess, readLine(t, r1))
}

func TestCheckpointThenRevert(t *testing.T) {
	addr, srv := startTestServer(t)
	require.NoError(t, srv.content.Put("a.txt", checkpoint.Value("Hello world.")))

	conn, r := dial(t, addr)
	sendLine(t, conn, "CHECKPOINT a.txt v1")
	assert.Equal(t, wire.AckCheckpoint, readLine(t, r))
	conn.Close()

	require.NoError(t, srv.content.Put("a.txt", checkpoint.Value("Changed content.")))

	conn2, r2 := dial(t, addr)
	sendLine(t, conn2, "REVERT a.txt v1")
	assert.Equal(t, wire.AckRevert, readLine(t, r2))
	conn2.Close()

	v, err := srv.content.Get("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "Hello world.", string(v))

	undoV, err := srv.undo.Get("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "Changed content.", string(undoV))
}

func TestRevertMissingTagFails(t *testing.T) {
	addr, srv := startTestServer(t)
	require.NoError(t, srv.content.Put("a.txt", checkpoint.Value("Hello world.")))

	conn, r := dial(t, addr)
	sendLine(t, conn, "REVERT a.txt ghost")
	assert.Equal(t, wire.ErrNoSuchCheckpoint, readLine(t, r))
}

func TestListCheckpoints(t *testing.T) {
	addr, srv := startTestServer(t)
	require.NoError(t, srv.content.Put("a.txt", checkpoint.Value("Hello world.")))

	for _, tag := range []string{"v1", "v2"} {
		conn, r := dial(t, addr)
		sendLine(t, conn, "CHECKPOINT a.txt "+tag)
		assert.Equal(t, wire.AckCheckpoint, readLine(t, r))
		conn.Close()
	}

	conn, r := dial(t, addr)
	sendLine(t, conn, "LISTCHECKPOINTS a.txt")
	time.Sleep(50 * time.Millisecond)
	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		line, err := wire.ReadLine(r)
		require.NoError(t, err)
		seen[line] = true
	}
	assert.True(t, seen["v1"])
	assert.True(t, seen["v2"])
}
