package recovery

import (
	"bufio"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicolagi/dirtydocs/internal/nmclient"
	"github.com/nicolagi/dirtydocs/internal/registry"
	"github.com/nicolagi/dirtydocs/internal/trie"
	"github.com/nicolagi/dirtydocs/internal/wire"
)

// contentSS is a minimal storage server stand-in serving READ on its client
// port and NM_CREATE/NM_DELETE/NM_WRITECONTENT on its NM port, enough to
// exercise the recovery synchronizer's read-from-peer, push-to-target cycle.
type contentSS struct {
	mu      sync.Mutex
	content map[string][]byte
}

func newContentSS(t *testing.T) (addr string, ss *contentSS) {
	ss = &contentSS{content: make(map[string][]byte)}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go ss.handle(conn)
		}
	}()
	t.Cleanup(func() { ln.Close() })
	return ln.Addr().String(), ss
}

func (ss *contentSS) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	line, err := wire.ReadLine(r)
	if err != nil {
		return
	}
	fields := wire.Fields(line)
	if len(fields) == 0 {
		return
	}
	switch fields[0] {
	case wire.VerbRead:
		ss.mu.Lock()
		body := ss.content[fields[1]]
		ss.mu.Unlock()
		conn.Write(body)
	case wire.NMCreate:
		ss.mu.Lock()
		if _, ok := ss.content[fields[1]]; !ok {
			ss.content[fields[1]] = nil
		}
		ss.mu.Unlock()
		wire.WriteLine(conn, wire.Ack(wire.NMCreate))
	case wire.NMDelete:
		ss.mu.Lock()
		delete(ss.content, fields[1])
		ss.mu.Unlock()
		wire.WriteLine(conn, wire.Ack(wire.NMDelete))
	case wire.NMWriteContent:
		length := 0
		for _, c := range fields[2] {
			length = length*10 + int(c-'0')
		}
		buf := make([]byte, length)
		total := 0
		for total < len(buf) {
			n, err := r.Read(buf[total:])
			total += n
			if err != nil {
				break
			}
		}
		ss.mu.Lock()
		ss.content[fields[1]] = buf
		ss.mu.Unlock()
		wire.WriteLine(conn, wire.AckNMWriteContent)
	}
}

func (ss *contentSS) get(name string) []byte {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.content[name]
}

func TestRecoverPullsContentFromActivePeer(t *testing.T) {
	peerAddr, peer := newContentSS(t)
	targetAddr, target := newContentSS(t)
	peer.content["doc1"] = []byte("Hello world.")

	dir := trie.New(t.TempDir() + "/snapshot.bin")
	_, err := dir.InsertFile("doc1", "alice", []string{"ss-peer", "ss-target"})
	require.NoError(t, err)

	reg := registry.New(4)
	_, err = reg.Register("ss-peer", peerAddr, peerAddr)
	require.NoError(t, err)
	_, err = reg.Register("ss-target", targetAddr, targetAddr)
	require.NoError(t, err)

	synchronizer := New(dir, reg, nmclient.New(time.Second))
	synchronizer.Recover(context.Background(), "ss-target")

	assert.Equal(t, []byte("Hello world."), target.get("doc1"))
}

func TestRecoverSkipsFilesWithNoActivePeer(t *testing.T) {
	targetAddr, _ := newContentSS(t)

	dir := trie.New(t.TempDir() + "/snapshot.bin")
	_, err := dir.InsertFile("doc1", "alice", []string{"ss-gone", "ss-target"})
	require.NoError(t, err)

	reg := registry.New(4)
	_, err = reg.Register("ss-target", targetAddr, targetAddr)
	require.NoError(t, err)
	// ss-gone was never registered: findActivePeer must return nil and
	// Recover must simply skip the file rather than panic or block.
	synchronizer := New(dir, reg, nmclient.New(time.Second))
	synchronizer.Recover(context.Background(), "ss-target")
}

func TestRecoverIgnoresFolders(t *testing.T) {
	targetAddr, _ := newContentSS(t)
	dir := trie.New(t.TempDir() + "/snapshot.bin")
	_, err := dir.InsertFolder("work", "alice", []string{"ss-target"})
	require.NoError(t, err)

	reg := registry.New(4)
	_, err = reg.Register("ss-target", targetAddr, targetAddr)
	require.NoError(t, err)

	synchronizer := New(dir, reg, nmclient.New(time.Second))
	synchronizer.Recover(context.Background(), "ss-target")
}
