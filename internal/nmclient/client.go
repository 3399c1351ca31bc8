package nmclient

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/nicolagi/dirtydocs/internal/wire"
)

// Client dials storage servers' NM and client ports on behalf of the name
// server. It holds no long-lived connections: every call is a fresh dial,
// matching the short-lived-connection model of §4.5/§6.1.
type Client struct {
	Timeout time.Duration
}

func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Client{Timeout: timeout}
}

func (c *Client) dial(addr, line string) (string, error) {
	conn, err := net.DialTimeout("tcp", addr, c.Timeout)
	if err != nil {
		return "", fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	if err := wire.WriteLine(conn, line); err != nil {
		return "", err
	}
	return wire.ReadLine(bufio.NewReader(conn))
}

func (c *Client) Create(nmAddr, name string) error {
	reply, err := c.dial(nmAddr, wire.NMCreate+" "+name)
	if err != nil {
		return err
	}
	return expect(reply, wire.Ack(wire.NMCreate))
}

func (c *Client) CreateFolder(nmAddr, name string) error {
	reply, err := c.dial(nmAddr, wire.NMCreateFolder+" "+name)
	if err != nil {
		return err
	}
	return expect(reply, wire.Ack(wire.NMCreateFolder))
}

func (c *Client) Delete(nmAddr, name string) error {
	reply, err := c.dial(nmAddr, wire.NMDelete+" "+name)
	if err != nil {
		return err
	}
	return expect(reply, wire.Ack(wire.NMDelete))
}

func (c *Client) Move(nmAddr, src, dest string) error {
	reply, err := c.dial(nmAddr, wire.NMMove+" "+src+" "+dest)
	if err != nil {
		return err
	}
	return expect(reply, wire.Ack(wire.NMMove))
}

func (c *Client) CheckLocks(nmAddr, name string) (locked bool, err error) {
	reply, err := c.dial(nmAddr, wire.NMCheckLocks+" "+name)
	if err != nil {
		return false, err
	}
	return reply == wire.FileLocked, nil
}

func (c *Client) GetSize(nmAddr, name string) (int64, error) {
	reply, err := c.dial(nmAddr, wire.NMGetSize+" "+name)
	if err != nil {
		return 0, err
	}
	fields := wire.Fields(reply)
	if len(fields) != 2 || fields[0] != wire.ReplySize {
		return 0, fmt.Errorf("nmclient: GetSize %s: unexpected reply %q", name, reply)
	}
	return strconv.ParseInt(fields[1], 10, 64)
}

// Stats is the parsed reply to NM_GETSTATS.
type Stats struct {
	Size, Words, Chars, LastAccess int64
}

func (c *Client) GetStats(nmAddr, name string) (Stats, error) {
	reply, err := c.dial(nmAddr, wire.NMGetStats+" "+name)
	if err != nil {
		return Stats{}, err
	}
	fields := wire.Fields(reply)
	if len(fields) != 5 || fields[0] != wire.ReplyStats {
		return Stats{}, fmt.Errorf("nmclient: GetStats %s: unexpected reply %q", name, reply)
	}
	var nums [4]int64
	for i := 0; i < 4; i++ {
		n, err := strconv.ParseInt(fields[i+1], 10, 64)
		if err != nil {
			return Stats{}, err
		}
		nums[i] = n
	}
	return Stats{Size: nums[0], Words: nums[1], Chars: nums[2], LastAccess: nums[3]}, nil
}

func (c *Client) WriteContent(nmAddr, name string, content []byte) error {
	conn, err := net.DialTimeout("tcp", nmAddr, c.Timeout)
	if err != nil {
		return fmt.Errorf("dial %s: %w", nmAddr, err)
	}
	defer conn.Close()
	if err := wire.WriteLine(conn, wire.NMWriteContent+" "+name+" "+strconv.Itoa(len(content))); err != nil {
		return err
	}
	if _, err := conn.Write(content); err != nil {
		return err
	}
	reply, err := wire.ReadLine(bufio.NewReader(conn))
	if err != nil {
		return err
	}
	return expect(reply, wire.AckNMWriteContent)
}

// ReadContent dials clientAddr (an SS's client port, not its NM port) and
// reads a whole file via READ until EOF, for the replication engine and
// the replica recovery synchronizer pulling content from a live peer.
func (c *Client) ReadContent(clientAddr, name string) ([]byte, error) {
	conn, err := net.DialTimeout("tcp", clientAddr, c.Timeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", clientAddr, err)
	}
	defer conn.Close()
	if err := wire.WriteLine(conn, wire.VerbRead+" "+name); err != nil {
		return nil, err
	}
	r := bufio.NewReader(conn)
	var buf []byte
	tmp := make([]byte, 4096)
	for {
		n, rerr := r.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
		}
		if rerr != nil {
			break
		}
	}
	return buf, nil
}

// Shutdown tells a storage server to shut down, over its NM port, per §5.
func (c *Client) Shutdown(nmAddr string) error {
	reply, err := c.dial(nmAddr, wire.VerbShutdown)
	if err != nil {
		return err
	}
	return expect(reply, wire.AckShutdown)
}

func expect(got, want string) error {
	if got != want {
		return fmt.Errorf("nmclient: unexpected reply %q, want %q", got, want)
	}
	return nil
}
