package config

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	mathrand "math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var (
	// DefaultBaseDirectoryPath is where all dirtydocs commands store
	// configuration and data. It defaults to $DIRTYDOCS_BASE if set,
	// otherwise to $HOME/lib/dirtydocs. Commands override this via the
	// -base flag.
	DefaultBaseDirectoryPath string
)

func init() {
	if base := os.Getenv("DIRTYDOCS_BASE"); base != "" {
		DefaultBaseDirectoryPath = base
	} else {
		DefaultBaseDirectoryPath = os.ExpandEnv("$HOME/lib/dirtydocs")
	}
}

// Defaults mirroring common/config.h of the original implementation, kept
// as fallback values when the config file omits a key.
const (
	DefaultNSCommandAddr   = "127.0.0.1:8080"
	DefaultNSHeartbeatAddr = "127.0.0.1:8081"
	DefaultBufferSize      = 1024
	DefaultHeartbeatInterval = 5 * time.Second
	DefaultReplicationFactor = 3
	DefaultMaxSS             = 16
	DefaultMaxUsers          = 32
	DefaultMaxClients        = 128
	DefaultCacheSize         = 256
	DefaultCacheTTL          = 30 * time.Second
)

// C holds configuration shared by the name server, storage servers, and the
// client. Not every field is meaningful to every command: the name server
// reads NS*/Replication*/Max*/Cache* fields, a storage server reads SS* and
// the checkpoint archival fields, the client reads only NSCommandAddr.
type C struct {
	// NSCommandAddr is where the name server listens for client and SS
	// registration traffic.
	NSCommandAddr string
	// NSHeartbeatAddr is the distinct port SS heartbeats are sent to.
	NSHeartbeatAddr string

	HeartbeatInterval time.Duration
	FailureTimeout    time.Duration

	ReplicationFactor int
	MaxStorageServers int
	MaxUsers          int
	MaxClients        int

	CacheSize int
	CacheTTL  time.Duration

	// WorkerPoolSize bounds the name server's acceptor->worker handoff,
	// see internal/worker.
	WorkerPoolSize int
	// TaskQueueSize bounds the FIFO of accepted-but-not-yet-served tasks.
	TaskQueueSize int

	// SS fields: meaningless to the name server.
	StorageServerID      string
	SSClientAddr         string
	SSNMAddr             string
	DataDirectory        string

	// S3 archival tier (optional, see internal/checkpoint). With
	// ArchiveCheckpoints set, the storage server pairs its live content
	// store with S3; checkpoints and the undo slot stay on local disk only.
	S3Region    string
	S3Bucket    string
	S3Profile   string
	ArchiveCheckpoints bool

	// GopsEnabled is parsed from the gops key but not read by either
	// server: both start the gops diagnostics agent unconditionally.
	GopsEnabled bool

	base string
}

// Load loads the configuration from the file called "config" in the given
// base directory. A missing file is not an error: defaults are used and the
// base directory is still recorded, matching the teacher's tolerance for
// a freshly-initialized base directory.
func Load(base string) (*C, error) {
	filename := filepath.Join(base, "config")
	f, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			c := defaults()
			c.base = base
			return c, nil
		}
		return nil, errorf("Load", "%q: %w", filename, err)
	}
	defer func() {
		_ = f.Close()
	}()
	if fi, err := f.Stat(); err == nil && fi.Mode()&0077 != 0 {
		return nil, errorf("Load", "%q: mode is %#o, want at most %#o",
			filename, fi.Mode()&0777, 0700)
	}
	c, err := load(f)
	if err != nil {
		return nil, err
	}
	c.base = base
	if c.DataDirectory != "" && !filepath.IsAbs(c.DataDirectory) {
		c.DataDirectory = filepath.Clean(filepath.Join(base, c.DataDirectory))
	}
	return c, nil
}

func defaults() *C {
	return &C{
		NSCommandAddr:     DefaultNSCommandAddr,
		NSHeartbeatAddr:   DefaultNSHeartbeatAddr,
		HeartbeatInterval: DefaultHeartbeatInterval,
		FailureTimeout:    3 * DefaultHeartbeatInterval,
		ReplicationFactor: DefaultReplicationFactor,
		MaxStorageServers: DefaultMaxSS,
		MaxUsers:          DefaultMaxUsers,
		MaxClients:        DefaultMaxClients,
		CacheSize:         DefaultCacheSize,
		CacheTTL:          DefaultCacheTTL,
		WorkerPoolSize:    8,
		TaskQueueSize:     64,
	}
}

func load(f io.Reader) (*C, error) {
	c := defaults()
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		i := strings.IndexAny(line, " \t")
		if i == -1 {
			return nil, errorf("load", "no separator in %q", line)
		}
		key, val := line[:i], strings.TrimSpace(line[i:])
		if err := c.set(key, val); err != nil {
			return nil, err
		}
	}
	if err := s.Err(); err != nil {
		return nil, errorf("load", "%w", err)
	}
	return c, nil
}

func (c *C) set(key, val string) error {
	switch key {
	case "ns-command-addr":
		c.NSCommandAddr = val
	case "ns-heartbeat-addr":
		c.NSHeartbeatAddr = val
	case "heartbeat-interval":
		d, err := time.ParseDuration(val)
		if err != nil {
			return errorf("set", "heartbeat-interval: %w", err)
		}
		c.HeartbeatInterval = d
		c.FailureTimeout = 3 * d
	case "replication-factor":
		n, err := strconv.Atoi(val)
		if err != nil {
			return errorf("set", "replication-factor: %w", err)
		}
		c.ReplicationFactor = n
	case "max-storage-servers":
		n, err := strconv.Atoi(val)
		if err != nil {
			return errorf("set", "max-storage-servers: %w", err)
		}
		c.MaxStorageServers = n
	case "max-users":
		n, err := strconv.Atoi(val)
		if err != nil {
			return errorf("set", "max-users: %w", err)
		}
		c.MaxUsers = n
	case "max-clients":
		n, err := strconv.Atoi(val)
		if err != nil {
			return errorf("set", "max-clients: %w", err)
		}
		c.MaxClients = n
	case "cache-size":
		n, err := strconv.Atoi(val)
		if err != nil {
			return errorf("set", "cache-size: %w", err)
		}
		c.CacheSize = n
	case "cache-ttl":
		d, err := time.ParseDuration(val)
		if err != nil {
			return errorf("set", "cache-ttl: %w", err)
		}
		c.CacheTTL = d
	case "worker-pool-size":
		n, err := strconv.Atoi(val)
		if err != nil {
			return errorf("set", "worker-pool-size: %w", err)
		}
		c.WorkerPoolSize = n
	case "task-queue-size":
		n, err := strconv.Atoi(val)
		if err != nil {
			return errorf("set", "task-queue-size: %w", err)
		}
		c.TaskQueueSize = n
	case "ss-id":
		c.StorageServerID = val
	case "ss-client-addr":
		c.SSClientAddr = val
	case "ss-nm-addr":
		c.SSNMAddr = val
	case "data-directory":
		c.DataDirectory = val
	case "s3-region":
		c.S3Region = val
	case "s3-bucket":
		c.S3Bucket = val
	case "s3-profile":
		c.S3Profile = val
	case "archive-checkpoints":
		c.ArchiveCheckpoints = val == "true"
	case "gops":
		c.GopsEnabled = val == "true"
	default:
		return errorf("set", "unknown key %q", key)
	}
	return nil
}

// DataDirectoryPath returns the SS's file store root, defaulting to
// base/data/<ss-id> when unset.
func (c *C) DataDirectoryPath() string {
	if c.DataDirectory != "" {
		return c.DataDirectory
	}
	return filepath.Join(c.base, "data", c.StorageServerID)
}

// SnapshotPath returns the name server's directory snapshot file path, see
// the Trie persistence format.
func (c *C) SnapshotPath() string {
	return filepath.Join(c.base, "nm_data", "trie.dat")
}

// PropagationLogFilePath is where the checkpoint archival tier logs keys
// still to be copied from the fast (disk) store to the slow (S3) store,
// exactly as storage.Paired does for muscle's block store.
func (c *C) PropagationLogFilePath() string {
	return filepath.Join(c.base, "propagation.log")
}

// Initialize generates an initial configuration at the given directory.
func Initialize(baseDir string, isStorageServer bool) error {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return errorf("Initialize", "%q: could not mkdir: %w", baseDir, err)
	}
	path := filepath.Join(baseDir, "config")
	if _, err := os.Stat(path); err == nil {
		return errorf("Initialize", "%q: already exists", path)
	} else if !os.IsNotExist(err) {
		return errorf("Initialize", "%q: could not determine if it exists: %w", path, err)
	}

	var buf bytes.Buffer
	buf.WriteString("ns-command-addr " + DefaultNSCommandAddr + "\n")
	buf.WriteString("ns-heartbeat-addr " + DefaultNSHeartbeatAddr + "\n")
	if isStorageServer {
		port := 49152 + mathrand.Intn(65535-49152)
		fmt.Fprintf(&buf, "ss-id ss%d\n", port%1000)
		fmt.Fprintf(&buf, "ss-client-addr 127.0.0.1:%d\n", port)
		fmt.Fprintf(&buf, "ss-nm-addr 127.0.0.1:%d\n", port+1)
		buf.WriteString("data-directory data\n")
	}
	if err := ioutil.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return errorf("Initialize", "%q: %w", path, err)
	}
	return nil
}
