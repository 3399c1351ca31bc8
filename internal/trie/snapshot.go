package trie

import (
	"bufio"
	"encoding/binary"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

const magic = "NMTRIE02"

const (
	markerFile = 'F'
	markerEnd  = 'E'
)

// Save serializes the whole directory to the snapshot path under a single
// lock, per §4.1's "caller serializes all writes under a single directory
// lock". It writes to a temporary file and renames it into place, the
// atomic-replace upgrade the spec permits over a plain rewrite.
func (t *Trie) Save() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.save()
}

func (t *Trie) save() error {
	if t.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0700); err != nil {
		return errorf("save", "mkdir: %w", err)
	}
	tmp, err := ioutil.TempFile(filepath.Dir(t.path), "trie.*.tmp")
	if err != nil {
		return errorf("save", "tempfile: %w", err)
	}
	w := bufio.NewWriter(tmp)
	if _, err := w.WriteString(magic); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return errorf("save", "magic: %w", err)
	}
	for _, n := range t.nodes {
		if n.deleted {
			continue
		}
		if err := writeRecord(w, n); err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
			return errorf("save", "record %q: %w", n.Name, err)
		}
	}
	if err := w.WriteByte(markerEnd); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return errorf("save", "end marker: %w", err)
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return errorf("save", "flush: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return errorf("save", "close: %w", err)
	}
	if err := os.Rename(tmp.Name(), t.path); err != nil {
		return errorf("save", "rename: %w", err)
	}
	return nil
}

// Load reads the snapshot at the configured path into the trie. A missing
// file leaves the trie empty without error. A file whose magic doesn't
// match is discarded and logged, and startup proceeds with an empty
// directory, per §4.1.
func (t *Trie) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errorf("Load", "%w", err)
	}
	defer func() { _ = f.Close() }()
	r := bufio.NewReader(f)
	gotMagic := make([]byte, len(magic))
	if _, err := io.ReadFull(r, gotMagic); err != nil {
		log.WithField("path", t.path).Warn("trie: could not read magic, starting empty")
		return nil
	}
	if string(gotMagic) != magic {
		log.WithFields(log.Fields{"path": t.path, "magic": string(gotMagic)}).
			Warn("trie: snapshot magic mismatch, discarding and starting empty")
		return nil
	}
	nodes := make(map[string]*Node)
	for {
		marker, err := r.ReadByte()
		if err != nil {
			return errorf("Load", "reading marker: %w", err)
		}
		if marker == markerEnd {
			break
		}
		if marker != markerFile {
			return errorf("Load", "unexpected marker %q", marker)
		}
		n, err := readRecord(r)
		if err != nil {
			return errorf("Load", "record: %w", err)
		}
		nodes[n.Name] = n
	}
	t.nodes = nodes
	return nil
}

func writeString(w *bufio.Writer, s string, isSet bool) error {
	if !isSet {
		return binary.Write(w, binary.BigEndian, int32(-1))
	}
	if err := binary.Write(w, binary.BigEndian, int32(len(s))); err != nil {
		return err
	}
	_, err := w.WriteString(s)
	return err
}

func readString(r *bufio.Reader) (string, bool, error) {
	var n int32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", false, err
	}
	if n < 0 {
		return "", false, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", false, err
	}
	return string(buf), true, nil
}

func writeRecord(w *bufio.Writer, n *Node) error {
	if err := w.WriteByte(markerFile); err != nil {
		return err
	}
	if err := writeString(w, n.Name, true); err != nil {
		return err
	}
	if err := writeString(w, n.Owner, true); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, int32(len(n.Replicas))); err != nil {
		return err
	}
	for _, r := range n.Replicas {
		if err := writeString(w, r, true); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.BigEndian, n.Size); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, n.CreationTime); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, n.LastModified); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, boolInt32(n.IsFolder)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, boolInt32(n.IsInTrash)); err != nil {
		return err
	}
	if err := writeUserSet(w, n.ReadUsers); err != nil {
		return err
	}
	return writeUserSet(w, n.WriteUsers)
}

func writeUserSet(w *bufio.Writer, users map[string]bool) error {
	if err := binary.Write(w, binary.BigEndian, int32(len(users))); err != nil {
		return err
	}
	for u := range users {
		if err := writeString(w, u, true); err != nil {
			return err
		}
	}
	return nil
}

func readRecord(r *bufio.Reader) (*Node, error) {
	name, _, err := readString(r)
	if err != nil {
		return nil, err
	}
	owner, _, err := readString(r)
	if err != nil {
		return nil, err
	}
	var replicaCount int32
	if err := binary.Read(r, binary.BigEndian, &replicaCount); err != nil {
		return nil, err
	}
	replicas := make([]string, 0, replicaCount)
	for i := int32(0); i < replicaCount; i++ {
		s, _, err := readString(r)
		if err != nil {
			return nil, err
		}
		replicas = append(replicas, s)
	}
	n := &Node{Name: name, Owner: owner, Replicas: replicas}
	if err := binary.Read(r, binary.BigEndian, &n.Size); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &n.CreationTime); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &n.LastModified); err != nil {
		return nil, err
	}
	n.LastAccess = n.LastModified
	var isFolder, isInTrash int32
	if err := binary.Read(r, binary.BigEndian, &isFolder); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &isInTrash); err != nil {
		return nil, err
	}
	n.IsFolder = isFolder != 0
	n.IsInTrash = isInTrash != 0
	if n.ReadUsers, err = readUserSet(r); err != nil {
		return nil, err
	}
	if n.WriteUsers, err = readUserSet(r); err != nil {
		return nil, err
	}
	return n, nil
}

func readUserSet(r *bufio.Reader) (map[string]bool, error) {
	var count int32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, err
	}
	users := make(map[string]bool, count)
	for i := int32(0); i < count; i++ {
		u, _, err := readString(r)
		if err != nil {
			return nil, err
		}
		users[u] = true
	}
	return users, nil
}

func boolInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
