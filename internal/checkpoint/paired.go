package checkpoint

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Propagation log item states, one leading byte per line.
const (
	itemPending = 'p'
	itemDone    = 'd'
)

// propagationLog is a durable queue of keys pending archival to the slow
// store. Unlike a content-addressed store where every key is a
// fixed-width hash, checkpoint keys are "<name>/<tag>" and vary in
// length, so each line carries its own length prefix rather than relying
// on a fixed record size.
type propagationLog struct {
	mu   sync.Mutex
	file *os.File

	notify chan struct{}
	pendingMu sync.Mutex
	pending   []Key
}

// newLog reads the log at pathname (creating it if necessary), compacts
// away done entries, and leaves the file positioned for further appends.
func newLog(pathname string) (*propagationLog, error) {
	const method = "newLog"
	curr, err := os.OpenFile(pathname, os.O_RDONLY|os.O_CREATE, 0666)
	if err != nil {
		return nil, errorf(method, "open %q read-only: %v", pathname, err)
	}
	var pending []Key
	s := bufio.NewScanner(curr)
	for s.Scan() {
		state, key, err := decodeLine(s.Text())
		if err != nil {
			return nil, errorf(method, "decode line: %v", err)
		}
		if state == itemPending {
			pending = append(pending, key)
		}
	}
	if err := s.Err(); err != nil {
		return nil, errorf(method, "scan %q: %v", pathname, err)
	}
	if err := curr.Close(); err != nil {
		return nil, errorf(method, "close %q: %v", pathname, err)
	}

	next, err := os.OpenFile(pathname+".new", os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return nil, errorf(method, "open %q write-only: %v", pathname+".new", err)
	}
	for _, k := range pending {
		if _, err := fmt.Fprintln(next, encodeLine(itemPending, k)); err != nil {
			return nil, errorf(method, "compact: %v", err)
		}
	}
	if err := next.Close(); err != nil {
		return nil, errorf(method, "close %q: %v", next.Name(), err)
	}
	if err := os.Rename(next.Name(), pathname); err != nil {
		return nil, errorf(method, "rename %q to %q: %v", next.Name(), pathname, err)
	}

	curr, err = os.OpenFile(pathname, os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, errorf(method, "reopen %q read-write: %v", pathname, err)
	}
	return &propagationLog{
		file:    curr,
		notify:  make(chan struct{}, 1),
		pending: pending,
	}, nil
}

func encodeLine(state byte, k Key) string {
	return fmt.Sprintf("%c%d %s", state, len(k), k)
}

func decodeLine(line string) (byte, Key, error) {
	if len(line) == 0 {
		return 0, "", errors.New("empty line")
	}
	state := line[0]
	rest := line[1:]
	sp := strings.IndexByte(rest, ' ')
	if sp < 0 {
		return 0, "", fmt.Errorf("malformed line %q", line)
	}
	n, err := strconv.Atoi(rest[:sp])
	if err != nil {
		return 0, "", fmt.Errorf("malformed length in %q: %v", line, err)
	}
	key := rest[sp+1:]
	if len(key) != n {
		return 0, "", fmt.Errorf("length mismatch in %q", line)
	}
	return state, Key(key), nil
}

// add appends a pending entry and wakes up the propagation loop.
func (pl *propagationLog) add(key Key) error {
	pl.mu.Lock()
	_, err := fmt.Fprintln(pl.file, encodeLine(itemPending, key))
	pl.mu.Unlock()
	if err != nil {
		return err
	}
	pl.pendingMu.Lock()
	pl.pending = append(pl.pending, key)
	pl.pendingMu.Unlock()
	select {
	case pl.notify <- struct{}{}:
	default:
	}
	return nil
}

// next blocks until at least one pending key is available, then returns
// and removes it from the in-memory queue. The on-disk record is left as
// pending; a future compaction (on process restart) will re-propagate it
// if it was never marked done, which is safe since propagation is
// idempotent.
func (pl *propagationLog) next() Key {
	for {
		pl.pendingMu.Lock()
		if len(pl.pending) > 0 {
			k := pl.pending[0]
			pl.pending = pl.pending[1:]
			pl.pendingMu.Unlock()
			return k
		}
		pl.pendingMu.Unlock()
		<-pl.notify
	}
}

// markDone appends a done record, used once a key has reached the slow
// store so a restart does not propagate it again.
func (pl *propagationLog) markDone(key Key) error {
	pl.mu.Lock()
	_, err := fmt.Fprintln(pl.file, encodeLine(itemDone, key))
	pl.mu.Unlock()
	return err
}

func (pl *propagationLog) close() {
	pl.mu.Lock()
	_ = pl.file.Close()
	pl.file = nil
	pl.mu.Unlock()
}

// ErrReadOnly is returned by Paired.Put when it was built without a log
// path, making it a read-only front for the slow store.
var ErrReadOnly = errors.New("checkpoint: read-only store")

// Paired provides a fast local store backed by durable, slower archival
// storage. Writes land on the fast store immediately and are queued for
// asynchronous propagation to the slow store; reads prefer the fast store
// and fall back to the slow store, repopulating the fast store on the way.
type Paired struct {
	retryInterval time.Duration

	fast Store
	slow Store

	once sync.Once
	log  *propagationLog
}

// NewPaired builds a Paired store. If logPath is empty the store is
// read-only: Put always fails, since there is nowhere durable to record
// the pending propagation.
func NewPaired(fast, slow Store, logPath string) (*Paired, error) {
	p := &Paired{retryInterval: 5 * time.Second, fast: fast, slow: slow}
	if logPath != "" {
		var err error
		p.log, err = newLog(logPath)
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Paired) Get(k Key) (Value, error) {
	v, err := p.fast.Get(k)
	if errors.Is(err, ErrNotFound) {
		v, err = p.slow.Get(k)
		if err == nil {
			if e := p.fast.Put(k, v); e != nil {
				log.WithFields(log.Fields{"key": k, "cause": e.Error()}).
					Warn("checkpoint: could not repopulate fast store")
			}
		}
	}
	return v, err
}

func (p *Paired) Put(k Key, v Value) error {
	if p.log == nil {
		return ErrReadOnly
	}
	p.ensureBackgroundPropagation()
	if err := p.fast.Put(k, v); err != nil {
		return err
	}
	return p.log.add(k)
}

// Delete removes from the slow store first, then the fast store, so a
// concurrent Get can never repopulate the fast store from a slow store
// entry that is about to vanish.
func (p *Paired) Delete(k Key) error {
	if err := p.slow.Delete(k); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return p.fast.Delete(k)
}

func (p *Paired) ensureBackgroundPropagation() {
	p.once.Do(func() {
		if p.log != nil {
			go p.propagate()
		}
	})
}

func (p *Paired) propagate() {
	sem := make(chan struct{}, 16)
	up1 := func(key Key) {
		defer func() { <-sem }()
		value, err := p.fast.Get(key)
		if err != nil {
			log.WithFields(log.Fields{"key": key, "cause": err.Error()}).
				Warn("checkpoint: pending key vanished from fast store before propagation")
			return
		}
		for {
			if err = p.slow.Put(key, value); err == nil {
				break
			}
			log.WithFields(log.Fields{"key": key, "cause": err.Error()}).
				Warn("checkpoint: failed to archive to slow store, will retry")
			time.Sleep(p.retryInterval)
		}
		if err := p.log.markDone(key); err != nil {
			log.WithFields(log.Fields{"key": key, "cause": err.Error()}).
				Warn("checkpoint: could not mark key done in propagation log")
		}
	}
	for {
		k := p.log.next()
		sem <- struct{}{}
		go up1(k)
	}
}
