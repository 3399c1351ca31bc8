package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"
)

// DiskStore keeps snapshots as plain files under dir, one per key, named
// after the key itself (e.g. "report.txt/before-edit" for a checkpoint,
// "report.txt" for live content or the undo slot of that file).
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{dir: dir}
}

func (s *DiskStore) Get(k Key) (Value, error) {
	b, err := os.ReadFile(s.pathFor(k))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%q: %w", k, ErrNotFound)
	}
	return b, err
}

func (s *DiskStore) Put(k Key, v Value) error {
	p := s.pathFor(k)
	pnew := p + ".new"
	err := os.WriteFile(pnew, v, 0666)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		if err = os.MkdirAll(filepath.Dir(pnew), 0777); err != nil {
			return err
		}
		err = os.WriteFile(pnew, v, 0666)
	}
	if err != nil {
		return err
	}
	return syscall.Rename(pnew, p)
}

func (s *DiskStore) Delete(k Key) error {
	err := os.Remove(s.pathFor(k))
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(ErrNotFound, "could not delete %v", k)
		}
		return err
	}
	return nil
}

func (s *DiskStore) Contains(k Key) (bool, error) {
	_, err := os.Stat(s.pathFor(k))
	if os.IsNotExist(err) {
		return false, nil
	}
	return true, err
}

// ForEach walks every key in the store, in filesystem order.
func (s *DiskStore) ForEach(cb func(Key) error) error {
	var kk []Key
	err := filepath.Walk(s.dir, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			rel, err := filepath.Rel(s.dir, p)
			if err != nil {
				return err
			}
			kk = append(kk, Key(rel))
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, k := range kk {
		if err := cb(k); err != nil {
			return err
		}
	}
	return nil
}

func (s *DiskStore) pathFor(key Key) string {
	return filepath.Join(s.dir, string(key))
}
