package trie

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrExists        = errors.New("already exists")
	ErrNotEmpty      = errors.New("destination exists")
	ErrNotAuthorized = errors.New("not authorized")
	ErrIsFolder      = errors.New("is a folder")
	ErrACLFull       = errors.New("acl full")
	ErrBadSnapshot   = errors.New("bad snapshot magic")
)

func errorf(typeMethod, format string, a ...interface{}) error {
	return fmt.Errorf("github.com/nicolagi/dirtydocs/internal/trie."+typeMethod+": "+format, a...)
}
