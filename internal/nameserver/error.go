package nameserver

import "fmt"

func errorf(typeMethod, format string, a ...interface{}) error {
	return fmt.Errorf("github.com/nicolagi/dirtydocs/internal/nameserver."+typeMethod+": "+format, a...)
}
