package storageserver

import (
	"strconv"

	"github.com/nicolagi/dirtydocs/internal/document"
)

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, document.ErrInvalidSentenceIndex
	}
	return n, nil
}
