package textdiff

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/andreyvit/diff"
)

const bytesForBinaryFileCheck = 1 << 16

// Unified returns a unified diff between a and b, or "" if they are equal.
func Unified(a, b string, contextLines int) (string, error) {
	var buf bytes.Buffer
	if err := UnifiedTo(&buf, a, b, contextLines); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// UnifiedTo writes a unified diff of a and b to w.
func UnifiedTo(w io.Writer, a, b string, contextLines int) error {
	if a == b {
		return nil
	}
	lines := diff.LineDiffAsLines(a, b)
	if len(lines) == 0 {
		return nil
	}
	return unified(w, lines, contextLines)
}

func unified(w io.Writer, lines []string, contextLines int) error {
	var h *hunk
	common := newRingBuffer(contextLines)

	if isLikelyBinaryFile(lines) {
		_, err := fmt.Fprintln(w, "Binary content differs")
		return err
	}

	var leftOffset, rightOffset int
	for _, line := range lines {
		if line[0] == ' ' {
			if h != nil {
				h.appendCommon(line)
				if h.isComplete() {
					for _, l := range h.trim() {
						common.enqueue(l)
					}
					if err := h.printTo(w); err != nil {
						return err
					}
					h = nil
				}
			} else {
				common.enqueue(line)
			}
		} else {
			if h == nil {
				h = newHunk(leftOffset, rightOffset, common.dequeueAll(), contextLines)
			}
			if line[0] == '-' {
				h.appendLeft(line)
			} else {
				h.appendRight(line)
			}
		}
		switch line[0] {
		case '-':
			leftOffset++
		case ' ':
			leftOffset++
			rightOffset++
		case '+':
			rightOffset++
		}
	}
	if h != nil {
		h.trim()
		return h.printTo(w)
	}
	return nil
}

func isLikelyBinaryFile(lines []string) bool {
	count := 0
	for _, line := range lines {
		if strings.Contains(line, "\x00") {
			return true
		}
		count += len(line)
		if count >= bytesForBinaryFileCheck {
			break
		}
	}
	return false
}
