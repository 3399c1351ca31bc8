package document

import (
	"strings"
)

// terminators are the recognized sentence-ending characters.
const terminators = ".!?"

// Sentence is a 1-indexed-from-outside sequence of words, terminated by one
// of '.', '!', '?'.
type Sentence struct {
	Words      []string
	Terminator byte
}

func (s Sentence) String() string {
	return strings.Join(s.Words, " ") + string(s.Terminator)
}

// WordCount is the number of words in the sentence.
func (s Sentence) WordCount() int { return len(s.Words) }

// CharCount is the number of characters in the rendered sentence,
// including the terminator but not any inter-sentence separator.
func (s Sentence) CharCount() int {
	n := 1 // terminator
	for i, w := range s.Words {
		if i > 0 {
			n++ // space
		}
		n += len(w)
	}
	return n
}

// Parse splits content into sentences. Trailing content with no
// terminator is discarded, mirroring the invariant that a well-formed
// document's sentences are always terminated; callers that build content
// incrementally (WRITE) always produce fully-terminated sentences via
// Render.
func Parse(content string) []Sentence {
	var sentences []Sentence
	var buf strings.Builder
	for i := 0; i < len(content); i++ {
		c := content[i]
		if strings.IndexByte(terminators, c) >= 0 {
			words := strings.Fields(buf.String())
			if len(words) > 0 {
				sentences = append(sentences, Sentence{Words: words, Terminator: c})
			}
			buf.Reset()
			continue
		}
		buf.WriteByte(c)
	}
	return sentences
}

// Render joins sentences back into a document, one space between
// sentences, matching ordinary prose spacing.
func Render(sentences []Sentence) string {
	var b strings.Builder
	for i, s := range sentences {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s.String())
	}
	return b.String()
}

// Stats returns the word and character counts across the whole document,
// for the node's size/word_count/char_count fields probed by INFO and VIEW -l.
func Stats(sentences []Sentence) (words, chars int) {
	for _, s := range sentences {
		words += s.WordCount()
		chars += s.CharCount()
	}
	return
}

// SetWord applies a single word-index edit to a sentence, per §4.8 step 4.
// word index W in [1, len(Words)] replaces that word; content may itself
// contain several whitespace-separated words, which expand the sentence in
// place. W = len(Words)+1 appends. Any other W is rejected.
func (s *Sentence) SetWord(w int, content string) error {
	n := len(s.Words)
	newWords := strings.Fields(content)
	switch {
	case w >= 1 && w <= n:
		merged := make([]string, 0, n-1+len(newWords))
		merged = append(merged, s.Words[:w-1]...)
		merged = append(merged, newWords...)
		merged = append(merged, s.Words[w:]...)
		s.Words = merged
	case w == n+1:
		s.Words = append(s.Words, newWords...)
	default:
		return ErrInvalidWordIndex
	}
	return nil
}
