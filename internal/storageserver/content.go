package storageserver

import (
	"strconv"

	"github.com/nicolagi/dirtydocs/internal/checkpoint"
	"github.com/nicolagi/dirtydocs/internal/document"
)

func (s *Server) readSentences(name string) ([]document.Sentence, error) {
	v, err := s.content.Get(checkpoint.Key(name))
	if err != nil {
		return nil, err
	}
	return document.Parse(string(v)), nil
}

func (s *Server) writeSentences(name string, sentences []document.Sentence) error {
	return s.content.Put(checkpoint.Key(name), checkpoint.Value(document.Render(sentences)))
}

func statsOf(sentences []document.Sentence) (words, chars int) {
	return document.Stats(sentences)
}

func sizeOf(sentences []document.Sentence) int {
	_, chars := document.Stats(sentences)
	return chars
}

func itoa(n int) string { return strconv.Itoa(n) }
