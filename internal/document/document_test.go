package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRenderRoundTrip(t *testing.T) {
	content := "Hello world. Second sentence!"
	sentences := Parse(content)
	require.Len(t, sentences, 2)
	assert.Equal(t, []string{"Hello", "world"}, sentences[0].Words)
	assert.Equal(t, byte('.'), sentences[0].Terminator)
	assert.Equal(t, content, Render(sentences))
}

func TestParseEmptyContent(t *testing.T) {
	assert.Empty(t, Parse(""))
}

func TestParseDiscardsUnterminatedTrailer(t *testing.T) {
	sentences := Parse("Hello world. trailing junk")
	require.Len(t, sentences, 1)
}

func TestStats(t *testing.T) {
	sentences := Parse("Hello world.")
	words, chars := Stats(sentences)
	assert.Equal(t, 2, words)
	assert.Equal(t, len("Hello world."), chars)
}

func TestSetWordReplace(t *testing.T) {
	s := Sentence{Words: []string{"Hello", "world"}, Terminator: '.'}
	require.NoError(t, s.SetWord(2, "there"))
	assert.Equal(t, []string{"Hello", "there"}, s.Words)
}

func TestSetWordReplaceExpandsInPlace(t *testing.T) {
	s := Sentence{Words: []string{"Hello", "world"}, Terminator: '.'}
	require.NoError(t, s.SetWord(2, "big wide world"))
	assert.Equal(t, []string{"Hello", "big", "wide", "world"}, s.Words)
}

func TestSetWordAppend(t *testing.T) {
	s := Sentence{Words: []string{"Hello", "world"}, Terminator: '.'}
	require.NoError(t, s.SetWord(3, "today"))
	assert.Equal(t, []string{"Hello", "world", "today"}, s.Words)
}

func TestSetWordInvalidIndex(t *testing.T) {
	s := Sentence{Words: []string{"Hello", "world"}, Terminator: '.'}
	assert.ErrorIs(t, s.SetWord(0, "x"), ErrInvalidWordIndex)
	assert.ErrorIs(t, s.SetWord(4, "x"), ErrInvalidWordIndex)
}
