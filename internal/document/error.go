package document

import "errors"

// ErrInvalidWordIndex is returned by Sentence.SetWord for any index
// outside [1, len(Words)+1].
var ErrInvalidWordIndex = errors.New("document: invalid word index")

// ErrInvalidSentenceIndex is returned by callers locating a sentence by
// 1-based index outside [1, N+1].
var ErrInvalidSentenceIndex = errors.New("document: invalid sentence index")
