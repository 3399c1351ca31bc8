// Package document implements the per-file sentence-word model of §3/§4.8:
// splitting content into 1-indexed sentences terminated by '.', '!' or '?',
// and 1-indexed whitespace-separated words within a sentence.
package document
