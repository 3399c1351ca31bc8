// Package textdiff renders a unified diff between two byte blobs, for the
// docsh "diff" command comparing two checkpoints (or a checkpoint against
// live content). It is a two-string specialization of the tree-diffing
// package the rest of the corpus uses for whole-revision diffs.
package textdiff
