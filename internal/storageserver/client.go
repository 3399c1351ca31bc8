package storageserver

import (
	"context"
	"time"

	"github.com/nicolagi/dirtydocs/internal/checkpoint"
	"github.com/nicolagi/dirtydocs/internal/document"
	"github.com/nicolagi/dirtydocs/internal/wire"
	"github.com/nicolagi/dirtydocs/internal/worker"
)

// handleClientTask dispatches one client-facing connection, per §4.7-4.9.
// It owns the connection for the rest of its session, per §4.3.
func (s *Server) handleClientTask(ctx context.Context, task worker.Task) {
	defer task.Conn.Close()
	fields := wire.Fields(task.FirstLine)
	if len(fields) == 0 {
		wire.WriteLine(task.Conn, wire.ErrUnknownCmd)
		return
	}
	switch fields[0] {
	case wire.VerbRead:
		s.handleRead(task, fields)
	case wire.VerbStream:
		s.handleStream(task, fields)
	case wire.VerbWrite:
		s.handleWrite(task, fields)
	case wire.VerbUndo:
		s.handleUndo(task, fields)
	case wire.VerbCheckpoint:
		s.handleCheckpoint(task, fields)
	case wire.VerbViewCheckpoint:
		s.handleViewCheckpoint(task, fields)
	case wire.VerbListCheckpoints:
		s.handleListCheckpoints(task, fields)
	case wire.VerbRevert:
		s.handleRevert(task, fields)
	default:
		wire.WriteLine(task.Conn, wire.ErrUnknownCmd)
	}
}

func (s *Server) handleRead(task worker.Task, fields []string) {
	if len(fields) != 2 {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	v, err := s.content.Get(checkpoint.Key(fields[1]))
	if err != nil {
		wire.WriteLine(task.Conn, wire.ErrFileNotFound)
		return
	}
	task.Conn.Write(v)
}

// handleStream emits content one character at a time, at human-paced
// delay, never buffering the whole file on the wire, per §4.7.
func (s *Server) handleStream(task worker.Task, fields []string) {
	if len(fields) != 2 {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	v, err := s.content.Get(checkpoint.Key(fields[1]))
	if err != nil {
		wire.WriteLine(task.Conn, wire.ErrFileNotFound)
		return
	}
	for _, b := range v {
		if _, err := task.Conn.Write([]byte{b}); err != nil {
			return
		}
		time.Sleep(s.streamDelay)
	}
}

func (s *Server) handleUndo(task worker.Task, fields []string) {
	if len(fields) != 2 {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	name := fields[1]
	v, err := s.undo.Get(checkpoint.Key(name))
	if err != nil {
		wire.WriteLine(task.Conn, wire.ErrNoUndo)
		return
	}
	if err := s.content.Put(checkpoint.Key(name), v); err != nil {
		wire.WriteLine(task.Conn, wire.ErrFileNotFound)
		return
	}
	_ = s.undo.Delete(checkpoint.Key(name))
	wire.WriteLine(task.Conn, wire.AckUndoSuccess)
}

func (s *Server) handleCheckpoint(task worker.Task, fields []string) {
	if len(fields) != 3 {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	name, tag := fields[1], fields[2]
	v, err := s.content.Get(checkpoint.Key(name))
	if err != nil {
		wire.WriteLine(task.Conn, wire.ErrFileNotFound)
		return
	}
	if err := s.checkpoints.Put(checkpoint.ForFile(name, tag), v); err != nil {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	wire.WriteLine(task.Conn, wire.AckCheckpoint)
}

func (s *Server) handleViewCheckpoint(task worker.Task, fields []string) {
	if len(fields) != 3 {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	name, tag := fields[1], fields[2]
	v, err := s.checkpoints.Get(checkpoint.ForFile(name, tag))
	if err != nil {
		wire.WriteLine(task.Conn, wire.ErrNoSuchCheckpoint)
		return
	}
	task.Conn.Write(v)
}

func (s *Server) handleListCheckpoints(task worker.Task, fields []string) {
	if len(fields) != 2 {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	tags, err := checkpoint.ListTags(s.checkpoints, fields[1])
	if err != nil {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	for _, tag := range tags {
		wire.WriteLine(task.Conn, tag)
	}
}

func (s *Server) handleRevert(task worker.Task, fields []string) {
	if len(fields) != 3 {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	name, tag := fields[1], fields[2]
	snapshot, err := s.checkpoints.Get(checkpoint.ForFile(name, tag))
	if err != nil {
		wire.WriteLine(task.Conn, wire.ErrNoSuchCheckpoint)
		return
	}
	current, err := s.content.Get(checkpoint.Key(name))
	if err != nil {
		wire.WriteLine(task.Conn, wire.ErrFileNotFound)
		return
	}
	if err := s.undo.Put(checkpoint.Key(name), current); err != nil {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	if err := s.content.Put(checkpoint.Key(name), snapshot); err != nil {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	wire.WriteLine(task.Conn, wire.AckRevert)
}

// handleWrite implements the sentence-locked write session of §4.8: lock
// sentence S, enter edit mode applying word-index edits to an in-memory
// working copy, and commit on the ETIRW sentinel.
func (s *Server) handleWrite(task worker.Task, fields []string) {
	if len(fields) != 3 {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	name := fields[1]
	sentenceIdx, err := parsePositiveInt(fields[2])
	if err != nil {
		wire.WriteLine(task.Conn, wire.ErrInvalidSentence)
		return
	}

	sentences, err := s.readSentences(name)
	if err != nil {
		wire.WriteLine(task.Conn, wire.ErrFileNotFound)
		return
	}
	n := len(sentences)
	if sentenceIdx > n+1 {
		wire.WriteLine(task.Conn, wire.ErrInvalidSentence)
		return
	}

	holder := task.Conn.RemoteAddr().String()
	if err := s.locks.Lock(name, sentenceIdx, holder); err != nil {
		wire.WriteLine(task.Conn, wire.ErrSentenceLocked)
		return
	}
	committed := false
	defer func() {
		if !committed {
			s.locks.Unlock(name, sentenceIdx)
		}
	}()

	wire.WriteLine(task.Conn, wire.AckWriteLocked)

	working := document.Sentence{Terminator: '.'}
	if sentenceIdx <= n {
		working = sentences[sentenceIdx-1]
	}

	for {
		line, err := wire.ReadLine(task.Reader)
		if err != nil {
			return // connection dropped before ETIRW: discard edits, release lock (deferred).
		}
		if line == wire.WriteSentinel {
			break
		}
		parts := wire.Fields(line)
		if len(parts) < 2 {
			wire.WriteLine(task.Conn, wire.ErrInvalidWord)
			continue
		}
		wordIdx, err := parsePositiveInt(parts[0])
		if err != nil {
			wire.WriteLine(task.Conn, wire.ErrInvalidWord)
			continue
		}
		content := line[len(parts[0])+1:]
		if err := working.SetWord(wordIdx, content); err != nil {
			wire.WriteLine(task.Conn, wire.ErrInvalidWord)
			continue
		}
	}

	// Commit: snapshot pre-edit content into the undo slot, then persist.
	preEdit := document.Render(sentences)
	if sentenceIdx <= n {
		sentences[sentenceIdx-1] = working
	} else {
		sentences = append(sentences, working)
	}
	if err := s.undo.Put(checkpoint.Key(name), checkpoint.Value(preEdit)); err != nil {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	if err := s.writeSentences(name, sentences); err != nil {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	committed = true
	s.locks.Unlock(name, sentenceIdx)
	wire.WriteLine(task.Conn, wire.AckWriteSuccess)
	go s.notifyModified(name)
}
