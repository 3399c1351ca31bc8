package storageserver

import (
	"context"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nicolagi/dirtydocs/internal/checkpoint"
	"github.com/nicolagi/dirtydocs/internal/wire"
	"github.com/nicolagi/dirtydocs/internal/worker"
)

// handleNMTask dispatches one NM-facing connection: replica lifecycle and
// replication commands issued by the name server over the NM port, §6.1.
func (s *Server) handleNMTask(ctx context.Context, task worker.Task) {
	defer task.Conn.Close()
	fields := wire.Fields(task.FirstLine)
	if len(fields) == 0 {
		wire.WriteLine(task.Conn, wire.ErrUnknownCmd)
		return
	}
	switch fields[0] {
	case wire.NMCreate:
		s.handleNMCreate(task, fields)
	case wire.NMDelete:
		s.handleNMDelete(task, fields)
	case wire.NMCreateFolder:
		s.handleNMCreateFolder(task, fields)
	case wire.NMMove:
		s.handleNMMove(task, fields)
	case wire.NMCheckLocks:
		s.handleNMCheckLocks(task, fields)
	case wire.NMGetSize:
		s.handleNMGetSize(task, fields)
	case wire.NMGetStats:
		s.handleNMGetStats(task, fields)
	case wire.NMWriteContent:
		s.handleNMWriteContent(task, fields)
	case wire.VerbShutdown:
		s.handleShutdown(task)
	default:
		wire.WriteLine(task.Conn, wire.ErrUnknownCmd)
	}
}

// handleShutdown implements the NS-initiated shutdown of §5: acknowledge,
// then exit the process.
func (s *Server) handleShutdown(task worker.Task) {
	wire.WriteLine(task.Conn, wire.AckShutdown)
	log.WithField("ss", s.ID).Info("shutting down on request from name server")
	os.Exit(0)
}

func (s *Server) handleNMCreate(task worker.Task, fields []string) {
	if len(fields) != 2 {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	if err := s.content.Put(checkpoint.Key(fields[1]), nil); err != nil {
		wire.WriteLine(task.Conn, wire.ErrSSCreateFailed)
		return
	}
	wire.WriteLine(task.Conn, wire.Ack(wire.NMCreate))
}

// handleNMCreateFolder is a no-op on the SS's byte store: folders hold no
// content, per §3. It only exists so the replication fan-out has a
// symmetric message to send to every replica.
func (s *Server) handleNMCreateFolder(task worker.Task, fields []string) {
	if len(fields) != 2 {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	wire.WriteLine(task.Conn, wire.Ack(wire.NMCreateFolder))
}

func (s *Server) handleNMDelete(task worker.Task, fields []string) {
	if len(fields) != 2 {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	name := fields[1]
	_ = s.content.Delete(checkpoint.Key(name))
	_ = s.undo.Delete(checkpoint.Key(name))
	_ = s.checkpoints.ForEach(func(k checkpoint.Key) error {
		if strings.HasPrefix(string(k), name+"/") {
			_ = s.checkpoints.Delete(k)
		}
		return nil
	})
	wire.WriteLine(task.Conn, wire.Ack(wire.NMDelete))
}

// handleNMMove renames name's content, undo slot and checkpoints to dest,
// used when the NS's MOVE rewrites a file's name to folder/base or back.
func (s *Server) handleNMMove(task worker.Task, fields []string) {
	if len(fields) != 3 {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	src, dest := fields[1], fields[2]
	if v, err := s.content.Get(checkpoint.Key(src)); err == nil {
		if err := s.content.Put(checkpoint.Key(dest), v); err != nil {
			wire.WriteLine(task.Conn, wire.ErrSSMoveFailed)
			return
		}
		_ = s.content.Delete(checkpoint.Key(src))
	}
	if v, err := s.undo.Get(checkpoint.Key(src)); err == nil {
		_ = s.undo.Put(checkpoint.Key(dest), v)
		_ = s.undo.Delete(checkpoint.Key(src))
	}
	_ = s.checkpoints.ForEach(func(k checkpoint.Key) error {
		if tag := strings.TrimPrefix(string(k), src+"/"); tag != string(k) {
			if v, err := s.checkpoints.Get(k); err == nil {
				_ = s.checkpoints.Put(checkpoint.ForFile(dest, tag), v)
				_ = s.checkpoints.Delete(k)
			}
		}
		return nil
	})
	wire.WriteLine(task.Conn, wire.Ack(wire.NMMove))
}

func (s *Server) handleNMCheckLocks(task worker.Task, fields []string) {
	if len(fields) != 2 {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	if s.locks.HasAnyLock(fields[1]) {
		wire.WriteLine(task.Conn, wire.FileLocked)
	} else {
		wire.WriteLine(task.Conn, wire.FileUnlocked)
	}
}

func (s *Server) handleNMGetSize(task worker.Task, fields []string) {
	if len(fields) != 2 {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	sentences, err := s.readSentences(fields[1])
	if err != nil {
		wire.WriteLine(task.Conn, wire.ErrFileNotFound)
		return
	}
	wire.WriteLine(task.Conn, wire.ReplySize+" "+itoa(sizeOf(sentences)))
}

func (s *Server) handleNMGetStats(task worker.Task, fields []string) {
	if len(fields) != 2 {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	sentences, err := s.readSentences(fields[1])
	if err != nil {
		wire.WriteLine(task.Conn, wire.ErrFileNotFound)
		return
	}
	words, chars := statsOf(sentences)
	atime := itoa(int(time.Now().Unix()))
	wire.WriteLine(task.Conn, wire.ReplyStats+" "+itoa(sizeOf(sentences))+" "+itoa(words)+" "+itoa(chars)+" "+atime)
}

// handleNMWriteContent reads exactly len bytes following the command line
// and overwrites name's content, per §4.10 step (c).
func (s *Server) handleNMWriteContent(task worker.Task, fields []string) {
	if len(fields) != 3 {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	name := fields[1]
	length, err := strconv.Atoi(fields[2])
	if err != nil || length < 0 {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(task.Reader, buf); err != nil {
		wire.WriteLine(task.Conn, wire.ErrInvalidArgs)
		return
	}
	if err := s.content.Put(checkpoint.Key(name), buf); err != nil {
		wire.WriteLine(task.Conn, wire.ErrSSCreateFailed)
		return
	}
	wire.WriteLine(task.Conn, wire.AckNMWriteContent)
}
