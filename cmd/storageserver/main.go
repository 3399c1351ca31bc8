package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/gops/agent"
	log "github.com/sirupsen/logrus"

	"github.com/nicolagi/dirtydocs/internal/checkpoint"
	"github.com/nicolagi/dirtydocs/internal/config"
	"github.com/nicolagi/dirtydocs/internal/storageserver"
)

func main() {
	if err := agent.Listen(agent.Options{}); err != nil {
		log.WithError(err).Warn("could not start gops agent")
	}

	base := flag.String("base", config.DefaultBaseDirectoryPath, "base directory for configuration and data")
	debug := flag.Bool("D", false, "enable debug logging")
	flag.Parse()
	if *debug {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := config.Load(*base)
	if err != nil {
		log.WithError(err).Fatal("could not load configuration")
	}
	if cfg.StorageServerID == "" || cfg.SSClientAddr == "" || cfg.SSNMAddr == "" {
		log.Fatal("config is missing ss-id, ss-client-addr or ss-nm-addr; run with a base directory initialized for a storage server")
	}

	dataDir := cfg.DataDirectoryPath()

	content := checkpoint.Store(checkpoint.NewDiskStore(filepath.Join(dataDir, "content")))
	undo := checkpoint.Store(checkpoint.NewDiskStore(filepath.Join(dataDir, "undo")))
	checkpoints := checkpoint.Enumerable(checkpoint.NewDiskStore(filepath.Join(dataDir, "checkpoints")))

	if cfg.ArchiveCheckpoints {
		slow, err := checkpoint.NewS3Store(cfg.S3Region, cfg.S3Profile, cfg.S3Bucket)
		if err != nil {
			log.WithError(err).Fatal("could not open S3 archival store")
		}
		paired, err := checkpoint.NewPaired(checkpoint.NewDiskStore(filepath.Join(dataDir, "content")), slow, cfg.PropagationLogFilePath())
		if err != nil {
			log.WithError(err).Fatal("could not open paired content store")
		}
		content = paired
		log.WithFields(log.Fields{
			"region": cfg.S3Region,
			"bucket": cfg.S3Bucket,
		}).Info("content archival to S3 enabled")
	}

	srv := storageserver.New(cfg.StorageServerID, cfg.NSHeartbeatAddr, content, checkpoints, undo)

	recovery, err := srv.Register(cfg.SSClientAddr, cfg.SSNMAddr)
	if err != nil {
		log.WithError(err).Fatal("could not register with name server")
	}
	if recovery {
		log.Info("name server treated this registration as a recovery; replicas will be resynchronized")
	}

	clientLn, err := net.Listen("tcp", cfg.SSClientAddr)
	if err != nil {
		log.WithError(err).Fatal("could not listen on client address")
	}
	nmLn, err := net.Listen("tcp", cfg.SSNMAddr)
	if err != nil {
		log.WithError(err).Fatal("could not listen on nm address")
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		if err := srv.ServeClients(ctx, clientLn, cfg.WorkerPoolSize, cfg.TaskQueueSize); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("client listener stopped")
		}
	}()
	go func() {
		if err := srv.ServeNM(ctx, nmLn, cfg.WorkerPoolSize, cfg.TaskQueueSize); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("nm listener stopped")
		}
	}()
	go srv.EmitHeartbeats(ctx, cfg.HeartbeatInterval)

	log.WithFields(log.Fields{
		"ss-id":       cfg.StorageServerID,
		"client-addr": cfg.SSClientAddr,
		"nm-addr":     cfg.SSNMAddr,
		"data-dir":    dataDir,
	}).Info("storage server ready")

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigc
	log.WithField("signal", sig).Info("shutting down")
	cancel()
	clientLn.Close()
	nmLn.Close()
	agent.Close()
}
