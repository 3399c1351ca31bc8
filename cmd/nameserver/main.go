package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/gops/agent"
	log "github.com/sirupsen/logrus"

	"github.com/nicolagi/dirtydocs/internal/cache"
	"github.com/nicolagi/dirtydocs/internal/config"
	"github.com/nicolagi/dirtydocs/internal/nameserver"
	"github.com/nicolagi/dirtydocs/internal/registry"
	"github.com/nicolagi/dirtydocs/internal/request"
	"github.com/nicolagi/dirtydocs/internal/session"
	"github.com/nicolagi/dirtydocs/internal/trie"
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

	dir := trie.New(cfg.SnapshotPath())
	if err := dir.Load(); err != nil {
		log.WithError(err).Warn("could not load directory snapshot, starting empty")
	}

	reg := registry.New(cfg.MaxStorageServers)
	sessions := session.New(cfg.MaxClients)
	requests := request.New()
	lookup := cache.New(cfg.CacheSize, cfg.CacheTTL)

	srv := nameserver.New(dir, reg, sessions, requests, lookup, nameserver.Limits{
		MaxSS:             cfg.MaxStorageServers,
		MaxClients:        cfg.MaxClients,
		MaxUsers:          cfg.MaxUsers,
		ReplicationFactor: cfg.ReplicationFactor,
	})

	ctx, cancel := context.WithCancel(context.Background())

	clientLn, err := net.Listen("tcp", cfg.NSCommandAddr)
	if err != nil {
		log.WithError(err).Fatal("could not listen on command address")
	}
	ssLn, err := net.Listen("tcp", cfg.NSHeartbeatAddr)
	if err != nil {
		log.WithError(err).Fatal("could not listen on heartbeat address")
	}

	monitor := registry.NewMonitor(reg, cfg.HeartbeatInterval, cfg.FailureTimeout)
	go monitor.Run(ctx)

	go func() {
		if err := srv.ServeClients(ctx, clientLn, cfg.WorkerPoolSize, cfg.TaskQueueSize); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("client listener stopped")
		}
	}()
	go func() {
		if err := srv.ServeSS(ctx, ssLn); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("ss listener stopped")
		}
	}()

	log.WithFields(log.Fields{
		"command-addr":   cfg.NSCommandAddr,
		"heartbeat-addr": cfg.NSHeartbeatAddr,
	}).Info("name server ready")

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigc
	log.WithField("signal", sig).Info("shutting down")
	srv.Shutdown()
	cancel()
	clientLn.Close()
	ssLn.Close()
	agent.Close()
}
