package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ward/internal/api"
	"ward/internal/config"
	"ward/internal/daemon"
	"ward/internal/logging"
	"ward/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	configPath := ""
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		LogDir:   cfg.Paths.LogDir,
		FileName: "wardd.log",
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open store failed", logging.Error(err))
		os.Exit(1)
	}

	runner, err := buildRunner(cfg, st, logger)
	if err != nil {
		logger.Error("assemble pipeline failed", logging.Error(err))
		_ = st.Close()
		os.Exit(1)
	}

	server, err := api.NewServer(cfg, runner, st, logger)
	if err != nil {
		logger.Error("build api server failed", logging.Error(err))
		_ = st.Close()
		os.Exit(1)
	}

	d, err := daemon.New(cfg, st, runner, server, logger)
	if err != nil {
		logger.Error("create daemon failed", logging.Error(err))
		_ = st.Close()
		os.Exit(1)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start failed", logging.Error(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("wardd shutting down")
}
