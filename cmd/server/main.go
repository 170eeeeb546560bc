package main

import (
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/omochice/toy-room-chat/internal/config"
	"github.com/omochice/toy-room-chat/internal/logger"
	"github.com/omochice/toy-room-chat/internal/server"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L().Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	// Flags override the file and environment.
	addr := flag.String("addr", cfg.Server.ListenAddr, "Address to listen on (e.g., :3001)")
	flag.Parse()

	log := logger.Init(cfg.Logging.Logger("chat-server", version))

	srv := server.New(*addr, server.Options{
		Codec:        cfg.ProtocolCodec(),
		HistoryLimit: cfg.Server.HistoryLimit,
		Logger:       log,
	})

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	// Wait for either error or shutdown signal
	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, server.ErrServerStopped) {
			log.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case sig := <-sigChan:
		log.Info("shutting down", slog.String("signal", sig.String()))
		srv.Stop()
	}

	log.Info("server stopped")
}
