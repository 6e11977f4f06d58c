package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/serroba/rich-docs/internal/acl"
	"github.com/serroba/rich-docs/internal/api"
	"github.com/serroba/rich-docs/internal/collab"
	"github.com/serroba/rich-docs/internal/config"
	"github.com/serroba/rich-docs/internal/storage"
	"github.com/serroba/rich-docs/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	err = run(cfg, logger)
	if err != nil {
		logger.Error("server stopped", zap.Error(err))
	}

	_ = logger.Sync()

	if err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)

	return zcfg.Build()
}

func run(cfg config.Config, logger *zap.Logger) error {
	// Initialize stores and WebSocket hub
	store := storage.NewMemoryStore()
	hub := ws.NewHub(ws.WithLogger(logger.Named("ws")))

	var permStore acl.Store
	if cfg.AccessControl {
		permStore = acl.NewMemoryStore()
	} else {
		logger.Warn("access control disabled, every user may edit and delete every document")
	}

	// Initialize session manager
	manager := collab.NewManager(collab.ManagerConfig{
		Store:          store,
		PermStore:      permStore,
		Hub:            hub,
		SnapshotPolicy: storage.NewSnapshotPolicy(cfg.SnapshotThreshold),
		HistorySize:    cfg.HistorySize,
		UndoDepth:      cfg.UndoDepth,
		Logger:         logger.Named("collab"),
	})

	// Initialize API server
	server := api.NewServer(api.ServerConfig{
		Manager:   manager,
		Store:     store,
		PermStore: permStore,
		Hub:       hub,
		Logger:    logger.Named("api"),
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)

	go func() {
		logger.Info("starting server", zap.String("addr", cfg.Addr))

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdownErr := httpServer.Shutdown(shutdownCtx)

	// Final snapshots for every open document
	return errors.Join(shutdownErr, manager.CloseAll())
}
