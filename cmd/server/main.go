package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"ideaboard-backend/domain/core/aggregates"
	"ideaboard-backend/domain/core/entities"
	"ideaboard-backend/infrastructure/config"
	adminhttp "ideaboard-backend/interfaces/http"
	"ideaboard-backend/interfaces/relay"
	"ideaboard-backend/interfaces/websocket"
	"ideaboard-backend/pkg/observability"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	logger, err := newLogger(cfg.Environment, level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := observability.NewMetrics(registry)

	store := aggregates.NewCanvas()
	relayServer := relay.NewServer(&relay.ServerConfig{
		Addr:           cfg.Relay.Addr,
		SendQueueSize:  cfg.Relay.SendQueueSize,
		WriteTimeout:   cfg.WriteTimeout(),
		MaxConnections: cfg.Relay.MaxConnections,
	}, store, newLoggingObserver(logger), metrics, logger)

	if err := relayServer.Start(); err != nil {
		return err
	}

	var wsHandler http.HandlerFunc
	if cfg.HTTP.EnableWebSocket {
		wsServer := websocket.NewServer(relayServer, nil, logger)
		wsHandler = wsServer.HandleWebSocket
	}

	router := adminhttp.NewRouter(adminhttp.RouterDeps{
		Store:     store,
		Registry:  registry,
		WebSocket: wsHandler,
		Logger:    logger,
	})
	httpServer := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("admin http listening", zap.String("addr", cfg.HTTP.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("admin http server failed", zap.Error(err))
		}
	}()

	if *configPath != "" {
		watcher, err := config.NewWatcher(*configPath, cfg, logger)
		if err != nil {
			logger.Warn("config watching disabled", zap.Error(err))
		} else {
			watcher.OnChange(func(updated *config.Config) {
				if err := level.UnmarshalText([]byte(updated.LogLevel)); err != nil {
					logger.Warn("ignoring invalid log level", zap.String("logLevel", updated.LogLevel))
				}
			})
			watcher.Start()
			defer watcher.Stop()
		}
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	logger.Info("signal caught, shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("admin http shutdown error", zap.Error(err))
	}
	return relayServer.Shutdown(shutdownCtx)
}

func newLogger(environment string, level zap.AtomicLevel) (*zap.Logger, error) {
	var zapCfg zap.Config
	if environment == "production" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = level
	return zapCfg.Build()
}

// loggingObserver records applied canvas changes and the live client
// count in the server log.
type loggingObserver struct {
	logger *zap.Logger
}

func newLoggingObserver(logger *zap.Logger) *loggingObserver {
	return &loggingObserver{logger: logger.Named("canvas")}
}

func (o *loggingObserver) OnClientCountChanged(count int) {
	o.logger.Info("client count changed", zap.Int("clients", count))
}

func (o *loggingObserver) OnNodeCreated(node entities.Node) {
	o.logger.Info("node created", zap.String("nodeID", node.ID), zap.String("createdBy", node.CreatedBy))
}

func (o *loggingObserver) OnNodeUpdated(node entities.Node) {
	o.logger.Debug("node updated", zap.String("nodeID", node.ID))
}

func (o *loggingObserver) OnNodeDeleted(nodeID string) {
	o.logger.Info("node deleted", zap.String("nodeID", nodeID))
}

func (o *loggingObserver) OnLinkCreated(link entities.Link) {
	o.logger.Info("link created", zap.String("linkID", link.ID))
}

func (o *loggingObserver) OnLinkDeleted(linkID string) {
	o.logger.Info("link deleted", zap.String("linkID", linkID))
}
