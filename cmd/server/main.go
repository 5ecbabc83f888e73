package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pairprog/internal/api"
	"pairprog/internal/config"
	"pairprog/internal/events"
	"pairprog/internal/jobs"
	"pairprog/internal/rooms"
	"pairprog/internal/routers"
	"pairprog/internal/session"
	"pairprog/internal/utils"
)

const shutdownTimeout = 30 * time.Second

var (
	listenAndServe = func(srv *http.Server) error { return srv.ListenAndServe() }
	exitFunc       = func(err error) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		exitFunc(err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := utils.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	registry := rooms.NewRegistry()
	hub := session.NewHub(registry, logger.Named("hub"))

	var publisher events.Publisher = events.NopPublisher{}
	var presence api.Pinger
	if cfg.RedisAddr != "" {
		rp := events.NewRedisPublisher(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}), cfg.PresenceChannel)
		defer rp.Close()
		if err := rp.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, presence events will fail until it recovers", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		publisher, presence = rp, rp
		logger.Info("presence events enabled", zap.String("channel", cfg.PresenceChannel), zap.String("instance_id", rp.InstanceID()))
	}

	dispatcher := session.NewDispatcher(registry, hub, publisher, session.DispatcherOptions{
		MessagesPerSecond: cfg.MessagesPerSecond,
		MessageBurst:      cfg.MessageBurst,
	}, logger.Named("dispatcher"))

	handlers := api.NewHandlers(registry, hub, dispatcher, presence, api.Options{
		MaxRoomSize:    cfg.MaxRoomSize,
		AllowedOrigins: cfg.AllowedOrigins,
		Client: session.ClientOptions{
			ReadLimit:    cfg.MaxMessageBytes,
			PongWait:     cfg.ReadTimeout,
			PingInterval: cfg.HeartbeatInterval,
		},
	}, logger.Named("api"))

	reporter := jobs.NewStatsReporter(registry, hub, cfg.StatsSchedule, logger.Named("stats"))
	if err := reporter.Start(); err != nil {
		return err
	}
	defer reporter.Stop()

	sessionCtx, cancelSessions := context.WithCancel(ctx)
	defer cancelSessions()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           routers.New(handlers, cfg.AllowedOrigins, cfg.APIPrefix),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return sessionCtx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("collab service starting", zap.String("addr", server.Addr), zap.String("env", cfg.Env))
		errCh <- listenAndServe(server)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("collab service shutting down")
	hub.CloseAll(session.CloseGoingAway, "Server shutting down")
	cancelSessions()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("collab service exited")
	return nil
}
