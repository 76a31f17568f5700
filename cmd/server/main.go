// Command server runs the messaging service: REST account endpoints, the
// WebSocket conversation gateway and the background workers.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"pairchat/api"
	"pairchat/auth"
	"pairchat/domain/event"
	"pairchat/internal"
	"pairchat/moderation"
	"pairchat/projection"
	"pairchat/repositories"
	"pairchat/runtime"
	"pairchat/runtime/workers"
	"pairchat/search"
	"pairchat/services"
	"pairchat/ws"
)

const (
	exitOK = iota
	exitConfig
	exitRuntime
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(code)
}

func run() (int, error) {
	_ = godotenv.Load()
	cfg, err := internal.LoadConfig()
	if err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	appCtx, cancelApp := context.WithCancel(ctx)
	defer cancelApp()

	db, err := badger.Open(badger.DefaultOptions(cfg.BadgerPath).WithLogger(nil))
	if err != nil {
		return exitRuntime, fmt.Errorf("open badger at %s: %w", cfg.BadgerPath, err)
	}
	defer func() { _ = db.Close() }()

	messages, err := repositories.NewMessageRepository(db, cfg.HistoryLimit)
	if err != nil {
		return exitRuntime, err
	}
	defer func() { _ = messages.Close() }()
	users, err := repositories.NewUserRepository(db)
	if err != nil {
		return exitRuntime, err
	}
	defer func() { _ = users.Close() }()

	var searchIndex runtime.SearchIndex
	if cfg.BlugePath != "" {
		index, err := search.Open(cfg.BlugePath)
		if err != nil {
			return exitRuntime, err
		}
		defer func() { _ = index.Close() }()
		searchIndex = index
	} else {
		log.Info("full-text search disabled")
	}

	var moderator runtime.Moderator
	if cfg.ModerationEnabled {
		words, err := moderation.LoadWordLists()
		if err != nil {
			return exitRuntime, err
		}
		mod, err := moderation.NewModerator(log, words, cfg.ReplacementRune())
		if err != nil {
			return exitRuntime, err
		}
		moderator = mod
		log.Info("moderation enabled", "words", len(words))
	}

	registry := runtime.NewSessionRegistry(log)
	resolver := services.NewIdentityService(users)
	events := make(chan event.DomainEvent, cfg.EventBuffer)
	router := runtime.NewRouter(log, resolver, messages, registry, events, cfg.HistoryLimit, moderator, searchIndex)
	timeline := projection.NewTimeline(cfg.TimelineSize)

	tokens := auth.NewTokenManager([]byte(cfg.JWTSecret), cfg.TokenIssuer, cfg.TokenTTL)
	authService := services.NewAuthService(log, users, tokens)

	supervisor := workers.NewSupervisor(log, cfg.RestartInterval)
	supervisor.Add(
		workers.NewEventFanout(log, registry, events, cfg.SinkTimeout, timeline),
		workers.NewTelemetry(log, cfg.TelemetryInterval),
	)
	if cfg.DebugPort > 0 {
		supervisor.Add(internal.NewDebugServer(log, db, timeline, cfg.DebugAddr()))
	}
	supervisorDone := make(chan struct{})
	go func() {
		supervisor.Run(appCtx)
		close(supervisorDone)
	}()

	routes := api.NewHandler(log, authService, resolver, tokens).Routes()
	routes.Handle("/ws", ws.NewGateway(log, router, registry, tokens, resolver, cfg.SessionBuffer))

	server := &http.Server{Addr: cfg.Addr(), Handler: routes}
	serverErr := make(chan error, 1)
	go func() { serverErr <- server.ListenAndServe() }()
	log.Info("server listening", "addr", cfg.Addr())

	var runErr error
	select {
	case <-appCtx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
		cancelApp()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err)
	}
	cancelApp()
	<-supervisorDone

	if runErr != nil {
		return exitRuntime, runErr
	}
	log.Info("server stopped")
	return exitOK, nil
}
