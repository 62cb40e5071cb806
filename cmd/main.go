/*
Package main is the entry point for the room relay server.

It loads configuration, initializes logging, builds the snapshot sinks, starts the
WebSocket hub and the HTTP server, and shuts everything down on SIGINT or SIGTERM.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roomrelay/internal/app/cache"
	"roomrelay/internal/app/chat"
	"roomrelay/internal/app/db"
	"roomrelay/internal/app/persist"
	"roomrelay/internal/app/storage"
	"roomrelay/internal/app/user"
	"roomrelay/internal/configs"
	"roomrelay/internal/handler"
	"roomrelay/internal/pkg/logx"
)

func main() {
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(logx.Options{
		Development: cfg.IsDevelopment(),
		Level:       cfg.LogLevel,
	})
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Str("addr", cfg.Addr()).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Strs("persist_backends", cfg.PersistBackends).
		Bool("persist_async", cfg.PersistAsync).
		Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks, err := buildSinks(ctx, cfg)
	if err != nil {
		logx.Fatal(err, "Failed to initialize persistence backends")
	}

	writer := persist.NewWriter(sinks, cfg.PersistAsync)
	if err := writer.Seed(ctx, persist.UsersSnapshot, persist.RoomsSnapshot); err != nil {
		logx.Error(err, "Failed to reset snapshots on startup")
	}

	users := user.NewRegistry()
	rooms := chat.NewManager()

	hub := chat.NewHub(users, rooms, writer)
	go hub.Run()

	router := handler.Router(ctx, &handler.AppDeps{
		Hub:    hub,
		Users:  users,
		Rooms:  rooms,
		Config: cfg,
	})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logx.Info("Room relay listening", "addr", cfg.Addr(), "static_dir", cfg.StaticDir)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	// Hijacked WebSocket connections are not tracked by Shutdown; stopping the hub closes them.
	hub.Stop()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	if err := writer.Close(); err != nil {
		logx.Error(err, "Failed to flush snapshots")
	}

	logx.Info("Server gracefully stopped.")
}

// buildSinks opens every configured snapshot backend.
func buildSinks(ctx context.Context, cfg *configs.AppConfig) ([]persist.Sink, error) {
	var sinks []persist.Sink

	closeAll := func() {
		for _, s := range sinks {
			_ = s.Close()
		}
	}

	for _, backend := range cfg.PersistBackends {
		var (
			sink persist.Sink
			err  error
		)

		switch backend {
		case configs.BackendFile:
			sink, err = persist.NewFileSink(map[string]string{
				persist.UsersSnapshot: cfg.UsersFile,
				persist.RoomsSnapshot: cfg.RoomsFile,
			})

		case configs.BackendPostgres:
			pool, poolErr := db.NewPool(ctx, cfg.DatabaseDSN)
			if poolErr != nil {
				err = poolErr
				break
			}
			sink = db.NewSnapshotSink(pool)

		case configs.BackendRedis:
			sink, err = cache.NewRedisSink(ctx, cache.Config{
				Addr:      cfg.RedisAddr,
				Password:  cfg.RedisPassword,
				DB:        cfg.RedisDB,
				KeyPrefix: cfg.RedisKeyPrefix,
			})

		case configs.BackendS3:
			sink, err = storage.NewSnapshotSink(ctx, storage.ServiceConfig{
				S3BucketName:      cfg.S3BucketName,
				S3Endpoint:        cfg.S3Endpoint,
				S3AccessKeyID:     cfg.S3AccessKeyID,
				S3SecretAccessKey: cfg.S3SecretAccessKey,
				KeyPrefix:         cfg.S3KeyPrefix,
			})

		default:
			err = fmt.Errorf("unknown persistence backend %q", backend)
		}

		if err != nil {
			closeAll()
			return nil, fmt.Errorf("backend %s: %w", backend, err)
		}

		logx.Info("Persistence backend ready", "backend", backend)
		sinks = append(sinks, sink)
	}

	return sinks, nil
}
