package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/library-service/cmd/api/config"
	"github.com/library-service/cmd/api/database"
	libraryhttp "github.com/library-service/cmd/api/http"
	"github.com/library-service/cmd/api/inmemory"
	"github.com/library-service/cmd/api/library"
	"github.com/library-service/cmd/api/notifications"
)

func main() {
	err := run()
	if err != nil {
		slog.Error("library service stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	repo, closeRepo, err := openRepository(cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	service := library.NewService(repo, library.WithLogger(logger))

	handlerOpts := []libraryhttp.HandlerOption{libraryhttp.WithLogger(logger)}
	if cfg.Notifications.Enabled {
		ntfy := notifications.NewNtfy(true, cfg.Notifications.Timeout, cfg.Notifications.BaseURL, &http.Client{})
		handlerOpts = append(handlerOpts, libraryhttp.WithNotifier(ntfy))
	}
	handler := libraryhttp.NewHandler(service, handlerOpts...)

	//create and init http server:
	server := libraryhttp.NewServer(libraryhttp.ServerConfig{
		Port:           cfg.HTTP.Port,
		RequestTimeout: cfg.HTTP.RequestTimeout,
	}, handler)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", server.Addr, "store", cfg.Store)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("unexpected http server error: %w", err)
		}
		close(serverErr)
	}()

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sc:
	case err := <-serverErr:
		return err
	}

	ctx, shutdownRelease := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownRelease()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP shutdown error: %w", err)
	}
	logger.Info("graceful shutdown complete")
	return nil
}

/* Builds the configured store. The returned func releases it. */
func openRepository(cfg config.Config, logger *slog.Logger) (library.Repository, func(), error) {
	if cfg.Store == config.StoreInMemory {
		store, err := inmemory.NewInMemoryStore()
		if err != nil {
			return nil, nil, fmt.Errorf("creating in-memory store: %w", err)
		}
		return store, func() {}, nil
	}

	pool := database.DefaultPoolConfig()
	pool.MaxOpenConns = cfg.Database.MaxOpenConns

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := database.ConnectDb(ctx, cfg.Database.Driver, cfg.Database.URL, pool)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting with db: %w", err)
	}

	//apply migrations:
	store := database.NewStore(db, database.WithLogger(logger))
	err = database.MigrationUp(store, cfg.Database.MigrationsPath)
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrating: %w", err)
	}

	return store, func() { _ = db.Close() }, nil
}
