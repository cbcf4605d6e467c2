package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/transitconv/internal/config"
	"github.com/JonMunkholm/transitconv/internal/convert"
	"github.com/JonMunkholm/transitconv/internal/logging"
	"github.com/JonMunkholm/transitconv/internal/pgsink"
	"github.com/JonMunkholm/transitconv/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	envErr := godotenv.Overload()

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, flush := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.SeqURL)
	defer flush()

	if envErr != nil {
		logger.Info("no .env file found, using environment variables")
	} else {
		logger.Info("loaded .env file (overwriting existing env vars)")
	}
	logger.Info("configuration loaded", "config", cfg.String())

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		flush()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	reg, err := cfg.Registry(logger)
	if err != nil {
		return err
	}
	settings, err := cfg.ConvertSettings()
	if err != nil {
		return err
	}
	conv, err := convert.New(reg, settings, convert.WithLogger(logger))
	if err != nil {
		return err
	}

	opts := []web.Option{web.WithLogger(logger)}
	if cfg.Database.Enabled() {
		pool, err := connect(context.Background(), cfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		sink, err := pgsink.New(pool, cfg.Database.Schema, pgsink.WithLogger(logger))
		if err != nil {
			return err
		}
		opts = append(opts, web.WithSink(sink))
		logger.Info("database sink enabled", "schema", sink.Schema())
	}

	server := web.NewServer(cfg, conv, opts...)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info("shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	logger.Info("server stopped")
	return nil
}

// connect opens and verifies the connection pool.
func connect(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
