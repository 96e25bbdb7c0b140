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

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/PressureTank/usersvc/backend/config"
	"github.com/PressureTank/usersvc/backend/database/sqlite"
	"github.com/PressureTank/usersvc/backend/user"
)

const shutdownTimeout = 5 * time.Second

func main() {
	app := &cli.App{
		Name:  "usersvc",
		Usage: "HTTP CRUD service for users backed by SQLite",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a TOML config file",
				EnvVars: []string{"USERSVC_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "listen address",
				EnvVars: []string{"USERSVC_ADDR"},
			},
			&cli.StringFlag{
				Name:    "dsn",
				Usage:   "sqlite data source name",
				EnvVars: []string{"USERSVC_DSN"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				EnvVars: []string{"USERSVC_LOG_LEVEL"},
			},
			&cli.BoolFlag{
				Name:    "dev",
				Usage:   "human readable development logging",
				EnvVars: []string{"USERSVC_DEV"},
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads the config file and applies flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if c.IsSet("addr") {
		cfg.Server.Addr = c.String("addr")
	}
	if c.IsSet("dsn") {
		cfg.Database.DSN = c.String("dsn")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("dev") {
		cfg.Log.Development = c.Bool("dev")
	}
	return cfg, cfg.Validate()
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	defer logger.Sync() // Flushes buffer, if any

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(ctx, cfg.Database.DSN, logger)
	if err != nil {
		logger.Error("Error opening database", zap.Error(err))
		return err
	}
	defer db.Close()

	n, err := db.Count(ctx)
	if err != nil {
		return err
	}
	logger.Info("Database ready", zap.String("dsn", cfg.Database.DSN), zap.Int("users", n))

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: user.NewUserHandler(db, logger).Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("Server is running on http://localhost" + cfg.Server.Addr)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Error starting server", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
