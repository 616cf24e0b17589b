package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/puzzlink/puzzlink-server/internal/app"
	"github.com/puzzlink/puzzlink-server/internal/config"
	"github.com/puzzlink/puzzlink-server/internal/log"
)

var (
	cfgFile  string
	addr     string
	dbPath   string
	logLevel string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "puzzlink-server",
		Short: "Realtime broadcast engine for collaborative puzzle rooms",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "", "HTTP listen address")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db-path", "", "SQLite database path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func runServer(ctx context.Context) error {
	bootLogger := log.New("info")

	cfg, cfgPath, err := config.Load(bootLogger, cfgFile)
	if err != nil {
		bootLogger.Error().Err(err).Str("path", cfgPath).Msg("failed to load config")
		return err
	}

	// Flags override file and env values.
	if addr != "" {
		cfg.Addr = addr
	}
	if dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger := log.New(cfg.LogLevel)

	application, err := app.New(&cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize application")
		return err
	}

	logger.Info().Str("addr", cfg.Addr).Str("config", cfgPath).Msg("starting puzzlink server")
	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
