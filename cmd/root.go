/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/inkpress/apiserver/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "inkpress",
	Short: "Inkpress blog API",
	Long: `Inkpress serves the blog API: accounts, posts, comments, likes and
cover images.

	inkpress server
	inkpress migrate up
	inkpress worker media-cleanup
`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it. The
// context is cancelled on SIGINT or SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// loadConfig reads configuration and installs the global logger it selects.
func loadConfig() (config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return config.Config{}, log.Logger, err
	}
	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return config.Config{}, log.Logger, err
	}
	log.Logger = logger
	return cfg, logger, nil
}

func newLogger(level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	switch strings.ToLower(format) {
	case "console":
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	case "json", "":
		logger = zerolog.New(os.Stderr)
	default:
		return zerolog.Logger{}, fmt.Errorf("invalid LOG_FORMAT %q", format)
	}
	return logger.Level(lvl).With().Timestamp().Str("service", "inkpress").Logger(), nil
}
