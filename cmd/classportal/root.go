// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"classportal/internal/config"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "classportal",
	Short: "Classroom portal with operator-editable page templates",
	Long: `classportal renders the classroom, login and popup pages. Operators can
override any of them with their own markup, styling and scripting through
the admin API; overrides are validated, versioned and only served once
published and enabled.

Configuration comes from built-in defaults, an optional YAML file (--config)
and environment variables such as POSTGRES_HOST or TEMPLATES_MAX_INCLUDE_DEPTH.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (optional)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default debug in development, info otherwise)")
}

// loadConfig reads the configuration and installs the default logger.
// Logs are text in development and JSON otherwise.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	level := slog.LevelInfo
	if cfg.IsDev() {
		level = slog.LevelDebug
	}
	if logLevel != "" {
		if err := level.UnmarshalText([]byte(logLevel)); err != nil {
			return nil, fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewJSONHandler(os.Stderr, opts)
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
	return cfg, nil
}
