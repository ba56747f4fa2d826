// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

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

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"classportal/internal/config"
	"classportal/internal/handlers"
	"classportal/internal/middleware"
	"classportal/internal/router"
)

var (
	serveInMemory  bool
	serveBootstrap bool
	servePageData  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server for the public pages and the admin API.

Template options (include depth, popup prefix, variable allow-list, cache
TTL) are reloaded from the --config file when it changes.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveInMemory, "in-memory", false, "keep templates in memory instead of PostgreSQL (demo mode)")
	serveCmd.Flags().BoolVar(&serveBootstrap, "bootstrap", false, "seed default templates before serving (always on in development and in-memory mode)")
	serveCmd.Flags().StringVar(&servePageData, "page-data", "", "YAML file with the data dictionary every page is rendered with")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	slog.Info("configuration loaded", "env", cfg.Env, "addr", cfg.Addr())

	a, err := newApp(cfg, serveInMemory)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if serveBootstrap || serveInMemory || cfg.IsDev() {
		if _, err := runBootstrap(ctx, a); err != nil {
			return err
		}
	}

	if cfgFile != "" {
		err := config.Watch(cfgFile, func(next *config.Config) {
			a.engine.SetOptions(engineOptions(next))
		})
		if err != nil {
			return fmt.Errorf("watch config: %w", err)
		}
	}

	data, err := loadPageData(servePageData)
	if err != nil {
		return err
	}
	locales, err := parseLocales(cfg.Locales)
	if err != nil {
		return err
	}

	limiter := middleware.NewRateLimiter(120, time.Minute)
	defer limiter.Stop()

	h := router.New(router.Options{
		ActorHeader:    cfg.ActorHeader,
		AllowedOrigins: cfg.AllowedOrigins,
		AssetOrigin:    originOf(cfg.S3PublicURL),
		Locales:        locales,
		StaticDir:      cfg.PublicDir,
		StaticURL:      cfg.PublicURL,
		PreviewLimiter: limiter,
	},
		handlers.NewAdmin(a.publish, a.engine, a.stylesheet, a.knownKeys(), hostPatterns(cfg.AllowedOrigins)),
		handlers.NewPublic(a.engine, data, a.stylesheet),
	)

	// WriteTimeout stays zero so live preview websockets are not cut off;
	// ReadHeaderTimeout bounds slow clients instead.
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	// Give active requests up to 30 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	slog.Info("server stopped gracefully")
	return nil
}

// loadPageData reads the static page dictionary. An empty path yields an
// empty dictionary.
func loadPageData(path string) (handlers.StaticData, error) {
	data := handlers.StaticData{}
	if path == "" {
		return data, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read page data: %w", err)
	}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse page data %s: %w", path, err)
	}
	return data, nil
}
