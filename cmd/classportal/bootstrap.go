// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"classportal/internal/defaults"
	"classportal/internal/models"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Seed template rows with the built-in default content",
	Long: `Create a template row for every allowed key and catalog popup. Empty
drafts and drafts still holding an outdated default are refreshed;
published content and override flags are never changed.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cfg, false)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := runBootstrap(cmd.Context(), a)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "created:  %d\n", len(report.Created))
		fmt.Fprintf(out, "reseeded: %d\n", len(report.Reseeded))
		fmt.Fprintf(out, "skipped:  %d\n", len(report.Skipped))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(bootstrapCmd)
}

func runBootstrap(ctx context.Context, a *app) (*defaults.Report, error) {
	scope := models.TemplateScope(a.cfg.Templates.Scope)
	report, err := a.defaults.Bootstrap(ctx, a.templates, scope, a.cfg.Templates.AllowedKeys)
	if err != nil {
		return nil, fmt.Errorf("bootstrap templates: %w", err)
	}
	return report, nil
}
