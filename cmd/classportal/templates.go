// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"classportal/internal/publish"
)

var (
	exportOut   string
	importActor string
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Move template overrides between deployments",
}

var templatesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every template of the configured scope as a YAML bundle",
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

		b, err := a.publish.Export(cmd.Context())
		if err != nil {
			return err
		}
		return writeBundleTo(cmd.OutOrStdout(), exportOut, b)
	},
}

var templatesImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load a YAML bundle written by export",
	Long: `Load a YAML bundle written by export. Every template becomes a draft;
templates that were published in the source deployment are published
again, and their override flag is restored.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		actor, err := parseActor(importActor)
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cfg, false)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := importBundleFile(cmd.Context(), a, args[0], actor)
		if err != nil {
			return err
		}
		printImportReport(cmd.OutOrStdout(), report)
		if len(report.Failed) > 0 {
			return fmt.Errorf("%d templates failed to import", len(report.Failed))
		}
		return nil
	},
}

func init() {
	templatesExportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "write the bundle to this file instead of stdout")
	templatesImportCmd.Flags().StringVar(&importActor, "actor", "", "editor UUID recorded on imported drafts and versions")
	templatesCmd.AddCommand(templatesExportCmd, templatesImportCmd)
	rootCmd.AddCommand(templatesCmd)
}

// writeBundleTo writes b to path, or to stdout when path is empty.
func writeBundleTo(stdout io.Writer, path string, b *publish.Bundle) error {
	if path == "" {
		return publish.WriteBundle(stdout, b)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create bundle file: %w", err)
	}
	if err := publish.WriteBundle(f, b); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func importBundleFile(ctx context.Context, a *app, path string, actor *uuid.UUID) (*publish.ImportReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bundle: %w", err)
	}
	defer f.Close()

	b, err := publish.ReadBundle(f)
	if err != nil {
		return nil, err
	}
	return a.publish.Import(ctx, b, actor)
}

func parseActor(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid --actor: %w", err)
	}
	return &id, nil
}

func printImportReport(w io.Writer, r *publish.ImportReport) {
	fmt.Fprintf(w, "imported:  %d\n", r.Imported)
	fmt.Fprintf(w, "published: %d\n", r.Published)
	keys := make([]string, 0, len(r.Failed))
	for k := range r.Failed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "failed:    %s: %v\n", k, r.Failed[k])
	}
}
