// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"classportal/internal/database"
)

var migrateStatus bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := database.Connect(cfg.DSN())
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := cmd.Context()
		if migrateStatus {
			list, err := database.Status(ctx, db)
			if err != nil {
				return err
			}
			printMigrations(cmd.OutOrStdout(), list)
			return nil
		}
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		return database.Seed(db)
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "print the migration status instead of migrating")
	rootCmd.AddCommand(migrateCmd)
}

func printMigrations(w io.Writer, list []database.Migration) {
	for _, m := range list {
		applied := "pending"
		if m.Applied {
			applied = m.AppliedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%-5d %-40s %s\n", m.Version, m.Name, applied)
	}
}
