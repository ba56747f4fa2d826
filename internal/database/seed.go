// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// Seed ensures the singleton global stylesheet row exists. Template rows are
// seeded by the defaults bootstrap, which knows the built-in content.
func Seed(db *sql.DB) error {
	res, err := db.Exec(`
		INSERT INTO global_css (id) VALUES (1)
		ON CONFLICT (id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("seed global css: %w", err)
	}

	if n, _ := res.RowsAffected(); n > 0 {
		slog.Info("database seeded with empty global stylesheet")
	} else {
		slog.Info("database already seeded, skipping")
	}
	return nil
}
