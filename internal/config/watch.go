// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package config

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch re-reads the YAML file at path whenever it changes and hands the
// new configuration to onChange. Invalid edits are logged and skipped, so
// the last good configuration stays in effect. Only the template section
// is meant to be applied live; server and storage settings need a restart.
func Watch(path string, onChange func(*Config)) error {
	v, err := newViper(path)
	if err != nil {
		return err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := fromViper(v)
		if err != nil {
			slog.Warn("config reload rejected", "file", e.Name, "error", err)
			return
		}
		slog.Info("config reloaded", "file", e.Name)
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}
