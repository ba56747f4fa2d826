// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalDir stores assets in a directory that the HTTP server exposes
// under baseURL.
type LocalDir struct {
	dir     string
	baseURL string
}

// NewLocalDir creates the directory if needed.
func NewLocalDir(dir, baseURL string) (*LocalDir, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create asset dir %s: %w", dir, err)
	}
	return &LocalDir{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the directory assets are written to.
func (l *LocalDir) Dir() string { return l.dir }

func (l *LocalDir) path(key string) (string, error) {
	clean := path.Clean("/" + key)[1:]
	if clean == "" || clean != key {
		return "", fmt.Errorf("invalid asset key %q", key)
	}
	return filepath.Join(l.dir, filepath.FromSlash(clean)), nil
}

// Put writes body through a temporary file so readers never see a
// partial asset.
func (l *LocalDir) Put(_ context.Context, key, _ string, body []byte) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("write asset %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".asset-*")
	if err != nil {
		return fmt.Errorf("write asset %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("write asset %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write asset %s: %w", key, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("write asset %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("write asset %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Missing files are not an error.
func (l *LocalDir) Delete(_ context.Context, key string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete asset %s: %w", key, err)
	}
	return nil
}

// Exists reports whether key is present on disk.
func (l *LocalDir) Exists(_ context.Context, key string) (bool, error) {
	p, err := l.path(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat asset %s: %w", key, err)
	}
	return true, nil
}

// URL returns the public URL of key.
func (l *LocalDir) URL(key string) string {
	return l.baseURL + "/" + key
}
