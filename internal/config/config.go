// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package config handles application configuration. Values come from
// built-in defaults, an optional YAML file and environment variables (in
// increasing precedence). A .env file in the working directory is loaded
// into the environment first when present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration values.
type Config struct {
	// Server settings
	Host string
	Port string
	Env  string // "development", "production", "testing"

	// PostgreSQL connection
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Valkey (Redis-compatible cache)
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string

	// S3-compatible object storage for the published stylesheet. When the
	// endpoint is empty the asset is written to PublicDir instead.
	S3Endpoint     string
	S3Region       string
	S3AccessKey    string
	S3SecretKey    string
	S3BucketPublic string
	S3PublicURL    string
	PublicDir      string
	PublicURL      string

	// ActorHeader names the header an upstream proxy uses to forward the
	// authenticated editor's UUID to the admin API.
	ActorHeader string

	// AllowedOrigins lists extra origins accepted for admin writes and the
	// live preview websocket.
	AllowedOrigins []string

	// Locales are the supported page languages; the first is the fallback.
	Locales []string

	Templates Templates
}

// Templates configures the template override engine.
type Templates struct {
	Scope                    string        `mapstructure:"scope"`
	AllowedKeys              []string      `mapstructure:"allowed_keys"`
	PopupPrefix              string        `mapstructure:"popup_prefix"`
	DefaultPopups            []Popup       `mapstructure:"default_popups"`
	MaxIncludeDepth          int           `mapstructure:"max_include_depth"`
	AllowedTemplateVariables []string      `mapstructure:"allowed_template_variables"`
	RenderCacheTTL           time.Duration `mapstructure:"render_cache_ttl"`
	CSSAssetKey              string        `mapstructure:"css_asset_key"`
}

// Popup is one entry of the default popup catalog. Body is Markdown; an
// empty body selects the built-in content for the key.
type Popup struct {
	Key   string `mapstructure:"key" yaml:"key"`
	Title string `mapstructure:"title" yaml:"title"`
	Body  string `mapstructure:"body" yaml:"body,omitempty"`
}

// envBindings maps config keys to the environment variables that override
// them.
var envBindings = map[string]string{
	"server.host":            "APP_HOST",
	"server.port":            "APP_PORT",
	"server.env":             "APP_ENV",
	"server.actor_header":    "ACTOR_HEADER",
	"server.allowed_origins": "ALLOWED_ORIGINS",
	"server.locales":         "LOCALES",
	"postgres.host":          "POSTGRES_HOST",
	"postgres.port":          "POSTGRES_PORT",
	"postgres.user":          "POSTGRES_USER",
	"postgres.password":      "POSTGRES_PASSWORD",
	"postgres.db":            "POSTGRES_DB",
	"valkey.host":            "VALKEY_HOST",
	"valkey.port":            "VALKEY_PORT",
	"valkey.password":        "VALKEY_PASSWORD",
	"s3.endpoint":            "S3_ENDPOINT",
	"s3.region":              "S3_REGION",
	"s3.access_key":          "S3_ACCESS_KEY",
	"s3.secret_key":          "S3_SECRET_KEY",
	"s3.bucket_public":       "S3_BUCKET_PUBLIC",
	"s3.public_url":          "S3_PUBLIC_URL",
	"static.dir":             "PUBLIC_DIR",
	"static.url":             "PUBLIC_URL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.actor_header", "X-Actor-ID")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.locales", []string{"en"})

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.user", "classportal")
	v.SetDefault("postgres.password", "changeme")
	v.SetDefault("postgres.db", "classportal")

	v.SetDefault("valkey.host", "localhost")
	v.SetDefault("valkey.port", "6379")
	v.SetDefault("valkey.password", "")

	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "fsn1")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.bucket_public", "classportal-public")
	v.SetDefault("s3.public_url", "")
	v.SetDefault("static.dir", "public")
	v.SetDefault("static.url", "/static")

	v.SetDefault("templates.scope", "global")
	v.SetDefault("templates.allowed_keys", []string{"classroom.page", "auth.login", "auth.token-login"})
	v.SetDefault("templates.popup_prefix", "popup.")
	v.SetDefault("templates.default_popups", []map[string]any{})
	v.SetDefault("templates.max_include_depth", 5)
	v.SetDefault("templates.allowed_template_variables", []string{"user", "classroom", "locale", "page"})
	v.SetDefault("templates.render_cache_ttl", "60s")
	v.SetDefault("templates.css_asset_key", "global.css")
}

// newViper builds a viper instance with defaults, env bindings and, when
// path is non-empty, the YAML config file.
func newViper(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}
	// templates.* keys are overridden by TEMPLATES_* variables.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return v, nil
}

// Load reads configuration from defaults, the optional YAML file at path
// and the environment. Returns an error if critical values are missing in
// production mode.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v, err := newViper(path)
	if err != nil {
		return nil, err
	}
	return fromViper(v)
}

// loadDotEnv loads a .env file if it exists. Variables already set in the
// environment win.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Host: v.GetString("server.host"),
		Port: v.GetString("server.port"),
		Env:  v.GetString("server.env"),

		DBHost:     v.GetString("postgres.host"),
		DBPort:     v.GetString("postgres.port"),
		DBUser:     v.GetString("postgres.user"),
		DBPassword: v.GetString("postgres.password"),
		DBName:     v.GetString("postgres.db"),

		ValkeyHost:     v.GetString("valkey.host"),
		ValkeyPort:     v.GetString("valkey.port"),
		ValkeyPassword: v.GetString("valkey.password"),

		S3Endpoint:     v.GetString("s3.endpoint"),
		S3Region:       v.GetString("s3.region"),
		S3AccessKey:    v.GetString("s3.access_key"),
		S3SecretKey:    v.GetString("s3.secret_key"),
		S3BucketPublic: v.GetString("s3.bucket_public"),
		S3PublicURL:    v.GetString("s3.public_url"),
		PublicDir:      v.GetString("static.dir"),
		PublicURL:      v.GetString("static.url"),

		ActorHeader:    v.GetString("server.actor_header"),
		AllowedOrigins: splitList(v.GetStringSlice("server.allowed_origins")),
		Locales:        splitList(v.GetStringSlice("server.locales")),

		Templates: Templates{
			Scope:                    v.GetString("templates.scope"),
			AllowedKeys:              splitList(v.GetStringSlice("templates.allowed_keys")),
			PopupPrefix:              v.GetString("templates.popup_prefix"),
			MaxIncludeDepth:          v.GetInt("templates.max_include_depth"),
			AllowedTemplateVariables: splitList(v.GetStringSlice("templates.allowed_template_variables")),
			RenderCacheTTL:           v.GetDuration("templates.render_cache_ttl"),
			CSSAssetKey:              v.GetString("templates.css_asset_key"),
		},
	}

	if err := v.UnmarshalKey("templates.default_popups", &cfg.Templates.DefaultPopups); err != nil {
		return nil, fmt.Errorf("decode templates.default_popups: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitList flattens comma-separated entries, which is how list values
// arrive from environment variables.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (c *Config) validate() error {
	if c.Env == "production" && c.DBPassword == "changeme" {
		return fmt.Errorf("POSTGRES_PASSWORD must be set in production")
	}
	t := c.Templates
	if t.MaxIncludeDepth < 0 {
		return fmt.Errorf("templates.max_include_depth must be >= 0, got %d", t.MaxIncludeDepth)
	}
	if t.PopupPrefix == "" {
		return fmt.Errorf("templates.popup_prefix must not be empty")
	}
	if t.Scope != "global" && t.Scope != "classroom" {
		return fmt.Errorf("templates.scope must be global or classroom, got %q", t.Scope)
	}
	if t.RenderCacheTTL < 0 {
		return fmt.Errorf("templates.render_cache_ttl must not be negative")
	}
	for i, p := range t.DefaultPopups {
		if strings.TrimSpace(p.Key) == "" {
			return fmt.Errorf("templates.default_popups[%d]: key is required", i)
		}
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}
