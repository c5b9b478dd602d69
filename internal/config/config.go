// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Remova Inc.

// Package config loads portal configuration from a YAML file, environment
// variables, and command-line flags, in increasing order of precedence.
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// PORTAL_DATABASE_URL maps to database.url.
const EnvPrefix = "PORTAL_"

// Config is the fully resolved portal configuration.
type Config struct {
	// Environment is "production" or "development"; outside production the
	// mailer logs links instead of sending email.
	Environment string `koanf:"environment"`

	// BaseURL is the externally reachable portal root used in magic links.
	BaseURL string `koanf:"base_url"`

	HTTP struct {
		Addr string `koanf:"addr"`
	} `koanf:"http"`

	Metrics struct {
		Addr string `koanf:"addr"` // empty disables the observability server
	} `koanf:"metrics"`

	Database struct {
		URL string `koanf:"url"`
	} `koanf:"database"`

	Log struct {
		Format string `koanf:"format"` // "json" or "text"
	} `koanf:"log"`

	Mail struct {
		Host     string `koanf:"host"`
		Port     int    `koanf:"port"`
		Username string `koanf:"username"`
		Password string `koanf:"password"`
		From     string `koanf:"from"`
		SSL      bool   `koanf:"ssl"`
	} `koanf:"mail"`

	Session struct {
		TTL         time.Duration `koanf:"ttl"`
		Secret      string        `koanf:"secret"`
		AllowLegacy bool          `koanf:"allow_legacy"`
	} `koanf:"session"`
}

// Production reports whether real email delivery should happen.
func (c *Config) Production() bool {
	return c.Environment == "production"
}

// Load resolves configuration: defaults, then the YAML file at path (if
// non-empty), then PORTAL_* environment variables, then flags (if non-nil).
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	// PORTAL_MAIL_HOST -> mail.host. Single-word keys like base_url keep
	// their underscore via the explicit map below.
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		switch key {
		case "base_url":
			return "base_url"
		case "session_ttl":
			return "session.ttl"
		case "session_secret":
			return "session.secret"
		case "session_allow_legacy":
			return "session.allow_legacy"
		default:
			return strings.Replace(key, "_", ".", 1)
		}
	}), nil)
	if err != nil {
		return nil, oops.Code("CONFIG_ENV_FAILED").Wrap(err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}
	cfg.applyDefaults()

	return cfg, nil
}

// applyDefaults fills anything the file, env, and flags left unset.
func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.BaseURL == "" {
		if c.Production() {
			c.BaseURL = "https://www.remova.org"
		} else {
			c.BaseURL = "http://127.0.0.1:6161"
		}
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":6161"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = "127.0.0.1:9100"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Mail.Port == 0 {
		c.Mail.Port = 587
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = 7 * 24 * time.Hour
	}
}

// Validate checks the settings serve cannot run without.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required")
	}
	if c.Session.Secret == "" {
		return oops.Code("CONFIG_INVALID").Errorf("session.secret is required")
	}
	if c.Production() && c.Mail.Host == "" {
		return oops.Code("CONFIG_INVALID").Errorf("mail.host is required in production")
	}
	return nil
}
