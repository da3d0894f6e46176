// Package config loads the cookiesync configuration: a yaml file for the
// platform registry and engine tuning, environment variables for the
// CookieCloud credentials and overrides. Both are read once at startup.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"cookiesync/internal/engine"
)

const (
	DefaultConfigPath = "config.yaml"

	defaultCacheTTL = time.Hour
	defaultTimeout  = 10 * time.Second
	defaultInterval = time.Hour
	defaultListen   = ":8899"
)

// Config is the fully resolved engine configuration.
type Config struct {
	Enabled         bool
	ServerURL       string
	UUID            string
	Password        string
	CacheTTL        time.Duration
	FallbackEnabled bool
	Timeout         time.Duration
	RefreshInterval time.Duration
	Listen          string
	RedisAddr       string
	Platforms       []engine.Platform
}

type fileConfig struct {
	CookieCloud fileCookieCloud `yaml:"cookiecloud"`
	Platforms   []filePlatform  `yaml:"platforms"`
}

type fileCookieCloud struct {
	Enable          *bool  `yaml:"enable"`
	CacheTTL        string `yaml:"cache_ttl"`
	FallbackEnabled *bool  `yaml:"fallback_enabled"`
	Timeout         string `yaml:"timeout"`
	RefreshInterval string `yaml:"refresh_interval"`
	Listen          string `yaml:"listen"`
}

type filePlatform struct {
	ID         string `yaml:"id"`
	Domain     string `yaml:"domain"`
	ConfigPath string `yaml:"config_path"`
	CookieKey  string `yaml:"cookie_key"`
}

type envConfig struct {
	ServerURL       string         `env:"COOKIECLOUD_SERVER_URL"`
	UUID            string         `env:"COOKIECLOUD_UUID"`
	Password        string         `env:"COOKIECLOUD_PASSWORD"`
	CacheTTL        *time.Duration `env:"COOKIECLOUD_CACHE_TTL"`
	Enable          *bool          `env:"COOKIECLOUD_ENABLE"`
	FallbackEnabled *bool          `env:"COOKIECLOUD_FALLBACK_ENABLED"`
	Timeout         *time.Duration `env:"COOKIECLOUD_TIMEOUT"`
	RedisAddr       string         `env:"COOKIECLOUD_REDIS_ADDR"`
}

// Load reads the yaml file at path and applies environment overrides.
// Env values win over file values; credentials come from env only.
func Load(path string) (Config, error) {
	cfg := Config{
		Enabled:         true,
		CacheTTL:        defaultCacheTTL,
		FallbackEnabled: true,
		Timeout:         defaultTimeout,
		RefreshInterval: defaultInterval,
		Listen:          defaultListen,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("parse config file %q: %w", path, err)
	}

	if fc.CookieCloud.Enable != nil {
		cfg.Enabled = *fc.CookieCloud.Enable
	}
	if fc.CookieCloud.FallbackEnabled != nil {
		cfg.FallbackEnabled = *fc.CookieCloud.FallbackEnabled
	}
	if cfg.CacheTTL, err = durationField("cookiecloud.cache_ttl", fc.CookieCloud.CacheTTL, cfg.CacheTTL); err != nil {
		return Config{}, err
	}
	if cfg.Timeout, err = durationField("cookiecloud.timeout", fc.CookieCloud.Timeout, cfg.Timeout); err != nil {
		return Config{}, err
	}
	if cfg.RefreshInterval, err = durationField("cookiecloud.refresh_interval", fc.CookieCloud.RefreshInterval, cfg.RefreshInterval); err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(fc.CookieCloud.Listen) != "" {
		cfg.Listen = strings.TrimSpace(fc.CookieCloud.Listen)
	}

	baseDir := filepath.Dir(path)
	seen := make(map[string]bool, len(fc.Platforms))
	for _, fp := range fc.Platforms {
		id := strings.TrimSpace(fp.ID)
		if id == "" {
			return Config{}, fmt.Errorf("config file %q: platform with empty id", path)
		}
		if seen[id] {
			return Config{}, fmt.Errorf("config file %q: duplicate platform id %q", path, id)
		}
		seen[id] = true
		if strings.TrimSpace(fp.ConfigPath) == "" {
			return Config{}, fmt.Errorf("platform %q: config_path is required", id)
		}
		if strings.TrimSpace(fp.CookieKey) == "" {
			return Config{}, fmt.Errorf("platform %q: cookie_key is required", id)
		}
		domain := strings.TrimSpace(fp.Domain)
		if domain == "" {
			domain = id + ".com"
		}
		configPath := strings.TrimSpace(fp.ConfigPath)
		if !filepath.IsAbs(configPath) {
			configPath = filepath.Join(baseDir, configPath)
		}
		cfg.Platforms = append(cfg.Platforms, engine.Platform{
			ID:         id,
			Domain:     domain,
			ConfigPath: configPath,
			CookieKey:  strings.TrimSpace(fp.CookieKey),
		})
	}
	if len(cfg.Platforms) == 0 {
		return Config{}, fmt.Errorf("config file %q: no platforms configured", path)
	}

	var ec envConfig
	if err := env.Parse(&ec); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	cfg.ServerURL = strings.TrimSpace(ec.ServerURL)
	cfg.UUID = strings.TrimSpace(ec.UUID)
	cfg.Password = ec.Password
	cfg.RedisAddr = strings.TrimSpace(ec.RedisAddr)
	if ec.Enable != nil {
		cfg.Enabled = *ec.Enable
	}
	if ec.FallbackEnabled != nil {
		cfg.FallbackEnabled = *ec.FallbackEnabled
	}
	if ec.CacheTTL != nil {
		cfg.CacheTTL = *ec.CacheTTL
	}
	if ec.Timeout != nil {
		cfg.Timeout = *ec.Timeout
	}

	if cfg.Enabled && (cfg.ServerURL == "" || cfg.UUID == "" || cfg.Password == "") {
		log.Printf("cookiesync: incomplete CookieCloud credentials, disabling remote sync")
		cfg.Enabled = false
	}
	return cfg, nil
}

// durationField accepts either a Go duration string ("30m") or a bare
// number of seconds (the form the original yaml configs used).
func durationField(key, raw string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid config value %s=%q: %w", key, raw, err)
	}
	return d, nil
}
