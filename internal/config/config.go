package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Model    ModelConfig    `koanf:"model"`
	Cache    CacheConfig    `koanf:"cache"`
	Upstream UpstreamConfig `koanf:"upstream"`
	Sessions SessionsConfig `koanf:"sessions"`
	Router   RouterConfig   `koanf:"router"`
	Warmup   WarmupConfig   `koanf:"warmup"`
}

type ServerConfig struct {
	Port            int    `koanf:"port"`
	LogLevel        string `koanf:"log_level"`
	ReadTimeout     string `koanf:"read_timeout"`
	WriteTimeout    string `koanf:"write_timeout"`
	IdleTimeout     string `koanf:"idle_timeout"`
	ShutdownTimeout string `koanf:"shutdown_timeout"`
}

type ModelConfig struct {
	Provider       string `koanf:"provider"`
	Name           string `koanf:"name"`
	APIKey         string `koanf:"api_key"`
	BaseURL        string `koanf:"base_url"`
	RequestTimeout string `koanf:"request_timeout"`
}

type CacheConfig struct {
	Addr        string `koanf:"addr"`
	DB          int    `koanf:"db"`
	Prefix      string `koanf:"prefix"`
	UpstreamTTL string `koanf:"upstream_ttl"`
	SessionTTL  string `koanf:"session_ttl"`
	DialTimeout string `koanf:"dial_timeout"`
	OpTimeout   string `koanf:"op_timeout"`
}

type UpstreamConfig struct {
	BaseURL string `koanf:"base_url"`
	Timeout string `koanf:"timeout"`
}

type SessionsConfig struct {
	Persist      bool `koanf:"persist"`
	HistoryLimit int  `koanf:"history_limit"`
}

type RouterConfig struct {
	ContextMessages int `koanf:"context_messages"`
	ReuseMessages   int `koanf:"reuse_messages"`
}

type WarmupConfig struct {
	Schedule      string `koanf:"schedule"`
	QuestionsFile string `koanf:"questions_file"`
	Days          int    `koanf:"days"`
	TTL           string `koanf:"ttl"`
}

const (
	DefaultServerPort            = 8080
	DefaultServerLogLevel        = "info"
	DefaultServerReadTimeout     = "15s"
	DefaultServerWriteTimeout    = "90s"
	DefaultServerIdleTimeout     = "60s"
	DefaultServerShutdownTimeout = "5s"

	DefaultModelProvider       = "openai"
	DefaultModelName           = "gpt-4o-mini"
	DefaultModelRequestTimeout = "30s"

	DefaultCacheAddr        = "localhost:6379"
	DefaultCachePrefix      = "andino:"
	DefaultCacheUpstreamTTL = "30m"
	DefaultCacheSessionTTL  = "1h"
	DefaultCacheDialTimeout = "5s"
	DefaultCacheOpTimeout   = "5s"

	DefaultUpstreamTimeout = "60s"

	DefaultSessionsHistoryLimit = 50

	DefaultRouterContextMessages = 4
	DefaultRouterReuseMessages   = 6

	DefaultWarmupSchedule = "@every 30m"
	DefaultWarmupDays     = 30
	DefaultWarmupTTL      = "2h"
)

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":             DefaultServerPort,
		"server.log_level":        DefaultServerLogLevel,
		"server.read_timeout":     DefaultServerReadTimeout,
		"server.write_timeout":    DefaultServerWriteTimeout,
		"server.idle_timeout":     DefaultServerIdleTimeout,
		"server.shutdown_timeout": DefaultServerShutdownTimeout,
		"model.provider":          DefaultModelProvider,
		"model.name":              DefaultModelName,
		"model.request_timeout":   DefaultModelRequestTimeout,
		"cache.addr":              DefaultCacheAddr,
		"cache.db":                0,
		"cache.prefix":            DefaultCachePrefix,
		"cache.upstream_ttl":      DefaultCacheUpstreamTTL,
		"cache.session_ttl":       DefaultCacheSessionTTL,
		"cache.dial_timeout":      DefaultCacheDialTimeout,
		"cache.op_timeout":        DefaultCacheOpTimeout,
		"upstream.timeout":        DefaultUpstreamTimeout,
		"sessions.persist":        false,
		"sessions.history_limit":  DefaultSessionsHistoryLimit,
		"router.context_messages": DefaultRouterContextMessages,
		"router.reuse_messages":   DefaultRouterReuseMessages,
		"warmup.schedule":         DefaultWarmupSchedule,
		"warmup.days":             DefaultWarmupDays,
		"warmup.ttl":              DefaultWarmupTTL,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			globalPath := filepath.Join(home, ".andino", "config.yaml")
			if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
				slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
			}
		}
	}

	k.Load(env.Provider("ANDINO_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "ANDINO_")), "_", ".", -1)
	}), nil)

	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	if cfg.Sessions.HistoryLimit <= 0 {
		cfg.Sessions.HistoryLimit = DefaultSessionsHistoryLimit
	}
	if cfg.Router.ContextMessages <= 0 {
		cfg.Router.ContextMessages = DefaultRouterContextMessages
	}
	if cfg.Router.ReuseMessages <= 0 {
		cfg.Router.ReuseMessages = DefaultRouterReuseMessages
	}

	return &cfg, nil
}

// Validate checks the fields that have no usable zero value.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Upstream.BaseURL) == "" {
		return fmt.Errorf("upstream.base_url is required")
	}
	return nil
}
