package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config.yaml"

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	History  HistoryConfig  `yaml:"history"`
	Network  NetworkConfig  `yaml:"network"`
	Trace    TraceConfig    `yaml:"trace"`
	Geo      GeoConfig      `yaml:"geo"`
	AI       AIConfig       `yaml:"ai"`
	Server   ServerConfig   `yaml:"server"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// HistoryConfig holds the de-duplication window and the rolling cap.
// A negative window disables de-duplication.
type HistoryConfig struct {
	MaxEntries      int           `yaml:"max_entries"`
	DedupeWindow    time.Duration `yaml:"dedupe_window"`
	TimestampLayout string        `yaml:"timestamp_layout"`
}

type NetworkConfig struct {
	// Timeout of zero leaves requests bounded only by the transport.
	Timeout  time.Duration `yaml:"timeout"`
	ProxyURL string        `yaml:"proxy_url"`
}

type TraceConfig struct {
	URL string `yaml:"url"`
}

type GeoConfig struct {
	Provider   string `yaml:"provider"`
	Endpoint   string `yaml:"endpoint"`
	Token      string `yaml:"token"`
	Locale     string `yaml:"locale"`
	CityDBPath string `yaml:"city_db_path"`
	ASNDBPath  string `yaml:"asn_db_path"`
}

type AIConfig struct {
	Endpoint   string `yaml:"endpoint"`
	TextModel  string `yaml:"text_model"`
	ImageModel string `yaml:"image_model"`
	// EnvVar names the environment variable that supplies a session credential.
	EnvVar string `yaml:"env_var"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

func Default() *Config {
	var cfg Config
	cfg.Database.Path = "ipscope.db"
	cfg.History.MaxEntries = 20
	cfg.History.DedupeWindow = 60 * time.Second
	cfg.History.TimestampLayout = "2006-01-02 15:04:05"
	cfg.Trace.URL = "https://1.1.1.1/cdn-cgi/trace"
	cfg.Geo.Provider = "ipinfo"
	cfg.Geo.Endpoint = "https://ipinfo.io/"
	cfg.Geo.Locale = "en"
	cfg.Geo.CityDBPath = "GeoLite2-City.mmdb"
	cfg.Geo.ASNDBPath = "GeoLite2-ASN.mmdb"
	cfg.AI.Endpoint = "https://generativelanguage.googleapis.com/v1beta"
	cfg.AI.TextModel = "gemini-2.5-flash"
	cfg.AI.ImageModel = "imagen-3.0-generate-002"
	cfg.AI.EnvVar = "API_KEY"
	cfg.Server.Addr = "127.0.0.1:8080"
	return &cfg
}

// Load reads the YAML config on top of the defaults, then applies .env and
// environment overrides. A missing default config file is not an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config yaml: %w", err)
		}
	case !explicit && errors.Is(err, fs.ErrNotExist):
		// defaults only
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// .env is optional
	_ = godotenv.Load()

	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Database.Path = cast.ToString(coalesce("IPSCOPE_DB_PATH", c.Database.Path))
	c.History.MaxEntries = cast.ToInt(coalesce("IPSCOPE_HISTORY_MAX", c.History.MaxEntries))
	c.History.DedupeWindow = cast.ToDuration(coalesce("IPSCOPE_DEDUPE_WINDOW", c.History.DedupeWindow))
	c.Network.ProxyURL = cast.ToString(coalesce("IPSCOPE_PROXY_URL", c.Network.ProxyURL))
	c.Geo.Provider = cast.ToString(coalesce("IPSCOPE_GEO_PROVIDER", c.Geo.Provider))
	c.Geo.Token = cast.ToString(coalesce("IPSCOPE_GEO_TOKEN", c.Geo.Token))
	c.Geo.Locale = cast.ToString(coalesce("IPSCOPE_LOCALE", c.Geo.Locale))
}

func (c *Config) normalize() {
	if c.History.MaxEntries <= 0 {
		c.History.MaxEntries = 20
	}
	if c.History.TimestampLayout == "" {
		c.History.TimestampLayout = "2006-01-02 15:04:05"
	}
	if c.Geo.Locale == "" {
		c.Geo.Locale = "en"
	}
	if c.AI.EnvVar == "" {
		c.AI.EnvVar = "API_KEY"
	}
}

// EnvCredential returns the environment-supplied AI credential, if any.
func (c *Config) EnvCredential() string {
	return os.Getenv(c.AI.EnvVar)
}

func coalesce(key string, value interface{}) interface{} {
	val, exist := os.LookupEnv(key)
	if exist {
		return val
	}
	return value
}
