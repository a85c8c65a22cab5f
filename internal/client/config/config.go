package config

import (
	"os"
	"time"
)

const (
	DefaultServerURL = "https://hack-or-snooze-v3.herokuapp.com"
	DefaultDBPath    = "session.db"
)

// Config holds runtime settings for the news client.
type Config struct {
	// ServerURL is the base URL of the news service API.
	ServerURL string `env:"NEWS_SERVER_URL"`
	// DBPath is the SQLite file that keeps the session between runs.
	DBPath string `env:"NEWS_DB_PATH"`
	// RequestTimeout bounds a single request to the service.
	RequestTimeout time.Duration `env:"NEWS_REQUEST_TIMEOUT"`
	// RequestsPerSecond paces calls to the service; 0 disables pacing.
	RequestsPerSecond float64 `env:"NEWS_RPS"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"NEWS_LOG_LEVEL"`
	// MetricsAddr, if set, serves Prometheus metrics at /metrics.
	MetricsAddr string `env:"NEWS_METRICS_ADDR"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = DefaultServerURL
	c.DBPath = DefaultDBPath
	c.RequestTimeout = 10 * time.Second
	c.RequestsPerSecond = 5
	c.LogLevel = "info"
	c.MetricsAddr = ""
}

// LoadConfig builds a Config from defaults, then the JSON file (if any),
// then the environment, then command-line flags. Later sources win.
func LoadConfig() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
