package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/newsclient/internal/flagx"
	"github.com/dmitrijs2005/newsclient/internal/timex"
)

// JsonConfig mirrors Config for unmarshalling. Pointer fields tell an
// absent key from a zero value; durations accept "10s" or nanoseconds.
type JsonConfig struct {
	ServerURL         *string         `json:"server_url"`
	DBPath            *string         `json:"db_path"`
	RequestTimeout    *timex.Duration `json:"request_timeout"`
	RequestsPerSecond *float64        `json:"requests_per_second"`
	LogLevel          *string         `json:"log_level"`
	MetricsAddr       *string         `json:"metrics_addr"`
}

// parseJson overlays cfg with the JSON file named by -c or -config in args.
// Keys missing from the file leave cfg untouched.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if jc.ServerURL != nil {
		cfg.ServerURL = *jc.ServerURL
	}
	if jc.DBPath != nil {
		cfg.DBPath = *jc.DBPath
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.RequestsPerSecond != nil {
		cfg.RequestsPerSecond = *jc.RequestsPerSecond
	}
	if jc.LogLevel != nil {
		cfg.LogLevel = *jc.LogLevel
	}
	if jc.MetricsAddr != nil {
		cfg.MetricsAddr = *jc.MetricsAddr
	}
	return nil
}
