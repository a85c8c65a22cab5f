// Package config loads runtime configuration for the news client.
//
// Sources, in increasing precedence:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. NEWS_* environment variables.
//  4. Command-line flags.
//
// # JSON schema
//
// Durations may be strings like "10s" or integer nanoseconds:
//
//	{
//	  "server_url": "https://hack-or-snooze-v3.herokuapp.com",
//	  "db_path": "session.db",
//	  "request_timeout": "10s",
//	  "requests_per_second": 5,
//	  "log_level": "info",
//	  "metrics_addr": ":9090"
//	}
package config
