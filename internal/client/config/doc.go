// Package config loads runtime configuration for the everkeep journal CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   backup endpoint URL
//	-d string   local SQLite database path
//	-i int      online status check interval (seconds)
//	-m string   media backend: local or s3
//	-v string   log level
//	-f string   log file ("" logs to stderr)
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "800ms" or
// integer nanoseconds:
//
//	{
//	  "server_url": "https://example.org/api",
//	  "database_path": "everkeep.db",
//	  "online_check_interval": "3s",
//	  "debounce_delay": "800ms",
//	  "retry_base": "2s",
//	  "retry_max": "60s",
//	  "request_timeout": "15s",
//	  "media_backend": "s3",
//	  "s3_bucket": "everkeep-media",
//	  "s3_region": "us-east-1",
//	  "s3_base_endpoint": "http://127.0.0.1:9000/",
//	  "s3_access_key": "admin",
//	  "s3_secret_key": "secretpassword"
//	}
package config
