package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/everkeep/internal/timex"
)

// JsonConfig is the on-disk JSON shape. Durations accept "15s" or integer
// nanoseconds; absent fields leave the current value untouched.
type JsonConfig struct {
	HTTPAddr          *string         `json:"http_addr"`
	HTTPPath          *string         `json:"http_path"`
	DatabaseDSN       *string         `json:"database_dsn"`
	AllowedOrigins    []string        `json:"allowed_origins"`
	MaxBodyBytes      *int64          `json:"max_body_bytes"`
	RateLimitRequests *int            `json:"rate_limit_requests"`
	RateLimitWindow   *timex.Duration `json:"rate_limit_window"`
	RateLimitStore    *string         `json:"rate_limit_store"`
	RateLimitDir      *string         `json:"rate_limit_dir"`
	RequestTimeout    *timex.Duration `json:"request_timeout"`
	ShutdownTimeout   *timex.Duration `json:"shutdown_timeout"`
	LogLevel          *string         `json:"log_level"`
	LogFile           *string         `json:"log_file"`
	EnvFile           *string         `json:"env_file"`
}

// parseJson loads the file named by -c/-config, if any, into config.
// Unreadable or invalid files panic.
func parseJson(config *Config) {
	jsonConfigFile := jsonConfigPath()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.HTTPPath, c.HTTPPath)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	if c.AllowedOrigins != nil {
		config.AllowedOrigins = c.AllowedOrigins
	}
	if c.MaxBodyBytes != nil {
		config.MaxBodyBytes = *c.MaxBodyBytes
	}
	if c.RateLimitRequests != nil {
		config.RateLimitRequests = *c.RateLimitRequests
	}
	setDuration(&config.RateLimitWindow, c.RateLimitWindow)
	setString(&config.RateLimitStore, c.RateLimitStore)
	setString(&config.RateLimitDir, c.RateLimitDir)
	setDuration(&config.RequestTimeout, c.RequestTimeout)
	setDuration(&config.ShutdownTimeout, c.ShutdownTimeout)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFile, c.LogFile)
	setString(&config.EnvFile, c.EnvFile)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
