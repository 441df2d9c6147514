package config

import "time"

const (
	MediaBackendLocal = "local"
	MediaBackendS3    = "s3"
)

// Config holds runtime settings for the everkeep CLI.
type Config struct {
	ServerURL           string
	DatabasePath        string
	OnlineCheckInterval time.Duration
	DebounceDelay       time.Duration
	RetryBase           time.Duration
	RetryMax            time.Duration
	RequestTimeout      time.Duration
	MediaBackend        string
	S3Bucket            string
	S3Region            string
	S3BaseEndpoint      string
	S3AccessKey         string
	S3SecretKey         string
	LogLevel            string
	LogFile             string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080/api"
	c.DatabasePath = "everkeep.db"
	c.OnlineCheckInterval = 3 * time.Second
	c.DebounceDelay = 800 * time.Millisecond
	c.RetryBase = 2 * time.Second
	c.RetryMax = 60 * time.Second
	c.RequestTimeout = 15 * time.Second
	c.MediaBackend = MediaBackendLocal
	c.S3Bucket = "everkeep-media"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = ""
	c.S3AccessKey = ""
	c.S3SecretKey = ""
	c.LogLevel = "info"
	c.LogFile = "everkeep.log"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
