package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/everkeep/internal/flagx"
	"github.com/dmitrijs2005/everkeep/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields distinguish "absent" from zero values.
type JsonConfig struct {
	ServerURL           *string         `json:"server_url"`
	DatabasePath        *string         `json:"database_path"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	DebounceDelay       *timex.Duration `json:"debounce_delay"`
	RetryBase           *timex.Duration `json:"retry_base"`
	RetryMax            *timex.Duration `json:"retry_max"`
	RequestTimeout      *timex.Duration `json:"request_timeout"`
	MediaBackend        *string         `json:"media_backend"`
	S3Bucket            *string         `json:"s3_bucket"`
	S3Region            *string         `json:"s3_region"`
	S3BaseEndpoint      *string         `json:"s3_base_endpoint"`
	S3AccessKey         *string         `json:"s3_access_key"`
	S3SecretKey         *string         `json:"s3_secret_key"`
	LogLevel            *string         `json:"log_level"`
	LogFile             *string         `json:"log_file"`
}

// parseJson overlays Config with values loaded from the file named by
// -c/-config. Read or unmarshal errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	for dst, v := range map[*string]*string{
		&cfg.ServerURL:      jc.ServerURL,
		&cfg.DatabasePath:   jc.DatabasePath,
		&cfg.MediaBackend:   jc.MediaBackend,
		&cfg.S3Bucket:       jc.S3Bucket,
		&cfg.S3Region:       jc.S3Region,
		&cfg.S3BaseEndpoint: jc.S3BaseEndpoint,
		&cfg.S3AccessKey:    jc.S3AccessKey,
		&cfg.S3SecretKey:    jc.S3SecretKey,
		&cfg.LogLevel:       jc.LogLevel,
		&cfg.LogFile:        jc.LogFile,
	} {
		if v != nil {
			*dst = *v
		}
	}

	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.DebounceDelay != nil {
		cfg.DebounceDelay = jc.DebounceDelay.Duration
	}
	if jc.RetryBase != nil {
		cfg.RetryBase = jc.RetryBase.Duration
	}
	if jc.RetryMax != nil {
		cfg.RetryMax = jc.RetryMax.Duration
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
}
