package config

import (
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/everkeep/internal/flagx"
	"github.com/spf13/viper"
)

var (
	jsonConfigPath = flagx.JsonConfigFlags
	envFilePath    = flagx.EnvFileFlags
)

// parseEnv overlays the dotenv file (-env-file, else config.EnvFile) and the
// process environment. Real environment variables win over the file.
// Malformed numbers are ignored.
func parseEnv(config *Config) {
	v := viper.New()

	envFile := envFilePath()
	if envFile == "" {
		envFile = config.EnvFile
	}
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				panic(err)
			}
		}
	}
	v.AutomaticEnv()

	if s := v.GetString("HTTP_ADDR"); s != "" {
		config.HTTPAddr = s
	}
	if s := v.GetString("HTTP_PATH"); s != "" {
		config.HTTPPath = s
	}

	if s := v.GetString("DATABASE_DSN"); s != "" {
		config.DatabaseDSN = s
	} else if host := v.GetString("DB_HOST"); host != "" {
		config.DatabaseDSN = PostgresDSN(host, v.GetString("DB_PORT"), v.GetString("DB_NAME"),
			v.GetString("DB_USER"), v.GetString("DB_PASSWORD"))
	}

	if v.IsSet("ALLOWED_ORIGINS") {
		config.AllowedOrigins = flagx.SplitList(v.GetString("ALLOWED_ORIGINS"))
	}
	if n, ok := envInt(v, "MAX_BODY_BYTES"); ok {
		config.MaxBodyBytes = n
	}
	if n, ok := envInt(v, "RATE_LIMIT_REQUESTS"); ok {
		config.RateLimitRequests = int(n)
	}
	if n, ok := envInt(v, "RATE_LIMIT_WINDOW"); ok {
		config.RateLimitWindow = time.Duration(n) * time.Second
	}
	if s := v.GetString("RATE_LIMIT_STORE"); s != "" {
		config.RateLimitStore = s
	}
	if s := v.GetString("RATE_LIMIT_DIR"); s != "" {
		config.RateLimitDir = s
	}
	if s := v.GetString("LOG_LEVEL"); s != "" {
		config.LogLevel = s
	}
	if s := v.GetString("LOG_FILE"); s != "" {
		config.LogFile = s
	}
}

func envInt(v *viper.Viper, key string) (int64, bool) {
	s := v.GetString(key)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
