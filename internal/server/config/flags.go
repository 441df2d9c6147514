package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/everkeep/internal/flagx"
)

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-p string   endpoint path (e.g., "/api")
//	-d string   PostgreSQL DSN
//	-o string   comma separated allowed origins
//	-m int      max request body bytes
//	-l int      rate limit requests per window
//	-w int      rate limit window, seconds
//	-s string   rate limit store: postgres or file
//	-v string   log level
//	-f string   log file
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-p", "-d", "-o", "-m", "-l", "-w", "-s", "-v", "-f"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.HTTPPath, "p", config.HTTPPath, "endpoint path")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	origins := fs.String("o", strings.Join(config.AllowedOrigins, ","), "allowed origins (comma separated)")
	fs.Int64Var(&config.MaxBodyBytes, "m", config.MaxBodyBytes, "max request body bytes")
	fs.IntVar(&config.RateLimitRequests, "l", config.RateLimitRequests, "rate limit requests per window")
	window := fs.Int("w", int(config.RateLimitWindow.Seconds()), "rate limit window (in seconds)")
	fs.StringVar(&config.RateLimitStore, "s", config.RateLimitStore, "rate limit store (postgres|file)")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")
	fs.StringVar(&config.LogFile, "f", config.LogFile, "log file")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AllowedOrigins = flagx.SplitList(*origins)
	config.RateLimitWindow = time.Duration(*window) * time.Second
}
