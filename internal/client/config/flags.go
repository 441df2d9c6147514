package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/everkeep/internal/flagx"
)

var flagNames = []string{"-a", "-d", "-i", "-m", "-v", "-f"}

// CommandArgs strips the configuration flags, including -c/-config, from
// args and returns what is left for the command tree.
func CommandArgs(args []string) []string {
	return flagx.DropArgs(args, append([]string{"-c", "-config", "--config"}, flagNames...))
}

// parseFlags populates selected Config fields from command-line flags.
// Only the flags listed here are considered; the rest of os.Args belongs to
// the command tree. Parse errors panic.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], flagNames)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.ServerURL, "a", config.ServerURL, "backup endpoint URL")
	fs.StringVar(&config.DatabasePath, "d", config.DatabasePath, "local database path")
	onlineCheckInterval := fs.Int("i", int(config.OnlineCheckInterval.Seconds()), "online status check interval (in seconds)")
	fs.StringVar(&config.MediaBackend, "m", config.MediaBackend, "media backend (local|s3)")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")
	fs.StringVar(&config.LogFile, "f", config.LogFile, "log file")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
