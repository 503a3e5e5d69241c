package config

import (
	"flag"
	"os"

	"github.com/photosafe/photosafe/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the backend API (default from Config)
//	-t string   path of the session token file
//	-d string   path of the local database
//	-w int      number of concurrent upload workers
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-d", "-w"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIEndpoint, "a", cfg.APIEndpoint, "base URL of the backend API")
	fs.StringVar(&cfg.TokenFile, "t", cfg.TokenFile, "path of the session token file")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "path of the local database")
	fs.IntVar(&cfg.Workers, "w", cfg.Workers, "number of concurrent upload workers")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
