package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/photoslot/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-s string   slot id to drive (default from Config)
//	-b string   S3 bucket name
//	-e string   S3 base endpoint (MinIO or compatible)
//	-r string   S3 region
//	-d string   history database DSN
//
// Note: The function filters os.Args to only include the flags it knows
// about, using flagx.FilterArgs, to avoid interference with other
// components.
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-s", "-b", "-e", "-r", "-d"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.SlotID, "s", cfg.SlotID, "slot id to drive")
	fs.StringVar(&cfg.S3Bucket, "b", cfg.S3Bucket, "S3 bucket name")
	fs.StringVar(&cfg.S3BaseEndpoint, "e", cfg.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&cfg.S3Region, "r", cfg.S3Region, "S3 region")
	fs.StringVar(&cfg.HistoryDSN, "d", cfg.HistoryDSN, "history database DSN")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
