// Package main is the entry point for the Dispatch Storage migration tool.
// It applies course-record schema migrations for the configured database.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/edupress/dispatch-storage/internal/config"
	"github.com/edupress/dispatch-storage/internal/repository/postgres"
	"github.com/edupress/dispatch-storage/internal/repository/sqlite"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("Dispatch Storage Migration Tool\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "up":
		if err := migrateUp(); err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
		log.Info().Msg("migrations applied")

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func migrateUp() error {
	cfg, err := config.Load(os.Getenv("DISPATCH_CONFIG"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if cfg.Database.IsEmbedded() {
		db, err := sqlite.NewDB(ctx, sqlite.DefaultConfig(cfg.Database.Path), log.Logger)
		if err != nil {
			return err
		}
		defer db.Close()
		return db.Migrate(ctx)
	}

	db, err := postgres.NewDB(ctx, cfg.Database, log.Logger)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Migrate(ctx)
}

func printUsage() {
	fmt.Println(`Dispatch Storage Migration Tool

Usage:
  dispatch-migrate <command>

Commands:
  up          Apply all pending migrations
  version     Print version information
  help        Show this help message

Environment Variables:
  DISPATCH_CONFIG             Path to an optional config file
  DISPATCH_DATABASE_DRIVER    Database driver: sqlite or postgres
  DISPATCH_DATABASE_PATH      SQLite database path
  DISPATCH_DATABASE_HOST      PostgreSQL host (with the usual companions)

Examples:
  dispatch-migrate up
  DISPATCH_DATABASE_DRIVER=postgres dispatch-migrate up`)
}
