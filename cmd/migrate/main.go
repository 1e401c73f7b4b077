package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stemsi/survey-backend/internal/config"
	"github.com/stemsi/survey-backend/internal/logger"
)

const usage = `Usage: migrate [flags] <command>

Commands:
  up               apply every pending migration
  down             roll back every migration
  steps <n>        apply n migrations (negative n rolls back)
  goto <version>   migrate up or down to version
  version          print the current version
  force <version>  set the version without running migrations (fixes a dirty state)

Flags:`

func main() {
	migrationDir := flag.String("path", "migrations", "Path to migration files")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(2)
	}

	if cfg.StoreDriver != config.StoreDriverPostgres {
		log.Fatal().
			Str("store", cfg.StoreDriver).
			Msg("SQL migrations only apply to the postgres store; the mongo store creates its indexes on startup")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is not set")
	}

	m, err := migrate.New("file://"+*migrationDir, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed to initialize")
	}
	defer m.Close()

	command := args[0]
	switch command {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "steps", "goto", "force":
		if len(args) < 2 {
			log.Fatal().Str("command", command).Msg("Missing numeric argument")
		}
		n, convErr := strconv.Atoi(args[1])
		if convErr != nil {
			log.Fatal().Err(convErr).Str("command", command).Msg("Invalid numeric argument")
		}
		switch command {
		case "steps":
			err = m.Steps(n)
		case "goto":
			if n < 0 {
				log.Fatal().Int("version", n).Msg("Version must not be negative")
			}
			err = m.Migrate(uint(n))
		default:
			err = m.Force(n)
		}
	case "version":
		version, dirty, verr := m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			fmt.Println("No migrations applied yet")
			return
		}
		if verr != nil {
			log.Fatal().Err(verr).Msg("Version failed")
		}
		fmt.Printf("Version: %d, Dirty: %t\n", version, dirty)
		return
	default:
		flag.Usage()
		os.Exit(2)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Println("No change")
		return
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", command).Msg("Migration failed")
	}

	if version, dirty, err := m.Version(); err == nil {
		fmt.Printf("Migrated (%s) to version %d, dirty: %t\n", command, version, dirty)
	} else {
		fmt.Printf("Migrated (%s)\n", command)
	}
}
