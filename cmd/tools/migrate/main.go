package main

import (
	"errors"
	"flag"
	"os"
	"strings"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"

	"github.com/noah-isme/magiccart-api/internal/migrations"
	"github.com/noah-isme/magiccart-api/internal/obs"
)

func main() {
	_ = godotenv.Load()
	logger := obs.NewLogger("console", "info").With().Str("tool", "migrate").Logger()

	command := flag.String("cmd", "up", "up | down | steps | version | force")
	steps := flag.Int("n", 1, "number of steps for -cmd steps (negative rolls back)")
	forceVersion := flag.Int("version", -1, "version for -cmd force")
	flag.Parse()

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}

	m, err := migrations.New(dbURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise migrations")
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Error().AnErr("source", srcErr).AnErr("database", dbErr).Msg("close migrate")
		}
	}()

	switch *command {
	case "up":
		err = migrations.Up(m)
	case "down":
		err = m.Down()
	case "steps":
		err = m.Steps(*steps)
	case "force":
		if *forceVersion < 0 {
			logger.Fatal().Msg("-version is required for force")
		}
		err = m.Force(*forceVersion)
	case "version":
		version, dirty, verr := m.Version()
		if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
			logger.Fatal().Err(verr).Msg("read version")
		}
		logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("schema version")
		return
	default:
		logger.Fatal().Str("cmd", *command).Msg("unknown command")
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatal().Err(err).Str("cmd", *command).Msg("migration failed")
	}
	logger.Info().Str("cmd", *command).Msg("migrations applied")
}
