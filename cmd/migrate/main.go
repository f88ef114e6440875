package main

import (
	"flag"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/metabridge-api/config"
	"github.com/jwalitptl/metabridge-api/internal/repository/postgres"
	"github.com/jwalitptl/metabridge-api/pkg/logger"
)

func main() {
	steps := flag.Int("steps", 1, "number of migrations to roll back with down")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	cmd := "up"
	if flag.NArg() > 0 {
		cmd = flag.Arg(0)
	}

	m, err := postgres.NewMigrator(cfg.Database.URL())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open migrator")
	}
	defer m.Close()

	switch cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down(*steps)
	case "version":
	default:
		log.Error().Str("command", cmd).Msg("unknown command, expected up, down or version")
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", cmd).Msg("migration failed")
	}

	version, dirty, err := m.Version()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read migration version")
	}
	log.Info().Uint("version", version).Bool("dirty", dirty).Msg("migrations done")
}
