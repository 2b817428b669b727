package main

import (
	"flag"

	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

func main() {
	action := flag.String("action", "up", "acción: up, down o version")
	steps := flag.Int("steps", 0, "migraciones a revertir con down (0 = todas)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "stock-ledger-migrate"})

	mg, err := postgres.NewMigrator(cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("crear migrador")
	}
	defer mg.Close()

	switch *action {
	case "up":
		if err := mg.Up(); err != nil {
			log.Fatal().Err(err).Msg("migrate up")
		}
		log.Info().Msg("migraciones aplicadas")
	case "down":
		if err := mg.Down(*steps); err != nil {
			log.Fatal().Err(err).Msg("migrate down")
		}
		log.Info().Int("steps", *steps).Msg("migraciones revertidas")
	case "version":
		v, dirty, err := mg.Version()
		if err != nil {
			log.Fatal().Err(err).Msg("leer versión")
		}
		log.Info().Uint("version", v).Bool("dirty", dirty).Msg("versión actual")
	default:
		log.Fatal().Str("action", *action).Msg("acción desconocida (use up, down o version)")
	}
}
