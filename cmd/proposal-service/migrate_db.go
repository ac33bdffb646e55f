package main

import (
	"go.uber.org/zap"

	"github.com/studiooh/proposal-export-service/config"
	"github.com/studiooh/proposal-export-service/db"
)

const migrationsPath = "file://db/migrations"

func performDbMigration(cfg *config.ProposalConfig, log *zap.SugaredLogger, direction string) error {
	conn, err := db.OpenPostgresDB(*cfg)
	if err != nil {
		log.Errorw("unable to initialize database connection", "error", err)
		return err
	}
	defer conn.Close()

	return db.PerformDbMigration(conn, log, migrationsPath, direction)
}
