package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/studiooh/proposal-export-service/config"
	"github.com/studiooh/proposal-export-service/db"
	"github.com/studiooh/proposal-export-service/exports"
	"github.com/studiooh/proposal-export-service/models"
	es3 "github.com/studiooh/proposal-export-service/s3"
)

func startExpiredProposalCleaner(ctx context.Context, cfg *config.ProposalConfig, log *zap.SugaredLogger) error {
	log.Info("starting expired proposal cleaner")

	dbConnection, err := db.OpenDB(*cfg)
	if err != nil {
		log.Errorw("failed to open database", "error", err)
		return err
	}

	proposalDB := &models.ProposalDB{DB: dbConnection}
	storage := es3.NewStorage(cfg, log)

	if _, err := exports.CleanExpired(ctx, proposalDB, storage, time.Now(), log); err != nil {
		log.Errorw("expired proposal cleaner failed", "error", err)
		return err
	}
	return nil
}
