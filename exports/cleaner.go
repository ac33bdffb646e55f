package exports

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/studiooh/proposal-export-service/models"
)

// CleanExpired removes the stored artifacts of proposals that expired before
// now, then the proposal rows themselves. An artifact that cannot be removed
// is logged and does not stop the cleanup.
func CleanExpired(ctx context.Context, db models.DBInterface, storage Storage, now time.Time, log *zap.SugaredLogger) (int64, error) {
	expired, err := db.ListExpired(now)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired proposals: %w", err)
	}

	for _, p := range expired {
		if p.S3Key == "" {
			continue
		}
		if err := storage.Delete(ctx, p.S3Key); err != nil {
			log.Warnw("failed to delete expired artifact", "proposal_id", p.ID, "key", p.S3Key, "error", err)
		}
	}

	deleted, err := db.DeleteExpired(now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired proposals: %w", err)
	}
	log.Infow("deleted expired proposals", "count", deleted, "artifacts", len(expired))
	return deleted, nil
}
