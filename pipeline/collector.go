package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/studiooh/proposal-export-service/models"
	"github.com/studiooh/proposal-export-service/proposal"
)

// MediaSource is the slice of the data store the collector needs.
type MediaSource interface {
	ListMedia(ctx context.Context, organizationID string, ids []uuid.UUID) ([]*models.Media, error)
}

// Collector resolves a selection of media ids into item snapshots.
type Collector struct {
	Source MediaSource
	Log    *zap.SugaredLogger
}

func NewCollector(source MediaSource, log *zap.SugaredLogger) *Collector {
	return &Collector{Source: source, Log: log}
}

// Collect fetches the selected media for the user's organization in one
// query. The result follows the order of ids with duplicates removed; ids
// that are malformed or do not resolve are dropped.
func (c *Collector) Collect(ctx context.Context, user models.User, ids []string) ([]proposal.MediaItem, error) {
	order := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		parsed, err := uuid.Parse(id)
		if err != nil {
			c.Log.Debugw("dropping malformed media id", "media_id", id, "org_id", user.OrganizationID)
			continue
		}
		if seen[parsed] {
			continue
		}
		seen[parsed] = true
		order = append(order, parsed)
	}
	if len(order) == 0 {
		return []proposal.MediaItem{}, nil
	}

	rows, err := c.Source.ListMedia(ctx, user.OrganizationID, order)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch selected media: %w", err)
	}
	byID := make(map[uuid.UUID]*models.Media, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	items := make([]proposal.MediaItem, 0, len(order))
	for _, id := range order {
		row, ok := byID[id]
		if !ok {
			c.Log.Debugw("selected media not found", "media_id", id, "org_id", user.OrganizationID)
			continue
		}
		items = append(items, row.Item())
	}
	return items, nil
}

// Exclude removes excluded ids from a selection, keeping its order.
func Exclude(ids, excluded []string) []string {
	if len(excluded) == 0 {
		return ids
	}
	drop := make(map[string]bool, len(excluded))
	for _, id := range excluded {
		drop[id] = true
	}
	kept := make([]string, 0, len(ids))
	for _, id := range ids {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	return kept
}
