package daemon

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"vieux-grimoire-api/internal/logger"
	"vieux-grimoire-api/internal/models"
	"vieux-grimoire-api/internal/utils"
)

// LogExporter ships audit entries that have not been exported yet to the application log.
type LogExporter struct {
	Coll     *mongo.Collection
	Interval time.Duration
}

// ExportOnce exports one batch and returns how many entries were marked exported.
func (l *LogExporter) ExportOnce(ctx context.Context) (int, error) {
	res, err := l.Coll.Find(ctx, bson.M{"exported": false})
	if err != nil {
		return 0, fmt.Errorf("find audit logs: %w", err)
	}

	var logs []models.AuditLog
	if err := res.All(ctx, &logs); err != nil {
		return 0, fmt.Errorf("decode audit logs: %w", err)
	}
	if len(logs) == 0 {
		return 0, nil
	}

	if err := utils.ExportData(logs); err != nil {
		return 0, fmt.Errorf("export audit logs: %w", err)
	}

	updateIds := make([]primitive.ObjectID, 0, len(logs))
	for _, entry := range logs {
		updateIds = append(updateIds, entry.ID)
	}

	_, err = l.Coll.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": updateIds}}, bson.M{"$set": bson.M{"exported": true}})
	if err != nil {
		return 0, fmt.Errorf("mark audit logs exported: %w", err)
	}
	return len(updateIds), nil
}

func (l *LogExporter) Run(ctx context.Context) error {
	log := logger.Get()
	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := l.ExportOnce(ctx)
			if err != nil {
				log.Error().Err(err).Msg("audit export failed")
				continue
			}
			if n > 0 {
				log.Debug().Int("count", n).Msg("audit logs exported")
			}
		}
	}
}
