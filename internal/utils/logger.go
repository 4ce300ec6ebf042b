package utils

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"vieux-grimoire-api/internal/logger"
	"vieux-grimoire-api/internal/models"
)

// Auditor records mutations performed on catalog entities.
type Auditor interface {
	Log(ctx context.Context, entity, action, performedBy string, data any) error
}

type Logger struct {
	Collection *mongo.Collection
}

func (l *Logger) Log(ctx context.Context, entity, action, performedBy string, data any) error {
	entry := models.AuditLog{
		Timestamp:   time.Now().UTC(),
		Entity:      entity,
		Action:      action,
		PerformedBy: performedBy,
		Data:        data,
	}
	_, err := l.Collection.InsertOne(ctx, entry)
	return err
}

// LogOnlyAuditor writes audit entries to the application log. Used with the memory store.
type LogOnlyAuditor struct{}

func (LogOnlyAuditor) Log(_ context.Context, entity, action, performedBy string, data any) error {
	log := logger.Get()
	log.Info().
		Str("entity", entity).
		Str("action", action).
		Str("performed_by", performedBy).
		Interface("data", data).
		Msg("audit")
	return nil
}

type NopAuditor struct{}

func (NopAuditor) Log(context.Context, string, string, string, any) error { return nil }
