package utils

import (
	"vieux-grimoire-api/internal/logger"
	"vieux-grimoire-api/internal/models"
)

// ExportData writes audit entries to the application log as structured events.
func ExportData(logs []models.AuditLog) error {
	log := logger.Get()
	for _, entry := range logs {
		log.Info().
			Str("audit_id", entry.ID.Hex()).
			Time("at", entry.Timestamp).
			Str("entity", entry.Entity).
			Str("action", entry.Action).
			Str("performed_by", entry.PerformedBy).
			Interface("data", entry.Data).
			Msg("audit export")
	}
	return nil
}
