package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuditLog is one mutation on the catalog. The exporter flips Exported once the entry
// has been shipped to the application log.
type AuditLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
	Entity    string             `bson:"entity" json:"entity"`
	// Action is one of the constants.Create/Update/Delete/Rate values.
	Action string `bson:"action" json:"action"`
	// PerformedBy is the verified token user that made the change, never a client-supplied id.
	PerformedBy string `bson:"performed_by" json:"performed_by"`
	// Data holds the book after create or update, the book id on delete, and id plus grade on rate.
	Data     any  `bson:"data" json:"data"`
	Exported bool `bson:"exported" json:"exported"`
}

