package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/istmo-digital/docintel/constants"
)

// Document represents an ingested document for data transfer between layers.
type Document struct {
	ID                       uuid.UUID        `json:"id"`
	Filename                 string           `json:"filename"`
	ContentHash              string           `json:"content_hash"`
	Format                   string           `json:"format"`
	SizeBytes                int64            `json:"size_bytes"`
	TypeID                   constants.TypeID `json:"type_id"`
	ClassificationConfidence float64          `json:"classification_confidence"`
	RequiresReverification   bool             `json:"requires_reverification"`
	CreatedAt                time.Time        `json:"created_at"`
	UpdatedAt                time.Time        `json:"updated_at"`
}
