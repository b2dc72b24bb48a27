package interfaces

import (
	"context"

	"github.com/secmon-lab/metaform/pkg/domain/model"
	"github.com/secmon-lab/metaform/pkg/domain/types"
)

// RecordAPI is the generic entity record API the form engine talks to.
// Failures are reported as *model.APIError (possibly wrapped).
type RecordAPI interface {
	// GetEntityRecord fetches one record by its logical key
	GetEntityRecord(ctx context.Context, entity types.EntityName, key string) (*model.EntityRecord, error)

	// GetEntityRecords lists records matching filter ("attribute==value", empty for all).
	// The result's Data is a list of records.
	GetEntityRecords(ctx context.Context, entity types.EntityName, filter string) (*model.EntityRecord, error)

	// CreateEntityRecord stores a new record and returns it as persisted
	CreateEntityRecord(ctx context.Context, entity types.EntityName, payload map[string]any) (*model.EntityRecord, error)
}

// RecordRepository is a RecordAPI backed by a storage the process owns
type RecordRepository interface {
	RecordAPI
	Close() error
}
