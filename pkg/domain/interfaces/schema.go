package interfaces

import "context"

// SchemaRefresher re-resolves cached entity schemas
type SchemaRefresher interface {
	Refresh(ctx context.Context) (int, error)
}
