package sagalog

import "context"

// Repository persists saga log entries. The orchestrator treats a nil
// Repository as "logging disabled".
type Repository interface {
	// Save appends a row; entries are never updated in place.
	Save(ctx context.Context, entry *SagaLog) error
	// History returns every row for sagaID, oldest first.
	History(ctx context.Context, sagaID string) ([]*SagaLog, error)
}
