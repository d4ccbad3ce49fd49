package operation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OrphanRecord describes content that could be neither placed at its
// destination nor returned to its source.
type OrphanRecord struct {
	ID          uuid.UUID
	ItemTypeID  uint16
	Amount      int
	Description string
	Source      string
	Destination string
	RequestorID uint32
	OccurredAt  time.Time
}

// OrphanLedger persists orphan records for operators.
type OrphanLedger interface {
	RecordOrphan(ctx context.Context, rec OrphanRecord) error
}

// NopLedger drops every record.
type NopLedger struct{}

// RecordOrphan does nothing.
func (NopLedger) RecordOrphan(context.Context, OrphanRecord) error { return nil }

// Metrics receives operation counters.
type Metrics interface {
	RollbackPerformed()
	RollbackFailed()
}

// NopMetrics discards every counter.
type NopMetrics struct{}

// RollbackPerformed does nothing.
func (NopMetrics) RollbackPerformed() {}

// RollbackFailed does nothing.
func (NopMetrics) RollbackFailed() {}
