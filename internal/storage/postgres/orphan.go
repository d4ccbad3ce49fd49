package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/tilemud/internal/game/operation"
)

// ErrOrphanNotFound is returned when no unresolved orphan has the given id.
var ErrOrphanNotFound = errors.New("orphan not found")

// OrphanRepository stores items that a failed movement could neither
// place nor return.
type OrphanRepository struct {
	db *pgxpool.Pool
}

// NewOrphanRepository creates an OrphanRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewOrphanRepository(db *pgxpool.Pool) *OrphanRepository {
	return &OrphanRepository{db: db}
}

// RecordOrphan inserts rec. A record without an id gets a new one.
//
// Postcondition: the record is unresolved and listed by Unresolved.
func (r *OrphanRepository) RecordOrphan(ctx context.Context, rec operation.OrphanRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO orphaned_items
			(id, item_type_id, amount, description, source, destination, requestor_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, int32(rec.ItemTypeID), rec.Amount, rec.Description,
		rec.Source, rec.Destination, int64(rec.RequestorID), rec.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("recording orphan %s: %w", rec.ID, err)
	}
	return nil
}

// Unresolved lists orphans not yet resolved, oldest first.
//
// Precondition: limit must be > 0.
func (r *OrphanRepository) Unresolved(ctx context.Context, limit int) ([]operation.OrphanRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, item_type_id, amount, description, source, destination, requestor_id, occurred_at
		FROM orphaned_items
		WHERE resolved_at IS NULL
		ORDER BY occurred_at, id
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing orphans: %w", err)
	}
	defer rows.Close()

	out := make([]operation.OrphanRecord, 0)
	for rows.Next() {
		var (
			rec       operation.OrphanRecord
			typeID    int32
			requestor int64
		)
		if err := rows.Scan(
			&rec.ID, &typeID, &rec.Amount, &rec.Description,
			&rec.Source, &rec.Destination, &requestor, &rec.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("scanning orphan row: %w", err)
		}
		rec.ItemTypeID = uint16(typeID)
		rec.RequestorID = uint32(requestor)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Resolve marks an orphan as handled by an operator.
//
// Postcondition: Returns ErrOrphanNotFound if id is unknown or already resolved.
func (r *OrphanRepository) Resolve(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE orphaned_items SET resolved_at = NOW()
		WHERE id = $1 AND resolved_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("resolving orphan %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrphanNotFound
	}
	return nil
}

// Get returns one orphan regardless of its resolution.
//
// Postcondition: Returns ErrOrphanNotFound if id is unknown.
func (r *OrphanRepository) Get(ctx context.Context, id uuid.UUID) (operation.OrphanRecord, error) {
	var (
		rec       operation.OrphanRecord
		typeID    int32
		requestor int64
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, item_type_id, amount, description, source, destination, requestor_id, occurred_at
		FROM orphaned_items WHERE id = $1`,
		id,
	).Scan(&rec.ID, &typeID, &rec.Amount, &rec.Description,
		&rec.Source, &rec.Destination, &requestor, &rec.OccurredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return operation.OrphanRecord{}, ErrOrphanNotFound
		}
		return operation.OrphanRecord{}, fmt.Errorf("querying orphan: %w", err)
	}
	rec.ItemTypeID = uint16(typeID)
	rec.RequestorID = uint32(requestor)
	return rec, nil
}
