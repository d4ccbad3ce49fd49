// Package storage opens the orphan ledger selected by configuration.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cory-johannsen/tilemud/internal/config"
	"github.com/cory-johannsen/tilemud/internal/game/operation"
	"github.com/cory-johannsen/tilemud/internal/storage/bolt"
	"github.com/cory-johannsen/tilemud/internal/storage/postgres"
)

// ErrNoStorage is returned by Open when the driver is "none".
var ErrNoStorage = errors.New("no orphan storage configured")

// ErrOrphanNotFound is returned by Resolve and Get for an unknown orphan,
// whichever driver is in use.
var ErrOrphanNotFound = errors.New("orphan not found")

// Ledger records orphaned items and lets operators work through them.
type Ledger interface {
	operation.OrphanLedger
	Unresolved(ctx context.Context, limit int) ([]operation.OrphanRecord, error)
	Resolve(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (operation.OrphanRecord, error)
}

// Open connects the ledger named by cfg.Storage.Driver. The returned close
// function releases the connection or file.
//
// Postcondition: Returns ErrNoStorage for the "none" driver.
func Open(ctx context.Context, cfg config.Config) (Ledger, func(), error) {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("opening postgres ledger: %w", err)
		}
		if err := pool.CheckSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("opening postgres ledger: %w", err)
		}
		return notFound{postgres.NewOrphanRepository(pool.DB()), postgres.ErrOrphanNotFound}, pool.Close, nil
	case config.StorageBolt:
		store, err := bolt.Open(cfg.Storage.BoltPath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening bolt ledger: %w", err)
		}
		return notFound{store, bolt.ErrOrphanNotFound}, func() { _ = store.Close() }, nil
	case config.StorageNone:
		return nil, nil, ErrNoStorage
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// notFound maps a driver's not-found error onto ErrOrphanNotFound.
type notFound struct {
	Ledger
	driverErr error
}

func (n notFound) translate(err error) error {
	if errors.Is(err, n.driverErr) {
		return fmt.Errorf("%w: %w", ErrOrphanNotFound, err)
	}
	return err
}

func (n notFound) Resolve(ctx context.Context, id uuid.UUID) error {
	return n.translate(n.Ledger.Resolve(ctx, id))
}

func (n notFound) Get(ctx context.Context, id uuid.UUID) (operation.OrphanRecord, error) {
	rec, err := n.Ledger.Get(ctx, id)
	return rec, n.translate(err)
}
