package core

import (
	"aquamind/internal/infra/persistence/memory"
	"aquamind/internal/infra/persistence/postgres"
	"aquamind/internal/infra/persistence/sqlite"
	"aquamind/pkg/domain"
	"context"
	"fmt"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

type (
	Transaction     = domain.Transaction
	TransactionView = domain.TransactionView
	PersistentStore = domain.PersistentStore
)

// StorageOptions selects and parameterises a backend.
type StorageOptions struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
}

// OpenPersistentStore opens the backend named by opts.Driver, defaulting to
// sqlite. The returned close function releases the backend's resources.
func OpenPersistentStore(ctx context.Context, opts StorageOptions, engine *RulesEngine) (PersistentStore, func() error, error) {
	driver := opts.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(engine), func() error { return nil }, nil
	case StorageSQLite:
		store, err := sqlite.NewStore(opts.SQLitePath, engine)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case StoragePostgres:
		store, err := postgres.NewStore(ctx, opts.PostgresDSN, engine)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
