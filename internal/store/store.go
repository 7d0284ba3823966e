// Package store persists raw-input to standardized-output mappings so
// repeated manifests skip the oracle for values already resolved.
package store

import (
	"context"

	"github.com/rotisserie/eris"
)

// Kind partitions the mapping cache by what the output represents.
type Kind string

const (
	// KindParty maps raw party names to standardized names.
	KindParty Kind = "party"
	// KindCity maps raw addresses to extracted city names.
	KindCity Kind = "city"
)

// Store is the persistence interface for the mapping cache.
type Store interface {
	// GetMappings returns the cached outputs for the given raw inputs.
	// Inputs with no cached mapping are simply absent from the result.
	GetMappings(ctx context.Context, kind Kind, inputs []string) (map[string]string, error)

	// PutMappings upserts raw-input to output mappings.
	PutMappings(ctx context.Context, kind Kind, mappings map[string]string) error

	// CountMappings returns the number of cached mappings of a kind.
	CountMappings(ctx context.Context, kind Kind) (int, error)

	// DeleteKind removes all mappings of a kind and returns the count removed.
	DeleteKind(ctx context.Context, kind Kind) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver ("sqlite" or "postgres").
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn, poolCfg)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
