// Package store implements the mapping store (C2): the keyed, TTL-bound
// persistence layer that holds a Mapping between the moment it is
// created during anonymization and the moment it is read back during
// deanonymization of the corresponding response.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/hfi/llm-secret-interceptor/internal/mapping"
)

// ErrAlreadyExists is returned by Put when mapping_id already has a
// record. Overwriting an existing id is always an error: mapping ids are
// meant to be created once per request and never reused.
var ErrAlreadyExists = errors.New("store: mapping id already exists")

// Store is the backend-agnostic mapping store contract. Both the
// in-process and remote backends implement it; the rest of the codebase
// depends only on this interface.
type Store interface {
	// Put creates a new record under id with the given ttl. It returns
	// ErrAlreadyExists if id is already present.
	Put(ctx context.Context, id string, m *mapping.Mapping, ttl time.Duration) error

	// Get returns the record stored under id. found is false if id is
	// absent — which is a normal, expected outcome (the TTL may have
	// expired mid-request) and never reported as an error.
	Get(ctx context.Context, id string) (m *mapping.Mapping, found bool, err error)

	// Delete removes the record stored under id. It is idempotent:
	// deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error

	// Sweep removes every record whose ttl has elapsed and returns how
	// many were removed. Backends that delegate expiry to the storage
	// layer itself (e.g. Redis TTLs) may implement this as a no-op.
	Sweep(ctx context.Context) (removed int, err error)

	// Close releases any resources held by the store.
	Close() error
}
