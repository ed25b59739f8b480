// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/expensekey/internal/models"
)

// ErrNotFound is returned by LoadGroup when no group has the given id.
var ErrNotFound = errors.New("group not found")

// Store defines the interface for group storage operations.
// This abstraction allows swapping storage backends (memory, SQLite, Badger)
// without changing the ledger.
//
// Both LoadGroup and SaveGroup are all-or-nothing: a failed SaveGroup leaves the
// previously saved group intact.
type Store interface {
	// LoadGroup retrieves a group by its ID.
	// Returns ErrNotFound (possibly wrapped) if the group does not exist.
	LoadGroup(ctx context.Context, groupID string) (*models.Group, error)

	// SaveGroup persists the whole group, replacing any previous version.
	SaveGroup(ctx context.Context, group *models.Group) error

	// ListGroupIDs returns the ids of all stored groups.
	ListGroupIDs(ctx context.Context) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}
