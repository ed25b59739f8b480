// Package memory provides an in-process group store for tests and demos.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mmynk/expensekey/internal/models"
	"github.com/mmynk/expensekey/internal/storage"
)

// Store keeps deep copies of saved groups.
type Store struct {
	mu     sync.RWMutex
	groups map[string]*models.Group
	hook   func(group *models.Group) error
}

// New creates an empty store.
func New() *Store {
	return &Store{groups: make(map[string]*models.Group)}
}

// SetSaveHook installs fn to run before every save. A non-nil return aborts the
// save and is returned to the caller. Pass nil to remove the hook.
func (s *Store) SetSaveHook(fn func(group *models.Group) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = fn
}

func (s *Store) LoadGroup(_ context.Context, groupID string) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("load %s: %w", groupID, storage.ErrNotFound)
	}
	return g.Clone(), nil
}

func (s *Store) SaveGroup(_ context.Context, group *models.Group) error {
	if group == nil || group.ID == "" {
		return fmt.Errorf("save: group has no id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hook != nil {
		if err := s.hook(group); err != nil {
			return err
		}
	}
	s.groups[group.ID] = group.Clone()
	return nil
}

func (s *Store) ListGroupIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.groups))
	for id := range s.groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) Close() error {
	return nil
}

var _ storage.Store = (*Store)(nil)
