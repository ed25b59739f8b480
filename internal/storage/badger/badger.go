// Package badger stores each group as one compressed blob in BadgerDB.
package badger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/mmynk/expensekey/internal/models"
	"github.com/mmynk/expensekey/internal/storage"
)

const (
	groupKeyPrefix = "group/"
	gcInterval     = 5 * time.Minute
)

var _ storage.Store = (*Store)(nil)

// Store implements storage.Store on BadgerDB. With no data dir it runs in memory.
type Store struct {
	db      *badger.DB
	logger  *slog.Logger
	dataDir string
	gc      bool

	gcStop chan struct{}
	gcWg   sync.WaitGroup
}

// OptionFunc configures a Store.
type OptionFunc func(*Store)

// WithDataDir stores data under dir instead of in memory.
func WithDataDir(dir string) OptionFunc {
	return func(s *Store) {
		s.dataDir = dir
	}
}

// WithLogger sets the logger badger and the store log to.
func WithLogger(logger *slog.Logger) OptionFunc {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithGC toggles periodic value log garbage collection. Only applies on disk.
func WithGC(enabled bool) OptionFunc {
	return func(s *Store) {
		s.gc = enabled
	}
}

// New opens the store.
func New(opts ...OptionFunc) (*Store, error) {
	s := &Store{gc: true}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		// Create logger to throw away logs
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var badgerOpts badger.Options
	if s.dataDir == "" {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
		s.gc = false
	} else {
		if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
		badgerOpts = badger.DefaultOptions(s.dataDir).WithCompression(options.Snappy)
	}
	badgerOpts = badgerOpts.
		WithLogger(newBadgerLogger(s.logger)).
		// The default INFO logging is a bit verbose
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	s.db = db

	if s.gc {
		s.gcStop = make(chan struct{})
		s.gcWg.Add(1)
		go s.runGC()
	}
	return s, nil
}

func (s *Store) runGC() {
	defer s.gcWg.Done()
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			// Keep collecting while there is something to rewrite.
			for {
				err := s.db.RunValueLogGC(0.5)
				if err == nil {
					continue
				}
				if !errors.Is(err, badger.ErrNoRewrite) {
					s.logger.Warn("Value log GC failed", "error", err)
				}
				break
			}
		case <-s.gcStop:
			return
		}
	}
}

func groupKey(id string) []byte {
	return []byte(groupKeyPrefix + id)
}

func (s *Store) LoadGroup(_ context.Context, groupID string) (*models.Group, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(groupKey(groupID))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return decodeGroup(data)
}

// SaveGroup writes the whole group in one badger transaction.
func (s *Store) SaveGroup(_ context.Context, group *models.Group) error {
	if group == nil || group.ID == "" {
		return fmt.Errorf("group has no id")
	}
	data, err := encodeGroup(group)
	if err != nil {
		return err
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(groupKey(group.ID), data)
	}); err != nil {
		return fmt.Errorf("failed to save group: %w", err)
	}
	return nil
}

func (s *Store) ListGroupIDs(_ context.Context) ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(groupKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, strings.TrimPrefix(string(it.Item().Key()), groupKeyPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return ids, nil
}

// Close stops GC and closes the database.
func (s *Store) Close() error {
	if s.gcStop != nil {
		close(s.gcStop)
		s.gcWg.Wait()
		s.gcStop = nil
	}
	return s.db.Close()
}
