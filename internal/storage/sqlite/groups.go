package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/expensekey/internal/models"
	"github.com/mmynk/expensekey/internal/storage"
)

// SaveGroup replaces the stored members and expenses of a group and appends any
// activity entries not yet stored, all in one transaction.
func (s *SQLiteStore) SaveGroup(ctx context.Context, group *models.Group) error {
	if group == nil || group.ID == "" {
		return fmt.Errorf("group has no id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO groups (id, name, created_at, join_key_hash, next_activity_id)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   join_key_hash = excluded.join_key_hash,
		   next_activity_id = excluded.next_activity_id`,
		group.ID, group.Name, toUnix(group.CreatedAt), group.JoinKeyHash, group.NextActivityID,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert group: %w", err)
	}

	if err := saveMembers(ctx, tx, group); err != nil {
		return err
	}
	if err := saveExpenses(ctx, tx, group); err != nil {
		return err
	}
	if err := appendActivity(ctx, tx, group); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LoadGroup retrieves a group with its members, expenses and activity.
func (s *SQLiteStore) LoadGroup(ctx context.Context, groupID string) (*models.Group, error) {
	var (
		g         models.Group
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at, join_key_hash, next_activity_id FROM groups WHERE id = ?",
		groupID,
	).Scan(&g.ID, &g.Name, &createdAt, &g.JoinKeyHash, &g.NextActivityID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	g.CreatedAt = fromUnix(createdAt)

	if g.Members, err = loadMembers(ctx, s.db, groupID); err != nil {
		return nil, err
	}
	if g.Expenses, err = loadExpenses(ctx, s.db, groupID); err != nil {
		return nil, err
	}
	if g.Activity, err = loadActivity(ctx, s.db, groupID); err != nil {
		return nil, err
	}
	return &g, nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}
