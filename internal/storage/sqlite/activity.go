package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/expensekey/internal/models"
)

// appendActivity inserts entries that are not stored yet. Stored entries are
// never rewritten.
func appendActivity(ctx context.Context, tx *sql.Tx, group *models.Group) error {
	for _, a := range group.Activity {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO activity (group_id, id, text, created_at, actor_id, actor_name, actor_avatar_url)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			group.ID, a.ID, a.Text, toUnix(a.Timestamp), a.Actor.MemberID, a.Actor.Name, a.Actor.AvatarURL,
		)
		if err != nil {
			return fmt.Errorf("failed to insert activity: %w", err)
		}
	}
	return nil
}

// loadActivity returns the audit log, newest first.
func loadActivity(ctx context.Context, q queryer, groupID string) ([]models.ActivityEntry, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, text, created_at, actor_id, actor_name, actor_avatar_url
		 FROM activity WHERE group_id = ? ORDER BY id DESC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	defer rows.Close()

	var entries []models.ActivityEntry
	for rows.Next() {
		var (
			a  models.ActivityEntry
			at int64
		)
		if err := rows.Scan(&a.ID, &a.Text, &at, &a.Actor.MemberID, &a.Actor.Name, &a.Actor.AvatarURL); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		a.Timestamp = fromUnix(at)
		entries = append(entries, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity: %w", err)
	}
	return entries, nil
}
