package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/expensekey/internal/models"
)

func saveMembers(ctx context.Context, tx *sql.Tx, group *models.Group) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM member_approvals WHERE group_id = ?", group.ID); err != nil {
		return fmt.Errorf("failed to clear member approvals: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM members WHERE group_id = ?", group.ID); err != nil {
		return fmt.Errorf("failed to clear members: %w", err)
	}

	for pos, m := range group.Members {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO members (group_id, id, position, name, avatar_url, status) VALUES (?, ?, ?, ?, ?, ?)",
			group.ID, m.ID, pos, m.Name, m.AvatarURL, string(m.Status),
		)
		if err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
		for _, approver := range m.Approvals.Sorted() {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO member_approvals (group_id, member_id, approver_id) VALUES (?, ?, ?)",
				group.ID, m.ID, approver,
			)
			if err != nil {
				return fmt.Errorf("failed to insert member approval: %w", err)
			}
		}
	}
	return nil
}

func loadMembers(ctx context.Context, q queryer, groupID string) ([]models.Member, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, name, avatar_url, status FROM members WHERE group_id = ? ORDER BY position",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	var members []models.Member
	index := make(map[string]int)
	for rows.Next() {
		var (
			m      models.Member
			status string
		)
		if err := rows.Scan(&m.ID, &m.Name, &m.AvatarURL, &status); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		m.Status = models.MemberStatus(status)
		m.Approvals = models.NewIDSet()
		index[m.ID] = len(members)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	approvals, err := q.QueryContext(ctx,
		"SELECT member_id, approver_id FROM member_approvals WHERE group_id = ?",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get member approvals: %w", err)
	}
	defer approvals.Close()

	for approvals.Next() {
		var memberID, approverID string
		if err := approvals.Scan(&memberID, &approverID); err != nil {
			return nil, fmt.Errorf("failed to scan member approval: %w", err)
		}
		if i, ok := index[memberID]; ok {
			members[i].Approvals.Add(approverID)
		}
	}
	if err := approvals.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate member approvals: %w", err)
	}
	return members, nil
}
