package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/expensekey/internal/models"
)

// Roles of a member row in expense_members.
const (
	roleSplit    = "split"
	roleApproval = "approval"
	roleDeletion = "deletion"
)

func saveExpenses(ctx context.Context, tx *sql.Tx, group *models.Group) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM expense_members WHERE group_id = ?", group.ID); err != nil {
		return fmt.Errorf("failed to clear expense members: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM expenses WHERE group_id = ?", group.ID); err != nil {
		return fmt.Errorf("failed to clear expenses: %w", err)
	}

	for pos, e := range group.Expenses {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO expenses (group_id, id, position, description, amount, payer_id, created_at, status)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			group.ID, e.ID, pos, e.Description, e.Amount, e.PayerID, toUnix(e.CreatedAt), string(e.Status),
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense: %w", err)
		}

		sets := []struct {
			role string
			ids  models.IDSet
		}{
			{roleSplit, e.SplitWith},
			{roleApproval, e.Approvals},
			{roleDeletion, e.DeletionApprovals},
		}
		for _, set := range sets {
			for _, memberID := range set.ids.Sorted() {
				_, err := tx.ExecContext(ctx,
					"INSERT INTO expense_members (group_id, expense_id, member_id, role) VALUES (?, ?, ?, ?)",
					group.ID, e.ID, memberID, set.role,
				)
				if err != nil {
					return fmt.Errorf("failed to insert expense member: %w", err)
				}
			}
		}
	}
	return nil
}

func loadExpenses(ctx context.Context, q queryer, groupID string) ([]models.Expense, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, description, amount, payer_id, created_at, status
		 FROM expenses WHERE group_id = ? ORDER BY position`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get expenses: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	index := make(map[string]int)
	for rows.Next() {
		var (
			e         models.Expense
			createdAt int64
			status    string
		)
		if err := rows.Scan(&e.ID, &e.Description, &e.Amount, &e.PayerID, &createdAt, &status); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		e.CreatedAt = fromUnix(createdAt)
		e.Status = models.ExpenseStatus(status)
		e.SplitWith = models.NewIDSet()
		e.Approvals = models.NewIDSet()
		e.DeletionApprovals = models.NewIDSet()
		index[e.ID] = len(expenses)
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	memberRows, err := q.QueryContext(ctx,
		"SELECT expense_id, member_id, role FROM expense_members WHERE group_id = ?",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense members: %w", err)
	}
	defer memberRows.Close()

	for memberRows.Next() {
		var expenseID, memberID, role string
		if err := memberRows.Scan(&expenseID, &memberID, &role); err != nil {
			return nil, fmt.Errorf("failed to scan expense member: %w", err)
		}
		i, ok := index[expenseID]
		if !ok {
			continue
		}
		switch role {
		case roleSplit:
			expenses[i].SplitWith.Add(memberID)
		case roleApproval:
			expenses[i].Approvals.Add(memberID)
		case roleDeletion:
			expenses[i].DeletionApprovals.Add(memberID)
		default:
			return nil, fmt.Errorf("unknown expense member role %q", role)
		}
	}
	if err := memberRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expense members: %w", err)
	}
	return expenses, nil
}
