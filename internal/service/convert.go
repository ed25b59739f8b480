package service

import (
	"github.com/mmynk/expensekey/internal/ledger"
	"github.com/mmynk/expensekey/internal/models"
	"github.com/mmynk/expensekey/pkg/api"
)

func toAPIGroup(snap *ledger.Snapshot) *api.Group {
	if snap == nil {
		return nil
	}
	members := snap.Members()
	expenses := snap.Expenses()
	activity := snap.Activity()

	g := &api.Group{
		ID:        snap.ID(),
		Name:      snap.Name(),
		CreatedAt: snap.CreatedAt(),
		Members:   make([]api.Member, len(members)),
		Expenses:  make([]api.Expense, len(expenses)),
		Activity:  make([]api.ActivityEntry, len(activity)),
	}
	for i, m := range members {
		g.Members[i] = api.Member{
			ID:        m.ID,
			Name:      m.Name,
			AvatarURL: m.AvatarURL,
			Status:    string(m.Status),
			Approvals: m.Approvals.Sorted(),
		}
	}
	for i, e := range expenses {
		g.Expenses[i] = api.Expense{
			ID:                e.ID,
			Description:       e.Description,
			Amount:            e.Amount,
			PayerID:           e.PayerID,
			CreatedAt:         e.CreatedAt,
			Status:            string(e.Status),
			SplitWith:         e.SplitWith.Sorted(),
			Approvals:         e.Approvals.Sorted(),
			DeletionApprovals: e.DeletionApprovals.Sorted(),
		}
	}
	for i, a := range activity {
		g.Activity[i] = api.ActivityEntry{
			ID:        a.ID,
			Text:      a.Text,
			Timestamp: a.Timestamp,
			Actor: api.Actor{
				MemberID:  a.Actor.MemberID,
				Name:      a.Actor.Name,
				AvatarURL: a.Actor.AvatarURL,
			},
		}
	}
	return g
}

func toAPISettlements(settlements []models.Settlement) []api.Settlement {
	out := make([]api.Settlement, len(settlements))
	for i, s := range settlements {
		out[i] = api.Settlement{
			FromMemberID: s.FromMemberID,
			ToMemberID:   s.ToMemberID,
			Amount:       s.Amount,
		}
	}
	return out
}
