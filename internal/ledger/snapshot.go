package ledger

import (
	"time"

	"github.com/mmynk/expensekey/internal/calculator"
	"github.com/mmynk/expensekey/internal/models"
)

// Snapshot is an immutable point-in-time view of a group.
// It is safe for concurrent use; every accessor returns copies.
type Snapshot struct {
	group    *models.Group
	members  map[string]int // id -> index in group.Members
	expenses map[string]int // id -> index in group.Expenses
}

func newSnapshot(g *models.Group) *Snapshot {
	s := &Snapshot{
		group:    g,
		members:  make(map[string]int, len(g.Members)),
		expenses: make(map[string]int, len(g.Expenses)),
	}
	for i, m := range g.Members {
		s.members[m.ID] = i
	}
	for i, e := range g.Expenses {
		s.expenses[e.ID] = i
	}
	return s
}

func (s *Snapshot) ID() string           { return s.group.ID }
func (s *Snapshot) Name() string         { return s.group.Name }
func (s *Snapshot) CreatedAt() time.Time { return s.group.CreatedAt }
func (s *Snapshot) JoinKeyHash() string  { return s.group.JoinKeyHash }

// Group returns a deep copy of the whole aggregate.
func (s *Snapshot) Group() *models.Group {
	return s.group.Clone()
}

// Members returns the members in join order.
func (s *Snapshot) Members() []models.Member {
	out := make([]models.Member, len(s.group.Members))
	for i, m := range s.group.Members {
		out[i] = m.Clone()
	}
	return out
}

func (s *Snapshot) Member(id string) (models.Member, bool) {
	i, ok := s.members[id]
	if !ok {
		return models.Member{}, false
	}
	return s.group.Members[i].Clone(), true
}

// Expenses returns the expenses, newest first.
func (s *Snapshot) Expenses() []models.Expense {
	out := make([]models.Expense, len(s.group.Expenses))
	for i, e := range s.group.Expenses {
		out[i] = e.Clone()
	}
	return out
}

func (s *Snapshot) Expense(id string) (models.Expense, bool) {
	i, ok := s.expenses[id]
	if !ok {
		return models.Expense{}, false
	}
	return s.group.Expenses[i].Clone(), true
}

// Activity returns the audit log, newest first.
func (s *Snapshot) Activity() []models.ActivityEntry {
	return append([]models.ActivityEntry(nil), s.group.Activity...)
}

// Balances computes each member's net position from approved expenses.
func (s *Snapshot) Balances() (map[string]int64, error) {
	return calculator.ComputeBalances(s.group.Members, s.group.Expenses)
}

// MemberStats returns paid / share / net totals per member, in join order.
func (s *Snapshot) MemberStats() ([]calculator.MemberStats, error) {
	return calculator.ComputeMemberStats(s.group.Members, s.group.Expenses)
}
