package models

import "time"

// Group represents one shared ledger.
//
// This is the persisted aggregate: storage backends load and save it whole.
type Group struct {
	// ID is the unique identifier for the group. Doubles as the shareable group key.
	ID string `json:"id"`

	// Name is the display name of the group (e.g., "Mountain Cabin Trip").
	Name string `json:"name"`

	// CreatedAt is when the group was created.
	CreatedAt time.Time `json:"createdAt"`

	// JoinKeyHash is the bcrypt hash of the join key handed out at creation.
	JoinKeyHash string `json:"joinKeyHash,omitempty"`

	// NextActivityID is the sequence number for the next activity entry.
	NextActivityID int64 `json:"nextActivityId"`

	// Members in join order.
	Members []Member `json:"members"`

	// Expenses, newest first.
	Expenses []Expense `json:"expenses"`

	// Activity is the audit log, newest first. Append-only.
	Activity []ActivityEntry `json:"activity"`
}

// Clone returns a deep copy of the group.
func (g *Group) Clone() *Group {
	if g == nil {
		return nil
	}
	out := *g
	out.Members = make([]Member, len(g.Members))
	for i, m := range g.Members {
		out.Members[i] = m.Clone()
	}
	out.Expenses = make([]Expense, len(g.Expenses))
	for i, e := range g.Expenses {
		out.Expenses[i] = e.Clone()
	}
	// Entries are immutable values, a shallow copy of the slice is enough.
	out.Activity = append([]ActivityEntry(nil), g.Activity...)
	return &out
}

// ActiveCount returns the number of active members.
func (g *Group) ActiveCount() int {
	n := 0
	for _, m := range g.Members {
		if m.IsActive() {
			n++
		}
	}
	return n
}
