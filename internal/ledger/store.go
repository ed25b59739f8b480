package ledger

import (
	"fmt"
	"time"

	"github.com/mmynk/expensekey/internal/models"
)

// store is the canonical in-memory state of one group.
//
// Members and expenses are indexed by id; the order slices keep join order and
// newest-first order respectively. Only the group's worker touches a store, and it
// only ever mutates a private clone that replaces the original on commit.
type store struct {
	id             string
	name           string
	createdAt      time.Time
	joinKeyHash    string
	nextActivityID int64

	members     map[string]*models.Member
	memberOrder []string

	expenses     map[string]*models.Expense
	expenseOrder []string // newest first

	activity []models.ActivityEntry // newest first
}

// newStore indexes a persisted group. The group is copied, not retained.
func newStore(g *models.Group) (*store, error) {
	if g == nil || g.ID == "" {
		return nil, fmt.Errorf("group has no id")
	}
	st := &store{
		id:             g.ID,
		name:           g.Name,
		createdAt:      g.CreatedAt,
		joinKeyHash:    g.JoinKeyHash,
		nextActivityID: g.NextActivityID,
		members:        make(map[string]*models.Member, len(g.Members)),
		memberOrder:    make([]string, 0, len(g.Members)),
		expenses:       make(map[string]*models.Expense, len(g.Expenses)),
		expenseOrder:   make([]string, 0, len(g.Expenses)),
		activity:       append([]models.ActivityEntry(nil), g.Activity...),
	}
	for _, m := range g.Members {
		if _, dup := st.members[m.ID]; dup || m.ID == "" {
			return nil, fmt.Errorf("group %s: invalid or duplicate member id %q", g.ID, m.ID)
		}
		c := m.Clone()
		st.members[m.ID] = &c
		st.memberOrder = append(st.memberOrder, m.ID)
	}
	for _, e := range g.Expenses {
		if _, dup := st.expenses[e.ID]; dup || e.ID == "" {
			return nil, fmt.Errorf("group %s: invalid or duplicate expense id %q", g.ID, e.ID)
		}
		c := e.Clone()
		st.expenses[e.ID] = &c
		st.expenseOrder = append(st.expenseOrder, e.ID)
	}
	for _, a := range st.activity {
		if a.ID >= st.nextActivityID {
			st.nextActivityID = a.ID + 1
		}
	}
	return st, nil
}

// clone returns an independent working copy.
func (st *store) clone() *store {
	out := *st
	out.members = make(map[string]*models.Member, len(st.members))
	for id, m := range st.members {
		c := m.Clone()
		out.members[id] = &c
	}
	out.memberOrder = append([]string(nil), st.memberOrder...)
	out.expenses = make(map[string]*models.Expense, len(st.expenses))
	for id, e := range st.expenses {
		c := e.Clone()
		out.expenses[id] = &c
	}
	out.expenseOrder = append([]string(nil), st.expenseOrder...)
	out.activity = append([]models.ActivityEntry(nil), st.activity...)
	return &out
}

// toGroup flattens the store into a fresh persisted aggregate.
func (st *store) toGroup() *models.Group {
	g := &models.Group{
		ID:             st.id,
		Name:           st.name,
		CreatedAt:      st.createdAt,
		JoinKeyHash:    st.joinKeyHash,
		NextActivityID: st.nextActivityID,
		Members:        make([]models.Member, 0, len(st.memberOrder)),
		Expenses:       make([]models.Expense, 0, len(st.expenseOrder)),
		Activity:       append([]models.ActivityEntry(nil), st.activity...),
	}
	for _, id := range st.memberOrder {
		g.Members = append(g.Members, st.members[id].Clone())
	}
	for _, id := range st.expenseOrder {
		g.Expenses = append(g.Expenses, st.expenses[id].Clone())
	}
	return g
}

func (st *store) member(id string) (models.Member, bool) {
	m, ok := st.members[id]
	if !ok {
		return models.Member{}, false
	}
	return m.Clone(), true
}

func (st *store) expense(id string) (models.Expense, bool) {
	e, ok := st.expenses[id]
	if !ok {
		return models.Expense{}, false
	}
	return e.Clone(), true
}

// activeIDs returns active member ids in join order.
func (st *store) activeIDs() []string {
	var ids []string
	for _, id := range st.memberOrder {
		if st.members[id].IsActive() {
			ids = append(ids, id)
		}
	}
	return ids
}

func (st *store) activeCount() int {
	n := 0
	for _, m := range st.members {
		if m.IsActive() {
			n++
		}
	}
	return n
}

// Mutation primitives. Callers hold the group's single-writer slot.

func (st *store) insertExpense(e models.Expense) error {
	if _, exists := st.expenses[e.ID]; exists {
		return fmt.Errorf("expense %s already exists", e.ID)
	}
	c := e.Clone()
	st.expenses[e.ID] = &c
	st.expenseOrder = append([]string{e.ID}, st.expenseOrder...)
	return nil
}

func (st *store) replaceExpense(e models.Expense) error {
	if _, exists := st.expenses[e.ID]; !exists {
		return fmt.Errorf("expense %s not found", e.ID)
	}
	c := e.Clone()
	st.expenses[e.ID] = &c
	return nil
}

func (st *store) removeExpense(id string) error {
	if _, exists := st.expenses[id]; !exists {
		return fmt.Errorf("expense %s not found", id)
	}
	delete(st.expenses, id)
	for i, eid := range st.expenseOrder {
		if eid == id {
			st.expenseOrder = append(st.expenseOrder[:i:i], st.expenseOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (st *store) insertMember(m models.Member) error {
	if _, exists := st.members[m.ID]; exists {
		return fmt.Errorf("member %s already exists", m.ID)
	}
	c := m.Clone()
	st.members[m.ID] = &c
	st.memberOrder = append(st.memberOrder, m.ID)
	return nil
}

func (st *store) replaceMember(m models.Member) error {
	if _, exists := st.members[m.ID]; !exists {
		return fmt.Errorf("member %s not found", m.ID)
	}
	c := m.Clone()
	st.members[m.ID] = &c
	return nil
}

func (st *store) appendActivity(entry models.ActivityEntry) {
	st.activity = append([]models.ActivityEntry{entry}, st.activity...)
	st.nextActivityID = entry.ID + 1
}
