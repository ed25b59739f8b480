package ledger

import (
	"errors"
	"testing"

	"github.com/mmynk/expensekey/internal/models"
)

func testGroup() *models.Group {
	return &models.Group{
		ID:   "g1",
		Name: "Trip",
		Members: []models.Member{
			{ID: "a", Name: "Alice", Status: models.MemberActive, Approvals: models.NewIDSet()},
			{ID: "b", Name: "Bob", Status: models.MemberActive, Approvals: models.NewIDSet("a")},
		},
		Expenses: []models.Expense{
			{
				ID:                "e1",
				Description:       "Dinner",
				Amount:            1000,
				PayerID:           "a",
				Status:            models.ExpensePending,
				Approvals:         models.NewIDSet("a"),
				DeletionApprovals: models.NewIDSet(),
				SplitWith:         models.NewIDSet("a", "b"),
			},
		},
		Activity: []models.ActivityEntry{{ID: 4, Text: "created the group \"Trip\""}},
	}
}

func TestNewStore(t *testing.T) {
	st, err := newStore(testGroup())
	if err != nil {
		t.Fatalf("newStore failed: %v", err)
	}
	if st.nextActivityID != 5 {
		t.Errorf("expected next activity id 5, got %d", st.nextActivityID)
	}
	if st.activeCount() != 2 {
		t.Errorf("expected 2 active members, got %d", st.activeCount())
	}

	dup := testGroup()
	dup.Members = append(dup.Members, dup.Members[0])
	if _, err := newStore(dup); err == nil {
		t.Error("expected duplicate member id to be rejected")
	}
	if _, err := newStore(&models.Group{}); err == nil {
		t.Error("expected group without id to be rejected")
	}
}

func TestStoreCloneIsIndependent(t *testing.T) {
	st, err := newStore(testGroup())
	if err != nil {
		t.Fatalf("newStore failed: %v", err)
	}
	work := st.clone()

	e, _ := work.expense("e1")
	e.Approvals.Add("b")
	if err := work.replaceExpense(e); err != nil {
		t.Fatalf("replaceExpense failed: %v", err)
	}
	if err := work.insertMember(models.Member{ID: "c", Name: "Carol", Status: models.MemberPending}); err != nil {
		t.Fatalf("insertMember failed: %v", err)
	}
	work.appendActivity(models.ActivityEntry{ID: work.nextActivityID, Text: "x"})

	orig, _ := st.expense("e1")
	if orig.Approvals.Has("b") {
		t.Error("clone shares expense approvals with original")
	}
	if _, ok := st.member("c"); ok {
		t.Error("clone shares members with original")
	}
	if len(st.activity) != 1 || st.nextActivityID != 5 {
		t.Error("clone shares activity with original")
	}
}

func TestStoreExpenseOrder(t *testing.T) {
	st, _ := newStore(testGroup())
	if err := st.insertExpense(models.Expense{ID: "e2", SplitWith: models.NewIDSet("a")}); err != nil {
		t.Fatalf("insertExpense failed: %v", err)
	}
	if err := st.insertExpense(models.Expense{ID: "e2"}); err == nil {
		t.Error("expected duplicate expense to be rejected")
	}
	g := st.toGroup()
	if g.Expenses[0].ID != "e2" || g.Expenses[1].ID != "e1" {
		t.Errorf("expected newest first, got %s, %s", g.Expenses[0].ID, g.Expenses[1].ID)
	}

	if err := st.removeExpense("e2"); err != nil {
		t.Fatalf("removeExpense failed: %v", err)
	}
	if err := st.removeExpense("e2"); err == nil {
		t.Error("expected removing a missing expense to fail")
	}
	if len(st.toGroup().Expenses) != 1 {
		t.Error("expected one expense left")
	}
}

func TestCheckExpense(t *testing.T) {
	base := testGroup().Expenses[0]

	tests := []struct {
		name   string
		mutate func(e *models.Expense)
		ok     bool
	}{
		{"valid", func(e *models.Expense) {}, true},
		{"empty split", func(e *models.Expense) { e.SplitWith = models.NewIDSet() }, false},
		{"payer outside split", func(e *models.Expense) { e.PayerID = "z" }, false},
		{"approval outside split", func(e *models.Expense) { e.Approvals.Add("z") }, false},
		{"deletion approval outside split", func(e *models.Expense) { e.DeletionApprovals.Add("z") }, false},
		{"approved below quorum", func(e *models.Expense) { e.Status = models.ExpenseApproved }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := base.Clone()
			tt.mutate(&e)
			err := checkExpense("test", e)
			if tt.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvariantViolation) {
				t.Fatalf("expected invariant violation, got %v", err)
			}
		})
	}
}

func TestLoadExpenseReportsCorruption(t *testing.T) {
	g := testGroup()
	g.Expenses[0].Approvals.Add("stranger")
	st, err := newStore(g)
	if err != nil {
		t.Fatalf("newStore failed: %v", err)
	}
	rec := newRecorder(st, testTime)

	_, err = approveExpense(st, rec, "e1", "b")
	requireKind(t, err, KindInvariantViolation)
	if len(rec.recorded) != 0 {
		t.Error("corrupt expense recorded activity")
	}
}

func TestErrorMatching(t *testing.T) {
	err := forbidden(opApproveExpense, "%s is not part of expense %s", "c", "e1")
	if !errors.Is(err, ErrForbidden) {
		t.Error("expected errors.Is to match ErrForbidden")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("expected errors.Is not to match ErrNotFound")
	}
	if got := err.Error(); got != "ApproveExpense: c is not part of expense e1" {
		t.Errorf("unexpected message %q", got)
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Error("expected KindUnknown for a plain error")
	}
}
