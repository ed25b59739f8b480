package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"

	"github.com/mmynk/expensekey/internal/models"
	"github.com/mmynk/expensekey/internal/storage/memory"
)

var testTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// testLedger is a gateway with one group whose founder is Alice.
type testLedger struct {
	t     *testing.T
	gw    *Gateway
	mem   *memory.Store
	group string
	ids   map[string]string // display name -> member id
}

func newTestLedger(t *testing.T, opts ...Option) *testLedger {
	t.Helper()

	var seq atomic.Int64
	mem := memory.New()
	base := []Option{
		WithIDGenerator(func() string { return fmt.Sprintf("id-%03d", seq.Add(1)) }),
		WithClock(func() time.Time { return testTime }),
	}
	gw := NewGateway(mem, append(base, opts...)...)
	t.Cleanup(func() { gw.Close() })

	snap, err := gw.CreateGroup(context.Background(), "Mountain Cabin Trip", "Alice", "", "")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	return &testLedger{
		t:     t,
		gw:    gw,
		mem:   mem,
		group: snap.ID(),
		ids:   map[string]string{"Alice": snap.Members()[0].ID},
	}
}

func (tl *testLedger) apply(actor string, intent Intent) (*Result, error) {
	return tl.gw.Apply(context.Background(), tl.group, tl.ids[actor], intent)
}

func (tl *testLedger) mustApply(actor string, intent Intent) *Result {
	tl.t.Helper()
	res, err := tl.apply(actor, intent)
	if err != nil {
		tl.t.Fatalf("%s by %s failed: %v", intent.Name(), actor, err)
	}
	return res
}

func (tl *testLedger) snapshot() *Snapshot {
	tl.t.Helper()
	snap, err := tl.gw.Snapshot(context.Background(), tl.group)
	if err != nil {
		tl.t.Fatalf("Snapshot failed: %v", err)
	}
	return snap
}

// addPending has Alice add a pending member.
func (tl *testLedger) addPending(name string) string {
	tl.t.Helper()
	res := tl.mustApply("Alice", AddMember{DisplayName: name})
	tl.ids[name] = res.CreatedID
	return res.CreatedID
}

// admit adds a member and has every active member approve them.
func (tl *testLedger) admit(name string) string {
	tl.t.Helper()
	id := tl.addPending(name)
	for _, m := range tl.snapshot().Members() {
		if !m.IsActive() {
			continue
		}
		if _, err := tl.gw.Apply(context.Background(), tl.group, m.ID, ApproveMember{MemberID: id}); err != nil {
			tl.t.Fatalf("ApproveMember by %s failed: %v", m.Name, err)
		}
	}
	if m, _ := tl.snapshot().Member(id); !m.IsActive() {
		tl.t.Fatalf("%s not admitted", name)
	}
	return id
}

// threeMembers returns a ledger with active members Alice, Bob and Carol.
func threeMembers(t *testing.T, opts ...Option) *testLedger {
	t.Helper()
	tl := newTestLedger(t, opts...)
	tl.admit("Bob")
	tl.admit("Carol")
	return tl
}

func activityTexts(snap *Snapshot) []string {
	var out []string
	for _, a := range snap.Activity() {
		out = append(out, a.Actor.Name+" "+a.Text)
	}
	return out
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s (%v)", kind, got, err)
	}
}

func TestCreateGroup(t *testing.T) {
	tl := newTestLedger(t)
	snap := tl.snapshot()

	if snap.Name() != "Mountain Cabin Trip" {
		t.Errorf("expected name 'Mountain Cabin Trip', got %q", snap.Name())
	}
	members := snap.Members()
	if len(members) != 1 || !members[0].IsActive() {
		t.Fatalf("expected one active founder, got %+v", members)
	}
	activity := snap.Activity()
	if len(activity) != 1 {
		t.Fatalf("expected 1 activity entry, got %d", len(activity))
	}
	if activity[0].Text != `created the group "Mountain Cabin Trip"` {
		t.Errorf("unexpected activity text %q", activity[0].Text)
	}
	if !activity[0].Timestamp.Equal(testTime) {
		t.Errorf("expected timestamp %v, got %v", testTime, activity[0].Timestamp)
	}

	if _, err := tl.mem.LoadGroup(context.Background(), tl.group); err != nil {
		t.Errorf("group was not saved: %v", err)
	}
}

func TestCreateGroupValidation(t *testing.T) {
	gw := NewGateway(memory.New())
	defer gw.Close()

	tests := []struct {
		name    string
		group   string
		founder string
		avatar  string
	}{
		{name: "empty group name", group: "  ", founder: "Alice"},
		{name: "empty founder", group: "Trip", founder: ""},
		{name: "bad avatar", group: "Trip", founder: "Alice", avatar: "not a url"},
		{name: "ftp avatar", group: "Trip", founder: "Alice", avatar: "ftp://example.com/a.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gw.CreateGroup(context.Background(), tt.group, tt.founder, tt.avatar, "")
			requireKind(t, err, KindValidation)
		})
	}
}

func TestExpenseApprovalFlow(t *testing.T) {
	tl := threeMembers(t)

	res := tl.mustApply("Alice", AddExpense{
		Description: "Cabin Rental",
		Amount:      30000,
		PayerID:     tl.ids["Alice"],
	})
	expenseID := res.CreatedID

	e, ok := res.Snapshot.Expense(expenseID)
	if !ok {
		t.Fatal("expected expense in snapshot")
	}
	if e.Status != models.ExpensePending {
		t.Errorf("expected pending, got %s", e.Status)
	}
	if e.SplitWith.Len() != 3 {
		t.Errorf("expected split across all 3 active members, got %v", e.SplitWith.Sorted())
	}
	if !e.Approvals.Has(tl.ids["Alice"]) || e.Approvals.Len() != 1 {
		t.Errorf("expected only the payer's approval, got %v", e.Approvals.Sorted())
	}
	if got := res.Entries[0].Text; got != `added expense "Cabin Rental" for $300.00` {
		t.Errorf("unexpected activity %q", got)
	}

	// Pending expenses do not move balances.
	balances, err := tl.gw.Balances(context.Background(), tl.group)
	if err != nil {
		t.Fatalf("Balances failed: %v", err)
	}
	for id, b := range balances {
		if b != 0 {
			t.Errorf("expected zero balance for %s while pending, got %d", id, b)
		}
	}

	res = tl.mustApply("Bob", ApproveExpense{ExpenseID: expenseID})
	if e, _ := res.Snapshot.Expense(expenseID); e.Status != models.ExpensePending {
		t.Errorf("expected still pending after 2 of 3, got %s", e.Status)
	}
	if got := res.Entries[0].Text; got != `approved expense "Cabin Rental"` {
		t.Errorf("unexpected activity %q", got)
	}

	res = tl.mustApply("Carol", ApproveExpense{ExpenseID: expenseID})
	if e, _ := res.Snapshot.Expense(expenseID); e.Status != models.ExpenseApproved {
		t.Errorf("expected approved after 3 of 3, got %s", e.Status)
	}
	if got := res.Entries[0].Text; got != `fully approved expense "Cabin Rental"` {
		t.Errorf("unexpected activity %q", got)
	}

	balances, err = res.Snapshot.Balances()
	if err != nil {
		t.Fatalf("Balances failed: %v", err)
	}
	want := map[string]int64{
		tl.ids["Alice"]: 20000,
		tl.ids["Bob"]:   -10000,
		tl.ids["Carol"]: -10000,
	}
	for id, amount := range want {
		if balances[id] != amount {
			t.Errorf("balance for %s: expected %d, got %d", id, amount, balances[id])
		}
	}
}

func TestUnevenSplitRemainder(t *testing.T) {
	tl := threeMembers(t)
	res := tl.mustApply("Alice", AddExpense{Description: "Snacks", Amount: 100, PayerID: tl.ids["Alice"]})
	tl.mustApply("Bob", ApproveExpense{ExpenseID: res.CreatedID})
	res = tl.mustApply("Carol", ApproveExpense{ExpenseID: res.CreatedID})

	balances, err := res.Snapshot.Balances()
	if err != nil {
		t.Fatalf("Balances failed: %v", err)
	}
	if balances[tl.ids["Alice"]] != 66 || balances[tl.ids["Bob"]] != -33 || balances[tl.ids["Carol"]] != -33 {
		t.Errorf("unexpected balances %v", balances)
	}
}

func TestSoloExpenseApprovedImmediately(t *testing.T) {
	tl := threeMembers(t)
	res := tl.mustApply("Bob", AddExpense{
		Description: "Gas",
		Amount:      4500,
		PayerID:     tl.ids["Bob"],
		SplitWith:   []string{tl.ids["Bob"]},
	})

	e, _ := res.Snapshot.Expense(res.CreatedID)
	if e.Status != models.ExpenseApproved {
		t.Errorf("expected approved, got %s", e.Status)
	}
	if len(res.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(res.Entries))
	}
	if res.Entries[0].Text != `added expense "Gas" for $45.00` || res.Entries[1].Text != `fully approved expense "Gas"` {
		t.Errorf("unexpected entries %+v", res.Entries)
	}
}

func TestApproveExpenseIsIdempotent(t *testing.T) {
	tl := threeMembers(t)
	res := tl.mustApply("Alice", AddExpense{Description: "Dinner", Amount: 9000, PayerID: tl.ids["Alice"]})
	expenseID := res.CreatedID

	first := tl.mustApply("Bob", ApproveExpense{ExpenseID: expenseID})
	second := tl.mustApply("Bob", ApproveExpense{ExpenseID: expenseID})
	if !first.Changed {
		t.Error("expected first approval to change the group")
	}
	if second.Changed {
		t.Error("expected duplicate approval to be a no-op")
	}
	if second.Snapshot != first.Snapshot {
		t.Error("expected no-op to return the current snapshot")
	}
	if len(second.Snapshot.Activity()) != len(first.Snapshot.Activity()) {
		t.Error("duplicate approval recorded activity")
	}

	// The payer approved at creation.
	payer := tl.mustApply("Alice", ApproveExpense{ExpenseID: expenseID})
	if payer.Changed {
		t.Error("expected payer approval to be a no-op")
	}
}

func TestConcurrentDuplicateApprovalsCountOnce(t *testing.T) {
	tl := threeMembers(t)
	res := tl.mustApply("Alice", AddExpense{Description: "Groceries", Amount: 6000, PayerID: tl.ids["Alice"]})

	var (
		wg      sync.WaitGroup
		changed atomic.Int32
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := tl.apply("Bob", ApproveExpense{ExpenseID: res.CreatedID})
			if err != nil {
				t.Errorf("ApproveExpense failed: %v", err)
				return
			}
			if r.Changed {
				changed.Add(1)
			}
		}()
	}
	wg.Wait()

	if changed.Load() != 1 {
		t.Errorf("expected exactly one effective approval, got %d", changed.Load())
	}
	e, _ := tl.snapshot().Expense(res.CreatedID)
	if e.Approvals.Len() != 2 {
		t.Errorf("expected 2 approvals, got %v", e.Approvals.Sorted())
	}
}

func TestRejectedIntentsLeaveStateUnchanged(t *testing.T) {
	tl := threeMembers(t)
	res := tl.mustApply("Alice", AddExpense{
		Description: "Tickets",
		Amount:      2000,
		PayerID:     tl.ids["Alice"],
		SplitWith:   []string{tl.ids["Alice"], tl.ids["Bob"]},
	})
	expenseID := res.CreatedID
	res = tl.mustApply("Alice", AddExpense{
		Description: "Parking",
		Amount:      800,
		PayerID:     tl.ids["Alice"],
		SplitWith:   []string{tl.ids["Alice"], tl.ids["Bob"]},
	})
	parkingID := res.CreatedID
	tl.mustApply("Bob", ApproveExpense{ExpenseID: parkingID})
	tl.mustApply("Alice", RequestExpenseDeletion{ExpenseID: parkingID})
	tl.addPending("Dave")

	tests := []struct {
		name   string
		actor  string
		intent Intent
		kind   Kind
	}{
		{"approve outside split", "Carol", ApproveExpense{ExpenseID: expenseID}, KindForbidden},
		{"approve by pending member", "Dave", ApproveExpense{ExpenseID: expenseID}, KindForbidden},
		{"approve unknown expense", "Bob", ApproveExpense{ExpenseID: "missing"}, KindNotFound},
		{"deletion by non-payer", "Bob", RequestExpenseDeletion{ExpenseID: expenseID}, KindForbidden},
		{"deletion not requested", "Bob", ApproveExpenseDeletion{ExpenseID: expenseID}, KindConflict},
		{"deletion approval outside split", "Carol", ApproveExpenseDeletion{ExpenseID: parkingID}, KindForbidden},
		{"deletion approval by pending member", "Dave", ApproveExpenseDeletion{ExpenseID: parkingID}, KindForbidden},
		{"expense by pending member", "Dave", AddExpense{Description: "x", Amount: 1, PayerID: tl.ids["Dave"]}, KindForbidden},
		{"expense by stranger", "Nobody", AddExpense{Description: "x", Amount: 1, PayerID: tl.ids["Alice"]}, KindForbidden},
		{"pending payer", "Alice", AddExpense{Description: "x", Amount: 1, PayerID: tl.ids["Dave"]}, KindValidation},
		{"unknown payer", "Alice", AddExpense{Description: "x", Amount: 1, PayerID: "ghost"}, KindNotFound},
		{"split with pending member", "Alice", AddExpense{Description: "x", Amount: 1, PayerID: tl.ids["Alice"], SplitWith: []string{tl.ids["Alice"], tl.ids["Dave"]}}, KindValidation},
		{"payer outside split", "Alice", AddExpense{Description: "x", Amount: 1, PayerID: tl.ids["Alice"], SplitWith: []string{tl.ids["Bob"]}}, KindValidation},
		{"zero amount", "Alice", AddExpense{Description: "x", Amount: 0, PayerID: tl.ids["Alice"]}, KindValidation},
		{"amount above maximum", "Alice", AddExpense{Description: "x", Amount: models.MaxAmount + 1, PayerID: tl.ids["Alice"]}, KindValidation},
		{"blank description", "Alice", AddExpense{Description: " ", Amount: 5, PayerID: tl.ids["Alice"]}, KindValidation},
		{"empty split", "Alice", AddExpense{Description: "x", Amount: 5, PayerID: tl.ids["Alice"], SplitWith: []string{}}, KindValidation},
		{"add member by pending member", "Dave", AddMember{DisplayName: "Eve"}, KindForbidden},
		{"approve member by pending member", "Dave", ApproveMember{MemberID: tl.ids["Dave"]}, KindForbidden},
		{"approve unknown member", "Alice", ApproveMember{MemberID: "ghost"}, KindNotFound},
		{"profile of stranger", "Nobody", UpdateProfile{DisplayName: ptr("Eve")}, KindForbidden},
		{"empty profile update", "Alice", UpdateProfile{}, KindValidation},
		{"blank profile name", "Alice", UpdateProfile{DisplayName: ptr("  ")}, KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tl.snapshot()
			_, err := tl.apply(tt.actor, tt.intent)
			requireKind(t, err, tt.kind)
			if after := tl.snapshot(); after != before {
				t.Error("rejected intent published a new snapshot")
			}
		})
	}
}

func TestPendingMemberCanUpdateProfile(t *testing.T) {
	tl := newTestLedger(t)
	daveID := tl.addPending("Dave")

	res := tl.mustApply("Dave", UpdateProfile{DisplayName: ptr("David")})
	if !res.Changed {
		t.Fatal("expected profile update to change state")
	}
	for _, m := range res.Snapshot.Members() {
		if m.ID != daveID {
			continue
		}
		if m.Name != "David" {
			t.Errorf("expected name David, got %q", m.Name)
		}
		if m.Status != models.MemberPending {
			t.Errorf("expected member to stay pending, got %s", m.Status)
		}
		return
	}
	t.Fatal("pending member missing from snapshot")
}

func TestExpenseDeletionFlow(t *testing.T) {
	tl := threeMembers(t)
	res := tl.mustApply("Alice", AddExpense{Description: "Cabin Rental", Amount: 30000, PayerID: tl.ids["Alice"]})
	expenseID := res.CreatedID
	tl.mustApply("Bob", ApproveExpense{ExpenseID: expenseID})

	res = tl.mustApply("Alice", RequestExpenseDeletion{ExpenseID: expenseID})
	e, _ := res.Snapshot.Expense(expenseID)
	if e.Status != models.ExpenseDeletionRequested {
		t.Fatalf("expected deletion-requested, got %s", e.Status)
	}
	if !e.DeletionApprovals.Has(tl.ids["Alice"]) || e.DeletionApprovals.Len() != 1 {
		t.Errorf("expected requester's deletion approval, got %v", e.DeletionApprovals.Sorted())
	}

	_, err := tl.apply("Alice", RequestExpenseDeletion{ExpenseID: expenseID})
	requireKind(t, err, KindConflict)

	// Carol has not approved the expense itself and cannot while deletion is pending.
	_, err = tl.apply("Carol", ApproveExpense{ExpenseID: expenseID})
	requireKind(t, err, KindConflict)
	if r := tl.mustApply("Bob", ApproveExpense{ExpenseID: expenseID}); r.Changed {
		t.Error("expected Bob's repeated approval to be a no-op")
	}

	res = tl.mustApply("Bob", ApproveExpenseDeletion{ExpenseID: expenseID})
	if _, ok := res.Snapshot.Expense(expenseID); !ok {
		t.Fatal("expense removed before every member approved")
	}
	if res.Entries[0].Text != `approved deletion for "Cabin Rental"` {
		t.Errorf("unexpected activity %q", res.Entries[0].Text)
	}
	if r := tl.mustApply("Bob", ApproveExpenseDeletion{ExpenseID: expenseID}); r.Changed {
		t.Error("expected duplicate deletion approval to be a no-op")
	}

	res = tl.mustApply("Carol", ApproveExpenseDeletion{ExpenseID: expenseID})
	if _, ok := res.Snapshot.Expense(expenseID); ok {
		t.Fatal("expected expense to be removed")
	}
	if res.Entries[0].Text != `deleted expense "Cabin Rental"` {
		t.Errorf("unexpected activity %q", res.Entries[0].Text)
	}

	_, err = tl.apply("Carol", ApproveExpenseDeletion{ExpenseID: expenseID})
	requireKind(t, err, KindNotFound)

	texts := activityTexts(res.Snapshot)
	if texts[0] != `Carol deleted expense "Cabin Rental"` || texts[2] != `Alice requested to delete "Cabin Rental"` {
		t.Errorf("unexpected activity log %q", texts[:3])
	}
}

func TestSoloExpenseDeletedOnRequest(t *testing.T) {
	tl := threeMembers(t)
	res := tl.mustApply("Bob", AddExpense{
		Description: "Gas",
		Amount:      4500,
		PayerID:     tl.ids["Bob"],
		SplitWith:   []string{tl.ids["Bob"]},
	})

	res = tl.mustApply("Bob", RequestExpenseDeletion{ExpenseID: res.CreatedID})
	if len(res.Snapshot.Expenses()) != 0 {
		t.Fatal("expected solo expense to be deleted immediately")
	}
	if len(res.Entries) != 2 || res.Entries[1].Text != `deleted expense "Gas"` {
		t.Errorf("unexpected entries %+v", res.Entries)
	}
}

func TestMemberAdmissionUsesCurrentActiveCount(t *testing.T) {
	tl := newTestLedger(t)
	tl.admit("Bob")
	dave := tl.addPending("Dave")
	eve := tl.addPending("Eve")

	tl.mustApply("Alice", ApproveMember{MemberID: dave})
	tl.mustApply("Alice", ApproveMember{MemberID: eve})
	res := tl.mustApply("Bob", ApproveMember{MemberID: dave})
	if m, _ := res.Snapshot.Member(dave); !m.IsActive() {
		t.Fatal("expected Dave to be admitted by both active members")
	}
	if res.Entries[0].Text != `admitted "Dave" to the group` {
		t.Errorf("unexpected activity %q", res.Entries[0].Text)
	}

	// Dave's admission raised the bar for Eve to three approvals.
	res = tl.mustApply("Bob", ApproveMember{MemberID: eve})
	if m, _ := res.Snapshot.Member(eve); m.IsActive() {
		t.Fatal("expected Eve to stay pending with 2 of 3 approvals")
	}
	if res.Entries[0].Text != `approved "Eve" joining the group` {
		t.Errorf("unexpected activity %q", res.Entries[0].Text)
	}

	res = tl.mustApply("Dave", ApproveMember{MemberID: eve})
	if m, _ := res.Snapshot.Member(eve); !m.IsActive() {
		t.Fatal("expected Eve to be admitted")
	}

	if r := tl.mustApply("Alice", ApproveMember{MemberID: eve}); r.Changed {
		t.Error("expected approving an active member to be a no-op")
	}
}

func TestSelfJoinRequest(t *testing.T) {
	tl := newTestLedger(t)

	res, err := tl.gw.Apply(context.Background(), tl.group, "", AddMember{DisplayName: "Frank"})
	if err != nil {
		t.Fatalf("self join failed: %v", err)
	}
	m, ok := res.Snapshot.Member(res.CreatedID)
	if !ok || m.Status != models.MemberPending {
		t.Fatalf("expected pending member, got %+v", m)
	}
	entry := res.Entries[0]
	if entry.Text != "requested to join the group" || entry.Actor.MemberID != res.CreatedID {
		t.Errorf("unexpected entry %+v", entry)
	}
}

func TestAddMemberByActiveMember(t *testing.T) {
	tl := newTestLedger(t)
	res := tl.mustApply("Alice", AddMember{DisplayName: "Bob", AvatarURL: "https://example.com/bob.png"})
	if res.Entries[0].Text != `added "Bob" to the group` || res.Entries[0].Actor.Name != "Alice" {
		t.Errorf("unexpected entry %+v", res.Entries[0])
	}
	m, _ := res.Snapshot.Member(res.CreatedID)
	if m.AvatarURL != "https://example.com/bob.png" || m.IsActive() {
		t.Errorf("unexpected member %+v", m)
	}
}

func TestUpdateProfileKeepsActivityFrozen(t *testing.T) {
	tl := newTestLedger(t)
	tl.admit("Bob")
	tl.mustApply("Bob", AddMember{DisplayName: "Carol"})

	res := tl.mustApply("Bob", UpdateProfile{DisplayName: ptr("Robert"), AvatarURL: ptr("https://example.com/r.png")})
	if !res.Changed || res.Entries[0].Text != "updated their profile" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Entries[0].Actor.Name != "Robert" {
		t.Errorf("expected entry to carry the new name, got %q", res.Entries[0].Actor.Name)
	}

	m, _ := res.Snapshot.Member(tl.ids["Bob"])
	if m.Name != "Robert" || m.AvatarURL != "https://example.com/r.png" {
		t.Errorf("profile not updated: %+v", m)
	}

	// Entries written before the change keep the old name.
	var older []string
	for _, a := range res.Snapshot.Activity()[1:] {
		if a.Actor.MemberID == tl.ids["Bob"] {
			older = append(older, a.Actor.Name)
		}
	}
	if len(older) == 0 {
		t.Fatal("expected earlier entries by Bob")
	}
	for _, name := range older {
		if name != "Bob" {
			t.Errorf("historical entry rewritten to %q", name)
		}
	}

	if r := tl.mustApply("Bob", UpdateProfile{DisplayName: ptr("Robert")}); r.Changed {
		t.Error("expected unchanged profile to be a no-op")
	}
}

func TestSaveFailureRollsBack(t *testing.T) {
	tl := threeMembers(t)
	before := tl.snapshot()

	errDisk := errors.New("disk full")
	tl.mem.SetSaveHook(func(*models.Group) error { return errDisk })

	_, err := tl.apply("Alice", AddExpense{Description: "Lost", Amount: 100, PayerID: tl.ids["Alice"]})
	if !errors.Is(err, ErrSaveFailed) || !errors.Is(err, errDisk) {
		t.Fatalf("expected save failure, got %v", err)
	}
	if tl.snapshot() != before {
		t.Fatal("failed save published a new snapshot")
	}

	tl.mem.SetSaveHook(nil)
	res := tl.mustApply("Alice", AddExpense{Description: "Kept", Amount: 100, PayerID: tl.ids["Alice"]})
	if len(res.Snapshot.Expenses()) != 1 {
		t.Errorf("expected only the second expense, got %d", len(res.Snapshot.Expenses()))
	}
	// Activity ids stay dense across the rollback.
	activity := res.Snapshot.Activity()
	if activity[0].ID != activity[1].ID+1 {
		t.Errorf("activity ids not consecutive: %d after %d", activity[0].ID, activity[1].ID)
	}
}

func TestReloadFromStore(t *testing.T) {
	tl := threeMembers(t)
	res := tl.mustApply("Alice", AddExpense{Description: "Cabin Rental", Amount: 30000, PayerID: tl.ids["Alice"]})
	want := res.Snapshot

	gw := NewGateway(tl.mem)
	defer gw.Close()
	got, err := gw.Snapshot(context.Background(), tl.group)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(got.Members()) != 3 || len(got.Expenses()) != 1 || len(got.Activity()) != len(want.Activity()) {
		t.Errorf("reloaded group differs: members=%d expenses=%d activity=%d",
			len(got.Members()), len(got.Expenses()), len(got.Activity()))
	}

	// New entries continue the sequence.
	r, err := gw.Apply(context.Background(), tl.group, tl.ids["Bob"], ApproveExpense{ExpenseID: res.CreatedID})
	if err != nil {
		t.Fatalf("ApproveExpense failed: %v", err)
	}
	if r.Entries[0].ID != want.Activity()[0].ID+1 {
		t.Errorf("expected activity id %d, got %d", want.Activity()[0].ID+1, r.Entries[0].ID)
	}
}

func TestUnknownGroup(t *testing.T) {
	gw := NewGateway(memory.New())
	defer gw.Close()

	_, err := gw.Snapshot(context.Background(), "missing")
	requireKind(t, err, KindNotFound)
	_, err = gw.Apply(context.Background(), "missing", "a", ApproveExpense{ExpenseID: "e"})
	requireKind(t, err, KindNotFound)
}

func TestApplyAfterClose(t *testing.T) {
	tl := newTestLedger(t)
	tl.gw.Close()

	_, err := tl.apply("Alice", AddMember{DisplayName: "Bob"})
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestCreateGroupAfterClose(t *testing.T) {
	mem := memory.New()
	gw := NewGateway(mem)
	gw.Close()

	_, err := gw.CreateGroup(context.Background(), "Late Group", "Alice", "", "")
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	ids, err := mem.ListGroupIDs(context.Background())
	if err != nil {
		t.Fatalf("ListGroupIDs failed: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected nothing persisted after close, got %v", ids)
	}
}

func TestCloseStopsWorkers(t *testing.T) {
	defer goleak.VerifyNone(t)

	gw := NewGateway(memory.New())
	var groups []string
	for i := range 5 {
		snap, err := gw.CreateGroup(context.Background(), fmt.Sprintf("group %d", i), "Alice", "", "")
		if err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		groups = append(groups, snap.ID())
	}

	var wg sync.WaitGroup
	for _, id := range groups {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Races Close; either outcome is fine as long as nothing hangs.
			_, _ = gw.Apply(context.Background(), id, "nobody", AddMember{DisplayName: "Bob"})
		}()
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	wg.Wait()
}

func TestCancelledContext(t *testing.T) {
	tl := newTestLedger(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tl.gw.Apply(ctx, tl.group, tl.ids["Alice"], AddMember{DisplayName: "Bob"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(tl.snapshot().Members()) != 1 {
		t.Error("cancelled intent was applied")
	}
}

func TestSettlements(t *testing.T) {
	tl := threeMembers(t)
	res := tl.mustApply("Alice", AddExpense{Description: "Cabin Rental", Amount: 30000, PayerID: tl.ids["Alice"]})
	tl.mustApply("Bob", ApproveExpense{ExpenseID: res.CreatedID})
	tl.mustApply("Carol", ApproveExpense{ExpenseID: res.CreatedID})

	settlements, err := tl.gw.Settlements(context.Background(), tl.group)
	if err != nil {
		t.Fatalf("Settlements failed: %v", err)
	}
	if len(settlements) != 2 {
		t.Fatalf("expected 2 settlements, got %+v", settlements)
	}
	for _, s := range settlements {
		if s.ToMemberID != tl.ids["Alice"] || s.Amount != 10000 {
			t.Errorf("unexpected settlement %+v", s)
		}
	}
}

func TestGatewayMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	tl := threeMembers(t, WithPromRegistry(reg))

	res := tl.mustApply("Alice", AddExpense{Description: "Dinner", Amount: 9000, PayerID: tl.ids["Alice"]})
	tl.mustApply("Bob", ApproveExpense{ExpenseID: res.CreatedID})
	tl.mustApply("Bob", ApproveExpense{ExpenseID: res.CreatedID})
	_, _ = tl.apply("Carol", RequestExpenseDeletion{ExpenseID: res.CreatedID})

	m := tl.gw.metrics
	if got := testutil.ToFloat64(m.intents.WithLabelValues(opApproveExpense, outcomeCommitted)); got != 1 {
		t.Errorf("expected 1 committed approval, got %v", got)
	}
	if got := testutil.ToFloat64(m.intents.WithLabelValues(opApproveExpense, outcomeNoop)); got != 1 {
		t.Errorf("expected 1 no-op approval, got %v", got)
	}
	if got := testutil.ToFloat64(m.intents.WithLabelValues(opRequestExpenseDeletion, "forbidden")); got != 1 {
		t.Errorf("expected 1 forbidden deletion request, got %v", got)
	}
	if got := testutil.ToFloat64(m.groupsLoaded); got != 1 {
		t.Errorf("expected 1 loaded group, got %v", got)
	}
}

func ptr[T any](v T) *T {
	return &v
}
