package ledger

import (
	"fmt"

	"github.com/mmynk/expensekey/internal/models"
)

// Intent names, used as error ops, metric labels and log fields.
const (
	opCreateGroup            = "CreateGroup"
	opAddExpense             = "AddExpense"
	opApproveExpense         = "ApproveExpense"
	opRequestExpenseDeletion = "RequestExpenseDeletion"
	opApproveExpenseDeletion = "ApproveExpenseDeletion"
	opAddMember              = "AddMember"
	opApproveMember          = "ApproveMember"
	opUpdateProfile          = "UpdateProfile"
)

// checkExpense verifies the structural invariants of an expense.
// A failure means the ledger is corrupt, not that the caller did something wrong.
func checkExpense(op string, e models.Expense) error {
	if e.SplitWith.Len() == 0 {
		return violation(op, "expense %s has an empty split", e.ID)
	}
	if !e.SplitWith.Has(e.PayerID) {
		return violation(op, "expense %s: payer %s not in split", e.ID, e.PayerID)
	}
	if !e.Approvals.SubsetOf(e.SplitWith) {
		return violation(op, "expense %s: approvals not a subset of split", e.ID)
	}
	if !e.DeletionApprovals.SubsetOf(e.SplitWith) {
		return violation(op, "expense %s: deletion approvals not a subset of split", e.ID)
	}
	if e.Status == models.ExpenseApproved && e.Approvals.Len() != e.Quorum() {
		return violation(op, "expense %s approved below quorum", e.ID)
	}
	return nil
}

// requireActive resolves actorID to an active member.
func requireActive(op string, st *store, actorID string) (models.Member, error) {
	m, ok := st.member(actorID)
	if !ok {
		return models.Member{}, forbidden(op, "%s is not a member of this group", actorID)
	}
	if !m.IsActive() {
		return models.Member{}, forbidden(op, "%s is not an active member", actorID)
	}
	return m, nil
}

// loadExpense fetches an expense and checks its invariants before any transition.
func loadExpense(op string, st *store, expenseID string) (models.Expense, error) {
	e, ok := st.expense(expenseID)
	if !ok {
		return models.Expense{}, notFound(op, "expense %s not found", expenseID)
	}
	if err := checkExpense(op, e); err != nil {
		return models.Expense{}, err
	}
	return e, nil
}

// createExpense inserts a new pending expense, auto-approved by its payer.
// If the payer alone is the quorum the expense is approved immediately.
func createExpense(st *store, rec *recorder, actorID string, e models.Expense) error {
	op := opAddExpense
	if _, err := requireActive(op, st, actorID); err != nil {
		return err
	}

	payer, ok := st.member(e.PayerID)
	if !ok {
		return notFound(op, "payer %s not found", e.PayerID)
	}
	if !payer.IsActive() {
		return invalid(op, "payer %s is not an active member", e.PayerID)
	}

	if e.SplitWith.Len() == 0 {
		e.SplitWith = models.NewIDSet(st.activeIDs()...)
	}
	for _, id := range e.SplitWith.Sorted() {
		m, ok := st.member(id)
		if !ok {
			return notFound(op, "member %s not found", id)
		}
		if !m.IsActive() {
			return invalid(op, "cannot split with pending member %s", id)
		}
	}
	if !e.SplitWith.Has(e.PayerID) {
		return invalid(op, "payer %s must be one of the members splitting the expense", e.PayerID)
	}

	e.Status = models.ExpensePending
	e.Approvals = models.NewIDSet(e.PayerID)
	e.DeletionApprovals = models.NewIDSet()
	fully := e.Approvals.Len() == e.Quorum()
	if fully {
		e.Status = models.ExpenseApproved
	}
	if err := checkExpense(op, e); err != nil {
		return err
	}

	if err := st.insertExpense(e); err != nil {
		return violation(op, "%v", err)
	}
	if _, err := rec.record(actorID, fmt.Sprintf("added expense %q for %s", e.Description, models.FormatAmount(e.Amount))); err != nil {
		return err
	}
	if fully {
		if _, err := rec.record(e.PayerID, fmt.Sprintf("fully approved expense %q", e.Description)); err != nil {
			return err
		}
	}
	return nil
}

// approveExpense adds approverID to the expense's approvals.
// Reports false when the approver had already approved (no-op).
func approveExpense(st *store, rec *recorder, expenseID, approverID string) (bool, error) {
	op := opApproveExpense
	e, err := loadExpense(op, st, expenseID)
	if err != nil {
		return false, err
	}
	if !e.SplitWith.Has(approverID) {
		return false, forbidden(op, "%s is not part of expense %s", approverID, expenseID)
	}
	if e.Approvals.Has(approverID) {
		return false, nil
	}
	if e.Status == models.ExpenseDeletionRequested {
		return false, conflict(op, "expense %s is pending deletion", expenseID)
	}

	e.Approvals.Add(approverID)
	text := fmt.Sprintf("approved expense %q", e.Description)
	if e.Approvals.Len() == e.Quorum() {
		e.Status = models.ExpenseApproved
		text = fmt.Sprintf("fully approved expense %q", e.Description)
	}
	if err := checkExpense(op, e); err != nil {
		return false, err
	}
	if err := st.replaceExpense(e); err != nil {
		return false, violation(op, "%v", err)
	}
	if _, err := rec.record(approverID, text); err != nil {
		return false, err
	}
	return true, nil
}

// requestExpenseDeletion starts the deletion vote. Only the payer may start it.
func requestExpenseDeletion(st *store, rec *recorder, expenseID, requesterID string) error {
	op := opRequestExpenseDeletion
	e, err := loadExpense(op, st, expenseID)
	if err != nil {
		return err
	}
	if requesterID != e.PayerID {
		return forbidden(op, "only the payer can request deletion of expense %s", expenseID)
	}
	if e.Status == models.ExpenseDeletionRequested {
		return conflict(op, "deletion of expense %s already requested", expenseID)
	}

	e.Status = models.ExpenseDeletionRequested
	e.DeletionApprovals = models.NewIDSet(requesterID)
	if err := checkExpense(op, e); err != nil {
		return err
	}
	if err := st.replaceExpense(e); err != nil {
		return violation(op, "%v", err)
	}
	if _, err := rec.record(requesterID, fmt.Sprintf("requested to delete %q", e.Description)); err != nil {
		return err
	}
	if e.DeletionApprovals.Len() == e.Quorum() {
		return deleteExpense(op, st, rec, e, requesterID)
	}
	return nil
}

// approveExpenseDeletion adds approverID to the deletion vote and removes the
// expense once everyone in the split agreed.
func approveExpenseDeletion(st *store, rec *recorder, expenseID, approverID string) (bool, error) {
	op := opApproveExpenseDeletion
	e, err := loadExpense(op, st, expenseID)
	if err != nil {
		return false, err
	}
	if !e.SplitWith.Has(approverID) {
		return false, forbidden(op, "%s is not part of expense %s", approverID, expenseID)
	}
	if e.Status != models.ExpenseDeletionRequested {
		return false, conflict(op, "deletion of expense %s was not requested", expenseID)
	}
	if e.DeletionApprovals.Has(approverID) {
		return false, nil
	}

	e.DeletionApprovals.Add(approverID)
	if err := checkExpense(op, e); err != nil {
		return false, err
	}
	if e.DeletionApprovals.Len() == e.Quorum() {
		return true, deleteExpense(op, st, rec, e, approverID)
	}
	if err := st.replaceExpense(e); err != nil {
		return false, violation(op, "%v", err)
	}
	if _, err := rec.record(approverID, fmt.Sprintf("approved deletion for %q", e.Description)); err != nil {
		return false, err
	}
	return true, nil
}

func deleteExpense(op string, st *store, rec *recorder, e models.Expense, actorID string) error {
	if err := st.removeExpense(e.ID); err != nil {
		return violation(op, "%v", err)
	}
	_, err := rec.record(actorID, fmt.Sprintf("deleted expense %q", e.Description))
	return err
}

// addMember inserts a pending member. An empty actorID means the new member asked
// to join on their own; otherwise an active member is adding them.
func addMember(st *store, rec *recorder, actorID string, m models.Member) error {
	op := opAddMember
	if actorID != "" {
		if _, err := requireActive(op, st, actorID); err != nil {
			return err
		}
	}

	m.Status = models.MemberPending
	m.Approvals = models.NewIDSet()
	if err := st.insertMember(m); err != nil {
		return violation(op, "%v", err)
	}

	if actorID == "" {
		_, err := rec.record(m.ID, "requested to join the group")
		return err
	}
	_, err := rec.record(actorID, fmt.Sprintf("added %q to the group", m.Name))
	return err
}

// approveMember records approverID's vote on a pending member.
//
// Quorum is the number of active members right now, not when the member was
// added: admissions completed in between raise the bar for later votes.
func approveMember(st *store, rec *recorder, memberID, approverID string) (bool, error) {
	op := opApproveMember
	m, ok := st.member(memberID)
	if !ok {
		return false, notFound(op, "member %s not found", memberID)
	}
	if _, err := requireActive(op, st, approverID); err != nil {
		return false, err
	}
	if m.IsActive() || m.Approvals.Has(approverID) {
		return false, nil
	}

	m.Approvals.Add(approverID)
	text := fmt.Sprintf("approved %q joining the group", m.Name)
	if m.Approvals.Len() >= st.activeCount() {
		m.Status = models.MemberActive
		text = fmt.Sprintf("admitted %q to the group", m.Name)
	}
	if err := st.replaceMember(m); err != nil {
		return false, violation(op, "%v", err)
	}
	if _, err := rec.record(approverID, text); err != nil {
		return false, err
	}
	return true, nil
}

// updateProfile changes the actor's display fields. No approval needed.
func updateProfile(st *store, rec *recorder, actorID string, name, avatarURL *string) (bool, error) {
	op := opUpdateProfile
	m, ok := st.member(actorID)
	if !ok {
		return false, forbidden(op, "%s is not a member of this group", actorID)
	}

	changed := false
	if name != nil && *name != m.Name {
		m.Name = *name
		changed = true
	}
	if avatarURL != nil && *avatarURL != m.AvatarURL {
		m.AvatarURL = *avatarURL
		changed = true
	}
	if !changed {
		return false, nil
	}

	if err := st.replaceMember(m); err != nil {
		return false, violation(op, "%v", err)
	}
	if _, err := rec.record(actorID, "updated their profile"); err != nil {
		return false, err
	}
	return true, nil
}
