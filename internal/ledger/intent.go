package ledger

import (
	"net/url"
	"strings"

	"github.com/mmynk/expensekey/internal/models"
)

// Intent is a requested mutation of a group. The set of intents is closed.
type Intent interface {
	// Name identifies the intent in errors, logs and metrics.
	Name() string
	// Validate checks the intent's shape without looking at group state.
	Validate() error

	apply(tx *txn) (changed bool, err error)
}

// AddExpense records money paid by PayerID. A nil SplitWith means every active member.
type AddExpense struct {
	Description string
	Amount      int64
	PayerID     string
	SplitWith   []string
}

func (AddExpense) Name() string { return opAddExpense }

func (i AddExpense) Validate() error {
	if strings.TrimSpace(i.Description) == "" {
		return invalid(opAddExpense, "description required")
	}
	if i.Amount <= 0 {
		return invalid(opAddExpense, "amount must be positive, got %d", i.Amount)
	}
	if i.Amount > models.MaxAmount {
		return invalid(opAddExpense, "amount %d exceeds the maximum of %d", i.Amount, models.MaxAmount)
	}
	if i.PayerID == "" {
		return invalid(opAddExpense, "payer required")
	}
	if i.SplitWith != nil && len(i.SplitWith) == 0 {
		return invalid(opAddExpense, "split must not be empty")
	}
	for _, id := range i.SplitWith {
		if id == "" {
			return invalid(opAddExpense, "split contains an empty member id")
		}
	}
	return nil
}

func (i AddExpense) apply(tx *txn) (bool, error) {
	e := models.Expense{
		ID:          tx.newID(),
		Description: strings.TrimSpace(i.Description),
		Amount:      i.Amount,
		PayerID:     i.PayerID,
		CreatedAt:   tx.rec.at,
		SplitWith:   models.NewIDSet(i.SplitWith...),
	}
	if err := createExpense(tx.st, tx.rec, tx.actorID, e); err != nil {
		return false, err
	}
	tx.createdID = e.ID
	return true, nil
}

// ApproveExpense is the actor's vote for an expense.
type ApproveExpense struct {
	ExpenseID string
}

func (ApproveExpense) Name() string { return opApproveExpense }

func (i ApproveExpense) Validate() error {
	if i.ExpenseID == "" {
		return invalid(opApproveExpense, "expense id required")
	}
	return nil
}

func (i ApproveExpense) apply(tx *txn) (bool, error) {
	return approveExpense(tx.st, tx.rec, i.ExpenseID, tx.actorID)
}

// RequestExpenseDeletion starts a deletion vote. Only the payer may send it.
type RequestExpenseDeletion struct {
	ExpenseID string
}

func (RequestExpenseDeletion) Name() string { return opRequestExpenseDeletion }

func (i RequestExpenseDeletion) Validate() error {
	if i.ExpenseID == "" {
		return invalid(opRequestExpenseDeletion, "expense id required")
	}
	return nil
}

func (i RequestExpenseDeletion) apply(tx *txn) (bool, error) {
	if err := requestExpenseDeletion(tx.st, tx.rec, i.ExpenseID, tx.actorID); err != nil {
		return false, err
	}
	return true, nil
}

// ApproveExpenseDeletion is the actor's vote for removing an expense.
type ApproveExpenseDeletion struct {
	ExpenseID string
}

func (ApproveExpenseDeletion) Name() string { return opApproveExpenseDeletion }

func (i ApproveExpenseDeletion) Validate() error {
	if i.ExpenseID == "" {
		return invalid(opApproveExpenseDeletion, "expense id required")
	}
	return nil
}

func (i ApproveExpenseDeletion) apply(tx *txn) (bool, error) {
	return approveExpenseDeletion(tx.st, tx.rec, i.ExpenseID, tx.actorID)
}

// AddMember creates a pending member. Sent with an empty actor it is a
// self-service join request.
type AddMember struct {
	DisplayName string
	AvatarURL   string
}

func (AddMember) Name() string { return opAddMember }

func (i AddMember) Validate() error {
	if strings.TrimSpace(i.DisplayName) == "" {
		return invalid(opAddMember, "name required")
	}
	return validateAvatar(opAddMember, i.AvatarURL)
}

func (i AddMember) apply(tx *txn) (bool, error) {
	m := models.Member{
		ID:        tx.newID(),
		Name:      strings.TrimSpace(i.DisplayName),
		AvatarURL: i.AvatarURL,
	}
	if err := addMember(tx.st, tx.rec, tx.actorID, m); err != nil {
		return false, err
	}
	tx.createdID = m.ID
	return true, nil
}

// ApproveMember is the actor's vote for admitting a pending member.
type ApproveMember struct {
	MemberID string
}

func (ApproveMember) Name() string { return opApproveMember }

func (i ApproveMember) Validate() error {
	if i.MemberID == "" {
		return invalid(opApproveMember, "member id required")
	}
	return nil
}

func (i ApproveMember) apply(tx *txn) (bool, error) {
	return approveMember(tx.st, tx.rec, i.MemberID, tx.actorID)
}

// UpdateProfile edits the actor's own display fields. Nil fields are left alone;
// an empty AvatarURL clears the avatar.
type UpdateProfile struct {
	DisplayName *string
	AvatarURL   *string
}

func (UpdateProfile) Name() string { return opUpdateProfile }

func (i UpdateProfile) Validate() error {
	if i.DisplayName == nil && i.AvatarURL == nil {
		return invalid(opUpdateProfile, "nothing to update")
	}
	if i.DisplayName != nil && strings.TrimSpace(*i.DisplayName) == "" {
		return invalid(opUpdateProfile, "name must not be empty")
	}
	if i.AvatarURL != nil {
		return validateAvatar(opUpdateProfile, *i.AvatarURL)
	}
	return nil
}

func (i UpdateProfile) apply(tx *txn) (bool, error) {
	var name *string
	if i.DisplayName != nil {
		trimmed := strings.TrimSpace(*i.DisplayName)
		name = &trimmed
	}
	return updateProfile(tx.st, tx.rec, tx.actorID, name, i.AvatarURL)
}

// validateAvatar accepts an empty value or an absolute http(s) URL.
func validateAvatar(op, avatarURL string) error {
	if avatarURL == "" {
		return nil
	}
	u, err := url.ParseRequestURI(avatarURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid(op, "avatar must be an http(s) URL")
	}
	return nil
}
