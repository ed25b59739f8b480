package models

import "time"

// ExpenseStatus is the lifecycle stage of an expense.
type ExpenseStatus string

const (
	// ExpensePending expenses wait for approval from everyone in SplitWith.
	ExpensePending ExpenseStatus = "pending"
	// ExpenseApproved expenses count towards balances.
	ExpenseApproved ExpenseStatus = "approved"
	// ExpenseDeletionRequested expenses wait for everyone in SplitWith to approve removal.
	ExpenseDeletionRequested ExpenseStatus = "deletion-requested"
)

// Expense represents money paid by one member on behalf of a set of members.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string `json:"id"`

	// Description is the human-readable label (e.g., "Cabin Rental"). Never empty.
	Description string `json:"description"`

	// Amount is the positive amount in minor units (cents).
	Amount int64 `json:"amount"`

	// PayerID is the active member who paid.
	PayerID string `json:"payerId"`

	// CreatedAt is when the expense was committed.
	CreatedAt time.Time `json:"createdAt"`

	// Status is the current lifecycle stage.
	Status ExpenseStatus `json:"status"`

	// Approvals holds the members of SplitWith who approved the expense.
	Approvals IDSet `json:"approvals"`

	// DeletionApprovals holds the members of SplitWith who approved removal.
	DeletionApprovals IDSet `json:"deletionApprovals"`

	// SplitWith is the fixed set of members sharing the cost.
	// Defaults to every active member at creation time.
	SplitWith IDSet `json:"splitWith"`
}

// Clone returns a deep copy of the expense.
func (e Expense) Clone() Expense {
	e.Approvals = e.Approvals.Clone()
	e.DeletionApprovals = e.DeletionApprovals.Clone()
	e.SplitWith = e.SplitWith.Clone()
	return e
}

// Quorum is the number of approvals needed for approval or deletion.
func (e Expense) Quorum() int {
	return e.SplitWith.Len()
}
