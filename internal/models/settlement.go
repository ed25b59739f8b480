package models

// Settlement is a suggested payment between group members to clear debts.
// Settlements are derived from balances and are never stored.
type Settlement struct {
	// FromMemberID is the member who should pay (debtor settling up).
	FromMemberID string `json:"fromMemberId"`

	// ToMemberID is the member who should receive payment (creditor being paid).
	ToMemberID string `json:"toMemberId"`

	// Amount is the payment amount in minor units.
	Amount int64 `json:"amount"`
}
