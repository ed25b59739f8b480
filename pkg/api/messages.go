// Package api defines the LedgerService wire types and its Connect handler and client.
//
// Messages are plain Go structs carried as JSON over the Connect protocol.
package api

import "time"

type Member struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	AvatarURL string   `json:"avatarUrl,omitempty"`
	Status    string   `json:"status"`
	Approvals []string `json:"approvals"`
}

type Expense struct {
	ID                string    `json:"id"`
	Description       string    `json:"description"`
	Amount            int64     `json:"amount"`
	PayerID           string    `json:"payerId"`
	CreatedAt         time.Time `json:"createdAt"`
	Status            string    `json:"status"`
	SplitWith         []string  `json:"splitWith"`
	Approvals         []string  `json:"approvals"`
	DeletionApprovals []string  `json:"deletionApprovals"`
}

type Actor struct {
	MemberID  string `json:"memberId"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

type ActivityEntry struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Actor     Actor     `json:"actor"`
}

// Group is a full view of one ledger. Expenses and Activity are newest first.
type Group struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	CreatedAt time.Time       `json:"createdAt"`
	Members   []Member        `json:"members"`
	Expenses  []Expense       `json:"expenses"`
	Activity  []ActivityEntry `json:"activity"`
}

// MemberBalance sums approved expenses for one member. Amounts are in cents.
type MemberBalance struct {
	MemberID   string `json:"memberId"`
	TotalPaid  int64  `json:"totalPaid"`
	TotalShare int64  `json:"totalShare"`
	NetBalance int64  `json:"netBalance"`
}

type Settlement struct {
	FromMemberID string `json:"fromMemberId"`
	ToMemberID   string `json:"toMemberId"`
	Amount       int64  `json:"amount"`
}

type CreateGroupRequest struct {
	Name             string `json:"name"`
	FounderName      string `json:"founderName"`
	FounderAvatarURL string `json:"founderAvatarUrl,omitempty"`
}

type CreateGroupResponse struct {
	Group *Group `json:"group"`
	// JoinKey is shown once. Share it with people who should be able to ask to join.
	JoinKey  string `json:"joinKey"`
	MemberID string `json:"memberId"`
	Token    string `json:"token"`
}

type JoinGroupRequest struct {
	GroupID   string `json:"groupId"`
	JoinKey   string `json:"joinKey"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

type JoinGroupResponse struct {
	Group    *Group `json:"group"`
	MemberID string `json:"memberId"`
	Token    string `json:"token"`
}

type GetGroupRequest struct{}

type GetGroupResponse struct {
	Group *Group `json:"group"`
}

type GetBalancesRequest struct{}

type GetBalancesResponse struct {
	Balances    []MemberBalance `json:"balances"`
	Settlements []Settlement    `json:"settlements"`
}

type AddExpenseRequest struct {
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
	PayerID     string `json:"payerId"`
	// SplitWith defaults to every active member when omitted.
	SplitWith []string `json:"splitWith,omitempty"`
}

type ApproveExpenseRequest struct {
	ExpenseID string `json:"expenseId"`
}

type RequestExpenseDeletionRequest struct {
	ExpenseID string `json:"expenseId"`
}

type ApproveExpenseDeletionRequest struct {
	ExpenseID string `json:"expenseId"`
}

type AddMemberRequest struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

type ApproveMemberRequest struct {
	MemberID string `json:"memberId"`
}

// UpdateProfileRequest leaves omitted fields unchanged. An empty AvatarURL clears it.
type UpdateProfileRequest struct {
	Name      *string `json:"name,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

// MutationResponse is returned by every intent. Changed is false for no-ops such
// as a repeated approval.
type MutationResponse struct {
	Changed   bool   `json:"changed"`
	CreatedID string `json:"createdId,omitempty"`
	Group     *Group `json:"group"`
}
