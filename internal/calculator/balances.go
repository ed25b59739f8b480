package calculator

import (
	"fmt"
	"math"
	"sort"

	"github.com/mmynk/expensekey/internal/models"
)

// MemberStats represents the balance information for one group member.
type MemberStats struct {
	MemberID   string
	TotalPaid  int64 // Total amount paid across approved expenses
	TotalShare int64 // Total of this member's shares across approved expenses
	NetBalance int64 // Positive = owed money, Negative = owes money
}

// ComputeBalances derives each member's net position from the approved expenses.
//
// Algorithm:
// - Only expenses with status approved participate
// - Payer is credited the full amount
// - Each member of SplitWith is debited their share (see SplitEvenly)
//
// Every member of the group is present in the result, so the values always sum to
// exactly zero. Ids in expenses that are not in members are still accounted for.
func ComputeBalances(members []models.Member, expenses []models.Expense) (map[string]int64, error) {
	stats, err := ComputeMemberStats(members, expenses)
	if err != nil {
		return nil, err
	}
	balances := make(map[string]int64, len(stats))
	for _, s := range stats {
		balances[s.MemberID] = s.NetBalance
	}
	return balances, nil
}

// ComputeMemberStats returns paid / share / net totals per member, in member order.
// Ids that only appear in expenses are appended in lexicographic order.
func ComputeMemberStats(members []models.Member, expenses []models.Expense) ([]MemberStats, error) {
	stats := make(map[string]*MemberStats, len(members))
	order := make([]string, 0, len(members))
	track := func(id string) *MemberStats {
		if s, ok := stats[id]; ok {
			return s
		}
		s := &MemberStats{MemberID: id}
		stats[id] = s
		return s
	}
	for _, m := range members {
		if _, ok := stats[m.ID]; !ok {
			order = append(order, m.ID)
		}
		track(m.ID)
	}

	var strays []string
	for _, e := range expenses {
		if e.Status != models.ExpenseApproved {
			continue
		}
		if e.Amount <= 0 {
			return nil, fmt.Errorf("expense %s has non-positive amount %d", e.ID, e.Amount)
		}

		shares, err := SplitEvenly(e.Amount, e.SplitWith.Sorted())
		if err != nil {
			return nil, fmt.Errorf("failed to split expense %s: %w", e.ID, err)
		}

		if _, ok := stats[e.PayerID]; !ok {
			strays = append(strays, e.PayerID)
		}
		payer := track(e.PayerID)
		if payer.TotalPaid, err = addAmount(payer.TotalPaid, e.Amount); err != nil {
			return nil, fmt.Errorf("total paid by %s: %w", e.PayerID, err)
		}

		for id, share := range shares {
			if _, ok := stats[id]; !ok {
				strays = append(strays, id)
			}
			s := track(id)
			if s.TotalShare, err = addAmount(s.TotalShare, share); err != nil {
				return nil, fmt.Errorf("total share of %s: %w", id, err)
			}
		}
	}

	sort.Strings(strays)
	for _, id := range strays {
		order = append(order, id)
	}

	out := make([]MemberStats, 0, len(order))
	for _, id := range order {
		s := stats[id]
		s.NetBalance = s.TotalPaid - s.TotalShare
		out = append(out, *s)
	}
	return out, nil
}

// addAmount adds two non-negative totals, failing instead of wrapping around.
func addAmount(total, amount int64) (int64, error) {
	if amount > math.MaxInt64-total {
		return 0, fmt.Errorf("amount overflow adding %d to %d", amount, total)
	}
	return total + amount, nil
}

// SimplifyDebts suggests settlements that bring every balance to zero.
//
// Greedy algorithm: match the largest debts with the largest credits. Ties are
// broken by member id so the output is deterministic.
func SimplifyDebts(balances map[string]int64) []models.Settlement {
	type entry struct {
		id     string
		amount int64
	}
	var creditors, debtors []entry
	for id, amount := range balances {
		if amount > 0 {
			creditors = append(creditors, entry{id, amount})
		} else if amount < 0 {
			debtors = append(debtors, entry{id, -amount}) // Make positive
		}
	}
	byAmount := func(list []entry) func(i, j int) bool {
		return func(i, j int) bool {
			if list[i].amount != list[j].amount {
				return list[i].amount > list[j].amount
			}
			return list[i].id < list[j].id
		}
	}
	sort.Slice(creditors, byAmount(creditors))
	sort.Slice(debtors, byAmount(debtors))

	var settlements []models.Settlement
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := min(debtors[i].amount, creditors[j].amount)
		settlements = append(settlements, models.Settlement{
			FromMemberID: debtors[i].id,
			ToMemberID:   creditors[j].id,
			Amount:       amount,
		})

		debtors[i].amount -= amount
		creditors[j].amount -= amount

		// Move to next debtor/creditor if fully settled
		if debtors[i].amount == 0 {
			i++
		}
		if creditors[j].amount == 0 {
			j++
		}
	}
	return settlements
}
