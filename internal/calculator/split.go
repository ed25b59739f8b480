package calculator

import (
	"fmt"
	"sort"
)

// SplitEvenly divides amount (minor units) between participants.
//
// Each participant gets amount / n. The remainder (amount mod n) is handed out one
// unit at a time to the lexicographically smallest ids, so the shares always sum
// to amount and the result does not depend on input order.
//
// Example: SplitEvenly(100, ["c", "a", "b"]) = {a: 34, b: 33, c: 33}
func SplitEvenly(amount int64, participants []string) (map[string]int64, error) {
	if amount < 0 {
		return nil, fmt.Errorf("amount cannot be negative")
	}
	if len(participants) == 0 {
		return nil, fmt.Errorf("must have at least one participant")
	}

	ids := append([]string(nil), participants...)
	sort.Strings(ids)
	for i := 1; i < len(ids); i++ {
		if ids[i] == ids[i-1] {
			return nil, fmt.Errorf("duplicate participant %q", ids[i])
		}
	}

	n := int64(len(ids))
	share := amount / n
	remainder := amount % n

	shares := make(map[string]int64, len(ids))
	for i, id := range ids {
		shares[id] = share
		if int64(i) < remainder {
			shares[id]++
		}
	}
	return shares, nil
}
