package models

import "fmt"

// MaxAmount is the largest amount of a single expense, in minor units ($100 billion).
// Totals of many such expenses stay far below the int64 range.
const MaxAmount int64 = 1e13

// FormatAmount renders minor units as a dollar string, e.g. 18000 -> "$180.00".
func FormatAmount(cents int64) string {
	sign := ""
	abs := uint64(cents)
	if cents < 0 {
		sign = "-"
		abs = -abs
	}
	return fmt.Sprintf("%s$%d.%02d", sign, abs/100, abs%100)
}
