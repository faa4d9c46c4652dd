/*
condition.go - Condition count normalization

PURPOSE:
  Edited rows arrive with healthy/damaged/lost counts that may not add up to
  the total quantity (partial edits, imported spreadsheets). Instead of
  rejecting them, the engine normalizes on write: damaged is clamped to the
  total, lost to what damaged leaves, healthy to the remainder, and any
  shortfall or surplus is absorbed healthy-first.
*/
package library

// ConditionCounts bundles the three per-condition counters.
type ConditionCounts struct {
	Healthy int
	Damaged int
	Lost    int
}

func clampCount(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// NormalizeConditionCounts reconciles the counters with a total quantity so
// that healthy + damaged + lost == total.
func NormalizeConditionCounts(total int, c ConditionCounts) ConditionCounts {
	if total < 0 {
		total = 0
	}
	damaged := clampCount(c.Damaged, total)
	lost := clampCount(c.Lost, total-damaged)
	healthy := clampCount(c.Healthy, total-damaged-lost)

	sum := healthy + damaged + lost
	if sum < total {
		healthy += total - sum
	} else if sum > total {
		diff := sum - total
		take := minInt(diff, healthy)
		healthy -= take
		diff -= take
		take = minInt(diff, damaged)
		damaged -= take
		diff -= take
		lost -= minInt(diff, lost)
	}
	return ConditionCounts{Healthy: healthy, Damaged: damaged, Lost: lost}
}

// ApplyConditionCounts normalizes user-entered counters against a new total
// and writes them onto a row. The entered counts cover every copy the library
// owns; copies currently out on loan are healthy by construction (only healthy
// copies reserve), so they are deducted from the healthy bucket and the row's
// counters end up partitioning the shelf:
//
//	HealthyCount + DamagedCount + LostCount == Quantity
//	TotalQuantity == Quantity + len(Loans)
func ApplyConditionCounts(b *Book, total int, c ConditionCounts) {
	if total < len(b.Loans) {
		// The total can never undercut the copies currently out.
		total = len(b.Loans)
	}
	n := NormalizeConditionCounts(total, c)
	shelfHealthy := n.Healthy - len(b.Loans)
	if shelfHealthy < 0 {
		shelfHealthy = 0
	}
	b.HealthyCount = shelfHealthy
	b.DamagedCount = n.Damaged
	b.LostCount = n.Lost
	b.Quantity = shelfHealthy + n.Damaged + n.Lost
	b.RecomputeTotal()
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
