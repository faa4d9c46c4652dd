package library_test

import (
	"testing"

	"github.com/warp/library-engine/library"
)

// =============================================================================
// COUNT NORMALIZATION TESTS
// =============================================================================

func TestNormalizeConditionCounts(t *testing.T) {
	cases := []struct {
		name  string
		total int
		in    library.ConditionCounts
		want  library.ConditionCounts
	}{
		{
			name:  "already consistent",
			total: 5,
			in:    library.ConditionCounts{Healthy: 3, Damaged: 1, Lost: 1},
			want:  library.ConditionCounts{Healthy: 3, Damaged: 1, Lost: 1},
		},
		{
			name:  "shortfall absorbed into healthy",
			total: 5,
			in:    library.ConditionCounts{Healthy: 1, Damaged: 1, Lost: 0},
			want:  library.ConditionCounts{Healthy: 4, Damaged: 1, Lost: 0},
		},
		{
			name:  "damaged clamped to total",
			total: 3,
			in:    library.ConditionCounts{Healthy: 0, Damaged: 7, Lost: 0},
			want:  library.ConditionCounts{Healthy: 0, Damaged: 3, Lost: 0},
		},
		{
			name:  "lost clamped to remainder after damaged",
			total: 4,
			in:    library.ConditionCounts{Healthy: 0, Damaged: 3, Lost: 9},
			want:  library.ConditionCounts{Healthy: 0, Damaged: 3, Lost: 1},
		},
		{
			name:  "surplus shaved healthy-first",
			total: 4,
			in:    library.ConditionCounts{Healthy: 3, Damaged: 2, Lost: 1},
			want:  library.ConditionCounts{Healthy: 1, Damaged: 2, Lost: 1},
		},
		{
			name:  "negative inputs treated as zero",
			total: 2,
			in:    library.ConditionCounts{Healthy: -3, Damaged: -1, Lost: 0},
			want:  library.ConditionCounts{Healthy: 2, Damaged: 0, Lost: 0},
		},
		{
			name:  "negative total treated as zero",
			total: -1,
			in:    library.ConditionCounts{Healthy: 4, Damaged: 0, Lost: 0},
			want:  library.ConditionCounts{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := library.NormalizeConditionCounts(tc.total, tc.in)
			if got != tc.want {
				t.Errorf("got %+v, want %+v", got, tc.want)
			}
			if sum := got.Healthy + got.Damaged + got.Lost; tc.total > 0 && sum != tc.total {
				t.Errorf("counts sum to %d, want total %d", sum, tc.total)
			}
		})
	}
}

// =============================================================================
// ROW APPLICATION TESTS
// =============================================================================

func TestApplyConditionCounts_PartitionsShelfCopies(t *testing.T) {
	// GIVEN: A row with one copy out on loan
	// WHEN: Recording 5 total copies, 4 healthy and 1 damaged
	// THEN: One healthy copy is attributed to the loan; the shelf holds the
	//       rest and the counters partition it

	b := row("b1", "Dune", "Frank Herbert", 2, loanBy("l1", "b1", "Ada Lovelace"))

	library.ApplyConditionCounts(&b, 5, library.ConditionCounts{Healthy: 4, Damaged: 1})

	if b.HealthyCount != 3 || b.DamagedCount != 1 || b.LostCount != 0 {
		t.Errorf("unexpected counters: healthy %d damaged %d lost %d",
			b.HealthyCount, b.DamagedCount, b.LostCount)
	}
	if b.Quantity != 4 {
		t.Errorf("expected shelf quantity 4, got %d", b.Quantity)
	}
	if b.TotalQuantity != 5 {
		t.Errorf("expected total 5, got %d", b.TotalQuantity)
	}
	if b.HealthyCount+b.DamagedCount+b.LostCount != b.Quantity {
		t.Errorf("counters must partition the shelf quantity")
	}
}

func TestApplyConditionCounts_TotalNeverUndercutsOpenLoans(t *testing.T) {
	// GIVEN: A row with two copies out
	// WHEN: Recording a total of zero
	// THEN: The total is floored at the open loan count; the shelf empties

	b := row("b1", "Dune", "Frank Herbert", 1,
		loanBy("l1", "b1", "Ada Lovelace"),
		loanBy("l2", "b1", "Grace Hopper"))

	library.ApplyConditionCounts(&b, 0, library.ConditionCounts{})

	if b.TotalQuantity != 2 {
		t.Errorf("expected total floored at 2, got %d", b.TotalQuantity)
	}
	if b.Quantity != 0 {
		t.Errorf("expected empty shelf, got %d", b.Quantity)
	}
	if b.HealthyCount != 0 {
		t.Errorf("expected 0 shelf healthy, got %d", b.HealthyCount)
	}
}

func TestApplyConditionCounts_AllDamagedBlocksBorrowing(t *testing.T) {
	// GIVEN: A row with copies but every one recorded damaged
	// WHEN: Applying the counts
	// THEN: The row has shelf stock yet is not borrowable

	b := row("b1", "Dune", "Frank Herbert", 3)

	library.ApplyConditionCounts(&b, 3, library.ConditionCounts{Damaged: 3})

	if b.Quantity != 3 {
		t.Errorf("expected shelf quantity 3, got %d", b.Quantity)
	}
	if library.IsBorrowable(&b) {
		t.Error("a row with no healthy copy must not be borrowable")
	}
}
