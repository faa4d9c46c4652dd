/*
ledger.go - Inventory ledger: copy reservation and release

PURPOSE:
  Tracks a book row's shelf quantity and condition counts and derives
  borrow eligibility. The three condition counters partition the shelf
  copies; copies out on loan are healthy by construction. Mutations apply
  to the specific raw row holding the copy (typically the seed row of a
  logical book).

CRITICAL INVARIANTS:
  1. quantity >= 0 after every mutation
  2. totalQuantity == quantity + len(loans), recomputed on every mutation
  3. Availability is evaluated against the row state at the moment of
     mutation, never a value cached earlier in a multi-step flow

RESERVE ORDER:
  Reserve checks quantity first, then healthy count. A row with quantity 0
  fails with ErrOutOfStock even if its healthy count is stale-positive.

RETURN CONDITIONS:
  A returned copy defaults to healthy, but may be recorded as damaged or
  lost, which increments that counter instead. Damaged and lost copies do
  not make the book borrowable: eligibility requires a healthy copy.
*/
package library

// IsBorrowable reports whether a copy of this row can be lent right now:
// at least one copy on the shelf and at least one of them healthy.
func IsBorrowable(b *Book) bool {
	return b.Quantity > 0 && b.HealthyCount > 0
}

// Reserve takes one healthy copy off the shelf. Checked in order: stock
// first, then condition.
func Reserve(b *Book) error {
	if b.Quantity <= 0 {
		return ErrOutOfStock
	}
	if b.HealthyCount <= 0 {
		return ErrNoHealthyCopy
	}
	b.Quantity--
	b.HealthyCount--
	b.RecomputeTotal()
	return nil
}

// Release puts one copy back on the shelf in the given condition. An empty
// condition counts as healthy.
func Release(b *Book, cond Condition) {
	b.Quantity++
	switch cond {
	case ConditionDamaged:
		b.DamagedCount++
	case ConditionLost:
		b.LostCount++
	default:
		b.HealthyCount++
	}
	b.RecomputeTotal()
}
