/*
consolidate.go - Catalog consolidation into logical books

PURPOSE:
  The catalog store may hold several rows for the same physical title:
  duplicate spreadsheet imports, copies added in separate batches, rows with
  slightly different spacing or casing. Readers of the catalog should see one
  entity per title/author pair. Consolidate folds duplicate rows into
  LogicalBook aggregates with recomputed quantity and condition totals.

MERGE RULES:
  - Grouping key: normalized title + "_" + normalized author
  - The first-seen row seeds the entity and provides its identity
  - quantity: additive
  - loans: concatenated
  - condition counts: additive
  - totalQuantity: ALWAYS recomputed as quantity + len(loans); stored values
    on raw rows are stale the moment a loan is taken and are discarded
  - pageCount: max of the values present
  - other optional scalars: first non-empty value in input order wins

PROPERTIES:
  - Idempotent: consolidating already-consolidated output changes nothing
  - Pure: no caching, no stored state; callers re-run it per snapshot read
  - Rows missing title or author are skipped (logged via SkipLogger), not
    treated as failures: this is read-side aggregation

SEE ALSO:
  - types.go: MergeKey, LogicalBook
  - overview.go: Read models built on the consolidated view
*/
package library

import "log"

// SkipLogger is invoked for every row excluded from consolidation. Replace it
// to route skip notices elsewhere; set to nil to silence them.
var SkipLogger = func(b *Book) {
	log.Printf("catalog: skipping row %s: missing title or author", b.ID)
}

// Consolidate merges raw catalog rows sharing a normalized (title, author)
// key into logical book entities. Input order decides the seed row per key
// and the first-non-empty tie-break for descriptive fields; all arithmetic is
// order-independent.
func Consolidate(rows []Book) []LogicalBook {
	byKey := make(map[string]*LogicalBook, len(rows))
	var order []string

	for i := range rows {
		row := &rows[i]
		if row.Title == "" || row.Author == "" {
			if SkipLogger != nil {
				SkipLogger(row)
			}
			continue
		}

		key := MergeKey(row)
		entity, ok := byKey[key]
		if !ok {
			seed := LogicalBook{Book: *row.Clone(), MergedFrom: []BookID{row.ID}}
			seed.RecomputeTotal()
			byKey[key] = &seed
			order = append(order, key)
			continue
		}
		mergeInto(entity, row)
	}

	out := make([]LogicalBook, 0, len(order))
	for _, key := range order {
		out = append(out, *byKey[key])
	}
	return out
}

// mergeInto folds one more raw row into an existing entity.
func mergeInto(entity *LogicalBook, row *Book) {
	entity.Quantity += row.Quantity
	entity.Loans = append(entity.Loans, row.Loans...)
	entity.HealthyCount += row.HealthyCount
	entity.DamagedCount += row.DamagedCount
	entity.LostCount += row.LostCount
	entity.RecomputeTotal()

	if row.PageCount > entity.PageCount {
		entity.PageCount = row.PageCount
	}
	if entity.Category == "" {
		entity.Category = row.Category
	}
	if entity.Shelf == "" {
		entity.Shelf = row.Shelf
	}
	if entity.Publisher == "" {
		entity.Publisher = row.Publisher
	}
	if entity.Summary == "" {
		entity.Summary = row.Summary
	}
	if entity.BookNumber == 0 {
		entity.BookNumber = row.BookNumber
	}
	if entity.Year == 0 {
		entity.Year = row.Year
	}

	entity.MergedFrom = append(entity.MergedFrom, row.ID)
}
