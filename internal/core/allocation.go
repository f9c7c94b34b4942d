package core

import (
	"sort"
	"time"
)

// ledgerRow is a locked inventory row as seen by a deduction.
type ledgerRow struct {
	id       int
	quantity int
	batchNo  *string
	expiry   *time.Time
}

// sortFEFO orders rows first-expired-first-out: earliest expiry first, rows
// without an expiry last, ties broken by row id (intake order).
func sortFEFO(rows []ledgerRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].expiry, rows[j].expiry
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.Before(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return rows[i].id < rows[j].id
	})
}

// allocateFEFO spreads qty across rows in FEFO order. It returns the
// allocations, the aggregate available across rows, and whether the
// aggregate covers qty. Nothing is allocated when it does not.
// Expired batches are still stock on hand and are consumed first.
func allocateFEFO(rows []ledgerRow, qty int) ([]BatchAllocation, int, bool) {
	available := 0
	for _, r := range rows {
		available += r.quantity
	}
	if available < qty {
		return nil, available, false
	}

	ordered := make([]ledgerRow, len(rows))
	copy(ordered, rows)
	sortFEFO(ordered)

	var allocs []BatchAllocation
	remaining := qty
	for _, r := range ordered {
		if remaining == 0 {
			break
		}
		if r.quantity == 0 {
			continue
		}
		take := min(remaining, r.quantity)
		allocs = append(allocs, BatchAllocation{
			RecordID:   r.id,
			BatchNo:    r.batchNo,
			ExpiryDate: r.expiry,
			Quantity:   take,
		})
		remaining -= take
	}
	return allocs, available, true
}

// sortedUnique returns the distinct ids in ascending order. Locks are always
// taken in this order so concurrent multi-item mutations cannot deadlock.
func sortedUnique(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
