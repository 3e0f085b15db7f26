package ledger

import (
	"math"
	"sort"

	"github.com/puzpuzpuz/xsync/v4"
)

// Points holds the accumulated weight recorded for a developer.
type Points struct {
	ExcludingReviewed uint32
	Total             uint32
}

// Entry pairs a developer with the points recorded for them.
type Entry struct {
	Developer string
	Points    Points
}

// Ledger is a concurrency-safe developer to Points mapping.
type Ledger struct {
	points *xsync.Map[string, Points]
}

// New constructs an empty Ledger.
func New() *Ledger {
	return &Ledger{points: xsync.NewMap[string, Points]()}
}

// Ensure records a zero entry for the developer when none exists yet.
func (workloadLedger *Ledger) Ensure(developer string) {
	workloadLedger.points.LoadOrStore(developer, Points{})
}

// Add saturating-adds weight to the developer's total and, when
// countExcludingReviewed is set, to the excluding-reviewed accumulator.
// A missing developer is created first.
func (workloadLedger *Ledger) Add(developer string, weight uint32, countExcludingReviewed bool) {
	workloadLedger.points.Compute(developer, func(current Points, _ bool) (Points, xsync.ComputeOp) {
		current.Total = saturatingAdd(current.Total, weight)
		if countExcludingReviewed {
			current.ExcludingReviewed = saturatingAdd(current.ExcludingReviewed, weight)
		}
		return current, xsync.UpdateOp
	})
}

// Subtract saturating-subtracts weight from the developer's total and, when
// subtractExcludingReviewed is set, from the excluding-reviewed accumulator.
// Values clamp at zero. Unknown developers are left untouched.
func (workloadLedger *Ledger) Subtract(developer string, weight uint32, subtractExcludingReviewed bool) {
	workloadLedger.points.Compute(developer, func(current Points, loaded bool) (Points, xsync.ComputeOp) {
		if !loaded {
			return current, xsync.CancelOp
		}
		current.Total = saturatingSubtract(current.Total, weight)
		if subtractExcludingReviewed {
			current.ExcludingReviewed = saturatingSubtract(current.ExcludingReviewed, weight)
		}
		return current, xsync.UpdateOp
	})
}

// Snapshot returns the developer's current points and whether an entry exists.
func (workloadLedger *Ledger) Snapshot(developer string) (Points, bool) {
	return workloadLedger.points.Load(developer)
}

// Entries lists every recorded developer ordered by name.
func (workloadLedger *Ledger) Entries() []Entry {
	entries := make([]Entry, 0, workloadLedger.points.Size())
	workloadLedger.points.Range(func(developer string, points Points) bool {
		entries = append(entries, Entry{Developer: developer, Points: points})
		return true
	})
	sort.Slice(entries, func(leftIndex int, rightIndex int) bool {
		return entries[leftIndex].Developer < entries[rightIndex].Developer
	})
	return entries
}

func saturatingAdd(current uint32, weight uint32) uint32 {
	if weight > math.MaxUint32-current {
		return math.MaxUint32
	}
	return current + weight
}

func saturatingSubtract(current uint32, weight uint32) uint32 {
	if weight >= current {
		return 0
	}
	return current - weight
}
