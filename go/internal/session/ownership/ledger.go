// Package ownership tracks which logger owns each view and the cooperative
// take-over hand-off between loggers.
package ownership

import (
	"sync"

	"github.com/mcdev12/rinklog/go/internal/models"
)

// Ledger maps views to their current owner. It performs no authorization;
// callers check IsOwnedByOther before acting in a view.
type Ledger struct {
	mu          sync.RWMutex
	assignments models.Assignments
}

// NewLedger creates an empty ledger
func NewLedger() *Ledger {
	return &Ledger{
		assignments: make(models.Assignments),
	}
}

// Assign overwrites the owner of a view
func (l *Ledger) Assign(view models.ViewID, logger models.Logger) {
	models.MustBeKnown(view)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.assignments[view] = models.AssignmentFor(logger)
}

// Release removes the owner of a view
func (l *Ledger) Release(view models.ViewID) {
	models.MustBeKnown(view)

	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.assignments, view)
}

// OwnerOf returns the current assignment of a view
func (l *Ledger) OwnerOf(view models.ViewID) (models.ViewAssignment, bool) {
	models.MustBeKnown(view)

	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.assignments[view]
	return a, ok
}

// IsOwnedByOther reports whether the view is held by someone other than loggerID
func (l *Ledger) IsOwnedByOther(view models.ViewID, loggerID string) bool {
	a, ok := l.OwnerOf(view)
	return ok && a.LoggerID != loggerID
}

// Snapshot returns a copy of every assignment
func (l *Ledger) Snapshot() models.Assignments {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(models.Assignments, len(l.assignments))
	for v, a := range l.assignments {
		out[v] = a
	}
	return out
}

// Replace swaps in a full set of assignments, e.g. after loading from the store.
// Entries for unknown views are dropped.
func (l *Ledger) Replace(assignments models.Assignments) {
	next := make(models.Assignments, len(assignments))
	for v, a := range assignments {
		if !v.Valid() {
			continue
		}
		next[v] = a
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.assignments = next
}
