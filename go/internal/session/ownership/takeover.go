package ownership

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/rinklog/go/internal/models"
)

// TakeOver holds pending ownership transfers on top of a Ledger.
type TakeOver struct {
	mu       sync.Mutex
	ledger   *Ledger
	policy   ApprovalPolicy
	requests models.TakeOverRequests
}

// NewTakeOver creates the protocol for a ledger. A nil policy means Cooperative.
func NewTakeOver(ledger *Ledger, policy ApprovalPolicy) *TakeOver {
	if policy == nil {
		policy = Cooperative{}
	}
	return &TakeOver{
		ledger:   ledger,
		policy:   policy,
		requests: make(models.TakeOverRequests),
	}
}

// Policy returns the approval policy in use
func (t *TakeOver) Policy() ApprovalPolicy {
	return t.policy
}

// Request records that from wants the view. Ignored if a request is already
// pending, the view has no owner, or from already owns it.
func (t *TakeOver) Request(view models.ViewID, from models.Logger) bool {
	models.MustBeKnown(view)

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.requests[view]; exists {
		log.Debug().Str("view", view.String()).Str("logger_id", from.ID).Msg("take-over already pending")
		return false
	}
	owner, owned := t.ledger.OwnerOf(view)
	if !owned || owner.LoggerID == from.ID {
		return false
	}

	t.requests[view] = models.RequestFrom(from)
	return true
}

// Cancel drops any pending request for the view
func (t *TakeOver) Cancel(view models.ViewID) bool {
	models.MustBeKnown(view)

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.requests[view]; !exists {
		return false
	}
	delete(t.requests, view)
	return true
}

// Approve hands the view to the pending requester and clears the request.
// The lookup, the ledger write and the delete happen under one lock, so a
// concurrent Cancel or second Approve sees no pending request.
func (t *TakeOver) Approve(view models.ViewID, approver models.Logger) (models.TakeOverRequest, bool) {
	models.MustBeKnown(view)

	t.mu.Lock()
	defer t.mu.Unlock()

	req, exists := t.requests[view]
	if !exists {
		return models.TakeOverRequest{}, false
	}

	holder, hasHolder := t.ledger.OwnerOf(view)
	if !t.policy.CanApprove(approver, holder, hasHolder, req) {
		log.Debug().
			Str("view", view.String()).
			Str("approver_id", approver.ID).
			Str("policy", t.policy.Name()).
			Msg("take-over approval rejected by policy")
		return models.TakeOverRequest{}, false
	}

	t.ledger.Assign(view, req.Requester())
	delete(t.requests, view)
	return req, true
}

// Pending returns the request waiting on a view
func (t *TakeOver) Pending(view models.ViewID) (models.TakeOverRequest, bool) {
	models.MustBeKnown(view)

	t.mu.Lock()
	defer t.mu.Unlock()
	req, ok := t.requests[view]
	return req, ok
}

// Snapshot returns a copy of every pending request
func (t *TakeOver) Snapshot() models.TakeOverRequests {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(models.TakeOverRequests, len(t.requests))
	for v, r := range t.requests {
		out[v] = r
	}
	return out
}

// Replace swaps in a full set of requests. Requests for unknown or unowned
// views are dropped.
func (t *TakeOver) Replace(requests models.TakeOverRequests) {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := make(models.TakeOverRequests, len(requests))
	for v, r := range requests {
		if !v.Valid() {
			continue
		}
		next[v] = r
	}
	t.requests = next
	t.dropOrphansLocked()
}

// DropOrphans removes requests whose view no longer has an owner or whose
// requester now owns it. Returns the views that were dropped.
func (t *TakeOver) DropOrphans() []models.ViewID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropOrphansLocked()
}

func (t *TakeOver) dropOrphansLocked() []models.ViewID {
	var dropped []models.ViewID
	for v, r := range t.requests {
		owner, owned := t.ledger.OwnerOf(v)
		if !owned || owner.LoggerID == r.FromLoggerID {
			delete(t.requests, v)
			dropped = append(dropped, v)
		}
	}
	return dropped
}
