package board

import (
	"context"
	"sync"

	"github.com/spec-kit/support-desk/internal/domain"
)

// Ticket is the board's view of a ticket: the card rendered in a column.
type Ticket struct {
	ID          string
	Title       string
	Description string
	Status      domain.Status
	Priority    domain.Priority
	AssignedTo  []MemberRef
}

// MemberRef is the display identity of an assigned member.
type MemberRef struct {
	ID    string
	Name  string
	Email string
}

// Mover performs the remote status change backing a drag. Implemented by the
// HTTP client in production and by fakes in tests.
type Mover interface {
	MoveTicket(ctx context.Context, ticketID string, status domain.Status) (*Ticket, error)
}

// DragState tracks one in-flight drag operation.
type DragState int

const (
	StateIdle DragState = iota
	StateDragging
	StateOptimisticallyApplied
	StateCommitted
	StateRolledBack
)

// Outcome reports how a reconciliation ended.
type Outcome int

const (
	// OutcomeCommitted: the remote call succeeded; local state now holds the
	// authoritative record.
	OutcomeCommitted Outcome = iota
	// OutcomeRolledBack: the remote call failed; local state reverted to the
	// pre-drag snapshot.
	OutcomeRolledBack
	// OutcomeSuperseded: a newer drag on the same ticket was issued before
	// this response arrived; the stale response was discarded.
	OutcomeSuperseded
)

// MoveHandle lets callers await one reconciliation.
type MoveHandle struct {
	done    chan struct{}
	outcome Outcome
}

// Done is closed when the reconciliation resolved.
func (h *MoveHandle) Done() <-chan struct{} {
	return h.done
}

// Outcome is valid after Done is closed.
func (h *MoveHandle) Outcome() Outcome {
	return h.outcome
}

type pendingMove struct {
	seq    uint64
	prev   Ticket
	target domain.Status
}

// Reconciler keeps the local board view eventually consistent with the
// lifecycle engine under optimistic drag updates. Drops apply locally before
// the network round-trip; the remote result either commits (authoritative
// overwrite) or rolls back the full pre-drag snapshot. One pending
// reconciliation record exists per ticket id; per-ticket sequence numbers
// make supersession deterministic: the latest issued drag wins and stale
// responses are discarded on arrival.
type Reconciler struct {
	mover Mover

	mu      sync.Mutex
	tickets []Ticket
	states  map[string]DragState
	pending map[string]*pendingMove
	seq     map[string]uint64
}

// NewReconciler builds a controller over the given remote mover.
func NewReconciler(mover Mover) *Reconciler {
	return &Reconciler{
		mover:   mover,
		states:  map[string]DragState{},
		pending: map[string]*pendingMove{},
		seq:     map[string]uint64{},
	}
}

// Load replaces the local board state. Assignee slices are normalized to
// non-nil so rollback never leaves a card with an undefined assignment set.
func (r *Reconciler) Load(tickets []Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets = make([]Ticket, len(tickets))
	for i, t := range tickets {
		r.tickets[i] = normalize(t)
	}
}

// Snapshot returns a copy of the current board state in list order.
func (r *Reconciler) Snapshot() []Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Ticket, len(r.tickets))
	copy(out, r.tickets)
	return out
}

// Ticket returns the current local view of one ticket.
func (r *Reconciler) Ticket(id string) (Ticket, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.indexOf(id); i >= 0 {
		return r.tickets[i], true
	}
	return Ticket{}, false
}

// State returns the drag state for a ticket.
func (r *Reconciler) State(id string) DragState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[id]
}

// DragStart marks a ticket as picked up. Local only, no network call.
func (r *Reconciler) DragStart(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexOf(id) < 0 {
		return false
	}
	r.states[id] = StateDragging
	return true
}

// Reorder moves a ticket next to another within the local list. Dropping
// over the same column is list reordering only and never triggers a remote
// call.
func (r *Reconciler) Reorder(activeID, overID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	from := r.indexOf(activeID)
	to := r.indexOf(overID)
	if from < 0 || to < 0 || from == to {
		return
	}
	moved := r.tickets[from]
	r.tickets = append(r.tickets[:from], r.tickets[from+1:]...)
	rest := append([]Ticket{}, r.tickets[to:]...)
	r.tickets = append(append(r.tickets[:to:to], moved), rest...)
	if r.states[activeID] == StateDragging {
		r.states[activeID] = StateIdle
	}
}

// Drop completes a drag over a column. A drop on the ticket's current column
// is local-only. Otherwise the ticket's status is rewritten immediately
// (optimistic) and the remote call reconciles asynchronously; Drop never
// blocks on the network. The returned handle resolves when the
// reconciliation commits, rolls back, or is superseded.
func (r *Reconciler) Drop(ctx context.Context, id string, target domain.Status) (*MoveHandle, bool) {
	r.mu.Lock()
	i := r.indexOf(id)
	if i < 0 || !target.Valid() {
		r.mu.Unlock()
		return nil, false
	}
	current := r.tickets[i]
	if current.Status == target {
		r.states[id] = StateIdle
		r.mu.Unlock()
		return nil, false
	}

	r.seq[id]++
	seq := r.seq[id]
	prev := current
	if existing, ok := r.pending[id]; ok {
		// A newer drag supersedes the in-flight one; rollback target stays
		// the state before the first unresolved drag.
		prev = existing.prev
	}
	r.pending[id] = &pendingMove{seq: seq, prev: prev, target: target}
	r.tickets[i].Status = target
	r.states[id] = StateOptimisticallyApplied
	r.mu.Unlock()

	handle := &MoveHandle{done: make(chan struct{})}
	go func() {
		updated, err := r.mover.MoveTicket(ctx, id, target)
		handle.outcome = r.resolve(id, seq, updated, err)
		close(handle.done)
	}()
	return handle, true
}

func (r *Reconciler) resolve(id string, seq uint64, updated *Ticket, err error) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.seq[id] != seq {
		return OutcomeSuperseded
	}
	pm := r.pending[id]
	delete(r.pending, id)

	i := r.indexOf(id)
	if i < 0 {
		return OutcomeSuperseded
	}
	if err != nil || updated == nil {
		// Restore the full pre-drag snapshot: status and the assignment
		// slice, so the view never ends up in a hybrid shape.
		if pm != nil {
			r.tickets[i] = normalize(pm.prev)
		}
		r.states[id] = StateRolledBack
		return OutcomeRolledBack
	}
	r.tickets[i] = normalize(*updated)
	r.states[id] = StateCommitted
	return OutcomeCommitted
}

func (r *Reconciler) indexOf(id string) int {
	for i := range r.tickets {
		if r.tickets[i].ID == id {
			return i
		}
	}
	return -1
}

func normalize(t Ticket) Ticket {
	if t.AssignedTo == nil {
		t.AssignedTo = []MemberRef{}
	}
	return t
}
