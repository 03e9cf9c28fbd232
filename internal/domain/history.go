package domain

import "time"

// HistoryRecord is one immutable audit entry for a ticket. Records are
// append-only and totally ordered by creation time; the first record for a
// ticket carries only after-values and represents its birth event.
//
// Exactly the fields that changed are populated: a status change fills the
// status pair, a priority change the priority pair, an assignment change the
// assignee lists. A single update that changes both status and priority
// yields one merged record.
type HistoryRecord struct {
	ID              string
	TicketID        string
	BeforeStatus    *Status
	AfterStatus     *Status
	BeforePriority  *Priority
	AfterPriority   *Priority
	BeforeAssignees []string
	AfterAssignees  []string
	ChangedBy       string
	CreatedAt       time.Time
}

// Empty reports whether the record captures no delta at all. Empty records
// must never reach the ledger: a no-op update produces no entry.
func (h *HistoryRecord) Empty() bool {
	return h.AfterStatus == nil && h.AfterPriority == nil && h.AfterAssignees == nil
}
