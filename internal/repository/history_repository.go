package repository

import (
	"context"

	"github.com/spec-kit/support-desk/internal/domain"
)

// HistoryRepository stores the append-only audit ledger. Entries are never
// updated or deleted.
type HistoryRepository interface {
	Create(ctx context.Context, record *domain.HistoryRecord) error
	// ListByTicket returns the ticket's ledger newest first.
	ListByTicket(ctx context.Context, ticketID string) ([]domain.HistoryRecord, error)
}

type historyRepository struct {
	db Querier
}

// NewHistoryRepository builds the repository over a pool or transaction.
func NewHistoryRepository(db Querier) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Create(ctx context.Context, record *domain.HistoryRecord) error {
	const query = `
        INSERT INTO ticket_history (ticket_id, before_status, after_status, before_priority, after_priority,
                                    before_assignees, after_assignees, changed_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		record.TicketID,
		record.BeforeStatus,
		record.AfterStatus,
		record.BeforePriority,
		record.AfterPriority,
		record.BeforeAssignees,
		record.AfterAssignees,
		record.ChangedBy,
	).Scan(&record.ID, &record.CreatedAt)
}

func (r *historyRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.HistoryRecord, error) {
	const query = `
        SELECT id, ticket_id, before_status, after_status, before_priority, after_priority,
               before_assignees, after_assignees, changed_by, created_at
        FROM ticket_history WHERE ticket_id=$1 ORDER BY created_at DESC, id DESC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.HistoryRecord
	for rows.Next() {
		var record domain.HistoryRecord
		if err := rows.Scan(
			&record.ID,
			&record.TicketID,
			&record.BeforeStatus,
			&record.AfterStatus,
			&record.BeforePriority,
			&record.AfterPriority,
			&record.BeforeAssignees,
			&record.AfterAssignees,
			&record.ChangedBy,
			&record.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	return result, rows.Err()
}
