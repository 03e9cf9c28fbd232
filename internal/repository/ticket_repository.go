package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
)

// TicketFilter captures board listing parameters. TenantID is mandatory:
// every read is tenant-scoped.
type TicketFilter struct {
	TenantID   string
	Statuses   []domain.Status
	Priorities []domain.Priority
	Limit      int
	Offset     int
}

// TicketRepository encapsulates ticket persistence. All lookups take a tenant
// id so a ticket is never visible or mutable across tenants.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ReplaceAssignees(ctx context.Context, ticketID string, memberIDs []string) error
	ListAssignees(ctx context.Context, ticketID string) ([]domain.Member, error)
	Delete(ctx context.Context, tenantID, id string) error
}

type ticketRepository struct {
	db Querier
}

// NewTicketRepository instantiates the repository over a pool or transaction.
func NewTicketRepository(db Querier) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (tenant_id, customer_name, product, issue_type, description, whatsapp, status, priority)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		ticket.TenantID,
		ticket.CustomerName,
		ticket.Product,
		ticket.IssueType,
		ticket.Description,
		ticket.Whatsapp,
		ticket.Status,
		ticket.Priority,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET customer_name=$1, product=$2, issue_type=$3, description=$4,
            whatsapp=$5, status=$6, priority=$7, updated_at=NOW()
        WHERE id=$8 AND tenant_id=$9`
	cmd, err := r.db.Exec(ctx, query,
		ticket.CustomerName,
		ticket.Product,
		ticket.IssueType,
		ticket.Description,
		ticket.Whatsapp,
		ticket.Status,
		ticket.Priority,
		ticket.ID,
		ticket.TenantID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Ticket, error) {
	const query = `
        SELECT id, tenant_id, customer_name, product, issue_type, description, whatsapp,
               status, priority, created_at, updated_at
        FROM tickets WHERE id=$1 AND tenant_id=$2`
	var ticket domain.Ticket
	if err := r.db.QueryRow(ctx, query, id, tenantID).Scan(
		&ticket.ID,
		&ticket.TenantID,
		&ticket.CustomerName,
		&ticket.Product,
		&ticket.IssueType,
		&ticket.Description,
		&ticket.Whatsapp,
		&ticket.Status,
		&ticket.Priority,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	builder := sq.Select(
		"id", "tenant_id", "customer_name", "product", "issue_type", "description",
		"whatsapp", "status", "priority", "created_at", "updated_at",
	).
		From("tickets").
		Where(sq.Eq{"tenant_id": filter.TenantID}).
		OrderBy("created_at DESC").
		PlaceholderFormat(sq.Dollar)

	if len(filter.Statuses) > 0 {
		builder = builder.Where(sq.Eq{"status": filter.Statuses})
	}
	if len(filter.Priorities) > 0 {
		builder = builder.Where(sq.Eq{"priority": filter.Priorities})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.TenantID,
			&ticket.CustomerName,
			&ticket.Product,
			&ticket.IssueType,
			&ticket.Description,
			&ticket.Whatsapp,
			&ticket.Status,
			&ticket.Priority,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

// ReplaceAssignees overwrites the ticket's assignment relation with exactly
// the given member set.
func (r *ticketRepository) ReplaceAssignees(ctx context.Context, ticketID string, memberIDs []string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM ticket_assignees WHERE ticket_id=$1`, ticketID); err != nil {
		return err
	}
	for _, memberID := range memberIDs {
		if _, err := r.db.Exec(ctx,
			`INSERT INTO ticket_assignees (ticket_id, member_id) VALUES ($1,$2)`,
			ticketID, memberID,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *ticketRepository) ListAssignees(ctx context.Context, ticketID string) ([]domain.Member, error) {
	const query = `
        SELECT m.id, m.tenant_id, m.user_id, m.name, m.email
        FROM ticket_assignees ta
        JOIN members m ON m.id = ta.member_id
        WHERE ta.ticket_id=$1
        ORDER BY m.name`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Member
	for rows.Next() {
		var member domain.Member
		if err := rows.Scan(&member.ID, &member.TenantID, &member.UserID, &member.Name, &member.Email); err != nil {
			return nil, err
		}
		result = append(result, member)
	}
	return result, rows.Err()
}

func (r *ticketRepository) Delete(ctx context.Context, tenantID, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM tickets WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
