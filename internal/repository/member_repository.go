package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
)

// MemberRepository reads tenant membership. Membership writes belong to the
// external identity service; this side is read-only.
type MemberRepository interface {
	// FindValidMembers returns the subset of candidateIDs that are members of
	// the tenant. Unknown or foreign ids are simply absent from the result.
	FindValidMembers(ctx context.Context, tenantID string, candidateIDs []string) ([]domain.Member, error)
	ListByTenant(ctx context.Context, tenantID string) ([]domain.Member, error)
}

type memberRepository struct {
	db Querier
}

// NewMemberRepository builds the repository.
func NewMemberRepository(db Querier) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) FindValidMembers(ctx context.Context, tenantID string, candidateIDs []string) ([]domain.Member, error) {
	if len(candidateIDs) == 0 {
		return []domain.Member{}, nil
	}
	const query = `
        SELECT id, tenant_id, user_id, name, email
        FROM members WHERE tenant_id=$1 AND id = ANY($2)
        ORDER BY name`
	rows, err := r.db.Query(ctx, query, tenantID, candidateIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMembers(rows)
}

func (r *memberRepository) ListByTenant(ctx context.Context, tenantID string) ([]domain.Member, error) {
	const query = `
        SELECT id, tenant_id, user_id, name, email
        FROM members WHERE tenant_id=$1
        ORDER BY name`
	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMembers(rows)
}

func scanMembers(rows pgx.Rows) ([]domain.Member, error) {
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
