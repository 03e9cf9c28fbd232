package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx operations repositories need. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so the same repository code serves
// standalone reads and transactional writes.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UnitOfWork runs ticket and ledger writes as a single logical unit. If fn
// returns an error the transaction is rolled back and neither write applies.
type UnitOfWork interface {
	InTx(ctx context.Context, fn func(tickets TicketRepository, history HistoryRepository) error) error
}

type txManager struct {
	pool *pgxpool.Pool
}

// NewTxManager builds a UnitOfWork over a pgx pool.
func NewTxManager(pool *pgxpool.Pool) UnitOfWork {
	return &txManager{pool: pool}
}

func (m *txManager) InTx(ctx context.Context, fn func(tickets TicketRepository, history HistoryRepository) error) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(NewTicketRepository(tx), NewHistoryRepository(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
