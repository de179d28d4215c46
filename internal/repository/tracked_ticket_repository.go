package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/weaver-helpdesk/internal/domain"
)

const trackedColumns = `id, ticket_id, rating, priority, status, notes, tracked_by, reviewed_by,
               notion_page_id, exported_at, created_at, updated_at`

// TrackedFilter narrows a review listing.
type TrackedFilter struct {
	Status   *domain.ReviewStatus
	Priority *domain.ReviewPriority
}

// TrackedTicketRepository manages the review queue. Writes that touch both the
// queue row and the ticket's tracking fields run in one transaction.
type TrackedTicketRepository interface {
	Track(ctx context.Context, tracked *domain.TrackedTicket) error
	GetByTicket(ctx context.Context, ticketID int64) (*domain.TrackedTicket, error)
	List(ctx context.Context, filter TrackedFilter) ([]domain.TrackedTicket, error)
	Update(ctx context.Context, tracked *domain.TrackedTicket) error
	Untrack(ctx context.Context, ticketID int64) error
	ListExportReady(ctx context.Context) ([]domain.TrackedTicket, error)
	MarkExported(ctx context.Context, ticketID int64, pageID string, at time.Time) error
}

type trackedTicketRepository struct {
	pool *pgxpool.Pool
}

// NewTrackedTicketRepository builds repository.
func NewTrackedTicketRepository(pool *pgxpool.Pool) TrackedTicketRepository {
	return &trackedTicketRepository{pool: pool}
}

func (r *trackedTicketRepository) Track(ctx context.Context, tracked *domain.TrackedTicket) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		const insert = `
            INSERT INTO tracked_tickets (ticket_id, rating, priority, status, notes, tracked_by, created_at, updated_at)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$7)
            RETURNING id, created_at, updated_at`
		if err := tx.QueryRow(ctx, insert,
			tracked.TicketID,
			tracked.Rating,
			tracked.Priority,
			tracked.Status,
			tracked.Notes,
			tracked.TrackedBy,
			tracked.CreatedAt,
		).Scan(&tracked.ID, &tracked.CreatedAt, &tracked.UpdatedAt); err != nil {
			return mapUnique(err)
		}

		cmd, err := tx.Exec(ctx,
			`UPDATE tickets SET tracked=TRUE, tracked_at=$2, tracked_by=$3 WHERE id=$1`,
			tracked.TicketID, tracked.CreatedAt, tracked.TrackedBy)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})
}

func (r *trackedTicketRepository) GetByTicket(ctx context.Context, ticketID int64) (*domain.TrackedTicket, error) {
	query := `SELECT ` + trackedColumns + ` FROM tracked_tickets WHERE ticket_id=$1`
	var tracked domain.TrackedTicket
	if err := scanTracked(r.pool.QueryRow(ctx, query, ticketID), &tracked); err != nil {
		return nil, err
	}
	return &tracked, nil
}

func (r *trackedTicketRepository) List(ctx context.Context, filter TrackedFilter) ([]domain.TrackedTicket, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM tracked_tickets WHERE %s ORDER BY created_at DESC`,
		trackedColumns, strings.Join(clauses, " AND "))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrackedRows(rows)
}

func (r *trackedTicketRepository) Update(ctx context.Context, tracked *domain.TrackedTicket) error {
	const query = `
        UPDATE tracked_tickets SET status=$2, priority=$3, notes=$4, reviewed_by=$5, updated_at=$6
        WHERE ticket_id=$1`
	cmd, err := r.pool.Exec(ctx, query,
		tracked.TicketID,
		tracked.Status,
		tracked.Priority,
		tracked.Notes,
		tracked.ReviewedBy,
		tracked.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *trackedTicketRepository) Untrack(ctx context.Context, ticketID int64) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, `DELETE FROM tracked_tickets WHERE ticket_id=$1`, ticketID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		_, err = tx.Exec(ctx,
			`UPDATE tickets SET tracked=FALSE, tracked_at=NULL, tracked_by=NULL WHERE id=$1`, ticketID)
		return err
	})
}

func (r *trackedTicketRepository) ListExportReady(ctx context.Context) ([]domain.TrackedTicket, error) {
	query := `SELECT ` + trackedColumns + `
        FROM tracked_tickets
        WHERE status='resolved' OR (status='exported' AND notion_page_id IS NULL)
        ORDER BY updated_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrackedRows(rows)
}

func (r *trackedTicketRepository) MarkExported(ctx context.Context, ticketID int64, pageID string, at time.Time) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, `
            UPDATE tracked_tickets SET status='exported', notion_page_id=$2, exported_at=$3, updated_at=$3
            WHERE ticket_id=$1`, ticketID, pageID, at)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		_, err = tx.Exec(ctx, `UPDATE tickets SET notion_page_id=$2 WHERE id=$1`, ticketID, pageID)
		return err
	})
}

func scanTracked(row pgx.Row, tracked *domain.TrackedTicket) error {
	return row.Scan(
		&tracked.ID,
		&tracked.TicketID,
		&tracked.Rating,
		&tracked.Priority,
		&tracked.Status,
		&tracked.Notes,
		&tracked.TrackedBy,
		&tracked.ReviewedBy,
		&tracked.NotionPageID,
		&tracked.ExportedAt,
		&tracked.CreatedAt,
		&tracked.UpdatedAt,
	)
}

func scanTrackedRows(rows pgx.Rows) ([]domain.TrackedTicket, error) {
	var result []domain.TrackedTicket
	for rows.Next() {
		var tracked domain.TrackedTicket
		if err := scanTracked(rows, &tracked); err != nil {
			return nil, err
		}
		result = append(result, tracked)
	}
	return result, rows.Err()
}
