package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/weaver-helpdesk/internal/domain"
)

// FeedbackRepository persists requester ratings.
type FeedbackRepository interface {
	GetByTicket(ctx context.Context, ticketID int64) (*domain.Feedback, error)
	// CreateAndClose stores the feedback and moves the ticket in one
	// transaction. ErrDuplicate means feedback already exists; pgx.ErrNoRows
	// means the ticket left the from statuses.
	CreateAndClose(ctx context.Context, fb *domain.Feedback, ticket *domain.Ticket, from []domain.TicketStatus) error
}

type feedbackRepository struct {
	pool *pgxpool.Pool
}

// NewFeedbackRepository builds repository.
func NewFeedbackRepository(pool *pgxpool.Pool) FeedbackRepository {
	return &feedbackRepository{pool: pool}
}

func (r *feedbackRepository) GetByTicket(ctx context.Context, ticketID int64) (*domain.Feedback, error) {
	const query = `
        SELECT id, ticket_id, rating, comment, created_at
        FROM feedback WHERE ticket_id=$1`
	var fb domain.Feedback
	if err := r.pool.QueryRow(ctx, query, ticketID).Scan(
		&fb.ID,
		&fb.TicketID,
		&fb.Rating,
		&fb.Comment,
		&fb.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &fb, nil
}

func (r *feedbackRepository) CreateAndClose(ctx context.Context, fb *domain.Feedback, ticket *domain.Ticket, from []domain.TicketStatus) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		const insert = `
            INSERT INTO feedback (ticket_id, rating, comment, created_at)
            VALUES ($1,$2,$3,$4)
            RETURNING id, created_at`
		if err := tx.QueryRow(ctx, insert, fb.TicketID, fb.Rating, fb.Comment, fb.CreatedAt).Scan(&fb.ID, &fb.CreatedAt); err != nil {
			return mapUnique(err)
		}
		return transitionTicket(ctx, tx, ticket, from)
	})
}

func withTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
