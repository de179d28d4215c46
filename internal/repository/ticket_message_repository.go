package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/weaver-helpdesk/internal/domain"
)

// TicketMessageRepository stores messages posted into ticket threads by the service.
type TicketMessageRepository interface {
	Create(ctx context.Context, msg *domain.TicketMessage) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketMessage, error)
}

type ticketMessageRepository struct {
	pool *pgxpool.Pool
}

// NewTicketMessageRepository builds repository.
func NewTicketMessageRepository(pool *pgxpool.Pool) TicketMessageRepository {
	return &ticketMessageRepository{pool: pool}
}

func (r *ticketMessageRepository) Create(ctx context.Context, msg *domain.TicketMessage) error {
	const query = `
        INSERT INTO ticket_messages (ticket_id, author_id, content, is_ai)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		msg.TicketID,
		msg.AuthorID,
		msg.Content,
		msg.IsAI,
	).Scan(&msg.ID, &msg.CreatedAt)
}

func (r *ticketMessageRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketMessage, error) {
	const query = `
        SELECT id, ticket_id, author_id, content, is_ai, created_at
        FROM ticket_messages WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketMessage
	for rows.Next() {
		var msg domain.TicketMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.TicketID,
			&msg.AuthorID,
			&msg.Content,
			&msg.IsAI,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
