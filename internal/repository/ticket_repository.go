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

const ticketColumns = `id, user_id, guild_id, channel_id, subject, category, status, assigned_to,
               ai_responded, tracked, tracked_at, tracked_by, notion_page_id,
               created_at, closed_at, escalated_at`

// TicketFilter captures staff search parameters.
type TicketFilter struct {
	UserID     *string
	GuildID    *string
	AssignedTo *string
	Statuses   []domain.TicketStatus
	Categories []domain.Category
	ExcludeID  *int64
	CreatedTo  *time.Time
	Limit      int
	Offset     int
}

// TicketStats aggregates ticket counts, optionally for one requester.
type TicketStats struct {
	Total      int
	Open       int
	Closed     int
	AvgRating  *float64
	ByCategory map[domain.Category]int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	FindActiveByUser(ctx context.Context, userID, guildID string) (*domain.Ticket, error)
	TransitionStatus(ctx context.Context, ticket *domain.Ticket, from []domain.TicketStatus) error
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ListUserHistory(ctx context.Context, userID, guildID string, excludeID int64, limit int) ([]domain.Ticket, error)
	ListStale(ctx context.Context, cutoff time.Time, afterID int64, limit int) ([]domain.Ticket, error)
	MarkEscalated(ctx context.Context, id int64, at time.Time) (bool, error)
	MarkAIResponded(ctx context.Context, id int64) error
	Stats(ctx context.Context, userID *string) (TicketStats, error)
	CountByStatus(ctx context.Context, statuses ...domain.TicketStatus) (int, error)
	AvgResolutionSince(ctx context.Context, since time.Time) (time.Duration, int, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (user_id, guild_id, channel_id, subject, category, status, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.UserID,
		ticket.GuildID,
		ticket.ChannelID,
		ticket.Subject,
		ticket.Category,
		ticket.Status,
		ticket.CreatedAt,
	).Scan(&ticket.ID, &ticket.CreatedAt)
	return mapUnique(err)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return fetchTicket(ctx, r.pool, query, id)
}

func (r *ticketRepository) FindActiveByUser(ctx context.Context, userID, guildID string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
        FROM tickets
        WHERE user_id=$1 AND guild_id=$2 AND status IN ('open','claimed')
        ORDER BY created_at DESC LIMIT 1`
	return fetchTicket(ctx, r.pool, query, userID, guildID)
}

// TransitionStatus writes the lifecycle fields only if the stored status is
// still one of from. pgx.ErrNoRows means another writer got there first.
func (r *ticketRepository) TransitionStatus(ctx context.Context, ticket *domain.Ticket, from []domain.TicketStatus) error {
	return transitionTicket(ctx, r.pool, ticket, from)
}

func transitionTicket(ctx context.Context, q querier, ticket *domain.Ticket, from []domain.TicketStatus) error {
	query := `
        UPDATE tickets SET status=$3, assigned_to=$4, closed_at=$5
        WHERE id=$1 AND status = ANY($2)
        RETURNING ` + ticketColumns
	updated, err := fetchTicket(ctx, q, query, ticket.ID, statusStrings(from), ticket.Status, ticket.AssignedTo, ticket.ClosedAt)
	if err != nil {
		return err
	}
	*ticket = *updated
	return nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("user_id=$%d", len(args)))
	}
	if filter.GuildID != nil {
		args = append(args, *filter.GuildID)
		clauses = append(clauses, fmt.Sprintf("guild_id=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Categories) > 0 {
		placeholders := make([]string, len(filter.Categories))
		for i, c := range filter.Categories {
			args = append(args, c)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("category IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.ExcludeID != nil {
		args = append(args, *filter.ExcludeID)
		clauses = append(clauses, fmt.Sprintf("id <> $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListUserHistory(ctx context.Context, userID, guildID string, excludeID int64, limit int) ([]domain.Ticket, error) {
	return r.ListWithFilter(ctx, TicketFilter{
		UserID:    &userID,
		GuildID:   &guildID,
		ExcludeID: &excludeID,
		Statuses:  []domain.TicketStatus{domain.TicketStatusClosed, domain.TicketStatusOpen, domain.TicketStatusClaimed},
		Limit:     limit,
	})
}

// ListStale returns one page of escalation candidates with id > afterID.
// Callers page until a short page comes back.
func (r *ticketRepository) ListStale(ctx context.Context, cutoff time.Time, afterID int64, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + ticketColumns + `
        FROM tickets
        WHERE status='open' AND assigned_to IS NULL AND escalated_at IS NULL AND created_at <= $1 AND id > $2
        ORDER BY id ASC LIMIT $3`
	rows, err := r.pool.Query(ctx, query, cutoff, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// MarkEscalated stamps escalated_at once. It reports false when the ticket was
// already escalated, claimed, or moved on in the meantime.
func (r *ticketRepository) MarkEscalated(ctx context.Context, id int64, at time.Time) (bool, error) {
	const query = `
        UPDATE tickets SET escalated_at=$2
        WHERE id=$1 AND escalated_at IS NULL AND status='open' AND assigned_to IS NULL`
	cmd, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *ticketRepository) MarkAIResponded(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE tickets SET ai_responded=TRUE WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) Stats(ctx context.Context, userID *string) (TicketStats, error) {
	stats := TicketStats{ByCategory: map[domain.Category]int{}}

	where := ""
	args := []any{}
	if userID != nil {
		args = append(args, *userID)
		where = "WHERE t.user_id=$1"
	}

	countQuery := `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE t.status='open'),
               COUNT(*) FILTER (WHERE t.status='closed'),
               AVG(f.rating)::float8
        FROM tickets t LEFT JOIN feedback f ON f.ticket_id = t.id ` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&stats.Total, &stats.Open, &stats.Closed, &stats.AvgRating); err != nil {
		return stats, err
	}

	categoryQuery := `SELECT t.category, COUNT(*) FROM tickets t ` + where + ` GROUP BY t.category`
	rows, err := r.pool.Query(ctx, categoryQuery, args...)
	if err != nil {
		return stats, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			category domain.Category
			count    int
		)
		if err := rows.Scan(&category, &count); err != nil {
			return stats, err
		}
		stats.ByCategory[category] = count
	}
	return stats, rows.Err()
}

func (r *ticketRepository) CountByStatus(ctx context.Context, statuses ...domain.TicketStatus) (int, error) {
	var count int
	if len(statuses) == 0 {
		err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets`).Scan(&count)
		return count, err
	}
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE status = ANY($1)`, statusStrings(statuses)).Scan(&count)
	return count, err
}

// AvgResolutionSince averages closed_at - created_at over tickets closed
// after since. The count is the number of tickets averaged.
func (r *ticketRepository) AvgResolutionSince(ctx context.Context, since time.Time) (time.Duration, int, error) {
	const query = `
        SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (closed_at - created_at))), 0)::float8, COUNT(*)
        FROM tickets
        WHERE status='closed' AND closed_at >= $1`
	var (
		seconds float64
		count   int
	)
	if err := r.pool.QueryRow(ctx, query, since).Scan(&seconds, &count); err != nil {
		return 0, 0, err
	}
	return time.Duration(seconds * float64(time.Second)), count, nil
}

func fetchTicket(ctx context.Context, q querier, query string, args ...any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := scanTicket(q.QueryRow(ctx, query, args...), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.UserID,
		&ticket.GuildID,
		&ticket.ChannelID,
		&ticket.Subject,
		&ticket.Category,
		&ticket.Status,
		&ticket.AssignedTo,
		&ticket.AIResponded,
		&ticket.Tracked,
		&ticket.TrackedAt,
		&ticket.TrackedBy,
		&ticket.NotionPageID,
		&ticket.CreatedAt,
		&ticket.ClosedAt,
		&ticket.EscalatedAt,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func statusStrings(statuses []domain.TicketStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
