package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/weaver-helpdesk/internal/domain"
)

const faqColumns = `id, question, answer, category, keywords, views, helpful, not_helpful, created_at, updated_at`

// FAQRepository manages knowledge-base entries.
type FAQRepository interface {
	Create(ctx context.Context, faq *domain.FAQ) error
	Update(ctx context.Context, faq *domain.FAQ) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.FAQ, error)
	RecordView(ctx context.Context, id int64) (*domain.FAQ, error)
	Vote(ctx context.Context, id int64, helpful bool) (*domain.FAQ, error)
	Search(ctx context.Context, query string, limit int) ([]domain.FAQ, error)
	List(ctx context.Context, category *domain.Category, limit int) ([]domain.FAQ, error)
	ListByCategory(ctx context.Context, category domain.Category, limit int) ([]domain.FAQ, error)
	ListCandidates(ctx context.Context, category domain.Category, keywords []string, limit int) ([]domain.FAQ, error)
	Count(ctx context.Context) (int, error)
	Categories(ctx context.Context) ([]domain.Category, error)
}

type faqRepository struct {
	pool *pgxpool.Pool
}

// NewFAQRepository builds repository.
func NewFAQRepository(pool *pgxpool.Pool) FAQRepository {
	return &faqRepository{pool: pool}
}

func (r *faqRepository) Create(ctx context.Context, faq *domain.FAQ) error {
	const query = `
        INSERT INTO faqs (question, answer, category, keywords)
        VALUES ($1,$2,$3,$4)
        RETURNING id, views, helpful, not_helpful, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		faq.Question,
		faq.Answer,
		faq.Category,
		nonNilStrings(faq.Keywords),
	).Scan(&faq.ID, &faq.Views, &faq.Helpful, &faq.NotHelpful, &faq.CreatedAt, &faq.UpdatedAt)
}

func (r *faqRepository) Update(ctx context.Context, faq *domain.FAQ) error {
	query := `
        UPDATE faqs SET question=$2, answer=$3, category=$4, keywords=$5, updated_at=NOW()
        WHERE id=$1
        RETURNING ` + faqColumns
	updated, err := r.fetchSingle(ctx, query, faq.ID, faq.Question, faq.Answer, faq.Category, nonNilStrings(faq.Keywords))
	if err != nil {
		return err
	}
	*faq = *updated
	return nil
}

func (r *faqRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM faqs WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *faqRepository) GetByID(ctx context.Context, id int64) (*domain.FAQ, error) {
	return r.fetchSingle(ctx, `SELECT `+faqColumns+` FROM faqs WHERE id=$1`, id)
}

func (r *faqRepository) RecordView(ctx context.Context, id int64) (*domain.FAQ, error) {
	return r.fetchSingle(ctx, `UPDATE faqs SET views=views+1 WHERE id=$1 RETURNING `+faqColumns, id)
}

func (r *faqRepository) Vote(ctx context.Context, id int64, helpful bool) (*domain.FAQ, error) {
	column := "not_helpful"
	if helpful {
		column = "helpful"
	}
	query := `UPDATE faqs SET ` + column + `=` + column + `+1 WHERE id=$1 RETURNING ` + faqColumns
	return r.fetchSingle(ctx, query, id)
}

func (r *faqRepository) Search(ctx context.Context, query string, limit int) ([]domain.FAQ, error) {
	term := strings.TrimSpace(query)
	sql := `SELECT ` + faqColumns + `
        FROM faqs
        WHERE question ILIKE $1 OR answer ILIKE $1 OR keywords && $2
        ORDER BY views DESC
        LIMIT $3`
	return r.list(ctx, sql, "%"+likeEscape(term)+"%", []string{strings.ToLower(term)}, limitOr(limit, 10))
}

func (r *faqRepository) List(ctx context.Context, category *domain.Category, limit int) ([]domain.FAQ, error) {
	if category != nil {
		return r.ListByCategory(ctx, *category, limitOr(limit, 25))
	}
	sql := `SELECT ` + faqColumns + ` FROM faqs ORDER BY views DESC LIMIT $1`
	return r.list(ctx, sql, limitOr(limit, 25))
}

func (r *faqRepository) ListByCategory(ctx context.Context, category domain.Category, limit int) ([]domain.FAQ, error) {
	sql := `SELECT ` + faqColumns + `
        FROM faqs WHERE category=$1
        ORDER BY views DESC, helpful DESC
        LIMIT $2`
	return r.list(ctx, sql, category, limitOr(limit, 25))
}

// ListCandidates returns FAQs that share the category or mention any keyword.
func (r *faqRepository) ListCandidates(ctx context.Context, category domain.Category, keywords []string, limit int) ([]domain.FAQ, error) {
	patterns := make([]string, len(keywords))
	lowered := make([]string, len(keywords))
	for i, kw := range keywords {
		patterns[i] = "%" + likeEscape(kw) + "%"
		lowered[i] = strings.ToLower(kw)
	}
	sql := `SELECT ` + faqColumns + `
        FROM faqs
        WHERE category=$1
           OR question ILIKE ANY($2)
           OR answer ILIKE ANY($2)
           OR keywords && $3
        ORDER BY views DESC, helpful DESC
        LIMIT $4`
	return r.list(ctx, sql, category, patterns, lowered, limitOr(limit, 6))
}

func (r *faqRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM faqs`).Scan(&count)
	return count, err
}

func (r *faqRepository) Categories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT category FROM faqs ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *faqRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.FAQ, error) {
	var faq domain.FAQ
	if err := scanFAQ(r.pool.QueryRow(ctx, query, args...), &faq); err != nil {
		return nil, err
	}
	return &faq, nil
}

func (r *faqRepository) list(ctx context.Context, query string, args ...any) ([]domain.FAQ, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.FAQ
	for rows.Next() {
		var faq domain.FAQ
		if err := scanFAQ(rows, &faq); err != nil {
			return nil, err
		}
		result = append(result, faq)
	}
	return result, rows.Err()
}

func scanFAQ(row pgx.Row, faq *domain.FAQ) error {
	return row.Scan(
		&faq.ID,
		&faq.Question,
		&faq.Answer,
		&faq.Category,
		&faq.Keywords,
		&faq.Views,
		&faq.Helpful,
		&faq.NotHelpful,
		&faq.CreatedAt,
		&faq.UpdatedAt,
	)
}

var likeReplacer = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likeEscape(s string) string {
	return likeReplacer.Replace(s)
}

func limitOr(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return limit
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
