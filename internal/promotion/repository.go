package promotion

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fjod/natal_store/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Repository interface {
	Create(ctx context.Context, p *domain.Promotion) error
	List(ctx context.Context) ([]*domain.Promotion, error)
	ListRunning(ctx context.Context, now time.Time) ([]*domain.Promotion, error)
	Delete(ctx context.Context, id int64) error
	SetActive(ctx context.Context, id int64, active bool) error
	DeactivateEndedBefore(ctx context.Context, now time.Time) (int64, error)
}

type promotionRow struct {
	ID                 int64         `db:"id"`
	Title              string        `db:"title"`
	DiscountPercentage int           `db:"discount_percentage"`
	StartDate          time.Time     `db:"start_date"`
	EndDate            time.Time     `db:"end_date"`
	Active             bool          `db:"active"`
	BannerURL          string        `db:"banner_url"`
	ProductIDs         pq.Int64Array `db:"product_ids"`
	CreatedAt          time.Time     `db:"created_at"`
}

func (r promotionRow) toDomain() *domain.Promotion {
	return &domain.Promotion{
		ID:                 r.ID,
		Title:              r.Title,
		DiscountPercentage: r.DiscountPercentage,
		StartDate:          r.StartDate,
		EndDate:            r.EndDate,
		Active:             r.Active,
		BannerURL:          r.BannerURL,
		ProductIDs:         []int64(r.ProductIDs),
		CreatedAt:          r.CreatedAt,
	}
}

const promotionColumns = `id, title, discount_percentage, start_date, end_date, active, banner_url, product_ids, created_at`

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, p *domain.Promotion) error {
	query := `
		INSERT INTO promotions (title, discount_percentage, start_date, end_date, active, banner_url, product_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := r.db.QueryRowxContext(ctx, query,
		p.Title, p.DiscountPercentage, p.StartDate, p.EndDate, p.Active, p.BannerURL, pq.Int64Array(p.ProductIDs),
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert promotion: %w", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*domain.Promotion, error) {
	return r.selectPromotions(ctx, `SELECT `+promotionColumns+` FROM promotions ORDER BY start_date DESC, id DESC`)
}

// ListRunning returns active promotions whose window contains now.
func (r *PostgresRepository) ListRunning(ctx context.Context, now time.Time) ([]*domain.Promotion, error) {
	return r.selectPromotions(ctx, `
		SELECT `+promotionColumns+` FROM promotions
		WHERE active AND start_date <= $1 AND end_date >= $1
		ORDER BY id`, now)
}

func (r *PostgresRepository) selectPromotions(ctx context.Context, query string, args ...any) ([]*domain.Promotion, error) {
	var rows []promotionRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query promotions: %w", err)
	}
	out := make([]*domain.Promotion, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM promotions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete promotion %d: %w", id, err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE promotions SET active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("failed to update promotion %d: %w", id, err)
	}
	return expectOneRow(res)
}

// DeactivateEndedBefore switches off active promotions whose end date is
// before now and returns how many were changed.
func (r *PostgresRepository) DeactivateEndedBefore(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE promotions SET active = FALSE WHERE active AND end_date < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire promotions: %w", err)
	}
	return res.RowsAffected()
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPromotionNotFound
	}
	return nil
}
