package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/natal_store/internal/domain"
	"github.com/shopspring/decimal"
)

// Repository persists products. Consumers define narrower views of it.
type Repository interface {
	List(ctx context.Context) ([]*domain.Product, error)
	Get(ctx context.Context, id int64) (*domain.Product, error)
	GetMany(ctx context.Context, ids []int64) ([]*domain.Product, error)
	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id int64) error
	AdjustStock(ctx context.Context, id int64, delta int32) (int32, error)
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const productColumns = `id, name, price, old_price, category, image, images, is_featured, rating,
	description, specifications, reviews, stock, is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p                      domain.Product
		oldPrice               decimal.NullDecimal
		images, specs, reviews string
		isFeatured, isActive   bool
	)
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Price,
		&oldPrice,
		&p.Category,
		&p.Image,
		&images,
		&isFeatured,
		&p.Rating,
		&p.Description,
		&specs,
		&reviews,
		&p.Stock,
		&isActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if oldPrice.Valid {
		p.OldPrice = &oldPrice.Decimal
	}
	p.IsFeatured = isFeatured
	p.IsActive = isActive

	if err := json.Unmarshal([]byte(images), &p.Images); err != nil {
		return nil, fmt.Errorf("unmarshal images of product %d: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(specs), &p.Specifications); err != nil {
		return nil, fmt.Errorf("unmarshal specifications of product %d: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(reviews), &p.Reviews); err != nil {
		return nil, fmt.Errorf("unmarshal reviews of product %d: %w", p.ID, err)
	}
	return &p, nil
}

func (r *SQLiteRepository) queryProducts(ctx context.Context, query string, args ...any) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*domain.Product, error) {
	return r.queryProducts(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
}

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product %d: %w", id, err)
	}
	return p, nil
}

func (r *SQLiteRepository) GetMany(ctx context.Context, ids []int64) ([]*domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return r.queryProducts(ctx,
		`SELECT `+productColumns+` FROM products WHERE id IN (`+placeholders+`) ORDER BY id`, args...)
}

type encodedProduct struct {
	oldPrice               any
	images, specs, reviews string
}

func encode(p *domain.Product) (*encodedProduct, error) {
	images, err := json.Marshal(nonNil(p.Images))
	if err != nil {
		return nil, fmt.Errorf("marshal images: %w", err)
	}
	specs, err := json.Marshal(nonNil(p.Specifications))
	if err != nil {
		return nil, fmt.Errorf("marshal specifications: %w", err)
	}
	reviews, err := json.Marshal(nonNil(p.Reviews))
	if err != nil {
		return nil, fmt.Errorf("marshal reviews: %w", err)
	}
	e := &encodedProduct{images: string(images), specs: string(specs), reviews: string(reviews)}
	if p.OldPrice != nil {
		e.oldPrice = p.OldPrice.StringFixed(2)
	}
	return e, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (r *SQLiteRepository) Create(ctx context.Context, p *domain.Product) error {
	e, err := encode(p)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO products (name, price, old_price, category, image, images, is_featured, rating,
			description, specifications, reviews, stock, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Price.StringFixed(2), e.oldPrice, p.Category, p.Image, e.images, p.IsFeatured, p.Rating,
		p.Description, e.specs, e.reviews, p.Stock, p.IsActive, now, now)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read product id: %w", err)
	}
	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, p *domain.Product) error {
	e, err := encode(p)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE products SET name = ?, price = ?, old_price = ?, category = ?, image = ?, images = ?,
			is_featured = ?, rating = ?, description = ?, specifications = ?, reviews = ?, stock = ?,
			is_active = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Price.StringFixed(2), e.oldPrice, p.Category, p.Image, e.images,
		p.IsFeatured, p.Rating, p.Description, e.specs, e.reviews, p.Stock,
		p.IsActive, now, p.ID)
	if err != nil {
		return fmt.Errorf("update product %d: %w", p.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProductNotFound
	}
	p.UpdatedAt = now
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProductNotFound
	}
	return nil
}

// AdjustStock adds delta to the product's stock and returns the new level.
// The update is refused when it would take stock below zero.
func (r *SQLiteRepository) AdjustStock(ctx context.Context, id int64, delta int32) (int32, error) {
	var stock int32
	err := r.db.QueryRowContext(ctx, `
		UPDATE products SET stock = stock + ?, updated_at = ?
		WHERE id = ? AND stock + ? >= 0
		RETURNING stock`,
		delta, time.Now().UTC(), id, delta).Scan(&stock)
	if err == nil {
		return stock, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("adjust stock of product %d: %w", id, err)
	}
	if _, getErr := r.Get(ctx, id); getErr != nil {
		return 0, getErr
	}
	return 0, ErrInsufficientStock
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
