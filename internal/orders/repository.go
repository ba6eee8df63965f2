package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/natal_store/internal/domain"
	"github.com/fjod/natal_store/internal/storage"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const (
	EventOrderPlaced        = "order_placed"
	EventOrderStatusChanged = "order_status_changed"
)

// Event is the outbox payload published for every order change.
type Event struct {
	Type           string             `json:"event_type"`
	OrderID        string             `json:"order_id"`
	Status         domain.OrderStatus `json:"status"`
	PreviousStatus domain.OrderStatus `json:"previous_status,omitempty"`
	Order          *domain.Order      `json:"order"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

type OutboxEvent struct {
	ID          int64           `db:"id"`
	AggregateID string          `db:"aggregate_id"`
	EventType   string          `db:"event_type"`
	Payload     json.RawMessage `db:"payload"`
	CreatedAt   time.Time       `db:"created_at"`
}

type Repository interface {
	// Create stores the order and its order_placed event atomically.
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Order, error)
	Search(ctx context.Context, term string) ([]*domain.Order, error)
	// UpdateStatus moves the order from one status to another and records an
	// order_status_changed event. It fails with ErrStatusConflict when the
	// order is no longer in status from.
	UpdateStatus(ctx context.Context, o *domain.Order, from domain.OrderStatus) error

	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

type orderRow struct {
	ID              uuid.UUID       `db:"id"`
	IdempotencyKey  string          `db:"idempotency_key"`
	UserID          string          `db:"user_id"`
	UserName        string          `db:"user_name"`
	UserEmail       string          `db:"user_email"`
	Items           []byte          `db:"items"`
	Subtotal        decimal.Decimal `db:"subtotal"`
	Shipping        decimal.Decimal `db:"shipping"`
	Discount        decimal.Decimal `db:"discount"`
	Total           decimal.Decimal `db:"total"`
	Status          string          `db:"status"`
	ShippingAddress string          `db:"shipping_address"`
	PaymentMethod   string          `db:"payment_method"`
	PaymentID       string          `db:"payment_id"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

func (r orderRow) toDomain() (*domain.Order, error) {
	o := &domain.Order{
		ID:              r.ID,
		IdempotencyKey:  r.IdempotencyKey,
		UserID:          r.UserID,
		UserName:        r.UserName,
		UserEmail:       r.UserEmail,
		Subtotal:        r.Subtotal,
		Shipping:        r.Shipping,
		Discount:        r.Discount,
		Total:           r.Total,
		Status:          domain.OrderStatus(r.Status),
		ShippingAddress: r.ShippingAddress,
		PaymentMethod:   domain.PaymentMethod(r.PaymentMethod),
		PaymentID:       r.PaymentID,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if err := json.Unmarshal(r.Items, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	return o, nil
}

const orderColumns = `id, idempotency_key, user_id, user_name, user_email, items, subtotal, shipping, discount,
	total, status, shipping_address, payment_method, payment_id, created_at, updated_at`

type PostgresRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db, now: time.Now}
}

func (r *PostgresRepository) Create(ctx context.Context, o *domain.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (id, idempotency_key, user_id, user_name, user_email, items, subtotal, shipping,
		                    discount, total, status, shipping_address, payment_method, payment_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at`

	err = tx.QueryRowxContext(ctx, query,
		o.ID, o.IdempotencyKey, o.UserID, o.UserName, o.UserEmail, string(itemsJSON),
		o.Subtotal, o.Shipping, o.Discount, o.Total, string(o.Status),
		o.ShippingAddress, string(o.PaymentMethod), o.PaymentID,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", err)
	}

	event := Event{Type: EventOrderPlaced, OrderID: o.ID.String(), Status: o.Status, Order: o, OccurredAt: o.CreatedAt}
	if err := insertEvent(ctx, tx, event); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}
	return nil
}

func insertEvent(ctx context.Context, tx *sqlx.Tx, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Type, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO outbox_events (aggregate_id, event_type, payload) VALUES ($1, $2, $3)`,
		event.OrderID, event.Type, string(payload))
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 AND idempotency_key = $2`, userID, key)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Order, error) {
	var row orderRow
	err := r.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	return row.toDomain()
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	return r.selectOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

// Search matches term against the order id, customer name and e-mail.
// An empty term lists every order.
func (r *PostgresRepository) Search(ctx context.Context, term string) ([]*domain.Order, error) {
	return r.selectOrders(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE $1 = ''
		   OR id::text ILIKE $2 ESCAPE '\'
		   OR user_name ILIKE $2 ESCAPE '\'
		   OR user_email ILIKE $2 ESCAPE '\'
		ORDER BY created_at DESC`, term, storage.ContainsPattern(term))
}

func (r *PostgresRepository) selectOrders(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	var rows []orderRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	orders := make([]*domain.Order, 0, len(rows))
	for _, row := range rows {
		o, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, o *domain.Order, from domain.OrderStatus) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowxContext(ctx,
		`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3 RETURNING updated_at`,
		string(o.Status), o.ID, string(from),
	).Scan(&o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrStatusConflict
	}
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	event := Event{
		Type:           EventOrderStatusChanged,
		OrderID:        o.ID.String(),
		Status:         o.Status,
		PreviousStatus: from,
		Order:          o,
		OccurredAt:     o.UpdatedAt,
	}
	if err := insertEvent(ctx, tx, event); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit status change: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	var events []*OutboxEvent
	err := r.db.SelectContext(ctx, &events, `
		SELECT id, aggregate_id, event_type, payload, created_at
		FROM outbox_events
		WHERE processed_at IS NULL
		ORDER BY id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	return events, nil
}

func (r *PostgresRepository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE outbox_events SET processed_at = $1 WHERE id = $2`, r.now(), id)
	if err != nil {
		return fmt.Errorf("mark outbox event %d: %w", id, err)
	}
	return nil
}
