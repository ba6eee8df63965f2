package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/natal_store/internal/domain"
	"github.com/fjod/natal_store/internal/storage"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context, search string) ([]*domain.User, error)
	UpdateStatus(ctx context.Context, id string, status domain.UserStatus) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateAddress(ctx context.Context, id string, addr *domain.Address) error
	// UpsertAdmin inserts the administrator or refreshes its name, password
	// and role when the e-mail already exists. u.ID is set to the stored id.
	UpsertAdmin(ctx context.Context, u *domain.User) error
}

type userRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	Phone        string    `db:"phone"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	Status       string    `db:"status"`
	Address      []byte    `db:"address"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r userRow) toDomain() (*domain.User, error) {
	u := &domain.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		Phone:        r.Phone,
		PasswordHash: r.PasswordHash,
		Role:         domain.Role(r.Role),
		Status:       domain.UserStatus(r.Status),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if len(r.Address) > 0 {
		var addr domain.Address
		if err := json.Unmarshal(r.Address, &addr); err != nil {
			return nil, fmt.Errorf("failed to decode address of user %s: %w", r.ID, err)
		}
		u.Address = &addr
	}
	return u, nil
}

const userColumns = `id, name, email, phone, password_hash, role, status, address, created_at, updated_at`

type PostgresUserRepository struct {
	db *sqlx.DB
}

func NewPostgresUserRepository(db *sqlx.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, u *domain.User) error {
	address, err := addressJSON(u.Address)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO users (id, name, email, phone, password_hash, role, status, address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err = r.db.QueryRowxContext(ctx, query,
		u.ID, u.Name, u.Email, u.Phone, u.PasswordHash, string(u.Role), string(u.Status), address,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PostgresUserRepository) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	var row userRow
	if err := r.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return row.toDomain()
}

// List returns users newest first, filtered by a case-insensitive match on
// name or e-mail when search is not empty.
func (r *PostgresUserRepository) List(ctx context.Context, search string) ([]*domain.User, error) {
	query := `
		SELECT ` + userColumns + ` FROM users
		WHERE $1 = '' OR name ILIKE $2 ESCAPE '\' OR email ILIKE $2 ESCAPE '\'
		ORDER BY created_at DESC`

	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, query, search, storage.ContainsPattern(search)); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	users := make([]*domain.User, 0, len(rows))
	for _, row := range rows {
		u, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func (r *PostgresUserRepository) UpdateStatus(ctx context.Context, id string, status domain.UserStatus) error {
	return r.update(ctx, `UPDATE users SET status = $1, updated_at = NOW() WHERE id = $2`, string(status), id)
}

func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.update(ctx, `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`, passwordHash, id)
}

func (r *PostgresUserRepository) UpdateAddress(ctx context.Context, id string, addr *domain.Address) error {
	address, err := addressJSON(addr)
	if err != nil {
		return err
	}
	return r.update(ctx, `UPDATE users SET address = $1, updated_at = NOW() WHERE id = $2`, address, id)
}

func (r *PostgresUserRepository) update(ctx context.Context, query string, value any, id string) error {
	res, err := r.db.ExecContext(ctx, query, value, id)
	if err != nil {
		return fmt.Errorf("failed to update user %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PostgresUserRepository) UpsertAdmin(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (id, name, email, phone, password_hash, role, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (email) DO UPDATE
		SET name = EXCLUDED.name,
		    password_hash = EXCLUDED.password_hash,
		    role = EXCLUDED.role,
		    status = EXCLUDED.status,
		    updated_at = NOW()
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		u.ID, u.Name, u.Email, u.Phone, u.PasswordHash, string(u.Role), string(u.Status),
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert admin: %w", err)
	}
	return nil
}

// addressJSON encodes addr for a JSONB column. A nil address stores NULL.
func addressJSON(addr *domain.Address) (any, error) {
	if addr == nil {
		return nil, nil
	}
	b, err := json.Marshal(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to encode address: %w", err)
	}
	return string(b), nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
