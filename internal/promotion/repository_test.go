package promotion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fjod/natal_store/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepository(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return NewPostgresRepository(sqlx.NewDb(mockDB, "postgres")), mock
}

var promotionRowColumns = []string{
	"id", "title", "discount_percentage", "start_date", "end_date", "active", "banner_url", "product_ids", "created_at",
}

func TestPostgresRepository_Create(t *testing.T) {
	repo, mock := newMockRepository(t)

	start := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 25, 23, 59, 59, 0, time.UTC)
	created := time.Date(2024, 11, 30, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO promotions`).
		WithArgs("Natal Iluminado", 20, start, end, true, "", "{1,2}").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), created))

	p := &domain.Promotion{
		Title:              "Natal Iluminado",
		DiscountPercentage: 20,
		StartDate:          start,
		EndDate:            end,
		Active:             true,
		ProductIDs:         []int64{1, 2},
	}
	require.NoError(t, repo.Create(context.Background(), p))
	assert.Equal(t, int64(7), p.ID)
	assert.Equal(t, created, p.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ListRunning(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Date(2024, 12, 10, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(promotionRowColumns).
		AddRow(int64(1), "Luzes", 30, now.Add(-time.Hour), now.Add(time.Hour), true, "", "{1,9}", now).
		AddRow(int64(2), "Fachada", 10, now.Add(-time.Hour), now.Add(time.Hour), true, "banner.png", "{3}", now)

	mock.ExpectQuery(`SELECT (.+) FROM promotions\s+WHERE active AND start_date <= \$1 AND end_date >= \$1`).
		WithArgs(now).
		WillReturnRows(rows)

	got, err := repo.ListRunning(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []int64{1, 9}, got[0].ProductIDs)
	assert.Equal(t, "banner.png", got[1].BannerURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Delete_NotFound(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`DELETE FROM promotions WHERE id = \$1`).
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), 99)
	assert.ErrorIs(t, err, ErrPromotionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_SetActive(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`UPDATE promotions SET active = \$1 WHERE id = \$2`).
		WithArgs(false, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetActive(context.Background(), 3, false))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_DeactivateEndedBefore(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Now()

	mock.ExpectExec(`UPDATE promotions SET active = FALSE WHERE active AND end_date < \$1`).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.DeactivateEndedBefore(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_List_QueryError(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`SELECT (.+) FROM promotions ORDER BY`).
		WillReturnError(errors.New("connection refused"))

	_, err := repo.List(context.Background())
	assert.ErrorContains(t, err, "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}
