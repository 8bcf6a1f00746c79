package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carplace-code/carplace-sub001/database"
)

func newMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	database.Database = &database.DB{DB: db}
	return mock
}

func TestDeleteListingsOlderThan(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM car_listings WHERE scraped_at").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).
			AddRow(int64(11)).AddRow(int64(12)).AddRow(int64(13)))
	mock.ExpectExec("DELETE FROM images WHERE listing_id").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM price_history WHERE listing_id").
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec("DELETE FROM car_listings WHERE id").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	count, ids, err := DeleteListingsOlderThan(time.Now().Add(-RetentionAge))
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, []int64{11, 12, 13}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteListingsOlderThanEmpty(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM car_listings WHERE scraped_at").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	count, ids, err := DeleteListingsOlderThan(time.Now().Add(-RetentionAge))
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRetentionCutoffBoundary(t *testing.T) {
	now := time.Now()
	cutoff := now.Add(-RetentionAge)

	// A listing 31 days stale falls before the cutoff and is swept; one
	// 29 days stale is retained.
	swept := now.Add(-31 * 24 * time.Hour)
	retained := now.Add(-29 * 24 * time.Hour)

	assert.True(t, swept.Before(cutoff))
	assert.False(t, retained.Before(cutoff))
}
