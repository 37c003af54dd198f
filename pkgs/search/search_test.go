package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

func TestSearch_EmptyQueryIssuesNoSQL(t *testing.T) {
	db, mock := newMockDB(t)

	resp := Search(context.Background(), db, "", 1, 0)

	assert.Empty(t, resp.Results)
	assert.Equal(t, 0, resp.TotalResults)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 1, resp.TotalPages)
	assert.False(t, resp.HasPrev)
	assert.False(t, resp.HasNext)
	assert.Empty(t, resp.Error)
	// No expectations were registered, so any query would have failed the
	// match and surfaced in ExpectationsWereMet.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearch_WhitespaceQueryIssuesNoSQL(t *testing.T) {
	db, mock := newMockDB(t)

	resp := Search(context.Background(), db, "   ", 1, 0)

	assert.Empty(t, resp.Results)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearch_QueryErrorYieldsSafeDefaults(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT COUNT").WillReturnError(errors.New("relation does not exist"))

	resp := Search(context.Background(), db, "hello", 3, 0)

	assert.Equal(t, "search failed", resp.Error)
	assert.Empty(t, resp.Results)
	assert.Equal(t, 0, resp.TotalResults)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 0, resp.TotalPages)
	assert.False(t, resp.HasPrev)
	assert.False(t, resp.HasNext)
}

func TestSearch_ResultsAreHighlightedAndOwned(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("hello").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery("SELECT m.id_message").
		WithArgs("hello", SearchPageSize, 0).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id_message", "message_text", "created_at", "id_users", "username"}).
			AddRow(1, "hello world", now, 7, "alice").
			AddRow(2, "say hello", now.Add(-time.Hour), 8, "bob"))

	resp := Search(context.Background(), db, "hello", 1, 7)

	require.Len(t, resp.Results, 2)
	assert.Equal(t, 2, resp.TotalResults)
	assert.Equal(t, `<span class="highlight">hello</span> world`, resp.Results[0].HighlightedText)
	assert.True(t, resp.Results[0].IsOwn)
	assert.False(t, resp.Results[1].IsOwn)
	assert.Equal(t, 1, resp.TotalPages)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearch_PageOffsets(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("hello").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(95))
	mock.ExpectQuery("SELECT m.id_message").
		WithArgs("hello", SearchPageSize, 90).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id_message", "message_text", "created_at", "id_users", "username"}))

	resp := Search(context.Background(), db, "hello", 4, 0)

	assert.Equal(t, 4, resp.Page)
	assert.Equal(t, 4, resp.TotalPages)
	assert.True(t, resp.HasPrev)
	assert.False(t, resp.HasNext)
	assert.NoError(t, mock.ExpectationsWereMet())
}
