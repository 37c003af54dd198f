package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return New(sqlx.NewDb(mockDB, "sqlmock"), ":0"), mock
}

func postForm(handler http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

const credentialsStmt = `SELECT * FROM accounts WHERE username=$1 AND password=$2 LIMIT 1`

func TestLogin_RejectsMissingFields(t *testing.T) {
	srv, mock := newTestServer(t)

	rec := postForm(srv.Router(), "/login", url.Values{"username": {"alice"}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin_RejectsBadCredentials(t *testing.T) {
	srv, mock := newTestServer(t)

	mock.ExpectQuery(regexp.QuoteMeta(credentialsStmt)).
		WithArgs("alice", "wrong").
		WillReturnRows(sqlmock.NewRows([]string{"id_users", "username", "password"}))

	rec := postForm(srv.Router(), "/login", url.Values{
		"username": {"alice"},
		"password": {"wrong"},
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin_SetsSessionCookies(t *testing.T) {
	srv, mock := newTestServer(t)

	mock.ExpectQuery(regexp.QuoteMeta(credentialsStmt)).
		WithArgs("alice", "wonderland").
		WillReturnRows(sqlmock.NewRows([]string{"id_users", "username", "password"}).
			AddRow(int64(7), "alice", "wonderland"))

	rec := postForm(srv.Router(), "/login", url.Values{
		"username": {"alice"},
		"password": {"wonderland"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)

	cookies := map[string]string{}
	for _, c := range rec.Result().Cookies() {
		cookies[c.Name] = c.Value
	}
	assert.Equal(t, "alice", cookies["username"])
	assert.Equal(t, "wonderland", cookies["password"])
	assert.Equal(t, "7", cookies["id_users"])

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["logged_in"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogout_ClearsSessionCookies(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: "username", Value: "alice"})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	for _, c := range rec.Result().Cookies() {
		assert.Equal(t, -1, c.MaxAge, "cookie %s should be expired", c.Name)
	}
}

func TestCreateAccount_RejectsMismatchedPasswords(t *testing.T) {
	srv, mock := newTestServer(t)

	rec := postForm(srv.Router(), "/create_account", url.Values{
		"username":         {"alice"},
		"password":         {"one"},
		"confirm_password": {"two"},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAccount_RejectsExistingUsername(t *testing.T) {
	srv, mock := newTestServer(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM accounts WHERE username=$1 LIMIT 1`)).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id_users", "username", "password"}).
			AddRow(int64(1), "alice", "pw"))

	rec := postForm(srv.Router(), "/create_account", url.Values{
		"username":         {"alice"},
		"password":         {"pw"},
		"confirm_password": {"pw"},
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAccount_AllocatesNextIDAcrossBothTables(t *testing.T) {
	srv, mock := newTestServer(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM accounts WHERE username=$1 LIMIT 1`)).
		WithArgs("dave").
		WillReturnRows(sqlmock.NewRows([]string{"id_users", "username", "password"}))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT MAX(id_users) FROM accounts`)).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(int64(3)))
	// The users table runs ahead after a bulk load; the allocator must clear it.
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT MAX(id_users) FROM users`)).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(int64(41)))
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO accounts`).
		WithArgs(int64(42), "dave", "pw").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO users`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec := postForm(srv.Router(), "/create_account", url.Values{
		"username":         {"dave"},
		"password":         {"pw"},
		"confirm_password": {"pw"},
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(42), body["id_users"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAccount_RollsBackWhenUserInsertFails(t *testing.T) {
	srv, mock := newTestServer(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM accounts WHERE username=$1 LIMIT 1`)).
		WithArgs("erin").
		WillReturnRows(sqlmock.NewRows([]string{"id_users", "username", "password"}))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT MAX(id_users) FROM accounts`)).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(int64(3)))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT MAX(id_users) FROM users`)).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(int64(3)))
	// The account insert succeeds but the paired user insert fails; the
	// transaction must roll back so no orphan account row persists.
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO accounts`).
		WithArgs(int64(4), "erin", "pw").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(errors.New("users insert failed"))
	mock.ExpectRollback()

	rec := postForm(srv.Router(), "/create_account", url.Values{
		"username":         {"erin"},
		"password":         {"pw"},
		"confirm_password": {"pw"},
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateMessage_RedirectsAnonymousToLogin(t *testing.T) {
	srv, mock := newTestServer(t)

	rec := postForm(srv.Router(), "/create_message", url.Values{
		"message_text": {"hello"},
	})

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateMessage_AssignsSequentialID(t *testing.T) {
	srv, mock := newTestServer(t)

	mock.ExpectQuery(regexp.QuoteMeta(credentialsStmt)).
		WithArgs("alice", "wonderland").
		WillReturnRows(sqlmock.NewRows([]string{"id_users", "username", "password"}).
			AddRow(int64(7), "alice", "wonderland"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT MAX(id_message) FROM messages WHERE id_users=$1`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(int64(4)))
	mock.ExpectExec(`INSERT INTO messages`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := httptest.NewRequest(http.MethodPost, "/create_message",
		strings.NewReader(url.Values{"message_text": {"hello world"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "username", Value: "alice"})
	req.AddCookie(&http.Cookie{Name: "password", Value: "wonderland"})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAPIMessages_UnknownAccountIs404(t *testing.T) {
	srv, mock := newTestServer(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM accounts WHERE username=$1 LIMIT 1`)).
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows([]string{"id_users", "username", "password"}))

	req := httptest.NewRequest(http.MethodGet, "/api/messages/nobody", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAPIMessages_ReturnsUserMessages(t *testing.T) {
	srv, mock := newTestServer(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM accounts WHERE username=$1 LIMIT 1`)).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id_users", "username", "password"}).
			AddRow(int64(7), "alice", "pw"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM messages WHERE id_users=$1 ORDER BY created_at DESC`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id_users", "id_message", "message_text"}).
			AddRow(int64(7), int64(2), "second").
			AddRow(int64(7), int64(1), "first"))

	req := httptest.NewRequest(http.MethodGet, "/api/messages/alice", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, float64(2), body["message_count"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAPITest_ReportsCounts(t *testing.T) {
	srv, mock := newTestServer(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM users`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM tweets`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(34))

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "success", body["status"])
	info := body["database_info"].(map[string]any)
	assert.Equal(t, float64(12), info["user_count"])
	assert.Equal(t, float64(34), info["tweet_count"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
