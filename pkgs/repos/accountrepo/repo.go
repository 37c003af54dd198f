package accountrepo

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/tonghsuan/chirp/pkgs/model"
)

type Repo struct{}

func New() *Repo {
	return &Repo{}
}

// Create takes an ExtContext so the caller can run it inside a transaction
// together with the paired user row.
func (r *Repo) Create(ctx context.Context, db sqlx.ExtContext, account *model.Account) error {
	stmt := `INSERT INTO accounts (id_users, username, password)
			VALUES (:id_users, :username, :password)`
	_, err := sqlx.NamedExecContext(ctx, db, stmt, account)
	return err
}

// GetByCredentials returns the account matching the exact username/password
// pair, or nil when none matches. Credentials are compared in plaintext; the
// duplicate-account cleanup relies on this exact-equality key.
func (r *Repo) GetByCredentials(ctx context.Context, db *sqlx.DB, username, password string) (*model.Account, error) {
	stmt := `SELECT * FROM accounts WHERE username=$1 AND password=$2 LIMIT 1`
	result := &model.Account{}
	err := db.GetContext(ctx, result, stmt, username, password)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Repo) GetByUsername(ctx context.Context, db *sqlx.DB, username string) (*model.Account, error) {
	stmt := `SELECT * FROM accounts WHERE username=$1 LIMIT 1`
	result := &model.Account{}
	err := db.GetContext(ctx, result, stmt, username)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// MaxID returns the highest id_users in accounts, 0 when the table is empty.
func (r *Repo) MaxID(ctx context.Context, db *sqlx.DB) (int64, error) {
	var max sql.NullInt64
	err := db.GetContext(ctx, &max, `SELECT MAX(id_users) FROM accounts`)
	if err != nil {
		return 0, err
	}
	return max.Int64, nil
}
