package userrepo

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
// together with the paired account row.
func (r *Repo) Create(ctx context.Context, db sqlx.ExtContext, user *model.User) error {
	stmt := `INSERT INTO users (id_users, created_at, updated_at, screen_name, name,
			friends_count, listed_count, favourites_count, statuses_count, protected, verified)
			VALUES (:id_users, :created_at, :updated_at, :screen_name, :name,
			:friends_count, :listed_count, :favourites_count, :statuses_count, :protected, :verified)`
	_, err := sqlx.NamedExecContext(ctx, db, stmt, user)
	return err
}

func (r *Repo) MaxID(ctx context.Context, db *sqlx.DB) (int64, error) {
	var max sql.NullInt64
	err := db.GetContext(ctx, &max, `SELECT MAX(id_users) FROM users`)
	if err != nil {
		return 0, err
	}
	return max.Int64, nil
}

func (r *Repo) Count(ctx context.Context, db *sqlx.DB) (int, error) {
	var count int
	err := db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`)
	return count, err
}
