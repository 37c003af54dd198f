package messagerepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tonghsuan/chirp/pkgs/model"
)

type Repo struct{}

func New() *Repo {
	return &Repo{}
}

func (r *Repo) Create(ctx context.Context, db *sqlx.DB, msg *model.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	stmt := `INSERT INTO messages (id_users, id_message, message_text, created_at)
			VALUES (:id_users, :id_message, :message_text, :created_at)`
	_, err := db.NamedExecContext(ctx, stmt, msg)
	return err
}

// NextID returns the next sequential message ID for the account; 1 when the
// account has no messages yet. Loader-generated messages live in the
// 11-digit range and do not interfere with this numbering in practice.
func (r *Repo) NextID(ctx context.Context, db *sqlx.DB, idUsers int64) (int64, error) {
	var max sql.NullInt64
	stmt := `SELECT MAX(id_message) FROM messages WHERE id_users=$1`
	if err := db.GetContext(ctx, &max, stmt, idUsers); err != nil {
		return 0, err
	}
	return max.Int64 + 1, nil
}

func (r *Repo) ListByUser(ctx context.Context, db *sqlx.DB, idUsers int64) ([]model.Message, error) {
	stmt := `SELECT * FROM messages WHERE id_users=$1 ORDER BY created_at DESC`
	var messages []model.Message
	err := db.SelectContext(ctx, &messages, stmt, idUsers)
	return messages, err
}

func (r *Repo) CountAll(ctx context.Context, db *sqlx.DB) (int, error) {
	var count int
	err := db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages`)
	return count, err
}
