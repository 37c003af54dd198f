package tweetrepo

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tonghsuan/chirp/pkgs/model"
)

type Repo struct{}

func New() *Repo {
	return &Repo{}
}

// TweetWithAuthor joins one tweet row with its author's profile fields.
// Relation rows are fetched separately by the batch helpers below; every
// cross-table read is an explicit bounded query, never an implicit traversal.
type TweetWithAuthor struct {
	model.Tweet
	AuthorScreenName  sql.NullString `db:"author_screen_name"`
	AuthorName        sql.NullString `db:"author_name"`
	AuthorDescription sql.NullString `db:"author_description"`
	AuthorLocation    sql.NullString `db:"author_location"`
	AuthorVerified    sql.NullBool   `db:"author_verified"`
	AuthorURL         sql.NullString `db:"author_url"`
}

// ListPageWithAuthors returns one page of tweets joined with author
// profiles, newest first.
func (r *Repo) ListPageWithAuthors(ctx context.Context, db *sqlx.DB, limit, offset int) ([]TweetWithAuthor, error) {
	stmt := `SELECT t.id_tweets, t.id_users, t.created_at, t.in_reply_to_status_id,
			t.in_reply_to_user_id, t.quoted_status_id, t.retweet_count, t.favorite_count,
			t.quote_count, t.withheld_copyright, t.withheld_in_countries, t.source, t.text,
			t.country_code, t.state_code, t.lang, t.place_name, ST_AsText(t.geo) AS geo,
			u.screen_name AS author_screen_name, u.name AS author_name,
			u.description AS author_description, u.location AS author_location,
			u.verified AS author_verified, u.url AS author_url
			FROM tweets t
			LEFT JOIN users u ON t.id_users = u.id_users
			ORDER BY t.created_at DESC LIMIT $1 OFFSET $2`
	var tweets []TweetWithAuthor
	err := db.SelectContext(ctx, &tweets, stmt, limit, offset)
	return tweets, err
}

func (r *Repo) CountAll(ctx context.Context, db *sqlx.DB) (int, error) {
	var count int
	err := db.GetContext(ctx, &count, `SELECT COUNT(*) FROM tweets`)
	return count, err
}

func (r *Repo) TagsForTweets(ctx context.Context, db *sqlx.DB, ids []int64) ([]model.TweetTag, error) {
	var tags []model.TweetTag
	stmt := `SELECT id_tweets, tag FROM tweet_tags WHERE id_tweets = ANY($1)`
	err := db.SelectContext(ctx, &tags, stmt, pq.Array(ids))
	return tags, err
}

func (r *Repo) URLsForTweets(ctx context.Context, db *sqlx.DB, ids []int64) ([]model.TweetURL, error) {
	var urls []model.TweetURL
	stmt := `SELECT id_tweets, url FROM tweet_urls WHERE id_tweets = ANY($1)`
	err := db.SelectContext(ctx, &urls, stmt, pq.Array(ids))
	return urls, err
}

func (r *Repo) MediaForTweets(ctx context.Context, db *sqlx.DB, ids []int64) ([]model.TweetMedia, error) {
	var media []model.TweetMedia
	stmt := `SELECT id_tweets, url, type FROM tweet_media WHERE id_tweets = ANY($1)`
	err := db.SelectContext(ctx, &media, stmt, pq.Array(ids))
	return media, err
}

// MentionWithUser joins a mention row with the mentioned user's names.
type MentionWithUser struct {
	IDTweets   int64          `db:"id_tweets"`
	IDUsers    int64          `db:"id_users"`
	ScreenName sql.NullString `db:"screen_name"`
	Name       sql.NullString `db:"name"`
}

func (r *Repo) MentionsForTweets(ctx context.Context, db *sqlx.DB, ids []int64) ([]MentionWithUser, error) {
	var mentions []MentionWithUser
	stmt := `SELECT tm.id_tweets, tm.id_users, u.screen_name, u.name
			FROM tweet_mentions tm
			LEFT JOIN users u ON tm.id_users = u.id_users
			WHERE tm.id_tweets = ANY($1)`
	err := db.SelectContext(ctx, &mentions, stmt, pq.Array(ids))
	return mentions, err
}

// TopTags reads the tweet_tags_total materialized view. The view may be
// stale until the next explicit refresh.
func (r *Repo) TopTags(ctx context.Context, db *sqlx.DB, limit int) ([]model.TweetTagTotal, error) {
	var tags []model.TweetTagTotal
	stmt := `SELECT row, tag, total FROM tweet_tags_total ORDER BY total DESC LIMIT $1`
	err := db.SelectContext(ctx, &tags, stmt, limit)
	return tags, err
}
