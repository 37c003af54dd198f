// Package loader bulk-inserts synthetic users, accounts, messages, tweets and
// tweet relations for load testing. Phases run in strict dependency order,
// each in its own committed transaction, so a crash mid-load loses only the
// in-flight batch. Every insert is conflict-tolerant on its primary key,
// which makes re-running a range idempotent.
//
// Parallelism is external: multiple processes may load concurrently as long
// as each owns a disjoint (user_id_start, tweet_id_start) range. The loader
// does not coordinate range assignment.
package loader

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"

	"github.com/tonghsuan/chirp/pkgs/model"
)

////////////////////////////////////////////////////////////////////////////////

// Config holds per-table batch sizes. Batches bound statement size and
// transaction memory; high-volume tables get larger batches.
type Config struct {
	UserBatchSize     int
	AccountBatchSize  int
	MessageBatchSize  int
	TweetBatchSize    int
	RelationBatchSize int

	// Seed fixes the generator for reproducible runs; 0 means time-seeded.
	Seed int64
}

func DefaultConfig() Config {
	return Config{
		UserBatchSize:     1000,
		AccountBatchSize:  2000,
		MessageBatchSize:  1000,
		TweetBatchSize:    500,
		RelationBatchSize: 500,
	}
}

// Options selects how much to load and which ID range this process owns.
type Options struct {
	Users        int
	Tweets       int
	UserIDStart  int64
	TweetIDStart int64
}

// Stats counts rows generated per table group. Because inserts are
// conflict-tolerant the database may receive fewer rows on re-runs.
type Stats struct {
	Users    int
	Accounts int
	Messages int
	Tweets   int
	Tags     int
	Mentions int
	URLs     int
	Media    int
}

type Loader struct {
	cfg Config
	gen *generator
}

func New(cfg Config) *Loader {
	return &Loader{cfg: cfg, gen: newGenerator(cfg.Seed)}
}

////////////////////////////////////////////////////////////////////////////////

const (
	insertUsersStmt = `INSERT INTO users
		(id_users, created_at, updated_at, url, friends_count, listed_count,
		favourites_count, statuses_count, protected, verified, screen_name,
		name, location, description, withheld_in_countries)
		VALUES
		(:id_users, :created_at, :updated_at, :url, :friends_count, :listed_count,
		:favourites_count, :statuses_count, :protected, :verified, :screen_name,
		:name, :location, :description, :withheld_in_countries)
		ON CONFLICT (id_users) DO NOTHING`

	insertAccountsStmt = `INSERT INTO accounts (id_users, username, password)
		VALUES (:id_users, :username, :password)
		ON CONFLICT (id_users) DO NOTHING`

	insertMessagesStmt = `INSERT INTO messages (id_users, id_message, message_text, created_at)
		VALUES (:id_users, :id_message, :message_text, :created_at)
		ON CONFLICT (id_users, id_message) DO NOTHING`

	insertTweetsStmt = `INSERT INTO tweets
		(id_tweets, id_users, created_at, in_reply_to_status_id, in_reply_to_user_id,
		quoted_status_id, retweet_count, favorite_count, quote_count, withheld_copyright,
		withheld_in_countries, source, text, country_code, state_code, lang, place_name, geo)
		VALUES
		(:id_tweets, :id_users, :created_at, :in_reply_to_status_id, :in_reply_to_user_id,
		:quoted_status_id, :retweet_count, :favorite_count, :quote_count, :withheld_copyright,
		:withheld_in_countries, :source, :text, :country_code, :state_code, :lang, :place_name, :geo)
		ON CONFLICT (id_tweets) DO NOTHING`

	insertTagsStmt = `INSERT INTO tweet_tags (id_tweets, tag)
		VALUES (:id_tweets, :tag)
		ON CONFLICT (id_tweets, tag) DO NOTHING`

	insertMentionsStmt = `INSERT INTO tweet_mentions (id_tweets, id_users)
		VALUES (:id_tweets, :id_users)
		ON CONFLICT (id_tweets, id_users) DO NOTHING`

	insertURLsStmt = `INSERT INTO tweet_urls (id_tweets, url)
		VALUES (:id_tweets, :url)
		ON CONFLICT (id_tweets, url) DO NOTHING`

	insertMediaStmt = `INSERT INTO tweet_media (id_tweets, url, type)
		VALUES (:id_tweets, :url, :type)
		ON CONFLICT (id_tweets, url) DO NOTHING`
)

// Load runs the full pipeline: users, accounts, messages, tweets, then the
// four relation tables. An error aborts the failing phase's transaction only;
// previously committed phases persist.
func (l *Loader) Load(ctx context.Context, db *sqlx.DB, opts Options) (Stats, error) {
	logger := log.WithFields(log.Fields{
		"caller":         "Load",
		"users":          opts.Users,
		"tweets":         opts.Tweets,
		"user_id_start":  opts.UserIDStart,
		"tweet_id_start": opts.TweetIDStart,
	})
	var stats Stats

	logger.Info("Generating users")
	users := make([]model.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		users = append(users, l.gen.user(opts.UserIDStart+int64(i)+1))
	}
	n, err := insertBatches(ctx, db, insertUsersStmt, users, l.cfg.UserBatchSize, "users")
	if err != nil {
		return stats, err
	}
	stats.Users = n

	// Later phases reference rows that exist in the database, not just rows
	// this run generated: a previous partial run may have committed more.
	userIDs, err := idsInRange(ctx, db,
		`SELECT id_users FROM users WHERE id_users > $1 AND id_users <= $2 ORDER BY id_users`,
		opts.UserIDStart, opts.UserIDStart+int64(opts.Users))
	if err != nil {
		return stats, fmt.Errorf("failed to read back user ids: %w", err)
	}

	logger.Info("Generating accounts")
	accounts := make([]model.Account, 0, len(userIDs))
	for _, id := range userIDs {
		accounts = append(accounts, l.gen.account(id))
	}
	n, err = insertBatches(ctx, db, insertAccountsStmt, accounts, l.cfg.AccountBatchSize, "accounts")
	if err != nil {
		return stats, err
	}
	stats.Accounts = n

	logger.Info("Generating messages")
	accountIDs, err := idsInRange(ctx, db,
		`SELECT id_users FROM accounts WHERE id_users > $1 AND id_users <= $2 ORDER BY id_users`,
		opts.UserIDStart, opts.UserIDStart+int64(opts.Users))
	if err != nil {
		return stats, fmt.Errorf("failed to read back account ids: %w", err)
	}
	var messages []model.Message
	for _, id := range accountIDs {
		messages = append(messages, l.gen.messagesFor(id)...)
	}
	n, err = insertBatches(ctx, db, insertMessagesStmt, messages, l.cfg.MessageBatchSize, "messages")
	if err != nil {
		return stats, err
	}
	stats.Messages = n

	if opts.Tweets > 0 && len(userIDs) == 0 {
		return stats, fmt.Errorf("cannot generate tweets: no users in range (%d, %d]",
			opts.UserIDStart, opts.UserIDStart+int64(opts.Users))
	}

	logger.Info("Generating tweets")
	tweetIDs := make([]int64, 0, opts.Tweets)
	tweets := make([]model.Tweet, 0, opts.Tweets)
	for i := 0; i < opts.Tweets; i++ {
		id := opts.TweetIDStart + int64(i) + 1
		tweets = append(tweets, l.gen.tweet(id, userIDs, tweetIDs))
		tweetIDs = append(tweetIDs, id)
	}
	n, err = insertBatches(ctx, db, insertTweetsStmt, tweets, l.cfg.TweetBatchSize, "tweets")
	if err != nil {
		return stats, err
	}
	stats.Tweets = n

	logger.Info("Generating tweet relations")
	var tags []model.TweetTag
	var mentions []model.TweetMention
	var urls []model.TweetURL
	var media []model.TweetMedia
	for _, id := range tweetIDs {
		tags = append(tags, l.gen.tagsFor(id)...)
		mentions = append(mentions, l.gen.mentionsFor(id, userIDs)...)
		urls = append(urls, l.gen.urlsFor(id)...)
		media = append(media, l.gen.mediaFor(id)...)
	}

	if stats.Tags, err = insertBatches(ctx, db, insertTagsStmt, tags, l.cfg.RelationBatchSize, "tweet_tags"); err != nil {
		return stats, err
	}
	if stats.Mentions, err = insertBatches(ctx, db, insertMentionsStmt, mentions, l.cfg.RelationBatchSize, "tweet_mentions"); err != nil {
		return stats, err
	}
	if stats.URLs, err = insertBatches(ctx, db, insertURLsStmt, urls, l.cfg.RelationBatchSize, "tweet_urls"); err != nil {
		return stats, err
	}
	if stats.Media, err = insertBatches(ctx, db, insertMediaStmt, media, l.cfg.RelationBatchSize, "tweet_media"); err != nil {
		return stats, err
	}

	logger.WithField("stats", fmt.Sprintf("%+v", stats)).Info("Load complete")
	return stats, nil
}

////////////////////////////////////////////////////////////////////////////////

// insertBatches writes all rows in one transaction, chunked into multi-row
// parameterized statements. The whole table group commits or rolls back
// together.
func insertBatches[T any](ctx context.Context, db *sqlx.DB, stmt string, rows []T, batchSize int, table string) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = 500
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction for %s: %w", table, err)
	}
	defer tx.Rollback()

	inserted := 0
	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if _, err := tx.NamedExecContext(ctx, stmt, rows[start:end]); err != nil {
			return 0, fmt.Errorf("failed to insert %s batch at offset %d: %w", table, start, err)
		}
		inserted = end
		log.WithFields(log.Fields{
			"table": table,
			"rows":  inserted,
			"total": len(rows),
		}).Debug("Inserted batch")
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit %s: %w", table, err)
	}
	return inserted, nil
}

func idsInRange(ctx context.Context, db *sqlx.DB, stmt string, start, end int64) ([]int64, error) {
	var ids []int64
	err := db.SelectContext(ctx, &ids, stmt, start, end)
	return ids, err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func nullInt64(i int64) sql.NullInt64 {
	return sql.NullInt64{Int64: i, Valid: true}
}
