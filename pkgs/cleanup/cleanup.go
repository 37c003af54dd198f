// Package cleanup finds accounts sharing the same (username, password) pair
// and removes every row belonging to the duplicates across all dependent
// tables. The whole deletion pass runs in one transaction: either every
// group's deletions commit, or the database is left exactly as before.
package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

// tempTableThreshold is the tweet count above which condemned tweet IDs are
// staged in a temporary table instead of an array parameter, keeping the
// delete statements bounded for users with large tweet sets.
const tempTableThreshold = 100

// stagingChunkSize bounds how many IDs go into the staging table per insert.
const stagingChunkSize = 1000

////////////////////////////////////////////////////////////////////////////////

type UsernameCount struct {
	Username string `db:"username"`
	Count    int    `db:"duplicate_count"`
}

// Distribution reports the duplicate situation without mutating anything.
type Distribution struct {
	TotalAccounts       int
	UniqueCombinations  int
	TotalDuplicates     int
	DuplicatePercentage float64
	MaxGroupSize        int
	TopUsernames        []UsernameCount
}

// Analyze groups accounts by credential pair and reports totals, duplicate
// percentage, the largest group, and the ten most duplicated usernames.
func Analyze(ctx context.Context, db *sqlx.DB) (*Distribution, error) {
	stmt := `
	SELECT
		COUNT(*) AS total_accounts,
		COUNT(DISTINCT (username, password)) AS unique_combinations,
		COALESCE(MAX(duplicate_count), 0) AS max_group_size
	FROM (
		SELECT username, password, COUNT(*) AS duplicate_count
		FROM accounts
		GROUP BY username, password
	) subquery`

	var row struct {
		TotalAccounts      int `db:"total_accounts"`
		UniqueCombinations int `db:"unique_combinations"`
		MaxGroupSize       int `db:"max_group_size"`
	}
	if err := db.GetContext(ctx, &row, stmt); err != nil {
		return nil, fmt.Errorf("failed to analyze duplicates: %w", err)
	}

	dist := &Distribution{
		TotalAccounts:      row.TotalAccounts,
		UniqueCombinations: row.UniqueCombinations,
		TotalDuplicates:    row.TotalAccounts - row.UniqueCombinations,
		MaxGroupSize:       row.MaxGroupSize,
	}
	if dist.TotalAccounts > 0 {
		dist.DuplicatePercentage = float64(dist.TotalDuplicates) * 100 / float64(dist.TotalAccounts)
	}

	topStmt := `
	SELECT username, COUNT(*) AS duplicate_count
	FROM accounts
	GROUP BY username, password
	HAVING COUNT(*) > 1
	ORDER BY COUNT(*) DESC, username
	LIMIT 10`
	if err := db.SelectContext(ctx, &dist.TopUsernames, topStmt); err != nil {
		return nil, fmt.Errorf("failed to list top duplicates: %w", err)
	}

	return dist, nil
}

////////////////////////////////////////////////////////////////////////////////

// Result counts what one Cleanup run removed.
type Result struct {
	Groups          int
	AccountsDeleted int
	UsersDeleted    int
	TweetsDeleted   int
	MessagesDeleted int
	MentionsDeleted int
	ViewsRefreshed  bool
	Elapsed         time.Duration
}

type duplicateGroup struct {
	Username string        `db:"username"`
	Password string        `db:"password"`
	UserIDs  pq.Int64Array `db:"user_ids"`
}

// Cleanup deletes every duplicate account and all its dependent rows in one
// transaction. The survivor of each group is the lowest user ID; the
// array_agg ordering makes that explicit rather than relying on whatever
// order the engine returns groups in.
func Cleanup(ctx context.Context, db *sqlx.DB) (*Result, error) {
	start := time.Now()
	result := &Result{}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin cleanup transaction: %w", err)
	}
	defer tx.Rollback()

	groupStmt := `
	SELECT username, password, array_agg(id_users ORDER BY id_users) AS user_ids
	FROM accounts
	GROUP BY username, password
	HAVING COUNT(*) > 1
	ORDER BY COUNT(*) DESC`

	var groups []duplicateGroup
	if err := tx.SelectContext(ctx, &groups, groupStmt); err != nil {
		return nil, fmt.Errorf("failed to find duplicate groups: %w", err)
	}
	if len(groups) == 0 {
		log.Info("No duplicate username-password combinations found")
		result.Elapsed = time.Since(start)
		return result, nil
	}
	result.Groups = len(groups)
	log.WithField("groups", len(groups)).Info("Found duplicate username-password combinations")

	for _, group := range groups {
		survivor := group.UserIDs[0]
		condemned := group.UserIDs[1:]

		log.WithFields(log.Fields{
			"username": group.Username,
			"survivor": survivor,
			"deleting": len(condemned),
		}).Info("Processing duplicate group")

		for _, userID := range condemned {
			if err := deleteUserData(ctx, tx, userID, result); err != nil {
				return nil, fmt.Errorf("failed to delete data for user %d: %w", userID, err)
			}
			result.AccountsDeleted++
			result.UsersDeleted++
		}
	}

	// Derived aggregates are refreshed best-effort; a failure here must not
	// roll back the deletions.
	result.ViewsRefreshed = refreshAggregates(ctx, tx)

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit cleanup: %w", err)
	}

	result.Elapsed = time.Since(start)
	log.WithFields(log.Fields{
		"accounts": result.AccountsDeleted,
		"users":    result.UsersDeleted,
		"tweets":   result.TweetsDeleted,
		"messages": result.MessagesDeleted,
		"elapsed":  result.Elapsed.Round(time.Millisecond),
	}).Info("Cleanup complete")
	return result, nil
}

// deleteUserData removes every row belonging to one condemned user, in
// foreign-key order: tweet relations, tweets, messages, mentions of the user,
// the account, and finally the user row.
func deleteUserData(ctx context.Context, tx *sqlx.Tx, userID int64, result *Result) error {
	var tweetIDs []int64
	if err := tx.SelectContext(ctx, &tweetIDs,
		`SELECT id_tweets FROM tweets WHERE id_users = $1`, userID); err != nil {
		return fmt.Errorf("failed to collect tweet ids: %w", err)
	}

	if len(tweetIDs) > 0 {
		if len(tweetIDs) > tempTableThreshold {
			if err := deleteTweetsStaged(ctx, tx, tweetIDs); err != nil {
				return err
			}
		} else {
			if err := deleteTweetsDirect(ctx, tx, tweetIDs); err != nil {
				return err
			}
		}
		result.TweetsDeleted += len(tweetIDs)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE id_users = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		result.MessagesDeleted += int(n)
	}

	// Mentions of this user as the mentioned party, not as author.
	res, err = tx.ExecContext(ctx, `DELETE FROM tweet_mentions WHERE id_users = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete mentions of user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		result.MentionsDeleted += int(n)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id_users = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id_users = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

var tweetRelationTables = []string{"tweet_tags", "tweet_mentions", "tweet_urls", "tweet_media"}

// deleteTweetsDirect handles small tweet sets with array parameters.
func deleteTweetsDirect(ctx context.Context, tx *sqlx.Tx, tweetIDs []int64) error {
	ids := pq.Array(tweetIDs)
	for _, table := range tweetRelationTables {
		stmt := fmt.Sprintf(`DELETE FROM %s WHERE id_tweets = ANY($1)`, table)
		if _, err := tx.ExecContext(ctx, stmt, ids); err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tweets WHERE id_tweets = ANY($1)`, ids); err != nil {
		return fmt.Errorf("failed to delete tweets: %w", err)
	}
	return nil
}

// deleteTweetsStaged stages large tweet-ID sets in a temporary table so the
// relation deletes join against it instead of carrying oversized parameter
// lists.
func deleteTweetsStaged(ctx context.Context, tx *sqlx.Tx, tweetIDs []int64) error {
	if _, err := tx.ExecContext(ctx,
		`CREATE TEMP TABLE temp_tweet_ids (id_tweets BIGINT PRIMARY KEY) ON COMMIT DROP`); err != nil {
		return fmt.Errorf("failed to create staging table: %w", err)
	}

	for start := 0; start < len(tweetIDs); start += stagingChunkSize {
		end := start + stagingChunkSize
		if end > len(tweetIDs) {
			end = len(tweetIDs)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO temp_tweet_ids SELECT unnest($1::bigint[])`,
			pq.Array(tweetIDs[start:end])); err != nil {
			return fmt.Errorf("failed to stage tweet ids: %w", err)
		}
	}

	for _, table := range tweetRelationTables {
		stmt := fmt.Sprintf(
			`DELETE FROM %s WHERE id_tweets IN (SELECT id_tweets FROM temp_tweet_ids)`, table)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM tweets WHERE id_tweets IN (SELECT id_tweets FROM temp_tweet_ids)`); err != nil {
		return fmt.Errorf("failed to delete tweets: %w", err)
	}

	// Dropped early so the next condemned user can stage its own set.
	if _, err := tx.ExecContext(ctx, `DROP TABLE temp_tweet_ids`); err != nil {
		return fmt.Errorf("failed to drop staging table: %w", err)
	}
	return nil
}

// refreshAggregates refreshes the derived views inside the cleanup
// transaction. Each refresh runs under a savepoint so a missing or broken
// view cannot poison the transaction and roll back the deletions.
func refreshAggregates(ctx context.Context, tx *sqlx.Tx) bool {
	refreshed := true
	for _, view := range []string{"tweet_tags_total", "tweet_tags_cooccurrence"} {
		if _, err := tx.ExecContext(ctx, `SAVEPOINT refresh_view`); err != nil {
			log.WithError(err).Warn("Could not create savepoint for view refresh")
			return false
		}
		if _, err := tx.ExecContext(ctx, `REFRESH MATERIALIZED VIEW `+view); err != nil {
			log.WithError(err).WithField("view", view).Warn("Could not refresh materialized view")
			refreshed = false
			if _, err := tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT refresh_view`); err != nil {
				log.WithError(err).Warn("Could not roll back view refresh savepoint")
				return false
			}
			continue
		}
		if _, err := tx.ExecContext(ctx, `RELEASE SAVEPOINT refresh_view`); err != nil {
			log.WithError(err).Warn("Could not release view refresh savepoint")
		}
	}
	return refreshed
}
