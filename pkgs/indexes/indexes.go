// Package indexes provisions the full-text search indexes on the messages
// table: a GIN index that is always available, and a pair of RUM indexes that
// additionally order by recency and author when the rum extension is
// installed on the server.
package indexes

import (
	"context"

	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
)

const (
	ginIndexName      = "idx_messages_fts"
	rumTimestampIndex = "idx_messages_rum_text_timestamp"
	rumAdvancedIndex  = "idx_messages_rum_advanced"
)

var indexDefinitions = map[string]string{
	ginIndexName: `CREATE INDEX idx_messages_fts ON messages
		USING gin(to_tsvector('english', message_text))`,
	rumTimestampIndex: `CREATE INDEX idx_messages_rum_text_timestamp ON messages
		USING rum(to_tsvector('english', message_text) rum_tsvector_ops, created_at)`,
	rumAdvancedIndex: `CREATE INDEX idx_messages_rum_advanced ON messages
		USING rum(to_tsvector('english', message_text) rum_tsvector_ops, created_at, id_users)`,
}

// IndexInfo is one row of the final pg_indexes listing in a Report.
type IndexInfo struct {
	TableName string `db:"tablename"`
	IndexName string `db:"indexname"`
	IndexDef  string `db:"indexdef"`
}

// Report describes what one Ensure run did. Ensure is idempotent: a second
// run reports everything as skipped and creates nothing.
type Report struct {
	RumAvailable bool
	Created      []string
	Skipped      []string
	Failed       map[string]error
	Indexes      []IndexInfo
}

// Ensure provisions the search indexes. Index creation is best-effort per
// index: a failure is recorded in the report and the remaining indexes are
// still attempted. Only connectivity-level errors are returned.
func Ensure(ctx context.Context, db *sqlx.DB) (*Report, error) {
	report := &Report{Failed: make(map[string]error)}

	ensureIndex(ctx, db, ginIndexName, report)

	available, err := rumAvailable(ctx, db)
	if err != nil {
		return nil, err
	}
	report.RumAvailable = available

	if !available {
		log.Warn("RUM extension is not available on this PostgreSQL installation; " +
			"ranked indexes will not be created")
	} else {
		if _, err := db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS rum`); err != nil {
			log.WithError(err).Error("Failed to enable RUM extension")
			report.Failed["rum extension"] = err
		} else {
			ensureIndex(ctx, db, rumTimestampIndex, report)
			ensureIndex(ctx, db, rumAdvancedIndex, report)
		}
	}

	indexes, err := listMessageIndexes(ctx, db)
	if err != nil {
		// The listing is informational only.
		log.WithError(err).Warn("Could not list message indexes")
	}
	report.Indexes = indexes

	return report, nil
}

func rumAvailable(ctx context.Context, db *sqlx.DB) (bool, error) {
	var available bool
	stmt := `SELECT EXISTS (SELECT 1 FROM pg_available_extensions WHERE name = 'rum')`
	if err := db.GetContext(ctx, &available, stmt); err != nil {
		return false, err
	}
	return available, nil
}

func indexExists(ctx context.Context, db *sqlx.DB, name string) (bool, error) {
	var exists bool
	stmt := `SELECT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = $1)`
	if err := db.GetContext(ctx, &exists, stmt, name); err != nil {
		return false, err
	}
	return exists, nil
}

func ensureIndex(ctx context.Context, db *sqlx.DB, name string, report *Report) {
	logger := log.WithField("index", name)

	exists, err := indexExists(ctx, db, name)
	if err != nil {
		logger.WithError(err).Error("Failed to probe index")
		report.Failed[name] = err
		return
	}
	if exists {
		logger.Info("Index already exists")
		report.Skipped = append(report.Skipped, name)
		return
	}

	if _, err := db.ExecContext(ctx, indexDefinitions[name]); err != nil {
		logger.WithError(err).Error("Failed to create index")
		report.Failed[name] = err
		return
	}
	logger.Info("Index created")
	report.Created = append(report.Created, name)
}

func listMessageIndexes(ctx context.Context, db *sqlx.DB) ([]IndexInfo, error) {
	stmt := `SELECT tablename, indexname, indexdef
			FROM pg_indexes
			WHERE schemaname = 'public'
			AND (tablename = 'messages' OR indexname LIKE '%rum%')
			ORDER BY tablename, indexname`
	var indexes []IndexInfo
	err := db.SelectContext(ctx, &indexes, stmt)
	return indexes, err
}
