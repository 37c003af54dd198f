// Package search implements ranked full-text search over messages, plus the
// paginated listing views the web layer renders. Queries are ranked by text
// relevance with recency as the tie-break, served by the GIN index (or the
// RUM indexes when provisioned).
package search

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
)

// SearchPageSize is the fixed page size of the search view. Other listing
// views choose their own.
const SearchPageSize = 30

// Row is one search hit.
type Row struct {
	IDMessage       int64     `db:"id_message"`
	IDUsers         int64     `db:"id_users"`
	Text            string    `db:"message_text"`
	HighlightedText string    `db:"-"`
	CreatedAt       time.Time `db:"created_at"`
	Username        string    `db:"username"`
	IsOwn           bool      `db:"-"`
}

// Response is the complete search result for one page. A failed query is
// reported through Error with zeroed counts and safe pagination defaults; it
// is never surfaced as a raw engine error or a panic.
type Response struct {
	Query        string
	Results      []Row
	TotalResults int
	Page         int
	TotalPages   int
	HasPrev      bool
	HasNext      bool
	ElapsedMS    int64
	Error        string
}

// The count query and the data query share this exact predicate so the total
// and the page are consistent with each other.
const searchPredicate = `to_tsvector('english', m.message_text) @@ plainto_tsquery('english', $1)`

const countStmt = `
	SELECT COUNT(*)
	FROM messages m
	JOIN accounts a ON m.id_users = a.id_users
	WHERE ` + searchPredicate

const searchStmt = `
	SELECT m.id_message, m.message_text, m.created_at, m.id_users, a.username
	FROM messages m
	JOIN accounts a ON m.id_users = a.id_users
	WHERE ` + searchPredicate + `
	ORDER BY
		ts_rank(to_tsvector('english', m.message_text), plainto_tsquery('english', $1)) DESC,
		m.created_at DESC
	LIMIT $2 OFFSET $3`

// Search runs a ranked full-text query. page is 1-indexed; viewerID marks
// results owned by the viewer (0 for anonymous). An empty query issues no SQL
// and returns an empty result set.
func Search(ctx context.Context, db *sqlx.DB, query string, page int, viewerID int64) *Response {
	if page < 1 {
		page = 1
	}
	resp := &Response{Query: query, Page: page}

	if strings.TrimSpace(query) == "" {
		resp.TotalPages, resp.HasPrev, resp.HasNext = paginate(0, page, SearchPageSize)
		return resp
	}

	start := time.Now()

	if err := db.GetContext(ctx, &resp.TotalResults, countStmt, query); err != nil {
		return searchError(resp, query, err)
	}

	offset := (page - 1) * SearchPageSize
	if err := db.SelectContext(ctx, &resp.Results, searchStmt, query, SearchPageSize, offset); err != nil {
		return searchError(resp, query, err)
	}
	resp.ElapsedMS = time.Since(start).Milliseconds()

	for i := range resp.Results {
		resp.Results[i].HighlightedText = Highlight(resp.Results[i].Text, query)
		resp.Results[i].IsOwn = viewerID != 0 && resp.Results[i].IDUsers == viewerID
	}

	resp.TotalPages, resp.HasPrev, resp.HasNext = paginate(resp.TotalResults, page, SearchPageSize)
	return resp
}

func searchError(resp *Response, query string, err error) *Response {
	log.WithError(err).WithField("query", query).Error("Search query failed")
	return &Response{
		Query: resp.Query,
		Page:  1,
		Error: "search failed",
	}
}

// paginate computes total pages (minimum 1) and prev/next flags for a
// 1-indexed page.
func paginate(total, page, pageSize int) (totalPages int, hasPrev, hasNext bool) {
	totalPages = (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	return totalPages, page > 1, page < totalPages
}
