package search

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"

	"github.com/tonghsuan/chirp/pkgs/repos/messagerepo"
	"github.com/tonghsuan/chirp/pkgs/repos/tweetrepo"
)

const (
	recentMessageCount = 20
	messagesPageSize   = 50
	tweetsPageSize     = 20
)

// MessageView is one message row with its author's username, as rendered on
// the home and all-messages views.
type MessageView struct {
	IDMessage int64     `db:"id_message"`
	IDUsers   int64     `db:"id_users"`
	Text      string    `db:"message_text"`
	CreatedAt time.Time `db:"created_at"`
	Username  string    `db:"username"`
	IsOwn     bool      `db:"-"`
}

// MessagePage is one page of the all-messages view.
type MessagePage struct {
	Messages   []MessageView
	Page       int
	TotalPages int
	HasPrev    bool
	HasNext    bool
}

const messageListStmt = `
	SELECT m.id_message, m.message_text, m.created_at, m.id_users, a.username
	FROM messages m
	JOIN accounts a ON m.id_users = a.id_users
	ORDER BY m.created_at DESC
	LIMIT $1 OFFSET $2`

// RecentMessages returns the newest messages across all users.
func RecentMessages(ctx context.Context, db *sqlx.DB, viewerID int64) ([]MessageView, error) {
	var messages []MessageView
	if err := db.SelectContext(ctx, &messages, messageListStmt, recentMessageCount, 0); err != nil {
		return nil, err
	}
	markOwn(messages, viewerID)
	return messages, nil
}

// Messages returns one page of the paginated all-messages view.
func Messages(ctx context.Context, db *sqlx.DB, repo *messagerepo.Repo, page int, viewerID int64) (*MessagePage, error) {
	if page < 1 {
		page = 1
	}

	total, err := repo.CountAll(ctx, db)
	if err != nil {
		return nil, err
	}

	result := &MessagePage{Page: page}
	offset := (page - 1) * messagesPageSize
	if err := db.SelectContext(ctx, &result.Messages, messageListStmt, messagesPageSize, offset); err != nil {
		return nil, err
	}
	markOwn(result.Messages, viewerID)

	result.TotalPages, result.HasPrev, result.HasNext = paginate(total, page, messagesPageSize)
	return result, nil
}

func markOwn(messages []MessageView, viewerID int64) {
	if viewerID == 0 {
		return
	}
	for i := range messages {
		messages[i].IsOwn = messages[i].IDUsers == viewerID
	}
}

////////////////////////////////////////////////////////////////////////////////

// TweetView is one fully assembled tweet for the read-only corpus browser.
type TweetView struct {
	ID            int64         `json:"id"`
	Text          string        `json:"text"`
	CreatedAt     time.Time     `json:"created_at"`
	RetweetCount  int           `json:"retweet_count"`
	FavoriteCount int           `json:"favorite_count"`
	QuoteCount    int           `json:"quote_count"`
	Source        string        `json:"source,omitempty"`
	Lang          string        `json:"lang,omitempty"`
	User          TweetUserView `json:"user"`
	Hashtags      []string      `json:"hashtags"`
	Mentions      []MentionView `json:"mentions"`
	Media         []MediaView   `json:"media"`
	URLs          []string      `json:"urls"`
	IsRetweet     bool          `json:"is_retweet"`
	IsQuote       bool          `json:"is_quote"`
	Location      TweetLocation `json:"location"`
}

type TweetUserView struct {
	ID          int64  `json:"id"`
	ScreenName  string `json:"screen_name,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	Verified    bool   `json:"verified"`
	URL         string `json:"url,omitempty"`
}

type MentionView struct {
	ID         int64  `json:"id"`
	ScreenName string `json:"screen_name,omitempty"`
	Name       string `json:"name,omitempty"`
}

type MediaView struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

type TweetLocation struct {
	PlaceName   string `json:"place_name,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
	StateCode   string `json:"state_code,omitempty"`
}

// TweetPage is one page of the tweets browser.
type TweetPage struct {
	Tweets     []TweetView
	Page       int
	TotalCount int
	TotalPages int
	HasPrev    bool
	HasNext    bool
}

// Tweets assembles one page of tweets with their relation rows. Relations
// are fetched in one batch query per table for the whole page, keyed by the
// page's tweet IDs.
func Tweets(ctx context.Context, db *sqlx.DB, repo *tweetrepo.Repo, page int) (*TweetPage, error) {
	if page < 1 {
		page = 1
	}

	total, err := repo.CountAll(ctx, db)
	if err != nil {
		return nil, err
	}

	offset := (page - 1) * tweetsPageSize
	rows, err := repo.ListPageWithAuthors(ctx, db, tweetsPageSize, offset)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.IDTweets)
	}

	tagsByTweet := make(map[int64][]string)
	mentionsByTweet := make(map[int64][]MentionView)
	urlsByTweet := make(map[int64][]string)
	mediaByTweet := make(map[int64][]MediaView)

	if len(ids) > 0 {
		tags, err := repo.TagsForTweets(ctx, db, ids)
		if err != nil {
			return nil, err
		}
		for _, tag := range tags {
			tagsByTweet[tag.IDTweets] = append(tagsByTweet[tag.IDTweets], tag.Tag)
		}

		mentions, err := repo.MentionsForTweets(ctx, db, ids)
		if err != nil {
			return nil, err
		}
		for _, m := range mentions {
			mentionsByTweet[m.IDTweets] = append(mentionsByTweet[m.IDTweets], MentionView{
				ID:         m.IDUsers,
				ScreenName: m.ScreenName.String,
				Name:       m.Name.String,
			})
		}

		urls, err := repo.URLsForTweets(ctx, db, ids)
		if err != nil {
			return nil, err
		}
		for _, u := range urls {
			urlsByTweet[u.IDTweets] = append(urlsByTweet[u.IDTweets], u.URL)
		}

		media, err := repo.MediaForTweets(ctx, db, ids)
		if err != nil {
			return nil, err
		}
		for _, m := range media {
			mediaByTweet[m.IDTweets] = append(mediaByTweet[m.IDTweets], MediaView{URL: m.URL, Type: m.Type})
		}
	}

	result := &TweetPage{Page: page, TotalCount: total, Tweets: make([]TweetView, 0, len(rows))}
	for _, row := range rows {
		view := TweetView{
			ID:            row.IDTweets,
			Text:          row.Text,
			CreatedAt:     row.CreatedAt,
			RetweetCount:  row.RetweetCount,
			FavoriteCount: row.FavoriteCount,
			QuoteCount:    row.QuoteCount,
			Source:        row.Source.String,
			Lang:          row.Lang.String,
			User: TweetUserView{
				ID:          row.IDUsers,
				ScreenName:  row.AuthorScreenName.String,
				Name:        row.AuthorName.String,
				Description: row.AuthorDescription.String,
				Location:    row.AuthorLocation.String,
				Verified:    row.AuthorVerified.Bool,
				URL:         row.AuthorURL.String,
			},
			Hashtags:  tagsByTweet[row.IDTweets],
			Mentions:  mentionsByTweet[row.IDTweets],
			Media:     mediaByTweet[row.IDTweets],
			URLs:      urlsByTweet[row.IDTweets],
			IsRetweet: strings.HasPrefix(row.Text, "RT @"),
			IsQuote:   row.QuotedStatusID.Valid,
			Location: TweetLocation{
				PlaceName:   row.PlaceName.String,
				CountryCode: row.CountryCode.String,
				StateCode:   row.StateCode.String,
			},
		}
		result.Tweets = append(result.Tweets, view)
	}

	result.TotalPages, result.HasPrev, result.HasNext = paginate(total, page, tweetsPageSize)

	log.WithFields(log.Fields{
		"page":   page,
		"tweets": len(result.Tweets),
		"total":  total,
	}).Debug("Assembled tweet page")
	return result, nil
}
