package model

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// User is an identity/profile row imported from the tweet corpus or created
// alongside an Account by the web layer.
type User struct {
	IDUsers             int64          `db:"id_users"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`
	URL                 sql.NullString `db:"url"`
	FriendsCount        int            `db:"friends_count"`
	ListedCount         int            `db:"listed_count"`
	FavouritesCount     int            `db:"favourites_count"`
	StatusesCount       int            `db:"statuses_count"`
	Protected           bool           `db:"protected"`
	Verified            bool           `db:"verified"`
	ScreenName          string         `db:"screen_name"`
	Name                string         `db:"name"`
	Location            sql.NullString `db:"location"`
	Description         sql.NullString `db:"description"`
	WithheldInCountries pq.StringArray `db:"withheld_in_countries"`
}

// Account is the credential record for a User (one-to-one on id_users).
// Passwords are stored in plaintext; the duplicate-account cleanup depends on
// exact credential equality across rows.
type Account struct {
	IDUsers  int64  `db:"id_users"`
	Username string `db:"username"`
	Password string `db:"password"`
}

// Message is a short post keyed by (id_users, id_message). id_message is
// assigned per account: sequentially by the web layer, randomly by the loader.
type Message struct {
	IDUsers     int64     `db:"id_users"`
	IDMessage   int64     `db:"id_message"`
	MessageText string    `db:"message_text"`
	CreatedAt   time.Time `db:"created_at"`
}

type Tweet struct {
	IDTweets            int64          `db:"id_tweets"`
	IDUsers             int64          `db:"id_users"`
	CreatedAt           time.Time      `db:"created_at"`
	InReplyToStatusID   sql.NullInt64  `db:"in_reply_to_status_id"`
	InReplyToUserID     sql.NullInt64  `db:"in_reply_to_user_id"`
	QuotedStatusID      sql.NullInt64  `db:"quoted_status_id"`
	RetweetCount        int            `db:"retweet_count"`
	FavoriteCount       int            `db:"favorite_count"`
	QuoteCount          int            `db:"quote_count"`
	WithheldCopyright   bool           `db:"withheld_copyright"`
	WithheldInCountries pq.StringArray `db:"withheld_in_countries"`
	Source              sql.NullString `db:"source"`
	Text                string         `db:"text"`
	CountryCode         sql.NullString `db:"country_code"`
	StateCode           sql.NullString `db:"state_code"`
	Lang                sql.NullString `db:"lang"`
	PlaceName           sql.NullString `db:"place_name"`
	// Geo carries WKT ("POINT(lng lat)"); PostGIS parses it on insert.
	Geo sql.NullString `db:"geo"`
}

type TweetTag struct {
	IDTweets int64  `db:"id_tweets"`
	Tag      string `db:"tag"`
}

type TweetMention struct {
	IDTweets int64 `db:"id_tweets"`
	IDUsers  int64 `db:"id_users"`
}

type TweetURL struct {
	IDTweets int64  `db:"id_tweets"`
	URL      string `db:"url"`
}

type TweetMedia struct {
	IDTweets int64  `db:"id_tweets"`
	URL      string `db:"url"`
	Type     string `db:"type"`
}

// TweetTagTotal and TweetTagCooccurrence map the derived materialized views.
// They are refreshed on demand, never written directly.
type TweetTagTotal struct {
	Row   int    `db:"row"`
	Tag   string `db:"tag"`
	Total int    `db:"total"`
}

type TweetTagCooccurrence struct {
	Tag1  string `db:"tag1"`
	Tag2  string `db:"tag2"`
	Total int    `db:"total"`
}
