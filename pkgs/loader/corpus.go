package loader

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/tonghsuan/chirp/pkgs/model"
)

// twitterTimeLayout is the created_at format of the raw tweet archive.
const twitterTimeLayout = "Mon Jan 02 15:04:05 -0700 2006"

// CorpusStats extends the load counters with line-level accounting for a
// corpus import.
type CorpusStats struct {
	Stats
	Lines     int
	Malformed int
}

// ImportCorpus ingests newline-delimited raw tweet JSON from a local file or
// an http(s) URL into the same tables as the synthetic load, through the same
// batched conflict-tolerant pipeline. Malformed lines are counted and
// skipped, never fatal.
func (l *Loader) ImportCorpus(ctx context.Context, db *sqlx.DB, source string) (CorpusStats, error) {
	var stats CorpusStats

	path := source
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		downloaded, err := downloadCorpus(ctx, source)
		if err != nil {
			return stats, err
		}
		defer os.Remove(downloaded)
		path = downloaded
	}

	file, err := os.Open(path)
	if err != nil {
		return stats, fmt.Errorf("failed to open corpus %s: %w", path, err)
	}
	defer file.Close()

	var (
		users    []model.User
		tweets   []model.Tweet
		tags     []model.TweetTag
		mentions []model.TweetMention
		urls     []model.TweetURL
		media    []model.TweetMedia
	)
	seenUsers := make(map[int64]bool)
	seenTweets := make(map[int64]bool)

	scanner := bufio.NewScanner(file)
	// Raw tweets with extended entities can exceed the default token size.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		stats.Lines++

		if !gjson.Valid(line) {
			stats.Malformed++
			continue
		}
		tweet := gjson.Parse(line)
		if !tweet.Get("id").Exists() || !tweet.Get("user.id").Exists() {
			stats.Malformed++
			continue
		}
		// Archives repeat tweets; a duplicate inside one insert batch would
		// break the conflict-tolerant insert.
		tweetID := tweet.Get("id").Int()
		if seenTweets[tweetID] {
			continue
		}
		seenTweets[tweetID] = true

		if u, ok := corpusUser(tweet.Get("user")); ok && !seenUsers[u.IDUsers] {
			seenUsers[u.IDUsers] = true
			users = append(users, u)
		}

		t, rels := corpusTweet(tweet)
		tweets = append(tweets, t)
		tags = append(tags, rels.tags...)
		mentions = append(mentions, rels.mentions...)
		urls = append(urls, rels.urls...)
		media = append(media, rels.media...)
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("failed to read corpus: %w", err)
	}

	log.WithFields(log.Fields{
		"lines":     stats.Lines,
		"malformed": stats.Malformed,
		"users":     len(users),
		"tweets":    len(tweets),
	}).Info("Parsed corpus")

	// Same phase order and transaction boundaries as the synthetic load.
	if stats.Users, err = insertBatches(ctx, db, insertUsersStmt, users, l.cfg.UserBatchSize, "users"); err != nil {
		return stats, err
	}
	if stats.Tweets, err = insertBatches(ctx, db, insertTweetsStmt, tweets, l.cfg.TweetBatchSize, "tweets"); err != nil {
		return stats, err
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

	return stats, nil
}

func downloadCorpus(ctx context.Context, url string) (string, error) {
	tmp, err := os.CreateTemp("", "chirp-corpus-*.jsonl")
	if err != nil {
		return "", err
	}
	tmp.Close()

	client := resty.New().SetTimeout(10 * time.Minute)
	resp, err := client.R().
		SetContext(ctx).
		SetOutput(tmp.Name()).
		Get(url)
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to download corpus %s: %w", url, err)
	}
	if resp.StatusCode() != 200 {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to download corpus %s: status %d", url, resp.StatusCode())
	}

	log.WithFields(log.Fields{"url": url, "file": tmp.Name()}).Info("Downloaded corpus")
	return tmp.Name(), nil
}

////////////////////////////////////////////////////////////////////////////////

func corpusUser(user gjson.Result) (model.User, bool) {
	id := user.Get("id").Int()
	if id == 0 {
		return model.User{}, false
	}

	u := model.User{
		IDUsers:         id,
		FriendsCount:    int(user.Get("friends_count").Int()),
		ListedCount:     int(user.Get("listed_count").Int()),
		FavouritesCount: int(user.Get("favourites_count").Int()),
		StatusesCount:   int(user.Get("statuses_count").Int()),
		Protected:       user.Get("protected").Bool(),
		Verified:        user.Get("verified").Bool(),
		ScreenName:      user.Get("screen_name").String(),
		Name:            user.Get("name").String(),
	}
	if ts, err := time.Parse(twitterTimeLayout, user.Get("created_at").String()); err == nil {
		u.CreatedAt = ts
	} else {
		u.CreatedAt = time.Now()
	}
	u.UpdatedAt = u.CreatedAt
	if v := user.Get("url").String(); v != "" {
		u.URL = nullString(v)
	}
	if v := user.Get("location").String(); v != "" {
		u.Location = nullString(v)
	}
	if v := user.Get("description").String(); v != "" {
		u.Description = nullString(v)
	}
	for _, c := range user.Get("withheld_in_countries").Array() {
		u.WithheldInCountries = append(u.WithheldInCountries, c.String())
	}
	return u, true
}

type corpusRelations struct {
	tags     []model.TweetTag
	mentions []model.TweetMention
	urls     []model.TweetURL
	media    []model.TweetMedia
}

// clampCount fits an archive counter into the smallint tweet columns. Viral
// tweets routinely exceed that range; saturating keeps the insert valid.
func clampCount(v int64) int {
	if v < 0 {
		return 0
	}
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	return int(v)
}

func corpusTweet(tweet gjson.Result) (model.Tweet, corpusRelations) {
	id := tweet.Get("id").Int()

	t := model.Tweet{
		IDTweets:          id,
		IDUsers:           tweet.Get("user.id").Int(),
		RetweetCount:      clampCount(tweet.Get("retweet_count").Int()),
		FavoriteCount:     clampCount(tweet.Get("favorite_count").Int()),
		QuoteCount:        clampCount(tweet.Get("quote_count").Int()),
		WithheldCopyright: tweet.Get("withheld_copyright").Bool(),
	}
	if ts, err := time.Parse(twitterTimeLayout, tweet.Get("created_at").String()); err == nil {
		t.CreatedAt = ts
	} else {
		t.CreatedAt = time.Now()
	}

	// Extended tweets carry the untruncated text in full_text.
	t.Text = tweet.Get("full_text").String()
	if t.Text == "" {
		t.Text = tweet.Get("text").String()
	}

	if v := tweet.Get("in_reply_to_status_id").Int(); v != 0 {
		t.InReplyToStatusID = nullInt64(v)
	}
	if v := tweet.Get("in_reply_to_user_id").Int(); v != 0 {
		t.InReplyToUserID = nullInt64(v)
	}
	if v := tweet.Get("quoted_status_id").Int(); v != 0 {
		t.QuotedStatusID = nullInt64(v)
	}
	if v := tweet.Get("source").String(); v != "" {
		t.Source = nullString(v)
	}
	if v := tweet.Get("lang").String(); v != "" {
		t.Lang = nullString(v)
	}
	if v := tweet.Get("place.country_code").String(); v != "" {
		t.CountryCode = nullString(strings.ToLower(v))
	}
	if v := tweet.Get("place.name").String(); v != "" {
		t.PlaceName = nullString(v)
	}
	for _, c := range tweet.Get("withheld_in_countries").Array() {
		t.WithheldInCountries = append(t.WithheldInCountries, c.String())
	}
	if coords := tweet.Get("coordinates.coordinates").Array(); len(coords) == 2 {
		t.Geo = nullString(pointWKT(coords[0].Float(), coords[1].Float()))
	}

	var rels corpusRelations
	seenTags := make(map[string]bool)
	for _, h := range tweet.Get("entities.hashtags").Array() {
		tag := "#" + h.Get("text").String()
		if tag != "#" && !seenTags[tag] {
			seenTags[tag] = true
			rels.tags = append(rels.tags, model.TweetTag{IDTweets: id, Tag: tag})
		}
	}
	seenMentions := make(map[int64]bool)
	for _, m := range tweet.Get("entities.user_mentions").Array() {
		uid := m.Get("id").Int()
		if uid != 0 && !seenMentions[uid] {
			seenMentions[uid] = true
			rels.mentions = append(rels.mentions, model.TweetMention{IDTweets: id, IDUsers: uid})
		}
	}
	seenURLs := make(map[string]bool)
	for _, u := range tweet.Get("entities.urls").Array() {
		url := u.Get("expanded_url").String()
		if url == "" {
			url = u.Get("url").String()
		}
		if url != "" && !seenURLs[url] {
			seenURLs[url] = true
			rels.urls = append(rels.urls, model.TweetURL{IDTweets: id, URL: url})
		}
	}
	seenMedia := make(map[string]bool)
	for _, m := range tweet.Get("extended_entities.media").Array() {
		url := m.Get("media_url_https").String()
		if url == "" {
			url = m.Get("media_url").String()
		}
		if url != "" && !seenMedia[url] {
			seenMedia[url] = true
			rels.media = append(rels.media, model.TweetMedia{
				IDTweets: id,
				URL:      url,
				Type:     m.Get("type").String(),
			})
		}
	}

	return t, rels
}
