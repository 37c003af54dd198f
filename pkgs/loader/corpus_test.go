package loader

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestCorpusTweet_ClampsCountersToColumnRange(t *testing.T) {
	line := `{
		"id": 1001,
		"user": {"id": 42},
		"created_at": "Mon Jan 02 15:04:05 +0000 2006",
		"text": "half a million retweets",
		"retweet_count": 512345,
		"favorite_count": 900,
		"quote_count": -3
	}`
	require.True(t, gjson.Valid(line))

	tweet, _ := corpusTweet(gjson.Parse(line))

	assert.Equal(t, math.MaxInt16, tweet.RetweetCount)
	assert.Equal(t, 900, tweet.FavoriteCount)
	assert.Equal(t, 0, tweet.QuoteCount)
}

func TestCorpusTweet_ExtractsEntitiesAndGeo(t *testing.T) {
	line := `{
		"id": 1002,
		"user": {"id": 42},
		"created_at": "Mon Jan 02 15:04:05 +0000 2006",
		"full_text": "checking in",
		"coordinates": {"type": "Point", "coordinates": [-73.99, 40.73]},
		"entities": {
			"hashtags": [{"text": "nyc"}, {"text": "nyc"}],
			"user_mentions": [{"id": 7, "screen_name": "alice"}],
			"urls": [{"url": "https://t.co/x", "expanded_url": "https://example.com/full"}]
		}
	}`
	require.True(t, gjson.Valid(line))

	tweet, rels := corpusTweet(gjson.Parse(line))

	assert.Equal(t, "checking in", tweet.Text)
	require.True(t, tweet.Geo.Valid)
	assert.Contains(t, tweet.Geo.String, "POINT(-73.99")

	// Repeated hashtags collapse to one row.
	require.Len(t, rels.tags, 1)
	assert.Equal(t, "#nyc", rels.tags[0].Tag)
	require.Len(t, rels.mentions, 1)
	assert.Equal(t, int64(7), rels.mentions[0].IDUsers)
	require.Len(t, rels.urls, 1)
	assert.Equal(t, "https://example.com/full", rels.urls[0].URL)
}

func TestCorpusUser_RejectsMissingID(t *testing.T) {
	_, ok := corpusUser(gjson.Parse(`{"screen_name": "ghost"}`))
	assert.False(t, ok)
}
