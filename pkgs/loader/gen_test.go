package loader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_MentionsCappedAtPopulation(t *testing.T) {
	g := newGenerator(42)
	userIDs := []int64{10, 11}

	for i := 0; i < 200; i++ {
		mentions := g.mentionsFor(int64(i), userIDs)
		assert.LessOrEqual(t, len(mentions), len(userIDs))

		seen := make(map[int64]bool)
		for _, m := range mentions {
			assert.False(t, seen[m.IDUsers], "mention drawn twice for the same tweet")
			seen[m.IDUsers] = true
			assert.Contains(t, userIDs, m.IDUsers)
		}
	}
}

func TestGenerator_TagsAreUniquePerTweet(t *testing.T) {
	g := newGenerator(7)

	for i := 0; i < 200; i++ {
		tags := g.tagsFor(int64(i))
		seen := make(map[string]bool)
		for _, tag := range tags {
			assert.False(t, seen[tag.Tag], "duplicate tag %q on one tweet", tag.Tag)
			seen[tag.Tag] = true
			assert.True(t,
				strings.HasPrefix(tag.Tag, "#") || strings.HasPrefix(tag.Tag, "$"),
				"tag %q has no prefix", tag.Tag)
		}
	}
}

func TestGenerator_MessagesCarryOwnerAndRange(t *testing.T) {
	g := newGenerator(7)

	total := 0
	for i := 0; i < 100; i++ {
		messages := g.messagesFor(int64(i))
		assert.LessOrEqual(t, len(messages), 5)
		total += len(messages)
		for _, m := range messages {
			assert.Equal(t, int64(i), m.IDUsers)
			assert.GreaterOrEqual(t, m.IDMessage, int64(10000000000))
			assert.Less(t, m.IDMessage, int64(100000000000))
			assert.NotEmpty(t, m.MessageText)
		}
	}
	assert.Greater(t, total, 0)
}

func TestGenerator_SeededRunsAreReproducible(t *testing.T) {
	a := newGenerator(99)
	b := newGenerator(99)

	for i := int64(1); i <= 20; i++ {
		ua := a.user(i)
		ub := b.user(i)
		// Timestamps derive from the wall clock, everything else from the seed.
		assert.Equal(t, ua.ScreenName, ub.ScreenName)
		assert.Equal(t, ua.FriendsCount, ub.FriendsCount)
	}
}

func TestGenerator_TweetGeoIsWKT(t *testing.T) {
	g := newGenerator(3)
	userIDs := []int64{1}

	sawGeo := false
	for i := int64(1); i <= 100; i++ {
		tweet := g.tweet(i, userIDs, nil)
		if tweet.Geo.Valid {
			sawGeo = true
			assert.True(t, strings.HasPrefix(tweet.Geo.String, "POINT("))
		}
	}
	require.True(t, sawGeo, "no tweet carried geo in 100 draws")
}
