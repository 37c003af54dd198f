package loader

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/tonghsuan/chirp/pkgs/model"
)

// Synthetic data vocabulary. Generation is plain pseudo-random text; the
// corpus only has to be plausible enough to exercise the search path.
var (
	words = []string{
		"hello", "world", "coffee", "morning", "project", "deadline", "weekend",
		"music", "concert", "travel", "flight", "airport", "sunshine", "rain",
		"election", "debate", "football", "match", "goal", "recipe", "dinner",
		"birthday", "party", "friend", "family", "holiday", "beach", "mountain",
		"book", "reading", "movie", "cinema", "gaming", "stream", "launch",
		"update", "release", "running", "marathon", "training", "garden",
		"puppy", "kitten", "photo", "camera", "painting", "museum", "history",
		"science", "space", "rocket", "ocean", "climate", "energy", "market",
		"stock", "crypto", "startup", "meeting", "office", "remote", "commute",
	}

	firstNames = []string{
		"james", "mary", "robert", "patricia", "john", "jennifer", "michael",
		"linda", "david", "elizabeth", "william", "barbara", "richard", "susan",
		"joseph", "jessica", "thomas", "sarah", "carlos", "maria", "wei", "yuki",
	}

	lastNames = []string{
		"smith", "johnson", "williams", "brown", "jones", "garcia", "miller",
		"davis", "rodriguez", "martinez", "hernandez", "lopez", "wilson",
		"anderson", "taylor", "moore", "jackson", "lee", "chen", "nguyen",
	}

	cities = []string{
		"Springfield", "Riverton", "Fairview", "Georgetown", "Arlington",
		"Salem", "Madison", "Clinton", "Franklin", "Greenville", "Bristol",
		"Dover", "Hudson", "Kingston", "Milton", "Newport", "Oxford",
	}

	countryCodes = []string{
		"us", "gb", "ca", "au", "de", "fr", "jp", "br", "in", "mx", "es", "it",
	}

	stateCodes = []string{
		"ca", "ny", "tx", "fl", "wa", "il", "ma", "or", "co", "ga",
	}

	langs = []string{"en", "es", "fr", "de", "ja", "pt", "ru", "zh"}

	tweetSources = []string{"iPhone", "Android", "Web", "iPad"}

	mediaTypes = []string{"photo", "video", "animated_gif"}

	passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%"
)

type generator struct {
	rnd *rand.Rand
	now time.Time
}

func newGenerator(seed int64) *generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &generator{
		rnd: rand.New(rand.NewSource(seed)),
		now: time.Now(),
	}
}

func (g *generator) timeBetween(oldest, newest time.Duration) time.Time {
	span := int64(oldest - newest)
	back := newest + time.Duration(g.rnd.Int63n(span))
	return g.now.Add(-back)
}

func (g *generator) sentence(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = words[g.rnd.Intn(len(words))]
	}
	return strings.Join(parts, " ")
}

func (g *generator) username() string {
	return fmt.Sprintf("%s_%s%d",
		firstNames[g.rnd.Intn(len(firstNames))],
		lastNames[g.rnd.Intn(len(lastNames))],
		g.rnd.Intn(1000))
}

func (g *generator) password() string {
	b := make([]byte, 10)
	for i := range b {
		b[i] = passwordAlphabet[g.rnd.Intn(len(passwordAlphabet))]
	}
	return string(b)
}

func (g *generator) url() string {
	return fmt.Sprintf("https://%s%s.example.com/%s",
		lastNames[g.rnd.Intn(len(lastNames))],
		words[g.rnd.Intn(len(words))],
		words[g.rnd.Intn(len(words))])
}

func (g *generator) countryList(chance float64, max int) pq.StringArray {
	if g.rnd.Float64() < 1-chance {
		return nil
	}
	n := 1 + g.rnd.Intn(max)
	list := make(pq.StringArray, 0, n)
	for i := 0; i < n; i++ {
		list = append(list, countryCodes[g.rnd.Intn(len(countryCodes))])
	}
	return list
}

func (g *generator) user(id int64) model.User {
	createdAt := g.timeBetween(10*365*24*time.Hour, 365*24*time.Hour)
	updatedAt := createdAt.Add(time.Duration(g.rnd.Int63n(int64(g.now.Sub(createdAt)) + 1)))

	u := model.User{
		IDUsers:             id,
		CreatedAt:           createdAt,
		UpdatedAt:           updatedAt,
		FriendsCount:        g.rnd.Intn(5001),
		ListedCount:         g.rnd.Intn(501),
		FavouritesCount:     g.rnd.Intn(10001),
		StatusesCount:       g.rnd.Intn(50001),
		Protected:           g.rnd.Intn(2) == 0,
		Verified:            g.rnd.Intn(2) == 0,
		ScreenName:          g.username(),
		WithheldInCountries: g.countryList(0.1, 5),
	}
	u.Name = fmt.Sprintf("%s %s",
		title(firstNames[g.rnd.Intn(len(firstNames))]),
		title(lastNames[g.rnd.Intn(len(lastNames))]))
	if g.rnd.Float64() > 0.3 {
		u.URL = nullString(g.url())
	}
	if g.rnd.Float64() > 0.3 {
		u.Location = nullString(cities[g.rnd.Intn(len(cities))])
	}
	if g.rnd.Float64() > 0.2 {
		u.Description = nullString(g.sentence(8 + g.rnd.Intn(12)))
	}
	return u
}

func (g *generator) account(idUsers int64) model.Account {
	return model.Account{
		IDUsers:  idUsers,
		Username: g.username(),
		Password: g.password(),
	}
}

// messagesFor generates 0-5 messages for one account. Message IDs are random
// 11-digit numbers; the composite-key conflict policy absorbs the rare
// collision on re-runs.
func (g *generator) messagesFor(idUsers int64) []model.Message {
	n := g.rnd.Intn(6)
	messages := make([]model.Message, 0, n)
	for i := 0; i < n; i++ {
		messages = append(messages, model.Message{
			IDUsers:     idUsers,
			IDMessage:   10000000000 + g.rnd.Int63n(90000000000),
			MessageText: g.sentence(5 + g.rnd.Intn(20)),
			CreatedAt:   g.timeBetween(30*24*time.Hour, 0),
		})
	}
	return messages
}

func (g *generator) tweet(id int64, userIDs, tweetIDs []int64) model.Tweet {
	t := model.Tweet{
		IDTweets:            id,
		IDUsers:             userIDs[g.rnd.Intn(len(userIDs))],
		CreatedAt:           g.timeBetween(5*365*24*time.Hour, 0),
		RetweetCount:        g.rnd.Intn(10001),
		FavoriteCount:       g.rnd.Intn(20001),
		QuoteCount:          g.rnd.Intn(5001),
		WithheldCopyright:   g.rnd.Float64() > 0.9,
		WithheldInCountries: g.countryList(0.1, 3),
		Text:                g.sentence(8 + g.rnd.Intn(30)),
	}
	if len(tweetIDs) > 0 {
		if g.rnd.Float64() > 0.7 {
			t.InReplyToStatusID = nullInt64(tweetIDs[g.rnd.Intn(len(tweetIDs))])
			t.InReplyToUserID = nullInt64(userIDs[g.rnd.Intn(len(userIDs))])
		}
		if g.rnd.Float64() > 0.8 {
			t.QuotedStatusID = nullInt64(tweetIDs[g.rnd.Intn(len(tweetIDs))])
		}
	}
	t.Source = nullString(fmt.Sprintf("<a href='%s'>Twitter for %s</a>",
		g.url(), tweetSources[g.rnd.Intn(len(tweetSources))]))
	t.Lang = nullString(langs[g.rnd.Intn(len(langs))])
	if g.rnd.Float64() > 0.6 {
		cc := countryCodes[g.rnd.Intn(len(countryCodes))]
		t.CountryCode = nullString(cc)
		if cc == "us" && g.rnd.Float64() > 0.5 {
			t.StateCode = nullString(stateCodes[g.rnd.Intn(len(stateCodes))])
		}
	}
	if g.rnd.Float64() > 0.6 {
		t.PlaceName = nullString(cities[g.rnd.Intn(len(cities))])
	}
	if g.rnd.Float64() > 0.7 {
		lng := g.rnd.Float64()*360 - 180
		lat := g.rnd.Float64()*180 - 90
		t.Geo = nullString(pointWKT(lng, lat))
	}
	return t
}

// tagsFor generates 0-6 unique hashtags or cashtags for a tweet.
func (g *generator) tagsFor(idTweets int64) []model.TweetTag {
	n := g.rnd.Intn(7)
	used := make(map[string]bool, n)
	tags := make([]model.TweetTag, 0, n)
	for i := 0; i < n; i++ {
		for attempt := 0; attempt < 5; attempt++ {
			var tag string
			if g.rnd.Intn(2) == 0 {
				tag = "#" + words[g.rnd.Intn(len(words))]
			} else {
				b := make([]byte, 4)
				for j := range b {
					b[j] = byte('A' + g.rnd.Intn(26))
				}
				tag = "$" + string(b)
			}
			if !used[tag] {
				used[tag] = true
				tags = append(tags, model.TweetTag{IDTweets: idTweets, Tag: tag})
				break
			}
		}
	}
	return tags
}

func (g *generator) urlsFor(idTweets int64) []model.TweetURL {
	n := g.rnd.Intn(4)
	used := make(map[string]bool, n)
	urls := make([]model.TweetURL, 0, n)
	for i := 0; i < n; i++ {
		u := g.url()
		if used[u] {
			continue
		}
		used[u] = true
		urls = append(urls, model.TweetURL{IDTweets: idTweets, URL: u})
	}
	return urls
}

// mentionsFor samples 0-5 mentioned users without replacement, capped at the
// available user population.
func (g *generator) mentionsFor(idTweets int64, userIDs []int64) []model.TweetMention {
	n := g.rnd.Intn(6)
	if n > len(userIDs) {
		n = len(userIDs)
	}
	picked := g.rnd.Perm(len(userIDs))[:n]
	mentions := make([]model.TweetMention, 0, n)
	for _, idx := range picked {
		mentions = append(mentions, model.TweetMention{IDTweets: idTweets, IDUsers: userIDs[idx]})
	}
	return mentions
}

func (g *generator) mediaFor(idTweets int64) []model.TweetMedia {
	n := g.rnd.Intn(5)
	media := make([]model.TweetMedia, 0, n)
	for i := 0; i < n; i++ {
		// Drawn from the seeded source so the same seed regenerates the same
		// media keys.
		var raw [16]byte
		for j := range raw {
			raw[j] = byte(g.rnd.Intn(256))
		}
		id, _ := uuid.FromBytes(raw[:])
		media = append(media, model.TweetMedia{
			IDTweets: idTweets,
			URL:      fmt.Sprintf("https://pbs.twimg.com/media/%x.jpg", id[:]),
			Type:     mediaTypes[g.rnd.Intn(len(mediaTypes))],
		})
	}
	return media
}

func pointWKT(lng, lat float64) string {
	return fmt.Sprintf("POINT(%f %f)", lng, lat)
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
