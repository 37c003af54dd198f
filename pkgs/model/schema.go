package model

// Schema is the PostgreSQL schema for the messaging tables and the imported
// tweet corpus. Foreign keys are intentionally omitted on the bulk tables so
// parallel loader processes do not serialize on constraint checks; dependency
// order is enforced by the loader and the cleanup tooling instead.
const Schema = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS users (
	id_users BIGINT PRIMARY KEY,
	created_at TIMESTAMPTZ,
	updated_at TIMESTAMPTZ,
	url TEXT,
	friends_count INTEGER,
	listed_count INTEGER,
	favourites_count INTEGER,
	statuses_count INTEGER,
	protected BOOLEAN,
	verified BOOLEAN,
	screen_name TEXT,
	name TEXT,
	location TEXT,
	description TEXT,
	withheld_in_countries VARCHAR(2)[]
);

CREATE TABLE IF NOT EXISTS accounts (
	id_users BIGINT PRIMARY KEY,
	username TEXT,
	password TEXT
);

CREATE TABLE IF NOT EXISTS messages (
	id_users BIGINT NOT NULL,
	id_message BIGINT NOT NULL,
	message_text TEXT,
	created_at TIMESTAMPTZ,
	PRIMARY KEY (id_users, id_message)
);

CREATE TABLE IF NOT EXISTS tweets (
	id_tweets BIGINT PRIMARY KEY,
	id_users BIGINT,
	created_at TIMESTAMPTZ,
	in_reply_to_status_id BIGINT,
	in_reply_to_user_id BIGINT,
	quoted_status_id BIGINT,
	retweet_count SMALLINT,
	favorite_count SMALLINT,
	quote_count SMALLINT,
	withheld_copyright BOOLEAN,
	withheld_in_countries VARCHAR(2)[],
	source TEXT,
	text TEXT,
	country_code VARCHAR(2),
	state_code VARCHAR(2),
	lang TEXT,
	place_name TEXT,
	geo GEOMETRY
);

CREATE TABLE IF NOT EXISTS tweet_tags (
	id_tweets BIGINT NOT NULL,
	tag TEXT NOT NULL,
	PRIMARY KEY (id_tweets, tag)
);

CREATE TABLE IF NOT EXISTS tweet_mentions (
	id_tweets BIGINT NOT NULL,
	id_users BIGINT NOT NULL,
	PRIMARY KEY (id_tweets, id_users)
);

CREATE TABLE IF NOT EXISTS tweet_urls (
	id_tweets BIGINT NOT NULL,
	url TEXT NOT NULL,
	PRIMARY KEY (id_tweets, url)
);

CREATE TABLE IF NOT EXISTS tweet_media (
	id_tweets BIGINT NOT NULL,
	url TEXT NOT NULL,
	type TEXT,
	PRIMARY KEY (id_tweets, url)
);

CREATE INDEX IF NOT EXISTS idx_tweets_id_users ON tweets (id_users);
CREATE INDEX IF NOT EXISTS idx_tweets_created_at ON tweets (created_at);
CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages (created_at);
CREATE INDEX IF NOT EXISTS idx_tweet_mentions_id_users ON tweet_mentions (id_users);
`

// AggregateViews defines the derived hashtag aggregates. They are refreshed
// explicitly after bulk mutation; staleness between refreshes is accepted.
const AggregateViews = `
CREATE MATERIALIZED VIEW IF NOT EXISTS tweet_tags_total AS
SELECT row_number() OVER (ORDER BY count(*) DESC) AS row,
       tag,
       count(*) AS total
FROM tweet_tags
GROUP BY tag;

CREATE MATERIALIZED VIEW IF NOT EXISTS tweet_tags_cooccurrence AS
SELECT t1.tag AS tag1,
       t2.tag AS tag2,
       count(*) AS total
FROM tweet_tags t1
JOIN tweet_tags t2 ON t1.id_tweets = t2.id_tweets AND t1.tag < t2.tag
GROUP BY t1.tag, t2.tag;
`
