package main

import (
	"context"
	"flag"

	"github.com/gookit/color"
	log "github.com/sirupsen/logrus"

	"github.com/tonghsuan/chirp/pkgs/config"
	"github.com/tonghsuan/chirp/pkgs/database"
	"github.com/tonghsuan/chirp/pkgs/loader"
	"github.com/tonghsuan/chirp/pkgs/logger"
)

func main() {
	var (
		configPath   string
		isDebug      bool
		initSchema   bool
		users        int
		tweets       int
		userIDStart  int64
		tweetIDStart int64
		seed         int64
		corpus       string
	)
	flag.StringVar(&configPath, "config", "config.yaml", "path to config file")
	flag.BoolVar(&isDebug, "debug", false, "display debug messages")
	flag.BoolVar(&initSchema, "init-schema", false, "create tables and views before loading")
	flag.IntVar(&users, "users", 50, "number of users to generate")
	flag.IntVar(&tweets, "tweets", 100, "number of tweets to generate")
	flag.Int64Var(&userIDStart, "user-id-start", 0, "starting ID for users (this process owns the range above it)")
	flag.Int64Var(&tweetIDStart, "tweet-id-start", 0, "starting ID for tweets")
	flag.Int64Var(&seed, "seed", 0, "generator seed; 0 seeds from the clock")
	flag.StringVar(&corpus, "corpus", "", "import raw tweet JSON from a file or URL instead of generating")
	flag.Parse()

	logger.Init(isDebug, nil)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to load config")
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if initSchema {
		if err := database.EnsureSchema(db); err != nil {
			log.WithError(err).Fatal("Failed to create schema")
		}
	}

	loaderCfg := loader.DefaultConfig()
	loaderCfg.Seed = seed
	l := loader.New(loaderCfg)
	ctx := context.Background()

	if corpus != "" {
		stats, err := l.ImportCorpus(ctx, db, corpus)
		if err != nil {
			log.WithError(err).Fatal("Corpus import failed")
		}
		color.Green.Printf("Imported %d tweets and %d users from %d lines (%d malformed)\n",
			stats.Tweets, stats.Users, stats.Lines, stats.Malformed)
		printRelationStats(stats.Stats)
		return
	}

	stats, err := l.Load(ctx, db, loader.Options{
		Users:        users,
		Tweets:       tweets,
		UserIDStart:  userIDStart,
		TweetIDStart: tweetIDStart,
	})
	if err != nil {
		log.WithError(err).Fatal("Load failed")
	}

	color.Green.Printf("Generated %d users, %d accounts, %d messages, %d tweets\n",
		stats.Users, stats.Accounts, stats.Messages, stats.Tweets)
	printRelationStats(stats)
}

func printRelationStats(stats loader.Stats) {
	color.Green.Printf("Relations: %d tags, %d mentions, %d urls, %d media\n",
		stats.Tags, stats.Mentions, stats.URLs, stats.Media)
}
