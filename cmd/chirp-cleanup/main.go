package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gookit/color"
	log "github.com/sirupsen/logrus"

	"github.com/tonghsuan/chirp/pkgs/cleanup"
	"github.com/tonghsuan/chirp/pkgs/config"
	"github.com/tonghsuan/chirp/pkgs/database"
	"github.com/tonghsuan/chirp/pkgs/logger"
)

// confirmPhrase must be typed exactly before anything is deleted.
const confirmPhrase = "DELETE"

func main() {
	var configPath string
	var isDebug, analyzeOnly, force bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config file")
	flag.BoolVar(&isDebug, "debug", false, "display debug messages")
	flag.BoolVar(&analyzeOnly, "analyze-only", false, "only analyze duplicates without deleting")
	flag.BoolVar(&force, "force", false, "skip confirmation prompt")
	flag.Parse()

	logger.Init(isDebug, nil)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to load config")
	}
	// Cascading deletes over large tweet sets can run long.
	if cfg.Database.StatementTimeout == 0 {
		cfg.Database.StatementTimeout = 5 * time.Minute
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	ctx := context.Background()

	dist, err := cleanup.Analyze(ctx, db)
	if err != nil {
		log.WithError(err).Fatal("Analysis failed")
	}
	printDistribution(dist)

	if analyzeOnly {
		return
	}

	if !force {
		color.Red.Println("\nWARNING: This will permanently delete duplicate accounts and all associated data.")
		fmt.Printf("Type '%s' (all caps) to confirm or anything else to abort: ", confirmPhrase)

		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if strings.TrimSpace(answer) != confirmPhrase {
			color.Yellow.Println("Operation aborted. No changes were made.")
			return
		}
	}

	result, err := cleanup.Cleanup(ctx, db)
	if err != nil {
		log.WithError(err).Fatal("Cleanup failed; all deletions were rolled back")
	}

	color.Green.Printf("Cleanup complete in %s\n", result.Elapsed.Round(time.Millisecond))
	color.Green.Printf("Removed %d duplicate accounts and %d users across %d groups\n",
		result.AccountsDeleted, result.UsersDeleted, result.Groups)
	color.Green.Printf("Deleted %d tweets, %d messages, %d mention rows\n",
		result.TweetsDeleted, result.MessagesDeleted, result.MentionsDeleted)
	if !result.ViewsRefreshed {
		color.Yellow.Println("Materialized views could not be refreshed; run REFRESH manually.")
	}
}

func printDistribution(dist *cleanup.Distribution) {
	color.Cyan.Println("=== DUPLICATE ACCOUNT ANALYSIS ===")
	fmt.Printf("Total accounts: %d\n", dist.TotalAccounts)
	fmt.Printf("Total unique username-password combinations: %d\n", dist.UniqueCombinations)
	fmt.Printf("Total duplicate accounts: %d\n", dist.TotalDuplicates)
	fmt.Printf("Duplicate percentage: %.2f%%\n", dist.DuplicatePercentage)
	fmt.Printf("Maximum duplicates for a single combination: %d\n", dist.MaxGroupSize)

	if len(dist.TopUsernames) > 0 {
		fmt.Println("\nTop 10 most duplicated usernames:")
		for i, entry := range dist.TopUsernames {
			fmt.Printf("%d. Username '%s' appears %d times\n", i+1, entry.Username, entry.Count)
		}
	}
}
