package main

import (
	"context"
	"flag"
	"os"

	"github.com/gookit/color"
	log "github.com/sirupsen/logrus"

	"github.com/tonghsuan/chirp/pkgs/config"
	"github.com/tonghsuan/chirp/pkgs/database"
	"github.com/tonghsuan/chirp/pkgs/indexes"
	"github.com/tonghsuan/chirp/pkgs/logger"
)

func main() {
	var configPath string
	var isDebug bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config file")
	flag.BoolVar(&isDebug, "debug", false, "display debug messages")
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

	report, err := indexes.Ensure(context.Background(), db)
	if err != nil {
		log.WithError(err).Fatal("Failed to provision search indexes")
	}

	if !report.RumAvailable {
		color.Yellow.Println("RUM extension is not available; only the GIN index is maintained.")
		color.Yellow.Println("Install the rum extension for ranked indexes with recency ordering.")
	}
	for _, name := range report.Created {
		color.Green.Printf("created  %s\n", name)
	}
	for _, name := range report.Skipped {
		color.Gray.Printf("exists   %s\n", name)
	}
	for name, ferr := range report.Failed {
		color.Red.Printf("failed   %s: %v\n", name, ferr)
	}

	if len(report.Indexes) > 0 {
		color.Cyan.Println("\nCurrent message indexes:")
		for _, idx := range report.Indexes {
			color.Cyan.Printf("  %s.%s\n", idx.TableName, idx.IndexName)
		}
	}

	if len(report.Failed) > 0 {
		os.Exit(1)
	}
}
