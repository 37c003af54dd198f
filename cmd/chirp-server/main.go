package main

import (
	"flag"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/tonghsuan/chirp/pkgs/config"
	"github.com/tonghsuan/chirp/pkgs/database"
	"github.com/tonghsuan/chirp/pkgs/logger"
	"github.com/tonghsuan/chirp/pkgs/server"
)

func main() {
	var configPath string
	var isDebug bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config file")
	flag.BoolVar(&isDebug, "debug", false, "display debug messages")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to load config")
	}

	var logFile *os.File
	if cfg.Log.File != "" {
		logFile, err = os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.WithError(err).Fatal("Failed to open log file")
		}
		defer logFile.Close()
	}
	if logFile != nil {
		logger.Init(isDebug || cfg.Log.Debug, logFile)
	} else {
		logger.Init(isDebug || cfg.Log.Debug, nil)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := database.EnsureSchema(db); err != nil {
		log.WithError(err).Fatal("Failed to ensure schema")
	}

	srv := server.New(db, cfg.Server.Addr)
	if err := srv.Start(); err != nil {
		log.WithError(err).Fatal("Server stopped")
	}
}
