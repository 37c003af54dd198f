package logger

import (
	"io"

	"github.com/rifflock/lfshook"
	log "github.com/sirupsen/logrus"
)

// Init configures the process-wide logger. When logFile is non-nil every
// entry is additionally written there uncolored via a file hook.
func Init(debug bool, logFile io.Writer) {
	log.SetFormatter(&log.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
	})

	if debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}

	if logFile != nil {
		log.AddHook(lfshook.NewHook(logFile, nil))
	}
}
