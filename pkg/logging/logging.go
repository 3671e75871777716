package logging

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

var logFile *os.File

/*
Setup configures the process-wide logger.  Output goes to stderr by
default; a non-empty path redirects it to a file instead.  The level
string matches charmbracelet levels (debug, info, warn, error).
*/
func Setup(level, path string) error {
	log.SetTimeFormat(time.Kitchen)
	log.SetReportCaller(false)

	parsed, err := log.ParseLevel(strings.ToLower(level))

	if err != nil {
		log.Warn("unknown log level, defaulting to info", "level", level)
		parsed = log.InfoLevel
	}

	log.SetLevel(parsed)

	if path == "" {
		return nil
	}

	logFile, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)

	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	log.SetOutput(logFile)
	log.Info("logging redirected to file", "path", path)

	return nil
}

// Close flushes and closes the log file, if one was opened.
func Close() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}
