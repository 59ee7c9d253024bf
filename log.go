package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"

	"github.com/durgesh-ai/durgesh/internal/config"
)

func getLogFilePath() (string, error) {
	dir, err := gap.NewScope(gap.User, "durgesh").CacheDir()
	if err != nil {
		return "", err //nolint:wrapcheck
	}
	return filepath.Join(dir, "durgesh.log"), nil
}

// setupLog routes logs to DURGESH_LOG, or to a file in the user cache
// directory. The TUI owns the terminal, so nothing goes to stderr unless
// asked for.
func setupLog() (func() error, error) {
	log.SetOutput(io.Discard)

	e, err := config.ParseEnv()
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	if e.LogLevel != "" {
		if lvl, err := log.ParseLevel(e.LogLevel); err == nil {
			log.SetLevel(lvl)
		}
	}

	switch strings.ToLower(e.LogFile) {
	case "stderr":
		log.SetOutput(os.Stderr)
		return func() error { return nil }, nil
	case "none", "off":
		return func() error { return nil }, nil
	}

	logFile := e.LogFile
	if logFile == "" {
		logFile, err = getLogFilePath()
		if err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil { //nolint:gosec
		// log disabled
		return func() error { return nil }, nil
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec
	if err != nil {
		// log disabled
		return func() error { return nil }, nil
	}
	log.SetOutput(f)
	return f.Close, nil
}
