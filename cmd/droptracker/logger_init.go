package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/osse101/DropTracker_Go/internal/config"
	"github.com/osse101/DropTracker_Go/internal/logger"
)

const (
	serviceName = "droptracker"
	logFileName = "droptracker.log"
)

// initLogger installs the process logger. Logs go to stdout and, when LogDir
// is set, are appended to a file in it. The returned func closes that file.
func initLogger(cfg *config.Config) (func(), error) {
	addSource := cfg.Environment == "dev" || cfg.Environment == "development"
	loggerConfig := logger.NewConfig(cfg.LogLevel, cfg.LogFormat, serviceName, cfg.Version, cfg.Environment, addSource)

	if cfg.LogDir == "" {
		logger.InitLogger(loggerConfig)
		return func() {}, nil
	}

	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(cfg.LogDir, logFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	logger.InitLoggerWithWriter(loggerConfig, io.MultiWriter(os.Stdout, f))
	return func() { _ = f.Close() }, nil
}
