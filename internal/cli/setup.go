package cli

import (
	"github.com/julianstephens/go-utils/helpers"

	"github.com/julianstephens/recbuf/internal/logger"
	"github.com/julianstephens/recbuf/internal/recbuf"
	"github.com/julianstephens/recbuf/internal/recbuf/config"
)

// LoadConfig loads the config at path. With an empty path it loads
// recbuf.json from the working directory when present, and otherwise
// returns the defaults.
func LoadConfig(path string) (*config.Config, error) {
	if path == "" {
		if !helpers.Exists(recbuf.DefaultConfigFileName) {
			return config.Default(), nil
		}
		path = recbuf.DefaultConfigFileName
	}
	return config.Load(path)
}

// NewLogger builds the process logger: console output at level, plus a
// rotating file in logDir unless stream is set. File rotation follows cfg.
func NewLogger(level string, stream bool, logDir string, cfg *config.Config) (logger.Logger, error) {
	console := logger.NewConsoleLogger(level)
	if stream {
		return console, nil
	}

	maxSize, maxBackups := cfg.LogRotation()
	file, err := logger.NewFileLogger(logDir, recbuf.DefaultLogFileName, maxSize, maxBackups)
	if err != nil {
		return nil, err
	}
	return logger.NewMultiLogger(file, console), nil
}
