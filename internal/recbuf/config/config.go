package config

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/julianstephens/go-utils/helpers"
	"github.com/julianstephens/go-utils/jsonutil"
	"github.com/julianstephens/go-utils/validator"

	"github.com/julianstephens/recbuf/internal/recbuf"
	"github.com/julianstephens/recbuf/internal/recbuf/worker"
)

// Config is the on-disk recbuf configuration.
type Config struct {
	Version            int    `json:"version"`
	UseCompression     bool   `json:"use_compression"`
	Codec              string `json:"codec"`
	MaxPendingRequests int    `json:"max_pending_requests"`
	RequestTimeoutMs   int    `json:"request_timeout_ms"`
	WorkerQueueSize    int    `json:"worker_queue_size"`
	LogMaxSize         *int   `json:"log_max_size,omitempty"`
	LogMaxBackups      *int   `json:"log_max_backups,omitempty"`
}

// Default returns a Config with default settings.
func Default() *Config {
	return &Config{
		Version:            recbuf.ConfigVersion,
		UseCompression:     true,
		Codec:              recbuf.DefaultCodec,
		MaxPendingRequests: recbuf.DefaultMaxPendingRequests,
		RequestTimeoutMs:   int(recbuf.DefaultRequestTimeout / time.Millisecond),
		WorkerQueueSize:    recbuf.DefaultWorkerQueueSize,
		LogMaxSize:         nil,
		LogMaxBackups:      nil,
	}
}

// Create writes a default config to path. It fails if the file exists.
func Create(path string) (*Config, error) {
	if exists := helpers.Exists(path); exists {
		return nil, &ConfigError{
			Kind: ConfigErrorKindAlreadyExists,
			Path: path,
			Err:  fmt.Errorf("config already exists at %s", path),
		}
	}

	c := Default()
	if err := c.write(path); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads and validates the config at path.
func Load(path string) (*Config, error) {
	if exists := helpers.Exists(path); !exists {
		return nil, &ConfigError{Kind: ConfigErrorKindNotFound, Path: path, Err: fs.ErrNotExist}
	}

	c := &Config{}
	if err := jsonutil.ReadFileStrict(path, c); err != nil {
		return nil, &ConfigError{Kind: ConfigErrorKindDecode, Path: path, Err: err}
	}

	if c.Version > recbuf.ConfigVersion {
		return nil, &ConfigError{
			Kind: ConfigErrorKindUnsupportedVersion,
			Path: path,
			Err:  fmt.Errorf("config version %d is not supported", c.Version),
		}
	}

	if err := c.Validate(); err != nil {
		return nil, &ConfigError{Kind: ConfigErrorKindInvalid, Path: path, Err: err}
	}
	return c, nil
}

// Save overwrites the existing config at path.
func (c *Config) Save(path string) error {
	if exists := helpers.Exists(path); !exists {
		return &ConfigError{Kind: ConfigErrorKindNotFound, Path: path, Err: fs.ErrNotExist}
	}
	return c.write(path)
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if _, err := worker.ParseCodec(c.Codec); err != nil {
		return err
	}
	if c.MaxPendingRequests < 0 {
		return fmt.Errorf("max_pending_requests must be >= 0, got %d", c.MaxPendingRequests)
	}
	if c.RequestTimeoutMs < 0 {
		return fmt.Errorf("request_timeout_ms must be >= 0, got %d", c.RequestTimeoutMs)
	}

	v := validator.Numbers[int]()
	if err := v.ValidateNonZero(c.WorkerQueueSize); err != nil {
		return fmt.Errorf("worker_queue_size: %w", err)
	}
	if c.LogMaxSize != nil {
		if err := v.ValidateNonZero(*c.LogMaxSize); err != nil {
			return fmt.Errorf("log_max_size: %w", err)
		}
	}
	if c.LogMaxBackups != nil && *c.LogMaxBackups < 0 {
		return fmt.Errorf("log_max_backups must be >= 0, got %d", *c.LogMaxBackups)
	}
	return nil
}

// BufferOptions converts the config into buffer construction options.
func (c *Config) BufferOptions() recbuf.BufferOptions {
	return recbuf.BufferOptions{
		UseCompression:     c.UseCompression,
		Codec:              c.Codec,
		MaxPendingRequests: c.MaxPendingRequests,
		RequestTimeout:     time.Duration(c.RequestTimeoutMs) * time.Millisecond,
		WorkerQueueSize:    c.WorkerQueueSize,
	}
}

// LogRotation returns the log file size limit (MB) and backup count, with
// defaults for unset fields.
func (c *Config) LogRotation() (maxSizeMB int, maxBackups int) {
	maxSizeMB, maxBackups = recbuf.DefaultLogMaxSize, recbuf.DefaultLogMaxBackups
	if c.LogMaxSize != nil {
		maxSizeMB = *c.LogMaxSize
	}
	if c.LogMaxBackups != nil {
		maxBackups = *c.LogMaxBackups
	}
	return maxSizeMB, maxBackups
}

func (c *Config) write(path string) error {
	data, err := jsonutil.Marshal(c)
	if err != nil {
		return &ConfigError{Kind: ConfigErrorKindEncode, Path: path, Err: err}
	}

	if err := helpers.AtomicFileWrite(path, data); err != nil {
		return &ConfigError{Kind: ConfigErrorKindWrite, Path: path, Err: err}
	}
	f, err := os.Open(filepath.Dir(path)) //nolint:gosec
	if err != nil {
		return &ConfigError{Kind: ConfigErrorKindWrite, Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	if err := f.Sync(); err != nil {
		return &ConfigError{Kind: ConfigErrorKindWrite, Path: path, Err: err}
	}
	return nil
}
