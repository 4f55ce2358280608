package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/recbuf/internal/recbuf"
	"github.com/julianstephens/recbuf/internal/recbuf/worker"
)

func configPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), recbuf.DefaultConfigFileName)
}

// TestCreate verifies a created config can be loaded back with defaults
func TestCreate(t *testing.T) {
	path := configPath(t)

	created, err := Create(path)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if *loaded != *created {
		t.Errorf("loaded config %+v differs from created %+v", loaded, created)
	}
	if loaded.Version != recbuf.ConfigVersion {
		t.Errorf("expected Version=%d, got %d", recbuf.ConfigVersion, loaded.Version)
	}
	if !loaded.UseCompression {
		t.Errorf("expected UseCompression=true, got false")
	}
	if loaded.Codec != recbuf.DefaultCodec {
		t.Errorf("expected Codec=%q, got %q", recbuf.DefaultCodec, loaded.Codec)
	}
}

// TestCreate_AlreadyExists validates error when the config exists
func TestCreate_AlreadyExists(t *testing.T) {
	path := configPath(t)
	if _, err := Create(path); err != nil {
		t.Fatalf("first Create() error = %v", err)
	}

	_, err := Create(path)
	if err == nil {
		t.Fatalf("expected error when config already exists, got nil")
	}

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %T", err)
	}
	if cfgErr.Kind != ConfigErrorKindAlreadyExists {
		t.Errorf("expected Kind=AlreadyExists, got %v", cfgErr.Kind)
	}
	if !errors.Is(err, ErrConfigAlreadyExists) {
		t.Errorf("expected errors.Is(err, ErrConfigAlreadyExists)")
	}
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(configPath(t))
	if !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("expected ErrConfigNotFound, got %v", err)
	}
}

// TestSave_RoundTrip verifies Save overwrites the file with valid JSON
func TestSave_RoundTrip(t *testing.T) {
	path := configPath(t)
	c, err := Create(path)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	size, backups := 10, 2
	c.Codec = string(worker.CodecZstd)
	c.RequestTimeoutMs = 1500
	c.LogMaxSize = &size
	c.LogMaxBackups = &backups
	if err := c.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("saved config is not valid JSON: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Codec != "zstd" || loaded.RequestTimeoutMs != 1500 {
		t.Errorf("unexpected loaded config %+v", loaded)
	}
	if loaded.LogMaxSize == nil || *loaded.LogMaxSize != 10 {
		t.Errorf("expected LogMaxSize=10, got %v", loaded.LogMaxSize)
	}
	if loaded.LogMaxBackups == nil || *loaded.LogMaxBackups != 2 {
		t.Errorf("expected LogMaxBackups=2, got %v", loaded.LogMaxBackups)
	}
}

func TestSave_Missing(t *testing.T) {
	err := Default().Save(configPath(t))
	if !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("expected ErrConfigNotFound, got %v", err)
	}
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	path := configPath(t)
	body := `{"version":1,"use_compression":true,"codec":"gzip","worker_queue_size":8,"fsync_on_commit":true}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	_, err := Load(path)
	if !errors.Is(err, ErrConfigDecode) {
		t.Fatalf("expected ErrConfigDecode, got %v", err)
	}
}

func TestLoad_UnsupportedVersion(t *testing.T) {
	path := configPath(t)
	c := Default()
	c.Version = recbuf.ConfigVersion + 1
	if err := c.write(path); err != nil {
		t.Fatalf("write() error = %v", err)
	}

	_, err := Load(path)
	if !errors.Is(err, ErrConfigUnsupportedVersion) {
		t.Fatalf("expected ErrConfigUnsupportedVersion, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	zero := 0
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"empty codec", func(c *Config) { c.Codec = "" }, false},
		{"zstd", func(c *Config) { c.Codec = "zstd" }, false},
		{"unknown codec", func(c *Config) { c.Codec = "brotli" }, true},
		{"negative pending cap", func(c *Config) { c.MaxPendingRequests = -1 }, true},
		{"unbounded pending", func(c *Config) { c.MaxPendingRequests = 0 }, false},
		{"negative timeout", func(c *Config) { c.RequestTimeoutMs = -5 }, true},
		{"zero queue", func(c *Config) { c.WorkerQueueSize = 0 }, true},
		{"zero log size", func(c *Config) { c.LogMaxSize = &zero }, true},
		{"zero log backups", func(c *Config) { c.LogMaxBackups = &zero }, false},
		{"negative log backups", func(c *Config) { n := -1; c.LogMaxBackups = &n }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	path := configPath(t)
	c := Default()
	c.Codec = "brotli"
	if err := c.write(path); err != nil {
		t.Fatalf("write() error = %v", err)
	}

	_, err := Load(path)
	if !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid, got %v", err)
	}
}

func TestBufferOptions(t *testing.T) {
	c := Default()
	c.RequestTimeoutMs = 250
	c.MaxPendingRequests = 16

	opts := c.BufferOptions()
	if !opts.UseCompression {
		t.Errorf("expected UseCompression=true")
	}
	if opts.RequestTimeout != 250*time.Millisecond {
		t.Errorf("expected RequestTimeout=250ms, got %v", opts.RequestTimeout)
	}
	if opts.MaxPendingRequests != 16 {
		t.Errorf("expected MaxPendingRequests=16, got %d", opts.MaxPendingRequests)
	}
	if opts.WorkerQueueSize != recbuf.DefaultWorkerQueueSize {
		t.Errorf("expected WorkerQueueSize=%d, got %d", recbuf.DefaultWorkerQueueSize, opts.WorkerQueueSize)
	}
	if opts.SessionID != "" {
		t.Errorf("expected no session id, got %q", opts.SessionID)
	}
}

func TestLogRotation(t *testing.T) {
	c := Default()
	size, backups := c.LogRotation()
	if size != recbuf.DefaultLogMaxSize || backups != recbuf.DefaultLogMaxBackups {
		t.Errorf("expected defaults %d/%d, got %d/%d",
			recbuf.DefaultLogMaxSize, recbuf.DefaultLogMaxBackups, size, backups)
	}

	wantSize, wantBackups := 5, 0
	c.LogMaxSize = &wantSize
	c.LogMaxBackups = &wantBackups
	size, backups = c.LogRotation()
	if size != 5 || backups != 0 {
		t.Errorf("expected 5/0, got %d/%d", size, backups)
	}
}
