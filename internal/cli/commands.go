package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/julianstephens/go-utils/cliutil"
	"github.com/julianstephens/go-utils/helpers"

	"github.com/julianstephens/recbuf/internal/logger"
	"github.com/julianstephens/recbuf/internal/recbuf"
	"github.com/julianstephens/recbuf/internal/recbuf/config"
	"github.com/julianstephens/recbuf/internal/recbuf/event"
	"github.com/julianstephens/recbuf/internal/recbuf/worker"
)

// stdout is where command summaries go. Tests replace it.
var stdout io.Writer = os.Stdout

// PackCmd buffers an NDJSON event file and writes the flushed payload.
type PackCmd struct {
	Input      string `arg:"" help:"Newline-delimited JSON events"                       type:"existingfile"`
	Output     string `       help:"Output path (default: next to the input)"           short:"o"`
	NoCompress bool   `       help:"Buffer raw events instead of compressing them"`
	Codec      string `       help:"Compression codec (gzip, zstd)"`
}

// Run packs with the buffer settings of cfg, overridden by the flags.
func (c *PackCmd) Run(lg logger.Logger, cfg *config.Config) error {
	if cfg == nil {
		cfg = config.Default()
	}
	opts := cfg.BufferOptions()
	if c.NoCompress {
		opts.UseCompression = false
	}
	if c.Codec != "" {
		opts.Codec = c.Codec
	}

	f, err := os.Open(c.Input) //nolint:gosec
	if err != nil {
		cliutil.PrintError(fmt.Sprintf("Unable to open %s: %v", c.Input, err))
		return err
	}
	events, err := event.ReadNDJSON(f)
	_ = f.Close()
	if err != nil {
		cliutil.PrintError(fmt.Sprintf("Unable to read events: %v", err))
		return err
	}

	res, err := Pack(context.Background(), events, opts, worker.DefaultSpawner(opts, lg), lg)
	if err != nil {
		cliutil.PrintError(fmt.Sprintf("Unable to pack events: %v", err))
		return err
	}

	out := c.Output
	if out == "" {
		out = packOutputPath(c.Input, res.Codec)
	}
	if err := helpers.AtomicFileWrite(out, res.Payload); err != nil {
		cliutil.PrintError(fmt.Sprintf("Unable to write %s: %v", out, err))
		return err
	}

	lg.Info("packed recording", "session", res.SessionID, "kind", res.Kind, "events", res.Events,
		"size", len(res.Payload), "output", out)
	_, _ = fmt.Fprintf(stdout, "%s: %d events, %d bytes (%s)\n", out, res.Events, len(res.Payload), res.Kind)
	return nil
}

// UnpackCmd expands a packed payload back into its JSON event array.
type UnpackCmd struct {
	Input    string `arg:"" help:"Packed payload"                                           type:"existingfile"`
	Output   string `       help:"Output path (default: stdout)"                            short:"o"`
	Codec    string `       help:"Payload codec (detected when empty)"`
	MaxBytes int    `       help:"Maximum decompressed size in bytes (0 for the default)"`
}

func (c *UnpackCmd) Run(lg logger.Logger) error {
	payload, err := os.ReadFile(c.Input) //nolint:gosec
	if err != nil {
		cliutil.PrintError(fmt.Sprintf("Unable to read %s: %v", c.Input, err))
		return err
	}

	raw, codec, err := Unpack(payload, c.Codec, c.MaxBytes)
	if err != nil {
		cliutil.PrintError(fmt.Sprintf("Unable to unpack %s: %v", c.Input, err))
		return err
	}
	lg.Debug("unpacked payload", "codec", codecLabel(codec), "size", len(payload), "expanded", len(raw))

	if c.Output == "" {
		_, err = stdout.Write(append(raw, '\n'))
		return err
	}
	if err := helpers.AtomicFileWrite(c.Output, raw); err != nil {
		cliutil.PrintError(fmt.Sprintf("Unable to write %s: %v", c.Output, err))
		return err
	}
	return nil
}

// InspectCmd summarizes a packed payload.
type InspectCmd struct {
	Input    string `arg:"" help:"Packed payload"                                           type:"existingfile"`
	Codec    string `       help:"Payload codec (detected when empty)"`
	MaxBytes int    `       help:"Maximum decompressed size in bytes (0 for the default)"`
}

func (c *InspectCmd) Run(lg logger.Logger) error {
	payload, err := os.ReadFile(c.Input) //nolint:gosec
	if err != nil {
		cliutil.PrintError(fmt.Sprintf("Unable to read %s: %v", c.Input, err))
		return err
	}

	s, err := Inspect(payload, c.Codec, c.MaxBytes)
	if err != nil {
		cliutil.PrintError(fmt.Sprintf("Unable to inspect %s: %v", c.Input, err))
		return err
	}
	lg.Debug("inspected payload", "input", c.Input, "events", s.Events)

	_, _ = fmt.Fprint(stdout, s.String())
	return nil
}

// InitConfigCmd writes a default config file.
type InitConfigCmd struct {
	Path string `arg:"" optional:"" help:"Config path (default: recbuf.json)" type:"path"`
}

func (c *InitConfigCmd) Run(lg logger.Logger) error {
	path := c.Path
	if path == "" {
		path = recbuf.DefaultConfigFileName
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := helpers.Ensure(dir, true); err != nil {
			cliutil.PrintError(fmt.Sprintf("Unable to create %s: %v", dir, err))
			return err
		}
	}

	if _, err := config.Create(path); err != nil {
		cliutil.PrintError(fmt.Sprintf("Unable to create config: %v", err))
		return err
	}
	lg.Info("created config", "path", path)
	_, _ = fmt.Fprintf(stdout, "wrote %s\n", path)
	return nil
}

// packOutputPath derives session.json.gz (or session.json) from session.ndjson.
func packOutputPath(input string, codec worker.Codec) string {
	base := input
	for _, ext := range []string{".ndjson", ".jsonl", ".json"} {
		if strings.HasSuffix(base, ext) {
			base = strings.TrimSuffix(base, ext)
			break
		}
	}
	return base + ".json" + codec.Ext()
}

func codecLabel(codec worker.Codec) string {
	if codec == "" {
		return "none"
	}
	return string(codec)
}
