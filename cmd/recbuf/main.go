package main

import (
	"os"
	"path"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/recbuf/internal/cli"
	"github.com/julianstephens/recbuf/internal/logger"
	"github.com/julianstephens/recbuf/internal/recbuf"
	"github.com/julianstephens/recbuf/internal/recbuf/config"
)

var (
	version = "recbuf v0.1.0"
)

type LogOpts struct {
	Level  string `help:"Logging level (debug, info, warn, error)" default:"info" envvar:"RECBUF_LOG_LEVEL"`
	Debug  bool   `help:"Enable debug logging (overrides --level)"                envvar:"RECBUF_LOG_DEBUG"`
	Stream bool   `help:"Log to stdout/stderr only, without a log file"           envvar:"RECBUF_LOG_STREAM"`
}

type CLI struct {
	Pack       cli.PackCmd       `cmd:"" help:"Buffer an NDJSON event file into a recording payload"`
	Unpack     cli.UnpackCmd     `cmd:"" help:"Expand a recording payload into its JSON event array"`
	Inspect    cli.InspectCmd    `cmd:"" help:"Summarize a recording payload"`
	InitConfig cli.InitConfigCmd `cmd:"" help:"Write a default config file"`

	Config  string           `help:"recbuf config file (default: ./recbuf.json when present)" type:"path" envvar:"RECBUF_CONFIG"`
	LogOpts LogOpts          `embed:"" prefix:"log-" help:"Logging options"`
	Version kong.VersionFlag `                       help:"Show version information" short:"V"`
}

func createLogger(opts LogOpts, cfg *config.Config) (logger.Logger, error) {
	var level string
	if opts.Debug {
		level = "debug"
	} else {
		level = opts.Level
	}

	homeDir, err := os.UserHomeDir()
	if err != nil && !opts.Stream {
		return nil, err
	}
	logDir := path.Join(homeDir, recbuf.DefaultAppDir, recbuf.DefaultLogDir)
	return cli.NewLogger(level, opts.Stream, logDir, cfg)
}

func main() {
	cliApp := &CLI{}
	ctx := kong.Parse(cliApp,
		kong.Name("recbuf"),
		kong.Description("Buffer and compress session-recording events"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)

	cfg, err := cli.LoadConfig(cliApp.Config)
	ctx.FatalIfErrorf(err)

	lg, err := createLogger(cliApp.LogOpts, cfg)
	ctx.FatalIfErrorf(err)
	defer func() {
		if c, ok := lg.(logger.Closeable); ok {
			_ = c.Close()
		}
	}()

	ctx.Bind(cfg)
	ctx.BindTo(lg, (*logger.Logger)(nil))
	if err := ctx.Run(); err != nil {
		lg.Error("command failed", err, "command", ctx.Command())
		if c, ok := lg.(logger.Closeable); ok {
			_ = c.Close()
		}
		os.Exit(1)
	}
}
