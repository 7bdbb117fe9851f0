// Command deepel normalizes entity-linking datasets into one JSON shape and
// drives the candidate retrieval and validation steps that consume it.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/DeepEL/core/errors"
	"github.com/FocuswithJustin/DeepEL/core/ir"
	"github.com/FocuswithJustin/DeepEL/core/plugins"
	"github.com/FocuswithJustin/DeepEL/internal/config"
	"github.com/FocuswithJustin/DeepEL/internal/dispatch"
	"github.com/FocuswithJustin/DeepEL/internal/logging"
	"github.com/FocuswithJustin/DeepEL/internal/store"
	"github.com/FocuswithJustin/DeepEL/internal/validation"
)

const version = "0.1.0"

// CLI defines the command-line interface for deepel.
var CLI struct {
	// Global flags
	Config    string `name:"config" short:"c" help:"TOML configuration file" type:"existingfile"`
	EnvFile   string `name:"env-file" help:"Environment file with collaborator credentials" default:".env"`
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error); overrides the config file"`
	LogFormat string `name:"log-format" help:"Log format (text, json); overrides the config file"`
	LogFile   string `name:"log-file" help:"Write logs to a rotating file instead of stderr" type:"path"`

	Parse        ParseCmd        `cmd:"" help:"Parse a dataset into normalized JSON"`
	Batch        BatchCmd        `cmd:"" help:"Parse every [[dataset]] of the config file concurrently"`
	Stats        StatsCmd        `cmd:"" help:"Print document and mention counts"`
	Detect       DetectCmd       `cmd:"" help:"Guess the reader mode of files"`
	Modes        ModesCmd        `cmd:"" help:"List reader modes and their aliases"`
	ExportSQLite ExportSQLiteCmd `cmd:"" name:"export-sqlite" help:"Export datasets into a SQLite database"`
	Candidates   CandidatesCmd   `cmd:"" help:"Attach retrieval candidates to every mention"`
	Validate     ValidateCmd     `cmd:"" help:"Ask an LLM to validate predicted entities"`
	Version      VersionCmd      `cmd:"" help:"Print version information"`
}

// app carries what every command needs once global flags are applied.
type app struct {
	ctx    context.Context
	cfg    *config.Config
	stdout io.Writer
}

// ReaderFlags are the per-reader options shared by the parsing commands.
type ReaderFlags struct {
	SplitKey    string `name:"split-key" help:"Token-tag: keep documents whose name contains this key (e.g. testa, testb)"`
	Lenient     bool   `help:"Token-tag: skip lines with an unexpected column count"`
	AllowShift  bool   `name:"allow-shift" help:"XML: search near the stated offset when the mention does not align"`
	ShiftBefore int    `name:"shift-before" help:"XML: code points searched before the offset; negative keeps the config value" default:"-1"`
	ShiftAfter  int    `name:"shift-after" help:"XML: code points searched after the offset; negative keeps the config value" default:"-1"`
	AllowNIL    bool   `name:"allow-nil" help:"XML: keep mentions without an entity"`
	AllowRepeat bool   `name:"allow-repeat" help:"XML: tolerate conflicting annotations at one span"`
	HasProb     bool   `name:"has-prob" help:"XML: require a prob field in every annotation"`
}

// options merges the flags over the config file's [xml] table.
func (f *ReaderFlags) options(cfg *config.Config) plugins.Options {
	opts := cfg.Options(config.DatasetConfig{SplitKey: f.SplitKey, Lenient: f.Lenient})
	opts.AllowShift = opts.AllowShift || f.AllowShift
	opts.AllowNIL = opts.AllowNIL || f.AllowNIL
	opts.AllowRepeat = opts.AllowRepeat || f.AllowRepeat
	opts.HasProb = opts.HasProb || f.HasProb
	if f.ShiftBefore >= 0 {
		opts.ShiftBefore = f.ShiftBefore
	}
	if f.ShiftAfter >= 0 {
		opts.ShiftAfter = f.ShiftAfter
	}
	return opts
}

// DatasetMode reads a file already written by parse.
const DatasetMode = "dataset"

// loadInput loads path with mode. An empty or "auto" mode detects the
// reader; a normalized dataset file is read back when no reader claims it.
func loadInput(mode, path string, opts plugins.Options) (*ir.Dataset, error) {
	switch mode {
	case DatasetMode:
		return store.ReadDataset(path, "")
	case "", "auto":
		detected, err := dispatch.Detect(path)
		if err == nil {
			mode = detected
			break
		}
		if errors.Is(err, errors.ErrNotFound) && isDatasetFile(path) {
			return store.ReadDataset(path, "")
		}
		return nil, err
	}
	return dispatch.Load(mode, path, opts)
}

func isDatasetFile(path string) bool {
	return strings.HasSuffix(path, ".json") || strings.HasSuffix(path, ".json"+store.XZSuffix)
}

// outputPath names the file a dataset is written to inside dir.
func outputPath(dir, name string, compress bool) (string, error) {
	safe, err := validation.SanitizeFilename(name)
	if err != nil {
		return "", errors.NewConfig("dataset", name, err.Error())
	}
	file := safe + ".json"
	if compress {
		file += store.XZSuffix
	}
	return filepath.Join(dir, file), nil
}

// setup applies the global flags: .env, config file and logger.
func setup() (*config.Config, io.Closer, error) {
	if err := config.LoadEnv(CLI.EnvFile); err != nil {
		return nil, nil, err
	}
	cfg := config.Default()
	if CLI.Config != "" {
		loaded, err := config.Load(CLI.Config)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}
	if CLI.LogLevel != "" {
		cfg.Log.Level = CLI.LogLevel
	}
	if CLI.LogFormat != "" {
		cfg.Log.Format = CLI.LogFormat
	}
	if CLI.LogFile != "" {
		cfg.Log.File = CLI.LogFile
	}
	lo, err := cfg.LogOptions()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.Configure(lo), nil
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("deepel"),
		kong.Description("DeepEL - entity-linking dataset normalization"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	cfg, closer, err := setup()
	kctx.FatalIfErrorf(err)
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = kctx.Run(&app{ctx: ctx, cfg: cfg, stdout: os.Stdout})
	if err != nil {
		logging.Error("command failed", "command", kctx.Command(), "error", err)
		fmt.Fprintln(os.Stderr, "deepel:", err)
		closer.Close()
		stop()
		os.Exit(1)
	}
}
