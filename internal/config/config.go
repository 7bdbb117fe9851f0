// Package config loads the TOML run configuration and the .env file that
// carries collaborator credentials.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/FocuswithJustin/DeepEL/core/errors"
	"github.com/FocuswithJustin/DeepEL/core/plugins"
	"github.com/FocuswithJustin/DeepEL/internal/logging"
)

// Config is the whole run configuration.
type Config struct {
	Log       LogConfig       `toml:"log"`
	XML       XMLConfig       `toml:"xml"`
	Output    OutputConfig    `toml:"output"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	LLM       LLMConfig       `toml:"llm"`

	// Workers bounds how many datasets batch parses at once.
	Workers int `toml:"workers"`

	Datasets []DatasetConfig `toml:"dataset"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// XMLConfig holds the XML reader flags.
type XMLConfig struct {
	AllowShift  bool `toml:"allow_shift"`
	ShiftBefore int  `toml:"shift_before"`
	ShiftAfter  int  `toml:"shift_after"`
	AllowNIL    bool `toml:"allow_nil"`
	AllowRepeat bool `toml:"allow_repeat"`
	HasProb     bool `toml:"has_prob"`
}

// OutputConfig says where parsed datasets go.
type OutputConfig struct {
	Dir string `toml:"dir"`
	// Compress writes .json.xz instead of .json.
	Compress bool `toml:"compress"`
	// Snapshots, when set, is a content-addressed store for every output.
	Snapshots string `toml:"snapshots"`
}

// RetrievalConfig points at the candidate retrieval service.
type RetrievalConfig struct {
	URL          string   `toml:"url"`
	TopK         int      `toml:"top_k"`
	ContextChars int      `toml:"context_chars"`
	Timeout      Duration `toml:"timeout"`
}

// LLMConfig configures the validation model.
type LLMConfig struct {
	BaseURL   string   `toml:"base_url"`
	Model     string   `toml:"model"`
	APIKeyEnv string   `toml:"api_key_env"`
	Retries   int      `toml:"retries"`
	Delay     Duration `toml:"delay"`
	Timeout   Duration `toml:"timeout"`
}

// DatasetConfig is one [[dataset]] job.
type DatasetConfig struct {
	Name     string `toml:"name"`
	Mode     string `toml:"mode"`
	Path     string `toml:"path"`
	Output   string `toml:"output"`
	SplitKey string `toml:"split_key"`
	Lenient  bool   `toml:"lenient"`
	// XML overrides the keys it sets in the global [xml] table.
	XML *XMLOverride `toml:"xml"`
}

// XMLOverride is a [dataset.xml] table. Unset keys keep the global value.
type XMLOverride struct {
	AllowShift  *bool `toml:"allow_shift"`
	ShiftBefore *int  `toml:"shift_before"`
	ShiftAfter  *int  `toml:"shift_after"`
	AllowNIL    *bool `toml:"allow_nil"`
	AllowRepeat *bool `toml:"allow_repeat"`
	HasProb     *bool `toml:"has_prob"`
}

// Apply returns base with the keys set in o replaced.
func (o *XMLOverride) Apply(base XMLConfig) XMLConfig {
	if o == nil {
		return base
	}
	setBool := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	setInt := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	setBool(&base.AllowShift, o.AllowShift)
	setInt(&base.ShiftBefore, o.ShiftBefore)
	setInt(&base.ShiftAfter, o.ShiftAfter)
	setBool(&base.AllowNIL, o.AllowNIL)
	setBool(&base.AllowRepeat, o.AllowRepeat)
	setBool(&base.HasProb, o.HasProb)
	return base
}

// Duration decodes TOML strings such as "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "text", MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 28},
		XML: XMLConfig{
			ShiftBefore: plugins.DefaultShiftBefore,
			ShiftAfter:  plugins.DefaultShiftAfter,
		},
		Retrieval: RetrievalConfig{TopK: 10, ContextChars: 150, Timeout: Duration{30 * time.Second}},
		LLM:       LLMConfig{APIKeyEnv: "OPENAI_API_KEY", Retries: 3, Delay: Duration{5 * time.Second}, Timeout: Duration{60 * time.Second}},
		Workers:   4,
	}
}

// Load reads path over the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("config", path)
		}
		return nil, errors.NewConfig("config", path, err.Error())
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.NewConfig("config", path, "unknown keys: "+strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that do not depend on the registered readers.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return errors.NewConfig("log.level", c.Log.Level, err.Error())
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return errors.NewConfig("log.format", c.Log.Format, err.Error())
	}
	if err := c.XML.validate("xml"); err != nil {
		return err
	}
	if c.Workers < 0 {
		return errors.NewConfig("workers", fmt.Sprint(c.Workers), "must not be negative")
	}
	for i, d := range c.Datasets {
		field := fmt.Sprintf("dataset[%d]", i)
		if d.Mode == "" {
			return errors.NewConfig(field+".mode", "", "is required")
		}
		if d.Path == "" {
			return errors.NewConfig(field+".path", "", "is required")
		}
		if d.XML != nil {
			x := d.XML.Apply(c.XML)
			if err := x.validate(field + ".xml"); err != nil {
				return err
			}
		}
	}
	return nil
}

func (x *XMLConfig) validate(field string) error {
	if x.ShiftBefore < 0 {
		return errors.NewConfig(field+".shift_before", fmt.Sprint(x.ShiftBefore), "must not be negative")
	}
	if x.ShiftAfter < 0 {
		return errors.NewConfig(field+".shift_after", fmt.Sprint(x.ShiftAfter), "must not be negative")
	}
	return nil
}

// Options returns the reader options for d.
func (c *Config) Options(d DatasetConfig) plugins.Options {
	x := d.XML.Apply(c.XML)
	return plugins.Options{
		SplitKey:    d.SplitKey,
		Lenient:     d.Lenient,
		AllowShift:  x.AllowShift,
		ShiftBefore: x.ShiftBefore,
		ShiftAfter:  x.ShiftAfter,
		AllowNIL:    x.AllowNIL,
		AllowRepeat: x.AllowRepeat,
		HasProb:     x.HasProb,
	}
}

// LogOptions converts the [log] table.
func (c *Config) LogOptions() (logging.Options, error) {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return logging.Options{}, errors.NewConfig("log.level", c.Log.Level, err.Error())
	}
	format, err := logging.ParseFormat(c.Log.Format)
	if err != nil {
		return logging.Options{}, errors.NewConfig("log.format", c.Log.Format, err.Error())
	}
	return logging.Options{
		Level:      level,
		Format:     format,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
	}, nil
}

// APIKey returns the LLM key from the environment.
func (c *Config) APIKey() string {
	name := c.LLM.APIKeyEnv
	if name == "" {
		name = "OPENAI_API_KEY"
	}
	return os.Getenv(name)
}

// LoadEnv loads .env style files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return errors.NewConfig("env", f, err.Error())
		}
	}
	return nil
}
