package engine

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/textmodel/internal/engine/document"
	"github.com/dshills/textmodel/internal/syntax/background"
	"github.com/dshills/textmodel/internal/syntax/grammar"
	"github.com/dshills/textmodel/internal/syntax/tokenizer"
)

// Duration is a time.Duration written as a Go duration string ("20ms").
type Duration time.Duration

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config holds host and session settings.
type Config struct {
	Document   DocumentConfig   `toml:"document"`
	Background BackgroundConfig `toml:"background"`
	Grammar    GrammarConfig    `toml:"grammar"`
}

// DocumentConfig configures new documents.
type DocumentConfig struct {
	NewLineMode string `toml:"newline_mode"`
}

// BackgroundConfig configures background tokenization.
type BackgroundConfig struct {
	StartDelay  Duration `toml:"start_delay"`
	ResumeDelay Duration `toml:"resume_delay"`
	RowQuota    int      `toml:"row_quota"`
	TimeBudget  Duration `toml:"time_budget"`
}

// GrammarConfig configures grammar loading and compilation.
type GrammarConfig struct {
	Dir             string   `toml:"dir"`
	Watch           bool     `toml:"watch"`
	ReloadDelay     Duration `toml:"reload_delay"`
	CacheExpiration Duration `toml:"cache_expiration"`
	MaxTokenCount   int      `toml:"max_token_count"`
	MatchTimeout    Duration `toml:"match_timeout"`
	ScriptTimeout   Duration `toml:"script_timeout"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		Document: DocumentConfig{NewLineMode: document.NewLineAuto.String()},
		Background: BackgroundConfig{
			StartDelay:  Duration(background.DefaultStartDelay),
			ResumeDelay: Duration(background.DefaultResumeDelay),
			RowQuota:    background.DefaultRowQuota,
			TimeBudget:  Duration(background.DefaultTimeBudget),
		},
		Grammar: GrammarConfig{
			ReloadDelay:     Duration(grammar.DefaultReloadDelay),
			CacheExpiration: Duration(grammar.DefaultExpiration),
			MaxTokenCount:   tokenizer.DefaultMaxTokenCount,
			MatchTimeout:    Duration(tokenizer.DefaultMatchTimeout),
			ScriptTimeout:   Duration(grammar.DefaultCallTimeout),
		},
	}
}

// LoadConfig reads a TOML config file over the defaults. A missing file
// yields the defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return ParseConfig(path, data)
}

// ParseConfig decodes TOML data over the defaults and validates the result.
// source names the data in errors.
func ParseConfig(source string, data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var decErr *toml.DecodeError
		if errors.As(err, &decErr) {
			line, col := decErr.Position()
			return Config{}, fmt.Errorf("parsing config %s at line %d, column %d: %w", source, line, col, err)
		}
		return Config{}, fmt.Errorf("parsing config %s: %w", source, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", source, err)
	}
	return cfg, nil
}

// Validate checks that every value is usable.
func (c Config) Validate() error {
	if _, ok := document.ParseNewLineMode(c.Document.NewLineMode); !ok {
		return fmt.Errorf("%w: document.newline_mode %q", ErrInvalidConfig, c.Document.NewLineMode)
	}
	switch {
	case c.Background.RowQuota <= 0:
		return fmt.Errorf("%w: background.row_quota must be positive", ErrInvalidConfig)
	case c.Background.StartDelay < 0 || c.Background.ResumeDelay < 0 || c.Background.TimeBudget < 0:
		return fmt.Errorf("%w: background delays must not be negative", ErrInvalidConfig)
	case c.Grammar.MaxTokenCount <= 0:
		return fmt.Errorf("%w: grammar.max_token_count must be positive", ErrInvalidConfig)
	case c.Grammar.ReloadDelay < 0 || c.Grammar.MatchTimeout < 0 || c.Grammar.ScriptTimeout < 0:
		return fmt.Errorf("%w: grammar timeouts must not be negative", ErrInvalidConfig)
	case c.Grammar.Watch && c.Grammar.Dir == "":
		return fmt.Errorf("%w: grammar.watch needs grammar.dir", ErrInvalidConfig)
	}
	return nil
}

// NewLineMode returns the configured document newline mode.
func (c Config) NewLineMode() document.NewLineMode {
	m, _ := document.ParseNewLineMode(c.Document.NewLineMode)
	return m
}

// BackgroundOptions converts the background settings to options.
func (c Config) BackgroundOptions() []background.Option {
	return []background.Option{
		background.WithStartDelay(time.Duration(c.Background.StartDelay)),
		background.WithResumeDelay(time.Duration(c.Background.ResumeDelay)),
		background.WithRowQuota(c.Background.RowQuota),
		background.WithTimeBudget(time.Duration(c.Background.TimeBudget)),
	}
}

// CompileOptions converts the grammar settings to compile options.
func (c Config) CompileOptions() []grammar.CompileOption {
	return []grammar.CompileOption{
		grammar.WithTokenizerOptions(
			tokenizer.WithMaxTokenCount(c.Grammar.MaxTokenCount),
			tokenizer.WithMatchTimeout(time.Duration(c.Grammar.MatchTimeout)),
		),
		grammar.WithScriptOptions(grammar.WithCallTimeout(time.Duration(c.Grammar.ScriptTimeout))),
	}
}
