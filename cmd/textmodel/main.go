// Package main is the entry point for the textmodel inspection tool. It
// lexes a file with a grammar and prints its tokens, foldable blocks or
// bracket matches.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dshills/textmodel/internal/engine"
	"github.com/dshills/textmodel/internal/engine/document"
	"github.com/dshills/textmodel/internal/engine/fold"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type options struct {
	configPath string
	grammarDir string
	language   string
	logLevel   string
	folds      bool
	bracket    string
	file       string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	level, err := parseLevel(opts.logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := engine.LoadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if opts.grammarDir != "" {
		cfg.Grammar.Dir = opts.grammarDir
	}
	cfg.Grammar.Watch = false

	text, err := os.ReadFile(opts.file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	host, err := engine.NewHost(cfg, engine.WithHostLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	defer host.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		if err := host.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("host stopped", "error", err)
		}
	}()

	var s *engine.Session
	if opts.language != "" {
		s, err = host.OpenLanguage(ctx, opts.language, string(text))
	} else {
		s, err = host.Open(ctx, opts.file, string(text))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	err = host.Do(ctx, func() error {
		switch {
		case opts.bracket != "":
			return printBracket(os.Stdout, s, opts.bracket)
		case opts.folds:
			return printFolds(os.Stdout, s, logger)
		default:
			printTokens(os.Stdout, s)
			return nil
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printTokens(w io.Writer, s *engine.Session) {
	for row := range s.Document().Length() {
		var sb strings.Builder
		for i, t := range s.Tokens(row) {
			if i > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%s:%q", t.Type, t.Value)
		}
		fmt.Fprintf(w, "%d\t%s\n", row+1, sb.String())
	}
}

// printFolds folds every bracketed block and prints the fold ranges. Rows
// without a block are skipped; blocks crossing an earlier fold are logged.
func printFolds(w io.Writer, s *engine.Session, logger *slog.Logger) error {
	for row := range s.Document().Length() {
		_, err := s.FoldBlock(row)
		switch {
		case err == nil, errors.Is(err, engine.ErrNoFoldRange):
		case errors.Is(err, fold.ErrFoldIntersects):
			logger.Warn("skipping fold", "row", row+1, "error", err)
		default:
			return fmt.Errorf("fold row %d: %w", row+1, err)
		}
	}
	for _, fl := range s.Folds().FoldLines() {
		for _, f := range fl.Folds() {
			f.Walk(func(f *engine.Fold, r document.Range) bool {
				fmt.Fprintf(w, "%d:%d-%d:%d\n", r.Start.Row+1, r.Start.Column, r.End.Row+1, r.End.Column)
				return true
			})
		}
	}
	return nil
}

func printBracket(w io.Writer, s *engine.Session, at string) error {
	var row, col int
	if _, err := fmt.Sscanf(at, "%d:%d", &row, &col); err != nil {
		return fmt.Errorf("invalid position %q (want row:column)", at)
	}
	pos, ok := s.MatchingBracket(document.Pos(row-1, col))
	if !ok {
		fmt.Fprintln(w, "no match")
		return nil
	}
	fmt.Fprintf(w, "%d:%d\n", pos.Row+1, pos.Column)
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", s)
	}
	return level, nil
}

func parseFlags() options {
	var opts options
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.configPath, "config", "textmodel.toml", "Path to configuration file")
	flag.StringVar(&opts.configPath, "c", "textmodel.toml", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.grammarDir, "grammars", "", "Grammar directory (overrides config)")
	flag.StringVar(&opts.grammarDir, "g", "", "Grammar directory (shorthand)")
	flag.StringVar(&opts.language, "lang", "", "Grammar name (default: by file extension)")
	flag.StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flag.BoolVar(&opts.folds, "folds", false, "Print foldable bracket blocks")
	flag.StringVar(&opts.bracket, "bracket", "", "Print the bracket matching the one before row:column")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "textmodel - lex a file with a declarative grammar\n\n")
		fmt.Fprintf(os.Stderr, "Usage: textmodel [options] file\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  textmodel -g ./grammars app.ini          Print tokens per row\n")
		fmt.Fprintf(os.Stderr, "  textmodel -g ./grammars -folds main.c    Print foldable blocks\n")
		fmt.Fprintf(os.Stderr, "  textmodel -bracket 3:10 main.c           Print the matching bracket\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("textmodel %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	opts.file = flag.Arg(0)
	return opts
}
