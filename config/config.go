// Package config parses DiceLab settings from the environment and flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
)

// ErrUsage is returned when no definition path is given.
var ErrUsage = errors.New("usage: dicelab [-version] [-plain] [-seed n] [-db path] [-script file] [-trace] <simulation_dir_or_file>")

// Config holds command configuration. Environment values are defaults that
// flags override.
type Config struct {
	Seed    int64  `env:"DICELAB_SEED"`
	SaveDir string `env:"DICELAB_SAVE_DIR" envDefault:"saves"`
	DBPath  string `env:"DICELAB_DB_PATH"`
	Locale  string `env:"DICELAB_LOCALE" envDefault:"en"`
	Plain   bool   `env:"DICELAB_PLAIN"`
	MaxRows int    `env:"DICELAB_MAX_ROWS" envDefault:"20"`

	Script  string
	Trace   bool
	Version bool
	Path    string // simulation directory or definition file
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "RNG seed (0 = simulation seed or random)")
	fs.StringVar(&cfg.SaveDir, "saves", cfg.SaveDir, "directory for /save and /load files")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite play history path (empty = no history)")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "locale for number formatting")
	fs.BoolVar(&cfg.Plain, "plain", cfg.Plain, "use the line-oriented CLI instead of the TUI")
	fs.IntVar(&cfg.MaxRows, "rows", cfg.MaxRows, "maximum table rows per command (0 = all)")
	fs.StringVar(&cfg.Script, "script", "", "run commands from a file and exit")
	fs.BoolVar(&cfg.Trace, "trace", false, "print events after each command")
	fs.BoolVar(&cfg.Version, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.Version {
		return cfg, nil
	}
	if fs.NArg() < 1 {
		return Config{}, ErrUsage
	}
	cfg.Path = fs.Arg(0)
	return cfg, nil
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
