// DiceLab is a deterministic Monte Carlo dice simulator driven by Lua or
// YAML definitions.
// Usage: dicelab [-version] [-plain] [-seed n] [-db path] [-script file] [-trace] <simulation>
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/nathoo/dicelab/cli"
	"github.com/nathoo/dicelab/config"
	"github.com/nathoo/dicelab/engine"
	"github.com/nathoo/dicelab/engine/state"
	"github.com/nathoo/dicelab/loader"
	"github.com/nathoo/dicelab/report"
	"github.com/nathoo/dicelab/store/sqlite"
	"github.com/nathoo/dicelab/tui"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("dicelab: ")

	cfg, err := config.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		if errors.Is(err, config.ErrUsage) {
			config.Exitf("%v", err)
		}
		config.Exitf("Error: %v", err)
	}
	if cfg.Version {
		fmt.Printf("dicelab %s (commit %s, built %s)\n", version, commit, date)
		return
	}

	if err := run(cfg, os.Stdout); err != nil {
		config.Exitf("Error: %v", err)
	}
}

// run starts the simulation described by cfg. Deferred cleanup such as
// closing the history store happens before it returns.
func run(cfg config.Config, out io.Writer) error {
	defs, err := load(cfg.Path)
	if err != nil {
		return fmt.Errorf("loading simulation: %w", err)
	}

	opts := []engine.Option{
		engine.WithRenderer(report.ForLocale(cfg.Locale)),
		engine.WithSeed(cfg.Seed),
		engine.WithMaxRows(cfg.MaxRows),
	}

	// The history store is optional; a broken one never blocks rolling.
	var history engine.History
	if cfg.DBPath != "" {
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			log.Printf("play history disabled: %v", err)
		} else {
			defer store.Close()
			history = store
			opts = append(opts, engine.WithRecorder(store))
		}
	}

	eng, err := engine.New(defs, opts...)
	if err != nil {
		return fmt.Errorf("starting simulation: %w", err)
	}

	// Script mode: open file, force plain, echo commands.
	if cfg.Script != "" {
		f, err := os.Open(cfg.Script)
		if err != nil {
			return fmt.Errorf("opening script: %w", err)
		}
		defer f.Close()
		c := newCLI(eng, defs, cfg, history, out)
		c.In = f
		c.EchoInput = true
		c.Run()
		return nil
	}

	// Use plain CLI if -plain or stdout is not a terminal.
	if cfg.Plain || !isatty.IsTerminal(os.Stdout.Fd()) {
		newCLI(eng, defs, cfg, history, out).Run()
		return nil
	}

	return tui.Run(eng, defs, tui.Options{SaveDir: cfg.SaveDir, History: history})
}

// load reads a simulation directory or a single definition file.
func load(path string) (*state.Defs, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return loader.Load(path)
	}
	return loader.LoadFile(path)
}

func newCLI(eng *engine.Engine, defs *state.Defs, cfg config.Config, history engine.History, out io.Writer) *cli.CLI {
	c := cli.New(eng, defs)
	c.Out = out
	c.SaveDir = cfg.SaveDir
	c.Trace = cfg.Trace
	c.History = history
	return c
}
