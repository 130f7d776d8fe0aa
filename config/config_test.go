package config

import (
	"errors"
	"flag"
	"io"
	"strings"
	"testing"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("dicelab", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(newFlagSet(), []string{"sims/two_dice"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Path != "sims/two_dice" {
		t.Fatalf("path = %q", cfg.Path)
	}
	if cfg.SaveDir != "saves" || cfg.Locale != "en" || cfg.MaxRows != 20 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Seed != 0 || cfg.DBPath != "" || cfg.Plain {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestParseConfigEnv(t *testing.T) {
	t.Setenv("DICELAB_SEED", "77")
	t.Setenv("DICELAB_DB_PATH", "/tmp/history.db")
	t.Setenv("DICELAB_LOCALE", "de")
	t.Setenv("DICELAB_PLAIN", "true")

	cfg, err := ParseConfig(newFlagSet(), []string{"sim.lua"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Seed != 77 || cfg.DBPath != "/tmp/history.db" || cfg.Locale != "de" || !cfg.Plain {
		t.Fatalf("env not applied: %+v", cfg)
	}
}

func TestParseConfigFlagsOverrideEnv(t *testing.T) {
	t.Setenv("DICELAB_SEED", "77")
	t.Setenv("DICELAB_SAVE_DIR", "env-saves")

	cfg, err := ParseConfig(newFlagSet(), []string{
		"-seed", "5", "-saves", "flag-saves", "-rows", "0", "-script", "run.txt", "-trace", "sim.yaml",
	})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Seed != 5 || cfg.SaveDir != "flag-saves" || cfg.MaxRows != 0 {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if cfg.Script != "run.txt" || !cfg.Trace || cfg.Path != "sim.yaml" {
		t.Fatalf("flags not applied: %+v", cfg)
	}
}

func TestParseConfigUsage(t *testing.T) {
	_, err := ParseConfig(newFlagSet(), nil)
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("err = %v, want ErrUsage", err)
	}

	cfg, err := ParseConfig(newFlagSet(), []string{"-version"})
	if err != nil || !cfg.Version {
		t.Fatalf("version without path: cfg=%+v err=%v", cfg, err)
	}
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("DICELAB_SEED", "not-an-int")

	_, err := ParseConfig(newFlagSet(), []string{"sim"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}
