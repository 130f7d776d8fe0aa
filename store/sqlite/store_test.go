package sqlite

import (
	"context"
	"path/filepath"
	"slices"
	"testing"
	"testing/fstest"
	"time"

	"github.com/nathoo/dicelab/types"
)

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestOpenAppliesPragmas(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	var mode string
	if err := store.sqlDB.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}

	var timeout int
	if err := store.sqlDB.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("busy_timeout: %v", err)
	}
	if timeout != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", timeout)
	}

	var sync int
	if err := store.sqlDB.QueryRowContext(ctx, "PRAGMA synchronous").Scan(&sync); err != nil {
		t.Fatalf("synchronous: %v", err)
	}
	if sync != 1 {
		t.Errorf("synchronous = %d, want 1 (NORMAL)", sync)
	}
}

func TestRecordListPlaysRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, time.March, 3, 9, 15, 0, 0, time.UTC)
	input := types.PlayRecord{
		Simulation: "Two dice",
		Rolls:      3,
		Dice:       2,
		Jackpots:   1,
		Seed:       42,
		Results:    [][]string{{"1", "1"}, {"2", "5"}, {"6", "3"}},
		PlayedAt:   now,
	}
	if err := store.RecordPlay(context.Background(), input); err != nil {
		t.Fatalf("record play: %v", err)
	}

	plays, err := store.ListPlays(context.Background(), 5)
	if err != nil {
		t.Fatalf("list plays: %v", err)
	}
	if len(plays) != 1 {
		t.Fatalf("plays = %d, want 1", len(plays))
	}
	got := plays[0]
	if got.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if got.Simulation != input.Simulation || got.Rolls != 3 || got.Dice != 2 || got.Jackpots != 1 || got.Seed != 42 {
		t.Fatalf("play = %+v, want %+v", got, input)
	}
	if !got.PlayedAt.Equal(now) {
		t.Fatalf("played_at = %v, want %v", got.PlayedAt, now)
	}
	if len(got.Results) != 3 || !slices.Equal(got.Results[1], []string{"2", "5"}) {
		t.Fatalf("results = %v, want %v", got.Results, input.Results)
	}
}

func TestListPlaysNewestFirstWithLimit(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	base := time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC)
	for i := range 4 {
		rec := types.PlayRecord{
			Simulation: "Coins",
			Rolls:      i + 1,
			Dice:       1,
			PlayedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.RecordPlay(context.Background(), rec); err != nil {
			t.Fatalf("record play %d: %v", i, err)
		}
	}

	plays, err := store.ListPlays(context.Background(), 2)
	if err != nil {
		t.Fatalf("list plays: %v", err)
	}
	if len(plays) != 2 {
		t.Fatalf("plays = %d, want 2", len(plays))
	}
	if plays[0].Rolls != 4 || plays[1].Rolls != 3 {
		t.Fatalf("order = %d, %d; want 4, 3", plays[0].Rolls, plays[1].Rolls)
	}

	all, err := store.ListPlays(context.Background(), 0)
	if err != nil {
		t.Fatalf("list plays: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("default limit returned %d plays, want 4", len(all))
	}
}

func TestRecordPlayStampsTimeAndEmptyResults(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if err := store.RecordPlay(context.Background(), types.PlayRecord{Rolls: 1, Dice: 1}); err != nil {
		t.Fatalf("record play: %v", err)
	}
	plays, err := store.ListPlays(context.Background(), 1)
	if err != nil {
		t.Fatalf("list plays: %v", err)
	}
	if plays[0].PlayedAt.IsZero() {
		t.Fatal("expected played_at to be stamped")
	}
	if plays[0].Results == nil || len(plays[0].Results) != 0 {
		t.Fatalf("results = %v, want empty", plays[0].Results)
	}
}

func TestRecordPlayValidates(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	tests := []types.PlayRecord{
		{Rolls: 0, Dice: 1},
		{Rolls: 1, Dice: 0},
	}
	for _, rec := range tests {
		if err := store.RecordPlay(context.Background(), rec); err == nil {
			t.Fatalf("expected error for %+v", rec)
		}
	}
}

func TestCanceledContext(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.RecordPlay(ctx, types.PlayRecord{Rolls: 1, Dice: 1}); err == nil {
		t.Fatal("expected context error from RecordPlay")
	}
	if _, err := store.ListPlays(ctx, 1); err == nil {
		t.Fatal("expected context error from ListPlays")
	}
}

func TestNilStore(t *testing.T) {
	t.Parallel()

	var store *Store
	if err := store.Close(); err != nil {
		t.Fatalf("close nil store: %v", err)
	}
	if err := store.RecordPlay(context.Background(), types.PlayRecord{Rolls: 1, Dice: 1}); err == nil {
		t.Fatal("expected error from nil store")
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.RecordPlay(context.Background(), types.PlayRecord{Rolls: 2, Dice: 2}); err != nil {
		t.Fatalf("record play: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	// The schema is already at the latest version.
	store, err = Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store.Close()
	plays, err := store.ListPlays(context.Background(), 10)
	if err != nil {
		t.Fatalf("list plays: %v", err)
	}
	if len(plays) != 1 {
		t.Fatalf("plays = %d, want 1", len(plays))
	}
}

func TestExtractUpMigration(t *testing.T) {
	t.Parallel()

	content := "-- +migrate Up\nCREATE TABLE a (x INT);\n-- +migrate Down\nDROP TABLE a;\n"
	got := ExtractUpMigration(content)
	if got != "\nCREATE TABLE a (x INT);\n" {
		t.Fatalf("up = %q", got)
	}
	if plain := ExtractUpMigration("SELECT 1;"); plain != "SELECT 1;" {
		t.Fatalf("plain = %q", plain)
	}
}

func TestApplyMigrationsBadSQL(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	bad := fstest.MapFS{
		"900_bad.sql": &fstest.MapFile{Data: []byte("CREATE TABLE (;")},
	}
	if err := ApplyMigrations(context.Background(), store.sqlDB, bad); err == nil {
		t.Fatal("expected migration error")
	}
	if v := userVersion(t, store); v != 1 {
		t.Fatalf("user_version = %d, want 1 after failed step", v)
	}
	if err := ApplyMigrations(context.Background(), nil, bad); err == nil {
		t.Fatal("expected nil db error")
	}
}

func TestApplyMigrationsVersions(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if v := userVersion(t, store); v != 1 {
		t.Fatalf("user_version after open = %d, want 1", v)
	}

	next := fstest.MapFS{
		"001_plays.sql": &fstest.MapFile{Data: []byte("CREATE TABLE plays (x INT);")},
		"002_notes.sql": &fstest.MapFile{Data: []byte("-- +migrate Up\nCREATE TABLE notes (body TEXT);\n-- +migrate Down\nDROP TABLE notes;\n")},
		"README.md":     &fstest.MapFile{Data: []byte("ignored")},
	}
	for i := 0; i < 2; i++ {
		if err := ApplyMigrations(context.Background(), store.sqlDB, next); err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
	}
	if v := userVersion(t, store); v != 2 {
		t.Fatalf("user_version = %d, want 2", v)
	}
	if _, err := store.sqlDB.Exec("INSERT INTO notes (body) VALUES ('x')"); err != nil {
		t.Fatalf("notes table missing: %v", err)
	}
}

func TestApplyMigrationsBadNames(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	tests := map[string]fstest.MapFS{
		"no number": {"plays.sql": &fstest.MapFile{Data: []byte("SELECT 1;")}},
		"zero":      {"000_init.sql": &fstest.MapFile{Data: []byte("SELECT 1;")}},
		"duplicate": {
			"003_a.sql": &fstest.MapFile{Data: []byte("SELECT 1;")},
			"03_b.sql":  &fstest.MapFile{Data: []byte("SELECT 1;")},
		},
	}
	for name, fsys := range tests {
		if err := ApplyMigrations(context.Background(), store.sqlDB, fsys); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func userVersion(t *testing.T, store *Store) int {
	t.Helper()
	var v int
	if err := store.sqlDB.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		t.Fatalf("user_version: %v", err)
	}
	return v
}

func openTempStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}
