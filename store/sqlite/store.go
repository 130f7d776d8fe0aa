// Package sqlite provides a SQLite-backed play history.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/nathoo/dicelab/store/sqlite/migrations"
	"github.com/nathoo/dicelab/types"
	_ "modernc.org/sqlite"
)

// DefaultListLimit is used by ListPlays when limit is not positive.
const DefaultListLimit = 10

// Store persists completed plays in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite history store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := ApplyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// RecordPlay inserts one play. A zero PlayedAt is stamped with the
// current time.
func (s *Store) RecordPlay(ctx context.Context, rec types.PlayRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if rec.Rolls <= 0 {
		return fmt.Errorf("rolls must be greater than zero")
	}
	if rec.Dice <= 0 {
		return fmt.Errorf("dice must be greater than zero")
	}
	results := rec.Results
	if results == nil {
		results = [][]string{}
	}
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	playedAt := rec.PlayedAt
	if playedAt.IsZero() {
		playedAt = time.Now()
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO plays (
		   simulation,
		   rolls,
		   dice,
		   jackpots,
		   seed,
		   results_json,
		   played_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(rec.Simulation),
		rec.Rolls,
		rec.Dice,
		rec.Jackpots,
		rec.Seed,
		string(resultsJSON),
		toMillis(playedAt),
	)
	if err != nil {
		return fmt.Errorf("record play: %w", err)
	}
	return nil
}

// ListPlays returns the most recent plays, newest first.
func (s *Store) ListPlays(ctx context.Context, limit int) ([]types.PlayRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, simulation, rolls, dice, jackpots, seed, results_json, played_at
		   FROM plays
		  ORDER BY played_at DESC, id DESC
		  LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list plays: %w", err)
	}
	defer rows.Close()

	plays := make([]types.PlayRecord, 0, limit)
	for rows.Next() {
		var (
			rec         types.PlayRecord
			resultsJSON string
			playedAt    int64
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.Simulation,
			&rec.Rolls,
			&rec.Dice,
			&rec.Jackpots,
			&rec.Seed,
			&resultsJSON,
			&playedAt,
		); err != nil {
			return nil, fmt.Errorf("scan play: %w", err)
		}
		if err := json.Unmarshal([]byte(resultsJSON), &rec.Results); err != nil {
			return nil, fmt.Errorf("decode results of play %d: %w", rec.ID, err)
		}
		rec.PlayedAt = fromMillis(playedAt)
		plays = append(plays, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plays: %w", err)
	}
	return plays, nil
}
