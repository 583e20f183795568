// Package sqlite provides SQLite-backed active-game and history stores.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/history"
	"github.com/lox/blackjack/internal/storage"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store persists games and history in SQLite.
type Store struct {
	sqlDB *sql.DB
	codec *storage.Codec
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// Open opens a SQLite store and applies the embedded migrations.
func Open(path string, codec *storage.Codec) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if codec == nil {
		codec = storage.MustCodec()
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
	if err := applyMigrations(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, codec: codec}, nil
}

func applyMigrations(db *sql.DB) error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return err
	}
	for _, e := range entries {
		stmt, err := migrations.ReadFile("migrations/" + e.Name())
		if err != nil {
			return err
		}
		if _, err := db.Exec(string(stmt)); err != nil {
			return fmt.Errorf("%s: %w", e.Name(), err)
		}
	}
	return nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// GetGame loads and validates one game document.
func (s *Store) GetGame(ctx context.Context, id string) (*game.GameState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var doc string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT document FROM games WHERE id = ?`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("game %s: %w", id, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("get game: %w", err)
	}
	return s.codec.Decode([]byte(doc))
}

// UpsertGame inserts or replaces a game document.
func (s *Store) UpsertGame(ctx context.Context, g *game.GameState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := s.codec.Encode(g)
	if err != nil {
		return err
	}
	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO games (id, status, document, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   status = excluded.status,
		   document = excluded.document,
		   updated_at = excluded.updated_at`,
		g.ID,
		string(g.Status),
		string(data),
		toMillis(g.CreatedAt),
		toMillis(g.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert game: %w", err)
	}
	return nil
}

// DeleteGame removes a game. Deleting a missing game is not an error.
func (s *Store) DeleteGame(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete game: %w", err)
	}
	return nil
}

// GameExists reports whether a game exists, optionally in a given status.
// An empty status matches any.
func (s *Store) GameExists(ctx context.Context, id string, status game.GameStatus) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var n int
	var err error
	if status == "" {
		err = s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(1) FROM games WHERE id = ?`, id).Scan(&n)
	} else {
		err = s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(1) FROM games WHERE id = ? AND status = ?`, id, string(status)).Scan(&n)
	}
	if err != nil {
		return false, fmt.Errorf("game exists: %w", err)
	}
	return n > 0, nil
}

// ListGames returns the ids of stored games in lexical order.
func (s *Store) ListGames(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id FROM games ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan game id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate games: %w", err)
	}
	return ids, nil
}

// RecordHistory archives a completed round once.
func (s *Store) RecordHistory(ctx context.Context, rec history.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal history %s: %w", rec.GameID, err)
	}
	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO history (game_id, record, total_wager, total_payout, completed_at, seq)
		 VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM history))`,
		rec.GameID,
		string(data),
		rec.TotalWager.String(),
		rec.TotalPayout.String(),
		toMillis(rec.CompletedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("history %s: %w", rec.GameID, storage.ErrAlreadyExists)
		}
		return fmt.Errorf("record history: %w", err)
	}
	return nil
}

// GetHistory returns one archived round.
func (s *Store) GetHistory(ctx context.Context, gameID string) (*history.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT record FROM history WHERE game_id = ?`, gameID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("history %s: %w", gameID, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("get history: %w", err)
	}
	return decodeRecord(data)
}

// ListHistory returns archived rounds in archival order.
func (s *Store) ListHistory(ctx context.Context) ([]history.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT record FROM history ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []history.Record
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		rec, err := decodeRecord(data)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return out, nil
}

func decodeRecord(data string) (*history.Record, error) {
	var rec history.Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal history: %w", err)
	}
	return &rec, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
