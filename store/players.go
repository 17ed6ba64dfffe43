// Package store keeps a ledger of players that completed login.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("player not found")

const schema = `
CREATE TABLE IF NOT EXISTS players (
	uuid        TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	first_login INTEGER NOT NULL,
	last_login  INTEGER NOT NULL,
	logins      INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_players_name ON players(name);
`

type Player struct {
	UUID       uuid.UUID
	Name       string
	FirstLogin time.Time
	LastLogin  time.Time
	Logins     int
}

// PlayerStore is a SQLite backed player ledger. It is safe for concurrent
// use.
type PlayerStore struct {
	db *sql.DB
}

// Open opens or creates the database at path. ":memory:" keeps it in memory.
func Open(path string) (*PlayerStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	// one connection: SQLite has a single writer, and :memory: databases
	// are per connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate %s: %w", path, err)
	}

	return &PlayerStore{db: db}, nil
}

func (s *PlayerStore) Close() error {
	return s.db.Close()
}

// RecordLogin upserts the player and bumps its login counter.
func (s *PlayerStore) RecordLogin(ctx context.Context, id uuid.UUID, name string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO players (uuid, name, first_login, last_login, logins)
VALUES (?, ?, ?, ?, 1)
ON CONFLICT(uuid) DO UPDATE SET
	name = excluded.name,
	last_login = excluded.last_login,
	logins = players.logins + 1`,
		id.String(), name, at.Unix(), at.Unix())
	if err != nil {
		return fmt.Errorf("record login for %s: %w", name, err)
	}
	return nil
}

func (s *PlayerStore) Lookup(ctx context.Context, id uuid.UUID) (Player, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT uuid, name, first_login, last_login, logins FROM players WHERE uuid = ?`, id.String())
	return scanPlayer(row)
}

// LookupName returns the player most recently seen under name.
func (s *PlayerStore) LookupName(ctx context.Context, name string) (Player, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT uuid, name, first_login, last_login, logins FROM players WHERE name = ? ORDER BY last_login DESC LIMIT 1`, name)
	return scanPlayer(row)
}

// Recent returns up to limit players ordered by last login, newest first.
func (s *PlayerStore) Recent(ctx context.Context, limit int) ([]Player, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT uuid, name, first_login, last_login, logins FROM players ORDER BY last_login DESC, name LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row scanner) (Player, error) {
	var (
		p           Player
		id          string
		first, last int64
	)
	if err := row.Scan(&id, &p.Name, &first, &last, &p.Logins); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Player{}, ErrNotFound
		}
		return Player{}, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return Player{}, fmt.Errorf("corrupt uuid %q: %w", id, err)
	}
	p.UUID = parsed
	p.FirstLogin = time.Unix(first, 0)
	p.LastLogin = time.Unix(last, 0)
	return p, nil
}
