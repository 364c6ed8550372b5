package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oresmash/smashdb/internal/database"
)

// maxNameLength is the longest player name the game allows.
const maxNameLength = 16

// Player is a row in the smash_players table.
type Player struct {
	ID        uuid.UUID
	Name      string
	Smashes   int64
	CreatedAt time.Time
}

// PlayerStore records per-player smash counts.
type PlayerStore struct {
	db DB
}

func NewPlayerStore(db DB) *PlayerStore {
	return &PlayerStore{db: db}
}

// EnsureSchema creates the players table. The surrogate key column needs
// AUTO_INCREMENT on MySQL and AUTOINCREMENT on SQLite.
func (s *PlayerStore) EnsureSchema(ctx context.Context) error {
	var ddl string
	if s.db.IsServerBackend() {
		ddl = `CREATE TABLE IF NOT EXISTS smash_players (
    seq        BIGINT AUTO_INCREMENT PRIMARY KEY,
    id         CHAR(36) NOT NULL UNIQUE,
    name       VARCHAR(16) NOT NULL,
    smashes    BIGINT NOT NULL DEFAULT 0,
    created_at BIGINT NOT NULL
)`
	} else {
		ddl = `CREATE TABLE IF NOT EXISTS smash_players (
    seq        INTEGER PRIMARY KEY AUTOINCREMENT,
    id         TEXT NOT NULL UNIQUE,
    name       TEXT NOT NULL,
    smashes    INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
)`
	}
	if err := s.db.Prepared(ctx, ddl, database.NoBind); err != nil {
		return fmt.Errorf("create smash_players: %w", err)
	}
	return nil
}

// Register adds a player. Registering an existing player is a no-op; the
// stored name is left as it was.
func (s *PlayerStore) Register(ctx context.Context, id uuid.UUID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLength {
		return fmt.Errorf("invalid player name %q", name)
	}
	now := time.Now().UTC()
	return s.db.Prepared(ctx, `
		INSERT INTO smash_players (id, name, smashes, created_at) VALUES (?, ?, 0, ?)
	`, func(stmt *database.Statement) error {
		stmt.SetString(1, id.String())
		stmt.SetString(2, name)
		stmt.SetInt64(3, now.UnixMilli())
		return nil
	})
}

// AddSmashes increments a player's smash count by n.
func (s *PlayerStore) AddSmashes(ctx context.Context, id uuid.UUID, n int64) error {
	if n < 0 {
		return fmt.Errorf("smash count must not decrease, got %d", n)
	}
	return s.db.Prepared(ctx, `
		UPDATE smash_players SET smashes = smashes + ? WHERE id = ?
	`, database.Args(n, id.String()))
}

// Get returns the player with id, or ErrNotFound.
func (s *PlayerStore) Get(ctx context.Context, id uuid.UUID) (*Player, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, smashes, created_at FROM smash_players WHERE id = ?
	`, database.Args(id.String()))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return playerFromRow(rows[0])
}

// Top returns up to limit players with the most smashes, ties broken by name.
func (s *PlayerStore) Top(ctx context.Context, limit int) ([]*Player, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, name, smashes, created_at FROM smash_players
		ORDER BY smashes DESC, name ASC
		LIMIT ?
	`, database.Args(limit))
	if err != nil {
		return nil, err
	}
	players := make([]*Player, 0, len(rows))
	for _, r := range rows {
		p, err := playerFromRow(r)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, nil
}

func playerFromRow(r database.Row) (*Player, error) {
	rawID, err := rowString(r, "id")
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse player id %q: %w", rawID, err)
	}
	name, err := rowString(r, "name")
	if err != nil {
		return nil, err
	}
	smashes, err := rowInt64(r, "smashes")
	if err != nil {
		return nil, err
	}
	created, err := rowInt64(r, "created_at")
	if err != nil {
		return nil, err
	}
	return &Player{
		ID:        id,
		Name:      name,
		Smashes:   smashes,
		CreatedAt: time.UnixMilli(created).UTC(),
	}, nil
}
