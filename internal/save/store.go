// Package save persists player positions in sqlite: one autosave row per
// player and an append-only checkpoint log.
package save

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"overworld/internal/game"
	"overworld/internal/maps"
)

// ErrNotFound is returned when a player has nothing saved.
var ErrNotFound = errors.New("no save found")

// Checkpoint states that take priority over an older autosave on restore.
const (
	StateIdle   = "idle"
	StateBattle = "battle"
	StateEvent  = "event"
)

// Record is a stored position.
type Record struct {
	Player string
	game.SaveState
	State   string
	SavedAt time.Time
}

// Store is the sqlite save database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at file.
func Open(file string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=5000", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS save (player TEXT PRIMARY KEY NOT NULL, map_id TEXT NOT NULL, x INTEGER NOT NULL, y INTEGER NOT NULL, facing TEXT NOT NULL, saved_at INTEGER NOT NULL)"); err != nil {
		db.Close()
		return nil, fmt.Errorf("create save table: %w", err)
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS checkpoint (id INTEGER PRIMARY KEY NOT NULL, player TEXT NOT NULL, map_id TEXT NOT NULL, x INTEGER NOT NULL, y INTEGER NOT NULL, facing TEXT NOT NULL, state TEXT NOT NULL, saved_at INTEGER NOT NULL)"); err != nil {
		db.Close()
		return nil, fmt.Errorf("create checkpoint table: %w", err)
	}

	if _, err = db.Exec("CREATE INDEX IF NOT EXISTS checkpoint_player ON checkpoint(player, saved_at)"); err != nil {
		db.Close()
		return nil, fmt.Errorf("create checkpoint index: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the player's autosave.
func (s *Store) Save(ctx context.Context, player string, st game.SaveState) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO save (player, map_id, x, y, facing, saved_at) VALUES (?, ?, ?, ?, ?, ?) "+
			"ON CONFLICT(player) DO UPDATE SET map_id = excluded.map_id, x = excluded.x, y = excluded.y, facing = excluded.facing, saved_at = excluded.saved_at",
		player, st.MapID, st.X, st.Y, st.Facing.String(), s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("save %s: %w", player, err)
	}
	return nil
}

// Checkpoint appends a checkpoint in the given state.
func (s *Store) Checkpoint(ctx context.Context, player string, st game.SaveState, state string) error {
	if state == "" {
		state = StateIdle
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO checkpoint (player, map_id, x, y, facing, state, saved_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		player, st.MapID, st.X, st.Y, st.Facing.String(), state, s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("checkpoint %s: %w", player, err)
	}
	return nil
}

// Load returns the player's autosave.
func (s *Store) Load(ctx context.Context, player string) (Record, error) {
	row := s.db.QueryRowContext(ctx, "SELECT map_id, x, y, facing, saved_at FROM save WHERE player = ?", player)
	r := Record{Player: player, State: StateIdle}
	var facing string
	var at int64
	switch err := row.Scan(&r.MapID, &r.X, &r.Y, &facing, &at); err {
	case sql.ErrNoRows:
		return Record{}, ErrNotFound
	case nil:
		r.Facing = maps.ParseDirection(facing)
		r.SavedAt = time.Unix(0, at)
		return r, nil
	default:
		return Record{}, fmt.Errorf("load %s: %w", player, err)
	}
}

// LatestCheckpoint returns the player's newest checkpoint.
func (s *Store) LatestCheckpoint(ctx context.Context, player string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT map_id, x, y, facing, state, saved_at FROM checkpoint WHERE player = ? ORDER BY saved_at DESC, id DESC LIMIT 1", player)
	r := Record{Player: player}
	var facing string
	var at int64
	switch err := row.Scan(&r.MapID, &r.X, &r.Y, &facing, &r.State, &at); err {
	case sql.ErrNoRows:
		return Record{}, ErrNotFound
	case nil:
		r.Facing = maps.ParseDirection(facing)
		r.SavedAt = time.Unix(0, at)
		return r, nil
	default:
		return Record{}, fmt.Errorf("checkpoint %s: %w", player, err)
	}
}

// Restore picks where a returning player spawns: the autosave, unless a
// newer checkpoint was taken mid-battle or mid-event. Without an autosave
// the latest checkpoint is used.
func (s *Store) Restore(ctx context.Context, player string) (Record, error) {
	saved, err := s.Load(ctx, player)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Record{}, err
	}
	hasSave := err == nil

	cp, err := s.LatestCheckpoint(ctx, player)
	switch {
	case errors.Is(err, ErrNotFound):
		if hasSave {
			return saved, nil
		}
		return Record{}, ErrNotFound
	case err != nil:
		return Record{}, err
	}

	if !hasSave {
		return cp, nil
	}
	if cp.SavedAt.After(saved.SavedAt) && (cp.State == StateBattle || cp.State == StateEvent) {
		return cp, nil
	}
	return saved, nil
}

// Spawn converts the record into an engine spawn.
func (r Record) Spawn() *maps.Spawn {
	return maps.At(r.X, r.Y, r.Facing)
}

// ForPlayer binds the store to one player as an engine Saver.
func (s *Store) ForPlayer(player string) game.Saver {
	return playerSaver{store: s, player: player}
}

type playerSaver struct {
	store  *Store
	player string
}

func (p playerSaver) Autosave(ctx context.Context, st game.SaveState) error {
	return p.store.Save(ctx, p.player, st)
}

func (p playerSaver) Checkpoint(ctx context.Context, st game.SaveState, reason string) error {
	return p.store.Checkpoint(ctx, p.player, st, reason)
}
