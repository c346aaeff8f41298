// Package persistence provides SQLite-based realm storage. Realms are kept
// as their canonical JSON alongside a few summary columns for listing.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/hexrealm/internal/editor"
	"github.com/talgya/hexrealm/internal/world"
)

// ErrNotFound is returned when no realm has the requested id.
var ErrNotFound = errors.New("realm not found")

// DB wraps a SQLite connection for realm persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS realms (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		shape TEXT NOT NULL,
		radius INTEGER NOT NULL DEFAULT 0,
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0,
		hex_count INTEGER NOT NULL,
		myth_count INTEGER NOT NULL,
		seed INTEGER,
		revision INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		data TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS realm_changes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		realm_id TEXT NOT NULL REFERENCES realms(id) ON DELETE CASCADE,
		revision INTEGER NOT NULL,
		op TEXT NOT NULL,
		hexes INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS realm_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_realms_updated ON realms(updated_at);
	CREATE INDEX IF NOT EXISTS idx_changes_realm ON realm_changes(realm_id, revision);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// NewID returns a fresh realm id.
func NewID() string {
	return uuid.NewString()
}

// RealmSummary is the listing row for a stored realm.
type RealmSummary struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	Shape     string `db:"shape" json:"shape"`
	Radius    int    `db:"radius" json:"radius,omitempty"`
	Width     int    `db:"width" json:"width,omitempty"`
	Height    int    `db:"height" json:"height,omitempty"`
	HexCount  int    `db:"hex_count" json:"hexCount"`
	MythCount int    `db:"myth_count" json:"mythCount"`
	Seed      *int64 `db:"seed" json:"seed,omitempty"` // Nil for imported or hand-built realms
	Revision  uint64 `db:"revision" json:"revision"`
	CreatedAt int64  `db:"created_at" json:"createdAt"`
	UpdatedAt int64  `db:"updated_at" json:"updatedAt"`
}

// Updated returns UpdatedAt as a time.
func (s RealmSummary) Updated() time.Time {
	return time.Unix(s.UpdatedAt, 0)
}

// Record identifies a realm being saved.
type Record struct {
	ID       string
	Name     string
	Seed     *int64
	Revision uint64
}

// SaveRealm writes a realm snapshot, creating the row or replacing the
// stored realm while keeping its creation time.
func (db *DB) SaveRealm(rec Record, r *world.Realm) error {
	data, err := world.Encode(r)
	if err != nil {
		return fmt.Errorf("encode realm %s: %w", rec.ID, err)
	}
	now := time.Now().Unix()

	_, err = db.conn.Exec(`INSERT INTO realms
		(id, name, shape, radius, width, height, hex_count, myth_count, seed, revision, created_at, updated_at, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = COALESCE(NULLIF(excluded.name, ''), realms.name),
			shape = excluded.shape,
			radius = excluded.radius,
			width = excluded.width,
			height = excluded.height,
			hex_count = excluded.hex_count,
			myth_count = excluded.myth_count,
			seed = COALESCE(excluded.seed, realms.seed),
			revision = excluded.revision,
			updated_at = excluded.updated_at,
			data = excluded.data`,
		rec.ID, rec.Name, string(r.Shape.Kind), r.Shape.Radius, r.Shape.Width, r.Shape.Height,
		r.HexCount(), len(r.Myths), rec.Seed, rec.Revision, now, now, string(data),
	)
	if err != nil {
		return fmt.Errorf("save realm %s: %w", rec.ID, err)
	}
	return nil
}

// LoadRealm decodes the stored realm with the given id.
func (db *DB) LoadRealm(id string) (*world.Realm, error) {
	var data string
	err := db.conn.Get(&data, "SELECT data FROM realms WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	r, warnings, err := world.Decode([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("decode realm %s: %w", id, err)
	}
	for _, w := range warnings {
		slog.Warn("stored realm upgraded on load", "realm", id, "code", w.Code, "message", w.Message)
	}
	return r, nil
}

// GetRealm returns the summary row for id.
func (db *DB) GetRealm(id string) (RealmSummary, error) {
	var s RealmSummary
	err := db.conn.Get(&s, `SELECT id, name, shape, radius, width, height, hex_count, myth_count,
		seed, revision, created_at, updated_at FROM realms WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrNotFound
	}
	return s, err
}

// ListRealms returns every stored realm, most recently updated first.
func (db *DB) ListRealms() ([]RealmSummary, error) {
	realms := []RealmSummary{}
	err := db.conn.Select(&realms, `SELECT id, name, shape, radius, width, height, hex_count, myth_count,
		seed, revision, created_at, updated_at FROM realms ORDER BY updated_at DESC, id`)
	return realms, err
}

// DeleteRealm removes a realm and its change log.
func (db *DB) DeleteRealm(id string) error {
	res, err := db.conn.Exec("DELETE FROM realms WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ChangeRecord is one logged edit.
type ChangeRecord struct {
	RealmID   string `db:"realm_id" json:"realmId"`
	Revision  uint64 `db:"revision" json:"revision"`
	Op        string `db:"op" json:"op"`
	Hexes     int    `db:"hexes" json:"hexes"`
	CreatedAt int64  `db:"created_at" json:"createdAt"`
}

// insertChanges appends committed edits to a realm's change log.
func insertChanges(tx *sqlx.Tx, realmID string, changes []editor.Change) error {
	for _, c := range changes {
		_, err := tx.Exec(
			"INSERT INTO realm_changes (realm_id, revision, op, hexes, created_at) VALUES (?, ?, ?, ?, ?)",
			realmID, c.Revision, string(c.Op), len(c.Hexes), c.At.Unix(),
		)
		if err != nil {
			return fmt.Errorf("insert change %d: %w", c.Revision, err)
		}
	}
	return nil
}

// RecentChanges returns the latest N logged edits of a realm, newest first.
func (db *DB) RecentChanges(realmID string, limit int) ([]ChangeRecord, error) {
	changes := []ChangeRecord{}
	err := db.conn.Select(&changes,
		"SELECT realm_id, revision, op, hexes, created_at FROM realm_changes WHERE realm_id = ? ORDER BY id DESC LIMIT ?",
		realmID, limit,
	)
	return changes, err
}

// SaveMeta stores a key-value pair in store metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO realm_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM realm_meta WHERE key = ?", key)
	return value, err
}

// SaveSession writes an editing session's realm over its stored row and logs
// every change not yet saved, in one transaction. It never creates a row: if
// the realm was deleted it returns ErrNotFound and the session stays dirty.
// It returns the revision saved.
func (db *DB) SaveSession(s *editor.Session) (uint64, error) {
	r, rev, pending := s.Checkpoint()
	slog.Info("saving realm", "realm", s.ID(), "revision", rev, "hexes", r.HexCount(), "changes", len(pending))

	data, err := world.Encode(r)
	if err != nil {
		return 0, fmt.Errorf("encode realm %s: %w", s.ID(), err)
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE realms SET
			hex_count = ?, myth_count = ?, revision = ?, updated_at = ?, data = ?
		WHERE id = ?`,
		r.HexCount(), len(r.Myths), rev, time.Now().Unix(), string(data), s.ID(),
	)
	if err != nil {
		return 0, fmt.Errorf("save realm %s: %w", s.ID(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrNotFound
	}
	if err := insertChanges(tx, s.ID(), pending); err != nil {
		return 0, fmt.Errorf("save changes: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	s.MarkSaved(rev)
	return rev, nil
}
