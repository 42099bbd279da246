// Package snapshot is the persistence adapter: it writes the store's
// flattened tables to SQLite at lifecycle boundaries (shutdown, plus an
// optional periodic tick) and rehydrates them on startup.
//
// Layout: a `snapshots` metadata table (one row per snapshot, xid-keyed so
// "newest" is simply the largest id) and a `snapshot_rows` table holding
// every flattened table as ordered key/JSON-value rows. The live maps are
// never mirrored on disk — there is exactly one serialization boundary,
// Save/Load.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/xid"

	"github.com/shafin/minihub/internal/model"
	"github.com/shafin/minihub/internal/store"

	// Registers the pure-Go "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// Logical table names inside snapshot_rows.
const (
	tblUsers         = "users"
	tblUsernames     = "usernames"
	tblRepos         = "repos"
	tblCollaborators = "collaborators"
	tblStargazers    = "stargazers"
	tblLinks         = "links"
)

// keepSnapshots is how many past snapshots survive pruning.
const keepSnapshots = 5

// DB wraps the SQLite connection pool used for snapshots.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the snapshot database. Use ":memory:" in tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("snapshot: opening database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("snapshot: pinging database: %w", err)
	}

	// WAL keeps reads open while a snapshot write is in flight.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("snapshot: setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("snapshot: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("snapshot: running migrations: %w", err)
	}
	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			id         TEXT PRIMARY KEY,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			counter    INTEGER NOT NULL,
			row_count  INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS snapshot_rows (
			snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
			tbl         TEXT NOT NULL,
			k           TEXT NOT NULL,
			v           BLOB NOT NULL,
			ord         INTEGER NOT NULL,
			PRIMARY KEY (snapshot_id, tbl, ord)
		);
		CREATE INDEX IF NOT EXISTS idx_snapshot_rows_lookup
			ON snapshot_rows(snapshot_id, tbl, ord);
	`)
	if err != nil {
		return fmt.Errorf("creating snapshot tables: %w", err)
	}
	return nil
}

// Save writes one complete snapshot in a single transaction and prunes
// old ones. Returns the new snapshot's id.
func (db *DB) Save(ctx context.Context, snap *store.Snapshot) (string, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("snapshot: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	id := xid.New().String()
	rowCount := 0

	// The metadata row must exist before snapshot_rows inserts: they
	// reference snapshots(id) and foreign keys are enforced.
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, counter, row_count) VALUES (?, ?, ?)`,
		id, int64(snap.Counter), 0,
	); err != nil {
		return "", fmt.Errorf("snapshot: inserting metadata: %w", err)
	}

	insert, err := tx.PrepareContext(ctx,
		`INSERT INTO snapshot_rows (snapshot_id, tbl, k, v, ord) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("snapshot: preparing insert: %w", err)
	}
	defer insert.Close()

	writeRow := func(tbl, key string, value any, ord int) error {
		blob, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("snapshot: marshaling %s/%s: %w", tbl, key, err)
		}
		if _, err := insert.ExecContext(ctx, id, tbl, key, blob, ord); err != nil {
			return fmt.Errorf("snapshot: inserting %s/%s: %w", tbl, key, err)
		}
		rowCount++
		return nil
	}

	for i, u := range snap.Users {
		if err := writeRow(tblUsers, u.Identity, u, i); err != nil {
			return "", err
		}
	}
	for i, row := range snap.Usernames {
		if err := writeRow(tblUsernames, row.Username, row, i); err != nil {
			return "", err
		}
	}
	for i, r := range snap.Repos {
		if err := writeRow(tblRepos, r.ID, r, i); err != nil {
			return "", err
		}
	}
	for i, row := range snap.Collaborators {
		if err := writeRow(tblCollaborators, row.RepoID, row, i); err != nil {
			return "", err
		}
	}
	for i, row := range snap.Stargazers {
		if err := writeRow(tblStargazers, row.RepoID, row, i); err != nil {
			return "", err
		}
	}
	for i, row := range snap.Links {
		if err := writeRow(tblLinks, row.Identity, row, i); err != nil {
			return "", err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE snapshots SET row_count = ? WHERE id = ?`,
		rowCount, id,
	); err != nil {
		return "", fmt.Errorf("snapshot: updating metadata: %w", err)
	}

	// Prune everything older than the newest keepSnapshots. xid ids sort
	// by creation time, so string ordering is chronological.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM snapshots WHERE id NOT IN (
			SELECT id FROM snapshots ORDER BY id DESC LIMIT ?
		)`, keepSnapshots,
	); err != nil {
		return "", fmt.Errorf("snapshot: pruning old snapshots: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("snapshot: committing: %w", err)
	}
	return id, nil
}

// Load reads the newest snapshot. Returns (nil, nil) when the database
// holds none — a fresh deployment, not an error.
func (db *DB) Load(ctx context.Context) (*store.Snapshot, error) {
	var (
		id      string
		counter int64
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, counter FROM snapshots ORDER BY id DESC LIMIT 1`,
	).Scan(&id, &counter)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: reading metadata: %w", err)
	}

	snap := &store.Snapshot{Counter: uint64(counter)}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT tbl, v FROM snapshot_rows WHERE snapshot_id = ? ORDER BY tbl, ord`, id)
	if err != nil {
		return nil, fmt.Errorf("snapshot: reading rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tbl  string
			blob []byte
		)
		if err := rows.Scan(&tbl, &blob); err != nil {
			return nil, fmt.Errorf("snapshot: scanning row: %w", err)
		}
		if err := appendRow(snap, tbl, blob); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot: iterating rows: %w", err)
	}
	return snap, nil
}

func appendRow(snap *store.Snapshot, tbl string, blob []byte) error {
	unmarshal := func(v any) error {
		if err := json.Unmarshal(blob, v); err != nil {
			return fmt.Errorf("snapshot: unmarshaling %s row: %w", tbl, err)
		}
		return nil
	}

	switch tbl {
	case tblUsers:
		var u model.User
		if err := unmarshal(&u); err != nil {
			return err
		}
		snap.Users = append(snap.Users, u)
	case tblUsernames:
		var row store.UsernameRow
		if err := unmarshal(&row); err != nil {
			return err
		}
		snap.Usernames = append(snap.Usernames, row)
	case tblRepos:
		var v model.RepoView
		if err := unmarshal(&v); err != nil {
			return err
		}
		snap.Repos = append(snap.Repos, v)
	case tblCollaborators:
		var row store.MemberRow
		if err := unmarshal(&row); err != nil {
			return err
		}
		snap.Collaborators = append(snap.Collaborators, row)
	case tblStargazers:
		var row store.MemberRow
		if err := unmarshal(&row); err != nil {
			return err
		}
		snap.Stargazers = append(snap.Stargazers, row)
	case tblLinks:
		var row store.LinkRow
		if err := unmarshal(&row); err != nil {
			return err
		}
		snap.Links = append(snap.Links, row)
	default:
		return fmt.Errorf("snapshot: unknown table %q", tbl)
	}
	return nil
}

// Count returns how many snapshots the database currently holds.
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM snapshots`,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("snapshot: counting snapshots: %w", err)
	}
	return n, nil
}
