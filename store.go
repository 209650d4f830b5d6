package gameground

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SnapshotStore is a CacheBackend that keeps cache entries in SQLite so a
// restarted process can serve the last known listing while it revalidates.
// It holds copies of upstream responses only.
type SnapshotStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSnapshotStore opens (or creates) the SQLite database at path, ensures
// the data directory exists, and creates the snapshot table.
func NewSnapshotStore(path string) (*SnapshotStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets readers proceed during a background refresh write.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &SnapshotStore{db: db, now: time.Now}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

func (s *SnapshotStore) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS snapshots (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL,
    stored_at INTEGER NOT NULL,
    fresh_for INTEGER NOT NULL,
    stale_grace INTEGER NOT NULL
);
`)
	return err
}

// Load returns the snapshot for key. Rows past their grace window are
// reported as misses.
func (s *SnapshotStore) Load(ctx context.Context, key string) (CacheEntry, bool, error) {
	var (
		value                        []byte
		storedAt, freshFor, staleFor int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT value, stored_at, fresh_for, stale_grace FROM snapshots WHERE key = ?`, key,
	).Scan(&value, &storedAt, &freshFor, &staleFor)
	if errors.Is(err, sql.ErrNoRows) {
		return CacheEntry{}, false, nil
	}
	if err != nil {
		return CacheEntry{}, false, err
	}
	e := CacheEntry{
		Value:    value,
		StoredAt: time.UnixMilli(storedAt),
		Policy: CachePolicy{
			FreshFor:   time.Duration(freshFor) * time.Millisecond,
			StaleGrace: time.Duration(staleFor) * time.Millisecond,
		},
	}
	if !e.Servable(s.now()) {
		return CacheEntry{}, false, nil
	}
	return e, true, nil
}

// Save upserts the snapshot for key.
func (s *SnapshotStore) Save(ctx context.Context, key string, e CacheEntry) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO snapshots(key, value, stored_at, fresh_for, stale_grace)
VALUES(?, ?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
    value=excluded.value,
    stored_at=excluded.stored_at,
    fresh_for=excluded.fresh_for,
    stale_grace=excluded.stale_grace;
`, key, []byte(e.Value), e.StoredAt.UnixMilli(), e.Policy.FreshFor.Milliseconds(), e.Policy.StaleGrace.Milliseconds())
	return err
}

// Prune deletes snapshots whose grace window has passed and returns how many
// rows were removed.
func (s *SnapshotStore) Prune(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE stored_at + fresh_for + stale_grace <= ?`,
		s.now().UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
