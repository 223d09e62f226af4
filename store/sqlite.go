package store

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/YuminosukeSato/learningmachine/pkg/errors"
	"github.com/YuminosukeSato/learningmachine/pkg/log"
)

// SQLiteStore は SQLite のファイルに保存する Store
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteStore は path のデータベースを使う SQLiteStore を返す。":memory:" も使える
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.NewValidationError("store.path", "sqlite path is required", s.path)
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return errors.NewIOError("open sqlite", s.path, err)
	}
	// :memory: は接続ごとに別のデータベースになる
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return errors.NewIOError("open sqlite", s.path, err)
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return errors.Wrap(err, "create snapshot table")
	}

	s.db = db
	logger().Debug("sqlite store ready", log.PathKey, s.path)
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, snap Snapshot) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO snapshots (id, kind, name, schema_version, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			name = excluded.name,
			schema_version = excluded.schema_version,
			payload = excluded.payload,
			created_at = excluded.created_at
	`, snap.ID, snap.Kind, snap.Name, snap.SchemaVersion, snap.Payload, snap.CreatedAt.UnixNano())
	return errors.Wrapf(err, "save snapshot %s", snap.ID)
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Snapshot, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return Snapshot{}, false, err
	}
	row := db.QueryRowContext(ctx, `
		SELECT id, kind, name, schema_version, payload, created_at
		FROM snapshots WHERE id = ?`, id)
	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, errors.Wrapf(err, "get snapshot %s", id)
	}
	return snap, true, nil
}

func (s *SQLiteStore) List(ctx context.Context, kind string) ([]Snapshot, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, kind, name, schema_version, payload, created_at
		FROM snapshots WHERE ? = '' OR kind = ?
		ORDER BY created_at, id`, kind, kind)
	if err != nil {
		return nil, errors.Wrap(err, "list snapshots")
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, errors.Wrap(err, "list snapshots")
		}
		out = append(out, snap)
	}
	return out, errors.Wrap(rows.Err(), "list snapshots")
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	return errors.Wrapf(err, "delete snapshot %s", id)
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.WithStack(ErrNotInitialized)
	}
	return s.db, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (Snapshot, error) {
	var (
		snap    Snapshot
		created int64
	)
	if err := row.Scan(&snap.ID, &snap.Kind, &snap.Name, &snap.SchemaVersion, &snap.Payload, &created); err != nil {
		return Snapshot{}, err
	}
	snap.CreatedAt = time.Unix(0, created).UTC()
	return snap, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			schema_version INTEGER NOT NULL,
			payload BLOB NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS snapshots_kind ON snapshots (kind, created_at);
	`)
	return err
}
