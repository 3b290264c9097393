package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"quiz-content-service/internal/domain"
	_ "modernc.org/sqlite"
)

// Store is the durable app.SnapshotStore, an embedded sqlite database holding
// one row per logical key across the app's two preference namespaces
// (quiz_app_local_db and quiz_app_prefs). Values are JSON blobs, matching the
// shapes the remote side serves.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS local_db (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS prefs (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

const (
	keyVersion       = "db_version"
	keySubjectsData  = "subjects_data"
	keyManifestCache = "update_info_cache"
	historyKeyPrefix = "quiz_history_"

	prefUserName    = "user_name"
	prefUserAvatar  = "user_avatar"
	prefInitialized = "database_initialized"
)

// Open opens (creating if needed) the store at path. Pass ":memory:" for an
// ephemeral database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	// The store has a single logical writer; one connection avoids SQLITE_BUSY
	// between concurrent readers and that writer.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Version(ctx context.Context) (string, error) {
	value, ok, err := s.get(ctx, "local_db", keyVersion)
	if err != nil || !ok {
		return "", err
	}
	return value, nil
}

func (s *Store) SetVersion(ctx context.Context, version string) error {
	return s.set(ctx, "local_db", keyVersion, version)
}

func (s *Store) SaveSnapshot(ctx context.Context, tree domain.SubjectTree) error {
	data, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.set(ctx, "local_db", keySubjectsData, string(data))
}

// ReplaceSnapshot writes snapshot and version in one transaction so readers
// never observe one without the other.
func (s *Store) ReplaceSnapshot(ctx context.Context, tree domain.SubjectTree, version string) error {
	data, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, upsert("local_db"), keySubjectsData, string(data)); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx, upsert("local_db"), keyVersion, version); err != nil {
		return fmt.Errorf("write version: %w", err)
	}
	return tx.Commit()
}

func (s *Store) SubjectCounts(ctx context.Context) (map[string]int, error) {
	tree, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return tree.Counts(), nil
}

func (s *Store) Questions(ctx context.Context, subject string) ([]domain.Question, error) {
	tree, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return tree.OrderedQuestions(subject), nil
}

func (s *Store) snapshot(ctx context.Context) (domain.SubjectTree, error) {
	raw, ok, err := s.get(ctx, "local_db", keySubjectsData)
	if err != nil || !ok {
		return nil, err
	}
	var tree domain.SubjectTree
	if err := json.Unmarshal([]byte(raw), &tree); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return tree, nil
}

// AppendResult prepends in a read-modify-write transaction so a crash can
// never leave a torn history list.
func (s *Store) AppendResult(ctx context.Context, user string, result domain.QuizResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin result append: %w", err)
	}
	defer tx.Rollback()

	key := historyKeyPrefix + user
	var raw string
	history := []domain.QuizResult{}
	err = tx.QueryRowContext(ctx, `SELECT value FROM local_db WHERE key = ?`, key).Scan(&raw)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return fmt.Errorf("read history: %w", err)
	default:
		if err := json.Unmarshal([]byte(raw), &history); err != nil {
			return fmt.Errorf("unmarshal history: %w", err)
		}
	}

	history = append([]domain.QuizResult{result}, history...)
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	if _, err := tx.ExecContext(ctx, upsert("local_db"), key, string(data)); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return tx.Commit()
}

func (s *Store) History(ctx context.Context, user string) ([]domain.QuizResult, error) {
	raw, ok, err := s.get(ctx, "local_db", historyKeyPrefix+user)
	if err != nil || !ok {
		return nil, err
	}
	var history []domain.QuizResult
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return nil, fmt.Errorf("unmarshal history: %w", err)
	}
	return history, nil
}

func (s *Store) CacheManifest(ctx context.Context, m domain.UpdateManifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return s.set(ctx, "local_db", keyManifestCache, string(data))
}

func (s *Store) CachedManifest(ctx context.Context) (*domain.UpdateManifest, error) {
	raw, ok, err := s.get(ctx, "local_db", keyManifestCache)
	if err != nil || !ok {
		return nil, err
	}
	var m domain.UpdateManifest
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return &m, nil
}

func (s *Store) Initialized(ctx context.Context) (bool, error) {
	value, ok, err := s.get(ctx, "prefs", prefInitialized)
	if err != nil {
		return false, err
	}
	return ok && value == "true", nil
}

func (s *Store) MarkInitialized(ctx context.Context) error {
	return s.set(ctx, "prefs", prefInitialized, "true")
}

func (s *Store) SaveProfile(ctx context.Context, p domain.UserProfile) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin profile save: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, upsert("prefs"), prefUserName, p.Name); err != nil {
		return fmt.Errorf("write user name: %w", err)
	}
	if _, err := tx.ExecContext(ctx, upsert("prefs"), prefUserAvatar, p.AvatarID); err != nil {
		return fmt.Errorf("write avatar: %w", err)
	}
	return tx.Commit()
}

func (s *Store) Profile(ctx context.Context) (*domain.UserProfile, error) {
	name, ok, err := s.get(ctx, "prefs", prefUserName)
	if err != nil || !ok {
		return nil, err
	}
	avatar, _, err := s.get(ctx, "prefs", prefUserAvatar)
	if err != nil {
		return nil, err
	}
	return &domain.UserProfile{Name: name, AvatarID: avatar}, nil
}

func (s *Store) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM local_db`); err != nil {
		return fmt.Errorf("clear local db: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM prefs`); err != nil {
		return fmt.Errorf("clear prefs: %w", err)
	}
	return tx.Commit()
}

func (s *Store) get(ctx context.Context, table, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM `+table+` WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s/%s: %w", table, key, err)
	}
	return value, true, nil
}

func (s *Store) set(ctx context.Context, table, key, value string) error {
	if _, err := s.db.ExecContext(ctx, upsert(table), key, value); err != nil {
		return fmt.Errorf("write %s/%s: %w", table, key, err)
	}
	return nil
}

func upsert(table string) string {
	return `INSERT INTO ` + table + ` (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`
}
