package repository

import (
	"database/sql"

	"premiere-night/internal/timeutil"
)

// KVRepository is a durable string key-value store backed by SQLite.
// It is the persistence mirror for the watchlist state container.
type KVRepository struct {
	db *sql.DB
}

// NewKVRepository creates a new KVRepository.
func NewKVRepository(sqliteDB *SQLiteDB) *KVRepository {
	return &KVRepository{db: sqliteDB.db}
}

// Get returns the stored value for a key. The second return value reports
// whether the key was present; an absent key is not an error.
func (r *KVRepository) Get(key string) (string, bool, error) {
	var value string
	err := r.db.QueryRow(`
		SELECT value
		FROM kv_store
		WHERE key = ?
	`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set writes the value for a key, overwriting any previous value.
func (r *KVRepository) Set(key, value string) error {
	now := timeutil.Now().Format("2006-01-02 15:04:05")
	_, err := r.db.Exec(`
		INSERT INTO kv_store (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, now)
	return err
}

// Delete removes a key. Deleting an absent key is a no-op.
func (r *KVRepository) Delete(key string) error {
	_, err := r.db.Exec(`DELETE FROM kv_store WHERE key = ?`, key)
	return err
}
