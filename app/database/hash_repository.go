package database

import (
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
)

const tablePrefix = "rss_"

// TableName derives the storage identifier of a feed. Feed names may hold
// characters that are not valid in identifiers, so the name is digested.
func TableName(feedName string) string {
	sum := md5.Sum([]byte(feedName))
	return tablePrefix + hex.EncodeToString(sum[:])
}

func quoted(feedName string) string {
	return `"` + TableName(feedName) + `"`
}

// HashRepository keeps one append-only fingerprint table per feed.
type HashRepository struct {
	db *DB
}

func NewHashRepository(db *DB) *HashRepository {
	return &HashRepository{db: db}
}

func (r *HashRepository) Exists(feedName string) (bool, error) {
	var name string
	err := r.db.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name = ?
	`, TableName(feedName)).Scan(&name)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check table of feed %q: %w", feedName, err)
	}

	return true, nil
}

// Create creates the table of a feed and records it in the catalog.
// Creating an existing table is a no-op.
func (r *HashRepository) Create(feedName string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`CREATE TABLE IF NOT EXISTS ` + quoted(feedName) + ` (
		id INTEGER PRIMARY KEY,
		hash VARCHAR(32) UNIQUE
	)`)
	if err != nil {
		return fmt.Errorf("failed to create table of feed %q: %w", feedName, err)
	}

	_, err = tx.Exec(`
		INSERT OR IGNORE INTO hash_tables (table_name, feed_name)
		VALUES (?, ?)
	`, TableName(feedName), feedName)
	if err != nil {
		return fmt.Errorf("failed to register table of feed %q: %w", feedName, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit table of feed %q: %w", feedName, err)
	}

	slog.Debug("Added sqlite table", "feed", feedName, "table", TableName(feedName))
	return nil
}

// Drop removes the table of a feed together with its catalog row.
func (r *HashRepository) Drop(feedName string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DROP TABLE IF EXISTS ` + quoted(feedName)); err != nil {
		return fmt.Errorf("failed to drop table of feed %q: %w", feedName, err)
	}
	if _, err := tx.Exec(`DELETE FROM hash_tables WHERE table_name = ?`, TableName(feedName)); err != nil {
		return fmt.Errorf("failed to unregister table of feed %q: %w", feedName, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit drop of feed %q: %w", feedName, err)
	}

	slog.Debug("Dropped sqlite table", "feed", feedName, "table", TableName(feedName))
	return nil
}

func (r *HashRepository) Count(feedName string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM ` + quoted(feedName)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count hashes of feed %q: %w", feedName, err)
	}
	return count, nil
}

// InsertIfAbsent stores hash and reports whether a row was added.
// A hash that is already stored is not an error.
func (r *HashRepository) InsertIfAbsent(feedName, hash string) (bool, error) {
	result, err := r.db.Exec(`INSERT OR IGNORE INTO `+quoted(feedName)+` (hash) VALUES (?)`, hash)
	if err != nil {
		return false, fmt.Errorf("failed to save hash of feed %q: %w", feedName, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return affected > 0, nil
}

// ReadAll returns the stored hashes of a feed in insertion order.
func (r *HashRepository) ReadAll(feedName string) ([]string, error) {
	rows, err := r.db.Query(`SELECT hash FROM ` + quoted(feedName) + ` ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to read hashes of feed %q: %w", feedName, err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, fmt.Errorf("failed to scan hash: %w", err)
		}
		hashes = append(hashes, hash)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate hashes: %w", err)
	}

	return hashes, nil
}

// EvictOldest deletes the oldest rows of a feed so that at most keep rows
// remain, and returns the number of deleted rows.
func (r *HashRepository) EvictOldest(feedName string, keep int) (int64, error) {
	count, err := r.Count(feedName)
	if err != nil {
		return 0, err
	}
	if count <= keep {
		return 0, nil
	}

	table := quoted(feedName)
	result, err := r.db.Exec(`
		DELETE FROM `+table+` WHERE id IN (
			SELECT id FROM `+table+` ORDER BY id ASC LIMIT ?
		)
	`, count-keep)
	if err != nil {
		return 0, fmt.Errorf("failed to evict hashes of feed %q: %w", feedName, err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	slog.Debug("Removed rows in table", "feed", feedName, "table", TableName(feedName), "rows", removed)
	return removed, nil
}

// Tables lists the catalog of fingerprint tables.
func (r *HashRepository) Tables() ([]HashTable, error) {
	rows, err := r.db.Query(`
		SELECT table_name, feed_name, created_at
		FROM hash_tables
		ORDER BY feed_name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list hash tables: %w", err)
	}
	defer rows.Close()

	var tables []HashTable
	for rows.Next() {
		var table HashTable
		if err := rows.Scan(&table.TableName, &table.FeedName, &table.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan hash table: %w", err)
		}
		tables = append(tables, table)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate hash tables: %w", err)
	}

	return tables, nil
}
