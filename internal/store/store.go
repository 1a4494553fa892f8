// Package store provides the durable key/value collaborator scoped per
// project root. Only small blobs live here; ctxsnap uses it for the manual
// pin selections.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schemaStatement = `
CREATE TABLE IF NOT EXISTS small_values (
	root_identity TEXT NOT NULL,
	value_key     TEXT NOT NULL,
	value_blob    TEXT NOT NULL,
	PRIMARY KEY (root_identity, value_key)
);`

// Store is a sqlite-backed implementation of the persist/load-small
// capability. Writes are serialized through a single connection.
type Store struct {
	database *sql.DB
}

// Open creates or opens the database at databasePath, creating parent
// directories as needed.
func Open(databasePath string) (*Store, error) {
	if mkdirError := os.MkdirAll(filepath.Dir(databasePath), 0o755); mkdirError != nil {
		return nil, fmt.Errorf("creating state directory: %w", mkdirError)
	}

	database, openError := sql.Open("sqlite", databasePath)
	if openError != nil {
		return nil, fmt.Errorf("opening state database: %w", openError)
	}
	database.SetMaxOpenConns(1)

	pragmaStatements := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=3000;",
	}
	for _, pragmaStatement := range pragmaStatements {
		if _, pragmaError := database.Exec(pragmaStatement); pragmaError != nil {
			return nil, fmt.Errorf("configuring state database: %w", pragmaError)
		}
	}
	if _, schemaError := database.Exec(schemaStatement); schemaError != nil {
		return nil, fmt.Errorf("initializing state schema: %w", schemaError)
	}

	return &Store{database: database}, nil
}

// Close releases the underlying database handle.
func (store *Store) Close() error {
	return store.database.Close()
}

// LoadSmall retrieves the blob stored for the root and key. The second return
// value reports whether a value was present.
func (store *Store) LoadSmall(rootIdentity, valueKey string) (string, bool, error) {
	row := store.database.QueryRow(
		`SELECT value_blob FROM small_values WHERE root_identity = ? AND value_key = ?`,
		rootIdentity, valueKey,
	)
	var storedValue string
	if scanError := row.Scan(&storedValue); scanError != nil {
		if scanError == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, scanError
	}
	return storedValue, true, nil
}

// PersistSmall stores the blob for the root and key, replacing any prior value.
func (store *Store) PersistSmall(rootIdentity, valueKey, value string) error {
	_, execError := store.database.Exec(`
		INSERT INTO small_values (root_identity, value_key, value_blob)
		VALUES (?, ?, ?)
		ON CONFLICT(root_identity, value_key) DO UPDATE SET value_blob = excluded.value_blob
	`, rootIdentity, valueKey, value)
	return execError
}

// Delete removes the blob stored for the root and key, if any.
func (store *Store) Delete(rootIdentity, valueKey string) error {
	_, execError := store.database.Exec(
		`DELETE FROM small_values WHERE root_identity = ? AND value_key = ?`,
		rootIdentity, valueKey,
	)
	return execError
}
