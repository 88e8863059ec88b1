// Package filecache persists extracted FileExtractions keyed by
// (relative_path, content_hash, schema_version) so a second run over an
// unchanged file skips re-parsing it entirely (spec.md §4.9). The store is
// a single SQLite file; all writes go through one *Cache value per process,
// matching spec §5's single-writer discipline.
package filecache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/excflow/excflow/internal/model"
)

// SchemaVersion changes whenever FileExtraction's shape changes in a way
// that would make an old cached row unsafe to reuse — bumping it
// invalidates every existing entry without needing a migration.
const SchemaVersion = 1

// Cache wraps a single SQLite connection. Reads may happen from any
// goroutine; Put calls must be serialized by the caller (internal/extract's
// single coordinator goroutine, per spec §5).
type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database at path.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open cache db %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // single-writer discipline; SQLite serializes writes anyway

	c := &Cache{db: db}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}
	return c, nil
}

func (c *Cache) initSchema() error {
	_, err := c.db.Exec(`
CREATE TABLE IF NOT EXISTS extractions (
	relative_path  TEXT NOT NULL,
	content_hash   TEXT NOT NULL,
	schema_version INTEGER NOT NULL,
	payload        BLOB NOT NULL,
	PRIMARY KEY (relative_path, schema_version)
);
`)
	return err
}

// Close closes the underlying connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

// ContentHash returns the cache key's content component for source.
func ContentHash(source []byte) string {
	sum := sha256.Sum256(source)
	return hex.EncodeToString(sum[:])
}

// Get returns the cached FileExtraction for relativePath if one exists
// whose stored content hash matches contentHash and whose schema version
// matches SchemaVersion. ok is false on any miss — stale hash, stale
// schema, or no row at all.
func (c *Cache) Get(relativePath, contentHash string) (extraction model.FileExtraction, ok bool, err error) {
	var storedHash string
	var payload []byte
	row := c.db.QueryRow(
		`SELECT content_hash, payload FROM extractions WHERE relative_path = ? AND schema_version = ?`,
		relativePath, SchemaVersion,
	)
	if scanErr := row.Scan(&storedHash, &payload); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return model.FileExtraction{}, false, nil
		}
		return model.FileExtraction{}, false, fmt.Errorf("query cache for %s: %w", relativePath, scanErr)
	}
	if storedHash != contentHash {
		return model.FileExtraction{}, false, nil
	}
	if unmarshalErr := msgpack.Unmarshal(payload, &extraction); unmarshalErr != nil {
		return model.FileExtraction{}, false, fmt.Errorf("decode cached extraction for %s: %w", relativePath, unmarshalErr)
	}
	return extraction, true, nil
}

// Put stores (or overwrites) the extraction for relativePath under
// contentHash and the current SchemaVersion. Callers must serialize Put
// calls (spec §5's single-writer discipline) — Cache itself doesn't lock,
// since the coordinator goroutine already guarantees exclusivity.
func (c *Cache) Put(relativePath, contentHash string, extraction model.FileExtraction) error {
	payload, err := msgpack.Marshal(extraction)
	if err != nil {
		return fmt.Errorf("encode extraction for %s: %w", relativePath, err)
	}
	_, err = c.db.Exec(
		`INSERT INTO extractions (relative_path, content_hash, schema_version, payload)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(relative_path, schema_version) DO UPDATE SET content_hash = excluded.content_hash, payload = excluded.payload`,
		relativePath, contentHash, SchemaVersion, payload,
	)
	if err != nil {
		return fmt.Errorf("write cache entry for %s: %w", relativePath, err)
	}
	return nil
}
