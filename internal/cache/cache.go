// Package cache persists generated example sentences in a small SQLite
// database so repeated runs and retried batches do not re-spend generation
// quota on words that already succeeded.
package cache

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS words (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	word TEXT UNIQUE
);

CREATE TABLE IF NOT EXISTS sentences (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	word_id INTEGER,
	sentence TEXT,
	FOREIGN KEY(word_id) REFERENCES words(id)
);
`

// Cache is a durable word → sentences store. The zero-setup contract: all
// methods are valid before any schema exists; storage is initialized on
// first use.
type Cache struct {
	path string

	mu sync.Mutex
	db *sql.DB
}

// Open prepares a cache backed by the SQLite file at path. No I/O happens
// until the first operation.
func Open(path string) *Cache {
	return &Cache{path: path}
}

// ensure opens the database and creates the schema once.
func (c *Cache) ensure() (*sql.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return c.db, nil
	}

	db, err := sql.Open("sqlite3", c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sentence cache %s: %w", c.path, err)
	}

	// SQLite rejects concurrent writers on separate connections; a single
	// connection serializes them instead.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sentence cache schema: %w", err)
	}

	c.db = db
	return db, nil
}

// Put appends sentences under word. The word row is created if absent and
// reused otherwise; existing sentences are never overwritten. Calling with
// no sentences is a no-op.
func (c *Cache) Put(word string, sentences []string) error {
	if len(sentences) == 0 {
		return nil
	}

	db, err := c.ensure()
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin cache transaction: %w", err)
	}
	defer tx.Rollback()

	// Single-statement upsert: concurrent Puts for the same word must not
	// race an existence check against an insert.
	if _, err := tx.Exec(
		`INSERT INTO words (word) VALUES (?) ON CONFLICT(word) DO NOTHING`, word,
	); err != nil {
		return fmt.Errorf("failed to upsert word %q: %w", word, err)
	}

	for _, sentence := range sentences {
		if _, err := tx.Exec(
			`INSERT INTO sentences (word_id, sentence)
			 SELECT id, ? FROM words WHERE word = ?`, sentence, word,
		); err != nil {
			return fmt.Errorf("failed to cache sentence for %q: %w", word, err)
		}
	}

	return tx.Commit()
}

// Get returns all sentences cached for word, oldest first, or an empty
// slice if the word is unknown.
func (c *Cache) Get(word string) ([]string, error) {
	db, err := c.ensure()
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(
		`SELECT sentences.sentence
		 FROM words
		 JOIN sentences ON words.id = sentences.word_id
		 WHERE words.word = ?
		 ORDER BY sentences.id`, word,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached sentences for %q: %w", word, err)
	}
	defer rows.Close()

	var sentences []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan cached sentence: %w", err)
		}
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences, rows.Err()
}

// Invalidate removes every sentence cached for word, so a bad generation is
// not served again. Unknown words are a no-op. The word row itself is
// removed as well, leaving no trace for future existence checks.
func (c *Cache) Invalidate(word string) error {
	db, err := c.ensure()
	if err != nil {
		return err
	}

	if _, err := db.Exec(
		`DELETE FROM sentences
		 WHERE word_id IN (SELECT id FROM words WHERE word = ?)`, word,
	); err != nil {
		return fmt.Errorf("failed to invalidate cache for %q: %w", word, err)
	}
	if _, err := db.Exec(`DELETE FROM words WHERE word = ?`, word); err != nil {
		return fmt.Errorf("failed to remove cached word %q: %w", word, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}
