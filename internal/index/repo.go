package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const checksumKey = "journal_checksum"

// EntryRow is one journal entry as stored in the index.
// Seq is the entry's 1-based position in the journal file.
type EntryRow struct {
	Seq   int
	Time  time.Time
	Title string
	Body  string
	Tags  []string
}

// SearchResult represents one search hit.
type SearchResult struct {
	Seq     int       `json:"seq"`
	Time    time.Time `json:"time"`
	Title   string    `json:"title"`
	Snippet string    `json:"snippet"`
}

// TagCount is a tag and the number of entries carrying it.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Replace swaps the whole index content for rows and records checksum as
// the journal state it reflects. Runs in one transaction.
func (db *DB) Replace(rows []EntryRow, checksum string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	for _, stmt := range []string{`DELETE FROM entry_tags`, `DELETE FROM entries`} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("index: clear: %w", err)
		}
	}
	if err := ftsClear(tx); err != nil {
		return err
	}

	insEntry, err := tx.Prepare(`INSERT INTO entries (seq, written_at, title, body, tags) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare entry insert: %w", err)
	}
	defer insEntry.Close()
	insTag, err := tx.Prepare(`INSERT OR IGNORE INTO entry_tags (seq, tag) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare tag insert: %w", err)
	}
	defer insTag.Close()

	for _, r := range rows {
		tagsJSON, _ := json.Marshal(nonNil(r.Tags))
		if _, err := insEntry.Exec(r.Seq, formatTime(r.Time), r.Title, r.Body, string(tagsJSON)); err != nil {
			return fmt.Errorf("index: insert entry %d: %w", r.Seq, err)
		}
		for _, tag := range r.Tags {
			if _, err := insTag.Exec(r.Seq, tag); err != nil {
				return fmt.Errorf("index: insert tag: %w", err)
			}
		}
		if err := ftsInsert(tx, r); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(`
		INSERT INTO sync_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, checksumKey, checksum); err != nil {
		return fmt.Errorf("index: store checksum: %w", err)
	}

	return tx.Commit()
}

// Checksum returns the journal checksum the index was last built from,
// or an empty string before the first sync.
func (db *DB) Checksum() (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT value FROM sync_state WHERE key = ?`, checksumKey).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: checksum: %w", err)
	}
	return cs, nil
}

// Count returns the number of indexed entries.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}

// Tags returns every tag with its entry count, most used first.
func (db *DB) Tags() ([]TagCount, error) {
	rows, err := db.conn.Query(`
		SELECT tag, count(*) AS n
		FROM entry_tags
		GROUP BY tag
		ORDER BY n DESC, tag ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("index: tags: %w", err)
	}
	defer rows.Close()

	out := []TagCount{}
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339), Valid: true}
}

func parseTime(ns sql.NullString) time.Time {
	if !ns.Valid {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339, ns.String)
	return t
}

func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	out := []SearchResult{}
	for rows.Next() {
		var (
			r  SearchResult
			ts sql.NullString
		)
		if err := rows.Scan(&r.Seq, &ts, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		r.Time = parseTime(ts)
		out = append(out, r)
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
