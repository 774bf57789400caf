package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"newslens/internal/errs"
	"newslens/internal/feed"
	"newslens/internal/pipeline"
)

// Analysis is a stored synthesis with its run metadata.
type Analysis struct {
	Identifier string
	Topic      string
	Synthesis  string
	Sources    []string
	ItemCount  int
	SessionID  string
	CreatedAt  string
	Items      []feed.Item
}

// Summary is one row of the history listing.
type Summary struct {
	Identifier string
	Topic      string
	ItemCount  int
	CreatedAt  string
}

// Save persists a completed run and returns its identifier.
func (db *DB) Save(items []feed.Item, synthesis string, meta pipeline.Metadata) (string, error) {
	identifier := makeIdentifier(meta.GeneratedAt, meta.Topic)

	sourcesJSON, err := json.Marshal(meta.Sources)
	if err != nil {
		return "", &errs.StorageError{Op: "save", Err: err}
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return "", &errs.StorageError{Op: "save", Err: err}
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO analyses (identifier, topic, synthesis, sources, item_count, session_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		identifier, meta.Topic, synthesis, string(sourcesJSON),
		len(items), meta.SessionID, meta.GeneratedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", &errs.StorageError{Op: "save", Err: err}
	}

	for _, item := range items {
		authors, _ := json.Marshal(item.Authors)
		tags, _ := json.Marshal(item.Tags)
		_, err = tx.Exec(
			`INSERT INTO items (analysis_id, title, link, summary, published, source, source_name, authors, tags)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			identifier, item.Title, item.Link, item.Summary, item.Published,
			item.Source, item.SourceName, string(authors), string(tags),
		)
		if err != nil {
			return "", &errs.StorageError{Op: "save", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", &errs.StorageError{Op: "save", Err: err}
	}
	return identifier, nil
}

// Load returns the stored analysis for an identifier, or nil when absent.
func (db *DB) Load(identifier string) (*Analysis, error) {
	row := db.conn.QueryRow(
		`SELECT identifier, topic, synthesis, sources, item_count, session_id, created_at
		FROM analyses WHERE identifier = ?`, identifier,
	)

	var a Analysis
	var sourcesJSON string
	if err := row.Scan(&a.Identifier, &a.Topic, &a.Synthesis, &sourcesJSON,
		&a.ItemCount, &a.SessionID, &a.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, &errs.StorageError{Op: "load", Err: err}
	}
	if sourcesJSON != "" {
		if err := json.Unmarshal([]byte(sourcesJSON), &a.Sources); err != nil {
			return nil, &errs.StorageError{Op: "load", Err: err}
		}
	}

	rows, err := db.conn.Query(
		`SELECT title, link, summary, published, source, source_name, authors, tags
		FROM items WHERE analysis_id = ? ORDER BY id`, identifier,
	)
	if err != nil {
		return nil, &errs.StorageError{Op: "load", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var item feed.Item
		var authors, tags string
		if err := rows.Scan(&item.Title, &item.Link, &item.Summary, &item.Published,
			&item.Source, &item.SourceName, &authors, &tags); err != nil {
			return nil, &errs.StorageError{Op: "load", Err: err}
		}
		json.Unmarshal([]byte(authors), &item.Authors)
		json.Unmarshal([]byte(tags), &item.Tags)
		a.Items = append(a.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, &errs.StorageError{Op: "load", Err: err}
	}
	return &a, nil
}

// ListAll returns summaries of every stored analysis, newest first.
func (db *DB) ListAll() ([]Summary, error) {
	rows, err := db.conn.Query(
		`SELECT identifier, topic, item_count, created_at
		FROM analyses ORDER BY created_at DESC, identifier DESC`,
	)
	if err != nil {
		return nil, &errs.StorageError{Op: "list", Err: err}
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.Identifier, &s.Topic, &s.ItemCount, &s.CreatedAt); err != nil {
			return nil, &errs.StorageError{Op: "list", Err: err}
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// makeIdentifier builds "YYYYMMDD_HHMMSS_<topicslug>". An empty topic
// gets the slug "general" so identifiers stay uniformly shaped.
func makeIdentifier(t time.Time, topic string) string {
	if t.IsZero() {
		t = time.Now()
	}
	return fmt.Sprintf("%s_%s", t.Format("20060102_150405"), slugify(topic))
}

func slugify(topic string) string {
	topic = strings.TrimSpace(strings.ToLower(topic))
	if topic == "" {
		return "general"
	}
	var b strings.Builder
	for _, r := range topic {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	slug := strings.Trim(b.String(), "_")
	if len(slug) > 30 {
		slug = slug[:30]
	}
	if slug == "" {
		return "general"
	}
	return slug
}
