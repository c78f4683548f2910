// Package memory persists what the assistant learns about contacts and
// the user across sessions.
//
// Notes are append-only with dedupe and a hard cap; topics are a sorted
// set. All write paths are safe to call from the evaluation worker
// while the CLI reads concurrently.
package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS contacts (
    name               TEXT PRIMARY KEY,
    notes              TEXT NOT NULL DEFAULT '[]',
    topics             TEXT NOT NULL DEFAULT '[]',
    interaction_count  INTEGER NOT NULL DEFAULT 0,
    first_seen         INTEGER NOT NULL,
    last_seen          INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS user_profile (
    id          INTEGER PRIMARY KEY CHECK (id = 1),
    notes       TEXT NOT NULL DEFAULT '[]',
    updated_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_contacts_last_seen ON contacts(last_seen);
`

// maxNotes bounds per-profile note growth; oldest notes fall off.
const maxNotes = 500

// Profile is everything remembered about one contact.
type Profile struct {
	Name             string
	Notes            []string
	Topics           []string
	InteractionCount int
	FirstSeen        time.Time
	LastSeen         time.Time
}

// Store is the SQLite-backed memory.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create memory directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open memory database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply memory schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping reports whether the store still answers queries.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ApplyUpdates persists one evaluation's learned facts: contact notes
// and topics, then user notes. Empty slices are no-ops, so a model
// reply with nothing to remember costs nothing.
func (s *Store) ApplyUpdates(contact string, contactNotes, contactTopics, userNotes []string) error {
	if len(contactNotes) > 0 || len(contactTopics) > 0 {
		if err := s.UpdateContact(contact, contactNotes, contactTopics); err != nil {
			return err
		}
	}
	if len(userNotes) > 0 {
		if err := s.UpdateUser(userNotes); err != nil {
			return err
		}
	}
	return nil
}

// Forget removes everything remembered about a contact. Returns false
// if the contact was never seen.
func (s *Store) Forget(name string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM contacts WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("forget contact: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Contact returns the profile for name, or an empty profile if the
// contact has never been seen.
func (s *Store) Contact(name string) (*Profile, error) {
	row := s.db.QueryRow(`
		SELECT notes, topics, interaction_count, first_seen, last_seen
		FROM contacts WHERE name = ?`, name)

	var notesJSON, topicsJSON string
	var count int
	var first, last int64
	err := row.Scan(&notesJSON, &topicsJSON, &count, &first, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return &Profile{Name: name}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load contact %q: %w", name, err)
	}

	p := &Profile{
		Name:             name,
		InteractionCount: count,
		FirstSeen:        time.Unix(first, 0),
		LastSeen:         time.Unix(last, 0),
	}
	if err := json.Unmarshal([]byte(notesJSON), &p.Notes); err != nil {
		return nil, fmt.Errorf("decode notes for %q: %w", name, err)
	}
	if err := json.Unmarshal([]byte(topicsJSON), &p.Topics); err != nil {
		return nil, fmt.Errorf("decode topics for %q: %w", name, err)
	}
	return p, nil
}

// Contacts lists all known profiles, most recently seen first.
func (s *Store) Contacts() ([]*Profile, error) {
	rows, err := s.db.Query(`SELECT name FROM contacts ORDER BY last_seen DESC`)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	profiles := make([]*Profile, 0, len(names))
	for _, name := range names {
		p, err := s.Contact(name)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// RecordInteraction bumps the interaction counter and freshness of a
// contact, creating the row on first sight.
func (s *Store) RecordInteraction(name string) error {
	now := time.Now().Unix()
	_, err := s.db.Exec(`
		INSERT INTO contacts (name, first_seen, last_seen, interaction_count)
		VALUES (?, ?, ?, 1)
		ON CONFLICT(name) DO UPDATE SET
			interaction_count = interaction_count + 1,
			last_seen = excluded.last_seen`,
		name, now, now)
	if err != nil {
		return fmt.Errorf("record interaction with %q: %w", name, err)
	}
	return nil
}

// UpdateContact appends notes and merges topics for a contact inside
// one transaction.
func (s *Store) UpdateContact(name string, notes, topics []string) error {
	if len(notes) == 0 && len(topics) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	if _, err := tx.Exec(`
		INSERT INTO contacts (name, first_seen, last_seen) VALUES (?, ?, ?)
		ON CONFLICT(name) DO NOTHING`, name, now, now); err != nil {
		return fmt.Errorf("ensure contact %q: %w", name, err)
	}

	var notesJSON, topicsJSON string
	if err := tx.QueryRow(`SELECT notes, topics FROM contacts WHERE name = ?`, name).
		Scan(&notesJSON, &topicsJSON); err != nil {
		return fmt.Errorf("load contact %q: %w", name, err)
	}

	mergedNotes, err := appendNotes(notesJSON, notes)
	if err != nil {
		return err
	}
	mergedTopics, err := mergeTopics(topicsJSON, topics)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`
		UPDATE contacts SET notes = ?, topics = ?, last_seen = ? WHERE name = ?`,
		mergedNotes, mergedTopics, now, name); err != nil {
		return fmt.Errorf("update contact %q: %w", name, err)
	}
	return tx.Commit()
}

// UpdateUser appends notes about the user themselves.
func (s *Store) UpdateUser(notes []string) error {
	if len(notes) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	if _, err := tx.Exec(`
		INSERT INTO user_profile (id, updated_at) VALUES (1, ?)
		ON CONFLICT(id) DO NOTHING`, now); err != nil {
		return fmt.Errorf("ensure user profile: %w", err)
	}

	var notesJSON string
	if err := tx.QueryRow(`SELECT notes FROM user_profile WHERE id = 1`).Scan(&notesJSON); err != nil {
		return fmt.Errorf("load user profile: %w", err)
	}

	merged, err := appendNotes(notesJSON, notes)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE user_profile SET notes = ?, updated_at = ? WHERE id = 1`,
		merged, now); err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}
	return tx.Commit()
}

// UserNotes returns what is remembered about the user.
func (s *Store) UserNotes() ([]string, error) {
	var notesJSON string
	err := s.db.QueryRow(`SELECT notes FROM user_profile WHERE id = 1`).Scan(&notesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user profile: %w", err)
	}

	var notes []string
	if err := json.Unmarshal([]byte(notesJSON), &notes); err != nil {
		return nil, fmt.Errorf("decode user notes: %w", err)
	}
	return notes, nil
}

// ContextFor renders the profile hint handed to the evaluation prompt.
// Unknown contacts yield an empty hint; callers treat that as normal.
func (s *Store) ContextFor(name string) (string, error) {
	p, err := s.Contact(name)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if p.InteractionCount > 0 {
		fmt.Fprintf(&b, "聊过 %d 次。\n", p.InteractionCount)
	}
	if len(p.Topics) > 0 {
		fmt.Fprintf(&b, "常聊话题: %s\n", strings.Join(p.Topics, "、"))
	}
	if len(p.Notes) > 0 {
		// Most recent notes carry the freshest context.
		notes := p.Notes
		if len(notes) > 10 {
			notes = notes[len(notes)-10:]
		}
		b.WriteString("记下的事:\n")
		for _, n := range notes {
			fmt.Fprintf(&b, "- %s\n", n)
		}
	}

	userNotes, err := s.UserNotes()
	if err != nil {
		return "", err
	}
	if len(userNotes) > 0 {
		if len(userNotes) > 5 {
			userNotes = userNotes[len(userNotes)-5:]
		}
		b.WriteString("关于用户:\n")
		for _, n := range userNotes {
			fmt.Fprintf(&b, "- %s\n", n)
		}
	}
	return b.String(), nil
}

// appendNotes adds new notes to a JSON array, skipping duplicates and
// trimming to the cap from the front.
func appendNotes(existingJSON string, add []string) (string, error) {
	var notes []string
	if err := json.Unmarshal([]byte(existingJSON), &notes); err != nil {
		return "", fmt.Errorf("decode notes: %w", err)
	}

	seen := make(map[string]struct{}, len(notes))
	for _, n := range notes {
		seen[n] = struct{}{}
	}
	for _, n := range add {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		notes = append(notes, n)
	}

	if len(notes) > maxNotes {
		notes = notes[len(notes)-maxNotes:]
	}

	out, err := json.Marshal(notes)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// mergeTopics unions topics into a sorted JSON array.
func mergeTopics(existingJSON string, add []string) (string, error) {
	var topics []string
	if err := json.Unmarshal([]byte(existingJSON), &topics); err != nil {
		return "", fmt.Errorf("decode topics: %w", err)
	}

	set := make(map[string]struct{}, len(topics)+len(add))
	for _, t := range topics {
		set[t] = struct{}{}
	}
	for _, t := range add {
		t = strings.TrimSpace(t)
		if t != "" {
			set[t] = struct{}{}
		}
	}

	merged := make([]string, 0, len(set))
	for t := range set {
		merged = append(merged, t)
	}
	sort.Strings(merged)

	out, err := json.Marshal(merged)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
