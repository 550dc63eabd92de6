package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/stateshift/internal/state"
)

// Load returns the document stored under key. The boolean is false when no
// document has been saved yet.
func (s *Store) Load(ctx context.Context, key string) (state.Document, bool, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE key = ?`, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return state.Document{}, false, nil
	}
	if err != nil {
		return state.Document{}, false, fmt.Errorf("load document %q: %w", key, err)
	}

	doc, err := state.Parse([]byte(body))
	if err != nil {
		return state.Document{}, false, fmt.Errorf("load document %q: %w", key, err)
	}
	return doc, true, nil
}

// Save stores the document bytes under key unchanged, replacing any previous
// body. Only the fingerprint column is derived from the canonical form.
func (s *Store) Save(ctx context.Context, key string, doc state.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save document %q: %w", key, err)
	}
	defer tx.Rollback()

	if err := saveTx(ctx, tx, key, doc); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save document %q: commit: %w", key, err)
	}
	return nil
}

// DocumentInfo summarizes a stored document without decoding it.
type DocumentInfo struct {
	Key           string `json:"key" yaml:"key"`
	SchemaVersion int    `json:"schemaVersion" yaml:"schemaVersion"`
	Fingerprint   string `json:"fingerprint" yaml:"fingerprint"`
}

// Info returns the summary row for key, or ErrNotFound.
func (s *Store) Info(ctx context.Context, key string) (DocumentInfo, error) {
	info := DocumentInfo{Key: key}
	err := s.db.QueryRowContext(ctx, `
		SELECT schema_version, fingerprint FROM documents WHERE key = ?
	`, key).Scan(&info.SchemaVersion, &info.Fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return DocumentInfo{}, fmt.Errorf("document %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return DocumentInfo{}, fmt.Errorf("document %q: %w", key, err)
	}
	return info, nil
}

func saveTx(ctx context.Context, tx *sql.Tx, key string, doc state.Document) error {
	version, err := doc.Version()
	if err != nil {
		return fmt.Errorf("save document %q: %w", key, err)
	}
	if doc.IsZero() {
		return fmt.Errorf("save document %q: %w: empty document", key, state.ErrMalformed)
	}
	fp, err := state.Fingerprint(doc)
	if err != nil {
		return fmt.Errorf("save document %q: %w", key, err)
	}
	seq, err := nextSeq(ctx, tx, "documents")
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (key, body, schema_version, fingerprint, seq)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			body = excluded.body,
			schema_version = excluded.schema_version,
			fingerprint = excluded.fingerprint,
			seq = excluded.seq
	`, key, doc.String(), version, fp, seq)
	if err != nil {
		return fmt.Errorf("save document %q: %w", key, err)
	}
	return nil
}

// Documents binds the store to one document key.
type Documents struct {
	store *Store
	key   string
}

// Documents returns a view of the store scoped to key.
func (s *Store) Documents(key string) *Documents {
	return &Documents{store: s, key: key}
}

// Key returns the bound document key.
func (d *Documents) Key() string {
	return d.key
}

// Load returns the bound document.
func (d *Documents) Load(ctx context.Context) (state.Document, bool, error) {
	return d.store.Load(ctx, d.key)
}

// Save replaces the bound document.
func (d *Documents) Save(ctx context.Context, doc state.Document) error {
	return d.store.Save(ctx, d.key, doc)
}
