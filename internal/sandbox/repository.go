// Package sandbox serves a local stand-in for the marketplace admin API.
// Routes are generated from the admin catalog, so the client and the sandbox
// share one endpoint table, and documents live in SQLite.
package sandbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/HerbHall/marketdesk/internal/store"
)

// Sentinel errors returned by the repository and the operation effects.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidPayload = errors.New("invalid payload")
	ErrConflict       = errors.New("conflict")
	ErrBadFilter      = errors.New("bad filter")
)

// Document is one stored resource in its JSON form.
type Document map[string]any

// ID returns the document identifier.
func (d Document) ID() string {
	id, _ := d["id"].(string)
	return id
}

// Status returns the document status field.
func (d Document) Status() string {
	s, _ := d["status"].(string)
	return s
}

// Filter holds the list query filters. "status" and "search" are special;
// every other key is an equality match on a top-level field.
type Filter map[string]string

// ListOptions controls pagination for list queries.
type ListOptions struct {
	Page   int  // 1-based page number.
	Limit  int  // Page size (default 10, max 1000).
	Newest bool // Latest insertions first.
}

// ListResult is one page of documents with the total match count.
type ListResult struct {
	Items []Document
	Total int
	Page  int
	Limit int
}

func normalizeListOptions(opts ListOptions) ListOptions {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	if opts.Limit > 1000 {
		opts.Limit = 1000
	}
	return opts
}

var fieldName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Repository stores documents by (kind, id).
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// SchemaComponent names the sandbox tables in the migration ledger.
const SchemaComponent = "sandbox"

// NewRepository migrates the sandbox schema and returns a repository.
func NewRepository(ctx context.Context, s *store.SQLiteStore) (*Repository, error) {
	if err := s.Migrate(ctx, SchemaComponent, migrations()); err != nil {
		return nil, err
	}
	return &Repository{db: s.DB(), now: time.Now}, nil
}

func migrations() []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "create documents table",
			Up: func(tx *sql.Tx) error {
				if _, err := tx.Exec(`
					CREATE TABLE documents (
						kind       TEXT NOT NULL,
						id         TEXT NOT NULL,
						status     TEXT NOT NULL DEFAULT '',
						body       TEXT NOT NULL,
						updated_at DATETIME NOT NULL,
						PRIMARY KEY (kind, id)
					)
				`); err != nil {
					return err
				}
				_, err := tx.Exec("CREATE INDEX idx_documents_kind_status ON documents(kind, status)")
				return err
			},
		},
		{
			Version:     2,
			Description: "create admins table",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					CREATE TABLE admins (
						id            TEXT PRIMARY KEY,
						email         TEXT NOT NULL UNIQUE,
						name          TEXT NOT NULL DEFAULT '',
						password_hash TEXT NOT NULL,
						created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)
				`)
				return err
			},
		},
	}
}

// List returns one page of documents of kind in insertion order.
func (r *Repository) List(ctx context.Context, kind string, filter Filter, opts ListOptions) (*ListResult, error) {
	opts = normalizeListOptions(opts)

	where := []string{"kind = ?"}
	args := []any{kind}
	for key, value := range filter {
		if value == "" {
			continue
		}
		switch key {
		case "status":
			where = append(where, "LOWER(status) = LOWER(?)")
			args = append(args, value)
		case "search":
			where = append(where, "LOWER(body) LIKE ?")
			args = append(args, "%"+strings.ToLower(value)+"%")
		default:
			if !fieldName.MatchString(key) {
				return nil, fmt.Errorf("filter %q: %w", key, ErrBadFilter)
			}
			where = append(where, "CAST(json_extract(body, ?) AS TEXT) = ?")
			args = append(args, "$."+key, value)
		}
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM documents WHERE "+clause, args...,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("count %s: %w", kind, err)
	}

	order := "rowid"
	if opts.Newest {
		order = "rowid DESC"
	}
	items, err := r.query(ctx, kind,
		"SELECT body FROM documents WHERE "+clause+" ORDER BY "+order+" LIMIT ? OFFSET ?",
		append(args, opts.Limit, (opts.Page-1)*opts.Limit)...,
	)
	if err != nil {
		return nil, err
	}
	return &ListResult{Items: items, Total: total, Page: opts.Page, Limit: opts.Limit}, nil
}

// All returns every document of kind in insertion order.
func (r *Repository) All(ctx context.Context, kind string) ([]Document, error) {
	return r.query(ctx, kind, "SELECT body FROM documents WHERE kind = ? ORDER BY rowid", kind)
}

func (r *Repository) query(ctx context.Context, kind, q string, args ...any) ([]Document, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()

	var items []Document
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		doc, err := decodeDocument(body)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		items = append(items, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	if items == nil {
		items = []Document{}
	}
	return items, nil
}

// Get returns one document.
func (r *Repository) Get(ctx context.Context, kind, id string) (Document, error) {
	var body string
	err := r.db.QueryRowContext(ctx,
		"SELECT body FROM documents WHERE kind = ? AND id = ?", kind, id,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %q: %w", kind, id, err)
	}
	return decodeDocument(body)
}

// Find returns the first document with id among kinds, and the kind it was
// found under.
func (r *Repository) Find(ctx context.Context, id string, kinds ...string) (Document, string, error) {
	for _, kind := range kinds {
		doc, err := r.Get(ctx, kind, id)
		if err == nil {
			return doc, kind, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, "", err
		}
	}
	return nil, "", fmt.Errorf("%q: %w", id, ErrNotFound)
}

// Put inserts or replaces a document. Insertion order is kept on replace.
func (r *Repository) Put(ctx context.Context, kind string, doc Document) error {
	id := doc.ID()
	if id == "" {
		return fmt.Errorf("put %s: missing id: %w", kind, ErrInvalidPayload)
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s %q: %w", kind, id, err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO documents (kind, id, status, body, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (kind, id) DO UPDATE SET
			status = excluded.status,
			body = excluded.body,
			updated_at = excluded.updated_at`,
		kind, id, doc.Status(), string(body), r.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("put %s %q: %w", kind, id, err)
	}
	return nil
}

// Count returns the number of documents of kind.
func (r *Repository) Count(ctx context.Context, kind string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM documents WHERE kind = ?", kind,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", kind, err)
	}
	return n, nil
}

func decodeDocument(body string) (Document, error) {
	var doc Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
