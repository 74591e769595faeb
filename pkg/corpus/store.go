// Package corpus stores training documents in a SQLite database and serves
// them back as a single byte stream for ngram training.
package corpus

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

var (
	// ErrDocumentNotFound is returned when a named document does not exist.
	ErrDocumentNotFound = errors.New("corpus: document not found")
	// ErrNoDocuments is returned by Reader when the store holds no documents.
	ErrNoDocuments = errors.New("corpus: store is empty")
	// ErrEmptyName is returned by AddDocument for a blank document name.
	ErrEmptyName = errors.New("corpus: document name is required")
)

// Document is the metadata of a stored document.
type Document struct {
	ID      int       `json:"id"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	AddedAt time.Time `json:"added_at"`
}

// Stats summarises the store.
type Stats struct {
	Documents  int   `json:"documents"`
	TotalBytes int64 `json:"total_bytes"`
}

// SetupSchema creates the document table. It is idempotent and safe to call on
// an already-initialized database.
func SetupSchema(db *sql.DB) error {
	const schemaDocuments = `
CREATE TABLE IF NOT EXISTS corpus_documents (
    document_id INTEGER PRIMARY KEY,
    document_name TEXT NOT NULL UNIQUE,
    content BLOB NOT NULL,
    byte_size INTEGER NOT NULL,
    added_at INTEGER NOT NULL
);
`
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaDocuments); err != nil {
		return fmt.Errorf("could not create documents schema: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

// Store reads and writes corpus documents using prepared statements.
type Store struct {
	db              *sql.DB
	stmtUpsert      *sql.Stmt
	stmtGetDocument *sql.Stmt
	stmtGetContent  *sql.Stmt
	stmtListDocs    *sql.Stmt
	stmtAllContent  *sql.Stmt
	stmtRemove      *sql.Stmt
	stmtStats       *sql.Stmt
	logger          *slog.Logger
}

// NewStore prepares all statements against db, whose schema must already
// have been set up with SetupSchema.
func NewStore(db *sql.DB) (*Store, error) {
	stmtUpsert, err := db.Prepare(`INSERT INTO corpus_documents (document_name, content, byte_size, added_at) VALUES (?, ?, ?, ?)
ON CONFLICT(document_name) DO UPDATE SET content = excluded.content, byte_size = excluded.byte_size, added_at = excluded.added_at
RETURNING document_id;`)
	if err != nil {
		return nil, err
	}

	stmtGetDocument, err := db.Prepare(`SELECT document_id, byte_size, added_at FROM corpus_documents WHERE document_name = ?;`)
	if err != nil {
		return nil, err
	}

	stmtGetContent, err := db.Prepare(`SELECT content FROM corpus_documents WHERE document_name = ?;`)
	if err != nil {
		return nil, err
	}

	stmtListDocs, err := db.Prepare(`SELECT document_id, document_name, byte_size, added_at FROM corpus_documents ORDER BY document_id;`)
	if err != nil {
		return nil, err
	}

	stmtAllContent, err := db.Prepare(`SELECT content FROM corpus_documents ORDER BY document_id;`)
	if err != nil {
		return nil, err
	}

	stmtRemove, err := db.Prepare(`DELETE FROM corpus_documents WHERE document_name = ?;`)
	if err != nil {
		return nil, err
	}

	stmtStats, err := db.Prepare(`SELECT COUNT(*), coalesce(SUM(byte_size), 0) FROM corpus_documents;`)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:              db,
		stmtUpsert:      stmtUpsert,
		stmtGetDocument: stmtGetDocument,
		stmtGetContent:  stmtGetContent,
		stmtListDocs:    stmtListDocs,
		stmtAllContent:  stmtAllContent,
		stmtRemove:      stmtRemove,
		stmtStats:       stmtStats,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Close releases all prepared statements held by the Store.
func (s *Store) Close() {
	_ = s.stmtUpsert.Close()
	_ = s.stmtGetDocument.Close()
	_ = s.stmtGetContent.Close()
	_ = s.stmtListDocs.Close()
	_ = s.stmtAllContent.Close()
	_ = s.stmtRemove.Close()
	_ = s.stmtStats.Close()
}

// SetLogger sets the logger for the Store. By default, all logs are discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// AddDocument stores the full content of r under name. An existing document
// with the same name has its content replaced but keeps its position in the
// corpus order.
func (s *Store) AddDocument(ctx context.Context, name string, r io.Reader) (Document, error) {
	if name == "" {
		return Document{}, ErrEmptyName
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return Document{}, fmt.Errorf("could not read document '%s': %w", name, err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	doc := Document{Name: name, Size: int64(len(content)), AddedAt: now}
	if err = s.stmtUpsert.QueryRowContext(ctx, name, content, doc.Size, now.Unix()).Scan(&doc.ID); err != nil {
		return Document{}, fmt.Errorf("could not store document '%s': %w", name, err)
	}

	s.logger.InfoContext(ctx, "Document stored",
		slog.String("document_name", name),
		slog.Int("document_id", doc.ID),
		slog.Int64("bytes", doc.Size),
	)
	return doc, nil
}

// GetDocument returns the metadata of a single document.
func (s *Store) GetDocument(ctx context.Context, name string) (Document, error) {
	doc := Document{Name: name}
	var addedAt int64
	err := s.stmtGetDocument.QueryRowContext(ctx, name).Scan(&doc.ID, &doc.Size, &addedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("%w: '%s'", ErrDocumentNotFound, name)
	}
	if err != nil {
		return Document{}, err
	}
	doc.AddedAt = time.Unix(addedAt, 0).UTC()
	return doc, nil
}

// Documents lists every stored document in corpus order.
func (s *Store) Documents(ctx context.Context) ([]Document, error) {
	rows, err := s.stmtListDocs.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	docs := make([]Document, 0)
	for rows.Next() {
		var doc Document
		var addedAt int64
		if err = rows.Scan(&doc.ID, &doc.Name, &doc.Size, &addedAt); err != nil {
			return nil, err
		}
		doc.AddedAt = time.Unix(addedAt, 0).UTC()
		docs = append(docs, doc)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// RemoveDocument deletes a document by name.
func (s *Store) RemoveDocument(ctx context.Context, name string) error {
	res, err := s.stmtRemove.ExecContext(ctx, name)
	if err != nil {
		return fmt.Errorf("could not remove document '%s': %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: '%s'", ErrDocumentNotFound, name)
	}
	s.logger.InfoContext(ctx, "Document removed", slog.String("document_name", name))
	return nil
}

// Reader returns the training stream for the named documents, concatenated
// in the order given. With no names it covers the whole store in corpus
// order.
func (s *Store) Reader(ctx context.Context, names ...string) (io.Reader, error) {
	var parts []io.Reader
	if len(names) == 0 {
		rows, err := s.stmtAllContent.QueryContext(ctx)
		if err != nil {
			return nil, err
		}
		defer func(rows *sql.Rows) {
			_ = rows.Close()
		}(rows)
		for rows.Next() {
			var content []byte
			if err = rows.Scan(&content); err != nil {
				return nil, err
			}
			parts = append(parts, bytes.NewReader(content))
		}
		if err = rows.Err(); err != nil {
			return nil, err
		}
		if len(parts) == 0 {
			return nil, ErrNoDocuments
		}
	} else {
		for _, name := range names {
			var content []byte
			err := s.stmtGetContent.QueryRowContext(ctx, name).Scan(&content)
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: '%s'", ErrDocumentNotFound, name)
			}
			if err != nil {
				return nil, fmt.Errorf("could not load document '%s': %w", name, err)
			}
			parts = append(parts, bytes.NewReader(content))
		}
	}

	s.logger.DebugContext(ctx, "Corpus reader opened", slog.Int("documents", len(parts)))
	return io.MultiReader(parts...), nil
}

// Stats returns the number of documents and their combined size.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.stmtStats.QueryRowContext(ctx).Scan(&st.Documents, &st.TotalBytes); err != nil {
		return Stats{}, err
	}
	return st, nil
}
