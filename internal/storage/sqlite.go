package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/yomu/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		file_path TEXT,
		content_type TEXT,
		file_size INTEGER DEFAULT 0,
		content TEXT NOT NULL,
		preview TEXT,
		chunk_count INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);

	CREATE TABLE IF NOT EXISTS question_history (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		question TEXT NOT NULL,
		answer TEXT,
		question_type TEXT NOT NULL,
		response_time_ms INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_history_document_id ON question_history(document_id, created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveDocument inserts a document, replacing any existing row with the same ID.
// CreatedAt is preserved across replacement.
func (s *SQLiteStorage) SaveDocument(ctx context.Context, doc *models.Document) error {
	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, filename, file_path, content_type, file_size, content, preview, chunk_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			file_path = excluded.file_path,
			content_type = excluded.content_type,
			file_size = excluded.file_size,
			content = excluded.content,
			preview = excluded.preview,
			chunk_count = excluded.chunk_count,
			updated_at = excluded.updated_at`,
		doc.ID, doc.Filename, doc.FilePath, doc.ContentType, doc.FileSize, doc.Content, doc.Preview,
		doc.ChunkCount, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save document %s: %w", doc.ID, err)
	}
	return nil
}

// GetDocument returns a document by ID, without its content.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	var filePath, contentType, preview sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, filename, file_path, content_type, file_size, preview, chunk_count, created_at, updated_at
		 FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.Filename, &filePath, &contentType, &doc.FileSize, &preview,
		&doc.ChunkCount, &doc.CreatedAt, &doc.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	doc.FilePath = filePath.String
	doc.ContentType = contentType.String
	doc.Preview = preview.String
	return &doc, nil
}

// GetDocumentContent returns the extracted text of a document.
func (s *SQLiteStorage) GetDocumentContent(ctx context.Context, id string) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx, `SELECT content FROM documents WHERE id = ?`, id).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return "", err
	}
	return content, nil
}

// ListDocuments returns documents newest first with offset and limit. Content is not loaded.
func (s *SQLiteStorage) ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, file_path, content_type, file_size, chunk_count, created_at, updated_at
		 FROM documents ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		var doc models.Document
		var filePath, contentType sql.NullString
		if err := rows.Scan(&doc.ID, &doc.Filename, &filePath, &contentType, &doc.FileSize,
			&doc.ChunkCount, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, err
		}
		doc.FilePath = filePath.String
		doc.ContentType = contentType.String
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document and its question history.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM question_history WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return tx.Commit()
}

// RecordQuestion appends an entry to the question history. ID and CreatedAt are
// assigned when empty.
func (s *SQLiteStorage) RecordQuestion(ctx context.Context, rec *models.QuestionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO question_history (id, document_id, question, answer, question_type, response_time_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.DocumentID, rec.Question, rec.Answer, string(rec.Type), rec.ResponseTimeMs, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record question: %w", err)
	}
	return nil
}

// ListQuestions returns the most recent history entries for a document, newest first.
func (s *SQLiteStorage) ListQuestions(ctx context.Context, docID string, limit int) ([]*models.QuestionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, question, answer, question_type, response_time_ms, created_at
		 FROM question_history WHERE document_id = ? ORDER BY created_at DESC LIMIT ?`,
		docID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*models.QuestionRecord
	for rows.Next() {
		var rec models.QuestionRecord
		var answer sql.NullString
		var qtype string
		if err := rows.Scan(&rec.ID, &rec.DocumentID, &rec.Question, &answer, &qtype,
			&rec.ResponseTimeMs, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Answer = answer.String
		rec.Type = models.QuestionType(qtype)
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

// CountDocuments returns the total number of documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// CountQuestions returns the total number of history entries.
func (s *SQLiteStorage) CountQuestions(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM question_history`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
