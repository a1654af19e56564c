package document

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Insert(ctx context.Context, doc *Document) error {
	query := `INSERT INTO documents (doc_id, file_name, location_url, uploader_id, uploader_name, content_type, size_bytes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query,
		doc.ID, doc.FileName, doc.LocationURL, doc.UploaderID, doc.UploaderName,
		doc.ContentType, doc.SizeBytes, doc.Status)
	return err
}

func (r *PostgresRepo) List(ctx context.Context) ([]Document, error) {
	query := `SELECT doc_id, file_name, location_url, COALESCE(uploader_id, ''), COALESCE(uploader_name, ''),
		COALESCE(is_chunked, FALSE), COALESCE(chunk_count, 0), COALESCE(is_embedded, FALSE),
		COALESCE(embedding_model, ''), status, COALESCE(notes, ''), uploaded_at::text
		FROM documents ORDER BY uploaded_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.FileName, &d.LocationURL, &d.UploaderID, &d.UploaderName,
			&d.IsChunked, &d.ChunkCount, &d.IsEmbedded, &d.EmbeddingModel, &d.Status, &d.Notes, &d.UploadedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// FetchUnprocessed returns documents that still need chunking or
// embedding, oldest first. Failed documents stay failed until a new
// upload replaces them.
func (r *PostgresRepo) FetchUnprocessed(ctx context.Context, limit int) ([]Document, error) {
	query := `SELECT doc_id, file_name, location_url, COALESCE(uploader_id, ''), COALESCE(uploader_name, '')
		FROM documents
		WHERE NOT (COALESCE(is_chunked, FALSE) AND COALESCE(is_embedded, FALSE))
		AND status != 'failed'
		ORDER BY uploaded_at ASC
		LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.FileName, &d.LocationURL, &d.UploaderID, &d.UploaderName); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// MarkProcessed flips both pipeline flags in one statement and merges
// the given metadata into the existing jsonb instead of replacing it.
func (r *PostgresRepo) MarkProcessed(ctx context.Context, docID string, chunkCount int, embeddingModel string, metadata map[string]interface{}) error {
	meta, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	query := `UPDATE documents
		SET is_chunked = TRUE, chunk_count = $2, is_embedded = TRUE, embedding_model = $3,
		status = 'embedded', notes = NULL,
		metadata = COALESCE(metadata, '{}'::jsonb) || $4::jsonb
		WHERE doc_id = $1`
	res, err := r.db.ExecContext(ctx, query, docID, chunkCount, embeddingModel, string(meta))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *PostgresRepo) MarkFailed(ctx context.Context, docID, notes string) error {
	query := `UPDATE documents SET status = 'failed', notes = $2 WHERE doc_id = $1`
	_, err := r.db.ExecContext(ctx, query, docID, notes)
	return err
}
