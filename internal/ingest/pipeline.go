package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"docrag/backend/features/document"
	"docrag/backend/internal/text"
	"docrag/backend/internal/vector"
)

var (
	ErrEmptyDocument          = errors.New("document produced no extractable text")
	ErrEmptyChunkSet          = errors.New("chunking produced no chunks")
	ErrEmbeddingCountMismatch = errors.New("embedding count does not match chunk count")
)

type Registry interface {
	FetchUnprocessed(ctx context.Context, limit int) ([]document.Document, error)
	MarkProcessed(ctx context.Context, docID string, chunkCount int, embeddingModel string, metadata map[string]interface{}) error
	MarkFailed(ctx context.Context, docID, notes string) error
}

type BlobStore interface {
	Get(docID string) ([]byte, error)
}

type Extractor interface {
	Extract(data []byte) (string, error)
}

type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

type Index interface {
	DeleteByDocument(ctx context.Context, docID string) error
	Upsert(ctx context.Context, records []vector.Record) error
}

// Failure records one document that could not be ingested. The rest of
// the batch is unaffected.
type Failure struct {
	DocID  string `json:"doc_id"`
	Reason string `json:"reason"`
}

type Report struct {
	Processed []string  `json:"processed"`
	Failures  []Failure `json:"failures"`
}

type Pipeline struct {
	registry  Registry
	blobs     BlobStore
	extractor Extractor
	embedder  Embedder
	index     Index
	chunkOpts text.ChunkOptions
	batchSize int
}

func NewPipeline(registry Registry, blobs BlobStore, extractor Extractor, embedder Embedder, index Index, chunkOpts text.ChunkOptions, batchSize int) *Pipeline {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Pipeline{
		registry:  registry,
		blobs:     blobs,
		extractor: extractor,
		embedder:  embedder,
		index:     index,
		chunkOpts: chunkOpts,
		batchSize: batchSize,
	}
}

// ProcessPending drains one batch of unprocessed documents, oldest
// first. A failing document is marked failed and skipped; it never
// stops the batch. Fetching the backlog itself failing is the only
// fatal case.
func (p *Pipeline) ProcessPending(ctx context.Context) (*Report, error) {
	return p.ProcessN(ctx, p.batchSize)
}

// ProcessN is ProcessPending with an explicit batch size; sizes below 1
// fall back to the configured default.
func (p *Pipeline) ProcessN(ctx context.Context, batchSize int) (*Report, error) {
	if batchSize < 1 {
		batchSize = p.batchSize
	}
	docs, err := p.registry.FetchUnprocessed(ctx, batchSize)
	if err != nil {
		return nil, fmt.Errorf("fetch unprocessed: %w", err)
	}

	report := &Report{Processed: []string{}, Failures: []Failure{}}
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := p.processOne(ctx, doc); err != nil {
			slog.Error("ingestion failed", "doc_id", doc.ID, "file_name", doc.FileName, "error", err)
			report.Failures = append(report.Failures, Failure{DocID: doc.ID, Reason: err.Error()})
			if markErr := p.registry.MarkFailed(ctx, doc.ID, err.Error()); markErr != nil {
				slog.Error("failed to record ingestion failure", "doc_id", doc.ID, "error", markErr)
			}
			continue
		}
		report.Processed = append(report.Processed, doc.ID)
	}
	return report, nil
}

func (p *Pipeline) processOne(ctx context.Context, doc document.Document) error {
	data, err := p.blobs.Get(doc.ID)
	if err != nil {
		return fmt.Errorf("load blob: %w", err)
	}

	raw, err := p.extractor.Extract(data)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return ErrEmptyDocument
	}

	chunks := text.ChunkDocument(raw, doc.ID, p.chunkOpts)
	if len(chunks) == 0 {
		return ErrEmptyChunkSet
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embeddings, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("%w: %d embeddings for %d chunks", ErrEmbeddingCountMismatch, len(embeddings), len(chunks))
	}

	records := make([]vector.Record, len(chunks))
	for i, c := range chunks {
		records[i] = vector.Record{
			ID:           c.ID,
			DocID:        doc.ID,
			FileName:     doc.FileName,
			LocationURL:  doc.LocationURL,
			ChunkIndex:   c.Index,
			Text:         c.Text,
			Embedding:    embeddings[i],
			UploaderID:   doc.UploaderID,
			UploaderName: doc.UploaderName,
		}
	}

	// Drop the previous generation before writing the new one so a
	// re-ingested document never serves stale chunks.
	if err := p.index.DeleteByDocument(ctx, doc.ID); err != nil {
		return fmt.Errorf("delete previous chunks: %w", err)
	}
	if err := p.index.Upsert(ctx, records); err != nil {
		return fmt.Errorf("index chunks: %w", err)
	}

	meta := map[string]interface{}{"vector_index": vector.ClassName}
	if err := p.registry.MarkProcessed(ctx, doc.ID, len(chunks), p.embedder.Model(), meta); err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}

	slog.Info("document ingested", "doc_id", doc.ID, "file_name", doc.FileName, "chunks", len(chunks))
	return nil
}
