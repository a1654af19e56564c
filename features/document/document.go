package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"docrag/backend/internal/config"
	"docrag/backend/internal/middleware"
)

// Document lifecycle statuses. A document starts as uploaded, becomes
// embedded once its chunks are indexed, and failed is terminal.
const (
	StatusUploaded = "uploaded"
	StatusEmbedded = "embedded"
	StatusFailed   = "failed"
)

var ErrUnsupportedType = errors.New("unsupported file type")

type Document struct {
	ID             string `json:"doc_id"`
	FileName       string `json:"file_name"`
	LocationURL    string `json:"location_url"`
	UploaderID     string `json:"uploader_id,omitempty"`
	UploaderName   string `json:"uploader_name,omitempty"`
	ContentType    string `json:"content_type,omitempty"`
	SizeBytes      int64  `json:"size_bytes"`
	IsChunked      bool   `json:"is_chunked"`
	ChunkCount     int    `json:"chunk_count"`
	IsEmbedded     bool   `json:"is_embedded"`
	EmbeddingModel string `json:"embedding_model,omitempty"`
	Status         string `json:"status"`
	Notes          string `json:"notes,omitempty"`
	UploadedAt     string `json:"uploaded_at,omitempty"`
}

type Repository interface {
	Insert(ctx context.Context, doc *Document) error
	List(ctx context.Context) ([]Document, error)
	FetchUnprocessed(ctx context.Context, limit int) ([]Document, error)
	MarkProcessed(ctx context.Context, docID string, chunkCount int, embeddingModel string, metadata map[string]interface{}) error
	MarkFailed(ctx context.Context, docID, notes string) error
}

type BlobStore interface {
	Put(docID string, data []byte) (string, error)
}

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

type Service struct {
	repo  Repository
	blobs BlobStore
	pub   EventPublisher
}

func NewService(repo Repository, blobs BlobStore, pub EventPublisher) *Service {
	return &Service{repo: repo, blobs: blobs, pub: pub}
}

// Register stores an uploaded PDF and records it as pending ingestion.
// The raw bytes land in the blob store first so a registry failure
// never leaves a row pointing at a missing file.
func (s *Service) Register(ctx context.Context, fileName, contentType, uploaderID, uploaderName string, data []byte) (*Document, error) {
	if !strings.EqualFold(filepath.Ext(fileName), ".pdf") {
		return nil, ErrUnsupportedType
	}

	doc := &Document{
		ID:           uuid.New().String(),
		FileName:     filepath.Base(fileName),
		UploaderID:   uploaderID,
		UploaderName: uploaderName,
		ContentType:  contentType,
		SizeBytes:    int64(len(data)),
		Status:       StatusUploaded,
	}

	path, err := s.blobs.Put(doc.ID, data)
	if err != nil {
		return nil, fmt.Errorf("store blob: %w", err)
	}
	doc.LocationURL = "file://" + path

	if err := s.repo.Insert(ctx, doc); err != nil {
		return nil, fmt.Errorf("register document: %w", err)
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"doc_id":         doc.ID,
		"file_name":      doc.FileName,
		"correlation_id": middleware.GetCorrelationID(ctx),
	})
	if err := s.pub.Publish(config.TopicIngestTask, payload); err != nil {
		slog.Error("failed to publish ingest.task event", "error", err, "doc_id", doc.ID)
	} else {
		slog.Info("published ingest.task event", "doc_id", doc.ID, "file_name", doc.FileName)
	}

	return doc, nil
}

func (s *Service) List(ctx context.Context) ([]Document, error) {
	return s.repo.List(ctx)
}
