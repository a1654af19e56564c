package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nsqio/go-nsq"

	"docrag/backend/internal/ingest"
	"docrag/backend/internal/middleware"
)

type PipelineRunner interface {
	ProcessPending(ctx context.Context) (*ingest.Report, error)
}

// IngestConsumer reacts to upload events by draining the unprocessed
// backlog. The message itself only wakes the pipeline; the registry is
// the source of truth for what still needs work, so a lost or
// duplicated message is harmless.
type IngestConsumer struct {
	pipeline PipelineRunner
	timeout  time.Duration
}

func NewIngestConsumer(pipeline PipelineRunner, timeout time.Duration) *IngestConsumer {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &IngestConsumer{pipeline: pipeline, timeout: timeout}
}

func (h *IngestConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var payload struct {
		DocID         string `json:"doc_id"`
		FileName      string `json:"file_name"`
		CorrelationID string `json:"correlation_id,omitempty"`
	}
	err := json.Unmarshal(m.Body, &payload)

	correlationID := payload.CorrelationID
	if correlationID == "" {
		correlationID = uuid.New().String()
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	ctx = middleware.WithCorrelationID(ctx, correlationID)

	if err != nil {
		slog.ErrorContext(ctx, "invalid message format, dropping", "error", err)
		return nil // Don't retry invalid messages
	}

	slog.InfoContext(ctx, "ingest task received", "doc_id", payload.DocID, "file_name", payload.FileName)

	report, err := h.pipeline.ProcessPending(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "ingestion batch failed", "error", err)
		return err // Requeue: the backlog is untouched
	}

	slog.InfoContext(ctx, "ingestion batch complete",
		"processed", len(report.Processed), "failed", len(report.Failures))
	return nil
}
