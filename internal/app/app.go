package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"docrag/backend/features/chat"
	"docrag/backend/features/document"
	"docrag/backend/internal/config"
	"docrag/backend/internal/extract"
	"docrag/backend/internal/ingest"
	"docrag/backend/internal/middleware"
	"docrag/backend/internal/retrieval"
	"docrag/backend/internal/text"
	"docrag/backend/internal/vector"
	"docrag/backend/internal/worker"
)

// VectorStore is everything the app needs from the chunk index. The
// Weaviate store satisfies it; tests substitute a mock.
type VectorStore interface {
	EnsureSchema(ctx context.Context) error
	DeleteByDocument(ctx context.Context, docID string) error
	Upsert(ctx context.Context, records []vector.Record) error
	Search(ctx context.Context, vec []float32, topK int) ([]retrieval.SearchResult, error)
}

type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

type BlobStore interface {
	Put(docID string, data []byte) (string, error)
	Get(docID string) ([]byte, error)
}

type TaskPublisher interface {
	Publish(topic string, body []byte) error
}

type App struct {
	Handler         http.Handler
	DocumentService *document.Service
	Pipeline        *ingest.Pipeline
	IngestConsumer  *worker.IngestConsumer

	port int
}

func New(
	cfg *config.Config,
	db *sql.DB,
	vecStore VectorStore,
	blobs BlobStore,
	embedder Embedder,
	generator Generator,
	taskPub TaskPublisher,
	logger *slog.Logger,
) (*App, error) {

	// Feature: Document
	docRepo := document.NewPostgresRepo(db)
	docService := document.NewService(docRepo, blobs, taskPub)
	docHandler := document.NewHandler(docService, cfg.MaxUploadSizeMB)

	// Ingestion Pipeline
	chunkOpts := text.ChunkOptions{
		MinChars: cfg.ChunkMinChars,
		MaxChars: cfg.ChunkMaxChars,
		Overlap:  cfg.ChunkOverlap,
	}
	pipeline := ingest.NewPipeline(docRepo, blobs, extract.NewPDFExtractor(), embedder, vecStore, chunkOpts, cfg.IngestBatchSize)
	ingestConsumer := worker.NewIngestConsumer(pipeline, 10*time.Minute)

	// Feature: Chat
	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}
	retrievalService := retrieval.NewService(embedder, vecStore, generator, queryLogger)
	chatHandler := chat.NewHandler(retrievalService)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /documents/upload", middleware.CorrelationID(enableCORS(docHandler.Upload)))
	mux.Handle("GET /documents", middleware.CorrelationID(enableCORS(docHandler.List)))

	mux.Handle("POST /chat/search", middleware.CorrelationID(enableCORS(chatHandler.Search)))

	// Manual pipeline trigger, useful when nsqd is down or for backfills.
	mux.Handle("POST /ingest/run", middleware.CorrelationID(enableCORS(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			BatchSize int `json:"batch_size"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		report, err := pipeline.ProcessN(r.Context(), req.BatchSize)
		if err != nil {
			slog.Error("manual ingestion run failed", "error", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":         map[string]string{"code": "INTERNAL_ERROR", "message": "Ingestion run failed"},
				"correlationId": middleware.GetCorrelationID(r.Context()),
			})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": report}); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	})))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{
		Handler:         mux,
		DocumentService: docService,
		Pipeline:        pipeline,
		IngestConsumer:  ingestConsumer,
		port:            cfg.ServerPort,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
