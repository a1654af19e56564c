package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"docrag/backend/internal/middleware"
)

var (
	ErrInvalidQuery     = errors.New("query must not be empty")
	ErrSearchFailed     = errors.New("search failed")
	ErrGenerationFailed = errors.New("answer generation failed")
)

const (
	DefaultTopK = 5
	MaxTopK     = 20

	// InsufficientContextAnswer is returned without a model call when the
	// index has nothing relevant; no context means no grounded answer.
	InsufficientContextAnswer = "I do not have enough information to answer that question."
)

// SearchResult is a read-only projection of an indexed chunk plus its
// similarity score. Never persisted.
type SearchResult struct {
	ID           string  `json:"id"`
	Score        float32 `json:"score"`
	DocID        string  `json:"doc_id"`
	FileName     string  `json:"file_name"`
	LocationURL  string  `json:"location_url"`
	ChunkIndex   int     `json:"chunk_index"`
	Text         string  `json:"text"`
	UploaderID   string  `json:"uploader_id,omitempty"`
	UploaderName string  `json:"uploader_name,omitempty"`
}

// Answer is the full response to one question.
type Answer struct {
	Query   string         `json:"query"`
	TopK    int            `json:"top_k"`
	Results []SearchResult `json:"results"`
	Answer  string         `json:"answer"`
}

type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

type Index interface {
	Search(ctx context.Context, vector []float32, topK int) ([]SearchResult, error)
}

type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

type Service struct {
	embedder  Embedder
	index     Index
	generator Generator
	logger    *QueryLogger
}

func NewService(e Embedder, i Index, g Generator, l *QueryLogger) *Service {
	return &Service{embedder: e, index: i, generator: g, logger: l}
}

// Answer retrieves the chunks closest to the query and asks the model for a
// cited answer grounded in them. When only the generation step fails, the
// returned Answer still carries the retrieved results alongside the error.
func (s *Service) Answer(ctx context.Context, query string, topK int) (*Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrInvalidQuery
	}
	topK = ClampTopK(topK)
	start := time.Now()

	vec, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %s", ErrSearchFailed, err)
	}

	results, err := s.index.Search(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSearchFailed, err)
	}

	answer := &Answer{
		Query:   query,
		TopK:    topK,
		Results: results,
	}

	if len(results) == 0 {
		answer.Results = []SearchResult{}
		answer.Answer = InsufficientContextAnswer
		s.log(ctx, query, 0, start)
		return answer, nil
	}

	text, err := s.generator.Generate(ctx, systemInstruction, buildUserMessage(query, formatContext(results)))
	if err != nil {
		// Retrieval worked; surface what we have with the failure.
		return answer, fmt.Errorf("%w: %s", ErrGenerationFailed, err)
	}

	answer.Answer = strings.TrimSpace(text)
	s.log(ctx, query, len(results), start)
	return answer, nil
}

func (s *Service) log(ctx context.Context, query string, numResults int, start time.Time) {
	if s.logger == nil {
		return
	}
	s.logger.Log(QueryLogEntry{
		Query:         query,
		NumResults:    numResults,
		Duration:      time.Since(start),
		CorrelationID: middleware.GetCorrelationID(ctx),
	})
}

// ClampTopK bounds the requested result count to [1, MaxTopK]; zero and
// negative values fall back to the default.
func ClampTopK(k int) int {
	if k <= 0 {
		return DefaultTopK
	}
	if k > MaxTopK {
		return MaxTopK
	}
	return k
}

const systemInstruction = "You are a retrieval-augmented assistant for enterprise documents. " +
	"Answer questions using ONLY the supplied context segments. " +
	"Cite the segment numbers in square brackets (e.g., [1]) when you reference information. " +
	"If the context does not contain the answer, respond with \"I do not have enough information\" " +
	"instead of guessing. Keep answers concise and actionable."

func formatContext(results []SearchResult) string {
	if len(results) == 0 {
		return "No supporting context available."
	}
	segments := make([]string, 0, len(results))
	for i, r := range results {
		fileName := r.FileName
		if fileName == "" {
			fileName = "unknown file"
		}
		docID := r.DocID
		if docID == "" {
			docID = "unknown doc"
		}
		segments = append(segments, fmt.Sprintf(
			"Segment [%d] — file: %s, doc_id: %s, chunk: %d\nContent:\n%s",
			i+1, fileName, docID, r.ChunkIndex, strings.TrimSpace(r.Text)))
	}
	return strings.Join(segments, "\n\n")
}

func buildUserMessage(query, contextText string) string {
	return "User Question:\n" + strings.TrimSpace(query) + "\n\n" +
		"Retrieved Context Segments:\n" + contextText + "\n\n" +
		"Instructions:\n" +
		"- Use only the facts in the context.\n" +
		"- Cite segment numbers like [1], [2].\n" +
		"- If context is insufficient, explicitly say so."
}
