package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ErrEmbedding marks a response from the embedding backend that carried no
// usable vector for an input.
var ErrEmbedding = errors.New("embedding backend returned no vector")

// maxEmbedChars caps a single input's size before it is sent to the
// backend, protecting against oversized payloads.
const maxEmbedChars = 6000

type Embedder struct {
	client *genai.Client
	model  string
}

func NewEmbedder(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*Embedder, error) {
	opts = append(opts, option.WithAPIKey(apiKey))
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Embedder{client: client, model: model}, nil
}

// Model reports the model tag recorded against embedded documents.
func (e *Embedder) Model() string {
	return e.model
}

// EmbedText embeds a single string, truncating it to the payload budget
// first. The cut backs off to a rune boundary so the payload stays valid
// UTF-8.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if len(text) > maxEmbedChars {
		cut := maxEmbedChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	slog.DebugContext(ctx, "embedding content", "model", e.model, "length", len(text))
	em := e.client.EmbeddingModel(e.model)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, ErrEmbedding
	}
	return res.Embedding.Values, nil
}

// EmbedBatch embeds texts one request at a time, preserving input order.
// The first failing item fails the whole call; the output length always
// equals the input length on success.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for i, text := range texts {
		vec, err := e.EmbedText(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed item %d: %w", i, err)
		}
		vectors = append(vectors, vec)
	}
	return vectors, nil
}

func (e *Embedder) Close() error {
	return e.client.Close()
}
