package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"docrag/backend/internal/middleware"
	"docrag/backend/internal/retrieval"
)

type Answerer interface {
	Answer(ctx context.Context, query string, topK int) (*retrieval.Answer, error)
}

type Handler struct {
	service Answerer
}

func NewHandler(service Answerer) *Handler {
	return &Handler{service: service}
}

// Search answers a question against the indexed documents. A top_k that
// is missing or not a number falls back to the default.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string          `json:"query"`
		TopK  json.RawMessage `json:"top_k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}

	topK := 0
	if len(req.TopK) > 0 {
		if err := json.Unmarshal(req.TopK, &topK); err != nil {
			topK = 0
		}
	}

	answer, err := h.service.Answer(r.Context(), req.Query, topK)
	if err != nil {
		switch {
		case errors.Is(err, retrieval.ErrInvalidQuery):
			h.writeError(r.Context(), w, "VALIDATION_ERROR", "Query is required", http.StatusBadRequest)
			return
		case errors.Is(err, retrieval.ErrGenerationFailed):
			// Retrieval succeeded, only the answer is missing. Return
			// the matches so the caller still gets citations.
			slog.Error("answer generation failed", "error", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			resp := map[string]interface{}{
				"error": map[string]string{
					"code":    "GENERATION_FAILED",
					"message": "Failed to generate an answer",
				},
				"data":          answer,
				"correlationId": middleware.GetCorrelationID(r.Context()),
			}
			if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
				slog.Error("failed to encode response", "error", encErr)
			}
			return
		default:
			slog.Error("search failed", "error", err)
			h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": answer}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
