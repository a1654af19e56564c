package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/option"

	"docrag/backend/internal/adapter/gemini"
)

func TestGenerator_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("Concatenates Text Parts", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"candidates": []map[string]interface{}{
					{
						"content": map[string]interface{}{
							"role": "model",
							"parts": []map[string]interface{}{
								{"text": "The refund policy "},
								{"text": "allows returns within 30 days [1]."},
							},
						},
						"finishReason": "STOP",
					},
				},
			})
		}))
		defer ts.Close()

		gen, err := gemini.NewGenerator(ctx, "test-key", "gemini-2.0-flash", option.WithEndpoint(ts.URL))
		assert.NoError(t, err)

		answer, err := gen.Generate(ctx, "system instruction", "user question")
		assert.NoError(t, err)
		assert.Equal(t, "The refund policy allows returns within 30 days [1].", answer)
	})

	t.Run("No Candidates", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{"candidates": []interface{}{}})
		}))
		defer ts.Close()

		gen, err := gemini.NewGenerator(ctx, "test-key", "gemini-2.0-flash", option.WithEndpoint(ts.URL))
		assert.NoError(t, err)

		_, err = gen.Generate(ctx, "system", "user")
		assert.Error(t, err)
	})

	t.Run("Backend Error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer ts.Close()

		gen, err := gemini.NewGenerator(ctx, "test-key", "gemini-2.0-flash", option.WithEndpoint(ts.URL))
		assert.NoError(t, err)

		_, err = gen.Generate(ctx, "system", "user")
		assert.Error(t, err)
	})
}
