package weaviate

import (
	"context"
	"fmt"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"docrag/backend/internal/retrieval"
	"docrag/backend/internal/vector"
)

// Search depth is capped regardless of what the caller asks for.
const maxSearchLimit = 50

// Store is the production VectorIndex over a Weaviate instance. Records are
// written with deterministic object ids derived from their chunk ids, so a
// re-ingestion run overwrites rather than duplicates.
type Store struct {
	client    *weaviate.Client
	dimension int
}

func NewStore(client *weaviate.Client, dimension int) *Store {
	return &Store{client: client, dimension: dimension}
}

// EnsureSchema bootstraps the chunk class. Idempotent; called on startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return vector.EnsureSchema(ctx, vector.NewWeaviateClientAdapter(s.client))
}

// objectID maps a chunk id onto a stable UUID so upserts overwrite by id.
func objectID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(chunkID)).String()
}

// DeleteByDocument removes every record of a document. Deleting a document
// that has no records is a no-op.
func (s *Store) DeleteByDocument(ctx context.Context, docID string) error {
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(vector.ClassName).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithPath([]string{"docId"}).
			WithOperator(filters.Equal).
			WithValueString(docID)).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("delete chunks for %s: %w", docID, err)
	}
	return nil
}

// Upsert writes records in one batch, overwriting existing objects with the
// same chunk id. Vector dimensions are validated before anything is sent.
func (s *Store) Upsert(ctx context.Context, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}
	for _, rec := range records {
		if err := vector.CheckDimension(rec.Embedding, s.dimension); err != nil {
			return fmt.Errorf("record %s: %w", rec.ID, err)
		}
	}

	objects := make([]*models.Object, 0, len(records))
	for _, rec := range records {
		objects = append(objects, &models.Object{
			Class: vector.ClassName,
			ID:    strfmt.UUID(objectID(rec.ID)),
			Properties: map[string]interface{}{
				"chunkId":      rec.ID,
				"docId":        rec.DocID,
				"fileName":     rec.FileName,
				"locationUrl":  rec.LocationURL,
				"chunkIndex":   rec.ChunkIndex,
				"text":         rec.Text,
				"uploaderId":   rec.UploaderID,
				"uploaderName": rec.UploaderName,
			},
			Vector: rec.Embedding,
		})
	}

	resp, err := s.client.Batch().ObjectsBatcher().
		WithObjects(objects...).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("upsert batch: %w", err)
	}
	for _, obj := range resp {
		if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
			return fmt.Errorf("upsert object %s: %s", obj.ID, obj.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

// Search runs a nearVector query and returns matches in descending
// similarity order with every field needed for citation.
func (s *Store) Search(ctx context.Context, vec []float32, topK int) ([]retrieval.SearchResult, error) {
	if err := vector.CheckDimension(vec, s.dimension); err != nil {
		return nil, err
	}
	if topK < 1 {
		topK = 1
	}
	if topK > maxSearchLimit {
		topK = maxSearchLimit
	}

	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vec)

	fields := []graphql.Field{
		{Name: "chunkId"},
		{Name: "docId"},
		{Name: "fileName"},
		{Name: "locationUrl"},
		{Name: "chunkIndex"},
		{Name: "text"},
		{Name: "uploaderId"},
		{Name: "uploaderName"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassName).
		WithNearVector(nearVector).
		WithLimit(topK).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors)
	}

	var results []retrieval.SearchResult
	data, ok := res.Data["Get"].(map[string]interface{})
	if !ok {
		return results, nil
	}
	chunks, ok := data[vector.ClassName].([]interface{})
	if !ok {
		return results, nil
	}

	for _, c := range chunks {
		props, ok := c.(map[string]interface{})
		if !ok {
			continue
		}

		var result retrieval.SearchResult
		if v, ok := props["chunkId"].(string); ok {
			result.ID = v
		}
		if v, ok := props["docId"].(string); ok {
			result.DocID = v
		}
		if v, ok := props["fileName"].(string); ok {
			result.FileName = v
		}
		if v, ok := props["locationUrl"].(string); ok {
			result.LocationURL = v
		}
		if v, ok := props["chunkIndex"].(float64); ok {
			result.ChunkIndex = int(v)
		}
		if v, ok := props["text"].(string); ok {
			result.Text = v
		}
		if v, ok := props["uploaderId"].(string); ok {
			result.UploaderID = v
		}
		if v, ok := props["uploaderName"].(string); ok {
			result.UploaderName = v
		}

		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			// certainty decodes as a JSON number, but some server versions
			// send additional fields as strings.
			switch score := additional["certainty"].(type) {
			case float64:
				result.Score = float32(score)
			case string:
				var f float64
				fmt.Sscanf(score, "%f", &f)
				result.Score = float32(f)
			}
		}

		results = append(results, result)
	}

	return results, nil
}
