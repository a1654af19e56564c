package vector

import (
	"errors"
	"fmt"
)

// ClassName is the Weaviate class holding one record per document chunk.
const ClassName = "DocumentChunk"

// ErrDimensionMismatch is returned when a vector's length differs from the
// index's configured dimension. The check runs before any network call.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Record is an indexed chunk. ID is the chunk id and doubles as the upsert
// key; all other fields are stored for citation at query time.
type Record struct {
	ID           string
	DocID        string
	FileName     string
	LocationURL  string
	ChunkIndex   int
	Text         string
	Embedding    []float32
	UploaderID   string
	UploaderName string
}

// CheckDimension validates a vector against the configured index dimension.
func CheckDimension(vec []float32, dimension int) error {
	if len(vec) != dimension {
		return fmt.Errorf("%w: got %d, index expects %d", ErrDimensionMismatch, len(vec), dimension)
	}
	return nil
}
