package text

import (
	"fmt"
	"strings"
)

// Chunk is a bounded contiguous slice of a document's text, sized for
// embedding. Index is dense and zero-based within the document.
type Chunk struct {
	ID    string
	Text  string
	Index int
}

type ChunkOptions struct {
	MinChars int
	MaxChars int
	Overlap  int
}

// ChunkID builds the stable chunk identity used as the vector record key.
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s::chunk-%d", docID, index)
}

// ChunkDocument splits plain text into overlapping, size-bounded chunks.
// Paragraphs are accumulated greedily up to MaxChars; each closed chunk
// seeds the next one with its Overlap-sized tail so context survives the
// boundary. A trailing pass merges undersized chunks into their predecessor
// (the first chunk has none and is kept as-is), renumbers the survivors
// densely from zero and regenerates their ids.
//
// Deterministic: identical inputs always yield identical chunks.
func ChunkDocument(text, docID string, opts ChunkOptions) []Chunk {
	overlap := opts.Overlap
	if overlap >= opts.MaxChars || overlap < 0 {
		// An overlap as large as the chunk budget would make every chunk a
		// copy of its predecessor's tail. Treat as no overlap.
		overlap = 0
	}

	raw := accumulate(splitParagraphs(text), opts.MaxChars, overlap)
	merged := mergeShort(raw, opts.MinChars)

	chunks := make([]Chunk, 0, len(merged))
	for _, t := range merged {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		idx := len(chunks)
		chunks = append(chunks, Chunk{ID: ChunkID(docID, idx), Text: t, Index: idx})
	}
	return chunks
}

// splitParagraphs normalizes line endings and returns the non-empty,
// whitespace-trimmed paragraphs in order.
func splitParagraphs(text string) []string {
	normalized := strings.ReplaceAll(text, "\r", "\n")
	var paragraphs []string
	for _, p := range strings.Split(normalized, "\n") {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

func accumulate(paragraphs []string, maxChars, overlap int) []string {
	var closed []string
	var current []string
	currentLen := 0

	for _, para := range paragraphs {
		paraLen := len(para)
		if currentLen+paraLen+1 <= maxChars {
			current = append(current, para)
			currentLen += paraLen + 1
			continue
		}

		if len(current) > 0 {
			text := strings.Join(current, "\n")
			closed = append(closed, text)
			if overlap > 0 {
				tail := suffix(text, overlap)
				current = []string{tail, para}
				currentLen = len(tail) + paraLen + 1
			} else {
				current = []string{para}
				currentLen = paraLen + 1
			}
			continue
		}

		// A single paragraph larger than the budget: hard-truncate it and
		// carry the remainder (with overlap back into the truncated part)
		// into the next buffer.
		closed = append(closed, para[:maxChars])
		remainder := para[maxChars-overlap:]
		if remainder != "" {
			current = []string{remainder}
			currentLen = len(remainder)
		} else {
			current = nil
			currentLen = 0
		}
	}

	if len(current) > 0 {
		closed = append(closed, strings.Join(current, "\n"))
	}
	return closed
}

// mergeShort folds chunks shorter than minChars into their predecessor.
// Merging only ever looks backward, so the first chunk always survives.
func mergeShort(chunks []string, minChars int) []string {
	var merged []string
	for _, text := range chunks {
		if len(text) < minChars && len(merged) > 0 {
			merged[len(merged)-1] = merged[len(merged)-1] + "\n" + text
			continue
		}
		merged = append(merged, text)
	}
	return merged
}

func suffix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
