package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor converts raw PDF bytes into plain text, one page per line
// group. Pages that yield no text are skipped rather than padded.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

func (e *PDFExtractor) Extract(data []byte) (text string, err error) {
	// The pdf package panics on some malformed inputs; surface that as a
	// per-document error so the pipeline can mark the document failed.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}

	fonts := make(map[string]*pdf.Font)
	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(fonts)
		if err != nil {
			// Unreadable page, keep going with the rest of the document.
			continue
		}
		if content != "" {
			pages = append(pages, content)
		}
	}

	return strings.Join(pages, "\n"), nil
}
