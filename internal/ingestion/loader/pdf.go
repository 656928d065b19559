package loader

import (
	"bytes"
	"context"
	"fmt"

	"github.com/tmc/langchaingo/documentloaders"

	"github.com/neurobridge/support-backend/internal/domain/support"
)

// pdfLoader mirrors the teacher's ingestion/pipeline.handlePDF shape: text is
// extracted page by page so chunk metadata can carry a page number, with a
// captioning fallback left to the caller for image-only (scanned) pages —
// out of scope here since spec §4.1 doesn't require OCR.
type pdfLoader struct{}

func (pdfLoader) Load(ctx context.Context, sourceURI string, raw []byte, metadata map[string]any) ([]Record, error) {
	docs, err := documentloaders.NewPDF(bytes.NewReader(raw), int64(len(raw))).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pdf %q: %w", sourceURI, err)
	}
	return mergeLoaderDocs(docs, metadata, support.ModalityText), nil
}
