package loader

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"

	"github.com/neurobridge/support-backend/internal/domain/support"
)

type textLoader struct{}

func (textLoader) Load(ctx context.Context, sourceURI string, raw []byte, metadata map[string]any) ([]Record, error) {
	docs, err := documentloaders.NewText(bytes.NewReader(raw)).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load text %q: %w", sourceURI, err)
	}
	return mergeLoaderDocs(docs, metadata, support.ModalityText), nil
}

type csvLoader struct{}

func (csvLoader) Load(ctx context.Context, sourceURI string, raw []byte, metadata map[string]any) ([]Record, error) {
	docs, err := documentloaders.NewCSV(bytes.NewReader(raw)).Load(ctx)
	if err != nil {
		return csvFallback(sourceURI, raw, metadata)
	}
	return mergeLoaderDocs(docs, metadata, support.ModalityText), nil
}

// csvFallback handles CSV dialects langchaingo's loader rejects (e.g. ragged
// rows) by reading records permissively and joining them into one row per
// record, still carrying a row index in metadata.
func csvFallback(sourceURI string, raw []byte, metadata map[string]any) ([]Record, error) {
	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1
	var out []Record
	row := 0
	for {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv fallback %q: %w", sourceURI, err)
		}
		md := cloneMetadata(metadata)
		md["row"] = row
		out = append(out, Record{
			Text:     strings.Join(fields, " | "),
			Metadata: md,
			Modality: support.ModalityText,
		})
		row++
	}
	return out, nil
}

type htmlLoader struct{}

func (htmlLoader) Load(ctx context.Context, sourceURI string, raw []byte, metadata map[string]any) ([]Record, error) {
	docs, err := documentloaders.NewHTML(bytes.NewReader(raw)).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load html %q: %w", sourceURI, err)
	}
	return mergeLoaderDocs(docs, metadata, support.ModalityText), nil
}

func cloneMetadata(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func mergeLoaderDocs(docs []schema.Document, extra map[string]any, modality support.Modality) []Record {
	out := make([]Record, 0, len(docs))
	for _, d := range docs {
		md := cloneMetadata(extra)
		for k, v := range d.Metadata {
			md[k] = v
		}
		out = append(out, Record{Text: d.PageContent, Metadata: md, Modality: modality})
	}
	return out
}
