// Package loader normalizes raw document bytes into text records ready for
// chunking, dispatching by file extension the way the teacher's
// ingestion/pipeline package dispatches by classified file kind.
package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/neurobridge/support-backend/internal/domain/support"
)

// Record is one normalized unit of loaded content, prior to chunking. A
// single document can load to multiple records (e.g. one per CSV row or
// HTML section); the chunker treats each independently before reassembling
// chunk_index/total_chunks across the whole document.
type Record struct {
	Text     string
	Metadata map[string]any
	Modality support.Modality
}

// DocumentLoader loads one document's raw bytes into normalized records.
type DocumentLoader interface {
	Load(ctx context.Context, sourceURI string, raw []byte, metadata map[string]any) ([]Record, error)
}

// SupportedExtensions mirrors the set validated by Ingestion Core before a
// load is attempted.
var SupportedExtensions = map[string]bool{
	".pdf": true, ".txt": true, ".md": true, ".docx": true, ".doc": true,
	".html": true, ".htm": true, ".csv": true,
	".png": true, ".jpg": true, ".jpeg": true,
	".mp3": true, ".wav": true,
}

// CaptionProvider describes an image for modality≠text ingestion.
type CaptionProvider interface {
	Describe(ctx context.Context, data []byte, mimeType, instruction string) (string, error)
}

// Dispatch returns the loader responsible for an extension (case-insensitive,
// leading dot optional). captioner may be nil, in which case image/audio
// loads fail with a descriptive error instead of panicking.
func Dispatch(ext string, captioner CaptionProvider) (DocumentLoader, error) {
	ext = normalizeExt(ext)
	if !SupportedExtensions[ext] {
		return nil, fmt.Errorf("loader: unsupported extension %q", ext)
	}
	switch ext {
	case ".txt", ".md":
		return textLoader{}, nil
	case ".csv":
		return csvLoader{}, nil
	case ".html", ".htm":
		return htmlLoader{}, nil
	case ".pdf":
		return pdfLoader{}, nil
	case ".docx", ".doc":
		return officeLoader{}, nil
	case ".png", ".jpg", ".jpeg":
		return imageLoader{captioner: captioner}, nil
	case ".mp3", ".wav":
		return audioLoader{captioner: captioner}, nil
	default:
		return nil, fmt.Errorf("loader: unsupported extension %q", ext)
	}
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ext
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func mimeFor(sourceURI string) string {
	switch normalizeExt(filepath.Ext(sourceURI)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}

func baseName(sourceURI string) string {
	return filepath.Base(sourceURI)
}
