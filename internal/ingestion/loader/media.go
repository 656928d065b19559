package loader

import (
	"context"
	"fmt"

	"github.com/neurobridge/support-backend/internal/domain/support"
)

// imageLoader delegates to the Embedding/LLM Gateway's captioning capability,
// grounded on the teacher's ingestion/pipeline image-handling delegation
// (captionAssetToSegments) — here targeting the gateway's Describe method
// instead of a dedicated OpenAI caption client.
type imageLoader struct {
	captioner CaptionProvider
}

func (l imageLoader) Load(ctx context.Context, sourceURI string, raw []byte, metadata map[string]any) ([]Record, error) {
	if l.captioner == nil {
		return nil, fmt.Errorf("load image %q: no captioning provider configured", sourceURI)
	}
	caption, err := l.captioner.Describe(ctx, raw, mimeFor(sourceURI),
		"Describe this image factually and concisely for use as knowledge-base search text.")
	if err != nil {
		return nil, fmt.Errorf("caption image %q: %w", sourceURI, err)
	}
	md := cloneMetadata(metadata)
	md["kind"] = "image_caption"
	md["source_file"] = baseName(sourceURI)
	return []Record{{Text: caption, Metadata: md, Modality: support.ModalityImage}}, nil
}

// audioLoader delegates transcription to the same gateway capability,
// grounded on the teacher's ingestion/pipeline audio-handling delegation.
type audioLoader struct {
	captioner CaptionProvider
}

func (l audioLoader) Load(ctx context.Context, sourceURI string, raw []byte, metadata map[string]any) ([]Record, error) {
	if l.captioner == nil {
		return nil, fmt.Errorf("load audio %q: no transcription provider configured", sourceURI)
	}
	transcript, err := l.captioner.Describe(ctx, raw, mimeFor(sourceURI),
		"Transcribe this audio verbatim. Return only the transcript text.")
	if err != nil {
		return nil, fmt.Errorf("transcribe audio %q: %w", sourceURI, err)
	}
	md := cloneMetadata(metadata)
	md["kind"] = "audio_transcript"
	md["source_file"] = baseName(sourceURI)
	return []Record{{Text: transcript, Metadata: md, Modality: support.ModalityAudio}}, nil
}
