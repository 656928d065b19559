package loader

import (
	"context"
	"testing"

	"github.com/neurobridge/support-backend/internal/domain/support"
)

func TestDispatchResolvesKnownExtensions(t *testing.T) {
	cases := []struct {
		ext  string
		want any
	}{
		{".txt", textLoader{}},
		{"TXT", textLoader{}},
		{".md", textLoader{}},
		{".csv", csvLoader{}},
		{".html", htmlLoader{}},
		{".htm", htmlLoader{}},
		{".pdf", pdfLoader{}},
		{".docx", officeLoader{}},
		{".doc", officeLoader{}},
	}
	for _, tc := range cases {
		got, err := Dispatch(tc.ext, nil)
		if err != nil {
			t.Fatalf("Dispatch(%q): %v", tc.ext, err)
		}
		if got != tc.want {
			t.Fatalf("Dispatch(%q): want=%T got=%T", tc.ext, tc.want, got)
		}
	}
}

func TestDispatchWiresCaptionerIntoMediaLoaders(t *testing.T) {
	captioner := &fakeCaptioner{text: "a caption"}

	img, err := Dispatch(".png", captioner)
	if err != nil {
		t.Fatalf("Dispatch(.png): %v", err)
	}
	if l, ok := img.(imageLoader); !ok || l.captioner != captioner {
		t.Fatalf("expected imageLoader wired with captioner, got %+v", img)
	}

	aud, err := Dispatch(".wav", captioner)
	if err != nil {
		t.Fatalf("Dispatch(.wav): %v", err)
	}
	if l, ok := aud.(audioLoader); !ok || l.captioner != captioner {
		t.Fatalf("expected audioLoader wired with captioner, got %+v", aud)
	}
}

func TestDispatchRejectsUnsupportedExtension(t *testing.T) {
	if _, err := Dispatch(".exe", nil); err == nil {
		t.Fatalf("expected error for unsupported extension")
	}
	if _, err := Dispatch("", nil); err == nil {
		t.Fatalf("expected error for empty extension")
	}
}

func TestTextLoaderLoadsPlainText(t *testing.T) {
	recs, err := textLoader{}.Load(context.Background(), "faq.txt",
		[]byte("Our support hours are 9 to 5."), map[string]any{"source_file": "faq.txt"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].Modality != support.ModalityText {
		t.Fatalf("expected text modality, got %s", recs[0].Modality)
	}
	if recs[0].Metadata["source_file"] != "faq.txt" {
		t.Fatalf("expected caller metadata to carry through, got %+v", recs[0].Metadata)
	}
}

func TestCSVLoaderFallsBackOnRaggedRows(t *testing.T) {
	raw := []byte("a,b,c\n1,2\n")
	recs, err := csvLoader{}.Load(context.Background(), "ragged.csv", raw, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(recs) == 0 {
		t.Fatalf("expected at least one record even for a ragged CSV")
	}
}

func TestCSVFallbackTagsRowIndex(t *testing.T) {
	recs, err := csvFallback("ragged.csv", []byte("a,b,c\n1,2\n"), nil)
	if err != nil {
		t.Fatalf("csvFallback: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 rows (header + data), got %d", len(recs))
	}
	if recs[0].Metadata["row"] != 0 || recs[1].Metadata["row"] != 1 {
		t.Fatalf("expected sequential row indices, got %+v / %+v", recs[0].Metadata, recs[1].Metadata)
	}
}

func TestHTMLLoaderExtractsText(t *testing.T) {
	raw := []byte("<html><body><p>Hello support</p></body></html>")
	recs, err := htmlLoader{}.Load(context.Background(), "page.html", raw, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(recs) == 0 {
		t.Fatalf("expected at least one record")
	}
}

func TestOfficeLoaderDegradesLegacyDocToPlaceholder(t *testing.T) {
	recs, err := officeLoader{}.Load(context.Background(), "old.doc", []byte("not a zip"), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(recs) != 1 || recs[0].Metadata["kind"] != "unextractable_legacy_doc" {
		t.Fatalf("expected legacy-doc placeholder record, got %+v", recs)
	}
}

func TestOfficeLoaderRejectsInvalidDocx(t *testing.T) {
	if _, err := officeLoader{}.Load(context.Background(), "broken.docx", []byte("not a zip archive"), nil); err == nil {
		t.Fatalf("expected error for invalid docx bytes")
	}
}

func TestImageLoaderRequiresCaptioner(t *testing.T) {
	l := imageLoader{}
	if _, err := l.Load(context.Background(), "photo.png", []byte{0x89, 'P', 'N', 'G'}, nil); err == nil {
		t.Fatalf("expected error when no captioner is configured")
	}
}

func TestImageLoaderUsesCaptionerDescribe(t *testing.T) {
	captioner := &fakeCaptioner{text: "a storefront at dusk"}
	l := imageLoader{captioner: captioner}

	recs, err := l.Load(context.Background(), "storefront.jpg", []byte{0xff, 0xd8}, map[string]any{"tenant": "acme"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(recs) != 1 || recs[0].Text != "a storefront at dusk" {
		t.Fatalf("expected caption text in record, got %+v", recs)
	}
	if recs[0].Modality != support.ModalityImage {
		t.Fatalf("expected image modality, got %s", recs[0].Modality)
	}
	if captioner.lastMime != "image/jpeg" {
		t.Fatalf("expected mime image/jpeg, got %s", captioner.lastMime)
	}
	if recs[0].Metadata["tenant"] != "acme" {
		t.Fatalf("expected caller metadata preserved, got %+v", recs[0].Metadata)
	}
}

func TestAudioLoaderUsesCaptionerDescribe(t *testing.T) {
	captioner := &fakeCaptioner{text: "hello, how can I help you"}
	l := audioLoader{captioner: captioner}

	recs, err := l.Load(context.Background(), "call.wav", []byte{0x52, 0x49}, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(recs) != 1 || recs[0].Modality != support.ModalityAudio {
		t.Fatalf("expected audio modality record, got %+v", recs)
	}
	if captioner.lastMime != "audio/wav" {
		t.Fatalf("expected mime audio/wav, got %s", captioner.lastMime)
	}
}

func TestMimeForKnownAndUnknownExtensions(t *testing.T) {
	cases := map[string]string{
		"a.png":     "image/png",
		"a.jpg":     "image/jpeg",
		"a.jpeg":    "image/jpeg",
		"a.mp3":     "audio/mpeg",
		"a.wav":     "audio/wav",
		"a.unknown": "application/octet-stream",
	}
	for path, want := range cases {
		if got := mimeFor(path); got != want {
			t.Fatalf("mimeFor(%q): want=%q got=%q", path, want, got)
		}
	}
}

type fakeCaptioner struct {
	text     string
	err      error
	lastMime string
}

func (f *fakeCaptioner) Describe(ctx context.Context, data []byte, mimeType, instruction string) (string, error) {
	f.lastMime = mimeType
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}
