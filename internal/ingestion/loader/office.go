package loader

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/neurobridge/support-backend/internal/domain/support"
)

// officeLoader extracts text from Word documents. .docx is a zip of XML
// parts; .doc is the legacy binary format the teacher's BestEffortNativeText
// helper also can't parse losslessly, so it degrades to a placeholder record
// rather than failing the whole ingest.
type officeLoader struct{}

func (officeLoader) Load(ctx context.Context, sourceURI string, raw []byte, metadata map[string]any) ([]Record, error) {
	if strings.HasSuffix(strings.ToLower(sourceURI), ".doc") && !looksLikeZip(raw) {
		md := cloneMetadata(metadata)
		md["kind"] = "unextractable_legacy_doc"
		return []Record{{
			Text:     "No extractable content: legacy .doc binary format is not supported for native text extraction.",
			Metadata: md,
			Modality: support.ModalityText,
		}}, nil
	}

	text, err := extractDocxText(raw)
	if err != nil {
		return nil, fmt.Errorf("load office document %q: %w", sourceURI, err)
	}
	md := cloneMetadata(metadata)
	return []Record{{Text: text, Metadata: md, Modality: support.ModalityText}}, nil
}

func looksLikeZip(raw []byte) bool {
	return len(raw) >= 4 && raw[0] == 'P' && raw[1] == 'K'
}

type docxBody struct {
	XMLName xml.Name   `xml:"body"`
	Paras   []docxPara `xml:"p"`
}

type docxPara struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Text []docxText `xml:"t"`
}

type docxText struct {
	Value string `xml:",chardata"`
}

func extractDocxText(raw []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("not a valid docx archive: %w", err)
	}
	var docXML []byte
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			if err != nil {
				return "", err
			}
			docXML, err = io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return "", err
			}
			break
		}
	}
	if docXML == nil {
		return "", fmt.Errorf("word/document.xml not found in docx archive")
	}

	var body struct {
		XMLName xml.Name `xml:"document"`
		Body    docxBody `xml:"body"`
	}
	if err := xml.Unmarshal(docXML, &body); err != nil {
		return "", fmt.Errorf("parse document.xml: %w", err)
	}

	var b strings.Builder
	for _, p := range body.Body.Paras {
		for _, r := range p.Runs {
			for _, t := range r.Text {
				b.WriteString(t.Value)
			}
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String()), nil
}
