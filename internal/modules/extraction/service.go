// Package extraction implements the Extraction Helper: an LLM-backed
// identity extractor that looks at one customer message and returns any
// email/name/phone it can find, for the Conversation Core to merge into
// collected_entities. Grounded on the teacher's structured-output prompting
// idiom (internal/modules/learning/quick_check.go's "ask for JSON, parse
// defensively" pattern).
package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/neurobridge/support-backend/internal/platform/llmgateway"
)

// Result holds whatever identity fields were found; zero-value fields mean
// "not found in this message", not "cleared".
type Result struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Map returns a non-empty-valued subset suitable for merging directly into
// collected_entities.
func (r Result) Map() map[string]any {
	out := map[string]any{}
	if r.Email != "" {
		out["email"] = r.Email
	}
	if r.Name != "" {
		out["name"] = r.Name
	}
	if r.Phone != "" {
		out["phone"] = r.Phone
	}
	return out
}

type Service struct {
	gen llmgateway.Generator
}

func New(gen llmgateway.Generator) *Service {
	return &Service{gen: gen}
}

const extractionPrompt = `Extract any customer identity details present in the message below. Respond with ONLY a JSON object with keys "email", "name", "phone" — omit any key not present. Do not invent values.

Message: %s`

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
var phonePattern = regexp.MustCompile(`\+?[0-9][0-9\-\s()]{7,}[0-9]`)

// Extract asks the LLM to identify email/name/phone in message, with a
// regex-based fallback for email/phone if the LLM call fails or returns
// unparseable output — identity extraction degrading to "found nothing" on
// a transient LLM error would silently stall assisted-handover identity
// collection, so the fallback keeps the common cases working.
func (s *Service) Extract(ctx context.Context, message string) (Result, error) {
	if s.gen != nil {
		resp, err := s.gen.Generate(ctx, llmgateway.GenerateRequest{Prompt: fmt.Sprintf(extractionPrompt, message)})
		if err == nil {
			if r, ok := parseExtraction(resp.Text); ok {
				return r, nil
			}
		}
	}
	return fallbackExtract(message), nil
}

func parseExtraction(text string) (Result, bool) {
	trimmed := strings.TrimSpace(text)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end < start {
		return Result{}, false
	}
	var r Result
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &r); err != nil {
		return Result{}, false
	}
	return r, true
}

func fallbackExtract(message string) Result {
	var r Result
	if m := emailPattern.FindString(message); m != "" {
		r.Email = m
	}
	if m := phonePattern.FindString(message); m != "" {
		r.Phone = strings.TrimSpace(m)
	}
	return r
}
