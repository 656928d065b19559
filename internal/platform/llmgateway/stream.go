package llmgateway

import (
	"bufio"
	"io"
	"strings"
)

// streamLines yields each logical JSON chunk out of a response body, whether
// the provider frames it as SSE ("data: {...}" lines, as Gemini does) or as
// newline-delimited JSON (as Ollama does). Blank lines and a terminal
// "[DONE]" sentinel are swallowed.
func streamLines(body io.Reader, onLine func(line string) error) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "data:") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
		if line == "" || line == "[DONE]" {
			continue
		}
		if strings.HasPrefix(line, "[") || strings.HasPrefix(line, "]") || strings.HasPrefix(line, ",") {
			// Gemini's non-SSE array framing; skip bracket/comma-only lines.
			continue
		}
		if err := onLine(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}
