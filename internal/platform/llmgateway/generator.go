package llmgateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/neurobridge/support-backend/internal/platform/logger"
	"github.com/neurobridge/support-backend/internal/platform/retry"
)

// Generator is the blocking + streaming text-generation surface the Query
// Core depends on. Ping is used by the /health endpoint.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
	GenerateStream(ctx context.Context, req GenerateRequest) (<-chan StreamEvent, error)
	// Describe captions an image or transcribes audio for ingestion of
	// non-text modalities. Only the gemini provider supports it; ollama
	// returns an error naming the unsupported provider.
	Describe(ctx context.Context, req DescribeRequest) (string, error)
	Ping(ctx context.Context) error
}

type generator struct {
	log    *logger.Logger
	cfg    Config
	http   *http.Client
	policy retry.Policy
}

func NewGenerator(log *logger.Logger, cfg Config) Generator {
	return &generator{
		log:    log.With("service", "LLMGateway", "provider", string(cfg.Provider)),
		cfg:    cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
		policy: retry.Default(),
	}
}

func (g *generator) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	if req.Temperature == 0 {
		req.Temperature = g.cfg.Temperature
	}
	if req.MaxOutputTokens == 0 {
		req.MaxOutputTokens = g.cfg.MaxOutputTokens
	}

	var out GenerateResponse
	err := retry.Do(ctx, g.policy, isRetryableUpstreamError, func(ctx context.Context) error {
		var callErr error
		switch g.cfg.Provider {
		case ProviderGemini:
			out, callErr = g.generateGemini(ctx, req)
		default:
			out, callErr = g.generateOllama(ctx, req)
		}
		return callErr
	})
	return out, err
}

func (g *generator) GenerateStream(ctx context.Context, req GenerateRequest) (<-chan StreamEvent, error) {
	if req.Temperature == 0 {
		req.Temperature = g.cfg.Temperature
	}
	if req.MaxOutputTokens == 0 {
		req.MaxOutputTokens = g.cfg.MaxOutputTokens
	}

	ch := make(chan StreamEvent, 16)
	var startErr error
	if g.cfg.Provider == ProviderGemini {
		startErr = g.streamGemini(ctx, req, ch)
	} else {
		startErr = g.streamOllama(ctx, req, ch)
	}
	if startErr != nil {
		return nil, startErr
	}
	return ch, nil
}

func (g *generator) Describe(ctx context.Context, req DescribeRequest) (string, error) {
	if g.cfg.Provider != ProviderGemini {
		return "", fmt.Errorf("llmgateway: provider %q does not support multimodal describe", g.cfg.Provider)
	}
	if len(req.Data) == 0 {
		return "", fmt.Errorf("llmgateway: describe requires data")
	}
	instruction := strings.TrimSpace(req.Instruction)
	if instruction == "" {
		instruction = "Describe this file factually and concisely for use as search text."
	}
	body := geminiGenerateRequest{
		Contents: []geminiContent{{Parts: []geminiPart{
			{Text: instruction},
			{InlineData: &geminiInlineData{MimeType: req.MimeType, Data: base64.StdEncoding.EncodeToString(req.Data)}},
		}}},
		GenerationConfig: geminiGenerationConfig{Temperature: 0.2, MaxOutputTokens: g.cfg.MaxOutputTokens},
	}
	path := fmt.Sprintf("/v1beta/models/%s:generateContent?key=%s", g.cfg.Model, g.cfg.APIKey)
	var resp geminiGenerateResponse
	var out string
	err := retry.Do(ctx, g.policy, isRetryableUpstreamError, func(ctx context.Context) error {
		if err := g.postJSON(ctx, path, body, &resp); err != nil {
			return err
		}
		out = strings.TrimSpace(geminiText(resp.Candidates))
		return nil
	})
	return out, err
}

func (g *generator) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	url := strings.TrimRight(g.cfg.BaseURL, "/")
	if g.cfg.Provider == ProviderGemini {
		url += "/v1beta/models?key=" + g.cfg.APIKey
	} else {
		url += "/api/tags"
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := g.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("llm gateway unhealthy: status=%d", resp.StatusCode)
	}
	return nil
}

// --- Ollama ---

type ollamaGenerateRequest struct {
	Model   string  `json:"model"`
	Prompt  string  `json:"prompt"`
	Stream  bool    `json:"stream"`
	Options options `json:"options"`
}

type options struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaGenerateChunk struct {
	Response  string `json:"response"`
	Done      bool   `json:"done"`
	EvalCount int    `json:"eval_count"`
	PromptEvalCount int `json:"prompt_eval_count"`
}

func (g *generator) generateOllama(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	body := ollamaGenerateRequest{
		Model:  g.cfg.Model,
		Prompt: req.Prompt,
		Stream: false,
		Options: options{Temperature: req.Temperature, NumPredict: req.MaxOutputTokens},
	}
	var chunk ollamaGenerateChunk
	if err := g.postJSON(ctx, "/api/generate", body, &chunk); err != nil {
		return GenerateResponse{}, err
	}
	usage := estimatedUsage(req.Prompt, chunk.Response)
	if chunk.EvalCount > 0 || chunk.PromptEvalCount > 0 {
		usage = Usage{InputTokens: chunk.PromptEvalCount, OutputTokens: chunk.EvalCount, TotalTokens: chunk.PromptEvalCount + chunk.EvalCount}
	}
	return GenerateResponse{Text: chunk.Response, Usage: usage}, nil
}

func (g *generator) streamOllama(ctx context.Context, req GenerateRequest, ch chan<- StreamEvent) error {
	body := ollamaGenerateRequest{
		Model:  g.cfg.Model,
		Prompt: req.Prompt,
		Stream: true,
		Options: options{Temperature: req.Temperature, NumPredict: req.MaxOutputTokens},
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url("/api/generate"), bytes.NewReader(raw))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(httpReq)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		resp.Body.Close()
		return fmt.Errorf("ollama stream http status=%d", resp.StatusCode)
	}

	go func() {
		defer close(ch)
		defer resp.Body.Close()
		var full strings.Builder
		err := streamLines(resp.Body, func(line string) error {
			var chunk ollamaGenerateChunk
			if err := json.Unmarshal([]byte(line), &chunk); err != nil {
				return nil
			}
			if chunk.Response != "" {
				full.WriteString(chunk.Response)
				select {
				case ch <- StreamEvent{Delta: chunk.Response}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			if chunk.Done {
				usage := estimatedUsage(req.Prompt, full.String())
				if chunk.EvalCount > 0 {
					usage = Usage{InputTokens: chunk.PromptEvalCount, OutputTokens: chunk.EvalCount, TotalTokens: chunk.PromptEvalCount + chunk.EvalCount}
				}
				select {
				case ch <- StreamEvent{Done: true, Usage: &usage}:
				case <-ctx.Done():
				}
			}
			return nil
		})
		if err != nil && err != context.Canceled {
			select {
			case ch <- StreamEvent{Err: err}:
			default:
			}
		}
	}()
	return nil
}

// --- Gemini ---

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}
type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}
type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}
type geminiGenerateRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}
type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}
type geminiCandidate struct {
	Content geminiContent `json:"content"`
}
type geminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}
type geminiGenerateResponse struct {
	Candidates    []geminiCandidate    `json:"candidates"`
	UsageMetadata geminiUsageMetadata  `json:"usageMetadata"`
}

func (g *generator) generateGemini(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	body := geminiGenerateRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: req.Prompt}}}},
		GenerationConfig: geminiGenerationConfig{Temperature: req.Temperature, MaxOutputTokens: req.MaxOutputTokens},
	}
	path := fmt.Sprintf("/v1beta/models/%s:generateContent?key=%s", g.cfg.Model, g.cfg.APIKey)
	var resp geminiGenerateResponse
	if err := g.postJSON(ctx, path, body, &resp); err != nil {
		return GenerateResponse{}, err
	}
	text := geminiText(resp.Candidates)
	usage := estimatedUsage(req.Prompt, text)
	if resp.UsageMetadata.TotalTokenCount > 0 {
		usage = Usage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  resp.UsageMetadata.TotalTokenCount,
		}
	}
	return GenerateResponse{Text: text, Usage: usage}, nil
}

func (g *generator) streamGemini(ctx context.Context, req GenerateRequest, ch chan<- StreamEvent) error {
	body := geminiGenerateRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: req.Prompt}}}},
		GenerationConfig: geminiGenerationConfig{Temperature: req.Temperature, MaxOutputTokens: req.MaxOutputTokens},
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/v1beta/models/%s:streamGenerateContent?alt=sse&key=%s", g.cfg.Model, g.cfg.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url(path), bytes.NewReader(raw))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(httpReq)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		resp.Body.Close()
		return fmt.Errorf("gemini stream http status=%d", resp.StatusCode)
	}

	go func() {
		defer close(ch)
		defer resp.Body.Close()
		var full strings.Builder
		var lastUsage geminiUsageMetadata
		err := streamLines(resp.Body, func(line string) error {
			var chunk geminiGenerateResponse
			if err := json.Unmarshal([]byte(line), &chunk); err != nil {
				return nil
			}
			delta := geminiText(chunk.Candidates)
			if chunk.UsageMetadata.TotalTokenCount > 0 {
				lastUsage = chunk.UsageMetadata
			}
			if delta != "" {
				full.WriteString(delta)
				select {
				case ch <- StreamEvent{Delta: delta}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
		if err != nil && err != context.Canceled {
			select {
			case ch <- StreamEvent{Err: err}:
			default:
			}
			return
		}
		usage := estimatedUsage(req.Prompt, full.String())
		if lastUsage.TotalTokenCount > 0 {
			usage = Usage{InputTokens: lastUsage.PromptTokenCount, OutputTokens: lastUsage.CandidatesTokenCount, TotalTokens: lastUsage.TotalTokenCount}
		}
		select {
		case ch <- StreamEvent{Done: true, Usage: &usage}:
		case <-ctx.Done():
		}
	}()
	return nil
}

func geminiText(candidates []geminiCandidate) string {
	if len(candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return b.String()
}

func (g *generator) url(path string) string {
	return strings.TrimRight(g.cfg.BaseURL, "/") + path
}

func (g *generator) postJSON(ctx context.Context, path string, in, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url(path), bytes.NewReader(raw))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("llm gateway http status=%d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func isRetryableUpstreamError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "status=429") || strings.Contains(msg, "status=5") || strings.Contains(msg, "context deadline exceeded")
}
