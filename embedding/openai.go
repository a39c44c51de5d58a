package embedding

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

const (
	defaultAPIBase   = "https://api.openai.com/v1"
	defaultModel     = "text-embedding-3-small"
	defaultDimension = 1536
	defaultTimeout   = 30 * time.Second
)

// OpenAI calls an OpenAI-compatible /embeddings endpoint. Any service that
// speaks the same wire format (Azure OpenAI, vLLM, Ollama with the openai
// compat layer) works by pointing APIBase at it.
type OpenAI struct {
	apiBase   string
	apiKey    string
	model     string
	dimension int
	client    *http.Client
}

var _ Embedder = (*OpenAI)(nil)

type OpenAIConfig struct {
	APIBase   string // "" => api.openai.com/v1
	APIKey    string
	Model     string // "" => text-embedding-3-small
	Dimension int    // 0 => 1536
	Client    *http.Client
}

func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding: api key is required")
	}
	e := &OpenAI{
		apiBase:   cfg.APIBase,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		dimension: cfg.Dimension,
		client:    cfg.Client,
	}
	if e.apiBase == "" {
		e.apiBase = defaultAPIBase
	}
	if e.model == "" {
		e.model = defaultModel
	}
	if e.dimension <= 0 {
		e.dimension = defaultDimension
	}
	if e.client == nil {
		e.client = &http.Client{Timeout: defaultTimeout}
	}
	return e, nil
}

func (e *OpenAI) Model() string  { return e.model }
func (e *OpenAI) Dimension() int { return e.dimension }

func (e *OpenAI) Embed(ctx context.Context, text string) ([]float64, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (e *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(embeddingRequest{Input: texts, Model: e.model})
	if err != nil {
		return nil, fmt.Errorf("embedding: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.apiBase+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("embedding: read response: %w", err)
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("embedding: decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return nil, fmt.Errorf("embedding: %s (status %d)", parsed.Error.Message, resp.StatusCode)
		}
		return nil, fmt.Errorf("embedding: unexpected status %d", resp.StatusCode)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("embedding: got %d vectors for %d inputs", len(parsed.Data), len(texts))
	}

	out := make([][]float64, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embedding: out-of-range index %d in response", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
