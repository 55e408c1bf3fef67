package similarity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"
)

// DefaultEmbeddingURL is the OpenAI embeddings endpoint
const DefaultEmbeddingURL = "https://api.openai.com/v1/embeddings"

// EmbeddingConfig configures an EmbeddingOracle
type EmbeddingConfig struct {
	URL     string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// EmbeddingOracle scores words by the cosine similarity of their embeddings
type EmbeddingOracle struct {
	cfg    EmbeddingConfig
	client *http.Client
	logger *slog.Logger
}

// NewEmbeddingOracle creates an EmbeddingOracle
func NewEmbeddingOracle(cfg EmbeddingConfig, logger *slog.Logger) (*EmbeddingOracle, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("embedding API key is not configured")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("embedding model is not configured")
	}
	if cfg.URL == "" {
		cfg.URL = DefaultEmbeddingURL
	}
	return &EmbeddingOracle{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(slog.String("component", "similarity-embedding")),
	}, nil
}

// Ensure EmbeddingOracle implements Oracle
var _ Oracle = (*EmbeddingOracle)(nil)

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Similarity embeds both words in one request and returns their cosine
// similarity clamped to [0, 1]
func (o *EmbeddingOracle) Similarity(ctx context.Context, a, b string) (float64, error) {
	a, b = Normalize(a), Normalize(b)
	if a == "" || b == "" {
		return 0, nil
	}
	if a == b {
		return 1, nil
	}

	vectors, err := o.embed(ctx, []string{a, b})
	if err != nil {
		o.logger.Warn("embedding request failed", slog.String("error", err.Error()))
		return 0, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	return clamp(cosineSimilarity(vectors[0], vectors[1])), nil
}

func (o *EmbeddingOracle) embed(ctx context.Context, inputs []string) ([][]float32, error) {
	payload, err := json.Marshal(embeddingRequest{Model: o.cfg.Model, Input: inputs})
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(o.cfg.APIKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed embeddingResponse
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if json.Unmarshal(body, &parsed) == nil && parsed.Error != nil && parsed.Error.Message != "" {
			return nil, fmt.Errorf("request failed (%d): %s", resp.StatusCode, parsed.Error.Message)
		}
		return nil, fmt.Errorf("request failed (%d)", resp.StatusCode)
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if len(parsed.Data) != len(inputs) {
		return nil, errors.New("response count mismatch")
	}

	out := make([][]float32, len(inputs))
	for _, item := range parsed.Data {
		if item.Index < 0 || item.Index >= len(inputs) {
			return nil, errors.New("response index out of range")
		}
		out[item.Index] = item.Embedding
	}
	for i := range out {
		if len(out[i]) == 0 {
			return nil, errors.New("missing embedding in response")
		}
	}
	return out, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		ai, bi := float64(a[i]), float64(b[i])
		dot += ai * bi
		normA += ai * ai
		normB += bi * bi
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
