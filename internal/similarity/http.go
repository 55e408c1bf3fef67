package similarity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// HTTPOracle calls a word-vector similarity service:
// POST {baseURL}/calculate-similarity {"word1","word2"} -> {"similarity"}
type HTTPOracle struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPOracle creates an oracle for the service at baseURL
func NewHTTPOracle(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPOracle {
	return &HTTPOracle{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With(slog.String("component", "similarity-http")),
	}
}

// Ensure HTTPOracle implements Oracle
var _ Oracle = (*HTTPOracle)(nil)

type similarityRequest struct {
	Word1 string `json:"word1"`
	Word2 string `json:"word2"`
}

type similarityResponse struct {
	Similarity float64 `json:"similarity"`
}

// Similarity asks the service for a score. Any transport failure, non-2xx
// status or undecodable body is reported as ErrOracleUnavailable.
func (o *HTTPOracle) Similarity(ctx context.Context, a, b string) (float64, error) {
	payload, err := json.Marshal(similarityRequest{Word1: Normalize(a), Word2: Normalize(b)})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/calculate-similarity", bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		o.logger.Debug("similarity request rejected",
			slog.Int("status", resp.StatusCode),
			slog.String("word1", a),
			slog.String("word2", b),
		)
		return 0, fmt.Errorf("%w: status %d", ErrOracleUnavailable, resp.StatusCode)
	}

	var parsed similarityResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("%w: decode response: %v", ErrOracleUnavailable, err)
	}
	return clamp(parsed.Similarity), nil
}
