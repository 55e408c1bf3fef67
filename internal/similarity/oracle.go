// Package similarity scores how semantically close two words are.
package similarity

import (
	"context"
	"errors"
	"strings"
)

// ErrOracleUnavailable is returned when a score could not be obtained.
// Callers treat it as a zero score rather than failing the guess.
var ErrOracleUnavailable = errors.New("similarity oracle unavailable")

// Oracle returns a similarity score in [0, 1] for two words
type Oracle interface {
	Similarity(ctx context.Context, a, b string) (float64, error)
}

// OracleFunc adapts a function to the Oracle interface
type OracleFunc func(ctx context.Context, a, b string) (float64, error)

// Similarity calls f(ctx, a, b)
func (f OracleFunc) Similarity(ctx context.Context, a, b string) (float64, error) {
	return f(ctx, a, b)
}

// Normalize lowercases and trims a word before it is scored
func Normalize(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

func clamp(score float64) float64 {
	switch {
	case score != score: // NaN
		return 0
	case score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}
