// Package similaritytest provides a scripted oracle for tests.
package similaritytest

import (
	"context"
	"sync"

	"github.com/mcoot/shadowtag/internal/similarity"
	"github.com/mcoot/shadowtag/internal/storage"
)

// StubOracle is a scripted similarity oracle.
// Scores are looked up by unordered normalized pair; unknown pairs score 0.
type StubOracle struct {
	mu     sync.Mutex
	scores map[string]float64
	fail   map[string]bool
	calls  int

	// Gate, when set, blocks every call until it is closed or ctx ends
	Gate chan struct{}
}

// NewStubOracle creates an empty StubOracle
func NewStubOracle() *StubOracle {
	return &StubOracle{
		scores: make(map[string]float64),
		fail:   make(map[string]bool),
	}
}

// Set scripts the score for a pair
func (o *StubOracle) Set(a, b string, score float64) *StubOracle {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.scores[storage.PairKey(similarity.Normalize(a), similarity.Normalize(b))] = score
	return o
}

// Fail makes calls for a pair return ErrOracleUnavailable
func (o *StubOracle) Fail(a, b string) *StubOracle {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fail[storage.PairKey(similarity.Normalize(a), similarity.Normalize(b))] = true
	return o
}

// Calls returns how many times Similarity has been called
func (o *StubOracle) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

// Similarity implements similarity.Oracle
func (o *StubOracle) Similarity(ctx context.Context, a, b string) (float64, error) {
	o.mu.Lock()
	o.calls++
	gate := o.Gate
	o.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return 0, similarity.ErrOracleUnavailable
		}
	}

	key := storage.PairKey(similarity.Normalize(a), similarity.Normalize(b))
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail[key] {
		return 0, similarity.ErrOracleUnavailable
	}
	return o.scores[key], nil
}
