package resolver

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mcoot/shadowtag/internal/model"
	"github.com/mcoot/shadowtag/internal/similarity"
)

// DefaultConcurrency bounds in-flight oracle calls per guess
const DefaultConcurrency = 8

// Request is one guess to be scored against the board
type Request struct {
	Word   string
	Count  int
	Team   model.Team
	Images []model.Image // Unmatched images in board order
}

// Scored is an image's best score for a guess
type Scored struct {
	ImageID     model.ImageID
	Team        model.ImageTeam
	Score       float64
	Description *model.Description // Best matching description, nil if none
	BoardIndex  int
}

// Result is the outcome of resolving a guess
type Result struct {
	Word         string   // Normalized guess word
	Ranked       []Scored // Every candidate, best first
	Matches      []Scored // Images that become matched
	HitWrongTeam bool     // The top candidate was not the guessing team's colour
	Degraded     int      // Oracle calls that failed and scored 0
}

// Service scores guesses using a similarity oracle
type Service struct {
	oracle      similarity.Oracle
	concurrency int
	logger      *slog.Logger
}

// New creates a new resolver Service
func New(oracle similarity.Oracle, concurrency int, logger *slog.Logger) *Service {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Service{
		oracle:      oracle,
		concurrency: concurrency,
		logger:      logger.With(slog.String("component", "resolver")),
	}
}

// Resolve scores every candidate image and selects the matches.
// Oracle failures score 0 and are counted in Result.Degraded. When ctx ends
// first, calls still outstanding are treated the same way and ranking uses
// the scores collected so far.
func (s *Service) Resolve(ctx context.Context, req Request) (*Result, error) {
	if req.Count < 1 {
		return nil, model.ErrInvalidGuessCount
	}
	word := similarity.Normalize(req.Word)

	scores, degraded := s.scoreAll(ctx, word, req.Images)

	ranked := make([]Scored, len(req.Images))
	for i, img := range req.Images {
		ranked[i] = Scored{ImageID: img.ID, Team: img.Team, BoardIndex: i}
		for j := range img.Descriptions {
			// Strictly greater keeps the first description on ties
			if ranked[i].Description == nil || scores[i][j] > ranked[i].Score {
				d := img.Descriptions[j]
				ranked[i].Description = &d
				ranked[i].Score = scores[i][j]
			}
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Score > ranked[b].Score
	})

	result := &Result{
		Word:     word,
		Ranked:   ranked,
		Degraded: degraded,
	}
	if len(ranked) == 0 {
		return result, nil
	}

	if ranked[0].Team != model.ImageTeamOf(req.Team) {
		result.HitWrongTeam = true
		result.Matches = ranked[:1]
		return result, nil
	}

	k := min(req.Count, len(ranked))
	result.Matches = ranked[:k]
	return result, nil
}

// scoreAll fans out one oracle call per (image, description) pair.
// scores[i][j] is the score of image i against its description j. It
// returns when every call has finished or ctx ends, whichever is first;
// results arriving after that are dropped.
func (s *Service) scoreAll(ctx context.Context, word string, images []model.Image) ([][]float64, int) {
	var (
		mu     sync.Mutex
		closed bool
	)
	scores := make([][]float64, len(images))
	done := make([][]bool, len(images))
	for i, img := range images {
		scores[i] = make([]float64, len(img.Descriptions))
		done[i] = make([]bool, len(img.Descriptions))
	}

	finished := make(chan struct{})
	go func() {
		defer close(finished)

		var g errgroup.Group
		g.SetLimit(s.concurrency)
		for i, img := range images {
			for j, desc := range img.Descriptions {
				if ctx.Err() != nil {
					break
				}
				g.Go(func() error {
					score, err := s.oracle.Similarity(ctx, word, similarity.Normalize(desc.Text))
					if err != nil {
						s.logger.Warn("similarity lookup failed, scoring 0",
							slog.String("image_id", string(img.ID)),
							slog.String("word", word),
							slog.String("error", err.Error()),
						)
						return nil
					}
					mu.Lock()
					defer mu.Unlock()
					if !closed {
						scores[i][j] = score
						done[i][j] = true
					}
					return nil
				})
			}
		}
		_ = g.Wait()
	}()

	select {
	case <-finished:
	case <-ctx.Done():
		s.logger.Warn("similarity lookups timed out, scoring the rest 0",
			slog.String("word", word),
			slog.String("error", ctx.Err().Error()),
		)
	}

	mu.Lock()
	defer mu.Unlock()
	closed = true

	degraded := 0
	for i := range done {
		for j := range done[i] {
			if !done[i][j] {
				scores[i][j] = 0
				degraded++
			}
		}
	}
	return scores, degraded
}
