package session

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/mcoot/shadowtag/internal/model"
	"github.com/mcoot/shadowtag/internal/services/resolver"
)

// pendingGuess is a guess whose scoring is running off the session goroutine
type pendingGuess struct {
	seq   int
	actor model.PlayerID
	team  model.Team
	phase model.Phase
	round int
	word  string
	count int
	reply chan<- result
}

type guessOutcome struct {
	seq    int
	result *resolver.Result
	err    error
}

func (s *Session) beginGuess(actor model.PlayerID, word string, count int, reply chan<- result) error {
	p, err := s.member(actor)
	if err != nil {
		return err
	}
	if err := s.requirePhase(model.PhaseGuessing); err != nil {
		return err
	}
	if p.Team != s.room.CurrentTurn {
		return model.ErrNotYourTurn
	}
	if p.Role != model.RoleCodebreaker {
		return model.ErrNotCodebreaker
	}
	if s.room.Resolving {
		return model.ErrGuessInProgress
	}
	word = strings.TrimSpace(word)
	if word == "" || strings.ContainsFunc(word, unicode.IsSpace) {
		return model.ErrInvalidWord
	}
	if count < s.cfg.MinGuessCount || count > s.cfg.MaxGuessCount {
		return model.ErrInvalidGuessCount
	}

	s.guessSeq++
	s.pending = &pendingGuess{
		seq:   s.guessSeq,
		actor: actor,
		team:  p.Team,
		phase: s.room.Phase,
		round: s.room.Round,
		word:  word,
		count: count,
		reply: reply,
	}
	s.room.Resolving = true

	req := resolver.Request{
		Word:   word,
		Count:  count,
		Team:   p.Team,
		Images: s.room.UnmatchedImages(),
	}
	seq := s.guessSeq
	runCtx := s.runCtx
	go func() {
		ctx, cancel := context.WithTimeout(runCtx, s.cfg.ResolveTimeout)
		defer cancel()
		res, err := s.resolver.Resolve(ctx, req)
		if runCtx.Err() != nil {
			// The resolve deadline alone only degrades scores
			err = model.ErrSessionClosed
		}

		select {
		case s.resolved <- guessOutcome{seq: seq, result: res, err: err}:
		case <-s.done:
		}
	}()

	s.logger.Info("guess submitted",
		slog.String("player_id", string(actor)),
		slog.String("team", string(p.Team)),
		slog.String("word", word),
		slog.Int("count", count),
	)
	s.commit("submit-guess", actor)
	return nil
}

// discardPending fails any in-flight guess; its late outcome will be ignored
func (s *Session) discardPending(err error) {
	if s.pending == nil {
		return
	}
	s.pending.reply <- result{err: err}
	s.pending = nil
	s.room.Resolving = false
}

func (s *Session) applyGuess(outcome guessOutcome) {
	p := s.pending
	if p == nil || p.seq != outcome.seq {
		s.logger.Debug("stale guess outcome ignored", slog.Int("seq", outcome.seq))
		return
	}
	s.pending = nil
	s.room.Resolving = false

	if outcome.err != nil {
		p.reply <- result{err: outcome.err}
		s.commit("guess-failed", p.actor)
		return
	}
	if s.room.Phase != p.phase || s.room.CurrentTurn != p.team || s.room.Round != p.round {
		p.reply <- result{err: model.ErrGuessDiscarded}
		s.commit("guess-discarded", p.actor)
		return
	}

	res := outcome.result
	for i := range s.room.Images {
		s.room.Images[i].Selected = false
	}

	record := &model.GuessRecord{
		Team:         p.team,
		PlayerID:     p.actor,
		Word:         res.Word,
		Count:        p.count,
		Matches:      []model.ImageID{},
		HitWrongTeam: res.HitWrongTeam,
		Degraded:     res.Degraded,
	}
	guessResult := &model.GuessResult{
		Word:         res.Word,
		Count:        p.count,
		Matches:      []model.ImageID{},
		Scores:       []float64{},
		HitWrongTeam: res.HitWrongTeam,
		Degraded:     res.Degraded,
	}

	for _, m := range res.Matches {
		img := s.room.GetImage(m.ImageID)
		if img == nil || img.Matched {
			continue
		}
		img.Matched = true
		img.Selected = true
		img.MatchedWord = res.Word
		img.Similarity = m.Score
		if m.Description != nil {
			d := *m.Description
			img.MatchedDescription = &d
		}
		s.scoring.RecordMatch(s.room, p.team, img)

		record.Matches = append(record.Matches, img.ID)
		guessResult.Matches = append(guessResult.Matches, img.ID)
		guessResult.Scores = append(guessResult.Scores, m.Score)
	}
	s.room.LastGuess = record
	s.scoring.Refresh(s.room)

	if s.room.TargetsExhausted() {
		s.enterGameOver()
		guessResult.GameOver = true
	} else {
		s.room.CurrentTurn = p.team.Opponent()
	}

	s.logger.Info("guess resolved",
		slog.String("player_id", string(p.actor)),
		slog.String("word", res.Word),
		slog.Int("matched", len(record.Matches)),
		slog.Bool("hit_wrong_team", res.HitWrongTeam),
		slog.Int("degraded", res.Degraded),
	)
	p.reply <- result{value: guessResult}
	s.commit("guess-resolved", p.actor)
}
