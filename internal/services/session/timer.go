package session

import (
	"log/slog"

	"github.com/mcoot/shadowtag/internal/model"
)

// startTimer resets the countdown, replacing any running ticker
func (s *Session) startTimer(units int) {
	s.stopTimer()
	s.room.TimeRemaining = units
	s.tickCount = 0
	s.ticker = s.clock.NewTicker(s.cfg.TickInterval)
}

func (s *Session) stopTimer() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
}

func (s *Session) onTick() {
	if !s.room.Phase.Timed() {
		s.stopTimer()
		return
	}

	s.room.TimeRemaining--
	s.tickCount++

	if s.room.TimeRemaining <= 0 {
		s.room.TimeRemaining = 0
		s.stopTimer()
		s.expire(s.room.Phase)
		return
	}

	if s.tickCount%s.cfg.BroadcastEveryTicks == 0 {
		s.commit("tick", "")
	}
}

// expire forces the transition out of phase. Repeated or late calls for a
// phase the room has already left do nothing.
func (s *Session) expire(phase model.Phase) {
	if s.room.Phase != phase || !phase.Timed() {
		return
	}
	next, _ := phase.Next()

	s.logger.Info("phase expired", slog.String("phase", string(phase)))
	s.room.TimeRemaining = 0
	s.transition(next)
	s.commit("timer-expired", "")
}
