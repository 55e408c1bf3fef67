package session

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/mcoot/shadowtag/internal/model"
	"github.com/mcoot/shadowtag/internal/services/scoring"
)

// member returns the acting player or ErrPlayerNotInRoom
func (s *Session) member(id model.PlayerID) (*model.Player, error) {
	p := s.room.GetPlayer(id)
	if p == nil {
		return nil, model.ErrPlayerNotInRoom
	}
	return p, nil
}

// admin returns the acting player if they are the room admin
func (s *Session) admin(id model.PlayerID) (*model.Player, error) {
	p, err := s.member(id)
	if err != nil {
		return nil, err
	}
	if !p.IsRoomAdmin {
		return nil, model.ErrNotAdmin
	}
	return p, nil
}

func (s *Session) requirePhase(phase model.Phase) error {
	if s.room.Phase != phase {
		return model.ErrInvalidPhaseAction
	}
	return nil
}

func (s *Session) handleJoin(player model.Player) (model.Snapshot, error) {
	player.Nickname = strings.TrimSpace(player.Nickname)
	if player.ID == "" || player.Nickname == "" || utf8.RuneCountInString(player.Nickname) > s.cfg.MaxNicknameLength {
		return model.Snapshot{}, model.ErrInvalidPlayer
	}

	if existing := s.room.GetPlayer(player.ID); existing != nil {
		existing.Nickname = player.Nickname
		s.logger.Info("player reconnected", slog.String("player_id", string(player.ID)))
		s.commit("join-room", player.ID)
		return s.Snapshot(), nil
	}

	if err := s.requirePhase(model.PhaseLobby); err != nil {
		return model.Snapshot{}, model.ErrJoinInProgress
	}

	team := player.Team
	if !team.Valid() {
		team = s.smallestTeam()
	}
	role := model.RoleTagger
	if player.Role == model.RoleCodebreaker && s.room.GetCodebreaker(team) == nil {
		role = model.RoleCodebreaker
	}

	s.room.Players = append(s.room.Players, model.Player{
		ID:          player.ID,
		Nickname:    player.Nickname,
		Team:        team,
		Role:        role,
		IsRoomAdmin: len(s.room.Players) == 0,
		RoomID:      s.id,
		JoinedAt:    s.clock.Now(),
	})

	s.logger.Info("player joined",
		slog.String("player_id", string(player.ID)),
		slog.String("team", string(team)),
		slog.String("role", string(role)),
	)
	s.commit("join-room", player.ID)
	return s.Snapshot(), nil
}

// smallestTeam returns the team with fewer players, green on a tie
func (s *Session) smallestTeam() model.Team {
	counts := make(map[model.Team]int)
	for _, p := range s.room.Players {
		counts[p.Team]++
	}
	if counts[model.TeamPurple] < counts[model.TeamGreen] {
		return model.TeamPurple
	}
	return model.TeamGreen
}

func (s *Session) handleLeave(actor model.PlayerID) error {
	p, err := s.member(actor)
	if err != nil {
		return err
	}
	wasAdmin := p.IsRoomAdmin

	for i := range s.room.Players {
		if s.room.Players[i].ID == actor {
			s.room.Players = append(s.room.Players[:i], s.room.Players[i+1:]...)
			break
		}
	}

	// Earliest remaining player inherits admin
	if wasAdmin && len(s.room.Players) > 0 {
		s.room.Players[0].IsRoomAdmin = true
	}

	s.logger.Info("player left", slog.String("player_id", string(actor)))
	s.commit("leave-room", actor)
	return nil
}

func (s *Session) handleSwitchTeam(actor, target model.PlayerID, team model.Team) error {
	actorPlayer, err := s.member(actor)
	if err != nil {
		return err
	}
	if err := s.requirePhase(model.PhaseLobby); err != nil {
		return err
	}
	if actor != target && !actorPlayer.IsRoomAdmin {
		return model.ErrNotSelfOrAdmin
	}
	if !team.Valid() {
		return model.ErrInvalidTeam
	}
	targetPlayer := s.room.GetPlayer(target)
	if targetPlayer == nil {
		return model.ErrPlayerNotInRoom
	}

	if targetPlayer.Team != team {
		if targetPlayer.Role == model.RoleCodebreaker && s.room.GetCodebreaker(team) != nil {
			targetPlayer.Role = model.RoleTagger
		}
		targetPlayer.Team = team
	}

	s.commit("switch-team", actor)
	return nil
}

func (s *Session) handleSetRole(actor, target model.PlayerID, role model.Role) error {
	if _, err := s.admin(actor); err != nil {
		return err
	}
	if err := s.requirePhase(model.PhaseLobby); err != nil {
		return err
	}
	if !role.Valid() {
		return model.ErrInvalidRole
	}
	targetPlayer := s.room.GetPlayer(target)
	if targetPlayer == nil {
		return model.ErrPlayerNotInRoom
	}

	// One codebreaker per team
	if role == model.RoleCodebreaker {
		if current := s.room.GetCodebreaker(targetPlayer.Team); current != nil && current.ID != target {
			current.Role = model.RoleTagger
		}
	}
	targetPlayer.Role = role

	s.commit("set-role", actor)
	return nil
}

func (s *Session) handleStart(actor model.PlayerID) error {
	if _, err := s.admin(actor); err != nil {
		return err
	}
	if err := s.requirePhase(model.PhaseLobby); err != nil {
		return err
	}

	s.enterDescription()
	s.commit("start-game", actor)
	return nil
}

func (s *Session) handleChangePhase(actor model.PlayerID, phase model.Phase, skip bool) error {
	if _, err := s.member(actor); err != nil {
		return err
	}
	if !phase.Valid() {
		return model.ErrInvalidPhase
	}
	if !skip {
		return model.ErrTimerAuthority
	}
	if _, err := s.admin(actor); err != nil {
		return err
	}
	next, ok := s.room.Phase.Next()
	if !ok || phase != next {
		return model.ErrInvalidSkip
	}

	s.logger.Info("phase skipped", slog.String("player_id", string(actor)), slog.String("phase", string(phase)))
	s.transition(next)
	s.commit("phase-change", actor)
	return nil
}

func (s *Session) handleAddDescription(actor model.PlayerID, imageID model.ImageID, text string) error {
	p, err := s.member(actor)
	if err != nil {
		return err
	}
	if err := s.requirePhase(model.PhaseDescription); err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" || utf8.RuneCountInString(text) > s.cfg.MaxDescriptionLength {
		return fmt.Errorf("%w (at most %d characters)", model.ErrInvalidDescription, s.cfg.MaxDescriptionLength)
	}
	img := s.room.GetImage(imageID)
	if img == nil {
		return model.ErrImageNotFound
	}

	desc := model.Description{Text: text, PlayerID: p.ID, PlayerNickname: p.Nickname}
	if idx := img.DescriptionBy(actor); idx >= 0 {
		img.Descriptions[idx] = desc
	} else {
		img.Descriptions = append(img.Descriptions, desc)
	}

	s.commit("add-description", actor)
	return nil
}

func (s *Session) handleRemoveDescription(actor model.PlayerID, imageID model.ImageID) error {
	if _, err := s.member(actor); err != nil {
		return err
	}
	if err := s.requirePhase(model.PhaseDescription); err != nil {
		return err
	}
	img := s.room.GetImage(imageID)
	if img == nil {
		return model.ErrImageNotFound
	}
	idx := img.DescriptionBy(actor)
	if idx < 0 {
		return model.ErrDescriptionNotFound
	}
	img.Descriptions = append(img.Descriptions[:idx], img.Descriptions[idx+1:]...)

	s.commit("remove-description", actor)
	return nil
}

func (s *Session) handleReset(actor model.PlayerID) error {
	if _, err := s.admin(actor); err != nil {
		return err
	}
	if err := s.requirePhase(model.PhaseGameOver); err != nil {
		return err
	}

	images, err := s.board.Generate(s.runCtx)
	if err != nil {
		return err
	}

	s.stopTimer()
	s.discardPending(model.ErrGuessDiscarded)
	s.room.Phase = model.PhaseLobby
	s.room.Images = images
	s.room.CurrentTurn = model.TeamGreen
	s.room.TimeRemaining = s.cfg.DescriptionDuration
	s.room.Winner = nil
	s.room.Stats = scoring.NewStats()
	s.room.LastGuess = nil
	s.room.Round++

	s.logger.Info("game reset", slog.Int("round", s.room.Round))
	s.commit("reset-game", actor)
	return nil
}

// transition moves the room into phase, running its entry actions
func (s *Session) transition(phase model.Phase) {
	switch phase {
	case model.PhaseDescription:
		s.enterDescription()
	case model.PhaseGuessing:
		s.enterGuessing()
	case model.PhaseGameOver:
		s.enterGameOver()
	}
}

func (s *Session) enterDescription() {
	for i := range s.room.Images {
		img := &s.room.Images[i]
		img.Selected = false
		img.Matched = false
		img.MatchedWord = ""
		img.MatchedDescription = nil
		img.Similarity = 0
	}
	s.room.Phase = model.PhaseDescription
	s.startTimer(s.cfg.DescriptionDuration)
	s.logger.Info("description phase started")
}

func (s *Session) enterGuessing() {
	for i := range s.room.Images {
		s.room.Images[i].Selected = false
	}
	s.room.Phase = model.PhaseGuessing
	s.room.CurrentTurn = model.TeamGreen
	s.startTimer(s.cfg.GuessingDuration)
	s.logger.Info("guessing phase started")
}

func (s *Session) enterGameOver() {
	s.stopTimer()
	s.discardPending(model.ErrGuessDiscarded)
	s.room.Phase = model.PhaseGameOver
	s.scoring.Refresh(s.room)
	s.room.Winner = s.scoring.DetermineWinner(s.room.Stats)

	winner := "tie"
	if s.room.Winner != nil {
		winner = string(*s.room.Winner)
	}
	s.logger.Info("game over", slog.String("winner", winner))
}
