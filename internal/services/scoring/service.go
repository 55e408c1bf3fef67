package scoring

import "github.com/mcoot/shadowtag/internal/model"

// Service derives team statistics and decides winners
type Service struct{}

// New creates a new ScoringService
func New() *Service {
	return &Service{}
}

// NewStats returns zeroed stats for both teams
func NewStats() map[model.Team]model.TeamStats {
	stats := make(map[model.Team]model.TeamStats, len(model.Teams))
	for _, team := range model.Teams {
		stats[team] = model.TeamStats{}
	}
	return stats
}

// RecordMatch credits the guessing team for one matched image.
// Own-colour matches count as correct and add to the team's similarity total;
// anything else counts as incorrect.
func (s *Service) RecordMatch(room *model.Room, guessingTeam model.Team, img *model.Image) {
	if room.Stats == nil {
		room.Stats = NewStats()
	}
	stats := room.Stats[guessingTeam]
	if img.Team == model.ImageTeamOf(guessingTeam) {
		stats.CorrectGuesses++
		stats.TotalSimilarity += img.Similarity
	} else {
		stats.IncorrectGuesses++
	}
	room.Stats[guessingTeam] = stats
}

// Refresh recomputes each team's matches and average similarity from the
// images of that team's colour that have been matched, by whoever matched them
func (s *Service) Refresh(room *model.Room) {
	if room.Stats == nil {
		room.Stats = NewStats()
	}
	for _, team := range model.Teams {
		var matches int
		var total float64
		for _, img := range room.Images {
			if img.Matched && img.Team == model.ImageTeamOf(team) {
				matches++
				total += img.Similarity
			}
		}
		stats := room.Stats[team]
		stats.Matches = matches
		stats.AverageSimilarity = 0
		if matches > 0 {
			stats.AverageSimilarity = total / float64(matches)
		}
		room.Stats[team] = stats
	}
}

// DetermineWinner returns the team with more matches, or failing that the
// strictly higher average similarity. Returns nil on a tie.
func (s *Service) DetermineWinner(stats map[model.Team]model.TeamStats) *model.Team {
	green, purple := stats[model.TeamGreen], stats[model.TeamPurple]

	var winner model.Team
	switch {
	case green.Matches > purple.Matches:
		winner = model.TeamGreen
	case purple.Matches > green.Matches:
		winner = model.TeamPurple
	case green.AverageSimilarity > purple.AverageSimilarity:
		winner = model.TeamGreen
	case purple.AverageSimilarity > green.AverageSimilarity:
		winner = model.TeamPurple
	default:
		return nil
	}
	return &winner
}
