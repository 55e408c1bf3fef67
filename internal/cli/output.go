package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	out    io.Writer
	errOut io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, out, errOut io.Writer) *Output {
	return &Output{format: format, out: out, errOut: errOut}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(o.errOut, string(data))
	} else {
		fmt.Fprintf(o.errOut, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.out, string(data))
	} else {
		fmt.Fprintln(o.out, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Room:
		o.printRoom(v)
	case RoomList:
		o.printRoomList(v)
	case CreatedRoom:
		fmt.Fprintf(o.out, "Room created: %s\n", v.RoomID)
	case GuessResult:
		o.printGuessResult(v)
	case PlayerInfo:
		fmt.Fprintf(o.out, "Player: %s\n", v.PlayerID)
		fmt.Fprintf(o.out, "Player file: %s\n", v.PlayerFile)
	case HealthResult:
		fmt.Fprintf(o.out, "Status: %s\n", v.Status)
		fmt.Fprintf(o.out, "Rooms: %d\n", v.Rooms)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Player response type (matches API)
type Player struct {
	ID          string `json:"id"`
	Nickname    string `json:"nickname"`
	Team        string `json:"team"`
	Role        string `json:"role"`
	IsRoomAdmin bool   `json:"isRoomAdmin"`
}

// Description response type
type Description struct {
	Text           string `json:"text"`
	PlayerID       string `json:"playerId"`
	PlayerNickname string `json:"playerNickname"`
}

// Image response type
type Image struct {
	ID           string        `json:"id"`
	URL          string        `json:"url"`
	Team         string        `json:"team"`
	Descriptions []Description `json:"tags"`
	Matched      bool          `json:"matched"`
	MatchedWord  string        `json:"matchedWord"`
	Similarity   float64       `json:"similarity"`
	Selected     bool          `json:"selected"`
}

// TeamStats response type
type TeamStats struct {
	Matches           int     `json:"matches"`
	AverageSimilarity float64 `json:"avgSimilarity"`
	CorrectGuesses    int     `json:"correctGuesses"`
	IncorrectGuesses  int     `json:"incorrectGuesses"`
}

// GuessRecord response type
type GuessRecord struct {
	Team         string   `json:"team"`
	PlayerID     string   `json:"playerId"`
	Word         string   `json:"word"`
	Count        int      `json:"count"`
	Matches      []string `json:"matches"`
	HitWrongTeam bool     `json:"hitWrongTeam"`
	Degraded     int      `json:"degraded"`
}

// Room is the room snapshot as the acting player sees it
type Room struct {
	RoomID        string               `json:"roomId"`
	Phase         string               `json:"phase"`
	Players       []Player             `json:"players"`
	Images        []Image              `json:"images"`
	CurrentTurn   string               `json:"currentTurn"`
	TimeRemaining int                  `json:"timeRemaining"`
	Winner        *string              `json:"winner"`
	GameStats     map[string]TeamStats `json:"gameStats"`
	Resolving     bool                 `json:"resolving"`
	LastGuess     *GuessRecord         `json:"lastGuess,omitempty"`
	Round         int                  `json:"round"`
}

// RoomSummary response type
type RoomSummary struct {
	RoomID  string `json:"roomId"`
	Phase   string `json:"phase"`
	Players int    `json:"players"`
	Round   int    `json:"round"`
}

// RoomList response type
type RoomList struct {
	Rooms []RoomSummary `json:"rooms"`
}

// CreatedRoom response type
type CreatedRoom struct {
	RoomID string `json:"roomId"`
}

// GuessResult response type
type GuessResult struct {
	Word         string    `json:"word"`
	Count        int       `json:"count"`
	Matches      []string  `json:"matches"`
	Scores       []float64 `json:"scores"`
	HitWrongTeam bool      `json:"hitWrongTeam"`
	Degraded     int       `json:"degraded"`
	GameOver     bool      `json:"gameOver"`
}

// PlayerInfo describes the local player identity
type PlayerInfo struct {
	PlayerID   string `json:"playerId"`
	PlayerFile string `json:"playerFile"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
	Rooms  int    `json:"rooms"`
}

func (o *Output) printRoom(r Room) {
	fmt.Fprintf(o.out, "Room: %s\n", r.RoomID)
	fmt.Fprintf(o.out, "Phase: %s\n", r.Phase)
	fmt.Fprintf(o.out, "Round: %d\n", r.Round)
	if r.Phase == "descriptionPhase" || r.Phase == "guessingPhase" {
		fmt.Fprintf(o.out, "Time Remaining: %ds\n", r.TimeRemaining)
	}
	if r.Phase == "guessingPhase" {
		turn := r.CurrentTurn
		if r.Resolving {
			turn += " (resolving guess)"
		}
		fmt.Fprintf(o.out, "Turn: %s\n", turn)
	}

	fmt.Fprintf(o.out, "Players (%d):\n", len(r.Players))
	for _, p := range r.Players {
		adminStr := ""
		if p.IsRoomAdmin {
			adminStr = " [admin]"
		}
		fmt.Fprintf(o.out, "  - %s (%s) - %s %s%s\n", p.Nickname, p.ID, p.Team, p.Role, adminStr)
	}

	if r.Phase != "lobby" {
		fmt.Fprintln(o.out, "\nBoard:")
		for i, img := range r.Images {
			o.printImage(i+1, img)
		}
	}

	if g := r.LastGuess; g != nil {
		fmt.Fprintf(o.out, "\nLast Guess: %s %q for %d (%d matched)", g.Team, g.Word, g.Count, len(g.Matches))
		if g.HitWrongTeam {
			fmt.Fprint(o.out, ", hit the wrong team")
		}
		fmt.Fprintln(o.out)
	}

	if len(r.GameStats) > 0 && r.Phase != "lobby" {
		teams := make([]string, 0, len(r.GameStats))
		for team := range r.GameStats {
			teams = append(teams, team)
		}
		sort.Strings(teams)

		fmt.Fprintln(o.out, "\nStats:")
		for _, team := range teams {
			s := r.GameStats[team]
			fmt.Fprintf(o.out, "  %s: %d matched, avg similarity %.2f, %d correct, %d incorrect\n",
				team, s.Matches, s.AverageSimilarity, s.CorrectGuesses, s.IncorrectGuesses)
		}
	}

	if r.Phase == "gameOver" {
		if r.Winner != nil {
			fmt.Fprintf(o.out, "\nWinner: %s\n", *r.Winner)
		} else {
			fmt.Fprintln(o.out, "\nWinner: tie")
		}
	}
}

func (o *Output) printImage(n int, img Image) {
	status := ""
	if img.Matched {
		status = fmt.Sprintf(" matched by %q (%.2f)", img.MatchedWord, img.Similarity)
	}
	fmt.Fprintf(o.out, "  %d. [%s] %s%s\n", n, img.Team, img.ID, status)

	if len(img.Descriptions) > 0 {
		texts := make([]string, len(img.Descriptions))
		for i, d := range img.Descriptions {
			texts[i] = fmt.Sprintf("%q by %s", d.Text, d.PlayerNickname)
		}
		fmt.Fprintf(o.out, "     %s\n", strings.Join(texts, ", "))
	}
}

func (o *Output) printRoomList(l RoomList) {
	if len(l.Rooms) == 0 {
		fmt.Fprintln(o.out, "No rooms")
		return
	}
	for _, r := range l.Rooms {
		fmt.Fprintf(o.out, "%s  %-16s %d players, round %d\n", r.RoomID, r.Phase, r.Players, r.Round)
	}
}

func (o *Output) printGuessResult(g GuessResult) {
	fmt.Fprintf(o.out, "Guess: %q for %d\n", g.Word, g.Count)
	if len(g.Matches) == 0 {
		fmt.Fprintln(o.out, "No images matched")
	}
	for i, id := range g.Matches {
		fmt.Fprintf(o.out, "  matched %s (%.2f)\n", id, g.Scores[i])
	}
	if g.HitWrongTeam {
		fmt.Fprintln(o.out, "Hit the wrong team!")
	}
	if g.Degraded > 0 {
		fmt.Fprintf(o.out, "%d similarity lookups failed and scored 0\n", g.Degraded)
	}
	if g.GameOver {
		fmt.Fprintln(o.out, "Game over!")
	}
}
