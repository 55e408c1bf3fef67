package model

// ImageID uniquely identifies an image on a room's board
type ImageID string

// ImageTeam is the colour an image belongs to
type ImageTeam string

const (
	ImageTeamGreen  ImageTeam = "green"
	ImageTeamPurple ImageTeam = "purple"
	ImageTeamRed    ImageTeam = "red" // Hazard card, never intentionally targeted
)

// ImageTeamOf returns the image colour owned by a player team
func ImageTeamOf(t Team) ImageTeam {
	return ImageTeam(t)
}

// Description is one player's text for an image
type Description struct {
	Text           string   `json:"text"`
	PlayerID       PlayerID `json:"playerId"`
	PlayerNickname string   `json:"playerNickname"`
}

// Image is a card on the board
type Image struct {
	ID                 ImageID       `json:"id"`
	URL                string        `json:"url"`
	Team               ImageTeam     `json:"team"`
	Descriptions       []Description `json:"tags"`
	Matched            bool          `json:"matched"`
	MatchedWord        string        `json:"matchedWord"`
	MatchedDescription *Description  `json:"matchedTag,omitempty"`
	Similarity         float64       `json:"similarity"`
	Selected           bool          `json:"selected"`
}

// DescriptionBy returns the index of the player's description, or -1
func (img *Image) DescriptionBy(playerID PlayerID) int {
	for i := range img.Descriptions {
		if img.Descriptions[i].PlayerID == playerID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the image
func (img Image) Clone() Image {
	out := img
	out.Descriptions = append([]Description(nil), img.Descriptions...)
	if img.MatchedDescription != nil {
		d := *img.MatchedDescription
		out.MatchedDescription = &d
	}
	return out
}
