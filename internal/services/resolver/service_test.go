package resolver

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/shadowtag/internal/model"
	"github.com/mcoot/shadowtag/internal/similarity"
	"github.com/mcoot/shadowtag/internal/similarity/similaritytest"
	"github.com/mcoot/shadowtag/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	oracle  *similaritytest.StubOracle
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.oracle = similaritytest.NewStubOracle()
	s.service = New(s.oracle, 4, testutil.NopLogger())
	s.ctx = context.Background()
}

func image(id string, team model.ImageTeam, descriptions ...string) model.Image {
	img := model.Image{ID: model.ImageID(id), Team: team}
	for i, text := range descriptions {
		img.Descriptions = append(img.Descriptions, model.Description{
			Text:     text,
			PlayerID: model.PlayerID("p" + string(rune('1'+i))),
		})
	}
	return img
}

func matchIDs(result *Result) []model.ImageID {
	ids := make([]model.ImageID, len(result.Matches))
	for i, m := range result.Matches {
		ids[i] = m.ImageID
	}
	return ids
}

func (s *ServiceSuite) TestWrongTeamTopStopsAfterFirst() {
	s.oracle.Set("ocean", "waves", 0.9).Set("ocean", "sea", 0.8)
	images := []model.Image{
		image("purple-1", model.ImageTeamPurple, "waves"),
		image("green-1", model.ImageTeamGreen, "sea"),
	}

	result, err := s.service.Resolve(s.ctx, Request{Word: "ocean", Count: 2, Team: model.TeamGreen, Images: images})
	s.Require().NoError(err)

	s.True(result.HitWrongTeam)
	s.Equal([]model.ImageID{"purple-1"}, matchIDs(result))
}

func (s *ServiceSuite) TestHazardTopStopsAfterFirst() {
	s.oracle.Set("fire", "lava", 0.95).Set("fire", "sun", 0.7)
	images := []model.Image{
		image("green-1", model.ImageTeamGreen, "sun"),
		image("red-1", model.ImageTeamRed, "lava"),
	}

	result, err := s.service.Resolve(s.ctx, Request{Word: "fire", Count: 3, Team: model.TeamGreen, Images: images})
	s.Require().NoError(err)

	s.True(result.HitWrongTeam)
	s.Equal([]model.ImageID{"red-1"}, matchIDs(result))
}

func (s *ServiceSuite) TestOwnTeamTopMatchesAllK() {
	s.oracle.
		Set("nature", "forest", 0.9).
		Set("nature", "meadow", 0.7).
		Set("nature", "lake", 0.6).
		Set("nature", "city", 0.1)
	images := []model.Image{
		image("green-1", model.ImageTeamGreen, "forest"),
		image("purple-1", model.ImageTeamPurple, "meadow"),
		image("red-1", model.ImageTeamRed, "lake"),
		image("green-2", model.ImageTeamGreen, "city"),
	}

	result, err := s.service.Resolve(s.ctx, Request{Word: "nature", Count: 3, Team: model.TeamGreen, Images: images})
	s.Require().NoError(err)

	s.False(result.HitWrongTeam)
	s.Equal([]model.ImageID{"green-1", "purple-1", "red-1"}, matchIDs(result))
}

func (s *ServiceSuite) TestCountLargerThanCandidates() {
	s.oracle.Set("sky", "blue", 0.5)
	images := []model.Image{image("green-1", model.ImageTeamGreen, "blue")}

	result, err := s.service.Resolve(s.ctx, Request{Word: "sky", Count: 4, Team: model.TeamGreen, Images: images})
	s.Require().NoError(err)
	s.Len(result.Matches, 1)
}

func (s *ServiceSuite) TestImageScoreIsBestDescription() {
	s.oracle.Set("peak", "hill", 0.3).Set("peak", "summit", 0.85).Set("peak", "rock", 0.4)
	images := []model.Image{image("green-1", model.ImageTeamGreen, "hill", "summit", "rock")}

	result, err := s.service.Resolve(s.ctx, Request{Word: "peak", Count: 1, Team: model.TeamGreen, Images: images})
	s.Require().NoError(err)

	s.Require().Len(result.Matches, 1)
	s.InDelta(0.85, result.Matches[0].Score, 1e-9)
	s.Equal("summit", result.Matches[0].Description.Text)
}

func (s *ServiceSuite) TestFirstDescriptionWinsTies() {
	s.oracle.Set("peak", "hill", 0.5).Set("peak", "summit", 0.5)
	images := []model.Image{image("green-1", model.ImageTeamGreen, "hill", "summit")}

	result, err := s.service.Resolve(s.ctx, Request{Word: "peak", Count: 1, Team: model.TeamGreen, Images: images})
	s.Require().NoError(err)
	s.Equal("hill", result.Matches[0].Description.Text)
}

func (s *ServiceSuite) TestBoardOrderBreaksScoreTies() {
	s.oracle.Set("tree", "oak", 0.6).Set("tree", "pine", 0.6)
	images := []model.Image{
		image("green-1", model.ImageTeamGreen, "oak"),
		image("green-2", model.ImageTeamGreen, "pine"),
	}

	result, err := s.service.Resolve(s.ctx, Request{Word: "tree", Count: 1, Team: model.TeamGreen, Images: images})
	s.Require().NoError(err)
	s.Equal([]model.ImageID{"green-1"}, matchIDs(result))
}

func (s *ServiceSuite) TestImageWithoutDescriptionsScoresZero() {
	s.oracle.Set("tree", "oak", 0.6)
	images := []model.Image{
		image("green-1", model.ImageTeamGreen),
		image("green-2", model.ImageTeamGreen, "oak"),
	}

	result, err := s.service.Resolve(s.ctx, Request{Word: "tree", Count: 2, Team: model.TeamGreen, Images: images})
	s.Require().NoError(err)

	s.Equal([]model.ImageID{"green-2", "green-1"}, matchIDs(result))
	s.Nil(result.Matches[1].Description)
	s.Equal(0.0, result.Matches[1].Score)
}

func (s *ServiceSuite) TestOracleFailureScoresZeroAndCountsDegraded() {
	s.oracle.Fail("tree", "oak").Set("tree", "pine", 0.2)
	images := []model.Image{
		image("green-1", model.ImageTeamGreen, "oak"),
		image("green-2", model.ImageTeamGreen, "pine"),
	}

	result, err := s.service.Resolve(s.ctx, Request{Word: "tree", Count: 1, Team: model.TeamGreen, Images: images})
	s.Require().NoError(err)

	s.Equal(1, result.Degraded)
	s.Equal([]model.ImageID{"green-2"}, matchIDs(result))
}

func (s *ServiceSuite) TestWordIsNormalized() {
	s.oracle.Set("tree", "oak", 0.6)
	images := []model.Image{image("green-1", model.ImageTeamGreen, " OAK ")}

	result, err := s.service.Resolve(s.ctx, Request{Word: "  Tree", Count: 1, Team: model.TeamGreen, Images: images})
	s.Require().NoError(err)

	s.Equal("tree", result.Word)
	s.InDelta(0.6, result.Matches[0].Score, 1e-9)
}

func (s *ServiceSuite) TestNoCandidates() {
	result, err := s.service.Resolve(s.ctx, Request{Word: "tree", Count: 1, Team: model.TeamGreen})
	s.Require().NoError(err)
	s.Empty(result.Matches)
	s.False(result.HitWrongTeam)
}

func (s *ServiceSuite) TestInvalidCount() {
	_, err := s.service.Resolve(s.ctx, Request{Word: "tree", Count: 0, Team: model.TeamGreen})
	s.ErrorIs(err, model.ErrInvalidGuessCount)
}

func (s *ServiceSuite) TestCancelledContextScoresEverythingZero() {
	s.oracle.Gate = make(chan struct{})
	images := []model.Image{image("green-1", model.ImageTeamGreen, "oak", "pine")}

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	result, err := s.service.Resolve(ctx, Request{Word: "tree", Count: 1, Team: model.TeamGreen, Images: images})
	s.Require().NoError(err)
	s.Equal(2, result.Degraded)
	s.Equal([]model.ImageID{"green-1"}, matchIDs(result))
	s.Zero(result.Matches[0].Score)
}

func (s *ServiceSuite) TestDeadlineKeepsFinishedScores() {
	// "stuck" never answers and ignores its context
	release := make(chan struct{})
	defer close(release)
	oracle := similarity.OracleFunc(func(ctx context.Context, a, b string) (float64, error) {
		if b == "stuck" {
			<-release
			return 1, nil
		}
		return 0.7, nil
	})
	service := New(oracle, 4, testutil.NopLogger())
	images := []model.Image{
		image("purple-1", model.ImageTeamPurple, "stuck"),
		image("green-1", model.ImageTeamGreen, "oak"),
	}

	ctx, cancel := context.WithTimeout(s.ctx, 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	result, err := service.Resolve(ctx, Request{Word: "tree", Count: 1, Team: model.TeamGreen, Images: images})
	s.Require().NoError(err)
	s.Less(time.Since(start), time.Second)

	s.Equal(1, result.Degraded)
	s.False(result.HitWrongTeam)
	s.Equal([]model.ImageID{"green-1"}, matchIDs(result))
	s.InDelta(0.7, result.Matches[0].Score, 1e-9)
}

func (s *ServiceSuite) TestConcurrencyIsBounded() {
	var inFlight, peak atomic.Int32
	oracle := similarity.OracleFunc(func(ctx context.Context, a, b string) (float64, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return 0.1, nil
	})
	service := New(oracle, 2, testutil.NopLogger())

	var images []model.Image
	for i := 0; i < 6; i++ {
		images = append(images, image("green-"+string(rune('a'+i)), model.ImageTeamGreen, "x", "y"))
	}

	_, err := service.Resolve(s.ctx, Request{Word: "tree", Count: 1, Team: model.TeamGreen, Images: images})
	s.Require().NoError(err)
	s.LessOrEqual(peak.Load(), int32(2))
	s.Positive(peak.Load())
}
