package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/shadowtag/internal/dependencies/mocks"
	"github.com/mcoot/shadowtag/internal/model"
	"github.com/mcoot/shadowtag/internal/services/board"
	"github.com/mcoot/shadowtag/internal/services/resolver"
	"github.com/mcoot/shadowtag/internal/services/scoring"
	"github.com/mcoot/shadowtag/internal/similarity/similaritytest"
	"github.com/mcoot/shadowtag/internal/storage/memory"
	"github.com/mcoot/shadowtag/internal/testutil"
)

type recorder struct {
	mu     sync.Mutex
	events []model.Event
}

func (r *recorder) Publish(event model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recorder) Events() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Event(nil), r.events...)
}

const (
	alice model.PlayerID = "alice" // Admin, green codebreaker
	bob   model.PlayerID = "bob"   // Green tagger
	carol model.PlayerID = "carol" // Purple codebreaker
	dave  model.PlayerID = "dave"  // Purple tagger
)

type SessionSuite struct {
	suite.Suite
	clock   *mocks.MockClock
	random  *mocks.MockRandom
	oracle  *similaritytest.StubOracle
	events  *recorder
	cfg     Config
	session *Session
	ctx     context.Context
	cancel  context.CancelFunc
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.oracle = similaritytest.NewStubOracle()
	s.events = &recorder{}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.cfg = DefaultConfig()
	s.cfg.DescriptionDuration = 3
	s.cfg.GuessingDuration = 5
	s.session = s.newSession(s.cfg)
}

func (s *SessionSuite) newSession(cfg Config) *Session {
	logger := testutil.NopLogger()
	boardService := board.New(memory.New(), s.random, board.DefaultConfig(), logger)
	resolverService := resolver.New(s.oracle, 4, logger)

	sess, err := New(s.ctx, "room-1", cfg, boardService, resolverService, scoring.New(), s.clock, s.events, logger)
	s.Require().NoError(err)
	go sess.Run(s.ctx)
	return sess
}

func (s *SessionSuite) TearDownTest() {
	s.session.Close()
	<-s.session.Done()
	s.cancel()
}

// sync waits until the session has handled everything sent before it
func (s *SessionSuite) sync() {
	_, err := s.session.do(s.ctx, "sync", func() (any, error) { return nil, nil })
	s.Require().NoError(err)
}

// tick delivers one countdown tick and waits for it to be handled
func (s *SessionSuite) tick() {
	s.clock.Tick()
	s.sync()
}

func (s *SessionSuite) join(id model.PlayerID, team model.Team, role model.Role) {
	_, err := s.session.Join(s.ctx, model.Player{ID: id, Nickname: string(id), Team: team, Role: role})
	s.Require().NoError(err)
}

func (s *SessionSuite) joinAll() {
	s.join(alice, model.TeamGreen, model.RoleCodebreaker)
	s.join(bob, model.TeamGreen, model.RoleTagger)
	s.join(carol, model.TeamPurple, model.RoleCodebreaker)
	s.join(dave, model.TeamPurple, model.RoleTagger)
}

func (s *SessionSuite) startDescribing() {
	s.joinAll()
	s.Require().NoError(s.session.Start(s.ctx, alice))
}

func (s *SessionSuite) startGuessing() {
	s.Require().NoError(s.session.ChangePhase(s.ctx, alice, model.PhaseGuessing, true))
}

func (s *SessionSuite) imagesOf(team model.ImageTeam) []model.Image {
	var out []model.Image
	for _, img := range s.session.Snapshot().Images {
		if img.Team == team {
			out = append(out, img)
		}
	}
	return out
}

func (s *SessionSuite) image(id model.ImageID) model.Image {
	for _, img := range s.session.Snapshot().Images {
		if img.ID == id {
			return img
		}
	}
	s.FailNow("image not found", string(id))
	return model.Image{}
}

func (s *SessionSuite) describe(player model.PlayerID, img model.Image, text string) {
	s.Require().NoError(s.session.AddDescription(s.ctx, player, img.ID, text))
}

func (s *SessionSuite) player(id model.PlayerID) model.Player {
	for _, p := range s.session.Snapshot().Players {
		if p.ID == id {
			return p
		}
	}
	s.FailNow("player not found", string(id))
	return model.Player{}
}

// Initial state

func (s *SessionSuite) TestNewSessionStartsInLobby() {
	snap := s.session.Snapshot()

	s.Equal(model.RoomID("room-1"), snap.RoomID)
	s.Equal(model.PhaseLobby, snap.Phase)
	s.Equal(model.TeamGreen, snap.CurrentTurn)
	s.Equal(3, snap.TimeRemaining)
	s.Len(snap.Images, len(board.DefaultCatalog))
	s.Nil(snap.Winner)
	s.Empty(snap.Players)
}

// Join and leave

func (s *SessionSuite) TestFirstJoinerIsAdmin() {
	s.joinAll()

	s.True(s.player(alice).IsRoomAdmin)
	s.False(s.player(bob).IsRoomAdmin)
	s.Equal(model.RoleCodebreaker, s.player(alice).Role)
	s.Equal(model.RoomID("room-1"), s.player(alice).RoomID)
}

func (s *SessionSuite) TestJoinCodebreakerWhenTeamHasOneBecomesTagger() {
	s.join(alice, model.TeamGreen, model.RoleCodebreaker)
	s.join(bob, model.TeamGreen, model.RoleCodebreaker)

	s.Equal(model.RoleTagger, s.player(bob).Role)
}

func (s *SessionSuite) TestJoinWithoutTeamBalancesTeams() {
	s.join(alice, "", "")
	s.join(bob, "", "")
	s.join(carol, "", "")

	s.Equal(model.TeamGreen, s.player(alice).Team)
	s.Equal(model.TeamPurple, s.player(bob).Team)
	s.Equal(model.TeamGreen, s.player(carol).Team)
	s.Equal(model.RoleTagger, s.player(alice).Role)
}

func (s *SessionSuite) TestJoinRejectsInvalidPlayer() {
	_, err := s.session.Join(s.ctx, model.Player{ID: "x", Nickname: "   "})
	s.ErrorIs(err, model.ErrInvalidPlayer)
	s.ErrorIs(err, model.ErrInvalidRequest)

	_, err = s.session.Join(s.ctx, model.Player{Nickname: "nobody"})
	s.ErrorIs(err, model.ErrInvalidPlayer)
}

func (s *SessionSuite) TestRejoinIsIdempotentInAnyPhase() {
	s.startDescribing()

	snap, err := s.session.Join(s.ctx, model.Player{ID: bob, Nickname: "Bobby"})
	s.Require().NoError(err)

	s.Len(snap.Players, 4)
	s.Equal("Bobby", s.player(bob).Nickname)
	s.Equal(model.TeamGreen, s.player(bob).Team)
}

func (s *SessionSuite) TestNewJoinAfterStartIsRejected() {
	s.startDescribing()

	_, err := s.session.Join(s.ctx, model.Player{ID: "eve", Nickname: "eve"})
	s.ErrorIs(err, model.ErrJoinInProgress)
	s.ErrorIs(err, model.ErrInvalidPhaseAction)
}

func (s *SessionSuite) TestLeavePromotesEarliestRemainingPlayer() {
	s.joinAll()

	s.Require().NoError(s.session.Leave(s.ctx, alice))

	s.Len(s.session.Snapshot().Players, 3)
	s.True(s.player(bob).IsRoomAdmin)
}

func (s *SessionSuite) TestLeaveUnknownPlayer() {
	err := s.session.Leave(s.ctx, "ghost")
	s.ErrorIs(err, model.ErrPlayerNotInRoom)
}

// Teams and roles

func (s *SessionSuite) TestSwitchOwnTeam() {
	s.joinAll()

	s.Require().NoError(s.session.SwitchTeam(s.ctx, bob, bob, model.TeamPurple))
	s.Equal(model.TeamPurple, s.player(bob).Team)
}

func (s *SessionSuite) TestSwitchOtherPlayerRequiresAdmin() {
	s.joinAll()

	err := s.session.SwitchTeam(s.ctx, bob, dave, model.TeamGreen)
	s.ErrorIs(err, model.ErrNotSelfOrAdmin)
	s.ErrorIs(err, model.ErrUnauthorizedAction)

	s.Require().NoError(s.session.SwitchTeam(s.ctx, alice, dave, model.TeamGreen))
	s.Equal(model.TeamGreen, s.player(dave).Team)
}

func (s *SessionSuite) TestSwitchingCodebreakerIntoTeamWithOneDemotes() {
	s.joinAll()

	s.Require().NoError(s.session.SwitchTeam(s.ctx, carol, carol, model.TeamGreen))

	s.Equal(model.RoleTagger, s.player(carol).Role)
	s.Equal(model.RoleCodebreaker, s.player(alice).Role)
}

func (s *SessionSuite) TestSwitchTeamRejectsUnknownTeam() {
	s.joinAll()
	err := s.session.SwitchTeam(s.ctx, bob, bob, "red")
	s.ErrorIs(err, model.ErrInvalidTeam)
}

func (s *SessionSuite) TestSwitchTeamOutsideLobby() {
	s.startDescribing()
	err := s.session.SwitchTeam(s.ctx, bob, bob, model.TeamPurple)
	s.ErrorIs(err, model.ErrInvalidPhaseAction)
}

func (s *SessionSuite) TestSetRoleDemotesPreviousCodebreaker() {
	s.joinAll()

	s.Require().NoError(s.session.SetRole(s.ctx, alice, bob, model.RoleCodebreaker))

	s.Equal(model.RoleCodebreaker, s.player(bob).Role)
	s.Equal(model.RoleTagger, s.player(alice).Role)
}

func (s *SessionSuite) TestSetRoleRequiresAdmin() {
	s.joinAll()
	err := s.session.SetRole(s.ctx, bob, bob, model.RoleCodebreaker)
	s.ErrorIs(err, model.ErrNotAdmin)
}

// Phase control

func (s *SessionSuite) TestStartRequiresAdmin() {
	s.joinAll()
	err := s.session.Start(s.ctx, bob)
	s.ErrorIs(err, model.ErrNotAdmin)
	s.Equal(model.PhaseLobby, s.session.Snapshot().Phase)
}

func (s *SessionSuite) TestStartEntersDescriptionWithTimer() {
	s.startDescribing()

	snap := s.session.Snapshot()
	s.Equal(model.PhaseDescription, snap.Phase)
	s.Equal(3, snap.TimeRemaining)
	s.Equal(1, s.clock.ActiveTickers())
}

func (s *SessionSuite) TestStartTwiceIsRejected() {
	s.startDescribing()
	err := s.session.Start(s.ctx, alice)
	s.ErrorIs(err, model.ErrInvalidPhaseAction)
}

func (s *SessionSuite) TestClientTimerClaimIsRejected() {
	s.startDescribing()

	err := s.session.ChangePhase(s.ctx, alice, model.PhaseGuessing, false)
	s.ErrorIs(err, model.ErrTimerAuthority)
	s.ErrorIs(err, model.ErrInvalidPhaseAction)
	s.Equal(model.PhaseDescription, s.session.Snapshot().Phase)
}

func (s *SessionSuite) TestSkipMustTargetNextPhase() {
	s.startDescribing()

	err := s.session.ChangePhase(s.ctx, alice, model.PhaseGameOver, true)
	s.ErrorIs(err, model.ErrInvalidSkip)

	err = s.session.ChangePhase(s.ctx, alice, model.PhaseLobby, true)
	s.ErrorIs(err, model.ErrInvalidSkip)

	err = s.session.ChangePhase(s.ctx, alice, "sideways", true)
	s.ErrorIs(err, model.ErrInvalidPhase)
}

func (s *SessionSuite) TestSkipRequiresAdmin() {
	s.startDescribing()
	err := s.session.ChangePhase(s.ctx, bob, model.PhaseGuessing, true)
	s.ErrorIs(err, model.ErrNotAdmin)
}

func (s *SessionSuite) TestSkipToGuessing() {
	s.startDescribing()
	s.tick()

	s.startGuessing()

	snap := s.session.Snapshot()
	s.Equal(model.PhaseGuessing, snap.Phase)
	s.Equal(model.TeamGreen, snap.CurrentTurn)
	s.Equal(5, snap.TimeRemaining)
	s.Equal(1, s.clock.ActiveTickers(), "previous countdown is stopped")
}

func (s *SessionSuite) TestSkipToGameOverThenNoFurtherSkip() {
	s.startDescribing()
	s.startGuessing()

	s.Require().NoError(s.session.ChangePhase(s.ctx, alice, model.PhaseGameOver, true))
	s.Equal(model.PhaseGameOver, s.session.Snapshot().Phase)
	s.Zero(s.clock.ActiveTickers())

	err := s.session.ChangePhase(s.ctx, alice, model.PhaseLobby, true)
	s.ErrorIs(err, model.ErrInvalidSkip)
}

func (s *SessionSuite) TestPhasesOnlyMoveForward() {
	order := map[model.Phase]int{
		model.PhaseLobby:       0,
		model.PhaseDescription: 1,
		model.PhaseGuessing:    2,
		model.PhaseGameOver:    3,
	}

	s.startDescribing()
	s.tick()
	_ = s.session.ChangePhase(s.ctx, alice, model.PhaseLobby, true)
	_ = s.session.Start(s.ctx, alice)
	s.startGuessing()
	_ = s.session.ChangePhase(s.ctx, alice, model.PhaseDescription, true)
	for i := 0; i < 10; i++ {
		s.tick()
	}

	last := 0
	for _, event := range s.events.Events() {
		current := order[event.Snapshot.Phase]
		s.GreaterOrEqual(current, last, "phase went backwards on %s", event.Reason)
		last = current
	}
	s.Equal(model.PhaseGameOver, s.session.Snapshot().Phase)
}

// Descriptions

func (s *SessionSuite) TestAddDescription() {
	s.startDescribing()
	img := s.session.Snapshot().Images[0]

	s.describe(bob, img, "  misty peaks ")

	got := s.image(img.ID)
	s.Require().Len(got.Descriptions, 1)
	s.Equal(model.Description{Text: "misty peaks", PlayerID: bob, PlayerNickname: "bob"}, got.Descriptions[0])
}

func (s *SessionSuite) TestResubmittingDescriptionReplacesIt() {
	s.startDescribing()
	img := s.session.Snapshot().Images[0]

	s.describe(bob, img, "peaks")
	s.describe(dave, img, "snow")
	s.describe(bob, img, "summit")

	got := s.image(img.ID)
	s.Require().Len(got.Descriptions, 2)
	s.Equal("summit", got.Descriptions[0].Text)
	s.Equal("snow", got.Descriptions[1].Text)
}

func (s *SessionSuite) TestDescriptionValidation() {
	s.startDescribing()
	img := s.session.Snapshot().Images[0]

	err := s.session.AddDescription(s.ctx, bob, img.ID, "   ")
	s.ErrorIs(err, model.ErrInvalidDescription)

	long := make([]rune, 65)
	for i := range long {
		long[i] = 'é'
	}
	err = s.session.AddDescription(s.ctx, bob, img.ID, string(long))
	s.ErrorIs(err, model.ErrInvalidDescription)
	s.ErrorContains(err, "at most 64 characters")

	err = s.session.AddDescription(s.ctx, bob, "missing", "peaks")
	s.ErrorIs(err, model.ErrImageNotFound)

	err = s.session.AddDescription(s.ctx, "ghost", img.ID, "peaks")
	s.ErrorIs(err, model.ErrPlayerNotInRoom)
}

func (s *SessionSuite) TestDescriptionOutsidePhase() {
	s.joinAll()
	img := s.session.Snapshot().Images[0]

	err := s.session.AddDescription(s.ctx, bob, img.ID, "peaks")
	s.ErrorIs(err, model.ErrInvalidPhaseAction)
}

func (s *SessionSuite) TestRemoveDescription() {
	s.startDescribing()
	img := s.session.Snapshot().Images[0]
	s.describe(bob, img, "peaks")
	s.describe(dave, img, "snow")

	s.Require().NoError(s.session.RemoveDescription(s.ctx, bob, img.ID))

	got := s.image(img.ID)
	s.Require().Len(got.Descriptions, 1)
	s.Equal(dave, got.Descriptions[0].PlayerID)

	err := s.session.RemoveDescription(s.ctx, bob, img.ID)
	s.ErrorIs(err, model.ErrDescriptionNotFound)
}

func (s *SessionSuite) TestDescriptionsAreIsolatedPerViewerUntilGuessing() {
	s.startDescribing()
	img := s.session.Snapshot().Images[0]
	s.describe(bob, img, "peaks")
	s.describe(dave, img, "snow")

	snap := s.session.Snapshot()
	bobView := snap.ViewFor(bob).Images[0]
	s.Require().Len(bobView.Descriptions, 1)
	s.Equal("peaks", bobView.Descriptions[0].Text)
	s.Empty(snap.ViewFor(carol).Images[0].Descriptions)
	s.Empty(snap.ViewFor("").Images[0].Descriptions)
	s.Len(snap.Images[0].Descriptions, 2, "narrowing does not alter the snapshot")

	s.startGuessing()
	s.Len(s.session.Snapshot().ViewFor(carol).Images[0].Descriptions, 2)
}

// Guessing

func (s *SessionSuite) TestGuessAuthorization() {
	s.startDescribing()
	s.startGuessing()

	_, err := s.session.SubmitGuess(s.ctx, carol, "ocean", 1)
	s.ErrorIs(err, model.ErrNotYourTurn)

	_, err = s.session.SubmitGuess(s.ctx, bob, "ocean", 1)
	s.ErrorIs(err, model.ErrNotCodebreaker)

	_, err = s.session.SubmitGuess(s.ctx, "ghost", "ocean", 1)
	s.ErrorIs(err, model.ErrPlayerNotInRoom)
}

func (s *SessionSuite) TestGuessValidation() {
	s.startDescribing()
	s.startGuessing()

	_, err := s.session.SubmitGuess(s.ctx, alice, "two words", 1)
	s.ErrorIs(err, model.ErrInvalidWord)

	_, err = s.session.SubmitGuess(s.ctx, alice, "  ", 1)
	s.ErrorIs(err, model.ErrInvalidWord)

	_, err = s.session.SubmitGuess(s.ctx, alice, "ocean", 0)
	s.ErrorIs(err, model.ErrInvalidGuessCount)

	_, err = s.session.SubmitGuess(s.ctx, alice, "ocean", 5)
	s.ErrorIs(err, model.ErrInvalidGuessCount)
}

func (s *SessionSuite) TestGuessOutsideGuessingPhase() {
	s.startDescribing()
	_, err := s.session.SubmitGuess(s.ctx, alice, "ocean", 1)
	s.ErrorIs(err, model.ErrInvalidPhaseAction)
}

func (s *SessionSuite) TestWrongTeamTopMatchesOnlyFirst() {
	s.startDescribing()
	purple := s.imagesOf(model.ImageTeamPurple)[0]
	green := s.imagesOf(model.ImageTeamGreen)[0]
	s.describe(dave, purple, "waves")
	s.describe(bob, green, "sea")
	s.oracle.Set("ocean", "waves", 0.9).Set("ocean", "sea", 0.8)
	s.startGuessing()

	result, err := s.session.SubmitGuess(s.ctx, alice, "Ocean", 2)
	s.Require().NoError(err)

	s.True(result.HitWrongTeam)
	s.Equal([]model.ImageID{purple.ID}, result.Matches)

	snap := s.session.Snapshot()
	s.True(s.image(purple.ID).Matched)
	s.False(s.image(green.ID).Matched)
	s.Equal(model.TeamPurple, snap.CurrentTurn)
	s.Equal(1, snap.GameStats[model.TeamGreen].IncorrectGuesses)
	s.Equal(1, snap.GameStats[model.TeamPurple].Matches)
	s.Require().NotNil(snap.LastGuess)
	s.Equal("ocean", snap.LastGuess.Word)
	s.False(snap.Resolving)
}

func (s *SessionSuite) TestOwnTeamTopMatchesAllK() {
	s.startDescribing()
	greens := s.imagesOf(model.ImageTeamGreen)
	purple := s.imagesOf(model.ImageTeamPurple)[0]
	s.describe(bob, greens[0], "forest")
	s.describe(bob, greens[1], "meadow")
	s.describe(dave, purple, "lake")
	s.oracle.Set("nature", "forest", 0.9).Set("nature", "meadow", 0.8).Set("nature", "lake", 0.7)
	s.startGuessing()

	result, err := s.session.SubmitGuess(s.ctx, alice, "nature", 3)
	s.Require().NoError(err)

	s.False(result.HitWrongTeam)
	s.Equal([]model.ImageID{greens[0].ID, greens[1].ID, purple.ID}, result.Matches)

	matched := s.image(greens[0].ID)
	s.True(matched.Matched)
	s.True(matched.Selected)
	s.Equal("nature", matched.MatchedWord)
	s.InDelta(0.9, matched.Similarity, 1e-9)
	s.Require().NotNil(matched.MatchedDescription)
	s.Equal("forest", matched.MatchedDescription.Text)

	stats := s.session.Snapshot().GameStats[model.TeamGreen]
	s.Equal(2, stats.CorrectGuesses)
	s.Equal(1, stats.IncorrectGuesses)
	s.InDelta(1.7, stats.TotalSimilarity, 1e-9)
	s.Equal(2, stats.Matches)
	s.InDelta(0.85, stats.AverageSimilarity, 1e-9)
}

func (s *SessionSuite) TestMatchedImagesNeverChange() {
	s.startDescribing()
	green := s.imagesOf(model.ImageTeamGreen)[0]
	s.describe(bob, green, "forest")
	s.oracle.Set("woods", "forest", 0.6).Set("trees", "forest", 0.99)
	s.startGuessing()

	_, err := s.session.SubmitGuess(s.ctx, alice, "woods", 1)
	s.Require().NoError(err)
	before := s.image(green.ID)

	result, err := s.session.SubmitGuess(s.ctx, carol, "trees", 1)
	s.Require().NoError(err)
	s.NotContains(result.Matches, green.ID)

	after := s.image(green.ID)
	s.Equal(before.MatchedWord, after.MatchedWord)
	s.Equal(before.Similarity, after.Similarity)
	s.Equal(before.MatchedDescription, after.MatchedDescription)
}

func (s *SessionSuite) TestOracleFailureIsDegradedNotAnError() {
	s.startDescribing()
	green := s.imagesOf(model.ImageTeamGreen)[0]
	s.describe(bob, green, "forest")
	s.oracle.Fail("woods", "forest")
	s.startGuessing()

	result, err := s.session.SubmitGuess(s.ctx, alice, "woods", 1)
	s.Require().NoError(err)
	s.Equal(1, result.Degraded)
	s.Equal(1, s.session.Snapshot().LastGuess.Degraded)
}

func (s *SessionSuite) TestDescriptionLimitFollowsConfig() {
	s.session.Close()
	<-s.session.Done()
	cfg := s.cfg
	cfg.MaxDescriptionLength = 5
	s.session = s.newSession(cfg)

	s.startDescribing()
	img := s.session.Snapshot().Images[0]

	s.Require().NoError(s.session.AddDescription(s.ctx, bob, img.ID, "peaks"))
	err := s.session.AddDescription(s.ctx, bob, img.ID, "summit")
	s.ErrorIs(err, model.ErrInvalidDescription)
	s.ErrorContains(err, "at most 5 characters")
}

func (s *SessionSuite) TestUnansweredOracleStillEndsTheTurn() {
	s.session.Close()
	<-s.session.Done()
	cfg := s.cfg
	cfg.ResolveTimeout = 50 * time.Millisecond
	s.session = s.newSession(cfg)

	s.startDescribing()
	green := s.imagesOf(model.ImageTeamGreen)[0]
	s.describe(bob, green, "forest")
	s.oracle.Gate = make(chan struct{})
	s.startGuessing()

	result, err := s.session.SubmitGuess(s.ctx, alice, "woods", 1)
	s.Require().NoError(err)
	s.Positive(result.Degraded)

	snap := s.session.Snapshot()
	s.False(snap.Resolving)
	s.Equal(model.TeamPurple, snap.CurrentTurn)
	s.Require().NotNil(snap.LastGuess)
	s.Equal(result.Degraded, snap.LastGuess.Degraded)
}

func (s *SessionSuite) TestConcurrentGuessesAreSerialised() {
	s.startDescribing()
	green := s.imagesOf(model.ImageTeamGreen)[0]
	s.describe(bob, green, "forest")
	s.oracle.Set("woods", "forest", 0.6)
	s.oracle.Gate = make(chan struct{})
	s.startGuessing()

	type outcome struct {
		result *model.GuessResult
		err    error
	}
	first := make(chan outcome, 1)
	go func() {
		r, err := s.session.SubmitGuess(s.ctx, alice, "woods", 1)
		first <- outcome{r, err}
	}()
	s.Eventually(func() bool { return s.session.Snapshot().Resolving }, time.Second, time.Millisecond)

	_, err := s.session.SubmitGuess(s.ctx, alice, "trees", 1)
	s.ErrorIs(err, model.ErrGuessInProgress)

	// Other commands still run while a guess is resolving
	s.Equal(model.PhaseGuessing, s.session.Snapshot().Phase)
	s.Require().NoError(s.session.Leave(s.ctx, dave))

	close(s.oracle.Gate)
	got := <-first
	s.Require().NoError(got.err)
	s.Equal([]model.ImageID{green.ID}, got.result.Matches)
	s.False(s.session.Snapshot().Resolving)
	s.Equal(model.TeamPurple, s.session.Snapshot().CurrentTurn)
}

func (s *SessionSuite) TestGuessDiscardedWhenPhaseEndsWhileResolving() {
	s.startDescribing()
	green := s.imagesOf(model.ImageTeamGreen)[0]
	s.describe(bob, green, "forest")
	s.oracle.Set("woods", "forest", 0.6)
	s.oracle.Gate = make(chan struct{})
	s.startGuessing()

	errs := make(chan error, 1)
	go func() {
		_, err := s.session.SubmitGuess(s.ctx, alice, "woods", 1)
		errs <- err
	}()
	s.Eventually(func() bool { return s.session.Snapshot().Resolving }, time.Second, time.Millisecond)

	s.Require().NoError(s.session.ForceExpiry(s.ctx, model.PhaseGuessing))
	s.ErrorIs(<-errs, model.ErrGuessDiscarded)

	close(s.oracle.Gate)
	s.sync()

	snap := s.session.Snapshot()
	s.Equal(model.PhaseGameOver, snap.Phase)
	s.False(snap.Resolving)
	s.False(s.image(green.ID).Matched)
}

func (s *SessionSuite) TestExhaustingTargetsEndsGame() {
	s.startDescribing()
	for _, img := range s.imagesOf(model.ImageTeamGreen) {
		s.describe(bob, img, "forest")
	}
	for _, img := range s.imagesOf(model.ImageTeamPurple) {
		s.describe(dave, img, "lake")
	}
	s.oracle.Set("woods", "forest", 0.9).Set("water", "lake", 0.5)
	s.startGuessing()

	result, err := s.session.SubmitGuess(s.ctx, alice, "woods", 4)
	s.Require().NoError(err)
	s.Len(result.Matches, 4)
	s.False(result.GameOver)

	result, err = s.session.SubmitGuess(s.ctx, carol, "water", 4)
	s.Require().NoError(err)
	s.True(result.GameOver)

	snap := s.session.Snapshot()
	s.Equal(model.PhaseGameOver, snap.Phase)
	s.Require().NotNil(snap.Winner)
	s.Equal(model.TeamGreen, *snap.Winner, "equal matches, higher average similarity")
	s.Zero(s.clock.ActiveTickers())
}

// Timer

func (s *SessionSuite) TestCountdownExpiresIntoGuessing() {
	s.startDescribing()

	s.tick()
	s.tick()
	s.Equal(1, s.session.Snapshot().TimeRemaining)
	s.Equal(model.PhaseDescription, s.session.Snapshot().Phase)

	s.tick()
	snap := s.session.Snapshot()
	s.Equal(model.PhaseGuessing, snap.Phase)
	s.Equal(5, snap.TimeRemaining)
	s.Equal(model.TeamGreen, snap.CurrentTurn)
}

func (s *SessionSuite) TestCountdownExpiresIntoGameOverWithWinner() {
	s.startDescribing()
	purple := s.imagesOf(model.ImageTeamPurple)[0]
	s.describe(dave, purple, "lake")
	s.oracle.Set("water", "lake", 0.5)
	s.startGuessing()

	_, err := s.session.SubmitGuess(s.ctx, alice, "water", 1)
	s.Require().NoError(err)

	for i := 0; i < 5; i++ {
		s.tick()
	}

	snap := s.session.Snapshot()
	s.Equal(model.PhaseGameOver, snap.Phase)
	s.Equal(0, snap.TimeRemaining)
	s.Require().NotNil(snap.Winner)
	s.Equal(model.TeamPurple, *snap.Winner)
	s.Zero(s.clock.ActiveTickers())
}

func (s *SessionSuite) TestTicksBroadcastTimeRemaining() {
	s.startDescribing()
	before := s.events.Count()

	s.tick()

	events := s.events.Events()[before:]
	s.Require().Len(events, 1)
	s.Equal("tick", events[0].Reason)
	s.Equal(2, events[0].Snapshot.TimeRemaining)
}

func (s *SessionSuite) TestBroadcastEveryTicksThrottles() {
	s.session.Close()
	<-s.session.Done()

	cfg := s.cfg
	cfg.DescriptionDuration = 10
	cfg.BroadcastEveryTicks = 3
	s.session = s.newSession(cfg)
	s.startDescribing()
	before := s.events.Count()

	for i := 0; i < 6; i++ {
		s.tick()
	}

	var ticks int
	for _, e := range s.events.Events()[before:] {
		if e.Reason == "tick" {
			ticks++
		}
	}
	s.Equal(2, ticks)
}

func (s *SessionSuite) TestExpiryIsIdempotent() {
	s.startDescribing()

	s.Require().NoError(s.session.ForceExpiry(s.ctx, model.PhaseDescription))
	s.Require().NoError(s.session.ForceExpiry(s.ctx, model.PhaseDescription))

	snap := s.session.Snapshot()
	s.Equal(model.PhaseGuessing, snap.Phase)
	s.Equal(5, snap.TimeRemaining)

	var expiries int
	for _, e := range s.events.Events() {
		if e.Reason == "timer-expired" {
			expiries++
		}
	}
	s.Equal(1, expiries)
}

func (s *SessionSuite) TestExpiryInLobbyDoesNothing() {
	s.joinAll()
	s.Require().NoError(s.session.ForceExpiry(s.ctx, model.PhaseLobby))
	s.Equal(model.PhaseLobby, s.session.Snapshot().Phase)
}

// Reset

func (s *SessionSuite) TestResetOnlyFromGameOver() {
	s.startDescribing()
	err := s.session.Reset(s.ctx, alice)
	s.ErrorIs(err, model.ErrInvalidPhaseAction)
}

func (s *SessionSuite) TestResetStartsNewRound() {
	s.startDescribing()
	oldImages := s.session.Snapshot().Images
	s.startGuessing()
	s.Require().NoError(s.session.ChangePhase(s.ctx, alice, model.PhaseGameOver, true))

	err := s.session.Reset(s.ctx, bob)
	s.ErrorIs(err, model.ErrNotAdmin)

	s.Require().NoError(s.session.Reset(s.ctx, alice))

	snap := s.session.Snapshot()
	s.Equal(model.PhaseLobby, snap.Phase)
	s.Equal(1, snap.Round)
	s.Nil(snap.Winner)
	s.Nil(snap.LastGuess)
	s.Equal(3, snap.TimeRemaining)
	s.Len(snap.Players, 4)
	s.Equal(model.RoleCodebreaker, s.player(carol).Role)
	s.NotEqual(oldImages[0].ID, snap.Images[0].ID)
	s.Equal(model.TeamStats{}, snap.GameStats[model.TeamGreen])
}

// Rejections and lifecycle

func (s *SessionSuite) TestRejectedActionsDoNotPublish() {
	s.joinAll()
	before := s.events.Count()

	_ = s.session.Start(s.ctx, bob)
	_ = s.session.SetRole(s.ctx, dave, dave, model.RoleCodebreaker)
	_, _ = s.session.SubmitGuess(s.ctx, alice, "ocean", 1)
	s.sync()

	s.Equal(before, s.events.Count())
}

func (s *SessionSuite) TestAcceptedActionsPublishSnapshots() {
	s.join(alice, model.TeamGreen, model.RoleCodebreaker)

	events := s.events.Events()
	s.Require().Len(events, 1)
	s.Equal(model.EventRoomUpdated, events[0].Type)
	s.Equal(alice, events[0].PlayerID)
	s.Equal("join-room", events[0].Reason)
	s.Len(events[0].Snapshot.Players, 1)
}

func (s *SessionSuite) TestClosedSessionRejectsCommands() {
	s.joinAll()
	s.session.Close()
	<-s.session.Done()

	err := s.session.Start(s.ctx, alice)
	s.ErrorIs(err, model.ErrSessionClosed)

	events := s.events.Events()
	s.Equal(model.EventRoomClosed, events[len(events)-1].Type)
}
