package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcoot/shadowtag/internal/dependencies/clock"
	"github.com/mcoot/shadowtag/internal/model"
	"github.com/mcoot/shadowtag/internal/services/board"
	"github.com/mcoot/shadowtag/internal/services/resolver"
	"github.com/mcoot/shadowtag/internal/services/scoring"
)

// Config holds the game rules and timing for a session
type Config struct {
	DescriptionDuration  int           // Countdown units for the description phase
	GuessingDuration     int           // Countdown units for the guessing phase
	TickInterval         time.Duration // Real time per countdown unit
	BroadcastEveryTicks  int           // Publish a snapshot every N ticks
	MinGuessCount        int
	MaxGuessCount        int
	MaxDescriptionLength int // In runes
	MaxNicknameLength    int // In runes
	ResolveTimeout       time.Duration
	InboxSize            int
}

// DefaultConfig returns the standard game rules
func DefaultConfig() Config {
	return Config{
		DescriptionDuration:  120,
		GuessingDuration:     120,
		TickInterval:         time.Second,
		BroadcastEveryTicks:  1,
		MinGuessCount:        1,
		MaxGuessCount:        4,
		MaxDescriptionLength: 64,
		MaxNicknameLength:    32,
		ResolveTimeout:       10 * time.Second,
		InboxSize:            64,
	}
}

// Publisher receives an event after every accepted mutation.
// Publish is called from the session goroutine and must not block.
type Publisher interface {
	Publish(event model.Event)
}

// PublisherFunc adapts a function to the Publisher interface
type PublisherFunc func(event model.Event)

// Publish calls f(event)
func (f PublisherFunc) Publish(event model.Event) { f(event) }

type result struct {
	value any
	err   error
}

type command struct {
	name string
	exec func()
}

// Session owns one room's state. All mutations run on a single goroutine
// started by Run; other goroutines talk to it through the inbox.
type Session struct {
	id        model.RoomID
	cfg       Config
	board     *board.Service
	resolver  *resolver.Service
	scoring   *scoring.Service
	clock     clock.Clock
	publisher Publisher
	logger    *slog.Logger

	inbox    chan command
	resolved chan guessOutcome
	quit     chan struct{}
	done     chan struct{}
	quitOnce sync.Once
	started  atomic.Bool

	snapshot     atomic.Pointer[model.Snapshot]
	lastActivity atomic.Int64

	// Owned by the session goroutine
	runCtx    context.Context
	room      *model.Room
	ticker    clock.Ticker
	tickCount int
	pending   *pendingGuess
	guessSeq  int
}

// New creates a session for a room with a freshly generated board.
// The session does not process commands until Run is called.
func New(
	ctx context.Context,
	id model.RoomID,
	cfg Config,
	boardService *board.Service,
	resolverService *resolver.Service,
	scoringService *scoring.Service,
	clk clock.Clock,
	publisher Publisher,
	logger *slog.Logger,
) (*Session, error) {
	images, err := boardService.Generate(ctx)
	if err != nil {
		return nil, err
	}

	if cfg.BroadcastEveryTicks <= 0 {
		cfg.BroadcastEveryTicks = 1
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = DefaultConfig().InboxSize
	}

	now := clk.Now()
	s := &Session{
		id:        id,
		cfg:       cfg,
		board:     boardService,
		resolver:  resolverService,
		scoring:   scoringService,
		clock:     clk,
		publisher: publisher,
		logger:    logger.With(slog.String("component", "room-session"), slog.String("room_id", string(id))),
		inbox:     make(chan command, cfg.InboxSize),
		resolved:  make(chan guessOutcome),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		runCtx:    ctx,
		room: &model.Room{
			ID:            id,
			Phase:         model.PhaseLobby,
			Players:       []model.Player{},
			Images:        images,
			CurrentTurn:   model.TeamGreen,
			TimeRemaining: cfg.DescriptionDuration,
			Stats:         scoring.NewStats(),
			CreatedAt:     now,
			UpdatedAt:     now,
		},
	}
	s.store()
	return s, nil
}

// ID returns the room ID
func (s *Session) ID() model.RoomID {
	return s.id
}

// Run processes commands, ticks and guess results until ctx is cancelled
// or Close is called. It must be called exactly once.
func (s *Session) Run(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.runCtx = runCtx
	defer s.shutdown()

	s.logger.Debug("session started")
	for {
		var tick <-chan time.Time
		if s.ticker != nil {
			tick = s.ticker.C()
		}

		select {
		case <-runCtx.Done():
			return
		case <-s.quit:
			return
		case cmd := <-s.inbox:
			s.logger.Debug("handling command", slog.String("command", cmd.name))
			cmd.exec()
		case <-tick:
			s.onTick()
		case outcome := <-s.resolved:
			s.applyGuess(outcome)
		}
	}
}

// Close stops the session. Pending requests fail with ErrSessionClosed.
func (s *Session) Close() {
	s.quitOnce.Do(func() { close(s.quit) })
}

// Done is closed once the session goroutine has exited
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Snapshot returns the latest published state without a round trip
// through the session goroutine
func (s *Session) Snapshot() model.Snapshot {
	return *s.snapshot.Load()
}

// LastActivity returns when the room state last changed
func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

func (s *Session) shutdown() {
	s.stopTimer()
	s.discardPending(model.ErrSessionClosed)

	// Nothing is published once done is closed
	s.publisher.Publish(model.Event{
		Type:      model.EventRoomClosed,
		Timestamp: s.clock.Now(),
		RoomID:    s.id,
		Reason:    "closed",
		Snapshot:  s.Snapshot(),
	})
	close(s.done)
	s.logger.Debug("session stopped")
}

// do sends a command to the session goroutine and waits for its reply
func (s *Session) do(ctx context.Context, name string, exec func() (any, error)) (any, error) {
	return s.send(ctx, name, func(reply chan<- result) {
		value, err := exec()
		reply <- result{value: value, err: err}
	})
}

// send queues a command whose exec is responsible for replying exactly once
func (s *Session) send(ctx context.Context, name string, exec func(reply chan<- result)) (any, error) {
	reply := make(chan result, 1)
	cmd := command{
		name: name,
		exec: func() { exec(reply) },
	}

	select {
	case s.inbox <- cmd:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, model.ErrSessionClosed
	}

	select {
	case r := <-reply:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		// The reply may have been sent just before shutdown
		select {
		case r := <-reply:
			return r.value, r.err
		default:
			return nil, model.ErrSessionClosed
		}
	}
}

// store refreshes the lock-free snapshot
func (s *Session) store() {
	snap := model.NewSnapshot(s.room)
	s.snapshot.Store(&snap)
	s.lastActivity.Store(s.room.UpdatedAt.UnixNano())
}

// commit publishes the current state after an accepted mutation
func (s *Session) commit(reason string, actor model.PlayerID) {
	now := s.clock.Now()
	s.room.UpdatedAt = now
	s.store()

	s.publisher.Publish(model.Event{
		Type:      model.EventRoomUpdated,
		Timestamp: now,
		RoomID:    s.id,
		PlayerID:  actor,
		Reason:    reason,
		Snapshot:  s.Snapshot(),
	})
}

// Join adds a player, or reconnects one already in the room
func (s *Session) Join(ctx context.Context, player model.Player) (model.Snapshot, error) {
	v, err := s.do(ctx, "join-room", func() (any, error) {
		return s.handleJoin(player)
	})
	if err != nil {
		return model.Snapshot{}, err
	}
	return v.(model.Snapshot), nil
}

// Leave removes a player from the room
func (s *Session) Leave(ctx context.Context, actor model.PlayerID) error {
	_, err := s.do(ctx, "leave-room", func() (any, error) {
		return nil, s.handleLeave(actor)
	})
	return err
}

// SwitchTeam moves target to team on behalf of actor
func (s *Session) SwitchTeam(ctx context.Context, actor, target model.PlayerID, team model.Team) error {
	_, err := s.do(ctx, "switch-team", func() (any, error) {
		return nil, s.handleSwitchTeam(actor, target, team)
	})
	return err
}

// SetRole assigns target's role on behalf of actor
func (s *Session) SetRole(ctx context.Context, actor, target model.PlayerID, role model.Role) error {
	_, err := s.do(ctx, "set-role", func() (any, error) {
		return nil, s.handleSetRole(actor, target, role)
	})
	return err
}

// Start begins the description phase
func (s *Session) Start(ctx context.Context, actor model.PlayerID) error {
	_, err := s.do(ctx, "start-game", func() (any, error) {
		return nil, s.handleStart(actor)
	})
	return err
}

// ChangePhase handles a client phase-change request. Only an admin skip to
// the immediately following phase is accepted.
func (s *Session) ChangePhase(ctx context.Context, actor model.PlayerID, phase model.Phase, skip bool) error {
	_, err := s.do(ctx, "phase-change", func() (any, error) {
		return nil, s.handleChangePhase(actor, phase, skip)
	})
	return err
}

// AddDescription adds or replaces actor's description of an image
func (s *Session) AddDescription(ctx context.Context, actor model.PlayerID, imageID model.ImageID, text string) error {
	_, err := s.do(ctx, "add-description", func() (any, error) {
		return nil, s.handleAddDescription(actor, imageID, text)
	})
	return err
}

// RemoveDescription removes actor's description of an image
func (s *Session) RemoveDescription(ctx context.Context, actor model.PlayerID, imageID model.ImageID) error {
	_, err := s.do(ctx, "remove-description", func() (any, error) {
		return nil, s.handleRemoveDescription(actor, imageID)
	})
	return err
}

// SubmitGuess scores a codebreaker's guess and blocks until it is applied
func (s *Session) SubmitGuess(ctx context.Context, actor model.PlayerID, word string, count int) (*model.GuessResult, error) {
	v, err := s.send(ctx, "submit-guess", func(reply chan<- result) {
		if err := s.beginGuess(actor, word, count, reply); err != nil {
			reply <- result{err: err}
		}
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.GuessResult), nil
}

// Reset starts a new round from the lobby with a fresh board
func (s *Session) Reset(ctx context.Context, actor model.PlayerID) error {
	_, err := s.do(ctx, "reset-game", func() (any, error) {
		return nil, s.handleReset(actor)
	})
	return err
}

// ForceExpiry ends phase as if its countdown had reached zero.
// It does nothing if the room has already left that phase.
func (s *Session) ForceExpiry(ctx context.Context, phase model.Phase) error {
	_, err := s.do(ctx, "force-expiry", func() (any, error) {
		s.expire(phase)
		return nil, nil
	})
	return err
}
