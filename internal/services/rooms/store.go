package rooms

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/mcoot/shadowtag/internal/dependencies/clock"
	"github.com/mcoot/shadowtag/internal/dependencies/random"
	"github.com/mcoot/shadowtag/internal/model"
	"github.com/mcoot/shadowtag/internal/services/board"
	"github.com/mcoot/shadowtag/internal/services/resolver"
	"github.com/mcoot/shadowtag/internal/services/scoring"
	"github.com/mcoot/shadowtag/internal/services/session"
)

const (
	// RoomCodeLength is the length of generated room codes
	RoomCodeLength = 6
	// RoomCodeAlphabet is the characters used in room codes (avoid confusing chars)
	RoomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	maxCodeAttempts = 100
)

var roomIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

// ValidateRoomID checks that a client-supplied room ID is well formed
func ValidateRoomID(id model.RoomID) error {
	if !roomIDPattern.MatchString(string(id)) {
		return model.ErrInvalidRoomID
	}
	return nil
}

// Hubs connects sessions to their broadcast channels
type Hubs interface {
	Publisher(roomID model.RoomID) session.Publisher
	ClientCount(roomID model.RoomID) int
	RemoveHub(roomID model.RoomID)
}

// Config controls room lifecycle
type Config struct {
	// IdleTimeout is how long a room with no connected clients and no
	// activity survives before it is reaped
	IdleTimeout time.Duration
	// ReapInterval is how often idle rooms are checked; defaults to IdleTimeout/2
	ReapInterval time.Duration
}

// DefaultConfig returns the standard room lifecycle settings
func DefaultConfig() Config {
	return Config{
		IdleTimeout:  30 * time.Minute,
		ReapInterval: 15 * time.Minute,
	}
}

// Store maps room IDs to live sessions
type Store struct {
	ctx        context.Context
	cfg        Config
	sessionCfg session.Config
	board      *board.Service
	resolver   *resolver.Service
	scoring    *scoring.Service
	clock      clock.Clock
	random     random.Random
	hubs       Hubs
	logger     *slog.Logger
	baseLogger *slog.Logger

	mu       sync.Mutex
	sessions map[model.RoomID]*session.Session
}

// New creates a Store. Sessions run until ctx is cancelled or they are removed.
func New(
	ctx context.Context,
	cfg Config,
	sessionCfg session.Config,
	boardService *board.Service,
	resolverService *resolver.Service,
	scoringService *scoring.Service,
	clk clock.Clock,
	rnd random.Random,
	hubs Hubs,
	logger *slog.Logger,
) *Store {
	return &Store{
		ctx:        ctx,
		cfg:        cfg,
		sessionCfg: sessionCfg,
		board:      boardService,
		resolver:   resolverService,
		scoring:    scoringService,
		clock:      clk,
		random:     rnd,
		hubs:       hubs,
		logger:     logger.With(slog.String("component", "room-store")),
		baseLogger: logger,
		sessions:   make(map[model.RoomID]*session.Session),
	}
}

// Create makes a room with a fresh random code
func (s *Store) Create(ctx context.Context) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		id := model.RoomID(s.random.String(RoomCodeLength, RoomCodeAlphabet))
		if _, exists := s.sessions[id]; exists || id == "" {
			continue
		}
		return s.createLocked(ctx, id)
	}
	return nil, errors.New("could not allocate a room code")
}

// GetOrCreate returns the room's session, creating it on first use
func (s *Store) GetOrCreate(ctx context.Context, id model.RoomID) (*session.Session, error) {
	if err := ValidateRoomID(id); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		return sess, nil
	}
	return s.createLocked(ctx, id)
}

// Get returns the room's session or ErrRoomNotFound
func (s *Store) Get(id model.RoomID) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	return sess, nil
}

// Remove stops a room's session and drops its broadcast hub. The store
// stays locked until both are gone, so a join for the same ID waits and then
// gets a fresh session and hub.
func (s *Store) Remove(id model.RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)
}

func (s *Store) removeLocked(id model.RoomID) {
	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	delete(s.sessions, id)
	sess.Close()
	<-sess.Done()
	s.hubs.RemoveHub(id)
	s.logger.Info("room removed", slog.String("room_id", string(id)))
}

// List returns the IDs of all live rooms, sorted
func (s *Store) List() []model.RoomID {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]model.RoomID, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Count returns the number of live rooms
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Run reaps idle rooms until ctx is cancelled
func (s *Store) Run(ctx context.Context) {
	if s.cfg.IdleTimeout <= 0 {
		return
	}
	interval := s.cfg.ReapInterval
	if interval <= 0 {
		interval = s.cfg.IdleTimeout / 2
	}

	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			s.Reap()
		}
	}
}

// Reap removes rooms with no connected clients that have been idle for
// longer than IdleTimeout. Returns the number removed.
func (s *Store) Reap() int {
	cutoff := s.clock.Now().Add(-s.cfg.IdleTimeout)

	s.mu.Lock()
	var idle []model.RoomID
	for id, sess := range s.sessions {
		if s.hubs.ClientCount(id) == 0 && sess.LastActivity().Before(cutoff) {
			idle = append(idle, id)
		}
	}
	for _, id := range idle {
		s.removeLocked(id)
	}
	s.mu.Unlock()

	if len(idle) > 0 {
		s.logger.Info("reaped idle rooms", slog.Int("count", len(idle)))
	}
	return len(idle)
}

// Close stops every session
func (s *Store) Close() {
	for _, id := range s.List() {
		s.Remove(id)
	}
}

func (s *Store) createLocked(ctx context.Context, id model.RoomID) (*session.Session, error) {
	sess, err := session.New(
		ctx, id, s.sessionCfg,
		s.board, s.resolver, s.scoring,
		s.clock, s.hubs.Publisher(id), s.baseLogger,
	)
	if err != nil {
		return nil, err
	}
	s.sessions[id] = sess
	go sess.Run(s.ctx)

	s.logger.Info("room created", slog.String("room_id", string(id)))
	return sess, nil
}
