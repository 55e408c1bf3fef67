package factory

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mcoot/shadowtag/internal/api"
	"github.com/mcoot/shadowtag/internal/broadcast"
	"github.com/mcoot/shadowtag/internal/config"
	"github.com/mcoot/shadowtag/internal/dependencies/clock"
	"github.com/mcoot/shadowtag/internal/dependencies/random"
	"github.com/mcoot/shadowtag/internal/protocol"
	"github.com/mcoot/shadowtag/internal/services/board"
	"github.com/mcoot/shadowtag/internal/services/resolver"
	"github.com/mcoot/shadowtag/internal/services/rooms"
	"github.com/mcoot/shadowtag/internal/services/scoring"
	"github.com/mcoot/shadowtag/internal/services/session"
	"github.com/mcoot/shadowtag/internal/similarity"
	"github.com/mcoot/shadowtag/internal/storage"
	"github.com/mcoot/shadowtag/internal/storage/memory"
	redisstorage "github.com/mcoot/shadowtag/internal/storage/redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random
	Oracle similarity.Oracle

	// Services
	BoardService    *board.Service
	ResolverService *resolver.Service
	ScoringService  *scoring.Service
	HubManager      *broadcast.HubManager
	RoomStore       *rooms.Store
	Dispatcher      *protocol.Dispatcher

	Logger *slog.Logger

	cancel context.CancelFunc
	closer io.Closer
}

// dependencies are the pieces New builds from configuration and tests replace
type dependencies struct {
	store       storage.Storage
	oracle      similarity.Oracle
	clock       clock.Clock
	random      random.Random
	sessionCfg  session.Config
	roomsCfg    rooms.Config
	boardCfg    board.Config
	concurrency int
	logger      *slog.Logger
}

// New creates a new application with all dependencies wired.
// Room sessions live until ctx is cancelled or Close is called.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var store storage.Storage
	var closer io.Closer
	switch cfg.Storage {
	case config.StorageRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		redisCfg.SimilarityTTL = cfg.SimilarityTTL
		redisStore, err := redisstorage.New(redisCfg)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		store = redisStore
		closer = redisStore
	default:
		store = memory.New()
	}

	oracle, err := newOracle(cfg, store, logger)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}

	sessionCfg := session.DefaultConfig()
	sessionCfg.DescriptionDuration = cfg.DescriptionSeconds
	sessionCfg.GuessingDuration = cfg.GuessingSeconds
	sessionCfg.MaxGuessCount = cfg.MaxGuessCount
	sessionCfg.ResolveTimeout = cfg.ResolveTimeout

	app := newWithDependencies(ctx, dependencies{
		store:       store,
		oracle:      oracle,
		clock:       clock.New(),
		random:      random.New(),
		sessionCfg:  sessionCfg,
		roomsCfg:    rooms.Config{IdleTimeout: cfg.RoomIdleTimeout, ReapInterval: cfg.ReapInterval},
		boardCfg:    board.Config{HazardCount: cfg.HazardCount},
		concurrency: cfg.ResolveConcurrency,
		logger:      logger,
	})
	app.closer = closer

	if cfg.CatalogPath != "" {
		if err := app.BoardService.LoadCatalogFromFile(ctx, cfg.CatalogPath); err != nil {
			app.Close()
			return nil, fmt.Errorf("loading image catalog: %w", err)
		}
	}

	return app, nil
}

// newOracle selects the similarity oracle. Remote oracles are cached in storage.
func newOracle(cfg config.Config, store storage.Storage, logger *slog.Logger) (similarity.Oracle, error) {
	switch cfg.Oracle {
	case config.OracleHTTP:
		return similarity.NewCachedOracle(similarity.NewHTTPOracle(cfg.OracleURL, cfg.OracleTimeout, logger), store, logger), nil
	case config.OracleEmbedding:
		embedding, err := similarity.NewEmbeddingOracle(similarity.EmbeddingConfig{
			URL:     cfg.EmbeddingURL,
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.EmbeddingModel,
			Timeout: cfg.OracleTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return similarity.NewCachedOracle(embedding, store, logger), nil
	default:
		return similarity.NewLexicalOracle(), nil
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(parent context.Context, deps dependencies) *App {
	ctx, cancel := context.WithCancel(parent)

	boardService := board.New(deps.store, deps.random, deps.boardCfg, deps.logger)
	resolverService := resolver.New(deps.oracle, deps.concurrency, deps.logger)
	scoringService := scoring.New()
	hubManager := broadcast.NewHubManager(deps.logger)
	roomStore := rooms.New(
		ctx, deps.roomsCfg, deps.sessionCfg,
		boardService, resolverService, scoringService,
		deps.clock, deps.random, hubManager, deps.logger,
	)
	dispatcher := protocol.NewDispatcher(roomStore, deps.logger)

	return &App{
		Storage:         deps.store,
		Clock:           deps.clock,
		Random:          deps.random,
		Oracle:          deps.oracle,
		BoardService:    boardService,
		ResolverService: resolverService,
		ScoringService:  scoringService,
		HubManager:      hubManager,
		RoomStore:       roomStore,
		Dispatcher:      dispatcher,
		Logger:          deps.logger,
		cancel:          cancel,
	}
}

// Router builds the HTTP handler serving the app
func (a *App) Router(publicURL string, allowedOrigins []string) http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:         a.Logger,
		RoomStore:      a.RoomStore,
		HubManager:     a.HubManager,
		Dispatcher:     a.Dispatcher,
		PublicURL:      publicURL,
		AllowedOrigins: allowedOrigins,
	})
}

// Run reaps idle rooms until ctx is cancelled
func (a *App) Run(ctx context.Context) {
	a.RoomStore.Run(ctx)
}

// Close stops every room and releases storage
func (a *App) Close() {
	a.RoomStore.Close()
	a.HubManager.Close()
	a.cancel()
	if a.closer != nil {
		if err := a.closer.Close(); err != nil {
			a.Logger.Warn("failed to close storage", slog.Any("error", err))
		}
	}
}
