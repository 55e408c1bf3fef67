package board

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/mcoot/shadowtag/internal/dependencies/random"
	"github.com/mcoot/shadowtag/internal/model"
	"github.com/mcoot/shadowtag/internal/storage"
)

const imageQuery = "?auto=format&fit=crop&w=400&h=300&q=80"

// DefaultCatalog is the built-in set of board images
var DefaultCatalog = []string{
	"https://images.unsplash.com/photo-1506744038136-46273834b3fb" + imageQuery,
	"https://images.unsplash.com/photo-1469474968028-56623f02e42e" + imageQuery,
	"https://images.unsplash.com/photo-1426604966848-d7adac402bff" + imageQuery,
	"https://images.unsplash.com/photo-1472214103451-9374bd1c798e" + imageQuery,
	"https://images.unsplash.com/photo-1470071459604-3b5ec3a7fe05" + imageQuery,
	"https://images.unsplash.com/photo-1441974231531-c6227db76b6e" + imageQuery,
	"https://images.unsplash.com/photo-1518173946687-a4c8892bbd9f" + imageQuery,
	"https://images.unsplash.com/photo-1475924156734-496f6cac6ec1" + imageQuery,
	"https://images.unsplash.com/photo-1682686581498-5e85c7228119" + imageQuery,
}

// DefaultHazardCount is the number of red images on a board
const DefaultHazardCount = 1

// Config controls board generation
type Config struct {
	HazardCount int
}

// DefaultConfig returns the standard board layout
func DefaultConfig() Config {
	return Config{HazardCount: DefaultHazardCount}
}

// Service generates image boards
type Service struct {
	storage storage.Storage
	random  random.Random
	cfg     Config
	logger  *slog.Logger
}

// New creates a new BoardService
func New(storage storage.Storage, random random.Random, cfg Config, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		random:  random,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "board-service")),
	}
}

// LoadCatalog replaces the image catalog in storage
func (s *Service) LoadCatalog(ctx context.Context, urls []string) error {
	cleaned := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			cleaned = append(cleaned, u)
		}
	}
	if len(cleaned) == 0 {
		return errors.New("image catalog is empty")
	}
	if err := s.storage.SaveImageCatalog(ctx, cleaned); err != nil {
		return fmt.Errorf("save image catalog: %w", err)
	}
	s.logger.Info("image catalog loaded", slog.Int("images", len(cleaned)))
	return nil
}

// LoadCatalogFromFile loads image URLs from a file (one per line, '#' comments)
func (s *Service) LoadCatalogFromFile(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var urls []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			urls = append(urls, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	return s.LoadCatalog(ctx, urls)
}

// Catalog returns the stored image catalog, or DefaultCatalog if none is loaded
func (s *Service) Catalog(ctx context.Context) ([]string, error) {
	urls, err := s.storage.GetImageCatalog(ctx)
	if errors.Is(err, model.ErrCatalogNotLoaded) {
		return append([]string(nil), DefaultCatalog...), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get image catalog: %w", err)
	}
	return urls, nil
}

// Generate builds a fresh shuffled board. HazardCount images are red, the
// rest split evenly between the teams with any odd one going to a random team.
func (s *Service) Generate(ctx context.Context) ([]model.Image, error) {
	urls, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	random.Shuffle(s.random, len(urls), func(i, j int) {
		urls[i], urls[j] = urls[j], urls[i]
	})

	teams := s.assignTeams(len(urls))

	images := make([]model.Image, len(urls))
	for i, url := range urls {
		images[i] = model.Image{
			ID:           model.ImageID(uuid.NewString()),
			URL:          url,
			Team:         teams[i],
			Descriptions: []model.Description{},
		}
	}
	return images, nil
}

func (s *Service) assignTeams(n int) []model.ImageTeam {
	hazards := min(max(s.cfg.HazardCount, 0), n)
	rest := n - hazards
	green, purple := rest/2, rest/2
	if rest%2 == 1 {
		if s.random.Intn(2) == 0 {
			green++
		} else {
			purple++
		}
	}

	teams := make([]model.ImageTeam, 0, n)
	for i := 0; i < green; i++ {
		teams = append(teams, model.ImageTeamGreen)
	}
	for i := 0; i < purple; i++ {
		teams = append(teams, model.ImageTeamPurple)
	}
	for i := 0; i < hazards; i++ {
		teams = append(teams, model.ImageTeamRed)
	}
	random.Shuffle(s.random, len(teams), func(i, j int) {
		teams[i], teams[j] = teams[j], teams[i]
	})
	return teams
}
