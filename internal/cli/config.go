package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Config holds CLI configuration
type Config struct {
	ServerURL  string
	PlayerID   string
	PlayerFile string
	Output     string
	Verbose    bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:  getEnvOrDefault("SHADOWTAG_SERVER", "http://localhost:8080"),
		PlayerID:   os.Getenv("SHADOWTAG_PLAYER"),
		PlayerFile: getEnvOrDefault("SHADOWTAG_PLAYER_FILE", defaultPlayerFile()),
		Output:     "text",
		Verbose:    false,
	}
}

// LoadPlayer resolves the player ID: flag or env first, then the player
// file, otherwise a fresh ID that is saved for next time
func (c *Config) LoadPlayer() error {
	if c.PlayerID != "" {
		return nil
	}

	data, err := os.ReadFile(c.PlayerFile)
	if err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			c.PlayerID = id
			return nil
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	return c.SavePlayer(uuid.NewString())
}

// SavePlayer saves the player ID to the player file
func (c *Config) SavePlayer(id string) error {
	c.PlayerID = id

	dir := filepath.Dir(c.PlayerFile)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	return os.WriteFile(c.PlayerFile, []byte(id), 0600)
}

func defaultPlayerFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".shadowtag/player"
	}
	return filepath.Join(home, ".shadowtag", "player")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
