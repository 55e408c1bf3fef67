package broadcast

import (
	"sync"
	"time"

	"github.com/mcoot/shadowtag/internal/model"
	"github.com/mcoot/shadowtag/internal/protocol"
)

// Buffer size for outgoing messages
const sendBufferSize = 256

// Client is a single subscriber to a room's updates.
// The transport that owns it drains Messages until the channel closes.
type Client struct {
	mu          sync.RWMutex
	playerID    model.PlayerID
	send        chan protocol.Message
	connectedAt time.Time
}

// NewClient creates a client viewing the room as playerID.
// An empty playerID is a spectator until Bind is called.
func NewClient(playerID model.PlayerID) *Client {
	return &Client{
		playerID:    playerID,
		send:        make(chan protocol.Message, sendBufferSize),
		connectedAt: time.Now(),
	}
}

// PlayerID returns the player the client views the room as
func (c *Client) PlayerID() model.PlayerID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// Bind attaches the client to a player once they have joined
func (c *Client) Bind(playerID model.PlayerID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
}

// Messages returns the channel of outbound messages
func (c *Client) Messages() <-chan protocol.Message {
	return c.send
}
