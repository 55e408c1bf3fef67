package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	var jsonOutput, useWebSocket bool
	var limit int

	cmd := &cobra.Command{
		Use:   "events <room>",
		Short: "Stream live updates from a room",
		Long: `Connect to the room's event stream and print updates in real-time.

By default the read-only server-sent events stream is used; --ws follows the
room over its WebSocket instead. Events include:
  - connected: Stream established (SSE only)
  - room-updated: The room changed; carries the room as you see it
  - room-closed: The room was shut down

Press Ctrl+C to disconnect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			p := &eventPrinter{out: cmd.OutOrStdout(), json: jsonOutput, limit: limit}
			if useWebSocket {
				return streamWebSocket(ctx, args[0], p)
			}
			return streamEvents(ctx, args[0], p)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")
	cmd.Flags().BoolVar(&useWebSocket, "ws", false, "Follow the room over its WebSocket")
	cmd.Flags().IntVar(&limit, "limit", 0, "Disconnect after this many events (default: no limit)")

	return cmd
}

// StreamEvent represents one received event
type StreamEvent struct {
	Time  time.Time `json:"time"`
	Event string    `json:"event"`
	Data  string    `json:"data"`
}

// errLimitReached stops a stream once enough events are printed
var errLimitReached = errors.New("event limit reached")

type eventPrinter struct {
	out   io.Writer
	json  bool
	limit int
	count int
}

func (p *eventPrinter) print(event, data string) error {
	now := time.Now()

	if p.json {
		jsonData, _ := json.Marshal(StreamEvent{Time: now, Event: event, Data: data})
		fmt.Fprintln(p.out, string(jsonData))
	} else {
		timestamp := now.Format("2006-01-02 15:04:05")
		// Truncate data if it's too long for display
		displayData := data
		if len(displayData) > 100 {
			displayData = displayData[:100] + "..."
		}
		// Remove newlines for cleaner display
		displayData = strings.ReplaceAll(displayData, "\n", " ")
		fmt.Fprintf(p.out, "[%s] %s: %s\n", timestamp, event, displayData)
	}

	p.count++
	if p.limit > 0 && p.count >= p.limit {
		return errLimitReached
	}
	return nil
}

func (p *eventPrinter) status(msg string) {
	if !p.json {
		fmt.Fprintln(p.out, msg)
	}
}

func streamEvents(ctx context.Context, roomID string, p *eventPrinter) error {
	url := strings.TrimSuffix(cfg.ServerURL, "/") + roomPath(roomID, "events")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set(PlayerHeader, cfg.PlayerID)

	httpClient := &http.Client{
		Timeout: 0, // No timeout for SSE
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	p.status("Connected to room " + roomID)

	// Parse SSE stream
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	var currentEvent string
	var dataLines []string

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "event: "):
			currentEvent = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		case line == "":
			// End of event
			if currentEvent != "" {
				if err := p.print(currentEvent, strings.Join(dataLines, "\n")); err != nil {
					return nil
				}
			}
			currentEvent = ""
			dataLines = nil
		}
	}

	if err := scanner.Err(); err != nil {
		// Context cancellation is expected
		if ctx.Err() != nil {
			p.status("\nDisconnected")
			return nil
		}
		return fmt.Errorf("stream error: %w", err)
	}

	p.status("Disconnected")
	return nil
}

func streamWebSocket(ctx context.Context, roomID string, p *eventPrinter) error {
	url := strings.TrimSuffix(cfg.ServerURL, "/") + roomPath(roomID, "ws")
	url = "ws" + strings.TrimPrefix(url, "http")

	header := http.Header{}
	header.Set(PlayerHeader, cfg.PlayerID)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer func() { _ = conn.Close() }()

	// Unblock the read loop on interrupt
	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	p.status("Connected to room " + roomID)

	for {
		var env struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := conn.ReadJSON(&env); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				p.status("Disconnected")
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		}
		if err := p.print(env.Type, string(env.Payload)); err != nil {
			return nil
		}
	}
}
