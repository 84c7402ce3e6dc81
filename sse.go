package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const (
	sseChannelBuffer = 16
	sseHeartbeat     = 30 * time.Second
)

// Event types pushed to game subscribers.
const (
	EventGameState    = "game_state"
	EventPlayerJoined = "player_joined"
	EventPlayerLeft   = "player_left"
	EventWordFound    = "word_found"
	EventGameComplete = "game_complete"
)

// Event is one server-sent message. Data is encoded as JSON.
type Event struct {
	Type string
	Data any
}

// encode renders the event in text/event-stream framing.
func (e Event) encode() (string, error) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return "", fmt.Errorf("encode %s event: %w", e.Type, err)
	}
	return fmt.Sprintf("event: %s\ndata: %s\n\n", e.Type, data), nil
}

// client represents a single SSE connection.
type client struct {
	ch     chan string
	gameID string
}

// Broadcaster fans game events out to the SSE clients of each game.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[*client]struct{}),
	}
}

// Register adds a client for a game session and returns it.
func (b *Broadcaster) Register(gameID string) *client {
	c := &client{
		ch:     make(chan string, sseChannelBuffer),
		gameID: gameID,
	}
	b.mu.Lock()
	b.clients[c] = struct{}{}
	b.mu.Unlock()
	return c
}

// Unregister removes a client and closes its channel.
func (b *Broadcaster) Unregister(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.ch)
	}
	b.mu.Unlock()
}

// Publish sends evt to every client of gameID. Clients whose buffer is full
// miss the event.
func (b *Broadcaster) Publish(gameID string, evt Event) error {
	msg, err := evt.encode()
	if err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for c := range b.clients {
		if c.gameID != gameID {
			continue
		}
		select {
		case c.ch <- msg:
		default:
		}
	}
	return nil
}

// ClientCount returns the number of connected clients for a game.
func (b *Broadcaster) ClientCount(gameID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for c := range b.clients {
		if c.gameID == gameID {
			n++
		}
	}
	return n
}

// ServeSSE streams a game's events until the request context ends.
// initial, when non-nil, is delivered to this client only, before anything
// published afterwards. onDisconnect, when non-nil, runs once on return.
func (b *Broadcaster) ServeSSE(w http.ResponseWriter, r *http.Request, gameID string, initial *Event, onDisconnect func()) {
	if onDisconnect != nil {
		defer onDisconnect()
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming non supporté", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	c := b.Register(gameID)
	defer b.Unregister(c)

	if initial != nil {
		msg, err := initial.encode()
		if err != nil {
			return
		}
		fmt.Fprint(w, msg)
		flusher.Flush()
	}

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-c.ch:
			if !ok {
				return
			}
			fmt.Fprint(w, msg)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}
