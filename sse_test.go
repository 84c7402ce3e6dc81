package main

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcasterRegisterUnregister(t *testing.T) {
	b := NewBroadcaster()

	c1 := b.Register("game1")
	c2 := b.Register("game1")
	c3 := b.Register("game2")

	assert.Equal(t, 2, b.ClientCount("game1"))
	assert.Equal(t, 1, b.ClientCount("game2"))

	b.Unregister(c1)
	assert.Equal(t, 1, b.ClientCount("game1"))

	b.Unregister(c2)
	b.Unregister(c3)
	assert.Zero(t, b.ClientCount("game1"))
	assert.Zero(t, b.ClientCount("game2"))
}

func TestBroadcasterDoubleUnregister(t *testing.T) {
	b := NewBroadcaster()
	c := b.Register("game1")
	b.Unregister(c)
	assert.NotPanics(t, func() { b.Unregister(c) })
}

func receive(t *testing.T, c *client) string {
	t.Helper()
	select {
	case msg := <-c.ch:
		return msg
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client did not receive message")
		return ""
	}
}

func TestPublish(t *testing.T) {
	b := NewBroadcaster()

	c1 := b.Register("game1")
	c2 := b.Register("game1")
	c3 := b.Register("game2")
	defer func() {
		b.Unregister(c1)
		b.Unregister(c2)
		b.Unregister(c3)
	}()

	require.NoError(t, b.Publish("game1", Event{Type: EventPlayerJoined, Data: map[string]string{"pseudo": "Alice"}}))

	want := "event: player_joined\ndata: {\"pseudo\":\"Alice\"}\n\n"
	assert.Equal(t, want, receive(t, c1))
	assert.Equal(t, want, receive(t, c2))

	// c3 is on game2, should not receive.
	select {
	case <-c3.ch:
		t.Fatal("c3 should not receive game1 message")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishEncodeError(t *testing.T) {
	b := NewBroadcaster()
	err := b.Publish("game1", Event{Type: EventWordFound, Data: make(chan int)})
	assert.Error(t, err)
}

func TestPublishSkipsFullChannel(t *testing.T) {
	b := NewBroadcaster()
	c := b.Register("game1")
	defer b.Unregister(c)

	for range sseChannelBuffer {
		require.NoError(t, b.Publish("game1", Event{Type: "fill"}))
	}

	done := make(chan struct{})
	go func() {
		b.Publish("game1", Event{Type: "overflow"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full client")
	}
}

func TestBroadcasterConcurrent(t *testing.T) {
	b := NewBroadcaster()
	var wg sync.WaitGroup

	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			gameID := "game1"
			if i%2 == 0 {
				gameID = "game2"
			}
			c := b.Register(gameID)
			b.Publish(gameID, Event{Type: "msg"})
			b.ClientCount(gameID)
			b.Unregister(c)
		}(i)
	}
	wg.Wait()

	assert.Zero(t, b.ClientCount("game1"))
	assert.Zero(t, b.ClientCount("game2"))
}

func TestServeSSE(t *testing.T) {
	b := NewBroadcaster()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/api/games/g1/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	disconnected := make(chan struct{})
	done := make(chan struct{})
	go func() {
		b.ServeSSE(w, req, "g1", &Event{Type: EventGameState, Data: map[string]int{"remaining": 3}}, func() {
			close(disconnected)
		})
		close(done)
	}()

	require.Eventually(t, func() bool { return b.ClientCount("g1") == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	<-disconnected

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "event: game_state\ndata: {\"remaining\":3}\n\n"))
	assert.Zero(t, b.ClientCount("g1"))
}
