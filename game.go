package main

import (
	"errors"
	"strings"
	"sync"
	"time"
)

var (
	ErrUnknownPlayer  = errors.New("player has not joined the game")
	ErrUnknownWord    = errors.New("word is not part of the puzzle")
	ErrAlreadyFound   = errors.New("word was already found")
	ErrWrongPlacement = errors.New("cells do not spell the word")
)

// Player represents a connected player.
type Player struct {
	Pseudo   string    `json:"pseudo"`
	Color    string    `json:"color"`
	Score    int       `json:"score"`
	Online   bool      `json:"online"`
	JoinedAt time.Time `json:"joined_at"`
}

// FoundWord records who located a word and where.
type FoundWord struct {
	Word      string    `json:"word"`
	Pseudo    string    `json:"pseudo"`
	Color     string    `json:"color"`
	Placement Placement `json:"placement"`
	At        time.Time `json:"at"`
}

// GameSession is a collaborative hunt over one puzzle. Players claim words
// by pointing at the first and last letter.
type GameSession struct {
	ID        string                `json:"id"`
	PuzzleID  string                `json:"puzzle_id"`
	Players   map[string]*Player    `json:"players"`
	Found     map[string]*FoundWord `json:"found"`
	Remaining int                   `json:"remaining"`
	CreatedAt time.Time             `json:"created_at"`

	puzzle *Puzzle
	// findable maps the upper-cased word to its puzzle spelling, for words
	// the solver can locate.
	findable map[string]string
	// streams counts open event streams per pseudo.
	streams map[string]int
	mu      sync.Mutex
}

// playerColors is the palette assigned to players in order.
var playerColors = []string{
	"#2563eb", "#dc2626", "#16a34a", "#9333ea",
	"#ea580c", "#0891b2", "#c026d3", "#ca8a04",
}

func newGameSession(id string, p *Puzzle) *GameSession {
	findable := make(map[string]string)
	for _, r := range Solve(p.Grid, p.Words) {
		if r.Status == StatusFound {
			findable[strings.ToUpper(r.Word)] = r.Word
		}
	}
	return &GameSession{
		ID:        id,
		PuzzleID:  p.ID,
		Players:   make(map[string]*Player),
		Found:     make(map[string]*FoundWord),
		Remaining: len(findable),
		CreatedAt: time.Now(),
		puzzle:    p,
		findable:  findable,
		streams:   make(map[string]int),
	}
}

// AddPlayer adds a player to the session and returns the player.
func (g *GameSession) AddPlayer(pseudo string) *Player {
	g.mu.Lock()
	defer g.mu.Unlock()

	if p, ok := g.Players[pseudo]; ok {
		return p
	}

	p := &Player{
		Pseudo:   pseudo,
		Color:    playerColors[len(g.Players)%len(playerColors)],
		JoinedAt: time.Now(),
	}
	g.Players[pseudo] = p
	return p
}

// Connect registers an open event stream for pseudo and marks the player
// online.
func (g *GameSession) Connect(pseudo string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.streams[pseudo]++
	if p, ok := g.Players[pseudo]; ok {
		p.Online = true
	}
}

// Disconnect closes one event stream for pseudo. It returns true when that
// was the player's last stream; the player then goes offline but keeps
// their score and may still claim words.
func (g *GameSession) Disconnect(pseudo string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.streams[pseudo] == 0 {
		return false
	}
	g.streams[pseudo]--
	if g.streams[pseudo] > 0 {
		return false
	}
	delete(g.streams, pseudo)
	if p, ok := g.Players[pseudo]; ok {
		p.Online = false
	}
	return true
}

// Claim records that pseudo found word between start and end. The word is
// matched case-insensitively against the puzzle list. done is true for
// exactly one claim: the one that found the last word.
func (g *GameSession) Claim(pseudo, word string, start, end Position) (fw *FoundWord, done bool, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	player, ok := g.Players[pseudo]
	if !ok {
		return nil, false, ErrUnknownPlayer
	}

	key := strings.ToUpper(strings.TrimSpace(word))
	canonical, ok := g.findable[key]
	if !ok {
		return nil, false, ErrUnknownWord
	}
	if _, claimed := g.Found[key]; claimed {
		return nil, false, ErrAlreadyFound
	}
	if !VerifyPlacement(g.puzzle.Grid, canonical, start, end) {
		return nil, false, ErrWrongPlacement
	}

	d, _, _ := directionOf(start, end)
	fw = &FoundWord{
		Word:      canonical,
		Pseudo:    player.Pseudo,
		Color:     player.Color,
		Placement: Placement{Start: start, End: end, Direction: d},
		At:        time.Now(),
	}
	g.Found[key] = fw
	g.Remaining--
	player.Score++
	return fw, g.Remaining == 0, nil
}

// Complete reports whether every findable word has been claimed.
func (g *GameSession) Complete() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Remaining == 0
}

// Snapshot returns a copy of the session safe to encode while play goes on.
func (g *GameSession) Snapshot() *GameSession {
	g.mu.Lock()
	defer g.mu.Unlock()

	cp := &GameSession{
		ID:        g.ID,
		PuzzleID:  g.PuzzleID,
		Players:   make(map[string]*Player, len(g.Players)),
		Found:     make(map[string]*FoundWord, len(g.Found)),
		Remaining: g.Remaining,
		CreatedAt: g.CreatedAt,
	}
	for k, p := range g.Players {
		pc := *p
		cp.Players[k] = &pc
	}
	for k, f := range g.Found {
		fc := *f
		cp.Found[k] = &fc
	}
	return cp
}
