package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"
)

//go:embed frontend
var frontendFS embed.FS

const (
	maxUploadSize = 10 << 20 // 10 Mo
	maxPuzzleSize = 1 << 20
)

var allowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// puzzleExtractor reads a puzzle out of a photo. *GeminiClient implements it.
type puzzleExtractor interface {
	ExtractPuzzle(ctx context.Context, imageData []byte, mimeType string) (*Puzzle, error)
}

// rateLimiter gives every client IP its own token bucket holding n tokens
// that refill evenly over interval.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiter(n int, interval time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(float64(n) / interval.Seconds()),
		burst:    n,
	}
	// Cleanup stale entries every minute.
	go func() {
		for {
			time.Sleep(time.Minute)
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if time.Since(v.lastSeen) > 5*time.Minute {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}()
	return rl
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	rl.mu.Unlock()

	return v.limiter.Allow()
}

// clientIP strips the port so every connection from one host shares a bucket.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Server is the main HTTP server.
type Server struct {
	mux       *http.ServeMux
	store     *Store
	extractor puzzleExtractor
	sse       *Broadcaster
	logger    *slog.Logger
	workers   int
	uploadRL  *rateLimiter
	claimRL   *rateLimiter
}

// NewServer creates a configured HTTP server. extractor may be nil, which
// disables photo uploads.
func NewServer(store *Store, extractor puzzleExtractor, cfg Config, logger *slog.Logger) *Server {
	s := &Server{
		mux:       http.NewServeMux(),
		store:     store,
		extractor: extractor,
		sse:       NewBroadcaster(),
		logger:    logger,
		workers:   cfg.SolveWorkers,
		uploadRL:  newRateLimiter(cfg.Limits.UploadsPerMinute, time.Minute),
		claimRL:   newRateLimiter(cfg.Limits.ClaimsPerSecond, time.Second),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	// Puzzle API
	s.mux.HandleFunc("POST /api/puzzles", s.handleCreatePuzzle)
	s.mux.HandleFunc("POST /api/puzzles/image", s.handleCreatePuzzleFromImage)
	s.mux.HandleFunc("GET /api/puzzles", s.handleListPuzzles)
	s.mux.HandleFunc("GET /api/puzzles/{id}", s.handleGetPuzzle)
	s.mux.HandleFunc("GET /api/puzzles/{id}/solution", s.handleSolvePuzzle)

	// Game API
	s.mux.HandleFunc("POST /api/games", s.handleCreateGame)
	s.mux.HandleFunc("GET /api/games", s.handleListGames)
	s.mux.HandleFunc("GET /api/games/{id}", s.handleGetGame)
	s.mux.HandleFunc("POST /api/games/{id}/join", s.handleJoinGame)
	s.mux.HandleFunc("POST /api/games/{id}/claim", s.handleClaim)
	s.mux.HandleFunc("GET /api/games/{id}/events", s.handleGameEvents)

	// Frontend static files
	frontendDir, _ := fs.Sub(frontendFS, "frontend")
	fileServer := http.FileServer(http.FS(frontendDir))
	s.mux.HandleFunc("GET /game/{id}", s.handleGamePage)
	s.mux.Handle("GET /", fileServer)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
	s.mux.ServeHTTP(w, r)
}

// --- Puzzle handlers ---

// POST /api/puzzles: text puzzle (text/plain) or JSON document.
func (s *Server) handleCreatePuzzle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPuzzleSize))
	if err != nil {
		jsonError(w, "Puzzle trop volumineux (max 1 Mo)", http.StatusRequestEntityTooLarge)
		return
	}

	var p *Puzzle
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		p, err = ParsePuzzleJSON(body)
	} else {
		p, err = ParsePuzzle(strings.NewReader(string(body)))
	}
	if err != nil {
		s.logger.Info("puzzle rejected", "err", err)
		jsonError(w, "Puzzle invalide : "+err.Error(), http.StatusBadRequest)
		return
	}

	s.store.SavePuzzle(p)
	s.logger.Info("puzzle created", "puzzle", p.ID, "rows", p.Grid.Rows(), "cols", p.Grid.Cols(), "words", len(p.Words))
	writeJSON(w, http.StatusCreated, p)
}

// POST /api/puzzles/image: upload a photo, extract with Gemini, save puzzle.
func (s *Server) handleCreatePuzzleFromImage(w http.ResponseWriter, r *http.Request) {
	if !s.uploadRL.allow(clientIP(r)) {
		jsonError(w, "Trop de requêtes, réessayez plus tard", http.StatusTooManyRequests)
		return
	}

	if s.extractor == nil {
		jsonError(w, "Analyse d'image non configurée", http.StatusServiceUnavailable)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		jsonError(w, "Image trop volumineuse (max 10 Mo)", http.StatusRequestEntityTooLarge)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		jsonError(w, "Champ 'image' requis", http.StatusBadRequest)
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if !allowedMIME[mimeType] {
		jsonError(w, "Format accepté : JPEG ou PNG", http.StatusBadRequest)
		return
	}

	imageData, err := io.ReadAll(file)
	if err != nil {
		jsonError(w, "Erreur de lecture de l'image", http.StatusInternalServerError)
		return
	}

	p, err := s.extractor.ExtractPuzzle(r.Context(), imageData, mimeType)
	if err != nil {
		s.logger.Error("puzzle extraction failed", "err", err)
		jsonError(w, "Erreur lors de l'analyse de la grille", http.StatusUnprocessableEntity)
		return
	}

	s.store.SavePuzzle(p)
	s.logger.Info("puzzle extracted", "puzzle", p.ID, "rows", p.Grid.Rows(), "cols", p.Grid.Cols(), "words", len(p.Words))
	writeJSON(w, http.StatusCreated, p)
}

// GET /api/puzzles: list all puzzles.
func (s *Server) handleListPuzzles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListPuzzles())
}

// GET /api/puzzles/{id}: get a single puzzle.
func (s *Server) handleGetPuzzle(w http.ResponseWriter, r *http.Request) {
	p := s.store.GetPuzzle(r.PathValue("id"))
	if p == nil {
		jsonError(w, "Puzzle introuvable", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GET /api/puzzles/{id}/solution: every word's placement. ?format=text
// returns one line per word.
func (s *Server) handleSolvePuzzle(w http.ResponseWriter, r *http.Request) {
	p := s.store.GetPuzzle(r.PathValue("id"))
	if p == nil {
		jsonError(w, "Puzzle introuvable", http.StatusNotFound)
		return
	}

	results, err := SolveParallel(r.Context(), p.Grid, p.Words, s.workers)
	if err != nil {
		s.logger.Warn("solve interrupted", "puzzle", p.ID, "err", err)
		jsonError(w, "Résolution interrompue", http.StatusServiceUnavailable)
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		for _, res := range results {
			io.WriteString(w, res.String()+"\n")
		}
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// --- Game handlers ---

// POST /api/games: create a game from a puzzle.
func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PuzzleID string `json:"puzzle_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PuzzleID == "" {
		jsonError(w, "Champ 'puzzle_id' requis", http.StatusBadRequest)
		return
	}

	game, err := s.store.CreateGame(req.PuzzleID)
	if err != nil {
		jsonError(w, "Puzzle introuvable", http.StatusNotFound)
		return
	}

	s.logger.Info("game created", "game", game.ID, "puzzle", game.PuzzleID, "findable", game.Remaining)
	writeJSON(w, http.StatusCreated, game.Snapshot())
}

// GET /api/games: list all games.
func (s *Server) handleListGames(w http.ResponseWriter, _ *http.Request) {
	games := s.store.ListGames()
	out := make([]*GameSession, len(games))
	for i, g := range games {
		out[i] = g.Snapshot()
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /api/games/{id}: get current game state.
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	game := s.store.GetGame(r.PathValue("id"))
	if game == nil {
		jsonError(w, "Partie introuvable", http.StatusNotFound)
		return
	}

	resp := struct {
		*GameSession
		Puzzle *Puzzle `json:"puzzle"`
	}{
		GameSession: game.Snapshot(),
		Puzzle:      s.store.GetPuzzle(game.PuzzleID),
	}
	writeJSON(w, http.StatusOK, resp)
}

// POST /api/games/{id}/join: join a game with a pseudo.
func (s *Server) handleJoinGame(w http.ResponseWriter, r *http.Request) {
	game := s.store.GetGame(r.PathValue("id"))
	if game == nil {
		jsonError(w, "Partie introuvable", http.StatusNotFound)
		return
	}

	var req struct {
		Pseudo string `json:"pseudo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Pseudo == "" {
		jsonError(w, "Champ 'pseudo' requis", http.StatusBadRequest)
		return
	}

	pseudo := sanitizePseudo(req.Pseudo)
	if pseudo == "" {
		jsonError(w, "Pseudo invalide", http.StatusBadRequest)
		return
	}

	player := game.AddPlayer(pseudo)
	s.publish(game.ID, Event{Type: EventPlayerJoined, Data: map[string]string{
		"pseudo": player.Pseudo,
		"color":  player.Color,
	}})

	writeJSON(w, http.StatusOK, player)
}

// POST /api/games/{id}/claim: a player points at a word.
func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	if !s.claimRL.allow(clientIP(r)) {
		jsonError(w, "Trop de requêtes, réessayez plus tard", http.StatusTooManyRequests)
		return
	}

	game := s.store.GetGame(r.PathValue("id"))
	if game == nil {
		jsonError(w, "Partie introuvable", http.StatusNotFound)
		return
	}

	var req struct {
		Pseudo string   `json:"pseudo"`
		Word   string   `json:"word"`
		Start  Position `json:"start"`
		End    Position `json:"end"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Word == "" {
		jsonError(w, "Requête invalide", http.StatusBadRequest)
		return
	}

	found, done, err := game.Claim(sanitizePseudo(req.Pseudo), req.Word, req.Start, req.End)
	switch {
	case errors.Is(err, ErrUnknownPlayer):
		jsonError(w, "Rejoignez la partie avant de jouer", http.StatusForbidden)
		return
	case errors.Is(err, ErrUnknownWord):
		jsonError(w, "Ce mot n'est pas à trouver dans cette grille", http.StatusBadRequest)
		return
	case errors.Is(err, ErrAlreadyFound):
		jsonError(w, "Mot déjà trouvé", http.StatusConflict)
		return
	case errors.Is(err, ErrWrongPlacement):
		jsonError(w, "Ces cases ne forment pas le mot", http.StatusUnprocessableEntity)
		return
	case err != nil:
		s.logger.Error("claim failed", "game", game.ID, "err", err)
		jsonError(w, "Erreur interne", http.StatusInternalServerError)
		return
	}

	s.publish(game.ID, Event{Type: EventWordFound, Data: found})
	if done {
		s.logger.Info("game complete", "game", game.ID)
		s.publish(game.ID, Event{Type: EventGameComplete, Data: game.Snapshot()})
	}

	writeJSON(w, http.StatusOK, found)
}

// GET /api/games/{id}/events: SSE stream.
func (s *Server) handleGameEvents(w http.ResponseWriter, r *http.Request) {
	game := s.store.GetGame(r.PathValue("id"))
	if game == nil {
		jsonError(w, "Partie introuvable", http.StatusNotFound)
		return
	}

	playerPseudo := sanitizePseudo(r.URL.Query().Get("pseudo"))
	if playerPseudo != "" {
		game.Connect(playerPseudo)
	}
	initial := &Event{Type: EventGameState, Data: game.Snapshot()}

	s.sse.ServeSSE(w, r, game.ID, initial, func() {
		// player_left only once the pseudo's last stream is gone.
		if playerPseudo != "" && game.Disconnect(playerPseudo) {
			s.publish(game.ID, Event{Type: EventPlayerLeft, Data: map[string]string{
				"pseudo": playerPseudo,
			}})
		}
	})
}

func (s *Server) publish(gameID string, evt Event) {
	if err := s.sse.Publish(gameID, evt); err != nil {
		s.logger.Error("publish event", "game", gameID, "type", evt.Type, "err", err)
	}
}

// --- Frontend page handlers ---

// GET /game/{id}: serve the game page.
func (s *Server) handleGamePage(w http.ResponseWriter, _ *http.Request) {
	data, _ := frontendFS.ReadFile("frontend/game.html")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizePseudo(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > 20 {
		s = string([]rune(s)[:20])
	}
	return s
}
