package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/tidwall/jsonc"
)

var (
	ErrMalformedDimensions = errors.New("the input contains invalid row and column dimensions")
	ErrInvalidDimensions   = errors.New("grid size is not valid")
	ErrMissingRows         = errors.New("grid row count does not match the declared size")
	ErrNoWords             = errors.New("there are no hidden words to search for")
)

// Puzzle is a validated grid plus the ordered, de-duplicated words to find.
type Puzzle struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	Grid      *Grid     `json:"grid"`
	Words     []string  `json:"words"`
	CreatedAt time.Time `json:"created_at"`
}

// NewPuzzle trims the words, drops empty ones and collapses duplicates while
// keeping first-occurrence order.
func NewPuzzle(g *Grid, words []string) (*Puzzle, error) {
	seen := make(map[string]bool, len(words))
	list := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		list = append(list, w)
	}
	if len(list) == 0 {
		return nil, ErrNoWords
	}
	return &Puzzle{Grid: g, Words: list}, nil
}

// LoadPuzzleFile reads a puzzle from disk. Files ending in .json or .jsonc
// are parsed as JSON documents, anything else as the plain text format.
func LoadPuzzleFile(path string) (*Puzzle, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		p, err := ParsePuzzleJSON(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return p, nil
	}

	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = fh.Close() }()

	p, err := ParsePuzzle(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// ParsePuzzle reads the text format:
//
//	5x5
//	H E L L O
//	...
//	HELLO
//	GOOD
func ParsePuzzle(r io.Reader) (*Puzzle, error) {
	sc := bufio.NewScanner(r)
	ln := 0

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("line 1: %w", ErrMalformedDimensions)
	}
	ln++
	rows, cols, err := parseDimensions(sc.Text())
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", ln, err)
	}

	// rows is untrusted: grow with the input instead of preallocating.
	var cells []string
	for len(cells) < rows && sc.Scan() {
		ln++
		row, err := parseRow(sc.Text(), cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", ln, err)
		}
		cells = append(cells, row)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(cells) < rows {
		return nil, fmt.Errorf("%w: declared %d rows, got %d", ErrMissingRows, rows, len(cells))
	}

	g, err := NewGrid(cells)
	if err != nil {
		return nil, err
	}

	var words []string
	for sc.Scan() {
		words = append(words, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return NewPuzzle(g, words)
}

func parseDimensions(line string) (int, int, error) {
	rs, cs, ok := strings.Cut(strings.ToLower(strings.TrimSpace(line)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedDimensions, line)
	}
	rows, err := strconv.Atoi(strings.TrimSpace(rs))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedDimensions, line)
	}
	cols, err := strconv.Atoi(strings.TrimSpace(cs))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedDimensions, line)
	}
	if rows <= 0 || cols <= 0 {
		return 0, 0, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, rows, cols)
	}
	return rows, cols, nil
}

// parseRow turns "H E L L O" into "HELLO". Each token must be one letter.
func parseRow(line string, cols int) (string, error) {
	f := strings.Fields(line)
	if len(f) != cols {
		return "", fmt.Errorf("%w (want %d, got %d)", ErrRowLength, cols, len(f))
	}
	var b strings.Builder
	for _, tok := range f {
		r, size := utf8.DecodeRuneInString(tok)
		if size != len(tok) || !unicode.IsLetter(r) {
			return "", fmt.Errorf("%w (%q)", ErrNonLetterCell, tok)
		}
		b.WriteString(tok)
	}
	return b.String(), nil
}

type puzzleDoc struct {
	Title string   `json:"title"`
	Rows  int      `json:"rows"`
	Cols  int      `json:"cols"`
	Cells []string `json:"cells"`
	Words []string `json:"words"`
}

// ParsePuzzleJSON reads a JSON puzzle document. Comments and trailing commas
// are allowed.
func ParsePuzzleJSON(data []byte) (*Puzzle, error) {
	var doc puzzleDoc
	if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
		return nil, fmt.Errorf("parse puzzle JSON: %w", err)
	}
	g, err := gridFromDoc(doc.Rows, doc.Cols, doc.Cells)
	if err != nil {
		return nil, err
	}
	p, err := NewPuzzle(g, doc.Words)
	if err != nil {
		return nil, err
	}
	p.Title = strings.TrimSpace(doc.Title)
	return p, nil
}
