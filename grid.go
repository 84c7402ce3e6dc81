package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf8"
)

var (
	ErrEmptyGrid     = errors.New("grid has no rows or columns")
	ErrRowLength     = errors.New("grid row has the wrong number of letters")
	ErrNonLetterCell = errors.New("grid cells must be alphabetical characters")
)

// Grid is a rectangular word-search puzzle. Letters are stored upper-cased
// and indexed [row][col]. A Grid is never modified after NewGrid returns.
type Grid struct {
	rows  int
	cols  int
	cells [][]rune
}

// Position is a zero-based grid coordinate.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (p Position) String() string {
	return strconv.Itoa(p.Row) + ":" + strconv.Itoa(p.Col)
}

// NewGrid builds a grid from one string per row. Every row must hold the
// same number of letters.
func NewGrid(rows []string) (*Grid, error) {
	if len(rows) == 0 || rows[0] == "" {
		return nil, ErrEmptyGrid
	}

	cols := utf8.RuneCountInString(rows[0])
	cells := make([][]rune, len(rows))
	for i, row := range rows {
		r := []rune(row)
		if len(r) != cols {
			return nil, fmt.Errorf("row %d: %w (want %d, got %d)", i, ErrRowLength, cols, len(r))
		}
		for j, c := range r {
			if !unicode.IsLetter(c) {
				return nil, fmt.Errorf("row %d col %d: %w (%q)", i, j, ErrNonLetterCell, c)
			}
			r[j] = unicode.ToUpper(c)
		}
		cells[i] = r
	}

	return &Grid{rows: len(rows), cols: cols, cells: cells}, nil
}

// Rows returns the number of rows.
func (g *Grid) Rows() int { return g.rows }

// Cols returns the number of columns.
func (g *Grid) Cols() int { return g.cols }

// At returns the letter at (row, col), or false when out of bounds.
func (g *Grid) At(row, col int) (rune, bool) {
	if row < 0 || row >= g.rows || col < 0 || col >= g.cols {
		return 0, false
	}
	return g.cells[row][col], true
}

// Row returns row i as a string.
func (g *Grid) Row(i int) string {
	return string(g.cells[i])
}

func (g *Grid) contains(p Position) bool {
	return p.Row >= 0 && p.Row < g.rows && p.Col >= 0 && p.Col < g.cols
}

type gridJSON struct {
	Rows  int      `json:"rows"`
	Cols  int      `json:"cols"`
	Cells []string `json:"cells"`
}

func (g *Grid) MarshalJSON() ([]byte, error) {
	out := gridJSON{Rows: g.rows, Cols: g.cols, Cells: make([]string, g.rows)}
	for i := range g.cells {
		out.Cells[i] = g.Row(i)
	}
	return json.Marshal(out)
}

func (g *Grid) UnmarshalJSON(data []byte) error {
	var in gridJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	parsed, err := gridFromDoc(in.Rows, in.Cols, in.Cells)
	if err != nil {
		return err
	}
	*g = *parsed
	return nil
}

// gridFromDoc validates declared dimensions against the row strings.
func gridFromDoc(rows, cols int, cells []string) (*Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, rows, cols)
	}
	if len(cells) != rows {
		return nil, fmt.Errorf("%w: declared %d rows, got %d", ErrMissingRows, rows, len(cells))
	}
	g, err := NewGrid(cells)
	if err != nil {
		return nil, err
	}
	if g.cols != cols {
		return nil, fmt.Errorf("%w: declared %d columns, got %d", ErrRowLength, cols, g.cols)
	}
	return g, nil
}
