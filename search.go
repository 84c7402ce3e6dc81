package main

import (
	"errors"
	"fmt"
	"unicode"
)

var (
	ErrEmptyWord        = errors.New("word is empty")
	ErrImpossibleLength = errors.New("word is longer than every line in the grid")
)

// Direction is one of the eight straight lines a word can follow.
// The declaration order is the order FindWord tries them in.
type Direction int

const (
	Left Direction = iota
	Right
	Up
	Down
	UpLeft
	UpRight
	DownLeft
	DownRight
)

// Directions lists every direction in search order.
var Directions = [...]Direction{Left, Right, Up, Down, UpLeft, UpRight, DownLeft, DownRight}

var directionDeltas = [...]struct{ dRow, dCol int }{
	Left:      {0, -1},
	Right:     {0, 1},
	Up:        {-1, 0},
	Down:      {1, 0},
	UpLeft:    {-1, -1},
	UpRight:   {-1, 1},
	DownLeft:  {1, -1},
	DownRight: {1, 1},
}

var directionNames = [...]string{
	Left:      "left",
	Right:     "right",
	Up:        "up",
	Down:      "down",
	UpLeft:    "up-left",
	UpRight:   "up-right",
	DownLeft:  "down-left",
	DownRight: "down-right",
}

// Delta returns the row and column step of d.
func (d Direction) Delta() (int, int) {
	v := directionDeltas[d]
	return v.dRow, v.dCol
}

func (d Direction) String() string {
	if d < Left || d > DownRight {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return directionNames[d]
}

func (d Direction) MarshalText() ([]byte, error) {
	if d < Left || d > DownRight {
		return nil, fmt.Errorf("invalid direction %d", int(d))
	}
	return []byte(directionNames[d]), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	for _, c := range Directions {
		if directionNames[c] == string(b) {
			*d = c
			return nil
		}
	}
	return fmt.Errorf("invalid direction %q", b)
}

// directionOf returns the direction pointing from start to end and the
// number of cells on that line, both ends included.
func directionOf(start, end Position) (Direction, int, bool) {
	dr, dc := end.Row-start.Row, end.Col-start.Col
	if dr == 0 && dc == 0 {
		return 0, 0, false
	}
	if dr != 0 && dc != 0 && abs(dr) != abs(dc) {
		return 0, 0, false
	}
	step := func(v int) int {
		switch {
		case v < 0:
			return -1
		case v > 0:
			return 1
		}
		return 0
	}
	sr, sc := step(dr), step(dc)
	for _, d := range Directions {
		if r, c := d.Delta(); r == sr && c == sc {
			return d, max(abs(dr), abs(dc)) + 1, true
		}
	}
	return 0, 0, false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Placement is where a word was found: the cell holding its first letter,
// the cell holding its last letter, and the direction between them.
type Placement struct {
	Start     Position  `json:"start"`
	End       Position  `json:"end"`
	Direction Direction `json:"direction"`
}

// Len returns the number of cells covered by the placement.
func (p Placement) Len() int {
	return max(abs(p.End.Row-p.Start.Row), abs(p.End.Col-p.Start.Col)) + 1
}

// Cells returns every covered position from start to end.
func (p Placement) Cells() []Position {
	dr, dc := p.Direction.Delta()
	n := p.Len()
	out := make([]Position, n)
	for i := range n {
		out[i] = Position{Row: p.Start.Row + i*dr, Col: p.Start.Col + i*dc}
	}
	return out
}

func (p Placement) String() string {
	return p.Start.String() + " " + p.End.String()
}

// FindWord returns the first placement of word in g. Cells are scanned in
// row-major order and, from each cell holding the first letter, directions
// are tried in Directions order. Matching ignores case.
//
// A word that is longer than both the row count and the column count cannot
// fit on any line; FindWord reports that as an ErrImpossibleLength error
// instead of scanning. A word that simply is not there returns false and a
// nil error.
func FindWord(g *Grid, word string) (Placement, bool, error) {
	letters := []rune(word)
	n := len(letters)
	if n == 0 {
		return Placement{}, false, ErrEmptyWord
	}
	if n > g.rows && n > g.cols {
		return Placement{}, false, fmt.Errorf("%w: %q has %d letters, grid is %dx%d",
			ErrImpossibleLength, word, n, g.rows, g.cols)
	}
	for i := range letters {
		letters[i] = unicode.ToUpper(letters[i])
	}

	for row := 0; row < g.rows; row++ {
		for col := 0; col < g.cols; col++ {
			if unicode.ToUpper(g.cells[row][col]) != letters[0] {
				continue
			}
			origin := Position{Row: row, Col: col}
			for _, d := range Directions {
				if !fits(g, origin, d, n) {
					continue
				}
				if probe(g, letters, origin, d) {
					dr, dc := d.Delta()
					return Placement{
						Start:     origin,
						End:       Position{Row: row + (n-1)*dr, Col: col + (n-1)*dc},
						Direction: d,
					}, true, nil
				}
			}
		}
	}
	return Placement{}, false, nil
}

// fits reports whether n cells starting at origin along d stay in the grid.
func fits(g *Grid, origin Position, d Direction, n int) bool {
	dr, dc := d.Delta()
	switch dr {
	case -1:
		if n > origin.Row+1 {
			return false
		}
	case 1:
		if n > g.rows-origin.Row {
			return false
		}
	}
	switch dc {
	case -1:
		if n > origin.Col+1 {
			return false
		}
	case 1:
		if n > g.cols-origin.Col {
			return false
		}
	}
	return true
}

// probe walks len(letters) cells from origin along d. letters must already
// be upper-cased.
func probe(g *Grid, letters []rune, origin Position, d Direction) bool {
	dr, dc := d.Delta()
	row, col := origin.Row, origin.Col
	for _, want := range letters {
		got, ok := g.At(row, col)
		if !ok || unicode.ToUpper(got) != want {
			return false
		}
		row += dr
		col += dc
	}
	return true
}

// VerifyPlacement reports whether the cells from start to end spell word
// along a straight line.
func VerifyPlacement(g *Grid, word string, start, end Position) bool {
	letters := []rune(word)
	if len(letters) == 0 || !g.contains(start) || !g.contains(end) {
		return false
	}
	d, n, ok := directionOf(start, end)
	if !ok && len(letters) == 1 && start == end {
		got, _ := g.At(start.Row, start.Col)
		return unicode.ToUpper(got) == unicode.ToUpper(letters[0])
	}
	if !ok || n != len(letters) {
		return false
	}
	for i := range letters {
		letters[i] = unicode.ToUpper(letters[i])
	}
	return probe(g, letters, start, d)
}
