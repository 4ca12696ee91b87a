package flipello

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	MaxWidth  = 26
	MaxHeight = 99
)

// Coord addresses a square by 1-indexed column and row.
type Coord struct {
	Col int
	Row int
}

func (c Coord) Add(d Coord, step int) Coord {
	return Coord{Col: c.Col + d.Col*step, Row: c.Row + d.Row*step}
}

// Key renders the square as column letter + row number, e.g. (4,3) -> "d3".
func (c Coord) Key() string {
	if c.Col < 1 || c.Col > MaxWidth || c.Row < 1 {
		return fmt.Sprintf("(%d,%d)", c.Col, c.Row)
	}
	return string(rune('a'+c.Col-1)) + strconv.Itoa(c.Row)
}

func (c Coord) String() string { return c.Key() }

// ParseKey is the inverse of Coord.Key. Bounds against a concrete board are
// checked by the caller.
func ParseKey(key string) (Coord, error) {
	k := strings.ToLower(strings.TrimSpace(key))
	if len(k) < 2 {
		return Coord{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	col := int(k[0]-'a') + 1
	if col < 1 || col > MaxWidth {
		return Coord{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	row, err := strconv.Atoi(k[1:])
	if err != nil || row < 1 || row > MaxHeight {
		return Coord{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return Coord{Col: col, Row: row}, nil
}

// directions are the eight compass unit vectors (col, row).
var directions = [8]Coord{
	{Col: 0, Row: 1},
	{Col: 1, Row: 1},
	{Col: 1, Row: 0},
	{Col: 1, Row: -1},
	{Col: 0, Row: -1},
	{Col: -1, Row: -1},
	{Col: -1, Row: 0},
	{Col: -1, Row: 1},
}

// Directions returns a copy of the eight compass unit vectors.
func Directions() []Coord {
	out := make([]Coord, len(directions))
	copy(out, directions[:])
	return out
}
