package flipello

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrOutOfBounds  = errors.New("coordinate out of bounds")
	ErrInvalidSide  = errors.New("invalid side")
	ErrInvalidKey   = errors.New("invalid square key")
	ErrInvalidSize  = errors.New("invalid board size")
	ErrInvalidBoard = errors.New("invalid board encoding")
	ErrOccupied     = errors.New("square already occupied")
	ErrNoCaptures   = errors.New("move flips no discs")
)

// Snapshot is the read-only board view the resolver works on.
type Snapshot interface {
	Width() int
	Height() int
	PieceAt(c Coord) (Side, bool)
}

// Board is a W×H grid stored as a flat slice indexed by (row-1)*W + (col-1).
type Board struct {
	w, h  int
	cells []Side
}

func NewBoard(width, height int) (*Board, error) {
	if width < 1 || width > MaxWidth || height < 1 || height > MaxHeight {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	return &Board{w: width, h: height, cells: make([]Side, width*height)}, nil
}

// StandardBoard returns a board with the four centre discs placed: second on
// the main diagonal, first on the anti-diagonal. Both sides need at least
// 2 squares in each axis.
func StandardBoard(width, height int) (*Board, error) {
	if width < 2 || height < 2 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	b, err := NewBoard(width, height)
	if err != nil {
		return nil, err
	}
	mc, mr := width/2, height/2
	b.cells[b.index(Coord{mc, mr})] = SideSecond
	b.cells[b.index(Coord{mc + 1, mr + 1})] = SideSecond
	b.cells[b.index(Coord{mc, mr + 1})] = SideFirst
	b.cells[b.index(Coord{mc + 1, mr})] = SideFirst
	return b, nil
}

// Width and Height are zero on a nil board, so nothing is in bounds.
func (b *Board) Width() int {
	if b == nil {
		return 0
	}
	return b.w
}

func (b *Board) Height() int {
	if b == nil {
		return 0
	}
	return b.h
}

func (b *Board) InBounds(c Coord) bool {
	return b != nil && c.Col >= 1 && c.Col <= b.w && c.Row >= 1 && c.Row <= b.h
}

func (b *Board) index(c Coord) int { return (c.Row-1)*b.w + (c.Col - 1) }

func (b *Board) PieceAt(c Coord) (Side, bool) {
	if !b.InBounds(c) {
		return SideNone, false
	}
	s := b.cells[b.index(c)]
	return s, s != SideNone
}

func (b *Board) Set(c Coord, s Side) error {
	if !b.InBounds(c) {
		return fmt.Errorf("%w: %s", ErrOutOfBounds, c.Key())
	}
	if !s.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidSide, s)
	}
	b.cells[b.index(c)] = s
	return nil
}

func (b *Board) Clear(c Coord) {
	if b.InBounds(c) {
		b.cells[b.index(c)] = SideNone
	}
}

func (b *Board) Clone() *Board {
	cp := &Board{w: b.w, h: b.h, cells: make([]Side, len(b.cells))}
	copy(cp.cells, b.cells)
	return cp
}

func (b *Board) Count(s Side) int {
	n := 0
	for _, c := range b.cells {
		if c == s {
			n++
		}
	}
	return n
}

// Empty reports the number of unoccupied squares.
func (b *Board) Empty() int { return b.Count(SideNone) }

// Apply performs the single mutation step for a resolution: the origin gets
// the acting side's disc and every captured square is converted.
func (b *Board) Apply(res Resolution) error {
	if !res.Side.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidSide, res.Side)
	}
	if !b.InBounds(res.Origin) {
		return fmt.Errorf("%w: %s", ErrOutOfBounds, res.Origin.Key())
	}
	for _, c := range res.Captures {
		if !b.InBounds(c) {
			return fmt.Errorf("%w: %s", ErrOutOfBounds, c.Key())
		}
	}
	b.cells[b.index(res.Origin)] = res.Side
	for _, c := range res.Captures {
		b.cells[b.index(c)] = res.Side
	}
	return nil
}

// Encode renders the board top row first, one byte per square, rows joined by '/'.
func (b *Board) Encode() string {
	var sb strings.Builder
	sb.Grow(b.w*b.h + b.h)
	for row := b.h; row >= 1; row-- {
		if row != b.h {
			sb.WriteByte('/')
		}
		for col := 1; col <= b.w; col++ {
			sb.WriteByte(b.cells[b.index(Coord{col, row})].symbol())
		}
	}
	return sb.String()
}

func (b *Board) String() string { return b.Encode() }

// DecodeBoard parses the output of Encode. Every row must have the same width.
func DecodeBoard(raw string) (*Board, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidBoard)
	}
	rows := strings.Split(raw, "/")
	width := len(rows[0])
	b, err := NewBoard(width, len(rows))
	if err != nil {
		return nil, err
	}
	for i, line := range rows {
		if len(line) != width {
			return nil, fmt.Errorf("%w: row %d has %d squares, want %d", ErrInvalidBoard, i+1, len(line), width)
		}
		row := b.h - i
		for j := 0; j < width; j++ {
			s, ok := sideFromSymbol(line[j])
			if !ok {
				return nil, fmt.Errorf("%w: unexpected %q", ErrInvalidBoard, line[j])
			}
			b.cells[b.index(Coord{j + 1, row})] = s
		}
	}
	return b, nil
}
