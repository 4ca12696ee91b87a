package flipello

import "fmt"

// Resolution is the outcome of resolving a placement: the squares that flip
// to Side when a disc lands on Origin. It is a plan only; Board.Apply
// performs the write.
type Resolution struct {
	Origin   Coord
	Side     Side
	Captures []Coord
}

func (r Resolution) Empty() bool { return len(r.Captures) == 0 }

func (r Resolution) Contains(c Coord) bool {
	for _, x := range r.Captures {
		if x == c {
			return true
		}
	}
	return false
}

// Keys returns the captured squares in key notation, in resolution order.
func (r Resolution) Keys() []string {
	out := make([]string, 0, len(r.Captures))
	for _, c := range r.Captures {
		out = append(out, c.Key())
	}
	return out
}

type walkState uint8

const (
	walkWalking walkState = iota
	walkCommitting
	walkDiscarding
)

type squareClass uint8

const (
	classStop squareClass = iota // outside the grid or empty
	classOpposing
	classActing
)

func classify(board Snapshot, c Coord, acting Side) squareClass {
	if c.Col < 1 || c.Col > board.Width() || c.Row < 1 || c.Row > board.Height() {
		return classStop
	}
	s, ok := board.PieceAt(c)
	switch {
	case !ok || s == SideNone:
		return classStop
	case s == acting:
		return classActing
	default:
		return classOpposing
	}
}

// walk follows one direction from origin and returns the run it commits.
func walk(board Snapshot, origin, dir Coord, acting Side, limit int) []Coord {
	var run []Coord
	state := walkWalking
	for step := 1; state == walkWalking; step++ {
		if step > limit {
			state = walkDiscarding
			break
		}
		c := origin.Add(dir, step)
		switch classify(board, c, acting) {
		case classStop:
			state = walkDiscarding
		case classOpposing:
			run = append(run, c)
		case classActing:
			state = walkCommitting
		}
	}
	if state != walkCommitting {
		return nil
	}
	return run
}

// Resolve computes every opposing disc that flips when acting places on origin.
// The board is never mutated. An origin outside the grid is rejected rather
// than clamped.
func Resolve(origin Coord, acting Side, board Snapshot) (Resolution, error) {
	if board == nil {
		return Resolution{}, fmt.Errorf("%w: nil board", ErrInvalidBoard)
	}
	w, h := board.Width(), board.Height()
	if origin.Col < 1 || origin.Col > w || origin.Row < 1 || origin.Row > h {
		return Resolution{}, fmt.Errorf("%w: %s on %dx%d", ErrOutOfBounds, origin.Key(), w, h)
	}
	if !acting.Valid() {
		return Resolution{}, fmt.Errorf("%w: %d", ErrInvalidSide, acting)
	}
	limit := w
	if h > limit {
		limit = h
	}
	res := Resolution{Origin: origin, Side: acting}
	for _, dir := range directions {
		res.Captures = append(res.Captures, walk(board, origin, dir, acting, limit)...)
	}
	return res, nil
}

// ResolveCaptures is Resolve without the surrounding Resolution.
func ResolveCaptures(origin Coord, acting Side, board Snapshot) ([]Coord, error) {
	res, err := Resolve(origin, acting, board)
	if err != nil {
		return nil, err
	}
	return res.Captures, nil
}
