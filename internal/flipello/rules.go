package flipello

import (
	"fmt"
	"strings"
)

// Variant names a board geometry.
type Variant string

const (
	VariantFlipello   Variant = "flipello"
	VariantFlipello10 Variant = "flipello10"
)

func ParseVariant(v string) (Variant, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "flipello", "8", "8x8":
		return VariantFlipello, true
	case "flipello10", "10", "10x10":
		return VariantFlipello10, true
	default:
		return "", false
	}
}

func (v Variant) Size() (width, height int) {
	if v == VariantFlipello10 {
		return 10, 10
	}
	return 8, 8
}

// NewGameBoard returns the starting position of the variant.
func (v Variant) NewGameBoard() *Board {
	w, h := v.Size()
	b, _ := StandardBoard(w, h)
	return b
}

// LegalMoves lists every empty square where side would flip at least one disc,
// in row-major order from a1.
func LegalMoves(board *Board, side Side) []Resolution {
	if board == nil || !side.Valid() {
		return nil
	}
	var out []Resolution
	for row := 1; row <= board.Height(); row++ {
		for col := 1; col <= board.Width(); col++ {
			c := Coord{Col: col, Row: row}
			if _, occupied := board.PieceAt(c); occupied {
				continue
			}
			res, err := Resolve(c, side, board)
			if err != nil || res.Empty() {
				continue
			}
			out = append(out, res)
		}
	}
	return out
}

func HasMove(board *Board, side Side) bool {
	if board == nil || !side.Valid() {
		return false
	}
	for row := 1; row <= board.Height(); row++ {
		for col := 1; col <= board.Width(); col++ {
			c := Coord{Col: col, Row: row}
			if _, occupied := board.PieceAt(c); occupied {
				continue
			}
			if res, err := Resolve(c, side, board); err == nil && !res.Empty() {
				return true
			}
		}
	}
	return false
}

// Play validates and applies a placement. A move onto an occupied square or
// one that flips nothing is rejected and leaves the board untouched.
func Play(board *Board, origin Coord, side Side) (Resolution, error) {
	if board == nil {
		return Resolution{}, fmt.Errorf("%w: nil board", ErrInvalidBoard)
	}
	res, err := Resolve(origin, side, board)
	if err != nil {
		return Resolution{}, err
	}
	if _, occupied := board.PieceAt(origin); occupied {
		return Resolution{}, fmt.Errorf("%w: %s", ErrOccupied, origin.Key())
	}
	if res.Empty() {
		return Resolution{}, fmt.Errorf("%w: %s", ErrNoCaptures, origin.Key())
	}
	if err := board.Apply(res); err != nil {
		return Resolution{}, err
	}
	return res, nil
}

// NextTurn decides who moves after mover: the opponent when they have a
// move, otherwise mover again (the opponent passes). over is true when
// neither side can move.
func NextTurn(board *Board, mover Side) (next Side, passed bool, over bool) {
	opp := mover.Opponent()
	if HasMove(board, opp) {
		return opp, false, false
	}
	if HasMove(board, mover) {
		return mover, true, false
	}
	return SideNone, false, true
}

type Score struct {
	First  int
	Second int
}

func (s Score) Diff() int { return s.First - s.Second }

func CountScore(board *Board) Score {
	if board == nil {
		return Score{}
	}
	return Score{First: board.Count(SideFirst), Second: board.Count(SideSecond)}
}

// Winner returns the side with more discs, SideNone on a tie.
func Winner(board *Board) Side {
	s := CountScore(board)
	switch {
	case s.First > s.Second:
		return SideFirst
	case s.Second > s.First:
		return SideSecond
	default:
		return SideNone
	}
}

// Hint picks the legal move flipping the most discs; ties keep the earliest
// square in LegalMoves order.
func Hint(board *Board, side Side) (Resolution, bool) {
	var best Resolution
	found := false
	for _, res := range LegalMoves(board, side) {
		if !found || len(res.Captures) > len(best.Captures) {
			best = res
			found = true
		}
	}
	return best, found
}
