package flipello

import (
	"errors"
	"testing"
)

func TestLegalMovesOpening(t *testing.T) {
	b := VariantFlipello.NewGameBoard()
	moves := LegalMoves(b, SideFirst)
	want := []string{"d3", "c4", "f5", "e6"}
	if len(moves) != len(want) {
		t.Fatalf("got %d moves, want %d", len(moves), len(want))
	}
	for i, m := range moves {
		if m.Origin.Key() != want[i] {
			t.Fatalf("move %d = %s, want %s", i, m.Origin.Key(), want[i])
		}
		if len(m.Captures) != 1 {
			t.Fatalf("opening move %s flips %d discs", m.Origin.Key(), len(m.Captures))
		}
	}
	if !HasMove(b, SideSecond) {
		t.Fatalf("second should have opening moves")
	}
}

func TestVariantSizes(t *testing.T) {
	v, ok := ParseVariant("10x10")
	if !ok || v != VariantFlipello10 {
		t.Fatalf("ParseVariant(10x10) = %v,%v", v, ok)
	}
	b := v.NewGameBoard()
	if b.Width() != 10 || b.Height() != 10 {
		t.Fatalf("flipello10 board is %dx%d", b.Width(), b.Height())
	}
	if s, _ := b.PieceAt(Coord{5, 5}); s != SideSecond {
		t.Fatalf("e5 on 10x10 = %v, want second", s)
	}
	if _, ok := ParseVariant("hex"); ok {
		t.Fatalf("unknown variant accepted")
	}
	if v, ok := ParseVariant(""); !ok || v != VariantFlipello {
		t.Fatalf("empty variant should default to flipello")
	}
}

func TestPlayAppliesMove(t *testing.T) {
	b := VariantFlipello.NewGameBoard()
	res, err := Play(b, Coord{4, 3}, SideFirst)
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if len(res.Captures) != 1 || res.Captures[0] != (Coord{4, 4}) {
		t.Fatalf("captures = %v", res.Keys())
	}
	score := CountScore(b)
	if score.First != 4 || score.Second != 1 || score.Diff() != 3 {
		t.Fatalf("score after d3 = %+v", score)
	}
}

func TestPlayRejectsWithoutMutation(t *testing.T) {
	b := VariantFlipello.NewGameBoard()
	before := b.Encode()

	if _, err := Play(b, Coord{4, 4}, SideFirst); !errors.Is(err, ErrOccupied) {
		t.Fatalf("occupied err = %v", err)
	}
	if _, err := Play(b, Coord{1, 1}, SideFirst); !errors.Is(err, ErrNoCaptures) {
		t.Fatalf("no-capture err = %v", err)
	}
	if _, err := Play(b, Coord{9, 1}, SideFirst); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("out-of-bounds err = %v", err)
	}
	if b.Encode() != before {
		t.Fatalf("rejected moves mutated the board")
	}
}

func TestNextTurnPass(t *testing.T) {
	b := mustBoard(t, 8, 8)
	place(t, b, SideFirst, Coord{1, 1})
	place(t, b, SideSecond, Coord{2, 1})

	next, passed, over := NextTurn(b, SideSecond)
	if next != SideFirst || passed || over {
		t.Fatalf("after second: next=%v passed=%v over=%v", next, passed, over)
	}
	next, passed, over = NextTurn(b, SideFirst)
	if next != SideFirst || !passed || over {
		t.Fatalf("after first: next=%v passed=%v over=%v", next, passed, over)
	}
}

func TestNextTurnGameOver(t *testing.T) {
	b := mustBoard(t, 4, 4)
	place(t, b, SideFirst, Coord{1, 1}, Coord{2, 2})
	next, passed, over := NextTurn(b, SideFirst)
	if next != SideNone || passed || !over {
		t.Fatalf("next=%v passed=%v over=%v", next, passed, over)
	}
	if Winner(b) != SideFirst {
		t.Fatalf("winner = %v", Winner(b))
	}
}

func TestWinnerTie(t *testing.T) {
	b := VariantFlipello.NewGameBoard()
	if Winner(b) != SideNone {
		t.Fatalf("opening position should be tied")
	}
}

func TestHintPrefersLargestFlip(t *testing.T) {
	b := mustBoard(t, 8, 8)
	// a1 flips one disc, h8 flips two
	place(t, b, SideSecond, Coord{2, 1})
	place(t, b, SideFirst, Coord{3, 1})
	place(t, b, SideSecond, Coord{7, 8}, Coord{6, 8})
	place(t, b, SideFirst, Coord{5, 8})

	res, ok := Hint(b, SideFirst)
	if !ok {
		t.Fatalf("expected a hint")
	}
	if res.Origin != (Coord{8, 8}) || len(res.Captures) != 2 {
		t.Fatalf("hint = %s flipping %v", res.Origin.Key(), res.Keys())
	}

	if _, ok := Hint(mustBoard(t, 4, 4), SideFirst); ok {
		t.Fatalf("empty board has no hint")
	}
}

func TestHintTieKeepsRowMajorFirst(t *testing.T) {
	b, err := StandardBoard(8, 8)
	if err != nil {
		t.Fatalf("StandardBoard: %v", err)
	}
	// all four opening moves flip one disc; d3 comes first scanning rows from a1
	res, ok := Hint(b, SideFirst)
	if !ok || res.Origin != (Coord{4, 3}) {
		t.Fatalf("hint = %s, want d3", res.Origin.Key())
	}
}

func TestFullGameTerminates(t *testing.T) {
	b := VariantFlipello.NewGameBoard()
	side := SideFirst
	for turn := 0; turn < 200; turn++ {
		res, ok := Hint(b, side)
		if !ok {
			t.Fatalf("turn %d: %v has no move but was scheduled", turn, side)
		}
		if _, err := Play(b, res.Origin, side); err != nil {
			t.Fatalf("turn %d: Play %s: %v", turn, res.Origin.Key(), err)
		}
		next, _, over := NextTurn(b, side)
		if over {
			s := CountScore(b)
			if s.First+s.Second+b.Empty() != 64 {
				t.Fatalf("disc accounting broken: %+v empty=%d", s, b.Empty())
			}
			return
		}
		side = next
	}
	t.Fatalf("game did not finish in 200 turns")
}
