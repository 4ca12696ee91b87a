package flipello

import (
	"errors"
	"testing"
)

const standardEncoding = "......../......../......../...xo.../...ox.../......../......../........"

func TestStandardBoardLayout(t *testing.T) {
	b, err := StandardBoard(8, 8)
	if err != nil {
		t.Fatalf("StandardBoard: %v", err)
	}
	if got := b.Encode(); got != standardEncoding {
		t.Fatalf("Encode = %q\nwant     %q", got, standardEncoding)
	}
	if b.Count(SideFirst) != 2 || b.Count(SideSecond) != 2 || b.Empty() != 60 {
		t.Fatalf("unexpected counts: first=%d second=%d empty=%d", b.Count(SideFirst), b.Count(SideSecond), b.Empty())
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	b, err := DecodeBoard(standardEncoding)
	if err != nil {
		t.Fatalf("DecodeBoard: %v", err)
	}
	if b.Width() != 8 || b.Height() != 8 {
		t.Fatalf("size = %dx%d", b.Width(), b.Height())
	}
	if s, ok := b.PieceAt(Coord{4, 5}); !ok || s != SideFirst {
		t.Fatalf("d5 = %v,%v want first", s, ok)
	}
	if s, ok := b.PieceAt(Coord{4, 4}); !ok || s != SideSecond {
		t.Fatalf("d4 = %v,%v want second", s, ok)
	}
	if b.Encode() != standardEncoding {
		t.Fatalf("round trip changed board: %q", b.Encode())
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := []string{"", "..x/..", "..q/...", "..."}
	for _, raw := range cases[:3] {
		if _, err := DecodeBoard(raw); !errors.Is(err, ErrInvalidBoard) {
			t.Fatalf("DecodeBoard(%q) err = %v, want ErrInvalidBoard", raw, err)
		}
	}
	// a single row is still a valid 3x1 board
	if _, err := DecodeBoard(cases[3]); err != nil {
		t.Fatalf("DecodeBoard(%q): %v", cases[3], err)
	}
}

func TestNewBoardSizeLimits(t *testing.T) {
	for _, sz := range [][2]int{{0, 8}, {8, 0}, {MaxWidth + 1, 4}, {4, MaxHeight + 1}} {
		if _, err := NewBoard(sz[0], sz[1]); !errors.Is(err, ErrInvalidSize) {
			t.Fatalf("NewBoard(%d,%d) err = %v, want ErrInvalidSize", sz[0], sz[1], err)
		}
	}
	if _, err := StandardBoard(1, 8); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("StandardBoard(1,8) should fail")
	}
}

func TestSetValidates(t *testing.T) {
	b := mustBoard(t, 4, 4)
	if err := b.Set(Coord{5, 1}, SideFirst); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("Set out of bounds err = %v", err)
	}
	if err := b.Set(Coord{1, 1}, SideNone); !errors.Is(err, ErrInvalidSide) {
		t.Fatalf("Set SideNone err = %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	b, _ := StandardBoard(8, 8)
	cp := b.Clone()
	place(t, cp, SideFirst, Coord{1, 1})
	if _, ok := b.PieceAt(Coord{1, 1}); ok {
		t.Fatalf("clone shares cells with original")
	}
}

func TestApplyWritesOriginAndCaptures(t *testing.T) {
	b := mustBoard(t, 8, 8)
	place(t, b, SideFirst, Coord{3, 4})
	place(t, b, SideSecond, Coord{4, 4}, Coord{5, 4})
	res, err := Resolve(Coord{6, 4}, SideFirst, b)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := b.Apply(res); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	for _, c := range []Coord{{3, 4}, {4, 4}, {5, 4}, {6, 4}} {
		if s, _ := b.PieceAt(c); s != SideFirst {
			t.Fatalf("%s = %v after apply, want first", c.Key(), s)
		}
	}
	if b.Count(SideSecond) != 0 {
		t.Fatalf("second still has discs")
	}
}

func TestParseKey(t *testing.T) {
	c, err := ParseKey(" D3 ")
	if err != nil || c != (Coord{4, 3}) {
		t.Fatalf("ParseKey(D3) = %v, %v", c, err)
	}
	c, err = ParseKey("j10")
	if err != nil || c != (Coord{10, 10}) {
		t.Fatalf("ParseKey(j10) = %v, %v", c, err)
	}
	for _, bad := range []string{"", "d", "3d", "d0", "!4", "dx"} {
		if _, err := ParseKey(bad); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("ParseKey(%q) err = %v, want ErrInvalidKey", bad, err)
		}
	}
	if got := (Coord{0, 3}).Key(); got != "(0,3)" {
		t.Fatalf("out-of-range key = %q", got)
	}
}

func TestParseSide(t *testing.T) {
	for in, want := range map[string]Side{"first": SideFirst, "B": SideFirst, "2": SideSecond, "white": SideSecond} {
		got, ok := ParseSide(in)
		if !ok || got != want {
			t.Fatalf("ParseSide(%q) = %v,%v want %v", in, got, ok, want)
		}
	}
	if _, ok := ParseSide("red"); ok {
		t.Fatalf("ParseSide(red) should fail")
	}
	if SideFirst.Opponent() != SideSecond || SideSecond.Opponent() != SideFirst || SideNone.Opponent() != SideNone {
		t.Fatalf("Opponent mapping wrong")
	}
}
