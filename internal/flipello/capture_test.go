package flipello

import (
	"errors"
	"math/rand"
	"sort"
	"testing"
)

func mustBoard(t *testing.T, w, h int) *Board {
	t.Helper()
	b, err := NewBoard(w, h)
	if err != nil {
		t.Fatalf("NewBoard(%d,%d): %v", w, h, err)
	}
	return b
}

func place(t *testing.T, b *Board, s Side, coords ...Coord) {
	t.Helper()
	for _, c := range coords {
		if err := b.Set(c, s); err != nil {
			t.Fatalf("Set %s: %v", c.Key(), err)
		}
	}
}

func sortedKeys(cs []Coord) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Key())
	}
	sort.Strings(out)
	return out
}

func equalKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestResolveRowRun(t *testing.T) {
	b := mustBoard(t, 8, 8)
	place(t, b, SideFirst, Coord{3, 4})
	place(t, b, SideSecond, Coord{4, 4}, Coord{5, 4})

	got, err := ResolveCaptures(Coord{6, 4}, SideFirst, b)
	if err != nil {
		t.Fatalf("ResolveCaptures: %v", err)
	}
	want := []string{"d4", "e4"}
	if keys := sortedKeys(got); !equalKeys(keys, want) {
		t.Fatalf("captures = %v, want %v", keys, want)
	}
}

func TestResolveNoAnchorBeforeEdge(t *testing.T) {
	b := mustBoard(t, 8, 8)
	place(t, b, SideSecond, Coord{7, 4}, Coord{8, 4})

	got, err := ResolveCaptures(Coord{6, 4}, SideFirst, b)
	if err != nil {
		t.Fatalf("ResolveCaptures: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no captures, got %v", sortedKeys(got))
	}
}

func TestResolveSurroundedByOwnDiscs(t *testing.T) {
	b := mustBoard(t, 8, 8)
	origin := Coord{4, 4}
	for _, d := range directions {
		place(t, b, SideFirst, origin.Add(d, 1))
	}
	got, err := ResolveCaptures(origin, SideFirst, b)
	if err != nil {
		t.Fatalf("ResolveCaptures: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %v", sortedKeys(got))
	}
}

func TestResolveGapBreaksRun(t *testing.T) {
	b := mustBoard(t, 8, 8)
	place(t, b, SideSecond, Coord{2, 1})
	place(t, b, SideFirst, Coord{4, 1})

	got, err := ResolveCaptures(Coord{1, 1}, SideFirst, b)
	if err != nil {
		t.Fatalf("ResolveCaptures: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("empty square must stop the walk, got %v", sortedKeys(got))
	}
}

func TestResolveAllDirections(t *testing.T) {
	b := mustBoard(t, 8, 8)
	origin := Coord{4, 4}
	for _, d := range directions {
		run := origin.Add(d, 1)
		anchor := origin.Add(d, 2)
		if !b.InBounds(anchor) {
			continue
		}
		place(t, b, SideSecond, run)
		place(t, b, SideFirst, anchor)
	}
	res, err := Resolve(origin, SideFirst, b)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Captures) != 8 {
		t.Fatalf("expected 8 captures, got %d (%v)", len(res.Captures), sortedKeys(res.Captures))
	}
	if res.Side != SideFirst || res.Origin != origin {
		t.Fatalf("resolution carries wrong origin/side: %+v", res)
	}
}

func TestResolveCornerUsesInwardDirectionsOnly(t *testing.T) {
	b := mustBoard(t, 8, 8)
	origin := Coord{1, 1}
	place(t, b, SideSecond, Coord{2, 1}, Coord{1, 2}, Coord{2, 2})
	place(t, b, SideFirst, Coord{3, 1}, Coord{1, 3}, Coord{3, 3})

	res, err := Resolve(origin, SideFirst, b)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	used := map[Coord]bool{}
	for _, c := range res.Captures {
		used[Coord{sign(c.Col - origin.Col), sign(c.Row - origin.Row)}] = true
	}
	if len(used) > 3 {
		t.Fatalf("corner origin committed along %d directions", len(used))
	}
	if len(res.Captures) != 3 {
		t.Fatalf("expected 3 captures from corner, got %v", sortedKeys(res.Captures))
	}
}

func TestResolveStepBoundOnTallBoard(t *testing.T) {
	b := mustBoard(t, 3, 8)
	for row := 2; row <= 6; row++ {
		place(t, b, SideSecond, Coord{2, row})
	}
	place(t, b, SideFirst, Coord{2, 7})

	got, err := ResolveCaptures(Coord{2, 1}, SideFirst, b)
	if err != nil {
		t.Fatalf("ResolveCaptures: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 captures along the tall column, got %v", sortedKeys(got))
	}
}

func TestResolveRejectsOutOfBounds(t *testing.T) {
	b := mustBoard(t, 8, 8)
	for _, c := range []Coord{{0, 1}, {1, 0}, {9, 4}, {4, 9}, {-3, -3}} {
		if _, err := Resolve(c, SideFirst, b); !errors.Is(err, ErrOutOfBounds) {
			t.Fatalf("Resolve(%v) err = %v, want ErrOutOfBounds", c, err)
		}
	}
}

func TestResolveNilBoard(t *testing.T) {
	if _, err := Resolve(Coord{1, 1}, SideFirst, nil); !errors.Is(err, ErrInvalidBoard) {
		t.Fatalf("nil snapshot err = %v, want ErrInvalidBoard", err)
	}
	var b *Board
	if _, err := Resolve(Coord{1, 1}, SideFirst, b); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("nil *Board err = %v, want ErrOutOfBounds", err)
	}
}

func TestEmptyResolutionKeys(t *testing.T) {
	if keys := (Resolution{}).Keys(); keys == nil || len(keys) != 0 {
		t.Fatalf("Keys() = %#v, want empty non-nil slice", keys)
	}
}

func TestResolveRejectsInvalidSide(t *testing.T) {
	b := mustBoard(t, 8, 8)
	if _, err := Resolve(Coord{1, 1}, SideNone, b); !errors.Is(err, ErrInvalidSide) {
		t.Fatalf("err = %v, want ErrInvalidSide", err)
	}
}

func TestResolveDoesNotMutate(t *testing.T) {
	b, err := StandardBoard(8, 8)
	if err != nil {
		t.Fatalf("StandardBoard: %v", err)
	}
	before := b.Encode()
	first, err := ResolveCaptures(Coord{4, 3}, SideFirst, b)
	if err != nil {
		t.Fatalf("ResolveCaptures: %v", err)
	}
	second, _ := ResolveCaptures(Coord{4, 3}, SideFirst, b)
	if b.Encode() != before {
		t.Fatalf("board mutated by resolve")
	}
	if !equalKeys(sortedKeys(first), sortedKeys(second)) {
		t.Fatalf("resolve not repeatable: %v vs %v", sortedKeys(first), sortedKeys(second))
	}
}

// checkRuns verifies the structural guarantees of a resolution against the
// pre-move board.
func checkRuns(t *testing.T, b *Board, res Resolution) {
	t.Helper()
	seen := map[Coord]bool{}
	for _, c := range res.Captures {
		if c == res.Origin {
			t.Fatalf("result contains origin %s", c.Key())
		}
		if seen[c] {
			t.Fatalf("duplicate capture %s", c.Key())
		}
		seen[c] = true
		s, ok := b.PieceAt(c)
		if !ok {
			t.Fatalf("captured empty square %s", c.Key())
		}
		if s == res.Side {
			t.Fatalf("captured own disc %s", c.Key())
		}
		dc, dr := c.Col-res.Origin.Col, c.Row-res.Origin.Row
		if dc != 0 && dr != 0 && abs(dc) != abs(dr) {
			t.Fatalf("%s is not on a line from %s", c.Key(), res.Origin.Key())
		}
		dir := Coord{sign(dc), sign(dr)}
		// every square between origin and c is also captured
		for step := 1; ; step++ {
			p := res.Origin.Add(dir, step)
			if p == c {
				break
			}
			if !res.Contains(p) {
				t.Fatalf("gap at %s before %s", p.Key(), c.Key())
			}
		}
		// the run ends on an acting-side anchor
		for step := 1; ; step++ {
			p := c.Add(dir, step)
			s, ok := b.PieceAt(p)
			if !ok {
				t.Fatalf("run through %s has no anchor", c.Key())
			}
			if s == res.Side {
				break
			}
		}
	}
}

func TestResolvePropertiesOnRandomBoards(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	sizes := [][2]int{{8, 8}, {10, 10}, {5, 9}, {9, 4}, {1, 6}}
	for _, sz := range sizes {
		for iter := 0; iter < 60; iter++ {
			b := mustBoard(t, sz[0], sz[1])
			for row := 1; row <= b.Height(); row++ {
				for col := 1; col <= b.Width(); col++ {
					switch rng.Intn(3) {
					case 1:
						place(t, b, SideFirst, Coord{col, row})
					case 2:
						place(t, b, SideSecond, Coord{col, row})
					}
				}
			}
			origin := Coord{1 + rng.Intn(b.Width()), 1 + rng.Intn(b.Height())}
			side := SideFirst
			if rng.Intn(2) == 1 {
				side = SideSecond
			}
			res, err := Resolve(origin, side, b)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			checkRuns(t, b, res)
		}
	}
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
