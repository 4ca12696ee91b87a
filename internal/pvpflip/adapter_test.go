package pvpflip

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/park285/Flipello-KakaoTalk-bot/internal/flipello"
)

func TestToDTOForViewer_FlipDifferent(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	g := newGame(t, m)
	g, _, err := m.PlayMove(ctx, "u1", "d3")
	if err != nil {
		t.Fatalf("PlayMove: %v", err)
	}

	dtoFirst, err := m.ToDTOForViewer(ctx, g, "u1")
	if err != nil || dtoFirst == nil || len(dtoFirst.BoardImage) == 0 {
		t.Fatalf("first dto render failed: %v", err)
	}
	dtoSecond, err := m.ToDTOForViewer(ctx, g, "u2")
	if err != nil || dtoSecond == nil || len(dtoSecond.BoardImage) == 0 {
		t.Fatalf("second dto render failed: %v", err)
	}
	if bytes.Equal(dtoFirst.BoardImage, dtoSecond.BoardImage) {
		t.Fatalf("expected different images for flipped viewpoints")
	}
	if dtoFirst.LastMove != "d3" || dtoFirst.MoveCount != 1 || dtoFirst.Score.First != 4 {
		t.Fatalf("unexpected state %+v", dtoFirst)
	}
	if dtoFirst.Turn != "second" || dtoFirst.TurnName != "Bob" || dtoFirst.StatusName != "started" || dtoFirst.Finished() {
		t.Fatalf("turn/status = %s %s %s", dtoFirst.Turn, dtoFirst.TurnName, dtoFirst.StatusName)
	}
}

func TestStateOfFinishedGame(t *testing.T) {
	g := &Game{
		ID:         "g",
		Variant:    flipello.VariantFlipello,
		Board:      "xxo",
		Moves:      []string{"a1"},
		Status:     StatusResigned,
		Outcome:    "second",
		Method:     MethodResign,
		FirstID:    "u1",
		FirstName:  "Alice",
		SecondID:   "u2",
		SecondName: "Bob",
		UpdatedAt:  time.Now(),
	}
	b, err := g.BoardState()
	if err != nil {
		t.Fatalf("BoardState: %v", err)
	}
	st := StateOf(g, b, nil)
	if st.WinnerName != "Bob" || st.LoserName != "Alice" || !st.Finished() {
		t.Fatalf("winner/loser = %s/%s", st.WinnerName, st.LoserName)
	}
	if st.Width != 3 || st.Height != 1 || st.Score.First != 2 || st.Score.Second != 1 {
		t.Fatalf("geometry/score = %dx%d %+v", st.Width, st.Height, st.Score)
	}
}

func TestArchiveRecord(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	g := &Game{
		ID:        "g",
		Variant:   flipello.VariantFlipello,
		Board:     "xxo",
		Outcome:   "first",
		Method:    MethodVariantEnd,
		CreatedAt: start,
		UpdatedAt: start.Add(90 * time.Second),
	}
	rec := ArchiveRecord(g)
	if rec.FirstDiscs != 2 || rec.SecondDiscs != 1 || rec.Duration != 90*time.Second {
		t.Fatalf("record = %+v", rec)
	}
	if rec.Moves == nil || rec.Result != "first" {
		t.Fatalf("record moves/result = %v %q", rec.Moves, rec.Result)
	}
}
