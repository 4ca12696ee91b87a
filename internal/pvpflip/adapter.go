package pvpflip

import (
	"context"
	"fmt"
	"strings"

	"github.com/park285/Flipello-KakaoTalk-bot/internal/flipello"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/service/board"
	"github.com/park285/Flipello-KakaoTalk-bot/pkg/flipdto"
)

// ToDTO renders the board from the first side's view and returns the
// presenter state.
func (m *Manager) ToDTO(ctx context.Context, g *Game) (*flipdto.SessionState, error) {
	return m.ToDTOForViewer(ctx, g, "")
}

// ToDTOForViewer renders with the viewer's side at the bottom. Unknown
// viewers see the first side's view.
func (m *Manager) ToDTOForViewer(ctx context.Context, g *Game, viewerID string) (*flipdto.SessionState, error) {
	if m == nil || g == nil {
		return nil, nil
	}
	b, err := g.BoardState()
	if err != nil {
		return nil, fmt.Errorf("decode board: %w", err)
	}
	score := flipello.CountScore(b)
	opts := board.RenderOptions{
		Score:     score,
		HUDHeader: fmt.Sprintf("%s vs %s", displayName(g.FirstName, "Black"), displayName(g.SecondName, "White")),
		HUDTurn:   hudTurn(g),
		Flip:      g.SideOf(strings.TrimSpace(viewerID)) == flipello.SideSecond,
	}
	if last := g.LastMove(); last != "" {
		if c, perr := flipello.ParseKey(last); perr == nil {
			opts.LastMove = &c
		}
	}
	for _, k := range g.Flipped {
		if c, perr := flipello.ParseKey(k); perr == nil {
			opts.Flipped = append(opts.Flipped, c)
		}
	}
	if g.Active() && g.Turn.Valid() {
		for _, res := range flipello.LegalMoves(b, g.Turn) {
			opts.Legal = append(opts.Legal, res.Origin)
		}
	}

	renderer := m.renderer
	if renderer == nil {
		renderer = board.NewSVGBoardRenderer(board.DefaultTheme)
	}
	png, err := renderer.RenderPNG(ctx, b, opts)
	if err != nil {
		return nil, err
	}
	return StateOf(g, b, png), nil
}

// StateOf builds the presenter state without an image.
func StateOf(g *Game, b *flipello.Board, png []byte) *flipdto.SessionState {
	score := flipello.CountScore(b)
	state := &flipdto.SessionState{
		GameID:     g.ID,
		Variant:    string(g.Variant),
		Board:      g.Board,
		Width:      b.Width(),
		Height:     b.Height(),
		Moves:      append([]string(nil), g.Moves...),
		Flipped:    append([]string(nil), g.Flipped...),
		LastMove:   g.LastMove(),
		MoveCount:  len(g.Moves),
		Passes:     g.Passes,
		Score:      flipdto.Score{First: score.First, Second: score.Second},
		Turn:       g.Turn.String(),
		TurnName:   g.PlayerName(g.Turn),
		First:      flipdto.Player{ID: g.FirstID, Name: g.FirstName, Side: flipello.SideFirst.String()},
		Second:     flipdto.Player{ID: g.SecondID, Name: g.SecondName, Side: flipello.SideSecond.String()},
		Status:     string(g.Status),
		StatusName: g.StatusName(),
		Outcome:    g.Outcome,
		Method:     g.Method,
		BoardImage: png,
		UpdatedAt:  g.UpdatedAt,
	}
	switch g.Outcome {
	case "first":
		state.WinnerName, state.LoserName = g.FirstName, g.SecondName
	case "second":
		state.WinnerName, state.LoserName = g.SecondName, g.FirstName
	}
	return state
}

// hudTurn stays ASCII; the caption face has no Hangul glyphs.
func hudTurn(g *Game) string {
	if !g.Active() {
		return "Game over"
	}
	turnNumber := len(g.Moves) + 1
	switch g.Turn {
	case flipello.SideFirst:
		return fmt.Sprintf("Black to move - %d", turnNumber)
	case flipello.SideSecond:
		return fmt.Sprintf("White to move - %d", turnNumber)
	default:
		return ""
	}
}

func displayName(name, fallback string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return fallback
}
