package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/park285/Flipello-KakaoTalk-bot/internal/flipello"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/service/board"
)

func newApp(out io.Writer) *cli.Command {
	variantFlag := &cli.StringFlag{
		Name:  "variant",
		Value: string(flipello.VariantFlipello),
		Usage: "board variant (8x8 or 10x10)",
	}
	movesFlag := &cli.StringFlag{
		Name:  "moves",
		Usage: "comma separated move keys, e.g. d3,c3,c4",
	}

	return &cli.Command{
		Name:   "flipctl",
		Usage:  "flipello board tools",
		Writer: out,
		Commands: []*cli.Command{
			{
				Name:  "captures",
				Usage: "list the discs a placement would flip",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "board", Required: true, Usage: "encoded board, top row first, rows joined by '/'"},
					&cli.StringFlag{Name: "at", Required: true, Usage: "placement key"},
					&cli.StringFlag{Name: "side", Value: "first", Usage: "acting side (first|second)"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return runCaptures(out, c.String("board"), c.String("at"), c.String("side"))
				},
			},
			{
				Name:  "replay",
				Usage: "play a move list from the starting position and print the board",
				Flags: []cli.Flag{variantFlag, movesFlag},
				Action: func(ctx context.Context, c *cli.Command) error {
					r, err := replayMoves(c.String("variant"), c.String("moves"))
					if err != nil {
						return err
					}
					printReplay(out, r)
					return nil
				},
			},
			{
				Name:  "render",
				Usage: "render a replayed position to PNG",
				Flags: []cli.Flag{
					variantFlag,
					movesFlag,
					&cli.StringFlag{Name: "out", Value: "board.png", Usage: "output file"},
					&cli.StringFlag{Name: "theme", Value: board.DefaultTheme, Usage: "board theme (" + strings.Join(board.ThemeNames(), ", ") + ")"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return runRender(ctx, out, c.String("variant"), c.String("moves"), c.String("out"), c.String("theme"))
				},
			},
		},
	}
}

func runCaptures(out io.Writer, raw, at, sideName string) error {
	b, err := flipello.DecodeBoard(raw)
	if err != nil {
		return err
	}
	origin, err := flipello.ParseKey(at)
	if err != nil {
		return err
	}
	side, ok := flipello.ParseSide(sideName)
	if !ok {
		return fmt.Errorf("unknown side %q", sideName)
	}
	res, err := flipello.Resolve(origin, side, b)
	if err != nil {
		return err
	}
	keys := res.Keys()
	sort.Strings(keys)
	fmt.Fprintf(out, "%s %s: %d\n", origin.Key(), side, len(keys))
	for _, k := range keys {
		fmt.Fprintln(out, k)
	}
	return nil
}

type replayResult struct {
	board *flipello.Board
	turn  flipello.Side
	last  *flipello.Resolution
	moves int
}

// replayMoves plays keys alternately from the variant's starting position.
// A side without a legal move passes automatically.
func replayMoves(variantName, moves string) (*replayResult, error) {
	variant, ok := flipello.ParseVariant(variantName)
	if !ok {
		return nil, fmt.Errorf("unknown variant %q", variantName)
	}
	r := &replayResult{board: variant.NewGameBoard(), turn: flipello.SideFirst}
	for _, key := range strings.Split(moves, ",") {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if r.turn == flipello.SideNone {
			return nil, fmt.Errorf("move %d (%s): game is over", r.moves+1, key)
		}
		origin, err := flipello.ParseKey(key)
		if err != nil {
			return nil, fmt.Errorf("move %d: %w", r.moves+1, err)
		}
		res, err := flipello.Play(r.board, origin, r.turn)
		if err != nil {
			return nil, fmt.Errorf("move %d: %w", r.moves+1, err)
		}
		r.last = &res
		r.moves++
		next, _, over := flipello.NextTurn(r.board, r.turn)
		if over {
			next = flipello.SideNone
		}
		r.turn = next
	}
	return r, nil
}

func printReplay(out io.Writer, r *replayResult) {
	b := r.board
	fmt.Fprint(out, "   ")
	for col := 1; col <= b.Width(); col++ {
		fmt.Fprintf(out, "%c", 'a'+col-1)
	}
	fmt.Fprintln(out)
	for i, line := range strings.Split(b.Encode(), "/") {
		fmt.Fprintf(out, "%2d %s\n", b.Height()-i, line)
	}
	score := flipello.CountScore(b)
	fmt.Fprintf(out, "moves %d score %d:%d", r.moves, score.First, score.Second)
	if r.turn == flipello.SideNone {
		fmt.Fprintf(out, " over winner %s\n", flipello.Winner(b))
		return
	}
	fmt.Fprintf(out, " turn %s\n", r.turn)
}

func runRender(ctx context.Context, out io.Writer, variantName, moves, path, theme string) error {
	r, err := replayMoves(variantName, moves)
	if err != nil {
		return err
	}
	opts := board.RenderOptions{
		Score:     flipello.CountScore(r.board),
		HUDHeader: fmt.Sprintf("flipello %dx%d", r.board.Width(), r.board.Height()),
		Theme:     theme,
	}
	if r.last != nil {
		origin := r.last.Origin
		opts.LastMove = &origin
		opts.Flipped = r.last.Captures
	}
	if r.turn != flipello.SideNone {
		opts.HUDTurn = "turn: " + r.turn.String()
		for _, res := range flipello.LegalMoves(r.board, r.turn) {
			opts.Legal = append(opts.Legal, res.Origin)
		}
	}
	png, err := board.NewSVGBoardRenderer(theme).RenderPNG(ctx, r.board, opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s (%d bytes)\n", path, len(png))
	return nil
}
