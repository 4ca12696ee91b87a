package board

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"

	"github.com/park285/Flipello-KakaoTalk-bot/internal/flipello"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

type RenderOptions struct {
	LastMove  *flipello.Coord
	Flipped   []flipello.Coord
	Legal     []flipello.Coord
	Score     flipello.Score
	HUDHeader string
	HUDTurn   string
	Theme     string
	// Flip draws the board from the second side's point of view.
	Flip bool
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, board flipello.Snapshot, opts RenderOptions) ([]byte, error)
}

type svgBoardRenderer struct {
	theme string
}

// NewSVGBoardRenderer returns a renderer whose palette defaults to theme when
// RenderOptions.Theme is empty.
func NewSVGBoardRenderer(theme string) BoardRenderer {
	return &svgBoardRenderer{theme: strings.TrimSpace(theme)}
}

const (
	boardTargetSize = 576
	minSquareSize   = 24
	maxSquareSize   = 72
	minCanvasWidth  = 480
)

// geometry maps board coordinates to pixels for one render.
type geometry struct {
	w, h       int
	squareSize int
	origin     image.Point
	flip       bool
}

func newGeometry(w, h int, origin image.Point, flip bool) geometry {
	longest := w
	if h > longest {
		longest = h
	}
	size := boardTargetSize / longest
	if size > maxSquareSize {
		size = maxSquareSize
	}
	if size < minSquareSize {
		size = minSquareSize
	}
	return geometry{w: w, h: h, squareSize: size, origin: origin, flip: flip}
}

func (g geometry) boardWidth() int  { return g.w * g.squareSize }
func (g geometry) boardHeight() int { return g.h * g.squareSize }

// screen returns the 0-based screen column and row for a board coordinate.
func (g geometry) screen(c flipello.Coord) (int, int) {
	if g.flip {
		return g.w - c.Col, c.Row - 1
	}
	return c.Col - 1, g.h - c.Row
}

// coordAt is the inverse of screen.
func (g geometry) coordAt(col, row int) flipello.Coord {
	if g.flip {
		return flipello.Coord{Col: g.w - col, Row: row + 1}
	}
	return flipello.Coord{Col: col + 1, Row: g.h - row}
}

func (g geometry) squareRect(c flipello.Coord) image.Rectangle {
	col, row := g.screen(c)
	x := g.origin.X + col*g.squareSize
	y := g.origin.Y + row*g.squareSize
	return image.Rect(x, y, x+g.squareSize, y+g.squareSize)
}

func (r *svgBoardRenderer) RenderPNG(ctx context.Context, board flipello.Snapshot, opts RenderOptions) ([]byte, error) {
	if board == nil {
		return nil, fmt.Errorf("board is nil")
	}
	if board.Width() < 1 || board.Height() < 1 {
		return nil, fmt.Errorf("board has no squares")
	}

	const (
		topMargin            = 110
		bottomMargin         = 36
		titleHeight          = 40
		secondaryPanelHeight = 32
		gapBetweenPanels     = 14
		gapToBoard           = 22
		panelRadius          = 12
		titlePaddingX        = 28
		scorePaddingX        = 24
		turnPaddingX         = 20
		titleMinWidth        = 200
		scoreMinWidth        = 120
		turnMinWidth         = 140
		shadowOffsetY        = 6
	)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	themeName := opts.Theme
	if strings.TrimSpace(themeName) == "" {
		themeName = r.theme
	}
	theme := LookupTheme(themeName)

	geo := newGeometry(board.Width(), board.Height(), image.Point{}, opts.Flip)
	sideMargin := 36
	if need := (minCanvasWidth - geo.boardWidth()) / 2; need > sideMargin {
		sideMargin = need
	}
	geo.origin = image.Point{X: sideMargin, Y: topMargin}

	totalWidth := geo.boardWidth() + sideMargin*2
	totalHeight := geo.boardHeight() + topMargin + bottomMargin
	boardRect := image.Rect(geo.origin.X, geo.origin.Y, geo.origin.X+geo.boardWidth(), geo.origin.Y+geo.boardHeight())

	img := image.NewRGBA(image.Rect(0, 0, totalWidth, totalHeight))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(canvasColor), image.Point{}, imagedraw.Src)

	hud := hudLayout{
		radius:               panelRadius,
		titleHeight:          titleHeight,
		secondaryPanelHeight: secondaryPanelHeight,
		gapBetweenPanels:     gapBetweenPanels,
		gapToBoard:           gapToBoard,
		titlePaddingX:        titlePaddingX,
		scorePaddingX:        scorePaddingX,
		turnPaddingX:         turnPaddingX,
		titleMinWidth:        titleMinWidth,
		scoreMinWidth:        scoreMinWidth,
		turnMinWidth:         turnMinWidth,
		shadowOffsetY:        shadowOffsetY,
	}
	if err := drawHUD(img, opts, boardRect, hud); err != nil {
		return nil, err
	}

	drawBoardShadow(img, boardRect)
	drawSquares(img, geo, theme)
	drawLastMove(img, geo, opts.LastMove)
	drawFlipped(img, geo, opts.Flipped)
	if err := drawDiscs(ctx, img, board, geo); err != nil {
		return nil, err
	}
	drawLegalDots(img, board, geo, opts.Legal)
	drawCoordinates(img, geo, sideMargin, theme)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return pngBuf.Bytes(), nil
}

var (
	canvasColor          = color.RGBA{R: 22, G: 24, B: 34, A: 255}
	lastMoveFill         = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	flippedFill          = color.NRGBA{R: 148, G: 207, B: 255, A: 120}
	legalDotColor        = color.NRGBA{R: 20, G: 20, B: 20, A: 90}
	hudPanelColor        = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	hudTurnPanelColor    = color.NRGBA{R: 32, G: 35, B: 52, A: 245}
	hudShadowColor       = color.NRGBA{0, 0, 0, 50}
	hudTextPrimary       = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	hudTurnTextColor     = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
	boardShadowColor     = color.NRGBA{0, 0, 0, 60}
	gridLineColor        = color.NRGBA{0, 0, 0, 70}
	hudDiscFirstOutline  = color.NRGBA{R: 0, G: 0, B: 0, A: 255}
	hudDiscSecondOutline = color.NRGBA{R: 240, G: 240, B: 236, A: 255}
)

func captionFace() font.Face { return basicfont.Face7x13 }

func drawBoardShadow(img *image.RGBA, boardRect image.Rectangle) {
	if img == nil {
		return
	}
	shadowRect := image.Rect(
		boardRect.Min.X+4,
		boardRect.Min.Y+8,
		boardRect.Max.X+10,
		boardRect.Max.Y+12,
	)
	imagedraw.Draw(img, shadowRect, image.NewUniform(boardShadowColor), image.Point{}, imagedraw.Over)
}

func drawSquares(dst *image.RGBA, geo geometry, theme Theme) {
	for row := 0; row < geo.h; row++ {
		for col := 0; col < geo.w; col++ {
			c := geo.coordAt(col, row)
			clr := theme.Light
			if (c.Col+c.Row)%2 == 0 {
				clr = theme.Dark
			}
			imagedraw.Draw(dst, geo.squareRect(c), image.NewUniform(clr), image.Point{}, imagedraw.Src)
		}
	}
	// grid lines
	for col := 0; col <= geo.w; col++ {
		x := geo.origin.X + col*geo.squareSize
		for y := geo.origin.Y; y < geo.origin.Y+geo.boardHeight(); y++ {
			blendPixel(dst, x, y, gridLineColor)
		}
	}
	for row := 0; row <= geo.h; row++ {
		y := geo.origin.Y + row*geo.squareSize
		for x := geo.origin.X; x < geo.origin.X+geo.boardWidth(); x++ {
			blendPixel(dst, x, y, gridLineColor)
		}
	}
}

func drawDiscs(ctx context.Context, dst *image.RGBA, board flipello.Snapshot, geo geometry) error {
	inset := geo.squareSize / 12
	size := geo.squareSize - inset*2
	for row := 1; row <= geo.h; row++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		for col := 1; col <= geo.w; col++ {
			c := flipello.Coord{Col: col, Row: row}
			side, ok := board.PieceAt(c)
			if !ok {
				continue
			}
			disc, err := renderDiscImage(side, size)
			if err != nil {
				return err
			}
			rect := geo.squareRect(c).Inset(inset)
			imagedraw.Draw(dst, rect, disc, image.Point{}, imagedraw.Over)
		}
	}
	return nil
}

func drawLastMove(img *image.RGBA, geo geometry, last *flipello.Coord) {
	if last == nil || last.Col < 1 || last.Col > geo.w || last.Row < 1 || last.Row > geo.h {
		return
	}
	drawSquareOverlay(img, geo.squareRect(*last), lastMoveFill)
}

func drawFlipped(img *image.RGBA, geo geometry, flipped []flipello.Coord) {
	for _, c := range flipped {
		if c.Col < 1 || c.Col > geo.w || c.Row < 1 || c.Row > geo.h {
			continue
		}
		drawSquareOverlay(img, geo.squareRect(c), flippedFill)
	}
}

func drawLegalDots(img *image.RGBA, board flipello.Snapshot, geo geometry, legal []flipello.Coord) {
	radius := geo.squareSize / 8
	for _, c := range legal {
		if c.Col < 1 || c.Col > geo.w || c.Row < 1 || c.Row > geo.h {
			continue
		}
		if _, occupied := board.PieceAt(c); occupied {
			continue
		}
		rect := geo.squareRect(c)
		center := image.Pt(rect.Min.X+geo.squareSize/2, rect.Min.Y+geo.squareSize/2)
		drawDisc(img, center, radius, legalDotColor)
	}
}

func drawSquareOverlay(img *image.RGBA, rect image.Rectangle, clr color.Color) {
	if img == nil {
		return
	}
	imagedraw.Draw(img, rect, image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

type hudLayout struct {
	radius               int
	titleHeight          int
	secondaryPanelHeight int
	gapBetweenPanels     int
	gapToBoard           int
	titlePaddingX        int
	scorePaddingX        int
	turnPaddingX         int
	titleMinWidth        int
	scoreMinWidth        int
	turnMinWidth         int
	shadowOffsetY        int
}

func drawHUD(img *image.RGBA, opts RenderOptions, boardRect image.Rectangle, l hudLayout) error {
	if img == nil {
		return nil
	}
	face := captionFace()
	drawer := &font.Drawer{Dst: img, Face: face}

	title := strings.TrimSpace(opts.HUDHeader)
	if title == "" {
		title = "Flipello"
	}
	scoreText := fmt.Sprintf("%d : %d", opts.Score.First, opts.Score.Second)
	turnText := strings.TrimSpace(opts.HUDTurn)
	if turnText == "" {
		turnText = "Turn"
	}

	turnBottom := boardRect.Min.Y - l.gapToBoard
	turnTop := turnBottom - l.secondaryPanelHeight
	titleBottom := turnTop - l.gapBetweenPanels
	titleTop := titleBottom - l.titleHeight

	scoreBottom := boardRect.Min.Y - l.gapToBoard
	scoreTop := scoreBottom - l.secondaryPanelHeight

	iconSize := l.secondaryPanelHeight - 12
	titleWidth := maxInt(l.titleMinWidth, drawer.MeasureString(title).Round()+l.titlePaddingX*2)
	scoreWidth := maxInt(l.scoreMinWidth, drawer.MeasureString(scoreText).Round()+l.scorePaddingX*2+iconSize*2)
	turnWidth := maxInt(l.turnMinWidth, drawer.MeasureString(turnText).Round()+l.turnPaddingX*2)

	// panels span the canvas, not the board, so narrow boards keep a readable HUD
	span := image.Rect(12, boardRect.Min.Y, img.Bounds().Dx()-12, boardRect.Max.Y)

	maxTitleWidth := span.Dx() - scoreWidth - 24
	if maxTitleWidth < l.titleMinWidth {
		maxTitleWidth = l.titleMinWidth
	}
	if titleWidth > maxTitleWidth {
		titleWidth = maxTitleWidth
	}
	if maxTurnWidth := span.Dx() - scoreWidth - 24; turnWidth > maxTurnWidth && maxTurnWidth > 0 {
		turnWidth = maxTurnWidth
	}

	titleRect := image.Rect(span.Min.X, titleTop, span.Min.X+titleWidth, titleBottom)
	scoreRect := image.Rect(span.Max.X-scoreWidth, scoreTop, span.Max.X, scoreBottom)
	turnRect := image.Rect(span.Min.X, turnTop, span.Min.X+turnWidth, turnBottom)

	drawRoundedPanel(img, titleRect.Add(image.Pt(0, l.shadowOffsetY)), l.radius, hudShadowColor)
	drawRoundedPanel(img, scoreRect.Add(image.Pt(0, l.shadowOffsetY)), l.radius, hudShadowColor)
	drawRoundedPanel(img, turnRect.Add(image.Pt(0, l.shadowOffsetY)), l.radius, hudShadowColor)

	title = truncateWithEllipsis(face, title, titleRect.Dx()-l.titlePaddingX*2)
	turnText = truncateWithEllipsis(face, turnText, turnRect.Dx()-l.turnPaddingX*2)

	drawRoundedPanel(img, titleRect, l.radius, hudPanelColor)
	drawRoundedPanel(img, scoreRect, l.radius, hudPanelColor)
	drawRoundedPanel(img, turnRect, l.radius, hudTurnPanelColor)

	drawCenteredString(drawer, titleRect, title, hudTextPrimary)
	drawCenteredString(drawer, scoreRect, scoreText, hudTextPrimary)
	drawCenteredString(drawer, turnRect, turnText, hudTurnTextColor)

	// side icons flank the score
	iconY := scoreRect.Min.Y + (scoreRect.Dy()-iconSize)/2
	for i, side := range []flipello.Side{flipello.SideFirst, flipello.SideSecond} {
		disc, err := renderDiscImage(side, iconSize)
		if err != nil {
			return err
		}
		x := scoreRect.Min.X + l.scorePaddingX/2
		outline := hudDiscSecondOutline
		if i == 1 {
			x = scoreRect.Max.X - l.scorePaddingX/2 - iconSize
			outline = hudDiscFirstOutline
		}
		drawDisc(img, image.Pt(x+iconSize/2, iconY+iconSize/2), iconSize/2, outline)
		imagedraw.Draw(img, image.Rect(x, iconY, x+iconSize, iconY+iconSize), disc, image.Point{}, imagedraw.Over)
	}
	return nil
}

func drawCoordinates(dst *image.RGBA, geo geometry, margin int, theme Theme) {
	face := captionFace()
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(theme.Light)}
	ascent := face.Metrics().Ascent.Ceil()
	boardEndY := geo.origin.Y + geo.boardHeight()

	for row := 0; row < geo.h; row++ {
		c := geo.coordAt(0, row)
		rankCenter := geo.origin.Y + row*geo.squareSize + geo.squareSize/2
		drawCenteredText(drawer, fmt.Sprintf("%d", c.Row), geo.origin.X-minInt(margin/2, 18), rankCenter+ascent/2)
	}
	for col := 0; col < geo.w; col++ {
		c := geo.coordAt(col, 0)
		fileCenter := geo.origin.X + col*geo.squareSize + geo.squareSize/2
		drawCenteredText(drawer, string(rune('a'+c.Col-1)), fileCenter, boardEndY+ascent+4)
	}
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || maxWidth <= 0 || face == nil {
		return trimmed
	}

	drawer := font.Drawer{Face: face}
	if drawer.MeasureString(trimmed).Round() <= maxWidth {
		return trimmed
	}

	ellipsis := "..."
	if drawer.MeasureString(ellipsis).Round() > maxWidth {
		return ""
	}

	runes := []rune(trimmed)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + ellipsis
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ellipsis
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	if drawer == nil {
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := rect.Min.X + (rect.Dx()-width)/2
	if x < rect.Min.X {
		x = rect.Min.X
	}
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
