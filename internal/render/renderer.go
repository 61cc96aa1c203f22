// Package render rasterizes a chess position into a PNG board image with an
// evaluation HUD and a best-move arrow. Piece glyphs are embedded SVGs
// rasterized through oksvg.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"math"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// MoveHighlight marks the squares of the recommended move.
type MoveHighlight struct {
	From nchess.Square
	To   nchess.Square
}

// Options adjusts the HUD text and highlight of one rendering.
type Options struct {
	Highlight *MoveHighlight
	Header    string
	EvalText  string
	TurnText  string
}

// BoardRenderer turns a FEN position into a PNG image.
type BoardRenderer interface {
	RenderPNG(ctx context.Context, fen string, opts Options) ([]byte, error)
}

type pngBoardRenderer struct{}

// NewBoardRenderer returns the default raster renderer.
func NewBoardRenderer() BoardRenderer {
	return &pngBoardRenderer{}
}

// ParseUCIHighlight extracts the from/to squares of a UCI move like "e2e4".
func ParseUCIHighlight(moveUCI string) *MoveHighlight {
	if len(moveUCI) < 4 {
		return nil
	}
	from, ok1 := parseSquare(moveUCI[0:2])
	to, ok2 := parseSquare(moveUCI[2:4])
	if !ok1 || !ok2 {
		return nil
	}
	return &MoveHighlight{From: from, To: to}
}

func parseSquare(s string) (nchess.Square, bool) {
	var none nchess.Square
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return none, false
	}
	return nchess.NewSquare(nchess.File(s[0]-'a'), nchess.Rank(s[1]-'1')), true
}

func (r *pngBoardRenderer) RenderPNG(ctx context.Context, fen string, opts Options) ([]byte, error) {
	fenOpt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen: %w", err)
	}
	game := nchess.NewGame(fenOpt)
	board := game.Position().Board()

	const (
		squareSize   = 72
		boardSquares = 8
		boardSize    = squareSize * boardSquares
		sideMargin   = 36
		topMargin    = 96
		bottomMargin = 36
		panelHeight  = 32
		panelRadius  = 10
		panelPadX    = 20
		gapToBoard   = 18
	)

	totalWidth := boardSize + sideMargin*2
	totalHeight := boardSize + topMargin + bottomMargin
	boardOrigin := image.Point{X: sideMargin, Y: topMargin}
	boardRect := image.Rect(
		boardOrigin.X,
		boardOrigin.Y,
		boardOrigin.X+boardSize,
		boardOrigin.Y+boardSize,
	)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	img := image.NewRGBA(image.Rect(0, 0, totalWidth, totalHeight))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawHUD(img, opts, boardRect, panelHeight, panelRadius, panelPadX, gapToBoard)
	drawSquares(img, squareSize, boardOrigin)
	drawHighlight(img, board, opts.Highlight, squareSize, boardOrigin)
	if err := drawPieces(img, board, squareSize, boardOrigin); err != nil {
		return nil, err
	}
	drawCoordinates(img, squareSize, boardOrigin, sideMargin)

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
	backgroundColor     = color.NRGBA{R: 22, G: 24, B: 34, A: 255}
	lightSquare         = color.RGBA{233, 207, 163, 255}
	darkSquare          = color.RGBA{187, 136, 96, 255}
	whiteMoveArrow      = color.NRGBA{R: 255, G: 228, B: 120, A: 170}
	blackMoveArrow      = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	neutralMoveArrow    = color.NRGBA{R: 182, G: 184, B: 190, A: 140}
	hudPanelColor       = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	hudTurnPanelColor   = color.NRGBA{R: 32, G: 35, B: 52, A: 245}
	hudTextPrimary      = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	hudTurnTextColor    = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
	coordinateTextColor = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
)

var (
	boardRanks = []nchess.Rank{nchess.Rank8, nchess.Rank7, nchess.Rank6, nchess.Rank5, nchess.Rank4, nchess.Rank3, nchess.Rank2, nchess.Rank1}
	boardFiles = []nchess.File{nchess.FileA, nchess.FileB, nchess.FileC, nchess.FileD, nchess.FileE, nchess.FileF, nchess.FileG, nchess.FileH}
)

func drawSquares(dst imagedraw.Image, squareSize int, origin image.Point) {
	for row, rank := range boardRanks {
		for col, file := range boardFiles {
			x := origin.X + col*squareSize
			y := origin.Y + row*squareSize
			sq := nchess.NewSquare(file, rank)
			imagedraw.Draw(dst, image.Rect(x, y, x+squareSize, y+squareSize), image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)
		}
	}
}

func drawPieces(dst imagedraw.Image, board *nchess.Board, squareSize int, origin image.Point) error {
	boardMap := board.SquareMap()
	for row, rank := range boardRanks {
		for col, file := range boardFiles {
			sq := nchess.NewSquare(file, rank)
			piece := boardMap[sq]
			if piece == nchess.NoPiece {
				continue
			}
			img, err := renderPieceImage(piece, squareSize)
			if err != nil {
				return err
			}
			x := origin.X + col*squareSize
			y := origin.Y + row*squareSize
			imagedraw.Draw(dst, image.Rect(x, y, x+squareSize, y+squareSize), img, image.Point{}, imagedraw.Over)
		}
	}
	return nil
}

func drawHighlight(img *image.RGBA, board *nchess.Board, highlight *MoveHighlight, squareSize int, origin image.Point) {
	if highlight == nil {
		return
	}
	clr := neutralMoveArrow
	if piece := board.Piece(highlight.From); piece != nchess.NoPiece {
		if piece.Color() == nchess.White {
			clr = whiteMoveArrow
		} else {
			clr = blackMoveArrow
		}
	}
	drawArrow(img, highlight.From, highlight.To, squareSize, origin, clr)
}

func drawHUD(img *image.RGBA, opts Options, boardRect image.Rectangle, panelHeight, radius, padX, gapToBoard int) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Face: face}

	header := strings.TrimSpace(opts.Header)
	if header == "" {
		header = "Position Analysis"
	}
	evalText := strings.TrimSpace(opts.EvalText)
	turnText := strings.TrimSpace(opts.TurnText)

	bottom := boardRect.Min.Y - gapToBoard
	top := bottom - panelHeight

	headerWidth := drawer.MeasureString(header).Round() + padX*2
	headerRect := image.Rect(boardRect.Min.X, top, boardRect.Min.X+headerWidth, bottom)
	drawRoundedPanel(img, headerRect, radius, hudPanelColor)
	drawCenteredString(drawer, headerRect, header, hudTextPrimary)

	if evalText != "" {
		evalWidth := drawer.MeasureString(evalText).Round() + padX*2
		evalRect := image.Rect(boardRect.Max.X-evalWidth, top, boardRect.Max.X, bottom)
		drawRoundedPanel(img, evalRect, radius, hudPanelColor)
		drawCenteredString(drawer, evalRect, evalText, hudTextPrimary)
	}

	if turnText != "" {
		turnWidth := drawer.MeasureString(turnText).Round() + padX*2
		turnLeft := boardRect.Min.X + (boardRect.Dx()-turnWidth)/2
		turnRect := image.Rect(turnLeft, top-panelHeight-10, turnLeft+turnWidth, top-10)
		drawRoundedPanel(img, turnRect, radius, hudTurnPanelColor)
		drawCenteredString(drawer, turnRect, turnText, hudTurnTextColor)
	}
}

func drawArrow(img *image.RGBA, from, to nchess.Square, squareSize int, origin image.Point, clr color.Color) {
	if img == nil || from == to {
		return
	}
	startRect := squareRect(from, squareSize, origin)
	endRect := squareRect(to, squareSize, origin)
	start := image.Point{
		X: startRect.Min.X + squareSize/2,
		Y: startRect.Min.Y + squareSize/2,
	}
	end := image.Point{
		X: endRect.Min.X + squareSize/2,
		Y: endRect.Min.Y + squareSize/2,
	}

	dx := float64(end.X - start.X)
	dy := float64(end.Y - start.Y)
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}

	dirX := dx / length
	dirY := dy / length
	perpX := -dirY
	perpY := dirX

	baseLength := length - float64(squareSize)*0.45
	if baseLength < float64(squareSize)*0.35 {
		baseLength = length * 0.6
	}
	halfWidth := float64(squareSize) * 0.18
	headWidth := float64(squareSize) * 0.32

	baseX := float64(start.X) + dirX*baseLength
	baseY := float64(start.Y) + dirY*baseLength

	shaftStartLeft := pointF{X: float64(start.X) - perpX*halfWidth, Y: float64(start.Y) - perpY*halfWidth}
	shaftStartRight := pointF{X: float64(start.X) + perpX*halfWidth, Y: float64(start.Y) + perpY*halfWidth}
	shaftEndLeft := pointF{X: baseX - perpX*halfWidth, Y: baseY - perpY*halfWidth}
	shaftEndRight := pointF{X: baseX + perpX*halfWidth, Y: baseY + perpY*halfWidth}

	fillQuad(img, shaftStartLeft, shaftStartRight, shaftEndRight, shaftEndLeft, clr)

	headLeft := pointF{X: baseX - perpX*headWidth/2, Y: baseY - perpY*headWidth/2}
	headRight := pointF{X: baseX + perpX*headWidth/2, Y: baseY + perpY*headWidth/2}
	headTip := pointF{X: float64(end.X), Y: float64(end.Y)}

	fillTriangleF(img, headTip, headLeft, headRight, clr)
}

func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if img == nil || rect.Empty() {
		return
	}
	if radius < 0 {
		radius = 0
	}
	maxRadius := rect.Dx() / 2
	if r := rect.Dy() / 2; r < maxRadius {
		maxRadius = r
	}
	if radius > maxRadius {
		radius = maxRadius
	}
	fill := image.NewUniform(clr)
	if radius == 0 {
		imagedraw.Draw(img, rect, fill, image.Point{}, imagedraw.Over)
		return
	}

	core := image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y)
	if core.Dx() > 0 {
		imagedraw.Draw(img, core, fill, image.Point{}, imagedraw.Over)
	}
	leftRect := image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Min.X+radius, rect.Max.Y-radius)
	if leftRect.Dx() > 0 {
		imagedraw.Draw(img, leftRect, fill, image.Point{}, imagedraw.Over)
	}
	rightRect := image.Rect(rect.Max.X-radius, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius)
	if rightRect.Dx() > 0 {
		imagedraw.Draw(img, rightRect, fill, image.Point{}, imagedraw.Over)
	}

	corners := []image.Point{
		{rect.Min.X + radius, rect.Min.Y + radius},
		{rect.Max.X - radius - 1, rect.Min.Y + radius},
		{rect.Min.X + radius, rect.Max.Y - radius - 1},
		{rect.Max.X - radius - 1, rect.Max.Y - radius - 1},
	}
	for _, center := range corners {
		drawDisc(img, center, radius, clr)
	}
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

func drawCoordinates(dst imagedraw.Image, squareSize int, origin image.Point, margin int) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordinateTextColor)}
	ascent := face.Metrics().Ascent.Ceil()

	boardEndY := origin.Y + len(boardRanks)*squareSize

	for row, rank := range boardRanks {
		rankCenter := origin.Y + row*squareSize + squareSize/2
		rankX := origin.X - margin/2
		drawCenteredText(drawer, rank.String(), rankX, rankCenter+ascent/2)
	}
	for col, file := range boardFiles {
		fileCenter := origin.X + col*squareSize + squareSize/2
		drawCenteredText(drawer, file.String(), fileCenter, boardEndY+ascent+4)
	}
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func drawDisc(img *image.RGBA, center image.Point, radius int, clr color.Color) {
	if radius <= 0 {
		blendPixel(img, center.X, center.Y, clr)
		return
	}
	rSquared := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y > rSquared {
				continue
			}
			blendPixel(img, center.X+x, center.Y+y, clr)
		}
	}
}

func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if img == nil {
		return
	}
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}

	sr, sg, sb, sa := clr.RGBA()
	srcA := float64(sa) / 65535.0
	if srcA <= 0 {
		return
	}
	srcR := float64(sr) / 65535.0
	srcG := float64(sg) / 65535.0
	srcB := float64(sb) / 65535.0

	dst := img.RGBAAt(x, y)
	dstA := float64(dst.A) / 255.0

	var dstR, dstG, dstB float64
	if dstA > 0 {
		inv := 1.0 / dstA
		dstR = float64(dst.R) / 255.0 * inv
		dstG = float64(dst.G) / 255.0 * inv
		dstB = float64(dst.B) / 255.0 * inv
	}

	outA := srcA + dstA*(1-srcA)
	if outA <= 0 {
		img.SetRGBA(x, y, color.RGBA{})
		return
	}

	outR := (srcR*srcA + dstR*dstA*(1-srcA)) / outA
	outG := (srcG*srcA + dstG*dstA*(1-srcA)) / outA
	outB := (srcB*srcA + dstB*dstA*(1-srcA)) / outA

	img.SetRGBA(x, y, color.RGBA{
		R: floatToUint8(outR * outA * 255.0),
		G: floatToUint8(outG * outA * 255.0),
		B: floatToUint8(outB * outA * 255.0),
		A: floatToUint8(outA * 255.0),
	})
}

func floatToUint8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func squareRect(sq nchess.Square, squareSize int, origin image.Point) image.Rectangle {
	col := int(sq.File())
	row := 7 - int(sq.Rank())
	x := origin.X + col*squareSize
	y := origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func squareColor(sq nchess.Square) color.Color {
	if (int(sq.File())+int(sq.Rank()))%2 == 0 {
		return darkSquare
	}
	return lightSquare
}

func fillQuad(img *image.RGBA, p0, p1, p2, p3 pointF, clr color.Color) {
	fillTriangleF(img, p0, p1, p2, clr)
	fillTriangleF(img, p0, p2, p3, clr)
}

func fillTriangleF(img *image.RGBA, a, b, c pointF, clr color.Color) {
	minX := int(math.Floor(math.Min(a.X, math.Min(b.X, c.X))))
	maxX := int(math.Ceil(math.Max(a.X, math.Max(b.X, c.X))))
	minY := int(math.Floor(math.Min(a.Y, math.Min(b.Y, c.Y))))
	maxY := int(math.Ceil(math.Max(a.Y, math.Max(b.Y, c.Y))))

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if pointInTriangleF(float64(x)+0.5, float64(y)+0.5, a, b, c) {
				blendPixel(img, x, y, clr)
			}
		}
	}
}

func pointInTriangleF(x, y float64, a, b, c pointF) bool {
	denom := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	if denom == 0 {
		return false
	}
	alpha := ((b.Y-c.Y)*(x-c.X) + (c.X-b.X)*(y-c.Y)) / denom
	beta := ((c.Y-a.Y)*(x-c.X) + (a.X-c.X)*(y-c.Y)) / denom
	gamma := 1 - alpha - beta
	return alpha >= 0 && beta >= 0 && gamma >= 0
}

type pointF struct {
	X float64
	Y float64
}
