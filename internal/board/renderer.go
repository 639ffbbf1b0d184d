// Package board renders 10x10 international draughts positions to PNG.
package board

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/dawikk/hubbridge/internal/notation"
)

type MoveHighlight struct {
	From int
	To   int
}

type RenderOptions struct {
	Highlight   *MoveHighlight
	ShowNumbers bool
}

type Renderer interface {
	RenderPNG(ctx context.Context, pos notation.Position, opts RenderOptions) ([]byte, error)
}

type svgBoardRenderer struct {
}

func NewSVGBoardRenderer() Renderer {
	return &svgBoardRenderer{}
}

var (
	lightSquare    = color.RGBA{233, 217, 185, 255}
	darkSquare     = color.RGBA{146, 103, 66, 255}
	highlightColor = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	numberColor    = color.NRGBA{R: 222, G: 200, B: 168, A: 255}
	frameColor     = color.RGBA{58, 42, 28, 255}
)

func (r *svgBoardRenderer) RenderPNG(ctx context.Context, pos notation.Position, opts RenderOptions) ([]byte, error) {
	const (
		squareSize   = 64
		boardSquares = 10
		boardSize    = squareSize * boardSquares
		margin       = 16
		pieceInset   = 4
	)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	totalSize := boardSize + margin*2
	origin := image.Point{X: margin, Y: margin}

	img := image.NewRGBA(image.Rect(0, 0, totalSize, totalSize))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(frameColor), image.Point{}, imagedraw.Src)

	drawSquares(img, squareSize, origin)

	if opts.Highlight != nil {
		drawSquareOverlay(img, opts.Highlight.From, squareSize, origin, highlightColor)
		drawSquareOverlay(img, opts.Highlight.To, squareSize, origin, highlightColor)
	}

	if err := drawPieces(img, pos, squareSize, pieceInset, origin); err != nil {
		return nil, err
	}

	if opts.ShowNumbers {
		drawNumbers(img, squareSize, origin)
	}

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

// squareRect maps a playable square number (1..50) onto the canvas.
// Square 1 sits in the top row, White's back rank along the bottom.
func squareRect(sq, squareSize int, origin image.Point) image.Rectangle {
	row := (sq - 1) / 5
	idx := (sq - 1) % 5
	col := idx * 2
	if row%2 == 0 {
		col++
	}
	x := origin.X + col*squareSize
	y := origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func drawSquares(dst imagedraw.Image, squareSize int, origin image.Point) {
	for row := 0; row < 10; row++ {
		for col := 0; col < 10; col++ {
			clr := lightSquare
			if (row+col)%2 == 1 {
				clr = darkSquare
			}
			x := origin.X + col*squareSize
			y := origin.Y + row*squareSize
			imagedraw.Draw(dst, image.Rect(x, y, x+squareSize, y+squareSize), image.NewUniform(clr), image.Point{}, imagedraw.Src)
		}
	}
}

func drawPieces(dst imagedraw.Image, pos notation.Position, squareSize, inset int, origin image.Point) error {
	for sq := 1; sq <= 50; sq++ {
		piece := pos.PieceAt(sq)
		if piece == 'e' {
			continue
		}
		pieceImg, err := renderPieceImage(piece, squareSize-inset*2)
		if err != nil {
			return err
		}
		rect := squareRect(sq, squareSize, origin)
		target := image.Rect(rect.Min.X+inset, rect.Min.Y+inset, rect.Max.X-inset, rect.Max.Y-inset)
		imagedraw.Draw(dst, target, pieceImg, image.Point{}, imagedraw.Over)
	}
	return nil
}

func drawSquareOverlay(img *image.RGBA, sq, squareSize int, origin image.Point, clr color.Color) {
	if sq < 1 || sq > 50 {
		return
	}
	rect := squareRect(sq, squareSize, origin)
	imagedraw.Draw(img, rect, image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func drawNumbers(img *image.RGBA, squareSize int, origin image.Point) {
	drawer := &font.Drawer{
		Dst:  img,
		Face: basicfont.Face7x13,
		Src:  image.NewUniform(numberColor),
	}
	for sq := 1; sq <= 50; sq++ {
		rect := squareRect(sq, squareSize, origin)
		drawer.Dot = fixed.P(rect.Min.X+3, rect.Min.Y+12)
		drawer.DrawString(strconv.Itoa(sq))
	}
}
