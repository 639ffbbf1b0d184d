package board

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/dawikk/hubbridge/internal/notation"
)

func TestSquareRectGeometry(t *testing.T) {
	origin := image.Point{}
	cases := []struct {
		sq       int
		col, row int
	}{
		{1, 1, 0},
		{5, 9, 0},
		{6, 0, 1},
		{10, 8, 1},
		{26, 0, 5},
		{46, 0, 9},
		{50, 8, 9},
	}
	for _, c := range cases {
		rect := squareRect(c.sq, 10, origin)
		if rect.Min.X != c.col*10 || rect.Min.Y != c.row*10 {
			t.Errorf("square %d: got origin (%d,%d), want (%d,%d)",
				c.sq, rect.Min.X, rect.Min.Y, c.col*10, c.row*10)
		}
	}
}

func TestRenderPNGStartPosition(t *testing.T) {
	r := NewSVGBoardRenderer()
	data, err := r.RenderPNG(context.Background(), notation.StartPosition(), RenderOptions{ShowNumbers: true})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 672 || b.Dy() != 672 {
		t.Fatalf("unexpected canvas size %dx%d", b.Dx(), b.Dy())
	}
}

func TestRenderPNGCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewSVGBoardRenderer()
	if _, err := r.RenderPNG(ctx, notation.StartPosition(), RenderOptions{}); err == nil {
		t.Fatal("expected context error")
	}
}

func TestPieceAssetNames(t *testing.T) {
	for _, piece := range []byte{'w', 'b', 'W', 'B'} {
		if _, err := pieceAssetName(piece); err != nil {
			t.Errorf("piece %q: %v", piece, err)
		}
	}
	if _, err := pieceAssetName('x'); err == nil {
		t.Error("expected error for unknown piece")
	}
}
