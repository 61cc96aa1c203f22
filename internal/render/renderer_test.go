package render

import (
	"bytes"
	"context"
	"image/png"
	"testing"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func TestRenderPNGStartingPosition(t *testing.T) {
	r := NewBoardRenderer()
	data, err := r.RenderPNG(context.Background(), startFEN, Options{
		Header:   "Position Analysis",
		EvalText: "+0.25",
		TurnText: "White to move",
	})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if img.Bounds().Dx() < 8*72 {
		t.Fatalf("image too narrow: %v", img.Bounds())
	}
}

func TestRenderPNGHighlightChangesOutput(t *testing.T) {
	r := NewBoardRenderer()
	ctx := context.Background()
	plain, err := r.RenderPNG(ctx, startFEN, Options{})
	if err != nil {
		t.Fatalf("plain render: %v", err)
	}
	marked, err := r.RenderPNG(ctx, startFEN, Options{Highlight: ParseUCIHighlight("e2e4")})
	if err != nil {
		t.Fatalf("highlighted render: %v", err)
	}
	if bytes.Equal(plain, marked) {
		t.Fatalf("highlight should alter the image")
	}
}

func TestRenderPNGRejectsBadFEN(t *testing.T) {
	r := NewBoardRenderer()
	if _, err := r.RenderPNG(context.Background(), "not a fen", Options{}); err == nil {
		t.Fatalf("expected error for invalid fen")
	}
}

func TestParseUCIHighlight(t *testing.T) {
	if h := ParseUCIHighlight("e2e4"); h == nil {
		t.Fatalf("expected highlight for e2e4")
	}
	if h := ParseUCIHighlight("zz"); h != nil {
		t.Fatalf("expected nil for malformed move")
	}
	if h := ParseUCIHighlight("e7e8q"); h == nil {
		t.Fatalf("promotion move should still parse")
	}
}
