package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/guiude/chess-analyzer/internal/analysis"
	"github.com/guiude/chess-analyzer/internal/cache"
	"github.com/guiude/chess-analyzer/internal/locale"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func newDegradedService(t *testing.T, c *cache.Cache) *Service {
	t.Helper()
	catalog, err := locale.New()
	if err != nil {
		t.Fatalf("locale catalog: %v", err)
	}
	svc, err := New(Config{Catalog: catalog, Cache: c, DefaultLines: 3, MaxLines: 5})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc
}

func TestAnalyzeRejectsInvalidFEN(t *testing.T) {
	svc := newDegradedService(t, nil)
	_, err := svc.Analyze(context.Background(), Params{FEN: "not a position"})
	if !errors.Is(err, analysis.ErrInvalidPosition) {
		t.Fatalf("expected ErrInvalidPosition, got %v", err)
	}
}

// Structurally well-formed FENs that break the rules of chess must be turned
// away before the engine gate; the degraded service would otherwise answer
// ErrEngineUnavailable instead.
func TestAnalyzeRejectsRulesIllegalFEN(t *testing.T) {
	svc := newDegradedService(t, nil)
	for _, fen := range []string{
		"8/8/8/8/8/8/8/8 w - - 0 1",
		"8/8/8/8/8/8/8/4K3 w - - 0 1",
		"p3k3/8/8/8/8/8/8/4K3 w - - 0 1",
	} {
		_, err := svc.Analyze(context.Background(), Params{FEN: fen})
		if !errors.Is(err, analysis.ErrInvalidPosition) {
			t.Fatalf("%s: expected ErrInvalidPosition, got %v", fen, err)
		}
	}
}

func TestAnalyzeWithoutEngine(t *testing.T) {
	svc := newDegradedService(t, nil)
	_, err := svc.Analyze(context.Background(), Params{FEN: startFEN})
	if !errors.Is(err, analysis.ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
}

func TestAnalyzeServesCacheHitWithoutEngine(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	c, err := cache.New("redis://"+mr.Addr()+"/0", time.Minute)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	defer c.Close()

	svc := newDegradedService(t, c)
	ctx := context.Background()

	stored := &Result{
		ID:          "cached-id",
		FEN:         startFEN,
		Turn:        "white",
		Depth:       20,
		Explanation: "precomputed",
	}
	payload, err := json.Marshal(stored)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	key := cache.Key(startFEN, 0, 3, "en", "template") + "|board"
	c.Set(ctx, key, payload)

	res, err := svc.Analyze(ctx, Params{FEN: startFEN})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !res.Cached || res.ID != "cached-id" || res.Explanation != "precomputed" {
		t.Fatalf("unexpected cached result: %+v", res)
	}
}

func TestEffectiveDepthTakesDeepestLine(t *testing.T) {
	moves := []analysis.RankedMove{{Depth: 18}, {Depth: 22}, {Depth: 20}}
	if got := effectiveDepth(moves, 15); got != 22 {
		t.Fatalf("effectiveDepth = %d", got)
	}
	if got := effectiveDepth(nil, 15); got != 15 {
		t.Fatalf("effectiveDepth empty = %d", got)
	}
}

func TestNoUsableLines(t *testing.T) {
	live := &analysis.PositionContext{}
	if !noUsableLines(nil, live) {
		t.Fatal("empty finalization of a live position must be flagged")
	}
	if noUsableLines([]analysis.RankedMove{{Rank: 1, MoveUCI: "e2e4"}}, live) {
		t.Fatal("a ranked move means lines are usable")
	}
	if noUsableLines(nil, &analysis.PositionContext{IsCheckmate: true}) {
		t.Fatal("checkmate has no lines by definition")
	}
	if noUsableLines(nil, &analysis.PositionContext{IsStalemate: true}) {
		t.Fatal("stalemate has no lines by definition")
	}
}

func TestTurnName(t *testing.T) {
	if turnName(true) != "white" || turnName(false) != "black" {
		t.Fatalf("turn naming broken")
	}
}
