package explain

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/guiude/chess-analyzer/internal/analysis"
	"github.com/guiude/chess-analyzer/internal/locale"
)

func newRenderer(t *testing.T) *TemplateRenderer {
	t.Helper()
	cat, err := locale.New()
	if err != nil {
		t.Fatalf("locale.New: %v", err)
	}
	return NewTemplateRenderer(cat)
}

func middlegameContext() *analysis.PositionContext {
	return &analysis.PositionContext{
		Turn:        "white",
		Phase:       "middlegame",
		TotalPieces: 20,
		Castling:    analysis.CastlingRights{WhiteKingside: true, BlackKingside: true},
	}
}

func TestRenderCheckmateShortCircuits(t *testing.T) {
	r := newRenderer(t)
	out := r.Render(Input{
		Locale: "en",
		Moves:  []analysis.RankedMove{{Rank: 1, MoveSAN: "Qh4#", Score: "+1.00", ScoreValue: 100}},
		Context: &analysis.PositionContext{
			Turn: "white", Phase: "middlegame", IsCheck: true, IsCheckmate: true,
		},
	})
	if !strings.HasSuffix(out, "Black wins!") {
		t.Fatalf("output should end at the checkmate line: %q", out)
	}
	if strings.Contains(out, "Analysis of Key Moves") {
		t.Fatalf("move analysis must not follow checkmate: %q", out)
	}
}

func TestRenderStalemateShortCircuits(t *testing.T) {
	r := newRenderer(t)
	out := r.Render(Input{
		Locale:  "en",
		Context: &analysis.PositionContext{Turn: "black", Phase: "endgame", IsStalemate: true},
	})
	if !strings.Contains(out, "Stalemate") || strings.Contains(out, "Strategic") {
		t.Fatalf("stalemate output: %q", out)
	}
}

func TestRenderBands(t *testing.T) {
	r := newRenderer(t)
	cases := []struct {
		score   string
		value   int
		snippet string
	}{
		{"Mate in 3", 10000, "forced checkmate"},
		{"Mated in 2", -10000, "getting checkmated"},
		{"+4.20", 420, "decisive advantage"},
		{"+1.50", 150, "clear advantage"},
		{"+0.50", 50, "slight edge"},
		{"-4.00", -400, "losing position"},
		{"-1.50", -150, "limits the damage"},
		{"-0.50", -50, "slight edge, but the position remains playable"},
		{"+0.10", 10, "roughly equal"},
	}
	for _, c := range cases {
		out := r.Render(Input{
			Locale:  "en",
			Moves:   []analysis.RankedMove{{Rank: 1, MoveSAN: "e4", Score: c.score, ScoreValue: c.value, FullLine: []string{"e4"}}},
			Context: middlegameContext(),
		})
		if !strings.Contains(out, c.snippet) {
			t.Fatalf("score %s: missing %q in %q", c.score, c.snippet, out)
		}
	}
}

func TestRenderSequenceNarration(t *testing.T) {
	r := newRenderer(t)
	out := r.Render(Input{
		Locale: "en",
		Moves: []analysis.RankedMove{{
			Rank: 1, MoveSAN: "e4", Score: "+0.30", ScoreValue: 30,
			FullLine: []string{"e4", "e5", "Nf3", "Nc6", "Bb5", "a6", "Ba4", "Nf6"},
		}},
		Context: middlegameContext(),
	})
	if !strings.Contains(out, "After `e4`, the expected response is `e5`.") {
		t.Fatalf("reply line missing: %q", out)
	}
	if !strings.Contains(out, "`Nf3` followed by `Nc6`") {
		t.Fatalf("continuation line missing: %q", out)
	}
	if !strings.Contains(out, "`Bb5`, `a6`, `Ba4`") || strings.Contains(out, "`Nf6`") {
		t.Fatalf("further moves should cover plies five to seven only: %q", out)
	}
}

func TestRenderCastlingNotes(t *testing.T) {
	r := newRenderer(t)
	out := r.Render(Input{Locale: "en", Context: middlegameContext()})
	if !strings.Contains(out, "White can still castle and Black can still castle.") {
		t.Fatalf("castling note missing: %q", out)
	}

	endgame := &analysis.PositionContext{Turn: "white", Phase: "endgame",
		Castling: analysis.CastlingRights{WhiteKingside: true}}
	out = r.Render(Input{Locale: "en", Context: endgame})
	if strings.Contains(out, "can still castle") {
		t.Fatalf("no castling notes in the endgame: %q", out)
	}
}

func TestRenderPortuguese(t *testing.T) {
	r := newRenderer(t)
	out := r.Render(Input{
		Locale:  "pt",
		Moves:   []analysis.RankedMove{{Rank: 1, MoveSAN: "e4", Score: "+0.10", ScoreValue: 10, FullLine: []string{"e4"}}},
		Context: middlegameContext(),
	})
	if !strings.Contains(out, "Avaliação da Posição") || !strings.Contains(out, "Melhor lance") {
		t.Fatalf("pt catalog not used: %q", out)
	}
}

type failingChat struct{}

func (failingChat) Complete(context.Context, string, string) (string, error) {
	return "", errors.New("upstream busy")
}

type cannedChat struct{ text string }

func (c cannedChat) Complete(context.Context, string, string) (string, error) {
	return c.text, nil
}

func TestLLMRendererFallsBack(t *testing.T) {
	tmpl := newRenderer(t)
	r := NewLLMRenderer(failingChat{}, tmpl)
	out := r.Render(context.Background(), Input{
		Locale:  "en",
		Moves:   []analysis.RankedMove{{Rank: 1, MoveSAN: "e4", Score: "+0.10", ScoreValue: 10, FullLine: []string{"e4"}}},
		Context: middlegameContext(),
	})
	if !strings.Contains(out, "Position Assessment") {
		t.Fatalf("template fallback missing: %q", out)
	}
	if !strings.Contains(out, "(Note: AI explanation unavailable)") {
		t.Fatalf("unavailability note missing: %q", out)
	}
}

func TestLLMRendererUsesModelOutput(t *testing.T) {
	tmpl := newRenderer(t)
	r := NewLLMRenderer(cannedChat{text: "White stands better."}, tmpl)
	out := r.Render(context.Background(), Input{
		Locale:  "en",
		Moves:   []analysis.RankedMove{{Rank: 1, MoveSAN: "e4", Score: "+0.10", ScoreValue: 10}},
		Context: middlegameContext(),
	})
	if out != "White stands better." {
		t.Fatalf("model output not used: %q", out)
	}
}
