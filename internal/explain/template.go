// Package explain turns ranked moves and position context into a
// natural-language report. The template renderer is deterministic and always
// available; the LLM renderer layers on top of it with the template output as
// its fallback.
package explain

import (
	"fmt"
	"strings"

	"github.com/guiude/chess-analyzer/internal/analysis"
	"github.com/guiude/chess-analyzer/internal/locale"
)

// Evaluation bands over the side-to-move-relative comparable value.
const (
	decisiveThreshold = 300
	clearThreshold    = 100
	edgeThreshold     = 30
)

// Input is everything a renderer consumes. Moves are already ordered by rank
// and score displays are side-to-move relative.
type Input struct {
	FEN     string
	Locale  string
	Moves   []analysis.RankedMove
	Context *analysis.PositionContext
}

type TemplateRenderer struct {
	catalog *locale.Catalog
}

func NewTemplateRenderer(catalog *locale.Catalog) *TemplateRenderer {
	return &TemplateRenderer{catalog: catalog}
}

// Render assembles the fixed-order report: assessment, terminal
// short-circuit, per-move banding, continuation walkthrough, strategic
// advice. Terminal positions return right after their own line.
func (r *TemplateRenderer) Render(in Input) string {
	loc := locale.Normalize(in.Locale)
	ctx := in.Context
	cat := r.catalog

	whiteToMove := ctx.Turn == "white"
	turn := r.sideName(loc, whiteToMove)
	opponent := r.sideName(loc, !whiteToMove)

	var lines []string
	add := func(s string) { lines = append(lines, s) }

	add(cat.MustRender(loc, "explain.assessment_title", nil))
	add(cat.MustRender(loc, "explain.turn_to_move", map[string]any{
		"Turn":  turn,
		"Phase": cat.MustRender(loc, "phase."+ctx.Phase, nil),
	}))

	switch {
	case ctx.MaterialBalance > 0:
		add(cat.MustRender(loc, "explain.material_advantage", map[string]any{
			"Side":  r.sideName(loc, true),
			"Count": ctx.MaterialBalance,
		}))
	case ctx.MaterialBalance < 0:
		add(cat.MustRender(loc, "explain.material_advantage", map[string]any{
			"Side":  r.sideName(loc, false),
			"Count": -ctx.MaterialBalance,
		}))
	default:
		add(cat.MustRender(loc, "explain.material_equal", nil))
	}

	if ctx.IsCheck {
		add(cat.MustRender(loc, "explain.in_check", map[string]any{"Turn": turn}))
	}
	if ctx.IsCheckmate {
		add(cat.MustRender(loc, "explain.checkmate", map[string]any{"Winner": opponent}))
		return strings.Join(lines, "\n")
	}
	if ctx.IsStalemate {
		add(cat.MustRender(loc, "explain.stalemate", nil))
		return strings.Join(lines, "\n")
	}

	add("")

	if len(in.Moves) > 0 {
		add(cat.MustRender(loc, "explain.analysis_title", nil))
		for _, mv := range in.Moves {
			if mv.Rank > 3 {
				break
			}
			add(fmt.Sprintf("\n**%s: `%s`** (%s: %s)",
				r.rankLabel(loc, mv.Rank), mv.MoveSAN,
				cat.MustRender(loc, "misc.eval_label", nil), mv.Score))
			add(r.bandLine(loc, mv, turn, opponent))
			lines = append(lines, r.sequenceLines(loc, mv)...)
		}
	}

	add("")
	add(cat.MustRender(loc, "explain.strategic_title", nil))
	add(cat.MustRender(loc, "explain.advice_"+ctx.Phase, nil))
	lines = append(lines, r.castlingNotes(loc, ctx)...)

	add("")
	add(cat.MustRender(loc, "explain.api_tip", nil))
	return strings.Join(lines, "\n")
}

func (r *TemplateRenderer) sideName(loc string, white bool) string {
	if white {
		return r.catalog.MustRender(loc, "side.white", nil)
	}
	return r.catalog.MustRender(loc, "side.black", nil)
}

func (r *TemplateRenderer) rankLabel(loc string, rank int) string {
	switch rank {
	case 1:
		return r.catalog.MustRender(loc, "explain.rank_best", nil)
	case 2:
		return r.catalog.MustRender(loc, "explain.rank_second", nil)
	case 3:
		return r.catalog.MustRender(loc, "explain.rank_third", nil)
	default:
		return fmt.Sprintf("#%d", rank)
	}
}

// bandLine classifies one move by its side-to-move-relative value. Mate
// displays bypass the numeric bands entirely.
func (r *TemplateRenderer) bandLine(loc string, mv analysis.RankedMove, turn, opponent string) string {
	cat := r.catalog
	turnData := map[string]any{"Turn": turn}
	switch {
	case strings.HasPrefix(mv.Score, "Mate in"):
		return cat.MustRender(loc, "explain.forced_mate", nil)
	case strings.HasPrefix(mv.Score, "Mated in"):
		return cat.MustRender(loc, "explain.getting_mated", turnData)
	case mv.ScoreValue > decisiveThreshold:
		return cat.MustRender(loc, "explain.decisive_advantage", turnData)
	case mv.ScoreValue > clearThreshold:
		return cat.MustRender(loc, "explain.clear_advantage", turnData)
	case mv.ScoreValue > edgeThreshold:
		return cat.MustRender(loc, "explain.slight_edge", turnData)
	case mv.ScoreValue < -decisiveThreshold:
		return cat.MustRender(loc, "explain.losing", turnData)
	case mv.ScoreValue < -clearThreshold:
		return cat.MustRender(loc, "explain.worse", turnData)
	case mv.ScoreValue < -edgeThreshold:
		return cat.MustRender(loc, "explain.opponent_edge", map[string]any{"Opponent": opponent})
	default:
		return cat.MustRender(loc, "explain.equal", nil)
	}
}

// sequenceLines narrates the expected continuation from the full line: the
// reply to the move, the follow-up pair, then up to three further plies.
func (r *TemplateRenderer) sequenceLines(loc string, mv analysis.RankedMove) []string {
	full := mv.FullLine
	if len(full) < 2 {
		return nil
	}
	cat := r.catalog
	out := []string{
		"\n" + cat.MustRender(loc, "explain.why_sequence", nil),
		cat.MustRender(loc, "explain.reply", map[string]any{"Move": full[0], "Response": full[1]}),
	}
	if len(full) >= 4 {
		out = append(out, cat.MustRender(loc, "explain.continuation", map[string]any{"Move": full[2], "Next": full[3]}))
	}
	if len(full) >= 5 {
		end := len(full)
		if end > 7 {
			end = 7
		}
		quoted := make([]string, 0, end-4)
		for _, m := range full[4:end] {
			quoted = append(quoted, "`"+m+"`")
		}
		out = append(out, cat.MustRender(loc, "explain.further_moves", map[string]any{"Moves": strings.Join(quoted, ", ")}))
	}
	return out
}

func (r *TemplateRenderer) castlingNotes(loc string, ctx *analysis.PositionContext) []string {
	if ctx.Phase != "opening" && ctx.Phase != "middlegame" {
		return nil
	}
	cat := r.catalog
	var notes []string
	if ctx.Castling.WhiteKingside || ctx.Castling.WhiteQueenside {
		notes = append(notes, cat.MustRender(loc, "explain.can_castle", map[string]any{"Side": r.sideName(loc, true)}))
	}
	if ctx.Castling.BlackKingside || ctx.Castling.BlackQueenside {
		notes = append(notes, cat.MustRender(loc, "explain.can_castle", map[string]any{"Side": r.sideName(loc, false)}))
	}
	if len(notes) == 0 {
		return nil
	}
	and := cat.MustRender(loc, "misc.and", nil)
	return []string{"• " + strings.Join(notes, and) + "."}
}
