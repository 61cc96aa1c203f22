package explain

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/guiude/chess-analyzer/internal/locale"
	"github.com/guiude/chess-analyzer/internal/obslog"
)

// ChatCompleter is the narrow slice of a chat-model client this renderer
// needs. A nil completer means the LLM path is disabled.
type ChatCompleter interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

const (
	systemMessageEN = "You are an expert chess coach providing position analysis. Be concise but thorough. Focus on explaining the key ideas behind the moves rather than just listing variations."
	systemMessagePT = "Você é um treinador de xadrez experiente fornecendo análise de posições. Seja conciso mas completo. Foque em explicar as ideias principais por trás dos lances, não apenas listar variantes. IMPORTANTE: Responda SEMPRE em Português do Brasil."
)

// LLMRenderer asks a hosted model for a richer report and falls back to the
// template renderer on any failure, appending an unavailability note so the
// degradation is visible.
type LLMRenderer struct {
	chat     ChatCompleter
	fallback *TemplateRenderer
}

func NewLLMRenderer(chat ChatCompleter, fallback *TemplateRenderer) *LLMRenderer {
	return &LLMRenderer{chat: chat, fallback: fallback}
}

func (r *LLMRenderer) Render(ctx context.Context, in Input) string {
	if r.chat == nil || len(in.Moves) == 0 {
		return r.fallback.Render(in)
	}

	loc := locale.Normalize(in.Locale)
	system := systemMessageEN
	if loc == "pt" {
		system = systemMessagePT
	}

	out, err := r.chat.Complete(ctx, system, buildPrompt(in, loc))
	if err != nil || strings.TrimSpace(out) == "" {
		if err == nil {
			err = fmt.Errorf("empty completion")
		}
		obslog.L().Warn("llm explanation failed, using template", zap.Error(err))
		note := r.fallback.catalog.MustRender(loc, "explain.llm_unavailable", nil)
		return r.fallback.Render(in) + fmt.Sprintf("\n\n%s: %v", note, err)
	}
	return out
}

func buildPrompt(in Input, loc string) string {
	ctx := in.Context
	turn := "White"
	if ctx.Turn == "black" {
		turn = "Black"
	}
	if loc == "pt" {
		if ctx.Turn == "black" {
			turn = "Pretas"
		} else {
			turn = "Brancas"
		}
	}

	var moves strings.Builder
	for _, mv := range in.Moves {
		if mv.Rank > 3 {
			break
		}
		fmt.Fprintf(&moves, "\n- %s (eval: %s): %s", mv.MoveSAN, mv.Score, strings.Join(mv.Line, " "))
	}

	material := "Material is equal"
	if ctx.MaterialBalance > 0 {
		material = fmt.Sprintf("White is up by %d pawns worth of material", ctx.MaterialBalance)
	} else if ctx.MaterialBalance < 0 {
		material = fmt.Sprintf("Black is up by %d pawns worth of material", -ctx.MaterialBalance)
	}

	check := ""
	if ctx.IsCheck {
		if ctx.Turn == "white" {
			check = "White is in check!"
		} else {
			check = "Black is in check!"
		}
	}

	return fmt.Sprintf(`Analyze this chess position and explain the best moves in a clear, instructive way.

Position (FEN): %s
Turn: %s to move
Game phase: %s
Material: %s
%s

Top engine moves:%s

Please provide:
1. A brief assessment of the position (who stands better and why)
2. An explanation of why the top move is best
3. What the main strategic or tactical ideas are
4. What to avoid and why

Keep the explanation clear and accessible, suitable for intermediate players. Use chess notation where helpful.`,
		in.FEN, turn, ctx.Phase, material, check, moves.String())
}
