// Package fencorrect applies natural-language corrections to a FEN position
// ("the king is on h8 not g8"). A hosted model does the heavy lifting when
// configured; a regex heuristic handles simple phrasings without it.
package fencorrect

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/guiude/chess-analyzer/internal/analysis"
	"github.com/guiude/chess-analyzer/internal/obslog"
)

var ErrNotApplied = errors.New("could not apply the correction")

type ChatCompleter interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type Corrector struct {
	chat ChatCompleter
}

// New builds a corrector; a nil chat client limits it to the heuristic path.
func New(chat ChatCompleter) *Corrector {
	return &Corrector{chat: chat}
}

const correctionSystem = "You correct FEN chess positions based on user instructions. Return only the corrected FEN string."

const correctionPromptFmt = `You are a chess FEN correction assistant.

Given this FEN position:
%s

The user says this correction is needed:
"%s"

Apply the correction to the FEN and return ONLY the corrected FEN string.

Rules:
- Only change what the user specified
- Keep all other pieces in their original positions
- Maintain valid FEN format
- The FEN has 6 fields separated by spaces: position, turn, castling, en-passant, halfmove, fullmove

Square notation reminder:
- Files: a=1st column (left), h=8th column (right)
- Ranks: 1=bottom (white's back rank), 8=top (black's back rank)
- So h8 is top-right corner, a1 is bottom-left corner

Return ONLY the corrected FEN string, nothing else.`

// Correct returns the corrected FEN or ErrNotApplied. The model's answer is
// structurally validated before being trusted; on any model failure the
// heuristic gets a try.
func (c *Corrector) Correct(ctx context.Context, fen, instruction string) (string, error) {
	if c.chat != nil {
		out, err := c.chat.Complete(ctx, correctionSystem, fmt.Sprintf(correctionPromptFmt, fen, instruction))
		if err == nil {
			candidate := strings.TrimSpace(strings.ReplaceAll(out, "`", ""))
			if _, verr := analysis.ValidateFEN(candidate); verr == nil {
				return candidate, nil
			}
		} else {
			obslog.L().Warn("llm correction failed, trying heuristic", zap.Error(err))
		}
	}
	return heuristicCorrection(fen, instruction)
}

var pieceNames = map[string]byte{
	"king": 'k', "queen": 'q', "rook": 'r', "bishop": 'b', "knight": 'n', "pawn": 'p',
	"rei": 'k', "dama": 'q', "rainha": 'q', "torre": 'r', "bispo": 'b', "cavalo": 'n', "peao": 'p',
}

var squarePattern = regexp.MustCompile(`\b([a-h][1-8])\b`)

// heuristicCorrection handles phrasings like "white king is on h8 not g8" or
// "move the rook to d1". Color inference without an explicit color word is
// best effort: the first matching piece found is the one moved.
func heuristicCorrection(fen, instruction string) (string, error) {
	fields, err := analysis.ValidateFEN(fen)
	if err != nil {
		return "", err
	}
	grid, err := parsePlacement(fields.Placement)
	if err != nil {
		return "", err
	}

	lower := strings.ToLower(instruction)
	lower = strings.ReplaceAll(lower, "peão", "peao")

	var pieceType byte
	for name, letter := range pieceNames {
		if strings.Contains(lower, name) {
			pieceType = letter
			break
		}
	}
	if pieceType == 0 {
		return "", ErrNotApplied
	}

	squares := squarePattern.FindAllString(lower, -1)
	if len(squares) == 0 {
		return "", ErrNotApplied
	}
	negated := strings.Contains(lower, "not") || strings.Contains(lower, "nao") || strings.Contains(lower, "não")

	white, colorKnown := false, false
	switch {
	case strings.Contains(lower, "white") || strings.Contains(lower, "branc"):
		white, colorKnown = true, true
	case strings.Contains(lower, "black") || strings.Contains(lower, "pret"):
		white, colorKnown = false, true
	}
	if !colorKnown && len(squares) >= 2 {
		probe := squares[0]
		if negated {
			probe = squares[1]
		}
		if p := grid.at(probe); p != 0 && lowerByte(p) == pieceType {
			white, colorKnown = p >= 'A' && p <= 'Z', true
		}
	}
	if !colorKnown {
		return "", ErrNotApplied
	}

	target := pieceType
	if white {
		target = upperByte(pieceType)
	}

	wrongSquare := ""
	if len(squares) >= 2 && negated {
		wrongSquare = squares[1]
	} else {
		wrongSquare = grid.find(target)
	}
	if wrongSquare == "" {
		return "", ErrNotApplied
	}

	grid.set(wrongSquare, 0)
	grid.set(squares[0], target)

	fen = strings.Join([]string{
		grid.placement(), fenField(fields.WhiteToMove), castlingField(fields.Castling),
		fields.EnPassant, fmt.Sprintf("%d", fields.HalfmoveClk), fmt.Sprintf("%d", fields.FullmoveNum),
	}, " ")
	if _, err := analysis.ValidateFEN(fen); err != nil {
		return "", ErrNotApplied
	}
	return fen, nil
}

// boardGrid indexes [rank][file] with rank 0 = rank 8, zero byte = empty.
type boardGrid [8][8]byte

func parsePlacement(placement string) (*boardGrid, error) {
	var g boardGrid
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return nil, analysis.ErrInvalidPosition
	}
	for r, rank := range ranks {
		f := 0
		for i := 0; i < len(rank); i++ {
			ch := rank[i]
			if ch >= '1' && ch <= '8' {
				f += int(ch - '0')
				continue
			}
			if f > 7 {
				return nil, analysis.ErrInvalidPosition
			}
			g[r][f] = ch
			f++
		}
	}
	return &g, nil
}

func squareIndex(sq string) (int, int) {
	file := int(sq[0] - 'a')
	rank := 7 - int(sq[1]-'1')
	return rank, file
}

func (g *boardGrid) at(sq string) byte {
	r, f := squareIndex(sq)
	return g[r][f]
}

func (g *boardGrid) set(sq string, piece byte) {
	r, f := squareIndex(sq)
	g[r][f] = piece
}

func (g *boardGrid) find(piece byte) string {
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			if g[r][f] == piece {
				return fmt.Sprintf("%c%c", 'a'+f, '1'+(7-r))
			}
		}
	}
	return ""
}

func (g *boardGrid) placement() string {
	var sb strings.Builder
	for r := 0; r < 8; r++ {
		if r > 0 {
			sb.WriteByte('/')
		}
		empty := 0
		for f := 0; f < 8; f++ {
			if g[r][f] == 0 {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteByte(g[r][f])
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
	}
	return sb.String()
}

func lowerByte(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + 'a' - 'A'
	}
	return b
}

func upperByte(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}

func fenField(whiteToMove bool) string {
	if whiteToMove {
		return "w"
	}
	return "b"
}

func castlingField(c analysis.CastlingRights) string {
	var sb strings.Builder
	if c.WhiteKingside {
		sb.WriteByte('K')
	}
	if c.WhiteQueenside {
		sb.WriteByte('Q')
	}
	if c.BlackKingside {
		sb.WriteByte('k')
	}
	if c.BlackQueenside {
		sb.WriteByte('q')
	}
	if sb.Len() == 0 {
		return "-"
	}
	return sb.String()
}
