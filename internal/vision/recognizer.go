// Package vision turns board screenshots into FEN records through a hosted
// vision model. Recognition failures are explicit; a position is never
// guessed.
package vision

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/guiude/chess-analyzer/internal/analysis"
	"github.com/guiude/chess-analyzer/internal/obslog"
)

var (
	ErrRecognitionFailed = errors.New("could not recognize position")
	ErrNotConfigured     = errors.New("image recognition requires an OpenAI API key")
)

const cannotRecognize = "CANNOT_RECOGNIZE"

const recognizePrompt = `Analyze this chess board image and provide the FEN notation for the position shown.

Please respond with ONLY the complete FEN string with all fields:
<piece_placement> <active_color> <castling> <en_passant> <halfmove> <fullmove>

Example: rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1

If you cannot recognize the position, respond with "` + cannotRecognize + `".`

// VisionCompleter is the model call this package needs.
type VisionCompleter interface {
	CompleteVision(ctx context.Context, prompt, imageBase64 string) (string, error)
}

type Recognizer struct {
	vision VisionCompleter
}

func NewRecognizer(vision VisionCompleter) *Recognizer {
	return &Recognizer{vision: vision}
}

// RecognizeBase64 asks the model for the position on a base64-encoded board
// image. The returned FEN has passed structural validation.
func (r *Recognizer) RecognizeBase64(ctx context.Context, imageBase64 string) (string, error) {
	if r == nil || r.vision == nil {
		return "", ErrNotConfigured
	}
	result, err := r.vision.CompleteVision(ctx, recognizePrompt, imageBase64)
	if err != nil {
		obslog.L().Warn("vision recognition call failed", zap.Error(err))
		return "", ErrRecognitionFailed
	}
	result = strings.TrimSpace(result)
	if strings.Contains(result, cannotRecognize) {
		return "", ErrRecognitionFailed
	}
	fen := ExtractFEN(result)
	if fen == "" {
		return "", ErrRecognitionFailed
	}
	return fen, nil
}

const rankExpr = `[rnbqkpRNBQKP1-8]+`

var (
	placementExpr = rankExpr + strings.Repeat(`/`+rankExpr, 7)

	fenLinePattern  = regexp.MustCompile(`(?i)FEN:\s*(.+)`)
	fullFENPattern  = regexp.MustCompile(placementExpr + `\s+[wb]\s+[KQkq-]+\s+(?:[a-h][36]|-)\s+\d+\s+\d+`)
	placementOnly   = regexp.MustCompile(placementExpr)
	trailingProse   = regexp.MustCompile(`[.!?].*$`)
	castlingPattern = regexp.MustCompile(`^[KQkq-]+$`)
	epPattern       = regexp.MustCompile(`^(?:[a-h][36]|-)$`)
	digitsPattern   = regexp.MustCompile(`^\d+$`)
)

// ExtractFEN pulls a valid FEN out of free-form model output: a "FEN:"
// labeled line first, then a full 6-field match anywhere, then a bare piece
// placement padded with default fields. Empty string means nothing usable.
func ExtractFEN(response string) string {
	if m := fenLinePattern.FindStringSubmatch(response); m != nil {
		if fen := CleanFEN(m[1]); validFEN(fen) {
			return fen
		}
	}
	if m := fullFENPattern.FindString(response); m != "" {
		if validFEN(m) {
			return m
		}
	}
	if m := placementOnly.FindString(response); m != "" {
		fen := m + " w - - 0 1"
		if validFEN(fen) {
			return fen
		}
	}
	return ""
}

// CleanFEN strips markdown and trailing prose from a FEN candidate and
// rebuilds missing fields with defaults (white to move, no castling, no en
// passant, fresh clocks).
func CleanFEN(fen string) string {
	fen = strings.TrimSpace(strings.ReplaceAll(fen, "`", ""))
	fen = strings.TrimSpace(trailingProse.ReplaceAllString(fen, ""))

	parts := strings.Fields(fen)
	if len(parts) == 0 {
		return fen
	}

	var placement string
	var rest []string
	for _, part := range parts {
		if placement == "" && strings.Contains(part, "/") {
			placement = part
		} else if placement != "" {
			rest = append(rest, part)
		}
	}
	if placement == "" {
		return fen
	}

	result := []string{placement}
	take := func(match func(string) bool, def string) {
		if len(rest) > 0 && match(rest[0]) {
			result = append(result, rest[0])
			rest = rest[1:]
		} else {
			result = append(result, def)
		}
	}
	take(func(s string) bool { return s == "w" || s == "b" }, "w")
	take(castlingPattern.MatchString, "-")
	take(epPattern.MatchString, "-")
	take(digitsPattern.MatchString, "0")
	take(digitsPattern.MatchString, "1")
	return strings.Join(result, " ")
}

func validFEN(fen string) bool {
	_, err := analysis.ValidateFEN(fen)
	return err == nil
}
