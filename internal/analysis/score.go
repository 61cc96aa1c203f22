package analysis

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	mateScoreValue = 10000
	scoreNA        = "N/A"
)

// Score is an engine evaluation, always White-relative at the source.
// Exactly one of Centipawns or Mate is meaningful, selected by Kind.
type ScoreKind int

const (
	ScoreNone ScoreKind = iota
	ScoreCentipawns
	ScoreMate
)

type Score struct {
	Kind       ScoreKind
	Centipawns int
	Mate       int
}

func CentipawnScore(cp int) Score { return Score{Kind: ScoreCentipawns, Centipawns: cp} }
func MateScore(n int) Score       { return Score{Kind: ScoreMate, Mate: n} }

// FormatScore renders a White-relative Score as a display string plus a
// comparable integer. Mate scores collapse to +-10000 sentinels so they
// always outrank centipawn swings.
func FormatScore(s Score) (string, int) {
	switch s.Kind {
	case ScoreMate:
		if s.Mate > 0 {
			return fmt.Sprintf("Mate in %d", s.Mate), mateScoreValue
		}
		// Engines report "mate 0" for a position where the mover is already
		// checkmated; zero groups with the losing side.
		return fmt.Sprintf("Mated in %d", -s.Mate), -mateScoreValue
	case ScoreCentipawns:
		return formatPawns(s.Centipawns), s.Centipawns
	default:
		return scoreNA, 0
	}
}

func formatPawns(cp int) string {
	return fmt.Sprintf("%+.2f", float64(cp)/100)
}

// NormalizeForSideToMove re-expresses a White-relative display/value pair so
// that positive always means "good for the side to move". With White to move
// nothing changes. With Black to move the comparable value is negated and the
// display is rewritten: mate labels swap sense, decimals are re-rendered with
// the flipped sign, "N/A" passes through untouched.
func NormalizeForSideToMove(display string, value int, whiteToMove bool) (string, int) {
	if whiteToMove || display == scoreNA {
		return display, value
	}
	value = -value
	switch {
	case strings.HasPrefix(display, "Mate in "):
		return "Mated in " + strings.TrimPrefix(display, "Mate in "), value
	case strings.HasPrefix(display, "Mated in "):
		return "Mate in " + strings.TrimPrefix(display, "Mated in "), value
	}
	if f, err := strconv.ParseFloat(display, 64); err == nil {
		return fmt.Sprintf("%+.2f", -f), value
	}
	return display, value
}
