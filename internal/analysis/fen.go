package analysis

import (
	"fmt"
	"strconv"
	"strings"
)

// StartingFEN is the standard initial position.
const StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// CastlingRights holds the four independent availability flags from the
// third FEN field.
type CastlingRights struct {
	WhiteKingside  bool `json:"white_kingside"`
	WhiteQueenside bool `json:"white_queenside"`
	BlackKingside  bool `json:"black_kingside"`
	BlackQueenside bool `json:"black_queenside"`
}

// FENFields is the structural decomposition of a validated FEN record.
type FENFields struct {
	Placement   string
	WhiteToMove bool
	Castling    CastlingRights
	EnPassant   string
	HalfmoveClk int
	FullmoveNum int
}

func splitFENFields(fen string) ([]string, error) {
	fields := strings.Fields(strings.TrimSpace(fen))
	if len(fields) != 6 {
		return nil, fmt.Errorf("expected 6 fields, got %d: %w", len(fields), ErrInvalidPosition)
	}
	return fields, nil
}

// ValidateFEN checks the textual shape of a FEN record without consulting a
// chess library: 6 fields, 8 ranks each covering exactly 8 squares, a valid
// active color, a KQkq-subset castling field, an en-passant square or "-",
// and numeric clocks. It returns the parsed fields on success.
func ValidateFEN(fen string) (*FENFields, error) {
	fields, err := splitFENFields(fen)
	if err != nil {
		return nil, err
	}
	placement := fields[0]
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return nil, fmt.Errorf("expected 8 ranks, got %d: %w", len(ranks), ErrInvalidPosition)
	}
	for i, rank := range ranks {
		squares := 0
		run := 0
		for _, r := range rank {
			switch {
			case r >= '1' && r <= '9':
				run = run*10 + int(r-'0')
			case strings.ContainsRune("pnbrqkPNBRQK", r):
				squares += run + 1
				run = 0
			default:
				return nil, fmt.Errorf("rank %d: bad symbol %q: %w", 8-i, r, ErrInvalidPosition)
			}
		}
		squares += run
		if squares != 8 {
			return nil, fmt.Errorf("rank %d covers %d squares: %w", 8-i, squares, ErrInvalidPosition)
		}
	}

	whiteToMove := false
	switch fields[1] {
	case "w":
		whiteToMove = true
	case "b":
	default:
		return nil, fmt.Errorf("active color %q: %w", fields[1], ErrInvalidPosition)
	}

	castling, err := parseCastling(fields[2])
	if err != nil {
		return nil, err
	}

	if ep := fields[3]; ep != "-" {
		if len(ep) != 2 || ep[0] < 'a' || ep[0] > 'h' || (ep[1] != '3' && ep[1] != '6') {
			return nil, fmt.Errorf("en passant target %q: %w", ep, ErrInvalidPosition)
		}
	}

	halfmove, err := strconv.Atoi(fields[4])
	if err != nil || halfmove < 0 {
		return nil, fmt.Errorf("halfmove clock %q: %w", fields[4], ErrInvalidPosition)
	}
	fullmove, err := strconv.Atoi(fields[5])
	if err != nil || fullmove < 1 {
		return nil, fmt.Errorf("fullmove number %q: %w", fields[5], ErrInvalidPosition)
	}

	return &FENFields{
		Placement:   placement,
		WhiteToMove: whiteToMove,
		Castling:    castling,
		EnPassant:   fields[3],
		HalfmoveClk: halfmove,
		FullmoveNum: fullmove,
	}, nil
}

func parseCastling(field string) (CastlingRights, error) {
	var rights CastlingRights
	if field == "-" {
		return rights, nil
	}
	if field == "" || len(field) > 4 {
		return rights, fmt.Errorf("castling field %q: %w", field, ErrInvalidPosition)
	}
	for _, r := range field {
		switch r {
		case 'K':
			rights.WhiteKingside = true
		case 'Q':
			rights.WhiteQueenside = true
		case 'k':
			rights.BlackKingside = true
		case 'q':
			rights.BlackQueenside = true
		default:
			return rights, fmt.Errorf("castling field %q: %w", field, ErrInvalidPosition)
		}
	}
	return rights, nil
}
