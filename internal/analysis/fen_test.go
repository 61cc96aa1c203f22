package analysis

import (
	"errors"
	"testing"
)

func TestValidateFENAcceptsWellFormed(t *testing.T) {
	fen := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"
	fields, err := ValidateFEN(fen)
	if err != nil {
		t.Fatalf("ValidateFEN: %v", err)
	}
	if fields.WhiteToMove {
		t.Fatalf("expected black to move")
	}
	if !fields.Castling.WhiteKingside || !fields.Castling.BlackQueenside {
		t.Fatalf("castling parse: %+v", fields.Castling)
	}
	if fields.EnPassant != "e3" || fields.FullmoveNum != 1 {
		t.Fatalf("fields: %+v", fields)
	}
}

func TestValidateFENRejectsMalformed(t *testing.T) {
	bad := []string{
		"",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -",    // 5 fields
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP w KQkq - 0 1",         // 7 ranks
		"rnbqkbnr/ppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", // rank sums to 7
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkz - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq e4 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - x 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 0",
	}
	for _, fen := range bad {
		if _, err := ValidateFEN(fen); !errors.Is(err, ErrInvalidPosition) {
			t.Fatalf("%q: expected ErrInvalidPosition, got %v", fen, err)
		}
	}
}

func TestValidateFENCountsMultiDigitRuns(t *testing.T) {
	if _, err := ValidateFEN("k7/3p4/8/8/8/8/8/K7 w - - 0 1"); err != nil {
		t.Fatalf("mixed rank: %v", err)
	}
	// Adjacent digits form one run-length, so "44" means 44 squares.
	if _, err := ValidateFEN("k7/44/8/8/8/8/8/K7 w - - 0 1"); !errors.Is(err, ErrInvalidPosition) {
		t.Fatalf("expected ErrInvalidPosition for double-digit run")
	}
}
