package analysis

import "testing"

func scoreOf(cp int) *Score {
	s := CentipawnScore(cp)
	return &s
}

func TestAggregatorMergesByField(t *testing.T) {
	agg := NewAggregator(3)
	agg.Apply(LineUpdate{Rank: 1, Depth: 10, Score: scoreOf(50)})
	agg.Apply(LineUpdate{Rank: 1, Depth: 15, PV: []string{"e2e4", "e7e5"}})

	moves, err := agg.Finalize(StartingFEN)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if len(moves) != 1 {
		t.Fatalf("expected 1 move, got %d", len(moves))
	}
	mv := moves[0]
	if mv.RawScoreValue != 50 {
		t.Fatalf("score lost on pv-only update: %d", mv.RawScoreValue)
	}
	if mv.MoveUCI != "e2e4" || mv.MoveSAN != "e4" {
		t.Fatalf("pv not retained: %q %q", mv.MoveUCI, mv.MoveSAN)
	}
	if mv.Depth != 15 {
		t.Fatalf("depth not advanced: %d", mv.Depth)
	}
}

func TestAggregatorDropsIncompleteRanks(t *testing.T) {
	agg := NewAggregator(3)
	agg.Apply(LineUpdate{Rank: 1, Depth: 12, Score: scoreOf(30), PV: []string{"g1f3"}})
	agg.Apply(LineUpdate{Rank: 2, Depth: 12, Score: scoreOf(10)})   // never gets a PV
	agg.Apply(LineUpdate{Rank: 3, Depth: 12, PV: []string{"d2d4"}}) // never gets a score

	moves, err := agg.Finalize(StartingFEN)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if len(moves) != 1 || moves[0].Rank != 1 {
		t.Fatalf("expected only rank 1, got %+v", moves)
	}
}

func TestAggregatorSortedByRank(t *testing.T) {
	agg := NewAggregator(3)
	agg.Apply(LineUpdate{Rank: 3, Depth: 10, Score: scoreOf(-20), PV: []string{"b1c3"}})
	agg.Apply(LineUpdate{Rank: 1, Depth: 10, Score: scoreOf(40), PV: []string{"e2e4"}})
	agg.Apply(LineUpdate{Rank: 2, Depth: 10, Score: scoreOf(15), PV: []string{"d2d4"}})

	moves, err := agg.Finalize(StartingFEN)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if len(moves) != 3 {
		t.Fatalf("expected 3 moves, got %d", len(moves))
	}
	for i, mv := range moves {
		if mv.Rank != i+1 {
			t.Fatalf("position %d has rank %d", i, mv.Rank)
		}
	}
}

func TestAggregatorTruncatesAndStopsOnBadPly(t *testing.T) {
	pv := []string{
		"e2e4", "e7e5", "g1f3", "b8c6", "f1b5", "a7a6", "b5a4", "g8f6",
		"e1g1", "f8e7", "f1e1", "b7b5",
	}
	agg := NewAggregator(1)
	agg.Apply(LineUpdate{Rank: 1, Depth: 20, Score: scoreOf(25), PV: pv})
	moves, err := agg.Finalize(StartingFEN)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if len(moves[0].FullLine) != 10 {
		t.Fatalf("full line has %d plies", len(moves[0].FullLine))
	}
	if len(moves[0].Line) != 5 {
		t.Fatalf("preview has %d plies", len(moves[0].Line))
	}

	agg = NewAggregator(1)
	agg.Apply(LineUpdate{Rank: 1, Depth: 20, Score: scoreOf(25), PV: []string{"e2e4", "e2e4", "g1f3"}})
	moves, err = agg.Finalize(StartingFEN)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if len(moves) != 1 || len(moves[0].FullLine) != 1 {
		t.Fatalf("conversion should stop at first illegal ply: %+v", moves)
	}
}

func TestAggregatorDropsLineWithUnplayableFirstPly(t *testing.T) {
	agg := NewAggregator(1)
	agg.Apply(LineUpdate{Rank: 1, Depth: 20, Score: scoreOf(25), PV: []string{"e2e5"}})
	moves, err := agg.Finalize(StartingFEN)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if len(moves) != 0 {
		t.Fatalf("expected empty result, got %+v", moves)
	}
}

func TestAggregatorNormalizesForBlackToMove(t *testing.T) {
	fen := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"
	agg := NewAggregator(1)
	agg.Apply(LineUpdate{Rank: 1, Depth: 14, Score: scoreOf(35), PV: []string{"e7e5"}})
	moves, err := agg.Finalize(fen)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	mv := moves[0]
	if mv.RawScoreValue != 35 {
		t.Fatalf("raw value should stay White-relative: %d", mv.RawScoreValue)
	}
	if mv.ScoreValue != -35 || mv.Score != "-0.35" {
		t.Fatalf("side-to-move view wrong: %d %q", mv.ScoreValue, mv.Score)
	}
}
