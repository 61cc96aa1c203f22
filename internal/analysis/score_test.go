package analysis

import "testing"

func TestFormatScoreCentipawns(t *testing.T) {
	cases := []struct {
		cp   int
		want string
	}{
		{125, "+1.25"},
		{-50, "-0.50"},
		{0, "+0.00"},
		{9, "+0.09"},
	}
	for _, c := range cases {
		got, val := FormatScore(CentipawnScore(c.cp))
		if got != c.want {
			t.Fatalf("cp %d: got %q want %q", c.cp, got, c.want)
		}
		if val != c.cp {
			t.Fatalf("cp %d: comparable %d", c.cp, val)
		}
	}
}

func TestFormatScoreMate(t *testing.T) {
	got, val := FormatScore(MateScore(2))
	if got != "Mate in 2" || val != 10000 {
		t.Fatalf("got %q %d", got, val)
	}
	got, val = FormatScore(MateScore(-3))
	if got != "Mated in 3" || val != -10000 {
		t.Fatalf("got %q %d", got, val)
	}
}

func TestFormatScoreMateZero(t *testing.T) {
	got, val := FormatScore(MateScore(0))
	if got != "Mated in 0" || val != -10000 {
		t.Fatalf("got %q %d", got, val)
	}
}

func TestFormatScoreAbsent(t *testing.T) {
	got, _ := FormatScore(Score{})
	if got != "N/A" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeNegatesForBlack(t *testing.T) {
	display, raw := FormatScore(CentipawnScore(125))
	asWhite, whiteVal := NormalizeForSideToMove(display, raw, true)
	asBlack, blackVal := NormalizeForSideToMove(display, raw, false)
	if whiteVal != -blackVal {
		t.Fatalf("values not exact negations: %d vs %d", whiteVal, blackVal)
	}
	if asWhite != "+1.25" || asBlack != "-1.25" {
		t.Fatalf("displays %q %q", asWhite, asBlack)
	}
}

func TestNormalizeSwapsMateLabels(t *testing.T) {
	display, raw := FormatScore(MateScore(4))
	got, val := NormalizeForSideToMove(display, raw, false)
	if got != "Mated in 4" || val != -10000 {
		t.Fatalf("got %q %d", got, val)
	}
	display, raw = FormatScore(MateScore(-4))
	got, val = NormalizeForSideToMove(display, raw, false)
	if got != "Mate in 4" || val != 10000 {
		t.Fatalf("got %q %d", got, val)
	}
}

func TestNormalizePassesThroughNA(t *testing.T) {
	got, val := NormalizeForSideToMove("N/A", 0, false)
	if got != "N/A" || val != 0 {
		t.Fatalf("got %q %d", got, val)
	}
}
