package analysis

import (
	"fmt"

	chesslib "github.com/corentings/chess/v2"
)

const (
	maxStoredPlies = 10
	previewPlies   = 5
)

// LineUpdate is one incremental engine report for a candidate line. Any of
// Score, PV and Depth may be absent; Rank is always present and 1-based.
type LineUpdate struct {
	Rank  int
	Depth int
	Score *Score
	PV    []string
}

// RankedMove is the finalized snapshot of one candidate line.
type RankedMove struct {
	Rank          int      `json:"rank"`
	MoveUCI       string   `json:"move_uci"`
	MoveSAN       string   `json:"move_san"`
	Score         string   `json:"score"`
	ScoreValue    int      `json:"score_value"`
	RawScoreValue int      `json:"raw_score_value"`
	Line          []string `json:"line"`
	FullLine      []string `json:"full_line"`
	Depth         int      `json:"depth"`
}

type lineState struct {
	seen  bool
	depth int
	score *Score
	pv    []string
}

// Aggregator folds an interleaved stream of per-rank updates into one
// accumulator per rank. Fields merge by presence: an update that carries only
// a score does not erase a previously recorded PV for that rank.
type Aggregator struct {
	lines []lineState
}

// NewAggregator sizes the accumulator table for ranks 1..capacity. Updates
// for higher ranks grow the table on demand.
func NewAggregator(capacity int) *Aggregator {
	if capacity < 1 {
		capacity = 1
	}
	return &Aggregator{lines: make([]lineState, capacity)}
}

func (a *Aggregator) Apply(u LineUpdate) {
	if u.Rank < 1 {
		return
	}
	for u.Rank > len(a.lines) {
		a.lines = append(a.lines, lineState{})
	}
	st := &a.lines[u.Rank-1]
	st.seen = true
	if u.Depth > 0 {
		st.depth = u.Depth
	}
	if u.Score != nil {
		sc := *u.Score
		st.score = &sc
	}
	if len(u.PV) > 0 {
		st.pv = append(st.pv[:0], u.PV...)
	}
}

// Finalize converts the accumulated lines into RankedMove entries, ordered by
// rank. A rank missing either a score or a PV is dropped. PVs are truncated
// to ten plies; algebraic conversion stops at the first ply that fails, and a
// line whose very first ply fails is dropped with it.
func (a *Aggregator) Finalize(fen string) ([]RankedMove, error) {
	whiteToMove, err := sideToMoveFromFEN(fen)
	if err != nil {
		return nil, err
	}
	out := make([]RankedMove, 0, len(a.lines))
	for i := range a.lines {
		st := &a.lines[i]
		if !st.seen || st.score == nil || len(st.pv) == 0 {
			continue
		}
		pv := st.pv
		if len(pv) > maxStoredPlies {
			pv = pv[:maxStoredPlies]
		}
		san := convertToSAN(fen, pv)
		if len(san) == 0 {
			continue
		}
		display, raw := FormatScore(*st.score)
		display, value := NormalizeForSideToMove(display, raw, whiteToMove)
		preview := san
		if len(preview) > previewPlies {
			preview = preview[:previewPlies]
		}
		out = append(out, RankedMove{
			Rank:          i + 1,
			MoveUCI:       pv[0],
			MoveSAN:       san[0],
			Score:         display,
			ScoreValue:    value,
			RawScoreValue: raw,
			Line:          preview,
			FullLine:      san,
			Depth:         st.depth,
		})
	}
	return out, nil
}

// convertToSAN replays pv from the given position, translating each ply to
// standard algebraic notation until a ply fails to decode or apply.
func convertToSAN(fen string, pv []string) []string {
	opt, err := chesslib.FEN(fen)
	if err != nil {
		return nil
	}
	game := chesslib.NewGame(opt)
	san := make([]string, 0, len(pv))
	for _, ply := range pv {
		pos := game.Position()
		mv, err := chesslib.UCINotation{}.Decode(pos, ply)
		if err != nil {
			break
		}
		encoded := chesslib.AlgebraicNotation{}.Encode(pos, mv)
		if err := game.Move(mv, nil); err != nil {
			break
		}
		san = append(san, encoded)
	}
	return san
}

func sideToMoveFromFEN(fen string) (bool, error) {
	fields, err := splitFENFields(fen)
	if err != nil {
		return false, err
	}
	switch fields[1] {
	case "w":
		return true, nil
	case "b":
		return false, nil
	}
	return false, fmt.Errorf("active color %q: %w", fields[1], ErrInvalidPosition)
}
