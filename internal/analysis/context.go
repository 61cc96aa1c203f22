package analysis

import (
	"fmt"

	chesslib "github.com/corentings/chess/v2"
)

var pieceValues = map[chesslib.PieceType]int{
	chesslib.Pawn:   1,
	chesslib.Knight: 3,
	chesslib.Bishop: 3,
	chesslib.Rook:   5,
	chesslib.Queen:  9,
	chesslib.King:   0,
}

// SideMaterial is one color's piece census plus its summed point value.
type SideMaterial struct {
	Pawns   int `json:"pawns"`
	Knights int `json:"knights"`
	Bishops int `json:"bishops"`
	Rooks   int `json:"rooks"`
	Queens  int `json:"queens"`
	Value   int `json:"value"`
}

// PositionContext is the static-facts snapshot consumed by the explanation
// renderers. Computed once per analysis, never mutated.
type PositionContext struct {
	Turn            string         `json:"turn"`
	IsCheck         bool           `json:"is_check"`
	IsCheckmate     bool           `json:"is_checkmate"`
	IsStalemate     bool           `json:"is_stalemate"`
	Castling        CastlingRights `json:"castling"`
	White           SideMaterial   `json:"white_material"`
	Black           SideMaterial   `json:"black_material"`
	MaterialBalance int            `json:"material_balance"`
	MoveNumber      int            `json:"move_number"`
	LegalMoves      int            `json:"legal_moves"`
	TotalPieces     int            `json:"total_pieces"`
	Phase           string         `json:"phase"`
}

// ExtractContext derives the explanation inputs for a position: terminal and
// check state, castling availability, material census, legal-move count and a
// coarse game phase from the total piece count (>24 opening, >12 middlegame,
// endgame otherwise).
func ExtractContext(fen string) (*PositionContext, error) {
	fields, err := ValidateFEN(fen)
	if err != nil {
		return nil, err
	}
	opt, err := chesslib.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("load position: %w", ErrInvalidPosition)
	}
	game := chesslib.NewGame(opt)
	pos := game.Position()
	board := pos.Board()

	white, black, total := countMaterial(board)
	legal := len(game.ValidMoves())
	method := pos.Status()

	ctx := &PositionContext{
		Turn:            "white",
		IsCheckmate:     method == chesslib.Checkmate,
		IsStalemate:     method == chesslib.Stalemate,
		Castling:        fields.Castling,
		White:           white,
		Black:           black,
		MaterialBalance: white.Value - black.Value,
		MoveNumber:      fields.FullmoveNum,
		LegalMoves:      legal,
		TotalPieces:     total,
		Phase:           classifyPhase(total),
	}
	if !fields.WhiteToMove {
		ctx.Turn = "black"
	}

	mover, attacker := chesslib.White, chesslib.Black
	if !fields.WhiteToMove {
		mover, attacker = chesslib.Black, chesslib.White
	}
	if ctx.IsCheckmate {
		ctx.IsCheck = true
	} else if kingSq, ok := findKing(board, mover); ok {
		ctx.IsCheck = isSquareAttacked(board, kingSq, attacker)
	}
	return ctx, nil
}

// CheckLegal rejects positions the structural FEN check lets through but no
// engine should see: placements the chess library refuses to load, a missing
// or duplicated king, pawns on a back rank.
func CheckLegal(fen string) error {
	opt, err := chesslib.FEN(fen)
	if err != nil {
		return fmt.Errorf("load position: %w", ErrInvalidPosition)
	}
	board := chesslib.NewGame(opt).Position().Board()
	var whiteKings, blackKings int
	for file := chesslib.FileA; file <= chesslib.FileH; file++ {
		for rank := chesslib.Rank1; rank <= chesslib.Rank8; rank++ {
			piece := board.Piece(chesslib.NewSquare(file, rank))
			switch {
			case piece == chesslib.NoPiece:
			case piece == chesslib.WhiteKing:
				whiteKings++
			case piece == chesslib.BlackKing:
				blackKings++
			case piece.Type() == chesslib.Pawn && (rank == chesslib.Rank1 || rank == chesslib.Rank8):
				return fmt.Errorf("pawn on back rank: %w", ErrInvalidPosition)
			}
		}
	}
	if whiteKings != 1 || blackKings != 1 {
		return fmt.Errorf("each side needs exactly one king: %w", ErrInvalidPosition)
	}
	return nil
}

func classifyPhase(totalPieces int) string {
	switch {
	case totalPieces > 24:
		return "opening"
	case totalPieces > 12:
		return "middlegame"
	default:
		return "endgame"
	}
}

func countMaterial(board *chesslib.Board) (white, black SideMaterial, total int) {
	for file := chesslib.FileA; file <= chesslib.FileH; file++ {
		for rank := chesslib.Rank1; rank <= chesslib.Rank8; rank++ {
			piece := board.Piece(chesslib.NewSquare(file, rank))
			if piece == chesslib.NoPiece {
				continue
			}
			total++
			side := &white
			if piece.Color() == chesslib.Black {
				side = &black
			}
			side.Value += pieceValues[piece.Type()]
			switch piece.Type() {
			case chesslib.Pawn:
				side.Pawns++
			case chesslib.Knight:
				side.Knights++
			case chesslib.Bishop:
				side.Bishops++
			case chesslib.Rook:
				side.Rooks++
			case chesslib.Queen:
				side.Queens++
			}
		}
	}
	return white, black, total
}

func findKing(board *chesslib.Board, color chesslib.Color) (chesslib.Square, bool) {
	for sq, piece := range board.SquareMap() {
		if piece.Type() == chesslib.King && piece.Color() == color {
			return sq, true
		}
	}
	var none chesslib.Square
	return none, false
}

var (
	knightOffsets = [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	rookDirs      = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	bishopDirs    = [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

// isSquareAttacked reports whether any piece of the given color attacks the
// target square, by direct lookup for knights, pawns and kings and by ray
// walks for the sliders.
func isSquareAttacked(board *chesslib.Board, target chesslib.Square, by chesslib.Color) bool {
	tf, tr := int(target.File()), int(target.Rank())

	pieceAt := func(f, r int) chesslib.Piece {
		if f < 0 || f > 7 || r < 0 || r > 7 {
			return chesslib.NoPiece
		}
		return board.Piece(chesslib.NewSquare(chesslib.File(f), chesslib.Rank(r)))
	}
	matches := func(p chesslib.Piece, t chesslib.PieceType) bool {
		return p != chesslib.NoPiece && p.Color() == by && p.Type() == t
	}

	for _, off := range knightOffsets {
		if matches(pieceAt(tf+off[0], tr+off[1]), chesslib.Knight) {
			return true
		}
	}

	// Pawns attack diagonally toward the enemy side, so look one rank back
	// from the target on both diagonals.
	pawnRank := tr - 1
	if by == chesslib.Black {
		pawnRank = tr + 1
	}
	if matches(pieceAt(tf-1, pawnRank), chesslib.Pawn) || matches(pieceAt(tf+1, pawnRank), chesslib.Pawn) {
		return true
	}

	for df := -1; df <= 1; df++ {
		for dr := -1; dr <= 1; dr++ {
			if df == 0 && dr == 0 {
				continue
			}
			if matches(pieceAt(tf+df, tr+dr), chesslib.King) {
				return true
			}
		}
	}

	slides := func(dirs [4][2]int, t chesslib.PieceType) bool {
		for _, dir := range dirs {
			f, r := tf+dir[0], tr+dir[1]
			for f >= 0 && f <= 7 && r >= 0 && r <= 7 {
				p := pieceAt(f, r)
				if p != chesslib.NoPiece {
					if p.Color() == by && (p.Type() == t || p.Type() == chesslib.Queen) {
						return true
					}
					break
				}
				f += dir[0]
				r += dir[1]
			}
		}
		return false
	}
	return slides(rookDirs, chesslib.Rook) || slides(bishopDirs, chesslib.Bishop)
}
