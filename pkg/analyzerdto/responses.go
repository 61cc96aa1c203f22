package analyzerdto

import "time"

// RankedMove is one engine candidate, strongest first.
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

// SideMaterial is a per-color piece census.
type SideMaterial struct {
	Pawns   int `json:"pawns"`
	Knights int `json:"knights"`
	Bishops int `json:"bishops"`
	Rooks   int `json:"rooks"`
	Queens  int `json:"queens"`
	Points  int `json:"points"`
}

// CastlingRights lists the four castling options still open.
type CastlingRights struct {
	WhiteKingside  bool `json:"white_kingside"`
	WhiteQueenside bool `json:"white_queenside"`
	BlackKingside  bool `json:"black_kingside"`
	BlackQueenside bool `json:"black_queenside"`
}

// PositionContext summarizes the board state for explanation consumers.
type PositionContext struct {
	Turn            string         `json:"turn"`
	IsCheck         bool           `json:"is_check"`
	IsCheckmate     bool           `json:"is_checkmate"`
	IsStalemate     bool           `json:"is_stalemate"`
	Castling        CastlingRights `json:"castling"`
	WhiteMaterial   SideMaterial   `json:"white_material"`
	BlackMaterial   SideMaterial   `json:"black_material"`
	MaterialBalance int            `json:"material_balance"`
	MoveNumber      int            `json:"move_number"`
	LegalMoves      int            `json:"legal_moves"`
	TotalPieces     int            `json:"total_pieces"`
	Phase           string         `json:"phase"`
}

// AnalyzeResponse is the full analysis payload. BoardImage is base64 PNG.
type AnalyzeResponse struct {
	ID          string           `json:"id"`
	FEN         string           `json:"fen"`
	Turn        string           `json:"turn"`
	Depth       int              `json:"depth"`
	BestMoves   []RankedMove     `json:"best_moves"`
	Explanation string           `json:"explanation"`
	Context     *PositionContext `json:"position_context,omitempty"`
	BoardImage  string           `json:"board_png,omitempty"`
	Cached      bool             `json:"cached"`
	DurationMS  int64            `json:"duration_ms"`
}

// ValidateFENResponse reports validity; Error is set only when invalid.
type ValidateFENResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// RecognizeResponse returns the FEN read from a screenshot.
type RecognizeResponse struct {
	FEN string `json:"fen"`
}

// CorrectResponse returns the corrected FEN.
type CorrectResponse struct {
	FEN string `json:"fen"`
}

// SettingsResponse exposes the live engine tuning.
type SettingsResponse struct {
	HashMB       int  `json:"hash_mb"`
	Threads      int  `json:"threads"`
	MaxDepth     int  `json:"max_depth"`
	DefaultDepth int  `json:"default_depth"`
	MemoryMB     int  `json:"memory_mb"`
	CloudMode    bool `json:"cloud_mode"`
	LLMEnabled   bool `json:"llm_enabled"`
	CacheEnabled bool `json:"cache_enabled"`
}

// HealthResponse is either healthy or degraded.
type HealthResponse struct {
	Status          string `json:"status"`
	EngineAvailable bool   `json:"engine_available"`
	Version         string `json:"version"`
}

// HistoryEntry is one stored analysis run.
type HistoryEntry struct {
	ID         string    `json:"id"`
	FEN        string    `json:"fen"`
	Depth      int       `json:"depth"`
	MultiPV    int       `json:"multipv"`
	Lang       string    `json:"lang"`
	BestMove   string    `json:"best_move"`
	Score      string    `json:"score"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// HistoryResponse lists recent analyses, newest first.
type HistoryResponse struct {
	Analyses []HistoryEntry `json:"analyses"`
}

// StreamEvent is one WebSocket frame during streamed analysis. Type is
// "progress", "result" or "error".
type StreamEvent struct {
	Type   string           `json:"type"`
	Rank   int              `json:"rank,omitempty"`
	Depth  int              `json:"depth,omitempty"`
	Score  string           `json:"score,omitempty"`
	Result *AnalyzeResponse `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
