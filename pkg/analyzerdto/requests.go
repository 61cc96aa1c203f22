// Package analyzerdto defines the wire types of the HTTP API.
package analyzerdto

// AnalyzeRequest asks for a multi-line evaluation of one position. Exactly
// one of FEN and Image should be set; Image goes through vision recognition
// first.
type AnalyzeRequest struct {
	FEN      string `json:"fen,omitempty"`
	Image    string `json:"image,omitempty"`
	Depth    int    `json:"depth,omitempty"`
	NumMoves int    `json:"num_moves,omitempty"`
	Lang     string `json:"lang,omitempty"`
	// Explain selects the renderer: "template" or "llm".
	Explain string `json:"explain,omitempty"`
	// SkipBoard omits the rendered board image from the response.
	SkipBoard bool `json:"skip_board,omitempty"`
}

// ValidateFENRequest checks a single FEN string.
type ValidateFENRequest struct {
	FEN string `json:"fen"`
}

// RecognizeRequest carries a base64 screenshot of a board; data-URL
// prefixes are tolerated.
type RecognizeRequest struct {
	ImageBase64 string `json:"image"`
}

// CorrectRequest applies a natural language fix to a recognized position.
type CorrectRequest struct {
	FEN         string `json:"fen"`
	Instruction string `json:"instruction"`
}
