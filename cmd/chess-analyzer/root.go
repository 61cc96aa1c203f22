package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "chess-analyzer",
	Short: "Stockfish-backed chess position analysis API",
	Long: `chess-analyzer evaluates chess positions with a pooled Stockfish
engine and explains the best moves in plain language (English or
Portuguese). Positions arrive as FEN strings or as board screenshots
decoded by a vision model.

Examples:
  # Serve the HTTP API
  chess-analyzer serve

  # One-shot analysis to stdout
  chess-analyzer analyze "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"`,
}
