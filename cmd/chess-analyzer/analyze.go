package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/guiude/chess-analyzer/internal/appbuilder"
	"github.com/guiude/chess-analyzer/internal/config"
	"github.com/guiude/chess-analyzer/internal/obslog"
	"github.com/guiude/chess-analyzer/internal/service"
)

var (
	analyzeDepth int
	analyzeLines int
	analyzeLang  string
	analyzeJSON  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [FEN]",
	Short: "Analyze one position and print the report",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().IntVar(&analyzeDepth, "depth", 0, "search depth (0 = host default)")
	analyzeCmd.Flags().IntVar(&analyzeLines, "lines", 3, "number of candidate lines")
	analyzeCmd.Flags().StringVar(&analyzeLang, "lang", "", "explanation language (en, pt)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the full result as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if err := obslog.InitFromEnv(); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	deps, err := appbuilder.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	res, err := deps.Service.Analyze(cmd.Context(), service.Params{
		FEN:       args[0],
		Depth:     analyzeDepth,
		NumLines:  analyzeLines,
		Lang:      analyzeLang,
		SkipBoard: true,
	})
	if err != nil {
		return err
	}

	if analyzeJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Printf("Position: %s\n", res.FEN)
	fmt.Printf("Depth: %d\n\n", res.Depth)
	for _, mv := range res.BestMoves {
		fmt.Printf("%d. %s (%s)  %v\n", mv.Rank, mv.MoveSAN, mv.Score, mv.Line)
	}
	fmt.Printf("\n%s\n", res.Explanation)
	return nil
}
