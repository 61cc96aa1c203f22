// engine-probe is a small diagnostic: it discovers the Stockfish binary,
// prints the host tuning, starts one UCI session and runs a shallow search
// to confirm the engine answers.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/guiude/chess-analyzer/internal/analysis"
	"github.com/guiude/chess-analyzer/internal/tuning"
	"github.com/guiude/chess-analyzer/internal/uci"
)

func main() {
	binary := tuning.FindEngine()
	if binary == "" {
		log.Fatal("no stockfish binary found; set STOCKFISH_PATH or install stockfish")
	}
	settings := tuning.Optimal()
	fmt.Printf("binary: %s\n", binary)
	fmt.Printf("memory: %d MB (cloud=%v)\n", settings.MemoryMB, settings.CloudMode)
	fmt.Printf("tuning: hash=%dMB threads=%d depth=%d/%d\n",
		settings.HashMB, settings.Threads, settings.DefaultDepth, settings.MaxDepth)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	session, err := uci.NewSession(ctx, binary, uci.Options{Threads: 1, HashMB: 16, MultiPV: 1})
	if err != nil {
		log.Fatalf("start session: %v", err)
	}
	defer session.Close()

	if err := session.EnsureReady(ctx); err != nil {
		log.Fatalf("engine not ready: %v", err)
	}

	var lastDepth int
	best, err := session.Search(ctx, uci.SearchRequest{FEN: analysis.StartingFEN, Depth: 10}, func(u uci.InfoUpdate) {
		lastDepth = u.Depth
	})
	if err != nil {
		log.Fatalf("probe search: %v", err)
	}
	fmt.Printf("probe ok: bestmove=%s depth=%d\n", best, lastDepth)
}
