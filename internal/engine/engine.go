// Package engine exposes a pooled UCI engine as an analysis collaborator.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/guiude/chess-analyzer/internal/analysis"
	"github.com/guiude/chess-analyzer/internal/tuning"
	"github.com/guiude/chess-analyzer/internal/uci"
)

// Engine owns the session pool and the host tuning that sizes it.
type Engine struct {
	pool     *uci.Pool
	settings tuning.Settings
}

// AnalyzeRequest is one multi-PV evaluation of a single position.
type AnalyzeRequest struct {
	FEN      string
	Depth    int
	NumLines int
}

// AnalyzeResult carries the engine's own best move alongside the update
// stream outcome; OnUpdate consumers see the raw per-line stream first.
type AnalyzeResult struct {
	BestMove string
	Duration time.Duration
}

// New builds an engine over a fresh session pool. poolCapacity 0 sizes the
// pool from the host CPU count.
func New(binaryPath string, settings tuning.Settings, poolCapacity int) (*Engine, error) {
	pool, err := uci.NewPool(uci.PoolConfig{BinaryPath: binaryPath, PerOptionCapacity: poolCapacity})
	if err != nil {
		return nil, err
	}
	return &Engine{pool: pool, settings: settings}, nil
}

func (e *Engine) Settings() tuning.Settings { return e.settings }

func (e *Engine) ActiveSessions() int {
	if e.pool == nil {
		return 0
	}
	return e.pool.ActiveSessions()
}

// Analyze runs one search to the clamped depth, translating every engine
// info line into an update for onUpdate. Depth 0 picks the host default.
func (e *Engine) Analyze(ctx context.Context, req AnalyzeRequest, onUpdate func(analysis.LineUpdate)) (AnalyzeResult, error) {
	depth := clampDepth(req.Depth, e.settings)
	if req.NumLines <= 0 {
		req.NumLines = 1
	}

	opt := uci.Options{
		Threads: e.settings.Threads,
		HashMB:  e.settings.HashMB,
		MultiPV: req.NumLines,
	}
	session, err := e.pool.Acquire(ctx, opt)
	if err != nil {
		return AnalyzeResult{}, fmt.Errorf("%w: %v", analysis.ErrEngineUnavailable, err)
	}
	var releaseErr error
	defer func() {
		e.pool.Release(session, releaseErr)
	}()

	if err := session.NewGame(ctx); err != nil {
		releaseErr = err
		return AnalyzeResult{}, err
	}

	start := time.Now()
	blackToMove := fenBlackToMove(req.FEN)
	best, err := session.Search(ctx, uci.SearchRequest{FEN: req.FEN, Depth: depth}, func(info uci.InfoUpdate) {
		if onUpdate != nil {
			onUpdate(toLineUpdate(info, blackToMove))
		}
	})
	if err != nil {
		releaseErr = err
		return AnalyzeResult{}, err
	}
	return AnalyzeResult{BestMove: best, Duration: time.Since(start)}, nil
}

func (e *Engine) Close() error {
	if e.pool == nil {
		return nil
	}
	return e.pool.Close()
}

func clampDepth(depth int, s tuning.Settings) int {
	if depth <= 0 {
		return s.DefaultDepth
	}
	if depth > s.MaxDepth {
		return s.MaxDepth
	}
	return depth
}

// toLineUpdate re-expresses the engine's side-to-move-relative score as
// White-relative, which is what the aggregation pipeline stores.
func toLineUpdate(info uci.InfoUpdate, blackToMove bool) analysis.LineUpdate {
	update := analysis.LineUpdate{
		Rank:  info.MultiPV,
		Depth: info.Depth,
		PV:    info.PV,
	}
	sign := 1
	if blackToMove {
		sign = -1
	}
	switch {
	case info.ScoreMate != nil:
		s := analysis.MateScore(sign * *info.ScoreMate)
		update.Score = &s
	case info.ScoreCP != nil:
		s := analysis.CentipawnScore(sign * *info.ScoreCP)
		update.Score = &s
	}
	return update
}

// fenBlackToMove reads the active-color field of a FEN. Malformed input
// defaults to White; validation upstream rejects it before a search anyway.
func fenBlackToMove(fen string) bool {
	fields := strings.Fields(fen)
	return len(fields) >= 2 && fields[1] == "b"
}
