// Package service orchestrates a full position analysis: engine search,
// line aggregation, position context, explanation rendering, board image,
// caching and history. It is the single entry point the HTTP layer calls.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/guiude/chess-analyzer/internal/analysis"
	"github.com/guiude/chess-analyzer/internal/cache"
	"github.com/guiude/chess-analyzer/internal/engine"
	"github.com/guiude/chess-analyzer/internal/explain"
	"github.com/guiude/chess-analyzer/internal/history"
	"github.com/guiude/chess-analyzer/internal/locale"
	"github.com/guiude/chess-analyzer/internal/metrics"
	"github.com/guiude/chess-analyzer/internal/obslog"
	"github.com/guiude/chess-analyzer/internal/render"
)

// Params selects what to analyze and how deep.
type Params struct {
	FEN      string
	Depth    int
	NumLines int
	Lang     string
	// Explain forces a renderer: "template" or "llm". Empty picks the best
	// available one.
	Explain string
	// SkipBoard suppresses PNG rendering, for clients that only need data.
	SkipBoard bool
}

// Result is the full analysis payload.
type Result struct {
	ID          string                    `json:"id"`
	FEN         string                    `json:"fen"`
	Turn        string                    `json:"turn"`
	Depth       int                       `json:"depth"`
	BestMoves   []analysis.RankedMove     `json:"best_moves"`
	Explanation string                    `json:"explanation"`
	Context     *analysis.PositionContext `json:"position_context"`
	BoardImage  []byte                    `json:"board_png,omitempty"`
	Cached      bool                      `json:"cached"`
	DurationMS  int64                     `json:"duration_ms"`
}

// Progress is one streamed update during a search.
type Progress struct {
	Rank  int    `json:"rank"`
	Depth int    `json:"depth"`
	Score string `json:"score,omitempty"`
}

// ExplainRenderer produces the natural language report for a finished run.
type ExplainRenderer interface {
	Render(ctx context.Context, in explain.Input) string
}

type templateOnly struct {
	tmpl *explain.TemplateRenderer
}

func (t templateOnly) Render(_ context.Context, in explain.Input) string {
	return t.tmpl.Render(in)
}

// Service wires the collaborators of one analyzer deployment.
type Service struct {
	engine       *engine.Engine
	cache        *cache.Cache
	repo         history.Repository
	renderer     render.BoardRenderer
	template     ExplainRenderer
	llm          ExplainRenderer
	catalog      *locale.Catalog
	defaultLines int
	maxLines     int
	defaultLang  string
	engineReady  bool
	group        singleflight.Group
}

// Config assembles a Service. Engine and catalog are required; cache, repo
// and chat are optional and degrade to no-ops.
type Config struct {
	Engine       *engine.Engine
	Cache        *cache.Cache
	Repo         history.Repository
	Renderer     render.BoardRenderer
	Catalog      *locale.Catalog
	Chat         explain.ChatCompleter
	DefaultLines int
	MaxLines     int
	DefaultLang  string
	// EngineReady is false when no engine binary was found on the host;
	// analysis requests then fail fast and health reports degraded.
	EngineReady bool
}

func New(cfg Config) (*Service, error) {
	if cfg.Engine == nil && cfg.EngineReady {
		return nil, fmt.Errorf("engine is required")
	}
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("locale catalog is required")
	}
	if cfg.Renderer == nil {
		cfg.Renderer = render.NewBoardRenderer()
	}
	if cfg.DefaultLines <= 0 {
		cfg.DefaultLines = 3
	}
	if cfg.MaxLines <= 0 {
		cfg.MaxLines = 5
	}

	tmpl := explain.NewTemplateRenderer(cfg.Catalog)
	var llm ExplainRenderer
	if cfg.Chat != nil {
		llm = explain.NewLLMRenderer(cfg.Chat, tmpl)
	}

	return &Service{
		engine:       cfg.Engine,
		cache:        cfg.Cache,
		repo:         cfg.Repo,
		renderer:     cfg.Renderer,
		template:     templateOnly{tmpl: tmpl},
		llm:          llm,
		catalog:      cfg.Catalog,
		defaultLines: cfg.DefaultLines,
		maxLines:     cfg.MaxLines,
		defaultLang:  locale.Normalize(cfg.DefaultLang),
		engineReady:  cfg.EngineReady,
	}, nil
}

// Analyze validates, serves from cache when possible, and otherwise runs the
// engine once per distinct request even under concurrent duplicates.
func (s *Service) Analyze(ctx context.Context, p Params) (*Result, error) {
	return s.analyze(ctx, p, nil)
}

// AnalyzeStream behaves like Analyze but forwards per-line progress while
// the engine is thinking. Cache hits produce no progress events.
func (s *Service) AnalyzeStream(ctx context.Context, p Params, onProgress func(Progress)) (*Result, error) {
	return s.analyze(ctx, p, onProgress)
}

func (s *Service) analyze(ctx context.Context, p Params, onProgress func(Progress)) (*Result, error) {
	fields, err := analysis.ValidateFEN(p.FEN)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", analysis.ErrInvalidPosition, err)
	}
	if err := analysis.CheckLegal(p.FEN); err != nil {
		return nil, err
	}
	lines := p.NumLines
	if lines <= 0 {
		lines = s.defaultLines
	}
	if lines > s.maxLines {
		lines = s.maxLines
	}
	lang := s.defaultLang
	if strings.TrimSpace(p.Lang) != "" {
		lang = locale.Normalize(p.Lang)
	}

	rendererName, explainer := s.pickExplainer(p.Explain)

	key := cache.Key(p.FEN, p.Depth, lines, lang, rendererName)
	if !p.SkipBoard {
		key += "|board"
	}
	if payload, ok := s.cache.Get(ctx, key); ok {
		var res Result
		if err := json.Unmarshal(payload, &res); err == nil {
			metrics.CacheHits.Inc()
			res.Cached = true
			return &res, nil
		}
	}
	metrics.CacheMisses.Inc()

	// Cache hits are served even without an engine binary on the host.
	if !s.engineReady {
		return nil, analysis.ErrEngineUnavailable
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.runAnalysis(ctx, p.FEN, fields.WhiteToMove, p.Depth, lines, lang, p.SkipBoard, key, explainer, onProgress)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

// pickExplainer honors an explicit renderer request; "llm" silently falls
// back to the template when no chat model is configured.
func (s *Service) pickExplainer(requested string) (string, ExplainRenderer) {
	if requested == "template" || s.llm == nil {
		return "template", s.template
	}
	return "llm", s.llm
}

func (s *Service) runAnalysis(ctx context.Context, fen string, whiteToMove bool, depth, lines int, lang string, skipBoard bool, cacheKey string, explainer ExplainRenderer, onProgress func(Progress)) (*Result, error) {
	start := time.Now()
	agg := analysis.NewAggregator(lines)

	_, err := s.engine.Analyze(ctx, engine.AnalyzeRequest{FEN: fen, Depth: depth, NumLines: lines}, func(u analysis.LineUpdate) {
		agg.Apply(u)
		if onProgress != nil {
			prog := Progress{Rank: u.Rank, Depth: u.Depth}
			if u.Score != nil {
				display, value := analysis.FormatScore(*u.Score)
				display, _ = analysis.NormalizeForSideToMove(display, value, whiteToMove)
				prog.Score = display
			}
			onProgress(prog)
		}
	})
	if err != nil {
		return nil, err
	}
	metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	metrics.EngineSessions.Set(float64(s.engine.ActiveSessions()))

	moves, err := agg.Finalize(fen)
	if err != nil {
		return nil, err
	}

	posCtx, err := analysis.ExtractContext(fen)
	if err != nil {
		obslog.L().Warn("context extraction failed", zap.String("fen", fen), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", analysis.ErrInvalidPosition, err)
	}

	if noUsableLines(moves, posCtx) {
		return nil, analysis.ErrNoLines
	}

	explanation := explainer.Render(ctx, explain.Input{
		FEN:     fen,
		Locale:  lang,
		Moves:   moves,
		Context: posCtx,
	})

	res := &Result{
		ID:          uuid.NewString(),
		FEN:         fen,
		Turn:        turnName(whiteToMove),
		Depth:       effectiveDepth(moves, depth),
		BestMoves:   moves,
		Explanation: explanation,
		Context:     posCtx,
		DurationMS:  time.Since(start).Milliseconds(),
	}

	if !skipBoard {
		res.BoardImage = s.renderBoard(ctx, fen, moves, posCtx, lang)
	}

	if payload, err := json.Marshal(res); err == nil {
		s.cache.Set(ctx, cacheKey, payload)
	}
	s.recordHistory(res, lines, lang)

	return res, nil
}

func (s *Service) renderBoard(ctx context.Context, fen string, moves []analysis.RankedMove, posCtx *analysis.PositionContext, lang string) []byte {
	opts := render.Options{Header: "Position Analysis"}
	if len(moves) > 0 {
		opts.Highlight = render.ParseUCIHighlight(moves[0].MoveUCI)
		opts.EvalText = moves[0].Score
	}
	if posCtx != nil {
		side := "side.white"
		if posCtx.Turn == "black" {
			side = "side.black"
		}
		opts.TurnText = s.catalog.MustRender(lang, side, nil)
	}
	img, err := s.renderer.RenderPNG(ctx, fen, opts)
	if err != nil {
		obslog.L().Warn("board rendering failed", zap.Error(err))
		return nil
	}
	return img
}

func (s *Service) recordHistory(res *Result, lines int, lang string) {
	if s.repo == nil {
		return
	}
	rec := &history.Record{
		ID:         res.ID,
		FEN:        res.FEN,
		Depth:      res.Depth,
		MultiPV:    lines,
		Lang:       lang,
		DurationMS: res.DurationMS,
		CreatedAt:  time.Now().UTC(),
	}
	if len(res.BestMoves) > 0 {
		rec.BestMove = res.BestMoves[0].MoveSAN
		rec.ScoreText = res.BestMoves[0].Score
	}
	if payload, err := json.Marshal(res.BestMoves); err == nil {
		rec.Result = payload
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.Insert(ctx, rec); err != nil {
			obslog.L().Warn("history insert failed", zap.Error(err))
		}
	}()
}

// Recent lists stored analyses, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]*history.Record, error) {
	if s.repo == nil {
		return []*history.Record{}, nil
	}
	return s.repo.Recent(ctx, limit)
}

// EngineAvailable reports whether a usable engine binary was found.
func (s *Service) EngineAvailable() bool {
	return s.engineReady
}

// noUsableLines reports an empty finalization that a live position cannot
// excuse. Terminal positions legitimately have no candidate lines.
func noUsableLines(moves []analysis.RankedMove, posCtx *analysis.PositionContext) bool {
	return len(moves) == 0 && !posCtx.IsCheckmate && !posCtx.IsStalemate
}

func turnName(whiteToMove bool) string {
	if whiteToMove {
		return "white"
	}
	return "black"
}

func effectiveDepth(moves []analysis.RankedMove, requested int) int {
	for _, mv := range moves {
		if mv.Depth > requested {
			requested = mv.Depth
		}
	}
	return requested
}
