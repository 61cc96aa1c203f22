// Package server exposes the analyzer over HTTP: JSON endpoints for
// analysis, recognition and correction, a WebSocket stream for live engine
// progress, and Prometheus metrics.
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/guiude/chess-analyzer/internal/analysis"
	"github.com/guiude/chess-analyzer/internal/fencorrect"
	"github.com/guiude/chess-analyzer/internal/metrics"
	"github.com/guiude/chess-analyzer/internal/obslog"
	"github.com/guiude/chess-analyzer/internal/service"
	"github.com/guiude/chess-analyzer/internal/tuning"
	"github.com/guiude/chess-analyzer/internal/vision"
	"github.com/guiude/chess-analyzer/pkg/analyzerdto"
)

const (
	maxBodyBytes = 8 << 20
	apiVersion   = "1.0.0"
)

// Server routes API requests to the analyzer service and its collaborators.
type Server struct {
	svc          *service.Service
	recognizer   *vision.Recognizer
	corrector    *fencorrect.Corrector
	settings     tuning.Settings
	llmEnabled   bool
	cacheEnabled bool
	mux          *http.ServeMux
}

// Config collects the handlers' collaborators. Recognizer and corrector may
// be nil when no vision or chat model is configured.
type Config struct {
	Service      *service.Service
	Recognizer   *vision.Recognizer
	Corrector    *fencorrect.Corrector
	Settings     tuning.Settings
	LLMEnabled   bool
	CacheEnabled bool
}

func New(cfg Config) *Server {
	s := &Server{
		svc:          cfg.Service,
		recognizer:   cfg.Recognizer,
		corrector:    cfg.Corrector,
		settings:     cfg.Settings,
		llmEnabled:   cfg.LLMEnabled,
		cacheEnabled: cfg.CacheEnabled,
		mux:          http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.handle("/api/analyze", http.MethodPost, s.handleAnalyze)
	s.handle("/api/validate-fen", http.MethodPost, s.handleValidateFEN)
	s.handle("/api/recognize", http.MethodPost, s.handleRecognize)
	s.handle("/api/correct-position", http.MethodPost, s.handleCorrect)
	s.handle("/api/settings", http.MethodGet, s.handleSettings)
	s.handle("/api/health", http.MethodGet, s.handleHealth)
	s.handle("/api/history", http.MethodGet, s.handleHistory)
	s.mux.HandleFunc("/api/analyze/stream", s.handleAnalyzeStream)
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) handle(route, method string, h http.HandlerFunc) {
	s.mux.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			writeError(w, route, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		metrics.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzerdto.AnalyzeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	fen := strings.TrimSpace(req.FEN)
	if fen == "" {
		if strings.TrimSpace(req.Image) == "" {
			writeError(w, "/api/analyze", http.StatusBadRequest, "either fen or image is required")
			return
		}
		if s.recognizer == nil {
			writeError(w, "/api/analyze", http.StatusServiceUnavailable, "image recognition is not configured")
			return
		}
		recognized, err := s.recognizer.RecognizeBase64(r.Context(), stripDataURL(req.Image))
		if err != nil {
			if errors.Is(err, vision.ErrRecognitionFailed) {
				writeError(w, "/api/analyze", http.StatusUnprocessableEntity, "could not recognize a chess position in the image")
				return
			}
			writeError(w, "/api/analyze", http.StatusBadGateway, "image recognition failed")
			return
		}
		fen = recognized
	}
	res, err := s.svc.Analyze(r.Context(), service.Params{
		FEN:       fen,
		Depth:     req.Depth,
		NumLines:  req.NumMoves,
		Lang:      req.Lang,
		Explain:   req.Explain,
		SkipBoard: req.SkipBoard,
	})
	if err != nil {
		writeServiceError(w, "/api/analyze", err)
		return
	}
	writeJSON(w, http.StatusOK, toAnalyzeResponse(res))
}

// stripDataURL drops a "data:image/...;base64," prefix when present.
func stripDataURL(image string) string {
	if strings.HasPrefix(image, "data:") {
		if i := strings.Index(image, ","); i >= 0 {
			return image[i+1:]
		}
	}
	return image
}

func (s *Server) handleValidateFEN(w http.ResponseWriter, r *http.Request) {
	var req analyzerdto.ValidateFENRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp := analyzerdto.ValidateFENResponse{Valid: true}
	if _, err := analysis.ValidateFEN(req.FEN); err != nil {
		resp.Valid = false
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecognize(w http.ResponseWriter, r *http.Request) {
	if s.recognizer == nil {
		writeError(w, "/api/recognize", http.StatusServiceUnavailable, "image recognition is not configured")
		return
	}
	var req analyzerdto.RecognizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ImageBase64) == "" {
		writeError(w, "/api/recognize", http.StatusBadRequest, "image_base64 is required")
		return
	}
	fen, err := s.recognizer.RecognizeBase64(r.Context(), stripDataURL(req.ImageBase64))
	if err != nil {
		switch {
		case errors.Is(err, vision.ErrRecognitionFailed):
			writeError(w, "/api/recognize", http.StatusUnprocessableEntity, "could not recognize a chess position in the image")
		case errors.Is(err, vision.ErrNotConfigured):
			writeError(w, "/api/recognize", http.StatusServiceUnavailable, "image recognition is not configured")
		default:
			writeError(w, "/api/recognize", http.StatusBadGateway, "image recognition failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, analyzerdto.RecognizeResponse{FEN: fen})
}

func (s *Server) handleCorrect(w http.ResponseWriter, r *http.Request) {
	if s.corrector == nil {
		writeError(w, "/api/correct-position", http.StatusServiceUnavailable, "position correction is not configured")
		return
	}
	var req analyzerdto.CorrectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := analysis.ValidateFEN(req.FEN); err != nil {
		writeError(w, "/api/correct-position", http.StatusBadRequest, "invalid fen: "+err.Error())
		return
	}
	fixed, err := s.corrector.Correct(r.Context(), req.FEN, req.Instruction)
	if err != nil {
		if errors.Is(err, fencorrect.ErrNotApplied) {
			writeError(w, "/api/correct-position", http.StatusUnprocessableEntity, "could not apply the correction")
			return
		}
		writeError(w, "/api/correct-position", http.StatusBadGateway, "position correction failed")
		return
	}
	writeJSON(w, http.StatusOK, analyzerdto.CorrectResponse{FEN: fixed})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, analyzerdto.SettingsResponse{
		HashMB:       s.settings.HashMB,
		Threads:      s.settings.Threads,
		MaxDepth:     s.settings.MaxDepth,
		DefaultDepth: s.settings.DefaultDepth,
		MemoryMB:     s.settings.MemoryMB,
		CloudMode:    s.settings.CloudMode,
		LLMEnabled:   s.llmEnabled,
		CacheEnabled: s.cacheEnabled,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if !s.svc.EngineAvailable() {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, analyzerdto.HealthResponse{
		Status:          status,
		EngineAvailable: s.svc.EngineAvailable(),
		Version:         apiVersion,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			writeError(w, "/api/history", http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}
	recs, err := s.svc.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, "/api/history", http.StatusInternalServerError, "history lookup failed")
		return
	}
	resp := analyzerdto.HistoryResponse{Analyses: make([]analyzerdto.HistoryEntry, 0, len(recs))}
	for _, rec := range recs {
		resp.Analyses = append(resp.Analyses, analyzerdto.HistoryEntry{
			ID:         rec.ID,
			FEN:        rec.FEN,
			Depth:      rec.Depth,
			MultiPV:    rec.MultiPV,
			Lang:       rec.Lang,
			BestMove:   rec.BestMove,
			Score:      rec.ScoreText,
			DurationMS: rec.DurationMS,
			CreatedAt:  rec.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func toAnalyzeResponse(res *service.Result) analyzerdto.AnalyzeResponse {
	out := analyzerdto.AnalyzeResponse{
		ID:          res.ID,
		FEN:         res.FEN,
		Turn:        res.Turn,
		Depth:       res.Depth,
		Explanation: res.Explanation,
		Cached:      res.Cached,
		DurationMS:  res.DurationMS,
	}
	out.BestMoves = make([]analyzerdto.RankedMove, 0, len(res.BestMoves))
	for _, mv := range res.BestMoves {
		out.BestMoves = append(out.BestMoves, analyzerdto.RankedMove{
			Rank:          mv.Rank,
			MoveUCI:       mv.MoveUCI,
			MoveSAN:       mv.MoveSAN,
			Score:         mv.Score,
			ScoreValue:    mv.ScoreValue,
			RawScoreValue: mv.RawScoreValue,
			Line:          mv.Line,
			FullLine:      mv.FullLine,
			Depth:         mv.Depth,
		})
	}
	if res.Context != nil {
		out.Context = &analyzerdto.PositionContext{
			Turn:        res.Context.Turn,
			IsCheck:     res.Context.IsCheck,
			IsCheckmate: res.Context.IsCheckmate,
			IsStalemate: res.Context.IsStalemate,
			Castling: analyzerdto.CastlingRights{
				WhiteKingside:  res.Context.Castling.WhiteKingside,
				WhiteQueenside: res.Context.Castling.WhiteQueenside,
				BlackKingside:  res.Context.Castling.BlackKingside,
				BlackQueenside: res.Context.Castling.BlackQueenside,
			},
			WhiteMaterial:   toSideMaterial(res.Context.White),
			BlackMaterial:   toSideMaterial(res.Context.Black),
			MaterialBalance: res.Context.MaterialBalance,
			MoveNumber:      res.Context.MoveNumber,
			LegalMoves:      res.Context.LegalMoves,
			TotalPieces:     res.Context.TotalPieces,
			Phase:           res.Context.Phase,
		}
	}
	if len(res.BoardImage) > 0 {
		out.BoardImage = base64.StdEncoding.EncodeToString(res.BoardImage)
	}
	return out
}

func toSideMaterial(m analysis.SideMaterial) analyzerdto.SideMaterial {
	return analyzerdto.SideMaterial{
		Pawns:   m.Pawns,
		Knights: m.Knights,
		Bishops: m.Bishops,
		Rooks:   m.Rooks,
		Queens:  m.Queens,
		Points:  m.Value,
	}
}

func writeServiceError(w http.ResponseWriter, route string, err error) {
	switch {
	case errors.Is(err, analysis.ErrInvalidPosition):
		writeError(w, route, http.StatusBadRequest, err.Error())
	case errors.Is(err, analysis.ErrEngineUnavailable):
		writeError(w, route, http.StatusServiceUnavailable, "engine unavailable")
	case errors.Is(err, analysis.ErrNoLines):
		writeError(w, route, http.StatusUnprocessableEntity, "engine produced no usable lines")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, route, http.StatusGatewayTimeout, "analysis timed out")
	default:
		obslog.L().Error("analysis failed", zap.String("route", route), zap.Error(err))
		writeError(w, route, http.StatusInternalServerError, "analysis failed")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, r.URL.Path, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		obslog.L().Warn("response encode failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, route string, status int, msg string) {
	writeJSON(w, status, analyzerdto.ErrorResponse{Error: msg})
}
