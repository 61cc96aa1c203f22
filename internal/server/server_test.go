package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/guiude/chess-analyzer/internal/analysis"
	"github.com/guiude/chess-analyzer/internal/fencorrect"
	"github.com/guiude/chess-analyzer/internal/locale"
	"github.com/guiude/chess-analyzer/internal/service"
	"github.com/guiude/chess-analyzer/internal/tuning"
	"github.com/guiude/chess-analyzer/pkg/analyzerdto"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	catalog, err := locale.New()
	if err != nil {
		t.Fatalf("locale catalog: %v", err)
	}
	svc, err := service.New(service.Config{Catalog: catalog})
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return New(Config{
		Service:   svc,
		Corrector: fencorrect.New(nil),
		Settings:  tuning.Settings{HashMB: 64, Threads: 1, MaxDepth: 22, DefaultDepth: 18, MemoryMB: 2048},
	})
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestAnalyzeResponseMapsMaterial(t *testing.T) {
	posCtx, err := analysis.ExtractContext(analysis.StartingFEN)
	if err != nil {
		t.Fatalf("ExtractContext: %v", err)
	}
	out := toAnalyzeResponse(&service.Result{FEN: analysis.StartingFEN, Context: posCtx})
	if out.Context == nil {
		t.Fatal("context dropped")
	}
	if out.Context.WhiteMaterial.Points != posCtx.White.Value {
		t.Fatalf("white points: %d want %d", out.Context.WhiteMaterial.Points, posCtx.White.Value)
	}
	if out.Context.BlackMaterial.Pawns != posCtx.Black.Pawns {
		t.Fatalf("black pawns: %d want %d", out.Context.BlackMaterial.Pawns, posCtx.Black.Pawns)
	}
}

func TestValidateFENEndpoint(t *testing.T) {
	s := newTestServer(t)

	rr := postJSON(t, s.Handler(), "/api/validate-fen", analyzerdto.ValidateFENRequest{
		FEN: "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp analyzerdto.ValidateFENResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Valid || resp.Error != "" {
		t.Fatalf("expected valid, got %+v", resp)
	}

	rr = postJSON(t, s.Handler(), "/api/validate-fen", analyzerdto.ValidateFENRequest{FEN: "only/seven/ranks"})
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Valid || resp.Error == "" {
		t.Fatalf("expected invalid with reason, got %+v", resp)
	}
}

func TestAnalyzeWithoutEngineReturns503(t *testing.T) {
	s := newTestServer(t)
	rr := postJSON(t, s.Handler(), "/api/analyze", analyzerdto.AnalyzeRequest{
		FEN: "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
	})
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp analyzerdto.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error == "" {
		t.Fatalf("error envelope missing")
	}
}

func TestAnalyzeRejectsMalformedFEN(t *testing.T) {
	s := newTestServer(t)
	rr := postJSON(t, s.Handler(), "/api/analyze", analyzerdto.AnalyzeRequest{FEN: "bogus"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestHealthDegradedWithoutEngine(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp analyzerdto.HealthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "degraded" || resp.EngineAvailable {
		t.Fatalf("expected degraded health, got %+v", resp)
	}
}

func TestSettingsEndpoint(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	var resp analyzerdto.SettingsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.HashMB != 64 || resp.MaxDepth != 22 {
		t.Fatalf("unexpected settings: %+v", resp)
	}
}

func TestCorrectPositionHeuristic(t *testing.T) {
	s := newTestServer(t)
	rr := postJSON(t, s.Handler(), "/api/correct-position", analyzerdto.CorrectRequest{
		FEN:         "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		Instruction: "the white king should be on e2 not e1",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp analyzerdto.CorrectResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(resp.FEN, "RNBQ1BNR") {
		t.Fatalf("king not moved off e1: %s", resp.FEN)
	}
}

func TestRecognizeUnconfigured(t *testing.T) {
	s := newTestServer(t)
	rr := postJSON(t, s.Handler(), "/api/recognize", analyzerdto.RecognizeRequest{ImageBase64: "aGVsbG8="})
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestHistoryWithoutDatabase(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/history?limit=5", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp analyzerdto.HistoryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Analyses == nil || len(resp.Analyses) != 0 {
		t.Fatalf("expected empty list, got %+v", resp.Analyses)
	}
}

func TestHistoryRejectsBadLimit(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/history?limit=0", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/analyze", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rr.Code)
	}
}
