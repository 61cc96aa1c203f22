package server

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/guiude/chess-analyzer/internal/obslog"
	"github.com/guiude/chess-analyzer/internal/service"
	"github.com/guiude/chess-analyzer/pkg/analyzerdto"
)

const streamTimeout = 5 * time.Minute

// handleAnalyzeStream upgrades to WebSocket, reads one AnalyzeRequest, and
// emits progress events while the engine searches, ending with a result or
// error event.
func (s *Server) handleAnalyzeStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		obslog.L().Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")

	ctx, cancel := context.WithTimeout(r.Context(), streamTimeout)
	defer cancel()

	var req analyzerdto.AnalyzeRequest
	if err := wsjson.Read(ctx, conn, &req); err != nil {
		_ = conn.Close(websocket.StatusUnsupportedData, "invalid request")
		return
	}

	res, err := s.svc.AnalyzeStream(ctx, service.Params{
		FEN:       req.FEN,
		Depth:     req.Depth,
		NumLines:  req.NumMoves,
		Lang:      req.Lang,
		Explain:   req.Explain,
		SkipBoard: req.SkipBoard,
	}, func(p service.Progress) {
		_ = wsjson.Write(ctx, conn, analyzerdto.StreamEvent{
			Type:  "progress",
			Rank:  p.Rank,
			Depth: p.Depth,
			Score: p.Score,
		})
	})
	if err != nil {
		_ = wsjson.Write(ctx, conn, analyzerdto.StreamEvent{Type: "error", Error: err.Error()})
		_ = conn.Close(websocket.StatusNormalClosure, "done")
		return
	}

	final := toAnalyzeResponse(res)
	if err := wsjson.Write(ctx, conn, analyzerdto.StreamEvent{Type: "result", Result: &final}); err != nil {
		obslog.L().Warn("stream result write failed", zap.Error(err))
		return
	}
	conn.Close(websocket.StatusNormalClosure, "done")
}
