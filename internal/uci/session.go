// Package uci drives a UCI chess engine subprocess and streams its
// incremental multi-PV search output.
package uci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultReadyTimeout  = 4 * time.Second
	newGameRetryAttempts = 3
	newGameRetryDelay    = 150 * time.Millisecond
)

// Options are the engine settings applied once per session. Sessions with
// different options never share a process.
type Options struct {
	Threads int
	HashMB  int
	MultiPV int
}

// InfoUpdate is one parsed "info" line from a running search. Score fields
// are nil when the line did not carry that score kind; PV is nil when the
// line carried no principal variation.
type InfoUpdate struct {
	MultiPV   int
	Depth     int
	ScoreCP   *int
	ScoreMate *int
	PV        []string
}

// InfoSink receives updates in arrival order while a search runs.
type InfoSink func(InfoUpdate)

type Session struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	mu     sync.Mutex
	search sync.Mutex
}

func NewSession(ctx context.Context, binaryPath string, opt Options) (*Session, error) {
	if err := validateOptions(opt); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, binaryPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = io.Discard

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdoutPipe.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	s := &Session{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdoutPipe),
	}

	if err := s.initialize(ctx, opt); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// SearchRequest describes one fixed-depth multi-PV search.
type SearchRequest struct {
	FEN   string
	Depth int
}

// Search drives one search to completion, forwarding every parsed info line
// to sink, and returns the engine's best move. The sink may be nil.
func (s *Session) Search(ctx context.Context, req SearchRequest, sink InfoSink) (string, error) {
	s.search.Lock()
	defer s.search.Unlock()

	positionCmd := buildPositionCommand(req.FEN)
	if err := s.send(positionCmd); err != nil {
		return "", fmt.Errorf("send position: %w", err)
	}
	if req.Depth <= 0 {
		return "", fmt.Errorf("search depth must be > 0: %d", req.Depth)
	}
	goCmd := "go depth " + strconv.Itoa(req.Depth)
	if err := s.send(goCmd + "\n"); err != nil {
		return "", fmt.Errorf("send go: %w", err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, computeSearchTimeout(req.Depth))
	defer cancel()

	for {
		line, err := s.readLine(searchCtx)
		if err != nil {
			log.Printf("[uci] read error (fen=%s, go=%s): %v", req.FEN, goCmd, err)
			return "", fmt.Errorf("read line: %w", err)
		}
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "info "):
			if update, ok := parseInfo(line); ok && sink != nil {
				sink(update)
			}
		case strings.HasPrefix(line, "bestmove"):
			parts := strings.Fields(line)
			if len(parts) >= 2 && parts[1] != "(none)" {
				return parts[1], nil
			}
			return "", nil
		}
	}
}

func buildPositionCommand(fen string) string {
	if strings.TrimSpace(fen) == "" || fen == "startpos" {
		return "position startpos\n"
	}
	return "position fen " + fen + "\n"
}

func validateOptions(opt Options) error {
	if opt.HashMB <= 0 {
		return fmt.Errorf("hash size must be > 0: %d", opt.HashMB)
	}
	if opt.MultiPV <= 0 {
		return fmt.Errorf("multipv must be > 0: %d", opt.MultiPV)
	}
	return nil
}

// computeSearchTimeout scales the hard deadline with depth. Fixed-depth
// searches have no native time bound, so the ceiling only guards against a
// wedged engine.
func computeSearchTimeout(depth int) time.Duration {
	base := time.Duration(depth) * 1500 * time.Millisecond
	if base < 10*time.Second {
		base = 10 * time.Second
	}
	if base > 2*time.Minute {
		base = 2 * time.Minute
	}
	return base
}

// parseInfo extracts multipv rank, depth, score and PV from an engine info
// line. Lines without any of score, depth or pv are not useful updates.
func parseInfo(line string) (InfoUpdate, bool) {
	parts := strings.Fields(line)
	update := InfoUpdate{MultiPV: 1}
	seen := false

	for i := 0; i < len(parts); i++ {
		switch parts[i] {
		case "multipv":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					update.MultiPV = v
				}
				i++
			}
		case "depth":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					update.Depth = v
					seen = true
				}
				i++
			}
		case "score":
			if i+2 < len(parts) {
				if v, err := strconv.Atoi(parts[i+2]); err == nil {
					switch parts[i+1] {
					case "cp":
						update.ScoreCP = &v
						seen = true
					case "mate":
						update.ScoreMate = &v
						seen = true
					}
				}
				i += 2
			}
		case "pv":
			if i+1 < len(parts) {
				update.PV = append([]string(nil), parts[i+1:]...)
				seen = true
			}
			i = len(parts)
		}
	}
	return update, seen
}

func (s *Session) EnsureReady(ctx context.Context) error {
	readyCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(readyCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

func (s *Session) NewGame(ctx context.Context) error {
	if err := s.send("ucinewgame\n"); err != nil {
		return fmt.Errorf("send ucinewgame: %w", err)
	}

	for attempt := 1; attempt <= newGameRetryAttempts; attempt++ {
		err := s.EnsureReady(ctx)
		if err == nil {
			return nil
		}
		if attempt == newGameRetryAttempts {
			return err
		}
		log.Printf("[uci] ensure ready retry %d/%d after ucinewgame: %v", attempt, newGameRetryAttempts, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(newGameRetryDelay):
		}
	}
	return nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdin != nil {
		s.stdin.Close()
	}

	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}

	if s.cmd != nil {
		return s.cmd.Wait()
	}
	return nil
}

func (s *Session) initialize(ctx context.Context, opt Options) error {
	initCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("uci\n"); err != nil {
		return fmt.Errorf("send uci: %w", err)
	}
	if err := s.awaitToken(initCtx, "uciok"); err != nil {
		return fmt.Errorf("wait uciok: %w", err)
	}

	if err := s.applyOptions(opt); err != nil {
		return err
	}

	if err := s.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(initCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}

	return nil
}

func (s *Session) applyOptions(opt Options) error {
	threadCount := opt.Threads
	if threadCount <= 0 {
		threadCount = 1
	}
	cmds := []string{
		fmt.Sprintf("setoption name Threads value %d\n", threadCount),
		fmt.Sprintf("setoption name Hash value %d\n", opt.HashMB),
		fmt.Sprintf("setoption name MultiPV value %d\n", opt.MultiPV),
		"setoption name Move Overhead value 100\n",
	}
	for _, cmd := range cmds {
		if err := s.send(cmd); err != nil {
			return fmt.Errorf("apply options: %w", err)
		}
	}
	return nil
}

func (s *Session) send(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.stdin, msg)
	return err
}

func (s *Session) awaitToken(ctx context.Context, token string) error {
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return err
		}
		if strings.Contains(line, token) {
			return nil
		}
	}
}

func (s *Session) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		line, err := s.stdout.ReadString('\n')
		ch <- result{line: strings.TrimSpace(line), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		return res.line, res.err
	}
}
