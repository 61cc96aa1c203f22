package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/guiude/chess-analyzer/internal/appbuilder"
	"github.com/guiude/chess-analyzer/internal/config"
	"github.com/guiude/chess-analyzer/internal/obslog"
	"github.com/guiude/chess-analyzer/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the analysis HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := obslog.InitFromEnv(); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	log := obslog.L()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	deps, err := appbuilder.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	srv := server.New(server.Config{
		Service:      deps.Service,
		Recognizer:   deps.Recognizer,
		Corrector:    deps.Corrector,
		Settings:     deps.Settings,
		LLMEnabled:   cfg.LLMEnabled(),
		CacheEnabled: deps.Cache.Enabled(),
	})

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.ListenAddr))
		errCh <- httpSrv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-stop:
		log.Info("shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(ctx); err != nil {
			log.Warn("shutdown incomplete", zap.Error(err))
		}
	}
	return nil
}
