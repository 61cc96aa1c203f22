// Package appbuilder assembles the analyzer's collaborators from
// configuration: engine, cache, history store, LLM client and service.
package appbuilder

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/guiude/chess-analyzer/internal/cache"
	"github.com/guiude/chess-analyzer/internal/config"
	"github.com/guiude/chess-analyzer/internal/engine"
	"github.com/guiude/chess-analyzer/internal/fencorrect"
	"github.com/guiude/chess-analyzer/internal/history"
	"github.com/guiude/chess-analyzer/internal/locale"
	"github.com/guiude/chess-analyzer/internal/obslog"
	"github.com/guiude/chess-analyzer/internal/openai"
	"github.com/guiude/chess-analyzer/internal/render"
	"github.com/guiude/chess-analyzer/internal/service"
	"github.com/guiude/chess-analyzer/internal/tuning"
	"github.com/guiude/chess-analyzer/internal/vision"
)

// Deps holds everything a command needs to serve or analyze.
type Deps struct {
	Service    *service.Service
	Engine     *engine.Engine
	Cache      *cache.Cache
	Recognizer *vision.Recognizer
	Corrector  *fencorrect.Corrector
	Settings   tuning.Settings
	DB         *sql.DB
}

// New builds the dependency graph. A missing engine binary is tolerated so
// the API can come up degraded; Redis and Postgres are optional.
func New(ctx context.Context, cfg *config.AppConfig) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	log := obslog.L()

	settings := tuning.Optimal()
	binary := cfg.StockfishPath
	if binary == "" {
		binary = tuning.FindEngine()
	}

	var eng *engine.Engine
	engineReady := false
	if binary != "" {
		e, err := engine.New(binary, settings, cfg.PoolCapacity)
		if err != nil {
			log.Warn("engine init failed, serving degraded", zap.String("binary", binary), zap.Error(err))
		} else {
			eng = e
			engineReady = true
			log.Info("engine ready",
				zap.String("binary", binary),
				zap.Int("hash_mb", settings.HashMB),
				zap.Int("threads", settings.Threads))
		}
	} else {
		log.Warn("no stockfish binary found, serving degraded")
	}

	resultCache, err := cache.New(cfg.RedisURL, time.Duration(cfg.CacheTTLSec)*time.Second)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}

	var repo history.Repository
	var db *sql.DB
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		repo, db, err = history.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init history: %w", err)
		}
	}

	catalog, err := locale.New()
	if err != nil {
		return nil, fmt.Errorf("locale catalog: %w", err)
	}

	deps := &Deps{
		Engine:   eng,
		Cache:    resultCache,
		Settings: settings,
		DB:       db,
	}

	var chat *openai.Client
	if cfg.LLMEnabled() {
		chat = openai.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, openai.WithModel(cfg.OpenAIModel))
		visionClient := openai.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, openai.WithModel(cfg.VisionModel))
		deps.Recognizer = vision.NewRecognizer(visionClient)
	}
	deps.Corrector = fencorrect.New(chatOrNil(chat))

	svcCfg := service.Config{
		Engine:       eng,
		Cache:        resultCache,
		Repo:         repo,
		Renderer:     render.NewBoardRenderer(),
		Catalog:      catalog,
		DefaultLines: cfg.DefaultLines,
		MaxLines:     cfg.MaxLines,
		DefaultLang:  cfg.DefaultLocale,
		EngineReady:  engineReady,
	}
	if chat != nil {
		svcCfg.Chat = chat
	}
	svc, err := service.New(svcCfg)
	if err != nil {
		return nil, fmt.Errorf("init service: %w", err)
	}
	deps.Service = svc
	return deps, nil
}

// chatOrNil keeps a typed nil *openai.Client from leaking into an interface.
func chatOrNil(c *openai.Client) fencorrect.ChatCompleter {
	if c == nil {
		return nil
	}
	return c
}

// Close releases engine, cache and database resources.
func (d *Deps) Close() {
	if d == nil {
		return
	}
	if d.Engine != nil {
		_ = d.Engine.Close()
	}
	if d.Cache != nil {
		_ = d.Cache.Close()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
}
