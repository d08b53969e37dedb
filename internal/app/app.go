// Package app assembles the long-lived components shared by the daemon and the CLI.
package app

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/intake-tracker/internal/common"
	"github.com/joseph-ayodele/intake-tracker/internal/export"
	"github.com/joseph-ayodele/intake-tracker/internal/hybrid"
	"github.com/joseph-ayodele/intake-tracker/internal/llm"
	"github.com/joseph-ayodele/intake-tracker/internal/llm/openai"
	"github.com/joseph-ayodele/intake-tracker/internal/queue"
	"github.com/joseph-ayodele/intake-tracker/internal/repository"
	"github.com/joseph-ayodele/intake-tracker/internal/services/extraction"
	"github.com/joseph-ayodele/intake-tracker/internal/services/review"
)

// App holds one instance of each component, constructed once per process.
type App struct {
	Config     *common.Config
	DB         *repository.DB
	Queue      *queue.Manager
	Selector   *hybrid.Selector
	Extraction *extraction.Service
	Sheets     *export.Service
	Review     *review.Service
	Logger     *zap.Logger
}

// New opens storage, runs migrations and wires every service.
func New(ctx context.Context, cfg *common.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := repository.Open(ctx, repository.ConfigFrom(cfg.Database), logger)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	if err := repository.Migrate(ctx, db, logger); err != nil {
		repository.Close(db, logger)
		return nil, err
	}

	q := queue.NewManager(
		repository.NewRecordRepository(db, logger),
		repository.NewProcessedFileRepository(db, logger),
		queue.WithLogger(logger),
		queue.WithPinger(db),
	)

	var ai llm.FieldExtractor
	if cfg.LLM.Enabled {
		client := openai.NewClient(openai.Config{
			APIKey:            cfg.LLM.APIKey,
			BaseURL:           cfg.LLM.BaseURL,
			Model:             cfg.LLM.Model,
			Temperature:       cfg.LLM.Temperature,
			Timeout:           cfg.LLM.Timeout,
			RequestsPerMinute: int(cfg.LLM.RequestsPerMinute),
		}, logger)
		ai = llm.NewExtractor(client, logger)
		logger.Info("app.llm.enabled", zap.String("model", client.Model()))
	}
	selector := hybrid.NewSelector(ai, hybrid.Config{
		AIEnabled:       cfg.LLM.Enabled,
		Threshold:       cfg.LLM.ConfidenceThreshold,
		FallbackToRules: cfg.LLM.FallbackToRules,
	}, logger)

	ext := extraction.NewService(q, selector, extraction.Config{
		BaseDir:     cfg.Sources.BaseDir,
		FileTimeout: cfg.Extraction.FileTimeout,
		MaxErrors:   cfg.Extraction.MaxErrors,
	}, logger)
	sheets := export.NewService(cfg.Sheets.Path, logger)

	return &App{
		Config:     cfg,
		DB:         db,
		Queue:      q,
		Selector:   selector,
		Extraction: ext,
		Sheets:     sheets,
		Review:     review.NewService(q, sheets, logger),
		Logger:     logger,
	}, nil
}

// Close releases storage.
func (a *App) Close() {
	repository.Close(a.DB, a.Logger)
}
